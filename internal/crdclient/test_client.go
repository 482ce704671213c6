// Copyright Contributors to the testsys project

package crdclient

import (
	"context"
	"time"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
	testsyserrors "github.com/testsys-io/testsys/internal/testsys/apierrors"
)

// TestClient is typed access to Test objects, per spec.md §4.2.
type TestClient struct {
	Client    client.Client
	Namespace string
}

func (c TestClient) key(name string) types.NamespacedName {
	return types.NamespacedName{Namespace: c.Namespace, Name: name}
}

func (c TestClient) Get(ctx context.Context, name string) (*v1alpha1.Test, error) {
	var t v1alpha1.Test
	if err := c.Client.Get(ctx, c.key(name), &t); err != nil {
		return nil, testsyserrors.Wrap(testsyserrors.KindNotFound, "TestClient.Get", err)
	}
	return &t, nil
}

func (c TestClient) List(ctx context.Context) (*v1alpha1.TestList, error) {
	var list v1alpha1.TestList
	if err := c.Client.List(ctx, &list, client.InNamespace(c.Namespace)); err != nil {
		return nil, testsyserrors.Wrap(testsyserrors.KindTransient, "TestClient.List", err)
	}
	return &list, nil
}

func (c TestClient) Create(ctx context.Context, t *v1alpha1.Test) error {
	if err := c.Client.Create(ctx, t); err != nil {
		return testsyserrors.Wrap(testsyserrors.KindTransient, "TestClient.Create", err)
	}
	return nil
}

func (c TestClient) Delete(ctx context.Context, name string) error {
	t := &v1alpha1.Test{}
	t.Namespace, t.Name = c.Namespace, name
	if err := c.Client.Delete(ctx, t); err != nil {
		return testsyserrors.Wrap(testsyserrors.KindTransient, "TestClient.Delete", err)
	}
	return nil
}

// InitializeStatus sets an empty but well-formed status if none has been
// set yet; no-op otherwise.
func (c TestClient) InitializeStatus(ctx context.Context, name string) error {
	return retryOnConflict(func() error {
		t, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		if t.Status.Agent.State != "" {
			return nil
		}
		t.Status.Agent.State = v1alpha1.TaskStateUnknown
		return c.Client.Status().Update(ctx, t)
	})
}

// SendTaskState writes the agent task state.
func (c TestClient) SendTaskState(ctx context.Context, name string, state v1alpha1.TaskState) error {
	return retryOnConflict(func() error {
		t, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		t.Status.Agent.State = state
		return c.Client.Status().Update(ctx, t)
	})
}

// SendError records an error message on the agent status, once.
func (c TestClient) SendError(ctx context.Context, name, message string) error {
	return retryOnConflict(func() error {
		t, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		if t.Status.Agent.Error != "" {
			return nil
		}
		t.Status.Agent.Error = message
		t.Status.Agent.State = v1alpha1.TaskStateError
		return c.Client.Status().Update(ctx, t)
	})
}

// SendTestResults sets the agent's structured results without changing
// task state.
func (c TestClient) SendTestResults(ctx context.Context, name string, results *apiextensionsv1.JSON) error {
	return retryOnConflict(func() error {
		t, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		t.Status.Agent.Results = results
		return c.Client.Status().Update(ctx, t)
	})
}

// SendTestCompleted sets results and flips the agent task state to
// Completed in a single patch, per spec.md §4.2.
func (c TestClient) SendTestCompleted(ctx context.Context, name string, results *apiextensionsv1.JSON) error {
	return retryOnConflict(func() error {
		t, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		t.Status.Agent.Results = results
		t.Status.Agent.State = v1alpha1.TaskStateCompleted
		return c.Client.Status().Update(ctx, t)
	})
}

// RegisterResourceCreationError records the once-only resourceError message
// on a Test whose dependency failed creation, per spec.md §4.4.
func (c TestClient) RegisterResourceCreationError(ctx context.Context, name, message string) error {
	return retryOnConflict(func() error {
		t, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		if t.Status.ResourceError != "" {
			return nil
		}
		t.Status.ResourceError = message
		return c.Client.Status().Update(ctx, t)
	})
}

// SendKeepRunning mutates the spec's keep-running flag, the only runtime
// spec mutation this client performs, per spec.md §4.2. The controller's
// reconcilers do not call it.
func (c TestClient) SendKeepRunning(ctx context.Context, name string, keepRunning bool) error {
	return retryOnConflict(func() error {
		t, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		t.Spec.Agent.KeepRunning = keepRunning
		return c.Client.Update(ctx, t)
	})
}

// AddFinalizer and RemoveFinalizer use addFinalizer/removeFinalizer's set
// semantics.

func (c TestClient) AddFinalizer(ctx context.Context, name, finalizer string) error {
	return retryOnConflict(func() error {
		t, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		if !addFinalizer(t, finalizer) {
			return nil
		}
		return c.Client.Update(ctx, t)
	})
}

func (c TestClient) RemoveFinalizer(ctx context.Context, name, finalizer string) error {
	return retryOnConflict(func() error {
		t, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		if !removeFinalizer(t, finalizer) {
			return nil
		}
		return c.Client.Update(ctx, t)
	})
}

func (c TestClient) WaitForDeletion(ctx context.Context, name string, deadline time.Duration) error {
	return waitForDeletion(ctx, c.Client, c.key(name), &v1alpha1.Test{}, deadline)
}

// IncrementRetryAttempt bumps the retry counter before relaunching the test
// Job, per SPEC_FULL.md's retry-ownership resolution.
func (c TestClient) IncrementRetryAttempt(ctx context.Context, name string) error {
	return retryOnConflict(func() error {
		t, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		t.Status.Agent.RetryAttempt++
		t.Status.Agent.State = v1alpha1.TaskStateUnknown
		t.Status.Agent.Error = ""
		return c.Client.Status().Update(ctx, t)
	})
}
