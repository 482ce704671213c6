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

// ResourceClient is typed access to Resource objects, per spec.md §4.2.
type ResourceClient struct {
	Client    client.Client
	Namespace string
}

func (c ResourceClient) key(name string) types.NamespacedName {
	return types.NamespacedName{Namespace: c.Namespace, Name: name}
}

func (c ResourceClient) Get(ctx context.Context, name string) (*v1alpha1.Resource, error) {
	var r v1alpha1.Resource
	if err := c.Client.Get(ctx, c.key(name), &r); err != nil {
		return nil, testsyserrors.Wrap(testsyserrors.KindNotFound, "ResourceClient.Get", err)
	}
	return &r, nil
}

func (c ResourceClient) List(ctx context.Context) (*v1alpha1.ResourceList, error) {
	var list v1alpha1.ResourceList
	if err := c.Client.List(ctx, &list, client.InNamespace(c.Namespace)); err != nil {
		return nil, testsyserrors.Wrap(testsyserrors.KindTransient, "ResourceClient.List", err)
	}
	return &list, nil
}

func (c ResourceClient) Create(ctx context.Context, r *v1alpha1.Resource) error {
	if err := c.Client.Create(ctx, r); err != nil {
		return testsyserrors.Wrap(testsyserrors.KindTransient, "ResourceClient.Create", err)
	}
	return nil
}

func (c ResourceClient) Delete(ctx context.Context, name string) error {
	r := &v1alpha1.Resource{}
	r.Namespace, r.Name = c.Namespace, name
	if err := c.Client.Delete(ctx, r); err != nil {
		return testsyserrors.Wrap(testsyserrors.KindTransient, "ResourceClient.Delete", err)
	}
	return nil
}

// InitializeStatus sets empty but well-formed task statuses if none have
// been set yet; no-op otherwise.
func (c ResourceClient) InitializeStatus(ctx context.Context, name string) error {
	return retryOnConflict(func() error {
		r, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		if r.Status.Creation.State != "" {
			return nil
		}
		r.Status.Creation.State = v1alpha1.TaskStateUnknown
		r.Status.Destruction.State = v1alpha1.TaskStateUnknown
		return c.Client.Status().Update(ctx, r)
	})
}

// SendTaskState writes the task state on the given side.
func (c ResourceClient) SendTaskState(ctx context.Context, name string, side v1alpha1.TaskSide, state v1alpha1.TaskState) error {
	return retryOnConflict(func() error {
		r, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		sideStatus(r, side).State = state
		return c.Client.Status().Update(ctx, r)
	})
}

// SendError records an error message and resources hint on the given side,
// once.
func (c ResourceClient) SendError(ctx context.Context, name string, side v1alpha1.TaskSide, message string, hint v1alpha1.ResourcesHint) error {
	return retryOnConflict(func() error {
		r, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		ts := sideStatus(r, side)
		if ts.Error != "" {
			return nil
		}
		ts.Error = message
		ts.ResourcesHint = hint
		ts.State = v1alpha1.TaskStateError
		return c.Client.Status().Update(ctx, r)
	})
}

// SendCreationSuccess sets the created-resource blob and flips creation
// task state to Completed in a single patch, per spec.md §4.2.
func (c ResourceClient) SendCreationSuccess(ctx context.Context, name string, createdResource *apiextensionsv1.JSON) error {
	return retryOnConflict(func() error {
		r, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		r.Status.Creation.CreatedResource = createdResource
		r.Status.Creation.State = v1alpha1.TaskStateCompleted
		return c.Client.Status().Update(ctx, r)
	})
}

// SendAgentInfo writes the resource agent's scratchpad blob.
func (c ResourceClient) SendAgentInfo(ctx context.Context, name string, info *apiextensionsv1.JSON) error {
	return retryOnConflict(func() error {
		r, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		r.Status.AgentInfo = info
		return c.Client.Status().Update(ctx, r)
	})
}

func (c ResourceClient) GetAgentInfo(ctx context.Context, name string) (*apiextensionsv1.JSON, error) {
	r, err := c.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	return r.Status.AgentInfo, nil
}

func (c ResourceClient) AddFinalizer(ctx context.Context, name, finalizer string) error {
	return retryOnConflict(func() error {
		r, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		if !addFinalizer(r, finalizer) {
			return nil
		}
		return c.Client.Update(ctx, r)
	})
}

func (c ResourceClient) RemoveFinalizer(ctx context.Context, name, finalizer string) error {
	return retryOnConflict(func() error {
		r, err := c.Get(ctx, name)
		if err != nil {
			return err
		}
		if !removeFinalizer(r, finalizer) {
			return nil
		}
		return c.Client.Update(ctx, r)
	})
}

func (c ResourceClient) WaitForDeletion(ctx context.Context, name string, deadline time.Duration) error {
	return waitForDeletion(ctx, c.Client, c.key(name), &v1alpha1.Resource{}, deadline)
}

func sideStatus(r *v1alpha1.Resource, side v1alpha1.TaskSide) *v1alpha1.TaskStatus {
	if side == v1alpha1.TaskSideDestroy {
		return &r.Status.Destruction
	}
	return &r.Status.Creation
}
