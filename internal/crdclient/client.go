// Copyright Contributors to the testsys project

// Package crdclient is the CRD Client Layer (C2): typed access to Test and
// Resource objects with safe status mutation, finalizer set-semantics, and
// templated-configuration resolution.
package crdclient

import (
	"context"
	"time"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"k8s.io/client-go/util/retry"
	"sigs.k8s.io/controller-runtime/pkg/client"

	testsyserrors "github.com/testsys-io/testsys/internal/testsys/apierrors"
)

// statusBackoff is the bounded exponential backoff spec.md §4.2 requires for
// status-subresource patches that race with a concurrent writer.
var statusBackoff = retry.DefaultBackoff

// retryOnConflict retries fn with client-go's exponential backoff whenever
// it returns a Conflict error, up to the bounded retry count in
// statusBackoff.
func retryOnConflict(fn func() error) error {
	err := retry.RetryOnConflict(statusBackoff, fn)
	if err != nil {
		return testsyserrors.Wrap(testsyserrors.KindTransient, "crdclient.retryOnConflict", err)
	}
	return nil
}

// addFinalizer adds name to obj's finalizer list using set semantics:
// adding twice is a no-op. Returns true if a write was performed.
func addFinalizer(obj client.Object, name string) bool {
	for _, f := range obj.GetFinalizers() {
		if f == name {
			return false
		}
	}
	obj.SetFinalizers(append(obj.GetFinalizers(), name))
	return true
}

// removeFinalizer removes name from obj's finalizer list. Removing an
// absent finalizer is a no-op. Returns true if a write was performed.
func removeFinalizer(obj client.Object, name string) bool {
	finalizers := obj.GetFinalizers()
	out := finalizers[:0]
	var changed bool
	for _, f := range finalizers {
		if f == name {
			changed = true
			continue
		}
		out = append(out, f)
	}
	if !changed {
		return false
	}
	obj.SetFinalizers(out)
	return true
}

// waitForDeletion polls until the object named key is gone or deadline
// elapses, per spec.md §4.2.
func waitForDeletion(ctx context.Context, c client.Client, key types.NamespacedName, obj client.Object, deadline time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, deadline)
	defer cancel()

	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()

	for {
		err := c.Get(ctx, key, obj)
		if apierrors.IsNotFound(err) {
			return nil
		}
		if err != nil {
			return testsyserrors.Wrap(testsyserrors.KindTransient, "crdclient.waitForDeletion", err)
		}
		select {
		case <-ctx.Done():
			return testsyserrors.Wrap(testsyserrors.KindTransient, "crdclient.waitForDeletion", ctx.Err())
		case <-ticker.C:
		}
	}
}
