// Copyright Contributors to the testsys project

package jobs

import (
	"context"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"sigs.k8s.io/controller-runtime/pkg/client"

	testsyserrors "github.com/testsys-io/testsys/internal/testsys/apierrors"
)

// Deploy creates the Job described by spec. A pre-existing Job of the same
// name is treated as success (the previous incarnation won the race),
// matching spec.md §4.1/§4.3's idempotent-deploy requirement.
func Deploy(ctx context.Context, c client.Client, spec DeploySpec) error {
	job := buildJob(spec)
	err := c.Create(ctx, job)
	if err != nil && !apierrors.IsAlreadyExists(err) {
		return testsyserrors.Wrap(testsyserrors.KindTransient, "jobs.Deploy", err)
	}
	return nil
}

// Delete removes the named Job with background propagation and zero grace
// period. A missing Job is treated as success.
func Delete(ctx context.Context, c client.Client, namespace, name string) error {
	job := &batchv1.Job{ObjectMeta: metav1.ObjectMeta{Namespace: namespace, Name: name}}
	propagation := client.PropagationPolicy("Background")
	grace := int64(0)
	err := c.Delete(ctx, job, propagation, &client.DeleteOptions{GracePeriodSeconds: &grace})
	if err != nil && !apierrors.IsNotFound(err) {
		return testsyserrors.Wrap(testsyserrors.KindTransient, "jobs.Delete", err)
	}
	return nil
}

// getPod returns the first pod created by the named Job, selecting on the
// standard job-name label Kubernetes applies to Job-owned pods. Grounded on
// the source project's job/mod.rs get_pod (label_selector "job-name={name}",
// takes first result).
func getPod(ctx context.Context, c client.Client, namespace, jobName string) (*corev1.Pod, error) {
	var pods corev1.PodList
	if err := c.List(ctx, &pods,
		client.InNamespace(namespace),
		client.MatchingLabels{"job-name": jobName},
	); err != nil {
		return nil, testsyserrors.Wrap(testsyserrors.KindTransient, "jobs.getPod", err)
	}
	if len(pods.Items) == 0 {
		return nil, testsyserrors.Wrap(testsyserrors.KindNotFound, "jobs.getPod", nil)
	}
	return &pods.Items[0], nil
}
