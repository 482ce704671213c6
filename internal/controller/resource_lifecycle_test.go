// Copyright Contributors to the testsys project

package controller_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	batchv1 "k8s.io/api/batch/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
)

// Exercises spec.md §8's "happy path resource creation" scenario: a fresh
// Resource gains its finalizers, a creation Job appears, and once that Job
// reports success the Resource settles into Completed.
var _ = Describe("Resource creation", func() {
	It("adds finalizers and deploys a creation job", func() {
		ns := "testsys"
		name := "happy-path-db"

		res := &v1alpha1.Resource{
			ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: ns},
			Spec: v1alpha1.ResourceSpec{
				Agent: v1alpha1.AgentDescriptor{Image: "registry.example/resource-agent:latest"},
			},
		}
		Expect(k8sClient.Create(ctx, res)).To(Succeed())

		key := types.NamespacedName{Namespace: ns, Name: name}

		Eventually(func() []string {
			var got v1alpha1.Resource
			if err := k8sClient.Get(ctx, key, &got); err != nil {
				return nil
			}
			return got.Finalizers
		}, 5*time.Second, 100*time.Millisecond).Should(ContainElements(
			v1alpha1.FinalizerMain, v1alpha1.FinalizerCreationJob,
		))

		jobKey := types.NamespacedName{Namespace: ns, Name: name + "-creation"}
		Eventually(func() error {
			var job batchv1.Job
			return k8sClient.Get(ctx, jobKey, &job)
		}, 5*time.Second, 100*time.Millisecond).Should(Succeed())

		var job batchv1.Job
		Expect(k8sClient.Get(ctx, jobKey, &job)).To(Succeed())
		job.Status.Succeeded = 1
		Expect(k8sClient.Status().Update(ctx, &job)).To(Succeed())

		var got v1alpha1.Resource
		Expect(k8sClient.Get(ctx, key, &got)).To(Succeed())
		got.Status.Creation.State = v1alpha1.TaskStateCompleted
		got.Status.Creation.CreatedResource = nil
		Expect(k8sClient.Status().Update(ctx, &got)).To(Succeed())

		Eventually(func() []string {
			var final v1alpha1.Resource
			if err := k8sClient.Get(ctx, key, &final); err != nil {
				return nil
			}
			return final.Finalizers
		}, 5*time.Second, 100*time.Millisecond).Should(ContainElement(v1alpha1.FinalizerResource))
	})
})
