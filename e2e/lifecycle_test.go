// Copyright Contributors to the testsys project

package e2e

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/types"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
)

var _ = Describe("Resource and Test lifecycle", Label("lifecycle"), func() {
	It("creates a Resource, a dependent Test, and tears both down on deletion", func() {
		resourceName := uniqueName("db")
		testName := uniqueName("migration-check")

		res := &v1alpha1.Resource{
			ObjectMeta: metav1.ObjectMeta{Name: resourceName, Namespace: testNS},
			Spec: v1alpha1.ResourceSpec{
				Agent: v1alpha1.AgentDescriptor{Image: echoImage},
			},
		}
		Expect(k8sClient.Create(ctx, res)).To(Succeed())

		resKey := types.NamespacedName{Namespace: testNS, Name: resourceName}
		Eventually(func() v1alpha1.TaskState {
			var got v1alpha1.Resource
			if err := k8sClient.Get(ctx, resKey, &got); err != nil {
				return ""
			}
			return got.Status.Creation.State
		}, timeout, interval).Should(Equal(v1alpha1.TaskStateCompleted))

		test := &v1alpha1.Test{
			ObjectMeta: metav1.ObjectMeta{Name: testName, Namespace: testNS},
			Spec: v1alpha1.TestSpec{
				Agent:     v1alpha1.AgentDescriptor{Image: echoImage},
				Resources: []string{resourceName},
			},
		}
		Expect(k8sClient.Create(ctx, test)).To(Succeed())

		testKey := types.NamespacedName{Namespace: testNS, Name: testName}
		Eventually(func() v1alpha1.TaskState {
			var got v1alpha1.Test
			if err := k8sClient.Get(ctx, testKey, &got); err != nil {
				return ""
			}
			return got.Status.Agent.State
		}, timeout, interval).Should(Equal(v1alpha1.TaskStateCompleted))

		By("deleting the Test")
		Expect(k8sClient.Delete(ctx, test)).To(Succeed())
		Eventually(func() bool {
			var got v1alpha1.Test
			err := k8sClient.Get(ctx, testKey, &got)
			return err != nil
		}, timeout, interval).Should(BeTrue())

		By("deleting the Resource")
		Expect(k8sClient.Delete(ctx, res)).To(Succeed())
		Eventually(func() bool {
			var got v1alpha1.Resource
			err := k8sClient.Get(ctx, resKey, &got)
			return err != nil
		}, timeout, interval).Should(BeTrue())
	})

	It("blocks a Test behind an unfinished Resource dependency", func() {
		resourceName := uniqueName("slow-dep")
		testName := uniqueName("blocked-test")

		res := &v1alpha1.Resource{
			ObjectMeta: metav1.ObjectMeta{Name: resourceName, Namespace: testNS},
			Spec: v1alpha1.ResourceSpec{
				Agent: v1alpha1.AgentDescriptor{Image: echoImage},
			},
		}
		Expect(k8sClient.Create(ctx, res)).To(Succeed())

		test := &v1alpha1.Test{
			ObjectMeta: metav1.ObjectMeta{Name: testName, Namespace: testNS},
			Spec: v1alpha1.TestSpec{
				Agent:     v1alpha1.AgentDescriptor{Image: echoImage},
				Resources: []string{resourceName},
			},
		}
		Expect(k8sClient.Create(ctx, test)).To(Succeed())

		testKey := types.NamespacedName{Namespace: testNS, Name: testName}
		Consistently(func() v1alpha1.TaskState {
			var got v1alpha1.Test
			if err := k8sClient.Get(ctx, testKey, &got); err != nil {
				return ""
			}
			return got.Status.Agent.State
		}, "3s", interval).ShouldNot(Equal(v1alpha1.TaskStateRunning))

		Expect(k8sClient.Delete(ctx, test)).To(Succeed())
		Expect(k8sClient.Delete(ctx, res)).To(Succeed())
	})
})
