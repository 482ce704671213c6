// Copyright Contributors to the testsys project

package controller_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"k8s.io/apimachinery/pkg/runtime"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/envtest"
	logf "sigs.k8s.io/controller-runtime/pkg/log"
	"sigs.k8s.io/controller-runtime/pkg/log/zap"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
	"github.com/testsys-io/testsys/internal/controller"
	"github.com/testsys-io/testsys/internal/crdclient"
)

// These tests use Ginkgo (BDD-style Go testing) and Gomega, run against an
// envtest-provisioned API server, per the teacher's scaffolding convention.

var (
	k8sClient client.Client
	testEnv   *envtest.Environment
	ctx       context.Context
	cancel    context.CancelFunc
)

func TestControllers(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Controller Suite")
}

var _ = BeforeSuite(func() {
	logf.SetLogger(zap.New(zap.WriteTo(GinkgoWriter), zap.UseDevMode(true)))

	ctx, cancel = context.WithCancel(context.TODO())

	testEnv = &envtest.Environment{
		CRDDirectoryPaths:     []string{filepath.Join("..", "..", "config", "crd", "bases")},
		ErrorIfCRDPathMissing: false,
	}

	restConfig, err := testEnv.Start()
	Expect(err).NotTo(HaveOccurred())
	Expect(restConfig).NotTo(BeNil())

	scheme := runtime.NewScheme()
	Expect(clientgoscheme.AddToScheme(scheme)).To(Succeed())
	Expect(v1alpha1.AddToScheme(scheme)).To(Succeed())

	k8sClient, err = client.New(restConfig, client.Options{Scheme: scheme})
	Expect(err).NotTo(HaveOccurred())
	Expect(k8sClient).NotTo(BeNil())

	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{Scheme: scheme})
	Expect(err).NotTo(HaveOccurred())

	resourceReconciler := &controller.ResourceReconciler{
		Client:         mgr.GetClient(),
		Scheme:         mgr.GetScheme(),
		Resources:      crdclient.ResourceClient{Client: mgr.GetClient(), Namespace: "testsys"},
		ServiceAccount: "testsys-resource-agent",
		StartTimeout:   30 * time.Second,
		ShortRequeue:   200 * time.Millisecond,
		LongRequeue:    2 * time.Second,
	}
	Expect(resourceReconciler.SetupWithManager(mgr)).To(Succeed())

	testReconciler := &controller.TestReconciler{
		Client:         mgr.GetClient(),
		Scheme:         mgr.GetScheme(),
		Tests:          crdclient.TestClient{Client: mgr.GetClient(), Namespace: "testsys"},
		Resources:      crdclient.ResourceClient{Client: mgr.GetClient(), Namespace: "testsys"},
		ServiceAccount: "testsys-test-agent",
		ShortRequeue:   200 * time.Millisecond,
		LongRequeue:    2 * time.Second,
	}
	Expect(testReconciler.SetupWithManager(mgr)).To(Succeed())

	go func() {
		defer GinkgoRecover()
		Expect(mgr.Start(ctx)).To(Succeed())
	}()
})

var _ = AfterSuite(func() {
	cancel()
	Expect(testEnv.Stop()).To(Succeed())
})
