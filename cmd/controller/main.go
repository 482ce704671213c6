// Copyright Contributors to the testsys project

package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/client-go/kubernetes"
	clientgoscheme "k8s.io/client-go/kubernetes/scheme"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/cache"
	"sigs.k8s.io/controller-runtime/pkg/healthz"
	crzap "sigs.k8s.io/controller-runtime/pkg/log/zap"
	metricsserver "sigs.k8s.io/controller-runtime/pkg/metrics/server"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
	"github.com/testsys-io/testsys/internal/config"
	"github.com/testsys-io/testsys/internal/controller"
	"github.com/testsys-io/testsys/internal/crdclient"
	"github.com/testsys-io/testsys/internal/jobs"
)

var scheme = newScheme()

func newScheme() *runtime.Scheme {
	s := runtime.NewScheme()
	utilMust(clientgoscheme.AddToScheme(s))
	utilMust(v1alpha1.AddToScheme(s))
	return s
}

func utilMust(err error) {
	if err != nil {
		panic(err)
	}
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	cfg := config.Load()
	zapOpts := crzap.Options{Development: true}

	root := &cobra.Command{
		Use:   "testsys-controller",
		Short: "Reconciles Test and Resource objects into agent Jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cfg, zapOpts)
		},
	}

	cfg.BindFlags(root.Flags())
	zapFlags := flag.NewFlagSet("zap", flag.ExitOnError)
	zapOpts.BindFlags(zapFlags)
	root.Flags().AddGoFlagSet(zapFlags)
	return root
}

func run(cfg config.Config, zapOpts crzap.Options) error {
	ctrl.SetLogger(crzap.New(crzap.UseFlagOptions(&zapOpts)))
	setupLog := ctrl.Log.WithName("setup")

	restConfig, err := ctrl.GetConfig()
	if err != nil {
		return fmt.Errorf("resolving kubeconfig: %w", err)
	}

	// ResourceClient and TestClient are both namespace-scoped (spec.md §6
	// installs Test and Resource objects into one namespace per cluster),
	// so the watch cache is restricted to match; an unscoped cache would
	// let events from other namespaces reach reconciler code that always
	// keys status writes off cfg.Namespace.
	mgr, err := ctrl.NewManager(restConfig, ctrl.Options{
		Scheme: scheme,
		Cache: cache.Options{
			DefaultNamespaces: map[string]cache.Config{cfg.Namespace: {}},
		},
		Metrics:                metricsserver.Options{BindAddress: cfg.MetricsBindAddress},
		HealthProbeBindAddress: cfg.HealthProbeBindAddress,
	})
	if err != nil {
		return fmt.Errorf("starting manager: %w", err)
	}

	clientset, err := kubernetes.NewForConfig(restConfig)
	if err != nil {
		return fmt.Errorf("building clientset: %w", err)
	}
	logClient := jobs.ClientsetLogClient{Clientset: clientset}

	resourceReconciler := &controller.ResourceReconciler{
		Client:         mgr.GetClient(),
		Scheme:         mgr.GetScheme(),
		Resources:      crdclient.ResourceClient{Client: mgr.GetClient(), Namespace: cfg.Namespace},
		LogClient:      logClient,
		ServiceAccount: "testsys-resource-agent",
		StartTimeout:   cfg.JobStartTimeout,
		ShortRequeue:   cfg.ShortRequeue,
		LongRequeue:    cfg.LongRequeue,
		ArchiveLogs:    cfg.ArchiveLogs,
		LogGroup:       cfg.LogGroupName,
	}
	if err := resourceReconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("setting up Resource controller: %w", err)
	}

	testReconciler := &controller.TestReconciler{
		Client:         mgr.GetClient(),
		Scheme:         mgr.GetScheme(),
		Tests:          crdclient.TestClient{Client: mgr.GetClient(), Namespace: cfg.Namespace},
		Resources:      crdclient.ResourceClient{Client: mgr.GetClient(), Namespace: cfg.Namespace},
		LogClient:      logClient,
		ServiceAccount: "testsys-test-agent",
		ShortRequeue:   cfg.ShortRequeue,
		LongRequeue:    cfg.LongRequeue,
		ArchiveLogs:    cfg.ArchiveLogs,
		LogGroup:       cfg.LogGroupName,
	}
	if err := testReconciler.SetupWithManager(mgr); err != nil {
		return fmt.Errorf("setting up Test controller: %w", err)
	}

	if err := mgr.AddHealthzCheck("healthz", healthz.Ping); err != nil {
		return fmt.Errorf("setting up health check: %w", err)
	}
	if err := mgr.AddReadyzCheck("readyz", healthz.Ping); err != nil {
		return fmt.Errorf("setting up ready check: %w", err)
	}

	setupLog.Info("starting manager", "namespace", cfg.Namespace)
	if err := mgr.Start(ctrl.SetupSignalHandler()); err != nil {
		return fmt.Errorf("running manager: %w", err)
	}
	return nil
}
