// Copyright Contributors to the testsys project

package controller

import (
	"context"
	"fmt"
	"time"

	apierrs "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/runtime"
	ctrl "sigs.k8s.io/controller-runtime"
	"sigs.k8s.io/controller-runtime/pkg/client"
	"sigs.k8s.io/controller-runtime/pkg/log"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
	"github.com/testsys-io/testsys/internal/crdclient"
	"github.com/testsys-io/testsys/internal/jobs"
)

// TestReconciler reconciles a Test object, per spec.md §4.4.
type TestReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	Tests          crdclient.TestClient
	Resources      crdclient.ResourceClient
	LogClient      jobs.ClientsetLogClient
	ServiceAccount string
	ShortRequeue   time.Duration
	LongRequeue    time.Duration
	ArchiveLogs    bool
	LogGroup       string
}

// +kubebuilder:rbac:groups=testsys.io,resources=tests,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=testsys.io,resources=tests/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=testsys.io,resources=tests/finalizers,verbs=update
// +kubebuilder:rbac:groups=testsys.io,resources=resources,verbs=get;list;watch
// +kubebuilder:rbac:groups=batch,resources=jobs,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups="",resources=pods,verbs=get;list
// +kubebuilder:rbac:groups="",resources=pods/log,verbs=get

func (r *TestReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	t := &v1alpha1.Test{}
	if err := r.Get(ctx, req.NamespacedName, t); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	jobState, err := jobs.GetState(ctx, r.Client, t.Namespace, t.Name)
	if err != nil {
		return ctrl.Result{}, err
	}

	recordTestsTotal(ctx, r.Client, t.Namespace)

	var result ctrl.Result
	if t.DeletionTimestamp != nil {
		result, err = r.reconcileDeletion(ctx, t, jobState)
	} else {
		result, err = r.reconcileCreation(ctx, t, jobState)
	}
	if err != nil {
		ReconcileErrorsTotal.WithLabelValues("test").Inc()
	}
	return result, err
}

func (r *TestReconciler) reconcileCreation(ctx context.Context, t *v1alpha1.Test, jobState jobs.State) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	action := determineAction(t, r.resourceLookup(ctx, t.Namespace), r.testLookup(ctx, t.Namespace), jobState)

	switch action.Kind {
	case TAInitialize:
		return ctrl.Result{Requeue: true}, r.Tests.InitializeStatus(ctx, t.Name)

	case TAAddMainFinalizer:
		return ctrl.Result{Requeue: true}, r.Tests.AddFinalizer(ctx, t.Name, v1alpha1.FinalizerMain)

	case TATestDone:
		return ctrl.Result{}, nil

	case TARelaunch:
		if err := jobs.Delete(ctx, r.Client, t.Namespace, t.Name); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{Requeue: true}, r.Tests.IncrementRetryAttempt(ctx, t.Name)

	case TARegisterResourceCreationError:
		return ctrl.Result{Requeue: true}, r.Tests.RegisterResourceCreationError(ctx, t.Name, action.Message)

	case TAWaitForResources:
		logger.V(1).Info("waiting on resource or peer test dependencies")
		return ctrl.Result{RequeueAfter: r.ShortRequeue}, nil

	case TAAddJobFinalizer:
		return ctrl.Result{Requeue: true}, r.Tests.AddFinalizer(ctx, t.Name, v1alpha1.FinalizerTestJob)

	case TAStartTest:
		resolved, err := r.Resources.ResolveTemplatedConfig(ctx, t.Spec.Agent.Configuration)
		if err != nil {
			return ctrl.Result{}, r.Tests.SendError(ctx, t.Name, err.Error())
		}
		agent := t.Spec.Agent
		agent.Configuration = resolved
		spec := jobs.DeploySpec{
			JobName:            t.Name,
			Owner:              t,
			OwnerGVK:           v1alpha1.GroupVersion.WithKind("Test"),
			IsResource:         false,
			Agent:              agent,
			ServiceAccountName: r.ServiceAccount,
			Role:               v1alpha1.RoleTestAgent,
			Namespace:          t.Namespace,
		}
		if err := jobs.Deploy(ctx, r.Client, spec); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{RequeueAfter: r.ShortRequeue}, nil

	case TAWaitForTest:
		return ctrl.Result{RequeueAfter: r.ShortRequeue}, nil

	case TAError:
		JobPathologiesTotal.WithLabelValues(t.Namespace, string(action.ErrorKind)).Inc()
		msg := fmt.Sprintf("test job pathology: %s", action.ErrorKind)
		if err := jobs.ArchiveLogs(ctx, r.Client, r.LogClient, r.ArchiveLogs, r.LogGroup, t.Namespace, t.Name); err != nil {
			logger.Error(err, "failed to archive test job logs")
		}
		return ctrl.Result{Requeue: true}, r.Tests.SendError(ctx, t.Name, msg)
	}

	return ctrl.Result{RequeueAfter: r.LongRequeue}, nil
}

func (r *TestReconciler) reconcileDeletion(ctx context.Context, t *v1alpha1.Test, jobState jobs.State) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	action := determineDeleteAction(t, jobState)

	switch action.Kind {
	case TADeleteJob:
		if d, ok := jobs.Duration(ctx, r.Client, t.Namespace, t.Name); ok {
			JobDurationSeconds.WithLabelValues(t.Namespace, "test").Observe(d.Seconds())
		}
		if err := jobs.Delete(ctx, r.Client, t.Namespace, t.Name); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{RequeueAfter: r.ShortRequeue}, nil

	case TARemoveJobFinalizer:
		return ctrl.Result{Requeue: true}, r.Tests.RemoveFinalizer(ctx, t.Name, v1alpha1.FinalizerTestJob)

	case TAZombie:
		logger.Info("test finalizers fully removed but deletion has not completed; leaving to garbage collection")
		return ctrl.Result{RequeueAfter: r.LongRequeue}, nil

	case TARemoveMainFinalizer:
		return ctrl.Result{Requeue: true}, r.Tests.RemoveFinalizer(ctx, t.Name, v1alpha1.FinalizerMain)
	}

	return ctrl.Result{RequeueAfter: r.LongRequeue}, nil
}

func (r *TestReconciler) resourceLookup(ctx context.Context, namespace string) resourceLookup {
	return func(name string) (*v1alpha1.Resource, bool) {
		res := &v1alpha1.Resource{}
		key := client.ObjectKey{Namespace: namespace, Name: name}
		if err := r.Get(ctx, key, res); err != nil {
			if !apierrs.IsNotFound(err) {
				log.FromContext(ctx).Error(err, "failed to look up dependency resource", "resource", name)
			}
			return nil, false
		}
		return res, true
	}
}

func (r *TestReconciler) testLookup(ctx context.Context, namespace string) testLookup {
	return func(name string) (*v1alpha1.Test, bool) {
		peer := &v1alpha1.Test{}
		key := client.ObjectKey{Namespace: namespace, Name: name}
		if err := r.Get(ctx, key, peer); err != nil {
			if !apierrs.IsNotFound(err) {
				log.FromContext(ctx).Error(err, "failed to look up dependency test", "test", name)
			}
			return nil, false
		}
		return peer, true
	}
}

// SetupWithManager sets up the controller with the Manager.
func (r *TestReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1alpha1.Test{}).
		Complete(r)
}
