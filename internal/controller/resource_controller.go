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
	testsyserrors "github.com/testsys-io/testsys/internal/testsys/apierrors"
)

// ResourceReconciler reconciles a Resource object, per spec.md §4.3.
type ResourceReconciler struct {
	client.Client
	Scheme *runtime.Scheme

	Resources      crdclient.ResourceClient
	LogClient      jobs.ClientsetLogClient
	ServiceAccount string
	StartTimeout   time.Duration
	ShortRequeue   time.Duration
	LongRequeue    time.Duration
	ArchiveLogs    bool
	LogGroup       string
}

// +kubebuilder:rbac:groups=testsys.io,resources=resources,verbs=get;list;watch;create;update;patch;delete
// +kubebuilder:rbac:groups=testsys.io,resources=resources/status,verbs=get;update;patch
// +kubebuilder:rbac:groups=testsys.io,resources=resources/finalizers,verbs=update
// +kubebuilder:rbac:groups=batch,resources=jobs,verbs=get;list;watch;create;delete
// +kubebuilder:rbac:groups="",resources=pods,verbs=get;list
// +kubebuilder:rbac:groups="",resources=pods/log,verbs=get

func (r *ResourceReconciler) Reconcile(ctx context.Context, req ctrl.Request) (ctrl.Result, error) {
	res := &v1alpha1.Resource{}
	if err := r.Get(ctx, req.NamespacedName, res); err != nil {
		return ctrl.Result{}, client.IgnoreNotFound(err)
	}

	recordResourcesTotal(ctx, r.Client, res.Namespace)

	var result ctrl.Result
	var err error
	if res.DeletionTimestamp != nil {
		result, err = r.reconcileDestruction(ctx, res)
	} else {
		result, err = r.reconcileCreation(ctx, res)
	}
	if err != nil {
		ReconcileErrorsTotal.WithLabelValues("resource").Inc()
	}
	return result, err
}

func (r *ResourceReconciler) reconcileCreation(ctx context.Context, res *v1alpha1.Resource) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	jobState, err := jobs.GetState(ctx, r.Client, res.Namespace, creationJobName(res.Name))
	if err != nil {
		return ctrl.Result{}, err
	}

	action := decideCreationAction(res, r.peerLookup(ctx, res.Namespace), jobState, r.StartTimeout)

	switch action.Kind {
	case RAInitialize:
		return ctrl.Result{Requeue: true}, r.Resources.InitializeStatus(ctx, res.Name)

	case RAAddMainFinalizer:
		return ctrl.Result{Requeue: true}, r.Resources.AddFinalizer(ctx, res.Name, v1alpha1.FinalizerMain)

	case RAAddResourceFinalizer:
		return ctrl.Result{Requeue: true}, r.Resources.AddFinalizer(ctx, res.Name, v1alpha1.FinalizerResource)

	case RADone:
		return ctrl.Result{}, nil

	case RAAddJobFinalizer:
		return ctrl.Result{Requeue: true}, r.Resources.AddFinalizer(ctx, res.Name, v1alpha1.FinalizerCreationJob)

	case RAWaitForDependency, RAWaitForConflict:
		logger.V(1).Info("waiting on peer resource", "peer", action.WaitName)
		return ctrl.Result{RequeueAfter: r.ShortRequeue}, nil

	case RAStartCreationJob:
		resolved, err := r.Resources.ResolveTemplatedConfig(ctx, res.Spec.Agent.Configuration)
		if err != nil {
			return ctrl.Result{}, r.Resources.SendError(ctx, res.Name, v1alpha1.TaskSideCreate, err.Error(), v1alpha1.ResourcesHintUnknown)
		}
		agent := res.Spec.Agent
		agent.Configuration = resolved
		spec := jobs.DeploySpec{
			JobName:            creationJobName(res.Name),
			Owner:              res,
			OwnerGVK:           v1alpha1.GroupVersion.WithKind("Resource"),
			IsResource:         true,
			ResourceAction:     v1alpha1.ResourceActionCreate,
			Agent:              agent,
			ServiceAccountName: r.ServiceAccount,
			Role:               v1alpha1.RoleResourceAgent,
			Namespace:          res.Namespace,
		}
		if err := jobs.Deploy(ctx, r.Client, spec); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{RequeueAfter: r.ShortRequeue}, nil

	case RAWaitForCreation:
		return ctrl.Result{RequeueAfter: r.ShortRequeue}, nil

	case RAError:
		return r.handleCreationError(ctx, res, action.ErrorKind)
	}

	return ctrl.Result{RequeueAfter: r.LongRequeue}, nil
}

func (r *ResourceReconciler) handleCreationError(ctx context.Context, res *v1alpha1.Resource, kind testsyserrors.JobPathology) (ctrl.Result, error) {
	JobPathologiesTotal.WithLabelValues(res.Namespace, string(kind)).Inc()
	hint := testsyserrors.ResourcesHintFor(kind, nil)
	msg := fmt.Sprintf("resource creation job pathology: %s", kind)
	if err := jobs.ArchiveLogs(ctx, r.Client, r.LogClient, r.ArchiveLogs, r.LogGroup, res.Namespace, creationJobName(res.Name)); err != nil {
		log.FromContext(ctx).Error(err, "failed to archive creation job logs")
	}
	return ctrl.Result{Requeue: true}, r.Resources.SendError(ctx, res.Name, v1alpha1.TaskSideCreate, msg, hint)
}

func (r *ResourceReconciler) reconcileDestruction(ctx context.Context, res *v1alpha1.Resource) (ctrl.Result, error) {
	logger := log.FromContext(ctx)

	creationState, err := jobs.GetState(ctx, r.Client, res.Namespace, creationJobName(res.Name))
	if err != nil {
		return ctrl.Result{}, err
	}
	destructionState, err := jobs.GetState(ctx, r.Client, res.Namespace, destructionJobName(res.Name))
	if err != nil {
		return ctrl.Result{}, err
	}

	action := decideDestructionAction(res, creationState, destructionState)

	switch action.Kind {
	case RARemoveCreationJob:
		if d, ok := jobs.Duration(ctx, r.Client, res.Namespace, creationJobName(res.Name)); ok {
			JobDurationSeconds.WithLabelValues(res.Namespace, "resource-create").Observe(d.Seconds())
		}
		if err := jobs.Delete(ctx, r.Client, res.Namespace, creationJobName(res.Name)); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{RequeueAfter: r.ShortRequeue}, nil

	case RARemoveCreationJobFinalizer:
		return ctrl.Result{Requeue: true}, r.Resources.RemoveFinalizer(ctx, res.Name, v1alpha1.FinalizerCreationJob)

	case RAWaitForDestruction:
		return ctrl.Result{RequeueAfter: r.ShortRequeue}, nil

	case RAStartDestructionJob:
		spec := jobs.DeploySpec{
			JobName:            destructionJobName(res.Name),
			Owner:              res,
			OwnerGVK:           v1alpha1.GroupVersion.WithKind("Resource"),
			IsResource:         true,
			ResourceAction:     v1alpha1.ResourceActionDestroy,
			Agent:              res.Spec.Agent,
			ServiceAccountName: r.ServiceAccount,
			Role:               v1alpha1.RoleResourceAgent,
			Namespace:          res.Namespace,
		}
		if err := jobs.Deploy(ctx, r.Client, spec); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{RequeueAfter: r.ShortRequeue}, nil

	case RARemoveDestructionJob:
		if d, ok := jobs.Duration(ctx, r.Client, res.Namespace, destructionJobName(res.Name)); ok {
			JobDurationSeconds.WithLabelValues(res.Namespace, "resource-destroy").Observe(d.Seconds())
		}
		if err := jobs.Delete(ctx, r.Client, res.Namespace, destructionJobName(res.Name)); err != nil {
			return ctrl.Result{}, err
		}
		return ctrl.Result{RequeueAfter: r.ShortRequeue}, nil

	case RARemoveResourceFinalizer:
		return ctrl.Result{Requeue: true}, r.Resources.RemoveFinalizer(ctx, res.Name, v1alpha1.FinalizerResource)

	case RAError:
		JobPathologiesTotal.WithLabelValues(res.Namespace, string(action.ErrorKind)).Inc()
		hint := testsyserrors.ResourcesHintFor(action.ErrorKind, &res.Status.Destruction.ResourcesHint)
		msg := fmt.Sprintf("resource destruction job pathology: %s", action.ErrorKind)
		return ctrl.Result{Requeue: true}, r.Resources.SendError(ctx, res.Name, v1alpha1.TaskSideDestroy, msg, hint)

	case RAZombie:
		logger.Info("resource finalizers fully removed but deletion has not completed; leaving to garbage collection")
		return ctrl.Result{RequeueAfter: r.LongRequeue}, nil

	case RARemoveMainFinalizer:
		return ctrl.Result{Requeue: true}, r.Resources.RemoveFinalizer(ctx, res.Name, v1alpha1.FinalizerMain)
	}

	return ctrl.Result{RequeueAfter: r.LongRequeue}, nil
}

func (r *ResourceReconciler) peerLookup(ctx context.Context, namespace string) peerLookup {
	return func(name string) (*v1alpha1.Resource, bool) {
		peer := &v1alpha1.Resource{}
		key := client.ObjectKey{Namespace: namespace, Name: name}
		if err := r.Get(ctx, key, peer); err != nil {
			if !apierrs.IsNotFound(err) {
				log.FromContext(ctx).Error(err, "failed to look up peer resource", "peer", name)
			}
			return nil, false
		}
		return peer, true
	}
}

func creationJobName(resourceName string) string {
	return fmt.Sprintf("%s-creation", resourceName)
}

func destructionJobName(resourceName string) string {
	return fmt.Sprintf("%s-destruction", resourceName)
}

// SetupWithManager sets up the controller with the Manager.
func (r *ResourceReconciler) SetupWithManager(mgr ctrl.Manager) error {
	return ctrl.NewControllerManagedBy(mgr).
		For(&v1alpha1.Resource{}).
		Complete(r)
}
