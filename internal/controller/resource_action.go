// Copyright Contributors to the testsys project

package controller

import (
	"time"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
	"github.com/testsys-io/testsys/internal/jobs"
	testsyserrors "github.com/testsys-io/testsys/internal/testsys/apierrors"
)

// ResourceActionKind enumerates the Actions a Resource reconciliation can
// compute, per spec.md §4.3. Grounded on original_source's
// controller/src/resource_controller/mod.rs do_creation_action /
// do_destruction_action match arms.
type ResourceActionKind string

const (
	RAInitialize              ResourceActionKind = "Initialize"
	RAAddMainFinalizer        ResourceActionKind = "AddMainFinalizer"
	RAAddJobFinalizer         ResourceActionKind = "AddJobFinalizer"
	RAWaitForDependency       ResourceActionKind = "WaitForDependency"
	RAWaitForConflict         ResourceActionKind = "WaitForConflict"
	RAStartCreationJob        ResourceActionKind = "StartCreationJob"
	RAWaitForCreation         ResourceActionKind = "WaitForCreation"
	RAAddResourceFinalizer    ResourceActionKind = "AddResourceFinalizer"
	RADone                    ResourceActionKind = "Done"
	RAError                   ResourceActionKind = "Error"
	RARemoveCreationJob       ResourceActionKind = "RemoveCreationJob"
	RARemoveCreationJobFinalizer ResourceActionKind = "RemoveCreationJobFinalizer"
	RAStartDestructionJob     ResourceActionKind = "StartDestructionJob"
	RAWaitForDestruction      ResourceActionKind = "WaitForDestruction"
	RARemoveDestructionJob    ResourceActionKind = "RemoveDestructionJob"
	RARemoveResourceFinalizer ResourceActionKind = "RemoveResourceFinalizer"
	RARemoveMainFinalizer     ResourceActionKind = "RemoveMainFinalizer"
	RAZombie                  ResourceActionKind = "Zombie"
)

// ResourceAction is the computed next step for one Resource reconciliation.
type ResourceAction struct {
	Kind      ResourceActionKind
	WaitName  string
	ErrorKind testsyserrors.JobPathology
}

// peerLookup reports, per name in a DependsOn/ConflictsWith list,
// whether the peer Resource exists and its creation/destruction state.
type peerLookup func(name string) (peer *v1alpha1.Resource, found bool)

// decideCreationAction computes the creation-side Action for r, per
// spec.md §4.3's literal state list.
func decideCreationAction(r *v1alpha1.Resource, lookup peerLookup, jobState jobs.State, startTimeout time.Duration) ResourceAction {
	if r.Status.Creation.State == "" {
		return ResourceAction{Kind: RAInitialize}
	}
	if !hasFinalizer(r, v1alpha1.FinalizerMain) {
		return ResourceAction{Kind: RAAddMainFinalizer}
	}

	// Already reached a terminal outcome: nothing more to do on the
	// creation side until destruction is triggered.
	if r.Status.Creation.State == v1alpha1.TaskStateCompleted {
		if !hasFinalizer(r, v1alpha1.FinalizerResource) {
			return ResourceAction{Kind: RAAddResourceFinalizer}
		}
		return ResourceAction{Kind: RADone}
	}
	if r.Status.Creation.State == v1alpha1.TaskStateError {
		return ResourceAction{Kind: RADone}
	}

	if !hasFinalizer(r, v1alpha1.FinalizerCreationJob) {
		return ResourceAction{Kind: RAAddJobFinalizer}
	}

	if name, ok := firstUnmetDependency(r, lookup); ok {
		return ResourceAction{Kind: RAWaitForDependency, WaitName: name}
	}
	if name, ok := firstConflict(r, lookup); ok {
		return ResourceAction{Kind: RAWaitForConflict, WaitName: name}
	}

	switch jobState.Kind {
	case jobs.StateNone:
		return ResourceAction{Kind: RAStartCreationJob}
	case jobs.StateUnknown, jobs.StateRunning:
		// The start-time budget only covers the created->Running
		// transition: a Job stuck in the Unknown/just-started state with
		// the agent never having reported in. Once the agent has written
		// any status past its initial Unknown, it is making legitimate
		// progress (resource creation can take minutes) and the timeout
		// no longer applies, per spec.md §5.
		if jobState.Kind == jobs.StateRunning && r.Status.Creation.State == v1alpha1.TaskStateUnknown && jobState.RunningFor > startTimeout {
			return ResourceAction{Kind: RAError, ErrorKind: testsyserrors.JobStart}
		}
		return ResourceAction{Kind: RAWaitForCreation}
	case jobs.StateExited:
		// Job exited; success is recognized from the Completed creation
		// state alone (handled above), and the created-resource blob is
		// not checked. Reaching here with StateExited means the agent
		// exited without recording completion.
		return ResourceAction{Kind: RAError, ErrorKind: testsyserrors.JobExited}
	case jobs.StateFailed:
		return ResourceAction{Kind: RAError, ErrorKind: testsyserrors.JobFailed}
	default:
		return ResourceAction{Kind: RAError, ErrorKind: testsyserrors.JobRemoved}
	}
}

// decideDestructionAction computes the destruction-side Action for r. The
// reconciler calls it only once deletion has been signalled (deletion
// timestamp set); the destruction policy on its own never starts teardown.
// Grounded on mod.rs's do_destruction_action.
func decideDestructionAction(r *v1alpha1.Resource, creationJobState, destructionJobState jobs.State) ResourceAction {
	if hasFinalizer(r, v1alpha1.FinalizerCreationJob) {
		if creationJobState.Kind != jobs.StateNone {
			return ResourceAction{Kind: RARemoveCreationJob}
		}
		return ResourceAction{Kind: RARemoveCreationJobFinalizer}
	}

	// Errored creation never adds the resource finalizer, but destruction
	// still runs while the recorded hint says resources may remain.
	runDestroy := hasFinalizer(r, v1alpha1.FinalizerResource)
	if !runDestroy && r.Status.Creation.State == v1alpha1.TaskStateError && r.Status.Destruction.State != v1alpha1.TaskStateCompleted {
		hint := r.Status.Creation.ResourcesHint
		runDestroy = hint == v1alpha1.ResourcesHintRemaining || hint == v1alpha1.ResourcesHintUnknown
	}

	if r.Spec.DestructionPolicy == v1alpha1.DestructionPolicyNever {
		// Never torn down automatically; only main finalizer removal
		// remains blocked by the still-present resource finalizer.
		if hasFinalizer(r, v1alpha1.FinalizerResource) {
			return ResourceAction{Kind: RAWaitForDestruction}
		}
	}

	if runDestroy && r.Spec.DestructionPolicy != v1alpha1.DestructionPolicyNever {
		switch destructionJobState.Kind {
		case jobs.StateNone:
			if r.Status.Destruction.State == v1alpha1.TaskStateCompleted {
				return ResourceAction{Kind: RARemoveResourceFinalizer}
			}
			return ResourceAction{Kind: RAStartDestructionJob}
		case jobs.StateUnknown, jobs.StateRunning:
			return ResourceAction{Kind: RAWaitForDestruction}
		case jobs.StateExited:
			if r.Status.Destruction.State == v1alpha1.TaskStateCompleted {
				return ResourceAction{Kind: RARemoveDestructionJob}
			}
			return ResourceAction{Kind: RAError, ErrorKind: testsyserrors.JobExited}
		case jobs.StateFailed:
			return ResourceAction{Kind: RAError, ErrorKind: testsyserrors.JobFailed}
		}
	}

	if !hasFinalizer(r, v1alpha1.FinalizerMain) {
		return ResourceAction{Kind: RAZombie}
	}
	return ResourceAction{Kind: RARemoveMainFinalizer}
}

func firstUnmetDependency(r *v1alpha1.Resource, lookup peerLookup) (string, bool) {
	for _, dep := range r.Spec.DependsOn {
		peer, found := lookup(dep)
		if !found || peer.Status.Creation.State != v1alpha1.TaskStateCompleted {
			return dep, true
		}
	}
	return "", false
}

func firstConflict(r *v1alpha1.Resource, lookup peerLookup) (string, bool) {
	for _, name := range r.Spec.ConflictsWith {
		peer, found := lookup(name)
		if !found {
			continue
		}
		if peer.Status.Destruction.State != v1alpha1.TaskStateCompleted {
			return name, true
		}
	}
	return "", false
}

func hasFinalizer(r *v1alpha1.Resource, name string) bool {
	for _, f := range r.Finalizers {
		if f == name {
			return true
		}
	}
	return false
}
