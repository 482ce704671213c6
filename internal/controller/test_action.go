// Copyright Contributors to the testsys project

package controller

import (
	"fmt"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
	"github.com/testsys-io/testsys/internal/jobs"
	testsyserrors "github.com/testsys-io/testsys/internal/testsys/apierrors"
)

// TestActionKind enumerates the Actions a Test reconciliation can compute,
// per spec.md §4.4. Grounded verbatim on original_source's
// controller/src/test_controller/action.rs (determine_action,
// determine_delete_action, resource_readiness, task_not_done_action).
type TestActionKind string

const (
	TAInitialize                     TestActionKind = "Initialize"
	TAAddMainFinalizer               TestActionKind = "AddMainFinalizer"
	TARegisterResourceCreationError  TestActionKind = "RegisterResourceCreationError"
	TAWaitForResources               TestActionKind = "WaitForResources"
	TAAddJobFinalizer                TestActionKind = "AddJobFinalizer"
	TAStartTest                      TestActionKind = "StartTest"
	TAWaitForTest                    TestActionKind = "WaitForTest"
	TATestDone                       TestActionKind = "TestDone"
	TARelaunch                       TestActionKind = "Relaunch"
	TAError                          TestActionKind = "Error"
	TADeleteJob                      TestActionKind = "DeleteJob"
	TARemoveJobFinalizer             TestActionKind = "RemoveJobFinalizer"
	TARemoveMainFinalizer            TestActionKind = "RemoveMainFinalizer"
	TAZombie                         TestActionKind = "Zombie"
)

// TestAction is the computed next step for one Test reconciliation.
type TestAction struct {
	Kind      TestActionKind
	Message   string
	ErrorKind testsyserrors.JobPathology
}

type resourceLookup func(name string) (r *v1alpha1.Resource, found bool)
type testLookup func(name string) (t *v1alpha1.Test, found bool)

// resourceReadiness reports whether every declared Resource and peer Test
// dependency has completed, and if not, which dependency carries an error
// (per spec.md §3 invariant 6).
func resourceReadiness(t *v1alpha1.Test, resources resourceLookup, tests testLookup) (ready bool, errMsg string) {
	for _, name := range t.Spec.Resources {
		r, found := resources(name)
		if !found {
			return false, ""
		}
		if r.Status.Creation.Error != "" {
			return false, fmt.Sprintf("Error creating resource '%s': %s", name, r.Status.Creation.Error)
		}
		if r.Status.Creation.State != v1alpha1.TaskStateCompleted {
			return false, ""
		}
	}
	for _, name := range t.Spec.DependsOnTests {
		peer, found := tests(name)
		if !found || peer.Status.Agent.State != v1alpha1.TaskStateCompleted {
			return false, ""
		}
	}
	return true, ""
}

// taskNotDoneAction computes the Action to take while the test Job has not
// yet reported TaskState=Completed, given the observed job state. Unlike the
// Resource side, there is no start-time budget here: spec.md documents the
// timeout only for resource creation, and the original's test_controller
// ErrorState enum has no JobStart variant.
func taskNotDoneAction(t *v1alpha1.Test, jobState jobs.State) TestAction {
	switch jobState.Kind {
	case jobs.StateNone:
		return TestAction{Kind: TAStartTest}
	case jobs.StateUnknown, jobs.StateRunning:
		return TestAction{Kind: TAWaitForTest}
	case jobs.StateExited:
		return TestAction{Kind: TAError, ErrorKind: testsyserrors.JobExitBeforeDone}
	default:
		if t.Status.Agent.State == v1alpha1.TaskStateRunning {
			return TestAction{Kind: TAError, ErrorKind: testsyserrors.JobRemovedBeforeDone}
		}
		return TestAction{Kind: TAStartTest}
	}
}

// determineAction computes the creation-side Action for t, per spec.md
// §4.4's literal state list.
func determineAction(t *v1alpha1.Test, resources resourceLookup, tests testLookup, jobState jobs.State) TestAction {
	if t.Status.Agent.State == "" {
		return TestAction{Kind: TAInitialize}
	}
	if !hasTestFinalizer(t, v1alpha1.FinalizerMain) {
		return TestAction{Kind: TAAddMainFinalizer}
	}

	if t.Status.Agent.State == v1alpha1.TaskStateCompleted {
		return TestAction{Kind: TATestDone}
	}
	if t.Status.Agent.State == v1alpha1.TaskStateError {
		if t.Spec.Agent.Retries > t.Status.Agent.RetryAttempt {
			return TestAction{Kind: TARelaunch}
		}
		return TestAction{Kind: TATestDone}
	}

	ready, errMsg := resourceReadiness(t, resources, tests)
	if !ready {
		if errMsg != "" {
			if t.Status.ResourceError != "" {
				return TestAction{Kind: TAError, ErrorKind: testsyserrors.ResourceErrorExists}
			}
			return TestAction{Kind: TARegisterResourceCreationError, Message: errMsg}
		}
		return TestAction{Kind: TAWaitForResources}
	}

	if !hasTestFinalizer(t, v1alpha1.FinalizerTestJob) {
		return TestAction{Kind: TAAddJobFinalizer}
	}

	if t.Status.Agent.State == v1alpha1.TaskStateUnknown {
		return taskNotDoneAction(t, jobState)
	}
	return taskNotDoneAction(t, jobState)
}

// determineDeleteAction computes the deletion-side Action for t, symmetric
// per spec.md §4.4's "Deletion state machine".
func determineDeleteAction(t *v1alpha1.Test, jobState jobs.State) TestAction {
	if hasTestFinalizer(t, v1alpha1.FinalizerTestJob) {
		if jobState.Kind != jobs.StateNone {
			return TestAction{Kind: TADeleteJob}
		}
		return TestAction{Kind: TARemoveJobFinalizer}
	}
	if !hasTestFinalizer(t, v1alpha1.FinalizerMain) {
		return TestAction{Kind: TAZombie}
	}
	return TestAction{Kind: TARemoveMainFinalizer}
}

func hasTestFinalizer(t *v1alpha1.Test, name string) bool {
	for _, f := range t.Finalizers {
		if f == name {
			return true
		}
	}
	return false
}
