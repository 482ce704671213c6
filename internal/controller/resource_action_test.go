// Copyright Contributors to the testsys project

package controller

import (
	"testing"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
	"github.com/testsys-io/testsys/internal/jobs"
	testsyserrors "github.com/testsys-io/testsys/internal/testsys/apierrors"
)

func noPeers(string) (*v1alpha1.Resource, bool) { return nil, false }

func TestDecideCreationAction(t *testing.T) {
	cases := []struct {
		name       string
		resource   v1alpha1.Resource
		lookup     peerLookup
		jobState   jobs.State
		wantKind   ResourceActionKind
		wantErrKnd testsyserrors.JobPathology
	}{
		{
			name:     "fresh object needs status initialized",
			resource: v1alpha1.Resource{},
			lookup:   noPeers,
			wantKind: RAInitialize,
		},
		{
			name: "initialized but missing main finalizer",
			resource: v1alpha1.Resource{
				Status: v1alpha1.ResourceStatus{Creation: v1alpha1.TaskStatus{State: v1alpha1.TaskStateUnknown}},
			},
			lookup:   noPeers,
			wantKind: RAAddMainFinalizer,
		},
		{
			name: "completed without resource finalizer yet",
			resource: v1alpha1.Resource{
				ObjectMeta: withFinalizers(v1alpha1.FinalizerMain),
				Status:     v1alpha1.ResourceStatus{Creation: v1alpha1.TaskStatus{State: v1alpha1.TaskStateCompleted}},
			},
			lookup:   noPeers,
			wantKind: RAAddResourceFinalizer,
		},
		{
			name: "completed and finalized is done",
			resource: v1alpha1.Resource{
				ObjectMeta: withFinalizers(v1alpha1.FinalizerMain, v1alpha1.FinalizerResource),
				Status:     v1alpha1.ResourceStatus{Creation: v1alpha1.TaskStatus{State: v1alpha1.TaskStateCompleted}},
			},
			lookup:   noPeers,
			wantKind: RADone,
		},
		{
			name: "unmet dependency blocks job start",
			resource: v1alpha1.Resource{
				ObjectMeta: withFinalizers(v1alpha1.FinalizerMain, v1alpha1.FinalizerCreationJob),
				Spec:       v1alpha1.ResourceSpec{DependsOn: []string{"network"}},
				Status:     v1alpha1.ResourceStatus{Creation: v1alpha1.TaskStatus{State: v1alpha1.TaskStateUnknown}},
			},
			lookup: func(name string) (*v1alpha1.Resource, bool) {
				return &v1alpha1.Resource{Status: v1alpha1.ResourceStatus{Creation: v1alpha1.TaskStatus{State: v1alpha1.TaskStateUnknown}}}, true
			},
			wantKind: RAWaitForDependency,
		},
		{
			name: "no job yet starts creation job",
			resource: v1alpha1.Resource{
				ObjectMeta: withFinalizers(v1alpha1.FinalizerMain, v1alpha1.FinalizerCreationJob),
				Status:     v1alpha1.ResourceStatus{Creation: v1alpha1.TaskStatus{State: v1alpha1.TaskStateUnknown}},
			},
			lookup:   noPeers,
			jobState: jobs.State{Kind: jobs.StateNone},
			wantKind: RAStartCreationJob,
		},
		{
			name: "job running past start timeout is a JobStart error",
			resource: v1alpha1.Resource{
				ObjectMeta: withFinalizers(v1alpha1.FinalizerMain, v1alpha1.FinalizerCreationJob),
				Status:     v1alpha1.ResourceStatus{Creation: v1alpha1.TaskStatus{State: v1alpha1.TaskStateUnknown}},
			},
			lookup:     noPeers,
			jobState:   jobs.State{Kind: jobs.StateRunning, RunningFor: time.Hour},
			wantKind:   RAError,
			wantErrKnd: testsyserrors.JobStart,
		},
		{
			name: "agent reported running past start timeout keeps waiting",
			resource: v1alpha1.Resource{
				ObjectMeta: withFinalizers(v1alpha1.FinalizerMain, v1alpha1.FinalizerCreationJob),
				Status:     v1alpha1.ResourceStatus{Creation: v1alpha1.TaskStatus{State: v1alpha1.TaskStateRunning}},
			},
			lookup:   noPeers,
			jobState: jobs.State{Kind: jobs.StateRunning, RunningFor: time.Hour},
			wantKind: RAWaitForCreation,
		},
		{
			name: "job exited without completion is an error",
			resource: v1alpha1.Resource{
				ObjectMeta: withFinalizers(v1alpha1.FinalizerMain, v1alpha1.FinalizerCreationJob),
				Status:     v1alpha1.ResourceStatus{Creation: v1alpha1.TaskStatus{State: v1alpha1.TaskStateUnknown}},
			},
			lookup:     noPeers,
			jobState:   jobs.State{Kind: jobs.StateExited},
			wantKind:   RAError,
			wantErrKnd: testsyserrors.JobExited,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decideCreationAction(&tc.resource, tc.lookup, tc.jobState, 30*time.Minute)
			if got.Kind != tc.wantKind {
				t.Fatalf("Kind = %s, want %s", got.Kind, tc.wantKind)
			}
			if tc.wantErrKnd != "" && got.ErrorKind != tc.wantErrKnd {
				t.Fatalf("ErrorKind = %s, want %s", got.ErrorKind, tc.wantErrKnd)
			}
		})
	}
}

func TestDecideDestructionAction(t *testing.T) {
	cases := []struct {
		name             string
		resource         v1alpha1.Resource
		creationState    jobs.State
		destructionState jobs.State
		wantKind         ResourceActionKind
	}{
		{
			name: "deletion during creation removes creation job first",
			resource: v1alpha1.Resource{
				ObjectMeta: withFinalizers(v1alpha1.FinalizerMain, v1alpha1.FinalizerCreationJob),
			},
			creationState: jobs.State{Kind: jobs.StateRunning},
			wantKind:      RARemoveCreationJob,
		},
		{
			name: "destruction policy never blocks teardown",
			resource: v1alpha1.Resource{
				ObjectMeta: withFinalizers(v1alpha1.FinalizerMain, v1alpha1.FinalizerResource),
				Spec:       v1alpha1.ResourceSpec{DestructionPolicy: v1alpha1.DestructionPolicyNever},
			},
			wantKind: RAWaitForDestruction,
		},
		{
			name: "destruction job starts once resource finalizer present",
			resource: v1alpha1.Resource{
				ObjectMeta: withFinalizers(v1alpha1.FinalizerMain, v1alpha1.FinalizerResource),
			},
			destructionState: jobs.State{Kind: jobs.StateNone},
			wantKind:         RAStartDestructionJob,
		},
		{
			name: "destruction completed removes resource finalizer",
			resource: v1alpha1.Resource{
				ObjectMeta: withFinalizers(v1alpha1.FinalizerMain, v1alpha1.FinalizerResource),
				Status:     v1alpha1.ResourceStatus{Destruction: v1alpha1.TaskStatus{State: v1alpha1.TaskStateCompleted}},
			},
			destructionState: jobs.State{Kind: jobs.StateNone},
			wantKind:         RARemoveResourceFinalizer,
		},
		{
			name: "all finalizers gone removes main finalizer",
			resource: v1alpha1.Resource{
				ObjectMeta: withFinalizers(v1alpha1.FinalizerMain),
			},
			wantKind: RARemoveMainFinalizer,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := decideDestructionAction(&tc.resource, tc.creationState, tc.destructionState)
			if got.Kind != tc.wantKind {
				t.Fatalf("Kind = %s, want %s", got.Kind, tc.wantKind)
			}
		})
	}
}

func withFinalizers(names ...string) metav1.ObjectMeta {
	return metav1.ObjectMeta{Finalizers: names}
}
