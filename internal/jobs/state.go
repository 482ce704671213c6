// Copyright Contributors to the testsys project

// Package jobs is the Job Subsystem (C1): it creates, observes, and deletes
// the single-container Kubernetes Jobs that run agent pods, and translates
// Job/container counts into the coarse JobState vocabulary the reconcilers
// use.
package jobs

import (
	"context"
	"fmt"
	"time"

	batchv1 "k8s.io/api/batch/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	"k8s.io/apimachinery/pkg/types"
	"sigs.k8s.io/controller-runtime/pkg/client"

	testsyserrors "github.com/testsys-io/testsys/internal/testsys/apierrors"
)

// StateKind is the coarse state a Job is observed to be in.
type StateKind string

const (
	StateNone    StateKind = "None"
	StateUnknown StateKind = "Unknown"
	StateRunning StateKind = "Running"
	StateFailed  StateKind = "Failed"
	StateExited  StateKind = "Exited"
)

// State is the Go rendering of spec.md §4.1's JobState enum. RunningFor is
// only meaningful when Kind == StateRunning (Go enum variants can't carry a
// per-variant payload the way the source's Rust JobState::Running(Duration) did).
type State struct {
	Kind       StateKind
	RunningFor time.Duration
}

// GetState derives a State from the named Job's status counters, per
// spec.md §4.1 and grounded on the source project's parse_job_state.
func GetState(ctx context.Context, c client.Client, namespace, name string) (State, error) {
	var job batchv1.Job
	err := c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, &job)
	if apierrors.IsNotFound(err) {
		return State{Kind: StateNone}, nil
	}
	if err != nil {
		return State{}, testsyserrors.Wrap(testsyserrors.KindTransient, "jobs.GetState", err)
	}
	return parseJobState(&job)
}

// Duration reports how long the named Job ran end to end, for metrics
// observation at the point a finished Job is about to be removed. ok is
// false if the Job is gone or never recorded a start time.
func Duration(ctx context.Context, c client.Client, namespace, name string) (d time.Duration, ok bool) {
	var job batchv1.Job
	if err := c.Get(ctx, types.NamespacedName{Namespace: namespace, Name: name}, &job); err != nil {
		return 0, false
	}
	if job.Status.StartTime == nil {
		return 0, false
	}
	end := time.Now()
	if job.Status.CompletionTime != nil {
		end = job.Status.CompletionTime.Time
	}
	return end.Sub(job.Status.StartTime.Time), true
}

func parseJobState(job *batchv1.Job) (State, error) {
	active := job.Status.Active
	succeeded := job.Status.Succeeded
	failed := job.Status.Failed

	sum := active + succeeded + failed
	if sum == 0 {
		return State{Kind: StateUnknown}, nil
	}
	if sum != 1 {
		return State{}, testsyserrors.Wrap(testsyserrors.KindSchema, "jobs.parseJobState",
			fmt.Errorf("job %s/%s has %d containers counted across active/succeeded/failed, want 1 (invariant: one container per Job)",
				job.Namespace, job.Name, sum))
	}

	switch {
	case active == 1:
		runningFor := time.Duration(0)
		if job.Status.StartTime != nil {
			runningFor = time.Since(job.Status.StartTime.Time)
		}
		return State{Kind: StateRunning, RunningFor: runningFor}, nil
	case succeeded == 1:
		return State{Kind: StateExited}, nil
	default:
		return State{Kind: StateFailed}, nil
	}
}
