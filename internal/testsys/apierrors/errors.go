// Copyright Contributors to the testsys project

// Package apierrors defines the flat tagged-variant error type used
// throughout the controller in place of the source project's macro-derived
// error enums (see SPEC_FULL.md's Design Notes).
package apierrors

import (
	"errors"
	"fmt"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
)

// Kind tags an Error with the taxonomy bucket from SPEC_FULL.md's
// Error Handling section.
type Kind string

const (
	KindTransient    Kind = "Transient"
	KindNotFound     Kind = "NotFound"
	KindSchema       Kind = "Schema"
	KindAgent        Kind = "Agent"
	KindJobPathology Kind = "JobPathology"
)

// Error is the controller's single error type: an operation name, a
// taxonomy kind, and an optional wrapped cause.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Wrap constructs an *Error tagged with kind for operation op.
func Wrap(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

// Is reports whether err is an *Error of the given kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind == kind
	}
	return false
}

// JobPathology enumerates the controller-detected job pathologies from
// SPEC_FULL.md / spec.md §7, each recorded at most once per object side.
type JobPathology string

const (
	JobStart             JobPathology = "JobStart"
	JobExited            JobPathology = "JobExited"
	JobFailed            JobPathology = "JobFailed"
	JobRemoved           JobPathology = "JobRemoved"
	TaskFailed           JobPathology = "TaskFailed"
	JobTimeout           JobPathology = "JobTimeout"
	Zombie               JobPathology = "Zombie"
	JobExitBeforeDone    JobPathology = "JobExitBeforeDone"
	JobRemovedBeforeDone JobPathology = "JobRemovedBeforeDone"
	ResourceErrorExists  JobPathology = "ResourceErrorExists"
	TestError            JobPathology = "TestError"
)

// ResourcesHintFor is the Go rendering of the source's `AsResources` trait:
// it maps a job pathology to the resources-hint value a Resource's task
// status should carry when no explicit agent-reported hint is available.
func ResourcesHintFor(p JobPathology, explicit *v1alpha1.ResourcesHint) v1alpha1.ResourcesHint {
	if explicit != nil {
		return *explicit
	}
	switch p {
	case JobStart, JobTimeout:
		// The agent never ran, so it cannot have created anything.
		return v1alpha1.ResourcesHintClear
	case JobExited, JobFailed, JobRemoved, TaskFailed:
		// The agent may have partially run; assume cleanup is worth
		// attempting but is not guaranteed to find anything.
		return v1alpha1.ResourcesHintUnknown
	default:
		return v1alpha1.ResourcesHintUnknown
	}
}
