// Copyright Contributors to the testsys project

package v1alpha1

import (
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// +genclient
// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:object:root=true
// +kubebuilder:subresource:status
// +kubebuilder:resource:scope="Namespaced",shortName=tst
// +kubebuilder:printcolumn:JSONPath=`.status.agent.state`,name="State",type=string
// +kubebuilder:printcolumn:JSONPath=`.metadata.creationTimestamp`,name="Age",type=date

// Test is a single test run: a set of resource dependencies plus an agent
// that executes the test and reports results.
type Test struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec TestSpec `json:"spec"`

	// +optional
	Status TestStatus `json:"status,omitempty"`
}

// TestSpec defines a test's agent and its dependencies.
type TestSpec struct {
	// Agent describes the image and configuration the test agent is
	// launched with.
	// +required
	Agent AgentDescriptor `json:"agent"`

	// Resources is an ordered list of Resource names this test depends
	// on. The test Job is only started once every listed Resource's
	// creation TaskState is Completed.
	// +optional
	Resources []string `json:"resources,omitempty"`

	// DependsOnTests lists peer Test names this test runs after. The test
	// Job is only started once every listed Test's agent TaskState is
	// Completed.
	// +optional
	DependsOnTests []string `json:"dependsOnTests,omitempty"`
}

// TestStatus is the observed state of a Test.
type TestStatus struct {
	// Agent carries the test agent's reported task state, error, and
	// results.
	// +optional
	Agent AgentTaskStatus `json:"agent,omitempty"`

	// Controller holds, per dependency Resource name, a diagnostic
	// dependency state. The controller's reconcilers do not write it.
	// +optional
	Controller map[string]ControllerResourceStatus `json:"controller,omitempty"`

	// ResourceError is populated once if dependency resolution fails
	// because a dependency's creation errored. Once set it is never
	// cleared and the test Job is never launched.
	// +optional
	ResourceError string `json:"resourceError,omitempty"`
}

// AgentTaskStatus is the agent-reported status of a Test's single task.
type AgentTaskStatus struct {
	// +optional
	State TaskState `json:"state,omitempty"`

	// Error is the controller- or agent-reported error message, set once
	// per attempt; it is cleared when the controller relaunches the Job
	// for a retry.
	// +optional
	Error string `json:"error,omitempty"`

	// Results holds the agent's structured test output, e.g. pass/fail
	// counts. Opaque to the controller.
	// +optional
	Results *apiextensionsv1.JSON `json:"results,omitempty"`

	// RetryAttempt is the number of times the controller has relaunched
	// this test's Job after an Error. The controller increments it; the
	// agent reads it to decide how to label its own output.
	// +optional
	RetryAttempt int32 `json:"retryAttempt,omitempty"`
}

// ControllerResourceStatus is a diagnostic snapshot of one dependency's
// creation TaskState. The Test reconciler does not populate it.
type ControllerResourceStatus struct {
	// +optional
	State TaskState `json:"state,omitempty"`
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:object:root=true

// TestList contains a list of Test.
type TestList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Test `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Test{}, &TestList{})
}
