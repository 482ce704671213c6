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
// +kubebuilder:resource:scope="Namespaced",shortName=rsc
// +kubebuilder:printcolumn:JSONPath=`.status.creation.state`,name="Creation",type=string
// +kubebuilder:printcolumn:JSONPath=`.status.destruction.state`,name="Destruction",type=string
// +kubebuilder:printcolumn:JSONPath=`.metadata.creationTimestamp`,name="Age",type=date

// Resource is an external resource (an EKS cluster, an EC2 fleet, a vSphere
// VM, ...) provisioned and torn down by a resource agent under the
// controller's supervision.
type Resource struct {
	metav1.TypeMeta   `json:",inline"`
	metav1.ObjectMeta `json:"metadata,omitempty"`

	Spec ResourceSpec `json:"spec"`

	// +optional
	Status ResourceStatus `json:"status,omitempty"`
}

// ResourceSpec defines a resource's agent, dependencies, and teardown
// policy.
type ResourceSpec struct {
	// Agent describes the image and configuration the resource agent is
	// launched with, once for creation and once for destruction.
	// +required
	Agent AgentDescriptor `json:"agent"`

	// DependsOn lists other Resource names that must have completed
	// creation before this Resource's creation Job is started.
	// +optional
	DependsOn []string `json:"dependsOn,omitempty"`

	// ConflictsWith lists Resource names that must not coexist with this
	// one. This Resource's creation Job only starts once every listed
	// Resource is absent or has completed destruction.
	// +optional
	ConflictsWith []string `json:"conflictsWith,omitempty"`

	// DestructionPolicy controls whether and when destruction runs
	// automatically.
	// +kubebuilder:default=OnDeletion
	// +optional
	DestructionPolicy DestructionPolicy `json:"destructionPolicy,omitempty"`
}

// ResourceStatus is the observed state of a Resource.
type ResourceStatus struct {
	// Creation is the task status of the creation side.
	// +optional
	Creation TaskStatus `json:"creation,omitempty"`

	// Destruction is the task status of the destruction side.
	// +optional
	Destruction TaskStatus `json:"destruction,omitempty"`

	// AgentInfo is a scratchpad the resource agent uses to remember what
	// it has made (e.g. an EKS cluster ARN) so that destruction can
	// proceed even if creation failed midway.
	// +optional
	AgentInfo *apiextensionsv1.JSON `json:"agentInfo,omitempty"`
}

// TaskStatus is the task status of one side (creation or destruction) of a
// Resource's lifecycle.
type TaskStatus struct {
	// +optional
	State TaskState `json:"state,omitempty"`

	// Error is set once if the agent or controller records a failure on
	// this side, and is never cleared.
	// +optional
	Error string `json:"error,omitempty"`

	// ResourcesHint accompanies Error and tells the controller whether
	// cleanup is still possible. Only meaningful when Error is set.
	// +optional
	ResourcesHint ResourcesHint `json:"resourcesHint,omitempty"`

	// CreatedResource holds the agent's structured description of what
	// it created. Only populated on the creation side.
	// +optional
	CreatedResource *apiextensionsv1.JSON `json:"createdResource,omitempty"`
}

// +k8s:deepcopy-gen:interfaces=k8s.io/apimachinery/pkg/runtime.Object
// +kubebuilder:object:root=true

// ResourceList contains a list of Resource.
type ResourceList struct {
	metav1.TypeMeta `json:",inline"`
	metav1.ListMeta `json:"metadata,omitempty"`
	Items           []Resource `json:"items"`
}

func init() {
	SchemeBuilder.Register(&Resource{}, &ResourceList{})
}
