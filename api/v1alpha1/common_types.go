// Copyright Contributors to the testsys project

package v1alpha1

import (
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
)

// Finalizer names recorded on Test and Resource objects. See the invariants
// in the Resource and Test type docs for when each is held.
const (
	FinalizerMain        = "testsys.io/main"
	FinalizerCreationJob = "testsys.io/creation-job"
	FinalizerTestJob     = "testsys.io/test-job"
	FinalizerResource    = "testsys.io/resource"
)

// Environment variables set on every agent pod.
const (
	EnvTestName       = "TEST_NAME"
	EnvResourceName   = "RESOURCE_NAME"
	EnvResourceAction = "RESOURCE_ACTION"
)

// Label keys applied to Jobs and their pods.
const (
	LabelApp       = "app.kubernetes.io/part-of"
	LabelComponent = "testsys.io/component"
	LabelTestName  = "testsys.io/test-name"
	LabelResource  = "testsys.io/resource-name"

	AppName = "testsys"

	ComponentTestAgent     = "test-agent"
	ComponentResourceAgent = "resource-agent"
)

// Agent roles, passed to the Job Subsystem alongside the service account the
// caller picked for that role; the Job builder does not read the role itself.
// +kubebuilder:validation:Enum=test-agent;resource-agent
type AgentRole string

const (
	RoleTestAgent     AgentRole = "test-agent"
	RoleResourceAgent AgentRole = "resource-agent"
)

// ResourceAction is the value of RESOURCE_ACTION passed to resource agents.
// +kubebuilder:validation:Enum=create;destroy
type ResourceAction string

const (
	ResourceActionCreate  ResourceAction = "create"
	ResourceActionDestroy ResourceAction = "destroy"
)

// TaskState is the agent-written advancement signal the controller consumes.
// +kubebuilder:validation:Enum=Unknown;Running;Completed;Error
type TaskState string

const (
	TaskStateUnknown   TaskState = "Unknown"
	TaskStateRunning   TaskState = "Running"
	TaskStateCompleted TaskState = "Completed"
	TaskStateError     TaskState = "Error"
)

// TaskSide distinguishes the creation and destruction halves of a Resource's
// lifecycle. Tests have only one side and don't use this type.
// +kubebuilder:validation:Enum=Create;Destroy
type TaskSide string

const (
	TaskSideCreate  TaskSide = "Create"
	TaskSideDestroy TaskSide = "Destroy"
)

// DestructionPolicy controls whether and when a Resource is torn down. The
// three-valued set (Always, OnDeletion, Never) is authoritative; see
// SPEC_FULL.md's Open Question resolutions.
// +kubebuilder:validation:Enum=Always;OnDeletion;Never
type DestructionPolicy string

const (
	// DestructionPolicyAlways and DestructionPolicyOnDeletion both run the
	// destruction Job once the Resource object is deleted; they are
	// distinguished for forward compatibility with a future policy that
	// tears resources down proactively, but the controller does not yet
	// implement proactive (pre-deletion) teardown for either value.
	DestructionPolicyAlways DestructionPolicy = "Always"
	// DestructionPolicyOnDeletion only tears the resource down when the
	// Resource object itself is deleted.
	DestructionPolicyOnDeletion DestructionPolicy = "OnDeletion"
	// DestructionPolicyNever never runs a destruction Job automatically;
	// the resource finalizer blocks deletion until it is removed by some
	// other means.
	DestructionPolicyNever DestructionPolicy = "Never"
)

// ResourcesHint accompanies a resource-agent error and tells the controller
// whether external resources were left behind and whether cleanup is
// possible.
// +kubebuilder:validation:Enum=Orphaned;Remaining;Clear;Unknown
type ResourcesHint string

const (
	// ResourcesHintOrphaned means resources were left behind with no way to
	// destroy them; the controller will not run destroy.
	ResourcesHintOrphaned ResourcesHint = "Orphaned"
	// ResourcesHintRemaining means resources were left behind and destroy
	// may be able to clean them up; the controller will run destroy.
	ResourcesHintRemaining ResourcesHint = "Remaining"
	// ResourcesHintClear means no resources were left behind; the
	// controller will not run destroy.
	ResourcesHintClear ResourcesHint = "Clear"
	// ResourcesHintUnknown means the agent could not determine whether
	// resources remain; the controller will run destroy.
	ResourcesHintUnknown ResourcesHint = "Unknown"
)

// AgentDescriptor describes the container image and runtime configuration
// an agent pod is launched with. Shared shape between TestSpec and
// ResourceSpec.
type AgentDescriptor struct {
	// Image is the agent container image URI.
	// +required
	Image string `json:"image"`

	// ImagePullSecretName, if set, is attached to the pod spec as an
	// image pull secret.
	// +optional
	ImagePullSecretName string `json:"imagePullSecretName,omitempty"`

	// Configuration is an opaque JSON blob passed to the agent. Values of
	// the form "${otherName.jsonPath}" are resolved against a peer
	// Resource's created-resource blob before the agent pod is launched.
	// +optional
	Configuration *apiextensionsv1.JSON `json:"configuration,omitempty"`

	// Secrets maps a secret type name to the name of a Kubernetes Secret
	// object in the installed namespace. Each is mounted read-only under
	// a fixed secrets root, one sub-path per secret.
	// +optional
	Secrets map[string]string `json:"secrets,omitempty"`

	// Capabilities lists Linux capability names added to the agent
	// container's security context.
	// +optional
	Capabilities []string `json:"capabilities,omitempty"`

	// Privileged runs the agent container in privileged mode.
	// +optional
	Privileged bool `json:"privileged,omitempty"`

	// Timeout bounds how long the agent is given to finish, enforced by
	// the agent itself; the controller does not kill the Job on timeout.
	// +optional
	Timeout *metav1.Duration `json:"timeout,omitempty"`

	// Retries is the number of times the controller may relaunch the Job
	// after an agent-reported Error, per SPEC_FULL.md's retry-ownership
	// resolution.
	// +optional
	Retries int32 `json:"retries,omitempty"`

	// KeepRunning is the keep-running flag for the agent. The controller's
	// reconcilers neither read nor write it, and they do not tear an object
	// down on reaching a terminal state in either case. It is the only spec
	// field changed at runtime, through TestClient.SendKeepRunning.
	// +optional
	KeepRunning bool `json:"keepRunning,omitempty"`
}
