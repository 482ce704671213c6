// Copyright Contributors to the testsys project

package jobs

import (
	"fmt"

	batchv1 "k8s.io/api/batch/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"
	"sigs.k8s.io/controller-runtime/pkg/client"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
)

const secretsRoot = "/var/run/testsys/secrets"

// DeploySpec carries everything buildJob needs to render a Job, grounded on
// the source project's job_builder.go (single container named "agent",
// owner reference, RestartPolicy: Never) but generalized to the Test/
// Resource agent contract from spec.md §6.
type DeploySpec struct {
	// JobName is the stable Job name from spec.md §6's object-to-Job
	// mapping (<testName>, <resourceName>-creation, <resourceName>-destruction).
	JobName string

	// Owner is the Test or Resource object this Job belongs to, used for
	// the owner reference and the TEST_NAME/RESOURCE_NAME env var.
	Owner          client.Object
	OwnerGVK       schema.GroupVersionKind
	IsResource     bool
	ResourceAction v1alpha1.ResourceAction

	Agent v1alpha1.AgentDescriptor

	// ServiceAccountName is chosen by the caller based on Role.
	ServiceAccountName string
	Role               v1alpha1.AgentRole

	Namespace string
}

func buildJob(spec DeploySpec) *batchv1.Job {
	name := spec.Owner.GetName()

	env := []corev1.EnvVar{}
	if spec.IsResource {
		env = append(env, corev1.EnvVar{Name: v1alpha1.EnvResourceName, Value: name})
		env = append(env, corev1.EnvVar{Name: v1alpha1.EnvResourceAction, Value: string(spec.ResourceAction)})
	} else {
		env = append(env, corev1.EnvVar{Name: v1alpha1.EnvTestName, Value: name})
	}

	volumes, mounts := secretVolumes(spec.Agent.Secrets)

	container := corev1.Container{
		Name:         "agent",
		Image:        spec.Agent.Image,
		Env:          env,
		VolumeMounts: mounts,
	}

	if len(spec.Agent.Capabilities) > 0 || spec.Agent.Privileged {
		sc := &corev1.SecurityContext{}
		if spec.Agent.Privileged {
			sc.Privileged = boolPtr(true)
		}
		if len(spec.Agent.Capabilities) > 0 {
			caps := make([]corev1.Capability, len(spec.Agent.Capabilities))
			for i, c := range spec.Agent.Capabilities {
				caps[i] = corev1.Capability(c)
			}
			sc.Capabilities = &corev1.Capabilities{Add: caps}
		}
		container.SecurityContext = sc
	}

	component := v1alpha1.ComponentTestAgent
	if spec.IsResource {
		component = v1alpha1.ComponentResourceAgent
	}
	labels := map[string]string{
		v1alpha1.LabelApp:       v1alpha1.AppName,
		v1alpha1.LabelComponent: component,
	}
	if spec.IsResource {
		labels[v1alpha1.LabelResource] = name
	} else {
		labels[v1alpha1.LabelTestName] = name
	}

	podSpec := corev1.PodSpec{
		RestartPolicy:      corev1.RestartPolicyNever,
		ServiceAccountName: spec.ServiceAccountName,
		Containers:         []corev1.Container{container},
		Volumes:            volumes,
	}
	if spec.Agent.ImagePullSecretName != "" {
		podSpec.ImagePullSecrets = []corev1.LocalObjectReference{{Name: spec.Agent.ImagePullSecretName}}
	}

	backoffLimit := int32(0)
	job := &batchv1.Job{
		ObjectMeta: metav1.ObjectMeta{
			Name:      spec.JobName,
			Namespace: spec.Namespace,
			Labels:    labels,
			OwnerReferences: []metav1.OwnerReference{
				*metav1.NewControllerRef(spec.Owner, spec.OwnerGVK),
			},
		},
		Spec: batchv1.JobSpec{
			BackoffLimit: &backoffLimit,
			Template: corev1.PodTemplateSpec{
				ObjectMeta: metav1.ObjectMeta{Labels: labels},
				Spec:       podSpec,
			},
		},
	}
	return job
}

// secretVolumes mounts every declared secret read-only under secretsRoot,
// one sub-path directory per secret type name, per spec.md §4.1/§6.
func secretVolumes(secrets map[string]string) ([]corev1.Volume, []corev1.VolumeMount) {
	var volumes []corev1.Volume
	var mounts []corev1.VolumeMount
	for secretType, secretName := range secrets {
		volName := "secret-" + sanitizeVolumeName(secretType)
		volumes = append(volumes, corev1.Volume{
			Name: volName,
			VolumeSource: corev1.VolumeSource{
				Secret: &corev1.SecretVolumeSource{SecretName: secretName},
			},
		})
		mounts = append(mounts, corev1.VolumeMount{
			Name:      volName,
			MountPath: fmt.Sprintf("%s/%s", secretsRoot, secretType),
			ReadOnly:  true,
		})
	}
	return volumes, mounts
}

func sanitizeVolumeName(s string) string {
	out := make([]byte, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9', c == '-':
			out[i] = c
		case c >= 'A' && c <= 'Z':
			out[i] = c - 'A' + 'a'
		default:
			out[i] = '-'
		}
	}
	return string(out)
}

func boolPtr(b bool) *bool { return &b }
