// Copyright Contributors to the testsys project

package jobs

import (
	"testing"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime/schema"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
)

func TestBuildJobResourceCreation(t *testing.T) {
	res := &v1alpha1.Resource{
		ObjectMeta: metav1.ObjectMeta{Name: "db", Namespace: "testsys"},
	}

	spec := DeploySpec{
		JobName:        "db-create",
		Owner:          res,
		OwnerGVK:       schema.GroupVersionKind{Group: "testsys.io", Version: "v1alpha1", Kind: "Resource"},
		IsResource:     true,
		ResourceAction: v1alpha1.ResourceActionCreate,
		Agent: v1alpha1.AgentDescriptor{
			Image:        "registry.example/resource-agent:latest",
			Secrets:      map[string]string{"db-creds": "db-creds-secret"},
			Capabilities: []string{"NET_ADMIN"},
		},
		ServiceAccountName: "testsys-resource-agent",
		Role:               v1alpha1.RoleResourceAgent,
		Namespace:          "testsys",
	}

	job := buildJob(spec)

	if job.Name != "db-create" {
		t.Errorf("job name = %q, want db-create", job.Name)
	}
	if len(job.OwnerReferences) != 1 || job.OwnerReferences[0].Name != "db" {
		t.Errorf("owner reference missing or wrong: %+v", job.OwnerReferences)
	}
	if job.Spec.Template.Spec.RestartPolicy != "Never" {
		t.Errorf("restart policy = %s, want Never", job.Spec.Template.Spec.RestartPolicy)
	}
	if *job.Spec.BackoffLimit != 0 {
		t.Errorf("backoff limit = %d, want 0", *job.Spec.BackoffLimit)
	}

	container := job.Spec.Template.Spec.Containers[0]
	wantEnv := map[string]string{
		v1alpha1.EnvResourceName:   "db",
		v1alpha1.EnvResourceAction: "create",
	}
	for _, e := range container.Env {
		if want, ok := wantEnv[e.Name]; ok && e.Value != want {
			t.Errorf("env %s = %q, want %q", e.Name, e.Value, want)
		}
	}
	if len(container.VolumeMounts) != 1 {
		t.Fatalf("expected 1 volume mount, got %d", len(container.VolumeMounts))
	}
	if container.VolumeMounts[0].MountPath != secretsRoot+"/db-creds" {
		t.Errorf("mount path = %q", container.VolumeMounts[0].MountPath)
	}
	if container.SecurityContext == nil || len(container.SecurityContext.Capabilities.Add) != 1 {
		t.Errorf("expected capability NET_ADMIN on security context, got %+v", container.SecurityContext)
	}
}

func TestBuildJobTestAgentEnv(t *testing.T) {
	test := &v1alpha1.Test{
		ObjectMeta: metav1.ObjectMeta{Name: "smoke", Namespace: "testsys"},
	}
	spec := DeploySpec{
		JobName:            "smoke",
		Owner:              test,
		OwnerGVK:           schema.GroupVersionKind{Group: "testsys.io", Version: "v1alpha1", Kind: "Test"},
		IsResource:         false,
		Agent:              v1alpha1.AgentDescriptor{Image: "registry.example/test-agent:latest"},
		ServiceAccountName: "testsys-test-agent",
		Role:               v1alpha1.RoleTestAgent,
		Namespace:          "testsys",
	}

	job := buildJob(spec)
	container := job.Spec.Template.Spec.Containers[0]
	if len(container.Env) != 1 || container.Env[0].Name != v1alpha1.EnvTestName || container.Env[0].Value != "smoke" {
		t.Fatalf("expected only TEST_NAME env var set to smoke, got %+v", container.Env)
	}
	if job.Labels[v1alpha1.LabelComponent] != v1alpha1.ComponentTestAgent {
		t.Errorf("component label = %q, want %q", job.Labels[v1alpha1.LabelComponent], v1alpha1.ComponentTestAgent)
	}
}
