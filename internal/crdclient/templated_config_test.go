// Copyright Contributors to the testsys project

package crdclient

import (
	"context"
	"testing"

	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	v1alpha1 "github.com/testsys-io/testsys/api/v1alpha1"
	testsyserrors "github.com/testsys-io/testsys/internal/testsys/apierrors"
)

func newScheme(t *testing.T) *runtime.Scheme {
	t.Helper()
	s := runtime.NewScheme()
	if err := v1alpha1.AddToScheme(s); err != nil {
		t.Fatalf("adding scheme: %v", err)
	}
	return s
}

func TestResolveTemplatedConfig(t *testing.T) {
	scheme := newScheme(t)

	db := &v1alpha1.Resource{
		ObjectMeta: metav1.ObjectMeta{Name: "db", Namespace: "testsys"},
		Status: v1alpha1.ResourceStatus{
			Creation: v1alpha1.TaskStatus{
				State:           v1alpha1.TaskStateCompleted,
				CreatedResource: &apiextensionsv1.JSON{Raw: []byte(`{"host":"10.0.0.1","port":5432}`)},
			},
		},
	}

	c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(db).Build()
	rc := ResourceClient{Client: c, Namespace: "testsys"}

	raw := &apiextensionsv1.JSON{Raw: []byte(`{"dsn":"${db.host}","port":"${db.port}","literal":"unchanged"}`)}
	resolved, err := rc.ResolveTemplatedConfig(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := string(resolved.Raw)
	for _, want := range []string{`"dsn":"10.0.0.1"`, `"port":5432`, `"literal":"unchanged"`} {
		if !contains(got, want) {
			t.Errorf("resolved config %s missing %s", got, want)
		}
	}
}

func TestResolveTemplatedConfigMissingResource(t *testing.T) {
	scheme := newScheme(t)
	c := fake.NewClientBuilder().WithScheme(scheme).Build()
	rc := ResourceClient{Client: c, Namespace: "testsys"}

	raw := &apiextensionsv1.JSON{Raw: []byte(`{"dsn":"${db.host}"}`)}
	_, err := rc.ResolveTemplatedConfig(context.Background(), raw)
	if err == nil {
		t.Fatal("expected error for missing peer resource")
	}
	if !testsyserrors.Is(err, testsyserrors.KindSchema) {
		t.Fatalf("expected KindSchema error, got %v", err)
	}
}

func TestResolveTemplatedConfigNotCompleted(t *testing.T) {
	scheme := newScheme(t)
	db := &v1alpha1.Resource{
		ObjectMeta: metav1.ObjectMeta{Name: "db", Namespace: "testsys"},
		Status: v1alpha1.ResourceStatus{
			Creation: v1alpha1.TaskStatus{State: v1alpha1.TaskStateRunning},
		},
	}
	c := fake.NewClientBuilder().WithScheme(scheme).WithObjects(db).Build()
	rc := ResourceClient{Client: c, Namespace: "testsys"}

	raw := &apiextensionsv1.JSON{Raw: []byte(`{"dsn":"${db.host}"}`)}
	_, err := rc.ResolveTemplatedConfig(context.Background(), raw)
	if err == nil {
		t.Fatal("expected error when peer resource has not completed creation")
	}
}

func TestParsePlaceholder(t *testing.T) {
	name, path, ok := parsePlaceholder("${db.connection.host}")
	if !ok || name != "db" || path != "connection.host" {
		t.Fatalf("got name=%q path=%q ok=%v", name, path, ok)
	}
	if _, _, ok := parsePlaceholder("not-a-placeholder"); ok {
		t.Fatal("expected ok=false for a plain string")
	}
}

func contains(haystack, needle string) bool {
	return len(haystack) >= len(needle) && (indexOf(haystack, needle) >= 0)
}

func indexOf(haystack, needle string) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		if haystack[i:i+len(needle)] == needle {
			return i
		}
	}
	return -1
}
