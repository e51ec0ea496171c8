package cluster

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/labels"
)

func TestKubectlGet(t *testing.T) {
	t.Run("decodes secret data", func(t *testing.T) {
		mock := &MockExecutor{
			DefaultStdout: `{"apiVersion":"v1","kind":"Secret","metadata":{"name":"db","namespace":"ns1"},"data":{"password":"czNjcjN0"}}`,
		}
		k := NewMockKubectl(mock)

		secret := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: "db", Namespace: "ns1"}}
		if err := k.Get(secret); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got := string(secret.Data["password"]); got != "s3cr3t" {
			t.Errorf("expected decoded password, got %q", got)
		}
		want := []string{"get", "secret", "db", "-n", "ns1", "-o", "json"}
		if diff := cmp.Diff(want, mock.LastCommand().Args); diff != "" {
			t.Errorf("unexpected args (-want +got):\n%s", diff)
		}
	})

	t.Run("maps NotFound stderr", func(t *testing.T) {
		mock := &MockExecutor{
			CommandFunc: func(spec ExecSpec) *MockCommand {
				return &MockCommand{
					Stderr: `Error from server (NotFound): configmaps "cfg" not found`,
					RunErr: errors.New("exit status 1"),
				}
			},
		}
		k := NewMockKubectl(mock)

		err := k.Get(&corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: "cfg", Namespace: "ns1"}})
		if !errors.Is(err, ErrNotFound) {
			t.Fatalf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("maps other failures to backend errors", func(t *testing.T) {
		mock := &MockExecutor{
			CommandFunc: func(spec ExecSpec) *MockCommand {
				return &MockCommand{Stderr: "Unable to connect to the server", RunErr: errors.New("exit status 1")}
			},
		}
		k := NewMockKubectl(mock)

		err := k.Get(&corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: "cfg", Namespace: "ns1"}})
		if !errors.Is(err, ErrBackend) {
			t.Fatalf("expected ErrBackend, got %v", err)
		}
	})
}

func TestKubectlApply(t *testing.T) {
	mock := &MockExecutor{}
	k := NewMockKubectl(mock)

	cm := &corev1.ConfigMap{
		ObjectMeta: metav1.ObjectMeta{Name: "cfg", Namespace: "ns1"},
		Data:       map[string]string{"color": "blue"},
	}
	if err := k.Apply(cm, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if diff := cmp.Diff([]string{"apply", "-f", "-"}, mock.LastCommand().Args); diff != "" {
		t.Errorf("unexpected args (-want +got):\n%s", diff)
	}
	var sent map[string]interface{}
	if err := json.Unmarshal([]byte(mock.Created[0].Stdin), &sent); err != nil {
		t.Fatalf("stdin was not JSON: %v", err)
	}
	if sent["kind"] != "ConfigMap" || sent["apiVersion"] != "v1" {
		t.Errorf("expected type meta to be set, got kind=%v apiVersion=%v", sent["kind"], sent["apiVersion"])
	}

	if err := k.Apply(cm, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !mock.HasCommand("apply", "-f", "-", "--dry-run=client") {
		t.Errorf("expected client dry-run flag, got %v", mock.LastCommand().Args)
	}
}

func TestKubectlDelete(t *testing.T) {
	mock := &MockExecutor{}
	k := NewMockKubectl(mock)

	secret := &corev1.Secret{ObjectMeta: metav1.ObjectMeta{Name: "db", Namespace: "ns1"}}
	if err := k.Delete(secret, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"delete", "secret", "db", "-n", "ns1", "--ignore-not-found"}
	if diff := cmp.Diff(want, mock.LastCommand().Args); diff != "" {
		t.Errorf("unexpected args (-want +got):\n%s", diff)
	}
}

func TestKubectlList(t *testing.T) {
	mock := &MockExecutor{
		DefaultStdout: `{"apiVersion":"v1","kind":"List","items":[{"metadata":{"name":"a","namespace":"ns1"}},{"metadata":{"name":"b","namespace":"ns2"}}]}`,
	}
	k := NewMockKubectl(mock)

	var list corev1.ConfigMapList
	selector := labels.SelectorFromSet(labels.Set{"ckan-cloud/widget-name": "foo"})
	if err := k.List(&list, ListOptions{Selector: selector}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(list.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(list.Items))
	}
	want := []string{"get", "configmap", "-l", "ckan-cloud/widget-name=foo", "--all-namespaces", "-o", "json"}
	if diff := cmp.Diff(want, mock.LastCommand().Args); diff != "" {
		t.Errorf("unexpected args (-want +got):\n%s", diff)
	}
}

func TestKubectlCustomResourceArg(t *testing.T) {
	mock := &MockExecutor{}
	k := NewMockKubectl(mock)

	obj := &unstructured.Unstructured{}
	obj.SetAPIVersion("stable.ckan.io/v1")
	obj.SetKind("CkanCloudWidget")
	obj.SetName("ckan-cloud-widget-foo")
	obj.SetNamespace("ns1")

	if err := k.Delete(obj, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []string{"delete", "ckancloudwidget.stable.ckan.io", "ckan-cloud-widget-foo", "-n", "ns1"}
	if diff := cmp.Diff(want, mock.LastCommand().Args); diff != "" {
		t.Errorf("unexpected args (-want +got):\n%s", diff)
	}
}

func TestKubectlRejectsControlChars(t *testing.T) {
	mock := &MockExecutor{}
	k := NewMockKubectl(mock)

	err := k.Get(&corev1.ConfigMap{ObjectMeta: metav1.ObjectMeta{Name: "bad\nname", Namespace: "ns1"}})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if len(mock.Commands) != 0 {
		t.Error("should not create a command for invalid arguments")
	}
}
