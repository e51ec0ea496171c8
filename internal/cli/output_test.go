package cli

import (
	"bytes"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ckan-cloud-operator/internal/config"
)

func TestViewOf(t *testing.T) {
	secret := config.Object{
		Key:    config.Key{Kind: config.KindSecret, Namespace: "ckan-cloud", Name: "db"},
		Values: map[string]string{"password": "hunter2"},
	}

	masked := viewOf(secret, false)
	if diff := cmp.Diff(map[string]string{"password": "********"}, masked.Values); diff != "" {
		t.Fatalf("masked values mismatch (-want +got):\n%s", diff)
	}
	if secret.Values["password"] != "hunter2" {
		t.Fatal("viewOf modified the object")
	}
	if got := viewOf(secret, true).Values["password"]; got != "hunter2" {
		t.Fatalf("showSecrets value = %q", got)
	}

	cm := config.Object{
		Key:    config.Key{Kind: config.KindConfigMap, Namespace: "ckan-cloud", Name: "app"},
		Values: map[string]string{"host": "example.com"},
	}
	if got := viewOf(cm, false).Values["host"]; got != "example.com" {
		t.Fatalf("configmap value = %q", got)
	}
}

func TestWriteYAML(t *testing.T) {
	var buf bytes.Buffer
	view := objectView{Kind: config.KindConfigMap, Namespace: "ns", Name: "app", Values: map[string]string{"a": "1"}}
	if err := writeYAML(&buf, view); err != nil {
		t.Fatalf("writeYAML() unexpected error = %v", err)
	}
	want := "kind: configmap\nname: app\nnamespace: ns\nvalues:\n  a: \"1\"\n"
	if diff := cmp.Diff(want, buf.String()); diff != "" {
		t.Fatalf("writeYAML() mismatch (-want +got):\n%s", diff)
	}
}

func TestFormatLabels(t *testing.T) {
	got := formatLabels(map[string]string{"b": "2", "a": "1"})
	if got != "a=1,b=2" {
		t.Fatalf("formatLabels() = %q", got)
	}
}
