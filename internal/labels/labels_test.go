package labels

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		prefix  string
		wantErr error
	}{
		{"valid", "ckan-cloud", nil},
		{"dotted", "ckan.example.com", nil},
		{"empty", "", ErrNotConfigured},
		{"uppercase", "CKAN", ErrInvalidPrefix},
		{"slash", "ckan/cloud", ErrInvalidPrefix},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := New(tt.prefix)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("New(%q) error = %v, want %v", tt.prefix, err, tt.wantErr)
			}
			if err == nil && s.Prefix() != tt.prefix {
				t.Errorf("Prefix() = %q, want %q", s.Prefix(), tt.prefix)
			}
		})
	}
}

func TestSchemeNames(t *testing.T) {
	s, err := New("ckan-cloud")
	if err != nil {
		t.Fatal(err)
	}
	if got := s.Key("widget-name"); got != "ckan-cloud/widget-name" {
		t.Errorf("Key() = %q", got)
	}
	if got := s.ResourceName("widget-foo"); got != "ckan-cloud-widget-foo" {
		t.Errorf("ResourceName() = %q", got)
	}
}

func TestResourceLabels(t *testing.T) {
	s, _ := New("ckan-cloud")

	got := s.ResourceLabels(
		map[string]string{"widget-name": "foo", "app": "from-suffix"},
		map[string]string{"app": "web", "ckan-cloud/widget-name": "override"},
	)
	want := map[string]string{
		"ckan-cloud/widget-name": "override",
		"ckan-cloud/app":         "from-suffix",
		"app":                    "web",
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("ResourceLabels() mismatch (-want +got):\n%s", diff)
	}

	if got := s.ResourceLabels(nil, nil); len(got) != 0 {
		t.Errorf("expected empty label set, got %v", got)
	}
}

func TestSelector(t *testing.T) {
	s, _ := New("ckan-cloud")
	sel := s.Selector(map[string]string{SuffixConfigNamespace: "ns1"})
	if got := sel.String(); got != "ckan-cloud/operator-config-namespace=ns1" {
		t.Errorf("Selector() = %q", got)
	}
}

func TestParseAndValidate(t *testing.T) {
	got, err := Parse([]string{"app=web", "tier="})
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(map[string]string{"app": "web", "tier": ""}, got); diff != "" {
		t.Errorf("Parse() mismatch (-want +got):\n%s", diff)
	}
	if err := Validate(got); err != nil {
		t.Errorf("Validate() = %v", err)
	}

	if _, err := Parse([]string{"novalue"}); err == nil {
		t.Error("expected error for missing '='")
	}
	if err := Validate(map[string]string{"app": "bad value!"}); err == nil {
		t.Error("expected invalid value to be rejected")
	}
}
