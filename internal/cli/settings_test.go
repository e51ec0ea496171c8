package cli

import (
	"errors"
	"os"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"

	"ckan-cloud-operator/internal/cluster"
)

func TestLoadSettingsDefaults(t *testing.T) {
	for _, key := range []string{"CCO_NAMESPACE", "CCO_INTERACTIVE_CI", "CCO_CLUSTER_BACKEND", "CCO_CRD_GROUP", "CCO_POLL_INTERVAL", "CCO_POLL_ATTEMPTS", "CCO_LOG_LEVEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() unexpected error = %v", err)
	}
	if s.Namespace != DefaultNamespace {
		t.Fatalf("expected namespace %q, got %q", DefaultNamespace, s.Namespace)
	}
	if s.Backend != BackendKubectl {
		t.Fatalf("expected backend %q, got %q", BackendKubectl, s.Backend)
	}
	if s.CRDGroup != DefaultCRDGroup {
		t.Fatalf("expected CRD group %q, got %q", DefaultCRDGroup, s.CRDGroup)
	}
	if got := s.Poll(); got != (cluster.PollConfig{Attempts: 30, Interval: 2 * time.Second}) {
		t.Fatalf("unexpected poll config %+v", got)
	}
	if lvl, _ := s.Level(); lvl != zapcore.WarnLevel {
		t.Fatalf("expected warn level, got %s", lvl)
	}
}

func TestLoadSettingsOverrides(t *testing.T) {
	t.Setenv("CCO_NAMESPACE", "ckan-dev")
	t.Setenv("CCO_INTERACTIVE_CI", "/etc/answers")
	t.Setenv("CCO_CLUSTER_BACKEND", "api")
	t.Setenv("CCO_POLL_INTERVAL", "500ms")
	t.Setenv("CCO_POLL_ATTEMPTS", "4")
	t.Setenv("CCO_LOG_LEVEL", "debug")

	s, err := LoadSettings()
	if err != nil {
		t.Fatalf("LoadSettings() unexpected error = %v", err)
	}
	if s.Namespace != "ckan-dev" || s.AnswersPath != "/etc/answers" || s.Backend != BackendAPI {
		t.Fatalf("overrides not applied: %+v", s)
	}
	if got := s.Poll(); got != (cluster.PollConfig{Attempts: 4, Interval: 500 * time.Millisecond}) {
		t.Fatalf("unexpected poll config %+v", got)
	}
}

func TestSettingsValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Settings)
	}{
		{name: "unknown backend", mutate: func(s *Settings) { s.Backend = "helm" }},
		{name: "empty namespace", mutate: func(s *Settings) { s.Namespace = "" }},
		{name: "no poll attempts", mutate: func(s *Settings) { s.PollAttempts = 0 }},
		{name: "bad log level", mutate: func(s *Settings) { s.LogLevel = "chatty" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testSettings()
			tt.mutate(s)
			if err := s.Validate(); !errors.Is(err, ErrInvalidSettings) {
				t.Fatalf("Validate() error = %v, want ErrInvalidSettings", err)
			}
		})
	}

	if err := testSettings().Validate(); err != nil {
		t.Fatalf("Validate() unexpected error = %v", err)
	}
}

func TestLoadSettingsRejectsBadDuration(t *testing.T) {
	t.Setenv("CCO_POLL_INTERVAL", "soon")
	if _, err := LoadSettings(); !errors.Is(err, ErrInvalidSettings) {
		t.Fatalf("LoadSettings() error = %v, want ErrInvalidSettings", err)
	}
}
