package cli

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v6"
	"go.uber.org/zap/zapcore"

	"ckan-cloud-operator/internal/cluster"
)

// Settings holds configuration read from the environment at startup. Global
// flags may override some fields before a command runs.
type Settings struct {
	// Namespace is the operator namespace and the default for config references.
	Namespace string `env:"CCO_NAMESPACE" envDefault:"ckan-cloud"`

	// AnswersPath is a preset answer file or directory. Empty means prompts
	// or saved values are used.
	AnswersPath string `env:"CCO_INTERACTIVE_CI"`

	// Backend selects how cluster objects are read and written.
	Backend string `env:"CCO_CLUSTER_BACKEND" envDefault:"kubectl"`

	// Kubeconfig is used by the api backend. kubectl reads it on its own.
	Kubeconfig string `env:"KUBECONFIG"`

	// CRDGroup is the API group of the operator's CRDs.
	CRDGroup string `env:"CCO_CRD_GROUP" envDefault:"stable.ckan.io"`

	// PollInterval and PollAttempts bound waits for cluster state to settle.
	PollInterval time.Duration `env:"CCO_POLL_INTERVAL" envDefault:"2s"`
	PollAttempts int           `env:"CCO_POLL_ATTEMPTS" envDefault:"30"`

	// LogLevel is a zap level name.
	LogLevel string `env:"CCO_LOG_LEVEL" envDefault:"warn"`
}

// LoadSettings reads Settings from the environment and validates them.
func LoadSettings() (*Settings, error) {
	s := &Settings{}
	if err := env.Parse(s); err != nil {
		return nil, wrapWithSentinel(ErrInvalidSettings, err, "failed to parse environment")
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Validate checks fields that env parsing cannot.
func (s *Settings) Validate() error {
	switch s.Backend {
	case BackendKubectl, BackendAPI:
	default:
		return errorf(ErrInvalidSettings, "CCO_CLUSTER_BACKEND must be %q or %q, got %q", BackendKubectl, BackendAPI, s.Backend)
	}
	if s.Namespace == "" {
		return errorf(ErrInvalidSettings, "namespace must not be empty")
	}
	if s.PollAttempts < 1 {
		return errorf(ErrInvalidSettings, "CCO_POLL_ATTEMPTS must be positive, got %d", s.PollAttempts)
	}
	if _, err := s.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel.
func (s *Settings) Level() (zapcore.Level, error) {
	lvl, err := zapcore.ParseLevel(s.LogLevel)
	if err != nil {
		return zapcore.InfoLevel, wrapWithSentinel(ErrInvalidSettings, err, fmt.Sprintf("invalid log level %q", s.LogLevel))
	}
	return lvl, nil
}

// Poll is the bounded wait used after writes that need to propagate.
func (s *Settings) Poll() cluster.PollConfig {
	return cluster.PollConfig{Attempts: s.PollAttempts, Interval: s.PollInterval}
}
