// Package cli provides the cobra commands of ckan-cloud-operator.
package cli

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"ckan-cloud-operator/internal/config"
	"ckan-cloud-operator/internal/crds"
	"ckan-cloud-operator/internal/interactive"
	"ckan-cloud-operator/internal/labels"
)

// Sentinel errors for CLI operations.
var (
	// ErrInvalidSettings indicates an environment setting could not be used.
	ErrInvalidSettings = errors.New("invalid settings")

	// ErrInvalidFlags indicates a flag or argument combination that cannot be run.
	ErrInvalidFlags = errors.New("invalid flags")

	// ErrClusterNotAccessible indicates the cluster client could not be created.
	ErrClusterNotAccessible = errors.New("cluster not accessible")

	// ErrNotInitialized indicates the installation has no label prefix yet.
	ErrNotInitialized = errors.New("operator not initialized")

	// ErrCRDNotInstalled indicates a CRD did not become established.
	ErrCRDNotInstalled = errors.New("CRD not installed")
)

// CLIError carries a sentinel for matching, the underlying cause and
// structured context for logging.
type CLIError struct {
	Sentinel error
	Cause    error
	Message  string
	Context  map[string]any
}

func (e *CLIError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	return e.Message + ": " + e.Cause.Error()
}

// Unwrap exposes both the sentinel and the cause to errors.Is.
func (e *CLIError) Unwrap() []error {
	var out []error
	if e.Sentinel != nil {
		out = append(out, e.Sentinel)
	}
	if e.Cause != nil {
		out = append(out, e.Cause)
	}
	return out
}

func newWithSentinel(sentinel error, msg string) error {
	return &CLIError{Sentinel: sentinel, Message: msg}
}

func wrapWithSentinel(sentinel, cause error, msg string) error {
	return &CLIError{Sentinel: sentinel, Cause: cause, Message: msg}
}

func wrapWithSentinelAndContext(sentinel, cause error, msg string, context map[string]any) error {
	return &CLIError{Sentinel: sentinel, Cause: cause, Message: msg, Context: context}
}

// logStructuredError logs err with its sentinel and context as fields.
func logStructuredError(logger *zap.Logger, err error, msg string) {
	fields := []zap.Field{zap.Error(err)}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		if cliErr.Sentinel != nil {
			fields = append(fields, zap.String("sentinel", cliErr.Sentinel.Error()))
		}
		for k, v := range cliErr.Context {
			fields = append(fields, zap.Any(k, v))
		}
	}
	logger.Error(msg, fields...)
}

// LogError logs a failed command with its sentinel and context.
func LogError(logger *zap.Logger, err error, msg string) {
	logStructuredError(logger, err, msg)
}

// explain adds a hint for errors a user can act on. Other errors pass through.
func explain(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, labels.ErrNotConfigured):
		return wrapWithSentinel(ErrNotInitialized, err, "run 'ckan-cloud-operator initialize --label-prefix <prefix>' first")
	case errors.Is(err, crds.ErrUnknownKind):
		return wrapWithSentinel(ErrInvalidFlags, err, "register the kind with 'crds register' first")
	case errors.Is(err, config.ErrInvalidArguments), errors.Is(err, interactive.ErrAnswerFileResolution):
		return wrapWithSentinel(ErrInvalidFlags, err, "cannot run command")
	}
	return err
}

func errorf(sentinel error, format string, args ...any) error {
	return newWithSentinel(sentinel, fmt.Sprintf(format, args...))
}
