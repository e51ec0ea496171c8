package cli

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ckan-cloud-operator/internal/config"
	"ckan-cloud-operator/internal/crds"
	"ckan-cloud-operator/internal/labels"
)

func TestCLIErrorUnwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := wrapWithSentinel(ErrClusterNotAccessible, cause, "failed to create cluster client")

	if !errors.Is(err, ErrClusterNotAccessible) {
		t.Fatal("expected sentinel to match")
	}
	if !errors.Is(err, cause) {
		t.Fatal("expected cause to match")
	}
	if got := err.Error(); got != "failed to create cluster client: connection refused" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := errorf(ErrInvalidFlags, "bad %s", "flag").Error(); got != "bad flag" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestExplain(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{name: "not configured", err: fmt.Errorf("read: %w", labels.ErrNotConfigured), want: ErrNotInitialized},
		{name: "unknown kind", err: fmt.Errorf("%w: gadget", crds.ErrUnknownKind), want: ErrInvalidFlags},
		{name: "invalid arguments", err: config.ErrInvalidArguments, want: ErrInvalidFlags},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := explain(tt.err)
			if !errors.Is(got, tt.want) || !errors.Is(got, tt.err) {
				t.Fatalf("explain() = %v, want %v wrapping %v", got, tt.want, tt.err)
			}
		})
	}

	other := errors.New("boom")
	if got := explain(other); got != other {
		t.Fatalf("explain() changed an unrelated error: %v", got)
	}
	if explain(nil) != nil {
		t.Fatal("explain(nil) should be nil")
	}
}

func TestLogStructuredError(t *testing.T) {
	var buf bytes.Buffer
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(&buf), zapcore.DebugLevel)
	logger := zap.New(core)

	err := wrapWithSentinelAndContext(ErrCRDNotInstalled, errors.New("timeout"), "CRD never established",
		map[string]any{"kind": "instance"})
	logStructuredError(logger, err, "command failed")
	_ = logger.Sync()

	out := buf.String()
	for _, want := range []string{`"sentinel":"CRD not installed"`, `"kind":"instance"`, `"msg":"command failed"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %s in log output: %s", want, out)
		}
	}
}
