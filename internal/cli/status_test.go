package cli

import (
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestShowStatus(t *testing.T) {
	t.Run("not initialized", func(t *testing.T) {
		rt := newTestRuntime(t, nil)
		buf := captureTerminal(t)

		if err := showStatus(rt, zap.NewNop()); err != nil {
			t.Fatalf("showStatus() unexpected error = %v", err)
		}
		output := buf.String()
		if !strings.Contains(output, "NOT SET") {
			t.Fatalf("expected label prefix to be NOT SET, got output: %s", output)
		}
		if strings.Contains(output, "Registered kinds") {
			t.Fatalf("kinds listed without a label prefix: %s", output)
		}
	})

	t.Run("initialized with kinds", func(t *testing.T) {
		rt := newInitializedRuntime(t, nil)
		buf := captureTerminal(t)
		if _, err := runCRDs(t, rt, "register", "instance", "instances", "Instance"); err != nil {
			t.Fatalf("register unexpected error = %v", err)
		}

		if err := showStatus(rt, zap.NewNop()); err != nil {
			t.Fatalf("showStatus() unexpected error = %v", err)
		}
		output := buf.String()
		for _, want := range []string{"ckan-cloud", "api", "CkanCloudInstance", "ckancloudinstances.stable.ckan.io"} {
			if !strings.Contains(output, want) {
				t.Fatalf("expected %q in output: %s", want, output)
			}
		}
	})
}
