package cli

import (
	"bytes"
	"os"
	"testing"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"ckan-cloud-operator/internal/cluster"
)

func testSettings() *Settings {
	return &Settings{
		Namespace:    DefaultNamespace,
		Backend:      BackendAPI,
		CRDGroup:     DefaultCRDGroup,
		PollAttempts: 2,
		LogLevel:     "warn",
	}
}

// newTestRuntime returns a Runtime over an in-memory cluster.
func newTestRuntime(t *testing.T, settings *Settings) *Runtime {
	t.Helper()
	if settings == nil {
		settings = testSettings()
	}
	api := cluster.NewAPIClient(fake.NewClientBuilder().WithScheme(cluster.Scheme).Build(), zap.NewNop())
	return NewRuntimeWithClient(settings, api, zap.NewNop())
}

// newInitializedRuntime is newTestRuntime with the label prefix set.
func newInitializedRuntime(t *testing.T, settings *Settings) *Runtime {
	t.Helper()
	rt := newTestRuntime(t, settings)
	captureTerminal(t)
	if err := NewInitManager(rt, zap.NewNop()).Initialize("ckan-cloud", false); err != nil {
		t.Fatalf("Initialize() unexpected error = %v", err)
	}
	return rt
}

// captureTerminal redirects pterm output into the returned buffer.
func captureTerminal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	pterm.SetDefaultOutput(&buf)
	pterm.DisableStyling()
	t.Cleanup(func() {
		pterm.SetDefaultOutput(os.Stdout)
		pterm.EnableStyling()
	})
	return &buf
}

// run executes cmd with args and returns what it wrote to its output.
func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	return out.String(), err
}
