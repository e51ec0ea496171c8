package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ckan-cloud-operator/internal/labels"
)

// NewStatusCmd returns the status subcommand.
func NewStatusCmd(rt *Runtime, logger *zap.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show installation status",
		Long:  "Show the label prefix, settings in effect and registered kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showStatus(rt, logger)
		},
	}
}

func showStatus(rt *Runtime, logger *zap.Logger) error {
	Header("ckan-cloud-operator status")

	store, err := rt.Store()
	if err != nil {
		return err
	}

	prefix := Green("OK")
	prefixDetails := ""
	scheme, err := store.LabelScheme()
	switch {
	case errors.Is(err, labels.ErrNotConfigured):
		prefix = Yellow("NOT SET")
		prefixDetails = "run 'initialize --label-prefix <prefix>'"
	case err != nil:
		prefix = Red("ERROR")
		prefixDetails = err.Error()
	default:
		prefixDetails = scheme.Prefix()
	}

	answersPath := rt.Settings.AnswersPath
	if answersPath == "" {
		answersPath = "(none)"
	}

	TableBoxed([][]string{
		{"Setting", "Status", "Value"},
		{"Label prefix", prefix, prefixDetails},
		{"Namespace", Green("OK"), store.Namespace()},
		{"Cluster backend", Green("OK"), rt.Settings.Backend},
		{"CRD group", Green("OK"), rt.Settings.CRDGroup},
		{"Answer file", Green("OK"), answersPath},
	})

	if err != nil {
		logger.Debug("status without label scheme", zap.Error(err))
		return nil
	}

	Section("Registered kinds")
	mgr, err := rt.CRDs()
	if err != nil {
		return err
	}
	regs, err := mgr.List()
	if err != nil {
		Warn(fmt.Sprintf("Failed to list kinds: %v", err))
		return nil
	}
	if len(regs) == 0 {
		Info("No kinds registered")
		return nil
	}
	Table(registrationRows(regs, mgr.Group()))
	return nil
}
