package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ckan-cloud-operator/internal/cli"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	level := zap.NewAtomicLevelAt(zap.WarnLevel)
	logger, err := newConsoleLogger(level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	settings, err := cli.LoadSettings()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	rootCmd := newRootCmd(settings, level, logger)
	if err := rootCmd.Execute(); err != nil {
		cli.LogError(logger, err, "command failed")
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(settings *cli.Settings, level zap.AtomicLevel, logger *zap.Logger) *cobra.Command {
	var (
		namespace string
		logLevel  string
	)

	rootCmd := &cobra.Command{
		Use:   "ckan-cloud-operator",
		Short: "CKAN Cloud operator CLI",
		Long: `ckan-cloud-operator manages the configuration of a CKAN Cloud installation:
- Layered configuration in Secrets and ConfigMaps
- Operator kinds, CRDs and instance naming
- Interactive or preset configuration runs`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("namespace-default") {
				settings.Namespace = namespace
			}
			if cmd.Flags().Changed("log-level") {
				settings.LogLevel = logLevel
			}
			if err := settings.Validate(); err != nil {
				return err
			}
			lvl, err := settings.Level()
			if err != nil {
				return err
			}
			level.SetLevel(lvl)
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&namespace, "namespace-default", settings.Namespace, "Operator namespace (env CCO_NAMESPACE)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", settings.LogLevel, "Log level: debug, info, warn or error (env CCO_LOG_LEVEL)")

	rt := cli.NewRuntime(settings, logger)
	rootCmd.AddCommand(cli.NewInitializeCmd(rt, logger))
	rootCmd.AddCommand(cli.NewConfigCmd(rt, logger))
	rootCmd.AddCommand(cli.NewCRDsCmd(rt, logger))
	rootCmd.AddCommand(cli.NewStatusCmd(rt, logger))

	return rootCmd
}

// newConsoleLogger returns a console logger on stderr whose level can be
// changed after flags are parsed. Stdout is kept for command output.
func newConsoleLogger(level zap.AtomicLevel) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.Level = level
	cfg.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:        "ts",
		LevelKey:       "level",
		NameKey:        "",
		CallerKey:      "",
		MessageKey:     "msg",
		StacktraceKey:  "stacktrace",
		LineEnding:     zapcore.DefaultLineEnding,
		EncodeLevel:    zapcore.CapitalColorLevelEncoder,
		EncodeTime:     zapcore.ISO8601TimeEncoder,
		EncodeDuration: zapcore.StringDurationEncoder,
	}
	cfg.OutputPaths = []string{"stderr"}
	cfg.ErrorOutputPaths = []string{"stderr"}
	cfg.DisableCaller = true
	cfg.DisableStacktrace = true
	return cfg.Build()
}
