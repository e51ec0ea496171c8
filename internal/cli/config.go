package cli

// This file implements the "config" command for reading and writing operator
// config objects stored in Secrets and ConfigMaps.

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ckan-cloud-operator/internal/config"
	"ckan-cloud-operator/internal/interactive"
	"ckan-cloud-operator/internal/labels"
)

// ConfigManager handles config commands with injected dependencies.
type ConfigManager struct {
	rt     *Runtime
	logger *zap.Logger
}

// NewConfigManager creates a ConfigManager.
func NewConfigManager(rt *Runtime, logger *zap.Logger) *ConfigManager {
	return &ConfigManager{rt: rt, logger: logger}
}

// NewConfigCmd returns the config subcommand.
func NewConfigCmd(rt *Runtime, logger *zap.Logger) *cobra.Command {
	return NewConfigCmdWithManager(NewConfigManager(rt, logger))
}

// NewConfigCmdWithManager returns the config subcommand using the provided manager.
func NewConfigCmdWithManager(mgr *ConfigManager) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage operator configuration",
		Long: `Read and write configuration values kept in Secrets and ConfigMaps.

Every command addresses one object with --secret-name or --configmap-name and an
optional --namespace (default: the operator namespace).`,
	}

	cmd.AddCommand(mgr.newGetCmd())
	cmd.AddCommand(mgr.newSetCmd())
	cmd.AddCommand(mgr.newDeleteKeyCmd())
	cmd.AddCommand(mgr.newDeleteCmd())
	cmd.AddCommand(mgr.newDeleteByLabelsCmd())
	cmd.AddCommand(mgr.newListCmd())
	cmd.AddCommand(mgr.newInteractiveSetCmd())

	return cmd
}

// refFlags are the flags that address one config object.
type refFlags struct {
	secretName    string
	configMapName string
	namespace     string
}

func (f *refFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.secretName, "secret-name", "", "Secret holding the values")
	cmd.Flags().StringVar(&f.configMapName, "configmap-name", "", "ConfigMap holding the values")
	cmd.Flags().StringVar(&f.namespace, "namespace", "", "Namespace of the object (default: operator namespace)")
	cmd.MarkFlagsMutuallyExclusive("secret-name", "configmap-name")
}

func (f *refFlags) ref() config.Ref {
	return config.Ref{SecretName: f.secretName, ConfigMapName: f.configMapName, Namespace: f.namespace}
}

func (m *ConfigManager) newGetCmd() *cobra.Command {
	var (
		ref      refFlags
		key      string
		def      string
		raw      bool
		required bool
		tmpl     string
	)

	cmd := &cobra.Command{
		Use:   "get",
		Short: "Get a value or a whole config object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := GetOptions{Key: key, Raw: raw, Required: required, Template: tmpl}
			if cmd.Flags().Changed("default") {
				opts.Default = &def
			}
			return m.Get(cmd.OutOrStdout(), ref.ref(), opts)
		},
	}

	ref.register(cmd)
	cmd.Flags().StringVar(&key, "key", "", "Key to read (default: all keys)")
	cmd.Flags().StringVar(&def, "default", "", "Value to return when the key is absent")
	cmd.Flags().BoolVar(&raw, "raw", false, "Print the value without a trailing newline")
	cmd.Flags().BoolVar(&required, "required", false, "Fail when the key is absent")
	cmd.Flags().StringVar(&tmpl, "template", "", "Go template rendered over the object's values")

	return cmd
}

// GetOptions controls Get.
type GetOptions struct {
	Key      string
	Default  *string
	Raw      bool
	Required bool
	Template string
}

// Get prints one value, all values as YAML, or a template rendered over them.
func (m *ConfigManager) Get(w io.Writer, ref config.Ref, opts GetOptions) error {
	store, err := m.rt.Store()
	if err != nil {
		return err
	}

	var getOpts []config.GetOption
	if opts.Required {
		getOpts = append(getOpts, config.Required())
	}
	if opts.Default != nil {
		getOpts = append(getOpts, config.WithDefault(*opts.Default))
	}

	if opts.Key == "" && opts.Template != "" {
		out, err := store.RenderRef(ref, opts.Template, getOpts...)
		if err != nil {
			return explain(err)
		}
		return writeValue(w, out, opts.Raw)
	}
	if opts.Key == "" {
		values, err := store.GetAll(ref, getOpts...)
		if err != nil {
			return explain(err)
		}
		return writeYAML(w, values)
	}

	value, err := store.Get(ref, opts.Key, getOpts...)
	if err != nil {
		return explain(err)
	}
	if opts.Template != "" {
		values, err := store.GetAll(ref)
		if err != nil {
			return explain(err)
		}
		if values == nil {
			values = map[string]string{}
		}
		values[opts.Key] = value
		values["value"] = value
		if value, err = config.Render(opts.Template, values); err != nil {
			return explain(err)
		}
	}
	return writeValue(w, value, opts.Raw)
}

func writeValue(w io.Writer, value string, raw bool) error {
	if raw {
		_, err := io.WriteString(w, value)
		return err
	}
	_, err := fmt.Fprintln(w, value)
	return err
}

func (m *ConfigManager) newSetCmd() *cobra.Command {
	var (
		ref        refFlags
		fromFile   bool
		dryRun     bool
		valuesFile string
		labelPairs []string
	)

	cmd := &cobra.Command{
		Use:   "set [KEY VALUE]",
		Short: "Set a value, or replace all values from a YAML file",
		Long: `Set one key, merging it into the stored object, or replace every value of the
object with the string map in --values-file.`,
		Args: cobra.RangeArgs(0, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := config.SetRequest{FromFile: fromFile, DryRun: dryRun}
			switch {
			case len(args) == 2 && valuesFile == "":
				req.Key, req.Value = args[0], args[1]
			case len(args) == 0 && valuesFile != "":
				values, err := readValuesFile(valuesFile)
				if err != nil {
					return err
				}
				req.Values = values
			default:
				return errorf(ErrInvalidFlags, "pass either KEY VALUE or --values-file")
			}
			extra, err := parseLabelFlags(labelPairs)
			if err != nil {
				return err
			}
			req.ExtraLabels = extra
			return m.Set(cmd.OutOrStdout(), ref.ref(), req)
		},
	}

	ref.register(cmd)
	cmd.Flags().BoolVar(&fromFile, "from-file", false, "Treat VALUE as a path and store the file contents")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the object instead of writing it")
	cmd.Flags().StringVar(&valuesFile, "values-file", "", "YAML map of string values replacing the object's values")
	cmd.Flags().StringArrayVar(&labelPairs, "label", nil, "Extra correlation label key=value (repeatable)")

	return cmd
}

func readValuesFile(path string) (map[string]string, error) {
	// #nosec G304 -- path is user-supplied for local value loading.
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, wrapWithSentinel(ErrInvalidFlags, err, "failed to read values file")
	}
	values := map[string]string{}
	if err := yaml.Unmarshal(data, &values); err != nil {
		return nil, wrapWithSentinel(ErrInvalidFlags, err, "values file must be a map of strings")
	}
	return values, nil
}

// Set writes req and reports the outcome. A dry run prints the object.
func (m *ConfigManager) Set(w io.Writer, ref config.Ref, req config.SetRequest) error {
	store, err := m.rt.Store()
	if err != nil {
		return err
	}
	obj, err := store.Set(ref, req)
	if err != nil {
		return explain(err)
	}
	if req.DryRun {
		return writeYAML(w, viewOf(obj, false))
	}
	m.logger.Info("config set", zap.Stringer("object", obj.Key))
	Success(fmt.Sprintf("Updated %s", obj.Key))
	return nil
}

func (m *ConfigManager) newDeleteKeyCmd() *cobra.Command {
	var ref refFlags

	cmd := &cobra.Command{
		Use:   "delete-key KEY",
		Short: "Remove one key from a config object",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := m.rt.Store()
			if err != nil {
				return err
			}
			obj, err := store.DeleteKey(ref.ref(), args[0])
			if err != nil {
				return explain(err)
			}
			Success(fmt.Sprintf("Removed %q from %s", args[0], obj.Key))
			return nil
		},
	}

	ref.register(cmd)
	return cmd
}

func (m *ConfigManager) newDeleteCmd() *cobra.Command {
	var (
		ref      refFlags
		existsOK bool
	)

	cmd := &cobra.Command{
		Use:   "delete",
		Short: "Delete a whole config object",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := m.rt.Store()
			if err != nil {
				return err
			}
			if err := store.Delete(ref.ref(), existsOK); err != nil {
				return explain(err)
			}
			Success("Deleted")
			return nil
		},
	}

	ref.register(cmd)
	cmd.Flags().BoolVar(&existsOK, "exists-ok", false, "Succeed when the object does not exist")
	return cmd
}

func (m *ConfigManager) newDeleteByLabelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete-by-labels KEY=VALUE...",
		Short: "Delete every config object carrying all the given labels",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			extra, err := labels.Parse(args)
			if err != nil {
				return wrapWithSentinel(ErrInvalidFlags, err, "invalid label")
			}
			return m.DeleteByLabels(cmd.OutOrStdout(), extra)
		},
	}
	return cmd
}

// DeleteByLabels deletes correlated objects and prints what went.
func (m *ConfigManager) DeleteByLabels(w io.Writer, extra map[string]string) error {
	store, err := m.rt.Store()
	if err != nil {
		return err
	}
	deleted, err := store.DeleteByExtraLabels(extra)
	for _, k := range deleted {
		fmt.Fprintf(w, "deleted %s\n", k)
	}
	if err != nil {
		return explain(err)
	}
	if len(deleted) == 0 {
		Info("No objects matched " + formatLabels(extra))
	}
	return nil
}

func (m *ConfigManager) newListCmd() *cobra.Command {
	var opts config.ListOptions

	cmd := &cobra.Command{
		Use:     "list-configs",
		Aliases: []string{"list"},
		Short:   "List config objects of a namespace",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.List(cmd.OutOrStdout(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.Namespace, "namespace", "", "Namespace the objects belong to (default: operator namespace)")
	cmd.Flags().BoolVar(&opts.Full, "full", false, "Include values")
	cmd.Flags().BoolVar(&opts.ShowSecrets, "show-secrets", false, "Include secrets")
	return cmd
}

// List prints a table of objects, or YAML with values when opts.Full.
func (m *ConfigManager) List(w io.Writer, opts config.ListOptions) error {
	store, err := m.rt.Store()
	if err != nil {
		return err
	}

	rows := [][]string{{"Kind", "Namespace", "Name"}}
	var views []objectView
	for e, err := range store.List(opts) {
		if err != nil {
			return explain(err)
		}
		if opts.Full {
			views = append(views, objectView{Kind: e.Kind, Namespace: e.Namespace, Name: e.Name, Values: e.Values})
			continue
		}
		rows = append(rows, []string{string(e.Kind), e.Namespace, e.Name})
	}

	if opts.Full {
		return writeYAML(w, views)
	}
	if len(rows) == 1 {
		Info("No config objects found")
		return nil
	}
	Table(rows)
	return nil
}

func (m *ConfigManager) newInteractiveSetCmd() *cobra.Command {
	var (
		ref        refFlags
		labelPairs []string
	)

	cmd := &cobra.Command{
		Use:   "interactive-set FIELD...",
		Short: "Resolve values from answers, prompts, saved values or defaults",
		Long: `Resolve each FIELD and store the result. A FIELD is one of:

  key=default        text value
  key:bool=default   yes/no value stored as "true" or "false"
  key:file           contents of a file whose path is prompted for

With CCO_INTERACTIVE_CI set, answers come from that file instead of prompts.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			fields, err := parseFields(args)
			if err != nil {
				return err
			}
			extra, err := parseLabelFlags(labelPairs)
			if err != nil {
				return err
			}
			return m.InteractiveSet(interactive.Request{Ref: ref.ref(), Fields: fields, ExtraLabels: extra})
		},
	}

	ref.register(cmd)
	cmd.Flags().StringArrayVar(&labelPairs, "label", nil, "Extra correlation label key=value (repeatable)")
	return cmd
}

// InteractiveSet resolves and stores req.
func (m *ConfigManager) InteractiveSet(req interactive.Request) error {
	r, err := m.rt.Reconciler()
	if err != nil {
		return err
	}
	obj, err := r.Apply(req)
	if err != nil {
		return explain(err)
	}
	Success(fmt.Sprintf("Updated %s (%d values)", obj.Key, len(obj.Values)))
	return nil
}

// parseFields reads "key=default", "key:bool=default" and "key:file".
func parseFields(args []string) ([]interactive.Field, error) {
	fields := make([]interactive.Field, 0, len(args))
	for _, arg := range args {
		spec, def, _ := strings.Cut(arg, "=")
		key, typ, _ := strings.Cut(spec, ":")
		if key == "" {
			return nil, errorf(ErrInvalidFlags, "field %q has no key", arg)
		}
		f := interactive.Field{Key: key, Default: def}
		switch typ {
		case "":
		case "bool":
			f.Bool = true
			if def != "" {
				b, err := strconv.ParseBool(def)
				if err != nil {
					return nil, errorf(ErrInvalidFlags, "field %q: default %q is not a boolean", arg, def)
				}
				f.Default = strconv.FormatBool(b)
			}
		case "file":
			f.FromFile = true
		default:
			return nil, errorf(ErrInvalidFlags, "field %q: unknown type %q", arg, typ)
		}
		fields = append(fields, f)
	}
	return fields, nil
}
