package cli

// This file implements the "crds" command: kind registration, CRD
// installation, instance naming and instance lifecycle.

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"sigs.k8s.io/yaml"

	"ckan-cloud-operator/internal/cluster"
	"ckan-cloud-operator/internal/crds"
	"ckan-cloud-operator/internal/labels"
	"ckan-cloud-operator/internal/saga"
)

// CRDManager handles crds commands with injected dependencies.
type CRDManager struct {
	rt     *Runtime
	logger *zap.Logger
}

// NewCRDManager creates a CRDManager.
func NewCRDManager(rt *Runtime, logger *zap.Logger) *CRDManager {
	return &CRDManager{rt: rt, logger: logger}
}

// NewCRDsCmd returns the crds subcommand.
func NewCRDsCmd(rt *Runtime, logger *zap.Logger) *cobra.Command {
	return NewCRDsCmdWithManager(NewCRDManager(rt, logger))
}

// NewCRDsCmdWithManager returns the crds subcommand using the provided manager.
func NewCRDsCmdWithManager(mgr *CRDManager) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crds",
		Short: "Manage operator kinds, CRDs and instances",
	}

	cmd.AddCommand(mgr.newRegisterCmd())
	cmd.AddCommand(mgr.newInstallCmd())
	cmd.AddCommand(mgr.newListCmd())
	cmd.AddCommand(mgr.newNameCmd())
	cmd.AddCommand(mgr.newLabelsCmd())
	cmd.AddCommand(mgr.newGetCmd())
	cmd.AddCommand(mgr.newCreateInstanceCmd())
	cmd.AddCommand(mgr.newDeleteInstanceCmd())

	return cmd
}

func (m *CRDManager) newRegisterCmd() *cobra.Command {
	var (
		hashNames bool
		install   bool
	)

	cmd := &cobra.Command{
		Use:   "register SINGULAR PLURAL_SUFFIX KIND_SUFFIX",
		Short: "Register a kind under the installation prefix",
		Example: `  ckan-cloud-operator crds register instance instances Instance
  ckan-cloud-operator crds register db-secret dbsecrets DbSecret --hash-names`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := m.rt.CRDs()
			if err != nil {
				return err
			}
			reg, err := mgr.Register(args[0], args[1], args[2], hashNames)
			if err != nil {
				return explain(err)
			}
			Success(fmt.Sprintf("Registered %s as %s (%s)", reg.Singular, reg.Kind, reg.Plural))
			if install {
				return m.Install(reg.Singular)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&hashNames, "hash-names", false, "Name instances by a fixed-length digest")
	cmd.Flags().BoolVar(&install, "install", false, "Install the CRD after registering")
	return cmd
}

func (m *CRDManager) newInstallCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "install SINGULAR",
		Short: "Install the CRD of a registered kind and wait until it is established",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return m.Install(args[0])
		},
	}
}

// Install applies the CRD for singular with a spinner while it settles.
func (m *CRDManager) Install(singular string) error {
	mgr, err := m.rt.CRDs()
	if err != nil {
		return err
	}
	stop := SpinnerStart(fmt.Sprintf("Installing CRD for %s", singular))
	crd, err := mgr.Install(singular)
	if err != nil {
		stop(false, "CRD installation failed")
		if errors.Is(err, cluster.ErrPollExhausted) {
			return wrapWithSentinelAndContext(ErrCRDNotInstalled, err, "CRD was applied but never became established",
				map[string]any{"kind": singular})
		}
		return explain(err)
	}
	stop(true, fmt.Sprintf("CRD %s established", crd.Name))
	m.logger.Info("CRD installed", zap.String("crd", crd.Name))
	return nil
}

func (m *CRDManager) newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List registered kinds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := m.rt.CRDs()
			if err != nil {
				return err
			}
			regs, err := mgr.List()
			if err != nil {
				return explain(err)
			}
			if len(regs) == 0 {
				Info("No kinds registered")
				return nil
			}
			Table(registrationRows(regs, mgr.Group()))
			return nil
		},
	}
}

func registrationRows(regs []crds.Registration, group string) [][]string {
	rows := [][]string{{"Singular", "Kind", "CRD", "Hash names"}}
	for _, r := range regs {
		rows = append(rows, []string{r.Singular, r.Kind, r.Plural + "." + group, strconv.FormatBool(r.HashNames)})
	}
	return rows
}

func (m *CRDManager) newNameCmd() *cobra.Command {
	var noHash bool

	cmd := &cobra.Command{
		Use:   "name SINGULAR INSTANCE",
		Short: "Print the cluster resource name of an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := m.rt.CRDs()
			if err != nil {
				return err
			}
			name, err := mgr.ResourceName(args[0], args[1], !noHash)
			if err != nil {
				return explain(err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), name)
			return nil
		},
	}

	cmd.Flags().BoolVar(&noHash, "no-hash", false, "Print the literal name even for hash-named kinds")
	return cmd
}

func (m *CRDManager) newLabelsCmd() *cobra.Command {
	var labelPairs []string

	cmd := &cobra.Command{
		Use:   "labels SINGULAR INSTANCE",
		Short: "Print the correlation labels of an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := m.rt.CRDs()
			if err != nil {
				return err
			}
			extra, err := parseLabelFlags(labelPairs)
			if err != nil {
				return err
			}
			set, err := mgr.ResourceLabels(args[0], args[1], extra)
			if err != nil {
				return explain(err)
			}
			return writeYAML(cmd.OutOrStdout(), set)
		},
	}

	cmd.Flags().StringArrayVar(&labelPairs, "label", nil, "Extra unprefixed label key=value (repeatable)")
	return cmd
}

func (m *CRDManager) newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get SINGULAR INSTANCE",
		Short: "Print the custom resource of an instance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := m.rt.CRDs()
			if err != nil {
				return err
			}
			obj, err := mgr.Get(args[0], args[1])
			if err != nil {
				return explain(err)
			}
			return writeYAML(cmd.OutOrStdout(), obj.Object)
		},
	}
}

func (m *CRDManager) newCreateInstanceCmd() *cobra.Command {
	var specFile string

	cmd := &cobra.Command{
		Use:   "create-instance SINGULAR INSTANCE",
		Short: "Record an instance and apply its custom resource",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var spec map[string]any
			if specFile != "" {
				var err error
				if spec, err = readSpecFile(specFile); err != nil {
					return err
				}
			}
			mgr, err := m.rt.CRDs()
			if err != nil {
				return err
			}
			res, err := mgr.CreateInstance(args[0], args[1], spec)
			if err != nil {
				return explain(err)
			}
			m.reportSaga("create", args[1], res)
			return nil
		},
	}

	cmd.Flags().StringVar(&specFile, "spec-file", "", "YAML file with the resource spec")
	return cmd
}

func readSpecFile(path string) (map[string]any, error) {
	// #nosec G304 -- path is user-supplied.
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, wrapWithSentinel(ErrInvalidFlags, err, "failed to read spec file")
	}
	// Numbers decode as float64, which unstructured content accepts.
	spec := map[string]any{}
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, wrapWithSentinel(ErrInvalidFlags, err, "spec file must be a YAML map")
	}
	return spec, nil
}

func (m *CRDManager) newDeleteInstanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete-instance SINGULAR INSTANCE",
		Short: "Delete an instance's custom resource and correlated config",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := m.rt.CRDs()
			if err != nil {
				return err
			}
			res, err := mgr.DeleteInstance(args[0], args[1])
			if err != nil {
				return explain(err)
			}
			m.reportSaga("delete", args[1], res)
			return nil
		},
	}
}

func (m *CRDManager) reportSaga(verb, instance string, res saga.Result) {
	if res.Resumed {
		Info(fmt.Sprintf("Resumed run %s, skipped %d completed steps", res.RunID, len(res.Skipped)))
	}
	m.logger.Debug("saga finished", zap.String("run", res.RunID), zap.Strings("executed", res.Executed))
	Success(fmt.Sprintf("%s %s: done", verb, instance))
}

func parseLabelFlags(pairs []string) (map[string]string, error) {
	set, err := labels.Parse(pairs)
	if err != nil {
		return nil, wrapWithSentinel(ErrInvalidFlags, err, "invalid --label")
	}
	return set, nil
}
