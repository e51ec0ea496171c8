package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"ckan-cloud-operator/internal/cluster"
	"ckan-cloud-operator/internal/config"
	"ckan-cloud-operator/internal/labels"
)

// InitManager handles installation bootstrap with injected dependencies.
type InitManager struct {
	rt     *Runtime
	logger *zap.Logger
}

// NewInitManager creates an InitManager.
func NewInitManager(rt *Runtime, logger *zap.Logger) *InitManager {
	return &InitManager{rt: rt, logger: logger}
}

// NewInitializeCmd returns the initialize subcommand.
func NewInitializeCmd(rt *Runtime, logger *zap.Logger) *cobra.Command {
	return NewInitializeCmdWithManager(NewInitManager(rt, logger))
}

// NewInitializeCmdWithManager returns the initialize subcommand using the provided manager.
func NewInitializeCmdWithManager(mgr *InitManager) *cobra.Command {
	var (
		prefix string
		force  bool
	)

	cmd := &cobra.Command{
		Use:   "initialize",
		Short: "Create the operator namespace and set the label prefix",
		Long: `Create the operator namespace if needed and record the label prefix every
operator-managed object is named and labeled with.

The prefix cannot be changed once set unless --force is given. Objects
labeled with the old prefix are not relabeled.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return mgr.Initialize(prefix, force)
		},
	}

	cmd.Flags().StringVar(&prefix, "label-prefix", "", "Label prefix, a DNS subdomain such as ckan-cloud")
	cmd.Flags().BoolVar(&force, "force", false, "Replace an existing label prefix")
	_ = cmd.MarkFlagRequired("label-prefix")

	return cmd
}

// Initialize makes sure the namespace exists, stores prefix and waits until
// a fresh read of the bootstrap object returns it.
func (m *InitManager) Initialize(prefix string, force bool) error {
	if _, err := labels.New(prefix); err != nil {
		return wrapWithSentinel(ErrInvalidFlags, err, "invalid --label-prefix")
	}
	store, err := m.rt.Store()
	if err != nil {
		return err
	}

	Section("Initializing " + store.Namespace())

	ns := &corev1.Namespace{ObjectMeta: metav1.ObjectMeta{Name: store.Namespace()}}
	found, err := cluster.GetOptional(store.Client(), ns)
	if err != nil {
		return wrapWithSentinelAndContext(ErrClusterNotAccessible, err, "failed to read namespace",
			map[string]any{"namespace": store.Namespace()})
	}
	if found {
		Info("Namespace " + store.Namespace() + " already exists")
	} else {
		if err := store.Client().Apply(ns, false); err != nil {
			return wrapWithSentinelAndContext(ErrClusterNotAccessible, err, "failed to create namespace",
				map[string]any{"namespace": store.Namespace()})
		}
		m.logger.Info("namespace created", zap.String("namespace", store.Namespace()))
		Success("Created namespace " + store.Namespace())
	}

	if _, err := store.SetLabelPrefix(prefix, force); err != nil {
		if errors.Is(err, config.ErrPrefixLocked) {
			return wrapWithSentinel(ErrInvalidFlags, err, "pass --force to replace the label prefix")
		}
		return explain(err)
	}

	bootstrap := config.ConfigMap(config.BootstrapConfigMapName, "")
	err = cluster.Poll(m.rt.Settings.Poll(), "label prefix", func() (bool, error) {
		if err := store.Invalidate(bootstrap); err != nil {
			return false, err
		}
		scheme, err := store.LabelScheme()
		if errors.Is(err, labels.ErrNotConfigured) {
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return scheme.Prefix() == prefix, nil
	})
	if err != nil {
		return err
	}

	m.logger.Info("installation initialized", zap.String("namespace", store.Namespace()), zap.String("prefix", prefix))
	Success(fmt.Sprintf("Label prefix %q set in namespace %s", prefix, store.Namespace()))
	return nil
}
