package cli

import (
	"go.uber.org/zap"

	"ckan-cloud-operator/internal/cluster"
	"ckan-cloud-operator/internal/config"
	"ckan-cloud-operator/internal/crds"
	"ckan-cloud-operator/internal/interactive"
	"ckan-cloud-operator/pkg/answers"
)

// Runtime owns the collaborators of one command invocation. They are built
// on first use so that commands which never touch the cluster (help,
// completion) do not need one.
type Runtime struct {
	Settings *Settings
	logger   *zap.Logger

	client   cluster.Client
	store    *config.Store
	prompter interactive.Prompter
	attended func() bool
}

// NewRuntime creates a Runtime that connects with the backend chosen in settings.
func NewRuntime(settings *Settings, logger *zap.Logger) *Runtime {
	return &Runtime{
		Settings: settings,
		logger:   logger,
		prompter: interactive.TerminalPrompter{},
		attended: interactive.Attended,
	}
}

// NewRuntimeWithClient creates a Runtime over an existing cluster client.
// This is useful for testing with fake backends.
func NewRuntimeWithClient(settings *Settings, c cluster.Client, logger *zap.Logger) *Runtime {
	rt := NewRuntime(settings, logger)
	rt.client = c
	rt.attended = func() bool { return false }
	return rt
}

// Client returns the cluster client.
func (r *Runtime) Client() (cluster.Client, error) {
	if r.client != nil {
		return r.client, nil
	}
	var (
		c   cluster.Client
		err error
	)
	switch r.Settings.Backend {
	case BackendAPI:
		c, err = cluster.NewAPIClientFromKubeconfig(r.Settings.Kubeconfig, r.logger)
	case BackendKubectl:
		c, err = cluster.NewKubectl(cluster.DefaultExecutor, r.logger)
	default:
		return nil, errorf(ErrInvalidSettings, "unknown cluster backend %q", r.Settings.Backend)
	}
	if err != nil {
		return nil, wrapWithSentinelAndContext(ErrClusterNotAccessible, err, "failed to create cluster client",
			map[string]any{"backend": r.Settings.Backend})
	}
	r.logger.Debug("cluster client ready", zap.String("backend", r.Settings.Backend))
	r.client = c
	return c, nil
}

// Store returns the config store for the operator namespace.
func (r *Runtime) Store() (*config.Store, error) {
	if r.store != nil {
		return r.store, nil
	}
	c, err := r.Client()
	if err != nil {
		return nil, err
	}
	r.store = config.NewStore(c, r.Settings.Namespace, r.logger)
	return r.store, nil
}

// CRDs returns the CRD manager.
func (r *Runtime) CRDs() (*crds.Manager, error) {
	store, err := r.Store()
	if err != nil {
		return nil, err
	}
	return crds.NewManager(store, r.Settings.CRDGroup, r.Settings.Poll(), r.logger), nil
}

// Reconciler returns an interactive reconciler. A configured answer path
// makes it a preset run.
func (r *Runtime) Reconciler() (*interactive.Reconciler, error) {
	store, err := r.Store()
	if err != nil {
		return nil, err
	}
	var preset *answers.File
	if path := r.Settings.AnswersPath; path != "" {
		preset, err = answers.Load(path)
		if err != nil {
			return nil, wrapWithSentinelAndContext(ErrInvalidSettings, err, "failed to load answer file",
				map[string]any{"path": path})
		}
		r.logger.Debug("preset answers loaded", zap.String("path", path))
	}
	return interactive.NewReconciler(store, preset, r.prompter, r.attended(), r.logger), nil
}
