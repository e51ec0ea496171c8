package crds

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	apiextensionsv1 "k8s.io/apiextensions-apiserver/pkg/apis/apiextensions/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"

	"ckan-cloud-operator/internal/cluster"
	"ckan-cloud-operator/internal/config"
	"ckan-cloud-operator/internal/saga"
)

// Version is the only served version of every operator CRD.
const Version = "v1"

// Manager installs CRDs for registered kinds and manages their instances.
type Manager struct {
	*Registry
	store  *config.Store
	client cluster.Client
	runner *saga.Runner
	group  string
	poll   cluster.PollConfig
	logger *zap.Logger
}

// NewManager creates a Manager whose CRDs live in the API group group.
func NewManager(store *config.Store, group string, poll cluster.PollConfig, logger *zap.Logger) *Manager {
	return &Manager{
		Registry: NewRegistry(store, logger),
		store:    store,
		client:   store.Client(),
		runner:   saga.NewRunner(store, logger),
		group:    group,
		poll:     poll,
		logger:   logger,
	}
}

// Group is the API group of the operator's CRDs.
func (m *Manager) Group() string {
	return m.group
}

// Definition builds the CRD manifest for reg: namespaced, one version, and a
// schema that keeps unknown fields.
func (m *Manager) Definition(reg Registration) (*apiextensionsv1.CustomResourceDefinition, error) {
	scheme, err := m.store.LabelScheme()
	if err != nil {
		return nil, err
	}
	preserve := true
	return &apiextensionsv1.CustomResourceDefinition{
		ObjectMeta: metav1.ObjectMeta{
			Name:   reg.Plural + "." + m.group,
			Labels: scheme.ResourceLabels(map[string]string{"operator-crd": reg.Singular}, nil),
		},
		Spec: apiextensionsv1.CustomResourceDefinitionSpec{
			Group: m.group,
			Names: apiextensionsv1.CustomResourceDefinitionNames{
				Plural:   reg.Plural,
				Singular: strings.ToLower(reg.Kind),
				Kind:     reg.Kind,
				ListKind: reg.Kind + "List",
			},
			Scope: apiextensionsv1.NamespaceScoped,
			Versions: []apiextensionsv1.CustomResourceDefinitionVersion{{
				Name:    Version,
				Served:  true,
				Storage: true,
				Schema: &apiextensionsv1.CustomResourceValidation{
					OpenAPIV3Schema: &apiextensionsv1.JSONSchemaProps{
						Type:                   "object",
						XPreserveUnknownFields: &preserve,
					},
				},
			}},
		},
	}, nil
}

// Install applies the CRD of a registered kind and waits until the API
// server reports it Established.
func (m *Manager) Install(singular string) (*apiextensionsv1.CustomResourceDefinition, error) {
	reg, err := m.Lookup(singular)
	if err != nil {
		return nil, err
	}
	crd, err := m.Definition(reg)
	if err != nil {
		return nil, err
	}
	if err := m.client.Apply(crd, false); err != nil {
		return nil, fmt.Errorf("install CRD %s: %w", crd.Name, err)
	}
	m.logger.Info("CRD applied", zap.String("crd", crd.Name))

	err = cluster.Poll(m.poll, "CRD "+crd.Name, func() (bool, error) {
		live := &apiextensionsv1.CustomResourceDefinition{ObjectMeta: metav1.ObjectMeta{Name: crd.Name}}
		if err := m.client.Get(live); err != nil {
			return false, err
		}
		return established(live), nil
	})
	if err != nil {
		return nil, err
	}
	return crd, nil
}

func established(crd *apiextensionsv1.CustomResourceDefinition) bool {
	for _, c := range crd.Status.Conditions {
		if c.Type == apiextensionsv1.Established {
			return c.Status == apiextensionsv1.ConditionTrue
		}
	}
	return false
}
