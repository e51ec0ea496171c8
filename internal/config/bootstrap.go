package config

import (
	"fmt"
	"maps"

	"go.uber.org/zap"

	"ckan-cloud-operator/internal/labels"
)

// The label prefix lives in a fixed, unprefixed ConfigMap so it can be read
// before any prefixed name is known.
const (
	BootstrapConfigMapName = "ckan-cloud-operator-bootstrap"
	BootstrapPrefixKey     = "label-prefix"
)

func (s *Store) bootstrapKey() Key {
	return Key{Kind: KindConfigMap, Namespace: s.namespace, Name: BootstrapConfigMapName}
}

// guardBootstrap rejects generic writes to the bootstrap object. Its prefix
// only changes through SetLabelPrefix.
func (s *Store) guardBootstrap(k Key) error {
	if k == s.bootstrapKey() {
		return fmt.Errorf("%w: %s holds the label prefix, change it with 'initialize --label-prefix'", ErrInvalidArguments, k)
	}
	return nil
}

// LabelScheme returns the installation's label scheme, reading the bootstrap
// object on first use. It fails with labels.ErrNotConfigured before
// SetLabelPrefix has been run.
func (s *Store) LabelScheme() (labels.Scheme, error) {
	if s.scheme != nil {
		return *s.scheme, nil
	}
	e, err := s.load(s.bootstrapKey())
	if err != nil {
		return labels.Scheme{}, err
	}
	prefix := e.obj.Values[BootstrapPrefixKey]
	if prefix == "" {
		return labels.Scheme{}, fmt.Errorf("%w: no %s in %s", labels.ErrNotConfigured, BootstrapPrefixKey, s.bootstrapKey())
	}
	scheme, err := labels.New(prefix)
	if err != nil {
		return labels.Scheme{}, err
	}
	s.scheme = &scheme
	return scheme, nil
}

// SetLabelPrefix stores prefix in the bootstrap object. Changing an existing
// prefix fails with ErrPrefixLocked unless force is set.
func (s *Store) SetLabelPrefix(prefix string, force bool) (labels.Scheme, error) {
	scheme, err := labels.New(prefix)
	if err != nil {
		return labels.Scheme{}, err
	}
	k := s.bootstrapKey()
	e, err := s.load(k)
	if err != nil {
		return labels.Scheme{}, err
	}
	if current := e.obj.Values[BootstrapPrefixKey]; current != "" && current != prefix && !force {
		return labels.Scheme{}, fmt.Errorf("%w: %q (requested %q)", ErrPrefixLocked, current, prefix)
	}

	values := maps.Clone(e.obj.Values)
	if values == nil {
		values = map[string]string{}
	}
	values[BootstrapPrefixKey] = prefix
	obj := Object{
		Key:         k,
		Labels:      e.obj.Labels,
		Annotations: e.obj.Annotations,
		Values:      values,
	}
	if _, err := s.persist(obj); err != nil {
		return labels.Scheme{}, err
	}
	s.logger.Info("label prefix set", zap.String("prefix", prefix))
	s.scheme = &scheme
	return scheme, nil
}
