package config

import (
	"fmt"
	"maps"
)

// Kind is the backend that stores a config object.
type Kind string

const (
	// KindSecret stores values in a Secret, byte-encoded on the wire.
	KindSecret Kind = "secret"
	// KindConfigMap stores values as plain text in a ConfigMap.
	KindConfigMap Kind = "configmap"
)

// ParseKind accepts "secret" or "configmap".
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindSecret, KindConfigMap:
		return Kind(s), nil
	default:
		return "", fmt.Errorf("%w: unknown config kind %q", ErrInvalidArguments, s)
	}
}

// Ref addresses a config object the way callers name it: exactly one of
// SecretName or ConfigMapName, and an optional namespace.
type Ref struct {
	SecretName    string
	ConfigMapName string
	Namespace     string
}

// Secret is shorthand for a secret reference.
func Secret(name, namespace string) Ref {
	return Ref{SecretName: name, Namespace: namespace}
}

// ConfigMap is shorthand for a configmap reference.
func ConfigMap(name, namespace string) Ref {
	return Ref{ConfigMapName: name, Namespace: namespace}
}

// resolve turns r into a Key, filling the namespace from defaultNamespace.
func (r Ref) resolve(defaultNamespace string) (Key, error) {
	ns := r.Namespace
	if ns == "" {
		ns = defaultNamespace
	}
	switch {
	case r.SecretName != "" && r.ConfigMapName != "":
		return Key{}, fmt.Errorf("%w: both secret name %q and configmap name %q given", ErrInvalidArguments, r.SecretName, r.ConfigMapName)
	case r.SecretName != "":
		return Key{Kind: KindSecret, Namespace: ns, Name: r.SecretName}, nil
	case r.ConfigMapName != "":
		return Key{Kind: KindConfigMap, Namespace: ns, Name: r.ConfigMapName}, nil
	default:
		return Key{}, fmt.Errorf("%w: one of secret name or configmap name is required", ErrInvalidArguments)
	}
}

// Key is the resolved identity of a config object.
type Key struct {
	Kind      Kind
	Namespace string
	Name      string
}

func (k Key) String() string {
	return fmt.Sprintf("%s:%s/%s", k.Kind, k.Namespace, k.Name)
}

// Ref converts k back to a reference.
func (k Key) Ref() Ref {
	if k.Kind == KindSecret {
		return Secret(k.Name, k.Namespace)
	}
	return ConfigMap(k.Name, k.Namespace)
}

// Object is a config object: its identity, metadata and flat value map.
// Secret values are held decoded.
type Object struct {
	Key         Key
	Labels      map[string]string
	Annotations map[string]string
	Values      map[string]string
}

func (o Object) clone() Object {
	return Object{
		Key:         o.Key,
		Labels:      maps.Clone(o.Labels),
		Annotations: maps.Clone(o.Annotations),
		Values:      maps.Clone(o.Values),
	}
}
