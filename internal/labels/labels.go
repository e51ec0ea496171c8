// Package labels turns semantic label suffixes into prefix-qualified label
// keys and resource names for one installation.
package labels

import (
	"errors"
	"fmt"
	"strings"

	k8slabels "k8s.io/apimachinery/pkg/labels"
	"k8s.io/apimachinery/pkg/util/validation"
)

var (
	// ErrNotConfigured indicates the installation has no label prefix yet.
	ErrNotConfigured = errors.New("label prefix not configured")

	// ErrInvalidPrefix indicates a prefix that cannot be used as a label key prefix.
	ErrInvalidPrefix = errors.New("invalid label prefix")
)

// Well-known suffixes used on config objects.
const (
	SuffixConfigNamespace = "operator-config-namespace"
	SuffixTimestamp       = "operator-timestamp"
	SuffixChecksum        = "operator-checksum"
)

// ConfigKindSuffix returns the suffix that marks a config object of the given
// backend kind ("secret" or "configmap").
func ConfigKindSuffix(kind string) string {
	return "operator-config-" + kind
}

// Scheme derives label keys and names from a fixed prefix.
type Scheme struct {
	prefix string
}

// New validates prefix and returns its Scheme. An empty prefix is
// ErrNotConfigured.
func New(prefix string) (Scheme, error) {
	if prefix == "" {
		return Scheme{}, ErrNotConfigured
	}
	if errs := validation.IsDNS1123Subdomain(prefix); len(errs) > 0 {
		return Scheme{}, fmt.Errorf("%w %q: %s", ErrInvalidPrefix, prefix, strings.Join(errs, "; "))
	}
	return Scheme{prefix: prefix}, nil
}

// Prefix returns the label prefix.
func (s Scheme) Prefix() string {
	return s.prefix
}

// Key returns "{prefix}/{suffix}".
func (s Scheme) Key(suffix string) string {
	return s.prefix + "/" + suffix
}

// ResourceName returns "{prefix}-{suffix}".
func (s Scheme) ResourceName(suffix string) string {
	return s.prefix + "-" + suffix
}

// ResourceLabels prefixes every suffix key. Entries in extra are copied
// unprefixed and win on collision.
func (s Scheme) ResourceLabels(suffixes, extra map[string]string) map[string]string {
	out := make(map[string]string, len(suffixes)+len(extra))
	for suffix, value := range suffixes {
		out[s.Key(suffix)] = value
	}
	for key, value := range extra {
		out[key] = value
	}
	return out
}

// Selector matches objects carrying all the given prefixed suffixes.
func (s Scheme) Selector(suffixes map[string]string) k8slabels.Selector {
	return k8slabels.SelectorFromSet(s.ResourceLabels(suffixes, nil))
}

// Validate checks that every key and value is acceptable as a Kubernetes label.
func Validate(set map[string]string) error {
	for key, value := range set {
		if errs := validation.IsQualifiedName(key); len(errs) > 0 {
			return fmt.Errorf("label key %q: %s", key, strings.Join(errs, "; "))
		}
		if errs := validation.IsValidLabelValue(value); len(errs) > 0 {
			return fmt.Errorf("label %q value %q: %s", key, value, strings.Join(errs, "; "))
		}
	}
	return nil
}

// Parse reads "key=value" pairs as given on the command line.
func Parse(pairs []string) (map[string]string, error) {
	out := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("label %q: expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}
