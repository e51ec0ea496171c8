// Package crds derives names and correlation labels for custom resource
// instances, stores kind registrations, installs CRDs and manages instance
// lifecycles.
package crds

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"k8s.io/apimachinery/pkg/util/validation"

	"ckan-cloud-operator/internal/config"
	"ckan-cloud-operator/internal/labels"
)

// ErrUnknownKind indicates a kind that was never registered.
var ErrUnknownKind = errors.New("unknown kind")

// HashNameLength is the length of a hash-mode resource name.
const HashNameLength = 32

const (
	registrationsSuffix = "operator-crds"
	pluralKey           = "-plural"
	kindKey             = "-kind"
	hashNamesKey        = "-hash-names"
)

// Registration is a registered logical kind.
type Registration struct {
	Singular  string
	Plural    string
	Kind      string
	HashNames bool
}

// Registry stores registrations in the config store and derives identities.
type Registry struct {
	store  *config.Store
	logger *zap.Logger
}

// NewRegistry creates a Registry backed by store.
func NewRegistry(store *config.Store, logger *zap.Logger) *Registry {
	return &Registry{store: store, logger: logger}
}

func (r *Registry) ref(scheme labels.Scheme) config.Ref {
	return config.ConfigMap(scheme.ResourceName(registrationsSuffix), "")
}

// Register stores the plural and kind for singular. Registering again
// overwrites the previous values.
func (r *Registry) Register(singular, pluralSuffix, kindSuffix string, hashNames bool) (Registration, error) {
	if errs := validation.IsDNS1123Label(singular); len(errs) > 0 {
		return Registration{}, fmt.Errorf("%w: kind %q: %s", config.ErrInvalidArguments, singular, strings.Join(errs, "; "))
	}
	if pluralSuffix == "" || kindSuffix == "" {
		return Registration{}, fmt.Errorf("%w: plural and kind suffixes are required", config.ErrInvalidArguments)
	}
	scheme, err := r.store.LabelScheme()
	if err != nil {
		return Registration{}, err
	}
	reg := Registration{
		Singular:  singular,
		Plural:    strings.NewReplacer("-", "", ".", "").Replace(scheme.Prefix()) + pluralSuffix,
		Kind:      camelCase(scheme.Prefix()) + kindSuffix,
		HashNames: hashNames,
	}
	ref := r.ref(scheme)
	values, err := r.store.GetAll(ref)
	if err != nil {
		return Registration{}, err
	}
	values[singular+pluralKey] = reg.Plural
	values[singular+kindKey] = reg.Kind
	values[singular+hashNamesKey] = strconv.FormatBool(hashNames)
	if _, err := r.store.Set(ref, config.SetRequest{Values: values}); err != nil {
		return Registration{}, err
	}
	r.logger.Debug("kind registered", zap.String("singular", singular), zap.String("plural", reg.Plural), zap.String("kind", reg.Kind))
	return reg, nil
}

// Lookup returns the registration for singular, or ErrUnknownKind.
func (r *Registry) Lookup(singular string) (Registration, error) {
	scheme, err := r.store.LabelScheme()
	if err != nil {
		return Registration{}, err
	}
	values, err := r.store.GetAll(r.ref(scheme))
	if err != nil {
		return Registration{}, err
	}
	return fromValues(singular, values)
}

func fromValues(singular string, values map[string]string) (Registration, error) {
	plural, ok := values[singular+pluralKey]
	if !ok {
		return Registration{}, fmt.Errorf("%w: %q", ErrUnknownKind, singular)
	}
	kind, ok := values[singular+kindKey]
	if !ok {
		return Registration{}, fmt.Errorf("%w: %q has no kind", ErrUnknownKind, singular)
	}
	hash, _ := strconv.ParseBool(values[singular+hashNamesKey])
	return Registration{Singular: singular, Plural: plural, Kind: kind, HashNames: hash}, nil
}

// List returns every registration, sorted by singular name.
func (r *Registry) List() ([]Registration, error) {
	scheme, err := r.store.LabelScheme()
	if err != nil {
		return nil, err
	}
	values, err := r.store.GetAll(r.ref(scheme))
	if err != nil {
		return nil, err
	}
	var out []Registration
	for key := range values {
		singular, ok := strings.CutSuffix(key, pluralKey)
		if !ok {
			continue
		}
		reg, err := fromValues(singular, values)
		if err != nil {
			return nil, err
		}
		out = append(out, reg)
	}
	slices.SortFunc(out, func(a, b Registration) int { return strings.Compare(a.Singular, b.Singular) })
	return out, nil
}

// ResourceName returns the cluster name of an instance. Kinds registered
// with hash names get a fixed-length hex digest unless allowHash is false;
// otherwise the name is "{prefix}-{singular}-{instance}".
func (r *Registry) ResourceName(singular, instance string, allowHash bool) (string, error) {
	reg, err := r.Lookup(singular)
	if err != nil {
		return "", err
	}
	scheme, err := r.store.LabelScheme()
	if err != nil {
		return "", err
	}
	literal := scheme.ResourceName(singular + "-" + instance)
	if reg.HashNames && allowHash {
		return HashName(literal), nil
	}
	return literal, nil
}

// ResourceLabels returns the correlation labels of an instance: the
// "{prefix}/{singular}-name" label plus extra, copied unprefixed. The
// instance name is a label value, so it must be a valid one even for kinds
// with hash names.
func (r *Registry) ResourceLabels(singular, instance string, extra map[string]string) (map[string]string, error) {
	errs := validation.IsValidLabelValue(instance)
	if instance == "" {
		errs = append(errs, "must not be empty")
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("%w: instance name %q is not a valid label value: %s", config.ErrInvalidArguments, instance, strings.Join(errs, "; "))
	}
	scheme, err := r.store.LabelScheme()
	if err != nil {
		return nil, err
	}
	return scheme.ResourceLabels(map[string]string{singular + "-name": instance}, extra), nil
}

// HashName is the first HashNameLength lowercase hex characters of the
// SHA-256 digest of name.
func HashName(name string) string {
	sum := sha256.Sum256([]byte(name))
	return hex.EncodeToString(sum[:])[:HashNameLength]
}

// camelCase turns "ckan-cloud" into "CkanCloud".
func camelCase(s string) string {
	var sb strings.Builder
	for _, part := range strings.FieldsFunc(s, func(r rune) bool { return r == '-' || r == '.' }) {
		sb.WriteString(strings.ToUpper(part[:1]))
		sb.WriteString(part[1:])
	}
	return sb.String()
}
