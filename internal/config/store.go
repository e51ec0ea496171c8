// Package config is the layered configuration store: key/value config
// objects kept in Secrets or ConfigMaps, read through a per-process cache and
// correlated by labels.
package config

import (
	"errors"
	"fmt"
	"iter"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"go.uber.org/zap"
	k8slabels "k8s.io/apimachinery/pkg/labels"

	"ckan-cloud-operator/internal/cluster"
	"ckan-cloud-operator/internal/labels"
)

// Store reads and writes config objects. The cache has no TTL and no locking:
// a Store belongs to one command invocation and assumes it is the only writer
// of the objects it touches.
type Store struct {
	client    cluster.Client
	namespace string
	logger    *zap.Logger
	now       func() time.Time

	cache  map[Key]entry
	scheme *labels.Scheme
}

// entry is a cached object. Absence is cached too, as an empty object.
type entry struct {
	obj    Object
	exists bool
}

// NewStore creates a Store that resolves unqualified references to namespace.
func NewStore(c cluster.Client, namespace string, logger *zap.Logger) *Store {
	return &Store{
		client:    c,
		namespace: namespace,
		logger:    logger,
		now:       time.Now,
		cache:     make(map[Key]entry),
	}
}

// Namespace returns the default namespace for references without one.
func (s *Store) Namespace() string {
	return s.namespace
}

// Client returns the cluster client the store persists through.
func (s *Store) Client() cluster.Client {
	return s.client
}

func (s *Store) load(key Key) (entry, error) {
	if e, ok := s.cache[key]; ok {
		return e, nil
	}
	obj, err := backendFor(key.Kind).fetch(s.client, key)
	switch {
	case errors.Is(err, cluster.ErrNotFound):
		s.logger.Debug("config object absent", zap.Stringer("key", key))
		e := entry{obj: Object{Key: key, Values: map[string]string{}}}
		s.cache[key] = e
		return e, nil
	case err != nil:
		return entry{}, fmt.Errorf("read %s: %w", key, err)
	}
	e := entry{obj: obj, exists: true}
	s.cache[key] = e
	return e, nil
}

type getOptions struct {
	def      *string
	required bool
}

// GetOption adjusts a Get or GetAll call.
type GetOption func(*getOptions)

// WithDefault returns def when the key is absent. A default satisfies Required.
func WithDefault(def string) GetOption {
	return func(o *getOptions) { o.def = &def }
}

// Required fails with ErrRequiredValueMissing when the key is absent. A key
// that is present with an empty value counts as present.
func Required() GetOption {
	return func(o *getOptions) { o.required = true }
}

// Get returns one value from the object ref points at.
func (s *Store) Get(ref Ref, key string, opts ...GetOption) (string, error) {
	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}
	k, err := ref.resolve(s.namespace)
	if err != nil {
		return "", err
	}
	e, err := s.load(k)
	if err != nil {
		return "", err
	}
	if v, ok := e.obj.Values[key]; ok {
		return v, nil
	}
	if o.def != nil {
		return *o.def, nil
	}
	if o.required {
		return "", fmt.Errorf("%w: key %q in %s", ErrRequiredValueMissing, key, k)
	}
	return "", nil
}

// GetAll returns a copy of every value in the object ref points at. An absent
// object yields an empty map, or ErrRequiredValueMissing with Required.
func (s *Store) GetAll(ref Ref, opts ...GetOption) (map[string]string, error) {
	var o getOptions
	for _, opt := range opts {
		opt(&o)
	}
	k, err := ref.resolve(s.namespace)
	if err != nil {
		return nil, err
	}
	e, err := s.load(k)
	if err != nil {
		return nil, err
	}
	if !e.exists && o.required {
		return nil, fmt.Errorf("%w: %s", ErrRequiredValueMissing, k)
	}
	return maps.Clone(e.obj.Values), nil
}

// Exists reports whether the object ref points at is stored.
func (s *Store) Exists(ref Ref) (bool, error) {
	k, err := ref.resolve(s.namespace)
	if err != nil {
		return false, err
	}
	e, err := s.load(k)
	if err != nil {
		return false, err
	}
	return e.exists, nil
}

// Invalidate drops the cached copy of ref so the next read goes to the cluster.
func (s *Store) Invalidate(ref Ref) error {
	k, err := ref.resolve(s.namespace)
	if err != nil {
		return err
	}
	delete(s.cache, k)
	if k == s.bootstrapKey() {
		s.scheme = nil
	}
	return nil
}

// SetRequest describes one write. Exactly one of Key or Values is used: Key
// merges a single value into the stored object, Values replaces the stored
// values wholesale.
type SetRequest struct {
	Key   string
	Value string
	// Values is the complete new value map. A non-nil empty map clears the object.
	Values map[string]string
	// ExtraLabels are unprefixed correlation labels added to the object.
	ExtraLabels map[string]string
	// FromFile reads Value as a path and stores the file's contents.
	FromFile bool
	// DryRun builds the object without persisting or caching it.
	DryRun bool
}

// Set writes to the object ref points at and returns what was (or, with
// DryRun, would be) persisted. Labels already on the object are kept.
func (s *Store) Set(ref Ref, req SetRequest) (Object, error) {
	k, err := ref.resolve(s.namespace)
	if err != nil {
		return Object{}, err
	}
	if err := s.guardBootstrap(k); err != nil {
		return Object{}, err
	}
	single := req.Key != ""
	if single == (req.Values != nil) {
		return Object{}, fmt.Errorf("%w: exactly one of key/value or values is required", ErrInvalidArguments)
	}
	if req.FromFile && !single {
		return Object{}, fmt.Errorf("%w: from-file needs a single key", ErrInvalidArguments)
	}
	if err := labels.Validate(req.ExtraLabels); err != nil {
		return Object{}, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	scheme, err := s.LabelScheme()
	if err != nil {
		return Object{}, err
	}
	current, err := s.load(k)
	if err != nil {
		return Object{}, err
	}

	var values map[string]string
	if single {
		value := req.Value
		if req.FromFile {
			data, err := os.ReadFile(value)
			if err != nil {
				return Object{}, fmt.Errorf("read value for %q: %w", req.Key, err)
			}
			value = string(data)
		}
		values = maps.Clone(current.obj.Values)
		if values == nil {
			values = map[string]string{}
		}
		values[req.Key] = value
	} else {
		values = maps.Clone(req.Values)
	}

	obj := Object{
		Key:         k,
		Labels:      objectLabels(scheme, k, current.obj.Labels, req.ExtraLabels),
		Annotations: s.objectAnnotations(scheme, current.obj.Annotations, values),
		Values:      values,
	}
	if req.DryRun {
		return obj, nil
	}
	return s.persist(obj)
}

func (s *Store) persist(obj Object) (Object, error) {
	if err := backendFor(obj.Key.Kind).persist(s.client, obj); err != nil {
		return Object{}, fmt.Errorf("write %s: %w", obj.Key, err)
	}
	s.logger.Debug("config object written", zap.Stringer("key", obj.Key), zap.Int("values", len(obj.Values)))
	s.cache[obj.Key] = entry{obj: obj.clone(), exists: true}
	return obj, nil
}

func objectLabels(scheme labels.Scheme, k Key, current, extra map[string]string) map[string]string {
	out := maps.Clone(current)
	if out == nil {
		out = map[string]string{}
	}
	maps.Copy(out, scheme.ResourceLabels(map[string]string{
		labels.ConfigKindSuffix(string(k.Kind)): k.Name,
		labels.SuffixConfigNamespace:            k.Namespace,
	}, extra))
	return out
}

func (s *Store) objectAnnotations(scheme labels.Scheme, current, values map[string]string) map[string]string {
	out := maps.Clone(current)
	if out == nil {
		out = map[string]string{}
	}
	out[scheme.Key(labels.SuffixTimestamp)] = s.now().UTC().Format(time.RFC3339)
	if sum, err := Checksum(values); err == nil {
		out[scheme.Key(labels.SuffixChecksum)] = sum
	} else {
		s.logger.Warn("checksum failed", zap.Error(err))
	}
	return out
}

// Checksum is the structural hash of a value map, independent of key order.
func Checksum(values map[string]string) (string, error) {
	sum, err := hashstructure.Hash(values, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}
	return strconv.FormatUint(sum, 16), nil
}

// DeleteKey removes one key from a stored object. Removing a key that is not
// there writes nothing.
func (s *Store) DeleteKey(ref Ref, key string) (Object, error) {
	k, err := ref.resolve(s.namespace)
	if err != nil {
		return Object{}, err
	}
	if err := s.guardBootstrap(k); err != nil {
		return Object{}, err
	}
	e, err := s.load(k)
	if err != nil {
		return Object{}, err
	}
	if !e.exists {
		return Object{}, fmt.Errorf("delete key %q: %s: %w", key, k, ErrNotFound)
	}
	if _, ok := e.obj.Values[key]; !ok {
		return e.obj.clone(), nil
	}
	values := maps.Clone(e.obj.Values)
	delete(values, key)
	return s.Set(ref, SetRequest{Values: values})
}

// Delete removes the object ref points at. A missing object is ErrNotFound
// unless existsOK. The cached copy is dropped either way.
func (s *Store) Delete(ref Ref, existsOK bool) error {
	k, err := ref.resolve(s.namespace)
	if err != nil {
		return err
	}
	if err := s.guardBootstrap(k); err != nil {
		return err
	}
	err = backendFor(k.Kind).remove(s.client, k, existsOK)
	delete(s.cache, k)
	switch {
	case errors.Is(err, cluster.ErrNotFound):
		return fmt.Errorf("delete %s: %w", k, ErrNotFound)
	case err != nil:
		return fmt.Errorf("delete %s: %w", k, err)
	}
	s.logger.Debug("config object deleted", zap.Stringer("key", k))
	return nil
}

// DeleteByExtraLabels deletes every Secret and ConfigMap in the cluster whose
// labels include all of extra, and returns what it deleted.
func (s *Store) DeleteByExtraLabels(extra map[string]string) ([]Key, error) {
	if len(extra) == 0 {
		return nil, fmt.Errorf("%w: at least one label is required", ErrInvalidArguments)
	}
	selector, err := k8slabels.ValidatedSelectorFromSet(extra)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidArguments, err)
	}
	var deleted []Key
	for _, kind := range []Kind{KindConfigMap, KindSecret} {
		b := backendFor(kind)
		objs, err := b.list(s.client, cluster.ListOptions{Selector: selector})
		if err != nil {
			return deleted, fmt.Errorf("list %ss by %s: %w", kind, selector, err)
		}
		for _, obj := range objs {
			if err := b.remove(s.client, obj.Key, true); err != nil {
				return deleted, fmt.Errorf("delete %s: %w", obj.Key, err)
			}
			delete(s.cache, obj.Key)
			deleted = append(deleted, obj.Key)
		}
	}
	s.logger.Debug("config objects deleted by labels", zap.String("selector", selector.String()), zap.Int("count", len(deleted)))
	return deleted, nil
}

// Entry is one row of List.
type Entry struct {
	Kind      Kind
	Namespace string
	Name      string
	// Values is only set for a full listing.
	Values map[string]string
}

// ListOptions narrows List.
type ListOptions struct {
	// Namespace selects objects correlated with this namespace. Empty means
	// the store's default namespace.
	Namespace   string
	Full        bool
	ShowSecrets bool
}

// List enumerates config objects correlated with a namespace. The cluster is
// queried on the first iteration only; ranging again replays the same
// point-in-time snapshot.
func (s *Store) List(opts ListOptions) iter.Seq2[Entry, error] {
	var (
		fetched  bool
		snapshot []Entry
		fetchErr error
	)
	return func(yield func(Entry, error) bool) {
		if !fetched {
			snapshot, fetchErr = s.listSnapshot(opts)
			fetched = true
		}
		if fetchErr != nil {
			yield(Entry{}, fetchErr)
			return
		}
		for _, e := range snapshot {
			e.Values = maps.Clone(e.Values)
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (s *Store) listSnapshot(opts ListOptions) ([]Entry, error) {
	scheme, err := s.LabelScheme()
	if err != nil {
		return nil, err
	}
	ns := opts.Namespace
	if ns == "" {
		ns = s.namespace
	}
	selector := scheme.Selector(map[string]string{labels.SuffixConfigNamespace: ns})

	kinds := []Kind{KindConfigMap}
	if opts.ShowSecrets {
		kinds = append(kinds, KindSecret)
	}
	var out []Entry
	for _, kind := range kinds {
		objs, err := backendFor(kind).list(s.client, cluster.ListOptions{Selector: selector})
		if err != nil {
			return nil, fmt.Errorf("list %ss in %s: %w", kind, ns, err)
		}
		for _, obj := range objs {
			e := Entry{Kind: kind, Namespace: obj.Key.Namespace, Name: obj.Key.Name}
			if opts.Full {
				e.Values = obj.Values
			}
			out = append(out, e)
		}
	}
	slices.SortStableFunc(out, func(a, b Entry) int {
		if c := strings.Compare(string(a.Kind), string(b.Kind)); c != 0 {
			return c
		}
		return strings.Compare(a.Namespace+"/"+a.Name, b.Namespace+"/"+b.Name)
	})
	return out, nil
}
