package interactive

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"sigs.k8s.io/controller-runtime/pkg/client/fake"

	"ckan-cloud-operator/internal/cluster"
	"ckan-cloud-operator/internal/config"
	"ckan-cloud-operator/pkg/answers"
)

type fakePrompter struct {
	texts    map[string]string
	confirms map[string]bool
	asked    []string
	defaults map[string]string
	err      error
}

func (p *fakePrompter) Text(label, def string) (string, error) {
	p.asked = append(p.asked, label)
	if p.defaults == nil {
		p.defaults = map[string]string{}
	}
	p.defaults[label] = def
	if p.err != nil {
		return "", p.err
	}
	return p.texts[label], nil
}

func (p *fakePrompter) Confirm(label string, def bool) (bool, error) {
	p.asked = append(p.asked, label)
	if v, ok := p.confirms[label]; ok {
		return v, nil
	}
	return def, nil
}

func newTestStore(t *testing.T) *config.Store {
	t.Helper()
	api := cluster.NewAPIClient(fake.NewClientBuilder().WithScheme(cluster.Scheme).Build(), zap.NewNop())
	store := config.NewStore(api, "ckan-cloud", zap.NewNop())
	_, err := store.SetLabelPrefix("ckan-cloud", false)
	require.NoError(t, err)
	return store
}

func presetFile(ns, section, subsection string, values map[string]string) *answers.File {
	return &answers.File{Namespaces: map[string]map[string]map[string]map[string]string{
		ns: {section: {subsection: values}},
	}}
}

func TestPresetAnswerWinsOverDefault(t *testing.T) {
	store := newTestStore(t)
	preset := presetFile("ns1", "config", "cfg", map[string]string{"region": "eu"})
	r := NewReconciler(store, preset, nil, false, zap.NewNop())

	obj, err := r.Apply(Request{
		Ref:    config.ConfigMap("cfg", "ns1"),
		Fields: []Field{{Key: "region", Default: "us"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "eu", obj.Values["region"])

	got, err := store.Get(config.ConfigMap("cfg", "ns1"), "region")
	require.NoError(t, err)
	assert.Equal(t, "eu", got)
}

func TestPresetMissingKey(t *testing.T) {
	store := newTestStore(t)
	preset := presetFile("ns1", "secrets", "db", map[string]string{"user": "admin"})
	r := NewReconciler(store, preset, &fakePrompter{}, true, zap.NewNop())
	ref := config.Secret("db", "ns1")

	got, err := r.Resolve(Request{Ref: ref, Fields: []Field{{Key: "user"}, {Key: "port", Default: "5432"}}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"user": "admin", "port": "5432"}, got)

	_, err = r.Resolve(Request{Ref: ref, Fields: []Field{{Key: "password"}}})
	assert.ErrorIs(t, err, ErrAnswerFileResolution)

	// Answers for a configmap of the same name do not leak into secrets.
	_, err = r.Resolve(Request{Ref: config.ConfigMap("db", "ns1"), Fields: []Field{{Key: "user"}}})
	assert.ErrorIs(t, err, ErrAnswerFileResolution)
}

func TestUnattendedFallsBackToSavedThenDefault(t *testing.T) {
	store := newTestStore(t)
	ref := config.ConfigMap("cfg", "ns1")
	_, err := store.Set(ref, config.SetRequest{Key: "region", Value: "ap"})
	require.NoError(t, err)

	r := NewReconciler(store, nil, &fakePrompter{}, false, zap.NewNop())
	got, err := r.Resolve(Request{Ref: ref, Fields: []Field{
		{Key: "region", Default: "us"},
		{Key: "size", Default: "s"},
	}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"region": "ap", "size": "s"}, got)
}

func TestExplicitValueWins(t *testing.T) {
	store := newTestStore(t)
	preset := presetFile("ckan-cloud", "config", "cfg", map[string]string{"region": "eu"})
	r := NewReconciler(store, preset, nil, false, zap.NewNop())

	got, err := r.Resolve(Request{
		Ref:      config.ConfigMap("cfg", ""),
		Fields:   []Field{{Key: "region", Default: "us"}},
		Explicit: map[string]string{"region": "sa"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sa", got["region"])
}

func TestAttendedPrompts(t *testing.T) {
	store := newTestStore(t)
	ref := config.ConfigMap("cfg", "ns1")
	_, err := store.Set(ref, config.SetRequest{Values: map[string]string{"region": "ap", "other": "kept"}})
	require.NoError(t, err)

	p := &fakePrompter{
		texts:    map[string]string{"size": "xl"},
		confirms: map[string]bool{"debug": true},
	}
	r := NewReconciler(store, nil, p, true, zap.NewNop())
	r.readFile = func(path string) ([]byte, error) {
		if path == "/tmp/cert.pem" {
			return []byte("PEM"), nil
		}
		return nil, errors.New("no such file")
	}
	p.texts["cert (path to file)"] = "/tmp/cert.pem"

	obj, err := r.Apply(Request{Ref: ref, Fields: []Field{
		{Key: "region", Default: "us"},
		{Key: "size", Default: "s"},
		{Key: "debug", Default: "false", Bool: true},
		{Key: "cert", FromFile: true},
	}})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{
		"region": "ap",
		"size":   "xl",
		"debug":  "true",
		"cert":   "PEM",
		"other":  "kept",
	}, obj.Values)
	assert.Equal(t, "ap", p.defaults["region"], "saved value is the implicit answer")
	assert.Equal(t, []string{"region", "size", "debug", "cert (path to file)"}, p.asked)
}

func TestPromptErrorStopsBeforeWrite(t *testing.T) {
	store := newTestStore(t)
	p := &fakePrompter{err: errors.New("interrupted")}
	r := NewReconciler(store, nil, p, true, zap.NewNop())

	_, err := r.Apply(Request{Ref: config.ConfigMap("cfg", "ns1"), Fields: []Field{{Key: "region"}}})
	require.Error(t, err)

	exists, err := store.Exists(config.ConfigMap("cfg", "ns1"))
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestBoolFieldsStoreTrueOrFalse(t *testing.T) {
	store := newTestStore(t)
	ref := config.ConfigMap("cfg", "ns1")
	_, err := store.Set(ref, config.SetRequest{Key: "saved", Value: "T"})
	require.NoError(t, err)
	fields := []Field{
		{Key: "saved", Default: "false", Bool: true},
		{Key: "on", Default: "1", Bool: true},
		{Key: "off", Default: "F", Bool: true},
	}
	want := map[string]string{"saved": "true", "on": "true", "off": "false"}

	t.Run("unattended", func(t *testing.T) {
		r := NewReconciler(store, nil, nil, false, zap.NewNop())
		got, err := r.Resolve(Request{Ref: ref, Fields: fields})
		require.NoError(t, err)
		assert.Equal(t, want, got)
	})

	t.Run("attended", func(t *testing.T) {
		p := &fakePrompter{}
		r := NewReconciler(store, nil, p, true, zap.NewNop())
		got, err := r.Resolve(Request{Ref: ref, Fields: fields})
		require.NoError(t, err)
		assert.Equal(t, want, got)
		assert.Equal(t, []string{"saved", "on", "off"}, p.asked)
	})

	t.Run("preset", func(t *testing.T) {
		preset := presetFile("ns1", "config", "cfg", map[string]string{"saved": "False"})
		r := NewReconciler(store, preset, nil, false, zap.NewNop())
		got, err := r.Resolve(Request{Ref: ref, Fields: fields})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"saved": "false", "on": "true", "off": "false"}, got)
	})
}
