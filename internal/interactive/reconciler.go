// Package interactive resolves configuration values from explicit input,
// preset answers, a human at the terminal, saved values and defaults, and
// writes the result to the config store.
package interactive

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"strconv"

	"go.uber.org/zap"

	"ckan-cloud-operator/internal/config"
	"ckan-cloud-operator/pkg/answers"
)

// ErrAnswerFileResolution indicates a preset run with no answer and no
// default for a key.
var ErrAnswerFileResolution = errors.New("answer file resolution failed")

// Field is one key to resolve. A non-empty Default counts as supplied.
type Field struct {
	Key     string
	Default string
	// Bool renders a yes/no prompt and stores "true" or "false".
	Bool bool
	// FromFile prompts for a path and stores the file's contents.
	FromFile bool
}

// Request is a batch of fields for one config object.
type Request struct {
	Ref    config.Ref
	Fields []Field
	// Explicit values win over every other source.
	Explicit    map[string]string
	ExtraLabels map[string]string
}

// Reconciler resolves Requests against the store.
type Reconciler struct {
	store    *config.Store
	answers  *answers.File
	prompter Prompter
	attended bool
	logger   *zap.Logger
	readFile func(string) ([]byte, error)
}

// NewReconciler creates a Reconciler. A non-nil preset makes every run a
// preset run; otherwise prompter is used when attended is true.
func NewReconciler(store *config.Store, preset *answers.File, prompter Prompter, attended bool, logger *zap.Logger) *Reconciler {
	return &Reconciler{
		store:    store,
		answers:  preset,
		prompter: prompter,
		attended: attended,
		logger:   logger,
		readFile: os.ReadFile,
	}
}

// Resolve returns the value of every field in req without writing anything.
func (r *Reconciler) Resolve(req Request) (map[string]string, error) {
	saved, err := r.store.GetAll(req.Ref)
	if err != nil {
		return nil, err
	}
	ns, section, subsection := r.answerPath(req.Ref)
	presets := r.answers.Subsection(ns, section, subsection)

	out := make(map[string]string, len(req.Fields))
	for _, f := range req.Fields {
		if v, ok := req.Explicit[f.Key]; ok {
			out[f.Key] = v
			continue
		}
		var v string
		switch {
		case r.answers != nil:
			v, err = r.preset(f, presets, ns, section, subsection)
		case r.attended && r.prompter != nil:
			v, err = r.prompt(f, saved)
		default:
			v = fallback(f, saved)
		}
		if err != nil {
			return nil, err
		}
		out[f.Key] = v
	}
	return out, nil
}

// Apply resolves req, merges the result into the saved values and stores it.
func (r *Reconciler) Apply(req Request) (config.Object, error) {
	resolved, err := r.Resolve(req)
	if err != nil {
		return config.Object{}, err
	}
	values, err := r.store.GetAll(req.Ref)
	if err != nil {
		return config.Object{}, err
	}
	maps.Copy(values, resolved)
	return r.store.Set(req.Ref, config.SetRequest{Values: values, ExtraLabels: req.ExtraLabels})
}

func (r *Reconciler) answerPath(ref config.Ref) (ns, section, subsection string) {
	ns = ref.Namespace
	if ns == "" {
		ns = r.store.Namespace()
	}
	if ref.SecretName != "" {
		return ns, answers.SectionSecrets, ref.SecretName
	}
	return ns, answers.SectionConfig, ref.ConfigMapName
}

func (r *Reconciler) preset(f Field, presets map[string]string, ns, section, subsection string) (string, error) {
	if v, ok := presets[f.Key]; ok {
		return normalize(f, v), nil
	}
	if f.Default != "" {
		r.logger.Warn("no preset answer, using default",
			zap.String("namespace", ns), zap.String("section", section),
			zap.String("subsection", subsection), zap.String("key", f.Key))
		return normalize(f, f.Default), nil
	}
	return "", fmt.Errorf("%w: %s.%s.%s.%s", ErrAnswerFileResolution, ns, section, subsection, f.Key)
}

func (r *Reconciler) prompt(f Field, saved map[string]string) (string, error) {
	current := fallback(f, saved)
	switch {
	case f.Bool:
		def, _ := strconv.ParseBool(current)
		yes, err := r.prompter.Confirm(f.Key, def)
		if err != nil {
			return "", fmt.Errorf("prompt %s: %w", f.Key, err)
		}
		return strconv.FormatBool(yes), nil
	case f.FromFile:
		path, err := r.prompter.Text(f.Key+" (path to file)", "")
		if err != nil {
			return "", fmt.Errorf("prompt %s: %w", f.Key, err)
		}
		if path == "" {
			return current, nil
		}
		data, err := r.readFile(path)
		if err != nil {
			return "", fmt.Errorf("read %s for %s: %w", path, f.Key, err)
		}
		return string(data), nil
	default:
		v, err := r.prompter.Text(f.Key, current)
		if err != nil {
			return "", fmt.Errorf("prompt %s: %w", f.Key, err)
		}
		if v == "" {
			return current, nil
		}
		return v, nil
	}
}

func fallback(f Field, saved map[string]string) string {
	if v, ok := saved[f.Key]; ok {
		return normalize(f, v)
	}
	return normalize(f, f.Default)
}

// normalize spells parseable values of bool fields as "true" or "false".
func normalize(f Field, v string) string {
	if !f.Bool {
		return v
	}
	if b, err := strconv.ParseBool(v); err == nil {
		return strconv.FormatBool(b)
	}
	return v
}
