package config

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

// Render executes tmpl with values as its data, with the sprig function set
// available. Keys that are not identifiers are reachable with index:
// {{ index . "db-host" }}.
func Render(tmpl string, values map[string]string) (string, error) {
	t, err := template.New("config").Funcs(sprig.TxtFuncMap()).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return "", fmt.Errorf("%w: parse template: %v", ErrInvalidArguments, err)
	}
	var sb strings.Builder
	if err := t.Execute(&sb, values); err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return sb.String(), nil
}

// RenderRef renders tmpl over every value of the object ref points at. opts
// apply to reading the object as they do for GetAll.
func (s *Store) RenderRef(ref Ref, tmpl string, opts ...GetOption) (string, error) {
	values, err := s.GetAll(ref, opts...)
	if err != nil {
		return "", err
	}
	return Render(tmpl, values)
}
