package cli

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"sigs.k8s.io/yaml"

	"ckan-cloud-operator/internal/config"
)

// writeYAML renders v as YAML.
func writeYAML(w io.Writer, v any) error {
	data, err := yaml.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to render YAML: %w", err)
	}
	_, err = w.Write(data)
	return err
}

// objectView is how a config object is shown to users. Secret values are
// masked unless showSecrets.
type objectView struct {
	Kind        config.Kind       `json:"kind"`
	Namespace   string            `json:"namespace"`
	Name        string            `json:"name"`
	Labels      map[string]string `json:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty"`
	Values      map[string]string `json:"values"`
}

func viewOf(obj config.Object, showSecrets bool) objectView {
	values := obj.Values
	if obj.Key.Kind == config.KindSecret && !showSecrets {
		values = make(map[string]string, len(obj.Values))
		for k := range obj.Values {
			values[k] = "********"
		}
	}
	return objectView{
		Kind:        obj.Key.Kind,
		Namespace:   obj.Key.Namespace,
		Name:        obj.Key.Name,
		Labels:      obj.Labels,
		Annotations: obj.Annotations,
		Values:      values,
	}
}

// formatLabels renders a label set as sorted "k=v" pairs.
func formatLabels(set map[string]string) string {
	pairs := make([]string, 0, len(set))
	for k, v := range set {
		pairs = append(pairs, k+"="+v)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}
