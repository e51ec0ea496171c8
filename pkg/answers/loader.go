package answers

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Load reads path as a single answer file, or as a directory of them.
func Load(path string) (*File, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat answer file: %w", err)
	}
	if info.IsDir() {
		return LoadFromDirectory(path)
	}
	return LoadFromFile(path)
}

// LoadFromFile reads a single answer YAML file. Scalar answers of any YAML
// type are kept as the text written in the file; null becomes "".
func LoadFromFile(filePath string) (*File, error) {
	cleanPath := filepath.Clean(filePath)
	// #nosec G304 -- path is user-supplied for local answer loading.
	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}

	var raw map[string]map[string]map[string]map[string]yaml.Node
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	file := &File{Namespaces: map[string]map[string]map[string]map[string]string{}}
	for ns, sections := range raw {
		for section, subsections := range sections {
			for subsection, values := range subsections {
				for key, value := range values {
					s, err := scalar(value)
					if err != nil {
						return nil, fmt.Errorf("%s.%s.%s.%s: %w", ns, section, subsection, key, err)
					}
					file.set(ns, section, subsection, key, s)
				}
			}
		}
	}
	return file, nil
}

func scalar(n yaml.Node) (string, error) {
	for n.Kind == yaml.AliasNode && n.Alias != nil {
		n = *n.Alias
	}
	switch {
	case n.Kind == yaml.ScalarNode && n.Tag == "!!null":
		return "", nil
	case n.Kind == yaml.ScalarNode:
		return n.Value, nil
	default:
		return "", fmt.Errorf("answer must be a scalar, got %s", kindName(n.Kind))
	}
}

func kindName(k yaml.Kind) string {
	switch k {
	case yaml.SequenceNode:
		return "sequence"
	case yaml.MappingNode:
		return "mapping"
	default:
		return fmt.Sprintf("kind %d", k)
	}
}

// LoadFromDirectory merges all .yaml/.yml answer files in a directory. Files
// are read in name order and later files override earlier ones.
func LoadFromDirectory(dirPath string) (*File, error) {
	files, err := filepath.Glob(filepath.Join(dirPath, "*.yaml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	ymlFiles, err := filepath.Glob(filepath.Join(dirPath, "*.yml"))
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	files = append(files, ymlFiles...)
	sort.Strings(files)

	merged := &File{Namespaces: map[string]map[string]map[string]map[string]string{}}
	for _, file := range files {
		f, err := LoadFromFile(file)
		if err != nil {
			return nil, fmt.Errorf("failed to load %s: %w", file, err)
		}
		merged.merge(f)
	}
	return merged, nil
}
