// Package answers loads preset answer files used for unattended
// configuration runs.
package answers

import "maps"

// Section names inside a namespace.
const (
	SectionConfig  = "config"
	SectionSecrets = "secrets"
)

// File is a parsed answer file, keyed namespace → section → subsection → key.
// The subsection is the name of the config object the answers are for.
type File struct {
	Namespaces map[string]map[string]map[string]map[string]string
}

// Subsection returns a copy of every answer for one config object. A nil
// File has no answers.
func (f *File) Subsection(namespace, section, subsection string) map[string]string {
	if f == nil {
		return nil
	}
	return maps.Clone(f.Namespaces[namespace][section][subsection])
}

// merge copies every answer of other into f, overriding existing keys.
func (f *File) merge(other *File) {
	if f.Namespaces == nil {
		f.Namespaces = map[string]map[string]map[string]map[string]string{}
	}
	for ns, sections := range other.Namespaces {
		for section, subsections := range sections {
			for subsection, values := range subsections {
				for key, value := range values {
					f.set(ns, section, subsection, key, value)
				}
			}
		}
	}
}

func (f *File) set(ns, section, subsection, key, value string) {
	sections, ok := f.Namespaces[ns]
	if !ok {
		sections = map[string]map[string]map[string]string{}
		f.Namespaces[ns] = sections
	}
	subsections, ok := sections[section]
	if !ok {
		subsections = map[string]map[string]string{}
		sections[section] = subsections
	}
	values, ok := subsections[subsection]
	if !ok {
		values = map[string]string{}
		subsections[subsection] = values
	}
	values[key] = value
}
