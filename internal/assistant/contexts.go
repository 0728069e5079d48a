package assistant

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

// ContextDef is one knowledge base the user can chat with
type ContextDef struct {
	ID          string `yaml:"-"`
	DisplayName string `yaml:"display_name"`
	Collection  string `yaml:"collection"`
}

type contextsFile struct {
	Contexts map[string]ContextDef `yaml:"contexts"`
}

// LoadContexts reads contexts.yaml, returned in id order. The collection
// defaults to the id.
func LoadContexts(path string) ([]ContextDef, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading contexts file: %w", err)
	}

	var file contextsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing contexts file %s: %w", path, err)
	}

	out := make([]ContextDef, 0, len(file.Contexts))
	for id, def := range file.Contexts {
		def.ID = id
		if def.Collection == "" {
			def.Collection = id
		}
		if def.DisplayName == "" {
			def.DisplayName = id
		}
		out = append(out, def)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
