package assistant

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

const (
	TemplateSummarization = "summarization"
	TemplateRAGGeneration = "rag_generation"
)

type PromptTemplate struct {
	Description string `yaml:"description"`
	Template    string `yaml:"template"`
}

// Templates are named prompts with {placeholder} substitution
type Templates struct {
	templates map[string]PromptTemplate
}

// LoadPrompts reads prompts.yaml and fails if any required template is missing
func LoadPrompts(path string, required ...string) (*Templates, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading prompts file: %w", err)
	}

	var templates map[string]PromptTemplate
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("parsing prompts file %s: %w", path, err)
	}

	t := NewTemplates(templates)
	var missing []string
	for _, name := range required {
		if strings.TrimSpace(t.templates[name].Template) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("prompts file %s is missing templates: %s", path, strings.Join(missing, ", "))
	}
	return t, nil
}

func NewTemplates(templates map[string]PromptTemplate) *Templates {
	if templates == nil {
		templates = map[string]PromptTemplate{}
	}
	return &Templates{templates: templates}
}

// Render substitutes every {key} in one pass, so placeholder-looking text
// inside a value is left alone
func (t *Templates) Render(name string, vars map[string]string) (string, error) {
	tpl, ok := t.templates[name]
	if !ok {
		return "", fmt.Errorf("prompt template %q not found", name)
	}

	keys := make([]string, 0, len(vars))
	for k := range vars {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	pairs := make([]string, 0, len(vars)*2)
	for _, k := range keys {
		pairs = append(pairs, "{"+k+"}", vars[k])
	}
	return strings.NewReplacer(pairs...).Replace(tpl.Template), nil
}

func (t *Templates) Names() []string {
	names := make([]string, 0, len(t.templates))
	for name := range t.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
