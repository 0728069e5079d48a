package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mineradorx/relay/internal/core/domain"
)

// ServiceEntry is one logical service as persisted on disk
type ServiceEntry struct {
	Type         string `yaml:"type"`
	LocalPath    string `yaml:"local_path,omitempty"`
	CloudModelID string `yaml:"cloud_model_id,omitempty"`
}

// ServicesFile is the persisted service registry plus the inference settings
// shared by every service
type ServicesFile struct {
	Services          map[string]ServiceEntry `yaml:"services"`
	InferenceDefaults map[string]any          `yaml:"inference_defaults"`
	LocalLoadParams   map[string]any          `yaml:"local_load_params"`
}

// DefaultServicesFile is used when nothing has been persisted yet
func NewDefaultServicesFile() *ServicesFile {
	return &ServicesFile{
		Services: map[string]ServiceEntry{},
		InferenceDefaults: map[string]any{
			"temperature": 0.7,
			"max_tokens":  1024,
		},
		LocalLoadParams: map[string]any{
			"n_ctx":        4096,
			"n_gpu_layers": 0,
		},
	}
}

// LoadServices reads the services file at path
func LoadServices(path string) (*ServicesFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading services file %s: %w", path, err)
	}

	sf := NewDefaultServicesFile()
	if err := yaml.Unmarshal(data, sf); err != nil {
		return nil, fmt.Errorf("parsing services file %s: %w", path, err)
	}
	if sf.Services == nil {
		sf.Services = map[string]ServiceEntry{}
	}
	return sf, nil
}

// SaveServices writes the file atomically, creating parent directories
func SaveServices(path string, sf *ServicesFile) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating services directory: %w", err)
		}
	}

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(sf); err != nil {
		return fmt.Errorf("encoding services file: %w", err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("encoding services file: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".services-*.yaml")
	if err != nil {
		return fmt.Errorf("creating temp services file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("writing services file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing services file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replacing services file: %w", err)
	}
	return nil
}

// Descriptors converts the known services into descriptors in display order.
// Names outside the fixed set are returned separately so callers can warn.
func (sf *ServicesFile) Descriptors() (descs []*domain.ServiceDescriptor, ignored []string) {
	for _, name := range domain.KnownServices() {
		entry, ok := sf.Services[string(name)]
		if !ok {
			continue
		}
		descs = append(descs, entry.Descriptor(name))
	}

	for name := range sf.Services {
		if !domain.ServiceName(name).IsKnown() {
			ignored = append(ignored, name)
		}
	}
	sort.Strings(ignored)
	return descs, ignored
}

// Missing lists the fixed services the file doesn't configure
func (sf *ServicesFile) Missing() []domain.ServiceName {
	var missing []domain.ServiceName
	for _, name := range domain.KnownServices() {
		if _, ok := sf.Services[string(name)]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// Set stores a descriptor, clearing whichever backend field doesn't apply
func (sf *ServicesFile) Set(desc *domain.ServiceDescriptor) {
	if sf.Services == nil {
		sf.Services = map[string]ServiceEntry{}
	}
	entry := ServiceEntry{Type: string(desc.Kind)}
	switch desc.Kind {
	case domain.BackendLocal:
		entry.LocalPath = desc.LocalPath
	case domain.BackendCloud:
		entry.CloudModelID = desc.CloudModelID
	default:
		entry.LocalPath = desc.LocalPath
		entry.CloudModelID = desc.CloudModelID
	}
	sf.Services[string(desc.Name)] = entry
}

func (e ServiceEntry) Descriptor(name domain.ServiceName) *domain.ServiceDescriptor {
	return &domain.ServiceDescriptor{
		Name:         name,
		Kind:         domain.BackendKind(e.Type),
		LocalPath:    e.LocalPath,
		CloudModelID: e.CloudModelID,
	}
}
