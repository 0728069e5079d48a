package domain

import (
	"fmt"
	"path/filepath"
	"strings"
)

type ServiceName string

const (
	ServiceSummarizer       ServiceName = "summarizer"
	ServicePrimaryGenerator ServiceName = "primary_generator"
)

// KnownServices is the fixed set of logical services, in display order
func KnownServices() []ServiceName {
	return []ServiceName{ServiceSummarizer, ServicePrimaryGenerator}
}

func (n ServiceName) String() string {
	return string(n)
}

func (n ServiceName) IsKnown() bool {
	for _, known := range KnownServices() {
		if n == known {
			return true
		}
	}
	return false
}

type BackendKind string

const (
	BackendLocal BackendKind = "local"
	BackendCloud BackendKind = "cloud"
)

func (k BackendKind) String() string {
	return string(k)
}

// ServiceDescriptor binds a logical service to one backend. Exactly one of
// LocalPath or CloudModelID is set, matching Kind. Kinds other than local
// and cloud are carried through so dispatch can reject them explicitly.
type ServiceDescriptor struct {
	Name         ServiceName `json:"name"`
	Kind         BackendKind `json:"type"`
	LocalPath    string      `json:"local_path,omitempty"`
	CloudModelID string      `json:"cloud_model_id,omitempty"`
}

func (d *ServiceDescriptor) Validate() error {
	if d.Name == "" {
		return &ConfigValidationError{Field: "name", Value: d.Name, Reason: "service name is required"}
	}

	hasLocal := strings.TrimSpace(d.LocalPath) != ""
	hasCloud := strings.TrimSpace(d.CloudModelID) != ""

	if hasLocal && hasCloud {
		return &ConfigValidationError{
			Field:  string(d.Name),
			Value:  d.Kind,
			Reason: "only one of local_path or cloud_model_id may be set",
		}
	}

	switch d.Kind {
	case BackendLocal:
		if !hasLocal {
			return &ConfigValidationError{Field: string(d.Name) + ".local_path", Value: d.LocalPath, Reason: "local services need a model path"}
		}
	case BackendCloud:
		if !hasCloud {
			return &ConfigValidationError{Field: string(d.Name) + ".cloud_model_id", Value: d.CloudModelID, Reason: "cloud services need a model id"}
		}
	case "":
		return &ConfigValidationError{Field: string(d.Name) + ".type", Value: d.Kind, Reason: "backend type is required"}
	}

	return nil
}

// ModelLabel is the human readable model name: file name for local models,
// model id for cloud ones
func (d *ServiceDescriptor) ModelLabel() string {
	switch {
	case d.LocalPath != "":
		return filepath.Base(d.LocalPath)
	case d.CloudModelID != "":
		return d.CloudModelID
	default:
		return "unconfigured"
	}
}

func (d *ServiceDescriptor) Clone() *ServiceDescriptor {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func (d *ServiceDescriptor) String() string {
	return fmt.Sprintf("%s[%s:%s]", d.Name, d.Kind, d.ModelLabel())
}

type ConfigValidationError struct {
	Field  string
	Value  interface{}
	Reason string
}

func (e *ConfigValidationError) Error() string {
	return fmt.Sprintf("invalid configuration for %s=%v: %s", e.Field, e.Value, e.Reason)
}
