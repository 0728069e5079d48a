package domain

import (
	"strings"
	"time"
)

// InferenceRequest is the body accepted by /summarize and /generate
type InferenceRequest struct {
	Prompt string `json:"prompt"`
}

// InferenceResponse is the success body, the field name is part of the wire
// contract with existing clients
type InferenceResponse struct {
	Text string `json:"texto_gerado"`
}

type ErrorResponse struct {
	Detail string `json:"detail"`
}

// InferenceParams are generation options forwarded to whichever backend runs
// the call (temperature, max_tokens, top_p, stop...)
type InferenceParams map[string]any

// Merge returns a copy of p with override applied on top
func (p InferenceParams) Merge(override InferenceParams) InferenceParams {
	out := make(InferenceParams, len(p)+len(override))
	for k, v := range p {
		out[k] = v
	}
	for k, v := range override {
		out[k] = v
	}
	return out
}

// InferenceCall is one unit of work handed to an executor
type InferenceCall struct {
	Service *ServiceDescriptor
	Params  InferenceParams
	Prompt  string
	Timeout time.Duration
}

// RetrievedContext holds passages ordered by relevance, most relevant first
type RetrievedContext []string

const PassageSeparator = "\n\n"

// Join concatenates the passages in order, separated by a blank line
func (rc RetrievedContext) Join() string {
	return strings.Join(rc, PassageSeparator)
}

func (rc RetrievedContext) IsEmpty() bool {
	return len(rc) == 0
}

// LocalModelInfo is read from the GGUF header when a local model is loaded
type LocalModelInfo struct {
	Path          string `json:"path"`
	Version       uint32 `json:"gguf_version"`
	TensorCount   uint64 `json:"tensor_count"`
	MetadataCount uint64 `json:"metadata_count"`
	SizeBytes     int64  `json:"size_bytes"`
}
