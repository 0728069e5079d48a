package embedding

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/util"
)

// Client calls an OpenAI-compatible /embeddings endpoint. Ollama's native
// {"embedding": [...]} shape is accepted too.
type Client struct {
	client   *http.Client
	endpoint string
	model    string
	apiKey   string
}

type Options struct {
	BaseURL string
	Model   string
	APIKey  string
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

func NewClient(client *http.Client, opts Options) *Client {
	return &Client{
		client:   client,
		endpoint: util.JoinURLPath(opts.BaseURL, constants.PathEmbeddings),
		model:    opts.Model,
		apiKey:   strings.TrimSpace(opts.APIKey),
	}
}

func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := jsoniter.Marshal(embeddingRequest{Input: text, Model: c.model})
	if err != nil {
		return nil, fmt.Errorf("encoding embedding request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building embedding request: %w", err)
	}
	req.Header.Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading embedding response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("embedding request failed: HTTP %d", resp.StatusCode)
	}

	vector := gjson.GetBytes(raw, "data.0.embedding")
	if !vector.IsArray() {
		vector = gjson.GetBytes(raw, "embedding")
	}
	if !vector.IsArray() {
		return nil, fmt.Errorf("no embedding in response")
	}

	values := vector.Array()
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v.Float()
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("empty embedding in response")
	}
	return out, nil
}
