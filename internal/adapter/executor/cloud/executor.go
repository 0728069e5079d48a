package cloud

/*
	Relay Cloud Executor
	Sends one chat completion to an OpenAI-compatible API (OpenRouter by
	default) and returns choices[0].message.content. No retries: any
	non-2xx status, transport error or unexpected body is a backend failure
	carrying a truncated copy of what came back.
*/

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/logger"
	"github.com/mineradorx/relay/internal/util"
	"github.com/mineradorx/relay/internal/version"
)

const contentPath = "choices.0.message.content"

// fields the executor owns, params can't override them
var reservedFields = map[string]struct{}{
	"model":    {},
	"messages": {},
	"stream":   {},
}

type Options struct {
	BaseURL string
	APIKey  string
	Referer string
	Title   string
}

type Executor struct {
	client   *http.Client
	logger   *logger.StyledLogger
	endpoint string
	apiKey   string
	referer  string
	title    string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

func NewExecutor(client *http.Client, opts Options, logger *logger.StyledLogger) *Executor {
	base := opts.BaseURL
	if base == "" {
		base = constants.DefaultCloudBaseURL
	}
	title := opts.Title
	if title == "" {
		title = version.Name
	}

	return &Executor{
		client:   client,
		logger:   logger,
		endpoint: util.JoinURLPath(base, constants.PathChatCompletions),
		apiKey:   strings.TrimSpace(opts.APIKey),
		referer:  opts.Referer,
		title:    title,
	}
}

func (e *Executor) Kind() domain.BackendKind {
	return domain.BackendCloud
}

// Available is false when no API key was configured
func (e *Executor) Available(domain.ServiceName) bool {
	return e.apiKey != ""
}

func (e *Executor) Execute(ctx context.Context, call *domain.InferenceCall) (string, error) {
	name := call.Service.Name

	if e.apiKey == "" {
		return "", domain.NewUnavailableError(name, "cloud API key is not configured")
	}

	if call.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, call.Timeout)
		defer cancel()
	}

	body, err := buildRequestBody(call.Service.CloudModelID, call.Prompt, call.Params)
	if err != nil {
		return "", domain.NewBackendError(name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", domain.NewBackendError(name, err)
	}
	req.Header.Set(constants.HeaderAuthorization, "Bearer "+e.apiKey)
	req.Header.Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	req.Header.Set(constants.HeaderAccept, constants.ContentTypeJSON)
	req.Header.Set(constants.HeaderXTitle, e.title)
	if e.referer != "" {
		req.Header.Set(constants.HeaderReferer, e.referer)
	}
	if requestID, ok := ctx.Value(constants.ContextRequestIdKey).(string); ok && requestID != "" {
		req.Header.Set(constants.HeaderXRequestID, requestID)
	}

	start := time.Now()
	resp, err := e.client.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() != nil {
			return "", domain.NewBackendError(name, fmt.Errorf("cloud API did not respond within %s", call.Timeout))
		}
		return "", domain.NewBackendError(name, fmt.Errorf("cloud API request failed: %w", err))
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", domain.NewBackendError(name, fmt.Errorf("reading cloud API response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		e.logger.WarnWithService("Cloud API returned an error", name.String(),
			"status", resp.StatusCode, "model", call.Service.CloudModelID, "latency", time.Since(start))
		return "", domain.NewBackendError(name, fmt.Errorf("cloud API returned HTTP %d: %s", resp.StatusCode, snippet(raw)))
	}

	content := gjson.GetBytes(raw, contentPath)
	if !content.Exists() || content.Type != gjson.String {
		return "", domain.NewBackendError(name, fmt.Errorf("unexpected cloud API response: %s", snippet(raw)))
	}

	e.logger.Debug("Cloud completion received", "service", name, "model", call.Service.CloudModelID,
		"latency", time.Since(start), "bytes", len(raw))

	return content.Str, nil
}

func buildRequestBody(model, prompt string, params domain.InferenceParams) ([]byte, error) {
	payload := make(map[string]any, len(params)+2)
	for k, v := range params {
		if _, reserved := reservedFields[k]; reserved {
			continue
		}
		payload[k] = v
	}
	payload["model"] = model
	payload["messages"] = []chatMessage{{Role: "user", Content: prompt}}

	return jsoniter.ConfigCompatibleWithStandardLibrary.Marshal(payload)
}

func snippet(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > constants.BackendErrorSnippet {
		return s[:constants.BackendErrorSnippet] + "..."
	}
	return s
}
