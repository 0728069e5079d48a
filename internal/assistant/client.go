package assistant

/*
	GatewayClient is the only way the assistant talks to the gateway. It
	never returns an error: every failure becomes display text starting
	with "ERROR" so an interactive session always has something to show.
	Do also reports the failure kind for callers that want to act on it.
*/

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/logger"
	"github.com/mineradorx/relay/internal/util"
)

const (
	EndpointSummarize = "summarize"
	EndpointGenerate  = "generate"

	ErrorPrefix = "ERROR"

	maxDetailChars = 300
)

// CallResult is the outcome of one gateway call. On failure Text holds the
// ERROR message and Kind says what went wrong.
type CallResult struct {
	Text      string
	RequestID string
	Status    int
	Kind      domain.ErrorKind
}

func (r CallResult) Failed() bool {
	return r.Kind != domain.ErrorKindUnknown
}

type GatewayClient struct {
	client  *http.Client
	logger  *logger.StyledLogger
	baseURL string
}

func NewGatewayClient(baseURL string, timeout time.Duration, logger *logger.StyledLogger) *GatewayClient {
	if timeout <= 0 {
		timeout = constants.DefaultClientTimeout
	}
	if baseURL == "" {
		baseURL = constants.DefaultGatewayURL
	}
	return &GatewayClient{
		client:  &http.Client{Timeout: timeout},
		logger:  logger,
		baseURL: util.NormaliseBaseURL(baseURL),
	}
}

// Call returns the generated text or an ERROR string, never both
func (g *GatewayClient) Call(ctx context.Context, endpoint, prompt string) string {
	return g.Do(ctx, endpoint, prompt).Text
}

func (g *GatewayClient) Do(ctx context.Context, endpoint, prompt string) CallResult {
	endpoint = strings.Trim(endpoint, "/")
	target := g.baseURL + "/" + endpoint
	requestID := uuid.NewString()

	result := g.do(ctx, endpoint, target, requestID, prompt)
	result.RequestID = requestID

	if result.Failed() {
		g.logger.Warn("Gateway call failed", "endpoint", endpoint, "request_id", requestID,
			"kind", result.Kind, "status", result.Status)
	} else {
		g.logger.Debug("Gateway call completed", "endpoint", endpoint, "request_id", requestID,
			"chars", len(result.Text))
	}
	return result
}

func (g *GatewayClient) do(ctx context.Context, endpoint, target, requestID, prompt string) CallResult {
	body, err := jsoniter.Marshal(domain.InferenceRequest{Prompt: prompt})
	if err != nil {
		return failure(domain.ErrorKindClientTransport, 0, "%s: could not encode request to /%s: %v", ErrorPrefix, endpoint, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return failure(domain.ErrorKindClientTransport, 0, "%s: connection to /%s failed: %v", ErrorPrefix, endpoint, err)
	}
	req.Header.Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	req.Header.Set(constants.HeaderXRequestID, requestID)

	resp, err := g.client.Do(req)
	if err != nil {
		if isTimeout(err) {
			return failure(domain.ErrorKindClientTransport, 0, "%s: request to /%s timed out", ErrorPrefix, endpoint)
		}
		return failure(domain.ErrorKindClientTransport, 0, "%s: connection to /%s failed: %v", ErrorPrefix, endpoint, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		if isTimeout(err) {
			return failure(domain.ErrorKindClientTransport, resp.StatusCode, "%s: request to /%s timed out", ErrorPrefix, endpoint)
		}
		return failure(domain.ErrorKindClientTransport, resp.StatusCode, "%s: connection to /%s failed: %v", ErrorPrefix, endpoint, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return failure(kindForStatus(resp.StatusCode), resp.StatusCode, "%s: /%s returned HTTP %d: %s",
			ErrorPrefix, endpoint, resp.StatusCode, errorDetail(resp.StatusCode, raw))
	}

	text := gjson.GetBytes(raw, "texto_gerado")
	if !gjson.ValidBytes(raw) || text.Type != gjson.String {
		return failure(domain.ErrorKindBackendFailure, resp.StatusCode, "%s: invalid response from /%s", ErrorPrefix, endpoint)
	}
	return CallResult{Text: text.String(), Status: resp.StatusCode}
}

func failure(kind domain.ErrorKind, status int, format string, args ...any) CallResult {
	return CallResult{
		Text:   fmt.Sprintf(format, args...),
		Status: status,
		Kind:   kind,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func kindForStatus(status int) domain.ErrorKind {
	switch status {
	case http.StatusNotFound:
		return domain.ErrorKindNotFound
	case http.StatusServiceUnavailable:
		return domain.ErrorKindUnavailable
	case http.StatusRequestTimeout:
		return domain.ErrorKindTimeout
	case http.StatusNotImplemented:
		return domain.ErrorKindNotImplemented
	default:
		return domain.ErrorKindBackendFailure
	}
}

// errorDetail prefers the gateway's {"detail"} and falls back to the body
func errorDetail(status int, raw []byte) string {
	if detail := gjson.GetBytes(raw, "detail"); detail.Type == gjson.String {
		return detail.String()
	}
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return http.StatusText(status)
	}
	if len(text) > maxDetailChars {
		text = text[:maxDetailChars] + "..."
	}
	return text
}
