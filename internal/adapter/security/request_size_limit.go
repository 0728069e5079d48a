package security

/*
				Relay Security Adapter - Size Limit Validator
	SizeValidator rejects oversized prompts and headers before any inference
	work starts. Bodies that lie about their Content-Length are capped with
	http.MaxBytesReader so the JSON decoder fails instead of buffering them.

	No mutable state, safe for concurrent use.
*/

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/docker/go-units"

	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/ports"
	"github.com/mineradorx/relay/internal/logger"
)

const DefaultProtocol = "HTTP/1.1"

type SizeValidator struct {
	recorder      ViolationRecorder
	logger        *logger.StyledLogger
	maxBodySize   int64
	maxHeaderSize int64
}

func NewSizeValidator(limits config.ServerRequestLimits, recorder ViolationRecorder, logger *logger.StyledLogger) *SizeValidator {
	return &SizeValidator{
		maxBodySize:   limits.MaxBodySize,
		maxHeaderSize: limits.MaxHeaderSize,
		recorder:      recorder,
		logger:        logger,
	}
}

func (sv *SizeValidator) Name() string {
	return constants.ViolationSizeLimit
}

func (sv *SizeValidator) Validate(ctx context.Context, req ports.SecurityRequest) (ports.SecurityResult, error) {
	if sv.maxHeaderSize > 0 && req.HeaderSize > sv.maxHeaderSize {
		return ports.SecurityResult{
			Allowed:    false,
			Reason:     fmt.Sprintf("Request headers too large: %s exceeds %s", humanSize(req.HeaderSize), humanSize(sv.maxHeaderSize)),
			StatusCode: http.StatusRequestHeaderFieldsTooLarge,
		}, nil
	}

	if sv.maxBodySize > 0 && req.BodySize > sv.maxBodySize {
		return ports.SecurityResult{
			Allowed:    false,
			Reason:     fmt.Sprintf("Request body too large: %s exceeds %s", humanSize(req.BodySize), humanSize(sv.maxBodySize)),
			StatusCode: http.StatusRequestEntityTooLarge,
		}, nil
	}

	return ports.SecurityResult{Allowed: true}, nil
}

func (sv *SizeValidator) CreateMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			req := ports.SecurityRequest{
				Endpoint:   r.URL.Path,
				Method:     r.Method,
				BodySize:   r.ContentLength,
				HeaderSize: estimateHeaderSize(r.Header, r.Method, r.URL.RequestURI(), r.Proto),
				Headers:    r.Header,
			}

			result, err := sv.Validate(r.Context(), req)
			if err != nil {
				writeDetail(w, http.StatusInternalServerError, "Internal server error")
				return
			}

			if !result.Allowed {
				sv.logger.Warn("Request rejected",
					"reason", result.Reason,
					"method", r.Method,
					"path", r.URL.Path,
					"remote_addr", r.RemoteAddr)

				if sv.recorder != nil {
					sv.recorder.RecordSecurityViolation(ports.SecurityViolation{
						ClientID:      r.RemoteAddr,
						ViolationType: constants.ViolationSizeLimit,
						Endpoint:      r.URL.Path,
						Size:          r.ContentLength,
						Timestamp:     time.Now(),
					})
				}

				writeDetail(w, result.StatusCode, result.Reason)
				return
			}

			if sv.maxBodySize > 0 {
				r.Body = http.MaxBytesReader(w, r.Body, sv.maxBodySize)
			}

			next.ServeHTTP(w, r)
		})
	}
}

func estimateHeaderSize(headers http.Header, method, uri, proto string) int64 {
	if proto == "" {
		proto = DefaultProtocol
	}
	totalSize := int64(len(method) + len(uri) + len(proto) + 4) // request line

	for name, values := range headers {
		for _, value := range values {
			totalSize += int64(len(name) + len(value) + 4) // ": " and CRLF
		}
	}

	return totalSize
}

func humanSize(n int64) string {
	return units.HumanSize(float64(n))
}
