package handlers

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/mineradorx/relay/internal/app/middleware"
	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/logger"
)

// inferenceRequest uses a pointer so a missing prompt can be told apart
// from an empty one
type inferenceRequest struct {
	Prompt *string `json:"prompt"`
}

// inferenceHandler serves one logical service: decode {"prompt"}, dispatch,
// answer {"texto_gerado"} or {"detail"} with the mapped status
func (a *Application) inferenceHandler(service domain.ServiceName) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := middleware.GetRequestID(r.Context())
		log := a.logger.WithRequestID(requestID)

		prompt, status, detail := decodePrompt(r)
		if status != 0 {
			log.Warn("Rejected inference request", "service", service, "status", status, "detail", detail)
			a.writeDetail(w, status, detail)
			return
		}

		log.InfoWithContext("Inference request", service.String(), logger.LogContext{
			UserArgs:     []any{"prompt_chars", len(prompt)},
			DetailedArgs: []any{"prompt", prompt},
		})

		ctx := context.WithValue(r.Context(), constants.ContextRequestIdKey, requestID)
		ctx = context.WithValue(ctx, constants.ContextServiceKey, service.String())

		text, err := a.dispatcher.Infer(ctx, service, prompt)
		if err != nil {
			code := domain.StatusOf(err)
			log.ErrorWithContext("Inference request failed", service.String(), logger.LogContext{
				UserArgs:     []any{"status", code, "duration", time.Since(start).Round(time.Millisecond), "error", err},
				DetailedArgs: []any{"kind", domain.KindOf(err), "prompt_chars", len(prompt)},
			})
			a.writeDetail(w, code, err.Error())
			return
		}

		log.InfoWithService("Inference request completed", service.String(),
			"duration", time.Since(start).Round(time.Millisecond), "response_chars", len(text))
		a.writeJSON(w, http.StatusOK, domain.InferenceResponse{Text: text})
	}
}

// decodePrompt returns a non-zero status when the body can't be used
func decodePrompt(r *http.Request) (string, int, string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return "", http.StatusRequestEntityTooLarge, "Request body too large"
		}
		return "", http.StatusBadRequest, "failed to read request body"
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return "", http.StatusUnprocessableEntity, "request body is required"
	}

	var req inferenceRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", http.StatusUnprocessableEntity, "invalid request body: " + err.Error()
	}

	if req.Prompt == nil {
		return "", http.StatusUnprocessableEntity, "field 'prompt' is required"
	}
	return *req.Prompt, 0, ""
}
