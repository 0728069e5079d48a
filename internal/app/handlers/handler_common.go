package handlers

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

func (a *Application) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.logger.Error("Failed to encode response", "error", err)
	}
}

func (a *Application) writeDetail(w http.ResponseWriter, status int, detail string) {
	a.writeJSON(w, status, domain.ErrorResponse{Detail: detail})
}
