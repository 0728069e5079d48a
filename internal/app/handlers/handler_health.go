package handlers

import (
	"net/http"

	"github.com/mineradorx/relay/internal/core/constants"
)

var responseJSON = []byte(`{"status":"healthy"}`)

// healthHandler reports liveness only, use the status endpoint for models
func (a *Application) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(responseJSON)
}
