package handlers

import (
	"net/http"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
)

// registerRoutes sets up the complete HTTP routing table
func (a *Application) registerRoutes() {
	// internal endpoints first, they only read state
	a.routeRegistry.RegisterWithMethod(constants.DefaultHealthCheckEndpoint, a.healthHandler, "Health check endpoint", http.MethodGet)
	a.routeRegistry.RegisterWithMethod(constants.DefaultStatusEndpoint, a.servicesStatusHandler, "Service status", http.MethodGet)
	a.routeRegistry.RegisterWithMethod(constants.DefaultStatsEndpoint, a.servicesStatsHandler, "Service statistics", http.MethodGet)
	a.routeRegistry.RegisterWithMethod(constants.DefaultProcessEndpoint, a.processStatsHandler, "Process status", http.MethodGet)
	a.routeRegistry.RegisterWithMethod(constants.DefaultVersionEndpoint, a.versionHandler, "Relay version information", http.MethodGet)

	a.routeRegistry.RegisterInferenceRoute(constants.PathSummarize, a.inferenceHandler(domain.ServiceSummarizer), "Summarize with the summarizer service")
	a.routeRegistry.RegisterInferenceRoute(constants.PathGenerate, a.inferenceHandler(domain.ServicePrimaryGenerator), "Generate with the primary_generator service")
}
