package handlers

import (
	"context"
	"time"

	"github.com/mineradorx/relay/internal/adapter/gateway"
	"github.com/mineradorx/relay/internal/adapter/security"
	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/core/ports"
	"github.com/mineradorx/relay/internal/logger"
	"github.com/mineradorx/relay/internal/router"
)

// Dispatcher is the inference entry point plus the per-service status view
type Dispatcher interface {
	Infer(ctx context.Context, service domain.ServiceName, prompt string) (string, error)
	Statuses() []gateway.ServiceStatus
}

// Application holds all the dependencies needed for the HTTP handlers
type Application struct {
	StartTime        time.Time
	Config           *config.Config
	logger           *logger.StyledLogger
	dispatcher       Dispatcher
	statsCollector   ports.StatsCollector
	securityAdapters *security.Adapters
	routeRegistry    *router.RouteRegistry
}

func NewApplication(
	cfg *config.Config,
	dispatcher Dispatcher,
	statsCollector ports.StatsCollector,
	securityAdapters *security.Adapters,
	logger *logger.StyledLogger,
) *Application {
	return &Application{
		Config:           cfg,
		logger:           logger,
		dispatcher:       dispatcher,
		statsCollector:   statsCollector,
		securityAdapters: securityAdapters,
		routeRegistry:    router.NewRouteRegistry(logger),
		StartTime:        time.Now(),
	}
}

// GetRouteRegistry returns the route registry for wiring up routes
func (a *Application) GetRouteRegistry() *router.RouteRegistry {
	return a.routeRegistry
}

// GetSecurityAdapters returns the security adapters for middleware
func (a *Application) GetSecurityAdapters() *security.Adapters {
	return a.securityAdapters
}

func (a *Application) RegisterRoutes() {
	a.registerRoutes()
}
