package services

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/mineradorx/relay/internal/app/handlers"
	"github.com/mineradorx/relay/internal/app/middleware"
	"github.com/mineradorx/relay/internal/config"
	"github.com/mineradorx/relay/internal/logger"
)

// HTTPService binds the listener last, after models are loaded and the
// registry is sealed, so the first request always sees the final config
type HTTPService struct {
	config       *config.Config
	server       *http.Server
	listener     net.Listener
	application  *handlers.Application
	statsSvc     *StatsService
	securitySvc  *SecurityService
	inferenceSvc *InferenceService
	logger       *logger.StyledLogger
	errCh        chan error
}

func NewHTTPService(cfg *config.Config, logger *logger.StyledLogger) *HTTPService {
	return &HTTPService{
		config: cfg,
		logger: logger,
		errCh:  make(chan error, 1),
	}
}

func (s *HTTPService) Name() string {
	return ServiceNameHTTP
}

func (s *HTTPService) SetDependencies(stats *StatsService, security *SecurityService, inference *InferenceService) {
	s.statsSvc = stats
	s.securitySvc = security
	s.inferenceSvc = inference
}

func (s *HTTPService) Start(ctx context.Context) error {
	collector, err := s.statsSvc.GetCollector()
	if err != nil {
		return err
	}
	adapters, err := s.securitySvc.GetAdapters()
	if err != nil {
		return err
	}
	dispatcher, err := s.inferenceSvc.GetDispatcher()
	if err != nil {
		return err
	}
	registry, err := s.inferenceSvc.GetRegistry()
	if err != nil {
		return err
	}

	s.application = handlers.NewApplication(s.config, dispatcher, collector, adapters, s.logger)
	s.application.RegisterRoutes()

	mux := http.NewServeMux()
	s.application.GetRouteRegistry().WireUpWithSecurityChain(mux, adapters)

	var handler http.Handler = mux
	if s.config.Server.RequestLogging {
		handler = middleware.AccessLoggingMiddleware(s.logger)(handler)
	}
	handler = middleware.EnhancedLoggingMiddleware(s.logger)(handler)

	s.server = &http.Server{
		Addr:              s.config.Server.GetAddress(),
		Handler:           handler,
		ReadTimeout:       s.config.Server.ReadTimeout,
		ReadHeaderTimeout: s.config.Server.ReadTimeout,
		WriteTimeout:      s.config.Server.WriteTimeout,
		IdleTimeout:       s.config.Server.IdleTimeout,
		MaxHeaderBytes:    int(s.config.Server.RequestLimits.MaxHeaderSize),
	}

	registry.Seal()

	s.listener, err = net.Listen("tcp", s.server.Addr)
	if err != nil {
		return fmt.Errorf("failed to bind %s: %w", s.server.Addr, err)
	}

	go func() {
		if err := s.server.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", "error", err)
			s.errCh <- err
		}
	}()

	s.logger.Info("Relay started, waiting for requests...", "bind", s.listener.Addr().String())
	return nil
}

func (s *HTTPService) Stop(ctx context.Context) error {
	if s.server == nil {
		return nil
	}

	shutdownCtx := ctx
	if s.config.Server.ShutdownTimeout > 0 {
		var cancel context.CancelFunc
		shutdownCtx, cancel = context.WithTimeout(ctx, s.config.Server.ShutdownTimeout)
		defer cancel()
	}

	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP server shutdown error: %w", err)
	}
	return nil
}

func (s *HTTPService) Dependencies() []string {
	return []string{ServiceNameStats, ServiceNameSecurity, ServiceNameInference}
}

// Addr is the bound address, useful when the port was 0
func (s *HTTPService) Addr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Errors delivers a serve failure after Start returned
func (s *HTTPService) Errors() <-chan error {
	return s.errCh
}
