package router

import (
	"fmt"
	"net/http"
	"sort"

	jsoniter "github.com/json-iterator/go"
	"github.com/pterm/pterm"

	"github.com/mineradorx/relay/internal/core/constants"
	"github.com/mineradorx/relay/internal/core/domain"
	"github.com/mineradorx/relay/internal/logger"
)

type RouteInfo struct {
	Handler     http.HandlerFunc
	Description string
	Method      string
	Order       int
	IsInference bool
}

type RouteRegistry struct {
	routes   map[string]RouteInfo
	logger   *logger.StyledLogger
	orderSeq int
	quiet    bool
}

// SecurityMiddlewareProvider is satisfied by security.Adapters
type SecurityMiddlewareProvider interface {
	CreateChainMiddleware() func(http.Handler) http.Handler
	CreateRateLimitMiddleware() func(http.Handler) http.Handler
}

func NewRouteRegistry(logger *logger.StyledLogger) *RouteRegistry {
	return &RouteRegistry{
		routes:   make(map[string]RouteInfo),
		logger:   logger,
		orderSeq: 0,
	}
}

// Quiet stops WireUp from printing the route table, used by tests
func (r *RouteRegistry) Quiet() *RouteRegistry {
	r.quiet = true
	return r
}

func (r *RouteRegistry) Register(route string, handler http.HandlerFunc, description string) {
	r.RegisterWithMethod(route, handler, description, http.MethodGet)
}

func (r *RouteRegistry) RegisterWithMethod(route string, handler http.HandlerFunc, description, method string) {
	r.registerWithMethod(route, handler, description, method, false)
}

// RegisterInferenceRoute marks a route that reaches a model, these get the
// full security chain rather than just rate limiting
func (r *RouteRegistry) RegisterInferenceRoute(route string, handler http.HandlerFunc, description string) {
	r.registerWithMethod(route, handler, description, http.MethodPost, true)
}

func (r *RouteRegistry) registerWithMethod(route string, handler http.HandlerFunc, description, method string, isInference bool) {
	r.routes[route] = RouteInfo{
		Handler:     handler,
		Description: description,
		Method:      method,
		Order:       r.orderSeq,
		IsInference: isInference,
	}
	r.orderSeq++
}

func (r *RouteRegistry) WireUp(mux *http.ServeMux) {
	for route, info := range r.routes {
		mux.Handle(route, methodGuard(info.Method, info.Handler))
	}
	r.logRoutesTable()
}

// WireUpWithSecurityChain wraps inference routes in the full chain and
// everything else in rate limiting only
func (r *RouteRegistry) WireUpWithSecurityChain(mux *http.ServeMux, adapters SecurityMiddlewareProvider) {
	if adapters == nil {
		r.WireUp(mux)
		return
	}

	chain := adapters.CreateChainMiddleware()
	rateLimit := adapters.CreateRateLimitMiddleware()

	for route, info := range r.routes {
		var handler http.Handler = methodGuard(info.Method, info.Handler)

		if info.IsInference {
			handler = chain(handler)
		} else {
			handler = rateLimit(handler)
		}
		mux.Handle(route, handler)
	}
	r.logRoutesTable()
}

// methodGuard answers 405 with a JSON detail body, an empty method allows all
func methodGuard(method string, next http.Handler) http.Handler {
	if method == "" {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		if req.Method != method && !(method == http.MethodGet && req.Method == http.MethodHead) {
			w.Header().Set("Allow", method)
			w.Header().Set(constants.ContentTypeHeader, constants.ContentTypeJSON)
			w.WriteHeader(http.StatusMethodNotAllowed)
			_ = jsoniter.ConfigFastest.NewEncoder(w).Encode(domain.ErrorResponse{Detail: "Method Not Allowed"})
			return
		}
		next.ServeHTTP(w, req)
	})
}

func (r *RouteRegistry) logRoutesTable() {
	if len(r.routes) == 0 || r.quiet {
		return
	}

	type routeEntry struct {
		path   string
		method string
		desc   string
		order  int
	}

	var entries []routeEntry
	for route, info := range r.routes {
		entries = append(entries, routeEntry{
			path:   route,
			method: info.Method,
			desc:   info.Description,
			order:  info.Order,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].order < entries[j].order
	})

	tableData := [][]string{
		{"ROUTE", "METHOD", "DESCRIPTION"},
	}

	for _, entry := range entries {
		tableData = append(tableData, []string{
			entry.path,
			entry.method,
			entry.desc,
		})
	}

	r.logger.InfoWithCount("Registered web routes", len(entries))
	tableString, _ := pterm.DefaultTable.WithHasHeader().WithData(tableData).Srender()
	fmt.Print(tableString)
}

func (r *RouteRegistry) GetRoutes() map[string]RouteInfo {
	return r.routes
}
