// Package httpapi exposes the gateway's HTTP surface: bearer-token auth,
// role-gated order/risk/audit routes, health and metrics. Grounded on
// Sergey-Bar-Alfred's gateway router wiring style (chi, one middleware chain,
// one handler group per resource), since the teacher itself has no HTTP
// surface.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/itirp/gateway/internal/auth"
	"github.com/itirp/gateway/internal/eventstore"
	"github.com/itirp/gateway/internal/execution"
	"github.com/itirp/gateway/internal/risk"
)

// Server holds every dependency the HTTP layer needs to serve requests.
type Server struct {
	logger zerolog.Logger

	users  *auth.Directory
	tokens *auth.TokenIssuer

	risk  *risk.Engine
	exec  *execution.Engine
	store *eventstore.Store

	validate  *validator.Validate
	startedAt time.Time
}

// NewServer wires a Server from its dependencies.
func NewServer(logger zerolog.Logger, users *auth.Directory, tokens *auth.TokenIssuer, riskEngine *risk.Engine, execEngine *execution.Engine, store *eventstore.Store) *Server {
	return &Server{
		logger:    logger,
		users:     users,
		tokens:    tokens,
		risk:      riskEngine,
		exec:      execEngine,
		store:     store,
		validate:  validator.New(),
		startedAt: time.Now(),
	}
}

// Router builds the chi router serving /api/v1 and the unauthenticated
// /health endpoint.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(requestLogger(s.logger))

	r.Get("/health", s.handleHealth)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/auth/login", s.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)

			r.With(requireRole(auth.RoleTrader)).Post("/orders", s.handleSubmitOrder)
			r.Get("/orders", s.handleListOrders)
			r.Get("/orders/{id}", s.handleGetOrder)

			r.Get("/risk/metrics", s.handleRiskMetrics)
			r.Get("/risk/positions", s.handleRiskPositions)
			r.Get("/metrics", s.handleSystemMetrics)

			r.Group(func(r chi.Router) {
				r.Use(requireRole(auth.RoleRiskManager))
				r.Get("/risk/limits", s.handleGetRiskLimits)
				r.Put("/risk/limits", s.handleUpdateRiskLimits)
				r.Post("/risk/kill-switch", s.handleKillSwitch)
			})

			r.Group(func(r chi.Router) {
				r.Use(requireRole(auth.RoleCompliance))
				r.Get("/audit/events", s.handleAuditEvents)
				r.Get("/audit/correlation/{cid}", s.handleAuditCorrelation)
				r.Get("/audit/order/{oid}/trail", s.handleAuditOrderTrail)
			})
		})
	})

	return r
}
