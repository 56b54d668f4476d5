// Package httpapi exposes the pipeline over JSON: the claim and result
// endpoints consumed by pollers, and the monitor CRUD used by the
// request-serving collaborator. Identity is resolved upstream; handlers
// trust the owner id they are given.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/nianevitch/uptime-checker/internal/services/claim"
	"github.com/nianevitch/uptime-checker/internal/services/monitor"
	"github.com/nianevitch/uptime-checker/internal/services/reconcile"
	"github.com/nianevitch/uptime-checker/internal/services/user"
)

type Server struct {
	log       *zap.Logger
	monitors  *monitor.Usecase
	claims    *claim.Usecase
	reconcile *reconcile.Usecase
	users     *user.Usecase
}

func NewServer(log *zap.Logger, monitors *monitor.Usecase, claims *claim.Usecase, rec *reconcile.Usecase, users *user.Usecase) *Server {
	return &Server{log: log, monitors: monitors, claims: claims, reconcile: rec, users: users}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(cors.AllowAll().Handler)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/checks", s.handleClaim)
		r.Post("/checks", s.handleRecordResult)

		r.Get("/monitors", s.handleListMonitors)
		r.Post("/monitors", s.handleCreateMonitor)
		r.Post("/monitors/schedule", s.handleScheduleOwner)
		r.Get("/monitors/{id}", s.handleGetMonitor)
		r.Put("/monitors/{id}", s.handleUpdateMonitor)
		r.Delete("/monitors/{id}", s.handleDeleteMonitor)
		r.Get("/monitors/{id}/results", s.handleMonitorResults)
		r.Post("/monitors/{id}/schedule", s.handleScheduleMonitor)

		r.Post("/users", s.handleCreateUser)
		r.Get("/users", s.handleListUsers)
	})

	return otelhttp.NewHandler(r, "httpapi")
}
