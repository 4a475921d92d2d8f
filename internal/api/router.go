package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/carehub-health/billing-core/pkg/logging"
)

// RouterConfig holds router configuration.
type RouterConfig struct {
	Logger         *logging.Logger
	Handler        *Handler
	MetricsHandler http.Handler
}

// NewRouter creates a Chi router with all routes configured.
func NewRouter(cfg *RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if cfg.Logger != nil {
		r.Use(RequestLogger(cfg.Logger))
	}

	h := cfg.Handler
	r.Get("/health", h.Health)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/appointments", func(r chi.Router) {
		r.Get("/", h.ListAppointments)
		r.Post("/{appointmentID}/pay", h.Pay)
	})
	r.Route("/billings", func(r chi.Router) {
		r.Get("/", h.ListBillings)
		r.Post("/{billingID}/artifact", h.EnsureArtifact)
	})
	r.Get("/search", h.SearchAppointments)
	r.Get("/names/{kind}/{id}", h.ResolveName)

	return r
}
