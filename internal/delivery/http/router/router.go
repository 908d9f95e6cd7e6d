package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/user/places-extractor/internal/delivery/http/handler"
	"github.com/user/places-extractor/internal/delivery/http/middleware"
)

// New builds the API router. timeout bounds every request, including
// synchronous extractions.
func New(h *handler.Handler, timeout time.Duration) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging)
	r.Use(middleware.Metrics)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(timeout))

	// Prometheus metrics endpoint
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.HandleHealthCheck)
		r.Post("/extract", h.HandleExtract)
		r.Post("/jobs", h.HandleSubmitJob)
		r.Get("/jobs/{id}", h.HandleGetJob)
	})

	return r
}
