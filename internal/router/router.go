// Package router sets up all HTTP routes and middleware chains for the
// lostfound server: the staff report API under /api and the public report
// pages under /r.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"lostfound/internal/handlers"
	"lostfound/internal/middleware"
)

// New creates and returns the configured Chi router. createLimiter throttles
// report submission per client IP.
func New(reports *handlers.Reports, createLimiter *middleware.RateLimiter) chi.Router {
	r := chi.NewRouter()

	// Global middleware, applied to every request.
	r.Use(chimw.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.SecureHeaders)

	r.Get("/health", healthHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/reports", func(r chi.Router) {
			r.With(createLimiter.Middleware).Post("/", reports.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", reports.Get)
				r.Post("/public-code", reports.EnsurePublicCode)
				r.Post("/slug", reports.EnsureSlug)
				r.Post("/resolve", reports.Resolve)
				r.Get("/cache-log", reports.CacheHistory)
			})
		})
		r.Get("/codes/{code}", reports.ByCode)
	})

	r.Route("/r/{slug}", func(r chi.Router) {
		r.Get("/", reports.PublicPage)
		r.Get("/qr.png", reports.QRCode)
	})

	return r
}

// healthHandler returns a simple JSON health check response.
func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"ok"}`))
}
