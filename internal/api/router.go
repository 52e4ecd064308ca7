package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/MikeSquared-Agency/Intake/internal/broker"
	"github.com/MikeSquared-Agency/Intake/internal/store"
)

type RouterOptions struct {
	AdminToken         string
	RateLimitPerMinute int
}

func NewRouter(s store.Store, b *broker.Broker, opts RouterOptions, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.RequestID)
	r.Use(RequestLogger(logger))
	r.Use(RateLimitMiddleware(opts.RateLimitPerMinute))

	intake := NewIntakeHandler(b)
	clients := NewClientsHandler(b)
	caseworkers := NewCaseworkersHandler(b)
	admin := NewAdminHandler(s, b)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/intake/start", intake.Start)
		r.Post("/intake/submit", intake.Submit)
		r.Get("/intake/{id}", intake.Status)

		// Client portal, keyed by the id handed out at intake.
		r.Route("/client/{id}", func(r chi.Router) {
			r.Get("/profile", clients.Profile)
			r.Get("/progress", clients.Progress)
			r.Get("/caseworker", clients.Caseworker)
		})

		r.Route("/caseworkers/{id}", func(r chi.Router) {
			r.Use(CaseworkerAuthMiddleware)
			r.Get("/queue", caseworkers.Queue)
			r.Get("/clients", caseworkers.Clients)
			r.Get("/clients/{client_id}", caseworkers.Client)
			r.Patch("/clients/{client_id}", caseworkers.UpdateClient)
			r.Get("/clients/{client_id}/assessments", clients.Assessments)
			r.Post("/clients/{client_id}/assessments", clients.Reassess)
			r.Post("/actions/{action_id}/complete", caseworkers.CompleteAction)
			r.Get("/stats", caseworkers.Stats)
		})

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(opts.AdminToken))
			r.Get("/city/metrics", admin.CityMetrics)
			r.Post("/admin/organizations", admin.CreateOrganization)
			r.Post("/admin/caseworkers", admin.CreateCaseworker)
			r.Get("/admin/caseworkers", admin.ListCaseworkers)
			r.Post("/admin/qr-codes", admin.CreateQRCode)
			r.Get("/admin/qr-codes/{code}", admin.GetQRCode)
			r.Get("/admin/clients/{id}/assessments", clients.Assessments)
			r.Post("/admin/clients/{id}/assessments", clients.Reassess)
		})
	})

	return r
}

// NewMetricsRouter serves health and prometheus metrics on the side port.
// ready reports dependency health; nil means always ready.
func NewMetricsRouter(g prometheus.Gatherer, ready func() map[string]bool) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]bool{}
		if ready != nil {
			checks = ready()
		}
		status, code := "ok", http.StatusOK
		for _, ok := range checks {
			if !ok {
				status, code = "degraded", http.StatusServiceUnavailable
			}
		}
		writeJSON(w, code, map[string]interface{}{"status": status, "checks": checks})
	})
	r.Handle("/metrics", promhttp.HandlerFor(g, promhttp.HandlerOpts{}))
	return r
}
