/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, the middleware stack and the route table.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     Request logging
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. Metrics:    Prometheus request counter and latency histogram
  5. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/houses/*        House management
  /api/members/*       Resident management
  /api/vehicles/*      Vehicle management
  /api/payments/*      Maintenance payments and monthly generation
  /api/expenditures/*  Society expenses
  /api/activity        Audit trail
  /api/reports         Generated reports log
  /api/backup/*        Export, import, reset, demo seed
  /healthz             Liveness
  /metrics             Prometheus scrape endpoint

SECURITY NOTE:
  No authentication middleware. All endpoints are public, including reset.

SEE ALSO:
  - handlers.go: Handler implementations
  - metrics.go: Prometheus collectors
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// RouterOptions configures NewRouter.
type RouterOptions struct {
	AllowedOrigins []string
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(h.Metrics.Middleware)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, MessageResponse{Message: "ok"})
	})
	if h.Metrics != nil {
		r.Handle("/metrics", h.Metrics.Handler())
	}

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Route("/houses", func(r chi.Router) {
			r.Get("/", h.ListHouses)
			r.Post("/", h.CreateHouse)
			r.Put("/{key}", h.UpdateHouse)
			r.Patch("/{key}", h.UpdateHouse)
			r.Delete("/{key}", h.DeleteHouse)
		})

		r.Route("/members", func(r chi.Router) {
			r.Get("/", h.ListMembers)
			r.Post("/", h.CreateMember)
			r.Put("/{id}", h.UpdateMember)
			r.Patch("/{id}", h.UpdateMember)
			r.Delete("/{id}", h.DeleteMember)
		})

		r.Route("/vehicles", func(r chi.Router) {
			r.Get("/", h.ListVehicles)
			r.Post("/", h.CreateVehicle)
			r.Put("/{id}", h.UpdateVehicle)
			r.Patch("/{id}", h.UpdateVehicle)
			r.Delete("/{id}", h.DeleteVehicle)
		})

		r.Route("/payments", func(r chi.Router) {
			r.Get("/", h.ListPayments)
			r.Post("/", h.CreatePayment)
			r.Post("/generate", h.GeneratePayments)
			r.Put("/{id}", h.UpdatePayment)
			r.Patch("/{id}", h.UpdatePayment)
			r.Delete("/{id}", h.DeletePayment)
		})

		r.Route("/expenditures", func(r chi.Router) {
			r.Get("/", h.ListExpenditures)
			r.Post("/", h.CreateExpenditure)
			r.Put("/{id}", h.UpdateExpenditure)
			r.Patch("/{id}", h.UpdateExpenditure)
			r.Delete("/{id}", h.DeleteExpenditure)
		})

		r.Get("/activity", h.ListActivity)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", h.ListReports)
			r.Post("/", h.RecordReport)
		})

		r.Route("/backup", func(r chi.Router) {
			r.Get("/export", h.ExportSnapshot)
			r.Post("/import", h.ImportSnapshot)
			r.Post("/reset", h.ResetAll)
			r.Post("/seed", h.SeedDemo)
		})
	})

	return r
}
