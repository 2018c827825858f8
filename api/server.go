/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

ROUTER: chi
  Chi was chosen for:
  - Lightweight and fast
  - Context-based
  - Middleware support
  - RESTful route patterns

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the desktop/tablet frontend

ROUTE GROUPS:
  /api/entries/*       Entry valuation preview
  /api/transactions/*  Transaction save/delete/restore/query
  /api/customers/*     Customer management and balances
  /api/ledger          Movement history
  /api/inventory/*     Opening-balance chain
  /api/backup/*        Encrypted export/import
  /api/admin/*         Retention sweep

SECURITY NOTE:
  No authentication middleware. The server binds to a trusted shop LAN.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Post("/entries/valuate", h.ValuateEntry)

		r.Route("/transactions", func(r chi.Router) {
			r.Post("/", h.SaveTransaction)
			r.Get("/", h.ListTransactions)
			r.Get("/{device}/{id}", h.GetTransaction)
			r.Delete("/{device}/{id}", h.DeleteTransaction)
			r.Post("/{device}/{id}/restore", h.RestoreTransaction)
		})

		r.Route("/customers", func(r chi.Router) {
			r.Get("/", h.ListCustomers)
			r.Post("/", h.UpsertCustomer)
			r.Get("/{id}/balance", h.GetBalance)
		})

		r.Get("/ledger", h.ListLedgerEntries)

		r.Route("/inventory", func(r chi.Router) {
			r.Post("/recompute", h.RecomputeInventory)
			r.Put("/base", h.SetBaseInventory)
			r.Get("/{date}", h.GetInventory)
		})

		r.Route("/backup", func(r chi.Router) {
			r.Post("/export", h.ExportBackup)
			r.Post("/import", h.ImportBackup)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/retention/sweep", h.SweepRetention)
		})
	})

	return r
}
