/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. Logger:     zap request logging (includes the request ID)
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the back-office frontend

ROUTE GROUPS:
  /api/session/*        Sign in / out
  /api/employees/*      Employees, postings, statements
  /api/import           Roster import
  /api/logs/*           Audit trail
  /api/tickets/*        Support tickets
  /api/users            System users
  /api/reports/*        CSV reports
  /api/integrity/*      Balance integrity checks
  /api/automation/*     Till and script integrations
  /api/demo/*           Demo data (dev only)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/warp/canteen-ledger/logger"
)

// DefaultOrigins are allowed when no origins are configured.
var DefaultOrigins = []string{"http://localhost:5173", "http://localhost:3000"}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	if len(allowedOrigins) == 0 {
		allowedOrigins = DefaultOrigins
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(logger.RequestLogger(h.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/session", func(r chi.Router) {
			r.Get("/", h.GetSession)
			r.Post("/login", h.Login)
			r.Post("/logout", h.Logout)
		})

		r.Route("/employees", func(r chi.Router) {
			r.Get("/", h.ListEmployees)
			r.Get("/{id}", h.GetEmployee)
			r.Get("/{id}/transactions", h.GetTransactions)
			r.Post("/{id}/transactions", h.PostTransaction)
			r.Get("/{id}/statement", h.ExportStatement)
		})

		r.Post("/import", h.ImportEmployees)
		r.Get("/transactions", h.ListTransactions)

		r.Route("/logs", func(r chi.Router) {
			r.Get("/", h.ListLogs)
			r.Post("/", h.CreateLog)
			r.Get("/export", h.ExportLogs)
		})

		r.Route("/tickets", func(r chi.Router) {
			r.Get("/", h.ListTickets)
			r.Post("/", h.CreateTicket)
			r.Post("/{id}/resolve", h.ResolveTicket)
		})

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
		})

		r.Get("/reports/general", h.ExportGeneralReport)

		r.Route("/integrity", func(r chi.Router) {
			r.Get("/", h.CheckIntegrity)
			r.Get("/runs", h.ListIntegrityRuns)
		})

		r.Route("/automation", func(r chi.Router) {
			r.Post("/debit", h.AutomationDebit)
			r.Post("/credit", h.AutomationCredit)
			r.Post("/import", h.AutomationImport)
			r.Get("/help", h.AutomationHelp)
			r.Get("/employees/{externalId}", h.AutomationGetEmployee)
		})

		r.Route("/demo", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/seed", h.SeedDemo)
		})
	})

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Canteen Ledger</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Canteen Ledger API</h1>
<ul>
<li><a href="/api/employees">/api/employees</a> - List employees</li>
<li><a href="/api/logs">/api/logs</a> - Audit trail</li>
<li><a href="/api/tickets">/api/tickets</a> - Tickets</li>
<li><a href="/api/automation/help">/api/automation/help</a> - Automation API</li>
</ul>
</body>
</html>`))
	})

	return r
}
