/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, picked up by the request logger
  2. Logger:     logrus line per request
  3. Recoverer:  Panic recovery (500 instead of crash)
  4. CORS:       Cross-origin requests for the frontend

ROUTE GROUPS:
  /api/auth/*            Login (public), logout
  /api/users/*           Current user, password, user management
  /api/projects          Reference data
  /api/activities        Reference data
  /api/holidays          Holiday calendar
  /api/time-logs/*       Sessions and summaries
  /api/absence-balances/* Absence ledger
  /api/admin/*           Manual job triggers (elevated only)

AUTH:
  Everything except POST /api/auth/login and GET /api/health needs a
  bearer token issued by the login endpoint.

SEE ALSO:
  - handlers.go: Handler implementations
  - middleware.go: Auth and logging middleware
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, allowedOrigins []string) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(requestLogger(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
		})
		r.Post("/auth/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(authenticate(h.Tokens))

			r.Post("/auth/logout", h.Logout)

			// User routes
			r.Route("/users", func(r chi.Router) {
				r.Get("/", h.ListUsers)
				r.With(requireElevated).Post("/", h.CreateUser)
				r.Get("/current", h.CurrentUser)
				r.Post("/change-password", h.ChangePassword)
			})

			// Reference data
			r.Route("/projects", func(r chi.Router) {
				r.Get("/", h.ListProjects)
				r.Post("/", h.CreateProject)
			})
			r.Route("/activities", func(r chi.Router) {
				r.Get("/", h.ListActivities)
				r.Post("/", h.CreateActivity)
			})
			r.Route("/holidays", func(r chi.Router) {
				r.Get("/", h.ListHolidays)
				r.With(requireElevated).Post("/", h.CreateHoliday)
			})

			// Time log routes
			r.Route("/time-logs", func(r chi.Router) {
				r.Get("/", h.ListTimeLogs)
				r.Get("/current", h.CurrentTimeLog)
				r.Post("/start", h.StartTimeLog)
				r.Post("/end", h.EndTimeLog)
				r.Get("/summary", h.Summary)
				r.Get("/summary.pdf", h.SummaryPDF)
			})

			// Absence routes
			r.Route("/absence-balances", func(r chi.Router) {
				r.Get("/", h.ListAbsenceEntries)
				r.Get("/remaining", h.RemainingAbsences)
				r.Post("/submit", h.SubmitAbsence)
			})

			// Admin routes
			r.Route("/admin", func(r chi.Router) {
				r.Use(requireElevated)
				r.Post("/accrual/run", h.RunAccrual)
				r.Post("/sweep/run", h.RunSweep)
			})
		})
	})

	return r
}
