package api

import (
	"encoding/json"
	"net/http"

	"github.com/agentoven/agentoven/console/internal/api/handlers"
	"github.com/agentoven/agentoven/console/internal/api/middleware"
	"github.com/agentoven/agentoven/console/internal/config"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates the HTTP router with all console API routes.
func NewRouter(cfg *config.Config, h *handlers.Handlers) http.Handler {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logger)
	r.Use(middleware.Telemetry)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health & info
	r.Get("/health", healthHandler)
	r.Get("/version", versionHandler(cfg))

	// Session gate
	r.Route("/session", func(r chi.Router) {
		r.Post("/login", h.Login)
		r.Post("/logout", h.Logout)
		r.With(middleware.RequireSession(h.Gate)).Get("/", h.Me)
	})

	// API v1, one route group per console page
	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.RequireSession(h.Gate))

		r.Get("/dashboard", h.GetDashboard)

		r.Route("/users", func(r chi.Router) {
			r.Get("/", h.ListUsers)
			r.Post("/", h.CreateUser)
			r.Route("/{username}", func(r chi.Router) {
				r.Get("/", h.GetUser)
				r.Delete("/", h.DeleteUser)
				r.Post("/review", h.ReviewUser)
				r.Post("/review/confirm", h.ConfirmUser)
				r.Delete("/review", h.CancelUserReview)
				r.Put("/roles/{role}", h.AssignUserRole)
				r.Delete("/roles/{role}", h.RemoveUserRole)
			})
		})

		r.Route("/access", func(r chi.Router) {
			r.Get("/", h.GetAccess)
			r.Get("/roles/{role}", h.GetRole)
			r.Put("/roles/{role}/permissions/{perm}", h.AssignPermission)
			r.Delete("/roles/{role}/permissions/{perm}", h.RemovePermission)
			r.Get("/users/{username}/roles", h.GetUserRoles)
			r.Put("/users/{username}/roles/{role}", h.AssignAccessRole)
			r.Delete("/users/{username}/roles/{role}", h.RemoveAccessRole)
			r.Post("/permissions", h.CreatePermission)
			r.Delete("/permissions/{name}", h.DeletePermission)
		})

		r.Route("/agents", func(r chi.Router) {
			r.Get("/", h.ListAgents)
			r.Post("/", h.CreateAgent)
			r.Get("/new", h.NewAgentForm)
			r.Route("/{agentCode}", func(r chi.Router) {
				r.Get("/", h.GetAgent)
				r.Delete("/", h.DeleteAgent)
				r.Post("/review", h.ReviewAgent)
				r.Post("/review/confirm", h.ConfirmAgent)
				r.Delete("/review", h.CancelAgentReview)
			})
		})

		r.Route("/tools", func(r chi.Router) {
			r.Get("/", h.ListTools)
			r.Post("/", h.RegisterTool)
			r.Route("/agents/{agentCode}", func(r chi.Router) {
				r.Get("/", h.GetAgentTools)
				r.Post("/{toolId}/toggle", h.ToggleTool)
				r.Post("/execute", h.ExecuteTool)
				r.Post("/discover", h.DiscoverTools)
				r.Post("/invoke", h.InvokeAgent)
			})
		})

		r.Route("/logs", func(r chi.Router) {
			r.Get("/", h.GetLogPage)
			r.Get("/selectors", h.GetLogSelectors)
			r.Put("/selection", h.SelectLogs)
			r.Post("/more", h.MoreLogs)
			r.Post("/less", h.LessLogs)
		})
	})

	return r
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"status":  "healthy",
		"service": "agentoven-console",
	})
}

func versionHandler(cfg *config.Config) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{
			"version": cfg.Version,
			"service": "agentoven-console",
		})
	}
}
