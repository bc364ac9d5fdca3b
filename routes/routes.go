package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/walkingapp/walking-api/app"
	"github.com/walkingapp/walking-api/handlers"
	"github.com/walkingapp/walking-api/middleware"
	"github.com/walkingapp/walking-api/utils"
)

// SetupRoutes configures all application routes and middleware.
// Order: RequestID, RealIP, access log, Recoverer, Timeout, CORS, then the
// authentication bridge for every route; the gate is applied per route.
func SetupRoutes(deps *app.Dependencies) http.Handler {
	cfg := deps.Config
	gate := deps.Gate
	if gate == nil {
		gate = middleware.NewGate(deps.Metrics, deps.Logger)
	}

	healthHandler := handlers.NewHealthHandler(deps.Health, deps.BackendName, cfg.Environment, deps.Logger)
	userHandler := handlers.NewUserHandler(deps.Users, deps.Logger)
	stepHandler := handlers.NewStepHandler(deps.Steps, gate, deps.Logger)

	r := chi.NewRouter()

	// Core middleware
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.Recoverer(deps.Logger))
	if cfg.Server.RequestTimeout > 0 {
		r.Use(chimiddleware.Timeout(cfg.Server.RequestTimeout))
	}

	// CORS middleware
	origins := cfg.Server.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Use(deps.AuthMiddleware.Authenticate)

	// Operations
	r.Get("/healthz", healthHandler.HandleHealth)
	r.Get("/readyz", healthHandler.HandleReadiness)
	if cfg.Observability.MetricsEnabled && deps.Registry != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))
	}

	// API v1 routes
	r.Route("/api/v1", func(r chi.Router) {
		// Public routes
		r.Get("/status", healthHandler.HandleStatus)
		r.Post("/auth/login", deps.AuthHandler.HandleLogin)
		r.Post("/auth/refresh", deps.AuthHandler.HandleRefresh)

		r.Route("/users", func(r chi.Router) {
			r.Use(gate.RequireAuthenticated)
			r.Get("/me", userHandler.HandleGetCurrentUser)
			r.Get("/{userID}", userHandler.HandleGetUser)

			r.Group(func(r chi.Router) {
				r.Use(gate.RequireOwner("userID"))
				r.Put("/{userID}", userHandler.HandleUpdateUser)
				r.Get("/{userID}/steps", stepHandler.HandleListSteps)
				r.Get("/{userID}/steps/stats", stepHandler.HandleGetStats)
			})
		})

		// Entry ownership is checked after the entry is loaded.
		r.Route("/steps", func(r chi.Router) {
			r.Use(gate.RequireAuthenticated)
			r.Post("/", stepHandler.HandleRecordSteps)
			r.Get("/{id}", stepHandler.HandleGetStepEntry)
			r.Delete("/{id}", stepHandler.HandleDeleteStepEntry)
		})
	})

	// 404 handler
	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		_ = utils.WriteNotFound(w, "endpoint not found")
	})

	return r
}
