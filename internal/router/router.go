package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"storefront-restock-api/internal/handler"
	"storefront-restock-api/internal/middleware"
)

// Config holds the configuration for creating a router.
type Config struct {
	Handler          *handler.Handler
	InventoryHandler *handler.InventoryHandler
	AdminHandler     *handler.AdminHandler
	AuthHandler      *handler.AuthHandler
	AdminAuth        func(http.Handler) http.Handler
	Logger           *zap.Logger
	AllowedOrigins   []string
}

// New creates and configures the HTTP router.
func New(cfg Config) *chi.Mux {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Global middleware stack (applies to ALL routes)
	r.Use(middleware.Recovery(logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID", "X-Admin-Key", "X-Token", "X-Login-Key"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.Handler())

	if cfg.Handler != nil {
		r.Get("/api/status", cfg.Handler.Status)
	}

	r.Route("/api/v1", func(r chi.Router) {
		// PUBLIC routes
		if cfg.Handler != nil {
			r.Get("/health", cfg.Handler.Health)
			r.Get("/ready", cfg.Handler.Ready)
		}
		if cfg.InventoryHandler != nil {
			r.Get("/inventory/{productId}", cfg.InventoryHandler.GetStock)
			r.Post("/subscriptions", cfg.InventoryHandler.Subscribe)
		}
		if cfg.AuthHandler != nil {
			r.Post("/admin/login", cfg.AuthHandler.Login)
		}

		// ADMIN routes
		r.Group(func(r chi.Router) {
			if cfg.AdminAuth != nil {
				r.Use(cfg.AdminAuth)
			}

			if cfg.InventoryHandler != nil {
				r.Post("/inventory", cfg.InventoryHandler.SetQty)
			}
			if cfg.AdminHandler != nil {
				r.Get("/admin/inventory", cfg.AdminHandler.Reconcile)
				r.Post("/admin/inventory", cfg.AdminHandler.Bulk)
				r.Get("/admin/stats", cfg.AdminHandler.GetStats)
			}
			if cfg.AuthHandler != nil {
				r.Post("/admin/logout", cfg.AuthHandler.Logout)
			}
		})
	})

	return r
}
