package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"blog-admin/internal/metrics"
	"blog-admin/internal/util"
)

// HealthChecker reports whether backing services are reachable.
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// RouterConfig carries the HTTP surface settings.
type RouterConfig struct {
	AllowedOrigins []string
	RequireHTTPS   bool
	RequestTimeout time.Duration
}

// requireHTTPS rejects any request that wasn't made over TLS, directly or
// behind a proxy that sets X-Forwarded-Proto.
func requireHTTPS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil && !strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
			respondWithJSON(w, http.StatusUpgradeRequired, errorResponse("https_required", "HTTPS required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// NewRouter creates and configures the Chi router with all middleware and routes
func NewRouter(cfg RouterConfig, gate *Gate, authHandler *AuthHandler, adminHandler *AdminHandler, health HealthChecker, logger *zap.Logger) chi.Router {
	router := chi.NewRouter()

	if cfg.RequireHTTPS {
		router.Use(requireHTTPS)
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"https://*"}
	}

	// Middleware stack
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(LoggerMiddleware(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(cfg.RequestTimeout))
	router.Use(metrics.Instrument)

	// CORS configuration
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "healthy", "service": "blog-admin"})
	})

	router.Get("/health/ready", func(w http.ResponseWriter, r *http.Request) {
		if health != nil {
			if err := health.HealthCheck(r.Context()); err != nil {
				respondWithError(w, http.StatusServiceUnavailable, err, "unhealthy", "Dependencies unavailable")
				return
			}
		}
		respondWithJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})

	router.Method(http.MethodGet, "/metrics", metrics.Handler())

	// API routes
	router.Route("/api", func(r chi.Router) {
		authHandler.RegisterRoutes(r)
	})

	// Admin area: the gate runs before every handler under the prefix
	router.Route(gate.Prefix, func(r chi.Router) {
		r.Use(gate.Middleware)
		adminHandler.RegisterRoutes(r)
	})

	// 404 handler
	router.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusNotFound, errorResponse("not_found", "endpoint not found"))
	})

	// Method not allowed handler
	router.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respondWithJSON(w, http.StatusMethodNotAllowed, errorResponse("method_not_allowed", "method not allowed"))
	})

	return router
}

// LoggerMiddleware creates a middleware that logs HTTP requests
func LoggerMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				logger.Info("HTTP request",
					util.String("method", r.Method),
					util.String("path", r.URL.Path),
					util.String("remote_addr", r.RemoteAddr),
					util.String("request_id", middleware.GetReqID(r.Context())),
					util.Int("status", ww.Status()),
					util.Duration("duration", time.Since(start)),
					util.String("user_agent", r.UserAgent()),
				)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
