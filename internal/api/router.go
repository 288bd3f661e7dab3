package api

import (
	"context"
	"net/http"
	"strconv"

	"notification-gateway/internal/common/logger"
	"notification-gateway/internal/common/metrics"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

// ReadinessCheck reports whether a dependency is usable.
type ReadinessCheck func(ctx context.Context) error

// NewRouter mounts the notification routes plus /health and /ready.
func NewRouter(h *Handler, checks ...ReadinessCheck) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(requestLogger(h.logger))
	r.Use(countRequests)
	r.Use(middleware.Recoverer)

	r.Get("/health", health)
	r.Get("/ready", ready(h.logger, checks))

	r.Route("/api/notifications", func(r chi.Router) {
		r.Post("/send", h.Send)
		r.Post("/register", h.Register)
		r.Get("/registration", h.Lookup)
		r.Get("/registraion", h.Lookup)
	})

	return r
}

// requestLogger tags each request with an id and stores a request-scoped
// logger on the context.
func requestLogger(base logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(requestIDHeader)
			if id == "" {
				id = uuid.NewString()
			}
			w.Header().Set(requestIDHeader, id)

			log := base.WithFields(map[string]interface{}{
				"requestId": id,
				"method":    r.Method,
				"path":      r.URL.Path,
			})
			next.ServeHTTP(w, r.WithContext(logger.WithContext(r.Context(), log)))
		})
	}
}

func countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	})
}

func health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func ready(log logger.Logger, checks []ReadinessCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for _, check := range checks {
			if err := check(r.Context()); err != nil {
				logger.FromContext(r.Context(), log).Error("Readiness check failed", map[string]interface{}{"error": err})
				writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not_ready"})
				return
			}
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	}
}
