package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/spacelproject/admin-spacel-sub001/internal/config"
	"github.com/spacelproject/admin-spacel-sub001/internal/domain"
	"github.com/spacelproject/admin-spacel-sub001/internal/transport/http/handler"
	appmiddleware "github.com/spacelproject/admin-spacel-sub001/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router. ctx bounds background
// work such as rate limiter cleanup.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Forced refreshes run a full pass over every source: 1/s, burst of 3, per viewer.
	refreshRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(1), 3)

	healthH := handler.NewHealthHandler(deps.DB)
	activityH := handler.NewActivityHandler(deps.Activity, originPatterns(cfg.AllowedOrigins), deps.Logger)
	notifH := handler.NewNotificationHandler(deps.Notifications, deps.Nudge)

	if deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", deps.Metrics)
	}

	r.Route("/v1", func(r chi.Router) {
		// ── Public routes (no auth) ──────────────────────────────────────────
		r.Get("/health-check/{action}", healthH.Ping)

		// ── Admin routes ─────────────────────────────────────────────────────
		r.Group(func(r chi.Router) {
			r.Use(appmiddleware.Auth(deps.Verifier))
			r.Use(appmiddleware.RequireRole(domain.RoleAdmin))

			r.Route("/activity", func(r chi.Router) {
				r.Get("/", activityH.Window)
				r.Post("/open", activityH.Open)
				r.Delete("/open", activityH.Close)
				r.Post("/load-more", activityH.LoadMore)
				r.With(refreshRL.Limit).Post("/refresh", activityH.Refresh)
				r.Put("/read-all", activityH.MarkAllRead)
				r.Put("/{id}/read", activityH.MarkRead)
				r.Get("/unread-count", activityH.UnreadCount)
				r.Get("/stream", activityH.Stream)
			})

			r.Get("/notifications", notifH.List)
			r.Post("/notifications", notifH.Create)
			r.Put("/notifications/{id}", notifH.MarkAsRead)
		})
	})

	return r
}

// originPatterns turns CORS origins into websocket host patterns.
func originPatterns(origins []string) []string {
	var out []string
	for _, o := range origins {
		o = strings.TrimSpace(o)
		if o == "" {
			continue
		}
		if i := strings.Index(o, "://"); i >= 0 {
			o = o[i+3:]
		}
		out = append(out, o)
	}
	return out
}
