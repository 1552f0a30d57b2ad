package httpapi

import (
	"net/http"

	"github.com/benbjohnson/clock"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/live-poll-backend/internal/session"
	"github.com/DoyleJ11/live-poll-backend/internal/ws"
)

func SetupRoutes(s *session.Session, clk clock.Clock, log *zap.Logger, wsOpts ws.Options) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/", Banner)
	r.Get("/healthz", Healthz)
	r.Get("/health", Health(clk))
	r.Get("/results", Results(s))
	r.Get("/ws", ws.Handler(s, log, wsOpts))
	return r
}
