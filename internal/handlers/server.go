package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"sharpcut-backend/internal/cache"
	"sharpcut-backend/internal/config"
	"sharpcut-backend/internal/datelock"
	"sharpcut-backend/internal/db"
	"sharpcut-backend/internal/middleware"
	"sharpcut-backend/internal/models"
	"sharpcut-backend/internal/schedule"
	"sharpcut-backend/internal/validation"
	"sharpcut-backend/internal/waitlist"
)

// Notifier is the booking flow's notification boundary. Implementations
// never fail the caller; delivery errors are logged internally.
type Notifier interface {
	NotifyConfirmation(ctx context.Context, appointment models.Appointment, service models.Service)
}

type Server struct {
	Cfg      *config.Config
	Cols     *db.Collections
	Val      *validation.Validator
	Log      *slog.Logger
	Cache    cache.Cache
	Grid     schedule.Grid
	Locks    *datelock.Locker
	Notifier Notifier
	Waitlist *waitlist.Service
}

func (s *Server) logWithRequest(r *http.Request) *slog.Logger {
	if r == nil {
		return s.Log
	}
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		return s.Log.With(slog.String("request_id", id))
	}
	return s.Log
}
