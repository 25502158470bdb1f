package waitlist

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sharpcut-backend/internal/httpx"
	"sharpcut-backend/internal/schedule"
	"sharpcut-backend/internal/transport"
	"sharpcut-backend/internal/validation"
)

type Handler struct {
	service  *Service
	val      *validation.Validator
	location *time.Location
	log      *slog.Logger
}

func NewHandler(service *Service, val *validation.Validator, location *time.Location, log *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		val:      val,
		location: location,
		log:      log,
	}
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpx.DecodeJSON(r.Body, &req); err != nil {
		h.log.Warn("waitlist create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		h.log.Warn("waitlist create: validation error")
		details := httpx.ValidationDetails(h.val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "validation error", details)
		return
	}

	past, err := schedule.IsDatePast(req.Date, h.location, time.Now())
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
		return
	}
	if past {
		h.log.Warn("waitlist create: date in the past", slog.String("date", req.Date))
		transport.WriteError(w, http.StatusBadRequest, "date in the past", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	entry, err := h.service.Create(ctx, req)
	if err != nil {
		if err == ErrServiceNotFound {
			h.log.Warn("waitlist create: service not found", slog.String("service_id", req.ServiceID))
			transport.WriteError(w, http.StatusNotFound, "service not found", nil)
			return
		}
		h.log.Error("waitlist create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	h.log.Info("waitlist create: ok",
		slog.String("entry_id", entry.ID),
		slog.String("date", entry.Date),
		slog.String("service_id", entry.ServiceID),
	)
	transport.WriteJSON(w, http.StatusCreated, entry)
}

type lookupQuery struct {
	Email string `validate:"required,email"`
}

func (h *Handler) ListByEmail(w http.ResponseWriter, r *http.Request) {
	q := lookupQuery{Email: r.URL.Query().Get("email")}
	if err := h.val.Struct(q); err != nil {
		h.log.Warn("waitlist list: invalid query")
		details := httpx.ValidationDetails(h.val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "invalid query", details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	entries, err := h.service.ListByEmail(ctx, q.Email)
	if err != nil {
		h.log.Error("waitlist list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}

type adminListQuery struct {
	Date string `validate:"required,date"`
}

func (h *Handler) AdminListByDate(w http.ResponseWriter, r *http.Request) {
	q := adminListQuery{Date: r.URL.Query().Get("date")}
	if err := h.val.Struct(q); err != nil {
		h.log.Warn("waitlist admin list: invalid query")
		details := httpx.ValidationDetails(h.val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "invalid query", details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	entries, err := h.service.ListByDate(ctx, q.Date)
	if err != nil {
		h.log.Error("waitlist admin list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	h.log.Info("waitlist admin list: ok", slog.String("date", q.Date), slog.Int("count", len(entries)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"entries": entries})
}
