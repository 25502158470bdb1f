package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"sharpcut-backend/internal/models"
	"sharpcut-backend/internal/schedule"
	"sharpcut-backend/internal/transport"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

type availabilityQuery struct {
	Date      string `validate:"required,date"`
	ServiceID string `validate:"required"`
}

// GetAvailableSlots returns the open start times for a date and service
// as a plain array of "HH:MM" strings. An empty array is a valid answer:
// the date exists, the grid is just full.
func (s *Server) GetAvailableSlots(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	q := availabilityQuery{
		Date:      r.URL.Query().Get("date"),
		ServiceID: r.URL.Query().Get("serviceId"),
	}
	if err := s.Val.Struct(q); err != nil {
		log.Warn("availability: invalid query")
		details := validationDetails(s.Val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "invalid query", details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var service models.Service
	err := s.Cols.Services.FindOne(ctx, bson.M{"_id": q.ServiceID}).Decode(&service)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			log.Warn("availability: service not found", slog.String("service_id", q.ServiceID))
			transport.WriteError(w, http.StatusNotFound, "service not found", nil)
			return
		}
		log.Error("availability: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if !service.Active {
		log.Warn("availability: service inactive", slog.String("service_id", q.ServiceID))
		transport.WriteError(w, http.StatusNotFound, "service not found", nil)
		return
	}

	cacheKey := "availability:" + q.Date + ":" + strconv.Itoa(service.DurationMinutes)
	if s.Cache != nil {
		if cached, ok, err := s.Cache.Get(r.Context(), cacheKey); err == nil && ok {
			log.Info("availability: cache hit", slog.String("date", q.Date))
			writeCachedJSON(w, http.StatusOK, cached)
			return
		}
	}

	slots, err := s.computeAvailableSlots(ctx, q.Date, service.DurationMinutes, time.Now())
	if err != nil {
		log.Error("availability: compute error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "availability error", nil)
		return
	}

	if payload, err := encodeJSON(slots); err == nil && s.Cache != nil {
		_ = s.Cache.Set(r.Context(), cacheKey, payload, time.Duration(s.Cfg.CacheTTLSeconds)*time.Second)
	}

	log.Info("availability: ok", slog.String("date", q.Date), slog.Int("duration", service.DurationMinutes), slog.Int("slots", len(slots)))
	transport.WriteJSON(w, http.StatusOK, slots)
}

// GetNextAvailability scans forward from a date and reports the first
// open slot within 30 days.
func (s *Server) GetNextAvailability(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	serviceID := r.URL.Query().Get("serviceId")
	from := r.URL.Query().Get("from")
	if from == "" {
		from = time.Now().In(s.Cfg.Timezone).Format("2006-01-02")
	}
	q := availabilityQuery{Date: from, ServiceID: serviceID}
	if err := s.Val.Struct(q); err != nil {
		log.Warn("availability next: invalid query")
		details := validationDetails(s.Val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "invalid query", details)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	var service models.Service
	if err := s.Cols.Services.FindOne(ctx, bson.M{"_id": serviceID, "active": true}).Decode(&service); err != nil {
		if err == mongo.ErrNoDocuments {
			transport.WriteError(w, http.StatusNotFound, "service not found", nil)
			return
		}
		log.Error("availability next: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	startDate, err := schedule.ParseDate(from, s.Cfg.Timezone)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
		return
	}
	for i := 0; i < 30; i++ {
		dateStr := startDate.AddDate(0, 0, i).Format("2006-01-02")
		slots, err := s.computeAvailableSlots(ctx, dateStr, service.DurationMinutes, time.Now())
		if err != nil {
			log.Error("availability next: compute error", slog.String("error", err.Error()))
			transport.WriteError(w, http.StatusInternalServerError, "availability error", nil)
			return
		}
		if len(slots) > 0 {
			log.Info("availability next: ok", slog.String("date", dateStr), slog.String("time", slots[0]))
			transport.WriteJSON(w, http.StatusOK, map[string]interface{}{
				"serviceId": service.ID,
				"date":      dateStr,
				"time":      slots[0],
				"timezone":  s.Cfg.Timezone.String(),
				"duration":  service.DurationMinutes,
			})
			return
		}
	}

	transport.WriteError(w, http.StatusNotFound, "no availability found", map[string]string{"days": strconv.Itoa(30)})
}
