package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"sharpcut-backend/internal/metrics"
	"sharpcut-backend/internal/models"
	"sharpcut-backend/internal/schedule"
	"sharpcut-backend/internal/transport"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type CreateAppointmentRequest struct {
	ServiceID string `json:"serviceId" validate:"required"`
	Name      string `json:"name" validate:"required"`
	Email     string `json:"email" validate:"required,email"`
	Phone     string `json:"phone" validate:"required,phone"`
	Date      string `json:"date" validate:"required,date"`
	TimeSlot  string `json:"timeSlot" validate:"required,clock"`
	Notes     string `json:"notes" validate:"omitempty,max=500"`
}

func (s *Server) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req CreateAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("appointments create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}

	if err := s.Val.Struct(req); err != nil {
		log.Warn("appointments create: validation error")
		details := validationDetails(s.Val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "validation error", details)
		return
	}

	past, err := schedule.IsDatePast(req.Date, s.Cfg.Timezone, time.Now())
	if err != nil {
		log.Warn("appointments create: invalid date", slog.String("date", req.Date))
		transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
		return
	}
	if past {
		log.Warn("appointments create: date in the past", slog.String("date", req.Date))
		transport.WriteError(w, http.StatusBadRequest, "date in the past", nil)
		return
	}

	onGrid, err := s.Grid.OnGrid(req.TimeSlot)
	if err != nil || !onGrid {
		log.Warn("appointments create: time off grid", slog.String("time", req.TimeSlot))
		transport.WriteError(w, http.StatusBadRequest, "time not on booking grid", nil)
		return
	}

	if dateIsToday(req.Date, s.Cfg.Timezone) {
		pastSlot, err := schedule.IsSlotPast(req.Date, req.TimeSlot, s.Cfg.Timezone, time.Now())
		if err != nil {
			transport.WriteError(w, http.StatusBadRequest, "invalid time", nil)
			return
		}
		if pastSlot {
			log.Warn("appointments create: slot already passed", slog.String("date", req.Date), slog.String("time", req.TimeSlot))
			transport.WriteError(w, http.StatusBadRequest, "slot already passed", nil)
			return
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	var service models.Service
	if err := s.Cols.Services.FindOne(ctx, bson.M{"_id": req.ServiceID, "active": true}).Decode(&service); err != nil {
		if err == mongo.ErrNoDocuments {
			log.Warn("appointments create: service not found", slog.String("service_id", req.ServiceID))
			transport.WriteError(w, http.StatusNotFound, "service not found", nil)
			return
		}
		log.Error("appointments create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	// The availability check and the insert must not interleave with
	// another write on the same date.
	s.Locks.Lock(req.Date)
	defer s.Locks.Unlock(req.Date)

	booked, err := s.occupiedIntervals(ctx, req.Date, "")
	if err != nil {
		log.Error("appointments create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	available, err := s.Grid.IsAvailable(req.TimeSlot, booked, service.DurationMinutes)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid time", nil)
		return
	}
	if !available {
		log.Warn("appointments create: slot conflict", slog.String("date", req.Date), slog.String("time", req.TimeSlot))
		transport.WriteError(w, http.StatusConflict, "slot not available", nil)
		return
	}

	customerID, err := s.upsertCustomer(ctx, req.Name, req.Email, req.Phone)
	if err != nil {
		log.Error("appointments create: customer upsert error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	now := time.Now().In(s.Cfg.Timezone)
	appointment := models.Appointment{
		ID:         primitive.NewObjectID().Hex(),
		ServiceID:  service.ID,
		CustomerID: customerID,
		Name:       req.Name,
		Email:      strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:      req.Phone,
		Date:       req.Date,
		Time:       req.TimeSlot,
		Duration:   service.DurationMinutes,
		Price:      service.Price,
		Notes:      req.Notes,
		Status:     models.AppointmentPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if _, err := s.Cols.Appointments.InsertOne(ctx, appointment); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Warn("appointments create: duplicate key", slog.String("date", req.Date), slog.String("time", req.TimeSlot))
			transport.WriteError(w, http.StatusConflict, "slot already booked", nil)
			return
		}
		log.Error("appointments create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	metrics.IncBookingCreated()
	s.invalidateAvailability(r.Context(), req.Date)

	// A notified waitlist entry booking its slot closes the loop;
	// failures here never affect the created appointment.
	if s.Waitlist != nil {
		if err := s.Waitlist.MarkBooked(ctx, appointment.Email, appointment.Date, appointment.ServiceID); err != nil {
			log.Warn("appointments create: waitlist mark-booked failed", slog.String("error", err.Error()))
		}
	}

	if s.Notifier != nil {
		appointmentCopy := appointment
		serviceCopy := service
		go func() {
			nctx, ncancel := context.WithTimeout(context.Background(), 8*time.Second)
			defer ncancel()
			s.Notifier.NotifyConfirmation(nctx, appointmentCopy, serviceCopy)
		}()
	}

	log.Info("appointments create: booked",
		slog.String("appointment_id", appointment.ID),
		slog.String("service_id", appointment.ServiceID),
		slog.String("date", appointment.Date),
		slog.String("time", appointment.Time),
	)
	transport.WriteJSON(w, http.StatusCreated, appointment)
}

// upsertCustomer finds the customer by email or creates one, returning
// the customer id either way.
func (s *Server) upsertCustomer(ctx context.Context, name, email, phone string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	now := time.Now().In(s.Cfg.Timezone)

	update := bson.M{
		"$set": bson.M{
			"name":      name,
			"phone":     phone,
			"updatedAt": now,
		},
		"$setOnInsert": bson.M{
			"_id":           primitive.NewObjectID().Hex(),
			"email":         email,
			"loyaltyPoints": 0,
			"createdAt":     now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var customer models.Customer
	err := s.Cols.Customers.FindOneAndUpdate(ctx, bson.M{"email": email}, update, opts).Decode(&customer)
	if err != nil {
		return "", err
	}
	return customer.ID, nil
}

func (s *Server) GetAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		log.Warn("appointments get: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	var doc bson.M
	if err := s.Cols.Appointments.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		if err == mongo.ErrNoDocuments {
			log.Warn("appointments get: not found", slog.String("appointment_id", id))
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
			return
		}
		log.Error("appointments get: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("appointments get: ok", slog.String("appointment_id", id))
	transport.WriteJSON(w, http.StatusOK, normalizeID(doc))
}

type UpdateAppointmentStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (s *Server) UpdateAppointmentStatus(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req UpdateAppointmentStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("appointments status: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		details := validationDetails(s.Val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "validation error", details)
		return
	}

	next := models.AppointmentStatus(req.Status)
	if !next.Valid() {
		log.Warn("appointments status: unknown status", slog.String("status", req.Status))
		transport.WriteError(w, http.StatusBadRequest, "unknown status", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	var appointment models.Appointment
	if err := s.Cols.Appointments.FindOne(ctx, bson.M{"_id": id}).Decode(&appointment); err != nil {
		if err == mongo.ErrNoDocuments {
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
			return
		}
		log.Error("appointments status: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if !appointment.Status.CanTransitionTo(next) {
		log.Warn("appointments status: illegal transition",
			slog.String("from", string(appointment.Status)),
			slog.String("to", string(next)),
		)
		transport.WriteError(w, http.StatusBadRequest, "illegal status transition", map[string]string{
			"from": string(appointment.Status),
			"to":   string(next),
		})
		return
	}

	update := bson.M{"$set": bson.M{
		"status":    next,
		"updatedAt": time.Now().In(s.Cfg.Timezone),
	}}
	if _, err := s.Cols.Appointments.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		log.Error("appointments status: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	appointment.Status = next

	switch next {
	case models.AppointmentCompleted:
		s.awardLoyaltyPoints(ctx, log, appointment)
	case models.AppointmentCancelled, models.AppointmentNoShow:
		metrics.IncBookingCancelled()
		s.invalidateAvailability(r.Context(), appointment.Date)
		s.reconcileWaitlist(ctx, log, appointment.Date)
	}

	log.Info("appointments status: updated",
		slog.String("appointment_id", id),
		slog.String("status", string(next)),
	)
	transport.WriteJSON(w, http.StatusOK, appointment)
}

// awardLoyaltyPoints credits the customer after a completed visit. The
// appointment is the durable record; a failed increment is logged and
// retried on the next completion, never surfaced.
func (s *Server) awardLoyaltyPoints(ctx context.Context, log *slog.Logger, appointment models.Appointment) {
	if appointment.CustomerID == "" {
		return
	}
	var service models.Service
	if err := s.Cols.Services.FindOne(ctx, bson.M{"_id": appointment.ServiceID}).Decode(&service); err != nil {
		log.Warn("loyalty: service lookup failed", slog.String("error", err.Error()))
		return
	}
	if service.LoyaltyPoints <= 0 {
		return
	}
	_, err := s.Cols.Customers.UpdateOne(ctx,
		bson.M{"_id": appointment.CustomerID},
		bson.M{
			"$inc": bson.M{"loyaltyPoints": service.LoyaltyPoints},
			"$set": bson.M{"updatedAt": time.Now().In(s.Cfg.Timezone)},
		},
	)
	if err != nil {
		log.Warn("loyalty: increment failed",
			slog.String("customer_id", appointment.CustomerID),
			slog.String("error", err.Error()),
		)
		return
	}
	log.Info("loyalty: points awarded",
		slog.String("customer_id", appointment.CustomerID),
		slog.Int("points", service.LoyaltyPoints),
	)
}

type RescheduleAppointmentRequest struct {
	Date     string `json:"date" validate:"required,date"`
	TimeSlot string `json:"timeSlot" validate:"required,clock"`
}

func (s *Server) RescheduleAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req RescheduleAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("appointments reschedule: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		details := validationDetails(s.Val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "validation error", details)
		return
	}

	past, err := schedule.IsDatePast(req.Date, s.Cfg.Timezone, time.Now())
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid date", nil)
		return
	}
	if past {
		transport.WriteError(w, http.StatusBadRequest, "date in the past", nil)
		return
	}

	onGrid, err := s.Grid.OnGrid(req.TimeSlot)
	if err != nil || !onGrid {
		transport.WriteError(w, http.StatusBadRequest, "time not on booking grid", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	var appointment models.Appointment
	if err := s.Cols.Appointments.FindOne(ctx, bson.M{"_id": id}).Decode(&appointment); err != nil {
		if err == mongo.ErrNoDocuments {
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
			return
		}
		log.Error("appointments reschedule: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if appointment.Status != models.AppointmentPending && appointment.Status != models.AppointmentConfirmed {
		log.Warn("appointments reschedule: not reschedulable", slog.String("status", string(appointment.Status)))
		transport.WriteError(w, http.StatusBadRequest, "appointment cannot be rescheduled", map[string]string{
			"status": string(appointment.Status),
		})
		return
	}

	oldDate := appointment.Date

	s.Locks.Lock(req.Date)
	defer s.Locks.Unlock(req.Date)

	// The appointment's own interval must not block the move, so it is
	// excluded from the occupied set.
	booked, err := s.occupiedIntervals(ctx, req.Date, appointment.ID)
	if err != nil {
		log.Error("appointments reschedule: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	available, err := s.Grid.IsAvailable(req.TimeSlot, booked, appointment.Duration)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid time", nil)
		return
	}
	if !available {
		log.Warn("appointments reschedule: slot conflict", slog.String("date", req.Date), slog.String("time", req.TimeSlot))
		transport.WriteError(w, http.StatusConflict, "slot not available", nil)
		return
	}

	update := bson.M{"$set": bson.M{
		"date":      req.Date,
		"time":      req.TimeSlot,
		"updatedAt": time.Now().In(s.Cfg.Timezone),
	}}
	if _, err := s.Cols.Appointments.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			transport.WriteError(w, http.StatusConflict, "slot already booked", nil)
			return
		}
		log.Error("appointments reschedule: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	appointment.Date = req.Date
	appointment.Time = req.TimeSlot

	s.invalidateAvailability(r.Context(), oldDate)
	s.invalidateAvailability(r.Context(), req.Date)

	// Moving away frees capacity on the old date; both dates are
	// reconciled independently.
	s.reconcileWaitlist(ctx, log, oldDate)
	if req.Date != oldDate {
		s.reconcileWaitlist(ctx, log, req.Date)
	}

	log.Info("appointments reschedule: moved",
		slog.String("appointment_id", id),
		slog.String("from_date", oldDate),
		slog.String("to_date", req.Date),
		slog.String("time", req.TimeSlot),
	)
	transport.WriteJSON(w, http.StatusOK, appointment)
}

// CancelAppointment soft-cancels: the record keeps its history, only
// the status changes.
func (s *Server) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	var appointment models.Appointment
	if err := s.Cols.Appointments.FindOne(ctx, bson.M{"_id": id}).Decode(&appointment); err != nil {
		if err == mongo.ErrNoDocuments {
			transport.WriteError(w, http.StatusNotFound, "appointment not found", nil)
			return
		}
		log.Error("appointments cancel: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if !appointment.Status.CanTransitionTo(models.AppointmentCancelled) {
		log.Warn("appointments cancel: illegal transition", slog.String("status", string(appointment.Status)))
		transport.WriteError(w, http.StatusBadRequest, "appointment cannot be cancelled", map[string]string{
			"status": string(appointment.Status),
		})
		return
	}

	update := bson.M{"$set": bson.M{
		"status":    models.AppointmentCancelled,
		"updatedAt": time.Now().In(s.Cfg.Timezone),
	}}
	if _, err := s.Cols.Appointments.UpdateOne(ctx, bson.M{"_id": id}, update); err != nil {
		log.Error("appointments cancel: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	appointment.Status = models.AppointmentCancelled

	metrics.IncBookingCancelled()
	s.invalidateAvailability(r.Context(), appointment.Date)
	s.reconcileWaitlist(ctx, log, appointment.Date)

	log.Info("appointments cancel: cancelled",
		slog.String("appointment_id", id),
		slog.String("date", appointment.Date),
	)
	transport.WriteJSON(w, http.StatusOK, appointment)
}

func (s *Server) invalidateAvailability(ctx context.Context, date string) {
	if s.Cache == nil {
		return
	}
	_ = s.Cache.DeletePrefix(ctx, "availability:"+date+":")
}

func (s *Server) reconcileWaitlist(ctx context.Context, log *slog.Logger, date string) {
	if s.Waitlist == nil {
		return
	}
	if err := s.Waitlist.Reconcile(ctx, date); err != nil {
		log.Warn("waitlist reconcile failed", slog.String("date", date), slog.String("error", err.Error()))
	}
}
