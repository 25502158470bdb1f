package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"sharpcut-backend/internal/models"
	"sharpcut-backend/internal/transport"
	"sharpcut-backend/internal/utils"

	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AdminServiceRequest struct {
	Name            string `json:"name" validate:"required"`
	Description     string `json:"description"`
	Price           int    `json:"price" validate:"gte=0"`
	DurationMinutes int    `json:"durationMinutes" validate:"required,minutes5,lte=240"`
	LoyaltyPoints   int    `json:"loyaltyPoints" validate:"gte=0"`
	Active          *bool  `json:"active"`
	Slug            string `json:"slug"`
}

type AdminListQuery struct {
	Date   string `validate:"omitempty,date"`
	Status string `validate:"omitempty,oneof=pending confirmed cancelled completed no_show"`
}

func (s *Server) AdminCreateService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	var req AdminServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("admin services create: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("admin services create: validation error")
		details := validationDetails(s.Val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "validation error", details)
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = utils.Slugify(req.Name)
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}

	service := models.Service{
		ID:              primitive.NewObjectID().Hex(),
		Name:            req.Name,
		Slug:            slug,
		Description:     req.Description,
		Price:           req.Price,
		DurationMinutes: req.DurationMinutes,
		LoyaltyPoints:   req.LoyaltyPoints,
		Active:          active,
		CreatedAt:       time.Now().In(s.Cfg.Timezone),
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	if _, err := s.Cols.Services.InsertOne(ctx, service); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Warn("admin services create: slug exists", slog.String("slug", slug))
			transport.WriteError(w, http.StatusConflict, "slug already exists", nil)
			return
		}
		log.Error("admin services create: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if s.Cache != nil {
		_ = s.Cache.Delete(r.Context(), "services:all")
	}

	log.Info("admin services create: ok", slog.String("service_id", service.ID), slog.String("slug", slug))
	transport.WriteJSON(w, http.StatusCreated, service)
}

func (s *Server) AdminUpdateService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		log.Warn("admin services update: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	var req AdminServiceRequest
	if err := decodeJSON(r, &req); err != nil {
		log.Warn("admin services update: invalid json")
		transport.WriteError(w, http.StatusBadRequest, "invalid json", nil)
		return
	}
	if err := s.Val.Struct(req); err != nil {
		log.Warn("admin services update: validation error")
		details := validationDetails(s.Val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "validation error", details)
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = utils.Slugify(req.Name)
	}

	set := bson.M{
		"name":            req.Name,
		"slug":            slug,
		"description":     req.Description,
		"price":           req.Price,
		"durationMinutes": req.DurationMinutes,
		"loyaltyPoints":   req.LoyaltyPoints,
	}
	if req.Active != nil {
		set["active"] = *req.Active
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := s.Cols.Services.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			log.Warn("admin services update: slug exists", slog.String("slug", slug))
			transport.WriteError(w, http.StatusConflict, "slug already exists", nil)
			return
		}
		log.Error("admin services update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.MatchedCount == 0 {
		log.Warn("admin services update: not found", slog.String("service_id", id))
		transport.WriteError(w, http.StatusNotFound, "service not found", nil)
		return
	}

	var doc bson.M
	if err := s.Cols.Services.FindOne(ctx, bson.M{"_id": id}).Decode(&doc); err != nil {
		log.Error("admin services update: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	if s.Cache != nil {
		_ = s.Cache.Delete(r.Context(), "services:all")
	}

	log.Info("admin services update: ok", slog.String("service_id", id))
	transport.WriteJSON(w, http.StatusOK, normalizeID(doc))
}

// AdminDeactivateService retires a service from the catalog. The row
// stays because past appointments reference it.
func (s *Server) AdminDeactivateService(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	id := chi.URLParam(r, "id")
	if id == "" {
		log.Warn("admin services deactivate: missing id")
		transport.WriteError(w, http.StatusBadRequest, "missing id", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := s.Cols.Services.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"active": false}})
	if err != nil {
		log.Error("admin services deactivate: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	if res.MatchedCount == 0 {
		log.Warn("admin services deactivate: not found", slog.String("service_id", id))
		transport.WriteError(w, http.StatusNotFound, "service not found", nil)
		return
	}

	if s.Cache != nil {
		_ = s.Cache.Delete(r.Context(), "services:all")
	}

	log.Info("admin services deactivate: ok", slog.String("service_id", id))
	transport.WriteJSON(w, http.StatusOK, map[string]string{"status": "deactivated"})
}

func (s *Server) AdminListAppointments(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)
	q := AdminListQuery{
		Date:   r.URL.Query().Get("date"),
		Status: r.URL.Query().Get("status"),
	}
	if err := s.Val.Struct(q); err != nil {
		log.Warn("admin appointments list: invalid query")
		details := validationDetails(s.Val.ValidationErrors(err))
		transport.WriteError(w, http.StatusBadRequest, "invalid query", details)
		return
	}

	limit, offset, err := parseLimitOffset(r, 100, 500)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid pagination", nil)
		return
	}

	filter := bson.M{}
	if q.Date != "" {
		filter["date"] = q.Date
	}
	if q.Status != "" {
		filter["status"] = q.Status
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "date", Value: 1}, {Key: "time", Value: 1}}).
		SetLimit(limit).
		SetSkip(offset)
	cursor, err := s.Cols.Appointments.Find(ctx, filter, opts)
	if err != nil {
		log.Error("admin appointments list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	var items []map[string]interface{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err == nil {
			items = append(items, normalizeID(doc))
		}
	}
	if err := cursor.Err(); err != nil {
		log.Error("admin appointments list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin appointments list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"appointments": items})
}

func (s *Server) AdminListCustomers(w http.ResponseWriter, r *http.Request) {
	log := s.logWithRequest(r)

	limit, offset, err := parseLimitOffset(r, 100, 500)
	if err != nil {
		transport.WriteError(w, http.StatusBadRequest, "invalid pagination", nil)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 8*time.Second)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: -1}}).
		SetLimit(limit).
		SetSkip(offset)
	cursor, err := s.Cols.Customers.Find(ctx, bson.M{}, opts)
	if err != nil {
		log.Error("admin customers list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}
	defer cursor.Close(ctx)

	var items []map[string]interface{}
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err == nil {
			items = append(items, normalizeID(doc))
		}
	}
	if err := cursor.Err(); err != nil {
		log.Error("admin customers list: database error", slog.String("error", err.Error()))
		transport.WriteError(w, http.StatusInternalServerError, "database error", nil)
		return
	}

	log.Info("admin customers list: ok", slog.Int("count", len(items)))
	transport.WriteJSON(w, http.StatusOK, map[string]interface{}{"customers": items})
}
