package handlers

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

func createAppointmentBody(date, timeSlot string) string {
	return fmt.Sprintf(`{"serviceId":"svc1","name":"Jo","email":"jo@example.com","phone":"+15550001111","date":%q,"timeSlot":%q}`, date, timeSlot)
}

func postAppointment(s *Server, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/appointments", strings.NewReader(body))
	rec := httptest.NewRecorder()
	s.CreateAppointment(rec, req)
	return rec
}

func TestCreateAppointmentInvalidJSON(t *testing.T) {
	s := newTestServer(nil)
	rec := postAppointment(s, `{"serviceId":`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "invalid json", decodeError(t, rec).Error)
}

func TestCreateAppointmentValidationError(t *testing.T) {
	s := newTestServer(nil)
	rec := postAppointment(s, `{"serviceId":"svc1","name":"Jo","phone":"+15550001111","date":"2027-06-01","timeSlot":"10:00"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	resp := decodeError(t, rec)
	assert.Equal(t, "validation error", resp.Error)
	assert.Contains(t, resp.Details, "Email")
}

func TestCreateAppointmentRejectsPastDate(t *testing.T) {
	s := newTestServer(nil)
	rec := postAppointment(s, createAppointmentBody("2020-01-01", "10:00"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "date in the past", decodeError(t, rec).Error)
}

func TestCreateAppointmentRejectsOffGridTime(t *testing.T) {
	s := newTestServer(nil)

	for _, slot := range []string{"09:10", "08:30", "18:00"} {
		rec := postAppointment(s, createAppointmentBody("2027-06-01", slot))

		assert.Equal(t, http.StatusBadRequest, rec.Code, "slot %s", slot)
		assert.Equal(t, "time not on booking grid", decodeError(t, rec).Error)
	}
}

func TestCreateAppointmentSlotConflict(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("overlapping booking wins", func(mt *mtest.T) {
		s := newTestServer(mt.Client)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "sharpcut.services", mtest.FirstBatch, activeServiceDoc(30)),
			mtest.CreateCursorResponse(0, "sharpcut.appointments", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "a1"},
				{Key: "date", Value: "2027-06-01"},
				{Key: "time", Value: "10:00"},
				{Key: "duration", Value: 30},
				{Key: "status", Value: "pending"},
			}),
		)

		rec := postAppointment(s, createAppointmentBody("2027-06-01", "10:00"))

		assert.Equal(mt, http.StatusConflict, rec.Code)
		assert.Equal(mt, "slot not available", decodeError(mt.T, rec).Error)
	})
}

func TestCreateAppointmentLostRaceDuplicateKey(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("insert hits unique index", func(mt *mtest.T) {
		s := newTestServer(mt.Client)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "sharpcut.services", mtest.FirstBatch, activeServiceDoc(30)),
			mtest.CreateCursorResponse(0, "sharpcut.appointments", mtest.FirstBatch),
			bson.D{
				{Key: "ok", Value: 1},
				{Key: "value", Value: bson.D{
					{Key: "_id", Value: "c1"},
					{Key: "email", Value: "jo@example.com"},
				}},
			},
			mtest.CreateWriteErrorsResponse(mtest.WriteError{
				Index:   0,
				Code:    11000,
				Message: "E11000 duplicate key error collection: sharpcut.appointments",
			}),
		)

		rec := postAppointment(s, createAppointmentBody("2027-06-01", "10:00"))

		assert.Equal(mt, http.StatusConflict, rec.Code)
		assert.Equal(mt, "slot already booked", decodeError(mt.T, rec).Error)
	})
}

func putAppointmentStatus(s *Server, id, body string) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Put("/appointments/{id}", s.UpdateAppointmentStatus)
	req := httptest.NewRequest(http.MethodPut, "/appointments/"+id, strings.NewReader(body))
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestUpdateAppointmentStatusUnknownStatus(t *testing.T) {
	s := newTestServer(nil)
	rec := putAppointmentStatus(s, "a1", `{"status":"booked"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "unknown status", decodeError(t, rec).Error)
}

func TestUpdateAppointmentStatusIllegalTransition(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("completed is terminal", func(mt *mtest.T) {
		s := newTestServer(mt.Client)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "sharpcut.appointments", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "a1"},
			{Key: "serviceId", Value: "svc1"},
			{Key: "date", Value: "2027-06-01"},
			{Key: "time", Value: "10:00"},
			{Key: "duration", Value: 30},
			{Key: "status", Value: "completed"},
		}))

		rec := putAppointmentStatus(s, "a1", `{"status":"pending"}`)

		require.Equal(mt, http.StatusBadRequest, rec.Code)
		resp := decodeError(mt.T, rec)
		assert.Equal(mt, "illegal status transition", resp.Error)
		assert.Equal(mt, "completed", resp.Details["from"])
		assert.Equal(mt, "pending", resp.Details["to"])
	})
}

func TestUpdateAppointmentStatusNotFound(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("missing appointment", func(mt *mtest.T) {
		s := newTestServer(mt.Client)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "sharpcut.appointments", mtest.FirstBatch))

		rec := putAppointmentStatus(s, "missing", `{"status":"confirmed"}`)

		assert.Equal(mt, http.StatusNotFound, rec.Code)
		assert.Equal(mt, "appointment not found", decodeError(mt.T, rec).Error)
	})
}
