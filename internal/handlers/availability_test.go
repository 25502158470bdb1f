package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"sharpcut-backend/internal/cache"
	"sharpcut-backend/internal/config"
	"sharpcut-backend/internal/datelock"
	"sharpcut-backend/internal/db"
	"sharpcut-backend/internal/schedule"
	"sharpcut-backend/internal/transport"
	"sharpcut-backend/internal/validation"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"
)

// newTestServer builds a Server around the 9-18/30min grid. The client
// is nil for handlers that fail before touching the database and a
// mtest mock client otherwise.
func newTestServer(client *mongo.Client) *Server {
	s := &Server{
		Cfg: &config.Config{
			Timezone:        time.UTC,
			CacheTTLSeconds: 60,
		},
		Val:   validation.New(),
		Log:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Cache: cache.NewNoop(),
		Grid:  schedule.Grid{Hours: schedule.Hours{Start: 9, End: 18}, SlotMinutes: 30},
		Locks: datelock.New(),
	}
	if client != nil {
		database := client.Database("sharpcut")
		s.Cols = &db.Collections{
			Services:     database.Collection("services"),
			Customers:    database.Collection("customers"),
			Appointments: database.Collection("appointments"),
			Waitlist:     database.Collection("waitlist"),
			Users:        database.Collection("users"),
		}
	}
	return s
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) transport.ErrorResponse {
	t.Helper()
	var resp transport.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func activeServiceDoc(duration int) bson.D {
	return bson.D{
		{Key: "_id", Value: "svc1"},
		{Key: "name", Value: "Haircut"},
		{Key: "durationMinutes", Value: duration},
		{Key: "active", Value: true},
	}
}

func TestGetAvailableSlotsInvalidQuery(t *testing.T) {
	s := newTestServer(nil)

	cases := []struct {
		name   string
		target string
		field  string
	}{
		{"missing date", "/api/available?serviceId=svc1", "Date"},
		{"malformed date", "/api/available?date=2026-3-2&serviceId=svc1", "Date"},
		{"missing service id", "/api/available?date=2026-03-02", "ServiceID"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tc.target, nil)
			rec := httptest.NewRecorder()
			s.GetAvailableSlots(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decodeError(t, rec)
			assert.Equal(t, "invalid query", resp.Error)
			assert.Contains(t, resp.Details, tc.field)
		})
	}
}

func TestGetAvailableSlotsUnknownService(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("unknown service", func(mt *mtest.T) {
		s := newTestServer(mt.Client)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "sharpcut.services", mtest.FirstBatch))

		req := httptest.NewRequest(http.MethodGet, "/api/available?date=2027-06-01&serviceId=missing", nil)
		rec := httptest.NewRecorder()
		s.GetAvailableSlots(rec, req)

		assert.Equal(mt, http.StatusNotFound, rec.Code)
		assert.Equal(mt, "service not found", decodeError(mt.T, rec).Error)
	})
}

func TestGetAvailableSlotsInactiveService(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("inactive service hidden", func(mt *mtest.T) {
		s := newTestServer(mt.Client)
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "sharpcut.services", mtest.FirstBatch, bson.D{
			{Key: "_id", Value: "svc1"},
			{Key: "name", Value: "Haircut"},
			{Key: "durationMinutes", Value: 30},
			{Key: "active", Value: false},
		}))

		req := httptest.NewRequest(http.MethodGet, "/api/available?date=2027-06-01&serviceId=svc1", nil)
		rec := httptest.NewRecorder()
		s.GetAvailableSlots(rec, req)

		assert.Equal(mt, http.StatusNotFound, rec.Code)
		assert.Equal(mt, "service not found", decodeError(mt.T, rec).Error)
	})
}

// A booking row that cannot be decoded must fail the query rather than
// silently vanish from the occupied set, where it would let an
// overlapping booking through.
func TestGetAvailableSlotsSurfacesCorruptBooking(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("unparsable booking is an error", func(mt *mtest.T) {
		s := newTestServer(mt.Client)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "sharpcut.services", mtest.FirstBatch, activeServiceDoc(30)),
			mtest.CreateCursorResponse(0, "sharpcut.appointments", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "a1"},
				{Key: "date", Value: "2027-06-01"},
				{Key: "time", Value: "not-a-clock"},
				{Key: "duration", Value: 30},
				{Key: "status", Value: "confirmed"},
			}),
		)

		req := httptest.NewRequest(http.MethodGet, "/api/available?date=2027-06-01&serviceId=svc1", nil)
		rec := httptest.NewRecorder()
		s.GetAvailableSlots(rec, req)

		assert.Equal(mt, http.StatusInternalServerError, rec.Code)
		assert.Equal(mt, "availability error", decodeError(mt.T, rec).Error)
	})
}

func TestGetAvailableSlotsRemovesBookedInterval(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))

	mt.Run("booked slot removed", func(mt *mtest.T) {
		s := newTestServer(mt.Client)
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "sharpcut.services", mtest.FirstBatch, activeServiceDoc(30)),
			mtest.CreateCursorResponse(0, "sharpcut.appointments", mtest.FirstBatch, bson.D{
				{Key: "_id", Value: "a1"},
				{Key: "date", Value: "2027-06-01"},
				{Key: "time", Value: "09:00"},
				{Key: "duration", Value: 30},
				{Key: "status", Value: "confirmed"},
			}),
		)

		req := httptest.NewRequest(http.MethodGet, "/api/available?date=2027-06-01&serviceId=svc1", nil)
		rec := httptest.NewRecorder()
		s.GetAvailableSlots(rec, req)

		require.Equal(mt, http.StatusOK, rec.Code)
		var slots []string
		require.NoError(mt, json.Unmarshal(rec.Body.Bytes(), &slots))
		assert.Len(mt, slots, 17)
		assert.NotContains(mt, slots, "09:00")
		assert.Contains(mt, slots, "09:30")
	})
}
