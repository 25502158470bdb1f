package waitlist

import (
	"context"
	"errors"
	"time"

	"sharpcut-backend/internal/models"
	"sharpcut-backend/internal/schedule"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var ErrServiceNotFound = errors.New("service not found")

type Repository interface {
	Create(ctx context.Context, entry Entry) error
	WaitingByDate(ctx context.Context, date string) ([]Entry, error)
	ListByEmail(ctx context.Context, email string) ([]Entry, error)
	ListByDate(ctx context.Context, date string) ([]Entry, error)
	MarkNotified(ctx context.Context, id, slot string, at time.Time) (bool, error)
	MarkBookedFor(ctx context.Context, email, date, serviceID string) error
	ExpireBefore(ctx context.Context, date string) (int64, error)
	OccupiedIntervals(ctx context.Context, date string) ([]schedule.Interval, error)
	ServiceByID(ctx context.Context, id string) (models.Service, error)
}

type MongoRepository struct {
	waitlist     *mongo.Collection
	appointments *mongo.Collection
	services     *mongo.Collection
}

func NewRepository(waitlist, appointments, services *mongo.Collection) *MongoRepository {
	return &MongoRepository{
		waitlist:     waitlist,
		appointments: appointments,
		services:     services,
	}
}

func (r *MongoRepository) Create(ctx context.Context, entry Entry) error {
	_, err := r.waitlist.InsertOne(ctx, entry)
	return err
}

// WaitingByDate returns waiting entries for a date in creation order,
// which is the reconciliation priority order.
func (r *MongoRepository) WaitingByDate(ctx context.Context, date string) ([]Entry, error) {
	filter := bson.M{"date": date, "status": StatusWaiting}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	return r.find(ctx, filter, opts)
}

func (r *MongoRepository) ListByEmail(ctx context.Context, email string) ([]Entry, error) {
	filter := bson.M{"email": email}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(50)
	return r.find(ctx, filter, opts)
}

func (r *MongoRepository) ListByDate(ctx context.Context, date string) ([]Entry, error) {
	filter := bson.M{"date": date}
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}).SetLimit(200)
	return r.find(ctx, filter, opts)
}

func (r *MongoRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]Entry, error) {
	cursor, err := r.waitlist.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	entries := make([]Entry, 0)
	for cursor.Next(ctx) {
		var e Entry
		if err := cursor.Decode(&e); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// MarkNotified moves an entry waiting -> notified. The status filter
// makes the transition first-writer-wins: a concurrent reconciliation
// pass that already claimed the entry leaves nothing to match, and the
// caller sees ok=false.
func (r *MongoRepository) MarkNotified(ctx context.Context, id, slot string, at time.Time) (bool, error) {
	res, err := r.waitlist.UpdateOne(ctx,
		bson.M{"_id": id, "status": StatusWaiting},
		bson.M{"$set": bson.M{
			"status":       StatusNotified,
			"notifiedSlot": slot,
			"notifiedAt":   at,
		}},
	)
	if err != nil {
		return false, err
	}
	return res.ModifiedCount > 0, nil
}

// MarkBookedFor closes out notified entries once the customer completes
// the booking through the normal path.
func (r *MongoRepository) MarkBookedFor(ctx context.Context, email, date, serviceID string) error {
	_, err := r.waitlist.UpdateMany(ctx,
		bson.M{"email": email, "date": date, "serviceId": serviceID, "status": StatusNotified},
		bson.M{"$set": bson.M{"status": StatusBooked}},
	)
	return err
}

// ExpireBefore expires open entries whose target date has passed.
func (r *MongoRepository) ExpireBefore(ctx context.Context, date string) (int64, error) {
	res, err := r.waitlist.UpdateMany(ctx,
		bson.M{
			"date":   bson.M{"$lt": date},
			"status": bson.M{"$in": []Status{StatusWaiting, StatusNotified}},
		},
		bson.M{"$set": bson.M{"status": StatusExpired}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// OccupiedIntervals loads the booking intervals that still claim time
// on a date. Cancelled and no-show appointments are excluded here so
// the availability math never sees them.
func (r *MongoRepository) OccupiedIntervals(ctx context.Context, date string) ([]schedule.Interval, error) {
	filter := bson.M{
		"date":   date,
		"status": bson.M{"$in": models.OccupyingStatuses()},
	}
	cursor, err := r.appointments.Find(ctx, filter)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	intervals := make([]schedule.Interval, 0)
	for cursor.Next(ctx) {
		var appt models.Appointment
		if err := cursor.Decode(&appt); err != nil {
			return nil, err
		}
		iv, err := schedule.IntervalFor(appt.Time, appt.Duration)
		if err != nil {
			continue
		}
		intervals = append(intervals, iv)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return intervals, nil
}

func (r *MongoRepository) ServiceByID(ctx context.Context, id string) (models.Service, error) {
	var svc models.Service
	if err := r.services.FindOne(ctx, bson.M{"_id": id}).Decode(&svc); err != nil {
		if err == mongo.ErrNoDocuments {
			return models.Service{}, ErrServiceNotFound
		}
		return models.Service{}, err
	}
	return svc, nil
}
