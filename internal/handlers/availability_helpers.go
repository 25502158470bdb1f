package handlers

import (
	"context"
	"time"

	"sharpcut-backend/internal/models"
	"sharpcut-backend/internal/schedule"

	"go.mongodb.org/mongo-driver/bson"
)

// occupiedIntervals loads the booking intervals that still claim time on
// a date. Excluding cancelled and no-show rows here keeps the schedule
// package free of any status knowledge.
func (s *Server) occupiedIntervals(ctx context.Context, date string, excludeID string) ([]schedule.Interval, error) {
	filter := bson.M{
		"date":   date,
		"status": bson.M{"$in": models.OccupyingStatuses()},
	}
	if excludeID != "" {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	cursor, err := s.Cols.Appointments.Find(ctx, filter)
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
			return nil, err
		}
		intervals = append(intervals, iv)
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return intervals, nil
}

func (s *Server) computeAvailableSlots(ctx context.Context, date string, duration int, now time.Time) ([]string, error) {
	intervals, err := s.occupiedIntervals(ctx, date, "")
	if err != nil {
		return nil, err
	}

	slots, err := s.Grid.AvailableSlots(intervals, duration)
	if err != nil {
		return nil, err
	}

	if dateIsToday(date, s.Cfg.Timezone) {
		slots, err = schedule.FilterPastSlots(date, slots, s.Cfg.Timezone, now)
		if err != nil {
			return nil, err
		}
	}

	return slots, nil
}

func dateIsToday(dateStr string, loc *time.Location) bool {
	date, err := schedule.ParseDate(dateStr, loc)
	if err != nil {
		return false
	}
	now := time.Now().In(loc)
	return date.Year() == now.Year() && date.YearDay() == now.YearDay()
}
