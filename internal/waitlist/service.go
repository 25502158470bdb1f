package waitlist

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"sharpcut-backend/internal/metrics"
	"sharpcut-backend/internal/schedule"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Notifier delivers the slot-opened message. Delivery failure must not
// propagate: the notified status stands whether or not the message
// lands, and the user still has to book through the normal path.
type Notifier interface {
	NotifyWaitlistOpening(ctx context.Context, toEmail, toName, toPhone, serviceName, date, slot string)
}

type Service struct {
	repo     Repository
	grid     schedule.Grid
	notifier Notifier
	location *time.Location
	log      *slog.Logger
}

func NewService(repo Repository, grid schedule.Grid, notifier Notifier, location *time.Location, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		grid:     grid,
		notifier: notifier,
		location: location,
		log:      log,
	}
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (Entry, error) {
	if _, err := s.repo.ServiceByID(ctx, req.ServiceID); err != nil {
		return Entry{}, err
	}

	entry := Entry{
		ID:                 primitive.NewObjectID().Hex(),
		ServiceID:          req.ServiceID,
		Name:               strings.TrimSpace(req.Name),
		Email:              strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:              strings.TrimSpace(req.Phone),
		Date:               req.Date,
		PreferredTimeSlots: req.PreferredTimeSlots,
		Status:             StatusWaiting,
		CreatedAt:          time.Now().In(s.location),
	}

	if err := s.repo.Create(ctx, entry); err != nil {
		return Entry{}, err
	}
	return entry, nil
}

func (s *Service) ListByEmail(ctx context.Context, email string) ([]Entry, error) {
	return s.repo.ListByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}

func (s *Service) ListByDate(ctx context.Context, date string) ([]Entry, error) {
	return s.repo.ListByDate(ctx, date)
}

// MarkBooked closes out a notified entry once the customer books.
func (s *Service) MarkBooked(ctx context.Context, email, date, serviceID string) error {
	return s.repo.MarkBookedFor(ctx, strings.ToLower(strings.TrimSpace(email)), date, serviceID)
}

// Reconcile matches waiting entries against the open slots of a date.
// It runs after any write that frees capacity (cancel, no-show,
// reschedule away). First come, first served: entries are processed in
// creation order, and a slot claimed by an earlier entry in the pass is
// treated as consumed for every later entry, so one freed slot produces
// one notification. Re-running with no new capacity is a no-op because
// notified entries are no longer waiting.
func (s *Service) Reconcile(ctx context.Context, date string) error {
	entries, err := s.repo.WaitingByDate(ctx, date)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}

	booked, err := s.repo.OccupiedIntervals(ctx, date)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		svc, err := s.repo.ServiceByID(ctx, entry.ServiceID)
		if err != nil {
			s.log.Warn("waitlist reconcile: service lookup failed",
				slog.String("entry_id", entry.ID),
				slog.String("service_id", entry.ServiceID),
				slog.String("error", err.Error()),
			)
			continue
		}

		open, err := s.grid.AvailableSlots(booked, svc.DurationMinutes)
		if err != nil {
			return err
		}
		if len(open) == 0 {
			continue
		}

		slot := pickSlot(entry.PreferredTimeSlots, open)

		now := time.Now().In(s.location)
		ok, err := s.repo.MarkNotified(ctx, entry.ID, slot, now)
		if err != nil {
			s.log.Error("waitlist reconcile: mark notified failed",
				slog.String("entry_id", entry.ID),
				slog.String("error", err.Error()),
			)
			continue
		}
		if !ok {
			// another pass got there first
			continue
		}

		if iv, err := schedule.IntervalFor(slot, svc.DurationMinutes); err == nil {
			booked = append(booked, iv)
		}

		metrics.IncWaitlistNotified()
		s.log.Info("waitlist reconcile: notified",
			slog.String("entry_id", entry.ID),
			slog.String("date", date),
			slog.String("slot", slot),
		)

		s.notifier.NotifyWaitlistOpening(ctx, entry.Email, entry.Name, entry.Phone, svc.Name, date, slot)
	}

	return nil
}

// ExpirePast expires open entries whose date is before today.
func (s *Service) ExpirePast(ctx context.Context) (int64, error) {
	today := time.Now().In(s.location).Format("2006-01-02")
	return s.repo.ExpireBefore(ctx, today)
}

// pickSlot takes the first preference that is actually open, falling
// back to the earliest open slot when no preference matches or none
// were given.
func pickSlot(preferred, open []string) string {
	openSet := make(map[string]bool, len(open))
	for _, s := range open {
		openSet[s] = true
	}
	for _, p := range preferred {
		if openSet[p] {
			return p
		}
	}
	return open[0]
}
