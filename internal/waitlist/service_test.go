package waitlist

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"sharpcut-backend/internal/models"
	"sharpcut-backend/internal/schedule"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRepo struct {
	entries   []Entry
	intervals []schedule.Interval
	services  map[string]models.Service

	markNotifiedCalls int
	createCalls       int
}

func (f *fakeRepo) Create(ctx context.Context, entry Entry) error {
	f.createCalls++
	f.entries = append(f.entries, entry)
	return nil
}

func (f *fakeRepo) WaitingByDate(ctx context.Context, date string) ([]Entry, error) {
	out := make([]Entry, 0)
	for _, e := range f.entries {
		if e.Date == date && e.Status == StatusWaiting {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeRepo) ListByEmail(ctx context.Context, email string) ([]Entry, error) { return nil, nil }
func (f *fakeRepo) ListByDate(ctx context.Context, date string) ([]Entry, error)  { return nil, nil }

func (f *fakeRepo) MarkNotified(ctx context.Context, id, slot string, at time.Time) (bool, error) {
	f.markNotifiedCalls++
	for i := range f.entries {
		if f.entries[i].ID == id && f.entries[i].Status == StatusWaiting {
			f.entries[i].Status = StatusNotified
			f.entries[i].NotifiedSlot = slot
			f.entries[i].NotifiedAt = &at
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepo) MarkBookedFor(ctx context.Context, email, date, serviceID string) error {
	return nil
}

func (f *fakeRepo) ExpireBefore(ctx context.Context, date string) (int64, error) {
	var n int64
	for i := range f.entries {
		if f.entries[i].Date < date && (f.entries[i].Status == StatusWaiting || f.entries[i].Status == StatusNotified) {
			f.entries[i].Status = StatusExpired
			n++
		}
	}
	return n, nil
}

func (f *fakeRepo) OccupiedIntervals(ctx context.Context, date string) ([]schedule.Interval, error) {
	return f.intervals, nil
}

func (f *fakeRepo) ServiceByID(ctx context.Context, id string) (models.Service, error) {
	svc, ok := f.services[id]
	if !ok {
		return models.Service{}, ErrServiceNotFound
	}
	return svc, nil
}

type fakeNotifier struct {
	calls []notification
}

type notification struct {
	email string
	date  string
	slot  string
}

func (f *fakeNotifier) NotifyWaitlistOpening(ctx context.Context, toEmail, toName, toPhone, serviceName, date, slot string) {
	f.calls = append(f.calls, notification{email: toEmail, date: date, slot: slot})
}

func testService(repo *fakeRepo, notifier *fakeNotifier) *Service {
	grid := schedule.Grid{Hours: schedule.Hours{Start: 9, End: 18}, SlotMinutes: 30}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, grid, notifier, time.UTC, log)
}

func waitingEntry(id, email, date string, createdAt time.Time, prefs ...string) Entry {
	return Entry{
		ID:                 id,
		ServiceID:          "haircut",
		Name:               "Customer " + id,
		Email:              email,
		Date:               date,
		PreferredTimeSlots: prefs,
		Status:             StatusWaiting,
		CreatedAt:          createdAt,
	}
}

func haircutServices() map[string]models.Service {
	return map[string]models.Service{
		"haircut": {ID: "haircut", Name: "Haircut", DurationMinutes: 30, Active: true},
	}
}

// fullyBookedExcept fills 09:00-18:00 leaving the given slots open.
func fullyBookedExcept(t *testing.T, openSlots ...string) []schedule.Interval {
	t.Helper()
	open := make(map[string]bool)
	for _, s := range openSlots {
		open[s] = true
	}
	intervals := make([]schedule.Interval, 0)
	for m := 9 * 60; m < 18*60; m += 30 {
		slot := schedule.MinutesToClock(m)
		if !open[slot] {
			intervals = append(intervals, schedule.Interval{Start: m, End: m + 30})
		}
	}
	return intervals
}

func TestReconcileNoWaitingEntriesIsNoOp(t *testing.T) {
	repo := &fakeRepo{services: haircutServices()}
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier)

	require.NoError(t, svc.Reconcile(context.Background(), "2026-03-02"))

	assert.Zero(t, repo.markNotifiedCalls, "no writes may occur on an empty waitlist")
	assert.Empty(t, notifier.calls)
}

func TestReconcileFCFSOneFreedSlot(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		services:  haircutServices(),
		intervals: fullyBookedExcept(t, "11:00"),
		entries: []Entry{
			waitingEntry("late", "late@example.com", "2026-03-02", base.Add(time.Minute)),
			waitingEntry("early", "early@example.com", "2026-03-02", base),
		},
	}
	// WaitingByDate in the fake preserves insertion order, so order the
	// slice the way the query would return it.
	repo.entries[0], repo.entries[1] = repo.entries[1], repo.entries[0]

	notifier := &fakeNotifier{}
	svc := testService(repo, notifier)

	require.NoError(t, svc.Reconcile(context.Background(), "2026-03-02"))

	require.Len(t, notifier.calls, 1, "one freed slot notifies exactly one entry")
	assert.Equal(t, "early@example.com", notifier.calls[0].email)
	assert.Equal(t, "11:00", notifier.calls[0].slot)

	assert.Equal(t, StatusNotified, repo.entries[0].Status)
	assert.Equal(t, StatusWaiting, repo.entries[1].Status, "later entry stays waiting")
}

func TestReconcilePreferredSlotWins(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		services:  haircutServices(),
		intervals: fullyBookedExcept(t, "09:00", "10:30"),
		entries: []Entry{
			waitingEntry("e1", "pref@example.com", "2026-03-02", base, "10:00", "10:30"),
		},
	}
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier)

	require.NoError(t, svc.Reconcile(context.Background(), "2026-03-02"))

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "10:30", notifier.calls[0].slot,
		"10:00 is taken, so the second preference wins over the earliest open slot")
}

func TestReconcileFallsBackToEarliestWhenNoPreferenceMatches(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		services:  haircutServices(),
		intervals: fullyBookedExcept(t, "12:00", "15:30"),
		entries: []Entry{
			waitingEntry("e1", "nopref@example.com", "2026-03-02", base, "09:00"),
		},
	}
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier)

	require.NoError(t, svc.Reconcile(context.Background(), "2026-03-02"))

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "12:00", notifier.calls[0].slot)
}

func TestReconcileNoPreferencesGetsEarliest(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		services:  haircutServices(),
		intervals: fullyBookedExcept(t, "13:00", "16:00"),
		entries: []Entry{
			waitingEntry("e1", "any@example.com", "2026-03-02", base),
		},
	}
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier)

	require.NoError(t, svc.Reconcile(context.Background(), "2026-03-02"))

	require.Len(t, notifier.calls, 1)
	assert.Equal(t, "13:00", notifier.calls[0].slot)
}

func TestReconcileLeavesEntryWaitingWhenFullyBooked(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		services:  haircutServices(),
		intervals: fullyBookedExcept(t),
		entries: []Entry{
			waitingEntry("e1", "stuck@example.com", "2026-03-02", base),
		},
	}
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier)

	require.NoError(t, svc.Reconcile(context.Background(), "2026-03-02"))

	assert.Empty(t, notifier.calls)
	assert.Equal(t, StatusWaiting, repo.entries[0].Status)
}

func TestReconcileIsIdempotent(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		services:  haircutServices(),
		intervals: fullyBookedExcept(t, "11:00"),
		entries: []Entry{
			waitingEntry("e1", "once@example.com", "2026-03-02", base),
		},
	}
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier)

	require.NoError(t, svc.Reconcile(context.Background(), "2026-03-02"))
	require.NoError(t, svc.Reconcile(context.Background(), "2026-03-02"))

	assert.Len(t, notifier.calls, 1, "second run must not re-notify")
	assert.Equal(t, 1, repo.markNotifiedCalls)
}

func TestReconcileConsumesSlotWithinPass(t *testing.T) {
	// Two waiting entries, one open slot: the pass must treat the slot
	// claimed by the first entry as booked when evaluating the second.
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		services:  haircutServices(),
		intervals: fullyBookedExcept(t, "14:00"),
		entries: []Entry{
			waitingEntry("first", "first@example.com", "2026-03-02", base, "14:00"),
			waitingEntry("second", "second@example.com", "2026-03-02", base.Add(time.Second), "14:00"),
		},
	}
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier)

	require.NoError(t, svc.Reconcile(context.Background(), "2026-03-02"))

	require.Len(t, notifier.calls, 1, "the same slot must not be promised twice in one pass")
	assert.Equal(t, "first@example.com", notifier.calls[0].email)
}

func TestReconcileTwoFreedSlotsTwoEntries(t *testing.T) {
	base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	repo := &fakeRepo{
		services:  haircutServices(),
		intervals: fullyBookedExcept(t, "10:00", "15:00"),
		entries: []Entry{
			waitingEntry("first", "first@example.com", "2026-03-02", base),
			waitingEntry("second", "second@example.com", "2026-03-02", base.Add(time.Second)),
		},
	}
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier)

	require.NoError(t, svc.Reconcile(context.Background(), "2026-03-02"))

	require.Len(t, notifier.calls, 2)
	assert.Equal(t, "10:00", notifier.calls[0].slot)
	assert.Equal(t, "15:00", notifier.calls[1].slot)
}

func TestExpirePast(t *testing.T) {
	repo := &fakeRepo{
		services: haircutServices(),
		entries: []Entry{
			waitingEntry("old", "old@example.com", "2020-01-01", time.Date(2019, 12, 20, 0, 0, 0, 0, time.UTC)),
			waitingEntry("future", "future@example.com", "2999-01-01", time.Now()),
		},
	}
	notifier := &fakeNotifier{}
	svc := testService(repo, notifier)

	n, err := svc.ExpirePast(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
	assert.Equal(t, StatusExpired, repo.entries[0].Status)
	assert.Equal(t, StatusWaiting, repo.entries[1].Status)
}
