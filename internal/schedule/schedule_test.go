package schedule

import (
	"testing"
	"time"
)

func testGrid() Grid {
	return Grid{Hours: Hours{Start: 9, End: 18}, SlotMinutes: 30}
}

func TestGridValidate(t *testing.T) {
	if err := testGrid().Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}

	bad := []Grid{
		{Hours: Hours{Start: 18, End: 9}, SlotMinutes: 30},
		{Hours: Hours{Start: 9, End: 18}, SlotMinutes: 0},
		{Hours: Hours{Start: 9, End: 18}, SlotMinutes: 25},
		{Hours: Hours{Start: -1, End: 18}, SlotMinutes: 30},
	}
	for _, g := range bad {
		if err := g.Validate(); err == nil {
			t.Fatalf("expected Validate to fail for %+v", g)
		}
	}
}

func TestGridSlots(t *testing.T) {
	slots := testGrid().Slots()
	if len(slots) != 18 {
		t.Fatalf("expected 18 slots, got %d", len(slots))
	}
	if slots[0] != "09:00" || slots[len(slots)-1] != "17:30" {
		t.Fatalf("unexpected boundary slots: %v", slots)
	}
}

func TestOverlapsBackToBack(t *testing.T) {
	a := Interval{Start: 540, End: 570} // 09:00-09:30
	b := Interval{Start: 570, End: 600} // 09:30-10:00
	if Overlaps(a, b) || Overlaps(b, a) {
		t.Fatalf("back-to-back intervals must not conflict")
	}
}

func TestIsAvailableBackToBack(t *testing.T) {
	g := testGrid()
	booked := []Interval{{Start: 540, End: 570}} // 09:00 + 30min
	ok, err := g.IsAvailable("09:30", booked, 30)
	if err != nil {
		t.Fatalf("IsAvailable error: %v", err)
	}
	if !ok {
		t.Fatalf("expected 09:30 to be free after a 09:00-09:30 booking")
	}
}

func TestIsAvailableNestedConflict(t *testing.T) {
	g := testGrid()
	booked := []Interval{{Start: 540, End: 600}} // 09:00 + 60min
	ok, err := g.IsAvailable("09:30", booked, 30)
	if err != nil {
		t.Fatalf("IsAvailable error: %v", err)
	}
	if ok {
		t.Fatalf("expected 09:30 to conflict inside a 09:00-10:00 booking")
	}
}

func TestIsAvailableEnvelopingConflict(t *testing.T) {
	g := testGrid()
	booked := []Interval{{Start: 570, End: 600}} // 09:30-10:00
	ok, err := g.IsAvailable("09:00", booked, 90)
	if err != nil {
		t.Fatalf("IsAvailable error: %v", err)
	}
	if ok {
		t.Fatalf("expected a 09:00+90min candidate to conflict with 09:30-10:00")
	}
}

func TestIsAvailableSpillsPastClosing(t *testing.T) {
	g := testGrid()
	ok, err := g.IsAvailable("17:45", nil, 30)
	if err != nil {
		t.Fatalf("IsAvailable error: %v", err)
	}
	if ok {
		t.Fatalf("expected 17:45+30min to be rejected past 18:00 closing")
	}
}

func TestIsAvailableBeforeOpening(t *testing.T) {
	g := testGrid()
	ok, err := g.IsAvailable("08:30", nil, 30)
	if err != nil {
		t.Fatalf("IsAvailable error: %v", err)
	}
	if ok {
		t.Fatalf("expected 08:30 to be rejected before opening")
	}
}

func TestAvailableSlotsEmptyBookings(t *testing.T) {
	g := testGrid()
	slots, err := g.AvailableSlots(nil, 30)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(slots) != 18 {
		t.Fatalf("expected full grid of 18 slots, got %d", len(slots))
	}
}

func TestAvailableSlotsLongServiceTrimsTail(t *testing.T) {
	g := testGrid()
	slots, err := g.AvailableSlots(nil, 60)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	// a 60-minute cut cannot start at 17:30
	if slots[len(slots)-1] != "17:00" {
		t.Fatalf("expected last startable slot 17:00, got %s", slots[len(slots)-1])
	}
}

func TestAvailableSlotsFullyBooked(t *testing.T) {
	g := testGrid()
	booked := []Interval{{Start: 540, End: 1080}} // 09:00-18:00
	slots, err := g.AvailableSlots(booked, 30)
	if err != nil {
		t.Fatalf("AvailableSlots error: %v", err)
	}
	if len(slots) != 0 {
		t.Fatalf("expected no slots on a fully booked day, got %v", slots)
	}
}

func TestOnGrid(t *testing.T) {
	g := testGrid()
	cases := []struct {
		timeStr string
		want    bool
	}{
		{"09:00", true},
		{"17:30", true},
		{"09:15", false},
		{"18:00", false},
		{"08:30", false},
	}
	for _, c := range cases {
		got, err := g.OnGrid(c.timeStr)
		if err != nil {
			t.Fatalf("OnGrid(%s) error: %v", c.timeStr, err)
		}
		if got != c.want {
			t.Fatalf("OnGrid(%s) = %v, want %v", c.timeStr, got, c.want)
		}
	}
}

func TestIntervalFor(t *testing.T) {
	iv, err := IntervalFor("09:30", 45)
	if err != nil {
		t.Fatalf("IntervalFor error: %v", err)
	}
	if iv.Start != 570 || iv.End != 615 {
		t.Fatalf("unexpected interval: %+v", iv)
	}
	if _, err := IntervalFor("25:00", 30); err == nil {
		t.Fatalf("expected error for invalid clock")
	}
}

func TestIsDatePast(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 4, 10, 0, 0, 0, loc)
	past, err := IsDatePast("2026-02-03", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if !past {
		t.Fatalf("expected date to be past")
	}
	past, err = IsDatePast("2026-02-04", loc, now)
	if err != nil {
		t.Fatalf("IsDatePast error: %v", err)
	}
	if past {
		t.Fatalf("expected today to be not past")
	}
}

func TestFilterPastSlots(t *testing.T) {
	loc := time.UTC
	now := time.Date(2026, 2, 4, 10, 0, 0, 0, loc)
	filtered, err := FilterPastSlots("2026-02-04", []string{"09:00", "09:30", "10:30"}, loc, now)
	if err != nil {
		t.Fatalf("FilterPastSlots error: %v", err)
	}
	if len(filtered) != 1 || filtered[0] != "10:30" {
		t.Fatalf("unexpected slots: %v", filtered)
	}
}
