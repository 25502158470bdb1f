package schedule

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidDate = errors.New("invalid date format")
	ErrInvalidTime = errors.New("invalid time format")
	ErrInvalidGrid = errors.New("invalid grid configuration")
)

// Hours are the shop's daily opening hours on a 24h clock.
type Hours struct {
	Start int
	End   int
}

// Grid quantizes the business day into fixed-length bookable slots.
// It is passed around explicitly so slot math can be exercised under
// alternate opening hours without touching process state.
type Grid struct {
	Hours       Hours
	SlotMinutes int
}

func (g Grid) Validate() error {
	if g.Hours.Start < 0 || g.Hours.End > 24 || g.Hours.Start >= g.Hours.End {
		return fmt.Errorf("%w: hours %d-%d", ErrInvalidGrid, g.Hours.Start, g.Hours.End)
	}
	if g.SlotMinutes < 5 {
		return fmt.Errorf("%w: slot interval %d minutes", ErrInvalidGrid, g.SlotMinutes)
	}
	if (g.Hours.End-g.Hours.Start)*60%g.SlotMinutes != 0 {
		return fmt.Errorf("%w: %d-minute slots do not divide %d open hours", ErrInvalidGrid, g.SlotMinutes, g.Hours.End-g.Hours.Start)
	}
	return nil
}

func (g Grid) openMinute() int  { return g.Hours.Start * 60 }
func (g Grid) closeMinute() int { return g.Hours.End * 60 }

// Slots returns the ordered "HH:MM" grid covering [Start, End).
func (g Grid) Slots() []string {
	open, close := g.openMinute(), g.closeMinute()
	slots := make([]string, 0, (close-open)/g.SlotMinutes)
	for cursor := open; cursor < close; cursor += g.SlotMinutes {
		slots = append(slots, MinutesToClock(cursor))
	}
	return slots
}

// Interval is a [Start, End) minute range within a day, derived from a
// slot plus a service duration. It exists only for overlap math and is
// never persisted.
type Interval struct {
	Start int
	End   int
}

func IntervalFor(slot string, duration int) (Interval, error) {
	start, err := ParseClockToMinutes(slot)
	if err != nil {
		return Interval{}, err
	}
	return Interval{Start: start, End: start + duration}, nil
}

// Overlaps reports whether two half-open intervals collide.
// Back-to-back intervals (a.End == b.Start) do not conflict.
func Overlaps(a, b Interval) bool {
	return a.Start < b.End && b.Start < a.End
}

// IsAvailable decides whether a service of the given duration can start
// at the candidate slot: the appointment must not spill outside opening
// hours and must not overlap any existing booking. Linear in
// len(booked); a day's bookings at a single shop stay small enough that
// no interval index is warranted. Callers exclude cancelled and no-show
// bookings before calling.
func (g Grid) IsAvailable(slot string, booked []Interval, duration int) (bool, error) {
	candidate, err := IntervalFor(slot, duration)
	if err != nil {
		return false, err
	}
	if candidate.Start < g.openMinute() || candidate.End > g.closeMinute() {
		return false, nil
	}
	for _, b := range booked {
		if Overlaps(candidate, b) {
			return false, nil
		}
	}
	return true, nil
}

// AvailableSlots filters the grid to slots where a service of the given
// duration fits. Slots come back in grid order; an empty result is a
// fully booked day, not an error.
func (g Grid) AvailableSlots(booked []Interval, duration int) ([]string, error) {
	open := make([]string, 0)
	for _, slot := range g.Slots() {
		ok, err := g.IsAvailable(slot, booked, duration)
		if err != nil {
			return nil, err
		}
		if ok {
			open = append(open, slot)
		}
	}
	return open, nil
}

// OnGrid reports whether timeStr falls on one of the grid's slot
// boundaries within opening hours.
func (g Grid) OnGrid(timeStr string) (bool, error) {
	start, err := ParseClockToMinutes(timeStr)
	if err != nil {
		return false, err
	}
	if start < g.openMinute() || start >= g.closeMinute() {
		return false, nil
	}
	return (start-g.openMinute())%g.SlotMinutes == 0, nil
}

func ParseDate(dateStr string, loc *time.Location) (time.Time, error) {
	date, err := time.ParseInLocation("2006-01-02", dateStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidDate
	}
	return date, nil
}

func ParseDateTime(dateStr, timeStr string, loc *time.Location) (time.Time, error) {
	if _, err := time.Parse("15:04", timeStr); err != nil {
		return time.Time{}, ErrInvalidTime
	}
	if _, err := ParseDate(dateStr, loc); err != nil {
		return time.Time{}, err
	}
	parsed, err := time.ParseInLocation("2006-01-02 15:04", dateStr+" "+timeStr, loc)
	if err != nil {
		return time.Time{}, ErrInvalidTime
	}
	return parsed, nil
}

func ParseClockToMinutes(timeStr string) (int, error) {
	tm, err := time.Parse("15:04", timeStr)
	if err != nil {
		return 0, ErrInvalidTime
	}
	return tm.Hour()*60 + tm.Minute(), nil
}

func MinutesToClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

func IsDatePast(dateStr string, loc *time.Location, now time.Time) (bool, error) {
	date, err := ParseDate(dateStr, loc)
	if err != nil {
		return false, err
	}
	startToday := time.Date(now.In(loc).Year(), now.In(loc).Month(), now.In(loc).Day(), 0, 0, 0, 0, loc)
	return date.Before(startToday), nil
}

func IsSlotPast(dateStr, timeStr string, loc *time.Location, now time.Time) (bool, error) {
	slot, err := ParseDateTime(dateStr, timeStr, loc)
	if err != nil {
		return false, err
	}
	return !slot.After(now.In(loc)), nil
}

// FilterPastSlots drops slots that have already started today.
func FilterPastSlots(dateStr string, slots []string, loc *time.Location, now time.Time) ([]string, error) {
	filtered := make([]string, 0, len(slots))
	for _, s := range slots {
		past, err := IsSlotPast(dateStr, s, loc, now)
		if err != nil {
			return nil, err
		}
		if !past {
			filtered = append(filtered, s)
		}
	}
	return filtered, nil
}
