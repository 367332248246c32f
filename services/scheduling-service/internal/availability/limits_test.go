package availability

import (
	"testing"
	"time"
)

func TestApplyBookingLimits_PerDay(t *testing.T) {
	cfg := EventConfig{ID: "et1", Limits: map[LimitPeriod]int{PerDay: 1}}
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	bookings := []Booking{
		{UID: "b1", EventTypeID: "et1", Start: day.Add(10 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute)},
	}

	blocks := ApplyBookingLimits(cfg, bookings, 0, day, day.AddDate(0, 0, 2), time.UTC)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 blocked bucket, got %d", len(blocks))
	}
	if !blocks[0].Start.Equal(day) || !blocks[0].End.Equal(day.AddDate(0, 0, 1)) {
		t.Fatalf("expected 2024-03-05 blocked for the whole day, got %v", blocks[0])
	}
}

func TestApplyBookingLimits_OtherEventTypeDoesNotCount(t *testing.T) {
	cfg := EventConfig{ID: "et1", Limits: map[LimitPeriod]int{PerDay: 1}}
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	bookings := []Booking{
		{UID: "b1", EventTypeID: "et2", Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)},
	}
	if blocks := ApplyBookingLimits(cfg, bookings, 0, day, day.AddDate(0, 0, 1), time.UTC); len(blocks) != 0 {
		t.Fatalf("bookings of other event types must not count, got %d blocks", len(blocks))
	}
}

func TestApplyBookingLimits_WeekBoundaryInLocalTime(t *testing.T) {
	// Week starts Monday. A booking at Sunday 23:30 in UTC-5 is already Monday
	// 04:30 in UTC, but must count toward the week ending that local Sunday.
	loc := time.FixedZone("UTC-5", -5*3600)
	cfg := EventConfig{ID: "et1", Limits: map[LimitPeriod]int{PerWeek: 1}}

	sundayLate := time.Date(2024, 3, 10, 23, 30, 0, 0, loc)
	if sundayLate.UTC().Weekday() != time.Monday {
		t.Fatalf("test setup: expected UTC instant on Monday, got %s", sundayLate.UTC().Weekday())
	}
	bookings := []Booking{
		{UID: "b1", EventTypeID: "et1", Start: sundayLate, End: sundayLate.Add(30 * time.Minute)},
	}

	// Query the week containing that Sunday: Mon 2024-03-04 .. Mon 2024-03-11 (local).
	weekStart := time.Date(2024, 3, 4, 0, 0, 0, 0, loc)
	weekEnd := weekStart.AddDate(0, 0, 7)
	blocks := ApplyBookingLimits(cfg, bookings, 0, weekStart, weekEnd, loc)
	if len(blocks) != 1 {
		t.Fatalf("expected the Mon-Sun week to be blocked, got %d blocks", len(blocks))
	}
	if !blocks[0].Start.Equal(weekStart) || !blocks[0].End.Equal(weekEnd) {
		t.Fatalf("expected block [%s, %s], got %v", weekStart, weekEnd, blocks[0])
	}

	// The following week must not be blocked even though the booking's UTC
	// timestamp is close to its boundary.
	nextBlocks := ApplyBookingLimits(cfg, bookings, 0, weekEnd, weekEnd.AddDate(0, 0, 7), loc)
	if len(nextBlocks) != 0 {
		t.Fatalf("booking must not leak into the following week, got %d blocks", len(nextBlocks))
	}
}

func TestApplyBookingLimits_PerYearShortCircuits(t *testing.T) {
	cfg := EventConfig{ID: "et1", Limits: map[LimitPeriod]int{PerYear: 1, PerDay: 5}}

	// The January booking is outside the fetched range; the yearly cap runs on
	// the aggregate count instead.
	from := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	blocks := ApplyBookingLimits(cfg, nil, 1, from, from.AddDate(0, 0, 7), time.UTC)
	if len(blocks) != 1 {
		t.Fatalf("expected a single year-wide block, got %d", len(blocks))
	}
	yearStart := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	if !blocks[0].Start.Equal(yearStart) || !blocks[0].End.Equal(yearStart.AddDate(1, 0, 0)) {
		t.Fatalf("expected whole 2024 blocked, got %v", blocks[0])
	}
}

func TestApplyBookingLimits_PerYearUnderCapFallsThrough(t *testing.T) {
	cfg := EventConfig{ID: "et1", Limits: map[LimitPeriod]int{PerYear: 10, PerDay: 1}}
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	bookings := []Booking{
		{UID: "b1", EventTypeID: "et1", Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour)},
	}
	blocks := ApplyBookingLimits(cfg, bookings, 1, day, day.AddDate(0, 0, 1), time.UTC)
	if len(blocks) != 1 {
		t.Fatalf("expected per-day enforcement to still run, got %d blocks", len(blocks))
	}
	if blocks[0].End.Sub(blocks[0].Start) != 24*time.Hour {
		t.Fatalf("expected a day-sized block, got %v", blocks[0])
	}
}

func TestApplyBookingLimits_MonthBuckets(t *testing.T) {
	cfg := EventConfig{ID: "et1", Limits: map[LimitPeriod]int{PerMonth: 2}}
	feb := time.Date(2024, 2, 10, 9, 0, 0, 0, time.UTC)
	bookings := []Booking{
		{UID: "b1", EventTypeID: "et1", Start: feb, End: feb.Add(time.Hour)},
		{UID: "b2", EventTypeID: "et1", Start: feb.AddDate(0, 0, 5), End: feb.AddDate(0, 0, 5).Add(time.Hour)},
	}

	// Range spans the Feb/Mar boundary; only February is at cap.
	from := time.Date(2024, 2, 25, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	blocks := ApplyBookingLimits(cfg, bookings, 0, from, to, time.UTC)
	if len(blocks) != 1 {
		t.Fatalf("expected only February blocked, got %d blocks", len(blocks))
	}
	if !blocks[0].Start.Equal(time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected February bucket start, got %s", blocks[0].Start)
	}
	if !blocks[0].End.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected February bucket end (leap year), got %s", blocks[0].End)
	}
}

func TestWidenToBuckets(t *testing.T) {
	cfg := EventConfig{ID: "et1", Limits: map[LimitPeriod]int{PerWeek: 2, PerMonth: 5}}
	from := time.Date(2024, 3, 13, 12, 0, 0, 0, time.UTC) // Wednesday, mid-month
	to := time.Date(2024, 3, 14, 0, 0, 0, 0, time.UTC)

	wFrom, wTo := WidenToBuckets(cfg, from, to, time.UTC)
	if !wFrom.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected widened start at month boundary, got %s", wFrom)
	}
	if !wTo.Equal(time.Date(2024, 4, 1, 0, 0, 0, 0, time.UTC)) {
		t.Fatalf("expected widened end at next month boundary, got %s", wTo)
	}
}
