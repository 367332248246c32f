package availability

import (
	"errors"
	"reflect"
	"testing"
	"time"
)

func weekdaySchedule() Schedule {
	return Schedule{
		TimeZone: "UTC",
		Recurring: []RecurringRule{
			{
				Days:   []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
				Window: MinuteRange{StartMinute: 9 * 60, EndMinute: 17 * 60},
			},
		},
	}
}

func TestCompute_Basic(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) // Tuesday
	req := Request{
		From:     day,
		To:       day.AddDate(0, 0, 1),
		Now:      day,
		Schedule: weekdaySchedule(),
		Event:    EventConfig{ID: "et1", Duration: 30 * time.Minute, SlotInterval: 30 * time.Minute},
		CalendarBusy: []BusyInterval{
			{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour), Source: "calendar"},
		},
	}

	res, err := Compute(req)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// 09:00-17:00 in 30 minute steps is 16 candidates, minus 10:00 and 10:30.
	if len(res.Slots) != 14 {
		t.Fatalf("expected 14 slots, got %d", len(res.Slots))
	}
	for _, s := range res.Slots {
		if Overlaps(s.Start, s.End, res.Busy) {
			t.Fatalf("offered slot %s overlaps busy time", s.Start.Format(time.RFC3339))
		}
		if s.RemainingSeats != -1 {
			t.Fatalf("non-seated slot must report -1 remaining seats, got %d", s.RemainingSeats)
		}
	}
}

func TestCompute_InvalidRange(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	_, err := Compute(Request{
		From:     day,
		To:       day.AddDate(0, 0, -1),
		Now:      day,
		Schedule: weekdaySchedule(),
		Event:    EventConfig{ID: "et1", Duration: 30 * time.Minute, SlotInterval: 30 * time.Minute},
	})
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestCompute_MinimumNotice(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	req := Request{
		From:     day,
		To:       day.AddDate(0, 0, 1),
		Now:      day.Add(9*time.Hour + 10*time.Minute),
		Schedule: weekdaySchedule(),
		Event: EventConfig{
			ID:            "et1",
			Duration:      30 * time.Minute,
			SlotInterval:  30 * time.Minute,
			MinimumNotice: time.Hour,
		},
	}
	res, err := Compute(req)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	earliest := req.Now.Add(time.Hour)
	if len(res.Slots) == 0 {
		t.Fatal("expected slots after the notice threshold")
	}
	if res.Slots[0].Start.Before(earliest) {
		t.Fatalf("first slot %s violates minimum notice (earliest %s)",
			res.Slots[0].Start.Format(time.RFC3339), earliest.Format(time.RFC3339))
	}
}

func TestCompute_Deterministic(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	req := Request{
		From:     day,
		To:       day.AddDate(0, 0, 2),
		Now:      day,
		Schedule: weekdaySchedule(),
		Event: EventConfig{
			ID:           "et1",
			Duration:     time.Hour,
			SlotInterval: 30 * time.Minute,
			BufferBefore: 10 * time.Minute,
			BufferAfter:  10 * time.Minute,
			Limits:       map[LimitPeriod]int{PerDay: 3},
		},
		CalendarBusy: []BusyInterval{
			{Start: day.Add(11 * time.Hour), End: day.Add(12 * time.Hour), Source: "calendar"},
		},
		Bookings: []Booking{
			{UID: "b1", EventTypeID: "et1", Start: day.Add(14 * time.Hour), End: day.Add(15 * time.Hour), Attendees: 1},
		},
	}

	first, err := Compute(req)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	second, err := Compute(req)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("identical inputs must produce identical results")
	}
}

func TestCompute_PerDayLimitBlocksDay(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC) // Tuesday
	next := day.AddDate(0, 0, 1)
	req := Request{
		From:     day,
		To:       day.AddDate(0, 0, 2),
		Now:      day,
		Schedule: weekdaySchedule(),
		Event: EventConfig{
			ID:           "et1",
			Duration:     30 * time.Minute,
			SlotInterval: 30 * time.Minute,
			Limits:       map[LimitPeriod]int{PerDay: 1},
		},
		Bookings: []Booking{
			{UID: "b1", EventTypeID: "et1", Start: day.Add(10 * time.Hour), End: day.Add(10*time.Hour + 30*time.Minute), Attendees: 1},
		},
	}

	res, err := Compute(req)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	for _, s := range res.Slots {
		if s.Start.Before(next) {
			t.Fatalf("2024-03-05 is at its per-day cap but slot %s was offered", s.Start.Format(time.RFC3339))
		}
	}
	if len(res.Slots) == 0 {
		t.Fatal("2024-03-06 should still have availability")
	}
}

func TestCompute_Seats(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	ten := day.Add(10 * time.Hour)
	eleven := day.Add(11 * time.Hour)
	req := Request{
		From:     day,
		To:       day.AddDate(0, 0, 1),
		Now:      day,
		Schedule: weekdaySchedule(),
		Event: EventConfig{
			ID:           "et1",
			Duration:     time.Hour,
			SlotInterval: time.Hour,
			SeatsPerSlot: 2,
		},
		Bookings: []Booking{
			{UID: "full", EventTypeID: "et1", Start: ten, End: eleven, Attendees: 2},
			{UID: "half", EventTypeID: "et1", Start: eleven, End: day.Add(12 * time.Hour), Attendees: 1},
		},
	}

	res, err := Compute(req)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}

	for _, s := range res.Slots {
		if s.Start.Equal(ten) {
			t.Fatal("10:00 is at capacity and must not be offerable")
		}
		if s.Start.Equal(eleven) && s.RemainingSeats != 1 {
			t.Fatalf("11:00 should report 1 remaining seat, got %d", s.RemainingSeats)
		}
	}
	if len(res.FullSlots) != 1 {
		t.Fatalf("expected exactly one full slot, got %d", len(res.FullSlots))
	}
	if !res.FullSlots[0].Start.Equal(ten) || res.FullSlots[0].RemainingSeats != 0 {
		t.Fatalf("expected 10:00 reported full with 0 remaining seats, got %+v", res.FullSlots[0])
	}
}

func TestCompute_OverridePrecedence(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	s := weekdaySchedule()
	s.Overrides = []Override{
		{Day: Date{Year: 2024, Month: time.March, Day: 5}, Windows: []MinuteRange{{StartMinute: 13 * 60, EndMinute: 14 * 60}}},
	}
	req := Request{
		From:     day,
		To:       day.AddDate(0, 0, 1),
		Now:      day,
		Schedule: s,
		Event:    EventConfig{ID: "et1", Duration: time.Hour, SlotInterval: time.Hour},
	}

	res, err := Compute(req)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	if len(res.Slots) != 1 {
		t.Fatalf("expected exactly the override slot, got %d slots", len(res.Slots))
	}
	if !res.Slots[0].Start.Equal(day.Add(13 * time.Hour)) {
		t.Fatalf("expected 13:00 slot from override, got %s", res.Slots[0].Start.Format(time.RFC3339))
	}
	if len(res.DateOverrides) != 1 {
		t.Fatalf("expected the override window reported, got %d", len(res.DateOverrides))
	}
}

func TestCompute_SlotMustFitWindow(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	s := Schedule{
		TimeZone: "UTC",
		Recurring: []RecurringRule{
			{Days: []time.Weekday{time.Tuesday}, Window: MinuteRange{StartMinute: 9 * 60, EndMinute: 9*60 + 45}},
		},
	}
	req := Request{
		From:     day,
		To:       day.AddDate(0, 0, 1),
		Now:      day,
		Schedule: s,
		Event:    EventConfig{ID: "et1", Duration: 30 * time.Minute, SlotInterval: 15 * time.Minute},
	}
	res, err := Compute(req)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	// Window is 45 minutes: only 09:00 and 09:15 fit a 30 minute event.
	if len(res.Slots) != 2 {
		t.Fatalf("expected 2 slots, got %d", len(res.Slots))
	}
	last := res.Slots[len(res.Slots)-1]
	if last.End.After(day.Add(9*time.Hour + 45*time.Minute)) {
		t.Fatalf("slot %s spills past the working window", last.Start.Format(time.RFC3339))
	}
}
