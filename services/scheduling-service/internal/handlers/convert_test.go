package handlers

import (
	"testing"
	"time"

	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/availability"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/model"
)

func TestToScheduleSplitsRecurringAndOverrides(t *testing.T) {
	overrideDate := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	m := model.Schedule{
		Timezone: "America/New_York",
		Rules: []model.ScheduleRule{
			{Days: []time.Weekday{time.Monday, time.Tuesday}, StartMinute: 540, EndMinute: 1020},
			{Date: &overrideDate, StartMinute: 600, EndMinute: 720},
			{Date: &overrideDate, StartMinute: 780, EndMinute: 900},
		},
	}

	s := toSchedule(m)
	if s.TimeZone != "America/New_York" {
		t.Fatalf("timezone = %q", s.TimeZone)
	}
	if len(s.Recurring) != 1 {
		t.Fatalf("recurring rules = %d, want 1", len(s.Recurring))
	}
	if len(s.Overrides) != 1 {
		t.Fatalf("overrides = %d, want 1 (same-date rows must collapse)", len(s.Overrides))
	}
	ov := s.Overrides[0]
	if ov.Day != (availability.Date{Year: 2024, Month: time.March, Day: 5}) {
		t.Fatalf("override day = %+v", ov.Day)
	}
	if len(ov.Windows) != 2 {
		t.Fatalf("override windows = %d, want 2", len(ov.Windows))
	}
}

func TestToScheduleEmptyOverrideBlanksDate(t *testing.T) {
	overrideDate := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	m := model.Schedule{
		Timezone: "UTC",
		Rules: []model.ScheduleRule{
			{Date: &overrideDate, StartMinute: 0, EndMinute: 0},
		},
	}

	s := toSchedule(m)
	if len(s.Overrides) != 1 {
		t.Fatalf("overrides = %d, want 1", len(s.Overrides))
	}
	if len(s.Overrides[0].Windows) != 0 {
		t.Fatalf("zero-width rule must produce an unavailable override, got %d windows", len(s.Overrides[0].Windows))
	}
}

func TestToEventConfigDefaultsSlotInterval(t *testing.T) {
	et := model.EventType{
		ID:              "et-1",
		DurationMinutes: 45,
		BookingLimits:   map[string]int{"PER_DAY": 3, "PER_WEEK": 0},
	}

	cfg := toEventConfig(et)
	if cfg.SlotInterval != 45*time.Minute {
		t.Fatalf("slot interval = %v, want the duration", cfg.SlotInterval)
	}
	if cfg.Limits[availability.PerDay] != 3 {
		t.Fatalf("PER_DAY limit = %d", cfg.Limits[availability.PerDay])
	}
	if _, ok := cfg.Limits[availability.PerWeek]; ok {
		t.Fatal("zero limits must be dropped")
	}
}

func TestToCoreBookingsDefaultsAttendees(t *testing.T) {
	in := []model.Booking{
		{ID: "b-1", EventTypeID: "et-1", Attendees: 0},
		{ID: "b-2", EventTypeID: "et-1", Attendees: 4},
	}
	out := toCoreBookings(in)
	if out[0].Attendees != 1 {
		t.Fatalf("zero attendees must default to 1, got %d", out[0].Attendees)
	}
	if out[1].Attendees != 4 {
		t.Fatalf("attendees = %d, want 4", out[1].Attendees)
	}
}
