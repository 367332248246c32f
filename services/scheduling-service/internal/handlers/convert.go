package handlers

import (
	"time"

	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/availability"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/model"
)

// toSchedule flattens stored schedule rows into the compute-side schedule.
// Several override rows for the same date collapse into one override; an
// override row with an empty window marks the date unavailable.
func toSchedule(m model.Schedule) availability.Schedule {
	out := availability.Schedule{TimeZone: m.Timezone}

	overrides := make(map[availability.Date]*availability.Override)
	var overrideOrder []availability.Date

	for _, rule := range m.Rules {
		if !rule.IsOverride() {
			out.Recurring = append(out.Recurring, availability.RecurringRule{
				Days: rule.Days,
				Window: availability.MinuteRange{
					StartMinute: rule.StartMinute,
					EndMinute:   rule.EndMinute,
				},
			})
			continue
		}
		day := availability.DateOf(*rule.Date)
		ov, ok := overrides[day]
		if !ok {
			ov = &availability.Override{Day: day}
			overrides[day] = ov
			overrideOrder = append(overrideOrder, day)
		}
		if rule.EndMinute > rule.StartMinute {
			ov.Windows = append(ov.Windows, availability.MinuteRange{
				StartMinute: rule.StartMinute,
				EndMinute:   rule.EndMinute,
			})
		}
	}

	for _, day := range overrideOrder {
		out.Overrides = append(out.Overrides, *overrides[day])
	}
	return out
}

func toEventConfig(et model.EventType) availability.EventConfig {
	cfg := availability.EventConfig{
		ID:            et.ID,
		Duration:      time.Duration(et.DurationMinutes) * time.Minute,
		SlotInterval:  time.Duration(et.SlotIntervalMinutes) * time.Minute,
		BufferBefore:  time.Duration(et.BufferBeforeMinutes) * time.Minute,
		BufferAfter:   time.Duration(et.BufferAfterMinutes) * time.Minute,
		MinimumNotice: time.Duration(et.MinimumNoticeMinutes) * time.Minute,
		SeatsPerSlot:  et.SeatsPerTimeSlot,
	}
	if cfg.SlotInterval <= 0 {
		cfg.SlotInterval = cfg.Duration
	}
	if len(et.BookingLimits) > 0 {
		cfg.Limits = make(map[availability.LimitPeriod]int, len(et.BookingLimits))
		for period, limit := range et.BookingLimits {
			if limit > 0 {
				cfg.Limits[availability.LimitPeriod(period)] = limit
			}
		}
	}
	return cfg
}

func toCoreBookings(bookings []model.Booking) []availability.Booking {
	out := make([]availability.Booking, 0, len(bookings))
	for _, b := range bookings {
		attendees := b.Attendees
		if attendees <= 0 {
			attendees = 1
		}
		out = append(out, availability.Booking{
			UID:         b.ID,
			EventTypeID: b.EventTypeID,
			Start:       b.StartTime,
			End:         b.EndTime,
			Attendees:   attendees,
		})
	}
	return out
}
