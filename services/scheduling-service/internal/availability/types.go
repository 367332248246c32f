package availability

import "time"

// Interval is a half-open time range [Start, End).
type Interval struct {
	Start time.Time
	End   time.Time
}

// BusyInterval is time unavailable for new bookings, with the source it came
// from ("calendar", "booking", "booking-limit", ...).
type BusyInterval struct {
	Start  time.Time
	End    time.Time
	Source string
}

// MinuteRange is a wall-clock range expressed as minutes from local midnight.
type MinuteRange struct {
	StartMinute int
	EndMinute   int
}

// Date is a calendar date without a time-of-day or location.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// In returns midnight of the date in loc.
func (d Date) In(loc *time.Location) time.Time {
	return time.Date(d.Year, d.Month, d.Day, 0, 0, 0, 0, loc)
}

// RecurringRule applies a wall-clock window to one or more weekdays, repeating
// indefinitely. Several rules may target the same weekday (split shifts).
type RecurringRule struct {
	Days   []time.Weekday
	Window MinuteRange
}

// Override replaces all recurring rules for a single calendar date. Empty
// Windows means the date is explicitly unavailable.
type Override struct {
	Day     Date
	Windows []MinuteRange
}

// Schedule is a weekly recurring availability definition plus per-date
// overrides, anchored to an IANA timezone.
type Schedule struct {
	TimeZone  string
	Recurring []RecurringRule
	Overrides []Override
}

type LimitPeriod string

const (
	PerDay   LimitPeriod = "PER_DAY"
	PerWeek  LimitPeriod = "PER_WEEK"
	PerMonth LimitPeriod = "PER_MONTH"
	PerYear  LimitPeriod = "PER_YEAR"
)

// periodOrder fixes the enforcement order so output is deterministic
// regardless of map iteration order.
var periodOrder = []LimitPeriod{PerDay, PerWeek, PerMonth}

// EventConfig is the per-event-type configuration slot computation needs.
// SeatsPerSlot of zero means the event type is not seat-based.
type EventConfig struct {
	ID            string
	Duration      time.Duration
	SlotInterval  time.Duration
	BufferBefore  time.Duration
	BufferAfter   time.Duration
	MinimumNotice time.Duration
	SeatsPerSlot  int
	Limits        map[LimitPeriod]int
}

// Booking is an existing reservation as slot computation sees it. Cancelled
// bookings and seated bookings whose attendees have all moved off must not be
// passed in.
type Booking struct {
	UID         string
	EventTypeID string
	Start       time.Time
	End         time.Time
	Attendees   int
}
