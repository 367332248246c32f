package availability

import (
	"errors"
	"fmt"
	"sort"
	"time"
)

var (
	// ErrInvalidRange is returned when the query range is empty or reversed.
	// The range is never swapped or clamped on the caller's behalf.
	ErrInvalidRange = errors.New("availability: date range end must be after start")

	ErrInvalidConfig = errors.New("availability: event config invalid")
)

// Request carries everything Compute needs, already fetched. Now is explicit
// so identical inputs always produce identical output.
type Request struct {
	From time.Time
	To   time.Time
	Now  time.Time

	Schedule     Schedule
	Event        EventConfig
	CalendarBusy []BusyInterval
	Bookings     []Booking

	// YearBookingCount is the aggregate number of this event type's bookings
	// in the calendar year containing From. Only consulted when a PER_YEAR
	// limit is configured.
	YearBookingCount int
}

// Slot is a candidate booking start. RemainingSeats is -1 for event types
// that are not seat-based.
type Slot struct {
	Start          time.Time
	End            time.Time
	RemainingSeats int
}

// Result is the aggregate availability answer: the inputs the subtraction ran
// against plus the offerable slots. FullSlots lists seated slots at capacity,
// which are excluded from Slots but still shown on booking pages.
type Result struct {
	TimeZone       string
	WorkingWindows []Interval
	DateOverrides  []Interval
	Busy           []BusyInterval
	Slots          []Slot
	FullSlots      []Slot
}

// Compute runs the full availability pipeline: expand working hours, apply
// date overrides, merge buffered busy time with booking-limit blocks, then
// walk each effective window in slot-interval steps offering every candidate
// that clears minimum notice, busy overlap, and seat capacity.
//
// Pure and synchronous; safe for concurrent use.
func Compute(req Request) (Result, error) {
	if !req.To.After(req.From) {
		return Result{}, ErrInvalidRange
	}
	if req.Event.Duration <= 0 || req.Event.SlotInterval <= 0 {
		return Result{}, fmt.Errorf("%w: duration and slot interval must be positive", ErrInvalidConfig)
	}

	loc := time.UTC
	if req.Schedule.TimeZone != "" {
		var err error
		loc, err = time.LoadLocation(req.Schedule.TimeZone)
		if err != nil {
			return Result{}, fmt.Errorf("availability: bad schedule timezone %q: %w", req.Schedule.TimeZone, err)
		}
	}

	windows, overrideWindows := EffectiveWindows(req.Schedule, req.From, req.To, loc)

	// Seated event types are governed by seat accounting, not by their own
	// bookings appearing as busy time; other bookings and calendar busy still
	// block as usual.
	busyBookings := req.Bookings
	if req.Event.SeatsPerSlot > 0 {
		busyBookings = nil
		for _, b := range req.Bookings {
			if b.EventTypeID != req.Event.ID {
				busyBookings = append(busyBookings, b)
			}
		}
	}

	busy := MergeBusy(req.CalendarBusy, busyBookings, req.Event.BufferBefore, req.Event.BufferAfter)
	limitBusy := ApplyBookingLimits(req.Event, req.Bookings, req.YearBookingCount, req.From, req.To, loc)
	if len(limitBusy) > 0 {
		busy = Coalesce(append(busy, limitBusy...))
	}

	seats := BuildSeatMap(req.Event, req.Bookings)
	earliest := req.Now.Add(req.Event.MinimumNotice)

	result := Result{
		TimeZone:       loc.String(),
		WorkingWindows: windows,
		DateOverrides:  overrideWindows,
		Busy:           busy,
	}

	offered := map[int64]struct{}{}
	for _, win := range windows {
		for t := win.Start; !t.Add(req.Event.Duration).After(win.End); t = t.Add(req.Event.SlotInterval) {
			if t.Before(earliest) {
				continue
			}
			if _, dup := offered[t.Unix()]; dup {
				continue
			}
			end := t.Add(req.Event.Duration)
			if Overlaps(t, end, busy) {
				continue
			}
			offered[t.Unix()] = struct{}{}

			if req.Event.SeatsPerSlot > 0 {
				remaining := req.Event.SeatsPerSlot - seats[t.Unix()].Attendees
				if remaining <= 0 {
					result.FullSlots = append(result.FullSlots, Slot{Start: t, End: end, RemainingSeats: 0})
					continue
				}
				result.Slots = append(result.Slots, Slot{Start: t, End: end, RemainingSeats: remaining})
				continue
			}
			result.Slots = append(result.Slots, Slot{Start: t, End: end, RemainingSeats: -1})
		}
	}

	// Overlapping windows with different step phases can interleave, so order
	// the final sequences explicitly.
	sortSlots(result.Slots)
	sortSlots(result.FullSlots)
	return result, nil
}

func sortSlots(slots []Slot) {
	sort.Slice(slots, func(i, j int) bool {
		return slots[i].Start.Before(slots[j].Start)
	})
}
