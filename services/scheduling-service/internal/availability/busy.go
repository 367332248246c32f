package availability

import (
	"sort"
	"time"
)

// MergeBusy combines external-calendar busy intervals with existing bookings
// into a single coalesced busy set. Every raw interval is padded by the event
// type's buffers (bufferBefore ahead of the start, bufferAfter past the end)
// before merging, so two padded events that touch come out as one block.
//
// The result contains no two intervals that overlap or touch, and covers all
// padded input time.
func MergeBusy(calendarBusy []BusyInterval, bookings []Booking, bufferBefore, bufferAfter time.Duration) []BusyInterval {
	raw := make([]BusyInterval, 0, len(calendarBusy)+len(bookings))
	for _, b := range calendarBusy {
		raw = append(raw, pad(b, bufferBefore, bufferAfter))
	}
	for _, bk := range bookings {
		raw = append(raw, pad(BusyInterval{Start: bk.Start, End: bk.End, Source: "booking"}, bufferBefore, bufferAfter))
	}
	return Coalesce(raw)
}

// Coalesce sorts busy intervals by start and merges any that overlap or touch.
// Inputs with End <= Start are dropped. A merged interval keeps the source of
// its earliest constituent.
func Coalesce(raw []BusyInterval) []BusyInterval {
	valid := make([]BusyInterval, 0, len(raw))
	for _, b := range raw {
		if b.End.After(b.Start) {
			valid = append(valid, b)
		}
	}
	if len(valid) == 0 {
		return nil
	}

	sort.Slice(valid, func(i, j int) bool {
		if valid[i].Start.Equal(valid[j].Start) {
			return valid[i].End.Before(valid[j].End)
		}
		return valid[i].Start.Before(valid[j].Start)
	})

	merged := []BusyInterval{valid[0]}
	for _, b := range valid[1:] {
		cur := &merged[len(merged)-1]
		if !b.Start.After(cur.End) {
			if b.End.After(cur.End) {
				cur.End = b.End
			}
			continue
		}
		merged = append(merged, b)
	}
	return merged
}

func pad(b BusyInterval, before, after time.Duration) BusyInterval {
	b.Start = b.Start.Add(-before)
	b.End = b.End.Add(after)
	return b
}

// Overlaps reports whether [start, end) intersects any busy interval.
// Half-open semantics: intervals that merely touch do not overlap.
func Overlaps(start, end time.Time, busy []BusyInterval) bool {
	for _, b := range busy {
		if start.Before(b.End) && b.Start.Before(end) {
			return true
		}
	}
	return false
}
