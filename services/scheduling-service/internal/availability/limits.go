package availability

import "time"

// ApplyBookingLimits converts booking-frequency caps into synthesized busy
// intervals. For each configured period the query range is partitioned into
// calendar-aligned buckets in loc (days, ISO weeks starting Monday, calendar
// months, calendar years) and bookings of the same event type are counted per
// bucket; a bucket at or over its cap is emitted as busy for its whole span.
//
// PER_YEAR is an explicit short-circuit: year buckets are too wide to count
// from range-fetched bookings, so the caller supplies yearCount, an aggregate
// count of this event type's bookings in the calendar year containing from.
// When the yearly cap is already reached the entire year is blocked and the
// other periods are skipped. This is observable behavior callers depend on,
// not just an optimization.
//
// For the remaining periods, bookings must cover the outermost bucket
// boundaries (see WidenToBuckets), otherwise bucket counts near the range
// edges come up short.
func ApplyBookingLimits(cfg EventConfig, bookings []Booking, yearCount int, from, to time.Time, loc *time.Location) []BusyInterval {
	if len(cfg.Limits) == 0 || !to.After(from) {
		return nil
	}

	if cap, ok := cfg.Limits[PerYear]; ok && cap > 0 && yearCount >= cap {
		yearStart := time.Date(from.In(loc).Year(), time.January, 1, 0, 0, 0, 0, loc)
		return []BusyInterval{{Start: yearStart, End: yearStart.AddDate(1, 0, 0), Source: "booking-limit"}}
	}

	var ours []Booking
	for _, b := range bookings {
		if b.EventTypeID == cfg.ID {
			ours = append(ours, b)
		}
	}

	var out []BusyInterval
	for _, period := range periodOrder {
		cap, ok := cfg.Limits[period]
		if !ok || cap <= 0 {
			continue
		}
		seen := map[int64]struct{}{}
		for day := startOfDay(from.In(loc)); day.Before(to); day = day.AddDate(0, 0, 1) {
			bucketStart := startOfPeriod(day, period)
			if _, dup := seen[bucketStart.Unix()]; dup {
				continue
			}
			seen[bucketStart.Unix()] = struct{}{}
			bucketEnd := addPeriod(bucketStart, period)
			if countStartsIn(ours, bucketStart, bucketEnd) >= cap {
				out = append(out, BusyInterval{Start: bucketStart, End: bucketEnd, Source: "booking-limit"})
			}
		}
	}
	return out
}

// WidenToBuckets expands a query range to the outermost day/week/month bucket
// boundaries the configured limits can touch, so callers fetch enough
// bookings for accurate per-bucket counts. PER_YEAR is excluded; it runs on
// an aggregate count instead.
func WidenToBuckets(cfg EventConfig, from, to time.Time, loc *time.Location) (time.Time, time.Time) {
	wFrom, wTo := from, to
	for _, period := range periodOrder {
		if cap, ok := cfg.Limits[period]; !ok || cap <= 0 {
			continue
		}
		start := startOfPeriod(startOfDay(from.In(loc)), period)
		if start.Before(wFrom) {
			wFrom = start
		}
		end := addPeriod(startOfPeriod(startOfDay(to.In(loc)), period), period)
		if end.After(wTo) {
			wTo = end
		}
	}
	return wFrom, wTo
}

func countStartsIn(bookings []Booking, start, end time.Time) int {
	n := 0
	for _, b := range bookings {
		if !b.Start.Before(start) && b.Start.Before(end) {
			n++
		}
	}
	return n
}

// startOfPeriod aligns t (assumed local midnight) to the first instant of its
// enclosing bucket. Weeks start on Monday.
func startOfPeriod(t time.Time, period LimitPeriod) time.Time {
	y, m, d := t.Date()
	loc := t.Location()
	switch period {
	case PerDay:
		return time.Date(y, m, d, 0, 0, 0, 0, loc)
	case PerWeek:
		back := (int(t.Weekday()) + 6) % 7
		return time.Date(y, m, d-back, 0, 0, 0, 0, loc)
	case PerMonth:
		return time.Date(y, m, 1, 0, 0, 0, 0, loc)
	case PerYear:
		return time.Date(y, time.January, 1, 0, 0, 0, 0, loc)
	}
	return t
}

func addPeriod(t time.Time, period LimitPeriod) time.Time {
	switch period {
	case PerDay:
		return t.AddDate(0, 0, 1)
	case PerWeek:
		return t.AddDate(0, 0, 7)
	case PerMonth:
		return t.AddDate(0, 1, 0)
	case PerYear:
		return t.AddDate(1, 0, 0)
	}
	return t
}
