package availability

import (
	"sort"
	"time"
)

// ExpandWorkingHours turns the schedule's recurring rules into concrete
// intervals for every date touched by [from, to), in the schedule's location.
// A date with no matching rule contributes nothing. Windows are clipped to the
// query range and returned ordered by start.
func ExpandWorkingHours(s Schedule, from, to time.Time, loc *time.Location) []Interval {
	if !to.After(from) {
		return nil
	}

	var out []Interval
	for day := startOfDay(from.In(loc)); day.Before(to); day = day.AddDate(0, 0, 1) {
		weekday := day.Weekday()
		for _, rule := range s.Recurring {
			if !ruleAppliesOn(rule, weekday) {
				continue
			}
			win := minuteWindow(day, rule.Window)
			win = clip(win, from, to)
			if win.End.After(win.Start) {
				out = append(out, win)
			}
		}
	}
	sortIntervals(out)
	return out
}

// ApplyDateOverrides replaces the recurring windows of every overridden date
// with the override's windows. Override windows fully supersede recurring
// output for their date, even when empty. The second return value is the
// expanded override windows themselves, for callers that report them.
func ApplyDateOverrides(recurring []Interval, overrides []Override, from, to time.Time, loc *time.Location) ([]Interval, []Interval) {
	if len(overrides) == 0 {
		return recurring, nil
	}

	overridden := make(map[Date]struct{}, len(overrides))
	var overrideWindows []Interval
	for _, ov := range overrides {
		dayStart := ov.Day.In(loc)
		dayEnd := dayStart.AddDate(0, 0, 1)
		if !dayEnd.After(from) || !dayStart.Before(to) {
			continue
		}
		overridden[ov.Day] = struct{}{}
		for _, w := range ov.Windows {
			win := clip(minuteWindow(dayStart, w), from, to)
			if win.End.After(win.Start) {
				overrideWindows = append(overrideWindows, win)
			}
		}
	}
	if len(overridden) == 0 {
		return recurring, nil
	}

	effective := make([]Interval, 0, len(recurring)+len(overrideWindows))
	for _, win := range recurring {
		if _, ok := overridden[DateOf(win.Start.In(loc))]; ok {
			continue
		}
		effective = append(effective, win)
	}
	effective = append(effective, overrideWindows...)
	sortIntervals(effective)
	sortIntervals(overrideWindows)
	return effective, overrideWindows
}

// EffectiveWindows is ExpandWorkingHours followed by ApplyDateOverrides.
func EffectiveWindows(s Schedule, from, to time.Time, loc *time.Location) ([]Interval, []Interval) {
	recurring := ExpandWorkingHours(s, from, to, loc)
	return ApplyDateOverrides(recurring, s.Overrides, from, to, loc)
}

func ruleAppliesOn(rule RecurringRule, weekday time.Weekday) bool {
	for _, d := range rule.Days {
		if d == weekday {
			return true
		}
	}
	return false
}

// minuteWindow builds the absolute interval for a wall-clock range on the
// given local day. Going through time.Date keeps DST transitions correct
// (23h/25h days), unlike adding fixed durations to midnight.
func minuteWindow(day time.Time, w MinuteRange) Interval {
	y, m, d := day.Date()
	loc := day.Location()
	return Interval{
		Start: time.Date(y, m, d, w.StartMinute/60, w.StartMinute%60, 0, 0, loc),
		End:   time.Date(y, m, d, w.EndMinute/60, w.EndMinute%60, 0, 0, loc),
	}
}

func clip(win Interval, from, to time.Time) Interval {
	if win.Start.Before(from) {
		win.Start = from
	}
	if win.End.After(to) {
		win.End = to
	}
	return win
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func sortIntervals(ivs []Interval) {
	sort.Slice(ivs, func(i, j int) bool {
		if ivs[i].Start.Equal(ivs[j].Start) {
			return ivs[i].End.Before(ivs[j].End)
		}
		return ivs[i].Start.Before(ivs[j].Start)
	})
}
