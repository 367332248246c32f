package availability

import (
	"testing"
	"time"
)

func TestMergeBusy_BufferedEventsCoalesce(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	// Event A 09:30-10:00, event B 10:20-11:00. With a 15 minute buffer on
	// both sides, A's padded end (10:15) and B's padded start (10:05) overlap:
	// the false 5 minute gap must disappear.
	bookings := []Booking{
		{UID: "a", EventTypeID: "et1", Start: day.Add(9*time.Hour + 30*time.Minute), End: day.Add(10 * time.Hour)},
		{UID: "b", EventTypeID: "et1", Start: day.Add(10*time.Hour + 20*time.Minute), End: day.Add(11 * time.Hour)},
	}

	merged := MergeBusy(nil, bookings, 15*time.Minute, 15*time.Minute)
	if len(merged) != 1 {
		t.Fatalf("expected 1 coalesced interval, got %d", len(merged))
	}
	if !merged[0].Start.Equal(day.Add(9*time.Hour + 15*time.Minute)) {
		t.Fatalf("expected padded start 09:15, got %s", merged[0].Start.Format(time.RFC3339))
	}
	if !merged[0].End.Equal(day.Add(11*time.Hour + 15*time.Minute)) {
		t.Fatalf("expected padded end 11:15, got %s", merged[0].End.Format(time.RFC3339))
	}
}

func TestMergeBusy_DisjointStayDisjoint(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	busy := []BusyInterval{
		{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour), Source: "calendar"},
		{Start: day.Add(14 * time.Hour), End: day.Add(15 * time.Hour), Source: "calendar"},
	}
	merged := MergeBusy(busy, nil, 0, 0)
	if len(merged) != 2 {
		t.Fatalf("expected 2 intervals, got %d", len(merged))
	}
	for i := 1; i < len(merged); i++ {
		if !merged[i].Start.After(merged[i-1].End) {
			t.Fatalf("merged output is not minimal: %v then %v", merged[i-1], merged[i])
		}
	}
}

func TestCoalesce_TouchingIntervalsMerge(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	raw := []BusyInterval{
		{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour), Source: "calendar"},
		{Start: day.Add(9 * time.Hour), End: day.Add(10 * time.Hour), Source: "booking"},
	}
	merged := Coalesce(raw)
	if len(merged) != 1 {
		t.Fatalf("touching intervals must merge, got %d", len(merged))
	}
	if merged[0].Source != "booking" {
		t.Fatalf("merged interval should keep earliest source, got %q", merged[0].Source)
	}
}

func TestCoalesce_DropsEmptyIntervals(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	raw := []BusyInterval{
		{Start: day, End: day}, // zero length
		{Start: day.Add(2 * time.Hour), End: day.Add(1 * time.Hour)}, // reversed
	}
	if merged := Coalesce(raw); len(merged) != 0 {
		t.Fatalf("expected empty result, got %d intervals", len(merged))
	}
}

func TestOverlaps_HalfOpen(t *testing.T) {
	day := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	busy := []BusyInterval{{Start: day.Add(10 * time.Hour), End: day.Add(11 * time.Hour)}}

	// [09:00, 10:00) touches but does not overlap [10:00, 11:00).
	if Overlaps(day.Add(9*time.Hour), day.Add(10*time.Hour), busy) {
		t.Fatal("touching intervals must not count as overlapping")
	}
	if !Overlaps(day.Add(10*time.Hour+30*time.Minute), day.Add(12*time.Hour), busy) {
		t.Fatal("expected overlap")
	}
}
