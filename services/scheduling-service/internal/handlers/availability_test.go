package handlers

import (
	"testing"
	"time"

	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/availability"
)

func TestParseRangeRFC3339(t *testing.T) {
	from, to, err := parseRange("2024-03-05T09:00:00Z", "2024-03-05T17:00:00Z", time.UTC)
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if !from.Equal(time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC)) {
		t.Fatalf("from = %v", from)
	}
	if !to.Equal(time.Date(2024, 3, 5, 17, 0, 0, 0, time.UTC)) {
		t.Fatalf("to = %v", to)
	}
}

func TestParseRangePlainDatesAreLocalAndInclusive(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		t.Fatalf("LoadLocation: %v", err)
	}

	from, to, err := parseRange("2024-03-04", "2024-03-05", loc)
	if err != nil {
		t.Fatalf("parseRange: %v", err)
	}
	if !from.Equal(time.Date(2024, 3, 4, 0, 0, 0, 0, loc)) {
		t.Fatalf("from = %v, want local midnight", from)
	}
	// The "to" date is inclusive: the range runs through the end of Mar 5.
	if !to.Equal(time.Date(2024, 3, 6, 0, 0, 0, 0, loc)) {
		t.Fatalf("to = %v, want midnight after the to date", to)
	}
}

func TestParseRangeRejectsGarbage(t *testing.T) {
	if _, _, err := parseRange("yesterday", "2024-03-05", time.UTC); err == nil {
		t.Fatal("expected error for malformed from")
	}
	if _, _, err := parseRange("2024-03-05", "", time.UTC); err == nil {
		t.Fatal("expected error for empty to")
	}
}

func TestClipBusyTruncatesToQueryRange(t *testing.T) {
	from := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

	clipped := clipBusy([]availability.BusyInterval{
		// Entirely before and after the range: the widened booking fetch and
		// month-wide limit buckets can produce both.
		{Start: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 4, 10, 0, 0, 0, time.UTC)},
		{Start: time.Date(2024, 3, 7, 9, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 7, 10, 0, 0, 0, time.UTC)},
		// Straddling the start.
		{Start: time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC), Source: "google"},
		// Fully inside.
		{Start: time.Date(2024, 3, 5, 9, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 5, 10, 0, 0, 0, time.UTC)},
		// Straddling the end.
		{Start: time.Date(2024, 3, 5, 23, 0, 0, 0, time.UTC), End: time.Date(2024, 3, 6, 1, 0, 0, 0, time.UTC)},
	}, from, to)

	if len(clipped) != 3 {
		t.Fatalf("expected 3 intervals after clipping, got %d: %v", len(clipped), clipped)
	}
	if !clipped[0].Start.Equal(from) || !clipped[0].End.Equal(time.Date(2024, 3, 5, 1, 0, 0, 0, time.UTC)) {
		t.Fatalf("straddling start not truncated: %v", clipped[0])
	}
	if clipped[0].Source != "google" {
		t.Fatalf("source lost in clipping: %q", clipped[0].Source)
	}
	if !clipped[2].End.Equal(to) {
		t.Fatalf("straddling end not truncated: %v", clipped[2])
	}
}

func TestClipBusyDropsTouchingIntervals(t *testing.T) {
	from := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)

	// Half-open range: ending exactly at from or starting exactly at to is
	// outside it.
	clipped := clipBusy([]availability.BusyInterval{
		{Start: time.Date(2024, 3, 4, 23, 0, 0, 0, time.UTC), End: from},
		{Start: to, End: time.Date(2024, 3, 6, 1, 0, 0, 0, time.UTC)},
	}, from, to)
	if len(clipped) != 0 {
		t.Fatalf("expected no intervals, got %v", clipped)
	}
}
