package handlers

import "testing"

func TestEventTypeFromBodyValid(t *testing.T) {
	et, msg := eventTypeFromBody(eventTypeBody{
		OwnerID:         "owner-1",
		Title:           "Intro Call",
		Slug:            "intro-call",
		DurationMinutes: 30,
		BookingLimits:   map[string]int{"PER_DAY": 2, "PER_YEAR": 100},
	})
	if msg != "" {
		t.Fatalf("unexpected error: %s", msg)
	}
	if et.Title != "Intro Call" || et.DurationMinutes != 30 {
		t.Fatalf("event type = %+v", et)
	}
}

func TestEventTypeFromBodyRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		body eventTypeBody
	}{
		{"missing title", eventTypeBody{Slug: "x", DurationMinutes: 30}},
		{"zero duration", eventTypeBody{Title: "X", Slug: "x"}},
		{"duration over a day", eventTypeBody{Title: "X", Slug: "x", DurationMinutes: 1500}},
		{"negative buffer", eventTypeBody{Title: "X", Slug: "x", DurationMinutes: 30, BufferBeforeMinutes: -5}},
		{"unknown limit period", eventTypeBody{Title: "X", Slug: "x", DurationMinutes: 30, BookingLimits: map[string]int{"PER_HOUR": 1}}},
		{"non-positive limit", eventTypeBody{Title: "X", Slug: "x", DurationMinutes: 30, BookingLimits: map[string]int{"PER_DAY": 0}}},
	}
	for _, tc := range cases {
		if _, msg := eventTypeFromBody(tc.body); msg == "" {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}
