package handlers

import (
	"testing"
	"time"
)

func TestRulesFromBodyRecurring(t *testing.T) {
	rules, msg := rulesFromBody([]scheduleRuleBody{
		{Days: []int{1, 2, 3}, StartMinute: 540, EndMinute: 1020},
	})
	if msg != "" {
		t.Fatalf("unexpected error: %s", msg)
	}
	if len(rules) != 1 {
		t.Fatalf("rules = %d", len(rules))
	}
	if rules[0].Date != nil {
		t.Fatal("recurring rule must not carry a date")
	}
	if len(rules[0].Days) != 3 || rules[0].Days[0] != time.Monday {
		t.Fatalf("days = %v", rules[0].Days)
	}
}

func TestRulesFromBodyOverride(t *testing.T) {
	rules, msg := rulesFromBody([]scheduleRuleBody{
		{Date: "2024-03-05", StartMinute: 600, EndMinute: 720},
		{Date: "2024-03-06", StartMinute: 0, EndMinute: 0},
	})
	if msg != "" {
		t.Fatalf("unexpected error: %s", msg)
	}
	if rules[0].Date == nil || !rules[0].IsOverride() {
		t.Fatal("expected override rule")
	}
	// A zero-width override is valid: it marks the date unavailable.
	if rules[1].StartMinute != 0 || rules[1].EndMinute != 0 {
		t.Fatalf("unavailable override = %+v", rules[1])
	}
}

func TestRulesFromBodyRejectsBadInput(t *testing.T) {
	cases := []struct {
		name string
		in   []scheduleRuleBody
	}{
		{"reversed minutes", []scheduleRuleBody{{Days: []int{1}, StartMinute: 700, EndMinute: 600}}},
		{"minutes past midnight", []scheduleRuleBody{{Days: []int{1}, StartMinute: 0, EndMinute: 1441}}},
		{"recurring without days", []scheduleRuleBody{{StartMinute: 540, EndMinute: 1020}}},
		{"zero-width recurring", []scheduleRuleBody{{Days: []int{1}, StartMinute: 540, EndMinute: 540}}},
		{"day out of range", []scheduleRuleBody{{Days: []int{7}, StartMinute: 540, EndMinute: 1020}}},
		{"bad date", []scheduleRuleBody{{Date: "05/03/2024", StartMinute: 540, EndMinute: 1020}}},
	}
	for _, tc := range cases {
		if _, msg := rulesFromBody(tc.in); msg == "" {
			t.Fatalf("%s: expected validation error", tc.name)
		}
	}
}

func TestValidateTimezone(t *testing.T) {
	if msg := validateTimezone("Europe/Amsterdam"); msg != "" {
		t.Fatalf("valid zone rejected: %s", msg)
	}
	if msg := validateTimezone(""); msg == "" {
		t.Fatal("empty timezone must be rejected")
	}
	if msg := validateTimezone("Mars/Olympus"); msg == "" {
		t.Fatal("unknown zone must be rejected")
	}
}
