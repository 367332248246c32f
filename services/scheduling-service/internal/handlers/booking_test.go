package handlers

import (
	"net/http"
	"testing"
)

func TestRecordRejection(t *testing.T) {
	// A 409/422 from the availability recheck is recorded for replay; the
	// caller still gets the error response on the first attempt either way.
	if !recordRejection("key-1", http.StatusConflict) {
		t.Fatal("conflict with an idempotency key should be recorded")
	}
	if !recordRejection("key-1", http.StatusUnprocessableEntity) {
		t.Fatal("unprocessable slot with an idempotency key should be recorded")
	}
	// Feed outages are transient: leave the key open so a retry can succeed.
	if recordRejection("key-1", http.StatusServiceUnavailable) {
		t.Fatal("feed outage must not be recorded against the key")
	}
	if recordRejection("", http.StatusConflict) {
		t.Fatal("nothing to record without an idempotency key")
	}
}

func TestPartialRelease(t *testing.T) {
	if !partialRelease(2, 5) {
		t.Fatal("releasing fewer seats than held is a partial release")
	}
	// Zero seats means cancel the whole booking.
	if partialRelease(0, 5) {
		t.Fatal("zero seats should cancel the booking whole")
	}
	// Releasing every held seat (or more) drains the booking; the cancel path
	// zeroes the attendee count so the janitor can purge the row.
	if partialRelease(5, 5) {
		t.Fatal("releasing all held seats should cancel the booking whole")
	}
	if partialRelease(7, 5) {
		t.Fatal("over-releasing should cancel the booking whole")
	}
}
