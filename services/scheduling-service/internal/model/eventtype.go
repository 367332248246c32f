package model

import "time"

// EventType holds the booking-page configuration for one bookable event.
// SeatsPerTimeSlot of zero means classic one-attendee slots. ScheduleID empty
// means the owner's default schedule applies.
type EventType struct {
	ID                   string
	OwnerID              string
	Slug                 string
	Title                string
	DurationMinutes      int
	SlotIntervalMinutes  int
	BufferBeforeMinutes  int
	BufferAfterMinutes   int
	MinimumNoticeMinutes int
	SeatsPerTimeSlot     int
	BookingLimits        map[string]int
	ScheduleID           string
	CreatedAt            time.Time
}
