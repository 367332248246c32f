package model

import "time"

type Booking struct {
	ID            string
	EventTypeID   string
	OwnerID       string
	AttendeeName  string
	AttendeeEmail string
	StartTime     time.Time
	EndTime       time.Time
	Status        string
	Attendees     int
	CancelledAt   *time.Time
	CancelReason  string
	CreatedAt     time.Time
}
