package outbox

import (
	"encoding/json"
	"time"
)

// Topic names double as event types. One event per topic keeps consumer
// routing trivial.
const (
	TopicBookingCreated   = "scheduling.booking.created.v1"
	TopicBookingCancelled = "scheduling.booking.cancelled.v1"
)

// Event is the envelope written to the outbox table inside the booking
// transaction. The relay publishes it to the Kafka topic named by EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

type BookingCreatedPayload struct {
	BookingID     string    `json:"booking_id"`
	EventTypeID   string    `json:"event_type_id"`
	OwnerID       string    `json:"owner_id"`
	AttendeeEmail string    `json:"attendee_email"`
	StartTime     time.Time `json:"start_time"`
	EndTime       time.Time `json:"end_time"`
	Attendees     int       `json:"attendees"`
}

type BookingCancelledPayload struct {
	BookingID   string    `json:"booking_id"`
	EventTypeID string    `json:"event_type_id"`
	OwnerID     string    `json:"owner_id"`
	StartTime   time.Time `json:"start_time"`
	CancelledAt time.Time `json:"cancelled_at"`
	Reason      string    `json:"reason,omitempty"`
}

func BookingCreated(p BookingCreatedPayload) (Event, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "booking",
		AggregateID:   p.BookingID,
		EventType:     TopicBookingCreated,
		Payload:       payload,
	}, nil
}

func BookingCancelled(p BookingCancelledPayload) (Event, error) {
	payload, err := json.Marshal(p)
	if err != nil {
		return Event{}, err
	}
	return Event{
		AggregateType: "booking",
		AggregateID:   p.BookingID,
		EventType:     TopicBookingCancelled,
		Payload:       payload,
	}, nil
}
