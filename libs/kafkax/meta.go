package kafkax

import (
	"github.com/segmentio/kafka-go"
)

// Message header keys shared by producers and consumers.
const (
	HeaderEventID   = "event_id"
	HeaderEventType = "event_type"
)

// EventMeta identifies a message for dedup and dispatch.
type EventMeta struct {
	EventID   string
	EventType string
}

// ExtractEventMeta reads event metadata from message headers. Producers that
// skip the headers fall back to the message key (event id) and topic (event
// type).
func ExtractEventMeta(msg kafka.Message) EventMeta {
	meta := EventMeta{
		EventID:   HeaderValue(msg.Headers, HeaderEventID),
		EventType: HeaderValue(msg.Headers, HeaderEventType),
	}
	if meta.EventID == "" {
		meta.EventID = string(msg.Key)
	}
	if meta.EventType == "" {
		meta.EventType = msg.Topic
	}
	return meta
}

// HeaderValue returns the first header value for key, or "" when absent.
func HeaderValue(headers []kafka.Header, key string) string {
	for _, h := range headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
