package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/availability"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/model"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/storage"
)

type EventTypeHandler struct {
	repo   *storage.EventTypeRepository
	logger *slog.Logger
}

func NewEventTypeHandler(repo *storage.EventTypeRepository, logger *slog.Logger) *EventTypeHandler {
	return &EventTypeHandler{repo: repo, logger: logger}
}

type eventTypeBody struct {
	EventTypeID          string         `json:"event_type_id,omitempty"`
	OwnerID              string         `json:"owner_id,omitempty"`
	Title                string         `json:"title"`
	Slug                 string         `json:"slug"`
	DurationMinutes      int            `json:"duration_minutes"`
	SlotIntervalMinutes  int            `json:"slot_interval_minutes,omitempty"`
	BufferBeforeMinutes  int            `json:"buffer_before_minutes,omitempty"`
	BufferAfterMinutes   int            `json:"buffer_after_minutes,omitempty"`
	MinimumNoticeMinutes int            `json:"minimum_notice_minutes,omitempty"`
	SeatsPerTimeSlot     int            `json:"seats_per_time_slot,omitempty"`
	BookingLimits        map[string]int `json:"booking_limits,omitempty"`
	ScheduleID           string         `json:"schedule_id,omitempty"`
	CreatedAt            string         `json:"created_at,omitempty"`
}

// Handle dispatches /api/v1/event-types: POST creates, GET fetches one by
// event_type_id or lists by owner.
func (h *EventTypeHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		if strings.TrimSpace(r.URL.Query().Get("event_type_id")) != "" {
			h.get(w, r)
			return
		}
		h.list(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *EventTypeHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body eventTypeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	body.EventTypeID = strings.TrimSpace(body.EventTypeID)
	if body.EventTypeID == "" {
		http.Error(w, "event_type_id required", http.StatusBadRequest)
		return
	}
	et, msg := eventTypeFromBody(body)
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	et.ID = body.EventTypeID

	if err := h.repo.Update(r.Context(), &et); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		h.logger.Error("event type update failed", "err", err)
		http.Error(w, "failed to update event type", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"event_type_id": et.ID})
}

func (h *EventTypeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		EventTypeID string `json:"event_type_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	body.EventTypeID = strings.TrimSpace(body.EventTypeID)
	if body.EventTypeID == "" {
		http.Error(w, "event_type_id required", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), body.EventTypeID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		h.logger.Error("event type delete failed", "err", err)
		http.Error(w, "failed to delete event type", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"event_type_id": body.EventTypeID, "status": "deleted"})
}

func (h *EventTypeHandler) create(w http.ResponseWriter, r *http.Request) {
	var body eventTypeBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	body.OwnerID = strings.TrimSpace(body.OwnerID)
	if body.OwnerID == "" {
		http.Error(w, "owner_id required", http.StatusBadRequest)
		return
	}
	et, msg := eventTypeFromBody(body)
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	id, err := h.repo.Create(r.Context(), &et)
	if err != nil {
		h.logger.Error("event type create failed", "err", err)
		http.Error(w, "failed to create event type", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"event_type_id": id})
}

func (h *EventTypeHandler) get(w http.ResponseWriter, r *http.Request) {
	eventTypeID := strings.TrimSpace(r.URL.Query().Get("event_type_id"))
	et, err := h.repo.Get(r.Context(), eventTypeID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load event type", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, eventTypeToBody(et))
}

func (h *EventTypeHandler) list(w http.ResponseWriter, r *http.Request) {
	ownerID := strings.TrimSpace(r.Header.Get("X-Owner-Id"))
	if ownerID == "" {
		ownerID = strings.TrimSpace(r.URL.Query().Get("owner_id"))
	}
	if ownerID == "" {
		http.Error(w, "owner_id required", http.StatusBadRequest)
		return
	}

	limit := 50
	if raw := strings.TrimSpace(r.URL.Query().Get("limit")); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 200 {
			limit = n
		}
	}

	eventTypes, err := h.repo.List(r.Context(), ownerID, limit)
	if err != nil {
		http.Error(w, "failed to list event types", http.StatusInternalServerError)
		return
	}
	items := make([]eventTypeBody, 0, len(eventTypes))
	for _, et := range eventTypes {
		items = append(items, eventTypeToBody(et))
	}
	writeJSON(w, http.StatusOK, items)
}

var validLimitPeriods = map[string]bool{
	string(availability.PerDay):   true,
	string(availability.PerWeek):  true,
	string(availability.PerMonth): true,
	string(availability.PerYear):  true,
}

func eventTypeFromBody(body eventTypeBody) (model.EventType, string) {
	body.Title = strings.TrimSpace(body.Title)
	body.Slug = strings.TrimSpace(body.Slug)
	if body.Title == "" || body.Slug == "" {
		return model.EventType{}, "title and slug required"
	}
	if body.DurationMinutes <= 0 || body.DurationMinutes > 24*60 {
		return model.EventType{}, "duration_minutes must be between 1 and 1440"
	}
	if body.SlotIntervalMinutes < 0 || body.BufferBeforeMinutes < 0 || body.BufferAfterMinutes < 0 ||
		body.MinimumNoticeMinutes < 0 || body.SeatsPerTimeSlot < 0 {
		return model.EventType{}, "minute and seat values must not be negative"
	}
	for period, limit := range body.BookingLimits {
		if !validLimitPeriods[period] {
			return model.EventType{}, "booking_limits keys must be PER_DAY, PER_WEEK, PER_MONTH, or PER_YEAR"
		}
		if limit <= 0 {
			return model.EventType{}, "booking_limits values must be positive"
		}
	}
	return model.EventType{
		OwnerID:              body.OwnerID,
		Title:                body.Title,
		Slug:                 body.Slug,
		DurationMinutes:      body.DurationMinutes,
		SlotIntervalMinutes:  body.SlotIntervalMinutes,
		BufferBeforeMinutes:  body.BufferBeforeMinutes,
		BufferAfterMinutes:   body.BufferAfterMinutes,
		MinimumNoticeMinutes: body.MinimumNoticeMinutes,
		SeatsPerTimeSlot:     body.SeatsPerTimeSlot,
		BookingLimits:        body.BookingLimits,
		ScheduleID:           strings.TrimSpace(body.ScheduleID),
	}, ""
}

func eventTypeToBody(et model.EventType) eventTypeBody {
	return eventTypeBody{
		EventTypeID:          et.ID,
		OwnerID:              et.OwnerID,
		Title:                et.Title,
		Slug:                 et.Slug,
		DurationMinutes:      et.DurationMinutes,
		SlotIntervalMinutes:  et.SlotIntervalMinutes,
		BufferBeforeMinutes:  et.BufferBeforeMinutes,
		BufferAfterMinutes:   et.BufferAfterMinutes,
		MinimumNoticeMinutes: et.MinimumNoticeMinutes,
		SeatsPerTimeSlot:     et.SeatsPerTimeSlot,
		BookingLimits:        et.BookingLimits,
		ScheduleID:           et.ScheduleID,
		CreatedAt:            et.CreatedAt.UTC().Format(time.RFC3339),
	}
}
