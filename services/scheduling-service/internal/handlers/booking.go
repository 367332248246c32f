package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/availability"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/calendar"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/model"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/outbox"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/storage"
)

type BookingHandler struct {
	eventTypes *storage.EventTypeRepository
	schedules  *storage.ScheduleRepository
	bookings   *storage.BookingRepository
	outboxRepo *outbox.Repository
	feed       *calendar.Feed
	logger     *slog.Logger
}

func NewBookingHandler(eventTypes *storage.EventTypeRepository, schedules *storage.ScheduleRepository, bookings *storage.BookingRepository, outboxRepo *outbox.Repository, feed *calendar.Feed, logger *slog.Logger) *BookingHandler {
	return &BookingHandler{
		eventTypes: eventTypes,
		schedules:  schedules,
		bookings:   bookings,
		outboxRepo: outboxRepo,
		feed:       feed,
		logger:     logger,
	}
}

type createBookingRequest struct {
	EventTypeID   string `json:"event_type_id"`
	AttendeeName  string `json:"attendee_name"`
	AttendeeEmail string `json:"attendee_email"`
	StartTime     string `json:"start_time"`
	Attendees     int    `json:"attendees"`
}

type createBookingResponse struct {
	BookingID string `json:"booking_id"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Attendees int    `json:"attendees"`
}

type cancelBookingRequest struct {
	OwnerID   string `json:"owner_id"`
	BookingID string `json:"booking_id"`
	Reason    string `json:"reason"`
	// Seats releases only part of a seated booking; zero cancels it whole.
	Seats int `json:"seats"`
}

type cancelBookingResponse struct {
	BookingID      string `json:"booking_id"`
	Status         string `json:"status"`
	RemainingSeats int    `json:"remaining_seats,omitempty"`
	CancelledAt    string `json:"cancelled_at,omitempty"`
}

type listBookingItem struct {
	BookingID     string `json:"booking_id"`
	EventTypeID   string `json:"event_type_id"`
	AttendeeName  string `json:"attendee_name"`
	AttendeeEmail string `json:"attendee_email"`
	StartTime     string `json:"start_time"`
	EndTime       string `json:"end_time"`
	Status        string `json:"status"`
	Attendees     int    `json:"attendees"`
	CancelledAt   string `json:"cancelled_at,omitempty"`
	CreatedAt     string `json:"created_at"`
}

// Handle dispatches /api/v1/bookings by method: POST creates, GET lists.
func (h *BookingHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.Create(w, r)
	case http.MethodGet:
		h.List(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}

	req.EventTypeID = strings.TrimSpace(req.EventTypeID)
	req.AttendeeName = strings.TrimSpace(req.AttendeeName)
	req.AttendeeEmail = strings.TrimSpace(req.AttendeeEmail)
	if req.EventTypeID == "" || req.AttendeeName == "" || req.AttendeeEmail == "" {
		http.Error(w, "event_type_id, attendee_name, and attendee_email required", http.StatusBadRequest)
		return
	}
	if req.Attendees <= 0 {
		req.Attendees = 1
	}

	start, err := time.Parse(time.RFC3339, req.StartTime)
	if err != nil {
		http.Error(w, "invalid start_time", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	et, err := h.eventTypes.Get(ctx, req.EventTypeID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "event type not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load event type", http.StatusInternalServerError)
		return
	}
	if et.SeatsPerTimeSlot > 0 && req.Attendees > et.SeatsPerTimeSlot {
		http.Error(w, "attendees exceeds seats per slot", http.StatusUnprocessableEntity)
		return
	}
	end := start.Add(time.Duration(et.DurationMinutes) * time.Minute)

	tx, err := h.bookings.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	idempotencyKey := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if idempotencyKey != "" {
		rec, exists, err := h.bookings.LockIdempotencyKey(ctx, tx, et.OwnerID, idempotencyKey)
		if err != nil {
			http.Error(w, "failed to lock idempotency key", http.StatusInternalServerError)
			return
		}
		if exists && rec.StatusCode > 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(rec.StatusCode)
			_, _ = w.Write(rec.ResponsePayload)
			return
		}
	}

	// Recheck availability under the transaction. The exclusion constraint is
	// the last line of defense; this keeps limit and notice violations out of
	// the conflict path.
	slot, status, msg := h.offeredSlot(ctx, et, start)
	if status != 0 {
		// Record the outcome against the idempotency key so a retry replays
		// it, then answer the caller either way.
		if recordRejection(idempotencyKey, status) {
			if h.finalizeIdempotencyError(ctx, tx, et.OwnerID, idempotencyKey, status, msg) {
				_ = tx.Commit(ctx)
			}
		}
		http.Error(w, msg, status)
		return
	}

	var id string
	attendees := req.Attendees
	if et.SeatsPerTimeSlot > 0 {
		if slot.RemainingSeats < req.Attendees {
			http.Error(w, "not enough seats remaining", http.StatusConflict)
			return
		}
		holder, err := h.bookings.GetSeatHolderForUpdate(ctx, tx, et.ID, start)
		switch {
		case err == nil:
			attendees, err = h.bookings.AddAttendees(ctx, tx, holder.ID, req.Attendees)
			if err != nil {
				http.Error(w, "failed to add attendees", http.StatusInternalServerError)
				return
			}
			if attendees > et.SeatsPerTimeSlot {
				// Lost a race since the availability recheck.
				http.Error(w, "not enough seats remaining", http.StatusConflict)
				return
			}
			id = holder.ID
		case storage.IsNotFound(err):
			id, err = h.createBooking(ctx, tx, et, req, start, end)
			if err != nil {
				h.writeCreateError(w, err)
				return
			}
		default:
			http.Error(w, "failed to lock slot", http.StatusInternalServerError)
			return
		}
	} else {
		id, err = h.createBooking(ctx, tx, et, req, start, end)
		if err != nil {
			h.writeCreateError(w, err)
			return
		}
	}

	evt, err := outbox.BookingCreated(outbox.BookingCreatedPayload{
		BookingID:     id,
		EventTypeID:   et.ID,
		OwnerID:       et.OwnerID,
		AttendeeEmail: req.AttendeeEmail,
		StartTime:     start.UTC(),
		EndTime:       end.UTC(),
		Attendees:     req.Attendees,
	})
	if err != nil {
		http.Error(w, "failed to build event payload", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	respBody, err := json.Marshal(createBookingResponse{
		BookingID: id,
		StartTime: start.UTC().Format(time.RFC3339),
		EndTime:   end.UTC().Format(time.RFC3339),
		Attendees: attendees,
	})
	if err != nil {
		http.Error(w, "failed to build response", http.StatusInternalServerError)
		return
	}
	if idempotencyKey != "" {
		if err := h.bookings.FinalizeIdempotency(ctx, tx, et.OwnerID, idempotencyKey, id, http.StatusCreated, respBody); err != nil {
			http.Error(w, "failed to finalize idempotency key", http.StatusInternalServerError)
			return
		}
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_, _ = w.Write(respBody)
}

func (h *BookingHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req cancelBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	req.OwnerID = strings.TrimSpace(req.OwnerID)
	req.BookingID = strings.TrimSpace(req.BookingID)
	req.Reason = strings.TrimSpace(req.Reason)
	if req.OwnerID == "" || req.BookingID == "" {
		http.Error(w, "owner_id and booking_id required", http.StatusBadRequest)
		return
	}
	if req.Seats < 0 {
		http.Error(w, "seats must not be negative", http.StatusBadRequest)
		return
	}

	ctx := r.Context()
	tx, err := h.bookings.Begin(ctx)
	if err != nil {
		http.Error(w, "db error", http.StatusInternalServerError)
		return
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b, err := h.bookings.GetForUpdate(ctx, tx, req.OwnerID, req.BookingID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "booking not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load booking", http.StatusInternalServerError)
		return
	}

	if b.Status == "cancelled" && b.CancelledAt != nil {
		writeJSON(w, http.StatusOK, cancelBookingResponse{
			BookingID:   b.ID,
			Status:      "cancelled",
			CancelledAt: b.CancelledAt.UTC().Format(time.RFC3339),
		})
		return
	}
	if b.Status != "accepted" {
		http.Error(w, "booking cannot be cancelled", http.StatusConflict)
		return
	}

	var resp cancelBookingResponse
	if partialRelease(req.Seats, b.Attendees) {
		remaining, err := h.bookings.ReleaseSeats(ctx, tx, b.ID, req.Seats)
		if err != nil {
			http.Error(w, "failed to release seats", http.StatusInternalServerError)
			return
		}
		resp = cancelBookingResponse{BookingID: b.ID, Status: "accepted", RemainingSeats: remaining}
	} else {
		cancelledAt, err := h.bookings.Cancel(ctx, tx, req.OwnerID, b.ID, req.Reason)
		if err != nil {
			http.Error(w, "failed to cancel booking", http.StatusInternalServerError)
			return
		}
		resp = cancelBookingResponse{
			BookingID:   b.ID,
			Status:      "cancelled",
			CancelledAt: cancelledAt.UTC().Format(time.RFC3339),
		}
	}

	evt, err := outbox.BookingCancelled(outbox.BookingCancelledPayload{
		BookingID:   b.ID,
		EventTypeID: b.EventTypeID,
		OwnerID:     b.OwnerID,
		StartTime:   b.StartTime.UTC(),
		CancelledAt: time.Now().UTC(),
		Reason:      req.Reason,
	})
	if err != nil {
		http.Error(w, "failed to build cancellation event", http.StatusInternalServerError)
		return
	}
	if err := h.outboxRepo.Insert(ctx, tx, evt); err != nil {
		http.Error(w, "failed to write outbox event", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit(ctx); err != nil {
		http.Error(w, "failed to commit", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *BookingHandler) List(w http.ResponseWriter, r *http.Request) {
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

	bookings, err := h.bookings.ListByOwner(r.Context(), ownerID, limit)
	if err != nil {
		http.Error(w, "failed to list bookings", http.StatusInternalServerError)
		return
	}

	items := make([]listBookingItem, 0, len(bookings))
	for _, b := range bookings {
		item := listBookingItem{
			BookingID:     b.ID,
			EventTypeID:   b.EventTypeID,
			AttendeeName:  b.AttendeeName,
			AttendeeEmail: b.AttendeeEmail,
			StartTime:     b.StartTime.UTC().Format(time.RFC3339),
			EndTime:       b.EndTime.UTC().Format(time.RFC3339),
			Status:        b.Status,
			Attendees:     b.Attendees,
			CreatedAt:     b.CreatedAt.UTC().Format(time.RFC3339),
		}
		if b.CancelledAt != nil {
			item.CancelledAt = b.CancelledAt.UTC().Format(time.RFC3339)
		}
		items = append(items, item)
	}
	writeJSON(w, http.StatusOK, items)
}

func (h *BookingHandler) createBooking(ctx context.Context, tx pgx.Tx, et model.EventType, req createBookingRequest, start, end time.Time) (string, error) {
	return h.bookings.Create(ctx, tx, &model.Booking{
		EventTypeID:   et.ID,
		OwnerID:       et.OwnerID,
		AttendeeName:  req.AttendeeName,
		AttendeeEmail: req.AttendeeEmail,
		StartTime:     start,
		EndTime:       end,
		Status:        "accepted",
		Attendees:     req.Attendees,
	})
}

func (h *BookingHandler) writeCreateError(w http.ResponseWriter, err error) {
	if storage.IsConflict(err) {
		http.Error(w, "time slot already booked", http.StatusConflict)
		return
	}
	http.Error(w, "failed to create booking", http.StatusInternalServerError)
}

// offeredSlot recomputes availability for the day containing start and looks
// the requested slot up in the result. A zero status means the slot is
// offerable and the returned slot carries its remaining seat count.
func (h *BookingHandler) offeredSlot(ctx context.Context, et model.EventType, start time.Time) (availability.Slot, int, string) {
	sched, err := h.loadSchedule(ctx, et)
	if err != nil {
		if storage.IsNotFound(err) {
			return availability.Slot{}, http.StatusUnprocessableEntity, "no schedule configured for event type"
		}
		return availability.Slot{}, http.StatusInternalServerError, "failed to load schedule"
	}
	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		loc = time.UTC
	}

	local := start.In(loc)
	dayStart := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)

	cfg := toEventConfig(et)
	fetchFrom, fetchTo := availability.WidenToBuckets(cfg, dayStart, dayEnd, loc)
	stored, err := h.bookings.ListActiveInRange(ctx, et.OwnerID, fetchFrom, fetchTo)
	if err != nil {
		return availability.Slot{}, http.StatusInternalServerError, "failed to load bookings"
	}

	yearCount := 0
	if cfg.Limits[availability.PerYear] > 0 {
		yearCount, err = h.bookings.CountStartingInYear(ctx, et.ID, start, loc)
		if err != nil {
			return availability.Slot{}, http.StatusInternalServerError, "failed to count bookings"
		}
	}

	var calendarBusy []availability.BusyInterval
	if h.feed != nil {
		feedRes, err := h.feed.Busy(ctx, et.OwnerID, dayStart, dayEnd)
		if err != nil {
			return availability.Slot{}, http.StatusServiceUnavailable, "calendar feed unavailable"
		}
		calendarBusy = feedRes.Busy
	}

	res, err := availability.Compute(availability.Request{
		From:             dayStart,
		To:               dayEnd,
		Now:              time.Now().UTC(),
		Schedule:         toSchedule(sched),
		Event:            cfg,
		CalendarBusy:     calendarBusy,
		Bookings:         toCoreBookings(stored),
		YearBookingCount: yearCount,
	})
	if err != nil {
		return availability.Slot{}, http.StatusUnprocessableEntity, err.Error()
	}

	for _, s := range res.Slots {
		if s.Start.Equal(start) {
			return s, 0, ""
		}
	}
	for _, s := range res.FullSlots {
		if s.Start.Equal(start) {
			return availability.Slot{}, http.StatusConflict, "slot is fully booked"
		}
	}
	return availability.Slot{}, http.StatusUnprocessableEntity, "requested time is not an offerable slot"
}

func (h *BookingHandler) loadSchedule(ctx context.Context, et model.EventType) (model.Schedule, error) {
	if et.ScheduleID != "" {
		return h.schedules.Get(ctx, et.ScheduleID)
	}
	return h.schedules.GetDefault(ctx, et.OwnerID)
}

// partialRelease reports whether a cancel request frees only some of a
// booking's seats. Requesting zero seats, or at least as many as the booking
// holds, cancels the booking whole and zeroes its attendee count.
func partialRelease(requested, attendees int) bool {
	return requested > 0 && requested < attendees
}

// recordRejection reports whether a failed availability recheck should be
// finalized against the idempotency key. Feed outages stay unrecorded so a
// retry with the same key can still succeed once the feed recovers.
func recordRejection(idempotencyKey string, status int) bool {
	return idempotencyKey != "" && status != http.StatusServiceUnavailable
}

func (h *BookingHandler) finalizeIdempotencyError(ctx context.Context, tx pgx.Tx, ownerID, key string, statusCode int, msg string) bool {
	body, err := json.Marshal(map[string]string{"error": msg})
	if err != nil {
		return false
	}
	if err := h.bookings.FinalizeIdempotency(ctx, tx, ownerID, key, "", statusCode, body); err != nil {
		h.logger.Error("failed to finalize idempotency (error)", "err", err)
		return false
	}
	return true
}
