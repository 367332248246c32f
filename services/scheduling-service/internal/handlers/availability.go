package handlers

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/availability"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/calendar"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/model"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/storage"
)

type AvailabilityHandler struct {
	eventTypes *storage.EventTypeRepository
	schedules  *storage.ScheduleRepository
	bookings   *storage.BookingRepository
	feed       *calendar.Feed
	logger     *slog.Logger
}

func NewAvailabilityHandler(eventTypes *storage.EventTypeRepository, schedules *storage.ScheduleRepository, bookings *storage.BookingRepository, feed *calendar.Feed, logger *slog.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		eventTypes: eventTypes,
		schedules:  schedules,
		bookings:   bookings,
		feed:       feed,
		logger:     logger,
	}
}

type busyItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Source    string `json:"source,omitempty"`
}

type windowItem struct {
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

type slotItem struct {
	StartTime      string `json:"start_time"`
	EndTime        string `json:"end_time"`
	RemainingSeats *int   `json:"remaining_seats,omitempty"`
}

type availabilityResponse struct {
	EventTypeID    string       `json:"event_type_id"`
	Timezone       string       `json:"timezone"`
	WorkingWindows []windowItem `json:"working_windows"`
	DateOverrides  []windowItem `json:"date_overrides,omitempty"`
	Busy           []busyItem   `json:"busy"`
	Slots          []slotItem   `json:"slots"`
	FullSlots      []slotItem   `json:"full_slots,omitempty"`
	Warnings       []string     `json:"warnings,omitempty"`
}

type slotsResponse struct {
	EventTypeID string     `json:"event_type_id"`
	Timezone    string     `json:"timezone"`
	Slots       []slotItem `json:"slots"`
	Warnings    []string   `json:"warnings,omitempty"`
}

// Get serves the full availability view: effective windows, merged busy time,
// offerable slots, and seated slots at capacity.
func (h *AvailabilityHandler) Get(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, et, warnings, err := h.compute(r)
	if err != nil {
		err.write(w)
		return
	}

	resp := availabilityResponse{
		EventTypeID:    et.ID,
		Timezone:       res.TimeZone,
		WorkingWindows: windowItems(res.WorkingWindows),
		DateOverrides:  windowItems(res.DateOverrides),
		Busy:           busyItems(res.Busy),
		Slots:          slotItems(res.Slots),
		FullSlots:      slotItems(res.FullSlots),
		Warnings:       warnings,
	}
	writeJSON(w, http.StatusOK, resp)
}

// Slots is the slim booking-page variant: offerable slots only.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	res, et, warnings, err := h.compute(r)
	if err != nil {
		err.write(w)
		return
	}

	writeJSON(w, http.StatusOK, slotsResponse{
		EventTypeID: et.ID,
		Timezone:    res.TimeZone,
		Slots:       slotItems(res.Slots),
		Warnings:    warnings,
	})
}

type httpError struct {
	status int
	msg    string
}

func (e *httpError) write(w http.ResponseWriter) {
	http.Error(w, e.msg, e.status)
}

func (h *AvailabilityHandler) compute(r *http.Request) (availability.Result, model.EventType, []string, *httpError) {
	ctx := r.Context()

	eventTypeID := strings.TrimSpace(r.URL.Query().Get("event_type_id"))
	if eventTypeID == "" {
		return availability.Result{}, model.EventType{}, nil, &httpError{http.StatusBadRequest, "event_type_id required"}
	}

	et, err := h.eventTypes.Get(ctx, eventTypeID)
	if err != nil {
		if storage.IsNotFound(err) {
			return availability.Result{}, model.EventType{}, nil, &httpError{http.StatusNotFound, "event type not found"}
		}
		h.logger.Error("event type load failed", "err", err)
		return availability.Result{}, model.EventType{}, nil, &httpError{http.StatusInternalServerError, "failed to load event type"}
	}

	sched, err := h.loadSchedule(ctx, et)
	if err != nil {
		if storage.IsNotFound(err) {
			return availability.Result{}, model.EventType{}, nil, &httpError{http.StatusNotFound, "no schedule configured for event type"}
		}
		h.logger.Error("schedule load failed", "err", err)
		return availability.Result{}, model.EventType{}, nil, &httpError{http.StatusInternalServerError, "failed to load schedule"}
	}

	loc, err := time.LoadLocation(sched.Timezone)
	if err != nil {
		loc = time.UTC
	}

	from, to, perr := parseRange(r.URL.Query().Get("from"), r.URL.Query().Get("to"), loc)
	if perr != nil {
		return availability.Result{}, model.EventType{}, nil, &httpError{http.StatusBadRequest, perr.Error()}
	}

	cfg := toEventConfig(et)

	// Booking fetch is widened to whole limit buckets so a PER_WEEK or
	// PER_MONTH count sees bookings outside the query range.
	fetchFrom, fetchTo := availability.WidenToBuckets(cfg, from, to, loc)
	stored, err := h.bookings.ListActiveInRange(ctx, et.OwnerID, fetchFrom, fetchTo)
	if err != nil {
		h.logger.Error("booking load failed", "err", err)
		return availability.Result{}, model.EventType{}, nil, &httpError{http.StatusInternalServerError, "failed to load bookings"}
	}

	yearCount := 0
	if cfg.Limits[availability.PerYear] > 0 {
		yearCount, err = h.bookings.CountStartingInYear(ctx, et.ID, from, loc)
		if err != nil {
			h.logger.Error("year count failed", "err", err)
			return availability.Result{}, model.EventType{}, nil, &httpError{http.StatusInternalServerError, "failed to count bookings"}
		}
	}

	var calendarBusy []availability.BusyInterval
	var warnings []string
	if h.feed != nil {
		feedRes, err := h.feed.Busy(ctx, et.OwnerID, from, to)
		if err != nil {
			h.logger.Error("busy feed failed", "err", err)
			return availability.Result{}, model.EventType{}, nil, &httpError{http.StatusInternalServerError, "failed to load calendar busy time"}
		}
		calendarBusy = feedRes.Busy
		warnings = feedRes.Warnings
	}

	res, err := availability.Compute(availability.Request{
		From:             from,
		To:               to,
		Now:              time.Now().UTC(),
		Schedule:         toSchedule(sched),
		Event:            cfg,
		CalendarBusy:     calendarBusy,
		Bookings:         toCoreBookings(stored),
		YearBookingCount: yearCount,
	})
	if err != nil {
		return availability.Result{}, model.EventType{}, nil, &httpError{http.StatusBadRequest, err.Error()}
	}

	// The widened booking fetch and limit buckets can leave merged busy
	// intervals reaching past the query range; report only the queried slice.
	res.Busy = clipBusy(res.Busy, from, to)
	return res, et, warnings, nil
}

// clipBusy truncates busy intervals to [from, to) and drops the ones entirely
// outside it.
func clipBusy(busy []availability.BusyInterval, from, to time.Time) []availability.BusyInterval {
	out := make([]availability.BusyInterval, 0, len(busy))
	for _, b := range busy {
		if !b.Start.Before(to) || !b.End.After(from) {
			continue
		}
		if b.Start.Before(from) {
			b.Start = from
		}
		if b.End.After(to) {
			b.End = to
		}
		out = append(out, b)
	}
	return out
}

func (h *AvailabilityHandler) loadSchedule(ctx context.Context, et model.EventType) (model.Schedule, error) {
	if et.ScheduleID != "" {
		return h.schedules.Get(ctx, et.ScheduleID)
	}
	return h.schedules.GetDefault(ctx, et.OwnerID)
}

// parseRange accepts RFC3339 instants or plain dates. A plain date is taken
// as local midnight in the schedule's zone; a plain "to" date is inclusive,
// covering through the end of that day.
func parseRange(fromRaw, toRaw string, loc *time.Location) (time.Time, time.Time, error) {
	from, _, err := parseRangeBound(fromRaw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, toWasDate, err := parseRangeBound(toRaw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	if toWasDate {
		to = to.AddDate(0, 0, 1)
	}
	return from, to, nil
}

func parseRangeBound(raw string, loc *time.Location) (time.Time, bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false, errInvalidBound
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, false, nil
	}
	if t, err := time.ParseInLocation("2006-01-02", raw, loc); err == nil {
		return t, true, nil
	}
	return time.Time{}, false, errInvalidBound
}

var errInvalidBound = errBound{}

type errBound struct{}

func (errBound) Error() string {
	return "from and to must be RFC3339 timestamps or YYYY-MM-DD dates"
}

func windowItems(ivs []availability.Interval) []windowItem {
	out := make([]windowItem, 0, len(ivs))
	for _, iv := range ivs {
		out = append(out, windowItem{
			StartTime: iv.Start.UTC().Format(time.RFC3339),
			EndTime:   iv.End.UTC().Format(time.RFC3339),
		})
	}
	return out
}

func busyItems(busy []availability.BusyInterval) []busyItem {
	out := make([]busyItem, 0, len(busy))
	for _, b := range busy {
		out = append(out, busyItem{
			StartTime: b.Start.UTC().Format(time.RFC3339),
			EndTime:   b.End.UTC().Format(time.RFC3339),
			Source:    b.Source,
		})
	}
	return out
}

func slotItems(slots []availability.Slot) []slotItem {
	out := make([]slotItem, 0, len(slots))
	for _, s := range slots {
		item := slotItem{
			StartTime: s.Start.UTC().Format(time.RFC3339),
			EndTime:   s.End.UTC().Format(time.RFC3339),
		}
		if s.RemainingSeats >= 0 {
			remaining := s.RemainingSeats
			item.RemainingSeats = &remaining
		}
		out = append(out, item)
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
