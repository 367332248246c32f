package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/model"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/storage"
)

type ScheduleHandler struct {
	repo   *storage.ScheduleRepository
	logger *slog.Logger
}

func NewScheduleHandler(repo *storage.ScheduleRepository, logger *slog.Logger) *ScheduleHandler {
	return &ScheduleHandler{repo: repo, logger: logger}
}

type scheduleRuleBody struct {
	Days        []int  `json:"days,omitempty"`
	Date        string `json:"date,omitempty"`
	StartMinute int    `json:"start_minute"`
	EndMinute   int    `json:"end_minute"`
}

type scheduleBody struct {
	ScheduleID string             `json:"schedule_id,omitempty"`
	OwnerID    string             `json:"owner_id,omitempty"`
	Name       string             `json:"name"`
	Timezone   string             `json:"timezone"`
	IsDefault  bool               `json:"is_default"`
	Rules      []scheduleRuleBody `json:"rules"`
	CreatedAt  string             `json:"created_at,omitempty"`
}

// Handle dispatches /api/v1/schedules: POST creates, GET fetches one by
// schedule_id or lists by owner.
func (h *ScheduleHandler) Handle(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.create(w, r)
	case http.MethodGet:
		if strings.TrimSpace(r.URL.Query().Get("schedule_id")) != "" {
			h.get(w, r)
			return
		}
		h.list(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// Update replaces a schedule's timezone and full rule set.
func (h *ScheduleHandler) Update(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodPut {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body scheduleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	body.ScheduleID = strings.TrimSpace(body.ScheduleID)
	if body.ScheduleID == "" {
		http.Error(w, "schedule_id required", http.StatusBadRequest)
		return
	}
	if msg := validateTimezone(body.Timezone); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	rules, msg := rulesFromBody(body.Rules)
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	if err := h.repo.ReplaceRules(r.Context(), body.ScheduleID, body.Timezone, rules); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "schedule not found", http.StatusNotFound)
			return
		}
		h.logger.Error("schedule update failed", "err", err)
		http.Error(w, "failed to update schedule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"schedule_id": body.ScheduleID})
}

func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost && r.Method != http.MethodDelete {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var body struct {
		ScheduleID string `json:"schedule_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	body.ScheduleID = strings.TrimSpace(body.ScheduleID)
	if body.ScheduleID == "" {
		http.Error(w, "schedule_id required", http.StatusBadRequest)
		return
	}

	if err := h.repo.Delete(r.Context(), body.ScheduleID); err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "schedule not found", http.StatusNotFound)
			return
		}
		h.logger.Error("schedule delete failed", "err", err)
		http.Error(w, "failed to delete schedule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"schedule_id": body.ScheduleID, "status": "deleted"})
}

func (h *ScheduleHandler) create(w http.ResponseWriter, r *http.Request) {
	var body scheduleBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return
	}
	body.OwnerID = strings.TrimSpace(body.OwnerID)
	body.Name = strings.TrimSpace(body.Name)
	if body.OwnerID == "" || body.Name == "" {
		http.Error(w, "owner_id and name required", http.StatusBadRequest)
		return
	}
	if msg := validateTimezone(body.Timezone); msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}
	rules, msg := rulesFromBody(body.Rules)
	if msg != "" {
		http.Error(w, msg, http.StatusBadRequest)
		return
	}

	id, err := h.repo.Create(r.Context(), &model.Schedule{
		OwnerID:   body.OwnerID,
		Name:      body.Name,
		Timezone:  body.Timezone,
		IsDefault: body.IsDefault,
		Rules:     rules,
	})
	if err != nil {
		h.logger.Error("schedule create failed", "err", err)
		http.Error(w, "failed to create schedule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]string{"schedule_id": id})
}

func (h *ScheduleHandler) get(w http.ResponseWriter, r *http.Request) {
	scheduleID := strings.TrimSpace(r.URL.Query().Get("schedule_id"))
	s, err := h.repo.Get(r.Context(), scheduleID)
	if err != nil {
		if storage.IsNotFound(err) {
			http.Error(w, "schedule not found", http.StatusNotFound)
			return
		}
		http.Error(w, "failed to load schedule", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, scheduleToBody(s))
}

func (h *ScheduleHandler) list(w http.ResponseWriter, r *http.Request) {
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

	schedules, err := h.repo.List(r.Context(), ownerID, limit)
	if err != nil {
		http.Error(w, "failed to list schedules", http.StatusInternalServerError)
		return
	}
	items := make([]scheduleBody, 0, len(schedules))
	for _, s := range schedules {
		items = append(items, scheduleToBody(s))
	}
	writeJSON(w, http.StatusOK, items)
}

func scheduleToBody(s model.Schedule) scheduleBody {
	body := scheduleBody{
		ScheduleID: s.ID,
		OwnerID:    s.OwnerID,
		Name:       s.Name,
		Timezone:   s.Timezone,
		IsDefault:  s.IsDefault,
		CreatedAt:  s.CreatedAt.UTC().Format(time.RFC3339),
	}
	for _, rule := range s.Rules {
		rb := scheduleRuleBody{StartMinute: rule.StartMinute, EndMinute: rule.EndMinute}
		for _, d := range rule.Days {
			rb.Days = append(rb.Days, int(d))
		}
		if rule.Date != nil {
			rb.Date = rule.Date.Format("2006-01-02")
		}
		body.Rules = append(body.Rules, rb)
	}
	return body
}

func rulesFromBody(in []scheduleRuleBody) ([]model.ScheduleRule, string) {
	const minutesPerDay = 24 * 60
	rules := make([]model.ScheduleRule, 0, len(in))
	for _, rb := range in {
		if rb.StartMinute < 0 || rb.EndMinute > minutesPerDay || rb.StartMinute > rb.EndMinute {
			return nil, "rule minutes must satisfy 0 <= start <= end <= 1440"
		}
		rule := model.ScheduleRule{StartMinute: rb.StartMinute, EndMinute: rb.EndMinute}
		if rb.Date != "" {
			day, err := time.Parse("2006-01-02", rb.Date)
			if err != nil {
				return nil, "rule date must be YYYY-MM-DD"
			}
			rule.Date = &day
		} else {
			if len(rb.Days) == 0 {
				return nil, "recurring rule requires days"
			}
			if rb.StartMinute == rb.EndMinute {
				return nil, "recurring rule requires start_minute < end_minute"
			}
			for _, d := range rb.Days {
				if d < 0 || d > 6 {
					return nil, "days must be 0 (Sunday) through 6 (Saturday)"
				}
				rule.Days = append(rule.Days, time.Weekday(d))
			}
		}
		rules = append(rules, rule)
	}
	return rules, ""
}

func validateTimezone(tz string) string {
	if strings.TrimSpace(tz) == "" {
		return "timezone required"
	}
	if _, err := time.LoadLocation(tz); err != nil {
		return "timezone must be a valid IANA zone name"
	}
	return ""
}
