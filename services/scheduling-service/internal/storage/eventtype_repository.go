package storage

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/avellar-dev/slotgrid/libs/db"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/model"
)

type EventTypeRepository struct {
	pool *db.Pool
}

func NewEventTypeRepository(pool *db.Pool) *EventTypeRepository {
	return &EventTypeRepository{pool: pool}
}

func (r *EventTypeRepository) Create(ctx context.Context, et *model.EventType) (string, error) {
	limits, err := marshalLimits(et.BookingLimits)
	if err != nil {
		return "", err
	}
	id := uuid.NewString()
	_, err = r.pool.Exec(ctx, `
		INSERT INTO event_types
			(id, owner_id, title, slug, duration_minutes, slot_interval_minutes,
			 buffer_before_minutes, buffer_after_minutes, minimum_notice_minutes,
			 seats_per_time_slot, booking_limits, schedule_id)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, id, et.OwnerID, et.Title, et.Slug, et.DurationMinutes, et.SlotIntervalMinutes,
		et.BufferBeforeMinutes, et.BufferAfterMinutes, et.MinimumNoticeMinutes,
		et.SeatsPerTimeSlot, limits, nullable(et.ScheduleID))
	if err != nil {
		return "", err
	}
	return id, nil
}

func (r *EventTypeRepository) Get(ctx context.Context, eventTypeID string) (model.EventType, error) {
	var et model.EventType
	var limits []byte
	var scheduleID *string
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, owner_id::text, title, slug, duration_minutes, slot_interval_minutes,
		       buffer_before_minutes, buffer_after_minutes, minimum_notice_minutes,
		       seats_per_time_slot, booking_limits, schedule_id::text, created_at
		FROM event_types
		WHERE id = $1
	`, eventTypeID).Scan(&et.ID, &et.OwnerID, &et.Title, &et.Slug, &et.DurationMinutes,
		&et.SlotIntervalMinutes, &et.BufferBeforeMinutes, &et.BufferAfterMinutes,
		&et.MinimumNoticeMinutes, &et.SeatsPerTimeSlot, &limits, &scheduleID, &et.CreatedAt)
	if err != nil {
		return model.EventType{}, err
	}
	if scheduleID != nil {
		et.ScheduleID = *scheduleID
	}
	et.BookingLimits, err = unmarshalLimits(limits)
	return et, err
}

func (r *EventTypeRepository) List(ctx context.Context, ownerID string, limit int) ([]model.EventType, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, owner_id::text, title, slug, duration_minutes, slot_interval_minutes,
		       buffer_before_minutes, buffer_after_minutes, minimum_notice_minutes,
		       seats_per_time_slot, booking_limits, schedule_id::text, created_at
		FROM event_types
		WHERE owner_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.EventType
	for rows.Next() {
		var et model.EventType
		var limits []byte
		var scheduleID *string
		if err := rows.Scan(&et.ID, &et.OwnerID, &et.Title, &et.Slug, &et.DurationMinutes,
			&et.SlotIntervalMinutes, &et.BufferBeforeMinutes, &et.BufferAfterMinutes,
			&et.MinimumNoticeMinutes, &et.SeatsPerTimeSlot, &limits, &scheduleID, &et.CreatedAt); err != nil {
			return nil, err
		}
		if scheduleID != nil {
			et.ScheduleID = *scheduleID
		}
		if et.BookingLimits, err = unmarshalLimits(limits); err != nil {
			return nil, err
		}
		out = append(out, et)
	}
	return out, rows.Err()
}

func (r *EventTypeRepository) Update(ctx context.Context, et *model.EventType) error {
	limits, err := marshalLimits(et.BookingLimits)
	if err != nil {
		return err
	}
	tag, err := r.pool.Exec(ctx, `
		UPDATE event_types SET
			title = $2, slug = $3, duration_minutes = $4, slot_interval_minutes = $5,
			buffer_before_minutes = $6, buffer_after_minutes = $7, minimum_notice_minutes = $8,
			seats_per_time_slot = $9, booking_limits = $10, schedule_id = $11, updated_at = now()
		WHERE id = $1
	`, et.ID, et.Title, et.Slug, et.DurationMinutes, et.SlotIntervalMinutes,
		et.BufferBeforeMinutes, et.BufferAfterMinutes, et.MinimumNoticeMinutes,
		et.SeatsPerTimeSlot, limits, nullable(et.ScheduleID))
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *EventTypeRepository) Delete(ctx context.Context, eventTypeID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM event_types WHERE id = $1`, eventTypeID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func marshalLimits(limits map[string]int) ([]byte, error) {
	if len(limits) == 0 {
		return []byte("{}"), nil
	}
	return json.Marshal(limits)
}

func unmarshalLimits(raw []byte) (map[string]int, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var limits map[string]int
	if err := json.Unmarshal(raw, &limits); err != nil {
		return nil, err
	}
	if len(limits) == 0 {
		return nil, nil
	}
	return limits, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
