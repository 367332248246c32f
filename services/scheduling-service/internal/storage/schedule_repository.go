package storage

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/avellar-dev/slotgrid/libs/db"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/model"
)

type ScheduleRepository struct {
	pool *db.Pool
}

func NewScheduleRepository(pool *db.Pool) *ScheduleRepository {
	return &ScheduleRepository{pool: pool}
}

func (r *ScheduleRepository) Create(ctx context.Context, s *model.Schedule) (string, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	id := uuid.NewString()
	_, err = tx.Exec(ctx, `
		INSERT INTO schedules (id, owner_id, name, timezone, is_default)
		VALUES ($1, $2, $3, $4, $5)
	`, id, s.OwnerID, s.Name, s.Timezone, s.IsDefault)
	if err != nil {
		return "", err
	}
	if err := insertRules(ctx, tx, id, s.Rules); err != nil {
		return "", err
	}
	if s.IsDefault {
		if err := clearOtherDefaults(ctx, tx, s.OwnerID, id); err != nil {
			return "", err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return "", err
	}
	return id, nil
}

func (r *ScheduleRepository) Get(ctx context.Context, scheduleID string) (model.Schedule, error) {
	var s model.Schedule
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, owner_id::text, name, timezone, is_default, created_at
		FROM schedules
		WHERE id = $1
	`, scheduleID).Scan(&s.ID, &s.OwnerID, &s.Name, &s.Timezone, &s.IsDefault, &s.CreatedAt)
	if err != nil {
		return model.Schedule{}, err
	}
	s.Rules, err = r.loadRules(ctx, s.ID)
	return s, err
}

// GetDefault returns the owner's default schedule, falling back to the oldest
// schedule when no explicit default is set.
func (r *ScheduleRepository) GetDefault(ctx context.Context, ownerID string) (model.Schedule, error) {
	var s model.Schedule
	err := r.pool.QueryRow(ctx, `
		SELECT id::text, owner_id::text, name, timezone, is_default, created_at
		FROM schedules
		WHERE owner_id = $1
		ORDER BY is_default DESC, created_at ASC
		LIMIT 1
	`, ownerID).Scan(&s.ID, &s.OwnerID, &s.Name, &s.Timezone, &s.IsDefault, &s.CreatedAt)
	if err != nil {
		return model.Schedule{}, err
	}
	s.Rules, err = r.loadRules(ctx, s.ID)
	return s, err
}

func (r *ScheduleRepository) List(ctx context.Context, ownerID string, limit int) ([]model.Schedule, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, owner_id::text, name, timezone, is_default, created_at
		FROM schedules
		WHERE owner_id = $1
		ORDER BY created_at ASC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []model.Schedule
	for rows.Next() {
		var s model.Schedule
		if err := rows.Scan(&s.ID, &s.OwnerID, &s.Name, &s.Timezone, &s.IsDefault, &s.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	for i := range out {
		rules, err := r.loadRules(ctx, out[i].ID)
		if err != nil {
			return nil, err
		}
		out[i].Rules = rules
	}
	return out, nil
}

// ReplaceRules swaps a schedule's full rule set atomically.
func (r *ScheduleRepository) ReplaceRules(ctx context.Context, scheduleID string, timezone string, rules []model.ScheduleRule) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	tag, err := tx.Exec(ctx, `
		UPDATE schedules SET timezone = $2, updated_at = now() WHERE id = $1
	`, scheduleID, timezone)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	if _, err := tx.Exec(ctx, `DELETE FROM schedule_rules WHERE schedule_id = $1`, scheduleID); err != nil {
		return err
	}
	if err := insertRules(ctx, tx, scheduleID, rules); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// Delete removes a schedule and re-points event types that referenced it at
// the owner's default (NULL schedule_id means "use default" downstream).
func (r *ScheduleRepository) Delete(ctx context.Context, scheduleID string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err := tx.Exec(ctx, `
		UPDATE event_types SET schedule_id = NULL WHERE schedule_id = $1
	`, scheduleID); err != nil {
		return err
	}
	tag, err := tx.Exec(ctx, `DELETE FROM schedules WHERE id = $1`, scheduleID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return tx.Commit(ctx)
}

func (r *ScheduleRepository) loadRules(ctx context.Context, scheduleID string) ([]model.ScheduleRule, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, schedule_id::text, days, override_date, start_minute, end_minute
		FROM schedule_rules
		WHERE schedule_id = $1
		ORDER BY override_date NULLS FIRST, start_minute ASC, id ASC
	`, scheduleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []model.ScheduleRule
	for rows.Next() {
		var rule model.ScheduleRule
		var days []int32
		var overrideDate *time.Time
		if err := rows.Scan(&rule.ID, &rule.ScheduleID, &days, &overrideDate, &rule.StartMinute, &rule.EndMinute); err != nil {
			return nil, err
		}
		for _, d := range days {
			rule.Days = append(rule.Days, time.Weekday(d))
		}
		rule.Date = overrideDate
		rules = append(rules, rule)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return rules, nil
}

func insertRules(ctx context.Context, tx pgx.Tx, scheduleID string, rules []model.ScheduleRule) error {
	for _, rule := range rules {
		if rule.Date == nil && rule.StartMinute >= rule.EndMinute {
			return errors.New("recurring rule requires start_minute < end_minute")
		}
		days := make([]int32, 0, len(rule.Days))
		for _, d := range rule.Days {
			days = append(days, int32(d))
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO schedule_rules (id, schedule_id, days, override_date, start_minute, end_minute)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, uuid.NewString(), scheduleID, days, rule.Date, rule.StartMinute, rule.EndMinute); err != nil {
			return err
		}
	}
	return nil
}

func clearOtherDefaults(ctx context.Context, tx pgx.Tx, ownerID, keepID string) error {
	_, err := tx.Exec(ctx, `
		UPDATE schedules SET is_default = false WHERE owner_id = $1 AND id <> $2
	`, ownerID, keepID)
	return err
}
