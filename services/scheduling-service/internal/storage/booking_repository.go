package storage

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/avellar-dev/slotgrid/libs/db"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/model"
)

type BookingRepository struct {
	pool *db.Pool
}

type IdempotencyRecord struct {
	OwnerID         string
	IdempotencyKey  string
	BookingID       string
	StatusCode      int
	ResponsePayload []byte
}

func NewBookingRepository(pool *db.Pool) *BookingRepository {
	return &BookingRepository{pool: pool}
}

func (r *BookingRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.pool.Begin(ctx)
}

func (r *BookingRepository) LockIdempotencyKey(ctx context.Context, tx pgx.Tx, ownerID, key string) (IdempotencyRecord, bool, error) {
	rec, err := r.selectIdempotencyForUpdate(ctx, tx, ownerID, key)
	if err == nil {
		return rec, true, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return IdempotencyRecord{}, false, err
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO booking_idempotency_keys (owner_id, idempotency_key)
		VALUES ($1, $2)
		ON CONFLICT (owner_id, idempotency_key) DO NOTHING
	`, ownerID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}

	rec, err = r.selectIdempotencyForUpdate(ctx, tx, ownerID, key)
	if err != nil {
		return IdempotencyRecord{}, false, err
	}
	return rec, false, nil
}

func (r *BookingRepository) FinalizeIdempotency(ctx context.Context, tx pgx.Tx, ownerID, key, bookingID string, statusCode int, response []byte) error {
	_, err := tx.Exec(ctx, `
		UPDATE booking_idempotency_keys
		SET booking_id = $3,
			status_code = $4,
			response_payload = $5,
			updated_at = now()
		WHERE owner_id = $1 AND idempotency_key = $2
	`, ownerID, key, bookingID, statusCode, response)
	return err
}

func (r *BookingRepository) Create(ctx context.Context, tx pgx.Tx, b *model.Booking) (string, error) {
	var id string
	err := tx.QueryRow(ctx, `
		INSERT INTO bookings
			(event_type_id, owner_id, attendee_name, attendee_email, start_time, end_time, status, attendees)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`, b.EventTypeID, b.OwnerID, b.AttendeeName, b.AttendeeEmail,
		b.StartTime, b.EndTime, b.Status, b.Attendees).Scan(&id)
	if err != nil {
		return "", err
	}
	return id, nil
}

// GetSeatHolderForUpdate locks the accepted booking holding a seated slot, if
// one exists. New attendees for the same start time join that row instead of
// inserting a second one.
func (r *BookingRepository) GetSeatHolderForUpdate(ctx context.Context, tx pgx.Tx, eventTypeID string, start time.Time) (model.Booking, error) {
	return r.scanOneTx(ctx, tx, `
		SELECT id::text, event_type_id::text, owner_id::text, attendee_name, attendee_email,
			start_time, end_time, status, attendees, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM bookings
		WHERE event_type_id = $1
			AND start_time = $2
			AND status = 'accepted'
		ORDER BY created_at ASC
		LIMIT 1
		FOR UPDATE
	`, eventTypeID, start)
}

// AddAttendees bumps the attendee count of a seat-holding booking.
func (r *BookingRepository) AddAttendees(ctx context.Context, tx pgx.Tx, bookingID string, delta int) (int, error) {
	var attendees int
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET attendees = attendees + $2,
			updated_at = now()
		WHERE id = $1
		RETURNING attendees
	`, bookingID, delta).Scan(&attendees)
	return attendees, err
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, tx pgx.Tx, ownerID, bookingID string) (model.Booking, error) {
	return r.scanOneTx(ctx, tx, `
		SELECT id::text, event_type_id::text, owner_id::text, attendee_name, attendee_email,
			start_time, end_time, status, attendees, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM bookings
		WHERE id = $1 AND owner_id = $2
		FOR UPDATE
	`, bookingID, ownerID)
}

// Cancel releases every seat the booking held, matching the state ReleaseSeats
// reaches when the attendee count drains to zero; the janitor purges seated
// rows from that state.
func (r *BookingRepository) Cancel(ctx context.Context, tx pgx.Tx, ownerID, bookingID, reason string) (time.Time, error) {
	var cancelledAt time.Time
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET status = 'cancelled',
			attendees = 0,
			cancelled_at = now(),
			cancellation_reason = $3,
			updated_at = now()
		WHERE id = $1 AND owner_id = $2
		RETURNING cancelled_at
	`, bookingID, ownerID, reason).Scan(&cancelledAt)
	return cancelledAt, err
}

// ReleaseSeats removes attendees from a seated booking, cancelling the row
// when the count reaches zero.
func (r *BookingRepository) ReleaseSeats(ctx context.Context, tx pgx.Tx, bookingID string, delta int) (int, error) {
	var attendees int
	err := tx.QueryRow(ctx, `
		UPDATE bookings
		SET attendees = GREATEST(attendees - $2, 0),
			status = CASE WHEN attendees - $2 <= 0 THEN 'cancelled' ELSE status END,
			cancelled_at = CASE WHEN attendees - $2 <= 0 THEN now() ELSE cancelled_at END,
			updated_at = now()
		WHERE id = $1
		RETURNING attendees
	`, bookingID, delta).Scan(&attendees)
	return attendees, err
}

// ListActiveInRange returns an owner's accepted bookings overlapping
// [start, end) across all event types. The range is half-open so a booking
// ending exactly at start does not match.
func (r *BookingRepository) ListActiveInRange(ctx context.Context, ownerID string, start, end time.Time) ([]model.Booking, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, event_type_id::text, owner_id::text, attendee_name, attendee_email,
			start_time, end_time, status, attendees, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM bookings
		WHERE owner_id = $1
			AND status = 'accepted'
			AND start_time < $3
			AND end_time > $2
		ORDER BY start_time ASC
	`, ownerID, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// CountStartingInYear counts accepted bookings of one event type whose start
// falls inside the calendar year containing at, in the given zone.
func (r *BookingRepository) CountStartingInYear(ctx context.Context, eventTypeID string, at time.Time, loc *time.Location) (int, error) {
	local := at.In(loc)
	yearStart := time.Date(local.Year(), time.January, 1, 0, 0, 0, 0, loc)
	yearEnd := yearStart.AddDate(1, 0, 0)

	var count int
	err := r.pool.QueryRow(ctx, `
		SELECT count(*)
		FROM bookings
		WHERE event_type_id = $1
			AND status = 'accepted'
			AND start_time >= $2
			AND start_time < $3
	`, eventTypeID, yearStart, yearEnd).Scan(&count)
	return count, err
}

func (r *BookingRepository) ListByOwner(ctx context.Context, ownerID string, limit int) ([]model.Booking, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := r.pool.Query(ctx, `
		SELECT id::text, event_type_id::text, owner_id::text, attendee_name, attendee_email,
			start_time, end_time, status, attendees, cancelled_at, COALESCE(cancellation_reason, ''), created_at
		FROM bookings
		WHERE owner_id = $1
		ORDER BY start_time DESC
		LIMIT $2
	`, ownerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanBookings(rows)
}

// PurgeEmptySeatedBookings hard-deletes cancelled seated bookings whose
// attendee count reached zero. Run from the janitor, not request paths.
func (r *BookingRepository) PurgeEmptySeatedBookings(ctx context.Context, tx pgx.Tx, olderThan time.Time, limit int) (int64, error) {
	tag, err := tx.Exec(ctx, `
		DELETE FROM bookings
		WHERE id IN (
			SELECT b.id
			FROM bookings b
			JOIN event_types et ON et.id = b.event_type_id
			WHERE b.status = 'cancelled'
				AND b.attendees = 0
				AND et.seats_per_time_slot > 0
				AND b.cancelled_at < $1
			LIMIT $2
		)
	`, olderThan, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

// PruneIdempotencyKeys drops finalized idempotency rows past the retention
// window.
func (r *BookingRepository) PruneIdempotencyKeys(ctx context.Context, tx pgx.Tx, olderThan time.Time, limit int) (int64, error) {
	tag, err := tx.Exec(ctx, `
		DELETE FROM booking_idempotency_keys
		WHERE (owner_id, idempotency_key) IN (
			SELECT owner_id, idempotency_key
			FROM booking_idempotency_keys
			WHERE status_code IS NOT NULL
				AND updated_at < $1
			LIMIT $2
		)
	`, olderThan, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func IsConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

func IsNotFound(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

func (r *BookingRepository) scanOneTx(ctx context.Context, tx pgx.Tx, query string, args ...any) (model.Booking, error) {
	var b model.Booking
	var cancelledAt *time.Time
	err := tx.QueryRow(ctx, query, args...).Scan(
		&b.ID,
		&b.EventTypeID,
		&b.OwnerID,
		&b.AttendeeName,
		&b.AttendeeEmail,
		&b.StartTime,
		&b.EndTime,
		&b.Status,
		&b.Attendees,
		&cancelledAt,
		&b.CancelReason,
		&b.CreatedAt,
	)
	if err != nil {
		return model.Booking{}, err
	}
	b.CancelledAt = cancelledAt
	return b, nil
}

func scanBookings(rows pgx.Rows) ([]model.Booking, error) {
	var bookings []model.Booking
	for rows.Next() {
		var b model.Booking
		var cancelledAt *time.Time
		if err := rows.Scan(
			&b.ID,
			&b.EventTypeID,
			&b.OwnerID,
			&b.AttendeeName,
			&b.AttendeeEmail,
			&b.StartTime,
			&b.EndTime,
			&b.Status,
			&b.Attendees,
			&cancelledAt,
			&b.CancelReason,
			&b.CreatedAt,
		); err != nil {
			return nil, err
		}
		b.CancelledAt = cancelledAt
		bookings = append(bookings, b)
	}
	if rows.Err() != nil {
		return nil, rows.Err()
	}
	return bookings, nil
}

func (r *BookingRepository) selectIdempotencyForUpdate(ctx context.Context, tx pgx.Tx, ownerID, key string) (IdempotencyRecord, error) {
	var rec IdempotencyRecord
	var responseText string
	err := tx.QueryRow(ctx, `
		SELECT owner_id::text,
			idempotency_key,
			COALESCE(booking_id::text, ''),
			COALESCE(status_code, 0),
			COALESCE(response_payload::text, '')
		FROM booking_idempotency_keys
		WHERE owner_id = $1 AND idempotency_key = $2
		FOR UPDATE
	`, ownerID, key).Scan(
		&rec.OwnerID,
		&rec.IdempotencyKey,
		&rec.BookingID,
		&rec.StatusCode,
		&responseText,
	)
	if err != nil {
		return IdempotencyRecord{}, err
	}
	if responseText != "" {
		rec.ResponsePayload = []byte(responseText)
	}
	return rec, nil
}
