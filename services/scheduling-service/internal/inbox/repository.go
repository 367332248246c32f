package inbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/avellar-dev/slotgrid/libs/db"
)

type Repository struct {
	pool *db.Pool
}

func NewRepository(pool *db.Pool) *Repository {
	return &Repository{pool: pool}
}

// Record registers a consumed event id. Returns false when the event was
// already seen, which the consumer treats as "skip, already handled".
func (r *Repository) Record(ctx context.Context, eventID string, eventType string) (bool, error) {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO inbox_events (event_id, event_type)
		VALUES ($1, $2)
	`, eventID, eventType)
	if err == nil {
		return true, nil
	}

	if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.Code == "23505" {
		return false, nil
	}

	return false, err
}

// Prune drops inbox rows older than the retention window; dedup only needs
// to cover the consumer group's redelivery horizon.
func (r *Repository) Prune(ctx context.Context, olderThan time.Time, limit int) (int64, error) {
	tag, err := r.pool.Exec(ctx, `
		DELETE FROM inbox_events
		WHERE event_id IN (
			SELECT event_id FROM inbox_events
			WHERE received_at < $1
			LIMIT $2
		)
	`, olderThan, limit)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
