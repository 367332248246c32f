package janitor

import (
	"context"
	"log/slog"
	"time"

	"github.com/avellar-dev/slotgrid/libs/db"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/inbox"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/outbox"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/storage"
)

// Worker sweeps rows that accumulate during normal operation: seated
// bookings whose attendee count dropped to zero, finalized idempotency keys,
// relayed outbox events, and stale inbox dedup entries.
type Worker struct {
	pool      *db.Pool
	bookings  *storage.BookingRepository
	outbox    *outbox.Repository
	inbox     *inbox.Repository
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	retention time.Duration
}

type Config struct {
	Interval  time.Duration
	BatchSize int
	Retention time.Duration
}

func NewWorker(pool *db.Pool, bookings *storage.BookingRepository, outboxRepo *outbox.Repository, inboxRepo *inbox.Repository, logger *slog.Logger, cfg Config) *Worker {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 200
	}
	if cfg.Retention <= 0 {
		cfg.Retention = 24 * time.Hour
	}
	return &Worker{
		pool:      pool,
		bookings:  bookings,
		outbox:    outboxRepo,
		inbox:     inboxRepo,
		logger:    logger,
		interval:  cfg.Interval,
		batchSize: cfg.BatchSize,
		retention: cfg.Retention,
	}
}

func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.sweep(ctx); err != nil {
				w.logger.Error("janitor sweep failed", "err", err)
			}
		}
	}
}

func (w *Worker) sweep(ctx context.Context) error {
	cutoff := time.Now().Add(-w.retention)

	tx, err := w.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	purged, err := w.bookings.PurgeEmptySeatedBookings(ctx, tx, cutoff, w.batchSize)
	if err != nil {
		return err
	}
	pruned, err := w.bookings.PruneIdempotencyKeys(ctx, tx, cutoff, w.batchSize)
	if err != nil {
		return err
	}
	published, err := w.outbox.PrunePublished(ctx, tx, cutoff, w.batchSize)
	if err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}

	// Inbox dedup rows are pruned outside the transaction; losing a prune is
	// harmless since duplicates are rejected on insert anyway.
	deduped, err := w.inbox.Prune(ctx, cutoff, w.batchSize)
	if err != nil {
		return err
	}

	if purged+pruned+published+deduped > 0 {
		w.logger.Info("janitor sweep",
			"empty_seated_bookings", purged,
			"idempotency_keys", pruned,
			"outbox_events", published,
			"inbox_events", deduped,
		)
	}
	return nil
}
