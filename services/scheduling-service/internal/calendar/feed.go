package calendar

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/availability"
)

// Feed fans a busy-interval query out to every configured source and merges
// the answers. A failing source degrades to a warning rather than failing the
// whole availability request; callers surface the warning so clients know the
// result may be optimistic.
type Feed struct {
	sources []Source
	cache   *BusyCache
	logger  *slog.Logger
	timeout time.Duration
}

type Result struct {
	Busy     []availability.BusyInterval
	Warnings []string
}

func NewFeed(logger *slog.Logger, cache *BusyCache, timeout time.Duration, sources ...Source) *Feed {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	active := make([]Source, 0, len(sources))
	for _, s := range sources {
		if s != nil {
			active = append(active, s)
		}
	}
	return &Feed{sources: active, cache: cache, logger: logger, timeout: timeout}
}

func (f *Feed) Busy(ctx context.Context, ownerID string, from, to time.Time) (Result, error) {
	if len(f.sources) == 0 {
		return Result{}, nil
	}

	if cached, ok, err := f.cache.Get(ctx, ownerID, from, to); err != nil {
		f.logger.Warn("busy cache read failed", "err", err)
	} else if ok {
		return Result{Busy: cached}, nil
	}

	ctx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	type answer struct {
		name string
		busy []availability.BusyInterval
		err  error
	}
	answers := make([]answer, len(f.sources))

	var wg sync.WaitGroup
	for i, src := range f.sources {
		wg.Add(1)
		go func(i int, src Source) {
			defer wg.Done()
			busy, err := src.BusyIntervals(ctx, ownerID, from, to)
			answers[i] = answer{name: src.Name(), busy: busy, err: err}
		}(i, src)
	}
	wg.Wait()

	var res Result
	for _, a := range answers {
		if a.err != nil {
			f.logger.Warn("busy source failed", "source", a.name, "err", a.err)
			res.Warnings = append(res.Warnings, fmt.Sprintf("source %s unavailable", a.name))
			continue
		}
		for _, b := range a.busy {
			if b.Source == "" {
				b.Source = a.name
			}
			res.Busy = append(res.Busy, b)
		}
	}
	res.Busy = availability.Coalesce(res.Busy)

	// Only fully successful aggregations are cached. A partial result would
	// otherwise hide the missing source until the TTL expires.
	if len(res.Warnings) == 0 {
		if err := f.cache.Set(ctx, ownerID, from, to, res.Busy); err != nil {
			f.logger.Warn("busy cache write failed", "err", err)
		}
	}
	return res, nil
}

// Invalidate drops cached results for an owner. Wired to the Kafka
// invalidation topic by the consumer.
func (f *Feed) Invalidate(ctx context.Context, ownerID string) error {
	return f.cache.Invalidate(ctx, ownerID)
}
