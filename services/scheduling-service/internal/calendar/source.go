package calendar

import (
	"context"
	"time"

	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/availability"
)

// Source is a provider of busy intervals for one owner: an external calendar
// connector, another service, or a fixture in tests. Implementations return
// intervals overlapping [from, to); the feed clips and merges.
type Source interface {
	Name() string
	BusyIntervals(ctx context.Context, ownerID string, from, to time.Time) ([]availability.BusyInterval, error)
}
