//go:build protogen

package calendar

import (
	"context"
	"time"

	"github.com/avellar-dev/slotgrid/libs/grpcx"
	calendarv1 "github.com/avellar-dev/slotgrid/protos/gen/calendar/v1"
	"github.com/avellar-dev/slotgrid/services/scheduling-service/internal/availability"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// grpcSource pulls busy intervals from the external calendar connector
// service. Built only with -tags protogen, after the proto stubs have been
// generated.
type grpcSource struct {
	name   string
	client calendarv1.CalendarConnectorClient
}

func NewGRPCSource(name, addr string) (Source, error) {
	if addr == "" {
		return nil, nil
	}
	conn, err := grpcx.Dial(context.Background(), addr, grpcx.DialOptions{Timeout: 3 * time.Second})
	if err != nil {
		return nil, err
	}
	return &grpcSource{name: name, client: calendarv1.NewCalendarConnectorClient(conn)}, nil
}

func (s *grpcSource) Name() string { return s.name }

func (s *grpcSource) BusyIntervals(ctx context.Context, ownerID string, from, to time.Time) ([]availability.BusyInterval, error) {
	resp, err := s.client.ListBusyIntervals(ctx, &calendarv1.ListBusyIntervalsRequest{
		OwnerId: ownerID,
		From:    timestamppb.New(from),
		To:      timestamppb.New(to),
	})
	if err != nil {
		return nil, err
	}
	var busy []availability.BusyInterval
	for _, iv := range resp.GetIntervals() {
		if iv.GetStart() == nil || iv.GetEnd() == nil {
			continue
		}
		start := iv.GetStart().AsTime()
		end := iv.GetEnd().AsTime()
		if !end.After(start) {
			continue
		}
		busy = append(busy, availability.BusyInterval{Start: start, End: end, Source: s.name})
	}
	return busy, nil
}
