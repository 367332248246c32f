package availability

// SeatUsage tracks how many attendees occupy a shared time slot and which
// booking record holds them.
type SeatUsage struct {
	Attendees  int
	BookingUID string
}

// BuildSeatMap returns current seat usage keyed by slot start (unix seconds)
// for the given event type. Bookings with zero attendees are treated as
// absent: an emptied seated booking no longer claims its slot even if the row
// has not been deleted yet.
func BuildSeatMap(cfg EventConfig, bookings []Booking) map[int64]SeatUsage {
	if cfg.SeatsPerSlot <= 0 {
		return nil
	}
	seats := make(map[int64]SeatUsage)
	for _, b := range bookings {
		if b.EventTypeID != cfg.ID || b.Attendees <= 0 {
			continue
		}
		key := b.Start.Unix()
		usage := seats[key]
		if usage.BookingUID == "" {
			usage.BookingUID = b.UID
		}
		usage.Attendees += b.Attendees
		seats[key] = usage
	}
	return seats
}
