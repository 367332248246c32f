package model

import "time"

// ScheduleRule is one availability row: recurring when Date is nil, a date
// override otherwise. Override rows with StartMinute == EndMinute mark the
// whole date unavailable.
type ScheduleRule struct {
	ID          string
	ScheduleID  string
	Days        []time.Weekday
	Date        *time.Time
	StartMinute int
	EndMinute   int
}

func (r ScheduleRule) IsOverride() bool {
	return r.Date != nil
}

type Schedule struct {
	ID        string
	OwnerID   string
	Name      string
	Timezone  string
	IsDefault bool
	Rules     []ScheduleRule
	CreatedAt time.Time
}
