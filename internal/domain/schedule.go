package domain

import "time"

// WeeklyWindow is one operating window on a weekday (0=Sunday..6=Saturday).
// Several windows may exist for the same weekday; nothing assumes uniqueness.
type WeeklyWindow struct {
	ID        int64
	Weekday   int
	Start     TimeOfDay
	End       TimeOfDay
	Active    bool
	CreatedAt time.Time
}

type WeeklyWindowUpdate struct {
	Weekday *int
	Start   *TimeOfDay
	End     *TimeOfDay
	Active  *bool
}

// BlackoutDate blocks a whole calendar day regardless of weekly windows.
type BlackoutDate struct {
	ID        int64
	Date      time.Time
	Reason    string
	CreatedAt time.Time
}

// SchedulingPolicy is the admin-mutable singleton driving slot generation.
type SchedulingPolicy struct {
	BusinessName           string
	ContactPhone           string
	SlotGranularityMinutes int
	MinLeadHours           int
	MaxHorizonDays         int
	UpdatedAt              time.Time
}

type SchedulingPolicyUpdate struct {
	BusinessName           *string
	ContactPhone           *string
	SlotGranularityMinutes *int
	MinLeadHours           *int
	MaxHorizonDays         *int
}

// DefaultPolicy mirrors the values used when the singleton row is missing.
func DefaultPolicy() SchedulingPolicy {
	return SchedulingPolicy{
		SlotGranularityMinutes: 60,
		MinLeadHours:           24,
		MaxHorizonDays:         30,
	}
}
