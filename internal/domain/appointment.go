package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCancelled AppointmentStatus = "cancelled"
	AppointmentStatusCompleted AppointmentStatus = "completed"
)

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusPaid    PaymentStatus = "paid"
)

type Appointment struct {
	ID              string
	ServiceID       string
	Date            time.Time // calendar day, zero time-of-day
	Start           TimeOfDay
	End             TimeOfDay // frozen at creation: Start + service duration
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	Notes           string
	Status          AppointmentStatus
	PaymentStatus   PaymentStatus
	PaymentRef      string
	Total           decimal.Decimal
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// CanTransitionTo reports whether the status state machine permits moving to
// next. Cancelled and completed are terminal.
func (s AppointmentStatus) CanTransitionTo(next AppointmentStatus) bool {
	switch s {
	case AppointmentStatusPending:
		return next == AppointmentStatusConfirmed || next == AppointmentStatusCancelled
	case AppointmentStatusConfirmed:
		return next == AppointmentStatusCancelled || next == AppointmentStatusCompleted
	default:
		return false
	}
}

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed, AppointmentStatusCancelled, AppointmentStatusCompleted:
		return true
	}
	return false
}

// Overlaps reports whether the half-open intervals [aStart, aEnd) and
// [bStart, bEnd) intersect. Touching endpoints are not a conflict: an
// appointment ending at 10:00 does not collide with one starting at 10:00.
// Both the availability calculator and the booking committer use this exact
// predicate so their notions of "free" cannot drift apart.
func Overlaps(aStart, aEnd, bStart, bEnd TimeOfDay) bool {
	return aStart < bEnd && aEnd > bStart
}
