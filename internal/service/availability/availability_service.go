package availability

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/ecozelo/agenda/internal/repository"
)

// Slot is one candidate start time for the requested day. Unavailable slots
// are still returned so the caller can show "taken" or "too soon" instead of
// hiding them.
type Slot struct {
	Start     domain.TimeOfDay `json:"start"`
	Available bool             `json:"available"`
}

type Result struct {
	Slots []Slot `json:"slots"`
	// BlockedReason is set when the day yields no candidates for a normal
	// reason: no operating hours, or a blackout date.
	BlockedReason string `json:"message,omitempty"`
}

type AvailabilityUseCase interface {
	ComputeSlots(ctx context.Context, date time.Time, serviceID string, now time.Time) (*Result, error)
}

type Service struct {
	services     repository.ServiceRepository
	schedule     repository.ScheduleRepository
	appointments repository.AppointmentRepository
}

func NewService(services repository.ServiceRepository, schedule repository.ScheduleRepository, appointments repository.AppointmentRepository) *Service {
	return &Service{services: services, schedule: schedule, appointments: appointments}
}

// ComputeSlots builds the bookable start times for one (date, service) pair
// from the weekly windows, blackout dates, the day's non-cancelled
// appointments and the lead-time policy. It is a pure read: identical inputs
// against an unchanged ledger produce identical output.
//
// Overlapping or duplicate weekly windows are deliberately not merged; each
// window emits its own candidates and the merged list is sorted by start.
func (s *Service) ComputeSlots(ctx context.Context, date time.Time, serviceID string, now time.Time) (*Result, error) {
	svc, err := s.services.GetByID(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, fmt.Errorf("service %s: %w", serviceID, domain.ErrNotFound)
	}

	windows, err := s.schedule.ActiveWindowsByWeekday(ctx, int(date.Weekday()))
	if err != nil {
		return nil, err
	}
	if len(windows) == 0 {
		return &Result{Slots: []Slot{}, BlockedReason: "no operating hours this day"}, nil
	}

	blackout, err := s.schedule.BlackoutByDate(ctx, date)
	if err != nil {
		return nil, err
	}
	if blackout != nil {
		reason := blackout.Reason
		if reason == "" {
			reason = "date blocked"
		}
		return &Result{Slots: []Slot{}, BlockedReason: reason}, nil
	}

	policy, err := s.schedule.GetPolicy(ctx)
	if err != nil {
		return nil, err
	}

	booked, err := s.appointments.ListByDate(ctx, date)
	if err != nil {
		return nil, err
	}

	minBookable := now.Add(time.Duration(policy.MinLeadHours) * time.Hour)

	var slots []Slot
	for _, w := range windows {
		slots = append(slots, windowSlots(w, svc.DurationMinutes, policy.SlotGranularityMinutes, date, minBookable, booked)...)
	}
	sort.SliceStable(slots, func(i, j int) bool { return slots[i].Start < slots[j].Start })

	if slots == nil {
		slots = []Slot{}
	}
	return &Result{Slots: slots}, nil
}

// windowSlots walks candidate starts through one operating window, stepping
// by the policy granularity. A candidate whose end would pass the window end
// is skipped silently; a candidate ending exactly at the window end is kept.
func windowSlots(w domain.WeeklyWindow, durationMinutes, stepMinutes int, date, minBookable time.Time, booked []domain.Appointment) []Slot {
	if stepMinutes <= 0 || durationMinutes <= 0 {
		return nil
	}

	var slots []Slot
	for start := w.Start; start < w.End; start = start.AddMinutes(stepMinutes) {
		end := start.AddMinutes(durationMinutes)
		if end > w.End {
			continue
		}

		if start.At(date).Before(minBookable) {
			slots = append(slots, Slot{Start: start, Available: false})
			continue
		}

		slots = append(slots, Slot{Start: start, Available: !conflictsAny(start, end, booked)})
	}
	return slots
}

func conflictsAny(start, end domain.TimeOfDay, booked []domain.Appointment) bool {
	for _, a := range booked {
		if domain.Overlaps(start, end, a.Start, a.End) {
			return true
		}
	}
	return false
}

var _ AvailabilityUseCase = (*Service)(nil)
