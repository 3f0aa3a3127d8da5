package schedule

import (
	"context"
	"time"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/ecozelo/agenda/internal/repository"
)

type ScheduleUseCase interface {
	ListWindows(ctx context.Context) ([]domain.WeeklyWindow, error)
	CreateWindow(ctx context.Context, weekday int, start, end domain.TimeOfDay) (*domain.WeeklyWindow, error)
	UpdateWindow(ctx context.Context, id int64, upd domain.WeeklyWindowUpdate) (*domain.WeeklyWindow, error)
	DeleteWindow(ctx context.Context, id int64) error

	ListBlackouts(ctx context.Context) ([]domain.BlackoutDate, error)
	CreateBlackout(ctx context.Context, date time.Time, reason string) (*domain.BlackoutDate, error)
	DeleteBlackout(ctx context.Context, id int64) error

	GetPolicy(ctx context.Context) (*domain.SchedulingPolicy, error)
	UpdatePolicy(ctx context.Context, upd domain.SchedulingPolicyUpdate) (*domain.SchedulingPolicy, error)
	ActiveWindows(ctx context.Context) ([]domain.WeeklyWindow, error)
}

type ScheduleService struct {
	repo repository.ScheduleRepository
}

func NewScheduleService(repo repository.ScheduleRepository) *ScheduleService {
	return &ScheduleService{repo: repo}
}

func (s *ScheduleService) ListWindows(ctx context.Context) ([]domain.WeeklyWindow, error) {
	return s.repo.ListWindows(ctx)
}

// ActiveWindows returns the active windows across all weekdays, for the
// public policy endpoint the booking UI reads.
func (s *ScheduleService) ActiveWindows(ctx context.Context) ([]domain.WeeklyWindow, error) {
	all, err := s.repo.ListWindows(ctx)
	if err != nil {
		return nil, err
	}
	active := make([]domain.WeeklyWindow, 0, len(all))
	for _, w := range all {
		if w.Active {
			active = append(active, w)
		}
	}
	return active, nil
}

func validateWindow(weekday int, start, end domain.TimeOfDay) error {
	fields := map[string]string{}
	if weekday < 0 || weekday > 6 {
		fields["weekday"] = "weekday must be between 0 and 6"
	}
	if start >= end {
		fields["start"] = "start must be before end"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func (s *ScheduleService) CreateWindow(ctx context.Context, weekday int, start, end domain.TimeOfDay) (*domain.WeeklyWindow, error) {
	if err := validateWindow(weekday, start, end); err != nil {
		return nil, err
	}

	w := &domain.WeeklyWindow{Weekday: weekday, Start: start, End: end, Active: true}
	if err := s.repo.CreateWindow(ctx, w); err != nil {
		return nil, err
	}
	return w, nil
}

func (s *ScheduleService) UpdateWindow(ctx context.Context, id int64, upd domain.WeeklyWindowUpdate) (*domain.WeeklyWindow, error) {
	if upd.Weekday != nil && (*upd.Weekday < 0 || *upd.Weekday > 6) {
		return nil, domain.NewValidationError("weekday", "weekday must be between 0 and 6")
	}
	if upd.Start != nil && upd.End != nil && *upd.Start >= *upd.End {
		return nil, domain.NewValidationError("start", "start must be before end")
	}

	updated, err := s.repo.UpdateWindow(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	if updated.Start >= updated.End {
		// Partial updates can invert the window against the stored half.
		return nil, domain.NewValidationError("start", "start must be before end")
	}
	return updated, nil
}

func (s *ScheduleService) DeleteWindow(ctx context.Context, id int64) error {
	return s.repo.DeleteWindow(ctx, id)
}

func (s *ScheduleService) ListBlackouts(ctx context.Context) ([]domain.BlackoutDate, error) {
	return s.repo.ListBlackouts(ctx)
}

func (s *ScheduleService) CreateBlackout(ctx context.Context, date time.Time, reason string) (*domain.BlackoutDate, error) {
	if date.IsZero() {
		return nil, domain.NewValidationError("date", "date is required")
	}

	b := &domain.BlackoutDate{Date: date, Reason: reason}
	if err := s.repo.CreateBlackout(ctx, b); err != nil {
		return nil, err
	}
	return b, nil
}

func (s *ScheduleService) DeleteBlackout(ctx context.Context, id int64) error {
	return s.repo.DeleteBlackout(ctx, id)
}

func (s *ScheduleService) GetPolicy(ctx context.Context) (*domain.SchedulingPolicy, error) {
	return s.repo.GetPolicy(ctx)
}

func (s *ScheduleService) UpdatePolicy(ctx context.Context, upd domain.SchedulingPolicyUpdate) (*domain.SchedulingPolicy, error) {
	fields := map[string]string{}
	if upd.SlotGranularityMinutes != nil && *upd.SlotGranularityMinutes <= 0 {
		fields["slotGranularityMinutes"] = "granularity must be positive"
	}
	if upd.MinLeadHours != nil && *upd.MinLeadHours < 0 {
		fields["minLeadHours"] = "lead hours cannot be negative"
	}
	if upd.MaxHorizonDays != nil && *upd.MaxHorizonDays <= 0 {
		fields["maxHorizonDays"] = "horizon must be positive"
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}
	return s.repo.UpdatePolicy(ctx, upd)
}

var _ ScheduleUseCase = (*ScheduleService)(nil)
