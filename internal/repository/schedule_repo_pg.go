package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type ScheduleRepository interface {
	ListWindows(ctx context.Context) ([]domain.WeeklyWindow, error)
	ActiveWindowsByWeekday(ctx context.Context, weekday int) ([]domain.WeeklyWindow, error)
	CreateWindow(ctx context.Context, w *domain.WeeklyWindow) error
	UpdateWindow(ctx context.Context, id int64, upd domain.WeeklyWindowUpdate) (*domain.WeeklyWindow, error)
	DeleteWindow(ctx context.Context, id int64) error

	ListBlackouts(ctx context.Context) ([]domain.BlackoutDate, error)
	BlackoutByDate(ctx context.Context, date time.Time) (*domain.BlackoutDate, error)
	CreateBlackout(ctx context.Context, b *domain.BlackoutDate) error
	DeleteBlackout(ctx context.Context, id int64) error

	GetPolicy(ctx context.Context) (*domain.SchedulingPolicy, error)
	UpdatePolicy(ctx context.Context, upd domain.SchedulingPolicyUpdate) (*domain.SchedulingPolicy, error)
}

type PGScheduleRepository struct {
	db *pgxpool.Pool
}

func NewScheduleRepository(db *pgxpool.Pool) ScheduleRepository {
	return &PGScheduleRepository{db: db}
}

func (r *PGScheduleRepository) windows(ctx context.Context, query string, args ...any) ([]domain.WeeklyWindow, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	windows := make([]domain.WeeklyWindow, 0)
	for rows.Next() {
		var w domain.WeeklyWindow
		var start, end int
		if err := rows.Scan(&w.ID, &w.Weekday, &start, &end, &w.Active, &w.CreatedAt); err != nil {
			return nil, err
		}
		w.Start, w.End = domain.TimeOfDay(start), domain.TimeOfDay(end)
		windows = append(windows, w)
	}
	return windows, rows.Err()
}

func (r *PGScheduleRepository) ListWindows(ctx context.Context) ([]domain.WeeklyWindow, error) {
	return r.windows(ctx, `SELECT id, weekday, start_minute, end_minute, active, created_at
		FROM weekly_windows ORDER BY weekday ASC, start_minute ASC`)
}

func (r *PGScheduleRepository) ActiveWindowsByWeekday(ctx context.Context, weekday int) ([]domain.WeeklyWindow, error) {
	return r.windows(ctx, `SELECT id, weekday, start_minute, end_minute, active, created_at
		FROM weekly_windows WHERE weekday=$1 AND active ORDER BY start_minute ASC`, weekday)
}

func (r *PGScheduleRepository) CreateWindow(ctx context.Context, w *domain.WeeklyWindow) error {
	return r.db.QueryRow(ctx, `INSERT INTO weekly_windows (weekday, start_minute, end_minute, active)
		VALUES ($1, $2, $3, $4) RETURNING id, created_at`,
		w.Weekday, int(w.Start), int(w.End), w.Active).Scan(&w.ID, &w.CreatedAt)
}

func (r *PGScheduleRepository) UpdateWindow(ctx context.Context, id int64, upd domain.WeeklyWindowUpdate) (*domain.WeeklyWindow, error) {
	var start, end *int
	if upd.Start != nil {
		v := int(*upd.Start)
		start = &v
	}
	if upd.End != nil {
		v := int(*upd.End)
		end = &v
	}
	row := r.db.QueryRow(ctx, `UPDATE weekly_windows SET
			weekday = COALESCE($2, weekday),
			start_minute = COALESCE($3, start_minute),
			end_minute = COALESCE($4, end_minute),
			active = COALESCE($5, active)
		WHERE id=$1
		RETURNING id, weekday, start_minute, end_minute, active, created_at`,
		id, upd.Weekday, start, end, upd.Active)

	var w domain.WeeklyWindow
	var s, e int
	if err := row.Scan(&w.ID, &w.Weekday, &s, &e, &w.Active, &w.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		// The start_minute < end_minute check fires when a partial update
		// inverts the window against the stored half.
		if isCheckViolation(err) {
			return nil, domain.NewValidationError("start", "start must be before end")
		}
		return nil, err
	}
	w.Start, w.End = domain.TimeOfDay(s), domain.TimeOfDay(e)
	return &w, nil
}

func (r *PGScheduleRepository) DeleteWindow(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM weekly_windows WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGScheduleRepository) ListBlackouts(ctx context.Context) ([]domain.BlackoutDate, error) {
	rows, err := r.db.Query(ctx, `SELECT id, date, COALESCE(reason, ''), created_at FROM blackout_dates ORDER BY date ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	blackouts := make([]domain.BlackoutDate, 0)
	for rows.Next() {
		var b domain.BlackoutDate
		if err := rows.Scan(&b.ID, &b.Date, &b.Reason, &b.CreatedAt); err != nil {
			return nil, err
		}
		blackouts = append(blackouts, b)
	}
	return blackouts, rows.Err()
}

func (r *PGScheduleRepository) BlackoutByDate(ctx context.Context, date time.Time) (*domain.BlackoutDate, error) {
	row := r.db.QueryRow(ctx, `SELECT id, date, COALESCE(reason, ''), created_at FROM blackout_dates WHERE date=$1`, date)
	var b domain.BlackoutDate
	if err := row.Scan(&b.ID, &b.Date, &b.Reason, &b.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &b, nil
}

func (r *PGScheduleRepository) CreateBlackout(ctx context.Context, b *domain.BlackoutDate) error {
	return r.db.QueryRow(ctx, `INSERT INTO blackout_dates (date, reason) VALUES ($1, $2) RETURNING id, created_at`,
		b.Date, b.Reason).Scan(&b.ID, &b.CreatedAt)
}

func (r *PGScheduleRepository) DeleteBlackout(ctx context.Context, id int64) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM blackout_dates WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetPolicy returns the singleton policy row, or the defaults when the row
// has not been created yet.
func (r *PGScheduleRepository) GetPolicy(ctx context.Context) (*domain.SchedulingPolicy, error) {
	row := r.db.QueryRow(ctx, `SELECT business_name, contact_phone, slot_granularity_minutes, min_lead_hours, max_horizon_days, updated_at
		FROM scheduling_policy WHERE id = TRUE`)
	var p domain.SchedulingPolicy
	if err := row.Scan(&p.BusinessName, &p.ContactPhone, &p.SlotGranularityMinutes, &p.MinLeadHours, &p.MaxHorizonDays, &p.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			def := domain.DefaultPolicy()
			return &def, nil
		}
		return nil, err
	}
	return &p, nil
}

func (r *PGScheduleRepository) UpdatePolicy(ctx context.Context, upd domain.SchedulingPolicyUpdate) (*domain.SchedulingPolicy, error) {
	def := domain.DefaultPolicy()
	row := r.db.QueryRow(ctx, `INSERT INTO scheduling_policy (id, business_name, contact_phone, slot_granularity_minutes, min_lead_hours, max_horizon_days)
		VALUES (TRUE, COALESCE($1, ''), COALESCE($2, ''), COALESCE($3, $6), COALESCE($4, $7), COALESCE($5, $8))
		ON CONFLICT (id) DO UPDATE SET
			business_name = COALESCE($1, scheduling_policy.business_name),
			contact_phone = COALESCE($2, scheduling_policy.contact_phone),
			slot_granularity_minutes = COALESCE($3, scheduling_policy.slot_granularity_minutes),
			min_lead_hours = COALESCE($4, scheduling_policy.min_lead_hours),
			max_horizon_days = COALESCE($5, scheduling_policy.max_horizon_days),
			updated_at = now()
		RETURNING business_name, contact_phone, slot_granularity_minutes, min_lead_hours, max_horizon_days, updated_at`,
		upd.BusinessName, upd.ContactPhone, upd.SlotGranularityMinutes, upd.MinLeadHours, upd.MaxHorizonDays,
		def.SlotGranularityMinutes, def.MinLeadHours, def.MaxHorizonDays)

	var p domain.SchedulingPolicy
	if err := row.Scan(&p.BusinessName, &p.ContactPhone, &p.SlotGranularityMinutes, &p.MinLeadHours, &p.MaxHorizonDays, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func isCheckViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23514"
}

var _ ScheduleRepository = (*PGScheduleRepository)(nil)
