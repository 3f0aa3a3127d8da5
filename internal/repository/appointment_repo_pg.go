package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type AppointmentRepository interface {
	// CreateIfFree re-checks the overlap condition and inserts the
	// appointment in a single transaction. Returns domain.ErrSlotTaken when
	// another non-cancelled appointment occupies an overlapping interval.
	CreateIfFree(ctx context.Context, appt *domain.Appointment) error
	ListByDate(ctx context.Context, date time.Time) ([]domain.Appointment, error)
	List(ctx context.Context, status string, limit int) ([]domain.Appointment, error)
	GetByID(ctx context.Context, id string) (*domain.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status domain.AppointmentStatus) (*domain.Appointment, error)
	MarkPaid(ctx context.Context, id, paymentRef string) (*domain.Appointment, error)
	CancelUnpaidBefore(ctx context.Context, cutoff time.Time) ([]domain.Appointment, error)
}

type PGAppointmentRepository struct {
	db *pgxpool.Pool
}

func NewAppointmentRepository(db *pgxpool.Pool) AppointmentRepository {
	return &PGAppointmentRepository{db: db}
}

const appointmentColumns = `id, service_id, date, start_minute, end_minute,
	customer_name, customer_email, customer_phone, customer_address, COALESCE(notes, ''),
	status, payment_status, COALESCE(payment_ref, ''), total::text, created_at, updated_at`

func scanAppointment(row pgx.Row) (*domain.Appointment, error) {
	var a domain.Appointment
	var start, end int
	var total string
	if err := row.Scan(&a.ID, &a.ServiceID, &a.Date, &start, &end,
		&a.CustomerName, &a.CustomerEmail, &a.CustomerPhone, &a.CustomerAddress, &a.Notes,
		&a.Status, &a.PaymentStatus, &a.PaymentRef, &total, &a.CreatedAt, &a.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	a.Start, a.End = domain.TimeOfDay(start), domain.TimeOfDay(end)
	t, err := decimal.NewFromString(total)
	if err != nil {
		return nil, err
	}
	a.Total = t
	return &a, nil
}

func (r *PGAppointmentRepository) CreateIfFree(ctx context.Context, appt *domain.Appointment) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Serialize concurrent commits for the same calendar day so the overlap
	// re-check and the insert behave as one atomic unit.
	if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, domain.FormatDate(appt.Date)); err != nil {
		return err
	}

	var conflict bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS (
			SELECT 1 FROM appointments
			WHERE date = $1 AND status <> 'cancelled'
				AND start_minute < $3 AND end_minute > $2
		)`, appt.Date, int(appt.Start), int(appt.End)).Scan(&conflict); err != nil {
		return err
	}
	if conflict {
		return domain.ErrSlotTaken
	}

	if err := tx.QueryRow(ctx, `INSERT INTO appointments
			(id, service_id, date, start_minute, end_minute,
			 customer_name, customer_email, customer_phone, customer_address, notes,
			 status, payment_status, total)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		appt.ID, appt.ServiceID, appt.Date, int(appt.Start), int(appt.End),
		appt.CustomerName, appt.CustomerEmail, appt.CustomerPhone, appt.CustomerAddress, appt.Notes,
		appt.Status, appt.PaymentStatus, appt.Total.String()).
		Scan(&appt.CreatedAt, &appt.UpdatedAt); err != nil {
		if isExclusionViolation(err) {
			return domain.ErrSlotTaken
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGAppointmentRepository) collect(rows pgx.Rows) ([]domain.Appointment, error) {
	defer rows.Close()
	appts := make([]domain.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		appts = append(appts, *a)
	}
	return appts, rows.Err()
}

// ListByDate returns the day's non-cancelled appointments in start order.
func (r *PGAppointmentRepository) ListByDate(ctx context.Context, date time.Time) ([]domain.Appointment, error) {
	rows, err := r.db.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments
		WHERE date=$1 AND status <> 'cancelled' ORDER BY start_minute ASC`, date)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *PGAppointmentRepository) List(ctx context.Context, status string, limit int) ([]domain.Appointment, error) {
	if limit <= 0 {
		limit = 100
	}
	var (
		rows pgx.Rows
		err  error
	)
	if status == "" {
		rows, err = r.db.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments
			ORDER BY date DESC, start_minute ASC LIMIT $1`, limit)
	} else {
		rows, err = r.db.Query(ctx, `SELECT `+appointmentColumns+` FROM appointments
			WHERE status=$1 ORDER BY date DESC, start_minute ASC LIMIT $2`, status, limit)
	}
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

func (r *PGAppointmentRepository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id=$1`, id)
	return scanAppointment(row)
}

func (r *PGAppointmentRepository) UpdateStatus(ctx context.Context, id string, status domain.AppointmentStatus) (*domain.Appointment, error) {
	row := r.db.QueryRow(ctx, `UPDATE appointments SET status=$2, updated_at=now()
		WHERE id=$1 RETURNING `+appointmentColumns, id, status)
	return scanAppointment(row)
}

func (r *PGAppointmentRepository) MarkPaid(ctx context.Context, id, paymentRef string) (*domain.Appointment, error) {
	row := r.db.QueryRow(ctx, `UPDATE appointments SET
			status='confirmed', payment_status='paid', payment_ref=$2, updated_at=now()
		WHERE id=$1 RETURNING `+appointmentColumns, id, paymentRef)
	return scanAppointment(row)
}

func (r *PGAppointmentRepository) CancelUnpaidBefore(ctx context.Context, cutoff time.Time) ([]domain.Appointment, error) {
	rows, err := r.db.Query(ctx, `UPDATE appointments SET status='cancelled', updated_at=now()
		WHERE status='pending' AND payment_status='pending' AND created_at <= $1
		RETURNING `+appointmentColumns, cutoff)
	if err != nil {
		return nil, err
	}
	return r.collect(rows)
}

// isExclusionViolation detects the exclusion constraint backstop on
// (date, [start_minute, end_minute)) for non-cancelled rows.
func isExclusionViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23P01"
}

var _ AppointmentRepository = (*PGAppointmentRepository)(nil)
