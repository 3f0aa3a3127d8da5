package repository

import (
	"context"
	"errors"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type ServiceRepository interface {
	ListActive(ctx context.Context) ([]domain.ServiceDefinition, error)
	List(ctx context.Context) ([]domain.ServiceDefinition, error)
	GetByID(ctx context.Context, id string) (*domain.ServiceDefinition, error)
	Create(ctx context.Context, svc *domain.ServiceDefinition) error
	Update(ctx context.Context, id string, upd domain.ServiceUpdate) (*domain.ServiceDefinition, error)
	Delete(ctx context.Context, id string) error
	CountAppointments(ctx context.Context, id string) (int, error)
}

type PGServiceRepository struct {
	db *pgxpool.Pool
}

func NewServiceRepository(db *pgxpool.Pool) ServiceRepository {
	return &PGServiceRepository{db: db}
}

const serviceColumns = `id, name, description, price::text, duration_minutes, COALESCE(image, ''), active, created_at, updated_at`

func scanService(row pgx.Row) (*domain.ServiceDefinition, error) {
	var s domain.ServiceDefinition
	var price string
	if err := row.Scan(&s.ID, &s.Name, &s.Description, &price, &s.DurationMinutes, &s.Image, &s.Active, &s.CreatedAt, &s.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	p, err := decimal.NewFromString(price)
	if err != nil {
		return nil, err
	}
	s.Price = p
	return &s, nil
}

func (r *PGServiceRepository) list(ctx context.Context, query string) ([]domain.ServiceDefinition, error) {
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	services := make([]domain.ServiceDefinition, 0)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			return nil, err
		}
		services = append(services, *s)
	}
	return services, rows.Err()
}

func (r *PGServiceRepository) ListActive(ctx context.Context) ([]domain.ServiceDefinition, error) {
	return r.list(ctx, `SELECT `+serviceColumns+` FROM services WHERE active ORDER BY price ASC`)
}

func (r *PGServiceRepository) List(ctx context.Context) ([]domain.ServiceDefinition, error) {
	return r.list(ctx, `SELECT `+serviceColumns+` FROM services ORDER BY created_at ASC`)
}

func (r *PGServiceRepository) GetByID(ctx context.Context, id string) (*domain.ServiceDefinition, error) {
	row := r.db.QueryRow(ctx, `SELECT `+serviceColumns+` FROM services WHERE id=$1`, id)
	return scanService(row)
}

func (r *PGServiceRepository) Create(ctx context.Context, svc *domain.ServiceDefinition) error {
	return r.db.QueryRow(ctx, `INSERT INTO services (id, name, description, price, duration_minutes, image, active)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING created_at, updated_at`,
		svc.ID, svc.Name, svc.Description, svc.Price.String(), svc.DurationMinutes, svc.Image, svc.Active).
		Scan(&svc.CreatedAt, &svc.UpdatedAt)
}

func (r *PGServiceRepository) Update(ctx context.Context, id string, upd domain.ServiceUpdate) (*domain.ServiceDefinition, error) {
	var price *string
	if upd.Price != nil {
		p := upd.Price.String()
		price = &p
	}
	row := r.db.QueryRow(ctx, `UPDATE services SET
			name = COALESCE($2, name),
			description = COALESCE($3, description),
			price = COALESCE($4::numeric, price),
			duration_minutes = COALESCE($5, duration_minutes),
			image = COALESCE($6, image),
			active = COALESCE($7, active),
			updated_at = now()
		WHERE id=$1
		RETURNING `+serviceColumns,
		id, upd.Name, upd.Description, price, upd.DurationMinutes, upd.Image, upd.Active)
	return scanService(row)
}

func (r *PGServiceRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM services WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *PGServiceRepository) CountAppointments(ctx context.Context, id string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM appointments WHERE service_id=$1`, id).Scan(&count)
	return count, err
}

var _ ServiceRepository = (*PGServiceRepository)(nil)
