package catalog

import (
	"context"
	"strings"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/ecozelo/agenda/internal/repository"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CatalogUseCase interface {
	ListActive(ctx context.Context) ([]domain.ServiceDefinition, error)
	ListAll(ctx context.Context) ([]domain.ServiceDefinition, error)
	Get(ctx context.Context, id string) (*domain.ServiceDefinition, error)
	Create(ctx context.Context, input CreateServiceInput) (*domain.ServiceDefinition, error)
	Update(ctx context.Context, id string, upd domain.ServiceUpdate) (*domain.ServiceDefinition, error)
	// Delete removes a service that has never been booked; a referenced
	// service is deactivated instead so appointment history stays intact.
	// The returned flag reports whether a soft-deactivation happened.
	Delete(ctx context.Context, id string) (bool, error)
}

type Cache interface {
	GetServices(ctx context.Context) ([]domain.ServiceDefinition, error)
	SetServices(ctx context.Context, services []domain.ServiceDefinition) error
	InvalidateServices(ctx context.Context) error
}

type CatalogService struct {
	repo  repository.ServiceRepository
	cache Cache
}

type CreateServiceInput struct {
	Name            string
	Description     string
	Price           decimal.Decimal
	DurationMinutes int
	Image           string
}

func NewCatalogService(repo repository.ServiceRepository, cache Cache) *CatalogService {
	return &CatalogService{repo: repo, cache: cache}
}

// ListActive serves the public catalog, cache-aside with a short TTL.
func (s *CatalogService) ListActive(ctx context.Context) ([]domain.ServiceDefinition, error) {
	if s.cache != nil {
		if cached, err := s.cache.GetServices(ctx); err == nil && cached != nil {
			return cached, nil
		}
	}

	services, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		_ = s.cache.SetServices(ctx, services)
	}
	return services, nil
}

func (s *CatalogService) ListAll(ctx context.Context) ([]domain.ServiceDefinition, error) {
	return s.repo.List(ctx)
}

func (s *CatalogService) Get(ctx context.Context, id string) (*domain.ServiceDefinition, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *CatalogService) Create(ctx context.Context, input CreateServiceInput) (*domain.ServiceDefinition, error) {
	fields := map[string]string{}
	if strings.TrimSpace(input.Name) == "" {
		fields["name"] = "name is required"
	}
	if strings.TrimSpace(input.Description) == "" {
		fields["description"] = "description is required"
	}
	if input.DurationMinutes <= 0 {
		fields["durationMinutes"] = "duration must be positive"
	}
	if input.Price.IsNegative() {
		fields["price"] = "price cannot be negative"
	}
	if len(fields) > 0 {
		return nil, &domain.ValidationError{Fields: fields}
	}

	svc := &domain.ServiceDefinition{
		ID:              uuid.NewString(),
		Name:            input.Name,
		Description:     input.Description,
		Price:           input.Price,
		DurationMinutes: input.DurationMinutes,
		Image:           input.Image,
		Active:          true,
	}
	if err := s.repo.Create(ctx, svc); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return svc, nil
}

func (s *CatalogService) Update(ctx context.Context, id string, upd domain.ServiceUpdate) (*domain.ServiceDefinition, error) {
	if upd.DurationMinutes != nil && *upd.DurationMinutes <= 0 {
		return nil, domain.NewValidationError("durationMinutes", "duration must be positive")
	}
	if upd.Price != nil && upd.Price.IsNegative() {
		return nil, domain.NewValidationError("price", "price cannot be negative")
	}

	svc, err := s.repo.Update(ctx, id, upd)
	if err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	return svc, nil
}

func (s *CatalogService) Delete(ctx context.Context, id string) (bool, error) {
	count, err := s.repo.CountAppointments(ctx, id)
	if err != nil {
		return false, err
	}

	if count > 0 {
		inactive := false
		if _, err := s.repo.Update(ctx, id, domain.ServiceUpdate{Active: &inactive}); err != nil {
			return false, err
		}
		s.invalidate(ctx)
		return true, nil
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return false, err
	}
	s.invalidate(ctx)
	return false, nil
}

func (s *CatalogService) invalidate(ctx context.Context) {
	if s.cache != nil {
		_ = s.cache.InvalidateServices(ctx)
	}
}

var _ CatalogUseCase = (*CatalogService)(nil)
