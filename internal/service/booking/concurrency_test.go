package booking

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/stretchr/testify/assert"
)

// ledgerRepo is an in-memory AppointmentRepository with the same commit
// semantics as the real one: overlap check and insert under a single lock.
type ledgerRepo struct {
	mu    sync.Mutex
	appts []domain.Appointment
}

func (r *ledgerRepo) CreateIfFree(ctx context.Context, appt *domain.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.appts {
		if existing.Status == domain.AppointmentStatusCancelled {
			continue
		}
		if existing.Date.Equal(appt.Date) && domain.Overlaps(appt.Start, appt.End, existing.Start, existing.End) {
			return domain.ErrSlotTaken
		}
	}
	r.appts = append(r.appts, *appt)
	return nil
}

func (r *ledgerRepo) ListByDate(ctx context.Context, date time.Time) ([]domain.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]domain.Appointment, len(r.appts))
	copy(out, r.appts)
	return out, nil
}

func (r *ledgerRepo) List(ctx context.Context, status string, limit int) ([]domain.Appointment, error) {
	return r.ListByDate(ctx, time.Time{})
}

func (r *ledgerRepo) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	return nil, domain.ErrNotFound
}

func (r *ledgerRepo) UpdateStatus(ctx context.Context, id string, status domain.AppointmentStatus) (*domain.Appointment, error) {
	return nil, domain.ErrNotFound
}

func (r *ledgerRepo) MarkPaid(ctx context.Context, id, paymentRef string) (*domain.Appointment, error) {
	return nil, domain.ErrNotFound
}

func (r *ledgerRepo) CancelUnpaidBefore(ctx context.Context, cutoff time.Time) ([]domain.Appointment, error) {
	return nil, nil
}

func TestBookingService_ConcurrentCreate_OneWinner(t *testing.T) {
	const contenders = 16

	repo := &ledgerRepo{}
	mockSvcs := &MockServiceRepository{}
	service := NewBookingService(repo, mockSvcs, nil, nil, "", 0, 30*time.Minute)

	ctx := context.Background()
	mockSvcs.On("GetByID", ctx, "svc-1").Return(activeService(), nil).Times(contenders)

	var wg sync.WaitGroup
	errs := make([]error, contenders)

	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = service.CreateAppointment(ctx, validInput())
		}(i)
	}
	wg.Wait()

	successes := 0
	for _, err := range errs {
		if err == nil {
			successes++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrSlotTaken)
	}
	assert.Equal(t, 1, successes)
	assert.Len(t, repo.appts, 1)
}

func TestBookingService_ConcurrentCreate_AdjacentSlotsBothWin(t *testing.T) {
	repo := &ledgerRepo{}
	mockSvcs := &MockServiceRepository{}
	service := NewBookingService(repo, mockSvcs, nil, nil, "", 0, 30*time.Minute)

	ctx := context.Background()
	mockSvcs.On("GetByID", ctx, "svc-1").Return(activeService(), nil).Twice()

	first := validInput()
	second := validInput()
	// The service runs 90 minutes; back to back intervals only touch.
	second.Start = first.Start.AddMinutes(90)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, input := range []CreateAppointmentInput{first, second} {
		wg.Add(1)
		go func(i int, input CreateAppointmentInput) {
			defer wg.Done()
			_, errs[i] = service.CreateAppointment(ctx, input)
		}(i, input)
	}
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Len(t, repo.appts, 2)
}
