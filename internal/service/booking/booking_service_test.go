package booking

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockAppointmentRepository struct {
	mock.Mock
}

func (m *MockAppointmentRepository) CreateIfFree(ctx context.Context, appt *domain.Appointment) error {
	args := m.Called(ctx, appt)
	return args.Error(0)
}

func (m *MockAppointmentRepository) ListByDate(ctx context.Context, date time.Time) ([]domain.Appointment, error) {
	args := m.Called(ctx, date)
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) List(ctx context.Context, status string, limit int) ([]domain.Appointment, error) {
	args := m.Called(ctx, status, limit)
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) GetByID(ctx context.Context, id string) (*domain.Appointment, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) UpdateStatus(ctx context.Context, id string, status domain.AppointmentStatus) (*domain.Appointment, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) MarkPaid(ctx context.Context, id, paymentRef string) (*domain.Appointment, error) {
	args := m.Called(ctx, id, paymentRef)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Appointment), args.Error(1)
}

func (m *MockAppointmentRepository) CancelUnpaidBefore(ctx context.Context, cutoff time.Time) ([]domain.Appointment, error) {
	args := m.Called(ctx, cutoff)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Appointment), args.Error(1)
}

type MockServiceRepository struct {
	mock.Mock
}

func (m *MockServiceRepository) ListActive(ctx context.Context) ([]domain.ServiceDefinition, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.ServiceDefinition), args.Error(1)
}

func (m *MockServiceRepository) List(ctx context.Context) ([]domain.ServiceDefinition, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.ServiceDefinition), args.Error(1)
}

func (m *MockServiceRepository) GetByID(ctx context.Context, id string) (*domain.ServiceDefinition, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceDefinition), args.Error(1)
}

func (m *MockServiceRepository) Create(ctx context.Context, svc *domain.ServiceDefinition) error {
	args := m.Called(ctx, svc)
	return args.Error(0)
}

func (m *MockServiceRepository) Update(ctx context.Context, id string, upd domain.ServiceUpdate) (*domain.ServiceDefinition, error) {
	args := m.Called(ctx, id, upd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ServiceDefinition), args.Error(1)
}

func (m *MockServiceRepository) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockServiceRepository) CountAppointments(ctx context.Context, id string) (int, error) {
	args := m.Called(ctx, id)
	return args.Int(0), args.Error(1)
}

type MockCache struct {
	mock.Mock
}

func (m *MockCache) AcquireSlotHold(ctx context.Context, date time.Time, start domain.TimeOfDay, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, date, start, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockCache) ReleaseSlotHold(ctx context.Context, date time.Time, start domain.TimeOfDay) error {
	args := m.Called(ctx, date, start)
	return args.Error(0)
}

type MockProducer struct {
	mock.Mock
}

func (m *MockProducer) Publish(ctx context.Context, topic, key string, value interface{}) error {
	args := m.Called(ctx, topic, key, value)
	return args.Error(0)
}

var bookingDay = time.Date(2025, 6, 10, 0, 0, 0, 0, time.Local)

func validInput() CreateAppointmentInput {
	return CreateAppointmentInput{
		ServiceID:       "svc-1",
		Date:            bookingDay,
		Start:           domain.TimeOfDay(600), // 10:00
		CustomerName:    "Maria Silva",
		CustomerEmail:   "maria@example.com",
		CustomerPhone:   "+55 11 91234-5678",
		CustomerAddress: "Rua das Flores, 123",
	}
}

func activeService() *domain.ServiceDefinition {
	return &domain.ServiceDefinition{
		ID:              "svc-1",
		Name:            "Deep clean",
		Price:           decimal.NewFromInt(150),
		DurationMinutes: 90,
		Active:          true,
	}
}

func newTestBookingService(appts *MockAppointmentRepository, svcs *MockServiceRepository, cache *MockCache, producer *MockProducer) *BookingService {
	return &BookingService{
		appointments:      appts,
		services:          svcs,
		cache:             cache,
		producer:          producer,
		bookingTopic:      "appointment-events",
		holdTTL:           2 * time.Minute,
		pendingPaymentTTL: 30 * time.Minute,
	}
}

func TestBookingService_CreateAppointment_Success(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	mockSvcs := &MockServiceRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}
	service := newTestBookingService(mockAppts, mockSvcs, mockCache, mockProducer)

	ctx := context.Background()
	input := validInput()

	mockSvcs.On("GetByID", ctx, "svc-1").Return(activeService(), nil).Once()
	mockCache.On("AcquireSlotHold", ctx, bookingDay, input.Start, 2*time.Minute).Return(true, nil).Once()
	mockAppts.On("CreateIfFree", ctx, mock.AnythingOfType("*domain.Appointment")).Return(nil).Once()
	mockProducer.On("Publish", ctx, "appointment-events", mock.Anything, mock.Anything).Return(nil).Once()

	appt, err := service.CreateAppointment(ctx, input)

	assert.NoError(t, err)
	assert.NotNil(t, appt)
	assert.NotEmpty(t, appt.ID)
	assert.Equal(t, domain.AppointmentStatusPending, appt.Status)
	assert.Equal(t, domain.PaymentStatusPending, appt.PaymentStatus)
	assert.Equal(t, domain.TimeOfDay(600), appt.Start)
	// End and price are frozen from the service definition at creation.
	assert.Equal(t, domain.TimeOfDay(690), appt.End)
	assert.True(t, appt.Total.Equal(decimal.NewFromInt(150)))

	mockSvcs.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockAppts.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_CreateAppointment_ValidationErrors(t *testing.T) {
	service := &BookingService{}
	ctx := context.Background()

	testCases := []struct {
		name          string
		mutate        func(*CreateAppointmentInput)
		expectedField string
	}{
		{
			name:          "missing service",
			mutate:        func(in *CreateAppointmentInput) { in.ServiceID = "  " },
			expectedField: "serviceId",
		},
		{
			name:          "missing date",
			mutate:        func(in *CreateAppointmentInput) { in.Date = time.Time{} },
			expectedField: "date",
		},
		{
			name:          "short name",
			mutate:        func(in *CreateAppointmentInput) { in.CustomerName = "M" },
			expectedField: "customerName",
		},
		{
			name:          "bad email",
			mutate:        func(in *CreateAppointmentInput) { in.CustomerEmail = "not-an-email" },
			expectedField: "customerEmail",
		},
		{
			name:          "short phone",
			mutate:        func(in *CreateAppointmentInput) { in.CustomerPhone = "12345" },
			expectedField: "customerPhone",
		},
		{
			name:          "short address",
			mutate:        func(in *CreateAppointmentInput) { in.CustomerAddress = "abc" },
			expectedField: "customerAddress",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			input := validInput()
			tc.mutate(&input)

			appt, err := service.CreateAppointment(ctx, input)

			assert.Error(t, err)
			assert.Nil(t, appt)
			var ve *domain.ValidationError
			assert.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tc.expectedField)
		})
	}
}

func TestBookingService_CreateAppointment_SlotHeld(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	mockSvcs := &MockServiceRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}
	service := newTestBookingService(mockAppts, mockSvcs, mockCache, mockProducer)

	ctx := context.Background()
	input := validInput()

	mockSvcs.On("GetByID", ctx, "svc-1").Return(activeService(), nil).Once()
	mockCache.On("AcquireSlotHold", ctx, bookingDay, input.Start, 2*time.Minute).Return(false, nil).Once()

	appt, err := service.CreateAppointment(ctx, input)

	assert.Nil(t, appt)
	assert.ErrorIs(t, err, domain.ErrSlotTaken)
	mockAppts.AssertNotCalled(t, "CreateIfFree")
}

func TestBookingService_CreateAppointment_SlotTakenAtCommit(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	mockSvcs := &MockServiceRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}
	service := newTestBookingService(mockAppts, mockSvcs, mockCache, mockProducer)

	ctx := context.Background()
	input := validInput()

	mockSvcs.On("GetByID", ctx, "svc-1").Return(activeService(), nil).Once()
	mockCache.On("AcquireSlotHold", ctx, bookingDay, input.Start, 2*time.Minute).Return(true, nil).Once()
	mockAppts.On("CreateIfFree", ctx, mock.Anything).Return(domain.ErrSlotTaken).Once()
	// The hold is released so the slot is retryable once the winner is visible.
	mockCache.On("ReleaseSlotHold", ctx, bookingDay, input.Start).Return(nil).Once()

	appt, err := service.CreateAppointment(ctx, input)

	assert.Nil(t, appt)
	assert.ErrorIs(t, err, domain.ErrSlotTaken)
	mockCache.AssertExpectations(t)
	mockProducer.AssertNotCalled(t, "Publish")
}

func TestBookingService_CreateAppointment_InactiveService(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	mockSvcs := &MockServiceRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}
	service := newTestBookingService(mockAppts, mockSvcs, mockCache, mockProducer)

	ctx := context.Background()
	inactive := activeService()
	inactive.Active = false
	mockSvcs.On("GetByID", ctx, "svc-1").Return(inactive, nil).Once()

	appt, err := service.CreateAppointment(ctx, validInput())

	assert.Nil(t, appt)
	assert.True(t, domain.IsNotFound(err))
	mockCache.AssertNotCalled(t, "AcquireSlotHold")
}

func TestBookingService_CreateAppointment_NoCache(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	mockSvcs := &MockServiceRepository{}
	mockProducer := &MockProducer{}
	service := newTestBookingService(mockAppts, mockSvcs, nil, mockProducer)
	service.cache = nil

	ctx := context.Background()

	mockSvcs.On("GetByID", ctx, "svc-1").Return(activeService(), nil).Once()
	mockAppts.On("CreateIfFree", ctx, mock.Anything).Return(nil).Once()
	mockProducer.On("Publish", ctx, "appointment-events", mock.Anything, mock.Anything).Return(nil).Once()

	appt, err := service.CreateAppointment(ctx, validInput())

	assert.NoError(t, err)
	assert.NotNil(t, appt)
	mockAppts.AssertExpectations(t)
}

func TestBookingService_UpdateStatus_Confirm(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	mockSvcs := &MockServiceRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}
	service := newTestBookingService(mockAppts, mockSvcs, mockCache, mockProducer)

	ctx := context.Background()
	current := &domain.Appointment{ID: "ap-1", Status: domain.AppointmentStatusPending}
	updated := &domain.Appointment{ID: "ap-1", Status: domain.AppointmentStatusConfirmed}

	mockAppts.On("GetByID", ctx, "ap-1").Return(current, nil).Once()
	mockAppts.On("UpdateStatus", ctx, "ap-1", domain.AppointmentStatusConfirmed).Return(updated, nil).Once()
	mockProducer.On("Publish", ctx, "appointment-events", "ap-1", mock.Anything).Return(nil).Once()

	got, err := service.UpdateStatus(ctx, "ap-1", domain.AppointmentStatusConfirmed)

	assert.NoError(t, err)
	assert.Equal(t, domain.AppointmentStatusConfirmed, got.Status)
	mockAppts.AssertExpectations(t)
}

func TestBookingService_UpdateStatus_SameStatusNoOp(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	service := newTestBookingService(mockAppts, &MockServiceRepository{}, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	current := &domain.Appointment{ID: "ap-1", Status: domain.AppointmentStatusConfirmed}
	mockAppts.On("GetByID", ctx, "ap-1").Return(current, nil).Once()

	got, err := service.UpdateStatus(ctx, "ap-1", domain.AppointmentStatusConfirmed)

	assert.NoError(t, err)
	assert.Equal(t, current, got)
	mockAppts.AssertNotCalled(t, "UpdateStatus")
}

func TestBookingService_UpdateStatus_TerminalRejected(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	service := newTestBookingService(mockAppts, &MockServiceRepository{}, &MockCache{}, &MockProducer{})

	ctx := context.Background()

	testCases := []struct {
		from domain.AppointmentStatus
		to   domain.AppointmentStatus
	}{
		{domain.AppointmentStatusCancelled, domain.AppointmentStatusConfirmed},
		{domain.AppointmentStatusCompleted, domain.AppointmentStatusCancelled},
		{domain.AppointmentStatusPending, domain.AppointmentStatusCompleted},
	}

	for _, tc := range testCases {
		t.Run(string(tc.from)+"_to_"+string(tc.to), func(t *testing.T) {
			mockAppts.On("GetByID", ctx, "ap-1").Return(&domain.Appointment{ID: "ap-1", Status: tc.from}, nil).Once()

			got, err := service.UpdateStatus(ctx, "ap-1", tc.to)

			assert.Nil(t, got)
			var se *domain.StateTransitionError
			assert.ErrorAs(t, err, &se)
			assert.Equal(t, tc.from, se.From)
			assert.Equal(t, tc.to, se.To)
		})
	}
	mockAppts.AssertNotCalled(t, "UpdateStatus")
}

func TestBookingService_UpdateStatus_UnknownStatus(t *testing.T) {
	service := newTestBookingService(&MockAppointmentRepository{}, &MockServiceRepository{}, &MockCache{}, &MockProducer{})

	got, err := service.UpdateStatus(context.Background(), "ap-1", "archived")

	assert.Nil(t, got)
	assert.True(t, domain.IsValidation(err))
}

func TestBookingService_UpdateStatus_NotFound(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	service := newTestBookingService(mockAppts, &MockServiceRepository{}, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	mockAppts.On("GetByID", ctx, "missing").Return(nil, domain.ErrNotFound).Once()

	got, err := service.UpdateStatus(ctx, "missing", domain.AppointmentStatusConfirmed)

	assert.Nil(t, got)
	assert.True(t, domain.IsNotFound(err))
}

func TestBookingService_ConfirmPayment_Success(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	mockProducer := &MockProducer{}
	service := newTestBookingService(mockAppts, &MockServiceRepository{}, &MockCache{}, mockProducer)

	ctx := context.Background()
	current := &domain.Appointment{ID: "ap-1", Status: domain.AppointmentStatusPending, PaymentStatus: domain.PaymentStatusPending}
	paid := &domain.Appointment{ID: "ap-1", Status: domain.AppointmentStatusConfirmed, PaymentStatus: domain.PaymentStatusPaid, PaymentRef: "pi_123"}

	mockAppts.On("GetByID", ctx, "ap-1").Return(current, nil).Once()
	mockAppts.On("MarkPaid", ctx, "ap-1", "pi_123").Return(paid, nil).Once()
	mockProducer.On("Publish", ctx, "appointment-events", "ap-1", mock.Anything).Return(nil).Once()

	got, err := service.ConfirmPayment(ctx, "ap-1", "pi_123")

	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, got.PaymentStatus)
	assert.Equal(t, domain.AppointmentStatusConfirmed, got.Status)
	mockAppts.AssertExpectations(t)
}

func TestBookingService_ConfirmPayment_AlreadyConfirmed(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	mockProducer := &MockProducer{}
	service := newTestBookingService(mockAppts, &MockServiceRepository{}, &MockCache{}, mockProducer)

	ctx := context.Background()
	// Operator confirmed before the webhook landed; the payment must still
	// be recorded.
	current := &domain.Appointment{ID: "ap-1", Status: domain.AppointmentStatusConfirmed, PaymentStatus: domain.PaymentStatusPending}
	paid := &domain.Appointment{ID: "ap-1", Status: domain.AppointmentStatusConfirmed, PaymentStatus: domain.PaymentStatusPaid, PaymentRef: "pi_123"}

	mockAppts.On("GetByID", ctx, "ap-1").Return(current, nil).Once()
	mockAppts.On("MarkPaid", ctx, "ap-1", "pi_123").Return(paid, nil).Once()
	mockProducer.On("Publish", ctx, "appointment-events", "ap-1", mock.Anything).Return(nil).Once()

	got, err := service.ConfirmPayment(ctx, "ap-1", "pi_123")

	assert.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPaid, got.PaymentStatus)
	mockAppts.AssertExpectations(t)
}

func TestBookingService_ConfirmPayment_AlreadyPaidIdempotent(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	service := newTestBookingService(mockAppts, &MockServiceRepository{}, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	current := &domain.Appointment{ID: "ap-1", Status: domain.AppointmentStatusConfirmed, PaymentStatus: domain.PaymentStatusPaid}
	mockAppts.On("GetByID", ctx, "ap-1").Return(current, nil).Once()

	got, err := service.ConfirmPayment(ctx, "ap-1", "pi_456")

	assert.NoError(t, err)
	assert.Equal(t, current, got)
	mockAppts.AssertNotCalled(t, "MarkPaid")
}

func TestBookingService_ConfirmPayment_CancelledRejected(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	service := newTestBookingService(mockAppts, &MockServiceRepository{}, &MockCache{}, &MockProducer{})

	ctx := context.Background()
	current := &domain.Appointment{ID: "ap-1", Status: domain.AppointmentStatusCancelled, PaymentStatus: domain.PaymentStatusPending}
	mockAppts.On("GetByID", ctx, "ap-1").Return(current, nil).Once()

	got, err := service.ConfirmPayment(ctx, "ap-1", "pi_789")

	assert.Nil(t, got)
	var se *domain.StateTransitionError
	assert.ErrorAs(t, err, &se)
	mockAppts.AssertNotCalled(t, "MarkPaid")
}

func TestBookingService_ExpireUnpaidAppointments(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}
	service := newTestBookingService(mockAppts, &MockServiceRepository{}, mockCache, mockProducer)

	ctx := context.Background()
	expired := []domain.Appointment{
		{ID: "ap-1", Date: bookingDay, Start: domain.TimeOfDay(600), Status: domain.AppointmentStatusCancelled},
		{ID: "ap-2", Date: bookingDay, Start: domain.TimeOfDay(840), Status: domain.AppointmentStatusCancelled},
	}

	mockAppts.On("CancelUnpaidBefore", ctx, mock.AnythingOfType("time.Time")).Return(expired, nil).Once()
	mockCache.On("ReleaseSlotHold", ctx, bookingDay, domain.TimeOfDay(600)).Return(nil).Once()
	mockCache.On("ReleaseSlotHold", ctx, bookingDay, domain.TimeOfDay(840)).Return(nil).Once()
	mockProducer.On("Publish", ctx, "appointment-events", "ap-1", mock.Anything).Return(nil).Once()
	mockProducer.On("Publish", ctx, "appointment-events", "ap-2", mock.Anything).Return(nil).Once()

	got, err := service.ExpireUnpaidAppointments(ctx)

	assert.NoError(t, err)
	assert.Equal(t, expired, got)
	mockAppts.AssertExpectations(t)
	mockCache.AssertExpectations(t)
	mockProducer.AssertExpectations(t)
}

func TestBookingService_ExpireUnpaidAppointments_Disabled(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	service := newTestBookingService(mockAppts, &MockServiceRepository{}, &MockCache{}, &MockProducer{})
	service.pendingPaymentTTL = 0

	got, err := service.ExpireUnpaidAppointments(context.Background())

	assert.NoError(t, err)
	assert.Nil(t, got)
	mockAppts.AssertNotCalled(t, "CancelUnpaidBefore")
}

func TestBookingService_Publish_ErrorsDoNotFail(t *testing.T) {
	mockAppts := &MockAppointmentRepository{}
	mockSvcs := &MockServiceRepository{}
	mockCache := &MockCache{}
	mockProducer := &MockProducer{}
	service := newTestBookingService(mockAppts, mockSvcs, mockCache, mockProducer)

	ctx := context.Background()
	input := validInput()

	mockSvcs.On("GetByID", ctx, "svc-1").Return(activeService(), nil).Once()
	mockCache.On("AcquireSlotHold", ctx, bookingDay, input.Start, 2*time.Minute).Return(true, nil).Once()
	mockAppts.On("CreateIfFree", ctx, mock.Anything).Return(nil).Once()
	mockProducer.On("Publish", ctx, "appointment-events", mock.Anything, mock.Anything).Return(errors.New("broker down")).Once()

	appt, err := service.CreateAppointment(ctx, input)

	// The appointment is committed; event delivery is best effort.
	assert.NoError(t, err)
	assert.NotNil(t, appt)
}
