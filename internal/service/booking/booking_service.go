package booking

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/ecozelo/agenda/internal/kafka"
	"github.com/ecozelo/agenda/internal/repository"
	"github.com/google/uuid"
)

type BookingUseCase interface {
	CreateAppointment(ctx context.Context, input CreateAppointmentInput) (*domain.Appointment, error)
	GetAppointment(ctx context.Context, id string) (*domain.Appointment, error)
	ListAppointments(ctx context.Context, status string) ([]domain.Appointment, error)
	UpdateStatus(ctx context.Context, id string, status domain.AppointmentStatus) (*domain.Appointment, error)
	ConfirmPayment(ctx context.Context, id, paymentRef string) (*domain.Appointment, error)
	ExpireUnpaidAppointments(ctx context.Context) ([]domain.Appointment, error)
}

type Cache interface {
	AcquireSlotHold(ctx context.Context, date time.Time, start domain.TimeOfDay, ttl time.Duration) (bool, error)
	ReleaseSlotHold(ctx context.Context, date time.Time, start domain.TimeOfDay) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, value interface{}) error
}

type BookingService struct {
	appointments       repository.AppointmentRepository
	services           repository.ServiceRepository
	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string
	holdTTL            time.Duration
	pendingPaymentTTL  time.Duration
}

type CreateAppointmentInput struct {
	ServiceID       string
	Date            time.Time
	Start           domain.TimeOfDay
	CustomerName    string
	CustomerEmail   string
	CustomerPhone   string
	CustomerAddress string
	Notes           string
}

type BookingServiceOption func(*BookingService)

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) {
		s.notificationsTopic = topic
	}
}

func NewBookingService(
	appointments repository.AppointmentRepository,
	services repository.ServiceRepository,
	cache Cache,
	producer Producer,
	bookingTopic string,
	holdTTL, pendingPaymentTTL time.Duration,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		appointments:      appointments,
		services:          services,
		cache:             cache,
		producer:          producer,
		bookingTopic:      bookingTopic,
		holdTTL:           holdTTL,
		pendingPaymentTTL: pendingPaymentTTL,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

var emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

func validateInput(input CreateAppointmentInput) error {
	fields := map[string]string{}
	if strings.TrimSpace(input.ServiceID) == "" {
		fields["serviceId"] = "service is required"
	}
	if input.Date.IsZero() {
		fields["date"] = "date is required"
	}
	if len(strings.TrimSpace(input.CustomerName)) < 2 {
		fields["customerName"] = "name must have at least 2 characters"
	}
	if !emailPattern.MatchString(input.CustomerEmail) {
		fields["customerEmail"] = "invalid email"
	}
	if digits := countDigits(input.CustomerPhone); digits < 10 {
		fields["customerPhone"] = "invalid phone"
	}
	if len(strings.TrimSpace(input.CustomerAddress)) < 5 {
		fields["customerAddress"] = "address is required"
	}
	if len(fields) > 0 {
		return &domain.ValidationError{Fields: fields}
	}
	return nil
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

// CreateAppointment validates the request, re-checks the slot against the
// current ledger and commits the reservation. The availability list shown to
// the customer is advisory; this re-check is authoritative.
func (s *BookingService) CreateAppointment(ctx context.Context, input CreateAppointmentInput) (*domain.Appointment, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}

	svc, err := s.services.GetByID(ctx, input.ServiceID)
	if err != nil {
		return nil, err
	}
	if !svc.Active {
		return nil, fmt.Errorf("service %s: %w", input.ServiceID, domain.ErrNotFound)
	}

	held := false
	if s.cache != nil {
		ok, err := s.cache.AcquireSlotHold(ctx, input.Date, input.Start, s.holdTTL)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, domain.ErrSlotTaken
		}
		held = true
	}

	appt := &domain.Appointment{
		ID:              uuid.NewString(),
		ServiceID:       svc.ID,
		Date:            input.Date,
		Start:           input.Start,
		End:             input.Start.AddMinutes(svc.DurationMinutes),
		CustomerName:    input.CustomerName,
		CustomerEmail:   input.CustomerEmail,
		CustomerPhone:   input.CustomerPhone,
		CustomerAddress: input.CustomerAddress,
		Notes:           input.Notes,
		Status:          domain.AppointmentStatusPending,
		PaymentStatus:   domain.PaymentStatusPending,
		Total:           svc.Price,
	}

	if err := s.appointments.CreateIfFree(ctx, appt); err != nil {
		if held {
			_ = s.cache.ReleaseSlotHold(ctx, input.Date, input.Start)
		}
		return nil, err
	}

	s.publish(ctx, "appointment_created", appt, svc.Name)
	return appt, nil
}

func (s *BookingService) GetAppointment(ctx context.Context, id string) (*domain.Appointment, error) {
	return s.appointments.GetByID(ctx, id)
}

func (s *BookingService) ListAppointments(ctx context.Context, status string) ([]domain.Appointment, error) {
	return s.appointments.List(ctx, status, 0)
}

// UpdateStatus applies an operator-driven status transition, rejecting moves
// out of terminal states.
func (s *BookingService) UpdateStatus(ctx context.Context, id string, status domain.AppointmentStatus) (*domain.Appointment, error) {
	if !status.Valid() {
		return nil, domain.NewValidationError("status", "unknown status")
	}

	current, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}
	if !current.Status.CanTransitionTo(status) {
		return nil, &domain.StateTransitionError{From: current.Status, To: status}
	}

	updated, err := s.appointments.UpdateStatus(ctx, id, status)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "appointment_"+string(status), updated, "")
	return updated, nil
}

// ConfirmPayment marks the appointment paid and confirmed in one update.
// Called by the payment collaborator on checkout completion. The webhook can
// land after an operator already confirmed the appointment, so only terminal
// states reject the payment.
func (s *BookingService) ConfirmPayment(ctx context.Context, id, paymentRef string) (*domain.Appointment, error) {
	current, err := s.appointments.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.PaymentStatus == domain.PaymentStatusPaid {
		return current, nil
	}
	if current.Status == domain.AppointmentStatusCancelled || current.Status == domain.AppointmentStatusCompleted {
		return nil, &domain.StateTransitionError{From: current.Status, To: domain.AppointmentStatusConfirmed}
	}

	updated, err := s.appointments.MarkPaid(ctx, id, paymentRef)
	if err != nil {
		return nil, err
	}
	s.publish(ctx, "appointment_confirmed", updated, "")
	return updated, nil
}

// ExpireUnpaidAppointments cancels pending appointments whose payment never
// arrived within the configured window. Run periodically by the worker.
func (s *BookingService) ExpireUnpaidAppointments(ctx context.Context) ([]domain.Appointment, error) {
	if s.pendingPaymentTTL <= 0 {
		return nil, nil
	}
	cutoff := time.Now().Add(-s.pendingPaymentTTL)
	expired, err := s.appointments.CancelUnpaidBefore(ctx, cutoff)
	if err != nil {
		return nil, err
	}
	for i := range expired {
		s.publish(ctx, "appointment_expired", &expired[i], "")
		if s.cache != nil {
			_ = s.cache.ReleaseSlotHold(ctx, expired[i].Date, expired[i].Start)
		}
	}
	return expired, nil
}

func (s *BookingService) publish(ctx context.Context, eventType string, appt *domain.Appointment, serviceName string) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.AppointmentEvent{
		Type:          eventType,
		AppointmentID: appt.ID,
		ServiceID:     appt.ServiceID,
		ServiceName:   serviceName,
		Date:          domain.FormatDate(appt.Date),
		Start:         appt.Start.String(),
		CustomerName:  appt.CustomerName,
		CustomerEmail: appt.CustomerEmail,
		Status:        string(appt.Status),
		Total:         appt.Total.StringFixed(2),
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, appt.ID, event); err != nil {
		log.Printf("WARNING: failed to publish %s event for appointment %s: %v", eventType, appt.ID, err)
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, appt.ID, event); err != nil {
			log.Printf("WARNING: failed to publish %s notification for appointment %s: %v", eventType, appt.ID, err)
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
