package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/ecozelo/agenda/internal/service/booking"
	"github.com/ecozelo/agenda/internal/service/catalog"
	"github.com/shopspring/decimal"
	"github.com/stripe/stripe-go/v79"
	checkoutsession "github.com/stripe/stripe-go/v79/checkout/session"
	"github.com/stripe/stripe-go/v79/webhook"
)

type Config struct {
	SecretKey     string
	WebhookSecret string
	Currency      string
	// SuccessURL and CancelURL are fmt templates receiving the appointment id.
	SuccessURL string
	CancelURL  string
}

type CheckoutSession struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
}

type PaymentUseCase interface {
	StartCheckout(ctx context.Context, appointmentID string) (*CheckoutSession, error)
	Confirm(ctx context.Context, appointmentID, sessionID string) (*domain.Appointment, error)
	HandleWebhook(ctx context.Context, payload []byte, signature string) error
}

// StripeService drives the payment collaborator: it starts checkout sessions
// for pending appointments and transitions them to paid/confirmed on
// completion, via webhook or via the synchronous confirm fallback.
type StripeService struct {
	bookings booking.BookingUseCase
	catalog  catalog.CatalogUseCase
	cfg      Config
}

func NewStripeService(bookings booking.BookingUseCase, services catalog.CatalogUseCase, cfg Config) *StripeService {
	if cfg.Currency == "" {
		cfg.Currency = "brl"
	}
	stripe.Key = cfg.SecretKey
	return &StripeService{bookings: bookings, catalog: services, cfg: cfg}
}

func (s *StripeService) StartCheckout(ctx context.Context, appointmentID string) (*CheckoutSession, error) {
	if s.cfg.SecretKey == "" {
		return nil, errors.New("stripe checkout not configured")
	}

	appt, err := s.bookings.GetAppointment(ctx, appointmentID)
	if err != nil {
		return nil, err
	}
	if appt.PaymentStatus == domain.PaymentStatusPaid {
		return nil, domain.ErrAlreadyPaid
	}

	svc, err := s.catalog.Get(ctx, appt.ServiceID)
	if err != nil {
		return nil, err
	}

	cents := appt.Total.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
	description := fmt.Sprintf("Appointment on %s at %s", domain.FormatDate(appt.Date), appt.Start)

	params := &stripe.CheckoutSessionParams{
		Mode:          stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL:    stripe.String(fmt.Sprintf(s.cfg.SuccessURL, appt.ID)),
		CancelURL:     stripe.String(fmt.Sprintf(s.cfg.CancelURL, appt.ID)),
		CustomerEmail: stripe.String(appt.CustomerEmail),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency: stripe.String(s.cfg.Currency),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name:        stripe.String(svc.Name),
						Description: stripe.String(description),
					},
					UnitAmount: stripe.Int64(cents),
				},
				Quantity: stripe.Int64(1),
			},
		},
		Metadata: map[string]string{
			"appointment_id": appt.ID,
		},
	}

	sess, err := checkoutsession.New(params)
	if err != nil {
		return nil, fmt.Errorf("create checkout session: %w", err)
	}

	return &CheckoutSession{SessionID: sess.ID, URL: sess.URL}, nil
}

// Confirm is the synchronous fallback used when no webhook is configured:
// the success page posts back the session id after redirect.
func (s *StripeService) Confirm(ctx context.Context, appointmentID, sessionID string) (*domain.Appointment, error) {
	return s.bookings.ConfirmPayment(ctx, appointmentID, sessionID)
}

// HandleWebhook verifies the Stripe signature and applies
// checkout.session.completed events. Other event types are acknowledged and
// ignored.
func (s *StripeService) HandleWebhook(ctx context.Context, payload []byte, signature string) error {
	if s.cfg.WebhookSecret == "" {
		return errors.New("stripe webhook not configured")
	}

	event, err := webhook.ConstructEvent(payload, signature, s.cfg.WebhookSecret)
	if err != nil {
		return fmt.Errorf("invalid webhook signature: %w", err)
	}

	if event.Type != "checkout.session.completed" {
		return nil
	}

	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("invalid checkout session payload: %w", err)
	}

	appointmentID := session.Metadata["appointment_id"]
	if appointmentID == "" {
		return nil
	}

	paymentRef := session.ID
	if session.PaymentIntent != nil {
		paymentRef = session.PaymentIntent.ID
	}

	_, err = s.bookings.ConfirmPayment(ctx, appointmentID, paymentRef)
	return err
}

var _ PaymentUseCase = (*StripeService)(nil)
