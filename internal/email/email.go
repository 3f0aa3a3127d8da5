package email

import (
	"context"
	"fmt"
	"log"

	"github.com/ecozelo/agenda/config"
	"github.com/ecozelo/agenda/internal/kafka"
	gomail "gopkg.in/gomail.v2"
)

// Sender mails customers about appointment lifecycle events. When no SMTP
// host is configured it logs the message instead, which keeps local runs and
// tests working without a mail server.
type Sender struct {
	cfg config.SMTPConfig
}

func NewSender(cfg config.SMTPConfig) *Sender {
	return &Sender{cfg: cfg}
}

func (s *Sender) Send(ctx context.Context, event kafka.AppointmentEvent) error {
	subject, body := composeMessage(event)

	if s.cfg.Host == "" {
		log.Printf("email (smtp disabled) to=%s subject=%q", event.CustomerEmail, subject)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", s.cfg.From)
	m.SetHeader("To", event.CustomerEmail)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	d := gomail.NewDialer(s.cfg.Host, s.cfg.Port, s.cfg.User, s.cfg.Password)
	return d.DialAndSend(m)
}

func composeMessage(event kafka.AppointmentEvent) (string, string) {
	when := fmt.Sprintf("%s at %s", event.Date, event.Start)

	switch event.Type {
	case "appointment_created":
		return "Appointment received",
			fmt.Sprintf("Hi %s, we received your booking for %s. Complete the payment to confirm it.", event.CustomerName, when)
	case "appointment_confirmed":
		return "Appointment confirmed",
			fmt.Sprintf("Hi %s, your appointment on %s is confirmed. See you there!", event.CustomerName, when)
	case "appointment_cancelled", "appointment_expired":
		return "Appointment cancelled",
			fmt.Sprintf("Hi %s, your appointment on %s has been cancelled.", event.CustomerName, when)
	case "appointment_completed":
		return "Thank you",
			fmt.Sprintf("Hi %s, thanks for choosing us. Your service on %s is complete.", event.CustomerName, when)
	default:
		return "Appointment update",
			fmt.Sprintf("Hi %s, there is an update on your appointment scheduled for %s.", event.CustomerName, when)
	}
}
