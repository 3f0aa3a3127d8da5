package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecozelo/agenda/config"
	"github.com/ecozelo/agenda/internal/cache"
	"github.com/ecozelo/agenda/internal/email"
	"github.com/ecozelo/agenda/internal/kafka"
	"github.com/ecozelo/agenda/internal/repository"
	"github.com/ecozelo/agenda/internal/service/booking"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	kafkaGo "github.com/segmentio/kafka-go"
)

type notifier interface {
	Send(ctx context.Context, event kafka.AppointmentEvent) error
}

// notificationHandler decodes appointment events and emails the customer.
// Bad payloads and transient SMTP failures are logged without stopping the
// consume loop; the sweep and later events must keep running.
func notificationHandler(sender notifier) func(context.Context, kafkaGo.Message) error {
	return func(ctx context.Context, msg kafkaGo.Message) error {
		var event kafka.AppointmentEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("decode event error: %v", err)
			return nil
		}
		if err := sender.Send(ctx, event); err != nil {
			log.Printf("send notification for appointment %s: %v", event.AppointmentID, err)
		}
		return nil
	}
}

func main() {
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()
	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.ServicesCacheTTLSeconds)*time.Second)

	serviceRepo := repository.NewServiceRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)
	bookingService := booking.NewBookingService(
		appointmentRepo,
		serviceRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.SlotHoldTTLSeconds)*time.Second,
		time.Duration(cfg.Booking.PendingPaymentTTLMinutes)*time.Minute,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	emailSender := email.NewSender(cfg.SMTP)

	go func() {
		if err := consumer.Consume(ctx, notificationHandler(emailSender)); err != nil {
			log.Printf("consumer stopped: %v", err)
		}
	}()

	sweepEvery := time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute
	if sweepEvery <= 0 {
		sweepEvery = 5 * time.Minute
	}
	expireTicker := time.NewTicker(sweepEvery)
	defer expireTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-expireTicker.C:
			expired, err := bookingService.ExpireUnpaidAppointments(ctx)
			if err != nil {
				log.Printf("expire appointments error: %v", err)
				continue
			}
			if len(expired) > 0 {
				log.Printf("cancelled %d unpaid appointments", len(expired))
			}
		case s := <-sig:
			log.Printf("received signal %v, shutting down", s)
			return
		}
	}
}
