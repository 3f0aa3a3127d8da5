package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ecozelo/agenda/config"
	"github.com/ecozelo/agenda/internal/auth"
	"github.com/ecozelo/agenda/internal/bootstrap"
	"github.com/ecozelo/agenda/internal/cache"
	"github.com/ecozelo/agenda/internal/kafka"
	"github.com/ecozelo/agenda/internal/payment"
	"github.com/ecozelo/agenda/internal/repository"
	"github.com/ecozelo/agenda/internal/service/availability"
	"github.com/ecozelo/agenda/internal/service/booking"
	"github.com/ecozelo/agenda/internal/service/catalog"
	"github.com/ecozelo/agenda/internal/service/schedule"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Booking.ServicesCacheTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	serviceRepo := repository.NewServiceRepository(pool)
	scheduleRepo := repository.NewScheduleRepository(pool)
	appointmentRepo := repository.NewAppointmentRepository(pool)

	availabilitySvc := availability.NewService(serviceRepo, scheduleRepo, appointmentRepo)
	catalogSvc := catalog.NewCatalogService(serviceRepo, redisCache)
	scheduleSvc := schedule.NewScheduleService(scheduleRepo)
	bookingSvc := booking.NewBookingService(
		appointmentRepo,
		serviceRepo,
		redisCache,
		producer,
		cfg.Kafka.BookingTopic,
		time.Duration(cfg.Booking.SlotHoldTTLSeconds)*time.Second,
		time.Duration(cfg.Booking.PendingPaymentTTLMinutes)*time.Minute,
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	paymentSvc := payment.NewStripeService(bookingSvc, catalogSvc, payment.Config{
		SecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:      cfg.Stripe.Currency,
		SuccessURL:    cfg.Stripe.SuccessURL,
		CancelURL:     cfg.Stripe.CancelURL,
	})

	sessions := auth.NewManager(redisCache, os.Getenv("ADMIN_PASSWORD"), time.Duration(cfg.Admin.SessionTTLHours)*time.Hour)

	err = bootstrap.Run(ctx, cfg, bootstrap.Services{
		Availability: availabilitySvc,
		Booking:      bookingSvc,
		Catalog:      catalogSvc,
		Schedule:     scheduleSvc,
		Payments:     paymentSvc,
		Sessions:     sessions,
	})
	if err != nil {
		log.Fatalf("server error: %v", err)
	}
}
