package bootstrap

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/ecozelo/agenda/api"
	"github.com/ecozelo/agenda/config"
	"github.com/ecozelo/agenda/internal/auth"
	"github.com/ecozelo/agenda/internal/payment"
	"github.com/ecozelo/agenda/internal/service/availability"
	"github.com/ecozelo/agenda/internal/service/booking"
	"github.com/ecozelo/agenda/internal/service/catalog"
	"github.com/ecozelo/agenda/internal/service/schedule"
	"github.com/gin-gonic/gin"
)

type Services struct {
	Availability availability.AvailabilityUseCase
	Booking      booking.BookingUseCase
	Catalog      catalog.CatalogUseCase
	Schedule     schedule.ScheduleUseCase
	Payments     payment.PaymentUseCase
	Sessions     *auth.Manager
}

// Run starts the HTTP server and blocks until the context is canceled or the
// server fails.
func Run(ctx context.Context, cfg *config.Config, svcs Services) error {
	srv := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: NewRouter(svcs),
	}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		return nil
	}
}

func NewRouter(svcs Services) *gin.Engine {
	router := gin.Default()

	availabilityHandler := api.NewAvailabilityHandler(svcs.Availability, svcs.Schedule)
	appointmentHandler := api.NewAppointmentHandler(svcs.Booking, svcs.Schedule)
	serviceHandler := api.NewServiceHandler(svcs.Catalog)
	scheduleHandler := api.NewScheduleHandler(svcs.Schedule)
	authHandler := api.NewAuthHandler(svcs.Sessions)

	public := router.Group("/api")
	availabilityHandler.Register(public)
	appointmentHandler.Register(public)
	serviceHandler.Register(public)
	scheduleHandler.Register(public)
	authHandler.Register(public)
	if svcs.Payments != nil {
		api.NewPaymentHandler(svcs.Payments).Register(public)
	}

	admin := router.Group("/api/admin", api.RequireAdmin(svcs.Sessions))
	appointmentHandler.RegisterAdmin(admin)
	serviceHandler.RegisterAdmin(admin)
	scheduleHandler.RegisterAdmin(admin)

	return router
}
