package api

import (
	"net/http"
	"time"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/ecozelo/agenda/internal/service/availability"
	"github.com/ecozelo/agenda/internal/service/schedule"
	"github.com/gin-gonic/gin"
)

type AvailabilityHandler struct {
	availability availability.AvailabilityUseCase
	schedule     schedule.ScheduleUseCase
	now          func() time.Time
}

func NewAvailabilityHandler(avail availability.AvailabilityUseCase, sched schedule.ScheduleUseCase) *AvailabilityHandler {
	return &AvailabilityHandler{availability: avail, schedule: sched, now: time.Now}
}

func (h *AvailabilityHandler) Register(router *gin.RouterGroup) {
	router.GET("/availability", h.slots)
}

func (h *AvailabilityHandler) slots(c *gin.Context) {
	dateStr := c.Query("date")
	serviceID := c.Query("service_id")
	if dateStr == "" || serviceID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "query parameters 'date' and 'service_id' are required"})
		return
	}

	date, err := domain.ParseDate(dateStr)
	if err != nil {
		respondError(c, domain.NewValidationError("date", err.Error()))
		return
	}

	now := h.now()

	// The horizon is policy semantics enforced at the boundary, not inside
	// the calculator.
	policy, err := h.schedule.GetPolicy(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	horizon := now.AddDate(0, 0, policy.MaxHorizonDays)
	if date.After(horizon) {
		respondError(c, domain.NewValidationError("date", "date is beyond the booking horizon"))
		return
	}

	result, err := h.availability.ComputeSlots(c.Request.Context(), date, serviceID, now)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}
