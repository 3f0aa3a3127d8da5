package api

import (
	"net/http"
	"time"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/ecozelo/agenda/internal/service/booking"
	"github.com/ecozelo/agenda/internal/service/schedule"
	"github.com/gin-gonic/gin"
)

type AppointmentHandler struct {
	service  booking.BookingUseCase
	schedule schedule.ScheduleUseCase
	now      func() time.Time
}

type createAppointmentRequest struct {
	ServiceID       string `json:"service_id"`
	Date            string `json:"date"`
	Start           string `json:"start"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerAddress string `json:"customer_address"`
	Notes           string `json:"notes"`
}

type updateAppointmentRequest struct {
	Status *string `json:"status"`
}

type appointmentResponse struct {
	ID              string `json:"id"`
	ServiceID       string `json:"service_id"`
	Date            string `json:"date"`
	Start           string `json:"start"`
	End             string `json:"end"`
	CustomerName    string `json:"customer_name"`
	CustomerEmail   string `json:"customer_email"`
	CustomerPhone   string `json:"customer_phone"`
	CustomerAddress string `json:"customer_address"`
	Notes           string `json:"notes,omitempty"`
	Status          string `json:"status"`
	PaymentStatus   string `json:"payment_status"`
	Total           string `json:"total"`
	CreatedAt       string `json:"created_at"`
}

func newAppointmentResponse(a *domain.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:              a.ID,
		ServiceID:       a.ServiceID,
		Date:            domain.FormatDate(a.Date),
		Start:           a.Start.String(),
		End:             a.End.String(),
		CustomerName:    a.CustomerName,
		CustomerEmail:   a.CustomerEmail,
		CustomerPhone:   a.CustomerPhone,
		CustomerAddress: a.CustomerAddress,
		Notes:           a.Notes,
		Status:          string(a.Status),
		PaymentStatus:   string(a.PaymentStatus),
		Total:           a.Total.StringFixed(2),
		CreatedAt:       a.CreatedAt.Format(time.RFC3339),
	}
}

func NewAppointmentHandler(service booking.BookingUseCase, sched schedule.ScheduleUseCase) *AppointmentHandler {
	return &AppointmentHandler{service: service, schedule: sched, now: time.Now}
}

func (h *AppointmentHandler) Register(router *gin.RouterGroup) {
	router.POST("/appointments", h.create)
	router.GET("/appointments/:id", h.get)
}

func (h *AppointmentHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.GET("/appointments", h.list)
	router.PATCH("/appointments/:id", h.update)
}

func (h *AppointmentHandler) create(c *gin.Context) {
	var req createAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		respondError(c, domain.NewValidationError("date", err.Error()))
		return
	}
	start, err := domain.ParseTimeOfDay(req.Start)
	if err != nil {
		respondError(c, domain.NewValidationError("start", err.Error()))
		return
	}

	policy, err := h.schedule.GetPolicy(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	if date.After(h.now().AddDate(0, 0, policy.MaxHorizonDays)) {
		respondError(c, domain.NewValidationError("date", "date is beyond the booking horizon"))
		return
	}

	appt, err := h.service.CreateAppointment(c.Request.Context(), booking.CreateAppointmentInput{
		ServiceID:       req.ServiceID,
		Date:            date,
		Start:           start,
		CustomerName:    req.CustomerName,
		CustomerEmail:   req.CustomerEmail,
		CustomerPhone:   req.CustomerPhone,
		CustomerAddress: req.CustomerAddress,
		Notes:           req.Notes,
	})
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, newAppointmentResponse(appt))
}

func (h *AppointmentHandler) get(c *gin.Context) {
	appt, err := h.service.GetAppointment(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAppointmentResponse(appt))
}

func (h *AppointmentHandler) list(c *gin.Context) {
	appts, err := h.service.ListAppointments(c.Request.Context(), c.Query("status"))
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]appointmentResponse, 0, len(appts))
	for i := range appts {
		out = append(out, newAppointmentResponse(&appts[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *AppointmentHandler) update(c *gin.Context) {
	var req updateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Status == nil {
		respondError(c, domain.NewValidationError("status", "status is required"))
		return
	}

	appt, err := h.service.UpdateStatus(c.Request.Context(), c.Param("id"), domain.AppointmentStatus(*req.Status))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAppointmentResponse(appt))
}
