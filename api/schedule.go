package api

import (
	"net/http"
	"strconv"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/ecozelo/agenda/internal/service/schedule"
	"github.com/gin-gonic/gin"
)

type ScheduleHandler struct {
	service schedule.ScheduleUseCase
}

type createWindowRequest struct {
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
}

type updateWindowRequest struct {
	Weekday *int    `json:"weekday"`
	Start   *string `json:"start"`
	End     *string `json:"end"`
	Active  *bool   `json:"active"`
}

type windowResponse struct {
	ID      int64  `json:"id"`
	Weekday int    `json:"weekday"`
	Start   string `json:"start"`
	End     string `json:"end"`
	Active  bool   `json:"active"`
}

type createBlackoutRequest struct {
	Date   string `json:"date"`
	Reason string `json:"reason"`
}

type blackoutResponse struct {
	ID     int64  `json:"id"`
	Date   string `json:"date"`
	Reason string `json:"reason,omitempty"`
}

type updatePolicyRequest struct {
	BusinessName           *string `json:"business_name"`
	ContactPhone           *string `json:"contact_phone"`
	SlotGranularityMinutes *int    `json:"slot_granularity_minutes"`
	MinLeadHours           *int    `json:"min_lead_hours"`
	MaxHorizonDays         *int    `json:"max_horizon_days"`
}

type policyResponse struct {
	BusinessName           string `json:"business_name"`
	ContactPhone           string `json:"contact_phone"`
	SlotGranularityMinutes int    `json:"slot_granularity_minutes"`
	MinLeadHours           int    `json:"min_lead_hours"`
	MaxHorizonDays         int    `json:"max_horizon_days"`
}

func newWindowResponse(w *domain.WeeklyWindow) windowResponse {
	return windowResponse{
		ID:      w.ID,
		Weekday: w.Weekday,
		Start:   w.Start.String(),
		End:     w.End.String(),
		Active:  w.Active,
	}
}

func newPolicyResponse(p *domain.SchedulingPolicy) policyResponse {
	return policyResponse{
		BusinessName:           p.BusinessName,
		ContactPhone:           p.ContactPhone,
		SlotGranularityMinutes: p.SlotGranularityMinutes,
		MinLeadHours:           p.MinLeadHours,
		MaxHorizonDays:         p.MaxHorizonDays,
	}
}

func NewScheduleHandler(service schedule.ScheduleUseCase) *ScheduleHandler {
	return &ScheduleHandler{service: service}
}

func (h *ScheduleHandler) Register(router *gin.RouterGroup) {
	router.GET("/schedule", h.publicSchedule)
}

func (h *ScheduleHandler) RegisterAdmin(router *gin.RouterGroup) {
	router.GET("/windows", h.listWindows)
	router.POST("/windows", h.createWindow)
	router.PATCH("/windows/:id", h.updateWindow)
	router.DELETE("/windows/:id", h.deleteWindow)

	router.GET("/blackouts", h.listBlackouts)
	router.POST("/blackouts", h.createBlackout)
	router.DELETE("/blackouts/:id", h.deleteBlackout)

	router.GET("/policy", h.getPolicy)
	router.PATCH("/policy", h.updatePolicy)
}

// publicSchedule exposes the operating hours and policy the booking UI needs
// to render its calendar, without requiring admin auth.
func (h *ScheduleHandler) publicSchedule(c *gin.Context) {
	ctx := c.Request.Context()

	windows, err := h.service.ActiveWindows(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	policy, err := h.service.GetPolicy(ctx)
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]windowResponse, 0, len(windows))
	for i := range windows {
		out = append(out, newWindowResponse(&windows[i]))
	}
	c.JSON(http.StatusOK, gin.H{"windows": out, "policy": newPolicyResponse(policy)})
}

func (h *ScheduleHandler) listWindows(c *gin.Context) {
	windows, err := h.service.ListWindows(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]windowResponse, 0, len(windows))
	for i := range windows {
		out = append(out, newWindowResponse(&windows[i]))
	}
	c.JSON(http.StatusOK, out)
}

func (h *ScheduleHandler) createWindow(c *gin.Context) {
	var req createWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start, err := domain.ParseTimeOfDay(req.Start)
	if err != nil {
		respondError(c, domain.NewValidationError("start", err.Error()))
		return
	}
	end, err := domain.ParseTimeOfDay(req.End)
	if err != nil {
		respondError(c, domain.NewValidationError("end", err.Error()))
		return
	}

	w, err := h.service.CreateWindow(c.Request.Context(), req.Weekday, start, end)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, newWindowResponse(w))
}

func (h *ScheduleHandler) updateWindow(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, domain.NewValidationError("id", "invalid id"))
		return
	}

	var req updateWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	upd := domain.WeeklyWindowUpdate{Weekday: req.Weekday, Active: req.Active}
	if req.Start != nil {
		start, err := domain.ParseTimeOfDay(*req.Start)
		if err != nil {
			respondError(c, domain.NewValidationError("start", err.Error()))
			return
		}
		upd.Start = &start
	}
	if req.End != nil {
		end, err := domain.ParseTimeOfDay(*req.End)
		if err != nil {
			respondError(c, domain.NewValidationError("end", err.Error()))
			return
		}
		upd.End = &end
	}

	w, err := h.service.UpdateWindow(c.Request.Context(), id, upd)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newWindowResponse(w))
}

func (h *ScheduleHandler) deleteWindow(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, domain.NewValidationError("id", "invalid id"))
		return
	}
	if err := h.service.DeleteWindow(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *ScheduleHandler) listBlackouts(c *gin.Context) {
	blackouts, err := h.service.ListBlackouts(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}

	out := make([]blackoutResponse, 0, len(blackouts))
	for _, b := range blackouts {
		out = append(out, blackoutResponse{ID: b.ID, Date: domain.FormatDate(b.Date), Reason: b.Reason})
	}
	c.JSON(http.StatusOK, out)
}

func (h *ScheduleHandler) createBlackout(c *gin.Context) {
	var req createBlackoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	date, err := domain.ParseDate(req.Date)
	if err != nil {
		respondError(c, domain.NewValidationError("date", err.Error()))
		return
	}

	b, err := h.service.CreateBlackout(c.Request.Context(), date, req.Reason)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, blackoutResponse{ID: b.ID, Date: domain.FormatDate(b.Date), Reason: b.Reason})
}

func (h *ScheduleHandler) deleteBlackout(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, domain.NewValidationError("id", "invalid id"))
		return
	}
	if err := h.service.DeleteBlackout(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": true})
}

func (h *ScheduleHandler) getPolicy(c *gin.Context) {
	policy, err := h.service.GetPolicy(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPolicyResponse(policy))
}

func (h *ScheduleHandler) updatePolicy(c *gin.Context) {
	var req updatePolicyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	policy, err := h.service.UpdatePolicy(c.Request.Context(), domain.SchedulingPolicyUpdate{
		BusinessName:           req.BusinessName,
		ContactPhone:           req.ContactPhone,
		SlotGranularityMinutes: req.SlotGranularityMinutes,
		MinLeadHours:           req.MinLeadHours,
		MaxHorizonDays:         req.MaxHorizonDays,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newPolicyResponse(policy))
}
