package api

import (
	"io"
	"net/http"

	"github.com/ecozelo/agenda/internal/payment"
	"github.com/gin-gonic/gin"
)

type PaymentHandler struct {
	service payment.PaymentUseCase
}

type confirmPaymentRequest struct {
	SessionID string `json:"session_id"`
}

func NewPaymentHandler(service payment.PaymentUseCase) *PaymentHandler {
	return &PaymentHandler{service: service}
}

func (h *PaymentHandler) Register(router *gin.RouterGroup) {
	router.POST("/appointments/:id/checkout", h.checkout)
	router.POST("/appointments/:id/confirm", h.confirm)
	router.POST("/webhooks/stripe", h.webhook)
}

func (h *PaymentHandler) checkout(c *gin.Context) {
	session, err := h.service.StartCheckout(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, session)
}

// confirm is the post-redirect fallback used when the webhook is not wired:
// the success page posts back the checkout session id.
func (h *PaymentHandler) confirm(c *gin.Context) {
	var req confirmPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	appt, err := h.service.Confirm(c.Request.Context(), c.Param("id"), req.SessionID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, newAppointmentResponse(appt))
}

func (h *PaymentHandler) webhook(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "failed to read body"})
		return
	}

	if err := h.service.HandleWebhook(c.Request.Context(), payload, c.GetHeader("Stripe-Signature")); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "webhook rejected"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}
