package api

import (
	"errors"
	"log"
	"net/http"

	"github.com/ecozelo/agenda/internal/domain"
	"github.com/gin-gonic/gin"
)

// respondError maps domain errors onto HTTP statuses: validation problems
// carry field detail for the form, conflicts tell the client to re-fetch
// availability, and anything unexpected is logged and reported generically.
func respondError(c *gin.Context, err error) {
	var ve *domain.ValidationError
	var se *domain.StateTransitionError

	switch {
	case errors.As(err, &ve):
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid input", "fields": ve.Fields})
	case errors.As(err, &se):
		c.JSON(http.StatusConflict, gin.H{"error": se.Error()})
	case domain.IsConflict(err):
		c.JSON(http.StatusConflict, gin.H{"error": "this slot is no longer available, please pick another"})
	case errors.Is(err, domain.ErrAlreadyPaid):
		c.JSON(http.StatusConflict, gin.H{"error": "appointment already paid"})
	case domain.IsNotFound(err):
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	default:
		log.Printf("internal error: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}
