package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ServiceDefinition struct {
	ID              string
	Name            string
	Description     string
	Price           decimal.Decimal
	DurationMinutes int
	Image           string
	Active          bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ServiceUpdate carries a partial update: a nil field leaves the current value
// unchanged, a non-nil field replaces it.
type ServiceUpdate struct {
	Name            *string
	Description     *string
	Price           *decimal.Decimal
	DurationMinutes *int
	Image           *string
	Active          *bool
}
