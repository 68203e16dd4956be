package catalog

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductSnapshot is the read-only view of a catalog listing consumed by
// the inquiry flow. This service never mutates catalog state.
type ProductSnapshot struct {
	ID         uuid.UUID       `json:"id"`
	ProducerID uuid.UUID       `json:"producer_id"`
	Name       string          `json:"name"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Unit       string          `json:"unit"`
	Stock      int             `json:"stock"`
	Category   string          `json:"category"`
	ImageURL   string          `json:"image_url,omitempty"`
	UpdatedAt  time.Time       `json:"updated_at"`
}
