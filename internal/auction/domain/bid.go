package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is an immutable offer on a product. Once persisted it is never edited or retracted.
type Bid struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	BidderID  uuid.UUID
	Price     decimal.Decimal
	CreatedAt time.Time
}

// NewBid creates a new Bid instance
func NewBid(id, productID, bidderID uuid.UUID, price decimal.Decimal, createdAt time.Time) *Bid {
	return &Bid{
		ID:        id,
		ProductID: productID,
		BidderID:  bidderID,
		Price:     price,
		CreatedAt: createdAt,
	}
}

// outranks reports whether b sorts before other in the winning order:
// higher price first, then earlier creation, then lower ID so the order is total.
func (b *Bid) outranks(other *Bid) bool {
	if c := b.Price.Cmp(other.Price); c != 0 {
		return c > 0
	}
	if !b.CreatedAt.Equal(other.CreatedAt) {
		return b.CreatedAt.Before(other.CreatedAt)
	}
	return b.ID.String() < other.ID.String()
}
