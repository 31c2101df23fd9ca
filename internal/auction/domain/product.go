package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus is the stored status of a product. It is a cached projection of the
// auction state and may lag behind an expired deadline until something settles it.
type ProductStatus string

const (
	StatusAvailable ProductStatus = "available"
	StatusSold      ProductStatus = "sold"
)

// AuctionState is the authoritative, derived state of bidding on a product.
type AuctionState string

const (
	StateOpen   AuctionState = "open"
	StateClosed AuctionState = "closed"
)

type ClosureReason string

const (
	ReasonDeadlineExpired ClosureReason = "deadline_expired"
	ReasonManuallyClosed  ClosureReason = "manually_closed"
)

// Closure records the Open -> Closed transition. It is written once and never changed.
type Closure struct {
	Reason ClosureReason
	At     time.Time
}

// Prices are stored as NUMERIC(12,2).
const priceScale = 2

// Limits on the decimal representation, checked before Round or Cmp rescale the coefficient.
const (
	maxPriceExponent = 12
	minPriceExponent = -32
	maxPriceBits     = 128
)

var MaxPrice = decimal.RequireFromString("9999999999.99")

type Product struct {
	ID             uuid.UUID
	Name           string
	Description    string
	StartingPrice  decimal.Decimal
	BiddingEndTime time.Time // scheduled deadline, never moved by closure
	OwnerID        uuid.UUID
	Status         ProductStatus
	Closure        *Closure
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// NewProduct validates the listing fields and returns an Available product owned by ownerID.
func NewProduct(id, ownerID uuid.UUID, name, description string, startingPrice *decimal.Decimal, biddingEndTime *time.Time, now time.Time) (*Product, error) {
	name = strings.TrimSpace(name)
	description = strings.TrimSpace(description)
	if name == "" || description == "" {
		return nil, fmt.Errorf("%w: name and description are required", ErrInvalidInput)
	}
	if startingPrice == nil {
		return nil, fmt.Errorf("%w: starting price is required", ErrInvalidInput)
	}
	if err := ValidatePrice(*startingPrice); err != nil {
		return nil, fmt.Errorf("starting price: %w", err)
	}
	if biddingEndTime == nil {
		return nil, fmt.Errorf("%w: bidding end time is required", ErrInvalidInput)
	}
	if !biddingEndTime.After(now) {
		return nil, fmt.Errorf("%w: bidding end time must be in the future", ErrInvalidInput)
	}

	return &Product{
		ID:             id,
		Name:           name,
		Description:    description,
		StartingPrice:  *startingPrice,
		BiddingEndTime: biddingEndTime.UTC(),
		OwnerID:        ownerID,
		Status:         StatusAvailable,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

// ValidatePrice accepts positive amounts with at most two decimal places that fit the store.
func ValidatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return fmt.Errorf("%w: price must be positive", ErrInvalidInput)
	}
	if e := price.Exponent(); e > maxPriceExponent || e < minPriceExponent || price.Coefficient().BitLen() > maxPriceBits {
		return fmt.Errorf("%w: price is out of range", ErrInvalidInput)
	}
	if !price.Equal(price.Round(priceScale)) {
		return fmt.Errorf("%w: price must have at most %d decimal places", ErrInvalidInput, priceScale)
	}
	if price.GreaterThan(MaxPrice) {
		return fmt.Errorf("%w: price exceeds %s", ErrInvalidInput, MaxPrice)
	}
	return nil
}

// EffectiveEndTime is when bidding ended or will end: the closure time once closed,
// otherwise the scheduled deadline.
func (p *Product) EffectiveEndTime() time.Time {
	if p.Closure != nil {
		return p.Closure.At
	}
	return p.BiddingEndTime
}

func (p *Product) close(reason ClosureReason, at, now time.Time) {
	p.Closure = &Closure{Reason: reason, At: at}
	p.Status = StatusSold
	p.UpdatedAt = now
}

// Clone returns a deep copy so stores can hand out products without sharing the closure record.
func (p *Product) Clone() *Product {
	cp := *p
	if p.Closure != nil {
		c := *p.Closure
		cp.Closure = &c
	}
	return &cp
}
