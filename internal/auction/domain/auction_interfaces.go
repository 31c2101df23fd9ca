package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

type ProductRepository interface {
	Create(ctx context.Context, p *Product) error
	// GetByID returns ErrProductNotFound when no product has id.
	GetByID(ctx context.Context, id uuid.UUID) (*Product, error)
	// GetForUpdate is GetByID that also locks the product until the surrounding
	// transaction ends, serializing bids and closures on it.
	GetForUpdate(ctx context.Context, id uuid.UUID) (*Product, error)
	// Save persists status, closure and updated_at.
	Save(ctx context.Context, p *Product) error
	// ListOpen returns at least every product that can still be open at asOf.
	ListOpen(ctx context.Context, asOf time.Time) ([]*Product, error)
	// ListClosed returns at least every product that can be closed at asOf.
	ListClosed(ctx context.Context, asOf time.Time) ([]*Product, error)
	// ListExpiredUnsettled returns products with no closure record whose deadline is at or before asOf.
	ListExpiredUnsettled(ctx context.Context, asOf time.Time) ([]*Product, error)
}

type BidRepository interface {
	HighestBidFinder
	// Save inserts bid. A concurrent bid with the same price on the same product yields ErrConflict.
	Save(ctx context.Context, bid *Bid) error
	// GetBidsByProductID returns bids in acceptance order.
	GetBidsByProductID(ctx context.Context, productID uuid.UUID) ([]*Bid, error)
}

// Repositories are bound to one transaction.
type Repositories struct {
	Products ProductRepository
	Bids     BidRepository
}

// Transactor runs fn in a single transaction: fn returning an error (or a failed commit)
// rolls back every write made through repos.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
