package domain

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Floor is the price a new bid must beat.
type Floor struct {
	Price      decimal.Decimal
	HighestBid *Bid // nil when no bid exists yet
}

// CurrentPrice returns the highest bid's price, or the starting price when highest is nil.
func CurrentPrice(p *Product, highest *Bid) decimal.Decimal {
	if highest == nil {
		return p.StartingPrice
	}
	return highest.Price
}

// HighestOf picks the winning bid out of bids (nil when empty).
// Ties on price are broken by earliest creation.
func HighestOf(bids []*Bid) *Bid {
	var best *Bid
	for _, b := range bids {
		if best == nil || b.outranks(best) {
			best = b
		}
	}
	return best
}

// HighestBidFinder fetches the top bid of a product by price, descending. It returns nil, nil
// when the product has no bids.
type HighestBidFinder interface {
	GetHighestBid(ctx context.Context, productID uuid.UUID) (*Bid, error)
}

// PriceResolver derives the current price of a product from its bids.
type PriceResolver struct {
	bids HighestBidFinder
}

func NewPriceResolver(bids HighestBidFinder) PriceResolver {
	return PriceResolver{bids: bids}
}

// Resolve reads the highest bid once, so the result reflects a single consistent observation.
func (r PriceResolver) Resolve(ctx context.Context, p *Product) (Floor, error) {
	highest, err := r.bids.GetHighestBid(ctx, p.ID)
	if err != nil {
		return Floor{}, fmt.Errorf("resolve price for product %s: %w", p.ID, err)
	}
	return Floor{Price: CurrentPrice(p, highest), HighestBid: highest}, nil
}

// CurrentPrice is Resolve without the winning bid.
func (r PriceResolver) CurrentPrice(ctx context.Context, p *Product) (decimal.Decimal, error) {
	f, err := r.Resolve(ctx, p)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return f.Price, nil
}
