package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// BidValidator decides whether a proposed bid may be admitted.
type BidValidator struct {
	policy    BidPolicy
	lifecycle Lifecycle
}

func NewBidValidator(policy BidPolicy) BidValidator {
	return BidValidator{policy: policy, lifecycle: NewLifecycle(policy)}
}

// Validate applies the admission rules in order and returns the first violation:
//  1. the product exists (ErrProductNotFound)
//  2. the price is present and valid (ErrInvalidInput)
//  3. the auction is open at now (ErrAuctionClosed)
//  4. the price beats the floor (ErrBidTooLow)
//
// floor must come from the same observation the bid will be inserted against.
func (v BidValidator) Validate(p *Product, price *decimal.Decimal, floor Floor, now time.Time) error {
	if p == nil {
		return ErrProductNotFound
	}
	if price == nil {
		return fmt.Errorf("%w: bid price is required", ErrInvalidInput)
	}
	if err := ValidatePrice(*price); err != nil {
		return err
	}
	if v.lifecycle.StateAt(p, now) == StateClosed {
		return fmt.Errorf("%w: bidding on product %s ended at %s", ErrAuctionClosed, p.ID, v.endedAt(p, now).Format(time.RFC3339))
	}

	switch {
	case price.GreaterThan(floor.Price):
		return nil
	case floor.HighestBid == nil && v.policy.AllowBidAtStartingPrice && price.Equal(floor.Price):
		return nil
	default:
		return fmt.Errorf("%w: offered %s, current price is %s", ErrBidTooLow, price, floor.Price)
	}
}

func (v BidValidator) endedAt(p *Product, now time.Time) time.Time {
	if c := v.lifecycle.ClosureAt(p, now); c != nil {
		return c.At
	}
	return p.BiddingEndTime
}
