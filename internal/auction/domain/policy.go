package domain

import "time"

// BidPolicy holds the boundary rules for admitting bids.
type BidPolicy struct {
	// AllowBidAtStartingPrice lets the first bid equal the starting price.
	// When false every bid must be strictly greater than the floor.
	AllowBidAtStartingPrice bool
	// DeadlineInclusive keeps the auction open at exactly the deadline.
	// When false the auction closes at the deadline instant.
	DeadlineInclusive bool
}

// DefaultBidPolicy is strict increase with an inclusive deadline.
func DefaultBidPolicy() BidPolicy {
	return BidPolicy{DeadlineInclusive: true}
}

func (p BidPolicy) deadlinePassed(deadline, now time.Time) bool {
	if p.DeadlineInclusive {
		return now.After(deadline)
	}
	return !now.Before(deadline)
}
