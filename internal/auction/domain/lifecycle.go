package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Lifecycle derives auction state from a product and applies the Open -> Closed transition.
// Closed is terminal.
type Lifecycle struct {
	policy BidPolicy
}

func NewLifecycle(policy BidPolicy) Lifecycle {
	return Lifecycle{policy: policy}
}

// StateAt is the state at now, whatever the stored status says.
func (l Lifecycle) StateAt(p *Product, now time.Time) AuctionState {
	if p.Closure != nil || l.policy.deadlinePassed(p.BiddingEndTime, now) {
		return StateClosed
	}
	return StateOpen
}

// StatusAt recomputes the status projection instead of trusting the stored column.
func (l Lifecycle) StatusAt(p *Product, now time.Time) ProductStatus {
	if l.StateAt(p, now) == StateClosed {
		return StatusSold
	}
	return StatusAvailable
}

// ClosureAt returns the recorded closure, or the implied deadline closure when the deadline
// has passed but nothing has been recorded yet. Nil while open.
func (l Lifecycle) ClosureAt(p *Product, now time.Time) *Closure {
	if p.Closure != nil {
		c := *p.Closure
		return &c
	}
	if l.policy.deadlinePassed(p.BiddingEndTime, now) {
		return &Closure{Reason: ReasonDeadlineExpired, At: p.BiddingEndTime}
	}
	return nil
}

// Settle records a DeadlineExpired closure when the deadline has passed and no closure exists.
// It reports whether p changed and must be persisted.
func (l Lifecycle) Settle(p *Product, now time.Time) bool {
	if p.Closure != nil || !l.policy.deadlinePassed(p.BiddingEndTime, now) {
		return false
	}
	p.close(ReasonDeadlineExpired, p.BiddingEndTime, now)
	return true
}

// CloseManually ends bidding at now on behalf of actorID, who must own the product.
// Closing an already closed auction succeeds without touching the first closure record;
// an expired but unrecorded deadline is recorded as DeadlineExpired.
// changed reports whether p must be persisted.
func (l Lifecycle) CloseManually(p *Product, actorID uuid.UUID, now time.Time) (changed bool, err error) {
	if p.OwnerID != actorID {
		return false, fmt.Errorf("%w: user %s does not own product %s", ErrUnauthorized, actorID, p.ID)
	}
	if p.Closure != nil {
		return false, nil
	}
	if l.Settle(p, now) {
		return true, nil
	}
	p.close(ReasonManuallyClosed, now, now)
	return true, nil
}
