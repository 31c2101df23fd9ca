package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Event is something that happened to a product, published after the change commits.
type Event interface {
	Type() string
	AggregateID() uuid.UUID
}

type BidPlaced struct {
	ProductID uuid.UUID
	BidID     uuid.UUID
	BidderID  uuid.UUID
	Price     decimal.Decimal
	PlacedAt  time.Time
}

func (e BidPlaced) Type() string           { return "BidPlaced" }
func (e BidPlaced) AggregateID() uuid.UUID { return e.ProductID }

type AuctionClosed struct {
	ProductID  uuid.UUID
	Reason     ClosureReason
	ClosedAt   time.Time
	FinalPrice decimal.Decimal
	WinnerID   *uuid.UUID // nil when nobody bid
}

func (e AuctionClosed) Type() string           { return "AuctionClosed" }
func (e AuctionClosed) AggregateID() uuid.UUID { return e.ProductID }

// NewAuctionClosed builds the event for a product whose closure has just been recorded.
func NewAuctionClosed(p *Product, highest *Bid) AuctionClosed {
	ev := AuctionClosed{
		ProductID:  p.ID,
		FinalPrice: CurrentPrice(p, highest),
	}
	if p.Closure != nil {
		ev.Reason = p.Closure.Reason
		ev.ClosedAt = p.Closure.At
	}
	if highest != nil {
		winner := highest.BidderID
		ev.WinnerID = &winner
	}
	return ev
}

type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// Publishers fans an event out to every publisher, collecting all failures.
type Publishers []EventPublisher

func (ps Publishers) Publish(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range ps {
		if err := p.Publish(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
