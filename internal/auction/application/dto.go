package application

import (
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type BidDTO struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"product_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Price     decimal.Decimal `json:"bid_price"`
	CreatedAt time.Time       `json:"created_at"`
}

func newBidDTO(b *domain.Bid) *BidDTO {
	if b == nil {
		return nil
	}
	return &BidDTO{
		ID:        b.ID,
		ProductID: b.ProductID,
		BidderID:  b.BidderID,
		Price:     b.Price,
		CreatedAt: b.CreatedAt,
	}
}

type ClosureDTO struct {
	Reason domain.ClosureReason `json:"reason"`
	At     time.Time            `json:"at"`
}

// ProductStateDTO is a product as seen at a given instant. Status and State are derived
// at that instant, not read from storage.
type ProductStateDTO struct {
	ID               uuid.UUID            `json:"id"`
	Name             string               `json:"name"`
	Description      string               `json:"description"`
	StartingPrice    decimal.Decimal      `json:"starting_price"`
	CurrentPrice     decimal.Decimal      `json:"current_price"`
	BiddingEndTime   time.Time            `json:"bidding_end_time"`
	EffectiveEndTime time.Time            `json:"effective_end_time"`
	OwnerID          uuid.UUID            `json:"owner_id"`
	OwnerName        string               `json:"owner_name,omitempty"`
	Status           domain.ProductStatus `json:"status"`
	State            domain.AuctionState  `json:"state"`
	Closure          *ClosureDTO          `json:"closure,omitempty"`
	HighestBid       *BidDTO              `json:"highest_bid,omitempty"`
	CreatedAt        time.Time            `json:"created_at"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

func newProductState(lc domain.Lifecycle, p *domain.Product, highest *domain.Bid, now time.Time) *ProductStateDTO {
	dto := &ProductStateDTO{
		ID:               p.ID,
		Name:             p.Name,
		Description:      p.Description,
		StartingPrice:    p.StartingPrice,
		CurrentPrice:     domain.CurrentPrice(p, highest),
		BiddingEndTime:   p.BiddingEndTime,
		EffectiveEndTime: p.BiddingEndTime,
		OwnerID:          p.OwnerID,
		Status:           lc.StatusAt(p, now),
		State:            lc.StateAt(p, now),
		HighestBid:       newBidDTO(highest),
		CreatedAt:        p.CreatedAt,
		UpdatedAt:        p.UpdatedAt,
	}
	if c := lc.ClosureAt(p, now); c != nil {
		dto.Closure = &ClosureDTO{Reason: c.Reason, At: c.At}
		dto.EffectiveEndTime = c.At
	}
	return dto
}

// WinningBidDTO has a nil UserID when nobody bid; BidPrice is then the starting price.
type WinningBidDTO struct {
	UserID   *uuid.UUID      `json:"user_id"`
	BidPrice decimal.Decimal `json:"bid_price"`
}

type SoldProductDTO struct {
	ID            uuid.UUID            `json:"id"`
	Name          string               `json:"name"`
	Description   string               `json:"description"`
	StartingPrice decimal.Decimal      `json:"starting_price"`
	OwnerID       uuid.UUID            `json:"owner_id"`
	OwnerName     string               `json:"owner_name,omitempty"`
	FinalPrice    decimal.Decimal      `json:"final_price"`
	SoldAt        time.Time            `json:"sold_at"`
	ClosureReason domain.ClosureReason `json:"closure_reason"`
	WinningBid    WinningBidDTO        `json:"winning_bid"`
}

func newSoldProduct(lc domain.Lifecycle, p *domain.Product, highest *domain.Bid, now time.Time) *SoldProductDTO {
	final := domain.CurrentPrice(p, highest)
	dto := &SoldProductDTO{
		ID:            p.ID,
		Name:          p.Name,
		Description:   p.Description,
		StartingPrice: p.StartingPrice,
		OwnerID:       p.OwnerID,
		FinalPrice:    final,
		WinningBid:    WinningBidDTO{BidPrice: final},
	}
	if c := lc.ClosureAt(p, now); c != nil {
		dto.SoldAt = c.At
		dto.ClosureReason = c.Reason
	}
	if highest != nil {
		winner := highest.BidderID
		dto.WinningBid.UserID = &winner
	}
	return dto
}
