package http

import (
	"time"

	"github.com/shopspring/decimal"
)

// CreateProductRequest is the body of POST /api/v1/admin/products.
type CreateProductRequest struct {
	Name           string           `json:"name" validate:"required,max=100"`
	Description    string           `json:"description" validate:"required,max=500"`
	StartingPrice  *decimal.Decimal `json:"starting_price" validate:"required"`
	BiddingEndTime *time.Time       `json:"bidding_end_time" validate:"required"`
}

// PlaceBidRequest is the body of POST /api/v1/products/:id/bids. The price is checked by the
// bid validator so that an unknown product is reported before a bad price.
type PlaceBidRequest struct {
	Price *decimal.Decimal `json:"price"`
}
