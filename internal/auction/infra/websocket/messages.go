package websocket

import (
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/application"
	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MessageType identifies a websocket message.
type MessageType string

const (
	MessageTypeClientBid           MessageType = "client_bid"           // client places a bid
	MessageTypeServerInitialState  MessageType = "server_initial_state" // product state sent on connect
	MessageTypeServerBidPlaced     MessageType = "server_bid_placed"
	MessageTypeServerAuctionClosed MessageType = "server_auction_closed"
	MessageTypeServerError         MessageType = "server_error"
)

type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is sent by a client to bid on the product it is subscribed to.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		Price *decimal.Decimal `json:"price"`
	} `json:"payload"`
}

type ServerInitialStateMessage struct {
	BaseMessage
	Payload *application.ProductStateDTO `json:"payload"`
}

type ServerBidPlacedMessage struct {
	BaseMessage
	Payload struct {
		ProductID    uuid.UUID       `json:"product_id"`
		BidID        uuid.UUID       `json:"bid_id"`
		BidderID     uuid.UUID       `json:"bidder_id"`
		CurrentPrice decimal.Decimal `json:"current_price"`
		PlacedAt     time.Time       `json:"placed_at"`
	} `json:"payload"`
}

type ServerAuctionClosedMessage struct {
	BaseMessage
	Payload struct {
		ProductID  uuid.UUID            `json:"product_id"`
		Reason     domain.ClosureReason `json:"reason"`
		ClosedAt   time.Time            `json:"closed_at"`
		FinalPrice decimal.Decimal      `json:"final_price"`
		WinnerID   *uuid.UUID           `json:"winner_id"`
	} `json:"payload"`
}

type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Kind  domain.Kind `json:"kind,omitempty"`
		Error string      `json:"error"`
	} `json:"payload"`
}
