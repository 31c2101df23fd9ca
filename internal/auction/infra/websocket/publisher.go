package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/websocket"
)

// Broadcaster is the part of the hub the publisher needs.
type Broadcaster interface {
	Broadcast(topic string, data []byte) bool
}

// Publisher pushes domain events to the clients subscribed to the event's product.
type Publisher struct {
	hub Broadcaster
}

func NewPublisher(hub Broadcaster) *Publisher {
	return &Publisher{hub: hub}
}

var _ Broadcaster = (*websocket.Hub)(nil)

func (p *Publisher) Publish(_ context.Context, event domain.Event) error {
	msg, err := encodeEvent(event)
	if err != nil {
		return err
	}
	if msg == nil {
		return nil
	}
	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal %s message: %w", event.Type(), err)
	}
	if !p.hub.Broadcast(event.AggregateID().String(), data) {
		return fmt.Errorf("broadcast %s: hub queue full", event.Type())
	}
	return nil
}

func encodeEvent(event domain.Event) (any, error) {
	switch ev := event.(type) {
	case domain.BidPlaced:
		msg := ServerBidPlacedMessage{BaseMessage: BaseMessage{Type: MessageTypeServerBidPlaced}}
		msg.Payload.ProductID = ev.ProductID
		msg.Payload.BidID = ev.BidID
		msg.Payload.BidderID = ev.BidderID
		msg.Payload.CurrentPrice = ev.Price
		msg.Payload.PlacedAt = ev.PlacedAt
		return msg, nil
	case domain.AuctionClosed:
		msg := ServerAuctionClosedMessage{BaseMessage: BaseMessage{Type: MessageTypeServerAuctionClosed}}
		msg.Payload.ProductID = ev.ProductID
		msg.Payload.Reason = ev.Reason
		msg.Payload.ClosedAt = ev.ClosedAt
		msg.Payload.FinalPrice = ev.FinalPrice
		msg.Payload.WinnerID = ev.WinnerID
		return msg, nil
	default:
		return nil, nil
	}
}
