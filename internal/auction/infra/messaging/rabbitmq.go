package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Channel is the subset of *amqp.Channel the publisher uses.
type Channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Envelope is the JSON body of every published event.
type Envelope struct {
	Type       string    `json:"type"`
	ProductID  uuid.UUID `json:"product_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Payload    any       `json:"payload"`
}

type bidPlacedPayload struct {
	BidID    uuid.UUID       `json:"bid_id"`
	BidderID uuid.UUID       `json:"bidder_id"`
	Price    decimal.Decimal `json:"price"`
}

type auctionClosedPayload struct {
	Reason     domain.ClosureReason `json:"reason"`
	FinalPrice decimal.Decimal      `json:"final_price"`
	WinnerID   *uuid.UUID           `json:"winner_id"`
}

// NewEnvelope wraps a domain event for the wire.
func NewEnvelope(event domain.Event) (Envelope, error) {
	env := Envelope{Type: event.Type(), ProductID: event.AggregateID()}
	switch ev := event.(type) {
	case domain.BidPlaced:
		env.OccurredAt = ev.PlacedAt
		env.Payload = bidPlacedPayload{BidID: ev.BidID, BidderID: ev.BidderID, Price: ev.Price}
	case domain.AuctionClosed:
		env.OccurredAt = ev.ClosedAt
		env.Payload = auctionClosedPayload{Reason: ev.Reason, FinalPrice: ev.FinalPrice, WinnerID: ev.WinnerID}
	default:
		return Envelope{}, fmt.Errorf("unsupported event type %q", event.Type())
	}
	return env, nil
}

// Publisher sends auction events to a durable RabbitMQ queue through the default exchange.
type Publisher struct {
	mu      sync.Mutex
	channel Channel
	queue   string
	closers []func() error
}

func NewPublisher(channel Channel, queue string) *Publisher {
	return &Publisher{channel: channel, queue: queue}
}

// Dial connects to url, declares queue and returns a publisher that owns the connection.
func Dial(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}
	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare %s: %w", queue, err)
	}

	log.Info("RabbitMQ publisher connected", zap.String("queue", queue))
	p := NewPublisher(ch, queue)
	p.closers = []func() error{ch.Close, conn.Close}
	return p, nil
}

func (p *Publisher) Publish(_ context.Context, event domain.Event) error {
	env, err := NewEnvelope(event)
	if err != nil {
		return err
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", event.Type(), err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.channel.Publish(
		"",      // default exchange
		p.queue, // routing key: the queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Type:         event.Type(),
			MessageId:    uuid.NewString(),
			DeliveryMode: amqp.Persistent,
			Timestamp:    env.OccurredAt,
			Body:         body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", event.Type(), err)
	}
	log.Debug("Published event", zap.String("type", event.Type()), zap.String("productID", env.ProductID.String()))
	return nil
}

// Close closes the channel and connection opened by Dial.
func (p *Publisher) Close() error {
	var errs []error
	for _, c := range p.closers {
		if err := c(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
