package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	amqp "github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockChannel struct {
	mock.Mock
}

func (m *MockChannel) Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	args := m.Called(exchange, key, mandatory, immediate, msg)
	return args.Error(0)
}

func TestPublisher_PublishBidPlaced(t *testing.T) {
	ch := new(MockChannel)
	pub := NewPublisher(ch, "auction_events")

	ev := domain.BidPlaced{
		ProductID: uuid.New(),
		BidID:     uuid.New(),
		BidderID:  uuid.New(),
		Price:     decimal.RequireFromString("150.00"),
		PlacedAt:  time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC),
	}

	var sent amqp.Publishing
	ch.On("Publish", "", "auction_events", false, false, mock.AnythingOfType("amqp.Publishing")).
		Run(func(args mock.Arguments) { sent = args.Get(4).(amqp.Publishing) }).
		Return(nil).Once()

	require.NoError(t, pub.Publish(context.Background(), ev))
	ch.AssertExpectations(t)

	assert.Equal(t, "application/json", sent.ContentType)
	assert.Equal(t, "BidPlaced", sent.Type)
	assert.Equal(t, amqp.Persistent, sent.DeliveryMode)

	var body struct {
		Type      string    `json:"type"`
		ProductID uuid.UUID `json:"product_id"`
		Payload   struct {
			Price    string    `json:"price"`
			BidderID uuid.UUID `json:"bidder_id"`
		} `json:"payload"`
	}
	require.NoError(t, json.Unmarshal(sent.Body, &body))
	assert.Equal(t, "BidPlaced", body.Type)
	assert.Equal(t, ev.ProductID, body.ProductID)
	assert.Equal(t, "150", body.Payload.Price)
	assert.Equal(t, ev.BidderID, body.Payload.BidderID)
}

func TestPublisher_PublishAuctionClosedWithoutWinner(t *testing.T) {
	ch := new(MockChannel)
	pub := NewPublisher(ch, "q")

	ev := domain.AuctionClosed{
		ProductID:  uuid.New(),
		Reason:     domain.ReasonDeadlineExpired,
		ClosedAt:   time.Now().UTC(),
		FinalPrice: decimal.NewFromInt(100),
	}

	var sent amqp.Publishing
	ch.On("Publish", "", "q", false, false, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(4).(amqp.Publishing) }).
		Return(nil).Once()

	require.NoError(t, pub.Publish(context.Background(), ev))

	var body map[string]any
	require.NoError(t, json.Unmarshal(sent.Body, &body))
	payload := body["payload"].(map[string]any)
	assert.Equal(t, "deadline_expired", payload["reason"])
	assert.Nil(t, payload["winner_id"])
}

func TestPublisher_PublishError(t *testing.T) {
	ch := new(MockChannel)
	pub := NewPublisher(ch, "q")
	ch.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).
		Return(errors.New("channel closed"))

	err := pub.Publish(context.Background(), domain.BidPlaced{ProductID: uuid.New()})
	assert.ErrorContains(t, err, "channel closed")
}
