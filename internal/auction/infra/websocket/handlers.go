package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/cristianortiz/auctionhouse/internal/auction/application"
	"github.com/cristianortiz/auctionhouse/internal/auction/domain"
	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/cristianortiz/auctionhouse/internal/shared/websocket"
	userdomain "github.com/cristianortiz/auctionhouse/internal/user/domain"
	"github.com/cristianortiz/auctionhouse/internal/user/infra/auth"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionWSHandler serves the live product feed and handles inbound auction messages.
type AuctionWSHandler struct {
	auctionService application.AuctionService
	hub            *websocket.Hub
	verifier       *auth.Verifier
}

func NewAuctionWSHandler(auctionService application.AuctionService, hub *websocket.Hub, verifier *auth.Verifier) *AuctionWSHandler {
	return &AuctionWSHandler{
		auctionService: auctionService,
		hub:            hub,
		verifier:       verifier,
	}
}

// RegisterRoutes mounts GET /ws/products/:id. Anonymous clients may watch; bidding needs a token.
func (h *AuctionWSHandler) RegisterRoutes(ctx context.Context, app fiber.Router) {
	app.Use("/ws", func(c *fiber.Ctx) error {
		if fiberws.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/products/:id", h.verifier.Optional(), func(c *fiber.Ctx) error {
		id, err := uuid.Parse(c.Params("id"))
		if err != nil {
			return fiber.ErrNotFound
		}
		if _, err := h.auctionService.GetProductState(c.UserContext(), id); err != nil {
			if domain.KindOf(err) == domain.KindNotFound {
				return fiber.ErrNotFound
			}
			return fiber.ErrInternalServerError
		}
		var identity any
		if p, ok := auth.PrincipalFrom(c); ok {
			identity = p
		}
		c.Locals("identity", identity)
		return c.Next()
	}, fiberws.New(func(conn *fiberws.Conn) {
		h.serve(ctx, conn)
	}))
}

func (h *AuctionWSHandler) serve(ctx context.Context, conn *fiberws.Conn) {
	client := h.hub.NewClient(conn, uuid.NewString(), conn.Params("id"), conn.Locals("identity"))

	// queued before registration, so nothing else writes to Send yet
	if id, err := uuid.Parse(client.Topic); err == nil {
		if state, err := h.auctionService.GetProductState(ctx, id); err == nil {
			if data, err := json.Marshal(ServerInitialStateMessage{
				BaseMessage: BaseMessage{Type: MessageTypeServerInitialState},
				Payload:     state,
			}); err == nil {
				client.Send <- data
			}
		}
	}
	h.hub.RegisterClient(client)

	go client.WritePump(ctx)
	// fiber's websocket handler must not return while the connection is in use
	client.ReadPump(ctx)
}

// ListenForMessages processes hub inbound messages until ctx is done.
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler started listening for inbound messages from hub")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped listening for inbound messages from hub")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var base BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		h.sendError(client, domain.KindInvalidInput, "invalid message format")
		return
	}
	switch base.Type {
	case MessageTypeClientBid:
		h.handleClientBid(ctx, client, data)
	default:
		h.sendError(client, domain.KindInvalidInput, "unknown message type")
	}
}

// handleClientBid places a bid on the client's topic. Successful bids reach every subscriber
// through the event publisher, so nothing is sent back here.
func (h *AuctionWSHandler) handleClientBid(ctx context.Context, client *websocket.Client, data []byte) {
	principal, ok := client.Identity.(userdomain.Principal)
	if !ok {
		h.sendError(client, domain.KindUnauthorized, "authentication required to bid")
		return
	}
	var msg ClientBidMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		h.sendError(client, domain.KindInvalidInput, "invalid bid message format")
		return
	}
	productID, err := uuid.Parse(client.Topic)
	if err != nil {
		h.sendError(client, domain.KindNotFound, "product not found")
		return
	}

	_, err = h.auctionService.PlaceBid(ctx, application.PlaceBidDTO{
		ProductID: productID,
		Bidder:    principal,
		Price:     msg.Payload.Price,
	})
	if err != nil {
		message := err.Error()
		if errors.Is(err, domain.ErrInternal) {
			message = "internal server error"
		}
		h.sendError(client, domain.KindOf(err), message)
	}
}

func (h *AuctionWSHandler) sendError(client *websocket.Client, kind domain.Kind, message string) {
	msg := ServerErrorMessage{BaseMessage: BaseMessage{Type: MessageTypeServerError}}
	msg.Payload.Kind = kind
	msg.Payload.Error = message
	h.send(client, msg)
}

func (h *AuctionWSHandler) send(client *websocket.Client, msg any) {
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal websocket message", zap.Error(err))
		return
	}
	h.hub.SendToClient(client, data)
}
