package websocket

import (
	"context"
	"time"

	"github.com/cristianortiz/auctionhouse/internal/shared/logger"
	"github.com/gofiber/websocket/v2"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer.
	maxMessageSize = 512

	queueSize = 256
)

// Hub keeps the client registry and broadcasts messages to the clients of a topic.
type Hub struct {
	// Registered clients grouped by topic, the bool is ignored.
	clients    map[string]map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	direct     chan *directMessage
	// InboundMessages is consumed by module specific handlers.
	InboundMessages chan *ClientMessage
}

// Client is a single websocket connection subscribed to one topic.
type Client struct {
	Hub *Hub
	// The websocket connection.
	Conn *websocket.Conn
	// Buffered channel of outbound messages.
	Send chan []byte
	// Topic the client listens to, e.g. a product id.
	Topic string
	// Unique identifier for the client
	ID string
	// Identity is whatever the upgrade handler authenticated, nil for anonymous clients.
	Identity any
}

type Message struct {
	Topic string
	Data  []byte
}

type directMessage struct {
	client *Client
	data   []byte
}

// ClientMessage wraps a message received from a client.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, queueSize),
		register:        make(chan *Client, queueSize),
		unregister:      make(chan *Client, queueSize),
		direct:          make(chan *directMessage, queueSize),
		clients:         make(map[string]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, queueSize),
	}
}

// NewClient builds a client for conn; the caller registers it and runs its pumps.
func (h *Hub) NewClient(conn *websocket.Conn, id, topic string, identity any) *Client {
	return &Client{
		Hub:      h,
		Conn:     conn,
		Send:     make(chan []byte, queueSize),
		Topic:    topic,
		ID:       id,
		Identity: identity,
	}
}

// Run serves the hub channels until ctx is done, then drops every client.
func (h *Hub) Run(ctx context.Context) {
	log.Info("Websocket Hub started")
	for {
		select {
		case <-ctx.Done():
			for topic, clients := range h.clients {
				for client := range clients {
					close(client.Send)
				}
				delete(h.clients, topic)
			}
			log.Info("WebSocket Hub shutting down due to context cancellation")
			return

		case client := <-h.register:
			if _, ok := h.clients[client.Topic]; !ok {
				h.clients[client.Topic] = make(map[*Client]bool)
			}
			h.clients[client.Topic][client] = true
			log.Info("Client registered",
				zap.String("clientID", client.ID),
				zap.String("topic", client.Topic),
				zap.Int("total_clients", h.count()),
			)

		case client := <-h.unregister:
			h.drop(client)

		case msg := <-h.direct:
			if !h.clients[msg.client.Topic][msg.client] {
				continue
			}
			select {
			case msg.client.Send <- msg.data:
			default:
				log.Warn("Client send buffer full, unregistering", zap.String("clientID", msg.client.ID))
				h.drop(msg.client)
			}

		case message := <-h.broadcast:
			clients := h.clients[message.Topic]
			log.Debug("Broadcasting message", zap.String("topic", message.Topic), zap.Int("clients", len(clients)))
			for client := range clients {
				select {
				case client.Send <- message.Data:
				default:
					// slow consumer
					log.Warn("Client send buffer full, unregistering",
						zap.String("clientID", client.ID),
						zap.String("topic", client.Topic),
					)
					h.drop(client)
				}
			}
		}
	}
}

func (h *Hub) drop(client *Client) {
	clients, ok := h.clients[client.Topic]
	if !ok || !clients[client] {
		return
	}
	delete(clients, client)
	close(client.Send)
	if len(clients) == 0 {
		delete(h.clients, client.Topic)
	}
	log.Info("Client unregistered",
		zap.String("clientID", client.ID),
		zap.String("topic", client.Topic),
		zap.Int("total_clients", h.count()),
	)
}

func (h *Hub) count() int {
	n := 0
	for _, clients := range h.clients {
		n += len(clients)
	}
	return n
}

func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	default:
		log.Error("Register channel is full, client registration failed",
			zap.String("clientID", client.ID),
			zap.String("topic", client.Topic),
		)
		_ = client.Conn.Close()
	}
}

func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	default:
		log.Error("Unregister channel is full, client unregistration failed",
			zap.String("clientID", client.ID),
			zap.String("topic", client.Topic),
		)
	}
}

// Broadcast queues data for every client of topic. It never blocks.
func (h *Hub) Broadcast(topic string, data []byte) bool {
	select {
	case h.broadcast <- &Message{Topic: topic, Data: data}:
		return true
	default:
		log.Error("Broadcast channel is full, message dropped", zap.String("topic", topic))
		return false
	}
}

// SendToClient queues data for one registered client. Clients that already left are skipped.
func (h *Hub) SendToClient(client *Client, data []byte) bool {
	select {
	case h.direct <- &directMessage{client: client, data: data}:
		return true
	default:
		log.Error("Direct channel is full, message dropped", zap.String("clientID", client.ID))
		return false
	}
}

// ReadPump forwards client messages to InboundMessages. Run one per client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	_ = c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { return c.Conn.SetReadDeadline(time.Now().Add(pongWait)) })

	for {
		if ctx.Err() != nil {
			return
		}
		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("WebSocket read error",
					zap.String("clientID", c.ID),
					zap.String("topic", c.Topic),
					zap.Error(err),
				)
			}
			return
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Error("Hub InboundMessages channel is full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("topic", c.Topic),
			)
		}
	}
}

// WritePump writes queued messages and pings to the connection. It is the only writer of Conn.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		_ = c.Conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return

		case message, ok := <-c.Send:
			_ = c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// the hub closed the channel
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Warn("Failed to write message to client",
					zap.String("clientID", c.ID),
					zap.String("topic", c.Topic),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
