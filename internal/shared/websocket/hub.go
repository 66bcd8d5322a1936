package websocket

import (
	"context"
	"time"

	"github.com/bidworks/auctiond/internal/shared/logger"
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
)

// Hub keeps the registry of watcher connections, grouped by auction id, and
// fans broadcast messages out to every watcher of an auction. Delivery is
// best-effort: a watcher that cannot keep up is dropped.
type Hub struct {
	// registered clients, outer key is the auction id
	clients    map[string]map[*Client]bool
	broadcast  chan *Message
	register   chan *Client
	unregister chan *Client
	// inbound client messages, consumed by module-specific handlers
	InboundMessages chan *ClientMessage
}

// Client represents one websocket connection watching one auction.
type Client struct {
	Hub       *Hub
	Conn      *websocket.Conn
	Send      chan []byte
	AuctionID string
	ID        string
}

type Message struct {
	AuctionID string
	Data      []byte
}

// ClientMessage wraps an inbound payload together with its sender.
type ClientMessage struct {
	Client *Client
	Data   []byte
}

func NewHub() *Hub {
	return &Hub{
		broadcast:       make(chan *Message, 64),
		register:        make(chan *Client, 64),
		unregister:      make(chan *Client, 64),
		clients:         make(map[string]map[*Client]bool),
		InboundMessages: make(chan *ClientMessage, 64),
	}
}

// Run owns the client registry; all map access happens on this goroutine.
func (h *Hub) Run(ctx context.Context) {
	log.Info("Websocket hub started")
	for {
		select {
		case <-ctx.Done():
			log.Info("Websocket hub shutting down")
			return

		case client := <-h.register:
			if _, ok := h.clients[client.AuctionID]; !ok {
				h.clients[client.AuctionID] = make(map[*Client]bool)
			}
			h.clients[client.AuctionID][client] = true
			log.Info("Watcher registered",
				zap.String("clientID", client.ID),
				zap.String("auctionID", client.AuctionID),
			)

		case client := <-h.unregister:
			if clients, ok := h.clients[client.AuctionID]; ok {
				if _, ok := clients[client]; ok {
					delete(clients, client)
					close(client.Send)
					log.Info("Watcher unregistered",
						zap.String("clientID", client.ID),
						zap.String("auctionID", client.AuctionID),
					)
					if len(clients) == 0 {
						delete(h.clients, client.AuctionID)
					}
				}
			}

		case message := <-h.broadcast:
			for client := range h.clients[message.AuctionID] {
				select {
				case client.Send <- message.Data:
				default:
					// watcher not keeping up, drop it
					close(client.Send)
					delete(h.clients[message.AuctionID], client)
					log.Warn("Watcher dropped, send buffer full",
						zap.String("clientID", client.ID),
						zap.String("auctionID", client.AuctionID),
					)
				}
			}
		}
	}
}

// RegisterClient queues a new client for registration.
func (h *Hub) RegisterClient(client *Client) {
	select {
	case h.register <- client:
	default:
		log.Error("Register channel full, closing connection",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
		_ = client.Conn.Close()
	}
}

// UnregisterClient queues a client for removal.
func (h *Hub) UnregisterClient(client *Client) {
	select {
	case h.unregister <- client:
	default:
		log.Error("Unregister channel full",
			zap.String("clientID", client.ID),
			zap.String("auctionID", client.AuctionID),
		)
	}
}

// BroadcastToAuction sends data to every watcher of the auction. Best-effort:
// a full broadcast queue drops the message.
func (h *Hub) BroadcastToAuction(auctionID string, data []byte) {
	select {
	case h.broadcast <- &Message{AuctionID: auctionID, Data: data}:
	default:
		log.Error("Broadcast channel full, message dropped", zap.String("auctionID", auctionID))
	}
}

// ReadPump reads messages from the connection and forwards them to the hub's
// inbound channel. Runs as one goroutine per client.
func (c *Client) ReadPump(ctx context.Context) {
	defer func() {
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()
	c.Conn.SetReadLimit(maxMessageSize)
	c.Conn.SetReadDeadline(time.Now().Add(pongWait))
	c.Conn.SetPongHandler(func(string) error { c.Conn.SetReadDeadline(time.Now().Add(pongWait)); return nil })

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, message, err := c.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Error("Websocket read error",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
			}
			break
		}

		select {
		case c.Hub.InboundMessages <- &ClientMessage{Client: c, Data: message}:
		default:
			log.Error("Inbound channel full, dropping message",
				zap.String("clientID", c.ID),
				zap.String("auctionID", c.AuctionID),
			)
		}
	}
}

// WritePump pumps messages from the hub to the connection and keeps the
// connection alive with pings. The single writer per connection.
func (c *Client) WritePump(ctx context.Context) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Hub.UnregisterClient(c)
		c.Conn.Close()
	}()

	for {
		select {
		case <-ctx.Done():
			_ = c.Conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(writeWait))
			return

		case message, ok := <-c.Send:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// hub closed the channel
				_ = c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Error("Failed to write message to watcher",
					zap.String("clientID", c.ID),
					zap.String("auctionID", c.AuctionID),
					zap.Error(err),
				)
				return
			}

		case <-ticker.C:
			c.Conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.Conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
