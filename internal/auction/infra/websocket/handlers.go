package websocket

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/bidworks/auctiond/internal/auction/application"
	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/bidworks/auctiond/internal/shared/logger"
	"github.com/bidworks/auctiond/internal/shared/websocket"
	"github.com/gofiber/fiber/v2"
	fiberws "github.com/gofiber/websocket/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// BidBroadcaster adapts the shared hub to the application's BidBroadcaster
// port: committed bids are serialized and fanned out to the auction's
// watchers.
type BidBroadcaster struct {
	hub *websocket.Hub
}

func NewBidBroadcaster(hub *websocket.Hub) *BidBroadcaster {
	return &BidBroadcaster{hub: hub}
}

func (b *BidBroadcaster) BroadcastBid(event domain.BidEvent) {
	msg := ServerBidMessage{BaseMessage: BaseMessage{Type: MessageTypeServerBid}, Payload: event}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal ServerBidMessage", zap.Error(err))
		return
	}
	b.hub.BroadcastToAuction(event.AuctionID.String(), data)
}

// AuctionWSHandler consumes inbound watcher messages from the hub and routes
// them into the auction service.
type AuctionWSHandler struct {
	auctionService application.AuctionService
	hub            *websocket.Hub
}

func NewAuctionWSHandler(auctionService application.AuctionService, hub *websocket.Hub) *AuctionWSHandler {
	return &AuctionWSHandler{
		auctionService: auctionService,
		hub:            hub,
	}
}

// RegisterRoutes mounts the watcher endpoint. Each connection watches exactly
// one auction and receives the auction snapshot on connect.
func (h *AuctionWSHandler) RegisterRoutes(ctx context.Context, app *fiber.App) {
	app.Get("/ws/auctions/:id", fiberws.New(func(conn *fiberws.Conn) {
		auctionID := conn.Params("id")
		client := &websocket.Client{
			Hub:       h.hub,
			Conn:      conn,
			Send:      make(chan []byte, 16),
			AuctionID: auctionID,
			ID:        uuid.NewString(),
		}
		h.hub.RegisterClient(client)
		go client.WritePump(ctx)
		h.sendInitialState(ctx, client, auctionID)
		client.ReadPump(ctx) // blocks until the connection dies
	}))
}

// ListenForMessages consumes the hub's inbound channel until the context is
// cancelled.
func (h *AuctionWSHandler) ListenForMessages(ctx context.Context) {
	log.Info("AuctionWSHandler listening for inbound messages")
	for {
		select {
		case <-ctx.Done():
			log.Info("AuctionWSHandler stopped")
			return
		case msg := <-h.hub.InboundMessages:
			go h.processMessage(ctx, msg.Client, msg.Data)
		}
	}
}

func (h *AuctionWSHandler) processMessage(ctx context.Context, client *websocket.Client, data []byte) {
	var baseMsg BaseMessage
	if err := json.Unmarshal(data, &baseMsg); err != nil {
		h.sendError(client, "invalid message format", nil)
		return
	}
	switch baseMsg.Type {
	case MessageTypeClientBid:
		h.handleClientBid(ctx, client, data)
	default:
		h.sendError(client, "unknown message type", nil)
	}
}

func (h *AuctionWSHandler) handleClientBid(ctx context.Context, client *websocket.Client, data []byte) {
	var bidMsg ClientBidMessage
	if err := json.Unmarshal(data, &bidMsg); err != nil {
		h.sendError(client, "invalid bid message format", nil)
		return
	}
	if bidMsg.Payload.AuctionID.String() != client.AuctionID {
		h.sendError(client, "auction id mismatch", nil)
		return
	}

	cmd := application.PlaceBidDTO{
		AuctionID: bidMsg.Payload.AuctionID,
		BidderID:  bidMsg.Payload.BidderID,
		Amount:    bidMsg.Payload.Amount,
	}
	// the committed bid reaches this watcher through the broadcast, no direct
	// reply is needed on success
	if _, err := h.auctionService.PlaceBid(ctx, cmd); err != nil {
		var tooLow *domain.BidTooLowError
		if errors.As(err, &tooLow) {
			h.sendError(client, tooLow.Error(), &tooLow.MinimumAllowed)
			return
		}
		h.sendError(client, err.Error(), nil)
	}
}

func (h *AuctionWSHandler) sendInitialState(ctx context.Context, client *websocket.Client, auctionID string) {
	id, err := uuid.Parse(auctionID)
	if err != nil {
		h.sendError(client, "invalid auction id", nil)
		return
	}
	state, err := h.auctionService.GetAuctionState(ctx, id)
	if err != nil {
		h.sendError(client, "failed to load auction state", nil)
		return
	}
	msg := ServerInitialStateMessage{BaseMessage: BaseMessage{Type: MessageTypeServerInitialState}, Payload: *state}
	data, err := json.Marshal(msg)
	if err != nil {
		log.Error("failed to marshal ServerInitialStateMessage", zap.Error(err))
		return
	}
	select {
	case client.Send <- data:
	default:
		log.Warn("client send channel full, initial state dropped", zap.String("clientID", client.ID))
	}
}

func (h *AuctionWSHandler) sendError(client *websocket.Client, message string, minimumAllowed *decimal.Decimal) {
	errMsg := ServerErrorMessage{BaseMessage: BaseMessage{Type: MessageTypeServerError}}
	errMsg.Payload.Error = message
	errMsg.Payload.MinimumAllowed = minimumAllowed
	data, err := json.Marshal(errMsg)
	if err != nil {
		log.Error("failed to marshal ServerErrorMessage", zap.Error(err))
		return
	}
	select {
	case client.Send <- data:
	default:
		log.Warn("client send channel full, error message dropped", zap.String("clientID", client.ID))
	}
}
