package websocket

import (
	"github.com/bidworks/auctiond/internal/auction/application"
	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// MessageType identifies the websocket message envelope.
type MessageType string

const (
	MessageTypeClientBid          MessageType = "client_bid"           // client places a bid
	MessageTypeServerBid          MessageType = "server_bid"           // a bid committed, broadcast to watchers
	MessageTypeServerError        MessageType = "server_error"         // request-scoped error for one client
	MessageTypeServerInitialState MessageType = "server_initial_state" // auction snapshot on connect
)

// BaseMessage is the envelope shared by all websocket messages.
type BaseMessage struct {
	Type MessageType `json:"type"`
}

// ClientBidMessage is a bid submitted over the socket.
type ClientBidMessage struct {
	BaseMessage
	Payload struct {
		AuctionID uuid.UUID       `json:"auction_id"`
		BidderID  uuid.UUID       `json:"bidder_id"`
		Amount    decimal.Decimal `json:"amount"`
	} `json:"payload"`
}

// ServerBidMessage carries a committed bid to every watcher of the auction.
type ServerBidMessage struct {
	BaseMessage
	Payload domain.BidEvent `json:"payload"`
}

// ServerErrorMessage reports a rejected request back to the sender. For a
// too-low bid MinimumAllowed tells the client what to retry with.
type ServerErrorMessage struct {
	BaseMessage
	Payload struct {
		Error          string           `json:"error"`
		MinimumAllowed *decimal.Decimal `json:"minimum_allowed,omitempty"`
	} `json:"payload"`
}

// ServerInitialStateMessage is the auction snapshot sent on connect.
type ServerInitialStateMessage struct {
	BaseMessage
	Payload application.AuctionStateDTO `json:"payload"`
}
