package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NotificationType identifies the kind of in-app notification an event
// produces; the external dispatcher decides how it is rendered/delivered.
type NotificationType string

const (
	NotificationOutbid            NotificationType = "OUTBID"
	NotificationNewBidOnMyAuction NotificationType = "NEW_BID_ON_MY_AUCTION"
	NotificationAuctionWon        NotificationType = "AUCTION_WON"
	NotificationAuctionLost       NotificationType = "AUCTION_LOST"
	NotificationAuctionEnded      NotificationType = "AUCTION_ENDED_FOR_OWNER"
	NotificationAuctionEndingSoon NotificationType = "AUCTION_ENDING_SOON"
	NotificationAuctionApproved   NotificationType = "AUCTION_APPROVED"
	NotificationAuctionCancelled  NotificationType = "AUCTION_CANCELLED"
	NotificationBidCancelled      NotificationType = "BID_CANCELLED"
)

// NotificationEvent is the payload handed to the external notification
// dispatcher. Payload shape only, transport is the dispatcher's problem.
type NotificationEvent struct {
	RecipientID uuid.UUID         `json:"recipient_id"`
	Type        NotificationType  `json:"type"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// EmailEvent is the payload handed to the external email dispatcher.
type EmailEvent struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// BidEvent is returned to the caller of PlaceBid and broadcast to every live
// watcher of the auction, after the transaction commits.
type BidEvent struct {
	BidID             uuid.UUID       `json:"bid_id"`
	Amount            decimal.Decimal `json:"amount"`
	BidderDisplayName string          `json:"bidder_display_name"`
	CreatedAt         time.Time       `json:"created_at"`
	AuctionID         uuid.UUID       `json:"auction_id"`
	NewEndDate        time.Time       `json:"new_end_date"`
}
