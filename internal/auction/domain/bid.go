package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid is an entity inside the Auction aggregate. A bid is created once,
// never updated except for the Enabled flag (flipped off by moderation) and
// never deleted.
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
	Enabled   bool
	CreatedAt time.Time
}

// NewBid creates a new enabled Bid instance
func NewBid(id, auctionID, bidderID uuid.UUID, amount decimal.Decimal, createdAt time.Time) *Bid {
	return &Bid{
		ID:        id,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		Enabled:   true,
		CreatedAt: createdAt,
	}
}
