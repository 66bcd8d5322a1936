package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Tx is the minimal transaction handle the application layer needs. The
// postgres implementation wraps pgx.Tx; test fakes implement it directly.
type Tx interface {
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

// TxStarter opens a new transaction. One unit of work per business operation.
type TxStarter interface {
	Begin(ctx context.Context) (Tx, error)
}

// AuctionRepository loads and stores the Auction aggregate (bids included).
// GetByIDForUpdate takes the per-auction row lock; every mutation of an
// auction must go through it so concurrent bids, sweeps and moderation
// actions serialize on the same row.
type AuctionRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Auction, error)
	GetByIDForUpdate(ctx context.Context, tx Tx, id uuid.UUID) (*Auction, error)
	Save(ctx context.Context, tx Tx, auction *Auction) error

	// FindExpiredIDs returns ids of ACTIVE auctions whose end date has passed.
	// Ids only: each auction is then re-read and re-checked under its own lock.
	FindExpiredIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error)
	// FindEndingSoonIDs returns ids of ACTIVE, not-yet-reminded auctions whose
	// end date falls inside [from, until).
	FindEndingSoonIDs(ctx context.Context, from, until time.Time) ([]uuid.UUID, error)
	FindNonTerminalIDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error)

	// GrantChatAccess marks users as chat-eligible for post-auction logistics,
	// inside the expiry transaction.
	GrantChatAccess(ctx context.Context, tx Tx, auctionID uuid.UUID, userIDs ...uuid.UUID) error
}

// BidRepository persists bids. Bids are append-only; the single update path
// is the moderation disable flag.
type BidRepository interface {
	Save(ctx context.Context, tx Tx, bid *Bid) error
	GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
	// DisableByBidder flips enabled=false for the bidder's bids on one auction,
	// under that auction's lock.
	DisableByBidder(ctx context.Context, tx Tx, auctionID, bidderID uuid.UUID) error
	// AuctionIDsWithEnabledBidsBy lists the auctions where the bidder still
	// holds at least one enabled bid.
	AuctionIDsWithEnabledBidsBy(ctx context.Context, bidderID uuid.UUID) ([]uuid.UUID, error)
}
