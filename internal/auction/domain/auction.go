package domain

import (
	"time"

	"github.com/bidworks/auctiond/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// AuctionStatus represents the lifecycle state of an auction
type AuctionStatus string

const (
	StatusPendingApproval AuctionStatus = "PENDING_APPROVAL"
	StatusActive          AuctionStatus = "ACTIVE"
	StatusExpired         AuctionStatus = "EXPIRED"
	StatusCancelled       AuctionStatus = "CANCELLED"
)

const (
	// SnipeGuardWindow is the trailing period before the deadline during which
	// new bids are rejected outright. It exists to avoid a race between "bid
	// accepted" and "auction closes" firing near-simultaneously; the soft-close
	// extension below makes sure legitimate late bidders never actually hit it.
	// Validation and the user-facing error message both derive from this one
	// constant.
	SnipeGuardWindow = 2 * time.Second

	// SoftCloseWindow is the soft-close threshold: a bid landing with less than
	// this much time remaining pushes end_date out to now + SoftCloseWindow, so
	// the auction cannot be won by a bid placed in the final instant.
	SoftCloseWindow = time.Minute
)

// Auction is the aggregate root of the bidding core. It owns its bid history
// and every mutation goes through one of its methods; persistence-level
// serialization (row lock per auction) is the caller's responsibility.
type Auction struct {
	ID                 uuid.UUID
	OwnerID            uuid.UUID
	WinnerID           *uuid.UUID
	Title              string
	Description        string
	StartingAmount     decimal.Decimal
	MinBidIncrement    decimal.Decimal
	StartDate          time.Time
	EndDate            time.Time
	Status             AuctionStatus
	EndingSoonNotified bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
	// full bid history, chronological; disabled bids stay for audit
	Bids []*Bid
}

// NewAuction creates an auction waiting for moderation approval.
func NewAuction(id, ownerID uuid.UUID, title, description string, startingAmount, minBidIncrement decimal.Decimal, startDate, endDate time.Time) *Auction {
	return &Auction{
		ID:              id,
		OwnerID:         ownerID,
		Title:           title,
		Description:     description,
		StartingAmount:  startingAmount,
		MinBidIncrement: minBidIncrement,
		StartDate:       startDate,
		EndDate:         endDate,
		Status:          StatusPendingApproval,
		Bids:            []*Bid{},
	}
}

// HighestEnabledBid returns the enabled bid with the maximum amount, or nil
// when no enabled bid exists. Amounts are strictly increasing (enforced by
// MinimumAllowedBid plus per-auction serialization), so there is never a tie.
func (a *Auction) HighestEnabledBid() *Bid {
	var highest *Bid
	for _, b := range a.Bids {
		if !b.Enabled {
			continue
		}
		if highest == nil || b.Amount.GreaterThan(highest.Amount) {
			highest = b
		}
	}
	return highest
}

// MinimumAllowedBid computes the lowest acceptable amount for the next bid:
// starting amount plus increment when no enabled bid exists, highest enabled
// bid plus increment otherwise.
func (a *Auction) MinimumAllowedBid() decimal.Decimal {
	if highest := a.HighestEnabledBid(); highest != nil {
		return highest.Amount.Add(a.MinBidIncrement)
	}
	return a.StartingAmount.Add(a.MinBidIncrement)
}

// EnabledBidders returns the distinct bidder ids that still hold an enabled
// bid, in order of first appearance.
func (a *Auction) EnabledBidders() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var bidders []uuid.UUID
	for _, b := range a.Bids {
		if !b.Enabled || seen[b.BidderID] {
			continue
		}
		seen[b.BidderID] = true
		bidders = append(bidders, b.BidderID)
	}
	return bidders
}

// Bidders returns every distinct bidder that ever placed a bid, disabled
// bids included, in order of first appearance.
func (a *Auction) Bidders() []uuid.UUID {
	seen := make(map[uuid.UUID]bool)
	var bidders []uuid.UUID
	for _, b := range a.Bids {
		if seen[b.BidderID] {
			continue
		}
		seen[b.BidderID] = true
		bidders = append(bidders, b.BidderID)
	}
	return bidders
}

// PlaceBid validates and appends a new bid. Preconditions run in a fixed
// order, each with its own error, and a failed precondition leaves the
// aggregate untouched. When the bid lands inside the soft-close window the
// end date is pushed out before the bid is appended, so both changes persist
// in the same unit of work.
func (a *Auction) PlaceBid(bidderID uuid.UUID, amount decimal.Decimal, now time.Time) (*Bid, error) {
	if bidderID == a.OwnerID {
		log.Warn("Bid rejected: owner cannot bid on own auction",
			zap.String("auctionID", a.ID.String()),
			zap.String("bidderID", bidderID.String()),
		)
		return nil, ErrOwnerBid
	}

	if a.Status != StatusActive || !a.EndDate.After(now) {
		log.Warn("Bid rejected: auction finished",
			zap.String("auctionID", a.ID.String()),
			zap.String("status", string(a.Status)),
			zap.Time("endDate", a.EndDate),
			zap.String("bidderID", bidderID.String()),
		)
		return nil, ErrAuctionFinished
	}

	minAllowed := a.MinimumAllowedBid()
	if amount.LessThan(minAllowed) {
		log.Warn("Bid rejected: amount below minimum",
			zap.String("auctionID", a.ID.String()),
			zap.String("amount", amount.String()),
			zap.String("minimumAllowed", minAllowed.String()),
			zap.String("bidderID", bidderID.String()),
		)
		return nil, &BidTooLowError{MinimumAllowed: minAllowed}
	}

	remaining := a.EndDate.Sub(now)
	if remaining <= SnipeGuardWindow {
		log.Warn("Bid rejected: inside snipe guard window",
			zap.String("auctionID", a.ID.String()),
			zap.Duration("remaining", remaining),
			zap.String("bidderID", bidderID.String()),
		)
		return nil, ErrAuctionClosing
	}

	if remaining < SoftCloseWindow {
		originalEndDate := a.EndDate
		a.EndDate = now.Add(SoftCloseWindow)
		log.Info("Auction end date extended",
			zap.String("auctionID", a.ID.String()),
			zap.Time("originalEndDate", originalEndDate),
			zap.Time("newEndDate", a.EndDate),
			zap.String("bidderID", bidderID.String()),
		)
	}

	bid := NewBid(uuid.New(), a.ID, bidderID, amount, now)
	a.Bids = append(a.Bids, bid)

	log.Info("Bid placed",
		zap.String("auctionID", a.ID.String()),
		zap.String("bidID", bid.ID.String()),
		zap.String("bidderID", bidderID.String()),
		zap.String("amount", amount.String()),
		zap.Time("endDate", a.EndDate),
	)

	return bid, nil
}

// Approve moves a pending auction to ACTIVE (moderation trigger).
func (a *Auction) Approve() error {
	if a.Status != StatusPendingApproval {
		log.Warn("Attempted to approve auction that is not pending",
			zap.String("auctionID", a.ID.String()),
			zap.String("status", string(a.Status)),
		)
		return ErrInvalidTransition
	}
	a.Status = StatusActive
	log.Info("Auction approved",
		zap.String("auctionID", a.ID.String()),
		zap.Time("endDate", a.EndDate),
	)
	return nil
}

// Cancel moves a pending or active auction to CANCELLED. Terminal states
// reject the transition.
func (a *Auction) Cancel() error {
	if a.Status == StatusExpired || a.Status == StatusCancelled {
		log.Warn("Attempted to cancel auction in terminal state",
			zap.String("auctionID", a.ID.String()),
			zap.String("status", string(a.Status)),
		)
		return ErrInvalidTransition
	}
	a.Status = StatusCancelled
	log.Info("Auction cancelled", zap.String("auctionID", a.ID.String()))
	return nil
}

// Expire closes an ACTIVE auction whose end date has passed and fixes the
// winner from the highest enabled bid. This is the only place winnerID is
// ever set. Returns the winning bid, nil when the auction had no enabled
// bids.
func (a *Auction) Expire(now time.Time) (*Bid, error) {
	if a.Status != StatusActive {
		return nil, ErrInvalidTransition
	}
	if a.EndDate.After(now) {
		return nil, ErrAuctionNotEnded
	}

	a.Status = StatusExpired
	winning := a.HighestEnabledBid()
	if winning != nil {
		winnerID := winning.BidderID
		a.WinnerID = &winnerID
	}

	log.Info("Auction expired",
		zap.String("auctionID", a.ID.String()),
		zap.Bool("hasWinner", winning != nil),
	)
	return winning, nil
}

// DisableBidsBy flips every enabled bid from the given bidder to disabled and
// returns the affected bids. The bids are kept for audit, they just stop
// counting toward the highest-bid computation.
func (a *Auction) DisableBidsBy(bidderID uuid.UUID) []*Bid {
	var disabled []*Bid
	for _, b := range a.Bids {
		if b.Enabled && b.BidderID == bidderID {
			b.Enabled = false
			disabled = append(disabled, b)
		}
	}
	if len(disabled) > 0 {
		log.Info("Bids disabled by moderation",
			zap.String("auctionID", a.ID.String()),
			zap.String("bidderID", bidderID.String()),
			zap.Int("count", len(disabled)),
		)
	}
	return disabled
}
