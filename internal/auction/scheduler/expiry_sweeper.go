package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bidworks/auctiond/internal/auction/application"
	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/bidworks/auctiond/internal/shared/logger"
	userdomain "github.com/bidworks/auctiond/internal/user/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// DefaultExpirySweepInterval keeps every auction unresolved for at most a
// little over a minute without hammering storage on every tick.
const DefaultExpirySweepInterval = 80 * time.Second

// ExpirySweeper is the only actor that moves auctions from ACTIVE to EXPIRED.
// On every tick it queries the auctions whose end date has passed and closes
// each one in its own transaction, under the same row lock the bid path
// takes: either a racing bid commits first (pushing the end date out, the
// auction drops off the query) or the sweep commits first (the bid then fails
// the "auction finished" precondition). Re-running after a crash is safe
// because the query filters on status, already-expired auctions are skipped.
type ExpirySweeper struct {
	interval    time.Duration
	txStarter   domain.TxStarter
	auctionRepo domain.AuctionRepository
	userRepo    userdomain.UserRepository
	dispatcher  application.EventDispatcher
	now         func() time.Time
}

func NewExpirySweeper(
	interval time.Duration,
	txStarter domain.TxStarter,
	auctionRepo domain.AuctionRepository,
	userRepo userdomain.UserRepository,
	dispatcher application.EventDispatcher,
) *ExpirySweeper {
	if interval <= 0 {
		interval = DefaultExpirySweepInterval
	}
	return &ExpirySweeper{
		interval:    interval,
		txStarter:   txStarter,
		auctionRepo: auctionRepo,
		userRepo:    userRepo,
		dispatcher:  dispatcher,
		now:         time.Now,
	}
}

// Run ticks until the context is cancelled. Every tick is independent, a
// failed sweep simply runs again on the next one.
func (s *ExpirySweeper) Run(ctx context.Context) {
	log.Info("ExpirySweeper started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("ExpirySweeper shutting down")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce resolves every auction whose end date has passed. A failure on
// one auction is logged and skipped; that auction still matches the query and
// is retried next tick.
func (s *ExpirySweeper) SweepOnce(ctx context.Context) {
	ids, err := s.auctionRepo.FindExpiredIDs(ctx, s.now())
	if err != nil {
		log.Error("ExpirySweeper: failed to query expired auctions", zap.Error(err))
		return
	}
	if len(ids) == 0 {
		return
	}
	log.Info("ExpirySweeper: processing batch", zap.Int("count", len(ids)))

	for _, id := range ids {
		if err := s.expireOne(ctx, id); err != nil {
			log.Error("ExpirySweeper: failed to expire auction, will retry next tick",
				zap.String("auctionID", id.String()),
				zap.Error(err),
			)
		}
	}
}

func (s *ExpirySweeper) expireOne(ctx context.Context, auctionID uuid.UUID) error {
	tx, err := s.txStarter.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	auction, err := s.auctionRepo.GetByIDForUpdate(ctx, tx, auctionID)
	if err != nil {
		return fmt.Errorf("failed to load auction: %w", err)
	}

	winning, err := auction.Expire(s.now())
	if err != nil {
		// state changed between the query and the lock: an overlapping sweep
		// already closed it, or a late bid pushed the end date out
		if errors.Is(err, domain.ErrInvalidTransition) || errors.Is(err, domain.ErrAuctionNotEnded) {
			log.Info("ExpirySweeper: auction no longer expirable, skipping",
				zap.String("auctionID", auctionID.String()),
			)
			err = tx.Rollback(ctx)
			return err
		}
		return err
	}

	if err = s.auctionRepo.Save(ctx, tx, auction); err != nil {
		return fmt.Errorf("failed to save auction: %w", err)
	}
	if winning != nil {
		if err = s.auctionRepo.GrantChatAccess(ctx, tx, auction.ID, winning.BidderID, auction.OwnerID); err != nil {
			return fmt.Errorf("failed to grant chat access: %w", err)
		}
	}

	outbox := s.buildOutbox(ctx, auction, winning)

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	outbox.Flush(s.dispatcher, nil)
	return nil
}

// buildOutbox assembles the close-event fan-out: no bids notifies only the
// owner; a winner gets notification+email, the owner gets notification+email,
// and every other enabled bidder gets a lost notice.
func (s *ExpirySweeper) buildOutbox(ctx context.Context, auction *domain.Auction, winning *domain.Bid) *application.Outbox {
	outbox := &application.Outbox{}

	if winning == nil {
		outbox.AddNotification(domain.NotificationEvent{
			RecipientID: auction.OwnerID,
			Type:        domain.NotificationAuctionEnded,
			Title:       "Your auction ended",
			Body:        fmt.Sprintf("%q ended without any bids.", auction.Title),
			Metadata:    map[string]string{"auction_id": auction.ID.String()},
		})
		return outbox
	}

	winner := s.lookupUser(ctx, winning.BidderID)
	winnerName := "the winning bidder"
	if winner != nil {
		winnerName = winner.DisplayName
	}

	outbox.AddNotification(domain.NotificationEvent{
		RecipientID: winning.BidderID,
		Type:        domain.NotificationAuctionWon,
		Title:       "You won the auction",
		Body:        fmt.Sprintf("You won %q with a bid of %s.", auction.Title, winning.Amount),
		Metadata: map[string]string{
			"auction_id": auction.ID.String(),
			"amount":     winning.Amount.String(),
		},
	})
	if winner != nil {
		outbox.AddEmail(domain.EmailEvent{
			To:      winner.Email,
			Subject: fmt.Sprintf("You won %q", auction.Title),
			Body:    fmt.Sprintf("Congratulations, your bid of %s won %q. You can now contact the seller.", winning.Amount, auction.Title),
		})
	}

	outbox.AddNotification(domain.NotificationEvent{
		RecipientID: auction.OwnerID,
		Type:        domain.NotificationAuctionEnded,
		Title:       "Your auction ended",
		Body:        fmt.Sprintf("%q sold to %s for %s.", auction.Title, winnerName, winning.Amount),
		Metadata: map[string]string{
			"auction_id": auction.ID.String(),
			"winner_id":  winning.BidderID.String(),
		},
	})
	if owner := s.lookupUser(ctx, auction.OwnerID); owner != nil {
		outbox.AddEmail(domain.EmailEvent{
			To:      owner.Email,
			Subject: fmt.Sprintf("Your auction %q ended", auction.Title),
			Body:    fmt.Sprintf("%q sold to %s for %s. You can now contact the winner.", auction.Title, winnerName, winning.Amount),
		})
	}

	for _, bidderID := range auction.EnabledBidders() {
		if bidderID == winning.BidderID {
			continue
		}
		outbox.AddNotification(domain.NotificationEvent{
			RecipientID: bidderID,
			Type:        domain.NotificationAuctionLost,
			Title:       "Auction ended",
			Body:        fmt.Sprintf("%q ended, another bidder won.", auction.Title),
			Metadata:    map[string]string{"auction_id": auction.ID.String()},
		})
	}

	return outbox
}

// lookupUser is best-effort: a missing user costs an email, never the sweep.
func (s *ExpirySweeper) lookupUser(ctx context.Context, id uuid.UUID) *userdomain.User {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		log.Warn("ExpirySweeper: failed to load user for email fan-out",
			zap.String("userID", id.String()),
			zap.Error(err),
		)
		return nil
	}
	return user
}
