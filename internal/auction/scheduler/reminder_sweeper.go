package scheduler

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/bidworks/auctiond/internal/auction/application"
	"github.com/bidworks/auctiond/internal/auction/domain"
	userdomain "github.com/bidworks/auctiond/internal/user/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	// DefaultReminderSweepInterval is how often the reminder sweep runs.
	DefaultReminderSweepInterval = 5 * time.Minute

	// ReminderWindowStart/End bound the "ending soon" window: auctions whose
	// end date falls 5 to 10 minutes out get the reminder. The window is wider
	// than the sweep interval on purpose, a missed tick still catches the
	// auction on the next one; the ending_soon_notified flag keeps the
	// reminder from firing twice.
	ReminderWindowStart = 5 * time.Minute
	ReminderWindowEnd   = 10 * time.Minute
)

// ReminderSweeper flags auctions nearing their end and sends one ending-soon
// reminder per auction to every distinct enabled bidder.
type ReminderSweeper struct {
	interval    time.Duration
	txStarter   domain.TxStarter
	auctionRepo domain.AuctionRepository
	userRepo    userdomain.UserRepository
	dispatcher  application.EventDispatcher
	now         func() time.Time
}

func NewReminderSweeper(
	interval time.Duration,
	txStarter domain.TxStarter,
	auctionRepo domain.AuctionRepository,
	userRepo userdomain.UserRepository,
	dispatcher application.EventDispatcher,
) *ReminderSweeper {
	if interval <= 0 {
		interval = DefaultReminderSweepInterval
	}
	return &ReminderSweeper{
		interval:    interval,
		txStarter:   txStarter,
		auctionRepo: auctionRepo,
		userRepo:    userRepo,
		dispatcher:  dispatcher,
		now:         time.Now,
	}
}

// Run ticks until the context is cancelled.
func (s *ReminderSweeper) Run(ctx context.Context) {
	log.Info("ReminderSweeper started", zap.Duration("interval", s.interval))
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Info("ReminderSweeper shutting down")
			return
		case <-ticker.C:
			s.SweepOnce(ctx)
		}
	}
}

// SweepOnce sends the ending-soon reminder for every auction inside the
// window that has not been reminded yet. Per-auction failures are logged and
// skipped; the auction stays unflagged and is retried while it remains in the
// window.
func (s *ReminderSweeper) SweepOnce(ctx context.Context) {
	now := s.now()
	ids, err := s.auctionRepo.FindEndingSoonIDs(ctx, now.Add(ReminderWindowStart), now.Add(ReminderWindowEnd))
	if err != nil {
		log.Error("ReminderSweeper: failed to query ending-soon auctions", zap.Error(err))
		return
	}

	for _, id := range ids {
		if err := s.remindOne(ctx, id); err != nil {
			log.Error("ReminderSweeper: failed to remind auction, skipping",
				zap.String("auctionID", id.String()),
				zap.Error(err),
			)
		}
	}
}

func (s *ReminderSweeper) remindOne(ctx context.Context, auctionID uuid.UUID) error {
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

	now := s.now()
	// re-check under the lock: a concurrent sweep may have flagged it, a bid
	// may have pushed the end date out, moderation may have closed it
	if auction.Status != domain.StatusActive || auction.EndingSoonNotified || !auction.EndDate.After(now) {
		err = tx.Rollback(ctx)
		return err
	}

	minutesLeft := int(math.Ceil(auction.EndDate.Sub(now).Minutes()))

	outbox := &application.Outbox{}
	for _, bidderID := range auction.EnabledBidders() {
		outbox.AddNotification(domain.NotificationEvent{
			RecipientID: bidderID,
			Type:        domain.NotificationAuctionEndingSoon,
			Title:       "Auction ending soon",
			Body:        fmt.Sprintf("%q ends in about %d minutes.", auction.Title, minutesLeft),
			Metadata: map[string]string{
				"auction_id":   auction.ID.String(),
				"minutes_left": fmt.Sprintf("%d", minutesLeft),
			},
		})
		if bidder, lookupErr := s.userRepo.GetByID(ctx, bidderID); lookupErr == nil {
			outbox.AddEmail(domain.EmailEvent{
				To:      bidder.Email,
				Subject: fmt.Sprintf("%q is ending soon", auction.Title),
				Body:    fmt.Sprintf("The auction %q ends in about %d minutes, place your final bid now.", auction.Title, minutesLeft),
			})
		} else {
			log.Warn("ReminderSweeper: failed to load bidder for email",
				zap.String("bidderID", bidderID.String()),
				zap.Error(lookupErr),
			)
		}
	}

	// flag flips in the same transaction as the reminder decision, the same
	// auction is never reminded twice
	auction.EndingSoonNotified = true
	if err = s.auctionRepo.Save(ctx, tx, auction); err != nil {
		return fmt.Errorf("failed to save auction: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	outbox.Flush(s.dispatcher, nil)

	log.Info("ReminderSweeper: reminder sent",
		zap.String("auctionID", auctionID.String()),
		zap.Int("minutesLeft", minutesLeft),
	)
	return nil
}
