package application

import (
	"context"
	"fmt"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ModerationUseCase handles the cascades triggered when a user is disabled by
// moderation: a disabled bidder has every enabled bid voided (kept for
// audit), a disabled owner has every non-terminal auction cancelled. Both
// change what "highest enabled bid" means for still-active auctions, so each
// affected auction is processed under its own row lock.
type ModerationUseCase struct {
	txStarter   domain.TxStarter
	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
	dispatcher  EventDispatcher
	cancelUC    *CancelAuctionUseCase
}

func NewModerationUseCase(
	txStarter domain.TxStarter,
	auctionRepo domain.AuctionRepository,
	bidRepo domain.BidRepository,
	dispatcher EventDispatcher,
	cancelUC *CancelAuctionUseCase,
) *ModerationUseCase {
	return &ModerationUseCase{
		txStarter:   txStarter,
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		dispatcher:  dispatcher,
		cancelUC:    cancelUC,
	}
}

// DisableBidder voids every enabled bid by the bidder, auction by auction.
// A failure on one auction is logged and skipped, the rest of the batch still
// runs.
func (uc *ModerationUseCase) DisableBidder(ctx context.Context, bidderID uuid.UUID) error {
	auctionIDs, err := uc.bidRepo.AuctionIDsWithEnabledBidsBy(ctx, bidderID)
	if err != nil {
		return fmt.Errorf("disable bidder: failed to list auctions for bidder %s: %w", bidderID, err)
	}

	for _, auctionID := range auctionIDs {
		if err := uc.disableBidsOnAuction(ctx, auctionID, bidderID); err != nil {
			log.Error("DisableBidder: failed for auction, skipping",
				zap.String("auctionID", auctionID.String()),
				zap.String("bidderID", bidderID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (uc *ModerationUseCase) disableBidsOnAuction(ctx context.Context, auctionID, bidderID uuid.UUID) error {
	tx, err := uc.txStarter.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	auction, err := uc.auctionRepo.GetByIDForUpdate(ctx, tx, auctionID)
	if err != nil {
		return fmt.Errorf("failed to load auction: %w", err)
	}

	disabled := auction.DisableBidsBy(bidderID)
	if len(disabled) == 0 {
		// already voided by an earlier run
		err = tx.Rollback(ctx)
		return err
	}

	if err = uc.bidRepo.DisableByBidder(ctx, tx, auctionID, bidderID); err != nil {
		return fmt.Errorf("failed to disable bids: %w", err)
	}

	// the other participants learn a bid on this auction was voided
	outbox := &Outbox{}
	if auction.OwnerID != bidderID {
		outbox.AddNotification(domain.NotificationEvent{
			RecipientID: auction.OwnerID,
			Type:        domain.NotificationBidCancelled,
			Title:       "A bid was voided",
			Body:        fmt.Sprintf("A bid on %q was voided by moderation.", auction.Title),
			Metadata:    map[string]string{"auction_id": auction.ID.String()},
		})
	}
	for _, participant := range auction.Bidders() {
		if participant == bidderID {
			continue
		}
		outbox.AddNotification(domain.NotificationEvent{
			RecipientID: participant,
			Type:        domain.NotificationBidCancelled,
			Title:       "A bid was voided",
			Body:        fmt.Sprintf("A bid on %q was voided by moderation, the current highest bid may have changed.", auction.Title),
			Metadata:    map[string]string{"auction_id": auction.ID.String()},
		})
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	outbox.Flush(uc.dispatcher, nil)
	return nil
}

// DisableOwner cancels every non-terminal auction of the owner through the
// regular cancel path, with its usual notification fan-out. Per-auction
// failures are logged and skipped.
func (uc *ModerationUseCase) DisableOwner(ctx context.Context, ownerID uuid.UUID) error {
	auctionIDs, err := uc.auctionRepo.FindNonTerminalIDsByOwner(ctx, ownerID)
	if err != nil {
		return fmt.Errorf("disable owner: failed to list auctions for owner %s: %w", ownerID, err)
	}

	for _, auctionID := range auctionIDs {
		if err := uc.cancelUC.Execute(ctx, auctionID); err != nil {
			log.Error("DisableOwner: failed to cancel auction, skipping",
				zap.String("auctionID", auctionID.String()),
				zap.String("ownerID", ownerID.String()),
				zap.Error(err),
			)
		}
	}
	return nil
}
