package application

import (
	"context"
	"fmt"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ApproveAuctionUseCase moves a pending auction to ACTIVE (moderation
// trigger) and notifies the owner.
type ApproveAuctionUseCase struct {
	txStarter   domain.TxStarter
	auctionRepo domain.AuctionRepository
	dispatcher  EventDispatcher
}

func NewApproveAuctionUseCase(txStarter domain.TxStarter, auctionRepo domain.AuctionRepository, dispatcher EventDispatcher) *ApproveAuctionUseCase {
	return &ApproveAuctionUseCase{
		txStarter:   txStarter,
		auctionRepo: auctionRepo,
		dispatcher:  dispatcher,
	}
}

func (uc *ApproveAuctionUseCase) Execute(ctx context.Context, auctionID uuid.UUID) error {
	tx, err := uc.txStarter.Begin(ctx)
	if err != nil {
		return fmt.Errorf("approve auction: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	auction, err := uc.auctionRepo.GetByIDForUpdate(ctx, tx, auctionID)
	if err != nil {
		return fmt.Errorf("approve auction: failed to load auction %s: %w", auctionID, err)
	}
	if err = auction.Approve(); err != nil {
		return fmt.Errorf("approve auction %s: %w", auctionID, err)
	}
	if err = uc.auctionRepo.Save(ctx, tx, auction); err != nil {
		return fmt.Errorf("approve auction: failed to save auction %s: %w", auctionID, err)
	}

	outbox := &Outbox{}
	outbox.AddNotification(domain.NotificationEvent{
		RecipientID: auction.OwnerID,
		Type:        domain.NotificationAuctionApproved,
		Title:       "Your auction is live",
		Body:        fmt.Sprintf("%q was approved and is now accepting bids.", auction.Title),
		Metadata:    map[string]string{"auction_id": auction.ID.String()},
	})

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("approve auction: failed to commit transaction: %w", err)
	}
	outbox.Flush(uc.dispatcher, nil)

	log.Info("Auction approved", zap.String("auctionID", auctionID.String()))
	return nil
}

// CancelAuctionUseCase moves a pending or active auction to CANCELLED and
// fans the cancellation out to the owner and every distinct bidder. Also used
// by the owner-disable cascade.
type CancelAuctionUseCase struct {
	txStarter   domain.TxStarter
	auctionRepo domain.AuctionRepository
	dispatcher  EventDispatcher
}

func NewCancelAuctionUseCase(txStarter domain.TxStarter, auctionRepo domain.AuctionRepository, dispatcher EventDispatcher) *CancelAuctionUseCase {
	return &CancelAuctionUseCase{
		txStarter:   txStarter,
		auctionRepo: auctionRepo,
		dispatcher:  dispatcher,
	}
}

func (uc *CancelAuctionUseCase) Execute(ctx context.Context, auctionID uuid.UUID) error {
	tx, err := uc.txStarter.Begin(ctx)
	if err != nil {
		return fmt.Errorf("cancel auction: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	auction, err := uc.auctionRepo.GetByIDForUpdate(ctx, tx, auctionID)
	if err != nil {
		return fmt.Errorf("cancel auction: failed to load auction %s: %w", auctionID, err)
	}
	if err = auction.Cancel(); err != nil {
		return fmt.Errorf("cancel auction %s: %w", auctionID, err)
	}
	if err = uc.auctionRepo.Save(ctx, tx, auction); err != nil {
		return fmt.Errorf("cancel auction: failed to save auction %s: %w", auctionID, err)
	}

	outbox := &Outbox{}
	outbox.AddNotification(domain.NotificationEvent{
		RecipientID: auction.OwnerID,
		Type:        domain.NotificationAuctionCancelled,
		Title:       "Your auction was cancelled",
		Body:        fmt.Sprintf("%q has been cancelled.", auction.Title),
		Metadata:    map[string]string{"auction_id": auction.ID.String()},
	})
	for _, bidderID := range auction.Bidders() {
		outbox.AddNotification(domain.NotificationEvent{
			RecipientID: bidderID,
			Type:        domain.NotificationAuctionCancelled,
			Title:       "Auction cancelled",
			Body:        fmt.Sprintf("The auction %q you bid on has been cancelled.", auction.Title),
			Metadata:    map[string]string{"auction_id": auction.ID.String()},
		})
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("cancel auction: failed to commit transaction: %w", err)
	}
	outbox.Flush(uc.dispatcher, nil)

	log.Info("Auction cancelled", zap.String("auctionID", auctionID.String()))
	return nil
}
