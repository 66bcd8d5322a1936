package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/bidworks/auctiond/internal/shared/logger"
	userdomain "github.com/bidworks/auctiond/internal/user/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// PlaceBidDTO is the input for the PlaceBid use case. The bidder identity is
// always passed in explicitly, the core never reaches into ambient request
// state.
type PlaceBidDTO struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
}

// PlaceBidUseCase validates and commits a single bid against one auction.
// The whole read-validate-write sequence runs inside one transaction holding
// the auction's row lock, so two racing bids serialize and the loser
// revalidates against the winner's amount.
type PlaceBidUseCase struct {
	txStarter   domain.TxStarter
	auctionRepo domain.AuctionRepository
	bidRepo     domain.BidRepository
	userRepo    userdomain.UserRepository
	dispatcher  EventDispatcher
	broadcaster BidBroadcaster
	now         func() time.Time
}

func NewPlaceBidUseCase(
	txStarter domain.TxStarter,
	auctionRepo domain.AuctionRepository,
	bidRepo domain.BidRepository,
	userRepo userdomain.UserRepository,
	dispatcher EventDispatcher,
	broadcaster BidBroadcaster,
) *PlaceBidUseCase {
	return &PlaceBidUseCase{
		txStarter:   txStarter,
		auctionRepo: auctionRepo,
		bidRepo:     bidRepo,
		userRepo:    userRepo,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		now:         time.Now,
	}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*domain.BidEvent, error) {
	log.Info("Executing PlaceBidUseCase",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.String("amount", cmd.Amount.String()),
	)

	if !cmd.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	bidder, err := uc.userRepo.GetByID(ctx, cmd.BidderID)
	if err != nil {
		return nil, fmt.Errorf("place bid: failed to load bidder %s: %w", cmd.BidderID, err)
	}
	if bidder.Disabled {
		return nil, fmt.Errorf("place bid: bidder %s: %w", cmd.BidderID, userdomain.ErrUserDisabled)
	}

	tx, err := uc.txStarter.Begin(ctx)
	if err != nil {
		log.Error("PlaceBidUseCase: failed to begin transaction",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("place bid: failed to begin transaction: %w", err)
	}
	// rollback on any error path; Commit below makes this a no-op on success
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	// row lock taken here: from now until commit this auction is ours alone
	auction, err := uc.auctionRepo.GetByIDForUpdate(ctx, tx, cmd.AuctionID)
	if err != nil {
		if !errors.Is(err, domain.ErrAuctionNotFound) {
			log.Error("PlaceBidUseCase: failed to load auction",
				zap.String("auctionID", cmd.AuctionID.String()),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("place bid: failed to load auction %s: %w", cmd.AuctionID, err)
	}

	previousHighest := auction.HighestEnabledBid()

	bid, err := auction.PlaceBid(cmd.BidderID, cmd.Amount, uc.now())
	if err != nil {
		return nil, fmt.Errorf("place bid: rejected for auction %s: %w", cmd.AuctionID, err)
	}

	if err = uc.bidRepo.Save(ctx, tx, bid); err != nil {
		log.Error("PlaceBidUseCase: failed to save bid",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.String("bidID", bid.ID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("place bid: failed to save bid for auction %s: %w", cmd.AuctionID, err)
	}
	// persists the possibly extended end date together with the bid
	if err = uc.auctionRepo.Save(ctx, tx, auction); err != nil {
		log.Error("PlaceBidUseCase: failed to save auction",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("place bid: failed to save auction %s: %w", cmd.AuctionID, err)
	}

	bidEvent := domain.BidEvent{
		BidID:             bid.ID,
		Amount:            bid.Amount,
		BidderDisplayName: bidder.DisplayName,
		CreatedAt:         bid.CreatedAt,
		AuctionID:         auction.ID,
		NewEndDate:        auction.EndDate,
	}

	outbox := &Outbox{}
	if previousHighest != nil && previousHighest.BidderID != cmd.BidderID {
		outbox.AddNotification(domain.NotificationEvent{
			RecipientID: previousHighest.BidderID,
			Type:        domain.NotificationOutbid,
			Title:       "You have been outbid",
			Body:        fmt.Sprintf("Someone placed %s on %q, topping your bid of %s.", bid.Amount, auction.Title, previousHighest.Amount),
			Metadata: map[string]string{
				"auction_id": auction.ID.String(),
				"amount":     bid.Amount.String(),
			},
		})
	}
	outbox.AddNotification(domain.NotificationEvent{
		RecipientID: auction.OwnerID,
		Type:        domain.NotificationNewBidOnMyAuction,
		Title:       "New bid on your auction",
		Body:        fmt.Sprintf("%s bid %s on %q.", bidder.DisplayName, bid.Amount, auction.Title),
		Metadata: map[string]string{
			"auction_id": auction.ID.String(),
			"bid_id":     bid.ID.String(),
		},
	})
	outbox.AddBidEvent(bidEvent)

	if err = tx.Commit(ctx); err != nil {
		log.Error("PlaceBidUseCase: failed to commit transaction",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("place bid: failed to commit transaction: %w", err)
	}

	// events leave the process only once the bid is durable
	outbox.Flush(uc.dispatcher, uc.broadcaster)

	log.Info("PlaceBidUseCase: bid committed",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidID", bid.ID.String()),
		zap.Time("newEndDate", auction.EndDate),
	)

	return &bidEvent, nil
}
