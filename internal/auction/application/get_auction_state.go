package application

import (
	"context"
	"time"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionStateDTO is the read model exposed to HTTP/WS clients. It carries
// the computed minimum-allowed next bid so a rejected bidder can retry with a
// valid amount right away.
type AuctionStateDTO struct {
	AuctionID         uuid.UUID        `json:"auction_id"`
	Title             string           `json:"title"`
	Description       string           `json:"description"`
	Status            string           `json:"status"`
	StartingAmount    decimal.Decimal  `json:"starting_amount"`
	MinBidIncrement   decimal.Decimal  `json:"min_bid_increment"`
	MinimumAllowedBid decimal.Decimal  `json:"minimum_allowed_bid"`
	EndDate           time.Time        `json:"end_date"`
	WinnerID          *uuid.UUID       `json:"winner_id,omitempty"`
	HighestBidAmount  *decimal.Decimal `json:"highest_bid_amount,omitempty"`
	HighestBidderID   *uuid.UUID       `json:"highest_bidder_id,omitempty"`
	BidCount          int              `json:"bid_count"`
}

// GetAuctionStateUseCase retrieves the current state of an auction.
type GetAuctionStateUseCase struct {
	auctionRepo domain.AuctionRepository
}

func NewGetAuctionStateUseCase(auctionRepo domain.AuctionRepository) *GetAuctionStateUseCase {
	return &GetAuctionStateUseCase{auctionRepo: auctionRepo}
}

func (uc *GetAuctionStateUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	auction, err := uc.auctionRepo.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}

	dto := &AuctionStateDTO{
		AuctionID:         auction.ID,
		Title:             auction.Title,
		Description:       auction.Description,
		Status:            string(auction.Status),
		StartingAmount:    auction.StartingAmount,
		MinBidIncrement:   auction.MinBidIncrement,
		MinimumAllowedBid: auction.MinimumAllowedBid(),
		EndDate:           auction.EndDate,
		WinnerID:          auction.WinnerID,
		BidCount:          len(auction.Bids),
	}
	if highest := auction.HighestEnabledBid(); highest != nil {
		amount := highest.Amount
		bidderID := highest.BidderID
		dto.HighestBidAmount = &amount
		dto.HighestBidderID = &bidderID
	}

	return dto, nil
}
