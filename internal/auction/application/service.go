package application

import (
	"context"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/google/uuid"
)

// AuctionService is the application interface of the auction module, exposed
// to the infra layer (HTTP handlers, websocket handlers).
type AuctionService interface {
	// PlaceBid handles a user bidding on an auction and returns the committed
	// bid event, already broadcast to watchers.
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.BidEvent, error)
	// ApproveAuction and CancelAuction are the moderation triggers into the
	// state machine.
	ApproveAuction(ctx context.Context, auctionID uuid.UUID) error
	CancelAuction(ctx context.Context, auctionID uuid.UUID) error
	// DisableBidder and DisableOwner run the moderation cascades.
	DisableBidder(ctx context.Context, bidderID uuid.UUID) error
	DisableOwner(ctx context.Context, ownerID uuid.UUID) error
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error)
}

type auctionService struct {
	placeBidUC        *PlaceBidUseCase
	approveUC         *ApproveAuctionUseCase
	cancelUC          *CancelAuctionUseCase
	moderationUC      *ModerationUseCase
	getAuctionStateUC *GetAuctionStateUseCase
}

func NewAuctionService(
	placeBidUC *PlaceBidUseCase,
	approveUC *ApproveAuctionUseCase,
	cancelUC *CancelAuctionUseCase,
	moderationUC *ModerationUseCase,
	getAuctionStateUC *GetAuctionStateUseCase,
) AuctionService {
	return &auctionService{
		placeBidUC:        placeBidUC,
		approveUC:         approveUC,
		cancelUC:          cancelUC,
		moderationUC:      moderationUC,
		getAuctionStateUC: getAuctionStateUC,
	}
}

func (s *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.BidEvent, error) {
	return s.placeBidUC.Execute(ctx, cmd)
}

func (s *auctionService) ApproveAuction(ctx context.Context, auctionID uuid.UUID) error {
	return s.approveUC.Execute(ctx, auctionID)
}

func (s *auctionService) CancelAuction(ctx context.Context, auctionID uuid.UUID) error {
	return s.cancelUC.Execute(ctx, auctionID)
}

func (s *auctionService) DisableBidder(ctx context.Context, bidderID uuid.UUID) error {
	return s.moderationUC.DisableBidder(ctx, bidderID)
}

func (s *auctionService) DisableOwner(ctx context.Context, ownerID uuid.UUID) error {
	return s.moderationUC.DisableOwner(ctx, ownerID)
}

func (s *auctionService) GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	return s.getAuctionStateUC.Execute(ctx, auctionID)
}
