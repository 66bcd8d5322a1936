package httpapi

import (
	"errors"

	"github.com/bidworks/auctiond/internal/auction/application"
	"github.com/bidworks/auctiond/internal/auction/domain"
	userdomain "github.com/bidworks/auctiond/internal/user/domain"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AuctionHandler exposes the auction service over HTTP. Identity arrives as
// an explicit id in the request body; session handling belongs to the
// excluded auth layer in front of this service.
type AuctionHandler struct {
	auctionService application.AuctionService
}

func NewAuctionHandler(auctionService application.AuctionService) *AuctionHandler {
	return &AuctionHandler{auctionService: auctionService}
}

func (h *AuctionHandler) RegisterRoutes(app *fiber.App) {
	app.Get("/auctions/:id", h.getAuctionState)
	app.Post("/auctions/:id/bids", h.placeBid)
	app.Post("/auctions/:id/approve", h.approveAuction)
	app.Post("/auctions/:id/cancel", h.cancelAuction)
	app.Post("/moderation/bidders/:id/disable", h.disableBidder)
	app.Post("/moderation/owners/:id/disable", h.disableOwner)
}

type placeBidRequest struct {
	BidderID uuid.UUID       `json:"bidder_id"`
	Amount   decimal.Decimal `json:"amount"`
}

func (h *AuctionHandler) placeBid(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}
	var req placeBidRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	event, err := h.auctionService.PlaceBid(c.Context(), application.PlaceBidDTO{
		AuctionID: auctionID,
		BidderID:  req.BidderID,
		Amount:    req.Amount,
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(event)
}

func (h *AuctionHandler) getAuctionState(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}
	state, err := h.auctionService.GetAuctionState(c.Context(), auctionID)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(state)
}

func (h *AuctionHandler) approveAuction(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}
	if err := h.auctionService.ApproveAuction(c.Context(), auctionID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuctionHandler) cancelAuction(c *fiber.Ctx) error {
	auctionID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid auction id"})
	}
	if err := h.auctionService.CancelAuction(c.Context(), auctionID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuctionHandler) disableBidder(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	if err := h.auctionService.DisableBidder(c.Context(), userID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *AuctionHandler) disableOwner(c *fiber.Ctx) error {
	userID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid user id"})
	}
	if err := h.auctionService.DisableOwner(c.Context(), userID); err != nil {
		return writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// writeError maps domain errors to HTTP responses. A rejected bid always
// reports the computed minimum so the client can retry with a valid amount.
func writeError(c *fiber.Ctx, err error) error {
	var tooLow *domain.BidTooLowError
	if errors.As(err, &tooLow) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error":           tooLow.Error(),
			"minimum_allowed": tooLow.MinimumAllowed,
		})
	}

	switch {
	case errors.Is(err, domain.ErrAuctionNotFound), errors.Is(err, userdomain.ErrUserNotFound):
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrOwnerBid),
		errors.Is(err, domain.ErrAuctionFinished),
		errors.Is(err, domain.ErrAuctionClosing),
		errors.Is(err, domain.ErrInvalidAmount):
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidTransition):
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"error": err.Error()})
	case errors.Is(err, userdomain.ErrUserDisabled):
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": err.Error()})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal error"})
	}
}
