package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrAuctionNotFound   = errors.New("auction not found")
	ErrOwnerBid          = errors.New("owner cannot bid on own auction")
	ErrAuctionFinished   = errors.New("auction finished")
	ErrAuctionClosing    = errors.New("auction is closing, bids are no longer accepted")
	ErrInvalidAmount     = errors.New("bid amount must be greater than zero")
	ErrInvalidTransition = errors.New("illegal auction state transition")
	ErrAuctionNotEnded   = errors.New("auction end date has not passed")
)

// BidTooLowError carries the computed minimum so clients can retry with a
// valid amount instead of guessing.
type BidTooLowError struct {
	MinimumAllowed decimal.Decimal
}

func (e *BidTooLowError) Error() string {
	return fmt.Sprintf("bid amount too low, minimum allowed is %s", e.MinimumAllowed.String())
}
