package application

import (
	"context"
	"testing"
	"time"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestApproveAuction(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	a := domain.NewAuction(uuid.New(), owner, "lamp", "", dec(t, "50"), dec(t, "5"),
		f.now, f.now.Add(time.Hour))
	f.store.PutAuction(a)

	require.NoError(t, f.approve.Execute(context.Background(), a.ID))

	stored := f.store.Auction(a.ID)
	assert.Equal(t, domain.StatusActive, stored.Status)

	approved := f.dispatcher.ofType(domain.NotificationAuctionApproved)
	require.Len(t, approved, 1)
	assert.Equal(t, owner, approved[0].RecipientID)

	// already active: rejected, no second notification
	err := f.approve.Execute(context.Background(), a.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Len(t, f.dispatcher.ofType(domain.NotificationAuctionApproved), 1)
}

func TestCancelAuction_FansOutToBidders(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: alice, Amount: dec(t, "110")})
	require.NoError(t, err)
	_, err = f.placeBid.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: bob, Amount: dec(t, "120")})
	require.NoError(t, err)

	require.NoError(t, f.cancel.Execute(context.Background(), auction.ID))

	stored := f.store.Auction(auction.ID)
	assert.Equal(t, domain.StatusCancelled, stored.Status)

	cancelled := f.dispatcher.ofType(domain.NotificationAuctionCancelled)
	recipients := make(map[uuid.UUID]bool)
	for _, n := range cancelled {
		recipients[n.RecipientID] = true
	}
	assert.Len(t, cancelled, 3) // owner + two distinct bidders
	assert.True(t, recipients[owner])
	assert.True(t, recipients[alice])
	assert.True(t, recipients[bob])
}

func TestCancelAuction_TerminalRejected(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	require.NoError(t, f.cancel.Execute(context.Background(), auction.ID))
	before := f.dispatcher.count()

	err := f.cancel.Execute(context.Background(), auction.ID)
	require.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, before, f.dispatcher.count())
}

func TestCancelledAuctionRejectsBids(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	require.NoError(t, f.cancel.Execute(context.Background(), auction.ID))

	_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{
		AuctionID: auction.ID,
		BidderID:  alice,
		Amount:    dec(t, "500"),
	})
	require.ErrorIs(t, err, domain.ErrAuctionFinished)
}
