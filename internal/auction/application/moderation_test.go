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

func TestDisableBidder(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: alice, Amount: dec(t, "110")})
	require.NoError(t, err)
	_, err = f.placeBid.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: bob, Amount: dec(t, "120")})
	require.NoError(t, err)
	_, err = f.placeBid.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: alice, Amount: dec(t, "130")})
	require.NoError(t, err)

	require.NoError(t, f.moderation.DisableBidder(context.Background(), alice))

	// alice's bids are voided, not deleted
	bids := f.store.LedgerBids(auction.ID)
	require.Len(t, bids, 3)
	for _, b := range bids {
		if b.BidderID == alice {
			assert.False(t, b.Enabled)
		} else {
			assert.True(t, b.Enabled)
		}
	}

	// highest enabled bid moved to bob
	stored := f.store.Auction(auction.ID)
	highest := stored.HighestEnabledBid()
	require.NotNil(t, highest)
	assert.Equal(t, bob, highest.BidderID)

	// the other participants learn about the voided bid, alice does not
	voided := f.dispatcher.ofType(domain.NotificationBidCancelled)
	recipients := make(map[uuid.UUID]bool)
	for _, n := range voided {
		recipients[n.RecipientID] = true
	}
	assert.True(t, recipients[owner])
	assert.True(t, recipients[bob])
	assert.False(t, recipients[alice])
}

func TestDisableBidder_SecondRunIsNoop(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: alice, Amount: dec(t, "110")})
	require.NoError(t, err)

	require.NoError(t, f.moderation.DisableBidder(context.Background(), alice))
	before := f.dispatcher.count()

	require.NoError(t, f.moderation.DisableBidder(context.Background(), alice))
	assert.Equal(t, before, f.dispatcher.count())
}

// the new minimum after a void reflects the surviving highest bid
func TestDisableBidder_ChangesMinimumForNextBid(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: alice, Amount: dec(t, "200")})
	require.NoError(t, err)
	require.NoError(t, f.moderation.DisableBidder(context.Background(), alice))

	// with alice voided the floor falls back to starting + increment
	_, err = f.placeBid.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: bob, Amount: dec(t, "110")})
	require.NoError(t, err)
}

func TestDisableOwner_CancelsNonTerminalAuctionsOnce(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")

	pending := domain.NewAuction(uuid.New(), owner, "pending lot", "", dec(t, "100"), dec(t, "10"),
		f.now, f.now.Add(time.Hour))
	f.store.PutAuction(pending)

	active := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))
	_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{AuctionID: active.ID, BidderID: alice, Amount: dec(t, "110")})
	require.NoError(t, err)

	expired := f.seedActiveAuction(t, owner, f.now.Add(-time.Hour))
	stored := f.store.Auction(expired.ID)
	_, err = stored.Expire(f.now)
	require.NoError(t, err)
	f.store.PutAuction(stored)

	require.NoError(t, f.moderation.DisableOwner(context.Background(), owner))

	assert.Equal(t, domain.StatusCancelled, f.store.Auction(pending.ID).Status)
	assert.Equal(t, domain.StatusCancelled, f.store.Auction(active.ID).Status)
	// terminal auctions are left alone
	assert.Equal(t, domain.StatusExpired, f.store.Auction(expired.ID).Status)

	cancelled := f.dispatcher.ofType(domain.NotificationAuctionCancelled)
	assert.Len(t, cancelled, 3) // owner twice (one per auction) + alice

	// second run: nothing left to cancel
	before := f.dispatcher.count()
	require.NoError(t, f.moderation.DisableOwner(context.Background(), owner))
	assert.Equal(t, before, f.dispatcher.count())
}
