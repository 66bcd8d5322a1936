package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/bidworks/auctiond/internal/auction/domain"
	userdomain "github.com/bidworks/auctiond/internal/user/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaceBid_FirstBid(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	event, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{
		AuctionID: auction.ID,
		BidderID:  alice,
		Amount:    dec(t, "110"),
	})
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, auction.ID, event.AuctionID)
	assert.Equal(t, "alice", event.BidderDisplayName)
	assert.True(t, event.Amount.Equal(dec(t, "110")))

	// bid is durable
	bids := f.store.LedgerBids(auction.ID)
	require.Len(t, bids, 1)
	assert.Equal(t, alice, bids[0].BidderID)

	// owner notified, nobody to outbid yet
	assert.Len(t, f.dispatcher.ofType(domain.NotificationNewBidOnMyAuction), 1)
	assert.Empty(t, f.dispatcher.ofType(domain.NotificationOutbid))

	// watchers saw the committed bid
	broadcasts := f.broadcaster.all()
	require.Len(t, broadcasts, 1)
	assert.Equal(t, event.BidID, broadcasts[0].BidID)
}

func TestPlaceBid_OutbidNotifiesPreviousHighest(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: alice, Amount: dec(t, "110")})
	require.NoError(t, err)
	_, err = f.placeBid.Execute(context.Background(), PlaceBidDTO{AuctionID: auction.ID, BidderID: bob, Amount: dec(t, "120")})
	require.NoError(t, err)

	outbids := f.dispatcher.ofType(domain.NotificationOutbid)
	require.Len(t, outbids, 1)
	assert.Equal(t, alice, outbids[0].RecipientID)
}

func TestPlaceBid_RejectionHasNoSideEffects(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{
		AuctionID: auction.ID,
		BidderID:  alice,
		Amount:    dec(t, "109"),
	})
	var tooLow *domain.BidTooLowError
	require.ErrorAs(t, err, &tooLow)
	assert.True(t, tooLow.MinimumAllowed.Equal(dec(t, "110")))

	// a rejected bid never reaches the ledger and emits nothing
	assert.Empty(t, f.store.LedgerBids(auction.ID))
	assert.Zero(t, f.dispatcher.count())
	assert.Empty(t, f.broadcaster.all())
}

func TestPlaceBid_OwnerRejected(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{
		AuctionID: auction.ID,
		BidderID:  owner,
		Amount:    dec(t, "110"),
	})
	require.ErrorIs(t, err, domain.ErrOwnerBid)
	assert.Empty(t, f.store.LedgerBids(auction.ID))
}

func TestPlaceBid_UnknownAuction(t *testing.T) {
	f := newFixture(t)
	alice := f.seedUser(t, "alice")

	_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{
		AuctionID: uuid.New(),
		BidderID:  alice,
		Amount:    dec(t, "110"),
	})
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)
}

func TestPlaceBid_UnknownBidder(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{
		AuctionID: auction.ID,
		BidderID:  uuid.New(),
		Amount:    dec(t, "110"),
	})
	require.ErrorIs(t, err, userdomain.ErrUserNotFound)
	assert.Empty(t, f.store.LedgerBids(auction.ID))
}

func TestPlaceBid_DisabledBidderRejected(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	banned := uuid.New()
	f.store.PutUser(&userdomain.User{ID: banned, DisplayName: "banned", Email: "banned@example.com", Disabled: true})

	_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{
		AuctionID: auction.ID,
		BidderID:  banned,
		Amount:    dec(t, "110"),
	})
	require.ErrorIs(t, err, userdomain.ErrUserDisabled)
	assert.Empty(t, f.store.LedgerBids(auction.ID))
}

func TestPlaceBid_SoftCloseExtensionIsPersisted(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	auction := f.seedActiveAuction(t, owner, f.now.Add(30*time.Second))

	event, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{
		AuctionID: auction.ID,
		BidderID:  alice,
		Amount:    dec(t, "110"),
	})
	require.NoError(t, err)

	wantEnd := f.now.Add(domain.SoftCloseWindow)
	assert.Equal(t, wantEnd, event.NewEndDate)
	// the pushed-back deadline committed together with the bid
	stored := f.store.Auction(auction.ID)
	require.NotNil(t, stored)
	assert.Equal(t, wantEnd, stored.EndDate)
}

// two valid-looking bids race for the same auction: the row lock serializes
// them, exactly one commits as highest and the loser revalidates against it.
func TestPlaceBid_ConcurrentBidsSerialize(t *testing.T) {
	f := newFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	auction := f.seedActiveAuction(t, owner, f.now.Add(time.Hour))

	results := make([]error, 2)
	var wg sync.WaitGroup
	for i, bidder := range []uuid.UUID{alice, bob} {
		wg.Add(1)
		go func(i int, bidder uuid.UUID) {
			defer wg.Done()
			_, err := f.placeBid.Execute(context.Background(), PlaceBidDTO{
				AuctionID: auction.ID,
				BidderID:  bidder,
				Amount:    dec(t, "110"),
			})
			results[i] = err
		}(i, bidder)
	}
	wg.Wait()

	var successes, tooLows int
	for _, err := range results {
		if err == nil {
			successes++
			continue
		}
		var tooLow *domain.BidTooLowError
		require.ErrorAs(t, err, &tooLow)
		assert.True(t, tooLow.MinimumAllowed.Equal(dec(t, "120")))
		tooLows++
	}
	assert.Equal(t, 1, successes)
	assert.Equal(t, 1, tooLows)
	assert.Len(t, f.store.LedgerBids(auction.ID), 1)
}
