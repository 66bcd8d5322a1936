package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpirySweep_WinnerFanOut(t *testing.T) {
	f := newSweepFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")
	auction := f.seedAuction(t, owner, f.now.Add(-time.Minute),
		seedBid{alice, "110"}, seedBid{bob, "120"})

	f.expiry.SweepOnce(context.Background())

	stored := f.store.Auction(auction.ID)
	assert.Equal(t, domain.StatusExpired, stored.Status)
	require.NotNil(t, stored.WinnerID)
	assert.Equal(t, bob, *stored.WinnerID)

	won := f.dispatcher.ofType(domain.NotificationAuctionWon)
	require.Len(t, won, 1)
	assert.Equal(t, bob, won[0].RecipientID)

	ended := f.dispatcher.ofType(domain.NotificationAuctionEnded)
	require.Len(t, ended, 1)
	assert.Equal(t, owner, ended[0].RecipientID)

	lost := f.dispatcher.ofType(domain.NotificationAuctionLost)
	require.Len(t, lost, 1)
	assert.Equal(t, alice, lost[0].RecipientID)

	// winner and owner each get an email
	_, emails := f.dispatcher.counts()
	assert.Equal(t, 2, emails)

	// winner and owner can now chat
	assert.ElementsMatch(t, []uuid.UUID{bob, owner}, f.store.ChatMembers(auction.ID))
}

func TestExpirySweep_NoBids(t *testing.T) {
	f := newSweepFixture(t)
	owner := f.seedUser(t, "owner")
	auction := f.seedAuction(t, owner, f.now.Add(-time.Minute))

	f.expiry.SweepOnce(context.Background())

	stored := f.store.Auction(auction.ID)
	assert.Equal(t, domain.StatusExpired, stored.Status)
	assert.Nil(t, stored.WinnerID)

	notifications, emails := f.dispatcher.counts()
	assert.Equal(t, 1, notifications)
	assert.Equal(t, 0, emails)
	assert.Equal(t, owner, f.dispatcher.ofType(domain.NotificationAuctionEnded)[0].RecipientID)
	assert.Empty(t, f.store.ChatMembers(auction.ID))
}

func TestExpirySweep_DisabledBidsNeverWin(t *testing.T) {
	f := newSweepFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	bob := f.seedUser(t, "bob")

	a := domain.NewAuction(uuid.New(), owner, "vintage guitar", "",
		dec(t, "100"), dec(t, "10"), f.now.Add(-24*time.Hour), f.now.Add(-time.Minute))
	require.NoError(t, a.Approve())
	low := domain.NewBid(uuid.New(), a.ID, alice, dec(t, "110"), f.now.Add(-time.Hour))
	high := domain.NewBid(uuid.New(), a.ID, bob, dec(t, "120"), f.now.Add(-30*time.Minute))
	high.Enabled = false
	a.Bids = append(a.Bids, low, high)
	f.store.PutAuction(a)

	f.expiry.SweepOnce(context.Background())

	stored := f.store.Auction(a.ID)
	require.NotNil(t, stored.WinnerID)
	assert.Equal(t, alice, *stored.WinnerID)

	// the disabled bidder is not told they lost
	assert.Empty(t, f.dispatcher.ofType(domain.NotificationAuctionLost))
}

func TestExpirySweep_LeavesRunningAuctionsAlone(t *testing.T) {
	f := newSweepFixture(t)
	owner := f.seedUser(t, "owner")
	auction := f.seedAuction(t, owner, f.now.Add(time.Hour))

	f.expiry.SweepOnce(context.Background())

	assert.Equal(t, domain.StatusActive, f.store.Auction(auction.ID).Status)
	notifications, _ := f.dispatcher.counts()
	assert.Equal(t, 0, notifications)
}

func TestExpirySweep_SecondSweepIsIdempotent(t *testing.T) {
	f := newSweepFixture(t)
	owner := f.seedUser(t, "owner")
	alice := f.seedUser(t, "alice")
	f.seedAuction(t, owner, f.now.Add(-time.Minute), seedBid{alice, "110"})

	f.expiry.SweepOnce(context.Background())
	notifications, emails := f.dispatcher.counts()

	f.expiry.SweepOnce(context.Background())
	again, againEmails := f.dispatcher.counts()
	assert.Equal(t, notifications, again)
	assert.Equal(t, emails, againEmails)
}
