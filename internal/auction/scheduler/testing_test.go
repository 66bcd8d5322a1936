package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/bidworks/auctiond/internal/auction/infra/repository/memory"
	userdomain "github.com/bidworks/auctiond/internal/user/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func dec(t *testing.T, s string) decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	require.NoError(t, err)
	return d
}

// captureDispatcher records dispatched events for assertions.
type captureDispatcher struct {
	mu            sync.Mutex
	notifications []domain.NotificationEvent
	emails        []domain.EmailEvent
}

func (d *captureDispatcher) DispatchNotification(event domain.NotificationEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.notifications = append(d.notifications, event)
}

func (d *captureDispatcher) DispatchEmail(event domain.EmailEvent) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.emails = append(d.emails, event)
}

func (d *captureDispatcher) ofType(nt domain.NotificationType) []domain.NotificationEvent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []domain.NotificationEvent
	for _, n := range d.notifications {
		if n.Type == nt {
			out = append(out, n)
		}
	}
	return out
}

func (d *captureDispatcher) counts() (int, int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notifications), len(d.emails)
}

// sweepFixture wires both sweepers against the in-memory store with a
// controllable clock.
type sweepFixture struct {
	store      *memory.Store
	dispatcher *captureDispatcher
	expiry     *ExpirySweeper
	reminder   *ReminderSweeper
	now        time.Time
}

func newSweepFixture(t *testing.T) *sweepFixture {
	t.Helper()
	store := memory.NewStore()
	txStarter := memory.NewTxStarter(store)
	auctionRepo := memory.NewAuctionRepository(store)
	userRepo := memory.NewUserRepository(store)
	dispatcher := &captureDispatcher{}

	now := time.Now()
	clock := func() time.Time { return now }

	expiry := NewExpirySweeper(0, txStarter, auctionRepo, userRepo, dispatcher)
	expiry.now = clock
	reminder := NewReminderSweeper(0, txStarter, auctionRepo, userRepo, dispatcher)
	reminder.now = clock

	return &sweepFixture{
		store:      store,
		dispatcher: dispatcher,
		expiry:     expiry,
		reminder:   reminder,
		now:        now,
	}
}

func (f *sweepFixture) seedUser(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	f.store.PutUser(&userdomain.User{ID: id, DisplayName: name, Email: name + "@example.com"})
	return id
}

// seedAuction stores an ACTIVE auction with one bid per (bidder, amount)
// pair, placed a minute apart well before the end date.
func (f *sweepFixture) seedAuction(t *testing.T, ownerID uuid.UUID, endDate time.Time, bids ...seedBid) *domain.Auction {
	t.Helper()
	a := domain.NewAuction(uuid.New(), ownerID, "vintage guitar", "1969 body",
		dec(t, "100"), dec(t, "10"), f.now.Add(-24*time.Hour), endDate)
	require.NoError(t, a.Approve())
	for i, b := range bids {
		placed := f.now.Add(-time.Hour).Add(time.Duration(i) * time.Minute)
		bid := domain.NewBid(uuid.New(), a.ID, b.bidderID, dec(t, b.amount), placed)
		a.Bids = append(a.Bids, bid)
	}
	f.store.PutAuction(a)
	return a
}

type seedBid struct {
	bidderID uuid.UUID
	amount   string
}
