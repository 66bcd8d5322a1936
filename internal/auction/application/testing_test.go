package application

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

func (d *captureDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.notifications)
}

// captureBroadcaster records broadcast bid events.
type captureBroadcaster struct {
	mu     sync.Mutex
	events []domain.BidEvent
}

func (b *captureBroadcaster) BroadcastBid(event domain.BidEvent) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *captureBroadcaster) all() []domain.BidEvent {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]domain.BidEvent(nil), b.events...)
}

// fixture wires the in-memory store into every use case.
type fixture struct {
	store       *memory.Store
	dispatcher  *captureDispatcher
	broadcaster *captureBroadcaster
	placeBid    *PlaceBidUseCase
	approve     *ApproveAuctionUseCase
	cancel      *CancelAuctionUseCase
	moderation  *ModerationUseCase
	now         time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	txStarter := memory.NewTxStarter(store)
	auctionRepo := memory.NewAuctionRepository(store)
	bidRepo := memory.NewBidRepository(store)
	userRepo := memory.NewUserRepository(store)
	dispatcher := &captureDispatcher{}
	broadcaster := &captureBroadcaster{}

	now := time.Now()
	placeBid := NewPlaceBidUseCase(txStarter, auctionRepo, bidRepo, userRepo, dispatcher, broadcaster)
	placeBid.now = func() time.Time { return now }

	cancel := NewCancelAuctionUseCase(txStarter, auctionRepo, dispatcher)

	return &fixture{
		store:       store,
		dispatcher:  dispatcher,
		broadcaster: broadcaster,
		placeBid:    placeBid,
		approve:     NewApproveAuctionUseCase(txStarter, auctionRepo, dispatcher),
		cancel:      cancel,
		moderation:  NewModerationUseCase(txStarter, auctionRepo, bidRepo, dispatcher, cancel),
		now:         now,
	}
}

func (f *fixture) seedUser(t *testing.T, name string) uuid.UUID {
	t.Helper()
	id := uuid.New()
	f.store.PutUser(&userdomain.User{ID: id, DisplayName: name, Email: name + "@example.com"})
	return id
}

func (f *fixture) seedActiveAuction(t *testing.T, ownerID uuid.UUID, endDate time.Time) *domain.Auction {
	t.Helper()
	a := domain.NewAuction(uuid.New(), ownerID, "vintage guitar", "1969 body",
		dec(t, "100"), dec(t, "10"), f.now.Add(-24*time.Hour), endDate)
	require.NoError(t, a.Approve())
	f.store.PutAuction(a)
	return a
}
