// Package memory provides a concurrency-safe in-memory implementation of the
// auction repositories. It mirrors the locking semantics of the postgres
// layer (a per-store lock held from GetByIDForUpdate until commit/rollback),
// which makes it a faithful stand-in for use case and sweeper tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bidworks/auctiond/internal/auction/domain"
	userdomain "github.com/bidworks/auctiond/internal/user/domain"
	"github.com/google/uuid"
)

// Store holds auctions, the bid ledger, users and chat grants behind a pair
// of mutexes: mu guards map access, rowLock stands in for the database row
// lock that serializes writers of an auction.
type Store struct {
	mu      sync.Mutex
	rowLock sync.Mutex

	auctions map[uuid.UUID]*domain.Auction
	ledger   map[uuid.UUID]*domain.Bid
	users    map[uuid.UUID]*userdomain.User
	chat     map[uuid.UUID][]uuid.UUID
}

func NewStore() *Store {
	return &Store{
		auctions: make(map[uuid.UUID]*domain.Auction),
		ledger:   make(map[uuid.UUID]*domain.Bid),
		users:    make(map[uuid.UUID]*userdomain.User),
		chat:     make(map[uuid.UUID][]uuid.UUID),
	}
}

// PutAuction seeds an auction (test setup).
func (s *Store) PutAuction(a *domain.Auction) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.auctions[a.ID] = cloneAuction(a)
	for _, b := range a.Bids {
		bb := *b
		s.ledger[b.ID] = &bb
	}
}

// PutUser seeds a user (test setup).
func (s *Store) PutUser(u *userdomain.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	uu := *u
	s.users[u.ID] = &uu
}

// Auction returns a copy of the stored auction, nil when absent.
func (s *Store) Auction(id uuid.UUID) *domain.Auction {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.auctions[id]
	if !ok {
		return nil
	}
	return cloneAuction(a)
}

// LedgerBids returns every persisted bid for the auction, chronological.
func (s *Store) LedgerBids(auctionID uuid.UUID) []*domain.Bid {
	s.mu.Lock()
	defer s.mu.Unlock()
	var bids []*domain.Bid
	for _, b := range s.ledger {
		if b.AuctionID == auctionID {
			bb := *b
			bids = append(bids, &bb)
		}
	}
	sort.Slice(bids, func(i, j int) bool { return bids[i].CreatedAt.Before(bids[j].CreatedAt) })
	return bids
}

// ChatMembers returns the users granted chat access for the auction.
func (s *Store) ChatMembers(auctionID uuid.UUID) []uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uuid.UUID(nil), s.chat[auctionID]...)
}

func cloneAuction(a *domain.Auction) *domain.Auction {
	c := *a
	if a.WinnerID != nil {
		w := *a.WinnerID
		c.WinnerID = &w
	}
	c.Bids = make([]*domain.Bid, len(a.Bids))
	for i, b := range a.Bids {
		bb := *b
		c.Bids[i] = &bb
	}
	return &c
}

// tx stages every write and applies it atomically on commit, releasing the
// row lock it may hold.
type tx struct {
	store  *Store
	locked bool
	done   bool

	pendingAuctions []*domain.Auction
	pendingBids     []*domain.Bid
	pendingDisables [][2]uuid.UUID // auctionID, bidderID
	pendingChat     map[uuid.UUID][]uuid.UUID
}

// TxStarter implements domain.TxStarter for the in-memory store.
type TxStarter struct {
	store *Store
}

func NewTxStarter(store *Store) *TxStarter {
	return &TxStarter{store: store}
}

func (s *TxStarter) Begin(_ context.Context) (domain.Tx, error) {
	return &tx{store: s.store, pendingChat: make(map[uuid.UUID][]uuid.UUID)}, nil
}

func (t *tx) Commit(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true

	t.store.mu.Lock()
	for _, a := range t.pendingAuctions {
		t.store.auctions[a.ID] = cloneAuction(a)
	}
	for _, b := range t.pendingBids {
		bb := *b
		t.store.ledger[b.ID] = &bb
	}
	for _, d := range t.pendingDisables {
		auctionID, bidderID := d[0], d[1]
		for _, b := range t.store.ledger {
			if b.AuctionID == auctionID && b.BidderID == bidderID {
				b.Enabled = false
			}
		}
		if a, ok := t.store.auctions[auctionID]; ok {
			for _, b := range a.Bids {
				if b.BidderID == bidderID {
					b.Enabled = false
				}
			}
		}
	}
	for auctionID, users := range t.pendingChat {
	next:
		for _, u := range users {
			for _, existing := range t.store.chat[auctionID] {
				if existing == u {
					continue next
				}
			}
			t.store.chat[auctionID] = append(t.store.chat[auctionID], u)
		}
	}
	t.store.mu.Unlock()

	if t.locked {
		t.store.rowLock.Unlock()
	}
	return nil
}

func (t *tx) Rollback(_ context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	t.pendingAuctions = nil
	t.pendingBids = nil
	t.pendingDisables = nil
	if t.locked {
		t.store.rowLock.Unlock()
	}
	return nil
}

// AuctionRepository implements domain.AuctionRepository on the Store.
type AuctionRepository struct {
	store *Store
}

func NewAuctionRepository(store *Store) *AuctionRepository {
	return &AuctionRepository{store: store}
}

func (r *AuctionRepository) GetByID(_ context.Context, id uuid.UUID) (*domain.Auction, error) {
	if a := r.store.Auction(id); a != nil {
		return a, nil
	}
	return nil, domain.ErrAuctionNotFound
}

func (r *AuctionRepository) GetByIDForUpdate(_ context.Context, dtx domain.Tx, id uuid.UUID) (*domain.Auction, error) {
	t := dtx.(*tx)
	if !t.locked {
		// blocks while another transaction holds the lock, like FOR UPDATE
		r.store.rowLock.Lock()
		t.locked = true
	}
	if a := r.store.Auction(id); a != nil {
		return a, nil
	}
	return nil, domain.ErrAuctionNotFound
}

func (r *AuctionRepository) Save(_ context.Context, dtx domain.Tx, auction *domain.Auction) error {
	t := dtx.(*tx)
	t.pendingAuctions = append(t.pendingAuctions, cloneAuction(auction))
	return nil
}

func (r *AuctionRepository) FindExpiredIDs(_ context.Context, now time.Time) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var ids []uuid.UUID
	for _, a := range r.store.auctions {
		if a.Status == domain.StatusActive && a.EndDate.Before(now) {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func (r *AuctionRepository) FindEndingSoonIDs(_ context.Context, from, until time.Time) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var ids []uuid.UUID
	for _, a := range r.store.auctions {
		if a.Status == domain.StatusActive && !a.EndingSoonNotified &&
			!a.EndDate.Before(from) && a.EndDate.Before(until) {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func (r *AuctionRepository) FindNonTerminalIDsByOwner(_ context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var ids []uuid.UUID
	for _, a := range r.store.auctions {
		if a.OwnerID == ownerID && (a.Status == domain.StatusPendingApproval || a.Status == domain.StatusActive) {
			ids = append(ids, a.ID)
		}
	}
	return ids, nil
}

func (r *AuctionRepository) GrantChatAccess(_ context.Context, dtx domain.Tx, auctionID uuid.UUID, userIDs ...uuid.UUID) error {
	t := dtx.(*tx)
	t.pendingChat[auctionID] = append(t.pendingChat[auctionID], userIDs...)
	return nil
}

// BidRepository implements domain.BidRepository on the Store.
type BidRepository struct {
	store *Store
}

func NewBidRepository(store *Store) *BidRepository {
	return &BidRepository{store: store}
}

func (r *BidRepository) Save(_ context.Context, dtx domain.Tx, bid *domain.Bid) error {
	t := dtx.(*tx)
	b := *bid
	t.pendingBids = append(t.pendingBids, &b)
	return nil
}

func (r *BidRepository) GetByAuctionID(_ context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	return r.store.LedgerBids(auctionID), nil
}

func (r *BidRepository) DisableByBidder(_ context.Context, dtx domain.Tx, auctionID, bidderID uuid.UUID) error {
	t := dtx.(*tx)
	t.pendingDisables = append(t.pendingDisables, [2]uuid.UUID{auctionID, bidderID})
	return nil
}

func (r *BidRepository) AuctionIDsWithEnabledBidsBy(_ context.Context, bidderID uuid.UUID) ([]uuid.UUID, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	seen := make(map[uuid.UUID]bool)
	var ids []uuid.UUID
	for _, b := range r.store.ledger {
		if b.BidderID == bidderID && b.Enabled && !seen[b.AuctionID] {
			seen[b.AuctionID] = true
			ids = append(ids, b.AuctionID)
		}
	}
	return ids, nil
}

// UserRepository implements the user lookup against the Store.
type UserRepository struct {
	store *Store
}

func NewUserRepository(store *Store) *UserRepository {
	return &UserRepository{store: store}
}

func (r *UserRepository) GetByID(_ context.Context, id uuid.UUID) (*userdomain.User, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if u, ok := r.store.users[id]; ok {
		uu := *u
		return &uu, nil
	}
	return nil, userdomain.ErrUserNotFound
}
