package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const auctionColumns = `id, owner_id, winner_id, title, description, starting_amount, min_bid_increment,
       start_date, end_date, status, ending_soon_notified, created_at, updated_at`

// AuctionRepository implements domain.AuctionRepository for PostgreSQL.
type AuctionRepository struct {
	pool    *pgxpool.Pool
	bidRepo *BidRepository
}

// NewAuctionRepository creates a new instance of AuctionRepository.
func NewAuctionRepository(pool *pgxpool.Pool, bidRepo *BidRepository) *AuctionRepository {
	return &AuctionRepository{pool: pool, bidRepo: bidRepo}
}

// row abstracts pgx.Row/pgx.Rows for the shared scan helper.
type row interface {
	Scan(dest ...any) error
}

func scanAuction(r row) (*domain.Auction, error) {
	a := &domain.Auction{}
	err := r.Scan(
		&a.ID,
		&a.OwnerID,
		&a.WinnerID,
		&a.Title,
		&a.Description,
		&a.StartingAmount,
		&a.MinBidIncrement,
		&a.StartDate,
		&a.EndDate,
		&a.Status,
		&a.EndingSoonNotified,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, err
	}
	return a, nil
}

// GetByID loads the aggregate (auction row plus full bid history).
func (r *AuctionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`

	auction, err := scanAuction(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	bids, err := r.bidRepo.GetByAuctionID(ctx, id)
	if err != nil {
		return nil, err
	}
	auction.Bids = bids

	return auction, nil
}

// GetByIDForUpdate loads the aggregate holding the auction's row lock for the
// rest of the transaction. Every writer of an auction goes through here, so
// bid placement, expiry, reminders and moderation serialize per auction.
func (r *AuctionRepository) GetByIDForUpdate(ctx context.Context, tx domain.Tx, id uuid.UUID) (*domain.Auction, error) {
	pgtx, err := unwrapTx(tx)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1 FOR UPDATE`

	auction, err := scanAuction(pgtx.QueryRow(ctx, query, id))
	if err != nil {
		return nil, err
	}

	// bids read inside the same tx, after the lock, so the snapshot is stable
	bids, err := r.bidRepo.getByAuctionIDTx(ctx, pgtx, id)
	if err != nil {
		return nil, err
	}
	auction.Bids = bids

	return auction, nil
}

// Save inserts or updates the auction row. Bids are persisted separately by
// the BidRepository (append-only).
func (r *AuctionRepository) Save(ctx context.Context, tx domain.Tx, auction *domain.Auction) error {
	pgtx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO auctions (id, owner_id, winner_id, title, description, starting_amount, min_bid_increment,
                              start_date, end_date, status, ending_soon_notified)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (id) DO UPDATE
        SET
            winner_id = EXCLUDED.winner_id,
            title = EXCLUDED.title,
            description = EXCLUDED.description,
            starting_amount = EXCLUDED.starting_amount,
            min_bid_increment = EXCLUDED.min_bid_increment,
            start_date = EXCLUDED.start_date,
            end_date = EXCLUDED.end_date,
            status = EXCLUDED.status,
            ending_soon_notified = EXCLUDED.ending_soon_notified,
            updated_at = NOW();
    `
	_, err = pgtx.Exec(ctx, query,
		auction.ID,
		auction.OwnerID,
		auction.WinnerID,
		auction.Title,
		auction.Description,
		auction.StartingAmount,
		auction.MinBidIncrement,
		auction.StartDate,
		auction.EndDate,
		auction.Status,
		auction.EndingSoonNotified,
	)
	return err
}

// FindExpiredIDs returns the ids of ACTIVE auctions whose end date has
// passed. Ids only: each one is re-read and re-validated under its own lock
// by the sweeper.
func (r *AuctionRepository) FindExpiredIDs(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	query := `SELECT id FROM auctions WHERE status = $1 AND end_date < $2 ORDER BY end_date ASC`
	return r.queryIDs(ctx, query, domain.StatusActive, now)
}

// FindEndingSoonIDs returns ids of ACTIVE auctions ending inside [from,
// until) that have not received the ending-soon reminder yet.
func (r *AuctionRepository) FindEndingSoonIDs(ctx context.Context, from, until time.Time) ([]uuid.UUID, error) {
	query := `
        SELECT id FROM auctions
        WHERE status = $1 AND ending_soon_notified = FALSE AND end_date >= $2 AND end_date < $3
        ORDER BY end_date ASC`
	return r.queryIDs(ctx, query, domain.StatusActive, from, until)
}

// FindNonTerminalIDsByOwner returns ids of the owner's auctions still in a
// cancellable state.
func (r *AuctionRepository) FindNonTerminalIDsByOwner(ctx context.Context, ownerID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT id FROM auctions WHERE owner_id = $1 AND status IN ($2, $3)`
	return r.queryIDs(ctx, query, ownerID, domain.StatusPendingApproval, domain.StatusActive)
}

// GrantChatAccess marks users as chat-eligible for the auction, inside the
// caller's transaction. Re-granting is a no-op.
func (r *AuctionRepository) GrantChatAccess(ctx context.Context, tx domain.Tx, auctionID uuid.UUID, userIDs ...uuid.UUID) error {
	pgtx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	query := `INSERT INTO chat_access (auction_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	for _, userID := range userIDs {
		if _, err := pgtx.Exec(ctx, query, auctionID, userID); err != nil {
			return err
		}
	}
	return nil
}

func (r *AuctionRepository) queryIDs(ctx context.Context, query string, args ...any) ([]uuid.UUID, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
