package postgres

import (
	"context"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BidRepository implements domain.BidRepository for PostgreSQL. Bids are
// append-only; the single update path is the moderation disable flag.
type BidRepository struct {
	pool *pgxpool.Pool
}

// NewBidRepository creates a new instance of BidRepository.
func NewBidRepository(pool *pgxpool.Pool) *BidRepository {
	return &BidRepository{pool: pool}
}

// Save inserts a new bid inside the caller's transaction.
func (r *BidRepository) Save(ctx context.Context, tx domain.Tx, bid *domain.Bid) error {
	pgtx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO bids (id, auction_id, bidder_id, amount, enabled, created_at)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err = pgtx.Exec(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.BidderID,
		bid.Amount,
		bid.Enabled,
		bid.CreatedAt,
	)
	return err
}

// GetByAuctionID returns the full bid history of an auction, chronological,
// disabled bids included.
func (r *BidRepository) GetByAuctionID(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	rows, err := r.pool.Query(ctx, bidSelectQuery, auctionID)
	if err != nil {
		return nil, err
	}
	return scanBids(rows)
}

const bidSelectQuery = `
        SELECT id, auction_id, bidder_id, amount, enabled, created_at
        FROM bids
        WHERE auction_id = $1
        ORDER BY created_at ASC`

// getByAuctionIDTx is the in-transaction variant used by the aggregate load
// under the row lock.
func (r *BidRepository) getByAuctionIDTx(ctx context.Context, pgtx pgx.Tx, auctionID uuid.UUID) ([]*domain.Bid, error) {
	rows, err := pgtx.Query(ctx, bidSelectQuery, auctionID)
	if err != nil {
		return nil, err
	}
	return scanBids(rows)
}

func scanBids(rows pgx.Rows) ([]*domain.Bid, error) {
	defer rows.Close()

	var bids []*domain.Bid
	for rows.Next() {
		bid := &domain.Bid{}
		err := rows.Scan(
			&bid.ID,
			&bid.AuctionID,
			&bid.BidderID,
			&bid.Amount,
			&bid.Enabled,
			&bid.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}

// DisableByBidder flips enabled=false for the bidder's bids on one auction,
// inside the caller's transaction (which holds that auction's lock).
func (r *BidRepository) DisableByBidder(ctx context.Context, tx domain.Tx, auctionID, bidderID uuid.UUID) error {
	pgtx, err := unwrapTx(tx)
	if err != nil {
		return err
	}

	query := `UPDATE bids SET enabled = FALSE WHERE auction_id = $1 AND bidder_id = $2 AND enabled`
	_, err = pgtx.Exec(ctx, query, auctionID, bidderID)
	return err
}

// AuctionIDsWithEnabledBidsBy lists the auctions where the bidder still holds
// at least one enabled bid.
func (r *BidRepository) AuctionIDsWithEnabledBidsBy(ctx context.Context, bidderID uuid.UUID) ([]uuid.UUID, error) {
	query := `SELECT DISTINCT auction_id FROM bids WHERE bidder_id = $1 AND enabled`

	rows, err := r.pool.Query(ctx, query, bidderID)
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
