package postgres

import (
	"context"
	"fmt"

	"github.com/bidworks/auctiond/internal/auction/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// TxStarter implements domain.TxStarter on top of a pgx pool.
type TxStarter struct {
	pool *pgxpool.Pool
}

func NewTxStarter(pool *pgxpool.Pool) *TxStarter {
	return &TxStarter{pool: pool}
}

func (s *TxStarter) Begin(ctx context.Context) (domain.Tx, error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	return &pgxTx{tx: tx}, nil
}

// pgxTx adapts pgx.Tx to the storage-agnostic domain.Tx handle.
type pgxTx struct {
	tx pgx.Tx
}

func (t *pgxTx) Commit(ctx context.Context) error {
	return t.tx.Commit(ctx)
}

func (t *pgxTx) Rollback(ctx context.Context) error {
	return t.tx.Rollback(ctx)
}

// unwrapTx recovers the underlying pgx.Tx from a domain.Tx handed back by
// this package's TxStarter.
func unwrapTx(tx domain.Tx) (pgx.Tx, error) {
	adapter, ok := tx.(*pgxTx)
	if !ok {
		return nil, fmt.Errorf("unexpected transaction type %T", tx)
	}
	return adapter.tx, nil
}
