package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
)

// Transactor implements ports.DBTransactor. It hands the ledger service the
// atomic unit of work each mutation runs in: the wallet update and its log
// entry commit together or not at all.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a Transactor over the shared connection pool.
func NewTransactor(pool Pool) *Transactor {
	return &Transactor{pool: pool}
}

// Begin opens the transaction whose FOR UPDATE row locks are held until
// commit or rollback.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
