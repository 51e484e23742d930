package postgres

import (
	"context"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// WalletRepo implements ports.WalletRepository.
type WalletRepo struct {
	pool Pool
}

// NewWalletRepo creates a new WalletRepo.
func NewWalletRepo(pool Pool) *WalletRepo {
	return &WalletRepo{pool: pool}
}

const walletColumns = `id, owner_id, asset, balance, locked_balance, lifetime_credited, lifetime_debited, version, created_at, updated_at`

// Create inserts a new zero-balance wallet within the current transaction.
// The inserted row is implicitly locked until the transaction ends. Losing a
// lazy-creation race against a concurrent insert for the same (owner, asset)
// maps to domain.ErrWalletExists so the caller can retry against the row
// that now exists.
func (r *WalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	query := `INSERT INTO wallets (` + walletColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := tx.Exec(ctx, query,
		w.ID, w.OwnerID, w.Asset, w.Balance, w.LockedBalance,
		w.LifetimeCredited, w.LifetimeDebited, w.Version, w.CreatedAt, w.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrWalletExists
		}
		return fmt.Errorf("insert wallet: %w", err)
	}
	return nil
}

// GetByOwner fetches a wallet by owner and asset without locking.
// Returns nil, nil when the wallet does not exist.
func (r *WalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID, asset domain.AssetType) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1 AND asset = $2`

	return scanWallet(r.pool.QueryRow(ctx, query, ownerID, asset))
}

// GetByOwnerForUpdate fetches a wallet with a row lock held until the
// transaction ends. MUST be called within a transaction.
func (r *WalletRepo) GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, asset domain.AssetType) (*domain.Wallet, error) {
	query := `SELECT ` + walletColumns + ` FROM wallets WHERE owner_id = $1 AND asset = $2 FOR UPDATE`

	return scanWallet(tx.QueryRow(ctx, query, ownerID, asset))
}

// Save persists the wallet's balances guarded by the optimistic version.
// A stale expectedVersion matches no row and fails with
// domain.ErrVersionConflict; on success the in-memory version is bumped.
func (r *WalletRepo) Save(ctx context.Context, tx pgx.Tx, w *domain.Wallet, expectedVersion int64) error {
	query := `UPDATE wallets
		SET balance = $1, locked_balance = $2, lifetime_credited = $3, lifetime_debited = $4,
			version = version + 1, updated_at = NOW()
		WHERE id = $5 AND version = $6`

	tag, err := tx.Exec(ctx, query,
		w.Balance, w.LockedBalance, w.LifetimeCredited, w.LifetimeDebited,
		w.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrVersionConflict
	}
	w.Version = expectedVersion + 1
	return nil
}

// scanWallet scans a single row into a Wallet, mapping no-rows to nil.
func scanWallet(row pgx.Row) (*domain.Wallet, error) {
	w := &domain.Wallet{}
	err := row.Scan(
		&w.ID, &w.OwnerID, &w.Asset, &w.Balance, &w.LockedBalance,
		&w.LifetimeCredited, &w.LifetimeDebited, &w.Version, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan wallet: %w", err)
	}
	return w, nil
}
