package ports

import (
	"context"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// WalletRepository defines persistence operations for wallets.
// Methods accepting pgx.Tx run inside the atomic unit of work opened by the
// ledger service; GetByOwnerForUpdate must hold a row lock until that unit
// commits or rolls back.
type WalletRepository interface {
	Create(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet) error
	GetByOwner(ctx context.Context, ownerID uuid.UUID, asset domain.AssetType) (*domain.Wallet, error)
	GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, asset domain.AssetType) (*domain.Wallet, error)
	// Save persists the wallet only if its stored version still equals
	// expectedVersion, incrementing it by one. A stale version fails with
	// domain.ErrVersionConflict and writes nothing.
	Save(ctx context.Context, tx pgx.Tx, wallet *domain.Wallet, expectedVersion int64) error
}

// LedgerEntryRepository defines persistence for the append-only transaction
// log. Entries are never updated or deleted.
type LedgerEntryRepository interface {
	// Create inserts the entry. A duplicate (wallet_id, idempotency_key)
	// pair fails with domain.ErrDuplicateIdempotencyKey.
	Create(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	GetByIdempotencyKey(ctx context.Context, walletID uuid.UUID, key string) (*domain.LedgerEntry, error)
	// ListByWallet returns up to limit entries newest first, starting after
	// the opaque cursor, plus the cursor for the next page ("" when done).
	ListByWallet(ctx context.Context, walletID uuid.UUID, limit int, cursor string) ([]domain.LedgerEntry, string, error)
}

// DBTransactor provides the atomic unit of work. The ledger service is the
// only component that begins, commits, or rolls back.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
