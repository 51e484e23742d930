package postgres

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// pgUniqueViolation is the PostgreSQL error code for unique constraint hits.
const pgUniqueViolation = "23505"

// EntryRepo implements ports.LedgerEntryRepository over the append-only
// ledger_entries table. Rows are never updated or deleted.
type EntryRepo struct {
	pool Pool
}

// NewEntryRepo creates a new EntryRepo.
func NewEntryRepo(pool Pool) *EntryRepo {
	return &EntryRepo{pool: pool}
}

const entryColumns = `id, wallet_id, kind, amount, balance_after, counterparty_wallet_id, correlation_id, idempotency_key, reason, description, metadata, created_at`

// Create inserts a ledger entry within the current transaction. A duplicate
// (wallet_id, idempotency_key) pair maps to domain.ErrDuplicateIdempotencyKey.
func (r *EntryRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	meta, err := marshalMetadata(e.Metadata)
	if err != nil {
		return fmt.Errorf("marshal entry metadata: %w", err)
	}

	query := `INSERT INTO ledger_entries (` + entryColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`

	_, err = tx.Exec(ctx, query,
		e.ID, e.WalletID, e.Kind, e.Amount, e.BalanceAfter,
		e.CounterpartyWalletID, e.CorrelationID, e.IdempotencyKey,
		e.Reason, e.Description, meta, e.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return domain.ErrDuplicateIdempotencyKey
		}
		return fmt.Errorf("insert ledger entry: %w", err)
	}
	return nil
}

// GetByIdempotencyKey fetches the entry recorded under the key for this
// wallet, or nil when the key was never used.
func (r *EntryRepo) GetByIdempotencyKey(ctx context.Context, walletID uuid.UUID, key string) (*domain.LedgerEntry, error) {
	query := `SELECT ` + entryColumns + ` FROM ledger_entries WHERE wallet_id = $1 AND idempotency_key = $2`

	return scanEntry(r.pool.QueryRow(ctx, query, walletID, key))
}

// ListByWallet returns up to limit entries newest first. The cursor is the
// base64 of the last seen entry id; ULIDs sort by creation time, so paging
// on the id alone preserves newest-first order.
func (r *EntryRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int, cursor string) ([]domain.LedgerEntry, string, error) {
	lastID, err := decodeCursor(cursor)
	if err != nil {
		return nil, "", err
	}

	query := `SELECT ` + entryColumns + ` FROM ledger_entries
		WHERE wallet_id = $1 AND ($2 = '' OR id < $2)
		ORDER BY id DESC LIMIT $3`

	rows, err := r.pool.Query(ctx, query, walletID, lastID, limit+1)
	if err != nil {
		return nil, "", fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []domain.LedgerEntry
	for rows.Next() {
		e, err := scanEntryRow(rows)
		if err != nil {
			return nil, "", err
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, "", fmt.Errorf("iterate ledger entries: %w", err)
	}

	next := ""
	if len(entries) > limit {
		entries = entries[:limit]
		next = encodeCursor(entries[limit-1].ID)
	}
	return entries, next, nil
}

func encodeCursor(entryID string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(entryID))
}

func decodeCursor(cursor string) (string, error) {
	if cursor == "" {
		return "", nil
	}
	raw, err := base64.RawURLEncoding.DecodeString(cursor)
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
	}
	return string(raw), nil
}

func marshalMetadata(m domain.Metadata) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}

func scanEntry(row pgx.Row) (*domain.LedgerEntry, error) {
	e, err := scanEntryRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return e, nil
}

func scanEntryRow(row pgx.Row) (*domain.LedgerEntry, error) {
	e := &domain.LedgerEntry{}
	var meta []byte
	err := row.Scan(
		&e.ID, &e.WalletID, &e.Kind, &e.Amount, &e.BalanceAfter,
		&e.CounterpartyWalletID, &e.CorrelationID, &e.IdempotencyKey,
		&e.Reason, &e.Description, &meta, &e.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan ledger entry: %w", err)
	}
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &e.Metadata); err != nil {
			return nil, fmt.Errorf("unmarshal entry metadata: %w", err)
		}
	}
	return e, nil
}
