package ports

import (
	"context"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
)

// LedgerService is the narrow synchronous API the HTTP layer consumes.
// Every mutation is one atomic unit of work: wallet state and its log entry
// are either both durable or both absent.
type LedgerService interface {
	Credit(ctx context.Context, req CreditRequest) (*LedgerResult, error)
	Debit(ctx context.Context, req DebitRequest) (*LedgerResult, error)
	Transfer(ctx context.Context, req TransferRequest) (*TransferResult, error)
	Lock(ctx context.Context, req LockRequest) (*LedgerResult, error)
	Unlock(ctx context.Context, req LockRequest) (*LedgerResult, error)
	GetWallet(ctx context.Context, ownerID uuid.UUID, asset domain.AssetType) (*domain.Wallet, error)
	GetHistory(ctx context.Context, req HistoryRequest) (*HistoryPage, error)
}

// CreditRequest holds validated input for crediting a wallet.
type CreditRequest struct {
	OwnerID        uuid.UUID
	Asset          domain.AssetType
	Amount         domain.Money
	Reason         string // business label recorded on the entry, e.g. REWARD_CLAIM
	IdempotencyKey string
	Description    string
	Metadata       domain.Metadata
}

// DebitRequest holds validated input for debiting a wallet.
type DebitRequest struct {
	OwnerID        uuid.UUID
	Asset          domain.AssetType
	Amount         domain.Money
	Reason         string
	IdempotencyKey string
	Description    string
	Metadata       domain.Metadata
}

// TransferRequest holds validated input for a same-asset wallet-to-wallet
// transfer.
type TransferRequest struct {
	FromOwnerID    uuid.UUID
	ToOwnerID      uuid.UUID
	Asset          domain.AssetType
	Amount         domain.Money
	IdempotencyKey string
	Description    string
	Metadata       domain.Metadata
}

// LockRequest holds validated input for reserving or releasing funds.
type LockRequest struct {
	OwnerID        uuid.UUID
	Asset          domain.AssetType
	Amount         domain.Money
	IdempotencyKey string
	Description    string
}

// LedgerResult is the outcome of a single-wallet mutation.
type LedgerResult struct {
	Wallet *domain.Wallet      `json:"wallet"`
	Entry  *domain.LedgerEntry `json:"entry"`
	Event  *domain.LedgerEvent `json:"event"`
	// Replayed is true when the result was served from the idempotency
	// record instead of applying the mutation again.
	Replayed bool `json:"replayed"`
}

// TransferResult is the outcome of a transfer: both wallets and both legs of
// the log, sharing one correlation id.
type TransferResult struct {
	FromWallet *domain.Wallet      `json:"from_wallet"`
	ToWallet   *domain.Wallet      `json:"to_wallet"`
	FromEntry  *domain.LedgerEntry `json:"from_entry"`
	ToEntry    *domain.LedgerEntry `json:"to_entry"`
	Event      *domain.LedgerEvent `json:"event"`
	Replayed   bool                `json:"replayed"`
}

// HistoryRequest holds input for paginated history reads.
type HistoryRequest struct {
	OwnerID uuid.UUID
	Asset   domain.AssetType
	Limit   int
	Cursor  string
}

// HistoryPage is one newest-first page of the transaction log.
type HistoryPage struct {
	Entries    []domain.LedgerEntry `json:"entries"`
	NextCursor string               `json:"next_cursor,omitempty"`
}

// IdempotencyCache is the Redis fast path for replay detection. Results are
// verified against the request parameters before being served.
type IdempotencyCache interface {
	Get(ctx context.Context, key string) ([]byte, error) // nil on miss
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// EventPublisher delivers committed ledger events to the bus. Publishing is
// best-effort; failures never roll back the ledger.
type EventPublisher interface {
	Publish(ctx context.Context, event *domain.LedgerEvent) error
}

// TokenService handles JWT operations for the read-side API.
type TokenService interface {
	Generate(subject string) (string, time.Time, error)
	Validate(tokenString string) (*TokenClaims, error)
}

// TokenClaims holds the parsed JWT claims.
type TokenClaims struct {
	Subject string
}

// HashService verifies caller API keys against their argon2id hashes.
type HashService interface {
	Hash(secret string) (string, error)
	Verify(secret string, hash string) (bool, error)
}
