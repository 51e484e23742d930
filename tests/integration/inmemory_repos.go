package integration

import (
	"context"
	"encoding/base64"
	"fmt"
	"sort"
	"sync"
	"time"

	"wallet-ledger/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- Per-wallet row locks ---

// rowLocks emulates SELECT ... FOR UPDATE: a lock acquired through a
// transaction is held until that transaction commits or rolls back.
type rowLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newRowLocks() *rowLocks {
	return &rowLocks{locks: make(map[string]*sync.Mutex)}
}

func (l *rowLocks) get(key string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.locks[key]
	if !ok {
		m = &sync.Mutex{}
		l.locks[key] = m
	}
	return m
}

// --- In-Memory Wallet Repo ---

type inMemoryWalletRepo struct {
	mu      sync.RWMutex
	wallets map[string]*domain.Wallet // keyed by owner|asset
	locks   *rowLocks
}

func newInMemoryWalletRepo(locks *rowLocks) *inMemoryWalletRepo {
	return &inMemoryWalletRepo{
		wallets: make(map[string]*domain.Wallet),
		locks:   locks,
	}
}

func walletKey(ownerID uuid.UUID, asset domain.AssetType) string {
	return ownerID.String() + "|" + string(asset)
}

func (r *inMemoryWalletRepo) Create(ctx context.Context, tx pgx.Tx, w *domain.Wallet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := walletKey(w.OwnerID, w.Asset)
	if _, ok := r.wallets[key]; ok {
		return domain.ErrWalletExists
	}
	clone := *w
	r.wallets[key] = &clone
	return nil
}

func (r *inMemoryWalletRepo) GetByOwner(ctx context.Context, ownerID uuid.UUID, asset domain.AssetType) (*domain.Wallet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	w, ok := r.wallets[walletKey(ownerID, asset)]
	if !ok {
		return nil, nil
	}
	clone := *w
	return &clone, nil
}

func (r *inMemoryWalletRepo) GetByOwnerForUpdate(ctx context.Context, tx pgx.Tx, ownerID uuid.UUID, asset domain.AssetType) (*domain.Wallet, error) {
	// Acquire the row lock through the transaction even when the wallet does
	// not exist yet, so lazy creation is serialized too.
	if mtx, ok := tx.(*memTx); ok {
		mtx.hold(r.locks.get(walletKey(ownerID, asset)))
	}
	return r.GetByOwner(ctx, ownerID, asset)
}

func (r *inMemoryWalletRepo) Save(ctx context.Context, tx pgx.Tx, w *domain.Wallet, expectedVersion int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.wallets[walletKey(w.OwnerID, w.Asset)]
	if !ok {
		return fmt.Errorf("wallet not found")
	}
	if stored.Version != expectedVersion {
		return domain.ErrVersionConflict
	}
	clone := *w
	clone.Version = expectedVersion + 1
	clone.UpdatedAt = time.Now().UTC()
	r.wallets[walletKey(w.OwnerID, w.Asset)] = &clone
	w.Version = clone.Version
	return nil
}

// --- In-Memory Ledger Entry Repo ---

type inMemoryEntryRepo struct {
	mu      sync.RWMutex
	entries []domain.LedgerEntry
	byKey   map[string]int // wallet|idempotency_key -> index into entries
}

func newInMemoryEntryRepo() *inMemoryEntryRepo {
	return &inMemoryEntryRepo{byKey: make(map[string]int)}
}

func entryKey(walletID uuid.UUID, idempotencyKey string) string {
	return walletID.String() + "|" + idempotencyKey
}

func (r *inMemoryEntryRepo) Create(ctx context.Context, tx pgx.Tx, e *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := entryKey(e.WalletID, e.IdempotencyKey)
	if _, ok := r.byKey[key]; ok {
		return domain.ErrDuplicateIdempotencyKey
	}
	r.entries = append(r.entries, *e)
	r.byKey[key] = len(r.entries) - 1
	return nil
}

func (r *inMemoryEntryRepo) GetByIdempotencyKey(ctx context.Context, walletID uuid.UUID, key string) (*domain.LedgerEntry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx, ok := r.byKey[entryKey(walletID, key)]
	if !ok {
		return nil, nil
	}
	clone := r.entries[idx]
	return &clone, nil
}

func (r *inMemoryEntryRepo) ListByWallet(ctx context.Context, walletID uuid.UUID, limit int, cursor string) ([]domain.LedgerEntry, string, error) {
	lastID := ""
	if cursor != "" {
		raw, err := base64.RawURLEncoding.DecodeString(cursor)
		if err != nil {
			return nil, "", fmt.Errorf("%w: %v", domain.ErrInvalidCursor, err)
		}
		lastID = string(raw)
	}

	r.mu.RLock()
	var page []domain.LedgerEntry
	for _, e := range r.entries {
		if e.WalletID != walletID {
			continue
		}
		if lastID != "" && e.ID >= lastID {
			continue
		}
		page = append(page, e)
	}
	r.mu.RUnlock()

	sort.Slice(page, func(i, j int) bool { return page[i].ID > page[j].ID })

	next := ""
	if len(page) > limit {
		page = page[:limit]
		next = base64.RawURLEncoding.EncodeToString([]byte(page[limit-1].ID))
	}
	return page, next, nil
}

// --- In-Memory Transactor ---

type inMemoryTransactor struct {
	locks *rowLocks
}

func newInMemoryTransactor(locks *rowLocks) *inMemoryTransactor {
	return &inMemoryTransactor{locks: locks}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return &memTx{}, nil
}

// memTx holds the row locks acquired during the unit of work and releases
// them exactly once on Commit or Rollback.
type memTx struct {
	mu   sync.Mutex
	held []*sync.Mutex
	done bool
}

func (t *memTx) hold(m *sync.Mutex) {
	m.Lock()
	t.mu.Lock()
	t.held = append(t.held, m)
	t.mu.Unlock()
}

func (t *memTx) release() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return
	}
	t.done = true
	for i := len(t.held) - 1; i >= 0; i-- {
		t.held[i].Unlock()
	}
}

func (t *memTx) Commit(ctx context.Context) error   { t.release(); return nil }
func (t *memTx) Rollback(ctx context.Context) error { t.release(); return nil }

func (t *memTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *memTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *memTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *memTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *memTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *memTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *memTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *memTx) Conn() *pgx.Conn { return nil }
