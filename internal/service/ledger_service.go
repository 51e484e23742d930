package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	idempotencyTTL = 24 * time.Hour

	// maxCommitAttempts bounds the internal retry loop for optimistic
	// version conflicts. Validation failures are never retried.
	maxCommitAttempts = 3

	defaultHistoryLimit = 50
	maxHistoryLimit     = 100
)

// LedgerServiceImpl implements ports.LedgerService. Each operation runs as
// one atomic unit of work: the wallet row is locked, the mutation is
// validated and computed in memory, then wallet + log entry are committed
// together or not at all.
type LedgerServiceImpl struct {
	walletRepo ports.WalletRepository
	entryRepo  ports.LedgerEntryRepository
	idempCache ports.IdempotencyCache
	publisher  ports.EventPublisher // nil = event publishing disabled
	transactor ports.DBTransactor
	log        zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	walletRepo ports.WalletRepository,
	entryRepo ports.LedgerEntryRepository,
	idempCache ports.IdempotencyCache,
	publisher ports.EventPublisher,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		walletRepo: walletRepo,
		entryRepo:  entryRepo,
		idempCache: idempCache,
		publisher:  publisher,
		transactor: transactor,
		log:        log,
	}
}

// recordedResult is the JSON shape cached per idempotency key so retried
// requests can be served the original outcome unchanged.
type recordedResult struct {
	Wallet *domain.Wallet      `json:"wallet"`
	Entry  *domain.LedgerEntry `json:"entry"`
}

// recordedTransfer is the cached shape for transfer replays.
type recordedTransfer struct {
	FromWallet *domain.Wallet      `json:"from_wallet"`
	ToWallet   *domain.Wallet      `json:"to_wallet"`
	FromEntry  *domain.LedgerEntry `json:"from_entry"`
	ToEntry    *domain.LedgerEntry `json:"to_entry"`
}

// mutationSpec describes one single-wallet mutation. Credit, Debit, Lock and
// Unlock all flow through the same VALIDATE -> COMPUTE -> ATTEMPT-COMMIT
// cycle and differ only in this spec.
type mutationSpec struct {
	ownerID        uuid.UUID
	asset          domain.AssetType
	amount         domain.Money // strictly positive
	signedAmount   domain.Money // as recorded on the entry
	kind           domain.EntryKind
	reason         string
	idempotencyKey string
	description    string
	metadata       domain.Metadata
	lazyCreate     bool // wallets come into existence on first credit only
	eventName      domain.EventName
	apply          func(w *domain.Wallet) error
}

// Credit adds funds to a wallet, creating it lazily on first use.
func (s *LedgerServiceImpl) Credit(ctx context.Context, req ports.CreditRequest) (*ports.LedgerResult, error) {
	return s.mutate(ctx, mutationSpec{
		ownerID:        req.OwnerID,
		asset:          req.Asset,
		amount:         req.Amount,
		signedAmount:   req.Amount,
		kind:           domain.EntryKindCredit,
		reason:         req.Reason,
		idempotencyKey: req.IdempotencyKey,
		description:    req.Description,
		metadata:       req.Metadata,
		lazyCreate:     true,
		eventName:      domain.EventBalanceCredited,
		apply:          func(w *domain.Wallet) error { return w.ApplyCredit(req.Amount) },
	})
}

// Debit removes funds from an existing wallet.
func (s *LedgerServiceImpl) Debit(ctx context.Context, req ports.DebitRequest) (*ports.LedgerResult, error) {
	return s.mutate(ctx, mutationSpec{
		ownerID:        req.OwnerID,
		asset:          req.Asset,
		amount:         req.Amount,
		signedAmount:   -req.Amount,
		kind:           domain.EntryKindDebit,
		reason:         req.Reason,
		idempotencyKey: req.IdempotencyKey,
		description:    req.Description,
		metadata:       req.Metadata,
		eventName:      domain.EventBalanceDebited,
		apply:          func(w *domain.Wallet) error { return w.ApplyDebit(req.Amount) },
	})
}

// Lock reserves spendable funds for a pending external operation.
func (s *LedgerServiceImpl) Lock(ctx context.Context, req ports.LockRequest) (*ports.LedgerResult, error) {
	return s.mutate(ctx, mutationSpec{
		ownerID:        req.OwnerID,
		asset:          req.Asset,
		amount:         req.Amount,
		signedAmount:   -req.Amount,
		kind:           domain.EntryKindLock,
		idempotencyKey: req.IdempotencyKey,
		description:    req.Description,
		eventName:      domain.EventFundsLocked,
		apply:          func(w *domain.Wallet) error { return w.ApplyLock(req.Amount) },
	})
}

// Unlock releases previously reserved funds back to the spendable balance.
func (s *LedgerServiceImpl) Unlock(ctx context.Context, req ports.LockRequest) (*ports.LedgerResult, error) {
	return s.mutate(ctx, mutationSpec{
		ownerID:        req.OwnerID,
		asset:          req.Asset,
		amount:         req.Amount,
		signedAmount:   req.Amount,
		kind:           domain.EntryKindUnlock,
		idempotencyKey: req.IdempotencyKey,
		description:    req.Description,
		eventName:      domain.EventFundsUnlocked,
		apply:          func(w *domain.Wallet) error { return w.ApplyUnlock(req.Amount) },
	})
}

// mutate runs the shared single-wallet state machine:
// VALIDATE -> COMPUTE -> ATTEMPT-COMMIT -> SUCCESS | CONFLICT-RETRY | REJECT.
func (s *LedgerServiceImpl) mutate(ctx context.Context, spec mutationSpec) (*ports.LedgerResult, error) {
	if err := validateMutation(spec.asset, spec.amount, spec.idempotencyKey); err != nil {
		return nil, s.mapError(ctx, err)
	}

	cacheKey := mutationCacheKey(spec.ownerID, spec.asset, spec.idempotencyKey)
	if res, err := s.replayFromCache(ctx, cacheKey, spec.kind, spec.signedAmount, spec.reason); res != nil || err != nil {
		return res, err
	}

	var lastErr error
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		res, err := s.mutateOnce(ctx, spec)
		if err != nil {
			if isRetryable(err) {
				lastErr = err
				continue
			}
			return nil, s.mapError(ctx, err)
		}
		s.finishMutation(ctx, cacheKey, res)
		return res, nil
	}
	return nil, s.mapError(ctx, apperror.ErrConcurrentModification(lastErr))
}

// mutateOnce executes one attempt inside a fresh atomic unit of work.
func (s *LedgerServiceImpl) mutateOnce(ctx context.Context, spec mutationSpec) (*ports.LedgerResult, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	wallet, err := s.walletRepo.GetByOwnerForUpdate(ctx, tx, spec.ownerID, spec.asset)
	if err != nil {
		return nil, fmt.Errorf("lock wallet: %w", err)
	}
	if wallet == nil {
		if !spec.lazyCreate {
			return nil, domain.ErrWalletNotFound
		}
		wallet = domain.NewWallet(spec.ownerID, spec.asset, now)
		if err := s.walletRepo.Create(ctx, tx, wallet); err != nil {
			return nil, fmt.Errorf("create wallet: %w", err)
		}
	} else {
		// The row lock is held, so this read is race-free.
		prior, err := s.entryRepo.GetByIdempotencyKey(ctx, wallet.ID, spec.idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency check: %w", err)
		}
		if prior != nil {
			if !prior.Matches(spec.kind, spec.signedAmount, spec.reason) {
				return nil, domain.ErrIdempotencyKeyConflict
			}
			return &ports.LedgerResult{Wallet: wallet, Entry: prior, Replayed: true}, nil
		}
	}

	expectedVersion := wallet.Version
	if err := spec.apply(wallet); err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		ID:             domain.NewEntryID(),
		WalletID:       wallet.ID,
		Kind:           spec.kind,
		Amount:         spec.signedAmount,
		BalanceAfter:   wallet.Balance,
		IdempotencyKey: spec.idempotencyKey,
		Reason:         spec.reason,
		Description:    spec.description,
		Metadata:       spec.metadata,
		CreatedAt:      now,
	}

	if err := s.walletRepo.Save(ctx, tx, wallet, expectedVersion); err != nil {
		return nil, err
	}
	if err := s.entryRepo.Create(ctx, tx, entry); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	event := &domain.LedgerEvent{
		Name:         spec.eventName,
		WalletID:     wallet.ID,
		OwnerID:      wallet.OwnerID,
		Asset:        wallet.Asset,
		Amount:       spec.signedAmount,
		BalanceAfter: wallet.Balance,
		EntryID:      entry.ID,
		OccurredAt:   now,
	}
	return &ports.LedgerResult{Wallet: wallet, Entry: entry, Event: event}, nil
}

// Transfer moves funds between two wallets of the same asset as one atomic
// unit: two wallet updates and two correlated log entries.
func (s *LedgerServiceImpl) Transfer(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	if err := validateMutation(req.Asset, req.Amount, req.IdempotencyKey); err != nil {
		return nil, s.mapError(ctx, err)
	}
	if req.FromOwnerID == req.ToOwnerID {
		return nil, s.mapError(ctx, domain.ErrSelfTransfer)
	}

	cacheKey := transferCacheKey(req.FromOwnerID, req.Asset, req.IdempotencyKey)
	if res, err := s.replayTransferFromCache(ctx, cacheKey, req); res != nil || err != nil {
		return res, err
	}

	var lastErr error
	for attempt := 0; attempt < maxCommitAttempts; attempt++ {
		res, err := s.transferOnce(ctx, req)
		if err != nil {
			if isRetryable(err) {
				lastErr = err
				continue
			}
			return nil, s.mapError(ctx, err)
		}
		s.finishTransfer(ctx, cacheKey, res)
		return res, nil
	}
	return nil, s.mapError(ctx, apperror.ErrConcurrentModification(lastErr))
}

func (s *LedgerServiceImpl) transferOnce(ctx context.Context, req ports.TransferRequest) (*ports.TransferResult, error) {
	tx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	now := time.Now().UTC()

	// Both directions of concurrent opposite transfers must acquire the two
	// row locks in the same order, or they deadlock. Owner id decides since
	// the asset is shared.
	var fromWallet, toWallet *domain.Wallet
	if req.FromOwnerID.String() < req.ToOwnerID.String() {
		if fromWallet, err = s.lockSource(ctx, tx, req); err != nil {
			return nil, err
		}
		if toWallet, err = s.lockOrCreateDestination(ctx, tx, req, now); err != nil {
			return nil, err
		}
	} else {
		if toWallet, err = s.lockOrCreateDestination(ctx, tx, req, now); err != nil {
			return nil, err
		}
		if fromWallet, err = s.lockSource(ctx, tx, req); err != nil {
			return nil, err
		}
	}

	prior, err := s.entryRepo.GetByIdempotencyKey(ctx, fromWallet.ID, req.IdempotencyKey)
	if err != nil {
		return nil, fmt.Errorf("idempotency check: %w", err)
	}
	if prior != nil {
		if !prior.Matches(domain.EntryKindTransferOut, -req.Amount, "") {
			return nil, domain.ErrIdempotencyKeyConflict
		}
		// The recorded leg must point at the destination named now. The same
		// key aimed at a different wallet is a client bug, not a retry.
		if prior.CounterpartyWalletID == nil || *prior.CounterpartyWalletID != toWallet.ID {
			return nil, domain.ErrIdempotencyKeyConflict
		}
		counterpart, err := s.entryRepo.GetByIdempotencyKey(ctx, toWallet.ID, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("idempotency counterpart: %w", err)
		}
		if counterpart == nil {
			return nil, domain.ErrIdempotencyKeyConflict
		}
		return &ports.TransferResult{
			FromWallet: fromWallet,
			ToWallet:   toWallet,
			FromEntry:  prior,
			ToEntry:    counterpart,
			Replayed:   true,
		}, nil
	}

	expectedFrom := fromWallet.Version
	expectedTo := toWallet.Version

	if err := fromWallet.ApplyDebit(req.Amount); err != nil {
		return nil, err
	}
	if err := toWallet.ApplyCredit(req.Amount); err != nil {
		return nil, err
	}

	correlationID := domain.NewEntryID()
	outEntry := &domain.LedgerEntry{
		ID:                   domain.NewEntryID(),
		WalletID:             fromWallet.ID,
		Kind:                 domain.EntryKindTransferOut,
		Amount:               -req.Amount,
		BalanceAfter:         fromWallet.Balance,
		CounterpartyWalletID: &toWallet.ID,
		CorrelationID:        correlationID,
		IdempotencyKey:       req.IdempotencyKey,
		Description:          req.Description,
		Metadata:             req.Metadata,
		CreatedAt:            now,
	}
	inEntry := &domain.LedgerEntry{
		ID:                   domain.NewEntryID(),
		WalletID:             toWallet.ID,
		Kind:                 domain.EntryKindTransferIn,
		Amount:               req.Amount,
		BalanceAfter:         toWallet.Balance,
		CounterpartyWalletID: &fromWallet.ID,
		CorrelationID:        correlationID,
		IdempotencyKey:       req.IdempotencyKey,
		Description:          req.Description,
		Metadata:             req.Metadata,
		CreatedAt:            now,
	}

	if err := s.walletRepo.Save(ctx, tx, fromWallet, expectedFrom); err != nil {
		return nil, err
	}
	if err := s.walletRepo.Save(ctx, tx, toWallet, expectedTo); err != nil {
		return nil, err
	}
	if err := s.entryRepo.Create(ctx, tx, outEntry); err != nil {
		return nil, err
	}
	if err := s.entryRepo.Create(ctx, tx, inEntry); err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	event := &domain.LedgerEvent{
		Name:           domain.EventFundsTransferred,
		WalletID:       fromWallet.ID,
		OwnerID:        fromWallet.OwnerID,
		Asset:          req.Asset,
		Amount:         req.Amount,
		BalanceAfter:   fromWallet.Balance,
		EntryID:        outEntry.ID,
		CorrelationID:  correlationID,
		CounterOwnerID: &toWallet.OwnerID,
		OccurredAt:     now,
	}
	return &ports.TransferResult{
		FromWallet: fromWallet,
		ToWallet:   toWallet,
		FromEntry:  outEntry,
		ToEntry:    inEntry,
		Event:      event,
	}, nil
}

func (s *LedgerServiceImpl) lockSource(ctx context.Context, tx pgx.Tx, req ports.TransferRequest) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByOwnerForUpdate(ctx, tx, req.FromOwnerID, req.Asset)
	if err != nil {
		return nil, fmt.Errorf("lock source wallet: %w", err)
	}
	if w == nil {
		return nil, domain.ErrWalletNotFound
	}
	return w, nil
}

func (s *LedgerServiceImpl) lockOrCreateDestination(ctx context.Context, tx pgx.Tx, req ports.TransferRequest, now time.Time) (*domain.Wallet, error) {
	w, err := s.walletRepo.GetByOwnerForUpdate(ctx, tx, req.ToOwnerID, req.Asset)
	if err != nil {
		return nil, fmt.Errorf("lock destination wallet: %w", err)
	}
	if w == nil {
		w = domain.NewWallet(req.ToOwnerID, req.Asset, now)
		if err := s.walletRepo.Create(ctx, tx, w); err != nil {
			return nil, fmt.Errorf("create destination wallet: %w", err)
		}
	}
	return w, nil
}

// GetWallet returns the current wallet state without locking.
func (s *LedgerServiceImpl) GetWallet(ctx context.Context, ownerID uuid.UUID, asset domain.AssetType) (*domain.Wallet, error) {
	if !asset.Valid() {
		return nil, apperror.Validation("unknown asset type")
	}
	w, err := s.walletRepo.GetByOwner(ctx, ownerID, asset)
	if err != nil {
		return nil, s.mapError(ctx, fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrWalletNotFound()
	}
	return w, nil
}

// GetHistory returns one newest-first page of the wallet's transaction log.
func (s *LedgerServiceImpl) GetHistory(ctx context.Context, req ports.HistoryRequest) (*ports.HistoryPage, error) {
	if !req.Asset.Valid() {
		return nil, apperror.Validation("unknown asset type")
	}
	limit := req.Limit
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	w, err := s.walletRepo.GetByOwner(ctx, req.OwnerID, req.Asset)
	if err != nil {
		return nil, s.mapError(ctx, fmt.Errorf("get wallet: %w", err))
	}
	if w == nil {
		return nil, apperror.ErrWalletNotFound()
	}

	entries, next, err := s.entryRepo.ListByWallet(ctx, w.ID, limit, req.Cursor)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidCursor) {
			return nil, apperror.Validation("invalid history cursor")
		}
		return nil, s.mapError(ctx, fmt.Errorf("list entries: %w", err))
	}
	return &ports.HistoryPage{Entries: entries, NextCursor: next}, nil
}

// --- helpers ---

func validateMutation(asset domain.AssetType, amount domain.Money, key string) error {
	if !asset.Valid() {
		return apperror.Validation("unknown asset type")
	}
	// Zero-amount operations are rejected outright, never treated as no-ops.
	if !amount.IsPositive() {
		return domain.ErrInvalidAmount
	}
	if key == "" {
		return apperror.Validation("idempotency key is required")
	}
	return nil
}

func isRetryable(err error) bool {
	// A duplicate-key race means another writer recorded the same key after
	// our check, and a lost lazy-creation race means the wallet row exists
	// now; either way the next attempt runs against fresh state.
	return errors.Is(err, domain.ErrVersionConflict) ||
		errors.Is(err, domain.ErrDuplicateIdempotencyKey) ||
		errors.Is(err, domain.ErrWalletExists)
}

func mutationCacheKey(ownerID uuid.UUID, asset domain.AssetType, key string) string {
	return fmt.Sprintf("%s:%s:%s", ownerID, asset, key)
}

func transferCacheKey(fromOwnerID uuid.UUID, asset domain.AssetType, key string) string {
	return fmt.Sprintf("transfer:%s:%s:%s", fromOwnerID, asset, key)
}

// replayFromCache serves a retried request from the Redis fast path. Cache
// errors fall through to the authoritative DB check.
func (s *LedgerServiceImpl) replayFromCache(ctx context.Context, cacheKey string, kind domain.EntryKind, signedAmount domain.Money, reason string) (*ports.LedgerResult, error) {
	data, err := s.idempCache.Get(ctx, cacheKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("redis idempotency check failed, falling through to DB")
		return nil, nil
	}
	if data == nil {
		return nil, nil
	}
	var rec recordedResult
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("corrupt idempotency cache record, falling through to DB")
		return nil, nil
	}
	if !rec.Entry.Matches(kind, signedAmount, reason) {
		return nil, s.mapError(ctx, domain.ErrIdempotencyKeyConflict)
	}
	return &ports.LedgerResult{Wallet: rec.Wallet, Entry: rec.Entry, Replayed: true}, nil
}

func (s *LedgerServiceImpl) replayTransferFromCache(ctx context.Context, cacheKey string, req ports.TransferRequest) (*ports.TransferResult, error) {
	data, err := s.idempCache.Get(ctx, cacheKey)
	if err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("redis idempotency check failed, falling through to DB")
		return nil, nil
	}
	if data == nil {
		return nil, nil
	}
	var rec recordedTransfer
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warn().Err(err).Str("key", cacheKey).Msg("corrupt idempotency cache record, falling through to DB")
		return nil, nil
	}
	if !rec.FromEntry.Matches(domain.EntryKindTransferOut, -req.Amount, "") {
		return nil, s.mapError(ctx, domain.ErrIdempotencyKeyConflict)
	}
	// The cache key carries only the source side; the recorded destination
	// must still match the one named by this request.
	if rec.ToWallet == nil || rec.ToWallet.OwnerID != req.ToOwnerID {
		return nil, s.mapError(ctx, domain.ErrIdempotencyKeyConflict)
	}
	return &ports.TransferResult{
		FromWallet: rec.FromWallet,
		ToWallet:   rec.ToWallet,
		FromEntry:  rec.FromEntry,
		ToEntry:    rec.ToEntry,
		Replayed:   true,
	}, nil
}

// finishMutation records the committed result in the cache, publishes the
// event, and logs. All of it is best-effort: the ledger has committed.
func (s *LedgerServiceImpl) finishMutation(ctx context.Context, cacheKey string, res *ports.LedgerResult) {
	if data, err := json.Marshal(recordedResult{Wallet: res.Wallet, Entry: res.Entry}); err == nil {
		if err := s.idempCache.Set(ctx, cacheKey, data, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache idempotency record")
		}
	}
	if res.Replayed {
		return
	}
	s.publishEvent(ctx, res.Event)
	s.log.Info().
		Str("entry_id", res.Entry.ID).
		Str("wallet_id", res.Wallet.ID.String()).
		Str("kind", string(res.Entry.Kind)).
		Int64("amount", int64(res.Entry.Amount)).
		Int64("balance_after", int64(res.Entry.BalanceAfter)).
		Msg("ledger mutation committed")
}

func (s *LedgerServiceImpl) finishTransfer(ctx context.Context, cacheKey string, res *ports.TransferResult) {
	rec := recordedTransfer{
		FromWallet: res.FromWallet,
		ToWallet:   res.ToWallet,
		FromEntry:  res.FromEntry,
		ToEntry:    res.ToEntry,
	}
	if data, err := json.Marshal(rec); err == nil {
		if err := s.idempCache.Set(ctx, cacheKey, data, idempotencyTTL); err != nil {
			s.log.Warn().Err(err).Str("key", cacheKey).Msg("failed to cache idempotency record")
		}
	}
	if res.Replayed {
		return
	}
	s.publishEvent(ctx, res.Event)
	s.log.Info().
		Str("correlation_id", res.FromEntry.CorrelationID).
		Str("from_wallet", res.FromWallet.ID.String()).
		Str("to_wallet", res.ToWallet.ID.String()).
		Int64("amount", int64(res.ToEntry.Amount)).
		Msg("transfer committed")
}

func (s *LedgerServiceImpl) publishEvent(ctx context.Context, event *domain.LedgerEvent) {
	if s.publisher == nil || event == nil {
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Warn().Err(err).Str("event", string(event.Name)).Msg("failed to publish ledger event")
	}
}

// mapError translates domain sentinels into the stable apperror taxonomy.
// Errors already carrying a code pass through unchanged.
func (s *LedgerServiceImpl) mapError(ctx context.Context, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	switch {
	case errors.Is(err, domain.ErrInvalidAmount):
		return apperror.ErrInvalidAmount()
	case errors.Is(err, domain.ErrAmountOverflow):
		return apperror.ErrAmountOverflow()
	case errors.Is(err, domain.ErrInsufficientBalance):
		return apperror.ErrInsufficientBalance()
	case errors.Is(err, domain.ErrInvalidLockState):
		return apperror.ErrInvalidLockState()
	case errors.Is(err, domain.ErrWalletNotFound):
		return apperror.ErrWalletNotFound()
	case errors.Is(err, domain.ErrSelfTransfer):
		return apperror.ErrSelfTransfer()
	case errors.Is(err, domain.ErrIdempotencyKeyConflict):
		// A replay with different parameters is a client bug, not a retry.
		s.log.Warn().Err(err).Msg("idempotency key replayed with mismatched parameters")
		return apperror.ErrIdempotencyKeyConflict()
	}
	if ctxErr := ctx.Err(); errors.Is(ctxErr, context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return apperror.ErrTimeout(err)
	}
	return apperror.InternalError(err)
}
