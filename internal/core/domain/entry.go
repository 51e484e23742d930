package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
)

// EntryKind classifies the balance movement an entry records.
type EntryKind string

const (
	EntryKindCredit      EntryKind = "CREDIT"
	EntryKindDebit       EntryKind = "DEBIT"
	EntryKindTransferOut EntryKind = "TRANSFER_OUT"
	EntryKindTransferIn  EntryKind = "TRANSFER_IN"
	EntryKindLock        EntryKind = "LOCK"
	EntryKindUnlock      EntryKind = "UNLOCK"
	EntryKindAdjustment  EntryKind = "ADJUSTMENT"
)

// Metadata is an opaque key/value attachment on a ledger entry. The engine
// stores it verbatim and never interprets it.
type Metadata map[string]string

// LedgerEntry is one immutable row of the append-only transaction log.
// Amount is signed: credits and unlocks are positive, debits and locks
// negative, so replaying the log from zero reproduces the spendable balance.
type LedgerEntry struct {
	ID                   string     `json:"id"` // ULID, lexicographically time-ordered
	WalletID             uuid.UUID  `json:"wallet_id"`
	Kind                 EntryKind  `json:"kind"`
	Amount               Money      `json:"amount"`
	BalanceAfter         Money      `json:"balance_after"`
	CounterpartyWalletID *uuid.UUID `json:"counterparty_wallet_id,omitempty"`
	CorrelationID        string     `json:"correlation_id,omitempty"` // shared by the two legs of a transfer
	IdempotencyKey       string     `json:"idempotency_key"`
	Reason               string     `json:"reason,omitempty"` // caller-supplied business label, e.g. REWARD_CLAIM
	Description          string     `json:"description,omitempty"`
	Metadata             Metadata   `json:"metadata,omitempty"`
	CreatedAt            time.Time  `json:"created_at"`
}

// NewEntryID returns a fresh ULID. Entry ids double as the history cursor
// because ULIDs sort by creation time.
func NewEntryID() string {
	return ulid.Make().String()
}

// Matches reports whether a replayed request carries the same parameters as
// the entry originally recorded under its idempotency key. A mismatch means
// a client bug, not a retry.
func (e *LedgerEntry) Matches(kind EntryKind, amount Money, reason string) bool {
	return e.Kind == kind && e.Amount == amount && e.Reason == reason
}
