package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventName identifies a ledger domain event.
type EventName string

const (
	EventBalanceCredited  EventName = "wallet.balance_credited"
	EventBalanceDebited   EventName = "wallet.balance_debited"
	EventFundsTransferred EventName = "wallet.funds_transferred"
	EventFundsLocked      EventName = "wallet.funds_locked"
	EventFundsUnlocked    EventName = "wallet.funds_unlocked"
)

// LedgerEvent is emitted after a mutation commits. It is returned to the
// caller and published best-effort to the event bus.
type LedgerEvent struct {
	Name           EventName  `json:"name"`
	WalletID       uuid.UUID  `json:"wallet_id"`
	OwnerID        uuid.UUID  `json:"owner_id"`
	Asset          AssetType  `json:"asset"`
	Amount         Money      `json:"amount"`
	BalanceAfter   Money      `json:"balance_after"`
	EntryID        string     `json:"entry_id"`
	CorrelationID  string     `json:"correlation_id,omitempty"`
	CounterOwnerID *uuid.UUID `json:"counter_owner_id,omitempty"` // transfer peer
	OccurredAt     time.Time  `json:"occurred_at"`
}
