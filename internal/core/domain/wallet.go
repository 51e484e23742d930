package domain

import (
	"time"

	"github.com/google/uuid"
)

// Wallet is the per-owner, per-asset balance record. Balance is the
// spendable amount and already excludes LockedBalance. LifetimeCredited and
// LifetimeDebited are monotone running totals used for reconciliation:
// LifetimeCredited - LifetimeDebited == Balance + LockedBalance at all times.
type Wallet struct {
	ID               uuid.UUID `json:"id"`
	OwnerID          uuid.UUID `json:"owner_id"`
	Asset            AssetType `json:"asset"`
	Balance          Money     `json:"balance"`
	LockedBalance    Money     `json:"locked_balance"`
	LifetimeCredited Money     `json:"lifetime_credited"`
	LifetimeDebited  Money     `json:"lifetime_debited"`
	Version          int64     `json:"version"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewWallet creates a zero-balance wallet. Wallets come into existence lazily
// on first credit and are never hard-deleted.
func NewWallet(ownerID uuid.UUID, asset AssetType, now time.Time) *Wallet {
	return &Wallet{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		Asset:     asset,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// ApplyCredit adds amount to the spendable balance.
func (w *Wallet) ApplyCredit(amount Money) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	newBalance, err := w.Balance.Add(amount)
	if err != nil {
		return err
	}
	newCredited, err := w.LifetimeCredited.Add(amount)
	if err != nil {
		return err
	}
	w.Balance = newBalance
	w.LifetimeCredited = newCredited
	return nil
}

// ApplyDebit removes amount from the spendable balance. A debit never drives
// the balance negative.
func (w *Wallet) ApplyDebit(amount Money) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if w.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	newDebited, err := w.LifetimeDebited.Add(amount)
	if err != nil {
		return err
	}
	w.Balance -= amount
	w.LifetimeDebited = newDebited
	return nil
}

// ApplyLock reserves amount by moving it from Balance to LockedBalance, so
// funds pending an external confirmation cannot be spent twice.
func (w *Wallet) ApplyLock(amount Money) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if w.Balance.LessThan(amount) {
		return ErrInsufficientBalance
	}
	newLocked, err := w.LockedBalance.Add(amount)
	if err != nil {
		return err
	}
	w.Balance -= amount
	w.LockedBalance = newLocked
	return nil
}

// ApplyUnlock releases a previous reservation back to the spendable balance.
func (w *Wallet) ApplyUnlock(amount Money) error {
	if !amount.IsPositive() {
		return ErrInvalidAmount
	}
	if w.LockedBalance.LessThan(amount) {
		return ErrInvalidLockState
	}
	newBalance, err := w.Balance.Add(amount)
	if err != nil {
		return err
	}
	w.LockedBalance -= amount
	w.Balance = newBalance
	return nil
}
