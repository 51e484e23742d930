package domain

import "errors"

// Sentinel errors raised by domain logic and repositories. The service layer
// maps them 1:1 onto the stable apperror taxonomy.
var (
	ErrInvalidAmount           = errors.New("amount must be greater than zero")
	ErrAmountOverflow          = errors.New("amount exceeds representable range")
	ErrInsufficientBalance     = errors.New("insufficient spendable balance")
	ErrInvalidLockState        = errors.New("unlock amount exceeds locked balance")
	ErrWalletNotFound          = errors.New("wallet not found")
	ErrWalletExists            = errors.New("wallet already exists for owner and asset")
	ErrInvalidCursor           = errors.New("invalid history cursor")
	ErrSelfTransfer            = errors.New("transfer source and destination are identical")
	ErrVersionConflict         = errors.New("wallet version conflict")
	ErrDuplicateIdempotencyKey = errors.New("idempotency key already used for this wallet")
	ErrIdempotencyKeyConflict  = errors.New("idempotency key replayed with different parameters")
)
