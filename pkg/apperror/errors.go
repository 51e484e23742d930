package apperror

import (
	"fmt"
	"net/http"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

// ---- Ledger (LEDGER) ----
// Stable caller-facing taxonomy for ledger mutations. None of these are
// retried automatically except ConcurrentModification, which the service
// retries internally before surfacing.

func ErrInvalidAmount() *AppError {
	return New("LEDGER_001", "Amount must be a positive, in-range value", http.StatusBadRequest)
}

func ErrInsufficientBalance() *AppError {
	return New("LEDGER_002", "Insufficient spendable balance", http.StatusPaymentRequired)
}

func ErrWalletNotFound() *AppError {
	return New("LEDGER_003", "Wallet not found", http.StatusNotFound)
}

func ErrSelfTransfer() *AppError {
	return New("LEDGER_004", "Transfer source and destination are identical", http.StatusBadRequest)
}

func ErrIdempotencyKeyConflict() *AppError {
	return New("LEDGER_005", "Idempotency key replayed with different parameters", http.StatusConflict)
}

func ErrConcurrentModification(err error) *AppError {
	return Wrap("LEDGER_006", "Wallet modified concurrently, retries exhausted", http.StatusConflict, err)
}

func ErrTimeout(err error) *AppError {
	return Wrap("LEDGER_007", "Operation deadline exceeded", http.StatusServiceUnavailable, err)
}

func ErrAmountOverflow() *AppError {
	return New("LEDGER_008", "Amount exceeds representable range", http.StatusBadRequest)
}

func ErrInvalidLockState() *AppError {
	return New("LEDGER_009", "Unlock amount exceeds locked balance", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

func ErrInvalidAPIKey() *AppError {
	return New("AUTH_002", "Invalid API key", http.StatusUnauthorized)
}

// ---- System & Infrastructure (SYS) ----

// InternalError wraps an internal error as a SYS_001 error.
func InternalError(err error) *AppError {
	return Wrap("SYS_001", "Internal server error", http.StatusInternalServerError, err)
}

func ErrDatabaseError(err error) *AppError {
	return Wrap("SYS_002", "Internal database error", http.StatusInternalServerError, err)
}

// Validation returns a LEDGER_001-style validation error with a custom message.
func Validation(message string) *AppError {
	return New("LEDGER_001", message, http.StatusBadRequest)
}
