package dto

// Amounts cross the API boundary as decimal strings ("12.34") and are parsed
// into minor units of the asset; responses format them back the same way.

// MutationRequest is the request body for credit, debit, lock and unlock.
type MutationRequest struct {
	OwnerID        string            `json:"owner_id" binding:"required,uuid"`
	Asset          string            `json:"asset" binding:"required"`
	Amount         string            `json:"amount" binding:"required"`
	Reason         string            `json:"reason,omitempty" binding:"omitempty,max=100,safe_key"`
	IdempotencyKey string            `json:"idempotency_key" binding:"required,max=100,safe_key"`
	Description    string            `json:"description,omitempty" binding:"max=500"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// TransferRequest is the request body for wallet-to-wallet transfers.
type TransferRequest struct {
	FromOwnerID    string            `json:"from_owner_id" binding:"required,uuid"`
	ToOwnerID      string            `json:"to_owner_id" binding:"required,uuid"`
	Asset          string            `json:"asset" binding:"required"`
	Amount         string            `json:"amount" binding:"required"`
	IdempotencyKey string            `json:"idempotency_key" binding:"required,max=100,safe_key"`
	Description    string            `json:"description,omitempty" binding:"max=500"`
	Metadata       map[string]string `json:"metadata,omitempty"`
}

// WalletResponse is the API view of a wallet.
type WalletResponse struct {
	OwnerID          string `json:"owner_id"`
	Asset            string `json:"asset"`
	Balance          string `json:"balance"`
	LockedBalance    string `json:"locked_balance"`
	LifetimeCredited string `json:"lifetime_credited"`
	LifetimeDebited  string `json:"lifetime_debited"`
	Version          int64  `json:"version"`
	UpdatedAt        string `json:"updated_at"`
}

// EntryResponse is the API view of one transaction log entry.
type EntryResponse struct {
	ID             string            `json:"id"`
	Kind           string            `json:"kind"`
	Amount         string            `json:"amount"`
	BalanceAfter   string            `json:"balance_after"`
	CorrelationID  string            `json:"correlation_id,omitempty"`
	IdempotencyKey string            `json:"idempotency_key"`
	Reason         string            `json:"reason,omitempty"`
	Description    string            `json:"description,omitempty"`
	Metadata       map[string]string `json:"metadata,omitempty"`
	CreatedAt      string            `json:"created_at"`
}

// MutationResponse is the response body for credit, debit, lock and unlock.
type MutationResponse struct {
	Wallet   WalletResponse `json:"wallet"`
	Entry    EntryResponse  `json:"entry"`
	Replayed bool           `json:"replayed"`
}

// TransferResponse is the response body for transfers.
type TransferResponse struct {
	FromWallet WalletResponse `json:"from_wallet"`
	ToWallet   WalletResponse `json:"to_wallet"`
	FromEntry  EntryResponse  `json:"from_entry"`
	ToEntry    EntryResponse  `json:"to_entry"`
	Replayed   bool           `json:"replayed"`
}

// HistoryResponse wraps one newest-first page of entries.
type HistoryResponse struct {
	Entries    []EntryResponse `json:"entries"`
	NextCursor string          `json:"next_cursor,omitempty"`
}
