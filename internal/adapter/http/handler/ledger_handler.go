package handler

import (
	"errors"
	"time"

	"wallet-ledger/internal/adapter/http/dto"
	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// LedgerHandler exposes the ledger operations over HTTP.
type LedgerHandler struct {
	ledgerSvc ports.LedgerService
}

// NewLedgerHandler creates a new LedgerHandler.
func NewLedgerHandler(ledgerSvc ports.LedgerService) *LedgerHandler {
	return &LedgerHandler{ledgerSvc: ledgerSvc}
}

// Credit handles POST /api/v1/ledger/credit.
func (h *LedgerHandler) Credit(c *gin.Context) {
	req, ok := bindMutation(c)
	if !ok {
		return
	}

	result, err := h.ledgerSvc.Credit(c.Request.Context(), ports.CreditRequest{
		OwnerID:        req.ownerID,
		Asset:          req.asset,
		Amount:         req.amount,
		Reason:         req.body.Reason,
		IdempotencyKey: req.body.IdempotencyKey,
		Description:    req.body.Description,
		Metadata:       domain.Metadata(req.body.Metadata),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	writeMutation(c, result)
}

// Debit handles POST /api/v1/ledger/debit.
func (h *LedgerHandler) Debit(c *gin.Context) {
	req, ok := bindMutation(c)
	if !ok {
		return
	}

	result, err := h.ledgerSvc.Debit(c.Request.Context(), ports.DebitRequest{
		OwnerID:        req.ownerID,
		Asset:          req.asset,
		Amount:         req.amount,
		Reason:         req.body.Reason,
		IdempotencyKey: req.body.IdempotencyKey,
		Description:    req.body.Description,
		Metadata:       domain.Metadata(req.body.Metadata),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	writeMutation(c, result)
}

// Lock handles POST /api/v1/ledger/lock.
func (h *LedgerHandler) Lock(c *gin.Context) {
	req, ok := bindMutation(c)
	if !ok {
		return
	}

	result, err := h.ledgerSvc.Lock(c.Request.Context(), ports.LockRequest{
		OwnerID:        req.ownerID,
		Asset:          req.asset,
		Amount:         req.amount,
		IdempotencyKey: req.body.IdempotencyKey,
		Description:    req.body.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	writeMutation(c, result)
}

// Unlock handles POST /api/v1/ledger/unlock.
func (h *LedgerHandler) Unlock(c *gin.Context) {
	req, ok := bindMutation(c)
	if !ok {
		return
	}

	result, err := h.ledgerSvc.Unlock(c.Request.Context(), ports.LockRequest{
		OwnerID:        req.ownerID,
		Asset:          req.asset,
		Amount:         req.amount,
		IdempotencyKey: req.body.IdempotencyKey,
		Description:    req.body.Description,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	writeMutation(c, result)
}

// Transfer handles POST /api/v1/ledger/transfer.
func (h *LedgerHandler) Transfer(c *gin.Context) {
	var body dto.TransferRequest
	if err := c.ShouldBindJSON(&body); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.SanitizeStruct(&body)

	fromOwner, err := uuid.Parse(body.FromOwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid from_owner_id"))
		return
	}
	toOwner, err := uuid.Parse(body.ToOwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid to_owner_id"))
		return
	}
	asset, amount, ok := parseAssetAmount(c, body.Asset, body.Amount)
	if !ok {
		return
	}

	result, err := h.ledgerSvc.Transfer(c.Request.Context(), ports.TransferRequest{
		FromOwnerID:    fromOwner,
		ToOwnerID:      toOwner,
		Asset:          asset,
		Amount:         amount,
		IdempotencyKey: body.IdempotencyKey,
		Description:    body.Description,
		Metadata:       domain.Metadata(body.Metadata),
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.TransferResponse{
		FromWallet: toWalletResponse(result.FromWallet),
		ToWallet:   toWalletResponse(result.ToWallet),
		FromEntry:  toEntryResponse(result.FromEntry, result.FromWallet.Asset),
		ToEntry:    toEntryResponse(result.ToEntry, result.ToWallet.Asset),
		Replayed:   result.Replayed,
	}
	if result.Replayed {
		response.OK(c, resp)
		return
	}
	response.Created(c, resp)
}

// GetWallet handles GET /api/v1/wallets/:owner_id/:asset.
func (h *LedgerHandler) GetWallet(c *gin.Context) {
	ownerID, asset, ok := parsePathParams(c)
	if !ok {
		return
	}

	wallet, err := h.ledgerSvc.GetWallet(c.Request.Context(), ownerID, asset)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, toWalletResponse(wallet))
}

// GetHistory handles GET /api/v1/wallets/:owner_id/:asset/entries.
func (h *LedgerHandler) GetHistory(c *gin.Context) {
	ownerID, asset, ok := parsePathParams(c)
	if !ok {
		return
	}

	var query struct {
		Limit  int    `form:"limit"`
		Cursor string `form:"cursor"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	page, err := h.ledgerSvc.GetHistory(c.Request.Context(), ports.HistoryRequest{
		OwnerID: ownerID,
		Asset:   asset,
		Limit:   query.Limit,
		Cursor:  query.Cursor,
	})
	if err != nil {
		response.Error(c, err)
		return
	}

	entries := make([]dto.EntryResponse, 0, len(page.Entries))
	for i := range page.Entries {
		entries = append(entries, toEntryResponse(&page.Entries[i], asset))
	}
	response.OK(c, dto.HistoryResponse{
		Entries:    entries,
		NextCursor: page.NextCursor,
	})
}

// boundMutation carries the parsed common fields of a mutation request.
type boundMutation struct {
	body    dto.MutationRequest
	ownerID uuid.UUID
	asset   domain.AssetType
	amount  domain.Money
}

func bindMutation(c *gin.Context) (boundMutation, bool) {
	var req boundMutation
	if err := c.ShouldBindJSON(&req.body); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return req, false
	}
	dto.SanitizeStruct(&req.body)

	ownerID, err := uuid.Parse(req.body.OwnerID)
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner_id"))
		return req, false
	}
	asset, amount, ok := parseAssetAmount(c, req.body.Asset, req.body.Amount)
	if !ok {
		return req, false
	}

	req.ownerID = ownerID
	req.asset = asset
	req.amount = amount
	return req, true
}

func parseAssetAmount(c *gin.Context, rawAsset, rawAmount string) (domain.AssetType, domain.Money, bool) {
	asset := domain.AssetType(rawAsset)
	if !asset.Valid() {
		response.Error(c, apperror.Validation("unknown asset"))
		return "", 0, false
	}
	amount, err := domain.ParseAmount(rawAmount, asset)
	if err != nil {
		if errors.Is(err, domain.ErrAmountOverflow) {
			response.Error(c, apperror.ErrAmountOverflow())
			return "", 0, false
		}
		response.Error(c, apperror.Validation(err.Error()))
		return "", 0, false
	}
	return asset, amount, true
}

func parsePathParams(c *gin.Context) (uuid.UUID, domain.AssetType, bool) {
	ownerID, err := uuid.Parse(c.Param("owner_id"))
	if err != nil {
		response.Error(c, apperror.Validation("invalid owner_id"))
		return uuid.Nil, "", false
	}
	asset := domain.AssetType(c.Param("asset"))
	if !asset.Valid() {
		response.Error(c, apperror.Validation("unknown asset"))
		return uuid.Nil, "", false
	}
	return ownerID, asset, true
}

func writeMutation(c *gin.Context, result *ports.LedgerResult) {
	resp := dto.MutationResponse{
		Wallet:   toWalletResponse(result.Wallet),
		Entry:    toEntryResponse(result.Entry, result.Wallet.Asset),
		Replayed: result.Replayed,
	}
	// Replays return 200; a freshly applied mutation returns 201.
	if result.Replayed {
		response.OK(c, resp)
		return
	}
	response.Created(c, resp)
}

func toWalletResponse(w *domain.Wallet) dto.WalletResponse {
	return dto.WalletResponse{
		OwnerID:          w.OwnerID.String(),
		Asset:            string(w.Asset),
		Balance:          w.Balance.Format(w.Asset),
		LockedBalance:    w.LockedBalance.Format(w.Asset),
		LifetimeCredited: w.LifetimeCredited.Format(w.Asset),
		LifetimeDebited:  w.LifetimeDebited.Format(w.Asset),
		Version:          w.Version,
		UpdatedAt:        w.UpdatedAt.UTC().Format(time.RFC3339),
	}
}

func toEntryResponse(e *domain.LedgerEntry, asset domain.AssetType) dto.EntryResponse {
	return dto.EntryResponse{
		ID:             e.ID,
		Kind:           string(e.Kind),
		Amount:         e.Amount.Format(asset),
		BalanceAfter:   e.BalanceAfter.Format(asset),
		CorrelationID:  e.CorrelationID,
		IdempotencyKey: e.IdempotencyKey,
		Reason:         e.Reason,
		Description:    e.Description,
		Metadata:       e.Metadata,
		CreatedAt:      e.CreatedAt.UTC().Format(time.RFC3339),
	}
}
