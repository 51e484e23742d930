package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"wallet-ledger/internal/core/domain"
	"wallet-ledger/internal/core/ports"
	"wallet-ledger/internal/core/ports/mocks"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func setupLedgerHandler(t *testing.T) (*mocks.MockLedgerService, *gin.Engine) {
	t.Helper()
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockLedgerService(ctrl)
	h := NewLedgerHandler(svc)

	router := gin.New()
	v1 := router.Group("/api/v1")
	ledger := v1.Group("/ledger")
	{
		ledger.POST("/credit", h.Credit)
		ledger.POST("/debit", h.Debit)
		ledger.POST("/transfer", h.Transfer)
		ledger.POST("/lock", h.Lock)
		ledger.POST("/unlock", h.Unlock)
	}
	wallets := v1.Group("/wallets")
	{
		wallets.GET("/:owner_id/:asset", h.GetWallet)
		wallets.GET("/:owner_id/:asset/entries", h.GetHistory)
	}
	return svc, router
}

func performJSON(t *testing.T, router *gin.Engine, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func testWallet(ownerID uuid.UUID) *domain.Wallet {
	now := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return &domain.Wallet{
		ID:               uuid.New(),
		OwnerID:          ownerID,
		Asset:            domain.AssetUSD,
		Balance:          1250,
		LockedBalance:    0,
		LifetimeCredited: 1250,
		LifetimeDebited:  0,
		Version:          3,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func testEntry(walletID uuid.UUID, kind domain.EntryKind, amount domain.Money) *domain.LedgerEntry {
	return &domain.LedgerEntry{
		ID:             domain.NewEntryID(),
		WalletID:       walletID,
		Kind:           kind,
		Amount:         amount,
		BalanceAfter:   1250,
		IdempotencyKey: "order-789",
		Reason:         "REWARD_CLAIM",
		CreatedAt:      time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp response.SuccessResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	data, ok := resp.Data.(map[string]interface{})
	require.True(t, ok, "envelope data should be an object")
	return data
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) response.ErrorResponse {
	t.Helper()
	var resp response.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestCredit_Success(t *testing.T) {
	svc, router := setupLedgerHandler(t)

	ownerID := uuid.New()
	wallet := testWallet(ownerID)
	entry := testEntry(wallet.ID, domain.EntryKindCredit, 1250)

	svc.EXPECT().
		Credit(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, req ports.CreditRequest) (*ports.LedgerResult, error) {
			assert.Equal(t, ownerID, req.OwnerID)
			assert.Equal(t, domain.AssetUSD, req.Asset)
			assert.Equal(t, domain.Money(1250), req.Amount)
			assert.Equal(t, "REWARD_CLAIM", req.Reason)
			assert.Equal(t, "order-789", req.IdempotencyKey)
			return &ports.LedgerResult{Wallet: wallet, Entry: entry}, nil
		})

	w := performJSON(t, router, http.MethodPost, "/api/v1/ledger/credit", map[string]interface{}{
		"owner_id":        ownerID.String(),
		"asset":           "USD",
		"amount":          "12.50",
		"reason":          "REWARD_CLAIM",
		"idempotency_key": "order-789",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	data := decodeData(t, w)
	walletData, ok := data["wallet"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "12.5", walletData["balance"])
	assert.Equal(t, ownerID.String(), walletData["owner_id"])
	assert.Equal(t, float64(3), walletData["version"])

	entryData, ok := data["entry"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "CREDIT", entryData["kind"])
	assert.Equal(t, "12.5", entryData["amount"])
	assert.Equal(t, false, data["replayed"])
}

func TestCredit_ReplayedReturns200(t *testing.T) {
	svc, router := setupLedgerHandler(t)

	ownerID := uuid.New()
	wallet := testWallet(ownerID)
	entry := testEntry(wallet.ID, domain.EntryKindCredit, 1250)

	svc.EXPECT().
		Credit(gomock.Any(), gomock.Any()).
		Return(&ports.LedgerResult{Wallet: wallet, Entry: entry, Replayed: true}, nil)

	w := performJSON(t, router, http.MethodPost, "/api/v1/ledger/credit", map[string]interface{}{
		"owner_id":        ownerID.String(),
		"asset":           "USD",
		"amount":          "12.50",
		"reason":          "REWARD_CLAIM",
		"idempotency_key": "order-789",
	})

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, true, data["replayed"])
}

func TestCredit_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{
			name: "invalid owner id",
			body: map[string]interface{}{
				"owner_id":        "not-a-uuid",
				"asset":           "USD",
				"amount":          "10.00",
				"idempotency_key": "k1",
			},
		},
		{
			name: "unknown asset",
			body: map[string]interface{}{
				"owner_id":        uuid.New().String(),
				"asset":           "DOGE",
				"amount":          "10.00",
				"idempotency_key": "k1",
			},
		},
		{
			name: "malformed amount",
			body: map[string]interface{}{
				"owner_id":        uuid.New().String(),
				"asset":           "USD",
				"amount":          "ten dollars",
				"idempotency_key": "k1",
			},
		},
		{
			name: "excess precision",
			body: map[string]interface{}{
				"owner_id":        uuid.New().String(),
				"asset":           "USD",
				"amount":          "10.001",
				"idempotency_key": "k1",
			},
		},
		{
			name: "missing idempotency key",
			body: map[string]interface{}{
				"owner_id": uuid.New().String(),
				"asset":    "USD",
				"amount":   "10.00",
			},
		},
		{
			name: "idempotency key with forbidden characters",
			body: map[string]interface{}{
				"owner_id":        uuid.New().String(),
				"asset":           "USD",
				"amount":          "10.00",
				"idempotency_key": "bad key with spaces",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, router := setupLedgerHandler(t)

			w := performJSON(t, router, http.MethodPost, "/api/v1/ledger/credit", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
			assert.Equal(t, "LEDGER_001", decodeError(t, w).ErrorCode)
		})
	}
}

func TestCredit_AmountOverflow(t *testing.T) {
	_, router := setupLedgerHandler(t)

	w := performJSON(t, router, http.MethodPost, "/api/v1/ledger/credit", map[string]interface{}{
		"owner_id":        uuid.New().String(),
		"asset":           "USD",
		"amount":          "99999999999999999999",
		"idempotency_key": "k1",
	})

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "LEDGER_008", decodeError(t, w).ErrorCode)
}

func TestDebit_InsufficientBalancePropagates(t *testing.T) {
	svc, router := setupLedgerHandler(t)

	svc.EXPECT().
		Debit(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInsufficientBalance())

	w := performJSON(t, router, http.MethodPost, "/api/v1/ledger/debit", map[string]interface{}{
		"owner_id":        uuid.New().String(),
		"asset":           "USD",
		"amount":          "50.00",
		"reason":          "PURCHASE",
		"idempotency_key": "order-1",
	})

	require.Equal(t, http.StatusPaymentRequired, w.Code, w.Body.String())
	assert.Equal(t, "LEDGER_002", decodeError(t, w).ErrorCode)
}

func TestLock_Success(t *testing.T) {
	svc, router := setupLedgerHandler(t)

	ownerID := uuid.New()
	wallet := testWallet(ownerID)
	wallet.Balance = 650
	wallet.LockedBalance = 600
	entry := testEntry(wallet.ID, domain.EntryKindLock, -600)
	entry.Reason = ""

	svc.EXPECT().
		Lock(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, req ports.LockRequest) (*ports.LedgerResult, error) {
			assert.Equal(t, domain.Money(600), req.Amount)
			return &ports.LedgerResult{Wallet: wallet, Entry: entry}, nil
		})

	w := performJSON(t, router, http.MethodPost, "/api/v1/ledger/lock", map[string]interface{}{
		"owner_id":        ownerID.String(),
		"asset":           "USD",
		"amount":          "6.00",
		"idempotency_key": "hold-42",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeData(t, w)
	walletData := data["wallet"].(map[string]interface{})
	assert.Equal(t, "6.5", walletData["balance"])
	assert.Equal(t, "6", walletData["locked_balance"])
	entryData := data["entry"].(map[string]interface{})
	assert.Equal(t, "LOCK", entryData["kind"])
	assert.Equal(t, "-6", entryData["amount"])
}

func TestUnlock_InvalidLockStatePropagates(t *testing.T) {
	svc, router := setupLedgerHandler(t)

	svc.EXPECT().
		Unlock(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrInvalidLockState())

	w := performJSON(t, router, http.MethodPost, "/api/v1/ledger/unlock", map[string]interface{}{
		"owner_id":        uuid.New().String(),
		"asset":           "USD",
		"amount":          "6.00",
		"idempotency_key": "hold-42",
	})

	require.Equal(t, http.StatusConflict, w.Code, w.Body.String())
	assert.Equal(t, "LEDGER_009", decodeError(t, w).ErrorCode)
}

func TestTransfer_Success(t *testing.T) {
	svc, router := setupLedgerHandler(t)

	fromOwner := uuid.New()
	toOwner := uuid.New()
	fromWallet := testWallet(fromOwner)
	fromWallet.Balance = 250
	toWallet := testWallet(toOwner)
	toWallet.Balance = 1000

	correlationID := uuid.New().String()
	fromEntry := testEntry(fromWallet.ID, domain.EntryKindTransferOut, -1000)
	fromEntry.CorrelationID = correlationID
	toEntry := testEntry(toWallet.ID, domain.EntryKindTransferIn, 1000)
	toEntry.CorrelationID = correlationID

	svc.EXPECT().
		Transfer(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, req ports.TransferRequest) (*ports.TransferResult, error) {
			assert.Equal(t, fromOwner, req.FromOwnerID)
			assert.Equal(t, toOwner, req.ToOwnerID)
			assert.Equal(t, domain.Money(1000), req.Amount)
			return &ports.TransferResult{
				FromWallet: fromWallet,
				ToWallet:   toWallet,
				FromEntry:  fromEntry,
				ToEntry:    toEntry,
			}, nil
		})

	w := performJSON(t, router, http.MethodPost, "/api/v1/ledger/transfer", map[string]interface{}{
		"from_owner_id":   fromOwner.String(),
		"to_owner_id":     toOwner.String(),
		"asset":           "USD",
		"amount":          "10.00",
		"idempotency_key": "xfer-1",
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	data := decodeData(t, w)

	fromEntryData := data["from_entry"].(map[string]interface{})
	toEntryData := data["to_entry"].(map[string]interface{})
	assert.Equal(t, "TRANSFER_OUT", fromEntryData["kind"])
	assert.Equal(t, "TRANSFER_IN", toEntryData["kind"])
	assert.Equal(t, correlationID, fromEntryData["correlation_id"])
	assert.Equal(t, correlationID, toEntryData["correlation_id"])
	assert.Equal(t, "-10", fromEntryData["amount"])
	assert.Equal(t, "10", toEntryData["amount"])
}

func TestTransfer_SelfTransferPropagates(t *testing.T) {
	svc, router := setupLedgerHandler(t)

	svc.EXPECT().
		Transfer(gomock.Any(), gomock.Any()).
		Return(nil, apperror.ErrSelfTransfer())

	owner := uuid.New().String()
	w := performJSON(t, router, http.MethodPost, "/api/v1/ledger/transfer", map[string]interface{}{
		"from_owner_id":   owner,
		"to_owner_id":     owner,
		"asset":           "USD",
		"amount":          "10.00",
		"idempotency_key": "xfer-1",
	})

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "LEDGER_004", decodeError(t, w).ErrorCode)
}

func TestTransfer_InvalidDestinationOwner(t *testing.T) {
	_, router := setupLedgerHandler(t)

	w := performJSON(t, router, http.MethodPost, "/api/v1/ledger/transfer", map[string]interface{}{
		"from_owner_id":   uuid.New().String(),
		"to_owner_id":     "not-a-uuid",
		"asset":           "USD",
		"amount":          "10.00",
		"idempotency_key": "xfer-1",
	})

	require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())
	assert.Equal(t, "LEDGER_001", decodeError(t, w).ErrorCode)
}

func TestGetWallet_Success(t *testing.T) {
	svc, router := setupLedgerHandler(t)

	ownerID := uuid.New()
	wallet := testWallet(ownerID)

	svc.EXPECT().
		GetWallet(gomock.Any(), ownerID, domain.AssetUSD).
		Return(wallet, nil)

	w := performJSON(t, router, http.MethodGet, "/api/v1/wallets/"+ownerID.String()+"/USD", nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	assert.Equal(t, "12.5", data["balance"])
	assert.Equal(t, "USD", data["asset"])
}

func TestGetWallet_NotFound(t *testing.T) {
	svc, router := setupLedgerHandler(t)

	ownerID := uuid.New()
	svc.EXPECT().
		GetWallet(gomock.Any(), ownerID, domain.AssetUSD).
		Return(nil, apperror.ErrWalletNotFound())

	w := performJSON(t, router, http.MethodGet, "/api/v1/wallets/"+ownerID.String()+"/USD", nil)

	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "LEDGER_003", decodeError(t, w).ErrorCode)
}

func TestGetWallet_UnknownAsset(t *testing.T) {
	_, router := setupLedgerHandler(t)

	w := performJSON(t, router, http.MethodGet, "/api/v1/wallets/"+uuid.New().String()+"/DOGE", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "LEDGER_001", decodeError(t, w).ErrorCode)
}

func TestGetHistory_ForwardsPagination(t *testing.T) {
	svc, router := setupLedgerHandler(t)

	ownerID := uuid.New()
	entry := testEntry(uuid.New(), domain.EntryKindCredit, 1250)

	svc.EXPECT().
		GetHistory(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ interface{}, req ports.HistoryRequest) (*ports.HistoryPage, error) {
			assert.Equal(t, ownerID, req.OwnerID)
			assert.Equal(t, domain.AssetUSD, req.Asset)
			assert.Equal(t, 10, req.Limit)
			assert.Equal(t, "cursor-abc", req.Cursor)
			return &ports.HistoryPage{
				Entries:    []domain.LedgerEntry{*entry},
				NextCursor: "cursor-next",
			}, nil
		})

	path := "/api/v1/wallets/" + ownerID.String() + "/USD/entries?limit=10&cursor=cursor-abc"
	w := performJSON(t, router, http.MethodGet, path, nil)

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	entries, ok := data["entries"].([]interface{})
	require.True(t, ok)
	require.Len(t, entries, 1)
	assert.Equal(t, "cursor-next", data["next_cursor"])
}

type stubChecker struct {
	name string
	err  error
}

func (s stubChecker) Ping(context.Context) error { return s.err }
func (s stubChecker) Name() string               { return s.name }

func TestHealthCheck(t *testing.T) {
	t.Run("all healthy", func(t *testing.T) {
		router := gin.New()
		router.GET("/health", HealthCheck(stubChecker{name: "postgres"}, stubChecker{name: "redis"}))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusOK, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "healthy", resp["status"])
	})

	t.Run("degraded when a dependency fails", func(t *testing.T) {
		router := gin.New()
		router.GET("/health", HealthCheck(
			stubChecker{name: "postgres"},
			stubChecker{name: "redis", err: assert.AnError},
		))

		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))

		require.Equal(t, http.StatusServiceUnavailable, w.Code)

		var resp map[string]interface{}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, "degraded", resp["status"])
		deps := resp["dependencies"].(map[string]interface{})
		redis := deps["redis"].(map[string]interface{})
		assert.Equal(t, "unhealthy", redis["status"])
	})
}
