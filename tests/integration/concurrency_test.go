package integration

import (
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestConcurrentCredits fires 50 concurrent credits against one wallet. Row
// locking serializes them, so every request must succeed and the final
// balance must equal the sum of all credits.
func TestConcurrentCredits(t *testing.T) {
	app := newTestApp(t)
	ownerID := uuid.New().String()

	concurrency := 50
	var wg sync.WaitGroup
	var successCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			status, _ := app.mutate(t, "/api/v1/ledger/credit", map[string]interface{}{
				"owner_id":        ownerID,
				"asset":           "USD",
				"amount":          "1.00",
				"reason":          "TOPUP",
				"idempotency_key": fmt.Sprintf("topup-%d", idx),
			})
			if status == http.StatusCreated {
				successCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	require.Equal(t, int64(concurrency), successCount.Load())

	status, envelope := app.read(t, "/api/v1/wallets/"+ownerID+"/USD")
	require.Equal(t, http.StatusOK, status)
	d := data(t, envelope)
	assert.Equal(t, "50", d["balance"])
	assert.Equal(t, float64(concurrency), d["version"])
}

// TestConcurrentDebits_NoDoubleSpend funds a wallet with 100.00 and fires 20
// concurrent debits of 10.00 each. Exactly 10 can be funded; the rest must
// fail without the balance ever going negative.
func TestConcurrentDebits_NoDoubleSpend(t *testing.T) {
	app := newTestApp(t)
	ownerID := uuid.New().String()

	status, _ := app.mutate(t, "/api/v1/ledger/credit", map[string]interface{}{
		"owner_id":        ownerID,
		"asset":           "USD",
		"amount":          "100.00",
		"reason":          "TOPUP",
		"idempotency_key": "seed",
	})
	require.Equal(t, http.StatusCreated, status)

	concurrency := 20
	var wg sync.WaitGroup
	var successCount, insufficientCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			status, envelope := app.mutate(t, "/api/v1/ledger/debit", map[string]interface{}{
				"owner_id":        ownerID,
				"asset":           "USD",
				"amount":          "10.00",
				"reason":          "PURCHASE",
				"idempotency_key": fmt.Sprintf("order-%d", idx),
			})
			switch status {
			case http.StatusCreated:
				successCount.Add(1)
			case http.StatusPaymentRequired:
				assert.Equal(t, "LEDGER_002", envelope["error_code"])
				insufficientCount.Add(1)
			}
		}(i)
	}
	wg.Wait()

	t.Logf("Concurrent debits: %d succeeded, %d insufficient (out of %d)",
		successCount.Load(), insufficientCount.Load(), concurrency)

	assert.Equal(t, int64(10), successCount.Load())
	assert.Equal(t, int64(10), insufficientCount.Load())

	status, envelope := app.read(t, "/api/v1/wallets/"+ownerID+"/USD")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0", data(t, envelope)["balance"])
}

// TestConcurrentSameIdempotencyKey fires 20 concurrent identical credits.
// Exactly one may apply; the rest must be served as replays of its outcome.
func TestConcurrentSameIdempotencyKey(t *testing.T) {
	app := newTestApp(t)
	ownerID := uuid.New().String()

	concurrency := 20
	var wg sync.WaitGroup
	var appliedCount, replayedCount atomic.Int64

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			status, _ := app.mutate(t, "/api/v1/ledger/credit", map[string]interface{}{
				"owner_id":        ownerID,
				"asset":           "USD",
				"amount":          "25.00",
				"reason":          "TOPUP",
				"idempotency_key": "shared-key",
			})
			switch status {
			case http.StatusCreated:
				appliedCount.Add(1)
			case http.StatusOK:
				replayedCount.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(1), appliedCount.Load())
	assert.Equal(t, int64(concurrency-1), replayedCount.Load())

	status, envelope := app.read(t, "/api/v1/wallets/"+ownerID+"/USD")
	require.Equal(t, http.StatusOK, status)
	d := data(t, envelope)
	assert.Equal(t, "25", d["balance"])
	assert.Equal(t, float64(1), d["version"], "only one mutation may have applied")
}

// TestConcurrentTransfers_Conservation shuffles funds between two wallets
// from many goroutines at once and verifies the total supply never changes.
func TestConcurrentTransfers_Conservation(t *testing.T) {
	app := newTestApp(t)
	ownerA := uuid.New().String()
	ownerB := uuid.New().String()

	for i, owner := range []string{ownerA, ownerB} {
		status, _ := app.mutate(t, "/api/v1/ledger/credit", map[string]interface{}{
			"owner_id":        owner,
			"asset":           "USDX",
			"amount":          "500",
			"reason":          "DEPOSIT",
			"idempotency_key": fmt.Sprintf("seed-%d", i),
		})
		require.Equal(t, http.StatusCreated, status)
	}

	concurrency := 40
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			from, to := ownerA, ownerB
			if rand.Intn(2) == 0 {
				from, to = ownerB, ownerA
			}
			status, _ := app.mutate(t, "/api/v1/ledger/transfer", map[string]interface{}{
				"from_owner_id":   from,
				"to_owner_id":     to,
				"asset":           "USDX",
				"amount":          fmt.Sprintf("%d", 1+rand.Intn(20)),
				"idempotency_key": fmt.Sprintf("xfer-%d", idx),
			})
			// Transfers may fail on insufficient funds; they must never
			// partially apply.
			assert.Contains(t, []int{http.StatusCreated, http.StatusPaymentRequired}, status)
		}(i)
	}
	wg.Wait()

	var total float64
	for _, owner := range []string{ownerA, ownerB} {
		status, envelope := app.read(t, "/api/v1/wallets/"+owner+"/USDX")
		require.Equal(t, http.StatusOK, status)
		d := data(t, envelope)
		var balance float64
		_, err := fmt.Sscanf(d["balance"].(string), "%f", &balance)
		require.NoError(t, err)
		require.GreaterOrEqual(t, balance, 0.0)
		total += balance
	}
	assert.InDelta(t, 1000.0, total, 0.0001, "transfers must conserve the total supply")
}

// TestConcurrentMixedOperations interleaves credits, debits, locks and
// unlocks and then audits the result: replaying the signed entry log from
// zero must reproduce the spendable balance, and the lifetime totals must
// reconcile.
func TestConcurrentMixedOperations(t *testing.T) {
	app := newTestApp(t)
	ownerID := uuid.New().String()

	status, _ := app.mutate(t, "/api/v1/ledger/credit", map[string]interface{}{
		"owner_id":        ownerID,
		"asset":           "USD",
		"amount":          "1000.00",
		"reason":          "TOPUP",
		"idempotency_key": "seed",
	})
	require.Equal(t, http.StatusCreated, status)

	ops := []struct {
		path   string
		amount string
	}{
		{"/api/v1/ledger/credit", "5.00"},
		{"/api/v1/ledger/debit", "3.00"},
		{"/api/v1/ledger/lock", "10.00"},
		{"/api/v1/ledger/unlock", "10.00"},
	}

	concurrency := 40
	var wg sync.WaitGroup

	for i := 0; i < concurrency; i++ {
		wg.Add(1)
		go func(idx int) {
			defer wg.Done()
			op := ops[idx%len(ops)]
			body := map[string]interface{}{
				"owner_id":        ownerID,
				"asset":           "USD",
				"amount":          op.amount,
				"idempotency_key": fmt.Sprintf("op-%d", idx),
			}
			if op.path == "/api/v1/ledger/credit" || op.path == "/api/v1/ledger/debit" {
				body["reason"] = "MIXED"
			}
			status, _ := app.mutate(t, op.path, body)
			// Unlocks may outrun their matching locks; conflicts are fine,
			// partial application is not.
			assert.Contains(t,
				[]int{http.StatusCreated, http.StatusPaymentRequired, http.StatusConflict},
				status)
		}(i)
	}
	wg.Wait()

	status, envelope := app.read(t, "/api/v1/wallets/"+ownerID+"/USD")
	require.Equal(t, http.StatusOK, status)
	d := data(t, envelope)

	var balance, locked, credited, debited float64
	for field, dst := range map[string]*float64{
		"balance":           &balance,
		"locked_balance":    &locked,
		"lifetime_credited": &credited,
		"lifetime_debited":  &debited,
	} {
		_, err := fmt.Sscanf(d[field].(string), "%f", dst)
		require.NoError(t, err)
	}

	// Lifetime totals reconcile against the held balances.
	assert.InDelta(t, credited-debited, balance+locked, 0.0001)

	// Replay the full signed log from zero.
	var cursor string
	var total float64
	for {
		path := "/api/v1/wallets/" + ownerID + "/USD/entries?limit=100"
		if cursor != "" {
			path += "&cursor=" + cursor
		}
		status, envelope := app.read(t, path)
		require.Equal(t, http.StatusOK, status)
		page := data(t, envelope)
		for _, raw := range page["entries"].([]interface{}) {
			e := raw.(map[string]interface{})
			var amount float64
			_, err := fmt.Sscanf(e["amount"].(string), "%f", &amount)
			require.NoError(t, err)
			total += amount
		}
		next, _ := page["next_cursor"].(string)
		if next == "" {
			break
		}
		cursor = next
	}
	assert.InDelta(t, balance, total, 0.0001, "signed entry log must replay to the spendable balance")
}
