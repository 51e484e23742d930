package domain

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

// Money is a fixed-point monetary amount in minor units of its asset.
// All ledger arithmetic happens on this integer representation; decimal
// strings only appear at the API boundary.
type Money int64

// Add returns m + other, failing with ErrAmountOverflow instead of wrapping.
func (m Money) Add(other Money) (Money, error) {
	if other > 0 && m > math.MaxInt64-other {
		return 0, ErrAmountOverflow
	}
	if other < 0 && m < math.MinInt64-other {
		return 0, ErrAmountOverflow
	}
	return m + other, nil
}

// Sub returns m - other, failing with ErrAmountOverflow instead of wrapping.
func (m Money) Sub(other Money) (Money, error) {
	if other == math.MinInt64 {
		return 0, ErrAmountOverflow
	}
	return m.Add(-other)
}

// IsPositive reports whether the amount is strictly greater than zero.
func (m Money) IsPositive() bool { return m > 0 }

// IsNegative reports whether the amount is strictly less than zero.
func (m Money) IsNegative() bool { return m < 0 }

// LessThan reports whether m < other.
func (m Money) LessThan(other Money) bool { return m < other }

// Neg returns -m. Negating the minimum value overflows.
func (m Money) Neg() (Money, error) {
	if m == math.MinInt64 {
		return 0, ErrAmountOverflow
	}
	return -m, nil
}

// AssetType identifies one logically separate ledger. Balances of different
// assets are never implicitly converted.
type AssetType string

const (
	AssetUSD    AssetType = "USD"    // fiat, 2 decimal places
	AssetReward AssetType = "REWARD" // internal reward token, 8 decimal places
	AssetUSDX   AssetType = "USDX"   // crypto-pegged stable token, 8 decimal places
)

// Scale returns the number of decimal places carried by one minor unit.
func (a AssetType) Scale() int32 {
	switch a {
	case AssetUSD:
		return 2
	case AssetReward, AssetUSDX:
		return 8
	default:
		return 0
	}
}

// Valid reports whether the asset type is a known ledger.
func (a AssetType) Valid() bool {
	switch a {
	case AssetUSD, AssetReward, AssetUSDX:
		return true
	}
	return false
}

// ParseAmount converts a decimal string (e.g. "12.34") into minor units of
// the given asset. Excess precision is rejected rather than rounded, and
// values outside the int64 range fail with ErrAmountOverflow.
func ParseAmount(s string, asset AssetType) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	shifted := d.Shift(asset.Scale())
	if !shifted.IsInteger() {
		return 0, fmt.Errorf("%w: %q exceeds %d decimal places", ErrInvalidAmount, s, asset.Scale())
	}
	bi := shifted.BigInt()
	if !bi.IsInt64() {
		return 0, ErrAmountOverflow
	}
	return Money(bi.Int64()), nil
}

// Format renders the amount as a decimal string in major units of the asset.
func (m Money) Format(asset AssetType) string {
	return decimal.New(int64(m), -asset.Scale()).String()
}
