// Package numeric converts between raw on-chain integer amounts and decimal
// values. All values use shopspring/decimal, never float64 for money.
package numeric

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// DivisionPrecision is the number of fractional digits kept by Div.
const DivisionPrecision = 36

// FeeDecimals is the fixed-point scale of protocol percentages (fees,
// volatility, tolerances, penalties): 100000 == 100%.
const FeeDecimals = 5

// ToDecimal divides a raw amount by 10^decimals. A zero scale is a
// pass-through and negative raw amounts are returned unchanged.
func ToDecimal(raw *big.Int, decimals int32) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	value := decimal.NewFromBigInt(raw, 0)
	if decimals == 0 || raw.Sign() < 0 {
		return value
	}
	return decimal.NewFromBigInt(raw, -decimals)
}

// ToRaw multiplies a decimal by 10^decimals and truncates toward zero.
func ToRaw(value decimal.Decimal, decimals int32) *big.Int {
	if decimals == 0 {
		return value.Truncate(0).BigInt()
	}
	return value.Shift(decimals).Truncate(0).BigInt()
}

// Div divides a by b keeping DivisionPrecision fractional digits. A zero
// divisor yields zero.
func Div(a, b decimal.Decimal) decimal.Decimal {
	if b.IsZero() {
		return decimal.Zero
	}
	return a.DivRound(b, DivisionPrecision)
}

// Percentage converts a raw protocol percentage (5 decimals) to decimal.
func Percentage(raw *big.Int) decimal.Decimal {
	return ToDecimal(raw, FeeDecimals)
}

// TokenAmount converts a collateral amount into the number of option
// tokens it backs. Calls are 1:1 with the underlying; puts divide by the
// strike price.
func TokenAmount(collateral decimal.Decimal, isCall bool, strikePrice decimal.Decimal) decimal.Decimal {
	if isCall {
		return collateral
	}
	return Div(collateral, strikePrice)
}

// CollateralAmount converts an option token amount to the collateral that
// backs it: 1:1 for calls, amount × strikePrice for puts.
func CollateralAmount(tokens decimal.Decimal, isCall bool, strikePrice decimal.Decimal) decimal.Decimal {
	if isCall {
		return tokens
	}
	return tokens.Mul(strikePrice)
}
