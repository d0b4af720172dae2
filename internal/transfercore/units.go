package transfercore

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// DefaultDecimals gives the reference scale factor of 10^6 minimal units per token.
const DefaultDecimals int32 = 6

// MaxBalance is the largest balance the chain can carry (u128).
var MaxBalance = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))

// maxBalanceDigits is the decimal length of MaxBalance.
const maxBalanceDigits = 39

// Scale converts a display amount into minimal units, truncating toward zero.
// 1.5 becomes 1500000 and 0.0000001 becomes 0 at six decimals.
func Scale(amount string, decimals int32) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" {
		return nil, NewError(KindRowValidation, "empty amount")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return nil, WrapError(KindRowValidation, fmt.Sprintf("amount %q is not a number", s), err)
	}
	if d.IsNegative() {
		return nil, NewError(KindRowValidation, fmt.Sprintf("amount %q is negative", s))
	}
	if d.IsZero() {
		return new(big.Int), nil
	}
	// Integer digits of the scaled value, checked before anything is expanded.
	digits := int64(len(d.Coefficient().String())) + int64(d.Exponent()) + int64(decimals)
	if digits <= 0 {
		return new(big.Int), nil
	}
	if digits > maxBalanceDigits {
		return nil, NewError(KindRowValidation, fmt.Sprintf("amount %q exceeds the maximum balance", s))
	}
	v := d.Shift(decimals).Truncate(0).BigInt()
	if v.Cmp(MaxBalance) > 0 {
		return nil, NewError(KindRowValidation, fmt.Sprintf("amount %q exceeds the maximum balance", s))
	}
	return v, nil
}

// ToDecimal converts minimal units back to a display-unit decimal.
func ToDecimal(v *big.Int, decimals int32) decimal.Decimal {
	if v == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v, -decimals)
}

// FormatUnits renders minimal units in display units without trailing zeros.
func FormatUnits(v *big.Int, decimals int32) string {
	return ToDecimal(v, decimals).String()
}
