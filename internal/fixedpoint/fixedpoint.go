/*
This file contains the fixed-point helpers used across the vault. Every amount is an
unsigned sdkmath.Int with an implied number of decimals; conversions between scales and
all share/asset math go through MulDiv so the rounding direction is always explicit.
*/

package fixedpoint

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	sdkmath "cosmossdk.io/math"
	"github.com/shopspring/decimal"
)

// CanonicalDecimals is the scale used for USD prices and values.
const CanonicalDecimals uint8 = 18

// MaxDecimals bounds the scales accepted by Pow10 and Rescale.
const MaxDecimals uint8 = 77

// Error definitions for zero-tolerance error handling
var (
	ErrInvalidPrecision = errors.New("precision is invalid")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
	ErrDivisionByZero   = errors.New("division by zero")
	ErrOverflow         = errors.New("value exceeds 256 bits")
)

// Rounding selects the direction MulDiv resolves a non-zero remainder.
type Rounding int

const (
	Floor Rounding = iota
	Ceil
)

func (r Rounding) String() string {
	if r == Ceil {
		return "ceil"
	}
	return "floor"
}

// Value is an unsigned fixed-point quantity carrying its own scale.
type Value struct {
	Amount   sdkmath.Int `json:"amount"`
	Decimals uint8       `json:"decimals"`
}

// New builds a Value, treating a nil amount as zero.
func New(amount sdkmath.Int, decimals uint8) Value {
	if amount.IsNil() {
		amount = sdkmath.ZeroInt()
	}
	return Value{Amount: amount, Decimals: decimals}
}

// Rescale converts v to the target scale. Scaling up is exact; scaling down rounds
// according to r.
func (v Value) Rescale(decimals uint8, r Rounding) (Value, error) {
	if decimals > MaxDecimals || v.Decimals > MaxDecimals {
		return Value{}, fmt.Errorf("%w: %d (must be at most %d)", ErrInvalidPrecision, decimals, MaxDecimals)
	}
	switch {
	case decimals == v.Decimals:
		return v, nil
	case decimals > v.Decimals:
		out, err := MulDiv(v.Amount, Pow10(decimals-v.Decimals), sdkmath.OneInt(), Floor)
		if err != nil {
			return Value{}, err
		}
		return Value{Amount: out, Decimals: decimals}, nil
	default:
		out, err := MulDiv(v.Amount, sdkmath.OneInt(), Pow10(v.Decimals-decimals), r)
		if err != nil {
			return Value{}, err
		}
		return Value{Amount: out, Decimals: decimals}, nil
	}
}

// Decimal returns v as an arbitrary precision decimal, for display only.
func (v Value) Decimal() decimal.Decimal {
	if v.Amount.IsNil() {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(v.Amount.BigInt(), -int32(v.Decimals))
}

// String renders v in human units, e.g. "2000.5".
func (v Value) String() string {
	return v.Decimal().String()
}

// Float64 converts v to a float64 for metrics and dashboards.
func (v Value) Float64() (float64, error) {
	return ToFloat64(v.Amount, v.Decimals)
}

// MulDiv computes x*y/denominator with a full-width intermediate product, rounding the
// quotient in the requested direction. The result must fit in 256 bits.
func MulDiv(x, y, denominator sdkmath.Int, r Rounding) (sdkmath.Int, error) {
	if x.IsNil() || y.IsNil() || denominator.IsNil() {
		return sdkmath.Int{}, ErrAmountNil
	}
	if x.IsNegative() || y.IsNegative() || denominator.IsNegative() {
		return sdkmath.Int{}, ErrAmountNegative
	}
	if denominator.IsZero() {
		return sdkmath.Int{}, ErrDivisionByZero
	}

	product := new(big.Int).Mul(x.BigInt(), y.BigInt())
	quotient, remainder := new(big.Int).QuoRem(product, denominator.BigInt(), new(big.Int))
	if r == Ceil && remainder.Sign() != 0 {
		quotient.Add(quotient, big.NewInt(1))
	}
	if quotient.BitLen() > sdkmath.MaxBitLen {
		return sdkmath.Int{}, ErrOverflow
	}
	return sdkmath.NewIntFromBigIntMut(quotient), nil
}

// Pow10 returns 10^n. n above MaxDecimals would not fit in 256 bits.
func Pow10(n uint8) sdkmath.Int {
	if n > MaxDecimals {
		panic(fmt.Sprintf("fixedpoint: 10^%d exceeds 256 bits", n))
	}
	return sdkmath.NewIntFromBigIntMut(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(n)), nil))
}

// MaxUint256 is the largest representable amount, used as the unlimited-allowance
// sentinel and the unbounded deposit/mint limit.
func MaxUint256() sdkmath.Int {
	max := new(big.Int).Lsh(big.NewInt(1), sdkmath.MaxBitLen)
	return sdkmath.NewIntFromBigIntMut(max.Sub(max, big.NewInt(1)))
}

// IsMaxUint256 reports whether amount equals the unlimited sentinel.
func IsMaxUint256(amount sdkmath.Int) bool {
	return !amount.IsNil() && amount.Equal(MaxUint256())
}

// ToFloat64 converts an SDK Int with the given precision to float64.
func ToFloat64(amount sdkmath.Int, precision uint8) (float64, error) {
	if precision > MaxDecimals {
		return 0, fmt.Errorf("%w: %d (must be at most %d)", ErrInvalidPrecision, precision, MaxDecimals)
	}
	if amount.IsNil() {
		return 0, ErrAmountNil
	}
	if amount.IsNegative() {
		return 0, ErrAmountNegative
	}

	result, _ := decimal.NewFromBigInt(amount.BigInt(), -int32(precision)).Float64()
	if math.IsNaN(result) || math.IsInf(result, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, result)
	}
	return result, nil
}

// ParseUnits converts a human readable decimal string ("2000.5") into base units at the
// given precision. Digits beyond the precision are rejected rather than truncated.
func ParseUnits(value string, precision uint8) (sdkmath.Int, error) {
	if precision > MaxDecimals {
		return sdkmath.Int{}, fmt.Errorf("%w: %d (must be at most %d)", ErrInvalidPrecision, precision, MaxDecimals)
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return sdkmath.Int{}, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}
	if d.IsNegative() {
		return sdkmath.Int{}, ErrAmountNegative
	}

	shifted := d.Shift(int32(precision))
	if !shifted.IsInteger() {
		return sdkmath.Int{}, fmt.Errorf("%w: %s has more than %d decimals", ErrConversionFailed, value, precision)
	}
	out := shifted.BigInt()
	if out.BitLen() > sdkmath.MaxBitLen {
		return sdkmath.Int{}, ErrOverflow
	}
	return sdkmath.NewIntFromBigIntMut(out), nil
}
