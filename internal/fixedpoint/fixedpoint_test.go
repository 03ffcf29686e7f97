package fixedpoint

import (
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMulDivRounding(t *testing.T) {
	cases := []struct {
		name     string
		x, y, d  int64
		rounding Rounding
		want     string
	}{
		{"exact floor", 10, 6, 3, Floor, "20"},
		{"exact ceil", 10, 6, 3, Ceil, "20"},
		{"inexact floor", 10, 1, 3, Floor, "3"},
		{"inexact ceil", 10, 1, 3, Ceil, "4"},
		{"zero numerator ceil", 0, 7, 3, Ceil, "0"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MulDiv(sdkmath.NewInt(tc.x), sdkmath.NewInt(tc.y), sdkmath.NewInt(tc.d), tc.rounding)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got.String())
		})
	}
}

func TestMulDivFullWidthIntermediate(t *testing.T) {
	max := MaxUint256()

	// max * max / max overflows 256 bits in the product but not in the result.
	got, err := MulDiv(max, max, max, Floor)
	require.NoError(t, err)
	assert.True(t, got.Equal(max))

	_, err = MulDiv(max, sdkmath.NewInt(2), sdkmath.OneInt(), Floor)
	assert.ErrorIs(t, err, ErrOverflow)
}

func TestMulDivRejectsBadInputs(t *testing.T) {
	_, err := MulDiv(sdkmath.NewInt(1), sdkmath.NewInt(1), sdkmath.ZeroInt(), Floor)
	assert.ErrorIs(t, err, ErrDivisionByZero)

	_, err = MulDiv(sdkmath.NewInt(-1), sdkmath.NewInt(1), sdkmath.NewInt(1), Floor)
	assert.ErrorIs(t, err, ErrAmountNegative)

	_, err = MulDiv(sdkmath.Int{}, sdkmath.NewInt(1), sdkmath.NewInt(1), Floor)
	assert.ErrorIs(t, err, ErrAmountNil)
}

func TestRescale(t *testing.T) {
	// 2000 USD at 8 decimals -> 18 decimals
	price := New(sdkmath.NewInt(2000_00000000), 8)
	up, err := price.Rescale(CanonicalDecimals, Floor)
	require.NoError(t, err)
	assert.Equal(t, Pow10(18).MulRaw(2000).String(), up.Amount.String())
	assert.Equal(t, CanonicalDecimals, up.Decimals)

	v := New(sdkmath.NewInt(1_999), 3)
	down, err := v.Rescale(1, Floor)
	require.NoError(t, err)
	assert.Equal(t, "19", down.Amount.String())

	down, err = v.Rescale(1, Ceil)
	require.NoError(t, err)
	assert.Equal(t, "20", down.Amount.String())

	_, err = v.Rescale(MaxDecimals+1, Floor)
	assert.ErrorIs(t, err, ErrInvalidPrecision)
}

func TestMaxUint256(t *testing.T) {
	max := MaxUint256()
	assert.Equal(t, sdkmath.MaxBitLen, max.BigInt().BitLen())
	assert.True(t, IsMaxUint256(max))
	assert.False(t, IsMaxUint256(max.SubRaw(1)))
	assert.False(t, IsMaxUint256(sdkmath.Int{}))
}

func TestValueString(t *testing.T) {
	v := New(Pow10(18).MulRaw(2000), 18)
	assert.Equal(t, "2000", v.String())

	f, err := v.Float64()
	require.NoError(t, err)
	assert.InDelta(t, 2000.0, f, 1e-9)

	assert.Equal(t, "0", New(sdkmath.Int{}, 6).String())
}

func TestParseUnits(t *testing.T) {
	got, err := ParseUnits("2000", 8)
	require.NoError(t, err)
	assert.Equal(t, "200000000000", got.String())

	got, err = ParseUnits("1.5", 6)
	require.NoError(t, err)
	assert.Equal(t, "1500000", got.String())

	_, err = ParseUnits("1.0000001", 6)
	assert.ErrorIs(t, err, ErrConversionFailed)

	_, err = ParseUnits("-1", 6)
	assert.ErrorIs(t, err, ErrAmountNegative)

	_, err = ParseUnits("abc", 6)
	assert.ErrorIs(t, err, ErrConversionFailed)
}

func TestToFloat64(t *testing.T) {
	f, err := ToFloat64(sdkmath.NewInt(1_500_000), 6)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, f, 1e-12)

	_, err = ToFloat64(sdkmath.NewInt(-1), 6)
	assert.ErrorIs(t, err, ErrAmountNegative)
}
