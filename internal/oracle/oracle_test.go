package oracle

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/types"
)

func TestAssetPriceUSDNormalizes(t *testing.T) {
	ctx := context.Background()
	c, err := NewClient(NewStaticFeed(sdkmath.NewInt(2000_00000000), 8))
	require.NoError(t, err)

	price, err := c.AssetPriceUSD(ctx)
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.Pow10(18).MulRaw(2000).String(), price.Amount.String())
	assert.Equal(t, fixedpoint.CanonicalDecimals, price.Decimals)
}

func TestAssetPriceUSDHighPrecisionFeed(t *testing.T) {
	// 24 decimal feed is floored to 18
	c, err := NewClient(NewStaticFeed(fixedpoint.Pow10(24).AddRaw(999_999), 24))
	require.NoError(t, err)

	price, err := c.AssetPriceUSD(context.Background())
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.Pow10(18).String(), price.Amount.String())
}

func TestAssetPriceUSDRejectsBadAnswers(t *testing.T) {
	ctx := context.Background()
	feed := NewStaticFeed(sdkmath.ZeroInt(), 8)
	c, err := NewClient(feed)
	require.NoError(t, err)

	_, err = c.AssetPriceUSD(ctx)
	assert.ErrorIs(t, err, types.ErrInvalidOracleResponse)

	feed.SetAnswer(sdkmath.NewInt(-5))
	_, err = c.AssetPriceUSD(ctx)
	assert.ErrorIs(t, err, types.ErrInvalidOracleResponse)

	feed.SetAnswer(sdkmath.NewInt(1))
	feed.SetError(errors.New("stale round"))
	_, err = c.AssetPriceUSD(ctx)
	assert.ErrorIs(t, err, types.ErrExternalCall)
	assert.Equal(t, types.CategoryExternalDependency, types.CategoryOf(err))

	_, err = NewClient(nil)
	assert.ErrorIs(t, err, types.ErrInvalidAddress)
}

func TestValueUSD(t *testing.T) {
	c, err := NewClient(NewStaticFeed(sdkmath.NewInt(2000_00000000), 8))
	require.NoError(t, err)

	// one whole token of an 18 decimal asset
	v, err := c.ValueUSD(context.Background(), fixedpoint.Pow10(18), 18)
	require.NoError(t, err)
	assert.Equal(t, fixedpoint.Pow10(18).MulRaw(2000).String(), v.Amount.String())

	// 1.5 tokens of a 6 decimal asset
	v, err = c.ValueUSD(context.Background(), sdkmath.NewInt(1_500_000), 6)
	require.NoError(t, err)
	assert.Equal(t, "3000", v.String())
}

func TestSharePrice(t *testing.T) {
	total := fixedpoint.New(fixedpoint.Pow10(18).MulRaw(3000), 18)

	same, err := SharePrice(total, sdkmath.ZeroInt(), 6)
	require.NoError(t, err)
	assert.True(t, same.Amount.Equal(total.Amount))

	// 3000 USD spread over 1.5 shares of 6 decimals
	per, err := SharePrice(total, sdkmath.NewInt(1_500_000), 6)
	require.NoError(t, err)
	assert.Equal(t, "2000", per.String())
}

func TestParseStaticFeed(t *testing.T) {
	feed, err := ParseStaticFeed("1.25", 8)
	require.NoError(t, err)
	answer, err := feed.LatestAnswer(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "125000000", answer.String())

	_, err = ParseStaticFeed("nope", 8)
	assert.Error(t, err)
}
