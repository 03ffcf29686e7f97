package protocols

import (
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/token"
	"github.com/elys-network/uservault/internal/types"
)

var (
	supplier = types.MustTestAddress("supplier")
	poolAddr = types.MustTestAddress("aave-pool")
	mmAddr   = types.MustTestAddress("compound-market")
)

func newFundedToken(t *testing.T, amount int64) *token.Token {
	t.Helper()
	tok, err := token.New("uusdc", 6)
	require.NoError(t, err)
	require.NoError(t, tok.Mint(context.Background(), supplier, sdkmath.NewInt(amount)))
	return tok
}

func TestLendingPoolSupplyWithdraw(t *testing.T) {
	ctx := context.Background()
	tok := newFundedToken(t, 1_000)
	pool := NewMemLendingPool(poolAddr, tok)

	// supply without approval fails
	err := pool.Supply(ctx, supplier, "uusdc", sdkmath.NewInt(400), supplier)
	assert.ErrorIs(t, err, types.ErrInsufficientAllowance)

	require.NoError(t, tok.Approve(ctx, supplier, poolAddr, sdkmath.NewInt(400)))
	require.NoError(t, pool.Supply(ctx, supplier, "uusdc", sdkmath.NewInt(400), supplier))

	bal, err := pool.BalanceOf(ctx, "uusdc", supplier)
	require.NoError(t, err)
	assert.Equal(t, "400", bal.String())

	got, err := pool.Withdraw(ctx, supplier, "uusdc", sdkmath.NewInt(150), supplier)
	require.NoError(t, err)
	assert.Equal(t, "150", got.String())

	_, err = pool.Withdraw(ctx, supplier, "uusdc", sdkmath.NewInt(251), supplier)
	assert.ErrorIs(t, err, ErrInsufficientPosition)

	got, err = pool.Withdraw(ctx, supplier, "uusdc", fixedpoint.MaxUint256(), supplier)
	require.NoError(t, err)
	assert.Equal(t, "250", got.String())

	held, _ := tok.BalanceOf(ctx, supplier)
	assert.Equal(t, "1000", held.String())
}

func TestLendingPoolRejectsOtherAssets(t *testing.T) {
	ctx := context.Background()
	pool := NewMemLendingPool(poolAddr, newFundedToken(t, 1))

	_, err := pool.BalanceOf(ctx, "uatom", supplier)
	assert.ErrorIs(t, err, ErrUnsupportedAsset)
	assert.ErrorIs(t, pool.Supply(ctx, supplier, "uatom", sdkmath.OneInt(), supplier), ErrUnsupportedAsset)
}

func TestLendingPoolInterestAndFailure(t *testing.T) {
	ctx := context.Background()
	tok := newFundedToken(t, 100)
	pool := NewMemLendingPool(poolAddr, tok)
	require.NoError(t, tok.Approve(ctx, supplier, poolAddr, sdkmath.NewInt(100)))
	require.NoError(t, pool.Supply(ctx, supplier, "uusdc", sdkmath.NewInt(100), supplier))

	pool.AccrueInterest(supplier, sdkmath.NewInt(5))
	bal, _ := pool.BalanceOf(ctx, "uusdc", supplier)
	assert.Equal(t, "105", bal.String())

	// without the matching liquidity the withdrawal fails and the position is restored
	_, err := pool.Withdraw(ctx, supplier, "uusdc", sdkmath.NewInt(105), supplier)
	assert.Error(t, err)
	bal, _ = pool.BalanceOf(ctx, "uusdc", supplier)
	assert.Equal(t, "105", bal.String())

	boom := errors.New("paused market")
	pool.FailNext(boom)
	_, err = pool.Withdraw(ctx, supplier, "uusdc", sdkmath.NewInt(1), supplier)
	assert.ErrorIs(t, err, boom)
	_, err = pool.Withdraw(ctx, supplier, "uusdc", sdkmath.NewInt(1), supplier)
	assert.NoError(t, err)
}

func TestMoneyMarketExchangeRate(t *testing.T) {
	ctx := context.Background()
	tok := newFundedToken(t, 1_000)
	mm := NewMemMoneyMarket(mmAddr, tok)
	require.NoError(t, tok.Approve(ctx, supplier, mmAddr, sdkmath.NewInt(1_000)))

	// 2 underlying per receipt
	require.NoError(t, mm.SetExchangeRate(fixedpoint.Pow10(18).MulRaw(2)))
	require.NoError(t, mm.Mint(ctx, supplier, sdkmath.NewInt(500)))

	receipts, err := mm.BalanceOf(ctx, supplier)
	require.NoError(t, err)
	assert.Equal(t, "250", receipts.String())

	rate, _ := mm.ExchangeRate(ctx)
	live, err := UnderlyingValue(receipts, rate)
	require.NoError(t, err)
	assert.Equal(t, "500", live.String())

	// redeeming 3 underlying burns ceil(1.5) receipts
	require.NoError(t, mm.RedeemUnderlying(ctx, supplier, sdkmath.NewInt(3)))
	receipts, _ = mm.BalanceOf(ctx, supplier)
	assert.Equal(t, "248", receipts.String())

	err = mm.RedeemUnderlying(ctx, supplier, sdkmath.NewInt(497))
	assert.ErrorIs(t, err, ErrInsufficientPosition)

	assert.ErrorIs(t, mm.SetExchangeRate(sdkmath.ZeroInt()), ErrInvalidExchangeRate)
}
