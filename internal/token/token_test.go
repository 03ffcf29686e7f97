package token

import (
	"bytes"
	"context"
	"errors"
	"testing"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/stretchr/testify/assert"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/uservault/internal/logger"
	"github.com/elys-network/uservault/internal/types"
)

func TestNewValidatesDenom(t *testing.T) {
	_, err := New("1", 6)
	assert.Error(t, err)

	tok, err := New("uusdc", 6)
	require.NoError(t, err)
	assert.Equal(t, "uusdc", tok.Denom())
	assert.Equal(t, uint8(6), tok.Decimals())
}

func TestTransferAndAllowance(t *testing.T) {
	ctx := context.Background()
	alice, bob, pool := types.MustTestAddress("alice"), types.MustTestAddress("bob"), types.MustTestAddress("pool")

	tok, err := New("uusdc", 6)
	require.NoError(t, err)
	require.NoError(t, tok.Mint(ctx, alice, sdkmath.NewInt(1_000)))

	require.NoError(t, tok.Transfer(ctx, alice, bob, sdkmath.NewInt(100)))
	bal, err := tok.BalanceOf(ctx, bob)
	require.NoError(t, err)
	assert.Equal(t, "100", bal.String())

	err = tok.TransferFrom(ctx, pool, alice, pool, sdkmath.NewInt(10))
	assert.ErrorIs(t, err, types.ErrInsufficientAllowance)

	require.NoError(t, tok.Approve(ctx, alice, pool, sdkmath.NewInt(10)))
	require.NoError(t, tok.TransferFrom(ctx, pool, alice, pool, sdkmath.NewInt(10)))
	allowance, err := tok.Allowance(ctx, alice, pool)
	require.NoError(t, err)
	assert.True(t, allowance.IsZero())
	assert.Equal(t, "1000", tok.TotalSupply().String())
}

func TestTransferHook(t *testing.T) {
	ctx := context.Background()
	alice, bob := types.MustTestAddress("alice"), types.MustTestAddress("bob")

	tok, err := New("uusdc", 6)
	require.NoError(t, err)
	require.NoError(t, tok.Mint(ctx, alice, sdkmath.NewInt(50)))

	blocked := errors.New("blocked")
	var seen int
	tok.SetTransferHook(func(ctx context.Context, from, to sdk.AccAddress, amount sdkmath.Int) error {
		seen++
		// hooks may read the token while a transfer is in flight
		_, _ = tok.BalanceOf(ctx, from)
		return blocked
	})

	assert.ErrorIs(t, tok.Transfer(ctx, alice, bob, sdkmath.NewInt(5)), blocked)
	assert.Equal(t, 1, seen)
	bal, _ := tok.BalanceOf(ctx, alice)
	assert.Equal(t, "50", bal.String())

	tok.SetTransferHook(nil)
	require.NoError(t, tok.Transfer(ctx, alice, bob, sdkmath.NewInt(5)))
}

func TestMintLogsAtDebug(t *testing.T) {
	previousLevel := zerolog.GlobalLevel()
	previousLogger := logger.Logger
	defer func() {
		zerolog.SetGlobalLevel(previousLevel)
		logger.Logger = previousLogger
	}()

	var buf bytes.Buffer
	logger.Initialize("debug", logger.WithJSON(), logger.WithOutput(&buf))

	tok, err := New("uusdc", 6)
	require.NoError(t, err)
	require.NoError(t, tok.Mint(context.Background(), types.MustTestAddress("alice"), sdkmath.NewInt(42)))

	assert.Contains(t, buf.String(), `"component":"token"`)
	assert.Contains(t, buf.String(), `"amount":"42"`)
}
