package factory

import (
	"context"
	"testing"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/oracle"
	"github.com/elys-network/uservault/internal/protocols"
	"github.com/elys-network/uservault/internal/token"
	"github.com/elys-network/uservault/internal/types"
)

var (
	factoryAddr = types.MustTestAddress("factory")
	admin       = types.MustTestAddress("admin")
	alice       = types.MustTestAddress("alice")
	bob         = types.MustTestAddress("bob")
)

func newFactory(t *testing.T) (*Factory, *token.Token, *events.Recorder) {
	t.Helper()
	rec := events.NewRecorder(0)
	f, err := New(factoryAddr, admin, rec)
	require.NoError(t, err)
	asset, err := token.New("uusdc", 6)
	require.NoError(t, err)
	return f, asset, rec
}

func TestNewValidatesAddresses(t *testing.T) {
	_, err := New(nil, admin, nil)
	assert.ErrorIs(t, err, types.ErrInvalidAddress)
	_, err = New(factoryAddr, nil, nil)
	assert.ErrorIs(t, err, types.ErrInvalidAddress)
}

func TestProtocolConfigurationIsOwnerOnly(t *testing.T) {
	f, asset, _ := newFactory(t)
	pool := protocols.NewMemLendingPool(types.MustTestAddress("pool"), asset)
	market := protocols.NewMemMoneyMarket(types.MustTestAddress("market"), asset)

	assert.Nil(t, f.LendingPool())
	assert.Nil(t, f.MoneyMarket())

	assert.ErrorIs(t, f.SetLendingPool(alice, pool), types.ErrUnauthorized)
	assert.ErrorIs(t, f.SetMoneyMarket(alice, market), types.ErrUnauthorized)
	assert.ErrorIs(t, f.SetLendingPool(admin, nil), types.ErrInvalidAddress)

	require.NoError(t, f.SetLendingPool(admin, pool))
	require.NoError(t, f.SetMoneyMarket(admin, market))
	assert.Equal(t, pool, f.LendingPool())
	assert.Equal(t, market, f.MoneyMarket())

	feed := oracle.NewStaticFeed(sdkmath.NewInt(1_00000000), 8)
	assert.ErrorIs(t, f.SetAssetPriceFeed(alice, "uusdc", feed), types.ErrUnauthorized)
	assert.ErrorIs(t, f.SetAssetPriceFeed(admin, "1", feed), types.ErrInvalidAddress)
	require.NoError(t, f.SetAssetPriceFeed(admin, "uusdc", feed))
	got, ok := f.PriceFeed("uusdc")
	require.True(t, ok)
	assert.Equal(t, feed, got)
}

func TestRegisterUser(t *testing.T) {
	f, _, _ := newFactory(t)

	user, err := f.RegisterUser(alice, "  alice ", "yield farmer")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.False(t, user.RegisteredAt.IsZero())

	_, err = f.RegisterUser(alice, "alice2", "")
	assert.ErrorIs(t, err, types.ErrUserAlreadyRegistered)
	_, err = f.RegisterUser(bob, "ALICE", "")
	assert.ErrorIs(t, err, types.ErrUsernameTaken)
	_, err = f.RegisterUser(bob, "", "")
	assert.ErrorIs(t, err, types.ErrInvalidUsername)

	stored, ok := f.User(alice)
	require.True(t, ok)
	assert.Equal(t, "yield farmer", stored.Bio)
}

func TestCreateVault(t *testing.T) {
	ctx := context.Background()
	f, asset, rec := newFactory(t)

	_, err := f.CreateVault(ctx, alice, asset, "Alice USDC", "aUSDC")
	assert.ErrorIs(t, err, types.ErrUserNotRegistered)

	_, err = f.RegisterUser(alice, "alice", "")
	require.NoError(t, err)
	_, err = f.CreateVault(ctx, alice, asset, "Alice USDC", "aUSDC")
	assert.ErrorIs(t, err, types.ErrPriceFeedNotSet)

	require.NoError(t, f.SetAssetPriceFeed(admin, "uusdc", oracle.NewStaticFeed(sdkmath.NewInt(1_00000000), 8)))
	first, err := f.CreateVault(ctx, alice, asset, "Alice USDC", "aUSDC")
	require.NoError(t, err)
	second, err := f.CreateVault(ctx, alice, asset, "Alice USDC 2", "aUSDC2")
	require.NoError(t, err)

	assert.False(t, first.Address().Equals(second.Address()))
	assert.True(t, first.Owner().Equals(alice))
	assert.Len(t, f.UserVaults(alice), 2)
	assert.Empty(t, f.UserVaults(bob))
	assert.Len(t, f.Vaults(), 2)

	found, ok := f.Vault(second.Address())
	require.True(t, ok)
	assert.Equal(t, second, found)

	// adapters configured after creation are visible to existing vaults
	require.NoError(t, asset.Mint(ctx, alice, sdkmath.NewInt(1_000)))
	require.NoError(t, asset.Approve(ctx, alice, first.Address(), fixedpoint.MaxUint256()))
	_, err = first.Deposit(ctx, alice, sdkmath.NewInt(1_000), alice)
	require.NoError(t, err)

	assert.ErrorIs(t, first.DeployToAave(ctx, alice, sdkmath.NewInt(100)), types.ErrProtocolAddressNotSet)
	require.NoError(t, f.SetLendingPool(admin, protocols.NewMemLendingPool(types.MustTestAddress("pool"), asset)))
	require.NoError(t, first.DeployToAave(ctx, alice, sdkmath.NewInt(100)))

	// vault records reach the factory sink
	assert.Len(t, rec.OfType(events.Deposit), 1)
	assert.Len(t, rec.OfType(events.ProtocolDeployed), 1)
}
