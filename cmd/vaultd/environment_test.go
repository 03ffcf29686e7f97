package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/uservault/internal/config"
	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/types"
)

func testEnvironmentConfig() environmentConfig {
	return environmentConfig{
		Owner:          types.MustTestAddress("operator"),
		AssetDenom:     "uusdc",
		AssetDecimals:  6,
		VaultName:      "Operator USDC",
		VaultSymbol:    "oUSDC",
		OraclePrice:    "1.0002",
		OracleDecimals: 8,
	}
}

func TestNewEnvironmentSeedsVault(t *testing.T) {
	ctx := context.Background()
	rec := events.NewRecorder(0)
	cfg := testEnvironmentConfig()
	cfg.SeedDeposit = "250.5"
	cfg.Sink = rec

	env, err := newEnvironment(ctx, cfg)
	require.NoError(t, err)

	assert.True(t, env.vault.Owner().Equals(cfg.Owner))
	assert.Equal(t, "250500000", env.vault.BalanceOf(cfg.Owner).String())
	total, err := env.vault.TotalAssets(ctx)
	require.NoError(t, err)
	assert.Equal(t, "250500000", total.String())

	price, err := env.vault.GetAssetPriceUSD(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1000200000000000000", price.Amount.String())

	// both adapters are configured
	require.NoError(t, env.vault.DeployToAave(ctx, cfg.Owner, total.QuoRaw(2)))
	assert.Len(t, rec.OfType(events.Deposit), 1)

	records := vaultRecords(env)
	require.Len(t, records, 1)
	assert.Equal(t, "oUSDC", records[0].Symbol)
	assert.Equal(t, cfg.Owner.String(), records[0].Owner)
}

func TestNewEnvironmentWithoutSeed(t *testing.T) {
	cfg := testEnvironmentConfig()
	cfg.SeedDeposit = "0"

	env, err := newEnvironment(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, env.vault.TotalSupply().IsZero())
}

func TestNewEnvironmentRejectsBadInput(t *testing.T) {
	cfg := testEnvironmentConfig()
	cfg.OraclePrice = "one dollar"
	_, err := newEnvironment(context.Background(), cfg)
	assert.Error(t, err)

	cfg = testEnvironmentConfig()
	cfg.SeedDeposit = "1.0000001"
	_, err = newEnvironment(context.Background(), cfg)
	assert.Error(t, err)
}

func TestResetDBRequiresConfirmation(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"reset-db"})
	err := cmd.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--yes")
}

func TestRebalanceParamsFromConfig(t *testing.T) {
	params := config.DefaultVaultParameters
	params.RebalanceThresholdBps = 50
	params.RebalanceMaxWithdrawBps = 0

	got := rebalanceParams(params)
	assert.Equal(t, uint32(50), got.ThresholdBps)
	assert.Zero(t, got.MaxWithdrawBps)
}
