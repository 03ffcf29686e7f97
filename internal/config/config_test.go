package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/uservault/internal/types"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("VAULT_NAME", "Alice USDC Vault")
	t.Setenv("VAULT_SYMBOL", "vUSDC")
	t.Setenv("VAULT_ASSET_DENOM", "uusdc")
	t.Setenv("VAULT_ASSET_DECIMALS", "6")
	t.Setenv("VAULT_OWNER", types.MustTestAddress("owner").String())
	t.Setenv("ORACLE_PRICE", "1.0002")
	t.Setenv("ORACLE_DECIMALS", "8")
}

func TestLoadConfig(t *testing.T) {
	setRequired(t)
	t.Setenv("SNAPSHOT_INTERVAL", "30s")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("DB_PORT", "6543")

	require.NoError(t, LoadConfig())
	assert.Equal(t, "Alice USDC Vault", VaultName)
	assert.Equal(t, uint8(6), AssetDecimals)
	assert.True(t, VaultOwner.Equals(types.MustTestAddress("owner")))
	assert.Equal(t, uint8(8), OracleDecimals)
	assert.Equal(t, 30*time.Second, SnapshotInterval)
	assert.Equal(t, "8080", WebPort)
	assert.Equal(t, "9090", GRPCPort)
	assert.True(t, DatabaseEnabled())
	assert.Equal(t, 6543, DBPort)
	assert.Equal(t, "uservault", DBName)
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("DB_HOST", "")
	t.Setenv("SNAPSHOT_INTERVAL", "")

	require.NoError(t, LoadConfig())
	assert.Equal(t, DefaultVaultParameters.SnapshotInterval, SnapshotInterval)
	assert.False(t, DatabaseEnabled())
	assert.Equal(t, 5432, DBPort)
}

func TestLoadConfigErrors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"missing name", "VAULT_NAME", "", "VAULT_NAME is required"},
		{"bad denom", "VAULT_ASSET_DENOM", "1x", "not a valid denom"},
		{"bad decimals", "VAULT_ASSET_DECIMALS", "300", "valid uint8"},
		{"bad owner", "VAULT_OWNER", "owner", "bech32"},
		{"bad interval", "SNAPSHOT_INTERVAL", "-1m", "positive duration"},
		{"bad db port", "DB_PORT", "five", "valid integer"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			setRequired(t)
			t.Setenv(tc.key, tc.value)
			err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.want)
		})
	}
}
