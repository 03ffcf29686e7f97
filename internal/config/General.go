package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog/log"
)

// AppConfig holds all application configuration loaded from environment variables.
// These are populated at startup by the LoadConfig function.
var (
	// VaultName and VaultSymbol name the share token of the served vault.
	VaultName   string
	VaultSymbol string

	// AssetDenom is the underlying asset; AssetDecimals its base unit precision.
	AssetDenom    string
	AssetDecimals uint8

	// VaultOwner is the bech32 account owning the served vault.
	VaultOwner sdk.AccAddress

	// OraclePrice is the USD price the static feed reports, e.g. "1.0002".
	OraclePrice string
	// OracleDecimals is the native precision of the feed answer.
	OracleDecimals uint8

	// LogLevel is one of trace, debug, info, warn, error.
	LogLevel string
	// SnapshotInterval is the valuation monitor period.
	SnapshotInterval time.Duration
)

// LoadConfig loads configuration from environment variables and sets the global config vars.
// Vault and oracle variables are required; the rest fall back to defaults.
func LoadConfig() error {
	log.Info().Msg("Loading application configuration from environment variables...")

	var err error

	if VaultName, err = getEnv("VAULT_NAME"); err != nil {
		return err
	}
	if VaultSymbol, err = getEnv("VAULT_SYMBOL"); err != nil {
		return err
	}

	if AssetDenom, err = getEnv("VAULT_ASSET_DENOM"); err != nil {
		return err
	}
	if err := sdk.ValidateDenom(AssetDenom); err != nil {
		return errors.New("environment variable VAULT_ASSET_DENOM is not a valid denom: " + err.Error())
	}
	if AssetDecimals, err = getEnvAsUint8("VAULT_ASSET_DECIMALS"); err != nil {
		return err
	}

	owner, err := getEnv("VAULT_OWNER")
	if err != nil {
		return err
	}
	if VaultOwner, err = sdk.AccAddressFromBech32(owner); err != nil {
		return errors.New("environment variable VAULT_OWNER must be a bech32 address: " + err.Error())
	}

	if OraclePrice, err = getEnv("ORACLE_PRICE"); err != nil {
		return err
	}
	if OracleDecimals, err = getEnvAsUint8("ORACLE_DECIMALS"); err != nil {
		return err
	}

	LogLevel = getEnvOrDefault("LOG_LEVEL", "info")
	if SnapshotInterval, err = getEnvAsDurationOrDefault("SNAPSHOT_INTERVAL", DefaultVaultParameters.SnapshotInterval); err != nil {
		return err
	}

	// Load endpoint configuration
	if err := loadEndpointConfig(); err != nil {
		return err
	}

	log.Debug().
		Str("VaultName", VaultName).
		Str("AssetDenom", AssetDenom).
		Str("VaultOwner", VaultOwner.String()).
		Dur("SnapshotInterval", SnapshotInterval).
		Msg("Configuration loaded successfully.")

	return nil
}

// getEnv retrieves a string environment variable. Returns error if not set.
func getEnv(key string) (string, error) {
	if value, exists := os.LookupEnv(key); exists && strings.TrimSpace(value) != "" {
		return strings.TrimSpace(value), nil
	}
	return "", errors.New("environment variable " + key + " is required but not set")
}

// getEnvOrDefault retrieves a string environment variable, falling back to def when unset.
func getEnvOrDefault(key, def string) string {
	if value, err := getEnv(key); err == nil {
		return value
	}
	return def
}

// getEnvAsUint8 retrieves an environment variable as a uint8. Returns error if not set or invalid.
func getEnvAsUint8(key string) (uint8, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return 0, err
	}
	value, err := strconv.ParseUint(valueStr, 10, 8)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid uint8, got: " + valueStr)
	}
	return uint8(value), nil
}

// getEnvAsIntOrDefault retrieves an optional integer environment variable.
func getEnvAsIntOrDefault(key string, def int) (int, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return def, nil
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, errors.New("environment variable " + key + " must be a valid integer, got: " + valueStr)
	}
	return value, nil
}

// getEnvAsDurationOrDefault retrieves an optional duration such as "10m".
func getEnvAsDurationOrDefault(key string, def time.Duration) (time.Duration, error) {
	valueStr, err := getEnv(key)
	if err != nil {
		return def, nil
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil || value <= 0 {
		return 0, errors.New("environment variable " + key + " must be a positive duration, got: " + valueStr)
	}
	return value, nil
}

// LogLevelFromEnv reads LOG_LEVEL alone, for commands that never call LoadConfig.
func LogLevelFromEnv() string {
	return getEnvOrDefault("LOG_LEVEL", "info")
}
