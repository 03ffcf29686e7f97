package main

import (
	"context"
	"fmt"

	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/factory"
	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/oracle"
	"github.com/elys-network/uservault/internal/protocols"
	"github.com/elys-network/uservault/internal/token"
	"github.com/elys-network/uservault/internal/types"
	"github.com/elys-network/uservault/internal/vault"
)

// environmentConfig describes the in-process deployment vaultd serves.
type environmentConfig struct {
	Owner          sdk.AccAddress
	AssetDenom     string
	AssetDecimals  uint8
	VaultName      string
	VaultSymbol    string
	OraclePrice    string
	OracleDecimals uint8
	SeedDeposit    string
	Sink           events.Sink
}

// environment is the simulated deployment: asset, protocols, factory and one vault.
type environment struct {
	asset   *token.Token
	pool    *protocols.MemLendingPool
	market  *protocols.MemMoneyMarket
	feed    *oracle.StaticFeed
	factory *factory.Factory
	vault   *vault.Vault
}

func newEnvironment(ctx context.Context, cfg environmentConfig) (*environment, error) {
	asset, err := token.New(cfg.AssetDenom, cfg.AssetDecimals)
	if err != nil {
		return nil, fmt.Errorf("create asset: %w", err)
	}
	feed, err := oracle.ParseStaticFeed(cfg.OraclePrice, cfg.OracleDecimals)
	if err != nil {
		return nil, fmt.Errorf("parse oracle price: %w", err)
	}

	f, err := factory.New(types.DeriveAddress(types.ModuleName, []byte("factory")), cfg.Owner, cfg.Sink)
	if err != nil {
		return nil, err
	}
	env := &environment{
		asset:   asset,
		pool:    protocols.NewMemLendingPool(types.DeriveAddress(types.ModuleName, []byte("lending_pool")), asset),
		market:  protocols.NewMemMoneyMarket(types.DeriveAddress(types.ModuleName, []byte("money_market")), asset),
		feed:    feed,
		factory: f,
	}

	if err := f.SetLendingPool(cfg.Owner, env.pool); err != nil {
		return nil, err
	}
	if err := f.SetMoneyMarket(cfg.Owner, env.market); err != nil {
		return nil, err
	}
	if err := f.SetAssetPriceFeed(cfg.Owner, cfg.AssetDenom, feed); err != nil {
		return nil, err
	}
	if _, err := f.RegisterUser(cfg.Owner, "owner", "vaultd operator"); err != nil {
		return nil, err
	}

	env.vault, err = f.CreateVault(ctx, cfg.Owner, asset, cfg.VaultName, cfg.VaultSymbol)
	if err != nil {
		return nil, err
	}

	if err := env.seed(ctx, cfg.Owner, cfg.SeedDeposit); err != nil {
		return nil, err
	}
	return env, nil
}

// seed mints amount whole units to owner and deposits them.
func (e *environment) seed(ctx context.Context, owner sdk.AccAddress, amount string) error {
	if amount == "" {
		return nil
	}
	units, err := fixedpoint.ParseUnits(amount, e.asset.Decimals())
	if err != nil {
		return fmt.Errorf("parse seed deposit: %w", err)
	}
	if units.IsZero() {
		return nil
	}

	if err := e.asset.Mint(ctx, owner, units); err != nil {
		return err
	}
	if err := e.asset.Approve(ctx, owner, e.vault.Address(), units); err != nil {
		return err
	}
	shares, err := e.vault.Deposit(ctx, owner, units, owner)
	if err != nil {
		return fmt.Errorf("seed deposit: %w", err)
	}
	log.Info().Str("assets", units.String()).Str("shares", shares.String()).Msg("Seeded vault")
	return nil
}
