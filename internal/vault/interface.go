package vault

import (
	"context"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/uservault/internal/protocols"
)

// Asset defines the interface the vault uses to hold and move its underlying token.
// The vault never caches balances; every figure derived from the asset is read live.
type Asset interface {
	// Denom returns the identifier of the underlying token.
	Denom() string

	// Decimals returns the native precision of the token. Vault shares use the same precision.
	Decimals() uint8

	// BalanceOf returns the token balance held by account.
	BalanceOf(ctx context.Context, account sdk.AccAddress) (sdkmath.Int, error)

	// Allowance returns how much of owner's balance spender may still move.
	Allowance(ctx context.Context, owner, spender sdk.AccAddress) (sdkmath.Int, error)

	// Approve lets spender move up to amount of owner's balance.
	Approve(ctx context.Context, owner, spender sdk.AccAddress, amount sdkmath.Int) error

	// Transfer moves amount from from to to.
	Transfer(ctx context.Context, from, to sdk.AccAddress, amount sdkmath.Int) error

	// TransferFrom moves amount from from to to using spender's allowance.
	TransferFrom(ctx context.Context, spender, from, to sdk.AccAddress, amount sdkmath.Int) error
}

// Factory defines the registry the vault was created by. Protocol adapters are looked up
// on every call so the registry owner can configure or replace them after the vault exists.
type Factory interface {
	// LendingPool returns the configured lending-pool adapter, or nil when unset.
	LendingPool() protocols.LendingPool

	// MoneyMarket returns the configured money-market adapter, or nil when unset.
	MoneyMarket() protocols.MoneyMarket
}
