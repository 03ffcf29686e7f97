// Package protocols declares the capabilities the vault consumes from external yield
// sources, together with in-memory reference implementations used by the simulated
// environment and tests.
package protocols

import (
	"context"
	"errors"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrUnsupportedAsset      = errors.New("asset is not supported by this protocol")
	ErrInsufficientPosition  = errors.New("position is smaller than the requested amount")
	ErrInvalidExchangeRate   = errors.New("exchange rate must be positive")
	ErrInvalidProtocolAmount = errors.New("protocol amount must be positive")
)

// ExchangeRateDecimals is the fixed-point scale of MoneyMarket.ExchangeRate.
const ExchangeRateDecimals uint8 = 18

// Token is the slice of the underlying asset the protocols need to move funds.
type Token interface {
	Denom() string
	Transfer(ctx context.Context, from, to sdk.AccAddress, amount sdkmath.Int) error
	TransferFrom(ctx context.Context, spender, from, to sdk.AccAddress, amount sdkmath.Int) error
}

// LendingPool is a lending-pool style yield source. Supplied funds are tracked per
// account and the balance already includes accrued interest.
type LendingPool interface {
	Address() sdk.AccAddress

	// Supply pulls amount of asset from supplier and credits the position of onBehalfOf.
	// The supplier must have approved Address() beforehand.
	Supply(ctx context.Context, supplier sdk.AccAddress, asset string, amount sdkmath.Int, onBehalfOf sdk.AccAddress) error

	// Withdraw debits the position of owner and sends the funds to to. It returns the
	// amount actually withdrawn.
	Withdraw(ctx context.Context, owner sdk.AccAddress, asset string, amount sdkmath.Int, to sdk.AccAddress) (sdkmath.Int, error)

	// BalanceOf returns the current position of account in asset.
	BalanceOf(ctx context.Context, asset string, account sdk.AccAddress) (sdkmath.Int, error)
}

// MoneyMarket is a money-market style yield source issuing a receipt token whose value
// grows through its exchange rate.
type MoneyMarket interface {
	Address() sdk.AccAddress

	// Mint pulls amount of underlying from minter and issues receipt tokens to it.
	Mint(ctx context.Context, minter sdk.AccAddress, amount sdkmath.Int) error

	// RedeemUnderlying burns enough receipt tokens of redeemer to return amount of
	// underlying.
	RedeemUnderlying(ctx context.Context, redeemer sdk.AccAddress, amount sdkmath.Int) error

	// BalanceOf returns the receipt token balance of account.
	BalanceOf(ctx context.Context, account sdk.AccAddress) (sdkmath.Int, error)

	// ExchangeRate returns underlying per receipt token, scaled by 10^18.
	ExchangeRate(ctx context.Context) (sdkmath.Int, error)
}
