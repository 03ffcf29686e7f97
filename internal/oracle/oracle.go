// Package oracle reads an external USD price feed and normalizes it to the canonical
// 18 decimal scale used for every valuation figure.
package oracle

import (
	"context"
	"errors"

	errorsmod "cosmossdk.io/errors"
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/types"
)

// PriceFeed is the read-only capability exposed by an external price source.
type PriceFeed interface {
	// LatestAnswer returns the price in the feed's native decimals.
	LatestAnswer(ctx context.Context) (sdkmath.Int, error)
	Decimals(ctx context.Context) (uint8, error)
}

// Client turns raw feed answers into canonical valuation figures.
type Client struct {
	feed PriceFeed
}

// NewClient pins feed for the lifetime of the client.
func NewClient(feed PriceFeed) (*Client, error) {
	if feed == nil {
		return nil, types.ErrInvalidAddress.Wrap("price feed cannot be nil")
	}
	return &Client{feed: feed}, nil
}

// AssetPriceUSD returns the feed's latest price rescaled to 18 decimals. Non-positive
// answers and unreadable decimals abort with ErrInvalidOracleResponse.
func (c *Client) AssetPriceUSD(ctx context.Context) (fixedpoint.Value, error) {
	answer, err := c.feed.LatestAnswer(ctx)
	if err != nil {
		return fixedpoint.Value{}, errorsmod.Wrapf(types.ErrExternalCall, "price feed answer: %s", err)
	}
	if answer.IsNil() || !answer.IsPositive() {
		return fixedpoint.Value{}, types.ErrInvalidOracleResponse.Wrapf("non-positive answer %v", answer)
	}

	decimals, err := c.feed.Decimals(ctx)
	if err != nil {
		return fixedpoint.Value{}, errorsmod.Wrapf(types.ErrExternalCall, "price feed decimals: %s", err)
	}

	price, err := fixedpoint.New(answer, decimals).Rescale(fixedpoint.CanonicalDecimals, fixedpoint.Floor)
	if err != nil {
		return fixedpoint.Value{}, types.ErrInvalidOracleResponse.Wrap(err.Error())
	}
	return price, nil
}

// ValueUSD prices amount, expressed in assetDecimals, at the feed's latest answer.
// The result is an 18 decimal USD figure rounded down.
func (c *Client) ValueUSD(ctx context.Context, amount sdkmath.Int, assetDecimals uint8) (fixedpoint.Value, error) {
	price, err := c.AssetPriceUSD(ctx)
	if err != nil {
		return fixedpoint.Value{}, err
	}
	return Value(fixedpoint.New(amount, assetDecimals), price)
}

// Value multiplies amount by an 18 decimal price: amount (at 18 decimals) * price / 1e18.
func Value(amount, price fixedpoint.Value) (fixedpoint.Value, error) {
	normalized, err := amount.Rescale(fixedpoint.CanonicalDecimals, fixedpoint.Floor)
	if err != nil {
		return fixedpoint.Value{}, mathError(err)
	}
	canonicalPrice, err := price.Rescale(fixedpoint.CanonicalDecimals, fixedpoint.Floor)
	if err != nil {
		return fixedpoint.Value{}, mathError(err)
	}

	usd, err := fixedpoint.MulDiv(normalized.Amount, canonicalPrice.Amount, fixedpoint.Pow10(fixedpoint.CanonicalDecimals), fixedpoint.Floor)
	if err != nil {
		return fixedpoint.Value{}, mathError(err)
	}
	return fixedpoint.New(usd, fixedpoint.CanonicalDecimals), nil
}

// SharePrice divides a total USD value across supply shares of shareDecimals. An empty
// supply prices one share at the whole value.
func SharePrice(totalValue fixedpoint.Value, supply sdkmath.Int, shareDecimals uint8) (fixedpoint.Value, error) {
	if supply.IsNil() || supply.IsZero() {
		return totalValue, nil
	}
	perShare, err := fixedpoint.MulDiv(totalValue.Amount, fixedpoint.Pow10(shareDecimals), supply, fixedpoint.Floor)
	if err != nil {
		return fixedpoint.Value{}, mathError(err)
	}
	return fixedpoint.New(perShare, totalValue.Decimals), nil
}

func mathError(err error) error {
	if errors.Is(err, fixedpoint.ErrInvalidPrecision) {
		return types.ErrInvalidOracleResponse.Wrap(err.Error())
	}
	return types.ErrMathematical.Wrap(err.Error())
}
