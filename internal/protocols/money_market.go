package protocols

import (
	"context"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/types"
)

// MemMoneyMarket is an in-memory MoneyMarket with a settable exchange rate.
type MemMoneyMarket struct {
	mu           sync.Mutex
	address      sdk.AccAddress
	token        Token
	receipts     map[string]sdkmath.Int
	exchangeRate sdkmath.Int
	failNext     error
}

var _ MoneyMarket = (*MemMoneyMarket)(nil)

// NewMemMoneyMarket creates a market at address over token with a 1:1 exchange rate.
func NewMemMoneyMarket(address sdk.AccAddress, token Token) *MemMoneyMarket {
	return &MemMoneyMarket{
		address:      address,
		token:        token,
		receipts:     make(map[string]sdkmath.Int),
		exchangeRate: fixedpoint.Pow10(ExchangeRateDecimals),
	}
}

func (m *MemMoneyMarket) Address() sdk.AccAddress {
	return m.address
}

// Mint issues floor(amount * 1e18 / rate) receipt tokens.
func (m *MemMoneyMarket) Mint(ctx context.Context, minter sdk.AccAddress, amount sdkmath.Int) error {
	if err := m.takeFailure(); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidProtocolAmount
	}

	m.mu.Lock()
	receipt, err := fixedpoint.MulDiv(amount, fixedpoint.Pow10(ExchangeRateDecimals), m.exchangeRate, fixedpoint.Floor)
	m.mu.Unlock()
	if err != nil {
		return err
	}

	if err := m.token.TransferFrom(ctx, m.address, minter, m.address, amount); err != nil {
		return fmt.Errorf("pull mint: %w", err)
	}

	m.mu.Lock()
	m.receipts[types.AddressKey(minter)] = m.balance(minter).Add(receipt)
	m.mu.Unlock()
	return nil
}

// RedeemUnderlying burns ceil(amount * 1e18 / rate) receipt tokens.
func (m *MemMoneyMarket) RedeemUnderlying(ctx context.Context, redeemer sdk.AccAddress, amount sdkmath.Int) error {
	if err := m.takeFailure(); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidProtocolAmount
	}

	m.mu.Lock()
	burn, err := fixedpoint.MulDiv(amount, fixedpoint.Pow10(ExchangeRateDecimals), m.exchangeRate, fixedpoint.Ceil)
	if err != nil {
		m.mu.Unlock()
		return err
	}
	held := m.balance(redeemer)
	if held.LT(burn) {
		m.mu.Unlock()
		return fmt.Errorf("%w: receipts %s, required %s", ErrInsufficientPosition, held, burn)
	}
	m.receipts[types.AddressKey(redeemer)] = held.Sub(burn)
	m.mu.Unlock()

	if err := m.token.Transfer(ctx, m.address, redeemer, amount); err != nil {
		m.mu.Lock()
		m.receipts[types.AddressKey(redeemer)] = m.balance(redeemer).Add(burn)
		m.mu.Unlock()
		return fmt.Errorf("send redemption: %w", err)
	}
	return nil
}

func (m *MemMoneyMarket) BalanceOf(_ context.Context, account sdk.AccAddress) (sdkmath.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.balance(account), nil
}

func (m *MemMoneyMarket) ExchangeRate(context.Context) (sdkmath.Int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exchangeRate, nil
}

// SetExchangeRate replaces the underlying-per-receipt rate, scaled by 1e18.
func (m *MemMoneyMarket) SetExchangeRate(rate sdkmath.Int) error {
	if rate.IsNil() || !rate.IsPositive() {
		return ErrInvalidExchangeRate
	}
	m.mu.Lock()
	m.exchangeRate = rate
	m.mu.Unlock()
	return nil
}

// FailNext makes the next Mint or RedeemUnderlying return err.
func (m *MemMoneyMarket) FailNext(err error) {
	m.mu.Lock()
	m.failNext = err
	m.mu.Unlock()
}

func (m *MemMoneyMarket) takeFailure() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	err := m.failNext
	m.failNext = nil
	return err
}

// balance must be called with mu held.
func (m *MemMoneyMarket) balance(account sdk.AccAddress) sdkmath.Int {
	if bal, ok := m.receipts[types.AddressKey(account)]; ok {
		return bal
	}
	return sdkmath.ZeroInt()
}

// UnderlyingValue converts a receipt balance to underlying at rate, rounding down.
func UnderlyingValue(receipts, rate sdkmath.Int) (sdkmath.Int, error) {
	return fixedpoint.MulDiv(receipts, rate, fixedpoint.Pow10(ExchangeRateDecimals), fixedpoint.Floor)
}
