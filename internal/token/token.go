// Package token provides an in-process fungible asset with an ERC-20 shaped surface. It
// stands in for the vault's underlying asset in the simulated environment and tests.
package token

import (
	"context"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/elys-network/uservault/internal/ledger"
	"github.com/elys-network/uservault/internal/logger"
)

// TransferHook observes a transfer before it is applied. A non-nil error aborts it.
type TransferHook func(ctx context.Context, from, to sdk.AccAddress, amount sdkmath.Int) error

// Token is a mutex-guarded ledger bound to a denom.
type Token struct {
	mu       sync.RWMutex
	denom    string
	decimals uint8
	ledger   *ledger.Ledger
	hook     TransferHook
	log      zerolog.Logger
}

// New creates an empty token. denom must be a valid sdk denom.
func New(denom string, decimals uint8) (*Token, error) {
	if err := sdk.ValidateDenom(denom); err != nil {
		return nil, fmt.Errorf("invalid denom %q: %w", denom, err)
	}
	return &Token{
		denom:    denom,
		decimals: decimals,
		ledger:   ledger.New(),
		log:      logger.GetForComponent("token"),
	}, nil
}

func (t *Token) Denom() string {
	return t.denom
}

func (t *Token) Decimals() uint8 {
	return t.decimals
}

func (t *Token) TotalSupply() sdkmath.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.TotalSupply()
}

func (t *Token) BalanceOf(_ context.Context, account sdk.AccAddress) (sdkmath.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.BalanceOf(account), nil
}

func (t *Token) Allowance(_ context.Context, owner, spender sdk.AccAddress) (sdkmath.Int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.ledger.Allowance(owner, spender), nil
}

func (t *Token) Approve(_ context.Context, owner, spender sdk.AccAddress, amount sdkmath.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Approve(owner, spender, amount)
}

func (t *Token) Transfer(ctx context.Context, from, to sdk.AccAddress, amount sdkmath.Int) error {
	if err := t.runHook(ctx, from, to, amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.Transfer(from, to, amount)
}

func (t *Token) TransferFrom(ctx context.Context, spender, from, to sdk.AccAddress, amount sdkmath.Int) error {
	if err := t.runHook(ctx, from, to, amount); err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.ledger.TransferFrom(spender, from, to, amount)
}

// Mint credits new units to account. Only the simulated environment and tests call it.
func (t *Token) Mint(_ context.Context, account sdk.AccAddress, amount sdkmath.Int) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := t.ledger.Mint(account, amount); err != nil {
		return err
	}
	t.log.Debug().
		Str("denom", t.denom).
		Str("account", account.String()).
		Str("amount", amount.String()).
		Msg("Minted")
	return nil
}

// SetTransferHook installs hook for every subsequent transfer; nil removes it.
func (t *Token) SetTransferHook(hook TransferHook) {
	t.mu.Lock()
	t.hook = hook
	t.mu.Unlock()
}

// runHook runs outside the lock so the hook may call back into the token.
func (t *Token) runHook(ctx context.Context, from, to sdk.AccAddress, amount sdkmath.Int) error {
	t.mu.RLock()
	hook := t.hook
	t.mu.RUnlock()
	if hook == nil {
		return nil
	}
	return hook(ctx, from, to, amount)
}
