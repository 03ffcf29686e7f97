package protocols

import (
	"context"
	"fmt"
	"sync"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"
	"github.com/rs/zerolog"

	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/logger"
	"github.com/elys-network/uservault/internal/types"
)

// MemLendingPool is an in-memory LendingPool for a single asset.
type MemLendingPool struct {
	mu        sync.Mutex
	address   sdk.AccAddress
	token     Token
	positions map[string]sdkmath.Int
	failNext  error
	log       zerolog.Logger
}

var _ LendingPool = (*MemLendingPool)(nil)

// NewMemLendingPool creates a pool at address that accepts token.
func NewMemLendingPool(address sdk.AccAddress, token Token) *MemLendingPool {
	return &MemLendingPool{
		address:   address,
		token:     token,
		positions: make(map[string]sdkmath.Int),
		log:       logger.GetForComponent("lending_pool"),
	}
}

func (p *MemLendingPool) Address() sdk.AccAddress {
	return p.address
}

func (p *MemLendingPool) Supply(ctx context.Context, supplier sdk.AccAddress, asset string, amount sdkmath.Int, onBehalfOf sdk.AccAddress) error {
	if err := p.takeFailure(); err != nil {
		return err
	}
	if err := p.checkAsset(asset); err != nil {
		return err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return ErrInvalidProtocolAmount
	}

	if err := p.token.TransferFrom(ctx, p.address, supplier, p.address, amount); err != nil {
		return fmt.Errorf("pull supply: %w", err)
	}

	p.mu.Lock()
	p.positions[types.AddressKey(onBehalfOf)] = p.position(onBehalfOf).Add(amount)
	p.mu.Unlock()

	p.log.Debug().
		Str("on_behalf_of", onBehalfOf.String()).
		Str("amount", amount.String()).
		Msg("Supplied")
	return nil
}

// Withdraw withdraws the whole position when amount is the max sentinel.
func (p *MemLendingPool) Withdraw(ctx context.Context, owner sdk.AccAddress, asset string, amount sdkmath.Int, to sdk.AccAddress) (sdkmath.Int, error) {
	if err := p.takeFailure(); err != nil {
		return sdkmath.Int{}, err
	}
	if err := p.checkAsset(asset); err != nil {
		return sdkmath.Int{}, err
	}
	if amount.IsNil() || !amount.IsPositive() {
		return sdkmath.Int{}, ErrInvalidProtocolAmount
	}

	p.mu.Lock()
	position := p.position(owner)
	if fixedpoint.IsMaxUint256(amount) {
		amount = position
	}
	if position.LT(amount) {
		p.mu.Unlock()
		return sdkmath.Int{}, fmt.Errorf("%w: position %s, requested %s", ErrInsufficientPosition, position, amount)
	}
	p.positions[types.AddressKey(owner)] = position.Sub(amount)
	p.mu.Unlock()

	if err := p.token.Transfer(ctx, p.address, to, amount); err != nil {
		p.mu.Lock()
		p.positions[types.AddressKey(owner)] = p.position(owner).Add(amount)
		p.mu.Unlock()
		return sdkmath.Int{}, fmt.Errorf("send withdrawal: %w", err)
	}
	return amount, nil
}

func (p *MemLendingPool) BalanceOf(_ context.Context, asset string, account sdk.AccAddress) (sdkmath.Int, error) {
	if err := p.checkAsset(asset); err != nil {
		return sdkmath.Int{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.position(account), nil
}

// AccrueInterest grows the position of account by amount. The pool must already hold
// the matching liquidity for the interest to be withdrawable.
func (p *MemLendingPool) AccrueInterest(account sdk.AccAddress, amount sdkmath.Int) {
	p.mu.Lock()
	p.positions[types.AddressKey(account)] = p.position(account).Add(amount)
	p.mu.Unlock()
}

// FailNext makes the next Supply or Withdraw return err.
func (p *MemLendingPool) FailNext(err error) {
	p.mu.Lock()
	p.failNext = err
	p.mu.Unlock()
}

func (p *MemLendingPool) takeFailure() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	err := p.failNext
	p.failNext = nil
	return err
}

func (p *MemLendingPool) checkAsset(asset string) error {
	if asset != p.token.Denom() {
		return fmt.Errorf("%w: %s", ErrUnsupportedAsset, asset)
	}
	return nil
}

// position must be called with mu held.
func (p *MemLendingPool) position(account sdk.AccAddress) sdkmath.Int {
	if pos, ok := p.positions[types.AddressKey(account)]; ok {
		return pos
	}
	return sdkmath.ZeroInt()
}
