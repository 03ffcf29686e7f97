package vault

import (
	"context"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/protocols"
	"github.com/elys-network/uservault/internal/types"
)

func (v *Vault) lendingPool() (protocols.LendingPool, error) {
	pool := v.factory.LendingPool()
	if pool == nil {
		return nil, types.ErrProtocolAddressNotSet.Wrapf("%s lending pool is not configured", types.ProtocolAave)
	}
	return pool, nil
}

func (v *Vault) moneyMarket() (protocols.MoneyMarket, error) {
	market := v.factory.MoneyMarket()
	if market == nil {
		return nil, types.ErrProtocolAddressNotSet.Wrapf("%s money market is not configured", types.ProtocolCompound)
	}
	return market, nil
}

// GetAaveBalance is the vault's live lending-pool position, zero when no pool is
// configured.
func (v *Vault) GetAaveBalance(ctx context.Context) (sdkmath.Int, error) {
	pool := v.factory.LendingPool()
	if pool == nil {
		return sdkmath.ZeroInt(), nil
	}
	bal, err := pool.BalanceOf(ctx, v.asset.Denom(), v.address)
	if err != nil {
		return sdkmath.Int{}, externalError(err, "read %s balance", types.ProtocolAave)
	}
	return bal, nil
}

// GetCompoundBalance is the nominal principal deployed to the money market. It does not
// follow the receipt token's exchange rate.
func (v *Vault) GetCompoundBalance() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.compoundPrincipal
}

// CompoundLiveBalance values the vault's receipt tokens at the market's current exchange
// rate. It is informational only and never feeds TotalAssets.
func (v *Vault) CompoundLiveBalance(ctx context.Context) (sdkmath.Int, error) {
	market := v.factory.MoneyMarket()
	if market == nil {
		return sdkmath.ZeroInt(), nil
	}
	receipts, err := market.BalanceOf(ctx, v.address)
	if err != nil {
		return sdkmath.Int{}, externalError(err, "read %s receipts", types.ProtocolCompound)
	}
	rate, err := market.ExchangeRate(ctx)
	if err != nil {
		return sdkmath.Int{}, externalError(err, "read %s exchange rate", types.ProtocolCompound)
	}
	live, err := protocols.UnderlyingValue(receipts, rate)
	if err != nil {
		return sdkmath.Int{}, types.ErrMathematical.Wrapf("value %s receipts: %s", types.ProtocolCompound, err)
	}
	return live, nil
}

// checkDeploy validates the caller and amount of an owner-only protocol call.
func (v *Vault) checkDeploy(caller sdk.AccAddress, amount sdkmath.Int) error {
	if err := v.requireOwner(caller); err != nil {
		return err
	}
	if err := requireAmount(amount, true); err != nil {
		return err
	}
	return nil
}

func (v *Vault) requireIdle(ctx context.Context, amount sdkmath.Int) error {
	idle, err := v.IdleBalance(ctx)
	if err != nil {
		return err
	}
	if idle.LT(amount) {
		return types.ErrInsufficientBalance.Wrapf("idle balance %s cannot cover %s", idle, amount)
	}
	return nil
}

// approveFor grants spender exactly amount and restores the prior grant if the call fails.
func (v *Vault) approveFor(ctx context.Context, c *call, spender sdk.AccAddress, amount sdkmath.Int) error {
	previous, err := v.asset.Allowance(ctx, v.address, spender)
	if err != nil {
		return externalError(err, "read allowance of %s", spender)
	}
	if err := v.asset.Approve(ctx, v.address, spender, amount); err != nil {
		return externalError(err, "approve %s", spender)
	}
	c.onRevert(func() {
		if err := v.asset.Approve(ctx, v.address, spender, previous); err != nil {
			v.log.Error().Err(err).Str("spender", spender.String()).Msg("Failed to restore approval")
		}
	})
	return nil
}

// DeployToAave supplies amount of idle funds to the lending pool.
func (v *Vault) DeployToAave(ctx context.Context, caller sdk.AccAddress, amount sdkmath.Int) (err error) {
	c, err := v.enter("deploy_to_aave", caller)
	if err != nil {
		return err
	}
	defer c.exit(ctx, &err)

	if err := v.checkDeploy(caller, amount); err != nil {
		return err
	}
	pool, err := v.lendingPool()
	if err != nil {
		return err
	}
	if err := v.requireIdle(ctx, amount); err != nil {
		return err
	}

	if err := v.approveFor(ctx, c, pool.Address(), amount); err != nil {
		return err
	}
	if err := pool.Supply(ctx, v.address, v.asset.Denom(), amount, v.address); err != nil {
		return externalError(err, "supply to %s", types.ProtocolAave)
	}

	c.field("protocol", types.ProtocolAave)
	c.field("amount", amount.String())
	c.emit(&events.ProtocolDeployedData{Protocol: types.ProtocolAave, Amount: amount})
	return nil
}

// WithdrawFromAave pulls amount back from the lending pool into the idle balance.
func (v *Vault) WithdrawFromAave(ctx context.Context, caller sdk.AccAddress, amount sdkmath.Int) (err error) {
	c, err := v.enter("withdraw_from_aave", caller)
	if err != nil {
		return err
	}
	defer c.exit(ctx, &err)

	if err := v.checkDeploy(caller, amount); err != nil {
		return err
	}
	pool, err := v.lendingPool()
	if err != nil {
		return err
	}
	position, err := v.GetAaveBalance(ctx)
	if err != nil {
		return err
	}
	if position.LT(amount) {
		return types.ErrInsufficientBalance.Wrapf("%s position %s cannot cover %s", types.ProtocolAave, position, amount)
	}

	before, err := v.IdleBalance(ctx)
	if err != nil {
		return err
	}
	withdrawn, err := pool.Withdraw(ctx, v.address, v.asset.Denom(), amount, v.address)
	if err != nil {
		return externalError(err, "withdraw from %s", types.ProtocolAave)
	}

	// The pool has already paid out, so a short withdrawal commits with what arrived.
	after, err := v.IdleBalance(ctx)
	if err != nil {
		return err
	}
	received := after.Sub(before)
	if !received.Equal(amount) {
		v.log.Warn().
			Str("requested", amount.String()).
			Str("reported", withdrawn.String()).
			Str("received", received.String()).
			Msg("Lending pool withdrawal differs from request")
	}

	c.field("protocol", types.ProtocolAave)
	c.field("amount", received.String())
	c.emit(&events.ProtocolWithdrawnData{Protocol: types.ProtocolAave, Amount: received})
	return nil
}

// DeployToCompound mints money-market receipts with amount of idle funds and grows the
// nominal principal by amount.
func (v *Vault) DeployToCompound(ctx context.Context, caller sdk.AccAddress, amount sdkmath.Int) (err error) {
	c, err := v.enter("deploy_to_compound", caller)
	if err != nil {
		return err
	}
	defer c.exit(ctx, &err)

	if err := v.checkDeploy(caller, amount); err != nil {
		return err
	}
	market, err := v.moneyMarket()
	if err != nil {
		return err
	}
	if err := v.requireIdle(ctx, amount); err != nil {
		return err
	}

	v.mu.Lock()
	v.compoundPrincipal = v.compoundPrincipal.Add(amount)
	v.mu.Unlock()
	c.onRevert(func() {
		v.mu.Lock()
		v.compoundPrincipal = v.compoundPrincipal.Sub(amount)
		v.mu.Unlock()
	})

	if err := v.approveFor(ctx, c, market.Address(), amount); err != nil {
		return err
	}
	if err := market.Mint(ctx, v.address, amount); err != nil {
		return externalError(err, "mint %s receipts", types.ProtocolCompound)
	}

	c.field("protocol", types.ProtocolCompound)
	c.field("amount", amount.String())
	c.emit(&events.ProtocolDeployedData{Protocol: types.ProtocolCompound, Amount: amount})
	return nil
}

// WithdrawFromCompound redeems amount of underlying from the money market and shrinks
// the nominal principal by amount.
func (v *Vault) WithdrawFromCompound(ctx context.Context, caller sdk.AccAddress, amount sdkmath.Int) (err error) {
	c, err := v.enter("withdraw_from_compound", caller)
	if err != nil {
		return err
	}
	defer c.exit(ctx, &err)

	if err := v.checkDeploy(caller, amount); err != nil {
		return err
	}
	market, err := v.moneyMarket()
	if err != nil {
		return err
	}

	v.mu.Lock()
	principal := v.compoundPrincipal
	if principal.LT(amount) {
		v.mu.Unlock()
		return types.ErrInsufficientBalance.Wrapf("%s principal %s cannot cover %s", types.ProtocolCompound, principal, amount)
	}
	v.compoundPrincipal = principal.Sub(amount)
	v.mu.Unlock()
	c.onRevert(func() {
		v.mu.Lock()
		v.compoundPrincipal = v.compoundPrincipal.Add(amount)
		v.mu.Unlock()
	})

	if err := market.RedeemUnderlying(ctx, v.address, amount); err != nil {
		return externalError(err, "redeem from %s", types.ProtocolCompound)
	}

	c.field("protocol", types.ProtocolCompound)
	c.field("amount", amount.String())
	c.emit(&events.ProtocolWithdrawnData{Protocol: types.ProtocolCompound, Amount: amount})
	return nil
}
