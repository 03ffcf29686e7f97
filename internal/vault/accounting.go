package vault

import (
	"context"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/types"
)

// IdleBalance is the underlying held directly by the vault.
func (v *Vault) IdleBalance(ctx context.Context) (sdkmath.Int, error) {
	idle, err := v.asset.BalanceOf(ctx, v.address)
	if err != nil {
		return sdkmath.Int{}, externalError(err, "read idle balance")
	}
	return idle, nil
}

// TotalAssets is idle balance + live lending-pool position + nominal money-market
// principal. The last term is an estimate.
func (v *Vault) TotalAssets(ctx context.Context) (sdkmath.Int, error) {
	idle, err := v.IdleBalance(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	aave, err := v.GetAaveBalance(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	total, err := idle.SafeAdd(aave)
	if err == nil {
		total, err = total.SafeAdd(v.GetCompoundBalance())
	}
	if err != nil {
		return sdkmath.Int{}, types.ErrMathematical.Wrapf("total assets: %s", err)
	}
	return total, nil
}

func (v *Vault) TotalSupply() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.shares.TotalSupply()
}

func (v *Vault) BalanceOf(account sdk.AccAddress) sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.shares.BalanceOf(account)
}

// state returns a consistent (totalAssets, totalSupply) pair for conversions.
func (v *Vault) state(ctx context.Context) (sdkmath.Int, sdkmath.Int, error) {
	total, err := v.TotalAssets(ctx)
	if err != nil {
		return sdkmath.Int{}, sdkmath.Int{}, err
	}
	return total, v.TotalSupply(), nil
}

// toShares converts assets at the given state. An empty supply converts 1:1.
func toShares(assets, totalAssets, supply sdkmath.Int, r fixedpoint.Rounding) (sdkmath.Int, error) {
	if assets.IsZero() {
		return sdkmath.ZeroInt(), nil
	}
	if supply.IsZero() {
		return assets, nil
	}
	shares, err := fixedpoint.MulDiv(assets, supply, totalAssets, r)
	if err != nil {
		return sdkmath.Int{}, types.ErrMathematical.Wrapf("convert %s assets to shares: %s", assets, err)
	}
	return shares, nil
}

// toAssets converts shares at the given state. An empty supply converts 1:1.
func toAssets(shares, totalAssets, supply sdkmath.Int, r fixedpoint.Rounding) (sdkmath.Int, error) {
	if supply.IsZero() {
		return shares, nil
	}
	assets, err := fixedpoint.MulDiv(shares, totalAssets, supply, r)
	if err != nil {
		return sdkmath.Int{}, types.ErrMathematical.Wrapf("convert %s shares to assets: %s", shares, err)
	}
	return assets, nil
}

func requireAmount(amount sdkmath.Int, positive bool) error {
	if amount.IsNil() || amount.IsNegative() {
		return types.ErrInvalidAmount.Wrap("amount must be a non-negative integer")
	}
	if positive && amount.IsZero() {
		return types.ErrInvalidAmount.Wrap("amount must be greater than zero")
	}
	return nil
}

// ConvertToShares rounds down.
func (v *Vault) ConvertToShares(ctx context.Context, assets sdkmath.Int) (sdkmath.Int, error) {
	if err := requireAmount(assets, false); err != nil {
		return sdkmath.Int{}, err
	}
	total, supply, err := v.state(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return toShares(assets, total, supply, fixedpoint.Floor)
}

// ConvertToAssets rounds down.
func (v *Vault) ConvertToAssets(ctx context.Context, shares sdkmath.Int) (sdkmath.Int, error) {
	if err := requireAmount(shares, false); err != nil {
		return sdkmath.Int{}, err
	}
	total, supply, err := v.state(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return toAssets(shares, total, supply, fixedpoint.Floor)
}

// PreviewDeposit returns the shares deposit would mint, rounded down.
func (v *Vault) PreviewDeposit(ctx context.Context, assets sdkmath.Int) (sdkmath.Int, error) {
	return v.ConvertToShares(ctx, assets)
}

// PreviewMint returns the assets mint would pull, rounded up.
func (v *Vault) PreviewMint(ctx context.Context, shares sdkmath.Int) (sdkmath.Int, error) {
	if err := requireAmount(shares, false); err != nil {
		return sdkmath.Int{}, err
	}
	total, supply, err := v.state(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return toAssets(shares, total, supply, fixedpoint.Ceil)
}

// PreviewWithdraw returns the shares withdraw would burn, rounded up.
func (v *Vault) PreviewWithdraw(ctx context.Context, assets sdkmath.Int) (sdkmath.Int, error) {
	if err := requireAmount(assets, false); err != nil {
		return sdkmath.Int{}, err
	}
	total, supply, err := v.state(ctx)
	if err != nil {
		return sdkmath.Int{}, err
	}
	return toShares(assets, total, supply, fixedpoint.Ceil)
}

// PreviewRedeem returns the assets redeem would pay out, rounded down.
func (v *Vault) PreviewRedeem(ctx context.Context, shares sdkmath.Int) (sdkmath.Int, error) {
	return v.ConvertToAssets(ctx, shares)
}

// MaxDeposit is unbounded.
func (v *Vault) MaxDeposit(sdk.AccAddress) sdkmath.Int {
	return fixedpoint.MaxUint256()
}

// MaxMint is unbounded.
func (v *Vault) MaxMint(sdk.AccAddress) sdkmath.Int {
	return fixedpoint.MaxUint256()
}

// MaxWithdraw converts the owner's whole share balance. It does not cap against idle
// liquidity, so a withdrawal within this bound may still fail.
func (v *Vault) MaxWithdraw(ctx context.Context, owner sdk.AccAddress) (sdkmath.Int, error) {
	return v.ConvertToAssets(ctx, v.BalanceOf(owner))
}

// MaxRedeem is the owner's whole share balance.
func (v *Vault) MaxRedeem(owner sdk.AccAddress) sdkmath.Int {
	return v.BalanceOf(owner)
}

// Deposit pulls assets from caller and mints the corresponding shares to receiver.
// Shares are priced before the incoming transfer.
func (v *Vault) Deposit(ctx context.Context, caller sdk.AccAddress, assets sdkmath.Int, receiver sdk.AccAddress) (shares sdkmath.Int, err error) {
	c, err := v.enter("deposit", caller)
	if err != nil {
		return sdkmath.Int{}, err
	}
	defer c.exit(ctx, &err)

	if err := v.checkEntry(caller, assets, receiver); err != nil {
		return sdkmath.Int{}, err
	}
	if shares, err = v.PreviewDeposit(ctx, assets); err != nil {
		return sdkmath.Int{}, err
	}
	if err := v.issue(ctx, c, caller, receiver, assets, shares); err != nil {
		return sdkmath.Int{}, err
	}
	return shares, nil
}

// Mint pulls the assets worth exactly shares, rounded up, and mints shares to receiver.
func (v *Vault) Mint(ctx context.Context, caller sdk.AccAddress, shares sdkmath.Int, receiver sdk.AccAddress) (assets sdkmath.Int, err error) {
	c, err := v.enter("mint", caller)
	if err != nil {
		return sdkmath.Int{}, err
	}
	defer c.exit(ctx, &err)

	if err := v.checkEntry(caller, shares, receiver); err != nil {
		return sdkmath.Int{}, err
	}
	if assets, err = v.PreviewMint(ctx, shares); err != nil {
		return sdkmath.Int{}, err
	}
	if err := v.issue(ctx, c, caller, receiver, assets, shares); err != nil {
		return sdkmath.Int{}, err
	}
	return assets, nil
}

// Withdraw burns the shares worth assets, rounded up, from owner and pays assets to
// receiver out of the idle balance. Deployed funds are never recalled.
func (v *Vault) Withdraw(ctx context.Context, caller sdk.AccAddress, assets sdkmath.Int, receiver, owner sdk.AccAddress) (shares sdkmath.Int, err error) {
	c, err := v.enter("withdraw", caller)
	if err != nil {
		return sdkmath.Int{}, err
	}
	defer c.exit(ctx, &err)

	if err := v.checkExit(assets, receiver, owner); err != nil {
		return sdkmath.Int{}, err
	}
	if shares, err = v.PreviewWithdraw(ctx, assets); err != nil {
		return sdkmath.Int{}, err
	}
	if err := v.settle(ctx, c, caller, receiver, owner, assets, shares); err != nil {
		return sdkmath.Int{}, err
	}
	return shares, nil
}

// Redeem burns shares from owner and pays the assets they are worth, rounded down.
func (v *Vault) Redeem(ctx context.Context, caller sdk.AccAddress, shares sdkmath.Int, receiver, owner sdk.AccAddress) (assets sdkmath.Int, err error) {
	c, err := v.enter("redeem", caller)
	if err != nil {
		return sdkmath.Int{}, err
	}
	defer c.exit(ctx, &err)

	if err := v.checkExit(shares, receiver, owner); err != nil {
		return sdkmath.Int{}, err
	}
	if assets, err = v.PreviewRedeem(ctx, shares); err != nil {
		return sdkmath.Int{}, err
	}
	if err := v.settle(ctx, c, caller, receiver, owner, assets, shares); err != nil {
		return sdkmath.Int{}, err
	}
	return assets, nil
}

func (v *Vault) checkEntry(caller sdk.AccAddress, amount sdkmath.Int, receiver sdk.AccAddress) error {
	if v.IsPaused() {
		return types.ErrEnforcedPause.Wrap("vault is paused")
	}
	if err := requireAmount(amount, true); err != nil {
		return err
	}
	if types.IsZeroAddress(caller) {
		return types.ErrInvalidAddress.Wrap("caller cannot be empty")
	}
	if types.IsZeroAddress(receiver) {
		return types.ErrInvalidAddress.Wrap("receiver cannot be empty")
	}
	return nil
}

func (v *Vault) checkExit(amount sdkmath.Int, receiver, owner sdk.AccAddress) error {
	if err := requireAmount(amount, true); err != nil {
		return err
	}
	if types.IsZeroAddress(receiver) {
		return types.ErrInvalidAddress.Wrap("receiver cannot be empty")
	}
	if types.IsZeroAddress(owner) {
		return types.ErrInvalidAddress.Wrap("owner cannot be empty")
	}
	return nil
}

// issue pulls assets from caller, then mints shares to receiver.
func (v *Vault) issue(ctx context.Context, c *call, caller, receiver sdk.AccAddress, assets, shares sdkmath.Int) error {
	if err := v.asset.TransferFrom(ctx, v.address, caller, v.address, assets); err != nil {
		return externalError(err, "pull %s %s from %s", assets, v.asset.Denom(), caller)
	}

	v.mu.Lock()
	err := v.shares.Mint(receiver, shares)
	v.mu.Unlock()
	if err != nil {
		if refund := v.asset.Transfer(ctx, v.address, caller, assets); refund != nil {
			v.log.Error().Err(refund).Str("caller", caller.String()).Msg("Failed to refund pulled assets")
		}
		return err
	}

	c.field("receiver", receiver.String())
	c.field("assets", assets.String())
	c.field("shares", shares.String())
	c.emit(&events.TransferData{To: receiver, Amount: shares})
	c.emit(&events.DepositData{Sender: caller, Receiver: receiver, Assets: assets, Shares: shares})
	return nil
}

// settle spends caller's allowance when acting for owner, burns shares from owner and
// pays assets to receiver from the idle balance.
func (v *Vault) settle(ctx context.Context, c *call, caller, receiver, owner sdk.AccAddress, assets, shares sdkmath.Int) error {
	idle, err := v.IdleBalance(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	if !types.SameAddress(caller, owner) {
		previous := v.shares.Allowance(owner, caller)
		if err := v.shares.SpendAllowance(owner, caller, shares); err != nil {
			v.mu.Unlock()
			return err
		}
		c.onRevert(func() {
			v.mu.Lock()
			_ = v.shares.Approve(owner, caller, previous)
			v.mu.Unlock()
		})
	}
	err = v.shares.Burn(owner, shares)
	v.mu.Unlock()
	if err != nil {
		return err
	}
	c.onRevert(func() {
		v.mu.Lock()
		_ = v.shares.Mint(owner, shares)
		v.mu.Unlock()
	})

	if idle.LT(assets) {
		return types.ErrInsufficientBalance.Wrapf("idle balance %s cannot cover %s", idle, assets)
	}
	if err := v.asset.Transfer(ctx, v.address, receiver, assets); err != nil {
		return externalError(err, "pay %s %s to %s", assets, v.asset.Denom(), receiver)
	}

	c.field("receiver", receiver.String())
	c.field("owner", owner.String())
	c.field("assets", assets.String())
	c.field("shares", shares.String())
	c.emit(&events.TransferData{From: owner, Amount: shares})
	c.emit(&events.WithdrawData{Sender: caller, Receiver: receiver, Owner: owner, Assets: assets, Shares: shares})
	return nil
}
