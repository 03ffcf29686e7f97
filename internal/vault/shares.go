package vault

import (
	"context"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/uservault/internal/events"
)

func (v *Vault) Allowance(owner, spender sdk.AccAddress) sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.shares.Allowance(owner, spender)
}

// Holders returns the number of accounts holding shares.
func (v *Vault) Holders() int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.shares.Holders()
}

// Transfer moves shares from caller to to.
func (v *Vault) Transfer(ctx context.Context, caller, to sdk.AccAddress, amount sdkmath.Int) (err error) {
	c, err := v.enter("transfer", caller)
	if err != nil {
		return err
	}
	defer c.exit(ctx, &err)

	v.mu.Lock()
	err = v.shares.Transfer(caller, to, amount)
	v.mu.Unlock()
	if err != nil {
		return err
	}
	c.field("to", to.String())
	c.field("shares", amount.String())
	c.emit(&events.TransferData{From: caller, To: to, Amount: amount})
	return nil
}

// Approve sets the shares spender may move on caller's behalf. The maximum amount is
// never decremented.
func (v *Vault) Approve(ctx context.Context, caller, spender sdk.AccAddress, amount sdkmath.Int) (err error) {
	c, err := v.enter("approve", caller)
	if err != nil {
		return err
	}
	defer c.exit(ctx, &err)

	v.mu.Lock()
	err = v.shares.Approve(caller, spender, amount)
	v.mu.Unlock()
	if err != nil {
		return err
	}
	c.field("spender", spender.String())
	c.emit(&events.ApprovalData{Owner: caller, Spender: spender, Amount: amount})
	return nil
}

// TransferFrom moves shares from from to to using caller's allowance.
func (v *Vault) TransferFrom(ctx context.Context, caller, from, to sdk.AccAddress, amount sdkmath.Int) (err error) {
	c, err := v.enter("transfer_from", caller)
	if err != nil {
		return err
	}
	defer c.exit(ctx, &err)

	v.mu.Lock()
	err = v.shares.TransferFrom(caller, from, to, amount)
	v.mu.Unlock()
	if err != nil {
		return err
	}
	c.field("from", from.String())
	c.field("to", to.String())
	c.field("shares", amount.String())
	c.emit(&events.TransferData{From: from, To: to, Amount: amount})
	return nil
}
