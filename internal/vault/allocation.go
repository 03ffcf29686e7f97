package vault

import (
	"context"

	sdkmath "cosmossdk.io/math"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/types"
)

// SetProtocolAllocation declares how much of the vault's assets are intended for name.
// The declaration does not move funds.
func (v *Vault) SetProtocolAllocation(ctx context.Context, caller sdk.AccAddress, name types.ProtocolName, amount sdkmath.Int) (err error) {
	c, err := v.enter("set_protocol_allocation", caller)
	if err != nil {
		return err
	}
	defer c.exit(ctx, &err)

	if err := v.requireOwner(caller); err != nil {
		return err
	}
	total, err := v.TotalAssets(ctx)
	if err != nil {
		return err
	}

	v.mu.Lock()
	old, err := v.allocations.Set(name, amount, total)
	v.mu.Unlock()
	if err != nil {
		return err
	}

	c.field("protocol", name)
	c.field("old_amount", old.String())
	c.field("new_amount", amount.String())
	c.emit(&events.ProtocolAllocationChangedData{Protocol: name, OldAmount: old, NewAmount: amount})
	return nil
}

func (v *Vault) GetProtocolAllocation(name types.ProtocolName) sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.allocations.Get(name)
}

func (v *Vault) GetTotalAllocated() sdkmath.Int {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.allocations.TotalAllocated()
}

// GetAllProtocolAllocations returns the listed protocols and their amounts as parallel
// slices.
func (v *Vault) GetAllProtocolAllocations() ([]types.ProtocolName, []sdkmath.Int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.allocations.All()
}

// Allocations returns the listed allocations as entries, in enumeration order.
func (v *Vault) Allocations() []types.AllocationEntry {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.allocations.Entries()
}
