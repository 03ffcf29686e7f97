package vault

import (
	"context"

	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/types"
)

// requireOwner must be called without mu held.
func (v *Vault) requireOwner(caller sdk.AccAddress) error {
	owner := v.Owner()
	if !types.SameAddress(caller, owner) {
		return types.ErrUnauthorized.Wrapf("%s is not the vault owner", caller)
	}
	return nil
}

// Pause blocks deposit and mint until Unpause.
func (v *Vault) Pause(ctx context.Context, caller sdk.AccAddress) (err error) {
	c, err := v.enter("pause", caller)
	if err != nil {
		return err
	}
	defer c.exit(ctx, &err)

	if err := v.requireOwner(caller); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if v.paused {
		return types.ErrEnforcedPause.Wrap("vault is already paused")
	}
	v.paused = true
	c.emit(&events.PausedData{Account: caller})
	return nil
}

func (v *Vault) Unpause(ctx context.Context, caller sdk.AccAddress) (err error) {
	c, err := v.enter("unpause", caller)
	if err != nil {
		return err
	}
	defer c.exit(ctx, &err)

	if err := v.requireOwner(caller); err != nil {
		return err
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	if !v.paused {
		return types.ErrExpectedPause.Wrap("vault is not paused")
	}
	v.paused = false
	c.emit(&events.UnpausedData{Account: caller})
	return nil
}

// TransferOwnership hands every owner privilege to newOwner.
func (v *Vault) TransferOwnership(ctx context.Context, caller, newOwner sdk.AccAddress) (err error) {
	c, err := v.enter("transfer_ownership", caller)
	if err != nil {
		return err
	}
	defer c.exit(ctx, &err)

	if err := v.requireOwner(caller); err != nil {
		return err
	}
	if types.IsZeroAddress(newOwner) {
		return types.ErrInvalidAddress.Wrap("new owner cannot be empty")
	}

	v.mu.Lock()
	previous := v.owner
	v.owner = newOwner
	v.mu.Unlock()

	c.field("new_owner", newOwner.String())
	c.emit(&events.OwnershipTransferredData{PreviousOwner: previous, NewOwner: newOwner})
	return nil
}
