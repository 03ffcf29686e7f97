package vault

import (
	"context"

	errorsmod "cosmossdk.io/errors"
	sdk "github.com/cosmos/cosmos-sdk/types"

	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/types"
)

// call is one mutating entry point in flight. It owns the reentrancy guard, the undo log
// replayed when the call fails, and the records emitted once it commits.
type call struct {
	v       *Vault
	name    string
	caller  sdk.AccAddress
	undo    []func()
	pending []events.EventData
	fields  map[string]interface{}
}

// enter acquires the reentrancy guard. Overlapping mutating calls are rejected outright.
func (v *Vault) enter(name string, caller sdk.AccAddress) (*call, error) {
	if !v.entered.CompareAndSwap(false, true) {
		v.log.Warn().
			Str("call", name).
			Str("caller", caller.String()).
			Msg("Rejected reentrant call")
		return nil, types.ErrReentrantCall.Wrapf("%s while another call is in progress", name)
	}
	return &call{
		v:      v,
		name:   name,
		caller: caller,
		fields: make(map[string]interface{}),
	}, nil
}

// onRevert registers f to run, in reverse registration order, if the call fails.
func (c *call) onRevert(f func()) {
	c.undo = append(c.undo, f)
}

// emit queues data for delivery after commit.
func (c *call) emit(data events.EventData) {
	c.pending = append(c.pending, data)
}

// field attaches a structured log field to the call's outcome line.
func (c *call) field(key string, value interface{}) {
	c.fields[key] = value
}

// exit commits or rolls back the call depending on *errp and releases the guard. A panic
// inside the call rolls it back before propagating.
func (c *call) exit(ctx context.Context, errp *error) {
	defer c.v.entered.Store(false)

	if r := recover(); r != nil {
		c.rollback()
		c.v.log.Error().
			Interface("panic", r).
			Str("call", c.name).
			Str("caller", c.caller.String()).
			Fields(c.fields).
			Msg("Call panicked")
		panic(r)
	}

	if err := *errp; err != nil {
		c.rollback()
		c.v.log.Warn().
			Err(err).
			Str("call", c.name).
			Str("caller", c.caller.String()).
			Str("category", string(types.CategoryOf(err))).
			Fields(c.fields).
			Msg("Call rejected")
		return
	}

	vaultID := c.v.address.String()
	for _, data := range c.pending {
		c.v.sink.Emit(ctx, events.NewRecord(vaultID, data))
	}
	c.v.log.Info().
		Str("call", c.name).
		Str("caller", c.caller.String()).
		Fields(c.fields).
		Msg("Call committed")
}

func (c *call) rollback() {
	for i := len(c.undo) - 1; i >= 0; i-- {
		c.undo[i]()
	}
}

// externalError keeps registered errors from collaborators intact and classifies
// anything else as a failed external call.
func externalError(err error, format string, args ...interface{}) error {
	if types.IsRegistered(err) {
		return errorsmod.Wrapf(err, format, args...)
	}
	return errorsmod.Wrapf(types.ErrExternalCall, format+": %s", append(args, err)...)
}
