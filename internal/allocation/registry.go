// Package allocation records how much capital the owner intends to assign to each
// external protocol. It tracks declared intent only; actual deployments are tracked
// separately by the vault.
package allocation

import (
	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/uservault/internal/types"
)

// Registry maps protocol names to declared amounts and keeps an enumeration of the names
// whose amount is non-zero. Removing a name moves the last listed name into its slot.
//
// A Registry is not safe for concurrent use.
type Registry struct {
	amounts map[types.ProtocolName]sdkmath.Int
	names   []types.ProtocolName
	index   map[types.ProtocolName]int
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{
		amounts: make(map[types.ProtocolName]sdkmath.Int),
		index:   make(map[types.ProtocolName]int),
	}
}

// Get returns the declared amount for name, zero when never set.
func (r *Registry) Get(name types.ProtocolName) sdkmath.Int {
	if amt, ok := r.amounts[name]; ok {
		return amt
	}
	return sdkmath.ZeroInt()
}

// TotalAllocated sums the declared amounts of every listed name.
func (r *Registry) TotalAllocated() sdkmath.Int {
	total := sdkmath.ZeroInt()
	for _, name := range r.names {
		total = total.Add(r.amounts[name])
	}
	return total
}

// All returns parallel copies of the listed names and their amounts.
func (r *Registry) All() ([]types.ProtocolName, []sdkmath.Int) {
	names := make([]types.ProtocolName, len(r.names))
	amounts := make([]sdkmath.Int, len(r.names))
	for i, name := range r.names {
		names[i] = name
		amounts[i] = r.amounts[name]
	}
	return names, amounts
}

// Entries returns the listed allocations in enumeration order.
func (r *Registry) Entries() []types.AllocationEntry {
	out := make([]types.AllocationEntry, 0, len(r.names))
	for _, name := range r.names {
		out = append(out, types.AllocationEntry{Protocol: name, Amount: r.amounts[name]})
	}
	return out
}

// Set declares amount for name, bounded so that the sum of all declared amounts never
// exceeds totalAssets. It returns the previous amount. On error nothing changes.
func (r *Registry) Set(name types.ProtocolName, amount, totalAssets sdkmath.Int) (sdkmath.Int, error) {
	if name == "" {
		return sdkmath.Int{}, types.ErrInvalidProtocolName.Wrap("protocol name cannot be empty")
	}
	if amount.IsNil() || amount.IsNegative() {
		return sdkmath.Int{}, types.ErrInvalidAmount.Wrap("allocation must be a non-negative integer")
	}

	old := r.Get(name)
	others := r.TotalAllocated()
	if _, listed := r.index[name]; listed {
		others = others.Sub(old)
	}
	if requested := others.Add(amount); requested.GT(totalAssets) {
		return sdkmath.Int{}, types.ErrAllocationExceedsBalance.Wrapf(
			"%s: %s allocated in total, %s available", name, requested, totalAssets)
	}

	r.amounts[name] = amount
	_, listed := r.index[name]
	switch {
	case amount.IsPositive() && !listed:
		r.index[name] = len(r.names)
		r.names = append(r.names, name)
	case amount.IsZero() && listed:
		r.remove(name)
	}
	return old, nil
}

// remove drops name from the enumeration by moving the last name into its slot.
func (r *Registry) remove(name types.ProtocolName) {
	i := r.index[name]
	last := len(r.names) - 1
	if i != last {
		moved := r.names[last]
		r.names[i] = moved
		r.index[moved] = i
	}
	r.names = r.names[:last]
	delete(r.index, name)
}
