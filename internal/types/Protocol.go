/*

This is a custom type for the external yield protocols a vault can deploy idle funds into,
together with the declared allocation entries reported by the allocation registry.

*/

package types

import (
	sdkmath "cosmossdk.io/math"
)

// ProtocolName identifies an external protocol in allocations and emitted records.
type ProtocolName = string

const (
	ProtocolAave     ProtocolName = "Aave"     // lending-pool style adapter
	ProtocolCompound ProtocolName = "Compound" // money-market style adapter
)

// AllocationEntry is one row of a declared allocation snapshot.
type AllocationEntry struct {
	Protocol ProtocolName `json:"protocol"`
	Amount   sdkmath.Int  `json:"amount"`
}
