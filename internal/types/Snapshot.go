/*

This file contains the valuation snapshot type captured by the monitor on every cycle and
persisted by the state package.

*/

package types

import (
	"time"

	sdkmath "cosmossdk.io/math"
)

// ValuationSnapshot is a point-in-time readout of a vault's accounting and valuation.
// USD fields are 18 decimal fixed point; asset fields use the asset's own decimals.
type ValuationSnapshot struct {
	SnapshotID      int64             `json:"snapshot_id,omitempty"` // Auto-incremented by DB
	CycleID         string            `json:"cycle_id"`
	CycleNumber     int               `json:"cycle_number"`
	Vault           string            `json:"vault"`
	Timestamp       time.Time         `json:"timestamp"`
	TotalAssets     sdkmath.Int       `json:"total_assets"`
	TotalSupply     sdkmath.Int       `json:"total_supply"`
	IdleBalance     sdkmath.Int       `json:"idle_balance"`
	AaveBalance     sdkmath.Int       `json:"aave_balance"`
	CompoundBalance sdkmath.Int       `json:"compound_balance"`
	TotalAllocated  sdkmath.Int       `json:"total_allocated"`
	Allocations     []AllocationEntry `json:"allocations"`
	AssetPriceUSD   sdkmath.Int       `json:"asset_price_usd"`
	TotalValueUSD   sdkmath.Int       `json:"total_value_usd"`
	SharePriceUSD   sdkmath.Int       `json:"share_price_usd"`
	Paused          bool              `json:"paused"`
}
