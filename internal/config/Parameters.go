/*

This file contains the default operating parameters of vaultd.

*/

package config

import "time"

// VaultParameters tunes the service around the vault; none of it affects vault accounting.
type VaultParameters struct {
	// SnapshotInterval is the default valuation monitor period.
	SnapshotInterval time.Duration
	// EventHistorySize bounds the in-memory event journal served without a database.
	EventHistorySize int
	// SnapshotHistorySize bounds the in-memory snapshot history served without a database.
	SnapshotHistorySize int
	// EventWriteTimeout bounds each event insert.
	EventWriteTimeout time.Duration
	// ShutdownTimeout bounds graceful shutdown of the HTTP and gRPC servers.
	ShutdownTimeout time.Duration
	// SeedDeposit is the whole unit amount minted to and deposited by the owner on
	// startup of the simulated environment. Zero disables seeding.
	SeedDeposit string
	// AutoRebalance lets the monitor move capital toward declared allocations each cycle.
	AutoRebalance bool
	// RebalanceThresholdBps ignores allocation deviations below this share of the target.
	RebalanceThresholdBps uint32
	// RebalanceMaxWithdrawBps caps withdrawals per cycle as a share of total assets.
	RebalanceMaxWithdrawBps uint32
}

// DefaultVaultParameters are used by vaultd unless overridden by flags.
var DefaultVaultParameters = VaultParameters{
	SnapshotInterval:    10 * time.Minute,
	EventHistorySize:    1000,
	SnapshotHistorySize: 256,
	EventWriteTimeout:   5 * time.Second,
	ShutdownTimeout:     10 * time.Second,
	SeedDeposit:         "0",

	AutoRebalance:           false,
	RebalanceThresholdBps:   200,
	RebalanceMaxWithdrawBps: 1000,
}
