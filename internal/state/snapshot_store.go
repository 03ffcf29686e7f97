// ./internal/state/snapshot_store.go
package state

import (
	"context"
	"encoding/json"
	"fmt"

	sdkmath "cosmossdk.io/math"
	"github.com/rs/zerolog/log"

	"github.com/elys-network/uservault/internal/types"
)

// SaveValuationSnapshot persists a monitor snapshot and returns its id.
func SaveValuationSnapshot(ctx context.Context, snapshot types.ValuationSnapshot) (int64, error) {
	if DB == nil {
		return 0, ErrDBNotInitialized
	}

	allocationsJSON, err := json.Marshal(snapshot.Allocations)
	if err != nil {
		return 0, fmt.Errorf("failed to marshal allocations: %w", err)
	}

	query := `
		INSERT INTO valuation_snapshots (
			cycle_id, cycle_number, vault, snapshot_timestamp,
			total_assets, total_supply, idle_balance, aave_balance, compound_balance,
			total_allocated, allocations,
			asset_price_usd, total_value_usd, share_price_usd, paused
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING snapshot_id;
	`

	var snapshotID int64
	err = DB.QueryRowContext(ctx, query,
		snapshot.CycleID, snapshot.CycleNumber, snapshot.Vault, snapshot.Timestamp,
		numeric(snapshot.TotalAssets), numeric(snapshot.TotalSupply), numeric(snapshot.IdleBalance),
		numeric(snapshot.AaveBalance), numeric(snapshot.CompoundBalance),
		numeric(snapshot.TotalAllocated), allocationsJSON,
		numeric(snapshot.AssetPriceUSD), numeric(snapshot.TotalValueUSD), numeric(snapshot.SharePriceUSD),
		snapshot.Paused,
	).Scan(&snapshotID)
	if err != nil {
		return 0, fmt.Errorf("failed to save valuation snapshot: %w", err)
	}

	log.Info().
		Int64("snapshot_id", snapshotID).
		Int("cycle_number", snapshot.CycleNumber).
		Str("vault", snapshot.Vault).
		Str("total_assets", numeric(snapshot.TotalAssets)).
		Msg("Valuation snapshot saved to database")

	return snapshotID, nil
}

// GetRecentSnapshots returns up to limit snapshots of vault, newest first.
func GetRecentSnapshots(ctx context.Context, vault string, limit int) ([]types.ValuationSnapshot, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := `
		SELECT
			snapshot_id, cycle_id, cycle_number, vault, snapshot_timestamp,
			total_assets::TEXT, total_supply::TEXT, idle_balance::TEXT, aave_balance::TEXT, compound_balance::TEXT,
			total_allocated::TEXT, allocations,
			asset_price_usd::TEXT, total_value_usd::TEXT, share_price_usd::TEXT, paused
		FROM valuation_snapshots
		WHERE vault = $1
		ORDER BY snapshot_timestamp DESC
		LIMIT $2
	`

	rows, err := DB.QueryContext(ctx, query, vault, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent snapshots: %w", err)
	}
	defer rows.Close()

	var snapshots []types.ValuationSnapshot
	for rows.Next() {
		var (
			s               types.ValuationSnapshot
			allocationsJSON []byte
			amounts         [9]string
		)
		if err := rows.Scan(
			&s.SnapshotID, &s.CycleID, &s.CycleNumber, &s.Vault, &s.Timestamp,
			&amounts[0], &amounts[1], &amounts[2], &amounts[3], &amounts[4],
			&amounts[5], &allocationsJSON,
			&amounts[6], &amounts[7], &amounts[8], &s.Paused,
		); err != nil {
			return nil, fmt.Errorf("failed to scan snapshot row: %w", err)
		}

		targets := []*sdkmath.Int{
			&s.TotalAssets, &s.TotalSupply, &s.IdleBalance, &s.AaveBalance, &s.CompoundBalance,
			&s.TotalAllocated, &s.AssetPriceUSD, &s.TotalValueUSD, &s.SharePriceUSD,
		}
		for i, target := range targets {
			value, ok := sdkmath.NewIntFromString(amounts[i])
			if !ok {
				return nil, fmt.Errorf("snapshot %d: invalid numeric column value %q", s.SnapshotID, amounts[i])
			}
			*target = value
		}

		if len(allocationsJSON) > 0 {
			if err := json.Unmarshal(allocationsJSON, &s.Allocations); err != nil {
				log.Warn().Err(err).Int64("snapshot_id", s.SnapshotID).Msg("Failed to unmarshal snapshot allocations")
			}
		}
		snapshots = append(snapshots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating snapshot rows: %w", err)
	}
	return snapshots, nil
}

func numeric(amount sdkmath.Int) string {
	if amount.IsNil() {
		return "0"
	}
	return amount.String()
}
