package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// VaultActivity aggregates the persisted history of one vault.
type VaultActivity struct {
	Vault          string         `json:"vault"`
	EventCounts    map[string]int `json:"event_counts"`
	TotalEvents    int            `json:"total_events"`
	SnapshotCount  int            `json:"snapshot_count"`
	FirstEventAt   *time.Time     `json:"first_event_at,omitempty"`
	LastSnapshotAt *time.Time     `json:"last_snapshot_at,omitempty"`
}

// GetVaultActivity counts events per type and snapshots for vault.
func GetVaultActivity(ctx context.Context, vault string) (*VaultActivity, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	activity := &VaultActivity{Vault: vault, EventCounts: make(map[string]int)}

	rows, err := DB.QueryContext(ctx, `
		SELECT event_type, COUNT(*)
		FROM vault_events
		WHERE vault = $1
		GROUP BY event_type
		ORDER BY event_type
	`, vault)
	if err != nil {
		log.Error().Err(err).Msg("Failed to query event counts")
		return nil, fmt.Errorf("failed to query event counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			eventType string
			count     int
		)
		if err := rows.Scan(&eventType, &count); err != nil {
			return nil, fmt.Errorf("failed to scan event count: %w", err)
		}
		activity.EventCounts[eventType] = count
		activity.TotalEvents += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event counts: %w", err)
	}

	var firstEvent sql.NullTime
	err = DB.QueryRowContext(ctx, `SELECT MIN(emitted_at) FROM vault_events WHERE vault = $1`, vault).Scan(&firstEvent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query first event time: %w", err)
	}
	if firstEvent.Valid {
		activity.FirstEventAt = &firstEvent.Time
	}

	var lastSnapshot sql.NullTime
	err = DB.QueryRowContext(ctx, `
		SELECT COUNT(*), MAX(snapshot_timestamp)
		FROM valuation_snapshots
		WHERE vault = $1
	`, vault).Scan(&activity.SnapshotCount, &lastSnapshot)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to query snapshot stats: %w", err)
	}
	if lastSnapshot.Valid {
		activity.LastSnapshotAt = &lastSnapshot.Time
	}

	return activity, nil
}
