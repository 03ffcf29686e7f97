package web

import (
	"context"
	"encoding/json"

	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/state"
	"github.com/elys-network/uservault/internal/types"
)

// SnapshotSource yields in-memory snapshots, newest first.
type SnapshotSource interface {
	Recent(vault string, limit int) []types.ValuationSnapshot
}

// MemoryHistory serves history kept in process, used when no database is configured.
type MemoryHistory struct {
	Events    *events.Recorder
	Snapshots SnapshotSource
}

func (h MemoryHistory) RecentEvents(_ context.Context, vault string, limit int) ([]state.StoredEvent, error) {
	if h.Events == nil {
		return nil, nil
	}
	var out []state.StoredEvent
	for _, record := range h.Events.Recent(0) {
		if len(out) >= limit {
			break
		}
		if record.Vault != vault {
			continue
		}
		payload, err := record.Payload()
		if err != nil {
			return nil, err
		}
		out = append(out, state.StoredEvent{
			ID:        record.ID.String(),
			Vault:     record.Vault,
			Type:      string(record.Type),
			Payload:   json.RawMessage(payload),
			EmittedAt: record.Timestamp,
		})
	}
	return out, nil
}

func (h MemoryHistory) RecentSnapshots(_ context.Context, vault string, limit int) ([]types.ValuationSnapshot, error) {
	if h.Snapshots == nil {
		return nil, nil
	}
	return h.Snapshots.Recent(vault, limit), nil
}

// Archive is implemented by histories backed by the database.
type Archive interface {
	Activity(ctx context.Context, vault string) (*state.VaultActivity, error)
	Vaults(ctx context.Context, owner string) ([]state.VaultRecord, error)
}

// DBHistory reads history from the state package's database.
type DBHistory struct{}

func (DBHistory) RecentEvents(ctx context.Context, vault string, limit int) ([]state.StoredEvent, error) {
	return state.GetRecentEvents(ctx, vault, limit)
}

func (DBHistory) RecentSnapshots(ctx context.Context, vault string, limit int) ([]types.ValuationSnapshot, error) {
	return state.GetRecentSnapshots(ctx, vault, limit)
}

func (DBHistory) Activity(ctx context.Context, vault string) (*state.VaultActivity, error) {
	return state.GetVaultActivity(ctx, vault)
}

func (DBHistory) Vaults(ctx context.Context, owner string) ([]state.VaultRecord, error) {
	return state.LoadVaultRecords(ctx, owner)
}
