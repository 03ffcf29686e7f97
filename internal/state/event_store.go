// ./internal/state/event_store.go
package state

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/logger"
)

// StoredEvent is a vault event as read back from the database. The payload stays raw
// JSON because the concrete data type is only known to the emitter.
type StoredEvent struct {
	ID        string          `json:"id"`
	Vault     string          `json:"vault"`
	Type      string          `json:"type"`
	Payload   json.RawMessage `json:"payload"`
	EmittedAt time.Time       `json:"emitted_at"`
}

// SaveVaultEvent inserts a committed vault record. Replays of the same record id are ignored.
func SaveVaultEvent(ctx context.Context, record events.Record) error {
	if DB == nil {
		return ErrDBNotInitialized
	}

	payload, err := record.Payload()
	if err != nil {
		return fmt.Errorf("failed to marshal %s payload: %w", record.Type, err)
	}

	query := `
		INSERT INTO vault_events (event_id, vault, event_type, payload, emitted_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (event_id) DO NOTHING;
	`
	if _, err := DB.ExecContext(ctx, query, record.ID.String(), record.Vault, string(record.Type), payload, record.Timestamp); err != nil {
		return fmt.Errorf("failed to save vault event %s: %w", record.ID, err)
	}
	return nil
}

// GetRecentEvents returns up to limit events of vault, newest first. An empty vault
// returns events of every vault.
func GetRecentEvents(ctx context.Context, vault string, limit int) ([]StoredEvent, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}
	if limit <= 0 || limit > 100 {
		limit = 10
	}

	query := `
		SELECT event_id, vault, event_type, payload, emitted_at
		FROM vault_events
		WHERE ($1 = '' OR vault = $1)
		ORDER BY emitted_at DESC
		LIMIT $2
	`
	rows, err := DB.QueryContext(ctx, query, vault, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent events: %w", err)
	}
	defer rows.Close()

	var out []StoredEvent
	for rows.Next() {
		var (
			e       StoredEvent
			payload []byte
		)
		if err := rows.Scan(&e.ID, &e.Vault, &e.Type, &payload, &e.EmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event row: %w", err)
		}
		e.Payload = json.RawMessage(payload)
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating event rows: %w", err)
	}
	return out, nil
}

// EventStore is an events.Sink persisting every record. Write failures are logged,
// never returned, since the emitting operation has already committed.
type EventStore struct {
	log     zerolog.Logger
	timeout time.Duration
}

// NewEventStore returns a sink bounded by timeout per insert; zero means five seconds.
func NewEventStore(timeout time.Duration) *EventStore {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &EventStore{log: logger.GetForComponent("event_store"), timeout: timeout}
}

// Emit implements events.Sink.
func (s *EventStore) Emit(ctx context.Context, record events.Record) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
	defer cancel()

	if err := SaveVaultEvent(ctx, record); err != nil {
		s.log.Error().Err(err).
			Str("event_id", record.ID.String()).
			Str("type", string(record.Type)).
			Str("vault", record.Vault).
			Msg("Failed to persist vault event")
	}
}
