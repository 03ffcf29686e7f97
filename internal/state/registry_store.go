// ./internal/state/registry_store.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
)

// VaultRecord is the persisted identity of a vault created through the factory.
type VaultRecord struct {
	Vault     string    `json:"vault"`
	Owner     string    `json:"owner"`
	Asset     string    `json:"asset"`
	Name      string    `json:"name"`
	Symbol    string    `json:"symbol"`
	CreatedAt time.Time `json:"created_at"`
}

// SaveVaultRecords upserts records in a single transaction. The owner column follows
// ownership transfers; creation time is never rewritten.
func SaveVaultRecords(ctx context.Context, records []VaultRecord) (err error) {
	if DB == nil {
		return ErrDBNotInitialized
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p) // Re-panic after rollback
		} else if err != nil {
			tx.Rollback()
		}
	}()

	stmt := `
		INSERT INTO vault_registry (vault, owner, asset, name, symbol, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (vault) DO UPDATE SET owner = EXCLUDED.owner;`

	for _, r := range records {
		createdAt := r.CreatedAt
		if createdAt.IsZero() {
			createdAt = time.Now().UTC()
		}
		if _, err = tx.ExecContext(ctx, stmt, r.Vault, r.Owner, r.Asset, r.Name, r.Symbol, createdAt); err != nil {
			return fmt.Errorf("failed to save vault record %s: %w", r.Vault, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Info().Int("count", len(records)).Msg("Saved vault registry records")
	return nil
}

// LoadVaultRecords returns every registered vault, oldest first. An empty owner lists all.
func LoadVaultRecords(ctx context.Context, owner string) ([]VaultRecord, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	query := `
		SELECT vault, owner, asset, name, symbol, created_at
		FROM vault_registry
		WHERE ($1 = '' OR owner = $1)
		ORDER BY created_at ASC, vault ASC;`

	rows, err := DB.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query vault registry: %w", err)
	}
	defer rows.Close()

	var records []VaultRecord
	for rows.Next() {
		var r VaultRecord
		if err := rows.Scan(&r.Vault, &r.Owner, &r.Asset, &r.Name, &r.Symbol, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vault record: %w", err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating vault registry: %w", err)
	}
	return records, nil
}

// GetVaultRecord returns nil without error when vault is unknown.
func GetVaultRecord(ctx context.Context, vault string) (*VaultRecord, error) {
	if DB == nil {
		return nil, ErrDBNotInitialized
	}

	var r VaultRecord
	err := DB.QueryRowContext(ctx, `
		SELECT vault, owner, asset, name, symbol, created_at
		FROM vault_registry
		WHERE vault = $1;`, vault).Scan(&r.Vault, &r.Owner, &r.Asset, &r.Name, &r.Symbol, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Debug().Str("vault", vault).Msg("Vault not found in registry")
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load vault record %s: %w", vault, err)
	}
	return &r, nil
}
