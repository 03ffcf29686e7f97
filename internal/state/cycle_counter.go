/*

This file manages the persistent valuation cycle counter. The counter lives in the database
so monitor cycle numbers keep increasing across restarts.

*/

package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

// ensureCycleCounterTable creates the single-row cycle_counter table if it doesn't exist
func ensureCycleCounterTable(ctx context.Context) error {
	createTableSQL := `
		CREATE TABLE IF NOT EXISTS cycle_counter (
			id INTEGER PRIMARY KEY DEFAULT 1,
			current_cycle INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,
			CONSTRAINT single_row_check CHECK (id = 1)
		);
		INSERT INTO cycle_counter (id, current_cycle) VALUES (1, 0) ON CONFLICT (id) DO NOTHING;
	`
	if _, err := DB.ExecContext(ctx, createTableSQL); err != nil {
		return fmt.Errorf("failed to create cycle_counter table: %w", err)
	}
	return nil
}

// GetCurrentCycleNumber returns the last cycle number handed out.
func GetCurrentCycleNumber(ctx context.Context) (int, error) {
	if DB == nil {
		return 0, ErrDBNotInitialized
	}

	var currentCycle int
	err := DB.QueryRowContext(ctx, `SELECT current_cycle FROM cycle_counter WHERE id = 1;`).Scan(&currentCycle)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			log.Warn().Msg("No cycle counter row found, treating as 0")
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get current cycle number: %w", err)
	}
	return currentCycle, nil
}

// IncrementCycleNumber bumps the counter and returns the new value.
func IncrementCycleNumber(ctx context.Context) (int, error) {
	if DB == nil {
		return 0, ErrDBNotInitialized
	}

	updateQuery := `
		UPDATE cycle_counter
		SET current_cycle = current_cycle + 1,
		    updated_at = CURRENT_TIMESTAMP
		WHERE id = 1
		RETURNING current_cycle;`

	var newCycle int
	if err := DB.QueryRowContext(ctx, updateQuery).Scan(&newCycle); err != nil {
		return 0, fmt.Errorf("failed to increment cycle number: %w", err)
	}

	log.Debug().Int("cycle", newCycle).Msg("Incremented cycle counter")
	return newCycle, nil
}
