// ./internal/state/db.go
package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/rs/zerolog/log"
)

// ErrDBNotInitialized is returned by every store function before InitDB succeeds.
var ErrDBNotInitialized = errors.New("database not initialized")

// DB is a global database connection pool.
var DB *sql.DB

// DBConfig holds database connection parameters.
type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string // "disable", "require", "verify-full", etc.
}

// DSN renders the lib/pq connection string.
func (c DBConfig) DSN() string {
	sslMode := c.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, sslMode)
}

// InitDB initializes the database connection pool.
func InitDB(cfg DBConfig) error {
	var err error
	DB, err = sql.Open("postgres", cfg.DSN())
	if err != nil {
		return fmt.Errorf("failed to open database connection: %w", err)
	}

	DB.SetMaxOpenConns(25)
	DB.SetMaxIdleConns(25)
	DB.SetConnMaxLifetime(5 * time.Minute)

	if err := DB.Ping(); err != nil {
		DB.Close()
		DB = nil
		return fmt.Errorf("failed to ping database: %w", err)
	}

	log.Info().Str("host", cfg.Host).Str("dbname", cfg.DBName).Msg("Connected to the PostgreSQL database")
	return nil
}

// CloseDB closes the database connection pool.
func CloseDB() {
	if DB != nil {
		log.Info().Msg("Closing database connection...")
		if err := DB.Close(); err != nil {
			log.Error().Err(err).Msg("Error closing database connection")
		}
		DB = nil
	}
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS vault_events (
		event_id UUID PRIMARY KEY,
		vault VARCHAR(128) NOT NULL,
		event_type VARCHAR(64) NOT NULL,
		payload JSONB NOT NULL,
		emitted_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_vault_events_vault_time ON vault_events(vault, emitted_at DESC);
	CREATE INDEX IF NOT EXISTS idx_vault_events_type ON vault_events(event_type);

	CREATE TABLE IF NOT EXISTS valuation_snapshots (
		snapshot_id SERIAL PRIMARY KEY,
		cycle_id UUID NOT NULL,
		cycle_number INTEGER NOT NULL,
		vault VARCHAR(128) NOT NULL,
		snapshot_timestamp TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP,

		-- Asset figures in the asset's base units
		total_assets NUMERIC(78, 0) NOT NULL,
		total_supply NUMERIC(78, 0) NOT NULL,
		idle_balance NUMERIC(78, 0) NOT NULL,
		aave_balance NUMERIC(78, 0) NOT NULL,
		compound_balance NUMERIC(78, 0) NOT NULL,
		total_allocated NUMERIC(78, 0) NOT NULL,
		allocations JSONB,

		-- USD figures at 18 decimals
		asset_price_usd NUMERIC(78, 0) NOT NULL,
		total_value_usd NUMERIC(78, 0) NOT NULL,
		share_price_usd NUMERIC(78, 0) NOT NULL,

		paused BOOLEAN NOT NULL DEFAULT FALSE
	);
	CREATE INDEX IF NOT EXISTS idx_valuation_snapshots_vault_time ON valuation_snapshots(vault, snapshot_timestamp DESC);
	CREATE INDEX IF NOT EXISTS idx_valuation_snapshots_cycle ON valuation_snapshots(cycle_number DESC);

	CREATE TABLE IF NOT EXISTS vault_registry (
		vault VARCHAR(128) PRIMARY KEY,
		owner VARCHAR(128) NOT NULL,
		asset VARCHAR(128) NOT NULL,
		name VARCHAR(255) NOT NULL,
		symbol VARCHAR(64) NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_vault_registry_owner ON vault_registry(owner);
`

// EnsureSchema applies the necessary DDL to create tables if they don't exist.
func EnsureSchema(ctx context.Context) error {
	if DB == nil {
		return ErrDBNotInitialized
	}
	if _, err := DB.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema DDL: %w", err)
	}
	if err := ensureCycleCounterTable(ctx); err != nil {
		return err
	}
	log.Info().Msg("Database schema ensured")
	return nil
}

// ResetDatabase drops every table owned by the vault service and recreates the schema.
func ResetDatabase(ctx context.Context) error {
	if DB == nil {
		return ErrDBNotInitialized
	}
	dropSQL := `
		DROP TABLE IF EXISTS vault_events CASCADE;
		DROP TABLE IF EXISTS valuation_snapshots CASCADE;
		DROP TABLE IF EXISTS vault_registry CASCADE;
		DROP TABLE IF EXISTS cycle_counter CASCADE;
	`
	if _, err := DB.ExecContext(ctx, dropSQL); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	log.Warn().Msg("Dropped all vault tables")
	return EnsureSchema(ctx)
}

// TestDBConnection tests if the database connection is healthy
func TestDBConnection(ctx context.Context) error {
	if DB == nil {
		return ErrDBNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}
	return nil
}
