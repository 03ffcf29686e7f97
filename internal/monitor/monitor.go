// Package monitor periodically snapshots every vault's accounting and valuation,
// persisting each snapshot and publishing it as metrics.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/elys-network/uservault/internal/logger"
	"github.com/elys-network/uservault/internal/planner"
	"github.com/elys-network/uservault/internal/state"
	"github.com/elys-network/uservault/internal/types"
	"github.com/elys-network/uservault/internal/vault"
)

const defaultHistorySize = 256

// VaultLister yields the vaults to snapshot on each cycle.
type VaultLister interface {
	Vaults() []*vault.Vault
}

// Store persists cycle numbers and snapshots.
type Store interface {
	NextCycleNumber(ctx context.Context) (int, error)
	SaveSnapshot(ctx context.Context, snapshot types.ValuationSnapshot) (int64, error)
}

// Observer receives every snapshot and cycle outcome.
type Observer interface {
	ObserveSnapshot(snapshot types.ValuationSnapshot, assetDecimals, shareDecimals uint8)
	RecordCycle(success bool, duration time.Duration)
}

// Config holds the configuration for creating a new Monitor instance
type Config struct {
	Vaults      VaultLister
	Store       Store    // optional
	Observer    Observer // optional
	HistorySize int
	// Rebalance, when set, reconciles each vault's deployments with its declared
	// allocations after the snapshot, acting as the vault owner.
	Rebalance *planner.Params
}

// Monitor runs valuation cycles.
type Monitor struct {
	logger   zerolog.Logger
	vaults   VaultLister
	store    Store
	observer Observer
	rebal    *planner.Params

	mu          sync.RWMutex
	cycleCount  int
	history     []types.ValuationSnapshot
	historySize int
}

// New creates a monitor over cfg.Vaults.
func New(cfg Config) (*Monitor, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, fmt.Errorf("monitor configuration validation failed: %w", err)
	}
	size := cfg.HistorySize
	if size <= 0 {
		size = defaultHistorySize
	}

	m := &Monitor{
		logger:      logger.GetForComponent("monitor"),
		vaults:      cfg.Vaults,
		store:       cfg.Store,
		observer:    cfg.Observer,
		rebal:       cfg.Rebalance,
		historySize: size,
	}
	m.logger.Info().
		Bool("persistent", m.store != nil).
		Bool("autoRebalance", m.rebal != nil).
		Int("historySize", size).
		Msg("Monitor instance created")
	return m, nil
}

func validateConfig(cfg Config) error {
	if cfg.Vaults == nil {
		return errors.New("vault lister cannot be nil")
	}
	if cfg.HistorySize < 0 {
		return errors.New("history size cannot be negative")
	}
	return nil
}

// RunLoop runs a cycle immediately and then once per interval until ctx is done.
func (m *Monitor) RunLoop(ctx context.Context, interval time.Duration) {
	m.logger.Info().Dur("interval", interval).Msg("Starting monitor loop")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	m.runLogged(ctx)
	for {
		select {
		case <-ctx.Done():
			m.logger.Info().Msg("Monitor loop stopped due to context cancellation")
			return
		case <-ticker.C:
			m.runLogged(ctx)
		}
	}
}

func (m *Monitor) runLogged(ctx context.Context) {
	if _, err := m.RunCycle(ctx); err != nil {
		m.logger.Error().Err(err).Msg("Monitor cycle completed with failures")
	}
}

// RunCycle snapshots every vault once. A vault that cannot be valued does not stop
// the others; their errors are joined into the returned error.
func (m *Monitor) RunCycle(ctx context.Context) ([]types.ValuationSnapshot, error) {
	start := time.Now()
	cycleID := uuid.New().String()
	cycleNumber := m.nextCycleNumber(ctx)
	cycleLogger := m.logger.With().Str("cycle_id", cycleID).Int("cycle", cycleNumber).Logger()

	cycleLogger.Info().Msg("--- Starting valuation cycle ---")

	var (
		snapshots []types.ValuationSnapshot
		failures  []error
	)
	for _, v := range m.vaults.Vaults() {
		snapshot, err := v.Snapshot(ctx)
		if err != nil {
			cycleLogger.Error().Err(err).Str("vault", v.Address().String()).Msg("Failed to snapshot vault")
			failures = append(failures, fmt.Errorf("vault %s: %w", v.Address(), err))
			continue
		}
		snapshot.CycleID = cycleID
		snapshot.CycleNumber = cycleNumber

		if m.store != nil {
			id, err := m.store.SaveSnapshot(ctx, snapshot)
			if err != nil {
				cycleLogger.Error().Err(err).Str("vault", snapshot.Vault).Msg("Failed to persist snapshot")
				failures = append(failures, fmt.Errorf("vault %s: %w", snapshot.Vault, err))
			} else {
				snapshot.SnapshotID = id
			}
		}
		if m.observer != nil {
			m.observer.ObserveSnapshot(snapshot, v.Decimals(), v.Decimals())
		}
		m.remember(snapshot)
		snapshots = append(snapshots, snapshot)

		cycleLogger.Debug().
			Str("vault", snapshot.Vault).
			Str("totalAssets", snapshot.TotalAssets.String()).
			Str("sharePriceUSD", snapshot.SharePriceUSD.String()).
			Msg("Vault snapshot captured")

		if m.rebal != nil {
			if err := m.rebalance(ctx, v, cycleLogger); err != nil {
				failures = append(failures, fmt.Errorf("vault %s: rebalance: %w", snapshot.Vault, err))
			}
		}
	}

	err := errors.Join(failures...)
	duration := time.Since(start)
	if m.observer != nil {
		m.observer.RecordCycle(err == nil, duration)
	}

	cycleLogger.Info().
		Int("vaults", len(snapshots)).
		Int("failures", len(failures)).
		Dur("duration", duration).
		Msg("--- Valuation cycle finished ---")
	return snapshots, err
}

func (m *Monitor) rebalance(ctx context.Context, v *vault.Vault, log zerolog.Logger) error {
	in, err := planner.ReadInput(ctx, v)
	if err != nil {
		return err
	}
	plan, err := planner.GeneratePlan(in, *m.rebal)
	if err != nil {
		return err
	}
	if plan.Empty() {
		return nil
	}

	done, err := planner.Execute(ctx, v, v.Owner(), plan)
	event := log.Info()
	if err != nil {
		event = log.Error().Err(err)
	}
	event.Str("vault", v.Address().String()).
		Int("executed", done).
		Int("planned", len(plan.Withdrawals)+len(plan.Deposits)).
		Msg("Rebalance plan applied")
	return err
}

// nextCycleNumber prefers the persistent counter and falls back to the local one.
func (m *Monitor) nextCycleNumber(ctx context.Context) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.store != nil {
		n, err := m.store.NextCycleNumber(ctx)
		if err == nil {
			m.cycleCount = n
			return n
		}
		m.logger.Error().Err(err).Msg("Failed to increment cycle number, using local counter")
	}
	m.cycleCount++
	return m.cycleCount
}

func (m *Monitor) remember(snapshot types.ValuationSnapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.history = append(m.history, snapshot)
	if len(m.history) > m.historySize {
		m.history = append([]types.ValuationSnapshot(nil), m.history[len(m.history)-m.historySize:]...)
	}
}

// Recent returns up to limit in-memory snapshots of vault, newest first. An empty vault
// matches all vaults.
func (m *Monitor) Recent(vault string, limit int) []types.ValuationSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []types.ValuationSnapshot
	for i := len(m.history) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		if vault == "" || m.history[i].Vault == vault {
			out = append(out, m.history[i])
		}
	}
	return out
}

// StateStore persists through the state package's global connection.
type StateStore struct{}

func (StateStore) NextCycleNumber(ctx context.Context) (int, error) {
	return state.IncrementCycleNumber(ctx)
}

func (StateStore) SaveSnapshot(ctx context.Context, snapshot types.ValuationSnapshot) (int64, error) {
	return state.SaveValuationSnapshot(ctx, snapshot)
}
