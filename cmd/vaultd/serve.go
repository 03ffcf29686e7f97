package main

import (
	"context"
	"fmt"
	"net"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/elys-network/uservault/internal/config"
	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/logger"
	"github.com/elys-network/uservault/internal/metrics"
	"github.com/elys-network/uservault/internal/monitor"
	"github.com/elys-network/uservault/internal/planner"
	"github.com/elys-network/uservault/internal/state"
	"github.com/elys-network/uservault/internal/web"
)

const healthRefreshInterval = 30 * time.Second

func newServeCmd() *cobra.Command {
	params := config.DefaultVaultParameters
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the vault with its HTTP API, gRPC health service and valuation monitor",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadConfig(); err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}
			logger.Initialize(config.LogLevel)
			log.Info().Msg("vaultd starting...")

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx, params)
		},
	}
	cmd.Flags().StringVar(&params.SeedDeposit, "seed-deposit", params.SeedDeposit, "whole asset units the owner deposits on startup")
	cmd.Flags().IntVar(&params.EventHistorySize, "event-history", params.EventHistorySize, "in-memory event journal size")
	cmd.Flags().BoolVar(&params.AutoRebalance, "auto-rebalance", params.AutoRebalance, "deploy and withdraw toward declared allocations every monitor cycle")
	cmd.Flags().Uint32Var(&params.RebalanceThresholdBps, "rebalance-threshold-bps", params.RebalanceThresholdBps, "ignore allocation deviations below this many basis points")
	cmd.Flags().Uint32Var(&params.RebalanceMaxWithdrawBps, "rebalance-max-withdraw-bps", params.RebalanceMaxWithdrawBps, "cap withdrawals per cycle in basis points of total assets, 0 for no cap")
	return cmd
}

func serve(ctx context.Context, params config.VaultParameters) error {
	m := metrics.New()
	recorder := events.NewRecorder(params.EventHistorySize)
	sinks := events.Multi{recorder, m}

	var (
		store   monitor.Store
		history web.History
		dbCheck func(context.Context) error
	)
	if config.DatabaseEnabled() {
		if err := state.InitDB(databaseConfig()); err != nil {
			return fmt.Errorf("failed to initialize database: %w", err)
		}
		defer state.CloseDB()
		if err := state.EnsureSchema(ctx); err != nil {
			return fmt.Errorf("failed to ensure database schema: %w", err)
		}
		sinks = append(sinks, state.NewEventStore(params.EventWriteTimeout))
		store = monitor.StateStore{}
		history = web.DBHistory{}
		dbCheck = state.TestDBConnection
	} else {
		log.Warn().Msg("DB_HOST not set; events and snapshots are kept in memory only")
	}

	env, err := newEnvironment(ctx, environmentConfig{
		Owner:          config.VaultOwner,
		AssetDenom:     config.AssetDenom,
		AssetDecimals:  config.AssetDecimals,
		VaultName:      config.VaultName,
		VaultSymbol:    config.VaultSymbol,
		OraclePrice:    config.OraclePrice,
		OracleDecimals: config.OracleDecimals,
		SeedDeposit:    params.SeedDeposit,
		Sink:           sinks,
	})
	if err != nil {
		return fmt.Errorf("failed to build vault environment: %w", err)
	}
	log.Info().
		Str("vault", env.vault.Address().String()).
		Str("asset", env.vault.Asset()).
		Str("owner", env.vault.Owner().String()).
		Msg("Vault ready")

	if config.DatabaseEnabled() {
		if err := state.SaveVaultRecords(ctx, vaultRecords(env)); err != nil {
			return err
		}
	}

	rebalance := rebalanceParams(params)
	monCfg := monitor.Config{
		Vaults:      env.factory,
		Store:       store,
		Observer:    m,
		HistorySize: params.SnapshotHistorySize,
	}
	if params.AutoRebalance {
		monCfg.Rebalance = &rebalance
	}
	mon, err := monitor.New(monCfg)
	if err != nil {
		return err
	}
	if history == nil {
		history = web.MemoryHistory{Events: recorder, Snapshots: mon}
	}

	webServer, err := web.NewWebServer(web.Options{
		Port:        config.WebPort,
		Vault:       env.vault,
		History:     history,
		Metrics:     m.Handler(),
		Middleware:  []mux.MiddlewareFunc{m.Middleware},
		HealthCheck: dbCheck,
		Rebalance:   &rebalance,
	})
	if err != nil {
		return err
	}
	go func() {
		log.Info().Str("port", config.WebPort).Str("url", "http://localhost:"+config.WebPort).Msg("Starting vault API")
		if err := webServer.Start(); err != nil {
			log.Error().Err(err).Msg("Web server failed")
		}
	}()

	reporter, err := web.NewHealthReporter(env.vault, dbCheck)
	if err != nil {
		return err
	}
	listener, err := net.Listen("tcp", ":"+config.GRPCPort)
	if err != nil {
		return fmt.Errorf("failed to listen on gRPC port %s: %w", config.GRPCPort, err)
	}
	go func() {
		if err := reporter.Serve(listener); err != nil {
			log.Error().Err(err).Msg("gRPC health server failed")
		}
	}()
	go refreshHealth(ctx, reporter)

	mon.RunLoop(ctx, config.SnapshotInterval)

	log.Info().Msg("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), params.ShutdownTimeout)
	defer cancel()
	reporter.Stop()
	return webServer.Shutdown(shutdownCtx)
}

func refreshHealth(ctx context.Context, reporter *web.HealthReporter) {
	ticker := time.NewTicker(healthRefreshInterval)
	defer ticker.Stop()

	reporter.Refresh(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reporter.Refresh(ctx)
		}
	}
}

func rebalanceParams(params config.VaultParameters) planner.Params {
	return planner.Params{
		ThresholdBps:   params.RebalanceThresholdBps,
		MaxWithdrawBps: params.RebalanceMaxWithdrawBps,
	}
}

func vaultRecords(env *environment) []state.VaultRecord {
	vaults := env.factory.Vaults()
	records := make([]state.VaultRecord, 0, len(vaults))
	for _, v := range vaults {
		records = append(records, state.VaultRecord{
			Vault:  v.Address().String(),
			Owner:  v.Owner().String(),
			Asset:  v.Asset(),
			Name:   v.Name(),
			Symbol: v.Symbol(),
		})
	}
	return records
}
