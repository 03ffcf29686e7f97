package web

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"runtime"
	"strconv"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/logger"
	"github.com/elys-network/uservault/internal/planner"
	"github.com/elys-network/uservault/internal/state"
	"github.com/elys-network/uservault/internal/types"
	"github.com/elys-network/uservault/internal/vault"
)

const (
	defaultLimit = 20
	maxLimit     = 100
)

// History serves persisted or in-memory activity of a vault.
type History interface {
	RecentEvents(ctx context.Context, vault string, limit int) ([]state.StoredEvent, error)
	RecentSnapshots(ctx context.Context, vault string, limit int) ([]types.ValuationSnapshot, error)
}

// Options configures a WebServer. Vault is required.
type Options struct {
	Port        string
	Vault       *vault.Vault
	History     History
	Metrics     http.Handler                    // served at /metrics when set
	Middleware  []mux.MiddlewareFunc            // applied after CORS and logging
	HealthCheck func(ctx context.Context) error // database probe, optional
	Rebalance   *planner.Params                 // defaults to planner.DefaultParams
}

// WebServer handles HTTP requests for vault data
type WebServer struct {
	router  *mux.Router
	port    string
	log     zerolog.Logger
	vault   *vault.Vault
	history History
	health  func(ctx context.Context) error
	params  planner.Params
	server  *http.Server
	started time.Time
}

// NewWebServer creates a new web server instance
func NewWebServer(opts Options) (*WebServer, error) {
	if opts.Vault == nil {
		return nil, errors.New("web server requires a vault")
	}
	port := opts.Port
	if port == "" {
		port = "8080"
	}

	ws := &WebServer{
		router:  mux.NewRouter(),
		port:    port,
		log:     logger.GetForComponent("web_server"),
		vault:   opts.Vault,
		history: opts.History,
		health:  opts.HealthCheck,
		params:  planner.DefaultParams,
		started: time.Now(),
	}
	if opts.Rebalance != nil {
		ws.params = *opts.Rebalance
	}
	ws.setupRoutes(opts.Metrics, opts.Middleware)
	ws.server = &http.Server{
		Addr:         ":" + port,
		Handler:      ws.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return ws, nil
}

// Handler exposes the router, mainly for tests.
func (ws *WebServer) Handler() http.Handler {
	return ws.router
}

// setupRoutes configures all HTTP routes
func (ws *WebServer) setupRoutes(metrics http.Handler, middleware []mux.MiddlewareFunc) {
	ws.router.HandleFunc("/health", ws.handleHealth).Methods("GET")
	if metrics != nil {
		ws.router.Handle("/metrics", metrics).Methods("GET")
	}

	api := ws.router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/health", ws.handleHealth).Methods("GET")
	api.HandleFunc("/vault/summary", ws.handleGetVaultSummary).Methods("GET")
	api.HandleFunc("/vault/accounts/{address}", ws.handleGetAccount).Methods("GET")
	api.HandleFunc("/vault/preview/{op}", ws.handlePreview).Methods("GET")
	api.HandleFunc("/allocations", ws.handleGetAllocations).Methods("GET")
	api.HandleFunc("/allocations/plan", ws.handleGetRebalancePlan).Methods("GET")
	api.HandleFunc("/vault/activity", ws.handleGetActivity).Methods("GET")
	api.HandleFunc("/vaults", ws.handleGetVaults).Methods("GET")
	api.HandleFunc("/events", ws.handleGetEvents).Methods("GET")
	api.HandleFunc("/snapshots", ws.handleGetSnapshots).Methods("GET")

	ws.router.Use(ws.corsMiddleware)
	ws.router.Use(ws.loggingMiddleware)
	for _, mw := range middleware {
		ws.router.Use(mw)
	}
}

// Start starts the web server and blocks until it stops.
func (ws *WebServer) Start() error {
	ws.log.Info().Str("port", ws.port).Msg("Starting web server")
	if err := ws.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (ws *WebServer) Shutdown(ctx context.Context) error {
	return ws.server.Shutdown(ctx)
}

// handleHealth reports process, database and oracle status
func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	hasErrors := false
	dbStatus := "disabled"
	if ws.health != nil {
		dbStatus = "ok"
		if err := ws.health(r.Context()); err != nil {
			ws.log.Warn().Err(err).Msg("Database health check failed")
			dbStatus = "unreachable"
			hasErrors = true
		}
	}

	oracleStatus := "ok"
	if _, err := ws.vault.GetAssetPriceUSD(r.Context()); err != nil {
		oracleStatus = string(types.CategoryOf(err))
		hasErrors = true
	}

	overallStatus := "OK"
	statusCode := http.StatusOK
	if hasErrors {
		overallStatus = "DEGRADED"
		statusCode = http.StatusServiceUnavailable
	}

	ws.writeJSONResponse(w, statusCode, map[string]interface{}{
		"status":    overallStatus,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
		"system": map[string]interface{}{
			"version":          runtime.Version(),
			"goroutines_count": runtime.NumGoroutine(),
			"alloc_bytes":      memStats.Alloc,
			"gc_cycles":        memStats.NumGC,
			"uptime_seconds":   int64(time.Since(ws.started).Seconds()),
		},
		"vault": map[string]interface{}{
			"address":  ws.vault.Address().String(),
			"paused":   ws.vault.IsPaused(),
			"database": dbStatus,
			"oracle":   oracleStatus,
		},
	})
}

// handleGetVaultSummary returns the live accounting and valuation of the vault
func (ws *WebServer) handleGetVaultSummary(w http.ResponseWriter, r *http.Request) {
	snapshot, err := ws.vault.Snapshot(r.Context())
	if err != nil {
		ws.writeVaultError(w, err, "Failed to value vault")
		return
	}

	decimals := ws.vault.Decimals()
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"address":          snapshot.Vault,
		"name":             ws.vault.Name(),
		"symbol":           ws.vault.Symbol(),
		"asset":            ws.vault.Asset(),
		"decimals":         decimals,
		"owner":            ws.vault.Owner().String(),
		"paused":           snapshot.Paused,
		"holders":          ws.vault.Holders(),
		"total_assets":     amountView(snapshot.TotalAssets, decimals),
		"total_supply":     amountView(snapshot.TotalSupply, decimals),
		"idle_balance":     amountView(snapshot.IdleBalance, decimals),
		"aave_balance":     amountView(snapshot.AaveBalance, decimals),
		"compound_balance": amountView(snapshot.CompoundBalance, decimals),
		"total_allocated":  amountView(snapshot.TotalAllocated, decimals),
		"asset_price_usd":  amountView(snapshot.AssetPriceUSD, fixedpoint.CanonicalDecimals),
		"total_value_usd":  amountView(snapshot.TotalValueUSD, fixedpoint.CanonicalDecimals),
		"share_price_usd":  amountView(snapshot.SharePriceUSD, fixedpoint.CanonicalDecimals),
		"timestamp":        snapshot.Timestamp,
	})
}

// handleGetAccount returns an account's shares and their current redemption value
func (ws *WebServer) handleGetAccount(w http.ResponseWriter, r *http.Request) {
	account, err := types.ParseAddress(mux.Vars(r)["address"])
	if err != nil {
		ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid account address")
		return
	}

	shares := ws.vault.BalanceOf(account)
	assets, err := ws.vault.ConvertToAssets(r.Context(), shares)
	if err != nil {
		ws.writeVaultError(w, err, "Failed to convert shares")
		return
	}
	maxWithdraw, err := ws.vault.MaxWithdraw(r.Context(), account)
	if err != nil {
		ws.writeVaultError(w, err, "Failed to compute max withdraw")
		return
	}

	decimals := ws.vault.Decimals()
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"address":      account.String(),
		"shares":       amountView(shares, decimals),
		"assets":       amountView(assets, decimals),
		"max_withdraw": amountView(maxWithdraw, decimals),
		"max_redeem":   amountView(ws.vault.MaxRedeem(account), decimals),
	})
}

// handlePreview quotes deposit, mint, withdraw or redeem for ?amount= in base units
func (ws *WebServer) handlePreview(w http.ResponseWriter, r *http.Request) {
	op := mux.Vars(r)["op"]
	amount, ok := sdkmath.NewIntFromString(r.URL.Query().Get("amount"))
	if !ok {
		ws.writeErrorResponse(w, http.StatusBadRequest, "amount must be an integer in base units")
		return
	}

	var (
		quote sdkmath.Int
		err   error
	)
	switch op {
	case "deposit":
		quote, err = ws.vault.PreviewDeposit(r.Context(), amount)
	case "mint":
		quote, err = ws.vault.PreviewMint(r.Context(), amount)
	case "withdraw":
		quote, err = ws.vault.PreviewWithdraw(r.Context(), amount)
	case "redeem":
		quote, err = ws.vault.PreviewRedeem(r.Context(), amount)
	default:
		ws.writeErrorResponse(w, http.StatusNotFound, "Unknown preview operation")
		return
	}
	if err != nil {
		ws.writeVaultError(w, err, "Preview failed")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"operation": op,
		"amount":    amountView(amount, ws.vault.Decimals()),
		"result":    amountView(quote, ws.vault.Decimals()),
	})
}

// handleGetAllocations returns declared allocations next to live protocol balances
func (ws *WebServer) handleGetAllocations(w http.ResponseWriter, r *http.Request) {
	aave, err := ws.vault.GetAaveBalance(r.Context())
	if err != nil {
		ws.writeVaultError(w, err, "Failed to read lending pool balance")
		return
	}
	compoundLive, err := ws.vault.CompoundLiveBalance(r.Context())
	if err != nil {
		ws.writeVaultError(w, err, "Failed to read money market balance")
		return
	}

	decimals := ws.vault.Decimals()
	entries := ws.vault.Allocations()
	allocations := make([]map[string]interface{}, 0, len(entries))
	for _, entry := range entries {
		allocations = append(allocations, map[string]interface{}{
			"protocol": entry.Protocol,
			"amount":   amountView(entry.Amount, decimals),
		})
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"allocations":     allocations,
		"total_allocated": amountView(ws.vault.GetTotalAllocated(), decimals),
		"deployed": map[string]interface{}{
			string(types.ProtocolAave):     amountView(aave, decimals),
			string(types.ProtocolCompound): amountView(ws.vault.GetCompoundBalance(), decimals),
		},
		"compound_live": amountView(compoundLive, decimals),
	})
}

// handleGetRebalancePlan previews the actions that would reconcile deployments with allocations
func (ws *WebServer) handleGetRebalancePlan(w http.ResponseWriter, r *http.Request) {
	in, err := planner.ReadInput(r.Context(), ws.vault)
	if err != nil {
		ws.writeVaultError(w, err, "Failed to read vault balances")
		return
	}
	plan, err := planner.GeneratePlan(in, ws.params)
	if err != nil {
		ws.writeVaultError(w, err, "Failed to generate rebalance plan")
		return
	}

	decimals := ws.vault.Decimals()
	actions := make([]map[string]interface{}, 0, len(plan.Withdrawals)+len(plan.Deposits))
	for _, action := range plan.Actions() {
		actions = append(actions, map[string]interface{}{
			"protocol": action.Protocol,
			"kind":     action.Kind,
			"amount":   amountView(action.Amount, decimals),
		})
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"actions":          actions,
		"balanced":         plan.Empty(),
		"idle":             amountView(in.Idle, decimals),
		"threshold_bps":    ws.params.ThresholdBps,
		"max_withdraw_bps": ws.params.MaxWithdrawBps,
	})
}

func (ws *WebServer) archive(w http.ResponseWriter) (Archive, bool) {
	archive, ok := ws.history.(Archive)
	if !ok {
		ws.writeErrorResponse(w, http.StatusNotImplemented, "Persistent history is not enabled")
	}
	return archive, ok
}

// handleGetActivity returns persisted event counts and snapshot stats of the vault
func (ws *WebServer) handleGetActivity(w http.ResponseWriter, r *http.Request) {
	archive, ok := ws.archive(w)
	if !ok {
		return
	}
	activity, err := archive.Activity(r.Context(), ws.vault.Address().String())
	if err != nil {
		ws.log.Error().Err(err).Msg("Failed to get vault activity")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve vault activity")
		return
	}
	ws.writeJSONResponse(w, http.StatusOK, activity)
}

// handleGetVaults lists registered vaults, optionally filtered by ?owner=
func (ws *WebServer) handleGetVaults(w http.ResponseWriter, r *http.Request) {
	archive, ok := ws.archive(w)
	if !ok {
		return
	}
	owner := r.URL.Query().Get("owner")
	if owner != "" {
		if _, err := types.ParseAddress(owner); err != nil {
			ws.writeErrorResponse(w, http.StatusBadRequest, "Invalid owner address")
			return
		}
	}
	records, err := archive.Vaults(r.Context(), owner)
	if err != nil {
		ws.log.Error().Err(err).Msg("Failed to list vaults")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve vaults")
		return
	}
	if records == nil {
		records = []state.VaultRecord{}
	}
	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"vaults": records,
		"count":  len(records),
	})
}

// handleGetEvents returns recent vault events
func (ws *WebServer) handleGetEvents(w http.ResponseWriter, r *http.Request) {
	if ws.history == nil {
		ws.writeErrorResponse(w, http.StatusNotImplemented, "History is not available")
		return
	}
	limit := parseLimit(r)
	records, err := ws.history.RecentEvents(r.Context(), ws.vault.Address().String(), limit)
	if err != nil {
		ws.log.Error().Err(err).Msg("Failed to get recent events")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve events")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"events": records,
		"count":  len(records),
		"limit":  limit,
	})
}

// handleGetSnapshots returns recent valuation snapshots
func (ws *WebServer) handleGetSnapshots(w http.ResponseWriter, r *http.Request) {
	if ws.history == nil {
		ws.writeErrorResponse(w, http.StatusNotImplemented, "History is not available")
		return
	}
	limit := parseLimit(r)
	snapshots, err := ws.history.RecentSnapshots(r.Context(), ws.vault.Address().String(), limit)
	if err != nil {
		ws.log.Error().Err(err).Msg("Failed to get recent snapshots")
		ws.writeErrorResponse(w, http.StatusInternalServerError, "Failed to retrieve snapshots")
		return
	}

	ws.writeJSONResponse(w, http.StatusOK, map[string]interface{}{
		"snapshots": snapshots,
		"count":     len(snapshots),
		"limit":     limit,
	})
}

func parseLimit(r *http.Request) int {
	limit := defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		if parsedLimit, err := strconv.Atoi(limitStr); err == nil && parsedLimit > 0 && parsedLimit <= maxLimit {
			limit = parsedLimit
		}
	}
	return limit
}

// amountView renders a base unit amount both raw and in human units.
func amountView(amount sdkmath.Int, decimals uint8) map[string]string {
	value := fixedpoint.New(amount, decimals)
	return map[string]string{
		"raw":     value.Amount.String(),
		"display": value.String(),
	}
}

// statusFor maps the error taxonomy onto HTTP status codes.
func statusFor(err error) int {
	switch types.CategoryOf(err) {
	case types.CategoryValidation:
		return http.StatusBadRequest
	case types.CategoryAuthorization:
		return http.StatusForbidden
	case types.CategoryInvariant:
		return http.StatusConflict
	case types.CategoryExternalDependency:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (ws *WebServer) writeVaultError(w http.ResponseWriter, err error, message string) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		ws.log.Error().Err(err).Msg(message)
	}
	ws.writeErrorResponse(w, status, message+": "+err.Error())
}

// writeJSONResponse writes a JSON response
func (ws *WebServer) writeJSONResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		ws.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}

// writeErrorResponse writes an error response
func (ws *WebServer) writeErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	ws.writeJSONResponse(w, statusCode, map[string]interface{}{
		"error":     true,
		"message":   message,
		"timestamp": time.Now().UTC(),
	})
}

// corsMiddleware adds CORS headers
func (ws *WebServer) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs HTTP requests
func (ws *WebServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapper := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapper, r)

		ws.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("remote_addr", r.RemoteAddr).
			Int("status", wrapper.statusCode).
			Dur("duration", time.Since(start)).
			Msg("HTTP request")
	})
}

// responseWriterWrapper wraps http.ResponseWriter to capture status code
type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
}

func (w *responseWriterWrapper) WriteHeader(statusCode int) {
	w.statusCode = statusCode
	w.ResponseWriter.WriteHeader(statusCode)
}
