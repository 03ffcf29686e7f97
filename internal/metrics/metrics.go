// Package metrics exposes vault activity and valuation as Prometheus collectors.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/types"
)

const namespace = "uservault"

// USDDecimals is the fixed point precision of every USD figure.
const USDDecimals = 18

// Metrics owns a private registry so several instances can coexist in tests.
type Metrics struct {
	Registry *prometheus.Registry

	events        *prometheus.CounterVec
	httpInFlight  prometheus.Gauge
	httpRequests  *prometheus.CounterVec
	httpDuration  *prometheus.HistogramVec
	cycles        *prometheus.CounterVec
	cycleDuration prometheus.Histogram

	totalAssets     *prometheus.GaugeVec
	totalSupply     *prometheus.GaugeVec
	idleBalance     *prometheus.GaugeVec
	protocolBalance *prometheus.GaugeVec
	allocated       *prometheus.GaugeVec
	assetPriceUSD   *prometheus.GaugeVec
	totalValueUSD   *prometheus.GaugeVec
	sharePriceUSD   *prometheus.GaugeVec
	paused          *prometheus.GaugeVec
}

func vaultGauge(subsystem, name, help string, labels ...string) *prometheus.GaugeVec {
	return prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: subsystem,
		Name:      name,
		Help:      help,
	}, append([]string{"vault"}, labels...))
}

// New builds and registers every collector, including the process and Go runtime ones.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),

		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "vault",
			Name:      "events_total",
			Help:      "Committed vault events by type.",
		}, []string{"vault", "type"}),

		httpInFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "inflight_requests",
			Help:      "Current number of in-flight HTTP requests.",
		}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Duration of HTTP requests.",
			Buckets:   prometheus.ExponentialBuckets(0.005, 2, 10), // 5ms to ~5s
		}, []string{"method", "route"}),

		cycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycles_total",
			Help:      "Valuation cycles run by outcome.",
		}, []string{"success"}),
		cycleDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "monitor",
			Name:      "cycle_duration_seconds",
			Help:      "Duration of valuation cycles.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}),

		totalAssets:     vaultGauge("vault", "total_assets", "Idle plus deployed assets, in whole asset units."),
		totalSupply:     vaultGauge("vault", "total_supply", "Outstanding shares, in whole share units."),
		idleBalance:     vaultGauge("vault", "idle_balance", "Assets held by the vault itself, in whole asset units."),
		protocolBalance: vaultGauge("vault", "protocol_balance", "Assets deployed per protocol, in whole asset units.", "protocol"),
		allocated:       vaultGauge("vault", "allocated", "Sum of declared allocations, in whole asset units."),
		assetPriceUSD:   vaultGauge("valuation", "asset_price_usd", "Oracle price of one asset unit in USD."),
		totalValueUSD:   vaultGauge("valuation", "total_value_usd", "Vault total assets valued in USD."),
		sharePriceUSD:   vaultGauge("valuation", "share_price_usd", "USD value of one whole share."),
		paused:          vaultGauge("vault", "paused", "1 while the vault is paused."),
	}

	m.Registry.MustRegister(
		m.events,
		m.httpInFlight,
		m.httpRequests,
		m.httpDuration,
		m.cycles,
		m.cycleDuration,
		m.totalAssets,
		m.totalSupply,
		m.idleBalance,
		m.protocolBalance,
		m.allocated,
		m.assetPriceUSD,
		m.totalValueUSD,
		m.sharePriceUSD,
		m.paused,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
	return m
}

// Emit implements events.Sink by counting committed records.
func (m *Metrics) Emit(_ context.Context, record events.Record) {
	m.events.WithLabelValues(record.Vault, string(record.Type)).Inc()
}

// ObserveSnapshot publishes a valuation snapshot. assetDecimals scales asset figures
// and shareDecimals scales the supply.
func (m *Metrics) ObserveSnapshot(s types.ValuationSnapshot, assetDecimals, shareDecimals uint8) {
	m.totalAssets.WithLabelValues(s.Vault).Set(ToFloat(s.TotalAssets, assetDecimals))
	m.totalSupply.WithLabelValues(s.Vault).Set(ToFloat(s.TotalSupply, shareDecimals))
	m.idleBalance.WithLabelValues(s.Vault).Set(ToFloat(s.IdleBalance, assetDecimals))
	m.protocolBalance.WithLabelValues(s.Vault, string(types.ProtocolAave)).Set(ToFloat(s.AaveBalance, assetDecimals))
	m.protocolBalance.WithLabelValues(s.Vault, string(types.ProtocolCompound)).Set(ToFloat(s.CompoundBalance, assetDecimals))
	m.allocated.WithLabelValues(s.Vault).Set(ToFloat(s.TotalAllocated, assetDecimals))
	m.assetPriceUSD.WithLabelValues(s.Vault).Set(ToFloat(s.AssetPriceUSD, USDDecimals))
	m.totalValueUSD.WithLabelValues(s.Vault).Set(ToFloat(s.TotalValueUSD, USDDecimals))
	m.sharePriceUSD.WithLabelValues(s.Vault).Set(ToFloat(s.SharePriceUSD, USDDecimals))

	pausedValue := 0.0
	if s.Paused {
		pausedValue = 1
	}
	m.paused.WithLabelValues(s.Vault).Set(pausedValue)
}

// RecordCycle records the outcome of one monitor cycle.
func (m *Metrics) RecordCycle(success bool, duration time.Duration) {
	m.cycles.WithLabelValues(strconv.FormatBool(success)).Inc()
	m.cycleDuration.Observe(duration.Seconds())
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Middleware records request metrics labelled by the matched mux route template.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		start := time.Now()

		m.httpInFlight.Inc()
		defer m.httpInFlight.Dec()

		next.ServeHTTP(rec, r)

		route := routeTemplate(r)
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(rec.status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// ToFloat converts a base unit amount to whole units. Precision loss only affects
// exported gauges.
func ToFloat(amount sdkmath.Int, decimals uint8) float64 {
	return fixedpoint.New(amount, decimals).Decimal().InexactFloat64()
}

func routeTemplate(r *http.Request) string {
	if route := mux.CurrentRoute(r); route != nil {
		if tpl, err := route.GetPathTemplate(); err == nil {
			return tpl
		}
	}
	return "unmatched"
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}
