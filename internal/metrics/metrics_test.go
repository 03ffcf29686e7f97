package metrics

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/uservault/internal/events"
	"github.com/elys-network/uservault/internal/types"
)

func TestToFloat(t *testing.T) {
	assert.Equal(t, 1.5, ToFloat(sdkmath.NewInt(1_500_000), 6))
	assert.Equal(t, 0.0, ToFloat(sdkmath.Int{}, 6))
	assert.Equal(t, 2.0, ToFloat(sdkmath.NewIntWithDecimal(2, 18), 18))
	assert.Equal(t, 42.0, ToFloat(sdkmath.NewInt(42), 0))
}

func TestEmitCountsEventsPerVaultAndType(t *testing.T) {
	m := New()
	ctx := context.Background()

	m.Emit(ctx, events.NewRecord("v1", &events.DepositData{}))
	m.Emit(ctx, events.NewRecord("v1", &events.DepositData{}))
	m.Emit(ctx, events.NewRecord("v2", &events.PausedData{}))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.events.WithLabelValues("v1", "Deposit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events.WithLabelValues("v2", "Paused")))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.events.WithLabelValues("v2", "Deposit")))
}

func TestObserveSnapshot(t *testing.T) {
	m := New()
	m.ObserveSnapshot(types.ValuationSnapshot{
		Vault:           "v1",
		TotalAssets:     sdkmath.NewInt(2_500_000),
		TotalSupply:     sdkmath.NewInt(2_000_000),
		IdleBalance:     sdkmath.NewInt(1_000_000),
		AaveBalance:     sdkmath.NewInt(1_000_000),
		CompoundBalance: sdkmath.NewInt(500_000),
		TotalAllocated:  sdkmath.NewInt(1_500_000),
		AssetPriceUSD:   sdkmath.NewIntWithDecimal(1, 18),
		TotalValueUSD:   sdkmath.NewIntWithDecimal(25, 17),
		SharePriceUSD:   sdkmath.NewIntWithDecimal(125, 16),
		Paused:          true,
	}, 6, 6)

	assert.Equal(t, 2.5, testutil.ToFloat64(m.totalAssets.WithLabelValues("v1")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.totalSupply.WithLabelValues("v1")))
	assert.Equal(t, 0.5, testutil.ToFloat64(m.protocolBalance.WithLabelValues("v1", "Compound")))
	assert.Equal(t, 1.25, testutil.ToFloat64(m.sharePriceUSD.WithLabelValues("v1")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.paused.WithLabelValues("v1")))
}

func TestRecordCycle(t *testing.T) {
	m := New()
	m.RecordCycle(true, 10*time.Millisecond)
	m.RecordCycle(false, time.Millisecond)
	m.RecordCycle(true, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.cycles.WithLabelValues("true")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.cycles.WithLabelValues("false")))
}

func TestMiddlewareLabelsRouteTemplate(t *testing.T) {
	m := New()
	router := mux.NewRouter()
	router.Use(m.Middleware)
	router.HandleFunc("/api/vault/accounts/{address}", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}).Methods(http.MethodGet)
	router.Handle("/metrics", m.Handler())

	srv := httptest.NewServer(router)
	defer srv.Close()

	for _, addr := range []string{"a", "b"} {
		resp, err := http.Get(srv.URL + "/api/vault/accounts/" + addr)
		require.NoError(t, err)
		resp.Body.Close()
	}

	assert.Equal(t, 2.0, testutil.ToFloat64(m.httpRequests.WithLabelValues("GET", "/api/vault/accounts/{address}", "404")))

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), "uservault_http_requests_total")
}
