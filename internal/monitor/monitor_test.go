package monitor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	sdkmath "cosmossdk.io/math"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elys-network/uservault/internal/factory"
	"github.com/elys-network/uservault/internal/fixedpoint"
	"github.com/elys-network/uservault/internal/oracle"
	"github.com/elys-network/uservault/internal/planner"
	"github.com/elys-network/uservault/internal/protocols"
	"github.com/elys-network/uservault/internal/token"
	"github.com/elys-network/uservault/internal/types"
	"github.com/elys-network/uservault/internal/vault"
)

var (
	admin = types.MustTestAddress("admin")
	alice = types.MustTestAddress("alice")
	bob   = types.MustTestAddress("bob")
)

type memStore struct {
	mu        sync.Mutex
	cycle     int
	saved     []types.ValuationSnapshot
	cycleErr  error
	saveErr   error
	nextSaved int64
}

func (s *memStore) NextCycleNumber(context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cycleErr != nil {
		return 0, s.cycleErr
	}
	s.cycle++
	return s.cycle, nil
}

func (s *memStore) SaveSnapshot(_ context.Context, snapshot types.ValuationSnapshot) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.saveErr != nil {
		return 0, s.saveErr
	}
	s.nextSaved++
	s.saved = append(s.saved, snapshot)
	return s.nextSaved, nil
}

type recordingObserver struct {
	mu        sync.Mutex
	snapshots int
	outcomes  []bool
}

func (o *recordingObserver) ObserveSnapshot(types.ValuationSnapshot, uint8, uint8) {
	o.mu.Lock()
	o.snapshots++
	o.mu.Unlock()
}

func (o *recordingObserver) RecordCycle(success bool, _ time.Duration) {
	o.mu.Lock()
	o.outcomes = append(o.outcomes, success)
	o.mu.Unlock()
}

type env struct {
	factory *factory.Factory
	feed    *oracle.StaticFeed
	asset   *token.Token
	first   *vault.Vault
	second  *vault.Vault
}

func setup(t *testing.T) *env {
	t.Helper()
	ctx := context.Background()

	f, err := factory.New(types.MustTestAddress("factory"), admin, nil)
	require.NoError(t, err)
	asset, err := token.New("uusdc", 6)
	require.NoError(t, err)
	feed := oracle.NewStaticFeed(sdkmath.NewInt(1_00000000), 8)
	require.NoError(t, f.SetAssetPriceFeed(admin, "uusdc", feed))

	_, err = f.RegisterUser(alice, "alice", "")
	require.NoError(t, err)
	_, err = f.RegisterUser(bob, "bob", "")
	require.NoError(t, err)

	first, err := f.CreateVault(ctx, alice, asset, "Alice USDC", "aUSDC")
	require.NoError(t, err)
	second, err := f.CreateVault(ctx, bob, asset, "Bob USDC", "bUSDC")
	require.NoError(t, err)

	require.NoError(t, asset.Mint(ctx, alice, sdkmath.NewInt(2_000_000)))
	require.NoError(t, asset.Approve(ctx, alice, first.Address(), fixedpoint.MaxUint256()))
	_, err = first.Deposit(ctx, alice, sdkmath.NewInt(2_000_000), alice)
	require.NoError(t, err)

	return &env{factory: f, feed: feed, asset: asset, first: first, second: second}
}

func TestNewValidatesConfig(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
	_, err = New(Config{Vaults: &factory.Factory{}, HistorySize: -1})
	assert.Error(t, err)
}

func TestRunCycleSnapshotsEveryVault(t *testing.T) {
	e := setup(t)
	store := &memStore{}
	observer := &recordingObserver{}
	m, err := New(Config{Vaults: e.factory, Store: store, Observer: observer})
	require.NoError(t, err)

	snapshots, err := m.RunCycle(context.Background())
	require.NoError(t, err)
	require.Len(t, snapshots, 2)

	first := snapshots[0]
	assert.Equal(t, e.first.Address().String(), first.Vault)
	assert.Equal(t, 1, first.CycleNumber)
	assert.NotEmpty(t, first.CycleID)
	assert.Equal(t, snapshots[1].CycleID, first.CycleID)
	assert.Equal(t, int64(1), first.SnapshotID)
	assert.Equal(t, "2000000", first.TotalAssets.String())
	assert.Equal(t, "2000000000000000000", first.TotalValueUSD.String())
	assert.Equal(t, "1000000000000000000", first.SharePriceUSD.String())

	assert.Len(t, store.saved, 2)
	assert.Equal(t, 2, observer.snapshots)
	assert.Equal(t, []bool{true}, observer.outcomes)

	_, err = m.RunCycle(context.Background())
	require.NoError(t, err)
	recent := m.Recent(e.first.Address().String(), 0)
	require.Len(t, recent, 2)
	assert.Equal(t, 2, recent[0].CycleNumber)
}

func TestRunCycleRebalancesTowardAllocations(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	require.NoError(t, e.factory.SetLendingPool(admin, protocols.NewMemLendingPool(types.MustTestAddress("pool"), e.asset)))
	require.NoError(t, e.first.SetProtocolAllocation(ctx, alice, types.ProtocolAave, sdkmath.NewInt(1_500_000)))

	m, err := New(Config{Vaults: e.factory, Rebalance: &planner.Params{ThresholdBps: 100}})
	require.NoError(t, err)

	snapshots, err := m.RunCycle(ctx)
	require.NoError(t, err)
	assert.True(t, snapshots[0].AaveBalance.IsZero())

	deployed, err := e.first.GetAaveBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1500000", deployed.String())
	idle, err := e.first.IdleBalance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "500000", idle.String())

	snapshots, err = m.RunCycle(ctx)
	require.NoError(t, err)
	assert.Equal(t, "1500000", snapshots[0].AaveBalance.String())
	assert.Equal(t, "2000000", snapshots[0].TotalAssets.String())
}

func TestRunCycleReportsRebalanceFailure(t *testing.T) {
	e := setup(t)
	ctx := context.Background()
	require.NoError(t, e.first.SetProtocolAllocation(ctx, alice, types.ProtocolCompound, sdkmath.NewInt(1_000_000)))

	observer := &recordingObserver{}
	m, err := New(Config{Vaults: e.factory, Observer: observer, Rebalance: &planner.DefaultParams})
	require.NoError(t, err)

	snapshots, err := m.RunCycle(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrProtocolAddressNotSet)
	assert.Len(t, snapshots, 2)
	assert.Equal(t, []bool{false}, observer.outcomes)
}

func TestRunCycleContinuesPastFailures(t *testing.T) {
	e := setup(t)
	observer := &recordingObserver{}
	m, err := New(Config{Vaults: e.factory, Store: &memStore{saveErr: errors.New("disk full")}, Observer: observer})
	require.NoError(t, err)

	e.feed.SetError(errors.New("feed offline"))
	snapshots, err := m.RunCycle(context.Background())
	require.Error(t, err)
	assert.Empty(t, snapshots)
	assert.ErrorIs(t, err, types.ErrExternalCall)

	e.feed.SetError(nil)
	snapshots, err = m.RunCycle(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	// unpersisted snapshots are still observed and kept in memory
	assert.Len(t, snapshots, 2)
	assert.Len(t, m.Recent("", 0), 2)
	assert.Equal(t, []bool{false, false}, observer.outcomes)
}

func TestCycleNumberFallsBackToLocalCounter(t *testing.T) {
	e := setup(t)
	m, err := New(Config{Vaults: e.factory, Store: &memStore{cycleErr: errors.New("db down")}})
	require.NoError(t, err)

	for want := 1; want <= 3; want++ {
		snapshots, err := m.RunCycle(context.Background())
		require.NoError(t, err)
		assert.Equal(t, want, snapshots[0].CycleNumber)
	}
}

func TestRecentIsBoundedAndNewestFirst(t *testing.T) {
	e := setup(t)
	m, err := New(Config{Vaults: e.factory, HistorySize: 3})
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		_, err := m.RunCycle(context.Background())
		require.NoError(t, err)
	}

	all := m.Recent("", 0)
	require.Len(t, all, 3)
	assert.Equal(t, 3, all[0].CycleNumber)
	assert.Equal(t, e.second.Address().String(), all[0].Vault)
	assert.Len(t, m.Recent("", 1), 1)
}

func TestRunLoopStopsOnCancel(t *testing.T) {
	e := setup(t)
	observer := &recordingObserver{}
	m, err := New(Config{Vaults: e.factory, Observer: observer})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.RunLoop(ctx, time.Hour)
		close(done)
	}()

	require.Eventually(t, func() bool {
		observer.mu.Lock()
		defer observer.mu.Unlock()
		return len(observer.outcomes) == 1
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunLoop did not return after cancellation")
	}
}
