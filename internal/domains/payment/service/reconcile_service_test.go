package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"epay-gateway/internal/domains/payment/gateway/epay"
	"epay-gateway/internal/domains/payment/model"
)

var fixedNow = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestReconciler(store *MockOrderStore, gw *stubGateway, provider epay.ConfigProvider) *Reconciler {
	r := NewReconciler(store, gw, provider, nil, ReconcilerConfig{Workers: 2})
	r.now = func() time.Time { return fixedNow }
	return r
}

func candidate(tradeNo string, age time.Duration) model.ReconciliationCandidate {
	return model.ReconciliationCandidate{
		MerchantOrderID:  tradeNo,
		CreatedAt:        fixedNow.Add(-age),
		PaymentChannelID: 3,
	}
}

func TestReconciler_IsolatesFailingOrder(t *testing.T) {
	tests := []struct {
		name   string
		second func(ctx context.Context, tradeNo string) epay.QueryResult
	}{
		{
			name: "query error",
			second: func(ctx context.Context, tradeNo string) epay.QueryResult {
				return epay.QueryResult{Status: model.QueryError, MerchantOrderID: tradeNo, Err: errors.New("timeout")}
			},
		},
		{
			name: "panic",
			second: func(ctx context.Context, tradeNo string) epay.QueryResult {
				panic("unexpected nil body")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockOrderStore)
			orders := []model.ReconciliationCandidate{
				candidate("ORD1", time.Hour),
				candidate("ORD2", time.Hour),
				candidate("ORD3", time.Hour),
			}

			store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return([]int64{3}, nil)
			store.On("PendingOrders", mock.Anything, []int64{3}, fixedNow.Add(-model.ReconcileWindow)).Return(orders, nil)
			store.On("MarkPaid", mock.Anything, orders[0], "GW-ORD1").Return(nil).Once()
			store.On("MarkPaid", mock.Anything, orders[2], "GW-ORD3").Return(nil).Once()

			gw := &stubGateway{query: func(ctx context.Context, tradeNo string) epay.QueryResult {
				if tradeNo == "ORD2" {
					return tt.second(ctx, tradeNo)
				}
				return confirmed(tradeNo)
			}}

			report, err := newTestReconciler(store, gw, enabledProvider()).Run(context.Background())

			require.NoError(t, err)
			assert.Equal(t, 3, report.Scanned)
			assert.Equal(t, 2, report.Confirmed)
			assert.Equal(t, 1, report.Errors)
			assert.NotEmpty(t, report.CycleID)
			store.AssertExpectations(t)
			store.AssertNumberOfCalls(t, "MarkPaid", 2)
		})
	}
}

func TestReconciler_MarkPaidFailureDoesNotAbortCycle(t *testing.T) {
	store := new(MockOrderStore)
	orders := []model.ReconciliationCandidate{
		candidate("ORD1", time.Hour),
		candidate("ORD2", time.Hour),
		candidate("ORD3", time.Hour),
	}

	store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return([]int64{3}, nil)
	store.On("PendingOrders", mock.Anything, mock.Anything, mock.Anything).Return(orders, nil)
	store.On("MarkPaid", mock.Anything, orders[0], "GW-ORD1").Return(errors.New("connection reset"))
	store.On("MarkPaid", mock.Anything, orders[1], "GW-ORD2").Return(model.NewOrderNotPendingError("ORD2"))

	gw := &stubGateway{query: func(ctx context.Context, tradeNo string) epay.QueryResult {
		if tradeNo == "ORD3" {
			return notConfirmed(tradeNo)
		}
		return confirmed(tradeNo)
	}}

	report, err := newTestReconciler(store, gw, enabledProvider()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Confirmed)
	assert.Equal(t, 1, report.Errors)
	assert.Equal(t, 1, report.Skipped)
	assert.Equal(t, 1, report.NotConfirmed)
	store.AssertExpectations(t)
}

func TestReconciler_PreventsOverlap(t *testing.T) {
	store := new(MockOrderStore)
	store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return([]int64{3}, nil)
	store.On("PendingOrders", mock.Anything, mock.Anything, mock.Anything).
		Return([]model.ReconciliationCandidate{candidate("ORD1", time.Hour)}, nil)

	entered := make(chan struct{})
	release := make(chan struct{})
	gw := &stubGateway{query: func(ctx context.Context, tradeNo string) epay.QueryResult {
		close(entered)
		<-release
		return notConfirmed(tradeNo)
	}}

	r := newTestReconciler(store, gw, enabledProvider())

	var (
		wg       sync.WaitGroup
		firstErr error
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, firstErr = r.Run(context.Background())
	}()

	select {
	case <-entered:
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle never reached the gateway")
	}

	report, err := r.Run(context.Background())
	assert.Nil(t, report)
	assert.ErrorIs(t, err, model.ErrCycleInProgress)

	close(release)
	wg.Wait()
	require.NoError(t, firstErr)

	// Once the first cycle is done a new one may start.
	gw.query = func(ctx context.Context, tradeNo string) epay.QueryResult { return notConfirmed(tradeNo) }
	_, err = r.Run(context.Background())
	assert.NoError(t, err)
}

func TestReconciler_DistributedLockHeld(t *testing.T) {
	store := new(MockOrderStore)
	locker := new(MockLocker)
	locker.On("TryLock", mock.Anything, reconcileLockKey, mock.Anything).Return(nil, false, nil)

	r := NewReconciler(store, &stubGateway{}, enabledProvider(), locker, ReconcilerConfig{})

	_, err := r.Run(context.Background())

	assert.ErrorIs(t, err, model.ErrCycleInProgress)
	store.AssertNotCalled(t, "EnabledChannelIDs", mock.Anything, mock.Anything)
}

func TestReconciler_DistributedLockReleased(t *testing.T) {
	store := new(MockOrderStore)
	store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return([]int64{}, nil)

	released := false
	unlock := func(ctx context.Context) error {
		released = true
		return nil
	}
	locker := new(MockLocker)
	locker.On("TryLock", mock.Anything, reconcileLockKey, 5*time.Minute).Return(unlock, true, nil)

	r := NewReconciler(store, &stubGateway{}, enabledProvider(), locker, ReconcilerConfig{})

	_, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.True(t, released)
}

func TestReconciler_NoChannelsIsNoop(t *testing.T) {
	store := new(MockOrderStore)
	store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return([]int64{}, nil)

	gw := &stubGateway{query: func(ctx context.Context, tradeNo string) epay.QueryResult {
		t.Errorf("unexpected query for %s", tradeNo)
		return epay.QueryResult{}
	}}

	report, err := newTestReconciler(store, gw, enabledProvider()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, report.Channels)
	assert.Equal(t, 0, report.Scanned)
	store.AssertNotCalled(t, "PendingOrders", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_HiddenGatewayStillSettlesPaidOrders(t *testing.T) {
	store := new(MockOrderStore)
	order := candidate("ORD1", time.Hour)
	provider := enabledProvider()
	provider.settings[epay.SettingEnabled] = "0"

	store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return([]int64{3}, nil)
	store.On("PendingOrders", mock.Anything, []int64{3}, mock.Anything).
		Return([]model.ReconciliationCandidate{order}, nil)
	store.On("MarkPaid", mock.Anything, order, "GW-ORD1").Return(nil).Once()

	gw := &stubGateway{query: func(ctx context.Context, tradeNo string) epay.QueryResult {
		return confirmed(tradeNo)
	}}

	report, err := newTestReconciler(store, gw, provider).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Confirmed)
	store.AssertExpectations(t)
}

func TestReconciler_MissingGatewayURL(t *testing.T) {
	store := new(MockOrderStore)
	orders := []model.ReconciliationCandidate{
		candidate("ORD1", time.Hour),
		candidate("ORD2", time.Hour),
	}

	store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return([]int64{3}, nil)
	store.On("PendingOrders", mock.Anything, []int64{3}, mock.Anything).Return(orders, nil)

	gw := &stubGateway{query: func(ctx context.Context, tradeNo string) epay.QueryResult {
		t.Errorf("unexpected query for %s", tradeNo)
		return epay.QueryResult{}
	}}

	report, err := newTestReconciler(store, gw, stubProvider{settings: map[string]string{}}).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.Equal(t, 2, report.Errors)
	assert.Equal(t, 0, report.Confirmed)
	store.AssertNotCalled(t, "MarkPaid", mock.Anything, mock.Anything, mock.Anything)
}

func TestReconciler_WindowFilter(t *testing.T) {
	store := new(MockOrderStore)
	old := candidate("OLD", 25*time.Hour)
	recent := candidate("RECENT", 23*time.Hour)
	edge := candidate("EDGE", 24*time.Hour)

	store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return([]int64{3}, nil)
	store.On("PendingOrders", mock.Anything, []int64{3}, mock.MatchedBy(func(since time.Time) bool {
		return since.Equal(fixedNow.Add(-24 * time.Hour))
	})).Return([]model.ReconciliationCandidate{old, recent, edge}, nil)

	var (
		mu      sync.Mutex
		queried []string
	)
	gw := &stubGateway{query: func(ctx context.Context, tradeNo string) epay.QueryResult {
		mu.Lock()
		queried = append(queried, tradeNo)
		mu.Unlock()
		return notConfirmed(tradeNo)
	}}

	report, err := newTestReconciler(store, gw, enabledProvider()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Scanned)
	assert.ElementsMatch(t, []string{"RECENT", "EDGE"}, queried)
	store.AssertExpectations(t)
}

func TestReconciler_DeduplicatesCandidates(t *testing.T) {
	store := new(MockOrderStore)
	dup := candidate("ORD1", time.Hour)

	store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return([]int64{3, 4}, nil)
	store.On("PendingOrders", mock.Anything, []int64{3, 4}, mock.Anything).
		Return([]model.ReconciliationCandidate{dup, dup}, nil)
	store.On("MarkPaid", mock.Anything, dup, "GW-ORD1").Return(nil).Once()

	gw := &stubGateway{query: func(ctx context.Context, tradeNo string) epay.QueryResult {
		return confirmed(tradeNo)
	}}

	report, err := newTestReconciler(store, gw, enabledProvider()).Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, report.Channels)
	assert.Equal(t, 1, report.Scanned)
	assert.Equal(t, 1, report.Confirmed)
	store.AssertNumberOfCalls(t, "MarkPaid", 1)
}

func TestReconciler_CancelledContextSkipsDispatch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	store := new(MockOrderStore)
	store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return([]int64{3}, nil)
	// Shutdown arrives right after the order list has been read.
	store.On("PendingOrders", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { cancel() }).
		Return([]model.ReconciliationCandidate{
			candidate("ORD1", time.Hour),
			candidate("ORD2", time.Hour),
		}, nil)

	gw := &stubGateway{query: func(ctx context.Context, tradeNo string) epay.QueryResult {
		t.Errorf("unexpected query for %s", tradeNo)
		return epay.QueryResult{}
	}}
	r := newTestReconciler(store, gw, enabledProvider())

	report, err := r.Run(ctx)

	require.NoError(t, err)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, 0, report.Confirmed+report.NotConfirmed+report.Errors)
}

func TestReconciler_StoreErrors(t *testing.T) {
	t.Run("channels", func(t *testing.T) {
		store := new(MockOrderStore)
		store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return(nil, errors.New("db down"))

		_, err := newTestReconciler(store, &stubGateway{}, enabledProvider()).Run(context.Background())
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("pending orders", func(t *testing.T) {
		store := new(MockOrderStore)
		store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return([]int64{3}, nil)
		store.On("PendingOrders", mock.Anything, mock.Anything, mock.Anything).Return(nil, errors.New("db down"))

		_, err := newTestReconciler(store, &stubGateway{}, enabledProvider()).Run(context.Background())
		assert.ErrorContains(t, err, "db down")
	})

	t.Run("provider", func(t *testing.T) {
		store := new(MockOrderStore)
		provider := stubProvider{err: errors.New("config unavailable")}

		_, err := newTestReconciler(store, &stubGateway{}, provider).Run(context.Background())
		assert.ErrorContains(t, err, "config unavailable")
	})
}

func TestReconciler_CycleCeiling(t *testing.T) {
	r := NewReconciler(nil, nil, nil, nil, ReconcilerConfig{Workers: 4, QueryTimeout: 10 * time.Second, CycleSlack: time.Second})

	assert.Equal(t, 11*time.Second, r.cycleCeiling(1))
	assert.Equal(t, 11*time.Second, r.cycleCeiling(4))
	assert.Equal(t, 21*time.Second, r.cycleCeiling(5))
}

// fakeScheduler records the registration and lets the test fire ticks.
type fakeScheduler struct {
	interval  time.Duration
	exclusive bool
	task      func(context.Context)
}

func (s *fakeScheduler) RunPeriodic(ctx context.Context, interval time.Duration, mutuallyExclusive bool, task func(context.Context)) error {
	s.interval = interval
	s.exclusive = mutuallyExclusive
	s.task = task
	return nil
}

func TestReconciler_Schedule(t *testing.T) {
	store := new(MockOrderStore)
	store.On("EnabledChannelIDs", mock.Anything, model.GatewayCode).Return([]int64{}, nil)

	r := newTestReconciler(store, &stubGateway{}, enabledProvider())
	s := &fakeScheduler{}

	require.NoError(t, r.Schedule(context.Background(), s))
	assert.Equal(t, time.Minute, s.interval)
	assert.True(t, s.exclusive)
	require.NotNil(t, s.task)

	s.task(context.Background())
	store.AssertNumberOfCalls(t, "EnabledChannelIDs", 1)
}
