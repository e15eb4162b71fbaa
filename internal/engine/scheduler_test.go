package engine

import (
	"context"
	"sync"
	"testing"
	"time"

	"dex_watch/internal/domain"
	"dex_watch/internal/infra"
	"dex_watch/internal/kvstore"
	"dex_watch/internal/mocks"
	"dex_watch/internal/watch"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type fixture struct {
	list    *watch.WatchList
	cache   *watch.QuoteCache
	source  *mocks.MockQuoteSource
	metrics *infra.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	return &fixture{
		list:    watch.NewWatchList(kvstore.New(kvstore.Sync, kvstore.NewMemoryBackend())),
		cache:   watch.NewQuoteCache(kvstore.New(kvstore.Local, kvstore.NewMemoryBackend())),
		source:  mocks.NewMockQuoteSource(ctrl),
		metrics: &infra.Metrics{},
	}
}

func (f *fixture) scheduler(options ...Option) *Scheduler {
	return NewScheduler(f.list, f.cache, f.source, append([]Option{WithMetrics(f.metrics)}, options...)...)
}

func (f *fixture) watch(t *testing.T, ids ...string) {
	t.Helper()
	for _, id := range ids {
		require.NoError(t, f.list.Add(context.Background(), domain.Item{ID: id, Symbol: id}))
	}
}

func priced(v string) domain.Quote {
	d := decimal.RequireFromString(v)
	return domain.NewQuote(&d, nil, time.Now())
}

func TestRunOnce_FailedItemIsStale(t *testing.T) {
	f := newFixture(t)
	f.watch(t, "a", "b")

	f.source.EXPECT().FetchOne(gomock.Any(), "a").Return(priced("1.5")).Times(1)
	f.source.EXPECT().FetchOne(gomock.Any(), "b").Return(domain.StaleQuote(time.Now())).Times(1)

	require.True(t, f.scheduler().RunOnce(context.Background()))

	quotes, err := f.cache.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	require.False(t, quotes["a"].Stale)
	require.True(t, quotes["a"].Price.Decimal.Equal(decimal.RequireFromString("1.5")))
	require.True(t, quotes["b"].Stale)
	require.False(t, quotes["b"].Price.Valid)

	snap := f.metrics.Snapshot()
	require.EqualValues(t, 1, snap.CyclesCompleted)
	require.EqualValues(t, 1, snap.StaleQuotes)
	require.EqualValues(t, 2, snap.WatchedItems)
}

func TestRunOnce_FetchesByPairAddress(t *testing.T) {
	f := newFixture(t)
	const address = "7qbRF6YsyGuLUVs6Y1q64bdVrfe4ZcUUz1JRdoVNUJnm"
	f.watch(t, address)

	f.source.EXPECT().FetchOne(gomock.Any(), address).Return(priced("0.5")).Times(1)

	require.True(t, f.scheduler().RunOnce(context.Background()))

	quotes, err := f.cache.Get(context.Background())
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.False(t, quotes[domain.CanonicalID(address)].Stale)
}

func TestRunOnce_RemovedItemDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.watch(t, "a", "b", "c")

	f.source.EXPECT().FetchOne(gomock.Any(), gomock.Any()).Return(priced("2")).AnyTimes()

	s := f.scheduler()
	require.True(t, s.RunOnce(ctx))
	quotes, err := f.cache.Get(ctx)
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	require.NoError(t, f.list.Remove(ctx, "b"))
	require.True(t, s.RunOnce(ctx))

	quotes, err = f.cache.Get(ctx)
	require.NoError(t, err)
	require.Len(t, quotes, 2)
	require.Contains(t, quotes, "a")
	require.Contains(t, quotes, "c")
	require.NotContains(t, quotes, "b")
}

func TestRunOnce_EmptyListWritesEmptyCache(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.cache.Replace(ctx, domain.QuoteMap{"old": priced("1")}))

	// no FetchOne expectation: the source must not be called
	s := f.scheduler()
	require.True(t, s.RunOnce(ctx))
	require.Equal(t, StateIdle, s.State())

	quotes, err := f.cache.Get(ctx)
	require.NoError(t, err)
	require.Empty(t, quotes)
}

func TestRunOnce_SecondTriggerDropped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.watch(t, "a")

	started := make(chan struct{})
	release := make(chan struct{})
	f.source.EXPECT().
		FetchOne(gomock.Any(), "a").
		DoAndReturn(func(context.Context, string) domain.Quote {
			close(started)
			<-release
			return priced("3")
		}).
		Times(1)

	s := f.scheduler()

	var wg sync.WaitGroup
	var first bool
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = s.RunOnce(ctx)
	}()

	<-started
	require.Equal(t, StateRefreshing, s.State())
	require.False(t, s.RunOnce(ctx), "second trigger must be dropped")
	require.EqualValues(t, 1, f.metrics.Snapshot().CyclesDropped)

	close(release)
	wg.Wait()

	require.True(t, first)
	require.Equal(t, StateIdle, s.State())

	quotes, err := f.cache.Get(ctx)
	require.NoError(t, err)
	require.Len(t, quotes, 1)
	require.False(t, quotes["a"].Stale)
}

func TestRunOnce_ConcurrentFetchSameResult(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.watch(t, "a", "b", "c")

	f.source.EXPECT().FetchOne(gomock.Any(), "a").Return(priced("1")).Times(1)
	f.source.EXPECT().FetchOne(gomock.Any(), "b").Return(priced("2")).Times(1)
	f.source.EXPECT().FetchOne(gomock.Any(), "c").Return(domain.StaleQuote(time.Now())).Times(1)

	require.True(t, f.scheduler(WithConcurrency(3)).RunOnce(ctx))

	quotes, err := f.cache.Get(ctx)
	require.NoError(t, err)
	require.Len(t, quotes, 3)
	require.True(t, quotes["a"].Price.Decimal.Equal(decimal.NewFromInt(1)))
	require.True(t, quotes["b"].Price.Decimal.Equal(decimal.NewFromInt(2)))
	require.True(t, quotes["c"].Stale)
}

func TestRunOnce_PanickingSourceIsStale(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.watch(t, "a", "b")

	f.source.EXPECT().FetchOne(gomock.Any(), "a").DoAndReturn(func(context.Context, string) domain.Quote {
		panic("boom")
	}).Times(1)
	f.source.EXPECT().FetchOne(gomock.Any(), "b").Return(priced("4")).Times(1)

	s := f.scheduler()
	require.True(t, s.RunOnce(ctx))
	require.Equal(t, StateIdle, s.State())

	quotes, err := f.cache.Get(ctx)
	require.NoError(t, err)
	require.True(t, quotes["a"].Stale)
	require.False(t, quotes["b"].Stale)
}

func TestRun_TriggersOnStartAndWatchListChange(t *testing.T) {
	f := newFixture(t)
	f.source.EXPECT().FetchOne(gomock.Any(), gomock.Any()).Return(priced("5")).AnyTimes()

	// migrate up front so the only watch-list event is the add below
	_, err := f.list.List(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	s := f.scheduler(WithInterval(time.Hour))

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	// the start cycle over an empty list finishes quickly
	require.Eventually(t, func() bool {
		return f.metrics.Snapshot().CyclesCompleted >= 1 && s.State() == StateIdle
	}, time.Second, 5*time.Millisecond)

	f.watch(t, "a")

	require.Eventually(t, func() bool {
		quotes, err := f.cache.Get(context.Background())
		return err == nil && len(quotes) == 1 && !quotes["a"].Stale
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_TicksRefresh(t *testing.T) {
	f := newFixture(t)
	f.watch(t, "a")
	f.source.EXPECT().FetchOne(gomock.Any(), "a").Return(priced("6")).MinTimes(3)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := f.scheduler(WithInterval(10 * time.Millisecond))

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Run(ctx)
	}()

	require.Eventually(t, func() bool {
		return f.metrics.Snapshot().CyclesCompleted >= 3
	}, 2*time.Second, 5*time.Millisecond)

	cancel()
	<-done
}

func TestState_String(t *testing.T) {
	require.Equal(t, "idle", StateIdle.String())
	require.Equal(t, "refreshing", StateRefreshing.String())
}
