package engine

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"dex_watch/internal/domain"
	"dex_watch/internal/infra"
	"dex_watch/internal/watch"

	"golang.org/x/sync/errgroup"
)

// State is the refresh state of a Scheduler.
type State int32

const (
	StateIdle State = iota
	StateRefreshing
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRefreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

const (
	DefaultInterval    = 3 * time.Second
	DefaultConcurrency = 1
)

// Scheduler rebuilds the quote cache from the watch-list on a fixed cadence
// and on every watch-list change. At most one cycle runs at a time; triggers
// that arrive while a cycle is in flight are dropped, not queued.
type Scheduler struct {
	list   *watch.WatchList
	cache  *watch.QuoteCache
	source domain.QuoteSource

	interval    time.Duration
	concurrency int
	metrics     *infra.Metrics
	now         func() time.Time

	state atomic.Int32
	wg    sync.WaitGroup
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithInterval sets the tick period.
func WithInterval(d time.Duration) Option {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithConcurrency sets how many items are fetched at once. 1 is strictly serial.
func WithConcurrency(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// WithMetrics records cycles and dropped triggers.
func WithMetrics(m *infra.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// NewScheduler creates a scheduler that reads list, fetches from source and
// writes cache.
func NewScheduler(list *watch.WatchList, cache *watch.QuoteCache, source domain.QuoteSource, options ...Option) *Scheduler {
	s := &Scheduler{
		list:        list,
		cache:       cache,
		source:      source,
		interval:    DefaultInterval,
		concurrency: DefaultConcurrency,
		metrics:     infra.GlobalMetrics,
		now:         time.Now,
	}
	for _, option := range options {
		option(s)
	}
	return s
}

// State returns the current refresh state.
func (s *Scheduler) State() State {
	return State(s.state.Load())
}

// Run triggers a cycle immediately, then on every tick and watch-list change,
// until ctx is done. It waits for the in-flight cycle before returning.
func (s *Scheduler) Run(ctx context.Context) {
	feed := s.list.Subscribe()
	defer feed.Close()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	slog.Info("Refresh scheduler started", slog.Duration("interval", s.interval), slog.Int("concurrency", s.concurrency))
	defer s.wg.Wait()

	s.trigger(ctx, "start")
	for {
		select {
		case <-ctx.Done():
			slog.Info("Refresh scheduler stopped")
			return
		case <-ticker.C:
			s.trigger(ctx, "tick")
		case _, ok := <-feed.C():
			if !ok {
				return
			}
			s.trigger(ctx, "watchlist")
		}
	}
}

// RunOnce runs one cycle synchronously. It returns false without doing
// anything when a cycle is already in flight.
func (s *Scheduler) RunOnce(ctx context.Context) bool {
	if !s.begin("manual") {
		return false
	}
	s.cycle(ctx)
	return true
}

func (s *Scheduler) trigger(ctx context.Context, reason string) {
	if !s.begin(reason) {
		return
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.cycle(ctx)
	}()
}

func (s *Scheduler) begin(reason string) bool {
	if !s.state.CompareAndSwap(int32(StateIdle), int32(StateRefreshing)) {
		slog.Debug("Refresh trigger dropped", slog.String("reason", reason))
		if s.metrics != nil {
			s.metrics.RecordDropped()
		}
		return false
	}
	return true
}

// cycle must only be entered after a successful begin.
func (s *Scheduler) cycle(ctx context.Context) {
	defer s.state.Store(int32(StateIdle))
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Refresh cycle panic recovered", slog.Any("panic", r))
		}
	}()

	start := s.now()

	items, err := s.list.List(ctx)
	if err != nil {
		slog.Warn("Refresh cycle could not read watch-list", slog.Any("error", err))
		return
	}

	quotes := make(domain.QuoteMap, len(items))
	if len(items) > 0 {
		results := s.fetchAll(ctx, items)
		for i, item := range items {
			quotes[item.ID] = results[i]
		}
	}

	if ctx.Err() != nil {
		// shutting down; keep the last complete cache
		return
	}

	if err := s.cache.Replace(ctx, quotes); err != nil {
		slog.Warn("Refresh cycle could not write quote cache", slog.Any("error", err))
		return
	}

	if s.metrics != nil {
		s.metrics.RecordCycle(s.now().Sub(start).Nanoseconds(), len(items), quotes.StaleCount())
	}
	slog.Debug("Refresh cycle completed", slog.Int("items", len(items)), slog.Int("stale", quotes.StaleCount()))
}

// fetchAll returns one quote per item, in item order.
func (s *Scheduler) fetchAll(ctx context.Context, items []domain.Item) []domain.Quote {
	results := make([]domain.Quote, len(items))

	if s.concurrency <= 1 {
		for i, item := range items {
			results[i] = s.fetch(ctx, item.Address())
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, item := range items {
		g.Go(func() error {
			results[i] = s.fetch(ctx, item.Address())
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (s *Scheduler) fetch(ctx context.Context, id string) (q domain.Quote) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("Quote fetch panic recovered", slog.String("id", id), slog.Any("panic", r))
			q = domain.StaleQuote(s.now())
		}
	}()
	return s.source.FetchOne(ctx, id)
}
