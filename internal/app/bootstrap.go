package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"dex_watch/internal/domain"
	"dex_watch/internal/engine"
	"dex_watch/internal/infra"
	"dex_watch/internal/infra/dexscreener"
	"dex_watch/internal/infra/storage"
	"dex_watch/internal/interfaces/httpapi"
	"dex_watch/internal/kvstore"
	"dex_watch/internal/overlay"
	"dex_watch/internal/service"
	"dex_watch/internal/watch"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 5 * time.Second

// Bootstrap orchestrates the application startup sequence
type Bootstrap struct {
	ConfigPath string
	Config     *infra.Config

	Storage    *storage.Storage
	Local      *storage.LocalStore
	Downloader *infra.IconDownloader

	SyncStore  *kvstore.Store
	LocalStore *kvstore.Store

	WatchList *watch.WatchList
	Quotes    *watch.QuoteCache
	Flag      *watch.WidgetFlag

	Source    *dexscreener.Client
	Service   *service.WatchService
	Scheduler *engine.Scheduler
	Hub       *overlay.Hub
	API       *httpapi.Server
}

// NewBootstrap creates a new Bootstrap instance
func NewBootstrap(configPath string) *Bootstrap {
	return &Bootstrap{ConfigPath: configPath}
}

// Initialize performs core system initialization (config, logging, storage,
// migration) and wires the three contexts.
func (b *Bootstrap) Initialize(ctx context.Context) error {
	// 1. Load Config
	cfg, err := infra.LoadConfig(b.ConfigPath)
	if err != nil {
		return err // Let main handle the error
	}
	b.Config = cfg

	// 2. Setup Logger
	logger := infra.NewLogger(cfg)
	slog.SetDefault(logger)
	slog.Info("🚀 Bootstrapping DexWatch...", slog.String("version", cfg.App.Version))

	// 3. Initialize Storage
	store, err := storage.NewStorage(cfg.Storage.SyncPath)
	if err != nil {
		return err
	}
	b.Storage = store
	slog.Info("✅ Sync storage initialized")

	local, err := storage.NewLocalStore(cfg.Storage.LocalDir)
	if err != nil {
		return err
	}
	b.Local = local
	slog.Info("✅ Local storage initialized", slog.Bool("in_memory", cfg.Storage.LocalDir == ""))

	b.SyncStore = kvstore.New(kvstore.Sync, store.Namespace(kvstore.Sync))
	b.LocalStore = kvstore.New(kvstore.Local, local.Backend())

	b.WatchList = watch.NewWatchList(b.SyncStore)
	b.Quotes = watch.NewQuoteCache(b.LocalStore)
	b.Flag = watch.NewWidgetFlag(b.SyncStore)

	// 4. Schema migration
	migrated, err := watch.Migrate(ctx, b.SyncStore)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	if migrated {
		slog.Info("✅ Watch-list migrated", slog.Int("schema_version", watch.CurrentSchemaVersion))
	}

	// 5. Initialize Icon Downloader
	downloader, err := infra.NewIconDownloader(cfg.Storage.IconsDir)
	if err != nil {
		return err
	}
	b.Downloader = downloader
	slog.Info("✅ Icon downloader ready")

	// 6. Quote source, scheduler and surfaces
	api := cfg.API.DexScreener
	b.Source = dexscreener.NewClient(
		dexscreener.WithBaseURL(api.BaseURL),
		dexscreener.WithChain(api.Chain),
		dexscreener.WithHTTPClient(&http.Client{Timeout: time.Duration(api.TimeoutSec) * time.Second}),
		dexscreener.WithRateLimit(api.RequestsPerMinute),
		dexscreener.WithBreaker(api.Breaker.MaxFailures, time.Duration(api.Breaker.OpenTimeoutSec)*time.Second),
		dexscreener.WithMetrics(infra.GlobalMetrics),
	)

	b.Scheduler = engine.NewScheduler(b.WatchList, b.Quotes, b.Source,
		engine.WithInterval(time.Duration(cfg.Refresh.IntervalMS)*time.Millisecond),
		engine.WithConcurrency(cfg.Refresh.Concurrency),
		engine.WithMetrics(infra.GlobalMetrics),
	)

	b.Service = service.NewWatchService(b.WatchList, b.Quotes, b.Flag, b.Source, b.Downloader, b.Storage)
	b.Hub = overlay.NewHub(b.WatchList, b.Quotes, b.Flag, infra.GlobalMetrics)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		infra.NewMetricsCollector(infra.GlobalMetrics),
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	b.API = httpapi.NewServer(b.Service)
	b.API.Handle("GET /ws", b.Hub)
	b.API.Handle("GET /metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	return nil
}

// Run starts the poller and the settings/overlay listener and blocks until
// ctx is done or one of them fails.
func (b *Bootstrap) Run(ctx context.Context) error {
	srv := httpapi.NewHTTPServer(b.Config.Server.Addr, b.API.Handler())

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		b.Scheduler.Run(gctx)
		return nil
	})

	g.Go(func() error {
		slog.Info("✅ Settings API listening", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen %s: %w", srv.Addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		b.Hub.Close()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		b.SyncAssets(gctx)
		return nil
	})

	return g.Wait()
}

// SyncAssets re-downloads missing icons for the watched items in the
// background, e.g. after the icon directory was cleared.
func (b *Bootstrap) SyncAssets(ctx context.Context) {
	items, err := b.WatchList.List(ctx)
	if err != nil {
		slog.Warn("Asset sync could not read watch-list", slog.Any("error", err))
		return
	}

	var g errgroup.Group
	g.SetLimit(domain.MaxItems)
	for _, item := range items {
		if item.Icon == "" {
			continue
		}
		g.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			if existing, _ := b.Storage.GetAsset(item.ID); existing != nil && fileExists(existing.IconPath) {
				return nil
			}

			path, err := b.Downloader.DownloadIcon(item.ID, item.Icon)
			if err != nil {
				slog.Warn("Failed to download icon", slog.String("id", item.ID), slog.Any("error", err))
				return nil
			}
			asset := &domain.ItemAsset{
				ID:           item.ID,
				Symbol:       item.Symbol,
				IconURL:      item.Icon,
				IconPath:     path,
				LastSyncedAt: time.Now(),
			}
			if err := b.Storage.UpsertAsset(asset); err != nil {
				slog.Error("Failed to upsert asset", slog.String("id", item.ID), slog.Any("error", err))
			}
			return nil
		})
	}
	_ = g.Wait()
	slog.Info("✨ Asset synchronization completed", slog.Int("items", len(items)))
}

// Close releases storage.
func (b *Bootstrap) Close() {
	if b.Local != nil {
		if err := b.Local.Close(); err != nil {
			slog.Warn("Local storage close failed", slog.Any("error", err))
		}
	}
	if b.Storage != nil {
		if err := b.Storage.Close(); err != nil {
			slog.Warn("Sync storage close failed", slog.Any("error", err))
		}
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	_, err := os.Stat(path)
	return err == nil
}
