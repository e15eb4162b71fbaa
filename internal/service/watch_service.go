package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"dex_watch/internal/domain"
	"dex_watch/internal/watch"
)

// WatchService is the settings surface over the shared stores. It never talks
// to the refresh scheduler; the scheduler reacts to the store change events.
type WatchService struct {
	list   *watch.WatchList
	cache  *watch.QuoteCache
	flag   *watch.WidgetFlag
	source domain.QuoteSource

	// optional icon cache
	icons  domain.IconStore
	assets domain.AssetStore

	now func() time.Time
}

// NewWatchService creates a new WatchService instance. icons and assets may
// be nil, in which case icons are not cached.
func NewWatchService(list *watch.WatchList, cache *watch.QuoteCache, flag *watch.WidgetFlag,
	source domain.QuoteSource, icons domain.IconStore, assets domain.AssetStore) *WatchService {
	return &WatchService{
		list:   list,
		cache:  cache,
		flag:   flag,
		source: source,
		icons:  icons,
		assets: assets,
		now:    time.Now,
	}
}

// List returns the watched items in order.
func (s *WatchService) List(ctx context.Context) ([]domain.Item, error) {
	return s.list.List(ctx)
}

// AddItem resolves id against the quote source and appends it. Duplicate and
// capacity violations are reported before any network call; the store checks
// them again atomically.
func (s *WatchService) AddItem(ctx context.Context, raw string) (domain.Item, error) {
	address := strings.TrimSpace(raw)
	id := domain.CanonicalID(address)
	if id == "" {
		return domain.Item{}, domain.ErrEmptyID
	}

	items, err := s.list.List(ctx)
	if err != nil {
		return domain.Item{}, err
	}
	if domain.IndexOf(items, id) >= 0 {
		return domain.Item{}, fmt.Errorf("add %s: %w", id, domain.ErrDuplicate)
	}
	if len(items) >= domain.MaxItems {
		return domain.Item{}, fmt.Errorf("add %s: %w", id, domain.ErrCapacityExceeded)
	}

	meta, err := s.source.ResolveMeta(ctx, address)
	if err != nil {
		return domain.Item{}, err
	}

	item := domain.NewItem(address, meta)
	if err := s.list.Add(ctx, item); err != nil {
		return domain.Item{}, err
	}
	slog.Info("Item added", slog.String("id", item.ID), slog.String("symbol", item.Symbol))

	s.cacheIcon(item)
	return item, nil
}

// RemoveItem drops id from the watch-list. Removing an absent id succeeds.
func (s *WatchService) RemoveItem(ctx context.Context, id string) error {
	id = domain.CanonicalID(id)
	if id == "" {
		return domain.ErrEmptyID
	}
	if err := s.list.Remove(ctx, id); err != nil {
		return err
	}
	s.dropIcon(id)
	return nil
}

// ReplaceItems overwrites the watch-list. Items are de-duplicated; more than
// MaxItems fails with domain.ErrCapacityExceeded.
func (s *WatchService) ReplaceItems(ctx context.Context, items []domain.Item) ([]domain.Item, error) {
	before, err := s.list.List(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.list.Replace(ctx, items); err != nil {
		return nil, err
	}
	after, err := s.list.List(ctx)
	if err != nil {
		return nil, err
	}

	for _, it := range before {
		if domain.IndexOf(after, it.ID) < 0 {
			s.dropIcon(it.ID)
		}
	}
	for _, it := range after {
		if domain.IndexOf(before, it.ID) < 0 {
			s.cacheIcon(it)
		}
	}
	return after, nil
}

// Quotes returns the current quote cache.
func (s *WatchService) Quotes(ctx context.Context) (domain.QuoteMap, error) {
	return s.cache.Get(ctx)
}

// Rows returns the overlay view of the current state.
func (s *WatchService) Rows(ctx context.Context) ([]domain.Row, error) {
	items, err := s.list.List(ctx)
	if err != nil {
		return nil, err
	}
	quotes, err := s.cache.Get(ctx)
	if err != nil {
		return nil, err
	}
	return domain.BuildRows(items, quotes, nil), nil
}

// WidgetEnabled reports the overlay flag.
func (s *WatchService) WidgetEnabled(ctx context.Context) (bool, error) {
	return s.flag.Enabled(ctx)
}

// SetWidgetEnabled writes the overlay flag.
func (s *WatchService) SetWidgetEnabled(ctx context.Context, enabled bool) error {
	if err := s.flag.SetEnabled(ctx, enabled); err != nil {
		return err
	}
	slog.Info("Widget flag changed", slog.Bool("enabled", enabled))
	return nil
}

// IconPath returns the cached icon file of id, or domain.ErrNotFound.
func (s *WatchService) IconPath(id string) (string, error) {
	id = domain.CanonicalID(id)
	if s.assets == nil {
		return "", domain.ErrNotFound
	}
	asset, err := s.assets.GetAsset(id)
	if err != nil {
		return "", err
	}
	if asset == nil || asset.IconPath == "" {
		return "", fmt.Errorf("icon %s: %w", id, domain.ErrNotFound)
	}
	return asset.IconPath, nil
}

// cacheIcon is best effort: a failed download leaves the item without a
// local icon.
func (s *WatchService) cacheIcon(item domain.Item) {
	if s.icons == nil || s.assets == nil || item.Icon == "" {
		return
	}
	path, err := s.icons.DownloadIcon(item.ID, item.Icon)
	if err != nil {
		slog.Warn("Icon download failed", slog.String("id", item.ID), slog.Any("error", err))
		return
	}
	asset := &domain.ItemAsset{
		ID:           item.ID,
		Symbol:       item.Symbol,
		IconURL:      item.Icon,
		IconPath:     path,
		LastSyncedAt: s.now(),
	}
	if err := s.assets.UpsertAsset(asset); err != nil {
		slog.Warn("Icon metadata save failed", slog.String("id", item.ID), slog.Any("error", err))
	}
}

func (s *WatchService) dropIcon(id string) {
	if s.icons == nil || s.assets == nil {
		return
	}
	if err := s.icons.RemoveIcon(id); err != nil {
		slog.Warn("Icon removal failed", slog.String("id", id), slog.Any("error", err))
	}
	if err := s.assets.DeleteAsset(id); err != nil {
		slog.Warn("Icon metadata delete failed", slog.String("id", id), slog.Any("error", err))
	}
}
