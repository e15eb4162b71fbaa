// Package watch holds the three shared stores: the watch-list and widget flag
// in the sync namespace, and the quote cache in the local namespace.
package watch

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"dex_watch/internal/domain"
	"dex_watch/internal/kvstore"
)

const (
	KeyWatchList     = "watchlist"
	KeySchemaVersion = "schemaVersion"
	KeyWidgetEnabled = "widgetEnabled"
	KeyQuotes        = "quotes"
)

// WatchList is the authoritative, capped, deduplicated list of watched items.
type WatchList struct {
	store *kvstore.Store

	mu       sync.Mutex
	migrated bool
}

// NewWatchList creates a WatchList over the sync namespace store.
func NewWatchList(store *kvstore.Store) *WatchList {
	return &WatchList{store: store}
}

// List returns the current items, running the migration check first.
func (w *WatchList) List(ctx context.Context) ([]domain.Item, error) {
	if err := w.ensureMigrated(ctx); err != nil {
		return nil, err
	}
	raw, err := w.store.Get(ctx, KeyWatchList)
	if err != nil {
		return nil, err
	}
	items, _ := decodeItems(raw[KeyWatchList])
	return items, nil
}

// Add appends item. It fails with domain.ErrDuplicate when the canonical id is
// already present and with domain.ErrCapacityExceeded when the list is full.
func (w *WatchList) Add(ctx context.Context, item domain.Item) error {
	item = item.Canonical()
	if item.ID == "" {
		return domain.ErrEmptyID
	}
	if err := w.ensureMigrated(ctx); err != nil {
		return err
	}

	return w.store.Update(ctx, []string{KeyWatchList}, func(cur map[string]json.RawMessage) (map[string]any, error) {
		items, _ := decodeItems(cur[KeyWatchList])
		if domain.IndexOf(items, item.ID) >= 0 {
			return nil, fmt.Errorf("add %s: %w", item.ID, domain.ErrDuplicate)
		}
		if len(items) >= domain.MaxItems {
			return nil, fmt.Errorf("add %s: %w", item.ID, domain.ErrCapacityExceeded)
		}
		next := append(items, item)
		return map[string]any{KeyWatchList: next}, nil
	})
}

// Remove drops the item with id. Removing an absent id is a no-op.
func (w *WatchList) Remove(ctx context.Context, id string) error {
	if err := w.ensureMigrated(ctx); err != nil {
		return err
	}

	return w.store.Update(ctx, []string{KeyWatchList}, func(cur map[string]json.RawMessage) (map[string]any, error) {
		items, _ := decodeItems(cur[KeyWatchList])
		if domain.IndexOf(items, id) < 0 {
			return nil, nil
		}
		next := make([]domain.Item, 0, len(items))
		for _, it := range items {
			if !domain.SameID(it.ID, id) {
				next = append(next, it)
			}
		}
		return map[string]any{KeyWatchList: next}, nil
	})
}

// Replace stores items after de-duplication (first occurrence wins). It fails
// with domain.ErrCapacityExceeded when given more than MaxItems items.
func (w *WatchList) Replace(ctx context.Context, items []domain.Item) error {
	if len(items) > domain.MaxItems {
		return fmt.Errorf("replace with %d items: %w", len(items), domain.ErrCapacityExceeded)
	}
	clean := domain.Normalize(items)
	if err := w.ensureMigrated(ctx); err != nil {
		return err
	}
	return w.store.Set(ctx, map[string]any{KeyWatchList: clean})
}

// Subscribe streams the full list after every committed change.
func (w *WatchList) Subscribe() *Feed[[]domain.Item] {
	return newFeed(w.store.Subscribe(KeyWatchList), func(raw json.RawMessage) ([]domain.Item, error) {
		items, ok := decodeItems(raw)
		if !ok {
			return nil, fmt.Errorf("malformed watch-list")
		}
		return items, nil
	})
}

func (w *WatchList) ensureMigrated(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.migrated {
		return nil
	}
	if _, err := Migrate(ctx, w.store); err != nil {
		slog.Error("Watch-list migration failed", slog.Any("error", err))
		return err
	}
	w.migrated = true
	return nil
}

// decodeItems returns an empty list and false for anything that is not a
// well-formed list of items.
func decodeItems(raw json.RawMessage) ([]domain.Item, bool) {
	if len(raw) == 0 {
		return []domain.Item{}, false
	}
	var items []domain.Item
	if err := json.Unmarshal(raw, &items); err != nil || items == nil {
		return []domain.Item{}, false
	}
	return items, true
}
