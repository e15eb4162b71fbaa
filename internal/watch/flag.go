package watch

import (
	"context"
	"encoding/json"

	"dex_watch/internal/kvstore"
)

// WidgetFlag gates whether the overlay renders. It defaults to true.
type WidgetFlag struct {
	store *kvstore.Store
}

// NewWidgetFlag creates a WidgetFlag over the sync namespace store.
func NewWidgetFlag(store *kvstore.Store) *WidgetFlag {
	return &WidgetFlag{store: store}
}

// Enabled returns the flag, treating a missing or non-boolean value as true.
func (f *WidgetFlag) Enabled(ctx context.Context) (bool, error) {
	raw, err := f.store.Get(ctx, KeyWidgetEnabled)
	if err != nil {
		return true, err
	}
	return flagValue(raw[KeyWidgetEnabled]), nil
}

// SetEnabled persists the flag.
func (f *WidgetFlag) SetEnabled(ctx context.Context, enabled bool) error {
	return f.store.Set(ctx, map[string]any{KeyWidgetEnabled: enabled})
}

// Subscribe streams the flag after every change.
func (f *WidgetFlag) Subscribe() *Feed[bool] {
	return newFeed(f.store.Subscribe(KeyWidgetEnabled), func(raw json.RawMessage) (bool, error) {
		return flagValue(raw), nil
	})
}

func flagValue(raw json.RawMessage) bool {
	v, ok := decodeBool(raw)
	if !ok {
		return true
	}
	return v
}
