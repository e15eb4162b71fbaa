package watch

import (
	"context"
	"encoding/json"
	"log/slog"
	"slices"

	"dex_watch/internal/domain"
	"dex_watch/internal/kvstore"
)

// CurrentSchemaVersion is the schema tag written next to the watch-list.
const CurrentSchemaVersion = 3

// Migrate brings the sync namespace to CurrentSchemaVersion. It is idempotent:
// on an already current, well-formed namespace it writes nothing and returns
// false.
func Migrate(ctx context.Context, store *kvstore.Store) (bool, error) {
	changed := false
	keys := []string{KeyWatchList, KeySchemaVersion, KeyWidgetEnabled}

	err := store.Update(ctx, keys, func(cur map[string]json.RawMessage) (map[string]any, error) {
		updates := planMigration(cur)
		changed = len(updates) > 0
		return updates, nil
	})
	if err != nil {
		return false, err
	}
	if changed {
		slog.Info("Migrated watch-list schema", slog.Int("version", CurrentSchemaVersion))
	}
	return changed, nil
}

func planMigration(cur map[string]json.RawMessage) map[string]any {
	items, wellFormed := decodeItems(cur[KeyWatchList])
	version, tagged := decodeVersion(cur[KeySchemaVersion])
	enabled, isBool := decodeBool(cur[KeyWidgetEnabled])
	if !isBool {
		enabled = true
	}

	if !tagged {
		return map[string]any{
			KeySchemaVersion: CurrentSchemaVersion,
			KeyWatchList:     capItems(domain.Normalize(items)),
			KeyWidgetEnabled: enabled,
		}
	}

	updates := map[string]any{}
	if !wellFormed {
		updates[KeyWatchList] = []domain.Item{}
	}
	if version < CurrentSchemaVersion {
		updates[KeySchemaVersion] = CurrentSchemaVersion
		if wellFormed {
			updates[KeyWatchList] = capItems(domain.Normalize(items))
		}
	}
	// another writer may have stored duplicates or too many items
	if wellFormed && version == CurrentSchemaVersion {
		if clean := capItems(domain.Normalize(items)); !slices.Equal(clean, items) {
			updates[KeyWatchList] = clean
		}
	}
	if !isBool {
		updates[KeyWidgetEnabled] = enabled
	}
	return updates
}

func capItems(items []domain.Item) []domain.Item {
	if len(items) > domain.MaxItems {
		return items[:domain.MaxItems]
	}
	return items
}

func decodeVersion(raw json.RawMessage) (int, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	var v int
	if err := json.Unmarshal(raw, &v); err != nil || v <= 0 {
		return 0, false
	}
	return v, true
}

func decodeBool(raw json.RawMessage) (bool, bool) {
	if len(raw) == 0 {
		return false, false
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err != nil {
		return false, false
	}
	return b, true
}
