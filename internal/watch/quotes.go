package watch

import (
	"context"
	"encoding/json"
	"fmt"

	"dex_watch/internal/domain"
	"dex_watch/internal/kvstore"
)

// QuoteCache is the derived id -> Quote mapping kept in the local namespace.
// It is only ever replaced wholesale.
type QuoteCache struct {
	store *kvstore.Store
}

// NewQuoteCache creates a QuoteCache over the local namespace store.
func NewQuoteCache(store *kvstore.Store) *QuoteCache {
	return &QuoteCache{store: store}
}

// Get returns the cached quotes, or an empty map.
func (q *QuoteCache) Get(ctx context.Context) (domain.QuoteMap, error) {
	raw, err := q.store.Get(ctx, KeyQuotes)
	if err != nil {
		return nil, err
	}
	quotes, err := decodeQuotes(raw[KeyQuotes])
	if err != nil {
		return domain.QuoteMap{}, nil
	}
	return quotes, nil
}

// Replace writes quotes as the new cache. Entries not in quotes disappear.
func (q *QuoteCache) Replace(ctx context.Context, quotes domain.QuoteMap) error {
	if quotes == nil {
		quotes = domain.QuoteMap{}
	}
	return q.store.Set(ctx, map[string]any{KeyQuotes: quotes})
}

// Subscribe streams the full cache after every replacement.
func (q *QuoteCache) Subscribe() *Feed[domain.QuoteMap] {
	return newFeed(q.store.Subscribe(KeyQuotes), decodeQuotes)
}

func decodeQuotes(raw json.RawMessage) (domain.QuoteMap, error) {
	if len(raw) == 0 {
		return domain.QuoteMap{}, nil
	}
	var quotes domain.QuoteMap
	if err := json.Unmarshal(raw, &quotes); err != nil {
		return nil, fmt.Errorf("decode quotes: %w", err)
	}
	if quotes == nil {
		quotes = domain.QuoteMap{}
	}
	return quotes, nil
}
