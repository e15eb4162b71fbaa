package domain

import (
	"context"
)

//go:generate mockgen -package=mocks -destination=../mocks/mock_quote_source.go -source=interfaces.go

// QuoteSource is the adapter to the external price service.
// FetchOne never fails: transport and lookup failures come back as a stale Quote.
type QuoteSource interface {
	FetchOne(ctx context.Context, id string) Quote
	ResolveMeta(ctx context.Context, id string) (ItemMeta, error)
}

// IconStore caches item icons locally.
type IconStore interface {
	DownloadIcon(id, url string) (string, error)
	RemoveIcon(id string) error
}

// AssetStore persists icon metadata for watched items.
type AssetStore interface {
	UpsertAsset(asset *ItemAsset) error
	GetAsset(id string) (*ItemAsset, error)
	DeleteAsset(id string) error
}
