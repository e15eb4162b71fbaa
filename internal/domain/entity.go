package domain

import (
	"time"
)

// KVRecord is one persisted key of a storage namespace.
// Value holds the JSON encoding of the stored value.
type KVRecord struct {
	Namespace string    `gorm:"primaryKey" json:"namespace"`
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     string    `json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ItemAsset tracks the locally cached icon of a watched item.
type ItemAsset struct {
	ID           string    `gorm:"primaryKey" json:"id"`
	Symbol       string    `json:"symbol"`
	IconURL      string    `json:"icon_url"`
	IconPath     string    `json:"icon_path"`
	LastSyncedAt time.Time `json:"last_synced_at"` // Last icon sync time
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
