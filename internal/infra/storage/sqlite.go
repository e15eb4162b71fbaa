package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"dex_watch/internal/domain"
	"dex_watch/internal/kvstore"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"
)

// Storage is the durable SQLite database behind the sync namespace and the
// icon asset table.
type Storage struct {
	db *gorm.DB
}

// NewStorage opens the database at path, or at the per-user default when path
// is empty.
func NewStorage(path string) (*Storage, error) {
	dbPath := path
	if dbPath == "" {
		var err error
		dbPath, err = getDBPath()
		if err != nil {
			return nil, fmt.Errorf("failed to resolve DB path: %w", err)
		}
	}

	// Ensure directory exists
	dbDir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dbDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create DB directory: %w", err)
	}

	// Connect to SQLite (Pure Go)
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newStorage(db)
}

func newStorage(db *gorm.DB) (*Storage, error) {
	if err := db.AutoMigrate(&domain.KVRecord{}, &domain.ItemAsset{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close releases the underlying connection pool.
func (s *Storage) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// getDBPath resolves the database file path based on OS
func getDBPath() (string, error) {
	var configDir string
	var err error

	if runtime.GOOS == "windows" {
		configDir = os.Getenv("LOCALAPPDATA")
		if configDir == "" {
			configDir, err = os.UserConfigDir()
		}
	} else {
		configDir, err = os.UserConfigDir()
	}

	if err != nil {
		return "", err
	}

	return filepath.Join(configDir, "DexWatch", "data", "dexwatch.db"), nil
}

// ======================================================================================
// Namespace Operations
// ======================================================================================

// Namespace returns a kvstore.Backend scoped to ns.
func (s *Storage) Namespace(ns kvstore.Namespace) kvstore.Backend {
	return &namespaceBackend{db: s.db, ns: string(ns)}
}

type namespaceBackend struct {
	db *gorm.DB
	ns string
}

func (b *namespaceBackend) Load(ctx context.Context, keys []string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(keys))
	if len(keys) == 0 {
		return out, nil
	}

	var records []domain.KVRecord
	err := b.db.WithContext(ctx).
		Where("namespace = ? AND `key` IN ?", b.ns, keys).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	for _, r := range records {
		out[r.Key] = []byte(r.Value)
	}
	return out, nil
}

// Save writes all values in a single transaction.
func (b *namespaceBackend) Save(ctx context.Context, values map[string][]byte) error {
	now := time.Now()
	return b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for k, v := range values {
			rec := domain.KVRecord{Namespace: b.ns, Key: k, Value: string(v), UpdatedAt: now}
			err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "namespace"}, {Name: "key"}},
				DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
			}).Create(&rec).Error
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// ======================================================================================
// Asset Operations
// ======================================================================================

// UpsertAsset creates or updates icon metadata
func (s *Storage) UpsertAsset(asset *domain.ItemAsset) error {
	return s.db.Save(asset).Error
}

// GetAsset retrieves icon metadata by item id
func (s *Storage) GetAsset(id string) (*domain.ItemAsset, error) {
	var asset domain.ItemAsset
	err := s.db.First(&asset, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil // Not found is not an error
	}
	if err != nil {
		return nil, err
	}
	return &asset, nil
}

// DeleteAsset deletes icon metadata
func (s *Storage) DeleteAsset(id string) error {
	return s.db.Where("id = ?", id).Delete(&domain.ItemAsset{}).Error
}
