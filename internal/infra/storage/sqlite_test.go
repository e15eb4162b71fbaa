package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"dex_watch/internal/domain"
	"dex_watch/internal/kvstore"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupTestDB(t *testing.T) *Storage {
	dbName := filepath.Join(t.TempDir(), "test.db")
	db, err := gorm.Open(sqlite.Open(dbName), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}

	s, err := newStorage(db)
	if err != nil {
		t.Fatalf("failed to migrate test db: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	return s
}

func TestNamespaceSaveAndLoad(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	b := s.Namespace(kvstore.Sync)

	// 1. Create
	if err := b.Save(ctx, map[string][]byte{"watchlist": []byte(`[]`), "schemaVersion": []byte(`3`)}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// 2. Overwrite
	if err := b.Save(ctx, map[string][]byte{"schemaVersion": []byte(`4`)}); err != nil {
		t.Fatalf("Save overwrite failed: %v", err)
	}

	got, err := b.Load(ctx, []string{"watchlist", "schemaVersion", "missing"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 keys, got %d", len(got))
	}
	if string(got["schemaVersion"]) != "4" {
		t.Errorf("expected overwritten value 4, got %s", got["schemaVersion"])
	}
}

func TestNamespacesAreIsolated(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()

	if err := s.Namespace(kvstore.Sync).Save(ctx, map[string][]byte{"k": []byte(`"sync"`)}); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	got, err := s.Namespace(kvstore.Local).Load(ctx, []string{"k"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("local namespace should not see sync keys, got %v", got)
	}
}

func TestStoreOverSQLite(t *testing.T) {
	s := setupTestDB(t)
	ctx := context.Background()
	store := kvstore.New(kvstore.Sync, s.Namespace(kvstore.Sync))

	if err := store.Set(ctx, map[string]any{"widgetEnabled": false}); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, err := store.Get(ctx, "widgetEnabled")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if string(got["widgetEnabled"]) != "false" {
		t.Errorf("expected false, got %s", got["widgetEnabled"])
	}
}

func TestUpsertAndGetAsset(t *testing.T) {
	s := setupTestDB(t)

	asset := &domain.ItemAsset{
		ID:        "pair1",
		Symbol:    "TEST",
		IconURL:   "https://example.com/a.png",
		UpdatedAt: time.Now(),
	}

	if err := s.UpsertAsset(asset); err != nil {
		t.Fatalf("UpsertAsset failed: %v", err)
	}

	asset.IconPath = "/tmp/pair1.png"
	if err := s.UpsertAsset(asset); err != nil {
		t.Fatalf("Update failed: %v", err)
	}

	fetched, err := s.GetAsset("pair1")
	if err != nil {
		t.Fatalf("GetAsset failed: %v", err)
	}
	if fetched == nil {
		t.Fatal("fetched asset is nil")
	}
	if fetched.IconPath != "/tmp/pair1.png" {
		t.Errorf("expected updated icon path, got %s", fetched.IconPath)
	}
}

func TestDeleteAsset(t *testing.T) {
	s := setupTestDB(t)
	s.UpsertAsset(&domain.ItemAsset{ID: "del", Symbol: "DEL"})

	if err := s.DeleteAsset("del"); err != nil {
		t.Fatalf("DeleteAsset failed: %v", err)
	}

	fetched, err := s.GetAsset("del")
	if err != nil {
		t.Fatalf("GetAsset after delete failed: %v", err)
	}
	if fetched != nil {
		t.Error("expected asset to be deleted, but found record")
	}
}
