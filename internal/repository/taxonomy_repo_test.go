package repository

import (
	"context"
	"testing"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tcg_inventory_v1/internal/model"
)

func setupTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}

	err = db.AutoMigrate(&model.TaxonomySnapshot{}, &model.PendingItem{})
	if err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}

	return db
}

func TestTaxonomySnapshotRepo_GetMissing(t *testing.T) {
	repo := NewTaxonomySnapshotRepository(setupTestDB(t))

	snap, err := repo.GetByCategory(context.Background(), "183454")
	if err != nil {
		t.Fatalf("GetByCategory() error = %v", err)
	}
	if snap != nil {
		t.Errorf("GetByCategory() = %+v, want nil", snap)
	}
}

func TestTaxonomySnapshotRepo_Upsert(t *testing.T) {
	db := setupTestDB(t)
	repo := NewTaxonomySnapshotRepository(db)
	ctx := context.Background()

	first := &model.TaxonomySnapshot{
		CategoryID:  "183454",
		Version:     "v1",
		AspectCount: 2,
		Payload:     datatypes.JSON(`{"aspects":[]}`),
		FetchedAt:   time.Now().Add(-time.Hour),
	}
	if err := repo.Upsert(ctx, first); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	second := &model.TaxonomySnapshot{
		CategoryID:  "183454",
		Version:     "v2",
		AspectCount: 5,
		Payload:     datatypes.JSON(`{"aspects":[{"localizedAspectName":"Game"}]}`),
		FetchedAt:   time.Now(),
	}
	if err := repo.Upsert(ctx, second); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}

	var count int64
	db.Model(&model.TaxonomySnapshot{}).Count(&count)
	if count != 1 {
		t.Errorf("count = %d, want 1", count)
	}

	got, err := repo.GetByCategory(ctx, "183454")
	if err != nil || got == nil {
		t.Fatalf("GetByCategory() = %v, %v", got, err)
	}
	if got.Version != "v2" || got.AspectCount != 5 {
		t.Errorf("Version = %v, AspectCount = %v, want v2 / 5", got.Version, got.AspectCount)
	}
}
