package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tcg_inventory_v1/internal/model"
)

// ==================== 仓储接口 ====================

// TaxonomySnapshotRepository 类目属性快照仓储
type TaxonomySnapshotRepository interface {
	// GetByCategory 不存在时返回 nil, nil
	GetByCategory(ctx context.Context, categoryID string) (*model.TaxonomySnapshot, error)
	// Upsert 按类目覆盖
	Upsert(ctx context.Context, snapshot *model.TaxonomySnapshot) error
}

// ==================== 仓储实现 ====================

type taxonomySnapshotRepo struct {
	db *gorm.DB
}

func NewTaxonomySnapshotRepository(db *gorm.DB) TaxonomySnapshotRepository {
	return &taxonomySnapshotRepo{db: db}
}

func (r *taxonomySnapshotRepo) GetByCategory(ctx context.Context, categoryID string) (*model.TaxonomySnapshot, error) {
	var snap model.TaxonomySnapshot
	err := r.db.WithContext(ctx).Where("category_id = ?", categoryID).First(&snap).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &snap, nil
}

func (r *taxonomySnapshotRepo) Upsert(ctx context.Context, snapshot *model.TaxonomySnapshot) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "category_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "aspect_count", "payload", "fetched_at", "updated_at"}),
	}).Create(snapshot).Error
}
