package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"tcg_inventory_v1/internal/model"
)

// ==================== 仓储接口 ====================

// PendingItemRepository 已创建但图片未传完的商品记录
type PendingItemRepository interface {
	// GetPending 会话当前待补传记录，不存在返回 nil, nil
	GetPending(ctx context.Context, sessionID string) (*model.PendingItem, error)
	Remember(ctx context.Context, sessionID, sku string) error
	RecordFailure(ctx context.Context, sessionID, errMsg string) error
	Resolve(ctx context.Context, sessionID string) error
	DeleteBySession(ctx context.Context, sessionID string) error
	// ListStale 超过指定时间仍未完成的记录
	ListStale(ctx context.Context, before time.Time, limit int) ([]model.PendingItem, error)
}

// ==================== 仓储实现 ====================

type pendingItemRepo struct {
	db *gorm.DB
}

func NewPendingItemRepository(db *gorm.DB) PendingItemRepository {
	return &pendingItemRepo{db: db}
}

func (r *pendingItemRepo) GetPending(ctx context.Context, sessionID string) (*model.PendingItem, error) {
	var item model.PendingItem
	err := r.db.WithContext(ctx).
		Where("session_id = ? AND status = ?", sessionID, model.PendingItemStatusPending).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *pendingItemRepo) Remember(ctx context.Context, sessionID, sku string) error {
	var item model.PendingItem
	err := r.db.WithContext(ctx).Unscoped().Where("session_id = ?", sessionID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return r.db.WithContext(ctx).Create(&model.PendingItem{
			SessionID: sessionID,
			SKU:       sku,
			Status:    model.PendingItemStatusPending,
		}).Error
	}
	if err != nil {
		return err
	}

	return r.db.WithContext(ctx).Unscoped().Model(&item).Updates(map[string]interface{}{
		"sku":         sku,
		"status":      model.PendingItemStatusPending,
		"last_error":  "",
		"attempts":    0,
		"resolved_at": nil,
		"deleted_at":  nil,
	}).Error
}

func (r *pendingItemRepo) RecordFailure(ctx context.Context, sessionID, errMsg string) error {
	if len(errMsg) > 1024 {
		errMsg = errMsg[:1024]
	}
	return r.db.WithContext(ctx).Model(&model.PendingItem{}).
		Where("session_id = ? AND status = ?", sessionID, model.PendingItemStatusPending).
		Updates(map[string]interface{}{
			"last_error": errMsg,
			"attempts":   gorm.Expr("attempts + 1"),
		}).Error
}

func (r *pendingItemRepo) Resolve(ctx context.Context, sessionID string) error {
	now := time.Now()
	return r.db.WithContext(ctx).Model(&model.PendingItem{}).
		Where("session_id = ? AND status = ?", sessionID, model.PendingItemStatusPending).
		Updates(map[string]interface{}{
			"status":      model.PendingItemStatusResolved,
			"resolved_at": &now,
			"last_error":  "",
		}).Error
}

func (r *pendingItemRepo) DeleteBySession(ctx context.Context, sessionID string) error {
	return r.db.WithContext(ctx).Where("session_id = ?", sessionID).Delete(&model.PendingItem{}).Error
}

func (r *pendingItemRepo) ListStale(ctx context.Context, before time.Time, limit int) ([]model.PendingItem, error) {
	var items []model.PendingItem
	query := r.db.WithContext(ctx).
		Where("status = ? AND updated_at < ?", model.PendingItemStatusPending, before).
		Order("updated_at ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := query.Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}
