package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/internal/repository"
	"tcg_inventory_v1/pkg/utils"
)

const (
	// 未取到任何属性时的提示
	NoAspectsMessage = "No aspects available for this category."
)

// AspectsWarning 属性加载降级提示，不影响提交
func AspectsWarning(err error) string {
	return fmt.Sprintf("Failed to load eBay aspects: %v. You can still submit without them.", err)
}

// TaxonomyService 类目属性加载
// 远程优先，成功后写快照；远程失败时回退到快照，两者都失败返回空结构与提示
type TaxonomyService struct {
	source TaxonomySource
	repo   repository.TaxonomySnapshotRepository
	schema *SchemaCache
	raw    *utils.TTLCache[[]byte]
	logger *zap.Logger
}

func NewTaxonomyService(source TaxonomySource, repo repository.TaxonomySnapshotRepository, cacheTTL time.Duration, logger *zap.Logger) *TaxonomyService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaxonomyService{
		source: source,
		repo:   repo,
		schema: NewSchemaCache(),
		raw:    utils.NewTTLCache[[]byte](cacheTTL),
		logger: logger,
	}
}

// Load 返回类目属性结构与降级提示 (为空表示正常)
func (s *TaxonomyService) Load(ctx context.Context, categoryID string) (*AspectSchema, string) {
	if categoryID == "" {
		categoryID = model.DefaultCategoryID
	}

	if raw, ok := s.raw.Get(categoryID); ok {
		if schema, err := s.schema.Schema(categoryID, raw); err == nil {
			return schema, emptyNotice(schema)
		}
	}

	raw, fetchErr := s.fetch(ctx, categoryID)
	if fetchErr == nil {
		schema, err := s.schema.Schema(categoryID, raw)
		if err == nil {
			s.raw.Set(categoryID, raw)
			s.saveSnapshot(ctx, categoryID, schema, raw)
			return schema, emptyNotice(schema)
		}
		fetchErr = err
	}

	s.logger.Warn("taxonomy fetch failed, trying snapshot",
		zap.String("category_id", categoryID),
		zap.Error(fetchErr),
	)

	if schema := s.loadSnapshot(ctx, categoryID); schema != nil {
		return schema, AspectsWarning(fetchErr)
	}
	return NewAspectSchema(categoryID, "", nil), AspectsWarning(fetchErr)
}

func (s *TaxonomyService) fetch(ctx context.Context, categoryID string) ([]byte, error) {
	if s.source == nil {
		return nil, fmt.Errorf("taxonomy source is not configured")
	}
	return s.source.FetchAspects(ctx, categoryID)
}

func (s *TaxonomyService) saveSnapshot(ctx context.Context, categoryID string, schema *AspectSchema, raw []byte) {
	if s.repo == nil || schema.Empty() {
		return
	}
	err := s.repo.Upsert(ctx, &model.TaxonomySnapshot{
		CategoryID:  categoryID,
		Version:     schema.Version,
		AspectCount: len(schema.Fields),
		Payload:     datatypes.JSON(raw),
		FetchedAt:   time.Now(),
	})
	if err != nil {
		s.logger.Warn("save taxonomy snapshot failed", zap.String("category_id", categoryID), zap.Error(err))
	}
}

func (s *TaxonomyService) loadSnapshot(ctx context.Context, categoryID string) *AspectSchema {
	if s.repo == nil {
		return nil
	}
	snap, err := s.repo.GetByCategory(ctx, categoryID)
	if err != nil || snap == nil || len(snap.Payload) == 0 {
		return nil
	}
	schema, err := s.schema.Schema(categoryID, snap.Payload)
	if err != nil || schema.Empty() {
		return nil
	}
	return schema
}

func emptyNotice(schema *AspectSchema) string {
	if schema.Empty() {
		return NoAspectsMessage
	}
	return ""
}
