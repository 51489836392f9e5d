package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"tcg_inventory_v1/internal/service"
)

// TaxonomyLoader 类目属性加载
type TaxonomyLoader interface {
	Load(ctx context.Context, categoryID string) (*service.AspectSchema, string)
}

// SchemaRefresher 为属性结构为空的会话重新加载
type SchemaRefresher interface {
	RefreshSchemas(ctx context.Context) int
}

// TaxonomyWarmTask 预热类目属性缓存与快照
type TaxonomyWarmTask struct {
	loader     TaxonomyLoader
	refresher  SchemaRefresher
	categoryID string
	cron       *cron.Cron
	logger     *zap.Logger
}

func NewTaxonomyWarmTask(loader TaxonomyLoader, refresher SchemaRefresher, categoryID string, logger *zap.Logger) *TaxonomyWarmTask {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TaxonomyWarmTask{
		loader:     loader,
		refresher:  refresher,
		categoryID: categoryID,
		cron:       cron.New(cron.WithSeconds()),
		logger:     logger,
	}
}

// Start 启动时预热一次，之后每 6 小时刷新
func (t *TaxonomyWarmTask) Start() error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		t.RunOnce(ctx)
	}()

	_, err := t.cron.AddFunc("0 0 */6 * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		t.RunOnce(ctx)
	})
	if err != nil {
		return err
	}
	t.cron.Start()
	return nil
}

func (t *TaxonomyWarmTask) Stop() {
	<-t.cron.Stop().Done()
}

// RunOnce 返回加载到的字段数，加载成功后恢复降级会话
func (t *TaxonomyWarmTask) RunOnce(ctx context.Context) int {
	schema, warning := t.loader.Load(ctx, t.categoryID)
	if warning != "" {
		t.logger.Warn("[TaxonomyWarm] 类目属性预热异常", zap.String("category_id", t.categoryID), zap.String("warning", warning))
	}
	if schema.Empty() {
		return 0
	}
	if t.refresher != nil {
		if n := t.refresher.RefreshSchemas(ctx); n > 0 {
			t.logger.Info("[TaxonomyWarm] 已恢复会话属性结构", zap.Int("sessions", n))
		}
	}
	t.logger.Debug("[TaxonomyWarm] 类目属性已预热", zap.String("category_id", t.categoryID), zap.Int("fields", len(schema.Fields)))
	return len(schema.Fields)
}
