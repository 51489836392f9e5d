package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"tcg_inventory_v1/internal/repository"
)

// PendingAuditTask 巡检已创建但图片长期未补传的商品
// 只记录告警，补传由用户在编辑页完成
type PendingAuditTask struct {
	repo      repository.PendingItemRepository
	threshold time.Duration
	batchSize int
	cron      *cron.Cron
	logger    *zap.Logger
}

func NewPendingAuditTask(repo repository.PendingItemRepository, threshold time.Duration, logger *zap.Logger) *PendingAuditTask {
	if threshold <= 0 {
		threshold = 24 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PendingAuditTask{
		repo:      repo,
		threshold: threshold,
		batchSize: 100,
		cron:      cron.New(cron.WithSeconds()),
		logger:    logger,
	}
}

// Start 每小时巡检一次
func (t *PendingAuditTask) Start() error {
	_, err := t.cron.AddFunc("0 0 * * * *", func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := t.RunOnce(ctx); err != nil {
			t.logger.Error("[PendingAudit] 巡检失败", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	t.cron.Start()
	t.logger.Info("[PendingAudit] 待补传巡检已启动", zap.Duration("threshold", t.threshold))
	return nil
}

func (t *PendingAuditTask) Stop() {
	<-t.cron.Stop().Done()
}

// RunOnce 返回超期未完成的记录数
func (t *PendingAuditTask) RunOnce(ctx context.Context) (int, error) {
	stale, err := t.repo.ListStale(ctx, time.Now().Add(-t.threshold), t.batchSize)
	if err != nil {
		return 0, err
	}
	for _, item := range stale {
		t.logger.Warn("[PendingAudit] 商品图片未补传",
			zap.String("sku", item.SKU),
			zap.String("session_id", item.SessionID),
			zap.Int("attempts", item.Attempts),
			zap.String("last_error", item.LastError),
		)
	}
	return len(stale), nil
}
