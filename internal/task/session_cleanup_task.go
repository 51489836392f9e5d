package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// IdleSessionCloser 可关闭空闲会话的注册表
type IdleSessionCloser interface {
	CloseIdle(ctx context.Context, ttl time.Duration) int
}

// SessionCleanupTask 定期关闭空闲表单会话并释放本地预览
type SessionCleanupTask struct {
	closer IdleSessionCloser
	ttl    time.Duration
	spec   string
	cron   *cron.Cron
	logger *zap.Logger
}

func NewSessionCleanupTask(closer IdleSessionCloser, ttl time.Duration, spec string, logger *zap.Logger) *SessionCleanupTask {
	if spec == "" {
		spec = "0 */10 * * * *"
	}
	if ttl <= 0 {
		ttl = 2 * time.Hour
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SessionCleanupTask{
		closer: closer,
		ttl:    ttl,
		spec:   spec,
		cron:   cron.New(cron.WithSeconds()), // 支持秒级控制
		logger: logger,
	}
}

// Start 启动定时任务
func (t *SessionCleanupTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		t.RunOnce(ctx)
	})
	if err != nil {
		return err
	}

	t.cron.Start()
	t.logger.Info("[SessionCleanup] 空闲会话清理已启动", zap.String("spec", t.spec), zap.Duration("ttl", t.ttl))
	return nil
}

// Stop 停止并等待运行中的任务
func (t *SessionCleanupTask) Stop() {
	<-t.cron.Stop().Done()
	t.logger.Info("[SessionCleanup] 已停止")
}

// RunOnce 执行一次清理，返回关闭的会话数
func (t *SessionCleanupTask) RunOnce(ctx context.Context) int {
	closed := t.closer.CloseIdle(ctx, t.ttl)
	if closed > 0 {
		t.logger.Info("[SessionCleanup] 已关闭空闲会话", zap.Int("closed", closed))
	}
	return closed
}
