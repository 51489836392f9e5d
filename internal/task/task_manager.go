package task

import (
	"time"

	"go.uber.org/zap"

	"tcg_inventory_v1/internal/repository"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理工作台后台任务
// 管理范围：空闲会话清理、待补传巡检、类目属性预热
type TaskManager struct {
	cleanupTask  *SessionCleanupTask
	auditTask    *PendingAuditTask
	taxonomyTask *TaxonomyWarmTask
	logger       *zap.Logger
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Sessions  IdleSessionCloser
	Pending   repository.PendingItemRepository
	Taxonomy  TaxonomyLoader
	Refresher SchemaRefresher
	Logger    *zap.Logger
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	CleanupEnabled bool
	CleanupSpec    string
	SessionIdleTTL time.Duration

	AuditEnabled   bool
	AuditThreshold time.Duration

	TaxonomyEnabled bool
	CategoryID      string
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		CleanupEnabled: true,
		CleanupSpec:    "0 */10 * * * *",
		SessionIdleTTL: 2 * time.Hour,

		AuditEnabled:   true,
		AuditThreshold: 24 * time.Hour,

		TaxonomyEnabled: true,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	tm := &TaskManager{logger: logger}

	if cfg.CleanupEnabled && deps.Sessions != nil {
		tm.cleanupTask = NewSessionCleanupTask(deps.Sessions, cfg.SessionIdleTTL, cfg.CleanupSpec, logger)
	}
	if cfg.AuditEnabled && deps.Pending != nil {
		tm.auditTask = NewPendingAuditTask(deps.Pending, cfg.AuditThreshold, logger)
	}
	if cfg.TaxonomyEnabled && deps.Taxonomy != nil {
		tm.taxonomyTask = NewTaxonomyWarmTask(deps.Taxonomy, deps.Refresher, cfg.CategoryID, logger)
	}
	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务，单个任务启动失败不影响其他任务
func (tm *TaskManager) Start() {
	tm.logger.Info("[TaskManager] 正在启动后台任务...")

	if tm.cleanupTask != nil {
		if err := tm.cleanupTask.Start(); err != nil {
			tm.logger.Error("[TaskManager] 会话清理任务启动失败", zap.Error(err))
		}
	}
	if tm.auditTask != nil {
		if err := tm.auditTask.Start(); err != nil {
			tm.logger.Error("[TaskManager] 待补传巡检启动失败", zap.Error(err))
		}
	}
	if tm.taxonomyTask != nil {
		if err := tm.taxonomyTask.Start(); err != nil {
			tm.logger.Error("[TaskManager] 类目预热启动失败", zap.Error(err))
		}
	}

	tm.logger.Info("[TaskManager] 后台任务已全部启动")
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.cleanupTask != nil {
		tm.cleanupTask.Stop()
	}
	if tm.auditTask != nil {
		tm.auditTask.Stop()
	}
	if tm.taxonomyTask != nil {
		tm.taxonomyTask.Stop()
	}
	tm.logger.Info("[TaskManager] 后台任务已全部停止")
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"session_cleanup": tm.cleanupTask != nil,
		"pending_audit":   tm.auditTask != nil,
		"taxonomy_warm":   tm.taxonomyTask != nil,
	}
}
