package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"tcg_inventory_v1/internal/config"
	"tcg_inventory_v1/internal/controller"
	"tcg_inventory_v1/internal/middleware"
	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/internal/repository"
	"tcg_inventory_v1/internal/router"
	"tcg_inventory_v1/internal/service"
	"tcg_inventory_v1/internal/task"
	"tcg_inventory_v1/pkg/database"
	"tcg_inventory_v1/pkg/logger"
	"tcg_inventory_v1/pkg/metrics"
	"tcg_inventory_v1/pkg/net"
)

func main() {
	cfg := config.Load()
	log := logger.New(cfg.Environment)
	defer func() { _ = log.Sync() }()

	// 1. 初始化数据库
	db := initDatabase(cfg, log)

	// 2. 初始化依赖
	deps := initDependencies(cfg, db, log)

	// 3. 启动后台任务
	deps.Tasks.Start()

	// 4. 初始化路由
	r := initRouter(cfg, deps, log)

	// 5. 启动服务
	startServer(cfg, r, deps, log)
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	DB         *gorm.DB
	Repos      *Repositories
	Dispatcher net.Dispatcher
	Services   *Services
	Metrics    *metrics.WorkbenchMetrics
	Cooldown   *middleware.CooldownLimiter
	Form       *controller.FormController
	Tasks      *task.TaskManager
}

// Repositories 仓库集合
type Repositories struct {
	Taxonomy repository.TaxonomySnapshotRepository
	Pending  repository.PendingItemRepository
}

// Services 服务集合
type Services struct {
	Inventory *service.InventoryAPIService
	Taxonomy  *service.TaxonomyService
	Workbench *service.WorkbenchService
}

// ==================== 初始化函数 ====================

// initDatabase 初始化数据库
func initDatabase(cfg *config.Config, log *zap.Logger) *gorm.DB {
	db, err := database.InitDB(database.Options{
		Driver: cfg.DBDriver,
		DSN:    cfg.DBDSN,
		Logger: log,
	},
		&model.TaxonomySnapshot{},
		&model.PendingItem{},
	)
	if err != nil {
		log.Fatal("数据库初始化失败", zap.Error(err))
	}
	return db
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, db *gorm.DB, log *zap.Logger) *Dependencies {
	// -------- Repo 层 --------
	repos := &Repositories{
		Taxonomy: repository.NewTaxonomySnapshotRepository(db),
		Pending:  repository.NewPendingItemRepository(db),
	}

	// -------- 网络层 --------
	dispatcher := net.NewDispatcher(net.DispatcherConfig{
		BaseURL:       cfg.InventoryAPIBaseURL,
		Timeout:       cfg.HTTPTimeout,
		RatePerSecond: cfg.RequestRatePerSec,
		Burst:         cfg.RequestBurst,
		Resilience:    net.DefaultResilienceConfig(),
		Debug:         !cfg.IsProduction(),
	}, net.NewContextCredentials(cfg.InventoryAPIToken), log)

	// -------- 业务服务 --------
	inventory := service.NewInventoryAPIService(dispatcher, log)
	taxonomy := service.NewTaxonomyService(inventory, repos.Taxonomy, cfg.TaxonomyCacheTTL, log)
	workbenchMetrics := metrics.NewWorkbenchMetrics("tcg_workbench")

	workbench := service.NewWorkbenchService(service.WorkbenchDeps{
		Taxonomy:   taxonomy,
		Store:      inventory,
		Loader:     inventory,
		Issuer:     initUploadIssuer(cfg, inventory, log),
		Transfer:   inventory,
		Pending:    repos.Pending,
		Recorder:   workbenchMetrics,
		CategoryID: cfg.CategoryID,
		Logger:     log,
	})

	// -------- Controller 层 --------
	cooldown := middleware.NewCooldownLimiter()
	formCtl := controller.NewFormController(workbench, cooldown, log)

	// -------- 后台任务 --------
	taskCfg := task.DefaultConfig()
	taskCfg.CleanupSpec = cfg.CleanupSpec
	taskCfg.SessionIdleTTL = cfg.SessionIdleTTL
	taskCfg.CategoryID = cfg.CategoryID
	tasks := task.NewTaskManager(&task.TaskManagerDeps{
		Sessions:  workbench,
		Pending:   repos.Pending,
		Taxonomy:  taxonomy,
		Refresher: workbench,
		Logger:    log,
	}, taskCfg)

	return &Dependencies{
		DB:         db,
		Repos:      repos,
		Dispatcher: dispatcher,
		Services: &Services{
			Inventory: inventory,
			Taxonomy:  taxonomy,
			Workbench: workbench,
		},
		Metrics:  workbenchMetrics,
		Cooldown: cooldown,
		Form:     formCtl,
		Tasks:    tasks,
	}
}

// initUploadIssuer 选择上传目标签发方，自建存储不可用时回退到库存接口
func initUploadIssuer(cfg *config.Config, inventory *service.InventoryAPIService, log *zap.Logger) service.UploadURLIssuer {
	if cfg.UploadURLProvider != "s3" {
		return inventory
	}
	issuer, err := service.NewStorageUploadIssuer(service.StorageConfig{
		Provider:  cfg.Storage.Provider,
		Bucket:    cfg.Storage.Bucket,
		Region:    cfg.Storage.Region,
		AccessKey: cfg.Storage.AccessKey,
		SecretKey: cfg.Storage.SecretKey,
		Endpoint:  cfg.Storage.Endpoint,
		CDNDomain: cfg.Storage.CDNDomain,
		BasePath:  cfg.Storage.BasePath,
		URLExpiry: cfg.Storage.URLExpiry,
	})
	if err != nil {
		log.Warn("存储服务初始化失败，改用库存接口签发上传地址", zap.Error(err))
		return inventory
	}
	return issuer
}

// initRouter 初始化路由
func initRouter(cfg *config.Config, deps *Dependencies, log *zap.Logger) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), logger.GinMiddleware(log))
	router.InitRoutes(r, deps.Form, deps.Cooldown, deps.Metrics.Handler())
	return r
}

// ==================== 服务启动 ====================

// startServer 启动服务
func startServer(cfg *config.Config, r *gin.Engine, deps *Dependencies, log *zap.Logger) {
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	// 异步启动服务
	go func() {
		log.Info("服务启动", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("服务启动失败", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("正在关闭服务...")

	// 优雅关闭，最多等待 30 秒
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Error("服务强制关闭", zap.Error(err))
	}

	deps.Tasks.Stop()
	released := deps.Services.Workbench.CloseAll(ctx)
	log.Info("服务已退出", zap.Int("closed_sessions", released))
}
