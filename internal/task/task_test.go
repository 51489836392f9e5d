package task

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/internal/repository"
	"tcg_inventory_v1/internal/service"
)

func setupTaskTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("连接测试数据库失败: %v", err)
	}
	if err := db.AutoMigrate(&model.PendingItem{}); err != nil {
		t.Fatalf("数据库迁移失败: %v", err)
	}
	return db
}

type mockCloser struct {
	calls   int32
	lastTTL time.Duration
	closed  int
}

func (m *mockCloser) CloseIdle(ctx context.Context, ttl time.Duration) int {
	atomic.AddInt32(&m.calls, 1)
	m.lastTTL = ttl
	return m.closed
}

type mockTaxonomy struct {
	schema  *service.AspectSchema
	warning string
	calls   int32
}

func (m *mockTaxonomy) Load(ctx context.Context, categoryID string) (*service.AspectSchema, string) {
	atomic.AddInt32(&m.calls, 1)
	return m.schema, m.warning
}

type mockRefresher struct {
	recovered int
	calls     int32
}

func (m *mockRefresher) RefreshSchemas(ctx context.Context) int {
	atomic.AddInt32(&m.calls, 1)
	return m.recovered
}

func TestSessionCleanupTask_RunOnce(t *testing.T) {
	closer := &mockCloser{closed: 3}
	task := NewSessionCleanupTask(closer, 30*time.Minute, "", nil)

	assert.Equal(t, 3, task.RunOnce(context.Background()))
	assert.Equal(t, 30*time.Minute, closer.lastTTL)
	assert.Equal(t, "0 */10 * * * *", task.spec)
}

func TestSessionCleanupTask_Defaults(t *testing.T) {
	task := NewSessionCleanupTask(&mockCloser{}, 0, "*/5 * * * * *", nil)
	assert.Equal(t, 2*time.Hour, task.ttl)

	require.NoError(t, task.Start())
	task.Stop()

	bad := NewSessionCleanupTask(&mockCloser{}, time.Minute, "every now and then", nil)
	assert.Error(t, bad.Start())
}

func TestPendingAuditTask_RunOnce(t *testing.T) {
	db := setupTaskTestDB(t)
	repo := repository.NewPendingItemRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Remember(ctx, "s-old", "SKU-OLD"))
	require.NoError(t, repo.Remember(ctx, "s-new", "SKU-NEW"))
	require.NoError(t, repo.Remember(ctx, "s-done", "SKU-DONE"))
	require.NoError(t, repo.Resolve(ctx, "s-done"))
	db.Model(&model.PendingItem{}).Where("session_id IN ?", []string{"s-old", "s-done"}).
		UpdateColumn("updated_at", time.Now().Add(-48*time.Hour))

	task := NewPendingAuditTask(repo, 24*time.Hour, nil)
	count, err := task.RunOnce(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTaxonomyWarmTask_RunOnce(t *testing.T) {
	tests := []struct {
		name        string
		loader      *mockTaxonomy
		want        int
		wantRefresh int32
	}{
		{
			name:        "加载成功",
			loader:      &mockTaxonomy{schema: &service.AspectSchema{Fields: []model.AspectField{{Name: "Game"}, {Name: "Set"}}}},
			want:        2,
			wantRefresh: 1,
		},
		{
			name:        "加载失败",
			loader:      &mockTaxonomy{warning: "Unable to load aspects"},
			want:        0,
			wantRefresh: 0,
		},
		{
			name:        "降级为空结构",
			loader:      &mockTaxonomy{schema: &service.AspectSchema{}, warning: "Unable to load aspects"},
			want:        0,
			wantRefresh: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			refresher := &mockRefresher{recovered: 2}
			task := NewTaxonomyWarmTask(tt.loader, refresher, model.DefaultCategoryID, nil)
			assert.Equal(t, tt.want, task.RunOnce(context.Background()))
			assert.EqualValues(t, 1, atomic.LoadInt32(&tt.loader.calls))
			assert.Equal(t, tt.wantRefresh, atomic.LoadInt32(&refresher.calls))
		})
	}
}

func TestTaxonomyWarmTask_WithoutRefresher(t *testing.T) {
	loader := &mockTaxonomy{schema: &service.AspectSchema{Fields: []model.AspectField{{Name: "Game"}}}}
	task := NewTaxonomyWarmTask(loader, nil, model.DefaultCategoryID, nil)
	assert.Equal(t, 1, task.RunOnce(context.Background()))
}

func TestTaskManager_Status(t *testing.T) {
	db := setupTaskTestDB(t)
	deps := &TaskManagerDeps{
		Sessions: &mockCloser{},
		Pending:  repository.NewPendingItemRepository(db),
		Taxonomy: &mockTaxonomy{},
	}

	tm := NewTaskManager(deps, nil)
	assert.Equal(t, map[string]bool{
		"session_cleanup": true,
		"pending_audit":   true,
		"taxonomy_warm":   true,
	}, tm.Status())

	cfg := DefaultConfig()
	cfg.AuditEnabled = false
	cfg.TaxonomyEnabled = false
	tm = NewTaskManager(deps, cfg)
	assert.False(t, tm.Status()["pending_audit"])
	assert.False(t, tm.Status()["taxonomy_warm"])

	tm.Start()
	tm.Stop()
}
