package router

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"tcg_inventory_v1/internal/controller"
	"tcg_inventory_v1/internal/middleware"
	"tcg_inventory_v1/internal/service"
	"tcg_inventory_v1/pkg/metrics"
)

func setupRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	workbench := service.NewWorkbenchService(service.WorkbenchDeps{})
	cooldown := middleware.NewCooldownLimiter()
	m := metrics.NewWorkbenchMetrics("router_test")

	r := gin.New()
	InitRoutes(r, controller.NewFormController(workbench, cooldown, nil), cooldown, m.Handler())
	return r
}

func TestInitRoutes(t *testing.T) {
	r := setupRouter()

	tests := []struct {
		name       string
		method     string
		path       string
		wantStatus int
		wantBody   string
	}{
		{"健康检查", http.MethodGet, "/healthz", http.StatusOK, `"status":"ok"`},
		{"指标", http.MethodGet, "/metrics", http.StatusOK, "tcg_workbench"},
		{"文档", http.MethodGet, "/swagger/doc.json", http.StatusOK, "/api/forms"},
		{"会话列表", http.MethodGet, "/api/forms", http.StatusOK, `"total":0`},
		{"会话不存在", http.MethodGet, "/api/forms/missing", http.StatusNotFound, "form session not found"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			r.ServeHTTP(w, httptest.NewRequest(tt.method, tt.path, nil))
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.wantBody)
		})
	}
}
