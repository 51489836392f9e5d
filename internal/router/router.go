package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"tcg_inventory_v1/internal/controller"
	"tcg_inventory_v1/internal/middleware"

	_ "tcg_inventory_v1/docs"
)

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine,
	formCtl *controller.FormController,
	cooldown *middleware.CooldownLimiter,
	metricsHandler http.Handler) {
	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 2. 运维
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(metricsHandler))
	}

	// 3. API 路由组
	api := r.Group("/api")
	api.Use(middleware.Credentials())
	{
		// forms 库存表单会话
		forms := api.Group("/forms")
		{
			forms.POST("", formCtl.Open)
			forms.GET("", formCtl.List)
			forms.GET("/:id", formCtl.Get)
			forms.DELETE("/:id", formCtl.Close)
			forms.POST("/:id/reset", formCtl.Reset)

			// 字段与属性
			forms.PATCH("/:id/values", formCtl.PatchValues)
			forms.PUT("/:id/aspects", formCtl.SetAspect)
			forms.GET("/:id/aspects/options", formCtl.AspectOptions)

			// 图片
			forms.POST("/:id/images", formCtl.AddImages)
			forms.POST("/:id/images/reorder", formCtl.ReorderImages)
			forms.POST("/:id/images/upload",
				middleware.SessionCooldown(cooldown, middleware.ActionUpload, 0),
				formCtl.UploadImages,
			)
			forms.DELETE("/:id/images/:image_id", formCtl.RemoveImage)
			forms.GET("/:id/images/:image_id/preview", formCtl.Preview)
			forms.GET("/:id/previews", formCtl.PreviewData)

			// POST /api/forms/:id/submit
			forms.POST("/:id/submit",
				middleware.SessionCooldown(cooldown, middleware.ActionSubmit, 0),
				formCtl.Submit,
			)
		}
	}
}
