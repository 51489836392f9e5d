package controller

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"tcg_inventory_v1/internal/api/dto"
	"tcg_inventory_v1/internal/middleware"
	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/internal/service"
	"tcg_inventory_v1/pkg/net"
)

// 单个文件上限
const maxImageFileSize = 20 << 20

// ==================== 控制器 ====================

// FormController 库存表单会话控制器
type FormController struct {
	workbench *service.WorkbenchService
	cooldown  *middleware.CooldownLimiter
	logger    *zap.Logger
}

func NewFormController(workbench *service.WorkbenchService, cooldown *middleware.CooldownLimiter, logger *zap.Logger) *FormController {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FormController{workbench: workbench, cooldown: cooldown, logger: logger}
}

// ==================== 会话 ====================

// Open 打开表单会话
// @Summary 打开库存表单
// @Description 创建模式返回空表单；编辑模式按 SKU 加载已有库存记录
// @Tags Form (库存表单)
// @Accept json
// @Produce json
// @Param x-authorization-token header string false "库存接口令牌"
// @Param body body dto.OpenFormReq true "打开请求"
// @Success 201 {object} service.FormView
// @Failure 400 {object} map[string]interface{} "参数错误"
// @Failure 404 {object} map[string]interface{} "库存记录不存在"
// @Router /api/forms [post]
func (ctrl *FormController) Open(c *gin.Context) {
	var req dto.OpenFormReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	session, err := ctrl.workbench.Open(c.Request.Context(), service.OpenRequest{
		Mode:       req.Mode,
		SKU:        req.SKU,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		ctrl.respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"code": 0, "message": "success", "data": session.View()})
}

// List 活跃会话
// @Summary 活跃表单会话
// @Tags Form (库存表单)
// @Produce json
// @Success 200 {object} dto.SessionListResp
// @Router /api/forms [get]
func (ctrl *FormController) List(c *gin.Context) {
	ids := ctrl.workbench.IDs()
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": dto.SessionListResp{Total: len(ids), IDs: ids}})
}

// Get 会话快照
// @Summary 获取表单状态
// @Tags Form (库存表单)
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} service.FormView
// @Failure 404 {object} map[string]interface{} "会话不存在"
// @Router /api/forms/{id} [get]
func (ctrl *FormController) Get(c *gin.Context) {
	session, ok := ctrl.session(c)
	if !ok {
		return
	}
	// 属性加载失败的会话在查看时重试
	ctrl.workbench.RefreshSchema(c.Request.Context(), session)
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": session.View()})
}

// Close 关闭会话并释放本地预览
// @Summary 关闭表单
// @Tags Form (库存表单)
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/forms/{id} [delete]
func (ctrl *FormController) Close(c *gin.Context) {
	id := c.Param("id")
	released, err := ctrl.workbench.Close(c.Request.Context(), id)
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	if ctrl.cooldown != nil {
		ctrl.cooldown.ResetSession(id)
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": gin.H{"released_previews": released}})
}

// Reset 恢复初始状态
// @Summary 重置表单
// @Tags Form (库存表单)
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} service.FormView
// @Failure 409 {object} map[string]interface{} "上传进行中"
// @Router /api/forms/{id}/reset [post]
func (ctrl *FormController) Reset(c *gin.Context) {
	session, ok := ctrl.session(c)
	if !ok {
		return
	}
	if err := session.Reset(); err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": session.View()})
}

// ==================== 字段与属性 ====================

// PatchValues 修改表单字段
// @Summary 修改表单字段
// @Tags Form (库存表单)
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param body body dto.PatchValuesReq true "字段值"
// @Success 200 {object} service.FormView
// @Router /api/forms/{id}/values [patch]
func (ctrl *FormController) PatchValues(c *gin.Context) {
	session, ok := ctrl.session(c)
	if !ok {
		return
	}
	var req dto.PatchValuesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}
	if err := session.PatchValues(req.Values); err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": session.View()})
}

// SetAspect 设置属性值
// @Summary 设置属性值
// @Tags Form (库存表单)
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param body body dto.SetAspectReq true "属性值"
// @Success 200 {object} service.FormView
// @Router /api/forms/{id}/aspects [put]
func (ctrl *FormController) SetAspect(c *gin.Context) {
	session, ok := ctrl.session(c)
	if !ok {
		return
	}
	var req dto.SetAspectReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}
	if err := session.SetAspect(req.Name, req.Value); err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": session.View()})
}

// AspectOptions 按当前取值过滤后的可选项
// @Summary 属性可见选项
// @Tags Form (库存表单)
// @Produce json
// @Param id path string true "会话ID"
// @Param name query string true "属性名"
// @Success 200 {object} dto.VisibleOptionsResp
// @Router /api/forms/{id}/aspects/options [get]
func (ctrl *FormController) AspectOptions(c *gin.Context) {
	session, ok := ctrl.session(c)
	if !ok {
		return
	}
	name := c.Query("name")
	options, err := session.VisibleOptions(name)
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": dto.VisibleOptionsResp{Name: name, Options: options}})
}

// ==================== 图片 ====================

// AddImages 添加本地图片 (multipart, 字段名 files)
// @Summary 添加图片
// @Description 超出上限或类型不支持的文件会被跳过，原因在 rejected_reasons 中返回
// @Tags Form (库存表单)
// @Accept multipart/form-data
// @Produce json
// @Param id path string true "会话ID"
// @Param files formData file true "图片文件"
// @Success 200 {object} service.AddFilesResult
// @Router /api/forms/{id}/images [post]
func (ctrl *FormController) AddImages(c *gin.Context) {
	session, ok := ctrl.session(c)
	if !ok {
		return
	}
	form, err := c.MultipartForm()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}

	headers := form.File["files"]
	remaining := model.MaxImageCount - len(session.Uploader().Entries())
	files := make([]*model.LocalFile, 0, len(headers))
	var reasons []string
	accepted := 0
	for i, fh := range headers {
		// 名额已满则不再读取剩余文件
		if accepted >= remaining {
			reasons = append(reasons, service.CapacityReason(remaining))
			ctrl.logger.Debug("skip files over capacity", zap.Int("skipped", len(headers)-i))
			break
		}
		file, err := readLocalFile(fh)
		if errors.Is(err, errFileTooLarge) {
			reasons = append(reasons, err.Error())
			continue
		}
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": err.Error()})
			return
		}
		if service.IsAcceptableImage(file) {
			accepted++
		}
		files = append(files, file)
	}

	result, err := session.AddImages(c.Request.Context(), files)
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	if len(reasons) > 0 {
		result.RejectedReasons = append(reasons, result.RejectedReasons...)
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": result})
}

var errFileTooLarge = fmt.Errorf("exceeds the %d MB limit", maxImageFileSize>>20)

func readLocalFile(fh *multipart.FileHeader) (*model.LocalFile, error) {
	if fh.Size > maxImageFileSize {
		return nil, fmt.Errorf("%s %w", fh.Filename, errFileTooLarge)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageFileSize+1))
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	if len(data) > maxImageFileSize {
		return nil, fmt.Errorf("%s %w", fh.Filename, errFileTooLarge)
	}

	contentType := fh.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		contentType = http.DetectContentType(data)
	}
	return &model.LocalFile{Name: fh.Filename, ContentType: contentType, Data: data}, nil
}

// RemoveImage 移除图片
// @Summary 移除图片
// @Tags Form (库存表单)
// @Produce json
// @Param id path string true "会话ID"
// @Param image_id path string true "图片ID"
// @Success 200 {object} service.FormView
// @Failure 409 {object} map[string]interface{} "图片上传中"
// @Router /api/forms/{id}/images/{image_id} [delete]
func (ctrl *FormController) RemoveImage(c *gin.Context) {
	session, ok := ctrl.session(c)
	if !ok {
		return
	}
	if err := session.RemoveImage(c.Request.Context(), c.Param("image_id")); err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": session.View()})
}

// ReorderImages 拖拽排序
// @Summary 图片排序
// @Tags Form (库存表单)
// @Accept json
// @Produce json
// @Param id path string true "会话ID"
// @Param body body dto.ReorderImagesReq true "起止位置"
// @Success 200 {object} service.FormView
// @Router /api/forms/{id}/images/reorder [post]
func (ctrl *FormController) ReorderImages(c *gin.Context) {
	session, ok := ctrl.session(c)
	if !ok {
		return
	}
	var req dto.ReorderImagesReq
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": "参数错误: " + err.Error()})
		return
	}
	if err := session.ReorderImages(c.Request.Context(), *req.From, *req.To); err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": session.View()})
}

// UploadImages 立即上传待传图片
// @Summary 上传待传图片
// @Tags Form (库存表单)
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} dto.UploadImagesResp
// @Failure 409 {object} map[string]interface{} "已有批次进行中"
// @Router /api/forms/{id}/images/upload [post]
func (ctrl *FormController) UploadImages(c *gin.Context) {
	uploaded, err := ctrl.workbench.UploadImages(c.Request.Context(), c.Param("id"))
	if err != nil {
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": dto.UploadImagesResp{Uploaded: uploaded}})
}

// Preview 本地图片预览
// @Summary 本地图片预览
// @Tags Form (库存表单)
// @Produce octet-stream
// @Param id path string true "会话ID"
// @Param image_id path string true "图片ID"
// @Success 200 {file} binary
// @Router /api/forms/{id}/images/{image_id}/preview [get]
func (ctrl *FormController) Preview(c *gin.Context) {
	session, ok := ctrl.session(c)
	if !ok {
		return
	}
	file, found := session.Preview(c.Param("image_id"))
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"code": 404, "message": service.ErrEntryNotFound.Error()})
		return
	}
	c.Data(http.StatusOK, file.ContentType, file.Data)
}

// PreviewData 剩余本地预览的 data: URL
// @Summary 本地预览数据
// @Tags Form (库存表单)
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} map[string]interface{}
// @Router /api/forms/{id}/previews [get]
func (ctrl *FormController) PreviewData(c *gin.Context) {
	session, ok := ctrl.session(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": "success", "data": session.GetLocalPreviewData()})
}

// ==================== 提交 ====================

// Submit 保存表单
// @Summary 保存库存
// @Description 创建模式: 创建商品后上传图片；编辑模式: 更新商品
// @Tags Form (库存表单)
// @Produce json
// @Param id path string true "会话ID"
// @Success 200 {object} service.SubmitResult
// @Failure 400 {object} map[string]interface{} "校验失败"
// @Failure 409 {object} map[string]interface{} "图片上传未完成"
// @Failure 502 {object} map[string]interface{} "商品已创建但图片上传失败"
// @Router /api/forms/{id}/submit [post]
func (ctrl *FormController) Submit(c *gin.Context) {
	result, err := ctrl.workbench.Submit(c.Request.Context(), c.Param("id"))
	if err != nil {
		var partial *service.PartialCreateError
		if errors.As(err, &partial) {
			c.JSON(http.StatusBadGateway, gin.H{"code": 502, "message": err.Error(), "data": result})
			return
		}
		ctrl.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": 0, "message": result.Message, "data": result})
}

// ==================== 辅助函数 ====================

func (ctrl *FormController) session(c *gin.Context) (*service.FormSession, bool) {
	session, err := ctrl.workbench.Get(c.Param("id"))
	if err != nil {
		ctrl.respondError(c, err)
		return nil, false
	}
	return session, true
}

// respondError 业务错误映射为 HTTP 状态
func (ctrl *FormController) respondError(c *gin.Context, err error) {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		c.JSON(http.StatusBadRequest, gin.H{"code": 400, "message": vErr.Error(), "data": gin.H{"errors": vErr.Errors}})
		return
	}

	status := statusOf(err)
	if status >= http.StatusInternalServerError {
		ctrl.logger.Error("form request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.JSON(status, gin.H{"code": status, "message": err.Error()})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, net.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, net.ErrDemoRestricted):
		return http.StatusForbidden
	case errors.Is(err, service.ErrSessionNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrEntryNotFound):
		return http.StatusNotFound
	case errors.Is(err, service.ErrUploadInFlight),
		errors.Is(err, service.ErrSubmitInProgress),
		errors.Is(err, service.ErrUploadsUnfinished),
		errors.Is(err, service.ErrEntryUploading),
		errors.Is(err, service.ErrAspectsUnavailable),
		errors.Is(err, service.ErrSessionClosed):
		return http.StatusConflict
	case errors.Is(err, service.ErrUnknownFormField),
		errors.Is(err, service.ErrUnknownAspect),
		errors.Is(err, service.ErrInvalidPosition),
		errors.Is(err, service.ErrMissingSKU),
		errors.Is(err, service.ErrMissingFilename),
		errors.Is(err, service.ErrMissingTargetKey):
		return http.StatusBadRequest
	}

	var apiErr *net.APIError
	if errors.As(err, &apiErr) && apiErr.Status >= 400 && apiErr.Status < 500 {
		return apiErr.Status
	}
	if apiErr != nil {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}
