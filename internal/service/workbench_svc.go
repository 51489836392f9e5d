package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/internal/repository"
)

var ErrSessionNotFound = errors.New("form session not found")

// ==================== 接口定义 ====================

// WorkbenchRecorder 会话与提交指标
type WorkbenchRecorder interface {
	UploadRecorder
	SessionOpened()
	SessionClosed()
	ObserveSubmit(mode string, err error)
}

type noopWorkbenchRecorder struct {
	noopUploadRecorder
}

func (noopWorkbenchRecorder) SessionOpened()              {}
func (noopWorkbenchRecorder) SessionClosed()              {}
func (noopWorkbenchRecorder) ObserveSubmit(string, error) {}

// ==================== 请求与结果 ====================

// OpenRequest 打开表单会话
type OpenRequest struct {
	Mode       string `json:"mode"`
	SKU        string `json:"sku"`
	CategoryID string `json:"category_id"`
}

// SubmitResult 提交结果
type SubmitResult struct {
	SKU              string   `json:"sku"`
	Message          string   `json:"message"`
	Uploaded         []string `json:"uploaded"`
	FallbackPreviews []string `json:"fallback_previews,omitempty"`
	Stage            string   `json:"stage"`
}

// PartialCreateError 商品已创建但图片上传失败
type PartialCreateError struct {
	SKU string
	Err error
}

func (e *PartialCreateError) Error() string {
	msg := "Failed to upload images."
	if e.Err != nil && e.Err.Error() != "" {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s Inventory item %s was created successfully. Submit again to retry the uploads, or edit the item later from the inventory page.", msg, e.SKU)
}

func (e *PartialCreateError) Unwrap() error {
	return e.Err
}

// ==================== 服务 ====================

// WorkbenchDeps 工作台依赖
type WorkbenchDeps struct {
	Taxonomy   *TaxonomyService
	Store      InventoryStore
	Loader     ItemLoader
	Issuer     UploadURLIssuer
	Transfer   ObjectTransfer
	Pending    repository.PendingItemRepository
	Recorder   WorkbenchRecorder
	CategoryID string
	Logger     *zap.Logger
}

// WorkbenchService 表单会话注册表与保存流程
type WorkbenchService struct {
	mu       sync.RWMutex
	sessions map[string]*FormSession

	taxonomy   *TaxonomyService
	store      InventoryStore
	loader     ItemLoader
	issuer     UploadURLIssuer
	transfer   ObjectTransfer
	pending    repository.PendingItemRepository
	recorder   WorkbenchRecorder
	categoryID string
	logger     *zap.Logger
}

func NewWorkbenchService(deps WorkbenchDeps) *WorkbenchService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	recorder := deps.Recorder
	if recorder == nil {
		recorder = noopWorkbenchRecorder{}
	}
	categoryID := deps.CategoryID
	if categoryID == "" {
		categoryID = model.DefaultCategoryID
	}
	return &WorkbenchService{
		sessions:   make(map[string]*FormSession),
		taxonomy:   deps.Taxonomy,
		store:      deps.Store,
		loader:     deps.Loader,
		issuer:     deps.Issuer,
		transfer:   deps.Transfer,
		pending:    deps.Pending,
		recorder:   recorder,
		categoryID: categoryID,
		logger:     logger,
	}
}

// Open 创建表单会话，编辑模式先加载已有库存记录
func (s *WorkbenchService) Open(ctx context.Context, req OpenRequest) (*FormSession, error) {
	mode := req.Mode
	if mode != model.FormModeEdit {
		mode = model.FormModeCreate
	}

	opts := FormSessionOptions{
		ID:   uuid.New().String(),
		Mode: mode,
	}

	if mode == model.FormModeEdit {
		if req.SKU == "" {
			return nil, ErrMissingSKU
		}
		if s.loader == nil {
			return nil, fmt.Errorf("库存读取未配置")
		}
		record, err := s.loader.GetItem(ctx, req.SKU)
		if err != nil {
			return nil, err
		}
		values := RecordToFormValues(record)
		opts.SKU = req.SKU
		opts.InitialValues = &values
		opts.InitialAspects = RecordToAspectValues(record)
		opts.InitialImageURLs = RecordToImageURLs(record)
	}

	logger := s.logger.With(zap.String("session_id", opts.ID))
	opts.Logger = logger
	opts.Uploader = NewImageUploader(NewPreviewStore(), s.issuer, s.transfer, s.recorder, logger)
	session := NewFormSession(opts)

	if s.taxonomy != nil {
		categoryID := req.CategoryID
		if categoryID == "" {
			categoryID = s.categoryID
		}
		schema, warning := s.taxonomy.Load(ctx, categoryID)
		session.ApplySchema(schema, warning)
	}

	s.mu.Lock()
	s.sessions[session.ID()] = session
	s.mu.Unlock()
	s.recorder.SessionOpened()

	logger.Info("form session opened", zap.String("mode", mode), zap.String("sku", opts.SKU))
	return session, nil
}

// Get 查找会话
func (s *WorkbenchService) Get(id string) (*FormSession, error) {
	s.mu.RLock()
	session, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok || session.Closed() {
		return nil, ErrSessionNotFound
	}
	return session, nil
}

// Close 关闭并移除会话，返回释放的预览数
func (s *WorkbenchService) Close(ctx context.Context, id string) (int, error) {
	s.mu.Lock()
	session, ok := s.sessions[id]
	delete(s.sessions, id)
	s.mu.Unlock()
	if !ok {
		return 0, ErrSessionNotFound
	}

	released := session.Close()
	s.recorder.SessionClosed()
	if s.pending != nil {
		if err := s.pending.DeleteBySession(ctx, id); err != nil {
			s.logger.Warn("delete pending item failed", zap.String("session_id", id), zap.Error(err))
		}
	}
	return released, nil
}

// CloseIdle 关闭超过 ttl 未活动且没有上传中的会话
func (s *WorkbenchService) CloseIdle(ctx context.Context, ttl time.Duration) int {
	cutoff := time.Now().Add(-ttl)

	s.mu.RLock()
	var idle []string
	for id, session := range s.sessions {
		if session.LastActive().Before(cutoff) && !session.Uploader().InFlight() {
			idle = append(idle, id)
		}
	}
	s.mu.RUnlock()

	closed := 0
	for _, id := range idle {
		if _, err := s.Close(ctx, id); err == nil {
			closed++
		}
	}
	return closed
}

// Count 活跃会话数
func (s *WorkbenchService) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// IDs 活跃会话 ID (有序)
func (s *WorkbenchService) IDs() []string {
	s.mu.RLock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// CloseAll 关闭全部会话 (退出时)
func (s *WorkbenchService) CloseAll(ctx context.Context) int {
	closed := 0
	for _, id := range s.IDs() {
		if _, err := s.Close(ctx, id); err == nil {
			closed++
		}
	}
	return closed
}

// RefreshSchema 会话属性结构为空时重新加载，返回是否已拿到字段
func (s *WorkbenchService) RefreshSchema(ctx context.Context, session *FormSession) bool {
	if s.taxonomy == nil || session == nil {
		return false
	}
	current := session.Schema()
	if !current.Empty() {
		return false
	}
	categoryID := s.categoryID
	if current != nil && current.CategoryID != "" {
		categoryID = current.CategoryID
	}

	schema, warning := s.taxonomy.Load(ctx, categoryID)
	session.ApplySchema(schema, warning)
	return !schema.Empty()
}

// RefreshSchemas 对全部降级会话重新加载属性结构，返回恢复的会话数
func (s *WorkbenchService) RefreshSchemas(ctx context.Context) int {
	recovered := 0
	for _, id := range s.IDs() {
		session, err := s.Get(id)
		if err != nil {
			continue
		}
		if s.RefreshSchema(ctx, session) {
			recovered++
		}
	}
	return recovered
}

// UploadImages 立即上传会话中的待传图片
func (s *WorkbenchService) UploadImages(ctx context.Context, id string) ([]string, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	return session.UploadPendingImages(ctx, "", UploadCallbacks{})
}

// Submit 保存表单
// 创建: 创建商品 -> 上传图片 -> 转为编辑模式；编辑: 直接更新
func (s *WorkbenchService) Submit(ctx context.Context, id string) (*SubmitResult, error) {
	session, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	mode := session.Mode()
	result := &SubmitResult{Uploaded: []string{}}

	var submit SubmitFunc
	if mode == model.FormModeEdit {
		submit = func(ctx context.Context, payload model.SavePayload) error {
			if err := s.store.UpdateItem(ctx, session.SKU(), payload); err != nil {
				return err
			}
			result.SKU = session.SKU()
			result.Message = "Inventory item updated successfully."
			return nil
		}
	} else {
		submit = func(ctx context.Context, payload model.SavePayload) error {
			return s.create(ctx, session, payload, result)
		}
	}

	err = session.Submit(ctx, submit)
	s.recorder.ObserveSubmit(mode, err)
	if err != nil {
		var partial *PartialCreateError
		if errors.As(err, &partial) {
			result.Stage = model.SubmitStageError
			return result, err
		}
		return nil, err
	}
	return result, nil
}

func (s *WorkbenchService) create(ctx context.Context, session *FormSession, payload model.SavePayload, result *SubmitResult) error {
	logger := s.logger.With(zap.String("session_id", session.ID()))
	session.SetProgress(&SubmitProgress{Stage: model.SubmitStageCreating})

	// 上次已创建但图片未传完时复用 SKU
	sku := session.SKU()
	if sku == "" && s.pending != nil {
		if item, err := s.pending.GetPending(ctx, session.ID()); err != nil {
			logger.Warn("load pending item failed", zap.Error(err))
		} else if item != nil {
			sku = item.SKU
		}
	}

	if sku == "" {
		created, err := s.store.CreateItem(ctx, payload)
		if err != nil {
			session.SetProgress(&SubmitProgress{Stage: model.SubmitStageError, Message: err.Error()})
			return err
		}
		sku = created
		session.SetSKU(sku)
		if s.pending != nil {
			if err := s.pending.Remember(ctx, session.ID(), sku); err != nil {
				logger.Warn("remember pending item failed", zap.String("sku", sku), zap.Error(err))
			}
		}
	} else {
		session.SetSKU(sku)
		if err := s.store.UpdateItem(ctx, sku, payload); err != nil {
			session.SetProgress(&SubmitProgress{Stage: model.SubmitStageError, Message: err.Error()})
			return err
		}
	}
	result.SKU = sku

	session.UpdateProgress(func(p *SubmitProgress) { p.Stage = model.SubmitStageUploading })
	uploaded, err := session.UploadPendingImages(ctx, sku, UploadCallbacks{
		OnStart: func(total int) {
			session.UpdateProgress(func(p *SubmitProgress) { p.Total = total })
		},
		OnProgress: func(completed, total int) {
			session.UpdateProgress(func(p *SubmitProgress) {
				p.Uploaded = completed
				p.Total = total
			})
		},
	})
	result.Uploaded = append(result.Uploaded, uploaded...)
	if err != nil {
		partial := &PartialCreateError{SKU: sku, Err: err}
		session.UpdateProgress(func(p *SubmitProgress) {
			p.Stage = model.SubmitStageError
			p.Message = partial.Error()
		})
		if s.pending != nil {
			if recErr := s.pending.RecordFailure(ctx, session.ID(), err.Error()); recErr != nil {
				logger.Warn("record pending failure failed", zap.String("sku", sku), zap.Error(recErr))
			}
		}
		return partial
	}

	result.FallbackPreviews = session.GetLocalPreviewData()
	if s.pending != nil {
		if err := s.pending.Resolve(ctx, session.ID()); err != nil {
			logger.Warn("resolve pending item failed", zap.String("sku", sku), zap.Error(err))
		}
	}

	result.Stage = model.SubmitStageRedirecting
	result.Message = fmt.Sprintf("Inventory item %s created successfully.", sku)
	session.UpdateProgress(func(p *SubmitProgress) {
		p.Stage = model.SubmitStageRedirecting
		p.Message = result.Message
	})
	session.PromoteToEdit(sku)
	logger.Info("inventory item created with images", zap.String("sku", sku), zap.Int("images", len(uploaded)))
	return nil
}
