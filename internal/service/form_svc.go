package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"tcg_inventory_v1/internal/model"
)

// ==================== 错误定义 ====================

var (
	ErrSessionClosed      = errors.New("form session is closed")
	ErrSubmitInProgress   = errors.New("form submission already in progress")
	ErrUploadsUnfinished  = errors.New("Please wait for image uploads to finish before saving.")
	ErrUnknownFormField   = errors.New("unknown form field")
	ErrUnknownAspect      = errors.New("unknown aspect")
	ErrAspectsUnavailable = errors.New("Item aspects are not available yet.") // 类目属性未加载
)

// ValidationError 表单校验失败，包含全部错误，首条用于提示
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return "validation failed"
	}
	return e.Errors[0]
}

// ==================== 接口定义 ====================

// SubmitFunc 宿主提供的保存回调 (创建或更新)
type SubmitFunc func(ctx context.Context, payload model.SavePayload) error

// FormHandle 宿主在提交流程中使用的表单句柄
type FormHandle interface {
	UploadPendingImages(ctx context.Context, targetKey string, cb UploadCallbacks) ([]string, error)
	GetLocalPreviewData() []string
}

// ==================== 校验与载荷 ====================

// Validate 收集全部校验错误
func Validate(values model.FormValues, aspects model.AspectValueMap, fields []model.AspectField) []string {
	errs := []string{}

	if strings.TrimSpace(values.Title) == "" {
		errs = append(errs, "Title is required.")
	}
	if values.Locale == "" {
		errs = append(errs, "Locale is required.")
	}
	if q, ok := parseNumber(values.Quantity); !ok || q < 1 {
		errs = append(errs, "Quantity must be at least 1.")
	}
	if len([]rune(values.ConditionDescription)) > model.MaxConditionDescriptionLength {
		errs = append(errs, fmt.Sprintf("Condition description must be %d characters or fewer.", model.MaxConditionDescriptionLength))
	}
	if len(fields) > 0 {
		errs = append(errs, ValidateAspectValues(aspects, fields)...)
	}
	return errs
}

// BuildPayload 组装保存请求体
// 空的可选项省略，属性一律以数组输出，图片只取已托管地址并保持列表顺序
func BuildPayload(values model.FormValues, aspects model.AspectValueMap, images []model.ImageEntry, fieldMap model.AspectFieldMap) model.SavePayload {
	payload := model.SavePayload{
		Locale:               values.Locale,
		Condition:            values.Condition,
		ConditionDescription: values.ConditionDescription,
		Product: model.PayloadProduct{
			Title:       values.Title,
			Description: values.Description,
			Brand:       values.Brand,
		},
	}

	if values.Quantity != "" {
		if q, ok := parseNumber(values.Quantity); ok {
			payload.Availability = &model.PayloadAvailability{
				ShipToLocationAvailability: model.PayloadShipToLocation{Quantity: int(q)},
			}
		}
	}

	aspectPayload := make(map[string][]string)
	for name, raw := range aspects {
		field, ok := fieldMap[name]
		if !ok {
			continue
		}
		if field.IsMulti() {
			if list := NormalizeMulti(raw); len(list) > 0 {
				aspectPayload[name] = list
			}
			continue
		}
		if s := NormalizeSingle(raw); s != "" {
			aspectPayload[name] = []string{s}
		}
	}
	if len(aspectPayload) > 0 {
		payload.Product.Aspects = aspectPayload
	}

	if urls := hostedURLs(images); len(urls) > 0 {
		payload.Product.ImageURLs = urls
	}

	hasDimensions := values.PackageLength != "" || values.PackageWidth != "" || values.PackageHeight != ""
	hasWeight := values.PackageWeightValue != ""
	if hasDimensions || hasWeight {
		detail := &model.PayloadPackageDetail{}
		if hasDimensions {
			detail.Dimensions = &model.PayloadDimensions{
				Length: optionalNumber(values.PackageLength),
				Width:  optionalNumber(values.PackageWidth),
				Height: optionalNumber(values.PackageHeight),
				Unit:   values.PackageDimensionUnit,
			}
		}
		if hasWeight {
			weight, _ := parseNumber(values.PackageWeightValue)
			detail.Weight = &model.PayloadWeight{
				Value: weight,
				Unit:  values.PackageWeightUnit,
			}
		}
		payload.PackageWeightAndSize = detail
	}

	return payload
}

func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

func optionalNumber(s string) *float64 {
	f, ok := parseNumber(s)
	if !ok {
		return nil
	}
	return &f
}

// ==================== 表单会话 ====================

// FormSessionOptions 会话初始化参数
type FormSessionOptions struct {
	ID               string
	Mode             string
	SKU              string
	InitialValues    *model.FormValues
	InitialAspects   map[string]any
	InitialImageURLs []string
	Uploader         *ImageUploader
	Logger           *zap.Logger
}

// SubmitProgress 创建流程进度
type SubmitProgress struct {
	Stage    string `json:"stage"`
	Uploaded int    `json:"uploaded"`
	Total    int    `json:"total"`
	Message  string `json:"message,omitempty"`
}

// FormView 会话快照
type FormView struct {
	ID             string               `json:"id"`
	Mode           string               `json:"mode"`
	SKU            string               `json:"sku,omitempty"`
	Values         model.FormValues     `json:"values"`
	Aspects        model.AspectValueMap `json:"aspects"`
	Groups         []model.FieldGroup   `json:"groups"`
	AspectsWarning string               `json:"aspects_warning,omitempty"`
	Images         []model.ImageEntry   `json:"images"`
	UploadState    string               `json:"upload_state"`
	SubmitState    string               `json:"submit_state"`
	LastError      string               `json:"last_error,omitempty"`
	Notice         string               `json:"notice,omitempty"`
	Progress       *SubmitProgress      `json:"progress,omitempty"`
}

// FormSession 单个库存表单的状态协调
// 状态机: idle -> validating -> submitting -> success | failed; 校验失败回到 idle
type FormSession struct {
	mu sync.Mutex

	id   string
	mode string
	sku  string

	values        model.FormValues
	initialValues model.FormValues

	aspects        model.AspectValueMap
	initialAspects map[string]any
	sanitized      bool

	schema         *AspectSchema
	aspectsWarning string

	submitState string
	lastError   string
	notice      string
	progress    *SubmitProgress

	uploader      *ImageUploader
	initialHosted []model.ImageEntry

	closed     bool
	lastActive time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	logger *zap.Logger
}

var _ FormHandle = (*FormSession)(nil)

func NewFormSession(opts FormSessionOptions) *FormSession {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	uploader := opts.Uploader
	if uploader == nil {
		uploader = NewImageUploader(nil, nil, nil, nil, logger)
	}
	mode := opts.Mode
	if mode != model.FormModeEdit {
		mode = model.FormModeCreate
	}

	initial := model.DefaultFormValues()
	if opts.InitialValues != nil {
		initial = opts.InitialValues.MergeDefaults()
	}

	hosted := HydrateHosted(opts.InitialImageURLs)
	uploader.Replace(hosted)

	ctx, cancel := context.WithCancel(context.Background())
	s := &FormSession{
		id:             opts.ID,
		mode:           mode,
		sku:            opts.SKU,
		values:         initial,
		initialValues:  initial,
		aspects:        model.AspectValueMap(cloneRaw(opts.InitialAspects)),
		initialAspects: cloneRaw(opts.InitialAspects),
		submitState:    model.SubmitStateIdle,
		uploader:       uploader,
		initialHosted:  hosted,
		lastActive:     time.Now(),
		ctx:            ctx,
		cancel:         cancel,
		logger:         logger.With(zap.String("session_id", opts.ID), zap.String("mode", mode)),
	}
	if s.aspects == nil {
		s.aspects = model.AspectValueMap{}
	}
	return s
}

// Handle 提交流程使用的句柄
func (s *FormSession) Handle() FormHandle {
	return s
}

func (s *FormSession) ID() string { return s.id }

// Mode 表单模式
func (s *FormSession) Mode() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mode
}

// SKU 当前目标 SKU
func (s *FormSession) SKU() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sku
}

// SetSKU 创建成功后绑定 SKU
func (s *FormSession) SetSKU(sku string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sku = sku
}

// PromoteToEdit 创建完成后转为编辑模式，当前内容成为新的初始状态
func (s *FormSession) PromoteToEdit(sku string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.mode = model.FormModeEdit
	s.sku = sku
	s.initialValues = s.values
	s.initialAspects = cloneRaw(s.aspects)
	s.initialHosted = nil
	for _, e := range s.uploader.Entries() {
		if e.IsHosted() {
			e.PreviewID = ""
			e.File = nil
			s.initialHosted = append(s.initialHosted, e)
		}
	}
	s.logger = s.logger.With(zap.String("sku", sku))
}

// SetProgress 宿主写入的提交进度，nil 表示清除
func (s *FormSession) SetProgress(p *SubmitProgress) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if p == nil {
		s.progress = nil
		return
	}
	cp := *p
	s.progress = &cp
}

// UpdateProgress 在锁内修改进度
func (s *FormSession) UpdateProgress(fn func(p *SubmitProgress)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.progress == nil {
		s.progress = &SubmitProgress{}
	}
	fn(s.progress)
}

// LastActive 最近一次交互时间
func (s *FormSession) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Closed 是否已关闭
func (s *FormSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Uploader 图片编排器
func (s *FormSession) Uploader() *ImageUploader {
	return s.uploader
}

// touchLocked 记录交互，失败态在新的编辑后回到 idle
func (s *FormSession) touchLocked() {
	s.lastActive = time.Now()
	if s.submitState == model.SubmitStateFailed || s.submitState == model.SubmitStateSuccess {
		s.submitState = model.SubmitStateIdle
	}
}

// ==================== 类目属性 ====================

// ApplySchema 设置类目属性结构
// 初始属性值在首次拿到非空结构时清洗一次，此后仅做按基数的归一与过期键剔除
func (s *FormSession) ApplySchema(schema *AspectSchema, warning string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.schema = schema
	s.aspectsWarning = warning
	if schema.Empty() {
		return
	}

	if !s.sanitized && len(s.initialAspects) > 0 {
		if sanitized := SanitizeForSchema(s.initialAspects, schema.FieldMap); len(sanitized) > 0 {
			s.aspects = sanitized
		}
		s.sanitized = true
	}

	if next, changed := Reconcile(s.aspects, schema.Fields); changed {
		s.aspects = next
	}
}

// SetInitialAspects 替换服务端初始属性值，新值集合会再清洗一次
func (s *FormSession) SetInitialAspects(values map[string]any) {
	s.mu.Lock()
	s.initialAspects = cloneRaw(values)
	s.aspects = model.AspectValueMap(cloneRaw(values))
	if s.aspects == nil {
		s.aspects = model.AspectValueMap{}
	}
	s.sanitized = false
	schema, warning := s.schema, s.aspectsWarning
	s.mu.Unlock()

	if schema != nil {
		s.ApplySchema(schema, warning)
	}
}

// Schema 当前结构
func (s *FormSession) Schema() *AspectSchema {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.schema
}

// Aspects 当前属性值快照
func (s *FormSession) Aspects() model.AspectValueMap {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.aspects.Clone()
}

// SetAspect 修改单个属性，按字段基数归一
func (s *FormSession) SetAspect(name string, raw any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	if s.schema.Empty() {
		return ErrAspectsUnavailable
	}
	field, ok := s.schema.FieldMap[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownAspect, name)
	}

	if field.IsMulti() {
		s.aspects[name] = NormalizeMulti(raw)
	} else {
		s.aspects[name] = NormalizeSingle(raw)
	}
	s.touchLocked()
	return nil
}

// VisibleOptions 指定字段当前可见选项
func (s *FormSession) VisibleOptions(name string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.schema.Empty() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAspect, name)
	}
	field, ok := s.schema.FieldMap[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAspect, name)
	}
	return VisibleOptions(field, s.aspects), nil
}

// ==================== 表单值 ====================

// Values 当前表单值
func (s *FormSession) Values() model.FormValues {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values
}

// PatchValues 按 JSON 字段名批量修改表单值
func (s *FormSession) PatchValues(patch map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}

	current := map[string]string{}
	raw, err := json.Marshal(s.values)
	if err != nil {
		return fmt.Errorf("序列化表单值失败: %w", err)
	}
	if err := json.Unmarshal(raw, &current); err != nil {
		return fmt.Errorf("解析表单值失败: %w", err)
	}
	for key, value := range patch {
		if _, ok := current[key]; !ok {
			return fmt.Errorf("%w: %s", ErrUnknownFormField, key)
		}
		current[key] = value
	}

	merged, err := json.Marshal(current)
	if err != nil {
		return fmt.Errorf("序列化表单值失败: %w", err)
	}
	var next model.FormValues
	if err := json.Unmarshal(merged, &next); err != nil {
		return fmt.Errorf("解析表单值失败: %w", err)
	}
	s.values = next
	s.touchLocked()
	return nil
}

// ==================== 图片 ====================

// AddImages 追加本地图片，编辑模式下自动触发上传
func (s *FormSession) AddImages(ctx context.Context, files []*model.LocalFile) (AddFilesResult, error) {
	if s.Closed() {
		return AddFilesResult{}, ErrSessionClosed
	}
	result := s.uploader.Add(files)
	s.afterImagesChanged(ctx)
	return result, nil
}

// RemoveImage 移除图片
func (s *FormSession) RemoveImage(ctx context.Context, id string) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	if err := s.uploader.Remove(id); err != nil {
		return err
	}
	s.afterImagesChanged(ctx)
	return nil
}

// ReorderImages 拖拽排序
func (s *FormSession) ReorderImages(ctx context.Context, from, to int) error {
	if s.Closed() {
		return ErrSessionClosed
	}
	if err := s.uploader.OnReorder(from, to); err != nil {
		return err
	}
	s.afterImagesChanged(ctx)
	return nil
}

// Images 图片列表快照
func (s *FormSession) Images() []model.ImageEntry {
	return s.uploader.Entries()
}

// Preview 本地图片预览内容，已托管或已释放时返回 false
func (s *FormSession) Preview(imageID string) (*model.LocalFile, bool) {
	for _, e := range s.uploader.Entries() {
		if e.ID != imageID {
			continue
		}
		if e.PreviewID == "" {
			return nil, false
		}
		return s.uploader.Previews().Get(e.PreviewID)
	}
	return nil, false
}

// UploadPendingImages 上传待传图片，targetKey 为空时使用会话 SKU
func (s *FormSession) UploadPendingImages(ctx context.Context, targetKey string, cb UploadCallbacks) ([]string, error) {
	if s.Closed() {
		return nil, ErrSessionClosed
	}
	if targetKey == "" {
		targetKey = s.SKU()
	}
	return s.uploader.UploadPending(ctx, targetKey, cb)
}

// GetLocalPreviewData 剩余本地预览的 data: URL
func (s *FormSession) GetLocalPreviewData() []string {
	return s.uploader.LocalPreviewData()
}

// afterImagesChanged 编辑模式下存在新的待传图片时后台上传
// 后台上传沿用调用方 context 中的凭证，生命周期跟随会话
func (s *FormSession) afterImagesChanged(ctx context.Context) {
	s.mu.Lock()
	s.touchLocked()
	sku, mode, closed := s.sku, s.mode, s.closed
	s.mu.Unlock()

	if mode != model.FormModeEdit || sku == "" || closed {
		return
	}
	if s.uploader.InFlight() || !hasFreshPending(s.uploader.Entries()) {
		return
	}

	if ctx == nil {
		ctx = context.Background()
	}
	uploadCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stop := context.AfterFunc(s.ctx, cancel)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer stop()
		defer cancel()
		// 批次进行中新加入的图片在释放占用后补传
		var err error
		for {
			_, err = s.uploader.UploadPending(uploadCtx, sku, UploadCallbacks{})
			if err != nil || !hasFreshPending(s.uploader.Entries()) {
				break
			}
		}
		if err == nil || errors.Is(err, ErrUploadInFlight) {
			return
		}
		msg := err.Error()
		if msg == "" {
			msg = "Failed to upload images."
		}
		s.mu.Lock()
		s.notice = msg
		s.mu.Unlock()
		s.logger.Warn("auto upload failed", zap.String("sku", sku), zap.Error(err))
	}()
}

// WaitUploads 等待后台上传结束
func (s *FormSession) WaitUploads() {
	s.wg.Wait()
}

func hasFreshPending(entries []model.ImageEntry) bool {
	for _, e := range entries {
		if e.IsLocal() && e.Status == model.ImageStatusPending {
			return true
		}
	}
	return false
}

// ==================== 提交 ====================

// Validate 校验当前表单
func (s *FormSession) Validate() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Validate(s.values, s.aspects, s.fieldsLocked())
}

// Payload 当前表单对应的保存请求体
func (s *FormSession) Payload() model.SavePayload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return BuildPayload(s.values, s.aspects, s.uploader.Entries(), s.fieldMapLocked())
}

// Submit 校验并调用宿主保存回调
// 失败时保留表单状态并记录错误信息，成功时清除错误
func (s *FormSession) Submit(ctx context.Context, submit SubmitFunc) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrSessionClosed
	}
	if s.submitState == model.SubmitStateValidating || s.submitState == model.SubmitStateSubmitting {
		s.mu.Unlock()
		return ErrSubmitInProgress
	}
	s.lastActive = time.Now()
	s.submitState = model.SubmitStateValidating

	if errs := Validate(s.values, s.aspects, s.fieldsLocked()); len(errs) > 0 {
		s.submitState = model.SubmitStateIdle
		s.mu.Unlock()
		return &ValidationError{Errors: errs}
	}

	if s.mode == model.FormModeEdit && s.uploader.HasUnfinishedLocal() {
		s.submitState = model.SubmitStateIdle
		s.notice = ErrUploadsUnfinished.Error()
		s.mu.Unlock()
		return ErrUploadsUnfinished
	}

	payload := BuildPayload(s.values, s.aspects, s.uploader.Entries(), s.fieldMapLocked())
	s.submitState = model.SubmitStateSubmitting
	s.mu.Unlock()

	var err error
	if submit != nil {
		err = submit(ctx, payload)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err != nil {
		s.submitState = model.SubmitStateFailed
		s.lastError = err.Error()
		if s.lastError == "" {
			s.lastError = "Failed to save inventory item."
		}
		return err
	}
	s.submitState = model.SubmitStateSuccess
	s.lastError = ""
	s.notice = ""
	return nil
}

// SubmitState 提交状态
func (s *FormSession) SubmitState() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.submitState
}

// SetLastError 宿主写入的提交错误信息
func (s *FormSession) SetLastError(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastError = msg
}

// ==================== 生命周期 ====================

// Reset 恢复初始值，释放全部本地预览并恢复初始托管图片
func (s *FormSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrSessionClosed
	}
	if s.uploader.InFlight() {
		return ErrUploadInFlight
	}

	s.values = s.initialValues
	if !s.schema.Empty() {
		s.aspects = SanitizeForSchema(s.initialAspects, s.schema.FieldMap)
		if next, changed := Reconcile(s.aspects, s.schema.Fields); changed {
			s.aspects = next
		}
	} else {
		s.aspects = model.AspectValueMap(cloneRaw(s.initialAspects))
		if s.aspects == nil {
			s.aspects = model.AspectValueMap{}
		}
	}
	s.uploader.Replace(s.initialHosted)
	s.submitState = model.SubmitStateIdle
	s.lastError = ""
	s.notice = ""
	s.lastActive = time.Now()
	return nil
}

// Close 关闭会话，取消后台上传并释放全部本地预览
// 重复调用安全
func (s *FormSession) Close() int {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return 0
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
	released := s.uploader.ReleaseAll()
	s.logger.Debug("form session closed", zap.Int("released_previews", released))
	return released
}

// View 会话快照
func (s *FormSession) View() FormView {
	s.mu.Lock()
	defer s.mu.Unlock()

	view := FormView{
		ID:             s.id,
		Mode:           s.mode,
		SKU:            s.sku,
		Values:         s.values,
		Aspects:        s.aspects.Clone(),
		Groups:         []model.FieldGroup{},
		AspectsWarning: s.aspectsWarning,
		Images:         s.uploader.Entries(),
		UploadState:    s.uploader.UploadState(),
		SubmitState:    s.submitState,
		LastError:      s.lastError,
		Notice:         s.notice,
	}
	if s.progress != nil {
		p := *s.progress
		view.Progress = &p
	}
	if !s.schema.Empty() {
		view.Groups = s.schema.Groups
	}
	return view
}

func (s *FormSession) fieldsLocked() []model.AspectField {
	if s.schema.Empty() {
		return nil
	}
	return s.schema.Fields
}

func (s *FormSession) fieldMapLocked() model.AspectFieldMap {
	if s.schema.Empty() {
		return model.AspectFieldMap{}
	}
	return s.schema.FieldMap
}

func cloneRaw(values map[string]any) map[string]any {
	if values == nil {
		return nil
	}
	out := make(map[string]any, len(values))
	for k, v := range values {
		out[k] = v
	}
	return out
}
