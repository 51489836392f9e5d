package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/pkg/utils"
)

// ==================== 错误定义 ====================

var (
	ErrUploadInFlight   = errors.New("image upload already in progress")
	ErrMissingTargetKey = errors.New("Missing inventory SKU. Save the item before uploading images.")
	ErrEntryUploading   = errors.New("image is uploading and cannot be changed")
	ErrEntryNotFound    = errors.New("image not found")
	ErrInvalidPosition  = errors.New("invalid image position")
)

// ==================== 接口定义 ====================

// UploadURLIssuer 申请上传目标
type UploadURLIssuer interface {
	IssueUploadDestination(ctx context.Context, itemKey, filename string) (*model.UploadDestination, error)
}

// ObjectTransfer 向预签名地址传输文件
type ObjectTransfer interface {
	Transfer(ctx context.Context, presignedURL string, file *model.LocalFile) error
}

// UploadRecorder 上传指标
type UploadRecorder interface {
	StartUpload()
	FinishUpload(duration time.Duration, err error)
}

type noopUploadRecorder struct{}

func (noopUploadRecorder) StartUpload()                      {}
func (noopUploadRecorder) FinishUpload(time.Duration, error) {}

// UploadCallbacks 批次进度回调，均可为空
type UploadCallbacks struct {
	OnStart    func(total int)
	OnProgress func(completed, total int)
	OnError    func(err error)
	OnComplete func(filenames []string)
}

// Reorderer 支持拖拽排序的列表
type Reorderer interface {
	OnReorder(from, to int) error
}

// AddFilesResult 添加结果，拒绝原因只提示不报错
type AddFilesResult struct {
	Accepted        []model.ImageEntry `json:"accepted"`
	RejectedReasons []string           `json:"rejected_reasons"`
}

// ==================== 纯函数 ====================

// AddFiles 过滤并截断候选文件，为接受的文件创建预览句柄
func AddFiles(files []*model.LocalFile, current []model.ImageEntry, previews PreviewStore) AddFilesResult {
	result := AddFilesResult{Accepted: []model.ImageEntry{}, RejectedReasons: []string{}}
	if len(files) == 0 {
		return result
	}

	remaining := model.MaxImageCount - len(current)
	if remaining <= 0 {
		result.RejectedReasons = append(result.RejectedReasons, CapacityReason(remaining))
		return result
	}

	var accepted []*model.LocalFile
	var skipped []string
	for _, f := range files {
		if f == nil {
			continue
		}
		if !utils.IsImageContentType(f.ContentType) {
			skipped = append(skipped, fmt.Sprintf("%s is not an image", f.Name))
			continue
		}
		if !utils.IsSupportedImageFile(f.Name, f.ContentType) {
			skipped = append(skipped, fmt.Sprintf("%s uses an unsupported file type", f.Name))
			continue
		}
		accepted = append(accepted, f)
	}

	if len(accepted) > remaining {
		result.RejectedReasons = append(result.RejectedReasons, CapacityReason(remaining))
		accepted = accepted[:remaining]
	}
	if len(skipped) > 0 {
		result.RejectedReasons = append(result.RejectedReasons,
			fmt.Sprintf("%d %s skipped due to type limitations.", len(skipped), plural(len(skipped), "file")))
		result.RejectedReasons = append(result.RejectedReasons, skipped...)
	}

	now := time.Now()
	for _, f := range accepted {
		entry := model.ImageEntry{
			ID:       uuid.NewString(),
			Origin:   model.ImageOriginLocal,
			Status:   model.ImageStatusPending,
			Filename: utils.BuildUploadFilename(f.Name, f.ContentType),
			File:     f,
			AddedAt:  now,
		}
		if previews != nil {
			entry.PreviewID = previews.Create(f)
		}
		result.Accepted = append(result.Accepted, entry)
	}
	return result
}

// CapacityReason 剩余名额不足时的提示
func CapacityReason(remaining int) string {
	if remaining <= 0 {
		return fmt.Sprintf("You can upload up to %d photos per item.", model.MaxImageCount)
	}
	return fmt.Sprintf("Only %d more %s can be added.", remaining, plural(remaining, "image"))
}

// IsAcceptableImage 与 AddFiles 相同的类型过滤
func IsAcceptableImage(f *model.LocalFile) bool {
	return f != nil && utils.IsImageContentType(f.ContentType) && utils.IsSupportedImageFile(f.Name, f.ContentType)
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

// RemoveEntry 移除指定图片并释放其预览句柄，上传中的图片不可移除
func RemoveEntry(entries []model.ImageEntry, id string, previews PreviewStore) ([]model.ImageEntry, error) {
	idx := indexOfEntry(entries, id)
	if idx < 0 {
		return entries, ErrEntryNotFound
	}
	if entries[idx].Status == model.ImageStatusUploading {
		return entries, ErrEntryUploading
	}
	if previews != nil && entries[idx].PreviewID != "" {
		previews.Revoke(entries[idx].PreviewID)
	}

	out := make([]model.ImageEntry, 0, len(entries)-1)
	out = append(out, entries[:idx]...)
	return append(out, entries[idx+1:]...), nil
}

// Reorder 位置移动，不改变任何状态
func Reorder(entries []model.ImageEntry, from, to int) ([]model.ImageEntry, error) {
	if from < 0 || from >= len(entries) || to < 0 || to >= len(entries) {
		return entries, ErrInvalidPosition
	}
	out := make([]model.ImageEntry, 0, len(entries))
	out = append(out, entries[:from]...)
	out = append(out, entries[from+1:]...)

	moved := entries[from]
	out = append(out[:to], append([]model.ImageEntry{moved}, out[to:]...)...)
	return out, nil
}

// HydrateHosted 将已托管 URL 转为图片列表，最多保留上限数量
func HydrateHosted(urls []string) []model.ImageEntry {
	entries := make([]model.ImageEntry, 0, len(urls))
	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		u = strings.TrimSpace(u)
		if u == "" || seen[u] {
			continue
		}
		if len(entries) >= model.MaxImageCount {
			break
		}
		seen[u] = true
		entries = append(entries, model.ImageEntry{
			ID:         fmt.Sprintf("hosted-%d-%s", len(entries), u),
			Origin:     model.ImageOriginHosted,
			Status:     model.ImageStatusUploaded,
			URL:        u,
			PreviewURL: model.BuildSizedImageURL(u, model.ImageSize300),
		})
	}
	return entries
}

func indexOfEntry(entries []model.ImageEntry, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}

// ==================== 有状态编排 ====================

// ImageUploader 单个表单的图片列表与上传编排
// 状态变更在锁内按 ID 应用，网络调用不持锁
type ImageUploader struct {
	mu          sync.Mutex
	entries     []model.ImageEntry
	uploadState string
	inFlight    atomic.Bool

	previews PreviewStore
	issuer   UploadURLIssuer
	transfer ObjectTransfer
	recorder UploadRecorder
	logger   *zap.Logger
}

var _ Reorderer = (*ImageUploader)(nil)

func NewImageUploader(previews PreviewStore, issuer UploadURLIssuer, transfer ObjectTransfer, recorder UploadRecorder, logger *zap.Logger) *ImageUploader {
	if previews == nil {
		previews = NewPreviewStore()
	}
	if recorder == nil {
		recorder = noopUploadRecorder{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImageUploader{
		entries:     []model.ImageEntry{},
		uploadState: model.UploadStateIdle,
		previews:    previews,
		issuer:      issuer,
		transfer:    transfer,
		recorder:    recorder,
		logger:      logger,
	}
}

// Entries 当前列表快照
func (u *ImageUploader) Entries() []model.ImageEntry {
	u.mu.Lock()
	defer u.mu.Unlock()
	return cloneEntries(u.entries)
}

// UploadState 批次状态，无 ERROR 项时自动回到 idle
func (u *ImageUploader) UploadState() string {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.uploadState == model.UploadStateError && !hasStatus(u.entries, model.ImageStatusError) {
		u.uploadState = model.UploadStateIdle
	}
	return u.uploadState
}

// InFlight 是否有批次正在上传
func (u *ImageUploader) InFlight() bool {
	return u.inFlight.Load()
}

// Previews 预览句柄存储
func (u *ImageUploader) Previews() PreviewStore {
	return u.previews
}

// Add 追加文件
func (u *ImageUploader) Add(files []*model.LocalFile) AddFilesResult {
	u.mu.Lock()
	defer u.mu.Unlock()
	result := AddFiles(files, u.entries, u.previews)
	u.entries = append(u.entries, result.Accepted...)
	return result
}

// Remove 移除图片
func (u *ImageUploader) Remove(id string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	next, err := RemoveEntry(u.entries, id, u.previews)
	if err != nil {
		return err
	}
	u.entries = next
	return nil
}

// OnReorder 拖拽排序
func (u *ImageUploader) OnReorder(from, to int) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	next, err := Reorder(u.entries, from, to)
	if err != nil {
		return err
	}
	u.entries = next
	return nil
}

// Replace 整体替换列表 (重置/初始化)，释放被丢弃的本地预览
func (u *ImageUploader) Replace(entries []model.ImageEntry) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.releaseLocked()
	u.entries = cloneEntries(entries)
	u.uploadState = model.UploadStateIdle
}

// ReleaseAll 释放全部本地预览 (关闭表单)
func (u *ImageUploader) ReleaseAll() int {
	u.mu.Lock()
	defer u.mu.Unlock()
	return u.releaseLocked()
}

func (u *ImageUploader) releaseLocked() int {
	released := 0
	for i := range u.entries {
		if u.entries[i].PreviewID != "" && u.previews.Revoke(u.entries[i].PreviewID) {
			released++
		}
		u.entries[i].PreviewID = ""
		u.entries[i].File = nil
	}
	return released
}

// HasPending 是否存在待上传的本地图片
func (u *ImageUploader) HasPending() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	return hasStatus(u.entries, model.ImageStatusPending, model.ImageStatusError)
}

// HasUnfinishedLocal 是否存在尚未上传完成的本地图片
func (u *ImageUploader) HasUnfinishedLocal() bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, e := range u.entries {
		if e.IsLocal() && e.Status != model.ImageStatusUploaded {
			return true
		}
	}
	return false
}

// HostedURLs 已托管图片地址，按列表顺序
func (u *ImageUploader) HostedURLs() []string {
	u.mu.Lock()
	defer u.mu.Unlock()
	return hostedURLs(u.entries)
}

// LocalPreviewData 剩余本地预览的 data: URL
func (u *ImageUploader) LocalPreviewData() []string {
	entries := u.Entries()
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.PreviewID == "" {
			continue
		}
		if dataURL, ok := u.previews.DataURL(e.PreviewID); ok {
			out = append(out, dataURL)
		}
	}
	return out
}

// UploadPending 顺序上传所有 PENDING / ERROR 的本地图片
// 首个失败即中止：仅失败项标记 ERROR，未尝试的项退回 PENDING，已成功项保持 UPLOADED
// 同一时间只允许一个批次，并发调用返回 ErrUploadInFlight 且不改动状态
func (u *ImageUploader) UploadPending(ctx context.Context, targetKey string, cb UploadCallbacks) ([]string, error) {
	if !u.inFlight.CompareAndSwap(false, true) {
		return nil, ErrUploadInFlight
	}
	defer u.inFlight.Store(false)

	u.mu.Lock()
	var batch []model.ImageEntry
	for _, e := range u.entries {
		if e.NeedsUpload() {
			batch = append(batch, e)
		}
	}
	u.mu.Unlock()

	total := len(batch)
	if cb.OnStart != nil {
		cb.OnStart(total)
	}
	if total == 0 {
		if cb.OnProgress != nil {
			cb.OnProgress(0, 0)
		}
		return []string{}, nil
	}
	if strings.TrimSpace(targetKey) == "" {
		return nil, ErrMissingTargetKey
	}

	ids := make(map[string]bool, total)
	for _, e := range batch {
		ids[e.ID] = true
	}
	u.mu.Lock()
	u.uploadState = model.UploadStateUploading
	for i := range u.entries {
		if ids[u.entries[i].ID] {
			u.entries[i].Status = model.ImageStatusUploading
			u.entries[i].Error = ""
		}
	}
	u.mu.Unlock()

	uploaded := make([]string, 0, total)
	for i, entry := range batch {
		dest, err := u.uploadOne(ctx, targetKey, &entry)
		if err != nil {
			u.failBatch(entry.ID, batch[i+1:], err)
			if cb.OnProgress != nil {
				cb.OnProgress(len(uploaded), total)
			}
			if cb.OnError != nil {
				cb.OnError(err)
			}
			u.logger.Warn("image upload failed",
				zap.String("sku", targetKey),
				zap.String("filename", entry.Filename),
				zap.Int("uploaded", len(uploaded)),
				zap.Int("total", total),
				zap.Error(err),
			)
			return uploaded, err
		}

		u.markUploaded(entry.ID, dest)
		uploaded = append(uploaded, entry.Filename)
		if cb.OnProgress != nil {
			cb.OnProgress(len(uploaded), total)
		}
	}

	u.mu.Lock()
	u.uploadState = model.UploadStateIdle
	u.mu.Unlock()

	if cb.OnComplete != nil {
		cb.OnComplete(uploaded)
	}
	u.logger.Info("image upload batch complete", zap.String("sku", targetKey), zap.Int("count", total))
	return uploaded, nil
}

func (u *ImageUploader) uploadOne(ctx context.Context, targetKey string, entry *model.ImageEntry) (*model.UploadDestination, error) {
	start := time.Now()
	u.recorder.StartUpload()

	dest, err := u.requestAndTransfer(ctx, targetKey, entry)
	u.recorder.FinishUpload(time.Since(start), err)
	return dest, err
}

func (u *ImageUploader) requestAndTransfer(ctx context.Context, targetKey string, entry *model.ImageEntry) (*model.UploadDestination, error) {
	if u.issuer == nil || u.transfer == nil {
		return nil, errors.New("image upload is not configured")
	}

	dest, err := u.issuer.IssueUploadDestination(ctx, targetKey, entry.Filename)
	if err != nil {
		return nil, err
	}
	if dest == nil || dest.PresignedURL == "" {
		return nil, fmt.Errorf("Upload information missing for %s", entry.Filename)
	}

	file := entry.File
	if file == nil {
		if f, ok := u.previews.Get(entry.PreviewID); ok {
			file = f
		}
	}
	if file == nil {
		return nil, fmt.Errorf("Local file missing for %s", entry.Filename)
	}

	if err := u.transfer.Transfer(ctx, dest.PresignedURL, file); err != nil {
		return nil, err
	}
	return dest, nil
}

func (u *ImageUploader) markUploaded(id string, dest *model.UploadDestination) {
	u.mu.Lock()
	defer u.mu.Unlock()
	idx := indexOfEntry(u.entries, id)
	if idx < 0 {
		return
	}
	e := &u.entries[idx]
	e.Origin = model.ImageOriginHosted
	e.Status = model.ImageStatusUploaded
	e.URL = dest.MasterURL()
	e.DestinationURLs = lowerKeys(dest.DestinationURLs)
	e.PreviewURL = e.SizedURL(model.ImageSize300)
	e.Error = ""
	// 预览句柄保留用于展示，原始文件不再持有
	e.File = nil
}

func (u *ImageUploader) failBatch(failedID string, notAttempted []model.ImageEntry, err error) {
	msg := err.Error()
	if msg == "" {
		msg = "Image upload failed."
	}

	rest := make(map[string]bool, len(notAttempted))
	for _, e := range notAttempted {
		rest[e.ID] = true
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	for i := range u.entries {
		switch {
		case u.entries[i].ID == failedID:
			u.entries[i].Status = model.ImageStatusError
			u.entries[i].Error = msg
		case rest[u.entries[i].ID] && u.entries[i].Status == model.ImageStatusUploading:
			u.entries[i].Status = model.ImageStatusPending
		}
	}
	u.uploadState = model.UploadStateError
}

// ==================== 工具函数 ====================

func cloneEntries(entries []model.ImageEntry) []model.ImageEntry {
	out := make([]model.ImageEntry, len(entries))
	copy(out, entries)
	return out
}

func hasStatus(entries []model.ImageEntry, statuses ...string) bool {
	for _, e := range entries {
		if !e.IsLocal() {
			continue
		}
		for _, s := range statuses {
			if e.Status == s {
				return true
			}
		}
	}
	return false
}

func hostedURLs(entries []model.ImageEntry) []string {
	urls := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsHosted() && e.URL != "" {
			urls = append(urls, e.URL)
		}
	}
	return urls
}

func lowerKeys(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[strings.ToLower(k)] = v
	}
	return out
}
