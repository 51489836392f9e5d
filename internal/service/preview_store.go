package service

import (
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"tcg_inventory_v1/internal/model"
)

// ==================== 接口定义 ====================

// PreviewStore 本地图片预览句柄
// 每个句柄只能释放一次，重复释放为空操作
type PreviewStore interface {
	Create(file *model.LocalFile) string
	Get(id string) (*model.LocalFile, bool)
	Revoke(id string) bool
	DataURL(id string) (string, bool)
	Live() int
}

// ==================== 内存实现 ====================

type memoryPreviewStore struct {
	mu    sync.RWMutex
	items map[string]*model.LocalFile
}

var _ PreviewStore = (*memoryPreviewStore)(nil)

func NewPreviewStore() PreviewStore {
	return &memoryPreviewStore{items: make(map[string]*model.LocalFile)}
}

// Create 登记文件并返回句柄
func (s *memoryPreviewStore) Create(file *model.LocalFile) string {
	id := uuid.NewString()
	s.mu.Lock()
	s.items[id] = file
	s.mu.Unlock()
	return id
}

func (s *memoryPreviewStore) Get(id string) (*model.LocalFile, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.items[id]
	return f, ok
}

// Revoke 释放句柄，返回本次是否真正释放
func (s *memoryPreviewStore) Revoke(id string) bool {
	if id == "" {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return false
	}
	delete(s.items, id)
	return true
}

// DataURL 转为 data: URL，供跳转后的页面兜底展示
func (s *memoryPreviewStore) DataURL(id string) (string, bool) {
	f, ok := s.Get(id)
	if !ok {
		return "", false
	}
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	return fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(f.Data)), true
}

// Live 当前未释放句柄数
func (s *memoryPreviewStore) Live() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
