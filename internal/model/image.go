package model

import (
	"strings"
	"time"
)

// ==================== 状态常量 ====================

const (
	// 图片来源
	ImageOriginLocal  = "LOCAL"
	ImageOriginHosted = "HOSTED"

	// 图片状态
	ImageStatusPending   = "PENDING"
	ImageStatusUploading = "UPLOADING"
	ImageStatusUploaded  = "UPLOADED"
	ImageStatusError     = "ERROR"

	// 批次上传状态
	UploadStateIdle      = "idle"
	UploadStateUploading = "uploading"
	UploadStateError     = "error"

	// 单个商品最多图片数
	MaxImageCount = 24

	// 尺寸
	ImageSizeMaster = "master"
	ImageSize1600   = "1600"
	ImageSize600    = "600"
	ImageSize300    = "300"
	ImageSize120    = "120"
)

// ImageSizes 派生尺寸顺序
var ImageSizes = []string{ImageSizeMaster, ImageSize1600, ImageSize600, ImageSize300, ImageSize120}

// LocalFile 用户选择的本地文件
type LocalFile struct {
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	Data        []byte `json:"-"`
}

// Size 字节数
func (f *LocalFile) Size() int {
	return len(f.Data)
}

// ImageEntry 图片列表项，位置即展示顺序
type ImageEntry struct {
	ID       string `json:"id"`
	Origin   string `json:"origin"`
	Status   string `json:"status"`
	Filename string `json:"filename,omitempty"`

	// LOCAL 时持有原始文件与预览句柄
	File      *LocalFile `json:"-"`
	PreviewID string     `json:"preview_id,omitempty"`

	URL             string            `json:"url,omitempty"`
	DestinationURLs map[string]string `json:"destination_urls,omitempty"`
	PreviewURL      string            `json:"preview_url,omitempty"`
	Error           string            `json:"error,omitempty"`

	AddedAt time.Time `json:"added_at"`
}

// IsLocal 是否本地图片
func (e *ImageEntry) IsLocal() bool {
	return e.Origin == ImageOriginLocal
}

// IsHosted 是否已托管
func (e *ImageEntry) IsHosted() bool {
	return e.Origin == ImageOriginHosted
}

// NeedsUpload 是否需要 (重新) 上传
func (e *ImageEntry) NeedsUpload() bool {
	return e.IsLocal() && (e.Status == ImageStatusPending || e.Status == ImageStatusError)
}

// SizedURL 派生指定尺寸 URL
func (e *ImageEntry) SizedURL(size string) string {
	if u, ok := e.DestinationURLs[size]; ok && u != "" {
		return u
	}
	return BuildSizedImageURL(e.URL, size)
}

// BuildSizedImageURL 将 /master.<ext> 替换为 /<size>.<ext>
func BuildSizedImageURL(url, size string) string {
	if url == "" || size == "" {
		return url
	}
	idx := strings.LastIndex(url, "/master.")
	if idx < 0 {
		return url
	}
	return url[:idx] + "/" + size + url[idx+len("/master"):]
}

// UploadDestination 上传目标
type UploadDestination struct {
	PresignedURL    string            `json:"presigned_url"`
	DestinationURLs map[string]string `json:"destination_urls"`
}

// MasterURL 主图地址，兼容大小写键名
func (d *UploadDestination) MasterURL() string {
	for _, key := range []string{"master", "Master", "MASTER"} {
		if u := d.DestinationURLs[key]; u != "" {
			return u
		}
	}
	return ""
}
