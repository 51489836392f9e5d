package utils

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// 支持的图片扩展名
var supportedImageExtensions = map[string]bool{
	"jpg": true, "jpeg": true, "png": true, "gif": true, "webp": true,
	"bmp": true, "tiff": true, "tif": true, "svg": true, "ico": true,
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

const defaultImageBaseName = "inventory-image"

// IsImageContentType MIME 是否 image/*
func IsImageContentType(contentType string) bool {
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(contentType)), "image/")
}

// FileExtension 小写扩展名 (不含点)
func FileExtension(name string) string {
	ext := strings.TrimPrefix(filepath.Ext(name), ".")
	return strings.ToLower(ext)
}

// IsSupportedImageFile 按扩展名判断，无扩展名时按 MIME 子类型
func IsSupportedImageFile(name, contentType string) bool {
	if ext := FileExtension(name); ext != "" {
		return supportedImageExtensions[ext]
	}
	return supportedImageExtensions[mimeSubtype(contentType)]
}

// Slugify 转为 URL 安全的短横线形式
func Slugify(s string) string {
	slug := nonSlugChars.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(slug, "-")
}

// BuildUploadFilename 生成上传文件名: <slug>-<毫秒时间戳>-<6位随机>.<ext>
func BuildUploadFilename(name, contentType string) string {
	return buildUploadFilenameAt(name, contentType, time.Now())
}

func buildUploadFilenameAt(name, contentType string, now time.Time) string {
	ext := FileExtension(name)
	if ext == "" {
		ext = mimeSubtype(contentType)
	}
	if ext == "" {
		ext = "png"
	}

	base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
	slug := Slugify(base)
	if slug == "" {
		slug = defaultImageBaseName
	}

	random := strings.ReplaceAll(uuid.NewString(), "-", "")[:6]
	return fmt.Sprintf("%s-%d-%s.%s", slug, now.UnixMilli(), random, ext)
}

func mimeSubtype(contentType string) string {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	if i := strings.Index(ct, ";"); i >= 0 {
		ct = ct[:i]
	}
	_, sub, ok := strings.Cut(ct, "/")
	if !ok {
		return ""
	}
	// image/svg+xml -> svg
	if i := strings.Index(sub, "+"); i >= 0 {
		sub = sub[:i]
	}
	return strings.TrimSpace(sub)
}
