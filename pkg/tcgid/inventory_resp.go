package tcgid

import (
	"encoding/json"
)

// ==========================================
// DTO: tcgid.io 库存接口
// ==========================================

const (
	DefaultBaseURL = "https://tcgid.io/api"
	TokenHeader    = "x-authorization-token"

	DemoUserAPIMessage   = "This API is not available to demo users"
	DemoUserToastMessage = "Feature unavailable to demo users."
	SignInRequiredMsg    = "You must be signed in to continue."
)

// Envelope 通用响应包
// {"success": true, "data": ..., "message": "..."}
type Envelope struct {
	Success *bool           `json:"success,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
	Message string          `json:"message,omitempty"`
}

// Failed 显式 success=false
func (e *Envelope) Failed() bool {
	return e.Success != nil && !*e.Success
}

// DataString data 为字符串时返回其内容
func (e *Envelope) DataString() string {
	if len(e.Data) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(e.Data, &s); err != nil {
		return ""
	}
	return s
}

// CreateItemData POST /inventory 返回
type CreateItemData struct {
	SKU string `json:"sku"`
}

// UploadURLDef 预签名上传定义
// PUT /inventory/{sku}/upload?filename=...
// data: {"<sku>": [{"presigned_url": "...", "destination_urls": {"master": "..."}}]}
type UploadURLDef struct {
	PresignedURL    string            `json:"presigned_url"`
	DestinationURLs map[string]string `json:"destination_urls"`
}

// UploadURLData 按 SKU 分组的上传定义
type UploadURLData map[string][]UploadURLDef

// AspectNameValues 数组形式的属性
type AspectNameValues struct {
	LocalizedAspectName string   `json:"localizedAspectName"`
	Values              []string `json:"values"`
}

// InventoryItemResp GET /inventory/{sku} 返回的记录 (字段命名混杂)
type InventoryItemResp map[string]any
