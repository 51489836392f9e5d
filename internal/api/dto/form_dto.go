package dto

// Request DTO

// OpenFormReq 打开表单会话
type OpenFormReq struct {
	Mode       string `json:"mode" binding:"omitempty,oneof=create edit"`
	SKU        string `json:"sku" binding:"required_if=Mode edit"`
	CategoryID string `json:"category_id"`
}

// PatchValuesReq 修改表单字段，key 为字段 JSON 名
type PatchValuesReq struct {
	Values map[string]string `json:"values" binding:"required"`
}

// SetAspectReq 设置单个属性值，value 可为字符串或字符串数组
type SetAspectReq struct {
	Name  string `json:"name" binding:"required"`
	Value any    `json:"value"`
}

// ReorderImagesReq 拖拽排序
type ReorderImagesReq struct {
	From *int `json:"from" binding:"required,min=0"`
	To   *int `json:"to" binding:"required,min=0"`
}

// Response DTO

// UploadImagesResp 上传结果
type UploadImagesResp struct {
	Uploaded []string `json:"uploaded"`
}

// VisibleOptionsResp 当前可见选项
type VisibleOptionsResp struct {
	Name    string   `json:"name"`
	Options []string `json:"options"`
}

// SessionListResp 活跃会话
type SessionListResp struct {
	Total int      `json:"total"`
	IDs   []string `json:"ids"`
}
