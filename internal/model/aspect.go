package model

import (
	"time"

	"gorm.io/datatypes"
)

// ==================== 状态常量 ====================

const (
	// 基数
	CardinalitySingle = "SINGLE"
	CardinalityMulti  = "MULTI"

	// 取值模式
	AspectModeSelectionOnly = "SELECTION_ONLY"
	AspectModeFreeText      = "FREE_TEXT"

	// 渲染类型
	FieldTypeSelect      = "select"
	FieldTypeMultiSelect = "multi-select"
	FieldTypeNumber      = "number"
	FieldTypeText        = "text"

	// 数据类型
	AspectDataTypeString = "STRING"
	AspectDataTypeNumber = "NUMBER"
	AspectDataTypeDate   = "DATE"

	// 分组
	AspectCategoryRequired    = "Required"
	AspectCategoryRecommended = "Recommended"
	AspectCategoryOptional    = "Optional"

	// eBay 卡牌类目
	DefaultCategoryID = "183454"
)

// ==================== 字段定义 ====================

// OptionConstraint 选项依赖约束
// 仅当 AspectName 当前值包含 Values 之一时，该选项可见
type OptionConstraint struct {
	AspectName string   `json:"aspect_name"`
	Values     []string `json:"values"`
}

// AspectOption 候选值
type AspectOption struct {
	Value       string             `json:"value"`
	Constraints []OptionConstraint `json:"constraints,omitempty"`
}

// AspectField 由类目属性派生出的表单字段定义 (只读)
type AspectField struct {
	Name        string         `json:"name"`
	Cardinality string         `json:"cardinality"`
	Required    bool           `json:"required"`
	Mode        string         `json:"mode"`
	Options     []AspectOption `json:"options"`
	Category    string         `json:"category"`
	FieldType   string         `json:"field_type"`

	DataType  string `json:"data_type,omitempty"`
	MaxLength int    `json:"max_length,omitempty"`
	Usage     string `json:"usage,omitempty"`
}

// IsMulti 是否多值字段
func (f *AspectField) IsMulti() bool {
	return f.Cardinality == CardinalityMulti
}

// HasOption 是否为已知选项
func (f *AspectField) HasOption(value string) bool {
	for _, opt := range f.Options {
		if opt.Value == value {
			return true
		}
	}
	return false
}

// FieldGroup 按分组组织的字段
type FieldGroup struct {
	Category string        `json:"category"`
	Fields   []AspectField `json:"fields"`
}

// AspectFieldMap 字段名 -> 字段定义
type AspectFieldMap map[string]*AspectField

// AspectValueMap 字段名 -> 当前值
// SINGLE 为 string，MULTI 为 []string
type AspectValueMap map[string]any

// Clone 浅拷贝 (切片值一并复制)
func (m AspectValueMap) Clone() AspectValueMap {
	if m == nil {
		return nil
	}
	out := make(AspectValueMap, len(m))
	for k, v := range m {
		if s, ok := v.([]string); ok {
			out[k] = append([]string(nil), s...)
			continue
		}
		out[k] = v
	}
	return out
}

// ==================== 持久化 ====================

// TaxonomySnapshot 类目属性快照
// 远程拉取成功后落库，拉取失败时作为降级数据源
type TaxonomySnapshot struct {
	BaseModel
	CategoryID  string         `gorm:"size:32;uniqueIndex;comment:类目ID" json:"category_id"`
	Version     string         `gorm:"size:64;comment:内容哈希" json:"version"`
	AspectCount int            `gorm:"comment:属性数量" json:"aspect_count"`
	Payload     datatypes.JSON `gorm:"comment:原始属性JSON" json:"payload"`
	FetchedAt   time.Time      `gorm:"comment:拉取时间" json:"fetched_at"`
}

func (TaxonomySnapshot) TableName() string {
	return "taxonomy_snapshots"
}
