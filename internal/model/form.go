package model

import (
	"time"

	"gorm.io/gorm"
)

// ==================== 状态常量 ====================

const (
	// 表单模式
	FormModeCreate = "create"
	FormModeEdit   = "edit"

	// 提交状态机
	SubmitStateIdle       = "idle"
	SubmitStateValidating = "validating"
	SubmitStateSubmitting = "submitting"
	SubmitStateSuccess    = "success"
	SubmitStateFailed     = "failed"

	// 创建流程阶段
	SubmitStageCreating    = "creating"
	SubmitStageUploading   = "uploading"
	SubmitStageRedirecting = "redirecting"
	SubmitStageError       = "error"

	// 待补传记录状态
	PendingItemStatusPending  = "pending"
	PendingItemStatusResolved = "resolved"

	MaxConditionDescriptionLength = 1000
)

// 选项
var (
	ConditionOptions = []string{
		"NEW", "LIKE_NEW", "USED_EXCELLENT", "USED_VERY_GOOD", "USED_GOOD", "USED_ACCEPTABLE",
	}
	WeightUnits    = []string{"POUND", "OUNCE", "KILOGRAM", "GRAM"}
	DimensionUnits = []string{"INCH", "FOOT", "CENTIMETER", "METER"}
)

// ==================== 表单值 ====================

// FormValues 表单原始输入
type FormValues struct {
	Locale               string `json:"locale"`
	Condition            string `json:"condition"`
	ConditionDescription string `json:"conditionDescription"`
	Quantity             string `json:"quantity"`
	Title                string `json:"title"`
	Description          string `json:"description"`
	Brand                string `json:"brand"`
	PackageLength        string `json:"packageLength"`
	PackageWidth         string `json:"packageWidth"`
	PackageHeight        string `json:"packageHeight"`
	PackageDimensionUnit string `json:"packageDimensionUnit"`
	PackageWeightValue   string `json:"packageWeightValue"`
	PackageWeightUnit    string `json:"packageWeightUnit"`
}

// DefaultFormValues 默认值
func DefaultFormValues() FormValues {
	return FormValues{
		Locale:               "en_US",
		Quantity:             "1",
		PackageDimensionUnit: "INCH",
		PackageWeightUnit:    "POUND",
	}
}

// MergeDefaults 以默认值补齐空字段
func (v FormValues) MergeDefaults() FormValues {
	def := DefaultFormValues()
	if v.Locale == "" {
		v.Locale = def.Locale
	}
	if v.Quantity == "" {
		v.Quantity = def.Quantity
	}
	if v.PackageDimensionUnit == "" {
		v.PackageDimensionUnit = def.PackageDimensionUnit
	}
	if v.PackageWeightUnit == "" {
		v.PackageWeightUnit = def.PackageWeightUnit
	}
	return v
}

// ==================== 提交载荷 ====================

// SavePayload 保存接口请求体
type SavePayload struct {
	Locale               string                `json:"locale"`
	Condition            string                `json:"condition,omitempty"`
	ConditionDescription string                `json:"conditionDescription,omitempty"`
	Availability         *PayloadAvailability  `json:"availability,omitempty"`
	Product              PayloadProduct        `json:"product"`
	PackageWeightAndSize *PayloadPackageDetail `json:"packageWeightAndSize,omitempty"`
}

type PayloadAvailability struct {
	ShipToLocationAvailability PayloadShipToLocation `json:"shipToLocationAvailability"`
}

type PayloadShipToLocation struct {
	Quantity int `json:"quantity"`
}

type PayloadProduct struct {
	Title       string              `json:"title"`
	Description string              `json:"description,omitempty"`
	Brand       string              `json:"brand,omitempty"`
	Aspects     map[string][]string `json:"aspects,omitempty"`
	ImageURLs   []string            `json:"imageUrls,omitempty"`
}

type PayloadPackageDetail struct {
	Dimensions *PayloadDimensions `json:"dimensions,omitempty"`
	Weight     *PayloadWeight     `json:"weight,omitempty"`
}

type PayloadDimensions struct {
	Length *float64 `json:"length,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
	Unit   string   `json:"unit,omitempty"`
}

type PayloadWeight struct {
	Value float64 `json:"value"`
	Unit  string  `json:"unit,omitempty"`
}

// ==================== 持久化 ====================

type BaseModel struct {
	ID        int64          `gorm:"primary_key;AUTO_INCREMENT" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

// PendingItem 已创建但图片未传完的商品
// 会话再次提交时复用 SKU，避免重复创建
type PendingItem struct {
	BaseModel
	SessionID  string     `gorm:"size:64;uniqueIndex;comment:表单会话ID" json:"session_id"`
	SKU        string     `gorm:"size:128;index;comment:远程SKU" json:"sku"`
	Status     string     `gorm:"size:32;default:pending;comment:状态" json:"status"`
	LastError  string     `gorm:"size:1024;comment:最近一次上传错误" json:"last_error"`
	Attempts   int        `gorm:"default:0;comment:上传尝试次数" json:"attempts"`
	ResolvedAt *time.Time `gorm:"comment:完成时间" json:"resolved_at"`
}

func (PendingItem) TableName() string {
	return "pending_items"
}
