package service

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"

	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/pkg/ebay"
	"tcg_inventory_v1/pkg/utils"
)

// ==================== 字段映射 ====================

// MapTaxonomyToFields 将类目属性转换为表单字段定义
// 纯函数，输出顺序与输入一致
func MapTaxonomyToFields(resp *ebay.AspectsResponse) []model.AspectField {
	if resp == nil || len(resp.Aspects) == 0 {
		return []model.AspectField{}
	}

	fields := make([]model.AspectField, 0, len(resp.Aspects))
	seen := make(map[string]bool, len(resp.Aspects))

	for _, aspect := range resp.Aspects {
		name := strings.TrimSpace(aspect.LocalizedAspectName)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true

		c := aspect.AspectConstraint
		field := model.AspectField{
			Name:        name,
			Cardinality: normalizeCardinality(c.ItemToAspectCardinality),
			Required:    c.AspectRequired,
			Mode:        normalizeMode(c.AspectMode),
			Options:     mapOptions(aspect.AspectValues),
			DataType:    strings.ToUpper(c.AspectDataType),
			MaxLength:   c.AspectMaxLength,
			Usage:       strings.ToUpper(c.AspectUsage),
		}
		field.Category = categoryOf(&field)
		field.FieldType = fieldTypeOf(&field)

		fields = append(fields, field)
	}
	return fields
}

func normalizeCardinality(v string) string {
	if strings.EqualFold(v, model.CardinalityMulti) {
		return model.CardinalityMulti
	}
	return model.CardinalitySingle
}

func normalizeMode(v string) string {
	if strings.EqualFold(v, model.AspectModeSelectionOnly) {
		return model.AspectModeSelectionOnly
	}
	return model.AspectModeFreeText
}

func mapOptions(values []ebay.AspectValueResp) []model.AspectOption {
	options := make([]model.AspectOption, 0, len(values))
	seen := make(map[string]bool, len(values))

	for _, v := range values {
		value := strings.TrimSpace(v.LocalizedValue)
		if value == "" || seen[value] {
			continue
		}
		seen[value] = true

		opt := model.AspectOption{Value: value}
		for _, vc := range v.ValueConstraints {
			if vc.ApplicableForLocalizedAspectName == "" {
				continue
			}
			opt.Constraints = append(opt.Constraints, model.OptionConstraint{
				AspectName: vc.ApplicableForLocalizedAspectName,
				Values:     append([]string(nil), vc.ApplicableForLocalizedAspectValues...),
			})
		}
		options = append(options, opt)
	}
	return options
}

func categoryOf(f *model.AspectField) string {
	switch {
	case f.Required:
		return model.AspectCategoryRequired
	case f.Usage == "RECOMMENDED":
		return model.AspectCategoryRecommended
	default:
		return model.AspectCategoryOptional
	}
}

func fieldTypeOf(f *model.AspectField) string {
	switch {
	case f.IsMulti():
		return model.FieldTypeMultiSelect
	case f.Mode == model.AspectModeSelectionOnly && len(f.Options) > 0:
		return model.FieldTypeSelect
	case f.DataType == model.AspectDataTypeNumber:
		return model.FieldTypeNumber
	default:
		return model.FieldTypeText
	}
}

// GroupByCategory 按分组聚合，分组顺序为首次出现顺序
func GroupByCategory(fields []model.AspectField) []model.FieldGroup {
	groups := make([]model.FieldGroup, 0)
	index := make(map[string]int)

	for _, f := range fields {
		category := f.Category
		if category == "" {
			category = model.AspectCategoryOptional
		}
		i, ok := index[category]
		if !ok {
			i = len(groups)
			index[category] = i
			groups = append(groups, model.FieldGroup{Category: category})
		}
		groups[i].Fields = append(groups[i].Fields, f)
	}
	return groups
}

// BuildFieldMap 字段名索引
func BuildFieldMap(fields []model.AspectField) model.AspectFieldMap {
	m := make(model.AspectFieldMap, len(fields))
	for i := range fields {
		m[fields[i].Name] = &fields[i]
	}
	return m
}

// VisibleOptions 过滤出依赖约束已满足的选项
// 每条约束都要求被依赖字段当前值至少命中一个候选
func VisibleOptions(field *model.AspectField, values model.AspectValueMap) []string {
	if field == nil {
		return []string{}
	}
	visible := make([]string, 0, len(field.Options))
	for _, opt := range field.Options {
		if constraintsSatisfied(opt.Constraints, values) {
			visible = append(visible, opt.Value)
		}
	}
	return visible
}

func constraintsSatisfied(constraints []model.OptionConstraint, values model.AspectValueMap) bool {
	for _, c := range constraints {
		current := NormalizeMulti(values[c.AspectName])
		if !anyIn(current, c.Values) {
			return false
		}
	}
	return true
}

func anyIn(current, allowed []string) bool {
	for _, v := range current {
		for _, a := range allowed {
			if v == a {
				return true
			}
		}
	}
	return false
}

// ==================== 结构缓存 ====================

// AspectSchema 某一版本类目属性的派生结果
type AspectSchema struct {
	CategoryID string
	Version    string
	Fields     []model.AspectField
	FieldMap   model.AspectFieldMap
	Groups     []model.FieldGroup
}

// Empty 无可用字段
func (s *AspectSchema) Empty() bool {
	return s == nil || len(s.Fields) == 0
}

// NewAspectSchema 从属性响应构建
func NewAspectSchema(categoryID, version string, resp *ebay.AspectsResponse) *AspectSchema {
	fields := MapTaxonomyToFields(resp)
	return &AspectSchema{
		CategoryID: categoryID,
		Version:    version,
		Fields:     fields,
		FieldMap:   BuildFieldMap(fields),
		Groups:     GroupByCategory(fields),
	}
}

// TaxonomyVersion 原始属性 JSON 的内容哈希
func TaxonomyVersion(raw []byte) string {
	sum := sha256.Sum256(raw)
	return hex.EncodeToString(sum[:])
}

// SchemaCache 以类目 + 版本为键缓存派生结构
// 同一版本多次获取返回同一实例
type SchemaCache struct {
	cache *utils.TTLCache[*AspectSchema]
}

func NewSchemaCache() *SchemaCache {
	return &SchemaCache{cache: utils.NewTTLCache[*AspectSchema](0)}
}

// Schema 解析原始属性 JSON，同版本命中缓存
func (c *SchemaCache) Schema(categoryID string, raw []byte) (*AspectSchema, error) {
	version := TaxonomyVersion(raw)
	key := categoryID + ":" + version
	if s, ok := c.cache.Get(key); ok {
		return s, nil
	}

	var resp ebay.AspectsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("解析类目属性失败: %w", err)
	}
	return c.cache.GetOrCreate(key, func() *AspectSchema {
		return NewAspectSchema(categoryID, version, &resp)
	}), nil
}
