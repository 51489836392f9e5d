package service

import (
	"encoding/json"

	"tcg_inventory_v1/internal/model"
	"tcg_inventory_v1/pkg/tcgid"
)

// ==================== 库存记录 -> 表单 ====================
// 库存记录字段命名混杂 (camelCase / snake_case / JSON 字符串)，按优先级依次取值

// RecordToFormValues 库存记录映射为表单值
func RecordToFormValues(record tcgid.InventoryItemResp) model.FormValues {
	pkg := firstObject(record["packageWeightAndSize"], record["package_weight_and_size"])
	dims := firstObject(pkg["dimensions"], record["dimensions"])
	weight := firstObject(pkg["weight"], record["weight"])
	product := asObject(record["product"])

	quantity := firstValue(
		asObject(asObject(record["availability"])["shipToLocationAvailability"])["quantity"],
		record["quantity"],
		record["available_quantity"],
	)
	if quantity == "" {
		quantity = "1"
	}

	return model.FormValues{
		Locale:               firstNonEmpty(firstValue(record["locale"]), "en_US"),
		Condition:            firstValue(record["condition"]),
		ConditionDescription: firstValue(record["conditionDescription"], record["condition_description"]),
		Quantity:             quantity,
		Title:                firstValue(record["product_title"], record["title"], product["title"]),
		Description:          firstValue(record["product_description"], record["description"], product["description"]),
		Brand:                firstValue(record["product_brand"], record["brand"], product["brand"]),
		PackageLength:        firstValue(dims["length"], record["package_length"]),
		PackageWidth:         firstValue(dims["width"], record["package_width"]),
		PackageHeight:        firstValue(dims["height"], record["package_height"]),
		PackageDimensionUnit: firstNonEmpty(firstValue(dims["unit"], record["package_dimension_unit"]), "INCH"),
		PackageWeightValue:   firstValue(weight["value"], record["package_weight_value"]),
		PackageWeightUnit:    firstNonEmpty(firstValue(weight["unit"], record["package_weight_unit"]), "POUND"),
	}
}

// RecordToAspectValues 库存记录中的属性值
// 来源可以是对象、JSON 字符串或 [{localizedAspectName, values}] 数组
func RecordToAspectValues(record tcgid.InventoryItemResp) map[string]any {
	source := asObject(record["product"])["aspects"]
	if isEmptyValue(source) {
		source = record["product_aspects"]
	}
	if isEmptyValue(source) {
		source = record["product_aspects_json"]
	}

	out := make(map[string]any)
	for key, value := range parseAspectSource(source) {
		if list, ok := value.([]any); ok {
			if cleaned := NormalizeMulti(list); len(cleaned) > 0 {
				out[key] = cleaned
			}
			continue
		}
		if s := NormalizeSingle(value); s != "" {
			out[key] = s
		}
	}
	return out
}

// RecordToImageURLs 库存记录中的已托管图片地址
func RecordToImageURLs(record tcgid.InventoryItemResp) []string {
	if urls, ok := stringList(record["product_image_urls"]); ok {
		return urls
	}
	if raw, ok := record["product_image_urls"].(string); ok {
		var parsed []any
		if json.Unmarshal([]byte(raw), &parsed) == nil {
			urls, _ := stringList(parsed)
			return urls
		}
	}
	if urls, ok := stringList(asObject(record["product"])["imageUrls"]); ok {
		return urls
	}
	if urls, ok := stringList(record["product_image_urls_json"]); ok {
		return urls
	}
	return []string{}
}

func parseAspectSource(source any) map[string]any {
	if raw, ok := source.(string); ok {
		var parsed any
		if json.Unmarshal([]byte(raw), &parsed) != nil {
			return map[string]any{}
		}
		source = parsed
	}

	switch v := source.(type) {
	case []any:
		out := make(map[string]any, len(v))
		for _, item := range v {
			obj := asObject(item)
			name, _ := obj["localizedAspectName"].(string)
			if name == "" || obj["values"] == nil {
				continue
			}
			out[name] = obj["values"]
		}
		return out
	case map[string]any:
		return v
	default:
		return map[string]any{}
	}
}

// ==================== 工具函数 ====================

func asObject(v any) map[string]any {
	if m, ok := v.(map[string]any); ok {
		return m
	}
	return map[string]any{}
}

func firstObject(values ...any) map[string]any {
	for _, v := range values {
		if m, ok := v.(map[string]any); ok && len(m) > 0 {
			return m
		}
	}
	return map[string]any{}
}

// firstValue 第一个非 nil 值的字符串形式，对象与数组不参与
func firstValue(values ...any) string {
	for _, v := range values {
		if v == nil {
			continue
		}
		switch v.(type) {
		case map[string]any, []any:
			continue
		}
		if s := NormalizeSingle(v); s != "" {
			return s
		}
	}
	return ""
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func isEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	}
	return false
}

func stringList(v any) ([]string, bool) {
	list, ok := v.([]any)
	if !ok {
		if s, ok := v.([]string); ok {
			return s, true
		}
		return nil, false
	}
	out := make([]string, 0, len(list))
	for _, item := range list {
		if s, ok := item.(string); ok && s != "" {
			out = append(out, s)
		}
	}
	return out, true
}
