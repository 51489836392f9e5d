package service

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"tcg_inventory_v1/internal/model"
)

// 包装对象中展示值的候选键，按优先级
var displayValueKeys = []string{"localizedValue", "localized_value", "value", "name"}

// ==================== 值归一化 ====================

// NormalizeSingle 将任意形态的值归一为单个字符串
// 切片只取首元素，包装对象取展示值，数字与布尔转字符串
func NormalizeSingle(raw any) string {
	switch v := raw.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		if len(v) == 0 {
			return ""
		}
		return v[0]
	case []any:
		if len(v) == 0 {
			return ""
		}
		return NormalizeSingle(v[0])
	case map[string]any:
		for _, key := range displayValueKeys {
			if s := NormalizeSingle(scalarOnly(v[key])); s != "" {
				return s
			}
		}
		return ""
	case map[string]string:
		for _, key := range displayValueKeys {
			if s := v[key]; s != "" {
				return s
			}
		}
		return ""
	case json.Number:
		return v.String()
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", v)
	case fmt.Stringer:
		return v.String()
	default:
		return ""
	}
}

// 包装对象内部只接受标量，避免递归进入嵌套结构
func scalarOnly(v any) any {
	switch v.(type) {
	case map[string]any, map[string]string, []any, []string:
		return nil
	default:
		return v
	}
}

// NormalizeMulti 将任意形态的值归一为去重后的非空字符串列表
// 保留首次出现顺序，幂等
func NormalizeMulti(raw any) []string {
	var items []any
	switch v := raw.(type) {
	case nil:
		return []string{}
	case []string:
		items = make([]any, len(v))
		for i, s := range v {
			items[i] = s
		}
	case []any:
		items = v
	default:
		items = []any{v}
	}

	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		s := NormalizeSingle(item)
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

// ==================== 按结构清洗 ====================

// SanitizeForSchema 丢弃未知字段，按基数归一，并丢弃空值
func SanitizeForSchema(values map[string]any, fieldMap model.AspectFieldMap) model.AspectValueMap {
	out := make(model.AspectValueMap)
	for name, raw := range values {
		field, ok := fieldMap[name]
		if !ok {
			continue
		}
		if field.IsMulti() {
			if list := NormalizeMulti(raw); len(list) > 0 {
				out[name] = list
			}
			continue
		}
		if s := NormalizeSingle(raw); s != "" {
			out[name] = s
		}
	}
	return out
}

// Reconcile 按当前字段定义重新归一并剔除过期键
// 无变化时返回原 map 与 false
func Reconcile(values model.AspectValueMap, fields []model.AspectField) (model.AspectValueMap, bool) {
	if len(fields) == 0 || values == nil {
		return values, false
	}

	changed := false
	next := make(model.AspectValueMap, len(values)+len(fields))
	known := make(map[string]bool, len(fields))

	for i := range fields {
		field := &fields[i]
		known[field.Name] = true
		current, present := values[field.Name]

		if field.IsMulti() {
			normalized := NormalizeMulti(current)
			if !present && len(normalized) == 0 {
				continue
			}
			if list, ok := current.([]string); !ok || !stringsEqual(list, normalized) {
				changed = true
			}
			next[field.Name] = normalized
			continue
		}

		normalized := NormalizeSingle(current)
		if s, ok := current.(string); !ok || s != normalized {
			changed = true
		}
		next[field.Name] = normalized
	}

	for name := range values {
		if !known[name] {
			changed = true
		}
	}

	if !changed {
		return values, false
	}
	return next, true
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ==================== 属性校验 ====================

// ValidateAspectValues 收集全部属性错误
func ValidateAspectValues(values model.AspectValueMap, fields []model.AspectField) []string {
	var errs []string
	for i := range fields {
		field := &fields[i]
		raw := values[field.Name]

		var current []string
		if field.IsMulti() {
			current = NormalizeMulti(raw)
		} else if s := strings.TrimSpace(NormalizeSingle(raw)); s != "" {
			current = []string{s}
		}

		if field.Required && len(current) == 0 {
			errs = append(errs, fmt.Sprintf("%s is required.", field.Name))
			continue
		}

		for _, v := range current {
			if msg := validateAspectValue(field, v); msg != "" {
				errs = append(errs, msg)
				break
			}
		}
	}
	return errs
}

func validateAspectValue(field *model.AspectField, v string) string {
	if field.Mode == model.AspectModeSelectionOnly && len(field.Options) > 0 && !field.HasOption(v) {
		return fmt.Sprintf("%s has an invalid value: %s.", field.Name, v)
	}
	if field.MaxLength > 0 && len([]rune(v)) > field.MaxLength {
		return fmt.Sprintf("%s must be %d characters or fewer.", field.Name, field.MaxLength)
	}
	if field.DataType == model.AspectDataTypeNumber {
		if _, err := strconv.ParseFloat(v, 64); err != nil {
			return fmt.Sprintf("%s must be a number.", field.Name)
		}
	}
	return ""
}
