package service

import (
	"encoding/json"
	"reflect"
	"testing"

	"tcg_inventory_v1/pkg/tcgid"
)

func decodeRecord(t *testing.T, raw string) tcgid.InventoryItemResp {
	t.Helper()
	var record tcgid.InventoryItemResp
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		t.Fatalf("解析测试数据失败: %v", err)
	}
	return record
}

func TestRecordToFormValues(t *testing.T) {
	tests := []struct {
		name         string
		raw          string
		wantTitle    string
		wantQuantity string
		wantLength   string
		wantDimUnit  string
		wantWtUnit   string
	}{
		{
			name:         "camelCase 嵌套结构",
			raw:          `{"locale":"en_GB","availability":{"shipToLocationAvailability":{"quantity":3}},"product":{"title":"Mewtwo"},"packageWeightAndSize":{"dimensions":{"length":4.5,"unit":"CENTIMETER"},"weight":{"value":2,"unit":"GRAM"}}}`,
			wantTitle:    "Mewtwo",
			wantQuantity: "3",
			wantLength:   "4.5",
			wantDimUnit:  "CENTIMETER",
			wantWtUnit:   "GRAM",
		},
		{
			name:         "snake_case 扁平结构",
			raw:          `{"product_title":"Pikachu","available_quantity":"7","package_length":"2","package_dimension_unit":"INCH"}`,
			wantTitle:    "Pikachu",
			wantQuantity: "7",
			wantLength:   "2",
			wantDimUnit:  "INCH",
			wantWtUnit:   "POUND",
		},
		{
			name:         "缺省值",
			raw:          `{"title":"Eevee"}`,
			wantTitle:    "Eevee",
			wantQuantity: "1",
			wantDimUnit:  "INCH",
			wantWtUnit:   "POUND",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := RecordToFormValues(decodeRecord(t, tt.raw))
			if v.Title != tt.wantTitle {
				t.Errorf("Title = %v, want %v", v.Title, tt.wantTitle)
			}
			if v.Quantity != tt.wantQuantity {
				t.Errorf("Quantity = %v, want %v", v.Quantity, tt.wantQuantity)
			}
			if v.PackageLength != tt.wantLength {
				t.Errorf("PackageLength = %v, want %v", v.PackageLength, tt.wantLength)
			}
			if v.PackageDimensionUnit != tt.wantDimUnit {
				t.Errorf("PackageDimensionUnit = %v, want %v", v.PackageDimensionUnit, tt.wantDimUnit)
			}
			if v.PackageWeightUnit != tt.wantWtUnit {
				t.Errorf("PackageWeightUnit = %v, want %v", v.PackageWeightUnit, tt.wantWtUnit)
			}
			if v.Locale == "" {
				t.Errorf("Locale 不应为空")
			}
		})
	}
}

func TestRecordToAspectValues(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want map[string]any
	}{
		{
			name: "对象",
			raw:  `{"product":{"aspects":{"Game":["Pokémon TCG"],"Set":["Base Set","Promo"]}}}`,
			want: map[string]any{"Game": []string{"Pokémon TCG"}, "Set": []string{"Base Set", "Promo"}},
		},
		{
			name: "JSON 字符串",
			raw:  `{"product_aspects_json":"{\"Character\":\"Pikachu\"}"}`,
			want: map[string]any{"Character": "Pikachu"},
		},
		{
			name: "名称数组",
			raw:  `{"product_aspects":[{"localizedAspectName":"Game","values":["Magic: The Gathering"]},{"values":["x"]}]}`,
			want: map[string]any{"Game": []string{"Magic: The Gathering"}},
		},
		{
			name: "无效 JSON",
			raw:  `{"product_aspects":"{oops"}`,
			want: map[string]any{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecordToAspectValues(decodeRecord(t, tt.raw))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RecordToAspectValues() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestRecordToImageURLs(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{"数组", `{"product_image_urls":["https://a/master.jpg",""]}`, []string{"https://a/master.jpg"}},
		{"JSON 字符串", `{"product_image_urls":"[\"https://b/master.png\"]"}`, []string{"https://b/master.png"}},
		{"product.imageUrls", `{"product":{"imageUrls":["https://c/master.png"]}}`, []string{"https://c/master.png"}},
		{"缺失", `{}`, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := RecordToImageURLs(decodeRecord(t, tt.raw)); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("RecordToImageURLs() = %v, want %v", got, tt.want)
			}
		})
	}
}
