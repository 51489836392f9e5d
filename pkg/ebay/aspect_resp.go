package ebay

// ==========================================
// DTO: eBay Taxonomy 属性接口原始 JSON
// ==========================================

// AspectsResponse 类目属性响应
// GET /commerce/taxonomy/v1/category_tree/{id}/get_item_aspects_for_category
type AspectsResponse struct {
	Aspects []AspectResp `json:"aspects"`
}

// AspectResp 单个属性
type AspectResp struct {
	LocalizedAspectName string               `json:"localizedAspectName"`
	AspectConstraint    AspectConstraintResp `json:"aspectConstraint"`
	AspectValues        []AspectValueResp    `json:"aspectValues"`
}

// AspectConstraintResp 属性约束
type AspectConstraintResp struct {
	AspectDataType             string   `json:"aspectDataType"`
	ItemToAspectCardinality    string   `json:"itemToAspectCardinality"`
	AspectMode                 string   `json:"aspectMode"`
	AspectRequired             bool     `json:"aspectRequired"`
	AspectUsage                string   `json:"aspectUsage"`
	AspectMaxLength            int      `json:"aspectMaxLength,omitempty"`
	AspectFormat               string   `json:"aspectFormat,omitempty"`
	AspectEnabledForVariations bool     `json:"aspectEnabledForVariations"`
	AspectApplicableTo         []string `json:"aspectApplicableTo,omitempty"`
}

// AspectValueResp 候选值
type AspectValueResp struct {
	LocalizedValue   string                `json:"localizedValue"`
	ValueConstraints []ValueConstraintResp `json:"valueConstraints,omitempty"`
}

// ValueConstraintResp 候选值依赖
type ValueConstraintResp struct {
	ApplicableForLocalizedAspectName   string   `json:"applicableForLocalizedAspectName"`
	ApplicableForLocalizedAspectValues []string `json:"applicableForLocalizedAspectValues"`
}
