package dto

import (
	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/service"
)

// ==================== 请求 DTO ====================

// UpdateItemRequest 修改物品字段，只处理出现的字段
type UpdateItemRequest struct {
	Name        *string `json:"name,omitempty"`
	Description *string `json:"description,omitempty"`
	Condition   *string `json:"condition,omitempty" binding:"omitempty,item_condition"`
	DefectNotes *string `json:"defect_notes,omitempty"`
}

// Fields 按固定顺序展开为 字段名/值
func (r *UpdateItemRequest) Fields() []service.FieldChange {
	var out []service.FieldChange
	add := func(name string, v *string) {
		if v != nil {
			out = append(out, service.FieldChange{Field: name, Value: *v})
		}
	}
	add(service.FieldName, r.Name)
	add(service.FieldDescription, r.Description)
	add(service.FieldCondition, r.Condition)
	add(service.FieldDefectNotes, r.DefectNotes)
	return out
}

// DuplicateItemRequest 复制物品
type DuplicateItemRequest struct {
	Count int `json:"count" binding:"required,min=1"`
}

// ImageURLRequest 参考图片链接
type ImageURLRequest struct {
	URL string `json:"url" binding:"required"`
}

// ContactRequest 联系与取件信息草稿
type ContactRequest struct {
	FullName        string `json:"full_name"`
	Email           string `json:"email" binding:"omitempty,email"`
	Phone           string `json:"phone"`
	PickupAddress   string `json:"pickup_address"`
	PickupDate      string `json:"pickup_date"` // RFC3339 或 2006-01-02T15:04
	ConsentAccepted bool   `json:"consent_accepted"`
}

// ==================== 响应 DTO ====================

// WizardView 向导当前状态
type WizardView struct {
	Session    *model.WizardSession `json:"session"`
	Step1Valid bool                 `json:"step1_valid"`
	Step2Valid bool                 `json:"step2_valid"`
	ReadyItems int                  `json:"ready_items"`
	Notices    []service.Notice     `json:"notices"`

	// 页面提示用，校验只要求 model.MinPhotos
	RecommendedPhotos int `json:"recommended_photos"`
}

// NewWizardView 由服务结果构建视图
func NewWizardView(res *service.WizardResult) *WizardView {
	v := &WizardView{Session: res.Session, Notices: res.Notices, RecommendedPhotos: model.MinPhotosRecommended}
	if v.Notices == nil {
		v.Notices = []service.Notice{}
	}
	if res.Session != nil {
		v.Step1Valid = res.Session.Step1Valid()
		v.Step2Valid = res.Session.Step2Valid()
		for i := range res.Session.Items {
			if res.Session.Items[i].IsValid {
				v.ReadyItems++
			}
		}
	}
	return v
}
