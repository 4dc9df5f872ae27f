package model

import (
	"strings"
	"time"

	"gorm.io/datatypes"
)

// ==================== 状态常量 ====================

const (
	// 向导阶段
	WizardStageItems     = "items"
	WizardStageContact   = "contact"
	WizardStageSubmitted = "submitted"
	WizardStageExpired   = "expired"

	// 物品成色
	ConditionLikeNew   = "like-new"
	ConditionExcellent = "excellent"
	ConditionGood      = "good"
	ConditionFair      = "fair"
	ConditionPoor      = "poor"

	// 图片上传状态
	PhotoStatePending   = "pending"
	PhotoStateUploading = "uploading"
	PhotoStateUploaded  = "uploaded"
	PhotoStateErrored   = "errored"

	// 估价来源
	EstimateSourcePrimaryAI   = "primary-ai"
	EstimateSourceSecondaryAI = "secondary-ai"
	EstimateSourceMarketplace = "marketplace-fallback"
	EstimateSourceBasic       = "basic-fallback"

	// 估价置信度
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

const (
	// MinPhotos 校验时要求的最少图片数
	MinPhotos = 1
	// MinPhotosRecommended 页面提示的建议图片数，不参与校验
	MinPhotosRecommended = 3
)

// 后端估价接口的成色枚举
var conditionForAPI = map[string]string{
	ConditionLikeNew:   "NEW",
	ConditionExcellent: "EXCELLENT",
	ConditionGood:      "GOOD",
	ConditionFair:      "FAIR",
	ConditionPoor:      "POOR",
}

// IsValidCondition 成色是否在枚举内
func IsValidCondition(c string) bool {
	_, ok := conditionForAPI[c]
	return ok
}

// MapConditionForAPI 成色转后端枚举，未知值按 GOOD 处理
func MapConditionForAPI(c string) string {
	if v, ok := conditionForAPI[c]; ok {
		return v
	}
	return "GOOD"
}

// ParseEstimateSource 解析后端返回的估价来源
func ParseEstimateSource(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case s == "", s == "api_estimate", strings.HasPrefix(s, "primary"):
		return EstimateSourcePrimaryAI
	case strings.HasPrefix(s, "secondary"), strings.Contains(s, "gemini"):
		return EstimateSourceSecondaryAI
	case strings.Contains(s, "ebay"), strings.Contains(s, "marketplace"):
		return EstimateSourceMarketplace
	default:
		return EstimateSourceBasic
	}
}

// NormalizeConfidence 置信度统一为 high/medium/low
func NormalizeConfidence(raw string) string {
	s := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(s, "high"):
		return ConfidenceHigh
	case strings.Contains(s, "low"):
		return ConfidenceLow
	default:
		return ConfidenceMedium
	}
}

// ==================== 数据库模型 ====================

// WizardSession 物品提交向导会话
type WizardSession struct {
	BaseModel
	SessionKey string `gorm:"size:64;uniqueIndex;not null;comment:会话键" json:"session_key"`
	UserID     int64  `gorm:"index;comment:登录用户ID" json:"user_id,omitempty"`
	Stage      string `gorm:"size:16;index;default:items;comment:向导阶段" json:"stage"`

	// 联系与取件
	FullName        string     `gorm:"size:128;comment:姓名" json:"full_name"`
	Email           string     `gorm:"size:255;comment:邮箱" json:"email"`
	PhoneDisplay    string     `gorm:"size:32;comment:显示格式电话" json:"phone"`
	PhoneAPI        string     `gorm:"size:32;comment:E.164 电话" json:"phone_api"`
	PickupAddress   string     `gorm:"size:512;comment:取件地址" json:"pickup_address"`
	PickupDate      *time.Time `gorm:"comment:取件时间" json:"pickup_date"`
	ConsentAccepted bool       `gorm:"comment:是否同意隐私条款" json:"consent_accepted"`

	// 估价结果
	TempProductIDs      datatypes.JSONSlice[int64] `gorm:"comment:临时商品ID" json:"temp_product_ids"`
	TotalEstimatedValue float64                    `gorm:"comment:估价总额" json:"total_estimated_value"`
	EstimatedAt         *time.Time                 `gorm:"comment:估价时间" json:"estimated_at"`
	EstimateExpiresAt   *time.Time                 `gorm:"comment:临时存储过期时间" json:"estimate_expires_at"`
	EstimateNextStep    string                     `gorm:"size:255;comment:后端提示的下一步" json:"estimate_next_step,omitempty"`

	// 提交结果
	SubmissionID      int64          `gorm:"index;comment:提交ID" json:"submission_id,omitempty"`
	SubmissionSummary datatypes.JSON `gorm:"comment:提交摘要" json:"submission_summary,omitempty"`
	SubmittedAt       *time.Time     `gorm:"comment:提交时间" json:"submitted_at"`
	LastError         string         `gorm:"size:1024;comment:最近一次错误" json:"last_error,omitempty"`
	LastActiveAt      time.Time      `gorm:"index;comment:最近活动时间" json:"last_active_at"`

	// 关联
	Items []WizardItem `gorm:"foreignKey:SessionID" json:"items"`
}

func (*WizardSession) TableName() string {
	return "wizard_sessions"
}

// WizardItem 待出售物品
type WizardItem struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"-"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	SessionID   int64     `gorm:"index;not null;comment:会话ID" json:"-"`
	ItemKey     string    `gorm:"size:64;uniqueIndex;not null;comment:物品键" json:"id"`
	Position    int       `gorm:"index;comment:排序" json:"position"`
	Name        string    `gorm:"size:255;comment:名称" json:"name"`
	Description string    `gorm:"type:text;comment:描述" json:"description"`
	Condition   string    `gorm:"size:16;comment:成色" json:"condition"`
	DefectNotes string    `gorm:"type:text;comment:瑕疵说明" json:"defect_notes"`
	ImageURL    string    `gorm:"size:2048;comment:参考图片链接" json:"image_url,omitempty"`
	IsExpanded  bool      `gorm:"comment:是否展开" json:"is_expanded"`
	IsValid     bool      `gorm:"comment:是否填写完整" json:"is_valid"`
	Suggestion  string    `gorm:"type:text;comment:待确认的AI描述" json:"suggestion,omitempty"`

	// 估价结果，写入后不再按下标推导
	TempProductID      *int64  `gorm:"index;comment:临时商品ID" json:"temp_product_id"`
	EstimatePrice      string  `gorm:"size:32;comment:显示价格" json:"estimate_price,omitempty"`
	EstimateMin        float64 `gorm:"comment:最低价" json:"estimate_min,omitempty"`
	EstimateMax        float64 `gorm:"comment:最高价" json:"estimate_max,omitempty"`
	EstimateSource     string  `gorm:"size:32;comment:估价来源" json:"estimate_source,omitempty"`
	EstimateConfidence string  `gorm:"size:16;comment:置信度" json:"estimate_confidence,omitempty"`
	ReferenceCount     int     `gorm:"comment:参考数量" json:"reference_count,omitempty"`

	// 关联
	Photos []ItemPhoto `gorm:"foreignKey:ItemID" json:"photos"`
}

func (*WizardItem) TableName() string {
	return "wizard_items"
}

// PhotoAsset 已编码的图片内容，可被多个物品共享
type PhotoAsset struct {
	ID             int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	SessionID      int64     `gorm:"index;not null;comment:会话ID" json:"-"`
	AssetKey       string    `gorm:"size:64;uniqueIndex;not null;comment:资源键" json:"asset_key"`
	FileName       string    `gorm:"size:255;comment:原始文件名" json:"file_name"`
	MimeType       string    `gorm:"size:64;comment:MIME" json:"mime_type"`
	SizeBytes      int64     `gorm:"comment:文件大小" json:"size_bytes"`
	EncodedContent string    `gorm:"type:text;comment:data URL" json:"-"`
	PreviewKey     string    `gorm:"size:512;comment:预览图存储键" json:"-"`
	PreviewURL     string    `gorm:"size:2048;comment:预览图地址" json:"preview_url"`
	UploadState    string    `gorm:"size:16;default:pending;comment:上传状态" json:"upload_state"`
	ErrorMessage   string    `gorm:"size:1024;comment:错误信息" json:"error_message,omitempty"`
}

func (*PhotoAsset) TableName() string {
	return "photo_assets"
}

// ItemPhoto 物品与图片的有序关联
type ItemPhoto struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"-"`
	ItemID    int64     `gorm:"index;not null;comment:物品ID" json:"-"`
	AssetID   int64     `gorm:"index;not null;comment:图片ID" json:"asset_id"`
	Position  int       `gorm:"comment:排序" json:"position"`

	Asset *PhotoAsset `gorm:"foreignKey:AssetID" json:"asset,omitempty"`
}

func (*ItemPhoto) TableName() string {
	return "item_photos"
}

// ==================== 辅助方法 ====================

// ItemComplete 物品字段是否填写完整
func ItemComplete(name, description, condition, defects string, photoCount int) bool {
	return strings.TrimSpace(name) != "" &&
		strings.TrimSpace(description) != "" &&
		strings.TrimSpace(defects) != "" &&
		IsValidCondition(condition) &&
		photoCount >= MinPhotos
}

// RefreshValidity 重新计算 IsValid
func (i *WizardItem) RefreshValidity() bool {
	i.IsValid = ItemComplete(i.Name, i.Description, i.Condition, i.DefectNotes, len(i.Photos))
	return i.IsValid
}

// HasEstimate 是否已绑定临时商品ID
func (i *WizardItem) HasEstimate() bool {
	return i.TempProductID != nil
}

// ClearEstimate 清空估价结果
func (i *WizardItem) ClearEstimate() {
	i.TempProductID = nil
	i.EstimatePrice = ""
	i.EstimateMin = 0
	i.EstimateMax = 0
	i.EstimateSource = ""
	i.EstimateConfidence = ""
	i.ReferenceCount = 0
}

// Step1Valid 至少一个物品且全部有效
func (s *WizardSession) Step1Valid() bool {
	if len(s.Items) == 0 {
		return false
	}
	for i := range s.Items {
		if !s.Items[i].IsValid {
			return false
		}
	}
	return true
}

// Step2Valid 联系信息是否可提交
func (s *WizardSession) Step2Valid() bool {
	return strings.TrimSpace(s.FullName) != "" &&
		strings.TrimSpace(s.Email) != "" &&
		strings.Contains(s.Email, "@") &&
		strings.TrimSpace(s.PhoneDisplay) != "" &&
		strings.TrimSpace(s.PickupAddress) != "" &&
		s.PickupDate != nil &&
		s.ConsentAccepted
}

// HasFreshEstimate 估价结果是否可用于提交
func (s *WizardSession) HasFreshEstimate() bool {
	return len(s.TempProductIDs) > 0
}

// ClearEstimate 清空会话级估价结果
func (s *WizardSession) ClearEstimate() {
	s.TempProductIDs = nil
	s.TotalEstimatedValue = 0
	s.EstimatedAt = nil
	s.EstimateExpiresAt = nil
	s.EstimateNextStep = ""
}

// IsClosed 会话是否已结束
func (s *WizardSession) IsClosed() bool {
	return s.Stage == WizardStageSubmitted || s.Stage == WizardStageExpired
}

// Touch 更新最近活动时间
func (s *WizardSession) Touch(now time.Time) {
	s.LastActiveAt = now
}

// FindItem 按物品键查找
func (s *WizardSession) FindItem(itemKey string) (*WizardItem, int) {
	for i := range s.Items {
		if s.Items[i].ItemKey == itemKey {
			return &s.Items[i], i
		}
	}
	return nil, -1
}
