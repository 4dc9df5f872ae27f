package model

// SuggestionCallLog 描述建议的模型调用日志
type SuggestionCallLog struct {
	BaseModel

	// 关联
	SessionID int64  `gorm:"index;comment:向导会话ID"`
	ItemKey   string `gorm:"size:64;comment:物品键"`

	ModelName string `gorm:"size:64;comment:模型名称"`
	WithImage bool   `gorm:"comment:是否附带图片"`

	// 用量统计
	InputTokens  int `gorm:"default:0;comment:输入token数"`
	OutputTokens int `gorm:"default:0;comment:输出token数"`

	DurationMs int64 `gorm:"comment:耗时(毫秒)"`

	// 状态
	Status   string `gorm:"size:32;index;default:success;comment:状态(success/failed)"`
	ErrorMsg string `gorm:"size:1024;comment:错误信息"`
}

func (SuggestionCallLog) TableName() string {
	return "suggestion_call_logs"
}

const (
	SuggestionCallSuccess = "success"
	SuggestionCallFailed  = "failed"
)
