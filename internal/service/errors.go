package service

import (
	"errors"
	"fmt"
)

// ==================== 哨兵错误 ====================

var (
	ErrWizardNotFound    = errors.New("向导会话不存在或已过期")
	ErrItemNotFound      = errors.New("物品不存在")
	ErrPhotoNotFound     = errors.New("图片不存在")
	ErrWizardStage       = errors.New("当前阶段不允许该操作")
	ErrAlreadySubmitted  = errors.New("该向导已提交")
	ErrEstimateMismatch  = errors.New("估价结果数量与物品不一致")
	ErrNoSuggestion      = errors.New("没有可应用的建议")
	ErrSuggestionOff     = errors.New("AI 建议未启用")
	ErrNotAuthenticated  = errors.New("未登录")
	ErrConsoleDisabled   = errors.New("后台口令未配置")
	ErrConsolePassword   = errors.New("后台口令错误")
	ErrInvalidAdminInput = errors.New("参数错误")
)

// ==================== 提示信息 ====================

const (
	NoticeDefault     = "default"
	NoticeDestructive = "destructive"
)

// Notice 返回给页面的提示
type Notice struct {
	Title   string `json:"title"`
	Message string `json:"message"`
	Variant string `json:"variant,omitempty"`
}

func info(title, message string) Notice {
	return Notice{Title: title, Message: message, Variant: NoticeDefault}
}

func warn(title, message string) Notice {
	return Notice{Title: title, Message: message, Variant: NoticeDestructive}
}

// ValidationError 可恢复的业务校验错误，直接展示给用户
type ValidationError struct {
	Title   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Title, e.Message)
}

// Notice 转为提示
func (e *ValidationError) Notice() Notice {
	return warn(e.Title, e.Message)
}

// NewValidationError 创建校验错误
func NewValidationError(title, message string) *ValidationError {
	return &ValidationError{Title: title, Message: message}
}

// AsValidationError 判断并取出校验错误
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}

// UpstreamError 后端调用失败，Title/Message 为展示给用户的文案
type UpstreamError struct {
	Title   string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	if e.Err == nil {
		return e.Message
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Notice 转为提示
func (e *UpstreamError) Notice() Notice {
	return warn(e.Title, e.Message)
}

// AsUpstreamError 判断并取出后端错误
func AsUpstreamError(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}
