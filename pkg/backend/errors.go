package backend

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/goccy/go-json"
)

// ==================== ApiError ====================

// ErrorKind 后端错误形态
type ErrorKind string

const (
	ErrorKindStructured ErrorKind = "structured" // JSON 对象里带 detail/error/message
	ErrorKindRaw        ErrorKind = "raw"        // 纯文本或 JSON 字符串
	ErrorKindUnknown    ErrorKind = "unknown"    // 无法识别的结构
)

// TokenInvalidCode 后端返回的 token 失效标记
const TokenInvalidCode = "token_not_valid"

// ApiError 后端错误
// Detail 仅在 structured 下有值，Body 在 raw/unknown 下有值
type ApiError struct {
	Kind   ErrorKind
	Status int
	Detail string
	Body   string
	Code   string
}

func (e *ApiError) Error() string {
	return fmt.Sprintf("backend %d: %s", e.Status, e.Message())
}

// Message 面向用户的错误文案
func (e *ApiError) Message() string {
	switch e.Kind {
	case ErrorKindStructured:
		return e.Detail
	case ErrorKindRaw:
		return e.Body
	default:
		if e.Body == "" {
			return fmt.Sprintf("API Error: %d %s", e.Status, http.StatusText(e.Status))
		}
		return "API Error: " + e.Body
	}
}

// structuredKeys 按优先级探测的字段
var structuredKeys = []string{"detail", "error", "message"}

// NormalizeError 把任意错误响应体归一成 ApiError
func NormalizeError(status int, body []byte) *ApiError {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return &ApiError{Kind: ErrorKindUnknown, Status: status}
	}

	var decoded interface{}
	if err := json.Unmarshal([]byte(trimmed), &decoded); err != nil {
		return &ApiError{Kind: ErrorKindRaw, Status: status, Body: trimmed}
	}

	switch v := decoded.(type) {
	case string:
		return &ApiError{Kind: ErrorKindRaw, Status: status, Body: v}
	case map[string]interface{}:
		code, _ := v["code"].(string)
		for _, key := range structuredKeys {
			if text := firstText(v[key]); text != "" {
				return &ApiError{Kind: ErrorKindStructured, Status: status, Detail: text, Code: code}
			}
		}
		return &ApiError{Kind: ErrorKindUnknown, Status: status, Body: trimmed, Code: code}
	default:
		return &ApiError{Kind: ErrorKindUnknown, Status: status, Body: trimmed}
	}
}

// firstText 取字符串，或字符串数组的第一个元素
func firstText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case []interface{}:
		if len(t) > 0 {
			if s, ok := t[0].(string); ok {
				return strings.TrimSpace(s)
			}
		}
	}
	return ""
}

// ==================== AuthError ====================

// AuthError 会话失效，调用方负责登出与跳转
type AuthError struct {
	Reason string
	Cause  error
}

func (e *AuthError) Error() string {
	if e.Cause != nil {
		return "auth: " + e.Reason + ": " + e.Cause.Error()
	}
	return "auth: " + e.Reason
}

func (e *AuthError) Unwrap() error {
	return e.Cause
}

// ==================== 判定工具 ====================

// AsApiError 提取 ApiError
func AsApiError(err error) (*ApiError, bool) {
	var apiErr *ApiError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsUnauthorized 是否 401
func IsUnauthorized(err error) bool {
	apiErr, ok := AsApiError(err)
	return ok && apiErr.Status == http.StatusUnauthorized
}

// IsTokenInvalid 401 且带有 token 失效标记
func IsTokenInvalid(err error) bool {
	apiErr, ok := AsApiError(err)
	if !ok || apiErr.Status != http.StatusUnauthorized {
		return false
	}
	if apiErr.Code == TokenInvalidCode {
		return true
	}
	text := strings.ToLower(apiErr.Detail + " " + apiErr.Body)
	if !strings.Contains(text, "token") {
		return false
	}
	return strings.Contains(text, "invalid") ||
		strings.Contains(text, "expired") ||
		strings.Contains(text, "not valid")
}

// ErrorMessage 提取可展示的错误文案
func ErrorMessage(err error, fallback string) string {
	if err == nil {
		return ""
	}
	var authErr *AuthError
	if errors.As(err, &authErr) {
		return "Your session has expired. Please sign in again."
	}
	if apiErr, ok := AsApiError(err); ok {
		if msg := apiErr.Message(); msg != "" {
			return msg
		}
	}
	return fallback
}
