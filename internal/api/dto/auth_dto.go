package dto

import (
	"github.com/goccy/go-json"

	"bluberry_store_v1/internal/model"
)

// ==================== 请求 DTO ====================

// LoginRequest 登录
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterRequest 注册
type RegisterRequest struct {
	FullName        string `json:"full_name" binding:"required"`
	Email           string `json:"email" binding:"required,email"`
	Password        string `json:"password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// EmailRequest 只需要邮箱的请求
type EmailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// OTPRequest 验证码校验
type OTPRequest struct {
	Email string `json:"email" binding:"required,email"`
	OTP   string `json:"otp" binding:"required"`
}

// ResetPasswordRequest 重置密码
type ResetPasswordRequest struct {
	Email           string `json:"email" binding:"required,email"`
	OTP             string `json:"otp" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// ChangePasswordRequest 修改密码
type ChangePasswordRequest struct {
	OldPassword     string `json:"old_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// UpdateProfileForm 资料更新（multipart，头像字段 profile_picture 可选）
type UpdateProfileForm struct {
	FullName    string `form:"full_name"`
	PhoneNumber string `form:"phone_number"`
	Address     string `form:"address"`
}

// UnlockConsoleRequest 后台口令
type UnlockConsoleRequest struct {
	Password string `json:"password" binding:"required"`
}

// ==================== 响应 DTO ====================

// SessionView 当前登录用户
type SessionView struct {
	UserID          int64           `json:"user_id"`
	Email           string          `json:"email"`
	FullName        string          `json:"full_name"`
	Role            string          `json:"role"`
	IsVerified      bool            `json:"is_verified"`
	IsAdmin         bool            `json:"is_admin"`
	ConsoleUnlocked bool            `json:"console_unlocked"`
	Profile         json.RawMessage `json:"profile,omitempty"`
}

// NewSessionView 会话转视图，不暴露令牌
func NewSessionView(s *model.AppSession) *SessionView {
	if !s.IsAuthenticated() {
		return nil
	}
	return &SessionView{
		UserID:          s.UserID,
		Email:           s.Email,
		FullName:        s.FullName,
		Role:            s.Role,
		IsVerified:      s.IsVerified,
		IsAdmin:         s.IsAdmin(),
		ConsoleUnlocked: s.ConsoleUnlocked,
		Profile:         json.RawMessage(s.Profile),
	}
}
