package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/repository"
	"bluberry_store_v1/pkg/backend"
)

// ==================== 令牌存储 ====================

// sessionTokens 以 AppSession 作为 backend.TokenStore
type sessionTokens struct {
	repo repository.AppSessionRepository
	sess *model.AppSession
}

func (t *sessionTokens) AccessToken() string  { return t.sess.AccessToken }
func (t *sessionTokens) RefreshToken() string { return t.sess.RefreshToken }

func (t *sessionTokens) SaveTokens(ctx context.Context, access, refresh string) error {
	t.sess.AccessToken = access
	t.sess.RefreshToken = refresh
	return t.repo.UpdateTokens(ctx, t.sess.SessionKey, access, refresh)
}

// ==================== 服务实现 ====================

// AuthService 登录会话与账号相关调用
type AuthService struct {
	client   *backend.Client
	sessions repository.AppSessionRepository
	ttl      time.Duration
	now      func() time.Time
}

// NewAuthService 创建鉴权服务
func NewAuthService(client *backend.Client, sessions repository.AppSessionRepository, ttl time.Duration) *AuthService {
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return &AuthService{client: client, sessions: sessions, ttl: ttl, now: time.Now}
}

// Login 登录并初始化会话
func (s *AuthService) Login(ctx context.Context, email, password string) (*model.AppSession, error) {
	data, err := s.client.Login(ctx, email, password)
	if err != nil {
		return nil, upstream(err, "Login Failed", "Login failed. Please try again.")
	}

	profile, _ := json.Marshal(data.Profile)
	sess := &model.AppSession{SessionKey: uuid.NewString()}
	sess.Init(data.AccessToken, data.RefreshToken, model.SessionIdentity{
		UserID:     data.User.ID,
		Email:      data.User.Email,
		FullName:   data.User.FullName,
		Role:       data.User.Role,
		IsVerified: data.User.IsVerified,
		Profile:    datatypes.JSON(profile),
	}, s.ttl, s.now())

	if err := s.sessions.Create(ctx, sess); err != nil {
		return nil, fmt.Errorf("保存登录会话失败: %w", err)
	}
	zap.L().Info("用户登录", zap.Int64("user_id", sess.UserID), zap.String("role", sess.Role))
	return sess, nil
}

// Logout 注销会话
func (s *AuthService) Logout(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := s.sessions.Delete(ctx, key); err != nil {
		return fmt.Errorf("注销会话失败: %w", err)
	}
	return nil
}

// Current 按会话键加载有效会话
func (s *AuthService) Current(ctx context.Context, key string) (*model.AppSession, error) {
	if key == "" {
		return nil, ErrNotAuthenticated
	}
	sess, err := s.sessions.GetByKey(ctx, key)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotAuthenticated
		}
		return nil, fmt.Errorf("加载会话失败: %w", err)
	}
	if sess.Expired(s.now()) || !sess.IsAuthenticated() {
		_ = s.sessions.Delete(ctx, key)
		return nil, ErrNotAuthenticated
	}
	return sess, nil
}

// UnlockConsole 记录后台口令已验证
func (s *AuthService) UnlockConsole(ctx context.Context, sess *model.AppSession) error {
	sess.ConsoleUnlocked = true
	if err := s.sessions.Update(ctx, sess); err != nil {
		return fmt.Errorf("保存会话失败: %w", err)
	}
	return nil
}

// ==================== 账号 ====================

// Register 注册
func (s *AuthService) Register(ctx context.Context, req *backend.RegisterRequest) (*backend.MessageResponse, error) {
	if req.Password != req.ConfirmPassword {
		return nil, NewValidationError("Registration Failed", "Passwords do not match.")
	}
	resp, err := s.client.Register(ctx, req)
	if err != nil {
		return nil, upstream(err, "Registration Failed", "Registration failed. Please try again.")
	}
	return resp, nil
}

// CreateOTP 发送验证码
func (s *AuthService) CreateOTP(ctx context.Context, email string) (*backend.MessageResponse, error) {
	resp, err := s.client.CreateOTP(ctx, email)
	if err != nil {
		return nil, upstream(err, "Error", "Failed to send verification code.")
	}
	return resp, nil
}

// VerifyOTP 校验验证码
func (s *AuthService) VerifyOTP(ctx context.Context, email, otp string) (*backend.MessageResponse, error) {
	resp, err := s.client.VerifyOTP(ctx, email, otp)
	if err != nil {
		return nil, upstream(err, "Verification Failed", "Invalid or expired code.")
	}
	return resp, nil
}

// ForgotPassword 发送重置验证码
func (s *AuthService) ForgotPassword(ctx context.Context, email string) (*backend.MessageResponse, error) {
	resp, err := s.client.ForgotPassword(ctx, email)
	if err != nil {
		return nil, upstream(err, "Error", "Failed to send reset code.")
	}
	return resp, nil
}

// VerifyEmail 校验重置验证码
func (s *AuthService) VerifyEmail(ctx context.Context, email, otp string) (*backend.MessageResponse, error) {
	resp, err := s.client.VerifyEmail(ctx, email, otp)
	if err != nil {
		return nil, upstream(err, "Verification Failed", "Invalid or expired code.")
	}
	return resp, nil
}

// ResetPassword 重置密码
func (s *AuthService) ResetPassword(ctx context.Context, req *backend.ResetPasswordRequest) (*backend.MessageResponse, error) {
	if req.NewPassword != req.ConfirmPassword {
		return nil, NewValidationError("Reset Failed", "Passwords do not match.")
	}
	resp, err := s.client.ResetPassword(ctx, req)
	if err != nil {
		return nil, upstream(err, "Reset Failed", "Failed to reset password.")
	}
	return resp, nil
}

// ChangePassword 修改密码
func (s *AuthService) ChangePassword(ctx context.Context, sess *model.AppSession, req *backend.ChangePasswordRequest) (*backend.MessageResponse, error) {
	if req.NewPassword != req.ConfirmPassword {
		return nil, NewValidationError("Change Failed", "Passwords do not match.")
	}
	resp, err := withSession(ctx, s, sess, func(token string) (*backend.MessageResponse, error) {
		return s.client.ChangePassword(ctx, token, req)
	})
	if err != nil {
		return nil, upstream(err, "Change Failed", "Failed to change password.")
	}
	return resp, nil
}

// ==================== 资料 ====================

// GetProfile 获取资料并同步到会话
func (s *AuthService) GetProfile(ctx context.Context, sess *model.AppSession) (*backend.ProfileResponse, error) {
	resp, err := withSession(ctx, s, sess, func(token string) (*backend.ProfileResponse, error) {
		return s.client.GetProfile(ctx, token)
	})
	if err != nil {
		return nil, upstream(err, "Error", "Failed to load profile.")
	}
	s.syncProfile(ctx, sess, resp)
	return resp, nil
}

// UpdateProfile 更新资料
func (s *AuthService) UpdateProfile(ctx context.Context, sess *model.AppSession, upd *backend.ProfileUpdate) (*backend.ProfileResponse, error) {
	resp, err := withSession(ctx, s, sess, func(token string) (*backend.ProfileResponse, error) {
		return s.client.UpdateProfile(ctx, token, upd)
	})
	if err != nil {
		return nil, upstream(err, "Update Failed", "Failed to update profile.")
	}
	s.syncProfile(ctx, sess, resp)
	return resp, nil
}

func (s *AuthService) syncProfile(ctx context.Context, sess *model.AppSession, resp *backend.ProfileResponse) {
	profile, err := json.Marshal(resp.Data.Profile)
	if err != nil {
		return
	}
	sess.Profile = datatypes.JSON(profile)
	if resp.Data.User.FullName != "" {
		sess.FullName = resp.Data.User.FullName
	}
	if err := s.sessions.Update(ctx, sess); err != nil {
		zap.L().Warn("同步用户资料失败", zap.Int64("user_id", sess.UserID), zap.Error(err))
	}
}

// ==================== 内部方法 ====================

// withSession 以会话令牌执行鉴权调用，会话失效时注销
func withSession[T any](ctx context.Context, s *AuthService, sess *model.AppSession, call func(token string) (T, error)) (T, error) {
	if !sess.IsAuthenticated() {
		var zero T
		return zero, ErrNotAuthenticated
	}
	result, err := backend.Authed(ctx, s.client, &sessionTokens{repo: s.sessions, sess: sess}, call)

	var authErr *backend.AuthError
	if errors.As(err, &authErr) {
		zap.L().Info("会话失效，已注销",
			zap.Int64("user_id", sess.UserID),
			zap.String("reason", authErr.Reason))
		_ = s.sessions.Delete(ctx, sess.SessionKey)
		sess.Teardown()
	}
	return result, err
}

// upstream 后端错误转为带文案的错误；会话失效错误原样返回
func upstream(err error, title, fallback string) error {
	var authErr *backend.AuthError
	if errors.As(err, &authErr) || errors.Is(err, ErrNotAuthenticated) {
		return err
	}
	if _, ok := AsValidationError(err); ok {
		return err
	}
	return &UpstreamError{Title: title, Message: backend.ErrorMessage(err, fallback), Err: err}
}
