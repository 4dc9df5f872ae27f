package backend

import (
	"context"
	"fmt"
	"net/http"
)

// ==================== 公开鉴权接口 ====================

// Login 登录
func (c *Client) Login(ctx context.Context, email, password string) (*LoginData, error) {
	var resp LoginResponse
	body := map[string]string{"email": email, "password": password}
	if err := c.doRequest(ctx, http.MethodPost, PathLogin, "", body, &resp); err != nil {
		return nil, fmt.Errorf("登录失败: %w", err)
	}

	data := resp.Result()
	if data.AccessToken == "" {
		msg := resp.Message
		if msg == "" {
			msg = "Login failed. Please check your credentials."
		}
		return nil, &ApiError{Kind: ErrorKindStructured, Status: http.StatusUnauthorized, Detail: msg}
	}
	return &data, nil
}

// Refresh 用 refresh token 换新的 access token
func (c *Client) Refresh(ctx context.Context, refreshToken string) (*TokenPair, error) {
	var pair TokenPair
	body := map[string]string{"refresh": refreshToken}
	if err := c.doRequest(ctx, http.MethodPost, PathTokenRefresh, "", body, &pair); err != nil {
		return nil, err
	}
	if pair.Access == "" {
		return nil, fmt.Errorf("刷新响应缺少 access token")
	}
	return &pair, nil
}

// Register 注册
func (c *Client) Register(ctx context.Context, req *RegisterRequest) (*MessageResponse, error) {
	return c.postMessage(ctx, PathRegister, "", req)
}

// CreateOTP 发送 OTP
func (c *Client) CreateOTP(ctx context.Context, email string) (*MessageResponse, error) {
	return c.postMessage(ctx, PathOTPCreate, "", &OTPRequest{Email: email})
}

// VerifyOTP 校验 OTP
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (*MessageResponse, error) {
	return c.postMessage(ctx, PathOTPVerify, "", &OTPRequest{Email: email, OTP: otp})
}

// ForgotPassword 忘记密码
func (c *Client) ForgotPassword(ctx context.Context, email string) (*MessageResponse, error) {
	return c.postMessage(ctx, PathForgotPassword, "", &OTPRequest{Email: email})
}

// VerifyEmail 邮箱验证码校验
func (c *Client) VerifyEmail(ctx context.Context, email, otp string) (*MessageResponse, error) {
	return c.postMessage(ctx, PathVerifyEmail, "", &OTPRequest{Email: email, OTP: otp})
}

// ResetPassword 重置密码
func (c *Client) ResetPassword(ctx context.Context, req *ResetPasswordRequest) (*MessageResponse, error) {
	return c.postMessage(ctx, PathResetPassword, "", req)
}

// ==================== 需要 token 的接口 ====================

// ChangePassword 修改密码
func (c *Client) ChangePassword(ctx context.Context, token string, req *ChangePasswordRequest) (*MessageResponse, error) {
	return c.postMessage(ctx, PathChangePassword, token, req)
}

// GetProfile 获取资料
func (c *Client) GetProfile(ctx context.Context, token string) (*ProfileResponse, error) {
	var resp ProfileResponse
	if err := c.doRequest(ctx, http.MethodGet, PathProfile, token, nil, &resp); err != nil {
		return nil, fmt.Errorf("获取资料失败: %w", err)
	}
	return &resp, nil
}

// UpdateProfile 更新资料，头像以 multipart 上传
func (c *Client) UpdateProfile(ctx context.Context, token string, upd *ProfileUpdate) (*ProfileResponse, error) {
	fields := map[string]string{
		"full_name":    upd.FullName,
		"phone_number": upd.PhoneNumber,
		"address":      upd.Address,
	}
	var resp ProfileResponse
	err := c.doRequest(ctx, http.MethodPut, PathProfile, token, nil, &resp,
		withMultipart(fields, "profile_picture", upd.PictureName, upd.Picture))
	if err != nil {
		return nil, fmt.Errorf("更新资料失败: %w", err)
	}
	return &resp, nil
}

func (c *Client) postMessage(ctx context.Context, path, token string, body interface{}) (*MessageResponse, error) {
	var resp MessageResponse
	if err := c.doRequest(ctx, http.MethodPost, path, token, body, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
