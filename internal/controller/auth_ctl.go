package controller

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"bluberry_store_v1/internal/api/dto"
	"bluberry_store_v1/internal/middleware"
	"bluberry_store_v1/internal/service"
	"bluberry_store_v1/pkg/backend"
)

type AuthController struct {
	authService *service.AuthService
}

func NewAuthController(s *service.AuthService) *AuthController {
	return &AuthController{authService: s}
}

// Login
// @Summary 登录
// @Description 后端登录成功后建立服务端会话并写入 Cookie；returnUrl 为站内路径时原样返回作为跳转目标
// @Tags Auth
// @Accept json
// @Produce json
// @Param returnUrl query string false "登录后跳转路径"
// @Param body body dto.LoginRequest true "邮箱与密码"
// @Success 200 {object} map[string]interface{} "user + token + redirect"
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/login [post]
func (ctrl *AuthController) Login(c *gin.Context) {
	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	sess, err := ctrl.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		respondError(c, err, "登录失败")
		return
	}

	token, err := middleware.SignSessionKey(sess.SessionKey)
	if err == nil {
		err = middleware.SetSessionCookie(c, sess.SessionKey)
	}
	if err != nil {
		respondError(c, err, "签发会话失败")
		return
	}

	redirect := c.Query("returnUrl")
	if !strings.HasPrefix(redirect, "/") || strings.HasPrefix(redirect, "//") {
		redirect = "/"
		if sess.IsAdmin() {
			redirect = "/admin"
		}
	}

	success(c, http.StatusOK, gin.H{
		"user":     dto.NewSessionView(sess),
		"token":    token,
		"redirect": redirect,
	})
}

// Logout
// @Summary 退出登录
// @Tags Auth
// @Success 200 {object} map[string]interface{}
// @Router /api/auth/logout [post]
func (ctrl *AuthController) Logout(c *gin.Context) {
	if sess := middleware.GetAppSession(c); sess != nil {
		if err := ctrl.authService.Logout(c.Request.Context(), sess.SessionKey); err != nil {
			respondError(c, err, "退出失败")
			return
		}
	}
	middleware.ClearSessionCookie(c)
	success(c, http.StatusOK, gin.H{"redirect": "/"})
}

// Session
// @Summary 当前登录用户
// @Description 未登录时 data 为 null
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.SessionView
// @Router /api/auth/session [get]
func (ctrl *AuthController) Session(c *gin.Context) {
	success(c, http.StatusOK, dto.NewSessionView(middleware.GetAppSession(c)))
}

// ==================== 账号 ====================

// Register
// @Summary 注册
// @Tags Auth
// @Accept json
// @Param body body dto.RegisterRequest true "注册信息"
// @Success 200 {object} backend.MessageResponse
// @Router /api/auth/register [post]
func (ctrl *AuthController) Register(c *gin.Context) {
	var req dto.RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	resp, err := ctrl.authService.Register(c.Request.Context(), &backend.RegisterRequest{
		FullName:        req.FullName,
		Email:           req.Email,
		Password:        req.Password,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, err, "注册失败")
		return
	}
	success(c, http.StatusOK, resp)
}

// CreateOTP
// @Summary 发送邮箱验证码
// @Tags Auth
// @Accept json
// @Param body body dto.EmailRequest true "邮箱"
// @Success 200 {object} backend.MessageResponse
// @Router /api/auth/otp/create [post]
func (ctrl *AuthController) CreateOTP(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	resp, err := ctrl.authService.CreateOTP(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err, "发送验证码失败")
		return
	}
	success(c, http.StatusOK, resp)
}

// VerifyOTP
// @Summary 校验邮箱验证码
// @Tags Auth
// @Accept json
// @Param body body dto.OTPRequest true "邮箱与验证码"
// @Success 200 {object} backend.MessageResponse
// @Router /api/auth/otp/verify [post]
func (ctrl *AuthController) VerifyOTP(c *gin.Context) {
	var req dto.OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	resp, err := ctrl.authService.VerifyOTP(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		respondError(c, err, "验证失败")
		return
	}
	success(c, http.StatusOK, resp)
}

// ForgotPassword
// @Summary 发送重置密码验证码
// @Tags Auth
// @Accept json
// @Param body body dto.EmailRequest true "邮箱"
// @Success 200 {object} backend.MessageResponse
// @Router /api/auth/forgot-password [post]
func (ctrl *AuthController) ForgotPassword(c *gin.Context) {
	var req dto.EmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	resp, err := ctrl.authService.ForgotPassword(c.Request.Context(), req.Email)
	if err != nil {
		respondError(c, err, "发送失败")
		return
	}
	success(c, http.StatusOK, resp)
}

// VerifyEmail
// @Summary 校验重置密码验证码
// @Tags Auth
// @Accept json
// @Param body body dto.OTPRequest true "邮箱与验证码"
// @Success 200 {object} backend.MessageResponse
// @Router /api/auth/verify-email [post]
func (ctrl *AuthController) VerifyEmail(c *gin.Context) {
	var req dto.OTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	resp, err := ctrl.authService.VerifyEmail(c.Request.Context(), req.Email, req.OTP)
	if err != nil {
		respondError(c, err, "验证失败")
		return
	}
	success(c, http.StatusOK, resp)
}

// ResetPassword
// @Summary 重置密码
// @Tags Auth
// @Accept json
// @Param body body dto.ResetPasswordRequest true "新密码"
// @Success 200 {object} backend.MessageResponse
// @Router /api/auth/reset-password [post]
func (ctrl *AuthController) ResetPassword(c *gin.Context) {
	var req dto.ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	resp, err := ctrl.authService.ResetPassword(c.Request.Context(), &backend.ResetPasswordRequest{
		Email:           req.Email,
		OTP:             req.OTP,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, err, "重置失败")
		return
	}
	success(c, http.StatusOK, resp)
}

// ==================== 需要登录 ====================

// ChangePassword
// @Summary 修改密码
// @Tags Auth
// @Accept json
// @Param body body dto.ChangePasswordRequest true "旧密码与新密码"
// @Success 200 {object} backend.MessageResponse
// @Failure 401 {object} map[string]interface{}
// @Router /api/auth/change-password [post]
func (ctrl *AuthController) ChangePassword(c *gin.Context) {
	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	resp, err := ctrl.authService.ChangePassword(c.Request.Context(), middleware.GetAppSession(c), &backend.ChangePasswordRequest{
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		respondError(c, err, "修改密码失败")
		return
	}
	success(c, http.StatusOK, resp)
}

// GetProfile
// @Summary 获取个人资料
// @Tags Profile
// @Produce json
// @Success 200 {object} backend.ProfileResponse
// @Router /api/profile [get]
func (ctrl *AuthController) GetProfile(c *gin.Context) {
	resp, err := ctrl.authService.GetProfile(c.Request.Context(), middleware.GetAppSession(c))
	if err != nil {
		respondError(c, err, "获取资料失败")
		return
	}
	success(c, http.StatusOK, resp.Data)
}

// UpdateProfile
// @Summary 更新个人资料
// @Tags Profile
// @Accept multipart/form-data
// @Param full_name formData string false "姓名"
// @Param phone_number formData string false "电话"
// @Param address formData string false "地址"
// @Param profile_picture formData file false "头像"
// @Success 200 {object} backend.ProfileResponse
// @Router /api/profile [put]
func (ctrl *AuthController) UpdateProfile(c *gin.Context) {
	var form dto.UpdateProfileForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	upd := &backend.ProfileUpdate{
		FullName:    form.FullName,
		PhoneNumber: form.PhoneNumber,
		Address:     form.Address,
	}
	if fh, err := c.FormFile("profile_picture"); err == nil {
		data, err := readPart(fh)
		if err != nil {
			badRequest(c, "读取文件失败: "+err.Error())
			return
		}
		upd.PictureName = fh.Filename
		upd.Picture = data
	}

	resp, err := ctrl.authService.UpdateProfile(c.Request.Context(), middleware.GetAppSession(c), upd)
	if err != nil {
		respondError(c, err, "更新资料失败")
		return
	}
	success(c, http.StatusOK, resp.Data)
}
