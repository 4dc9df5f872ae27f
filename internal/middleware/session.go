package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/service"
)

// ==================== 会话配置 ====================

// SessionConfig 登录会话 Cookie 配置
type SessionConfig struct {
	Secret string        // 签名密钥
	TTL    time.Duration // Cookie 有效期
	Issuer string        // 签发者
	Secure bool          // 仅 HTTPS
}

// DefaultSessionConfig 默认配置
func DefaultSessionConfig() *SessionConfig {
	return &SessionConfig{
		Secret: "bluberry-session-secret-change-in-production",
		TTL:    7 * 24 * time.Hour,
		Issuer: "bluberry-storefront",
	}
}

var sessionConfig = DefaultSessionConfig()

// SetSessionConfig 设置会话配置
func SetSessionConfig(cfg *SessionConfig) {
	sessionConfig = cfg
}

// GetSessionConfig 获取会话配置
func GetSessionConfig() *SessionConfig {
	return sessionConfig
}

// ==================== 会话令牌 ====================

// AppSessionCookie 登录会话 Cookie 名
const AppSessionCookie = "bb_session"

// 跳转目标
const (
	SignInPath          = "/auth/sign-in"
	InsufficientPerPath = "/?error=insufficient-permissions"
)

// SessionClaims Cookie 中只保存会话键，令牌本身留在服务端
type SessionClaims struct {
	SessionKey string `json:"sid"`
	jwt.RegisteredClaims
}

// SignSessionKey 签发会话 Cookie 值
func SignSessionKey(key string) (string, error) {
	now := time.Now()
	claims := &SessionClaims{
		SessionKey: key,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    sessionConfig.Issuer,
			Subject:   "session",
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(sessionConfig.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(sessionConfig.Secret))
}

// ParseSessionToken 校验签名并取出会话键
func ParseSessionToken(tokenString string) (*SessionClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(sessionConfig.Secret), nil
	}, jwt.WithIssuer(sessionConfig.Issuer))
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid || claims.Subject != "session" || claims.SessionKey == "" {
		return nil, errors.New("invalid session token")
	}
	return claims, nil
}

// SetSessionCookie 登录成功后写入 Cookie
func SetSessionCookie(c *gin.Context, key string) error {
	token, err := SignSessionKey(key)
	if err != nil {
		return err
	}
	setCookie(c, AppSessionCookie, token, sessionConfig.TTL)
	return nil
}

// ClearSessionCookie 清除登录 Cookie
func ClearSessionCookie(c *gin.Context) {
	setCookie(c, AppSessionCookie, "", -1)
}

func setCookie(c *gin.Context, name, value string, ttl time.Duration) {
	maxAge := int(ttl.Seconds())
	if ttl < 0 {
		maxAge = -1
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(name, value, maxAge, "/", "", sessionConfig.Secure, true)
}

// ==================== Gin 中间件 ====================

// ContextKeyAppSession 当前登录会话
const ContextKeyAppSession = "app_session"

// SessionLoader 按会话键加载有效会话
type SessionLoader interface {
	Current(ctx context.Context, key string) (*model.AppSession, error)
}

// SessionAuth 加载登录会话（不强制登录）
// Cookie 优先，其次 Authorization: Bearer
func SessionAuth(loader SessionLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw, _ := c.Cookie(AppSessionCookie)
		if raw == "" {
			if parts := strings.SplitN(c.GetHeader("Authorization"), " ", 2); len(parts) == 2 && parts[0] == "Bearer" {
				raw = parts[1]
			}
		}
		if raw == "" {
			c.Next()
			return
		}

		claims, err := ParseSessionToken(raw)
		if err != nil {
			ClearSessionCookie(c)
			c.Next()
			return
		}

		sess, err := loader.Current(c.Request.Context(), claims.SessionKey)
		switch {
		case errors.Is(err, service.ErrNotAuthenticated):
			ClearSessionCookie(c)
		case err != nil:
			zap.L().Warn("加载登录会话失败", zap.Error(err))
		default:
			c.Set(ContextKeyAppSession, sess)
		}
		c.Next()
	}
}

// RequireAuth 未登录时返回登录跳转
func RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !GetAppSession(c).IsAuthenticated() {
			abortSignIn(c, "请先登录")
			return
		}
		c.Next()
	}
}

// RequireAdmin 非管理员跳回首页
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetAppSession(c)
		if !sess.IsAuthenticated() {
			abortSignIn(c, "请先登录")
			return
		}
		if !sess.IsAdmin() {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "无权限访问",
				"data":    gin.H{"redirect": InsufficientPerPath},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireConsole 配置了后台口令时要求先解锁
func RequireConsole(enabled bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		sess := GetAppSession(c)
		if enabled && (sess == nil || !sess.ConsoleUnlocked) {
			c.JSON(http.StatusForbidden, gin.H{
				"code":    403,
				"message": "后台未解锁",
				"data":    gin.H{"console_locked": true},
			})
			c.Abort()
			return
		}
		c.Next()
	}
}

// AbortWithAuthError 会话失效：清 Cookie 并返回登录跳转
func AbortWithAuthError(c *gin.Context, err error) {
	zap.L().Info("登录会话失效", zap.String("path", c.Request.URL.Path), zap.Error(err))
	ClearSessionCookie(c)
	abortSignIn(c, "登录已过期，请重新登录")
}

func abortSignIn(c *gin.Context, message string) {
	c.JSON(http.StatusUnauthorized, gin.H{
		"code":    401,
		"message": message,
		"data":    gin.H{"redirect": SignInRedirect(returnPath(c))},
	})
	c.Abort()
}

// SignInRedirect 登录页地址，带回跳路径
func SignInRedirect(path string) string {
	if path == "" {
		return SignInPath
	}
	return SignInPath + "?returnUrl=" + url.QueryEscape(path)
}

// returnPath 页面路径由前端通过 X-Return-Path 传入，缺省用请求路径
func returnPath(c *gin.Context) string {
	if p := c.GetHeader("X-Return-Path"); strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") {
		return p
	}
	return c.Request.URL.Path
}

// ==================== 辅助函数 ====================

// GetAppSession 从 Context 获取登录会话，未登录返回 nil
func GetAppSession(c *gin.Context) *model.AppSession {
	if v, exists := c.Get(ContextKeyAppSession); exists {
		if sess, ok := v.(*model.AppSession); ok {
			return sess
		}
	}
	return nil
}

// GetUserID 当前用户 ID，未登录为 0
func GetUserID(c *gin.Context) int64 {
	if sess := GetAppSession(c); sess.IsAuthenticated() {
		return sess.UserID
	}
	return 0
}
