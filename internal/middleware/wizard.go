package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
)

// WizardCookie 向导会话 Cookie 名，值为不透明的会话键
const WizardCookie = "bb_wizard"

// WizardHeader 不便使用 Cookie 的客户端可改用请求头
const WizardHeader = "X-Wizard-Session"

// WizardKey 当前请求的向导会话键
func WizardKey(c *gin.Context) string {
	if key, err := c.Cookie(WizardCookie); err == nil && key != "" {
		return key
	}
	return c.GetHeader(WizardHeader)
}

// SetWizardCookie 写入向导会话 Cookie
func SetWizardCookie(c *gin.Context, key string, ttl time.Duration) {
	setCookie(c, WizardCookie, key, ttl)
}

// ClearWizardCookie 清除向导会话 Cookie
func ClearWizardCookie(c *gin.Context) {
	setCookie(c, WizardCookie, "", -1)
}
