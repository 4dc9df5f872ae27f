package middleware

import (
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ==================== InFlightGuard 进行中请求守卫 ====================

// InFlightGuard 同一向导会话的同一操作同时只允许一个请求
type InFlightGuard struct {
	mu      sync.Mutex
	running map[string]struct{}
}

// NewInFlightGuard 创建守卫
func NewInFlightGuard() *InFlightGuard {
	return &InFlightGuard{running: make(map[string]struct{})}
}

// TryAcquire 占用 key，已被占用时返回 false
func (g *InFlightGuard) TryAcquire(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.running[key]; busy {
		return false
	}
	g.running[key] = struct{}{}
	return true
}

// Release 释放 key
func (g *InFlightGuard) Release(key string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.running, key)
}

// Busy 仅检查
func (g *InFlightGuard) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.running[key]
	return busy
}

// ==================== Key 生成工具 ====================

// WizardOp 受保护的向导操作
type WizardOp string

const (
	OpEstimate WizardOp = "estimate"
	OpFinalize WizardOp = "finalize"
)

// WizardOpKey 生成会话级操作 Key
func WizardOpKey(sessionKey string, op WizardOp) string {
	return fmt.Sprintf("wizard:%s:%s", sessionKey, op)
}

// ==================== Gin 中间件 ====================

// InFlight 请求处理期间占用 会话+操作，重复请求返回 409
// 没有向导会话的请求直接放行，由后续处理返回 404
func InFlight(guard *InFlightGuard, op WizardOp) gin.HandlerFunc {
	return func(c *gin.Context) {
		sessionKey := WizardKey(c)
		if sessionKey == "" {
			c.Next()
			return
		}

		key := WizardOpKey(sessionKey, op)
		if !guard.TryAcquire(key) {
			zap.L().Info("重复请求被拒绝", zap.String("op", string(op)), zap.String("session", sessionKey))
			c.JSON(http.StatusConflict, gin.H{
				"code":    409,
				"message": "操作进行中，请稍候",
				"data":    gin.H{"op": op},
			})
			c.Abort()
			return
		}
		defer guard.Release(key)

		c.Next()
	}
}
