package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"bluberry_store_v1/internal/middleware"
	"bluberry_store_v1/internal/service"
	"bluberry_store_v1/pkg/backend"
)

// ==================== 统一响应 ====================

func success(c *gin.Context, status int, data interface{}) {
	c.JSON(status, gin.H{
		"code":    0,
		"message": "success",
		"data":    data,
	})
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, gin.H{
		"code":    400,
		"message": message,
	})
}

// respondError 错误转为响应
//
//	ValidationError          422 + notice
//	UpstreamError            后端 4xx 原样，其余 502 + notice
//	AuthError/未登录         401 + 登录跳转
//	会话/物品/图片不存在     404
//	阶段不符/已提交          409
func respondError(c *gin.Context, err error, fallback string) {
	var authErr *backend.AuthError
	if errors.As(err, &authErr) || errors.Is(err, service.ErrNotAuthenticated) {
		middleware.AbortWithAuthError(c, err)
		return
	}

	if ve, ok := service.AsValidationError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"code":    422,
			"message": ve.Message,
			"data":    gin.H{"notice": ve.Notice()},
		})
		return
	}

	if ue, ok := service.AsUpstreamError(err); ok {
		status := http.StatusBadGateway
		if apiErr, ok := backend.AsApiError(ue.Err); ok && apiErr.Status >= 400 && apiErr.Status < 500 {
			status = apiErr.Status
		}
		zap.L().Warn("后端调用失败", zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(status, gin.H{
			"code":    status,
			"message": ue.Message,
			"data":    gin.H{"notice": ue.Notice()},
		})
		return
	}

	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrWizardNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrPhotoNotFound),
		errors.Is(err, service.ErrConsoleDisabled):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrWizardStage),
		errors.Is(err, service.ErrAlreadySubmitted):
		status = http.StatusConflict
	case errors.Is(err, service.ErrNoSuggestion),
		errors.Is(err, service.ErrInvalidAdminInput):
		status = http.StatusBadRequest
	case errors.Is(err, service.ErrConsolePassword):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrSuggestionOff):
		status = http.StatusServiceUnavailable
	}

	if status == http.StatusInternalServerError {
		zap.L().Error(fallback, zap.String("path", c.Request.URL.Path), zap.Error(err))
		c.JSON(status, gin.H{
			"code":    500,
			"message": fallback,
		})
		return
	}
	c.JSON(status, gin.H{
		"code":    status,
		"message": err.Error(),
	})
}
