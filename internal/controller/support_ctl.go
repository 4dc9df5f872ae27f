package controller

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bluberry_store_v1/internal/middleware"
	"bluberry_store_v1/internal/service"
	"bluberry_store_v1/pkg/backend"
)

// SupportController 联系表单、评价、上门服务
type SupportController struct {
	supportService *service.SupportService
}

func NewSupportController(s *service.SupportService) *SupportController {
	return &SupportController{supportService: s}
}

// SubmitContact
// @Summary 提交联系表单
// @Tags Support
// @Accept json
// @Param body body backend.ContactForm true "联系表单"
// @Success 200 {object} map[string]interface{}
// @Router /api/contact [post]
func (ctrl *SupportController) SubmitContact(c *gin.Context) {
	var form backend.ContactForm
	if err := c.ShouldBindJSON(&form); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	notice, err := ctrl.supportService.SubmitContact(c.Request.Context(), &form)
	if err != nil {
		respondError(c, err, "提交失败")
		return
	}
	success(c, http.StatusOK, gin.H{"notice": notice})
}

// SubmitReview
// @Summary 提交评价
// @Description 已登录时使用账号邮箱
// @Tags Support
// @Accept json
// @Param body body backend.Review true "评价"
// @Success 200 {object} map[string]interface{}
// @Router /api/reviews [post]
func (ctrl *SupportController) SubmitReview(c *gin.Context) {
	var review backend.Review
	if err := c.ShouldBindJSON(&review); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	notice, err := ctrl.supportService.SubmitReview(c.Request.Context(), middleware.GetAppSession(c), &review)
	if err != nil {
		respondError(c, err, "提交失败")
		return
	}
	success(c, http.StatusOK, gin.H{"notice": notice})
}

// ListReviews
// @Summary 评价列表
// @Tags Support
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/reviews [get]
func (ctrl *SupportController) ListReviews(c *gin.Context) {
	reviews, err := ctrl.supportService.ListReviews(c.Request.Context())
	if err != nil {
		respondError(c, err, "获取评价失败")
		return
	}
	success(c, http.StatusOK, reviews)
}

// RequestService
// @Summary 申请上门服务
// @Tags Support
// @Accept json
// @Param body body backend.ServiceRequest true "服务申请"
// @Success 200 {object} map[string]interface{}
// @Router /api/service-requests [post]
func (ctrl *SupportController) RequestService(c *gin.Context) {
	var req backend.ServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	notice, err := ctrl.supportService.RequestService(c.Request.Context(), &req)
	if err != nil {
		respondError(c, err, "提交失败")
		return
	}
	success(c, http.StatusOK, gin.H{"notice": notice})
}
