package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"bluberry_store_v1/internal/api/dto"
	"bluberry_store_v1/internal/middleware"
	"bluberry_store_v1/internal/service"
)

// ==================== 控制器 ====================

// AdminController 管理后台
type AdminController struct {
	adminService      *service.AdminService
	suggestionService *service.SuggestionService
}

func NewAdminController(s *service.AdminService, suggestions *service.SuggestionService) *AdminController {
	return &AdminController{adminService: s, suggestionService: suggestions}
}

// Unlock 验证后台口令
// @Summary 解锁管理后台
// @Tags Admin
// @Accept json
// @Param body body dto.UnlockConsoleRequest true "后台口令"
// @Success 200 {object} map[string]interface{}
// @Failure 403 {object} map[string]interface{}
// @Router /api/admin/unlock [post]
func (ctrl *AdminController) Unlock(c *gin.Context) {
	var req dto.UnlockConsoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	if err := ctrl.adminService.UnlockConsole(c.Request.Context(), middleware.GetAppSession(c), req.Password); err != nil {
		respondError(c, err, "解锁失败")
		return
	}
	success(c, http.StatusOK, gin.H{"console_unlocked": true})
}

// ListProducts 商品列表
// @Summary 后台商品列表
// @Tags Admin
// @Produce json
// @Param page query int false "页码" default(1)
// @Param page_size query int false "每页数量" default(20)
// @Param status query string false "状态"
// @Param search query string false "关键词"
// @Param date_from query string false "开始日期"
// @Param date_to query string false "结束日期"
// @Success 200 {object} backend.ProductPage
// @Router /api/admin/products [get]
func (ctrl *AdminController) ListProducts(c *gin.Context) {
	var q dto.ProductListQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}
	page, err := ctrl.adminService.ListProducts(c.Request.Context(), middleware.GetAppSession(c), q.ToBackend())
	if err != nil {
		respondError(c, err, "获取商品失败")
		return
	}
	success(c, http.StatusOK, page)
}

// ProductAction 审核/上下架
// @Summary 变更商品状态
// @Description action 取 approve / reject / list / unlist；list 需要带上当前价格
// @Tags Admin
// @Accept json
// @Param id path int true "商品ID"
// @Param action path string true "操作"
// @Param body body dto.ListProductRequest false "上架价格"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/products/{id}/{action} [post]
func (ctrl *AdminController) ProductAction(c *gin.Context) {
	var uri dto.ProductActionURI
	if err := c.ShouldBindUri(&uri); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	ctx := c.Request.Context()
	sess := middleware.GetAppSession(c)
	var (
		notice *service.Notice
		err    error
	)
	switch uri.Action {
	case service.ActionApprove:
		notice, err = ctrl.adminService.Approve(ctx, sess, uri.ID)
	case service.ActionReject:
		notice, err = ctrl.adminService.Reject(ctx, sess, uri.ID)
	case service.ActionUnlist:
		notice, err = ctrl.adminService.Unlist(ctx, sess, uri.ID)
	case service.ActionList:
		var req dto.ListProductRequest
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&req); err != nil {
				badRequest(c, "参数错误: "+err.Error())
				return
			}
		}
		notice, err = ctrl.adminService.List(ctx, sess, uri.ID, service.ListingPrice{
			FinalListingPrice: req.FinalListingPrice,
			FinalPrice:        req.FinalPrice,
		})
	}
	if err != nil {
		respondError(c, err, "操作失败")
		return
	}
	success(c, http.StatusOK, gin.H{"notice": notice})
}

// UpdatePrice 修改最终价格
// @Summary 修改商品最终价格
// @Tags Admin
// @Accept json
// @Param id path int true "商品ID"
// @Param body body dto.UpdatePriceRequest true "价格"
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/products/{id}/price [put]
func (ctrl *AdminController) UpdatePrice(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "无效的商品ID")
		return
	}
	var req dto.UpdatePriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "参数错误: "+err.Error())
		return
	}

	resp, notice, err := ctrl.adminService.UpdatePrice(c.Request.Context(), middleware.GetAppSession(c), id, req.Raw())
	if err != nil {
		respondError(c, err, "修改价格失败")
		return
	}
	success(c, http.StatusOK, gin.H{
		"product": resp.Product,
		"notice":  notice,
	})
}

// Stats 后台统计
// @Summary 后台统计
// @Tags Admin
// @Produce json
// @Success 200 {object} backend.DashboardStats
// @Router /api/admin/stats [get]
func (ctrl *AdminController) Stats(c *gin.Context) {
	stats, err := ctrl.adminService.DashboardStats(c.Request.Context(), middleware.GetAppSession(c))
	if err != nil {
		respondError(c, err, "获取统计失败")
		return
	}
	success(c, http.StatusOK, stats)
}

// SuggestionUsage 描述建议调用统计
// @Summary 描述建议用量
// @Tags Admin
// @Produce json
// @Param days query int false "统计天数" default(7)
// @Success 200 {object} map[string]interface{}
// @Router /api/admin/suggestions/usage [get]
func (ctrl *AdminController) SuggestionUsage(c *gin.Context) {
	days, _ := strconv.Atoi(c.DefaultQuery("days", "7"))
	report, err := ctrl.suggestionService.Usage(c.Request.Context(), days)
	if err != nil {
		respondError(c, err, "获取用量失败")
		return
	}
	success(c, http.StatusOK, report)
}
