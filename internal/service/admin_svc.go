package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/pkg/backend"
)

// 后台商品操作
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
	ActionList    = "list"
	ActionUnlist  = "unlist"
)

var actionVerb = map[string]string{
	ActionApprove: "approved",
	ActionReject:  "rejected",
	ActionList:    "listed",
	ActionUnlist:  "unlisted",
}

// IsAdminAction 是否合法的后台操作
func IsAdminAction(action string) bool {
	_, ok := actionVerb[action]
	return ok
}

// ListingPrice 上架价格输入，优先 FinalListingPrice
type ListingPrice struct {
	FinalListingPrice float64
	FinalPrice        float64
}

// AdminService 管理后台
type AdminService struct {
	auth        *AuthService
	consoleHash []byte
}

// NewAdminService 创建后台服务；consoleHash 为空表示不启用后台口令
func NewAdminService(auth *AuthService, consoleHash string) *AdminService {
	return &AdminService{auth: auth, consoleHash: []byte(strings.TrimSpace(consoleHash))}
}

// ConsoleEnabled 是否启用后台口令
func (s *AdminService) ConsoleEnabled() bool {
	return len(s.consoleHash) > 0
}

// UnlockConsole 校验后台口令
func (s *AdminService) UnlockConsole(ctx context.Context, sess *model.AppSession, password string) error {
	if !s.ConsoleEnabled() {
		return ErrConsoleDisabled
	}
	if err := bcrypt.CompareHashAndPassword(s.consoleHash, []byte(password)); err != nil {
		zap.L().Warn("后台口令错误", zap.Int64("user_id", sess.UserID))
		return ErrConsolePassword
	}
	return s.auth.UnlockConsole(ctx, sess)
}

// ListProducts 分页查询商品
func (s *AdminService) ListProducts(ctx context.Context, sess *model.AppSession, q backend.ProductQuery) (*backend.ProductPage, error) {
	page, err := withSession(ctx, s.auth, sess, func(token string) (*backend.ProductPage, error) {
		return s.auth.client.AdminListProducts(ctx, token, q)
	})
	if err != nil {
		return nil, upstream(err, "Error", "Failed to load products.")
	}
	return page, nil
}

// Approve 审核通过
func (s *AdminService) Approve(ctx context.Context, sess *model.AppSession, id int64) (*Notice, error) {
	return s.updateStatus(ctx, sess, &backend.StatusUpdate{ID: id, Action: ActionApprove})
}

// Reject 驳回
func (s *AdminService) Reject(ctx context.Context, sess *model.AppSession, id int64) (*Notice, error) {
	return s.updateStatus(ctx, sess, &backend.StatusUpdate{ID: id, Action: ActionReject})
}

// List 上架，价格取 final_listing_price，没有则取 final_price
func (s *AdminService) List(ctx context.Context, sess *model.AppSession, id int64, price ListingPrice) (*Notice, error) {
	use := price.FinalListingPrice
	if use <= 0 {
		use = price.FinalPrice
	}
	if use <= 0 {
		return nil, NewValidationError("Validation Error", "Please set a final price before listing the product")
	}
	return s.updateStatus(ctx, sess, &backend.StatusUpdate{
		ID:         id,
		Action:     ActionList,
		FinalPrice: strconv.FormatFloat(use, 'f', -1, 64),
	})
}

// Unlist 下架
func (s *AdminService) Unlist(ctx context.Context, sess *model.AppSession, id int64) (*Notice, error) {
	return s.updateStatus(ctx, sess, &backend.StatusUpdate{ID: id, Action: ActionUnlist})
}

// UpdatePrice 修改最终价格，必须为正数
func (s *AdminService) UpdatePrice(ctx context.Context, sess *model.AppSession, id int64, raw string) (*backend.PriceUpdateResponse, *Notice, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil, NewValidationError("Validation Error", "Please enter a valid price")
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || v <= 0 {
		return nil, nil, NewValidationError("Validation Error", "Please enter a valid positive price")
	}

	resp, err := withSession(ctx, s.auth, sess, func(token string) (*backend.PriceUpdateResponse, error) {
		return s.auth.client.AdminUpdatePrice(ctx, token, &backend.PriceUpdate{ID: id, FinalPrice: raw})
	})
	if err != nil {
		return nil, nil, upstream(err, "Error", "Failed to update price")
	}
	zap.L().Info("商品价格已更新", zap.Int64("product_id", id), zap.String("price", raw))
	n := info("Success", "Price updated successfully! "+resp.Message)
	return resp, &n, nil
}

// DashboardStats 后台统计
func (s *AdminService) DashboardStats(ctx context.Context, sess *model.AppSession) (*backend.DashboardStats, error) {
	stats, err := withSession(ctx, s.auth, sess, func(token string) (*backend.DashboardStats, error) {
		return s.auth.client.AdminDashboardStats(ctx, token)
	})
	if err != nil {
		return nil, upstream(err, "Error", "Failed to load dashboard stats.")
	}
	return stats, nil
}

func (s *AdminService) updateStatus(ctx context.Context, sess *model.AppSession, upd *backend.StatusUpdate) (*Notice, error) {
	resp, err := withSession(ctx, s.auth, sess, func(token string) (*backend.MessageResponse, error) {
		return s.auth.client.AdminUpdateStatus(ctx, token, upd)
	})
	if err != nil {
		return nil, upstream(err, "Error", fmt.Sprintf("Failed to %s product", upd.Action))
	}
	zap.L().Info("商品状态已更新", zap.Int64("product_id", upd.ID), zap.String("action", upd.Action))
	n := info("Success", fmt.Sprintf("Product %s successfully! %s", actionVerb[upd.Action], resp.Message))
	return &n, nil
}
