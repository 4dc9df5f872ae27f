package backend

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
)

// ==================== 管理后台 ====================

// AdminListProducts 商品分页列表
func (c *Client) AdminListProducts(ctx context.Context, token string, q ProductQuery) (*ProductPage, error) {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = 20
	}
	params := map[string]string{
		"page":      strconv.Itoa(q.Page),
		"page_size": strconv.Itoa(q.PageSize),
		"status":    q.Status,
		"search":    q.Search,
		"date_from": q.DateFrom,
		"date_to":   q.DateTo,
	}

	var page ProductPage
	if err := c.doRequest(ctx, http.MethodGet, PathAdminProducts, token, nil, &page, withQuery(params)); err != nil {
		return nil, fmt.Errorf("获取商品列表失败: %w", err)
	}
	return &page, nil
}

// AdminUpdateStatus approve / reject / list / unlist
func (c *Client) AdminUpdateStatus(ctx context.Context, token string, upd *StatusUpdate) (*MessageResponse, error) {
	resp, err := c.postMessage(ctx, PathAdminUpdateStatus, token, upd)
	if err != nil {
		return nil, fmt.Errorf("更新商品状态失败: %w", err)
	}
	return resp, nil
}

// AdminUpdatePrice 更新最终价格
func (c *Client) AdminUpdatePrice(ctx context.Context, token string, upd *PriceUpdate) (*PriceUpdateResponse, error) {
	var resp PriceUpdateResponse
	if err := c.doRequest(ctx, http.MethodPost, PathAdminUpdatePrice, token, upd, &resp); err != nil {
		return nil, fmt.Errorf("更新商品价格失败: %w", err)
	}
	return &resp, nil
}

// AdminDashboardStats 后台统计
func (c *Client) AdminDashboardStats(ctx context.Context, token string) (*DashboardStats, error) {
	var stats DashboardStats
	if err := c.doRequest(ctx, http.MethodGet, PathAdminStats, token, nil, &stats); err != nil {
		return nil, fmt.Errorf("获取统计失败: %w", err)
	}
	return &stats, nil
}
