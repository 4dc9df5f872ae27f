package backend

import (
	"context"
	"fmt"
	"net/http"
)

// ==================== 估价与提交 ====================

// EstimateItems 批量估价，一次请求带上全部物品
func (c *Client) EstimateItems(ctx context.Context, req *EstimateRequest) (*EstimateResponse, error) {
	var resp EstimateResponse
	if err := c.doRequest(ctx, http.MethodPost, PathEstimate, "", req, &resp); err != nil {
		return nil, fmt.Errorf("估价请求失败: %w", err)
	}
	return &resp, nil
}

// SubmitContactOnly 把临时商品 ID 与联系人/取件信息绑定，生成正式提交
func (c *Client) SubmitContactOnly(ctx context.Context, req *ContactSubmission) (*ContactSubmissionResponse, error) {
	var resp ContactSubmissionResponse
	if err := c.doRequest(ctx, http.MethodPost, PathContactOnly, "", req, &resp); err != nil {
		return nil, fmt.Errorf("提交联系信息失败: %w", err)
	}
	return &resp, nil
}
