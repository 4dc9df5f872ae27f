package backend

import (
	"context"
	"fmt"
	"net/http"
)

// SubmitContact 联系表单
func (c *Client) SubmitContact(ctx context.Context, form *ContactForm) (*MessageResponse, error) {
	return c.postMessage(ctx, PathSubmitContact, "", form)
}

// SubmitReview 提交评价
func (c *Client) SubmitReview(ctx context.Context, token string, review *Review) (*MessageResponse, error) {
	return c.postMessage(ctx, PathSubmitReview, token, review)
}

// ListReviews 评价列表
// 后端可能返回数组或 {data: [...]}，原样透传
func (c *Client) ListReviews(ctx context.Context) (interface{}, error) {
	var reviews interface{}
	if err := c.doRequest(ctx, http.MethodGet, PathReviews, "", nil, &reviews); err != nil {
		return nil, fmt.Errorf("获取评价失败: %w", err)
	}
	return reviews, nil
}

// RequestService 上门服务申请
func (c *Client) RequestService(ctx context.Context, req *ServiceRequest) (*MessageResponse, error) {
	return c.postMessage(ctx, PathRequestService, "", req)
}
