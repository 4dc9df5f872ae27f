package backend

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/goccy/go-json"
)

// Config BluBerry 后端配置
type Config struct {
	BaseURL    string // e.g. https://api.bluberry.com/api
	Timeout    time.Duration
	RetryCount int // 仅对 GET 的传输层错误重试
	Debug      bool
	UserAgent  string
}

// Client BluBerry REST 客户端
// 所有业务数据都经由此处访问后端，上层不直接拼 URL
type Client struct {
	http *resty.Client
}

// New 创建客户端
func New(cfg Config) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = "BluBerry-Storefront/1.0"
	}

	rc := resty.New().
		SetBaseURL(strings.TrimRight(cfg.BaseURL, "/")).
		SetTimeout(cfg.Timeout).
		SetDebug(cfg.Debug).
		SetHeader("User-Agent", cfg.UserAgent).
		SetHeader("Accept", "application/json").
		SetJSONMarshaler(json.Marshal).
		SetJSONUnmarshaler(json.Unmarshal).
		SetRetryCount(cfg.RetryCount).
		SetRetryWaitTime(300 * time.Millisecond).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			// POST 不重试，避免估价/提交被后端重复处理
			if err == nil || r == nil || r.Request == nil {
				return false
			}
			return r.Request.Method == http.MethodGet
		})

	return &Client{http: rc}
}

// ==================== 公开路径 ====================

// publicPrefixes 不携带 Bearer 的路径前缀
var publicPrefixes = []string{
	PathLogin,
	PathRegister,
	"/auth/otp/",
	PathForgotPassword,
	PathResetPassword,
	PathVerifyEmail,
	PathTokenRefresh,
}

// IsPublicPath 判断路径是否为免鉴权接口
func IsPublicPath(path string) bool {
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	for _, prefix := range publicPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// ==================== 请求封装 ====================

type requestOption func(*resty.Request)

func withQuery(params map[string]string) requestOption {
	return func(r *resty.Request) {
		for k, v := range params {
			if v != "" {
				r.SetQueryParam(k, v)
			}
		}
	}
}

func withMultipart(fields map[string]string, fileField, fileName string, content []byte) requestOption {
	return func(r *resty.Request) {
		r.SetMultipartFormData(fields)
		if len(content) > 0 {
			r.SetFileReader(fileField, fileName, bytes.NewReader(content))
		}
	}
}

// doRequest 发送请求并解析响应
// 非 2xx 响应统一转为 *ApiError
func (c *Client) doRequest(ctx context.Context, method, path, token string, body, result interface{}, opts ...requestOption) error {
	req := c.http.R().SetContext(ctx)
	if token != "" && !IsPublicPath(path) {
		req.SetAuthToken(token)
	}
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	for _, opt := range opts {
		opt(req)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return fmt.Errorf("发送请求失败 %s %s: %w", method, path, err)
	}

	if resp.IsError() {
		return NormalizeError(resp.StatusCode(), resp.Body())
	}

	raw := resp.Body()
	if result != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, result); err != nil {
			return fmt.Errorf("解析响应失败: %w", err)
		}
	}
	return nil
}
