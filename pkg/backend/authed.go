package backend

import (
	"context"
	"fmt"
)

// TokenStore 会话令牌的读写入口
type TokenStore interface {
	AccessToken() string
	RefreshToken() string
	SaveTokens(ctx context.Context, access, refresh string) error
}

// Authed 执行需要鉴权的调用
// token 失效时刷新一次并重试一次；刷新失败或重试仍 401 时返回 *AuthError
// 登出与跳转由调用方决定
func Authed[T any](ctx context.Context, c *Client, store TokenStore, call func(token string) (T, error)) (T, error) {
	var zero T

	result, err := call(store.AccessToken())
	if err == nil {
		return result, nil
	}
	if !IsUnauthorized(err) {
		return zero, err
	}
	if !IsTokenInvalid(err) {
		return zero, &AuthError{Reason: "unauthorized", Cause: err}
	}

	refresh := store.RefreshToken()
	if refresh == "" {
		return zero, &AuthError{Reason: "missing refresh token", Cause: err}
	}

	pair, err := c.Refresh(ctx, refresh)
	if err != nil {
		return zero, &AuthError{Reason: "refresh failed", Cause: err}
	}
	if pair.Refresh == "" {
		pair.Refresh = refresh
	}
	if err := store.SaveTokens(ctx, pair.Access, pair.Refresh); err != nil {
		return zero, fmt.Errorf("保存刷新后的令牌失败: %w", err)
	}

	result, err = call(pair.Access)
	if err != nil {
		if IsUnauthorized(err) {
			return zero, &AuthError{Reason: "unauthorized after refresh", Cause: err}
		}
		return zero, err
	}
	return result, nil
}
