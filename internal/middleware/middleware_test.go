package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/service"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeLoader struct {
	sessions map[string]*model.AppSession
	err      error
}

func (f *fakeLoader) Current(_ context.Context, key string) (*model.AppSession, error) {
	if f.err != nil {
		return nil, f.err
	}
	if s, ok := f.sessions[key]; ok {
		return s, nil
	}
	return nil, service.ErrNotAuthenticated
}

func performRequest(r http.Handler, method, path string, setup func(req *http.Request)) *httptest.ResponseRecorder {
	req, _ := http.NewRequest(method, path, nil)
	if setup != nil {
		setup(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func withSessionCookie(t *testing.T, key string) func(req *http.Request) {
	token, err := SignSessionKey(key)
	require.NoError(t, err)
	return func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: AppSessionCookie, Value: token})
	}
}

func newSessionRouter(loader SessionLoader, extra ...gin.HandlerFunc) *gin.Engine {
	r := gin.New()
	r.Use(SessionAuth(loader))
	handlers := append(extra, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"code": 0, "user_id": GetUserID(c)})
	})
	r.GET("/api/profile", handlers...)
	return r
}

// ==================== 会话令牌 ====================

func TestSessionToken(t *testing.T) {
	token, err := SignSessionKey("sess-1")
	require.NoError(t, err)

	claims, err := ParseSessionToken(token)
	require.NoError(t, err)
	assert.Equal(t, "sess-1", claims.SessionKey)

	_, err = ParseSessionToken(token + "x")
	assert.Error(t, err, "篡改签名")

	old := GetSessionConfig()
	SetSessionConfig(&SessionConfig{Secret: "other", TTL: time.Hour, Issuer: old.Issuer})
	_, err = ParseSessionToken(token)
	assert.Error(t, err, "换密钥后失效")
	SetSessionConfig(old)
}

func TestSignInRedirect(t *testing.T) {
	assert.Equal(t, "/auth/sign-in", SignInRedirect(""))
	assert.Equal(t, "/auth/sign-in?returnUrl=%2Fadmin%2Fproducts", SignInRedirect("/admin/products"))
}

// ==================== 鉴权中间件 ====================

func TestRequireAuth(t *testing.T) {
	loader := &fakeLoader{sessions: map[string]*model.AppSession{
		"sess-1": {SessionKey: "sess-1", AccessToken: "a", UserID: 9},
	}}
	r := newSessionRouter(loader, RequireAuth())

	t.Run("未登录返回登录跳转", func(t *testing.T) {
		w := performRequest(r, http.MethodGet, "/api/profile", func(req *http.Request) {
			req.Header.Set("X-Return-Path", "/account/profile")
		})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Body.String(), `"redirect":"/auth/sign-in?returnUrl=%2Faccount%2Fprofile"`)
	})

	t.Run("外部回跳地址被忽略", func(t *testing.T) {
		w := performRequest(r, http.MethodGet, "/api/profile", func(req *http.Request) {
			req.Header.Set("X-Return-Path", "//evil.example.com")
		})
		assert.Contains(t, w.Body.String(), "returnUrl=%2Fapi%2Fprofile")
	})

	t.Run("Cookie 登录", func(t *testing.T) {
		w := performRequest(r, http.MethodGet, "/api/profile", withSessionCookie(t, "sess-1"))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"user_id":9`)
	})

	t.Run("Bearer 登录", func(t *testing.T) {
		token, err := SignSessionKey("sess-1")
		require.NoError(t, err)
		w := performRequest(r, http.MethodGet, "/api/profile", func(req *http.Request) {
			req.Header.Set("Authorization", "Bearer "+token)
		})
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("会话已失效时清除 Cookie", func(t *testing.T) {
		w := performRequest(r, http.MethodGet, "/api/profile", withSessionCookie(t, "gone"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Contains(t, w.Header().Get("Set-Cookie"), AppSessionCookie+"=;")
	})
}

func TestSessionAuth_LoaderError(t *testing.T) {
	r := newSessionRouter(&fakeLoader{err: errors.New("db down")})

	w := performRequest(r, http.MethodGet, "/api/profile", withSessionCookie(t, "sess-1"))
	assert.Equal(t, http.StatusOK, w.Code, "可选鉴权不拦截")
	assert.Empty(t, w.Header().Get("Set-Cookie"), "临时错误不清除 Cookie")
}

func TestRequireAdmin(t *testing.T) {
	loader := &fakeLoader{sessions: map[string]*model.AppSession{
		"user":  {AccessToken: "a", UserID: 1, Role: "customer"},
		"admin": {AccessToken: "a", UserID: 2, Role: "Admin"},
	}}
	r := newSessionRouter(loader, RequireAdmin())

	w := performRequest(r, http.MethodGet, "/api/profile", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(r, http.MethodGet, "/api/profile", withSessionCookie(t, "user"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), InsufficientPerPath)

	w = performRequest(r, http.MethodGet, "/api/profile", withSessionCookie(t, "admin"))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRequireConsole(t *testing.T) {
	loader := &fakeLoader{sessions: map[string]*model.AppSession{
		"locked":   {AccessToken: "a", Role: "admin"},
		"unlocked": {AccessToken: "a", Role: "admin", ConsoleUnlocked: true},
	}}

	r := newSessionRouter(loader, RequireAdmin(), RequireConsole(true))
	w := performRequest(r, http.MethodGet, "/api/profile", withSessionCookie(t, "locked"))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "console_locked")

	w = performRequest(r, http.MethodGet, "/api/profile", withSessionCookie(t, "unlocked"))
	assert.Equal(t, http.StatusOK, w.Code)

	r = newSessionRouter(loader, RequireAdmin(), RequireConsole(false))
	w = performRequest(r, http.MethodGet, "/api/profile", withSessionCookie(t, "locked"))
	assert.Equal(t, http.StatusOK, w.Code, "未配置口令时不拦截")
}

func TestAbortWithAuthError(t *testing.T) {
	r := gin.New()
	r.GET("/api/admin/stats", func(c *gin.Context) {
		AbortWithAuthError(c, errors.New("refresh failed"))
	})

	w := performRequest(r, http.MethodGet, "/api/admin/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "returnUrl=%2Fapi%2Fadmin%2Fstats")
	assert.True(t, strings.HasPrefix(w.Header().Get("Set-Cookie"), AppSessionCookie+"="))
}

// ==================== 向导 Cookie ====================

func TestWizardKey(t *testing.T) {
	r := gin.New()
	r.GET("/key", func(c *gin.Context) { c.String(http.StatusOK, WizardKey(c)) })
	r.POST("/key", func(c *gin.Context) {
		SetWizardCookie(c, "wiz-9", time.Hour)
		c.Status(http.StatusNoContent)
	})

	w := performRequest(r, http.MethodGet, "/key", func(req *http.Request) {
		req.AddCookie(&http.Cookie{Name: WizardCookie, Value: "wiz-1"})
		req.Header.Set(WizardHeader, "wiz-2")
	})
	assert.Equal(t, "wiz-1", w.Body.String(), "Cookie 优先")

	w = performRequest(r, http.MethodGet, "/key", func(req *http.Request) {
		req.Header.Set(WizardHeader, "wiz-2")
	})
	assert.Equal(t, "wiz-2", w.Body.String())

	w = performRequest(r, http.MethodPost, "/key", nil)
	cookie := w.Header().Get("Set-Cookie")
	assert.Contains(t, cookie, WizardCookie+"=wiz-9")
	assert.Contains(t, cookie, "HttpOnly")
}

// ==================== 进行中守卫 ====================

func TestInFlightGuard(t *testing.T) {
	g := NewInFlightGuard()
	key := WizardOpKey("wiz-1", OpFinalize)

	assert.True(t, g.TryAcquire(key))
	assert.False(t, g.TryAcquire(key))
	assert.True(t, g.TryAcquire(WizardOpKey("wiz-1", OpEstimate)), "不同操作互不影响")
	assert.True(t, g.TryAcquire(WizardOpKey("wiz-2", OpFinalize)), "不同会话互不影响")

	g.Release(key)
	assert.False(t, g.Busy(key))
	assert.True(t, g.TryAcquire(key))
}

func TestInFlight_Conflict(t *testing.T) {
	g := NewInFlightGuard()
	entered := make(chan struct{})
	release := make(chan struct{})

	r := gin.New()
	r.POST("/api/wizard/submit", InFlight(g, OpFinalize), func(c *gin.Context) {
		close(entered)
		<-release
		c.JSON(http.StatusOK, gin.H{"code": 0})
	})
	withWizard := func(req *http.Request) { req.Header.Set(WizardHeader, "wiz-1") }

	var wg sync.WaitGroup
	var first *httptest.ResponseRecorder
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = performRequest(r, http.MethodPost, "/api/wizard/submit", withWizard)
	}()
	<-entered

	second := performRequest(r, http.MethodPost, "/api/wizard/submit", withWizard)
	assert.Equal(t, http.StatusConflict, second.Code)

	close(release)
	wg.Wait()
	assert.Equal(t, http.StatusOK, first.Code)
	assert.False(t, g.Busy(WizardOpKey("wiz-1", OpFinalize)), "完成后释放")
}

// ==================== 日志与恢复 ====================

func TestRecovery(t *testing.T) {
	r := gin.New()
	r.Use(RequestLogger(zap.NewNop()), Recovery(zap.NewNop()))
	r.GET("/boom", func(c *gin.Context) { panic("boom") })

	w := performRequest(r, http.MethodGet, "/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"code":500`)
}

// ==================== 校验标签 ====================

func TestRegisterValidators(t *testing.T) {
	require.NoError(t, RegisterValidators())

	type req struct {
		Condition string `json:"condition" binding:"required,item_condition"`
		Action    string `json:"action" binding:"omitempty,admin_action"`
	}
	tests := []struct {
		name    string
		in      req
		wantErr bool
	}{
		{"合法", req{Condition: "like-new", Action: "approve"}, false},
		{"非法成色", req{Condition: "mint"}, true},
		{"非法操作", req{Condition: "good", Action: "delete"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := binding.Validator.ValidateStruct(&tt.in)
			assert.Equal(t, tt.wantErr, err != nil, "err = %v", err)
		})
	}
}
