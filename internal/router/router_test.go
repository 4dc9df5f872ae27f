package router

import (
	"bytes"
	"encoding/json"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"bluberry_store_v1/internal/api/dto"
	"bluberry_store_v1/internal/config"
	"bluberry_store_v1/internal/controller"
	"bluberry_store_v1/internal/middleware"
	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/repository"
	"bluberry_store_v1/internal/service"
	"bluberry_store_v1/pkg/backend"
)

func init() {
	gin.SetMode(gin.TestMode)
	if err := middleware.RegisterValidators(); err != nil {
		panic(err)
	}
}

// ==================== 假后端 ====================

type fakeBackend struct {
	mu             sync.Mutex
	hits           map[string]int
	estimateStatus int
	lastSubmit     backend.ContactSubmission
}

func (fb *fakeBackend) hit(path string) {
	fb.mu.Lock()
	fb.hits[path]++
	fb.mu.Unlock()
}

func (fb *fakeBackend) hitCount(path string) int {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.hits[path]
}

func (fb *fakeBackend) submitted() backend.ContactSubmission {
	fb.mu.Lock()
	defer fb.mu.Unlock()
	return fb.lastSubmit
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func (fb *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc(backend.PathLogin, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "secret" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "No active account found with the given credentials"})
			return
		}
		role := "customer"
		if strings.HasPrefix(body["email"], "admin") {
			role = "admin"
		}
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"access_token":  "access-" + role,
			"refresh_token": "refresh-" + role,
			"user":          map[string]interface{}{"id": 7, "email": body["email"], "full_name": "Sam Lee", "role": role, "is_verified": true},
			"profile":       map[string]interface{}{"id": 1, "user": 7, "full_name": "Sam Lee"},
		})
	})
	mux.HandleFunc(backend.PathTokenRefresh, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"detail": "Token is invalid or expired", "code": "token_not_valid"})
	})

	mux.HandleFunc(backend.PathEstimate, func(w http.ResponseWriter, r *http.Request) {
		fb.mu.Lock()
		status := fb.estimateStatus
		fb.mu.Unlock()
		if status != 0 {
			writeJSON(w, status, map[string]string{"detail": "Estimator unavailable"})
			return
		}
		var req backend.EstimateRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		resp := backend.EstimateResponse{Status: "success"}
		for i, it := range req.Items {
			id := int64(101 + i)
			resp.TempProductIDs = append(resp.TempProductIDs, id)
			resp.IndividualProducts = append(resp.IndividualProducts, backend.IndividualProduct{
				TempProductID:   id,
				Title:           it.Title,
				EstimatedValue:  35,
				PriceRange:      "$30.00 - $40.00",
				ConfidenceLevel: "medium",
			})
		}
		resp.ProductsSummary.TotalEstimatedValue = backend.Amount(35 * len(req.Items))
		writeJSON(w, http.StatusOK, resp)
	})
	mux.HandleFunc(backend.PathContactOnly, func(w http.ResponseWriter, r *http.Request) {
		var req backend.ContactSubmission
		_ = json.NewDecoder(r.Body).Decode(&req)
		fb.mu.Lock()
		fb.lastSubmit = req
		fb.mu.Unlock()
		writeJSON(w, http.StatusCreated, map[string]interface{}{"status": "success", "submission_id": 501})
	})

	adminOnly := func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("Authorization") != "Bearer access-admin" {
				writeJSON(w, http.StatusForbidden, map[string]string{"detail": "You do not have permission to perform this action."})
				return
			}
			next(w, r)
		}
	}
	mux.HandleFunc(backend.PathAdminUpdateStatus, adminOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Status updated."})
	}))
	mux.HandleFunc(backend.PathAdminStats, adminOnly(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"total_products": 4, "pending_products": 1})
	}))

	mux.HandleFunc(backend.PathSubmitContact, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"success": true, "message": "Thanks, we will be in touch."})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fb.hit(r.URL.Path)
		mux.ServeHTTP(w, r)
	})
}

// ==================== 测试应用 ====================

func setupRouterTestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err, "连接测试数据库失败")
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&model.WizardSession{},
		&model.WizardItem{},
		&model.PhotoAsset{},
		&model.ItemPhoto{},
		&model.AppSession{},
		&model.SuggestionCallLog{},
	))
	return db
}

func newTestApp(t *testing.T, consolePassword string) (*gin.Engine, *fakeBackend) {
	fb := &fakeBackend{hits: make(map[string]int)}
	srv := httptest.NewServer(fb.handler())
	t.Cleanup(srv.Close)

	db := setupRouterTestDB(t)
	client := backend.New(backend.Config{BaseURL: srv.URL, Timeout: 5 * time.Second})

	uploads := t.TempDir()
	local, err := service.NewLocalStorage(config.StorageConfig{Provider: "local", BasePath: uploads})
	require.NoError(t, err)
	storage := service.NewStorageService(local, "")

	uow := repository.NewWizardUnitOfWork(db)
	photos := service.NewPhotoService(storage, service.PhotoOptions{MaxBytes: 1 << 20, ThumbnailMax: 64, Workers: 2})
	auth := service.NewAuthService(client, repository.NewAppSessionRepository(db), time.Hour)

	hash := ""
	if consolePassword != "" {
		b, err := bcrypt.GenerateFromPassword([]byte(consolePassword), bcrypt.MinCost)
		require.NoError(t, err)
		hash = string(b)
	}
	admin := service.NewAdminService(auth, hash)

	h := &Handlers{
		Wizard: controller.NewWizardController(
			service.NewWizardService(uow, photos, nil, service.WizardOptions{MaxDuplicate: 5}),
			service.NewEstimateService(uow, client),
			service.NewSubmissionService(uow, client, time.UTC),
			time.Hour,
		),
		Auth:    controller.NewAuthController(auth),
		Admin:   controller.NewAdminController(admin, service.NewSuggestionService("", "").WithCallLog(repository.NewSuggestionLogRepository(db))),
		Support: controller.NewSupportController(service.NewSupportService(auth)),
	}

	r := gin.New()
	InitRoutes(r, h, Options{
		Sessions:       auth,
		ConsoleEnabled: admin.ConsoleEnabled(),
		UploadsDir:     uploads,
	})
	return r, fb
}

// ==================== 请求构造辅助 ====================

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func performRequest(r http.Handler, method, path string, body interface{}, opts ...func(*http.Request)) *httptest.ResponseRecorder {
	var reqBody *bytes.Buffer
	if body != nil {
		jsonBytes, _ := json.Marshal(body)
		reqBody = bytes.NewBuffer(jsonBytes)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, _ := http.NewRequest(method, path, reqBody)
	req.Header.Set("Content-Type", "application/json")
	for _, opt := range opts {
		opt(req)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func withWizard(key string) func(*http.Request) {
	return func(req *http.Request) { req.Header.Set(middleware.WizardHeader, key) }
}

func withBearer(token string) func(*http.Request) {
	return func(req *http.Request) { req.Header.Set("Authorization", "Bearer "+token) }
}

func decode(t *testing.T, w *httptest.ResponseRecorder, data interface{}) envelope {
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	if data != nil && len(env.Data) > 0 {
		require.NoError(t, json.Unmarshal(env.Data, data), string(env.Data))
	}
	return env
}

func testPNG(t *testing.T) []byte {
	img := image.NewRGBA(image.Rect(0, 0, 16, 16))
	for x := 0; x < 16; x++ {
		img.Set(x, x, color.RGBA{B: 200, A: 255})
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadPhoto(t *testing.T, r http.Handler, key, itemKey, mimeType string, data []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="photos"; filename="lamp.png"`)
	h.Set("Content-Type", mimeType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req, _ := http.NewRequest(http.MethodPost, "/api/wizard/items/"+itemKey+"/photos", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set(middleware.WizardHeader, key)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func login(t *testing.T, r http.Handler, email string) string {
	w := performRequest(r, http.MethodPost, "/api/auth/login", map[string]string{"email": email, "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Token string `json:"token"`
	}
	decode(t, w, &data)
	require.NotEmpty(t, data.Token)
	return data.Token
}

func noticeTitles(notices []service.Notice) []string {
	out := make([]string, 0, len(notices))
	for _, n := range notices {
		out = append(out, n.Title)
	}
	return out
}

// ==================== 向导流程 ====================

func TestWizardFlow(t *testing.T) {
	r, fb := newTestApp(t, "")

	// 1. 新建向导
	w := performRequest(r, http.MethodPost, "/api/wizard/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.WizardCookie+"=")
	var view dto.WizardView
	decode(t, w, &view)
	key := view.Session.SessionKey
	require.Len(t, view.Session.Items, 1)
	itemKey := view.Session.Items[0].ItemKey

	// 2. 填写字段，名称被清洗
	w = performRequest(r, http.MethodPatch, "/api/wizard/items/"+itemKey, map[string]string{
		"name":         "Desk Lamp!!",
		"description":  "Brass lamp with green shade",
		"condition":    "good",
		"defect_notes": "None",
	}, withWizard(key))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &view)
	assert.Equal(t, "Desk Lamp", view.Session.Items[0].Name)
	assert.False(t, view.Step1Valid, "还没有图片")

	// 3. 上传图片
	w = uploadPhoto(t, r, key, itemKey, "image/png", testPNG(t))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &view)
	require.Len(t, view.Session.Items[0].Photos, 1)
	assert.True(t, view.Step1Valid)
	assert.Equal(t, 1, view.ReadyItems)
	preview := view.Session.Items[0].Photos[0].Asset.PreviewURL
	assert.True(t, strings.HasPrefix(preview, "/uploads/previews/"), preview)

	w = performRequest(r, http.MethodGet, preview, nil)
	assert.Equal(t, http.StatusOK, w.Code, "预览图可访问")

	// 4. 未估价不能进入下一步
	w = performRequest(r, http.MethodPost, "/api/wizard/next", nil, withWizard(key))
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)

	// 5. 估价
	w = performRequest(r, http.MethodPost, "/api/wizard/estimate", nil, withWizard(key))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &view)
	require.NotNil(t, view.Session.Items[0].TempProductID)
	assert.Equal(t, int64(101), *view.Session.Items[0].TempProductID)
	assert.Contains(t, noticeTitles(view.Notices), "Price Estimates Calculated!")
	assert.Equal(t, 1, fb.hitCount(backend.PathEstimate))

	// 6. 进入联系信息并填写
	w = performRequest(r, http.MethodPost, "/api/wizard/next", nil, withWizard(key))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &view)
	assert.Equal(t, model.WizardStageContact, view.Session.Stage)

	pickup := time.Now().UTC().AddDate(0, 0, 3).Format("2006-01-02") + "T10:00"
	w = performRequest(r, http.MethodPut, "/api/wizard/contact", map[string]interface{}{
		"full_name":        "Sam Lee",
		"email":            "sam@example.com",
		"phone":            "5551234567",
		"pickup_address":   "1 Main St",
		"pickup_date":      pickup,
		"consent_accepted": true,
	}, withWizard(key))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &view)
	assert.True(t, view.Step2Valid)
	assert.Equal(t, "(555) 123-4567", view.Session.PhoneDisplay)

	// 7. 提交
	w = performRequest(r, http.MethodPost, "/api/wizard/submit", nil, withWizard(key))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	decode(t, w, &view)
	assert.Equal(t, model.WizardStageSubmitted, view.Session.Stage)
	assert.Equal(t, int64(501), view.Session.SubmissionID)
	sent := fb.submitted()
	assert.Equal(t, []int64{101}, sent.TempProductIDs)
	assert.Equal(t, "+15551234567", sent.Phone)
	assert.True(t, sent.PrivacyPolicyAccepted)

	// 8. 重复提交
	w = performRequest(r, http.MethodPost, "/api/wizard/submit", nil, withWizard(key))
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, fb.hitCount(backend.PathContactOnly))
}

func TestWizard_Errors(t *testing.T) {
	r, fb := newTestApp(t, "")

	w := performRequest(r, http.MethodGet, "/api/wizard", nil)
	assert.Equal(t, http.StatusNotFound, w.Code, "没有向导会话")

	w = performRequest(r, http.MethodGet, "/api/wizard", nil, withWizard("missing"))
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = performRequest(r, http.MethodPost, "/api/wizard/sessions", nil)
	var view dto.WizardView
	decode(t, w, &view)
	key := view.Session.SessionKey
	itemKey := view.Session.Items[0].ItemKey

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
	}{
		{"非法成色", http.MethodPatch, "/api/wizard/items/" + itemKey, map[string]string{"condition": "mint"}, http.StatusBadRequest},
		{"空修改", http.MethodPatch, "/api/wizard/items/" + itemKey, map[string]string{}, http.StatusBadRequest},
		{"物品不存在", http.MethodPatch, "/api/wizard/items/item-nope", map[string]string{"name": "Lamp"}, http.StatusNotFound},
		{"复制份数为零", http.MethodPost, "/api/wizard/items/" + itemKey + "/duplicate", map[string]int{"count": 0}, http.StatusBadRequest},
		{"复制份数超限", http.MethodPost, "/api/wizard/items/" + itemKey + "/duplicate", map[string]int{"count": 6}, http.StatusUnprocessableEntity},
		{"无效图片ID", http.MethodDelete, "/api/wizard/items/" + itemKey + "/photos/abc", nil, http.StatusBadRequest},
		{"图片不存在", http.MethodDelete, "/api/wizard/items/" + itemKey + "/photos/99", nil, http.StatusNotFound},
		{"没有完整物品时估价", http.MethodPost, "/api/wizard/estimate", nil, http.StatusUnprocessableEntity},
		{"AI 建议未启用", http.MethodPost, "/api/wizard/items/" + itemKey + "/suggestion", nil, http.StatusServiceUnavailable},
		{"物品阶段保存联系信息", http.MethodPut, "/api/wizard/contact", map[string]string{"full_name": "Sam"}, http.StatusConflict},
		{"取件时间格式错误", http.MethodPut, "/api/wizard/contact", map[string]string{"pickup_date": "next tuesday"}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(r, tt.method, tt.path, tt.body, withWizard(key))
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
	assert.Zero(t, fb.hitCount(backend.PathEstimate), "校验失败不调用后端")
}

func TestWizard_EstimateFailure(t *testing.T) {
	r, fb := newTestApp(t, "")
	fb.mu.Lock()
	fb.estimateStatus = http.StatusInternalServerError
	fb.mu.Unlock()

	w := performRequest(r, http.MethodPost, "/api/wizard/sessions", nil)
	var view dto.WizardView
	decode(t, w, &view)
	key := view.Session.SessionKey
	itemKey := view.Session.Items[0].ItemKey

	performRequest(r, http.MethodPatch, "/api/wizard/items/"+itemKey, map[string]string{
		"name": "Chair", "description": "Oak chair", "condition": "fair", "defect_notes": "Scratches",
	}, withWizard(key))
	require.Equal(t, http.StatusOK, uploadPhoto(t, r, key, itemKey, "image/png", testPNG(t)).Code)

	w = performRequest(r, http.MethodPost, "/api/wizard/estimate", nil, withWizard(key))
	assert.Equal(t, http.StatusBadGateway, w.Code)
	env := decode(t, w, nil)
	assert.Equal(t, "Failed to calculate price estimates. Please try again.", env.Message)

	w = performRequest(r, http.MethodGet, "/api/wizard", nil, withWizard(key))
	var after dto.WizardView
	decode(t, w, &after)
	assert.Nil(t, after.Session.Items[0].TempProductID, "失败不写入估价")
	assert.Empty(t, after.Session.TempProductIDs)
	assert.True(t, after.Step1Valid, "物品保持不变，可直接重试")
}

func TestWizard_PatchIsAtomic(t *testing.T) {
	r, _ := newTestApp(t, "")

	w := performRequest(r, http.MethodPost, "/api/wizard/sessions", nil)
	var view dto.WizardView
	decode(t, w, &view)
	key := view.Session.SessionKey
	itemKey := view.Session.Items[0].ItemKey

	w = performRequest(r, http.MethodPatch, "/api/wizard/items/"+itemKey, map[string]string{"name": "Desk Lamp"}, withWizard(key))
	require.Equal(t, http.StatusOK, w.Code)

	w = performRequest(r, http.MethodPatch, "/api/wizard/items/"+itemKey, map[string]string{
		"name": "Floor Lamp", "condition": "mint",
	}, withWizard(key))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = performRequest(r, http.MethodGet, "/api/wizard", nil, withWizard(key))
	var after dto.WizardView
	decode(t, w, &after)
	assert.Equal(t, "Desk Lamp", after.Session.Items[0].Name, "同一请求中的其他字段也不保存")
	assert.Empty(t, after.Session.Items[0].Condition)
}

func TestWizard_RejectedUpload(t *testing.T) {
	r, _ := newTestApp(t, "")

	w := performRequest(r, http.MethodPost, "/api/wizard/sessions", nil)
	var view dto.WizardView
	decode(t, w, &view)
	key := view.Session.SessionKey

	w = uploadPhoto(t, r, key, view.Session.Items[0].ItemKey, "text/plain", []byte("hello"))
	require.Equal(t, http.StatusOK, w.Code, "被拒绝的文件只产生提示")
	decode(t, w, &view)
	assert.Empty(t, view.Session.Items[0].Photos)
	assert.Contains(t, noticeTitles(view.Notices), "Invalid File")
}

func TestWizard_Restart(t *testing.T) {
	r, _ := newTestApp(t, "")

	w := performRequest(r, http.MethodPost, "/api/wizard/sessions", nil)
	var first dto.WizardView
	decode(t, w, &first)

	w = performRequest(r, http.MethodPost, "/api/wizard/restart", nil, withWizard(first.Session.SessionKey))
	require.Equal(t, http.StatusCreated, w.Code)
	var second dto.WizardView
	decode(t, w, &second)
	assert.NotEqual(t, first.Session.SessionKey, second.Session.SessionKey)

	w = performRequest(r, http.MethodGet, "/api/wizard", nil, withWizard(first.Session.SessionKey))
	assert.Equal(t, http.StatusNotFound, w.Code, "旧会话已过期")
}

// ==================== 账号 ====================

func TestAuthRoutes(t *testing.T) {
	r, _ := newTestApp(t, "")

	t.Run("密码错误返回后端文案", func(t *testing.T) {
		w := performRequest(r, http.MethodPost, "/api/auth/login", map[string]string{"email": "sam@example.com", "password": "bad"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		env := decode(t, w, nil)
		assert.Equal(t, "No active account found with the given credentials", env.Message)
	})

	t.Run("参数校验", func(t *testing.T) {
		w := performRequest(r, http.MethodPost, "/api/auth/login", map[string]string{"email": "not-an-email"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("登录与回跳", func(t *testing.T) {
		w := performRequest(r, http.MethodPost, "/api/auth/login?returnUrl=%2Fsell", map[string]string{"email": "sam@example.com", "password": "secret"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.AppSessionCookie+"=")
		var data struct {
			User     dto.SessionView `json:"user"`
			Token    string          `json:"token"`
			Redirect string          `json:"redirect"`
		}
		decode(t, w, &data)
		assert.Equal(t, "/sell", data.Redirect)
		assert.Equal(t, "customer", data.User.Role)
		assert.False(t, data.User.IsAdmin)

		w = performRequest(r, http.MethodGet, "/api/auth/session", nil, withBearer(data.Token))
		var view dto.SessionView
		decode(t, w, &view)
		assert.Equal(t, int64(7), view.UserID)

		w = performRequest(r, http.MethodPost, "/api/auth/logout", nil, withBearer(data.Token))
		require.Equal(t, http.StatusOK, w.Code)

		w = performRequest(r, http.MethodPost, "/api/auth/change-password", map[string]string{
			"old_password": "secret", "new_password": "secret-2!", "confirm_password": "secret-2!",
		}, withBearer(data.Token))
		assert.Equal(t, http.StatusUnauthorized, w.Code, "注销后需要重新登录")
		assert.Contains(t, w.Body.String(), "/auth/sign-in?returnUrl=")
	})

	t.Run("管理员默认跳转后台", func(t *testing.T) {
		w := performRequest(r, http.MethodPost, "/api/auth/login?returnUrl=https://evil.example.com", map[string]string{"email": "admin@example.com", "password": "secret"})
		require.Equal(t, http.StatusOK, w.Code)
		var data struct {
			Redirect string `json:"redirect"`
		}
		decode(t, w, &data)
		assert.Equal(t, "/admin", data.Redirect)
	})
}

// ==================== 管理后台 ====================

func TestAdminRoutes(t *testing.T) {
	r, fb := newTestApp(t, "")
	customer := login(t, r, "sam@example.com")
	admin := login(t, r, "admin@example.com")

	w := performRequest(r, http.MethodGet, "/api/admin/stats", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = performRequest(r, http.MethodGet, "/api/admin/stats", nil, withBearer(customer))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), middleware.InsufficientPerPath)

	w = performRequest(r, http.MethodGet, "/api/admin/stats", nil, withBearer(admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var stats backend.DashboardStats
	decode(t, w, &stats)
	assert.Equal(t, 4, stats.TotalProducts)

	w = performRequest(r, http.MethodGet, "/api/admin/suggestions/usage?days=3", nil, withBearer(admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var usage service.SuggestionUsageReport
	decode(t, w, &usage)
	assert.False(t, usage.Enabled)
	assert.Equal(t, int64(0), usage.Total.TotalCalls)

	tests := []struct {
		name       string
		method     string
		path       string
		body       interface{}
		wantStatus int
	}{
		{"审核通过", http.MethodPost, "/api/admin/products/5/approve", nil, http.StatusOK},
		{"上架带价格", http.MethodPost, "/api/admin/products/5/list", map[string]float64{"final_price": 120}, http.StatusOK},
		{"上架缺少价格", http.MethodPost, "/api/admin/products/5/list", nil, http.StatusUnprocessableEntity},
		{"未知操作", http.MethodPost, "/api/admin/products/5/delete", nil, http.StatusBadRequest},
		{"无效ID", http.MethodPost, "/api/admin/products/0/approve", nil, http.StatusBadRequest},
		{"价格为负", http.MethodPut, "/api/admin/products/5/price", map[string]interface{}{"final_price": -3}, http.StatusUnprocessableEntity},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := performRequest(r, tt.method, tt.path, tt.body, withBearer(admin))
			assert.Equal(t, tt.wantStatus, w.Code, w.Body.String())
		})
	}
	assert.Equal(t, 2, fb.hitCount(backend.PathAdminUpdateStatus))
}

func TestAdminRoutes_Console(t *testing.T) {
	r, _ := newTestApp(t, "open-sesame")
	admin := login(t, r, "admin@example.com")

	w := performRequest(r, http.MethodGet, "/api/admin/stats", nil, withBearer(admin))
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Contains(t, w.Body.String(), "console_locked")

	w = performRequest(r, http.MethodPost, "/api/admin/unlock", map[string]string{"password": "wrong"}, withBearer(admin))
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = performRequest(r, http.MethodPost, "/api/admin/unlock", map[string]string{"password": "open-sesame"}, withBearer(admin))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = performRequest(r, http.MethodGet, "/api/admin/stats", nil, withBearer(admin))
	assert.Equal(t, http.StatusOK, w.Code)
}

// ==================== 客服 ====================

func TestSupportRoutes(t *testing.T) {
	r, fb := newTestApp(t, "")

	w := performRequest(r, http.MethodPost, "/api/contact", map[string]string{"your_name": "Sam"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Zero(t, fb.hitCount(backend.PathSubmitContact))

	w = performRequest(r, http.MethodPost, "/api/contact", map[string]string{
		"your_name": "Sam", "your_email": "sam@example.com", "your_message": "Do you pick up in Dayton?",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		Notice service.Notice `json:"notice"`
	}
	decode(t, w, &data)
	assert.Equal(t, "Thanks, we will be in touch.", data.Notice.Message)
}

func TestSwaggerRoute(t *testing.T) {
	r, _ := newTestApp(t, "")
	w := performRequest(r, http.MethodGet, "/swagger/doc.json", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), fmt.Sprintf("%q", "/api/wizard/estimate"))
}
