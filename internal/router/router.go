package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"bluberry_store_v1/internal/controller"
	"bluberry_store_v1/internal/middleware"

	_ "bluberry_store_v1/docs"
)

// Handlers 路由用到的控制器
type Handlers struct {
	Wizard  *controller.WizardController
	Auth    *controller.AuthController
	Admin   *controller.AdminController
	Support *controller.SupportController
}

// Options 路由参数
type Options struct {
	Sessions       middleware.SessionLoader
	Guard          *middleware.InFlightGuard
	ConsoleEnabled bool
	UploadsDir     string // 本地存储根目录，非空时挂到 /uploads
}

// InitRoutes 注册所有路由
func InitRoutes(r *gin.Engine, h *Handlers, opts Options) {
	// 1. Swagger 文档路由
	// 访问 http://localhost:8080/swagger/index.html 即可查看
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	if opts.UploadsDir != "" {
		r.Static("/uploads", opts.UploadsDir)
	}
	if opts.Guard == nil {
		opts.Guard = middleware.NewInFlightGuard()
	}

	// 2. API 路由组
	api := r.Group("/api")
	api.Use(middleware.SessionAuth(opts.Sessions))
	{
		// wizard 物品提交向导，会话键来自 Cookie 或 X-Wizard-Session
		wizard := api.Group("/wizard")
		{
			wizard.GET("", h.Wizard.GetSession)
			wizard.POST("/sessions", h.Wizard.StartSession)
			wizard.POST("/restart", h.Wizard.Restart)

			wizard.POST("/items", h.Wizard.AddItem)
			wizard.PATCH("/items/:item_id", h.Wizard.UpdateItem)
			wizard.DELETE("/items/:item_id", h.Wizard.RemoveItem)
			wizard.POST("/items/:item_id/duplicate", h.Wizard.DuplicateItem)
			wizard.POST("/items/:item_id/toggle", h.Wizard.ToggleItem)
			wizard.POST("/items/:item_id/photos", h.Wizard.AttachPhotos)
			wizard.DELETE("/items/:item_id/photos/:photo_id", h.Wizard.RemovePhoto)
			wizard.PUT("/items/:item_id/image-url", h.Wizard.SetImageURL)
			wizard.DELETE("/items/:item_id/image-url", h.Wizard.RemoveImageURL)
			wizard.POST("/items/:item_id/suggestion", h.Wizard.RequestSuggestion)
			wizard.POST("/items/:item_id/suggestion/apply", h.Wizard.ApplySuggestion)

			// 同一会话同时只允许一次估价/提交
			wizard.POST("/estimate", middleware.InFlight(opts.Guard, middleware.OpEstimate), h.Wizard.CalculateEstimates)
			wizard.POST("/submit", middleware.InFlight(opts.Guard, middleware.OpFinalize), h.Wizard.Submit)

			wizard.POST("/next", h.Wizard.Next)
			wizard.POST("/back", h.Wizard.Back)
			wizard.PUT("/contact", h.Wizard.UpdateContact)
		}

		// auth 账号
		auth := api.Group("/auth")
		{
			auth.GET("/session", h.Auth.Session)
			auth.POST("/login", h.Auth.Login)
			auth.POST("/logout", h.Auth.Logout)
			auth.POST("/register", h.Auth.Register)
			auth.POST("/otp/create", h.Auth.CreateOTP)
			auth.POST("/otp/verify", h.Auth.VerifyOTP)
			auth.POST("/forgot-password", h.Auth.ForgotPassword)
			auth.POST("/verify-email", h.Auth.VerifyEmail)
			auth.POST("/reset-password", h.Auth.ResetPassword)
			auth.POST("/change-password", middleware.RequireAuth(), h.Auth.ChangePassword)
		}

		profile := api.Group("/profile", middleware.RequireAuth())
		{
			profile.GET("", h.Auth.GetProfile)
			profile.PUT("", h.Auth.UpdateProfile)
		}

		// admin 管理后台：需要管理员，配置了后台口令时还需先解锁
		admin := api.Group("/admin", middleware.RequireAdmin())
		{
			admin.POST("/unlock", h.Admin.Unlock)

			console := admin.Group("", middleware.RequireConsole(opts.ConsoleEnabled))
			console.GET("/products", h.Admin.ListProducts)
			console.POST("/products/:id/:action", h.Admin.ProductAction)
			console.PUT("/products/:id/price", h.Admin.UpdatePrice)
			console.GET("/stats", h.Admin.Stats)
			console.GET("/suggestions/usage", h.Admin.SuggestionUsage)
		}

		// support 联系、评价、上门服务
		api.POST("/contact", h.Support.SubmitContact)
		api.GET("/reviews", h.Support.ListReviews)
		api.POST("/reviews", h.Support.SubmitReview)
		api.POST("/service-requests", h.Support.RequestService)
	}
}
