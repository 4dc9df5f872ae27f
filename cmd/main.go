package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"bluberry_store_v1/internal/config"
	"bluberry_store_v1/internal/controller"
	"bluberry_store_v1/internal/middleware"
	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/repository"
	"bluberry_store_v1/internal/router"
	"bluberry_store_v1/internal/service"
	"bluberry_store_v1/internal/task"
	"bluberry_store_v1/pkg/backend"
	"bluberry_store_v1/pkg/database"
	"bluberry_store_v1/pkg/logger"
)

// @title BluBerry Storefront API
// @version 1.0
// @description 物品提交向导、账号、管理后台与客服接口
// @BasePath /
func main() {
	app := &cli.App{
		Name:  "bluberry-store",
		Usage: "BluBerry 寄卖店铺前台服务",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "config.yaml",
				Usage:   "配置文件路径",
				EnvVars: []string{"BLUBERRY_CONFIG"},
			},
		},
		Action: serve,
		Commands: []*cli.Command{
			{Name: "serve", Usage: "启动 HTTP 服务", Action: serve},
			{Name: "migrate", Usage: "自动建表后退出", Action: migrate},
			{Name: "cleanup", Usage: "执行一轮向导过期清理", Action: cleanup},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// ==================== 依赖容器 ====================

// Dependencies 依赖容器
type Dependencies struct {
	Config   *config.Config
	Log      *zap.Logger
	DB       *gorm.DB
	Repos    *Repositories
	Services *Services
}

// Repositories 仓库集合
type Repositories struct {
	WizardUow      *repository.WizardUnitOfWork
	AppSessions    repository.AppSessionRepository
	SuggestionLogs repository.SuggestionLogRepository
}

// Services 服务集合
type Services struct {
	Auth        *service.AuthService
	Admin       *service.AdminService
	Support     *service.SupportService
	Wizard      *service.WizardService
	Estimate    *service.EstimateService
	Submission  *service.SubmissionService
	Photo       *service.PhotoService
	Storage     *service.StorageService
	Suggestion  *service.SuggestionService
	LocalUpload string // 本地存储根目录
}

// models 需要自动建表的模型
var models = []interface{}{
	&model.AppSession{},
	&model.WizardSession{},
	&model.WizardItem{},
	&model.PhotoAsset{},
	&model.ItemPhoto{},
	&model.SuggestionCallLog{},
}

// ==================== 初始化函数 ====================

// bootstrap 读取配置、初始化日志与数据库
func bootstrap(c *cli.Context) (*config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, nil, nil, err
	}

	log, err := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	if err != nil {
		return nil, nil, nil, err
	}

	db, err := database.Open(database.Config{
		Driver:   cfg.Database.Driver,
		DSN:      cfg.Database.DSN,
		LogLevel: cfg.Database.LogLevel,
	}, models...)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, db, nil
}

// initDependencies 初始化所有依赖
func initDependencies(cfg *config.Config, log *zap.Logger, db *gorm.DB) (*Dependencies, error) {
	// -------- Repo 层 --------
	repos := &Repositories{
		WizardUow:      repository.NewWizardUnitOfWork(db),
		AppSessions:    repository.NewAppSessionRepository(db),
		SuggestionLogs: repository.NewSuggestionLogRepository(db),
	}

	// -------- 外部依赖 --------
	client := backend.New(backend.Config{
		BaseURL:    cfg.Backend.BaseURL,
		Timeout:    cfg.Backend.Timeout,
		RetryCount: cfg.Backend.RetryCount,
		Debug:      cfg.Backend.Debug,
	})

	provider, err := service.NewStorageProvider(cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("存储服务初始化失败: %w", err)
	}

	// -------- 业务服务 --------
	svc := &Services{
		Storage:    service.NewStorageService(provider, ""),
		Suggestion: service.NewSuggestionService(cfg.AI.GeminiAPIKey, cfg.AI.Model).WithCallLog(repos.SuggestionLogs),
	}
	if _, ok := provider.(*service.LocalStorage); ok {
		svc.LocalUpload = cfg.Storage.BasePath
	}

	svc.Photo = service.NewPhotoService(svc.Storage, service.PhotoOptions{
		MaxBytes:     cfg.Wizard.MaxPhotoBytes,
		ThumbnailMax: cfg.Wizard.ThumbnailMax,
		Workers:      cfg.Wizard.EncodeWorkers,
	})

	// 未配置 Gemini 时传 nil 接口，向导返回 "not available"
	var suggester service.Suggester
	if svc.Suggestion.Enabled() {
		suggester = svc.Suggestion
	} else {
		log.Info("未配置 Gemini API Key，描述建议已关闭")
	}

	svc.Wizard = service.NewWizardService(repos.WizardUow, svc.Photo, suggester, service.WizardOptions{
		MaxDuplicate: cfg.Wizard.MaxDuplicate,
	})
	svc.Estimate = service.NewEstimateService(repos.WizardUow, client)
	svc.Submission = service.NewSubmissionService(repos.WizardUow, client, cfg.PickupLocation())
	svc.Auth = service.NewAuthService(client, repos.AppSessions, cfg.Session.TTL)
	svc.Admin = service.NewAdminService(svc.Auth, cfg.Admin.ConsolePasswordHash)
	svc.Support = service.NewSupportService(svc.Auth)

	return &Dependencies{
		Config:   cfg,
		Log:      log,
		DB:       db,
		Repos:    repos,
		Services: svc,
	}, nil
}

// initRouter 初始化 gin 引擎与路由
func initRouter(deps *Dependencies) (*gin.Engine, error) {
	cfg := deps.Config

	middleware.SetSessionConfig(&middleware.SessionConfig{
		Secret: cfg.Session.Secret,
		TTL:    cfg.Session.TTL,
		Issuer: cfg.Session.Issuer,
		Secure: cfg.Server.CookieSecure,
	})
	if err := middleware.RegisterValidators(); err != nil {
		return nil, err
	}

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	r.Use(middleware.RequestLogger(deps.Log), middleware.Recovery(deps.Log))
	r.MaxMultipartMemory = cfg.Wizard.MaxPhotoBytes * 4

	svc := deps.Services
	router.InitRoutes(r, &router.Handlers{
		Wizard:  controller.NewWizardController(svc.Wizard, svc.Estimate, svc.Submission, cfg.Wizard.IdleTTL),
		Auth:    controller.NewAuthController(svc.Auth),
		Admin:   controller.NewAdminController(svc.Admin, svc.Suggestion),
		Support: controller.NewSupportController(svc.Support),
	}, router.Options{
		Sessions:       svc.Auth,
		Guard:          middleware.NewInFlightGuard(),
		ConsoleEnabled: svc.Admin.ConsoleEnabled(),
		UploadsDir:     svc.LocalUpload,
	})
	return r, nil
}

// initTasks 初始化定时任务
func initTasks(deps *Dependencies) *task.TaskManager {
	cfg := task.DefaultConfig()
	cfg.WizardCleanupCron = deps.Config.Wizard.CleanupCron
	cfg.WizardIdleTTL = deps.Config.Wizard.IdleTTL

	return task.NewTaskManager(&task.TaskManagerDeps{
		WizardSessions: deps.Repos.WizardUow.Sessions,
		AppSessions:    deps.Repos.AppSessions,
		Expirer:        deps.Services.Wizard,
	}, cfg)
}

// ==================== 命令 ====================

func serve(c *cli.Context) error {
	cfg, log, db, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	deps, err := initDependencies(cfg, log, db)
	if err != nil {
		return err
	}

	r, err := initRouter(deps)
	if err != nil {
		return err
	}

	tasks := initTasks(deps)
	if err := tasks.Start(); err != nil {
		return fmt.Errorf("定时任务启动失败: %w", err)
	}
	defer tasks.Stop()

	return startServer(r, cfg.Server, log)
}

func migrate(c *cli.Context) error {
	_, log, _, err := bootstrap(c)
	if err != nil {
		return err
	}
	log.Info("数据表迁移完成", zap.Int("models", len(models)))
	return log.Sync()
}

func cleanup(c *cli.Context) error {
	cfg, log, db, err := bootstrap(c)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	deps, err := initDependencies(cfg, log, db)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Context, 5*time.Minute)
	defer cancel()

	tm := initTasks(deps)
	result, err := tm.TriggerWizardCleanup(ctx)
	if err != nil {
		return err
	}
	swept, err := tm.TriggerSessionSweep(ctx)
	if err != nil {
		return err
	}

	log.Info("清理完成",
		zap.Int("scanned", result.Scanned),
		zap.Int("expired", result.Expired),
		zap.Int("failed", result.Failed),
		zap.Int64("sessions_removed", swept))
	return nil
}

// ==================== 服务启动 ====================

// startServer 启动服务并等待退出信号
func startServer(r *gin.Engine, cfg config.ServerConfig, log *zap.Logger) error {
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("服务启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("服务启动失败: %w", err)
	case <-quit:
	}

	log.Info("正在关闭服务...")

	timeout := cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		return fmt.Errorf("服务强制关闭: %w", err)
	}

	log.Info("服务已退出")
	return nil
}
