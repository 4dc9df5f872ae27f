package task

import (
	"context"
	"time"

	"go.uber.org/zap"

	"bluberry_store_v1/internal/repository"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台维护任务
// 管理范围：向导空闲会话过期、登录会话清理
type TaskManager struct {
	wizardCleanup *WizardCleanupTask
	sessionSweep  *SessionSweepTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	WizardSessions repository.WizardSessionRepository
	AppSessions    repository.AppSessionRepository
	Expirer        SessionExpirer
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	// 向导清理
	WizardCleanupEnabled bool
	WizardCleanupCron    string
	WizardIdleTTL        time.Duration
	WizardConcurrency    int
	WizardBatchSize      int

	// 登录会话清理
	SessionSweepEnabled bool
	SessionSweepCron    string
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		WizardCleanupEnabled: true,
		WizardCleanupCron:    "0 */10 * * * *",
		WizardIdleTTL:        24 * time.Hour,
		WizardConcurrency:    5,
		WizardBatchSize:      200,

		SessionSweepEnabled: true,
		SessionSweepCron:    "0 0 * * * *",
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}

	if cfg.WizardCleanupEnabled && deps.WizardSessions != nil && deps.Expirer != nil {
		tm.wizardCleanup = NewWizardCleanupTask(deps.WizardSessions, deps.Expirer, cfg.WizardCleanupCron, cfg.WizardIdleTTL)
		tm.wizardCleanup.SetConcurrency(cfg.WizardConcurrency, cfg.WizardBatchSize)
	}

	if cfg.SessionSweepEnabled && deps.AppSessions != nil {
		tm.sessionSweep = NewSessionSweepTask(deps.AppSessions, cfg.SessionSweepCron)
	}

	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	zap.L().Info("[TaskManager] 正在启动后台任务...")

	if tm.wizardCleanup != nil {
		if err := tm.wizardCleanup.Start(); err != nil {
			return err
		}
	}
	if tm.sessionSweep != nil {
		if err := tm.sessionSweep.Start(); err != nil {
			return err
		}
	}

	zap.L().Info("[TaskManager] 后台任务已全部启动")
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.wizardCleanup != nil {
		tm.wizardCleanup.Stop()
	}
	if tm.sessionSweep != nil {
		tm.sessionSweep.Stop()
	}
	zap.L().Info("[TaskManager] 后台任务已全部停止")
}

// ==================== 手动触发接口 ====================

// TriggerWizardCleanup 立即清理空闲向导
func (tm *TaskManager) TriggerWizardCleanup(ctx context.Context) (*CleanupResult, error) {
	if tm.wizardCleanup == nil {
		return nil, ErrTaskDisabled
	}
	return tm.wizardCleanup.RunOnce(ctx)
}

// TriggerSessionSweep 立即清理过期登录会话
func (tm *TaskManager) TriggerSessionSweep(ctx context.Context) (int64, error) {
	if tm.sessionSweep == nil {
		return 0, ErrTaskDisabled
	}
	return tm.sessionSweep.RunOnce(ctx)
}

// ==================== 状态查询 ====================

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"wizard_cleanup": tm.wizardCleanup != nil,
		"session_sweep":  tm.sessionSweep != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
