package task

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"bluberry_store_v1/internal/model"
	"bluberry_store_v1/internal/repository"
)

// SessionExpirer 负责把单个向导会话置为过期并释放其图片
type SessionExpirer interface {
	ExpireSession(ctx context.Context, sess *model.WizardSession) error
}

// CleanupResult 单轮清理结果
type CleanupResult struct {
	Scanned int `json:"scanned"`
	Expired int `json:"expired"`
	Failed  int `json:"failed"`
}

// WizardCleanupTask 清理长时间无操作的向导会话
type WizardCleanupTask struct {
	sessions repository.WizardSessionRepository
	expirer  SessionExpirer
	cron     *cron.Cron

	spec        string
	idleTTL     time.Duration
	batchSize   int
	concurrency int
	now         func() time.Time

	mu      sync.Mutex
	running bool
}

// NewWizardCleanupTask 创建向导清理任务
func NewWizardCleanupTask(sessions repository.WizardSessionRepository, expirer SessionExpirer, spec string, idleTTL time.Duration) *WizardCleanupTask {
	if spec == "" {
		spec = "0 */10 * * * *"
	}
	if idleTTL <= 0 {
		idleTTL = 24 * time.Hour
	}
	return &WizardCleanupTask{
		sessions:    sessions,
		expirer:     expirer,
		cron:        cron.New(cron.WithSeconds()),
		spec:        spec,
		idleTTL:     idleTTL,
		batchSize:   200,
		concurrency: 5,
		now:         time.Now,
	}
}

// SetConcurrency 设置单批数量与并发上限
func (t *WizardCleanupTask) SetConcurrency(concurrency, batchSize int) {
	if concurrency > 0 {
		t.concurrency = concurrency
	}
	if batchSize > 0 {
		t.batchSize = batchSize
	}
}

// Start 注册定时任务
func (t *WizardCleanupTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := t.RunOnce(ctx); err != nil {
			zap.L().Error("[WizardCleanup] 本轮清理失败", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}

	t.cron.Start()
	zap.L().Info("[WizardCleanup] 定时任务已启动",
		zap.String("spec", t.spec),
		zap.Duration("idle_ttl", t.idleTTL))
	return nil
}

// Stop 停止并等待正在执行的任务
func (t *WizardCleanupTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
	zap.L().Info("[WizardCleanup] 定时任务已停止")
}

// RunOnce 立即执行一轮清理；上一轮未结束时直接跳过
func (t *WizardCleanupTask) RunOnce(ctx context.Context) (*CleanupResult, error) {
	t.mu.Lock()
	if t.running {
		t.mu.Unlock()
		zap.L().Warn("[WizardCleanup] 上一轮仍在执行，跳过")
		return &CleanupResult{}, nil
	}
	t.running = true
	t.mu.Unlock()
	defer func() {
		t.mu.Lock()
		t.running = false
		t.mu.Unlock()
	}()

	return t.execute(ctx)
}

func (t *WizardCleanupTask) execute(ctx context.Context) (*CleanupResult, error) {
	before := t.now().Add(-t.idleTTL)
	sessions, err := t.sessions.FindIdle(ctx, before, t.batchSize)
	if err != nil {
		return nil, err
	}

	result := &CleanupResult{Scanned: len(sessions)}
	if len(sessions) == 0 {
		return result, nil
	}

	var expired, failed int64
	sem := make(chan struct{}, t.concurrency)
	var wg sync.WaitGroup

	for _, sess := range sessions {
		select {
		case <-ctx.Done():
			zap.L().Warn("[WizardCleanup] 任务超时停止")
			wg.Wait()
			result.Expired = int(expired)
			result.Failed = int(failed)
			return result, ctx.Err()
		default:
		}

		sem <- struct{}{}
		wg.Add(1)

		go func(s *model.WizardSession) {
			defer wg.Done()
			defer func() { <-sem }()

			if err := t.expirer.ExpireSession(ctx, s); err != nil {
				atomic.AddInt64(&failed, 1)
				zap.L().Warn("[WizardCleanup] 会话过期处理失败",
					zap.String("session", s.SessionKey),
					zap.Error(err))
				return
			}
			atomic.AddInt64(&expired, 1)
		}(sess)
	}

	wg.Wait()
	result.Expired = int(expired)
	result.Failed = int(failed)

	zap.L().Info("[WizardCleanup] 本轮清理完成",
		zap.Int("scanned", result.Scanned),
		zap.Int("expired", result.Expired),
		zap.Int("failed", result.Failed))
	return result, nil
}
