package task

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"bluberry_store_v1/internal/repository"
)

// SessionSweepTask 删除已过期的登录会话
type SessionSweepTask struct {
	sessions repository.AppSessionRepository
	cron     *cron.Cron
	spec     string
	now      func() time.Time
}

func NewSessionSweepTask(sessions repository.AppSessionRepository, spec string) *SessionSweepTask {
	if spec == "" {
		spec = "0 0 * * * *"
	}
	return &SessionSweepTask{
		sessions: sessions,
		cron:     cron.New(cron.WithSeconds()),
		spec:     spec,
		now:      time.Now,
	}
}

// Start 注册定时任务
func (t *SessionSweepTask) Start() error {
	_, err := t.cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		if _, err := t.RunOnce(ctx); err != nil {
			zap.L().Error("[SessionSweep] 清理失败", zap.Error(err))
		}
	})
	if err != nil {
		return err
	}
	t.cron.Start()
	zap.L().Info("[SessionSweep] 定时任务已启动", zap.String("spec", t.spec))
	return nil
}

func (t *SessionSweepTask) Stop() {
	ctx := t.cron.Stop()
	<-ctx.Done()
}

// RunOnce 立即清理一次，返回删除条数
func (t *SessionSweepTask) RunOnce(ctx context.Context) (int64, error) {
	n, err := t.sessions.DeleteExpired(ctx, t.now())
	if err != nil {
		return 0, err
	}
	if n > 0 {
		zap.L().Info("[SessionSweep] 已删除过期登录会话", zap.Int64("count", n))
	}
	return n, nil
}
