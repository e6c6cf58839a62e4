package task

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"storefront_v1_202610/internal/middleware"
	"storefront_v1_202610/internal/repository"
	"storefront_v1_202610/pkg/logger"
)

// CleanupResult 单轮清理结果
type CleanupResult struct {
	ExpiredDrafts  int64
	PurgedCodes    int64
	PurgedLimiters int
}

// CleanupTask 草稿过期 + 验证码清理 + 限流器回收
type CleanupTask struct {
	drafts   repository.DraftRepository
	codes    repository.AuthCodeRepository
	limiters []*middleware.RateLimiter
	Cron     *cron.Cron

	spec          string
	codeRetention time.Duration
	limiterIdle   time.Duration
	timeout       time.Duration
	now           func() time.Time

	mu sync.Mutex // 防止手动触发与定时任务重叠
}

func NewCleanupTask(drafts repository.DraftRepository, codes repository.AuthCodeRepository, limiters ...*middleware.RateLimiter) *CleanupTask {
	return &CleanupTask{
		drafts:        drafts,
		codes:         codes,
		limiters:      limiters,
		Cron:          cron.New(cron.WithSeconds()), // 支持秒级控制
		spec:          "0 */10 * * * *",
		codeRetention: 24 * time.Hour,
		limiterIdle:   30 * time.Minute,
		timeout:       2 * time.Minute,
		now:           time.Now,
	}
}

// SetSchedule 自定义 cron 表达式与保留时长
func (t *CleanupTask) SetSchedule(spec string, codeRetention time.Duration) {
	if spec != "" {
		t.spec = spec
	}
	if codeRetention > 0 {
		t.codeRetention = codeRetention
	}
}

// Start 启动定时任务
func (t *CleanupTask) Start() error {
	// 首次执行
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		logger.L().Info("[Task] 服务启动，执行首次清理")
		t.run(ctx)
	}()

	_, err := t.Cron.AddFunc(t.spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		t.run(ctx)
	})
	if err != nil {
		return err
	}

	t.Cron.Start()
	logger.L().Info("[Task] 清理任务已启动", zap.String("spec", t.spec))
	return nil
}

// Stop 停止并等待正在执行的任务
func (t *CleanupTask) Stop() {
	<-t.Cron.Stop().Done()
}

// RunOnce 立即执行一轮
func (t *CleanupTask) RunOnce(ctx context.Context) (*CleanupResult, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	result := &CleanupResult{}

	expired, err := t.drafts.ExpirePending(ctx, now)
	if err != nil {
		return result, err
	}
	result.ExpiredDrafts = expired

	purged, err := t.codes.PurgeStale(ctx, now.Add(-t.codeRetention))
	if err != nil {
		return result, err
	}
	result.PurgedCodes = purged

	for _, l := range t.limiters {
		result.PurgedLimiters += l.Cleanup(t.limiterIdle)
	}
	return result, nil
}

func (t *CleanupTask) run(ctx context.Context) {
	result, err := t.RunOnce(ctx)
	if err != nil {
		logger.L().Error("[Cron] 清理任务失败", zap.Error(err))
		return
	}
	if result.ExpiredDrafts > 0 || result.PurgedCodes > 0 {
		logger.L().Info("[Cron] 清理完成",
			zap.Int64("expired_drafts", result.ExpiredDrafts),
			zap.Int64("purged_codes", result.PurgedCodes),
			zap.Int("purged_limiters", result.PurgedLimiters),
		)
	}
}
