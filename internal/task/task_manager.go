package task

import (
	"context"
	"time"

	"storefront_v1_202610/internal/middleware"
	"storefront_v1_202610/internal/repository"
	"storefront_v1_202610/pkg/logger"
)

// ==================== TaskManager 后台任务管理器 ====================

// TaskManager 统一管理后台定时任务
type TaskManager struct {
	cleanupTask *CleanupTask
}

// TaskManagerDeps 任务管理器依赖
type TaskManagerDeps struct {
	Drafts   repository.DraftRepository
	Codes    repository.AuthCodeRepository
	Limiters []*middleware.RateLimiter
}

// TaskManagerConfig 任务管理器配置
type TaskManagerConfig struct {
	CleanupEnabled bool
	CleanupSpec    string
	CodeRetention  time.Duration
}

// DefaultConfig 默认配置
func DefaultConfig() *TaskManagerConfig {
	return &TaskManagerConfig{
		CleanupEnabled: true,
		CleanupSpec:    "0 */10 * * * *",
		CodeRetention:  24 * time.Hour,
	}
}

// NewTaskManager 创建任务管理器
func NewTaskManager(deps *TaskManagerDeps, cfg *TaskManagerConfig) *TaskManager {
	if cfg == nil {
		cfg = DefaultConfig()
	}

	tm := &TaskManager{}
	if cfg.CleanupEnabled && deps.Drafts != nil && deps.Codes != nil {
		tm.cleanupTask = NewCleanupTask(deps.Drafts, deps.Codes, deps.Limiters...)
		tm.cleanupTask.SetSchedule(cfg.CleanupSpec, cfg.CodeRetention)
	}
	return tm
}

// ==================== 生命周期管理 ====================

// Start 启动所有任务
func (tm *TaskManager) Start() error {
	logger.L().Info("[TaskManager] 正在启动后台任务...")
	if tm.cleanupTask != nil {
		if err := tm.cleanupTask.Start(); err != nil {
			return err
		}
	}
	logger.L().Info("[TaskManager] 后台任务已全部启动")
	return nil
}

// Stop 停止所有任务
func (tm *TaskManager) Stop() {
	if tm.cleanupTask != nil {
		tm.cleanupTask.Stop()
	}
	logger.L().Info("[TaskManager] 后台任务已全部停止")
}

// TriggerCleanup 手动触发清理
func (tm *TaskManager) TriggerCleanup(ctx context.Context) (*CleanupResult, error) {
	if tm.cleanupTask == nil {
		return nil, ErrTaskDisabled
	}
	return tm.cleanupTask.RunOnce(ctx)
}

// Status 获取任务状态
func (tm *TaskManager) Status() map[string]bool {
	return map[string]bool{
		"cleanup": tm.cleanupTask != nil,
	}
}

// ==================== 错误定义 ====================

type TaskError string

func (e TaskError) Error() string { return string(e) }

const (
	ErrTaskDisabled TaskError = "task is disabled"
)
