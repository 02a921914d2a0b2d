// internal/services/sweep_task.go
package services

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/utils"
)

const (
	jobCleanupSchedule = "0 */10 * * * *"
	finishedJobTTL     = time.Hour
)

// Sweeper 按保留期清理幻灯片图片
type Sweeper interface {
	RetentionSweep() (models.SweepResult, error)
}

// JobCleaner 清理已结束的后台任务
type JobCleaner interface {
	CleanupFinished(maxAge time.Duration) int
}

// SweepTask 定时清理图片与过期任务
type SweepTask struct {
	sweeper  Sweeper
	jobs     JobCleaner
	schedule string
	Cron     *cron.Cron
	logger   *utils.Logger
}

// NewSweepTask 创建定时任务，schedule 为带秒的 cron 表达式，为空时不做定时图片清理
func NewSweepTask(sweeper Sweeper, jobs JobCleaner, schedule string) *SweepTask {
	return &SweepTask{
		sweeper:  sweeper,
		jobs:     jobs,
		schedule: schedule,
		Cron:     cron.New(cron.WithSeconds()),
		logger:   utils.GetLogger(),
	}
}

// Start 注册并启动定时任务
func (t *SweepTask) Start() error {
	if t.schedule != "" && t.sweeper != nil {
		if _, err := t.Cron.AddFunc(t.schedule, func() { _, _ = t.RunOnce() }); err != nil {
			return fmt.Errorf("无效的清理计划 %q: %w", t.schedule, err)
		}
	}
	if t.jobs != nil {
		if _, err := t.Cron.AddFunc(jobCleanupSchedule, func() { t.CleanupJobs() }); err != nil {
			return fmt.Errorf("注册任务清理失败: %w", err)
		}
	}

	t.Cron.Start()
	t.logger.Info("Cleanup tasks started", map[string]interface{}{
		"sweep_schedule": t.schedule,
		"entries":        len(t.Cron.Entries()),
	})
	return nil
}

// Stop 停止调度并等待正在执行的任务结束
func (t *SweepTask) Stop(ctx context.Context) {
	done := t.Cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		t.logger.Warn("Cleanup tasks still running at shutdown", nil)
	}
}

// RunOnce 执行一次图片清理，失败只记录日志
func (t *SweepTask) RunOnce() (models.SweepResult, error) {
	result, err := t.sweeper.RetentionSweep()
	if err != nil {
		t.logger.Warn("Scheduled image cleanup failed", map[string]interface{}{"error": err.Error()})
		return result, err
	}
	t.logger.Info("Scheduled image cleanup completed", map[string]interface{}{
		"cleaned":  result.CleanedCount,
		"freed_mb": fmt.Sprintf("%.2f", float64(result.TotalSize)/1024/1024),
	})
	return result, nil
}

// CleanupJobs 清理超过一小时的已结束任务
func (t *SweepTask) CleanupJobs() int {
	removed := t.jobs.CleanupFinished(finishedJobTTL)
	if removed > 0 {
		t.logger.Debug("Finished jobs evicted", map[string]interface{}{"count": removed})
	}
	return removed
}
