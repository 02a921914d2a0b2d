// internal/services/job_service.go
package services

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/Corphon/LessonReel/internal/errors"
	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/utils"
)

// ProgressFunc 生成流程的进度回调
type ProgressFunc func(progress int, message string)

// LessonGenerator 后台任务执行的课程生成接口
type LessonGenerator interface {
	Generate(ctx context.Context, req models.GenerationRequest, progress ProgressFunc) (*models.GeneratedArtifact, error)
}

// JobTracker 跟踪一个后台生成任务
type JobTracker struct {
	snapshot    models.JobSnapshot
	subscribers map[chan models.JobSnapshot]bool
	done        chan struct{}
	mutex       sync.Mutex
}

func newJobTracker(id string) *JobTracker {
	now := time.Now()
	return &JobTracker{
		snapshot: models.JobSnapshot{
			ID:        id,
			Status:    models.JobQueued,
			Message:   "Queued",
			CreatedAt: now,
			UpdatedAt: now,
		},
		subscribers: make(map[chan models.JobSnapshot]bool),
		done:        make(chan struct{}),
	}
}

// Snapshot 返回当前状态的副本
func (t *JobTracker) Snapshot() models.JobSnapshot {
	t.mutex.Lock()
	defer t.mutex.Unlock()
	return t.snapshot
}

// Done 任务进入终态时关闭
func (t *JobTracker) Done() <-chan struct{} {
	return t.done
}

// broadcast 调用方需持有锁；订阅通道已满时丢弃本次更新
func (t *JobTracker) broadcast() {
	for subscriber := range t.subscribers {
		select {
		case subscriber <- t.snapshot:
		default:
		}
	}
}

// UpdateProgress 更新进度，进度只增不减，终态后忽略
func (t *JobTracker) UpdateProgress(progress int, message string) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.snapshot.Status.IsTerminal() {
		return
	}
	t.snapshot.Status = models.JobProcessing
	if progress > t.snapshot.Progress {
		t.snapshot.Progress = min(progress, 99)
	}
	if message != "" {
		t.snapshot.Message = message
	}
	t.snapshot.UpdatedAt = time.Now()
	t.broadcast()
}

// Complete 标记任务成功
func (t *JobTracker) Complete(artifact *models.GeneratedArtifact) {
	t.finish(func(s *models.JobSnapshot) {
		s.Status = models.JobReady
		s.Progress = 100
		s.Message = "Lesson ready"
		if artifact != nil {
			s.VideoURL = artifact.PublicURL
			s.PosterURL = artifact.PosterURL
		}
	})
}

// Fail 标记任务失败
func (t *JobTracker) Fail(errMsg string) {
	t.finish(func(s *models.JobSnapshot) {
		s.Status = models.JobFailed
		s.Message = "Generation failed"
		s.Error = errMsg
	})
}

func (t *JobTracker) finish(apply func(*models.JobSnapshot)) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.snapshot.Status.IsTerminal() {
		return
	}
	apply(&t.snapshot)
	t.snapshot.UpdatedAt = time.Now()
	t.broadcast()
	close(t.done)
}

// Subscribe 订阅状态更新，订阅时立即收到当前状态
func (t *JobTracker) Subscribe() chan models.JobSnapshot {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	subscriber := make(chan models.JobSnapshot, 16)
	t.subscribers[subscriber] = true
	subscriber <- t.snapshot
	return subscriber
}

// Unsubscribe 取消订阅并关闭通道
func (t *JobTracker) Unsubscribe(subscriber chan models.JobSnapshot) {
	t.mutex.Lock()
	defer t.mutex.Unlock()

	if t.subscribers[subscriber] {
		delete(t.subscribers, subscriber)
		close(subscriber)
	}
}

// JobService 管理后台生成任务
type JobService struct {
	generator LessonGenerator
	timeout   time.Duration
	trackers  map[string]*JobTracker
	mutex     sync.RWMutex
	wg        sync.WaitGroup
	metrics   *utils.APIMetrics
	logger    *utils.Logger
}

// NewJobService 创建任务服务，timeout 为每个任务的整体期限
func NewJobService(generator LessonGenerator, timeout time.Duration) *JobService {
	return &JobService{
		generator: generator,
		timeout:   timeout,
		trackers:  make(map[string]*JobTracker),
		metrics:   utils.NewAPIMetrics(),
		logger:    utils.GetLogger(),
	}
}

// Submit 登记任务并在后台执行，请求需已通过校验
func (s *JobService) Submit(req models.GenerationRequest) models.JobSnapshot {
	id := uuid.NewString()
	tracker := newJobTracker(id)

	s.mutex.Lock()
	s.trackers[id] = tracker
	s.mutex.Unlock()

	s.metrics.Collector().IncGauge("jobs_active")
	s.wg.Add(1)
	go s.run(id, tracker, req)

	return tracker.Snapshot()
}

func (s *JobService) run(id string, tracker *JobTracker, req models.GenerationRequest) {
	defer s.wg.Done()
	defer s.metrics.Collector().DecGauge("jobs_active")

	logger := s.logger.With(map[string]interface{}{"job_id": id})
	defer func() {
		if r := recover(); r != nil {
			logger.Error("Job panicked", map[string]interface{}{"panic": fmt.Sprint(r)})
			tracker.Fail("internal error")
		}
	}()

	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	tracker.UpdateProgress(1, "Starting")
	artifact, err := s.generator.Generate(ctx, req, tracker.UpdateProgress)
	if err != nil {
		logger.Warn("Job failed", map[string]interface{}{
			"topic_id": req.TopicID,
			"error":    err.Error(),
		})
		tracker.Fail(publicMessage(err))
		return
	}

	logger.Info("Job finished", map[string]interface{}{
		"topic_id":  req.TopicID,
		"video_url": artifact.PublicURL,
	})
	tracker.Complete(artifact)
}

// publicMessage 存储类错误对外只返回通用描述
func publicMessage(err error) string {
	switch {
	case apperrors.IsTimeoutError(err):
		return "Lesson generation timed out"
	case apperrors.IsValidationError(err):
		return err.Error()
	default:
		return "Failed to generate video"
	}
}

// Get 返回任务跟踪器
func (s *JobService) Get(id string) (*JobTracker, bool) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	tracker, ok := s.trackers[id]
	return tracker, ok
}

// Snapshot 返回任务状态，未知任务返回 NotFound 错误
func (s *JobService) Snapshot(id string) (models.JobSnapshot, error) {
	tracker, ok := s.Get(id)
	if !ok {
		return models.JobSnapshot{}, apperrors.NewNotFoundError("job not found: "+id, nil)
	}
	return tracker.Snapshot(), nil
}

// CleanupFinished 清理超过 maxAge 的已结束任务，返回清理数量
func (s *JobService) CleanupFinished(maxAge time.Duration) int {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	removed := 0
	now := time.Now()
	for id, tracker := range s.trackers {
		snap := tracker.Snapshot()
		if snap.Status.IsTerminal() && now.Sub(snap.UpdatedAt) > maxAge {
			delete(s.trackers, id)
			removed++
		}
	}
	return removed
}

// Len 返回登记的任务数量
func (s *JobService) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.trackers)
}

// Wait 等待所有后台任务结束
func (s *JobService) Wait() {
	s.wg.Wait()
}
