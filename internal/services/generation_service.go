// internal/services/generation_service.go
package services

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Corphon/LessonReel/internal/catalog"
	apperrors "github.com/Corphon/LessonReel/internal/errors"
	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/storage"
	"github.com/Corphon/LessonReel/internal/utils"
)

// 请求校验消息
const (
	MsgMissingFields        = "voiceId and topicId (or customTopic) are required"
	MsgTopicConflict        = "provide either topicId or customTopic, not both"
	MsgCustomTopicRequired  = "customTopic is required when topicId is custom"
	defaultImageConcurrency = 3
)

// ValidateRequest 校验 HTTP 请求体
func ValidateRequest(body models.GenerateVideoBody) error {
	voiceID := strings.TrimSpace(body.VoiceID)
	topicID := strings.TrimSpace(body.TopicID)
	customTopic := strings.TrimSpace(body.CustomTopic)

	switch {
	case voiceID == "" || (topicID == "" && customTopic == ""):
		return apperrors.NewValidationError(MsgMissingFields, nil)
	case customTopic != "" && topicID != "" && topicID != models.CustomTopicID:
		return apperrors.NewValidationError(MsgTopicConflict, nil)
	case topicID == models.CustomTopicID && customTopic == "":
		return apperrors.NewValidationError(MsgCustomTopicRequired, nil)
	}
	return nil
}

// UsageRecorder 记录成功生成的课程
type UsageRecorder interface {
	RecordLesson(topicID string, withAudio bool) error
}

// GenerationDeps 生成流程依赖的服务
type GenerationDeps struct {
	Catalog          *catalog.Catalog
	Content          *ContentService
	Images           *ImageService
	Narration        *NarrationService
	Posters          *PosterService
	Artifacts        *ArtifactService
	Store            *storage.ImageStore
	Usage            UsageRecorder
	ImageConcurrency int
	Retention        time.Duration
	RequestTimeout   time.Duration
}

// GenerationService 课程生成编排：内容、图片、旁白、封面、页面、清理
type GenerationService struct {
	catalog          *catalog.Catalog
	content          *ContentService
	images           *ImageService
	narration        *NarrationService
	posters          *PosterService
	artifacts        *ArtifactService
	store            *storage.ImageStore
	usage            UsageRecorder
	imageConcurrency int
	retention        time.Duration
	requestTimeout   time.Duration
	metrics          *utils.APIMetrics
	logger           *utils.Logger
}

// NewGenerationService 创建编排服务
func NewGenerationService(deps GenerationDeps) *GenerationService {
	if deps.Catalog == nil {
		deps.Catalog = catalog.Default()
	}
	if deps.ImageConcurrency <= 0 {
		deps.ImageConcurrency = defaultImageConcurrency
	}
	if deps.Retention <= 0 {
		deps.Retention = 24 * time.Hour
	}
	return &GenerationService{
		catalog:          deps.Catalog,
		content:          deps.Content,
		images:           deps.Images,
		narration:        deps.Narration,
		posters:          deps.Posters,
		artifacts:        deps.Artifacts,
		store:            deps.Store,
		usage:            deps.Usage,
		imageConcurrency: deps.ImageConcurrency,
		retention:        deps.Retention,
		requestTimeout:   deps.RequestTimeout,
		metrics:          utils.NewAPIMetrics(),
		logger:           utils.GetLogger(),
	}
}

// Catalog 返回主题与音色目录
func (s *GenerationService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Generate 执行完整的生成流程
// 内容、图片与旁白失败时降级处理；只有落盘失败与整体超时会返回错误
func (s *GenerationService) Generate(ctx context.Context, req models.GenerationRequest, progress ProgressFunc) (*models.GeneratedArtifact, error) {
	if progress == nil {
		progress = func(int, string) {}
	}
	if strings.TrimSpace(req.VoiceID) == "" || strings.TrimSpace(req.TopicID) == "" {
		return nil, apperrors.NewValidationError(MsgMissingFields, nil)
	}

	if s.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	logger := s.logger.With(map[string]interface{}{"voice_id": req.VoiceID, "topic_id": req.TopicID})
	topicName := s.catalog.TopicName(req.TopicID)

	progress(5, "Writing lesson content")
	contentCtx, span := utils.StartSpan(ctx, "content", map[string]string{"topic_id": req.TopicID})
	lesson := s.content.Generate(contentCtx, topicName, req.CustomPrompt, req.TopicID)
	utils.EndSpan(span, nil)
	logger.Info("Lesson content ready", map[string]interface{}{
		"title":  lesson.Title,
		"slides": len(lesson.Slides),
		"source": lesson.Source,
	})

	progress(20, "Creating slide images")
	images, err := s.acquireImages(ctx, lesson, progress)
	if err != nil {
		return nil, apperrors.NewStorageError("Failed to generate video", err)
	}
	defer s.store.Release(images...)

	progress(70, "Recording narration")
	audio := s.narrate(ctx, lesson, req.VoiceID, logger)

	progress(85, "Designing poster")
	poster := s.renderPoster(lesson, req.VoiceID, logger)

	if err := ctx.Err(); err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, apperrors.NewTimeoutError("lesson generation timed out", err)
		}
		return nil, apperrors.NewProcessingError("lesson generation cancelled", err)
	}

	progress(90, "Assembling lesson")
	_, span = utils.StartSpan(ctx, "artifact", nil)
	artifact, err := s.artifacts.Assemble(ArtifactInput{
		Lesson:    lesson,
		Images:    images,
		VoiceID:   req.VoiceID,
		TopicID:   req.TopicID,
		VoiceName: s.catalog.VoiceName(req.VoiceID),
		Audio:     audio,
		Poster:    poster,
	})
	utils.EndSpan(span, err)
	if err != nil {
		s.metrics.RecordError("storage", "artifact")
		return nil, apperrors.NewStorageError("Failed to generate video", err)
	}

	s.sweepAfterGeneration(ctx, logger)

	duration := time.Since(start)
	s.metrics.RecordGeneration(req.TopicID, artifact.SlideCount, artifact.HasAudio(), duration)
	if s.usage != nil {
		if err := s.usage.RecordLesson(req.TopicID, artifact.HasAudio()); err != nil {
			logger.Warn("Failed to record usage", map[string]interface{}{"error": err.Error()})
		}
	}
	logger.Info("Lesson generated", map[string]interface{}{
		"video_url":   artifact.PublicURL,
		"slides":      artifact.SlideCount,
		"with_audio":  artifact.HasAudio(),
		"duration_ms": duration.Milliseconds(),
	})
	return artifact, nil
}

// acquireImages 有界并发获取幻灯片图片，结果按幻灯片序号排列
func (s *GenerationService) acquireImages(ctx context.Context, lesson *models.LessonContent, progress ProgressFunc) ([]models.CachedImage, error) {
	ctx, span := utils.StartSpan(ctx, "images", map[string]string{"slides": strconv.Itoa(len(lesson.Slides))})

	images := make([]models.CachedImage, len(lesson.Slides))
	acquired := make([]bool, len(lesson.Slides))
	step := 50 / max(len(lesson.Slides), 1)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.imageConcurrency)
	for i, slide := range lesson.Slides {
		i, slide := i, slide
		g.Go(func() error {
			img, err := s.images.Acquire(gctx, slide.ImagePrompt, i)
			if err != nil {
				return err
			}
			images[i] = img
			acquired[i] = true
			progress(20+step*(i+1), "Creating slide images")
			return nil
		})
	}
	err := g.Wait()
	utils.EndSpan(span, err)
	if err != nil {
		for i, ok := range acquired {
			if ok {
				s.store.Release(images[i])
			}
		}
		return nil, err
	}
	return images, nil
}

// narrate 旁白失败只记录日志，返回 nil 表示没有音频
func (s *GenerationService) narrate(ctx context.Context, lesson *models.LessonContent, voiceID string, logger *utils.Logger) []byte {
	if !s.narration.Available() {
		logger.Debug("Narration not configured, skipping audio", nil)
		return nil
	}

	ctx, span := utils.StartSpan(ctx, "narration", map[string]string{"voice_id": voiceID})
	audio, err := s.narration.Narrate(ctx, lesson.Script, s.catalog.VendorVoiceID(voiceID), lesson.VoiceDelivery)
	utils.EndSpan(span, err)
	if err != nil {
		s.metrics.RecordFallback("narration")
		logger.Warn("Narration failed, continuing without audio", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return audio
}

func (s *GenerationService) renderPoster(lesson *models.LessonContent, voiceID string, logger *utils.Logger) []byte {
	if s.posters == nil {
		return nil
	}
	poster, err := s.posters.Render(lesson.Title, s.catalog.VoiceName(voiceID), len(lesson.Slides))
	if err != nil {
		logger.Warn("Poster rendering failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return poster
}

func (s *GenerationService) sweepAfterGeneration(ctx context.Context, logger *utils.Logger) {
	_, span := utils.StartSpan(ctx, "sweep", nil)
	result, err := s.Sweep(s.retention)
	utils.EndSpan(span, err)
	if err != nil {
		logger.Warn("Image cleanup failed", map[string]interface{}{"error": err.Error()})
		return
	}
	if result.CleanedCount > 0 {
		logger.Info("Old slide images removed", map[string]interface{}{
			"cleaned": result.CleanedCount,
			"bytes":   result.TotalSize,
		})
	}
}

// Sweep 删除超过 maxAge 的幻灯片图片
func (s *GenerationService) Sweep(maxAge time.Duration) (models.SweepResult, error) {
	result, err := s.store.Sweep(maxAge)
	if err != nil {
		return result, err
	}
	s.metrics.RecordSweep(result.CleanedCount, result.TotalSize)
	return result, nil
}

// RetentionSweep 按配置的保留期清理，供定时任务调用
func (s *GenerationService) RetentionSweep() (models.SweepResult, error) {
	return s.Sweep(s.retention)
}

// ImageStats 返回图片目录统计
func (s *GenerationService) ImageStats() (models.ImageStats, error) {
	return s.store.Stats()
}

// ClearImageCache 清空内存中的图片索引，文件保留
func (s *GenerationService) ClearImageCache() int {
	return s.store.Clear()
}

// ListVoices 列出供应商音色
func (s *GenerationService) ListVoices(ctx context.Context) ([]models.Voice, error) {
	voices, err := s.narration.ListVoices(ctx)
	if err != nil {
		return nil, apperrors.NewUpstreamError("failed to fetch voices", err)
	}
	return voices, nil
}
