// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Corphon/LessonReel/internal/catalog"
	"github.com/Corphon/LessonReel/internal/config"
	"github.com/Corphon/LessonReel/internal/di"
	"github.com/Corphon/LessonReel/internal/services"
	"github.com/Corphon/LessonReel/internal/storage"
	"github.com/Corphon/LessonReel/internal/tts"
	"github.com/Corphon/LessonReel/internal/utils"

	// 注册文本与语音提供者
	_ "github.com/Corphon/LessonReel/internal/llm/providers/google"
	_ "github.com/Corphon/LessonReel/internal/llm/providers/openai"
	_ "github.com/Corphon/LessonReel/internal/tts/elevenlabs"
)

// InitServices 按依赖顺序创建服务并注册到全局容器
func InitServices(cfg *config.Config) error {
	return InitServicesInto(di.GetContainer(), cfg)
}

// InitServicesInto 按依赖顺序创建服务并注册到指定容器
func InitServicesInto(container *di.Container, cfg *config.Config) error {
	logger := utils.GetLogger()

	// 1. 目录与存储
	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("创建输出目录失败: %w", err)
	}
	files, err := storage.NewFileStorage(cfg.OutputDir)
	if err != nil {
		return fmt.Errorf("初始化输出存储失败: %w", err)
	}
	container.Register("files", files)

	store := storage.NewImageStore(files, cfg.ImageCacheKeyMode)
	container.Register("image_store", store)

	// 2. 主题与音色目录
	cat := catalog.Default()
	if cfg.CatalogFile != "" {
		if cat, err = catalog.Load(cfg.CatalogFile); err != nil {
			return fmt.Errorf("加载目录文件失败: %w", err)
		}
	}
	container.Register("catalog", cat)

	// 3. 供应商
	llmService, err := services.NewLLMService()
	if err != nil {
		logger.Warn("LLM service unavailable, using built-in lessons", map[string]interface{}{"error": err.Error()})
		llmService = services.NewEmptyLLMService()
	}
	container.Register("llm", llmService)
	container.Register("config", services.NewConfigService(llmService))
	logger.Info("LLM service initialized", map[string]interface{}{
		"provider": llmService.GetProviderName(),
		"state":    llmService.GetReadyState(),
	})

	synth := newSynthesizer(cfg)
	if synth != nil {
		container.Register("tts", synth)
	}

	// 4. 流水线各阶段
	content := services.NewContentService(llmService, services.NewFallbackGenerator(), cfg.VendorTimeout)
	container.Register("content", content)

	images := services.NewImageService(llmService, store, cfg.VendorTimeout)
	container.Register("images", images)

	narration := services.NewNarrationService(synth, narrationModelID(), cfg.VendorTimeout)
	container.Register("narration", narration)

	posters, err := services.NewPosterService()
	if err != nil {
		// 封面不是必需的
		logger.Warn("Poster fonts unavailable, posters disabled", map[string]interface{}{"error": err.Error()})
	} else {
		container.Register("posters", posters)
	}

	locks := services.NewLockManager()
	container.Register("locks", locks)

	artifacts := services.NewArtifactService(files, locks)
	container.Register("artifacts", artifacts)

	statsFiles, err := storage.NewFileStorage(filepath.Join(cfg.DataDir, "stats"))
	if err != nil {
		return fmt.Errorf("初始化统计存储失败: %w", err)
	}
	stats := services.NewStatsService(statsFiles)
	container.Register("stats", stats)

	// 5. 编排与后台任务
	generation := services.NewGenerationService(services.GenerationDeps{
		Catalog:          cat,
		Content:          content,
		Images:           images,
		Narration:        narration,
		Posters:          posters,
		Artifacts:        artifacts,
		Store:            store,
		Usage:            stats,
		ImageConcurrency: cfg.ImageConcurrency,
		Retention:        cfg.ImageRetention(),
		RequestTimeout:   cfg.RequestTimeout,
	})
	container.Register("generation", generation)

	jobs := services.NewJobService(generation, cfg.RequestTimeout)
	container.Register("jobs", jobs)

	sweep := services.NewSweepTask(generation, jobs, cfg.SweepSchedule)
	if err := sweep.Start(); err != nil {
		locks.Stop()
		return err
	}
	container.Register("sweep", sweep)

	logger.Info("Services initialized", map[string]interface{}{
		"services":        len(container.GetNames()),
		"narration":       narration.Available(),
		"image_cache_key": store.Mode(),
		"output_dir":      cfg.OutputDir,
	})
	return nil
}

// newSynthesizer 未配置密钥或初始化失败时返回 nil，课程不含旁白
func newSynthesizer(cfg *config.Config) tts.Synthesizer {
	current := config.GetCurrentConfig()
	settings := make(map[string]string, len(current.TTSConfig)+1)
	for k, v := range current.TTSConfig {
		settings[k] = v
	}
	if settings["api_key"] == "" {
		utils.GetLogger().Info("ElevenLabs key not set, lessons will be generated without narration", nil)
		return nil
	}
	settings["timeout"] = cfg.VendorTimeout.String()

	synth, err := tts.GetSynthesizer(current.TTSProvider, settings)
	if err != nil {
		utils.GetLogger().Warn("Speech provider initialization failed", map[string]interface{}{
			"provider": current.TTSProvider,
			"error":    err.Error(),
		})
		return nil
	}
	return synth
}

func narrationModelID() string {
	if model := config.GetCurrentConfig().TTSConfig["model_id"]; model != "" {
		return model
	}
	return "eleven_multilingual_v2"
}

// Shutdown 停止定时任务、等待后台任务并释放锁管理器
func Shutdown(ctx context.Context, container *di.Container) {
	if sweep, ok := container.Get("sweep").(*services.SweepTask); ok {
		sweep.Stop(ctx)
	}

	if jobs, ok := container.Get("jobs").(*services.JobService); ok {
		done := make(chan struct{})
		go func() {
			jobs.Wait()
			close(done)
		}()
		select {
		case <-done:
		case <-ctx.Done():
			utils.GetLogger().Warn("Background jobs still running at shutdown", map[string]interface{}{"jobs": jobs.Len()})
		}
	}

	if stats, ok := container.Get("stats").(*services.StatsService); ok {
		if err := stats.Close(); err != nil {
			utils.GetLogger().Warn("Failed to flush usage stats", map[string]interface{}{"error": err.Error()})
		}
	}

	if locks, ok := container.Get("locks").(*services.LockManager); ok {
		locks.Stop()
	}
}
