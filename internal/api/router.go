// internal/api/router.go
package api

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/Corphon/LessonReel/internal/config"
	"github.com/Corphon/LessonReel/internal/di"
	"github.com/Corphon/LessonReel/internal/services"
	"github.com/Corphon/LessonReel/internal/utils"
)

// ServiceName 追踪与日志中使用的服务名
const ServiceName = "lessonreel"

// SetupRouter 配置HTTP路由，服务只从容器获取
func SetupRouter(cfg *config.Config) (*gin.Engine, error) {
	container := di.GetContainer()

	generationService, ok := container.Get("generation").(*services.GenerationService)
	if !ok {
		return nil, fmt.Errorf("生成服务未正确初始化")
	}

	jobService, ok := container.Get("jobs").(*services.JobService)
	if !ok {
		return nil, fmt.Errorf("任务服务未正确初始化")
	}

	handler := NewHandler(generationService, jobService)
	handler.Settings, _ = container.Get("config").(*services.ConfigService)
	handler.Stats, _ = container.Get("stats").(*services.StatsService)

	return NewRouter(cfg, handler), nil
}

// NewRouter 注册中间件与路由
func NewRouter(cfg *config.Config, handler *Handler) *gin.Engine {
	if !cfg.DebugMode {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	if cfg.OTelEnabled {
		r.Use(otelgin.Middleware(ServiceName))
	}
	r.Use(MetricsMiddleware(utils.NewAPIMetrics()))
	r.Use(AccessLogMiddleware(utils.GetLogger()))
	r.Use(corsMiddleware(cfg.CORSOrigins))

	// 生成产物：页面、图片、音频、封面
	r.Static("/videos", cfg.OutputDir)

	r.GET("/health", handler.Health)
	r.GET("/metrics", handler.GetMetrics)

	limiter := NewRateLimiter()
	generateLimit := RateLimitByIP(limiter, cfg.RateLimitPerMinute, time.Minute)

	generate := r.Group("/generate-video")
	{
		generate.POST("", generateLimit, handler.GenerateVideo)
		generate.POST("/", generateLimit, handler.GenerateVideo)
		generate.POST("/jobs", generateLimit, handler.SubmitJob)

		generate.GET("/voices", handler.ListVoices)
		generate.GET("/topics", handler.ListTopics)

		images := generate.Group("/images")
		{
			images.GET("/stats", handler.ImageStats)
			images.POST("/cleanup", handler.CleanupImages)
			images.DELETE("/cache", handler.ClearImageCache)
		}
	}

	if handler.Stats != nil {
		generate.GET("/stats", handler.UsageStats)
	}

	if handler.Settings != nil {
		settings := r.Group("/settings")
		{
			settings.GET("/llm", handler.GetLLMSettings)
			settings.PUT("/llm", generateLimit, handler.UpdateLLMSettings)
		}
	}

	r.GET("/jobs/:id", handler.GetJob)
	r.GET("/ws/jobs/:id", handler.JobProgressWebSocket)

	r.NoRoute(handler.NoRoute)
	return r
}
