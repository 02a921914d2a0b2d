// internal/api/handlers.go
package api

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/Corphon/LessonReel/internal/errors"
	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/services"
	"github.com/Corphon/LessonReel/internal/utils"
)

// Handler 处理 HTTP 请求
type Handler struct {
	Generation *services.GenerationService
	Jobs       *services.JobService
	Settings   *services.ConfigService // 可选
	Stats      *services.StatsService  // 可选
	Metrics    *utils.MetricsCollector
	response   *ResponseHelper
	logger     *utils.Logger
}

// NewHandler 创建处理器
func NewHandler(generation *services.GenerationService, jobs *services.JobService) *Handler {
	return &Handler{
		Generation: generation,
		Jobs:       jobs,
		Metrics:    utils.GetMetricsCollector(),
		response:   NewResponseHelper(),
		logger:     utils.GetLogger(),
	}
}

// bindGenerateBody 解析并校验生成请求体，失败时已写出响应
func (h *Handler) bindGenerateBody(c *gin.Context) (models.GenerationRequest, bool) {
	var body models.GenerateVideoBody
	if err := c.ShouldBindJSON(&body); err != nil {
		h.response.BadRequest(c, MsgInvalidBody)
		return models.GenerationRequest{}, false
	}
	if err := services.ValidateRequest(body); err != nil {
		h.response.FromError(c, err)
		return models.GenerationRequest{}, false
	}
	return body.ToRequest(), true
}

// GenerateVideo 同步生成课程页面
func (h *Handler) GenerateVideo(c *gin.Context) {
	req, ok := h.bindGenerateBody(c)
	if !ok {
		return
	}

	logger := h.logger.With(map[string]interface{}{"request_id": c.GetString(requestIDKey)})
	logger.Info("Generate request", map[string]interface{}{
		"voice_id":     req.VoiceID,
		"topic_id":     req.TopicID,
		"has_prompt":   req.CustomPrompt != "",
		"prompt_chars": len(req.CustomPrompt),
	})

	artifact, err := h.Generation.Generate(c.Request.Context(), req, nil)
	if err != nil {
		logger.Error("Video generation error", map[string]interface{}{"error": err.Error()})
		h.response.FromError(c, err)
		return
	}

	fields := gin.H{
		"videoUrl":   artifact.PublicURL,
		"slideCount": artifact.SlideCount,
		"hasAudio":   artifact.HasAudio(),
		"message":    "Video generation completed",
	}
	if artifact.PosterURL != "" {
		fields["posterUrl"] = artifact.PosterURL
	}
	h.response.Success(c, http.StatusOK, fields)
}

// SubmitJob 后台生成，立即返回任务 ID
func (h *Handler) SubmitJob(c *gin.Context) {
	req, ok := h.bindGenerateBody(c)
	if !ok {
		return
	}

	snapshot := h.Jobs.Submit(req)
	c.Header("Location", "/jobs/"+snapshot.ID)
	h.response.Success(c, http.StatusAccepted, gin.H{
		"jobId":  snapshot.ID,
		"status": snapshot.Status,
	})
}

// GetJob 查询任务状态
func (h *Handler) GetJob(c *gin.Context) {
	snapshot, err := h.Jobs.Snapshot(c.Param("id"))
	if err != nil {
		h.response.FromError(c, err)
		return
	}
	c.JSON(http.StatusOK, snapshot)
}

// ListVoices 列出供应商音色
func (h *Handler) ListVoices(c *gin.Context) {
	voices, err := h.Generation.ListVoices(c.Request.Context())
	if err != nil {
		h.logger.Error("Error fetching voices", map[string]interface{}{"error": err.Error()})
		h.response.InternalError(c, ErrorVoicesUnavailable, MsgVoicesFailed)
		return
	}
	h.response.Success(c, http.StatusOK, gin.H{"voices": voices})
}

// ListTopics 列出预设主题与本地音色
func (h *Handler) ListTopics(c *gin.Context) {
	cat := h.Generation.Catalog()
	h.response.Success(c, http.StatusOK, gin.H{
		"topics": cat.Topics,
		"voices": cat.Voices,
	})
}

// ImageStats 图片目录统计
func (h *Handler) ImageStats(c *gin.Context) {
	stats, err := h.Generation.ImageStats()
	if err != nil {
		h.logger.Error("Failed to read image stats", map[string]interface{}{"error": err.Error()})
		h.response.InternalError(c, ErrorInternalError, "Failed to read image stats")
		return
	}
	h.response.Success(c, http.StatusOK, gin.H{"stats": stats})
}

// CleanupImages 按 maxAgeHours 清理图片，缺省使用配置的保留期
func (h *Handler) CleanupImages(c *gin.Context) {
	var (
		result models.SweepResult
		err    error
	)
	if raw := c.Query("maxAgeHours"); raw != "" {
		hours, parseErr := strconv.ParseFloat(raw, 64)
		if parseErr != nil || hours < 0 {
			h.response.BadRequest(c, fmt.Sprintf("invalid maxAgeHours: %s", raw))
			return
		}
		result, err = h.Generation.Sweep(time.Duration(hours * float64(time.Hour)))
	} else {
		result, err = h.Generation.RetentionSweep()
	}
	if err != nil {
		h.logger.Error("Image cleanup failed", map[string]interface{}{"error": err.Error()})
		h.response.InternalError(c, ErrorInternalError, "Image cleanup failed")
		return
	}

	h.response.Success(c, http.StatusOK, gin.H{
		"cleanedCount": result.CleanedCount,
		"totalSize":    result.TotalSize,
		"message":      fmt.Sprintf("Cleaned %d images", result.CleanedCount),
	})
}

// ClearImageCache 清空图片索引，文件保留
func (h *Handler) ClearImageCache(c *gin.Context) {
	cleared := h.Generation.ClearImageCache()
	h.response.Success(c, http.StatusOK, gin.H{
		"cleared": cleared,
		"message": "Image cache cleared",
	})
}

// UsageStats 累计生成统计
func (h *Handler) UsageStats(c *gin.Context) {
	h.response.Success(c, http.StatusOK, gin.H{"usage": h.Stats.GetUsageStats()})
}

// LLMSettingsRequest 更新文本生成提供者的请求体
type LLMSettingsRequest struct {
	Provider string            `json:"provider"`
	Config   map[string]string `json:"config"`
}

// GetLLMSettings 当前提供者状态与最近变更
func (h *Handler) GetLLMSettings(c *gin.Context) {
	h.response.Success(c, http.StatusOK, gin.H{
		"status":  h.Settings.LLMStatus(),
		"history": h.Settings.GetChangeHistory(10),
	})
}

// UpdateLLMSettings 切换提供者或更新密钥
func (h *Handler) UpdateLLMSettings(c *gin.Context) {
	var req LLMSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.response.BadRequest(c, MsgInvalidBody)
		return
	}

	changedBy := c.ClientIP()
	if err := h.Settings.UpdateLLMConfig(req.Provider, req.Config, changedBy); err != nil {
		if apperrors.IsValidationError(err) {
			h.response.FromError(c, err)
			return
		}
		h.logger.Error("Failed to update LLM settings", map[string]interface{}{"error": err.Error()})
		h.response.InternalError(c, ErrorInternalError, "Failed to save settings")
		return
	}
	h.response.Success(c, http.StatusOK, gin.H{
		"status":  h.Settings.LLMStatus(),
		"message": "Settings updated",
	})
}

// Health 存活检查
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// GetMetrics 进程内指标快照
func (h *Handler) GetMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, h.Metrics.GetMetrics())
}

// NoRoute 未匹配的路由
func (h *Handler) NoRoute(c *gin.Context) {
	h.response.NotFound(c, fmt.Sprintf("No route for %s %s", c.Request.Method, c.Request.URL.Path))
}
