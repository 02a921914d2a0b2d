// internal/services/config_service.go
package services

import (
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/Corphon/LessonReel/internal/config"
	apperrors "github.com/Corphon/LessonReel/internal/errors"
	"github.com/Corphon/LessonReel/internal/llm"
	"github.com/Corphon/LessonReel/internal/utils"
)

const maxChangeHistory = 100

// ConfigService 管理运行时的文本生成提供者设置
type ConfigService struct {
	llm           *LLMService
	changeHistory []ConfigChangeRecord
	mu            sync.RWMutex
	logger        *utils.Logger
}

// ConfigChangeRecord 配置变更记录，密钥只记录是否设置
type ConfigChangeRecord struct {
	Timestamp   time.Time `json:"timestamp"`
	ChangedBy   string    `json:"changedBy"`
	OldProvider string    `json:"oldProvider"`
	NewProvider string    `json:"newProvider"`
	NewModel    string    `json:"newModel"`
	KeyChanged  bool      `json:"keyChanged"`
}

// LLMStatus 文本生成提供者状态，不含密钥
type LLMStatus struct {
	Provider      string   `json:"provider"`
	Model         string   `json:"model"`
	Ready         bool     `json:"ready"`
	State         string   `json:"state"`
	KeyConfigured bool     `json:"keyConfigured"`
	Providers     []string `json:"providers"`
}

// NewConfigService 创建配置服务实例
func NewConfigService(llmService *LLMService) *ConfigService {
	return &ConfigService{
		llm:           llmService,
		changeHistory: make([]ConfigChangeRecord, 0, 16),
		logger:        utils.GetLogger(),
	}
}

// LLMStatus 返回当前提供者状态
func (s *ConfigService) LLMStatus() LLMStatus {
	cfg := config.GetCurrentConfig()
	ready, state := s.llm.GetProviderStatus()
	return LLMStatus{
		Provider:      cfg.LLMProvider,
		Model:         cfg.LLMConfig["default_model"],
		Ready:         ready,
		State:         state,
		KeyConfigured: cfg.LLMConfig["api_key"] != "",
		Providers:     llm.ListProviders(),
	}
}

// UpdateLLMConfig 切换提供者或更新密钥与模型，持久化后立即生效
// settings 中未给出的键沿用同一提供者的现有值
func (s *ConfigService) UpdateLLMConfig(provider string, settings map[string]string, changedBy string) error {
	provider = strings.TrimSpace(provider)
	if provider == "" {
		return apperrors.NewValidationError("provider cannot be empty", nil)
	}
	if !slices.Contains(llm.ListProviders(), provider) {
		return apperrors.NewValidationError("unknown provider: "+provider, nil)
	}

	old := config.GetCurrentConfig()
	merged := make(map[string]string, len(settings)+2)
	if old.LLMProvider == provider {
		for k, v := range old.LLMConfig {
			merged[k] = v
		}
	}
	for k, v := range settings {
		if v = strings.TrimSpace(v); v != "" {
			merged[k] = v
		}
	}
	if merged["api_key"] == "" {
		return apperrors.NewValidationError("api_key is required", nil)
	}
	if merged["default_model"] == "" {
		merged["default_model"] = providerDefaultModels[provider]
	}

	// 先验证提供者可用，再持久化
	if err := s.llm.UpdateProvider(provider, merged); err != nil {
		return apperrors.NewValidationError("provider configuration rejected", err)
	}
	if err := config.UpdateLLMConfig(provider, merged); err != nil {
		return apperrors.NewStorageError("failed to save configuration", err)
	}

	s.recordChange(ConfigChangeRecord{
		Timestamp:   time.Now(),
		ChangedBy:   changedBy,
		OldProvider: old.LLMProvider,
		NewProvider: provider,
		NewModel:    merged["default_model"],
		KeyChanged:  merged["api_key"] != old.LLMConfig["api_key"],
	})
	s.logger.Info("LLM provider updated", map[string]interface{}{
		"provider":   provider,
		"model":      merged["default_model"],
		"changed_by": changedBy,
	})
	return nil
}

// GetChangeHistory 返回最近的变更，最新的在前
func (s *ConfigService) GetChangeHistory(limit int) []ConfigChangeRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || limit > len(s.changeHistory) {
		limit = len(s.changeHistory)
	}
	out := make([]ConfigChangeRecord, 0, limit)
	for i := len(s.changeHistory) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, s.changeHistory[i])
	}
	return out
}

func (s *ConfigService) recordChange(record ConfigChangeRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.changeHistory = append(s.changeHistory, record)
	if len(s.changeHistory) > maxChangeHistory {
		s.changeHistory = s.changeHistory[len(s.changeHistory)-maxChangeHistory:]
	}
}
