// internal/services/llm_service.go
package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/Corphon/LessonReel/internal/config"
	"github.com/Corphon/LessonReel/internal/llm"
	"github.com/Corphon/LessonReel/internal/utils"
)

// ErrLLMNotReady 文本生成服务未配置
var ErrLLMNotReady = errors.New("llm service not ready")

var providerDefaultModels = map[string]string{
	"google": "gemini-2.0-flash",
	"openai": "gpt-4o-mini",
}

// TextGenerator 课程内容与图片描述使用的文本生成接口
type TextGenerator interface {
	GenerateText(ctx context.Context, systemPrompt, prompt string) (string, error)
}

// LLMService 提供统一的大语言模型调用接口
type LLMService struct {
	providerMutex      sync.RWMutex
	provider           llm.Provider
	providerName       string
	cache              *LLMCache
	isReady            bool
	readyState         string
	activeDefaultModel string
	metrics            *utils.APIMetrics
}

// LLMCache 按提示词缓存生成结果
type LLMCache struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	expiration time.Duration
	maxEntries int
}

// CacheEntry 缓存项
type CacheEntry struct {
	Text      string
	CreatedAt time.Time
}

// NewLLMService 根据当前配置创建LLM服务，未配置密钥时返回未就绪的服务
func NewLLMService() (*LLMService, error) {
	service := createBaseLLMService()

	cfg := config.GetCurrentConfig()
	if cfg == nil {
		service.readyState = "Failed to retrieve configuration"
		return service, nil
	}

	if cfg.LLMProvider == "" || cfg.LLMConfig == nil || cfg.LLMConfig["api_key"] == "" {
		service.readyState = "API key not configured"
		return service, nil
	}

	provider, err := llm.GetProvider(cfg.LLMProvider, cfg.LLMConfig)
	if err != nil {
		service.readyState = fmt.Sprintf("Initialization failed: %v", err)
		return service, nil // 返回未就绪服务而不是错误
	}

	service.provider = provider
	service.providerName = cfg.LLMProvider
	service.activeDefaultModel = extractDefaultModel(cfg.LLMConfig)
	service.isReady = true
	service.readyState = "Ready"

	return service, nil
}

// NewLLMServiceWithProvider 使用已初始化的提供者创建服务
func NewLLMServiceWithProvider(provider llm.Provider, defaultModel string) *LLMService {
	service := createBaseLLMService()
	service.provider = provider
	service.providerName = provider.GetName()
	service.activeDefaultModel = defaultModel
	service.isReady = true
	service.readyState = "Ready"
	return service
}

// NewEmptyLLMService 创建一个空的LLM服务实例，所有调用都走后备内容
func NewEmptyLLMService() *LLMService {
	service := createBaseLLMService()
	service.providerName = "empty"
	service.readyState = "Standby mode, configure an API key to enable generated lessons"
	return service
}

func createBaseLLMService() *LLMService {
	return &LLMService{
		readyState: "Uninitialized",
		cache:      newLLMCache(),
		metrics:    utils.NewAPIMetrics(),
	}
}

func newLLMCache() *LLMCache {
	return &LLMCache{
		cache:      make(map[string]*CacheEntry),
		expiration: 30 * time.Minute,
		maxEntries: 1000,
	}
}

// IsReady 返回服务是否已就绪
func (s *LLMService) IsReady() bool {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.provider != nil && s.isReady
}

// GetReadyState 返回服务就绪状态描述
func (s *LLMService) GetReadyState() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.readyState
}

// GetProviderStatus 返回服务是否就绪以及可读描述
func (s *LLMService) GetProviderStatus() (bool, string) {
	if s == nil {
		return false, "LLM服务实例未初始化"
	}
	return s.IsReady(), s.GetReadyState()
}

// GetProviderName 返回当前提供者名称
func (s *LLMService) GetProviderName() string {
	s.providerMutex.RLock()
	defer s.providerMutex.RUnlock()
	return s.providerName
}

// UpdateProvider 切换提供者并清空缓存
func (s *LLMService) UpdateProvider(providerName string, cfg map[string]string) error {
	provider, err := llm.GetProvider(providerName, cfg)
	if err != nil {
		s.providerMutex.Lock()
		s.isReady = false
		s.readyState = fmt.Sprintf("Configuration failed: %v", err)
		s.providerMutex.Unlock()
		return err
	}

	s.providerMutex.Lock()
	defer s.providerMutex.Unlock()

	s.provider = provider
	s.providerName = providerName
	s.activeDefaultModel = extractDefaultModel(cfg)
	s.isReady = true
	s.readyState = "Ready"
	s.cache = newLLMCache()
	return nil
}

// GenerateText 生成文本，相同提示词在缓存有效期内直接返回
func (s *LLMService) GenerateText(ctx context.Context, systemPrompt, prompt string) (string, error) {
	s.providerMutex.RLock()
	if !s.isReady || s.provider == nil {
		s.providerMutex.RUnlock()
		return "", ErrLLMNotReady
	}
	provider := s.provider
	providerName := s.providerName
	cache := s.cache
	s.providerMutex.RUnlock()

	model := s.resolveModel("")
	cacheKey := generateCacheKey(prompt, systemPrompt, model, providerName)
	if text, ok := cache.get(cacheKey); ok {
		utils.GetLogger().Debug("LLM cache hit", map[string]interface{}{"cache_key_prefix": cacheKey[:8]})
		return text, nil
	}

	start := time.Now()
	resp, err := provider.CompleteText(ctx, llm.CompletionRequest{
		Prompt:       prompt,
		SystemPrompt: systemPrompt,
		Temperature:  0.7,
		MaxTokens:    2048,
		Model:        model,
	})
	s.metrics.RecordVendorCall(providerName, "complete", err, time.Since(start))
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Text) == "" {
		return "", fmt.Errorf("%s 返回了空内容", providerName)
	}
	s.metrics.RecordLLMRequest(providerName, model, resp.TokensUsed, time.Since(start))

	cache.put(cacheKey, resp.Text)
	return resp.Text, nil
}

// GetDefaultModel 获取当前配置的默认模型
func (s *LLMService) GetDefaultModel() string {
	return s.resolveModel("")
}

// resolveModel 根据请求和配置确定应使用的模型
func (s *LLMService) resolveModel(requestedModel string) string {
	if trimmed := strings.TrimSpace(requestedModel); trimmed != "" {
		return trimmed
	}

	s.providerMutex.RLock()
	provider := s.provider
	providerName := s.providerName
	activeDefault := s.activeDefaultModel
	s.providerMutex.RUnlock()

	if activeDefault != "" {
		return activeDefault
	}
	if provider != nil {
		if models := provider.GetSupportedModels(); len(models) > 0 {
			if model := strings.TrimSpace(models[0]); model != "" {
				return model
			}
		}
	}
	if model, exists := providerDefaultModels[providerName]; exists {
		return model
	}
	return providerDefaultModels["google"]
}

func extractDefaultModel(cfg map[string]string) string {
	if cfg == nil {
		return ""
	}
	if model := strings.TrimSpace(cfg["default_model"]); model != "" {
		return model
	}
	return strings.TrimSpace(cfg["model"])
}

// generateCacheKey 生成缓存键
func generateCacheKey(prompt, systemPrompt, model, providerName string) string {
	hashInput := fmt.Sprintf("%s:::%s:::%s:::%s", prompt, systemPrompt, model, providerName)
	return utils.ContentDigest([]byte(hashInput))
}

func (c *LLMCache) get(key string) (string, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	entry, exists := c.cache[key]
	if !exists || time.Since(entry.CreatedAt) > c.expiration {
		return "", false
	}
	return entry.Text, true
}

func (c *LLMCache) put(key, text string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.cache[key] = &CacheEntry{Text: text, CreatedAt: time.Now()}
	if len(c.cache) > c.maxEntries {
		c.cleanupOldest(c.maxEntries / 10)
	}
}

// Len 返回缓存项数量
func (c *LLMCache) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.cache)
}

// cleanupOldest 清理最旧的缓存条目，调用方需持有写锁
func (c *LLMCache) cleanupOldest(count int) {
	type keyAge struct {
		key string
		age time.Time
	}

	entries := make([]keyAge, 0, len(c.cache))
	for k, v := range c.cache {
		entries = append(entries, keyAge{k, v.CreatedAt})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].age.Before(entries[j].age)
	})

	for i := 0; i < min(count, len(entries)); i++ {
		delete(c.cache, entries[i].key)
	}
}

// 清理JSON字符串时去除的噪声
var jsonNoiseReplacer = strings.NewReplacer(
	"```json", "",
	"```", "",
	"\ufeff", "",
	"\u00a0", " ",
	"\u2028", "\n",
	"\u2029", "\n",
)

// extractJSONObject 丢弃模型回复中 JSON 对象前后的文字，返回第一个括号平衡的对象
// 未找到平衡的结束符时退回到最后一个 }
func extractJSONObject(s string) (string, bool) {
	s = jsonNoiseReplacer.Replace(s)
	s = strings.Map(func(r rune) rune {
		switch r {
		case '\u200b', '\u200c', '\u200d', '\u2060':
			return -1
		}
		if unicode.IsControl(r) && r != '\n' && r != '\r' && r != '\t' {
			return -1
		}
		return r
	}, s)

	start := strings.Index(s, "{")
	if start == -1 {
		return "", false
	}
	s = s[start:]

	balance := 0
	inString := false
	escaped := false
	for i := 0; i < len(s); i++ {
		char := s[i]
		if escaped {
			escaped = false
			continue
		}
		if inString {
			switch char {
			case '\\':
				escaped = true
			case '"':
				inString = false
			}
			continue
		}
		switch char {
		case '"':
			inString = true
		case '{':
			balance++
		case '}':
			balance--
			if balance == 0 {
				return s[:i+1], true
			}
		}
	}

	if end := strings.LastIndex(s, "}"); end != -1 {
		return s[:end+1], true
	}
	return "", false
}
