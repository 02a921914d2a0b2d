// internal/config/config.go
package config

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/Corphon/LessonReel/internal/utils"
)

// 当前配置的单例实例
var (
	currentConfig *AppConfig
	configMutex   sync.RWMutex
	configFile    string
	encryptionKey string
)

// 持久化文件中加密字段的前缀
const encryptedPrefix = "enc:"

// AppConfig 运行时配置，可持久化到 data/config.json
type AppConfig struct {
	Port      string `json:"port"`
	OutputDir string `json:"output_dir"`
	DataDir   string `json:"data_dir"`
	LogDir    string `json:"log_dir"`
	DebugMode bool   `json:"debug_mode"`

	// 文本生成
	LLMProvider string            `json:"llm_provider"`
	LLMConfig   map[string]string `json:"llm_config"`

	// 语音合成
	TTSProvider string            `json:"tts_provider"`
	TTSConfig   map[string]string `json:"tts_config"`
}

// Config 从环境变量加载的配置
type Config struct {
	Port      string
	OutputDir string
	DataDir   string
	LogDir    string
	LogLevel  string
	DebugMode bool

	LLMProvider   string
	GeminiAPIKey  string
	GeminiModel   string
	GeminiBaseURL string
	OpenAIAPIKey  string
	OpenAIModel   string
	OpenAIBaseURL string

	ElevenLabsAPIKey  string
	ElevenLabsBaseURL string
	ElevenLabsModel   string

	ImageRetentionHours float64
	ImageConcurrency    int
	ImageCacheKeyMode   string
	SweepSchedule       string
	VendorTimeout       time.Duration
	RequestTimeout      time.Duration

	CatalogFile        string
	CORSOrigins        []string
	RateLimitPerMinute int
	EncryptionKey      string

	OTelEnabled     bool
	OTelSampleRatio float64
}

// 图片缓存键模式
const (
	CacheKeyPosition = "position"
	CacheKeyContent  = "content"
)

// Load 从环境变量加载配置
func Load() (*Config, error) {
	// 尝试加载.env文件（可选）
	_ = godotenv.Load()

	cfg := &Config{
		Port:      getEnv("PORT", "3000"),
		OutputDir: getEnvPath("OUTPUT_DIR", "output"),
		DataDir:   getEnvPath("DATA_DIR", "data"),
		LogDir:    getEnvPath("LOG_DIR", "logs"),
		LogLevel:  getEnv("LOG_LEVEL", "info"),
		DebugMode: getEnvBool("DEBUG_MODE", true),

		LLMProvider:   getEnv("LLM_PROVIDER", "google"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		GeminiModel:   getEnv("GEMINI_MODEL", "gemini-2.0-flash"),
		GeminiBaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:   getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),

		ElevenLabsAPIKey:  getEnv("ELEVENLABS_API_KEY", ""),
		ElevenLabsBaseURL: getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io/v1"),
		ElevenLabsModel:   getEnv("ELEVENLABS_MODEL", "eleven_multilingual_v2"),

		ImageRetentionHours: getEnvFloat("IMAGE_RETENTION_HOURS", 24),
		ImageConcurrency:    getEnvInt("IMAGE_CONCURRENCY", 3),
		ImageCacheKeyMode:   strings.ToLower(getEnv("IMAGE_CACHE_KEY_MODE", CacheKeyPosition)),
		SweepSchedule:       os.Getenv("SWEEP_SCHEDULE"),
		VendorTimeout:       getEnvDuration("VENDOR_TIMEOUT", 30*time.Second),
		RequestTimeout:      getEnvDuration("REQUEST_TIMEOUT", 3*time.Minute),

		CatalogFile:        getEnv("CATALOG_FILE", ""),
		CORSOrigins:        getEnvList("CORS_ORIGINS", []string{"http://localhost:5173", "http://localhost:3000"}),
		RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 20),
		EncryptionKey:      getEnv("CONFIG_ENCRYPTION_KEY", ""),

		OTelEnabled:     getEnvBool("OTEL_ENABLED", false),
		OTelSampleRatio: getEnvFloat("OTEL_SAMPLER_RATIO", 1.0),
	}
	if _, set := os.LookupEnv("SWEEP_SCHEDULE"); !set {
		cfg.SweepSchedule = "0 0 * * * *"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if cfg.GeminiAPIKey == "" && cfg.OpenAIAPIKey == "" {
		log.Println("警告: 未设置文本生成 API 密钥，课程内容将使用内置模板生成")
	}
	if cfg.ElevenLabsAPIKey == "" {
		log.Println("警告: 未设置 ElevenLabs API 密钥，生成的课程将不含旁白音频")
	}

	return cfg, nil
}

// Validate 检查数值型配置
func (c *Config) Validate() error {
	if c.ImageConcurrency < 1 {
		return fmt.Errorf("IMAGE_CONCURRENCY 必须大于 0: %d", c.ImageConcurrency)
	}
	if c.ImageRetentionHours <= 0 {
		return fmt.Errorf("IMAGE_RETENTION_HOURS 必须大于 0: %v", c.ImageRetentionHours)
	}
	if c.ImageCacheKeyMode != CacheKeyPosition && c.ImageCacheKeyMode != CacheKeyContent {
		return fmt.Errorf("IMAGE_CACHE_KEY_MODE 无效: %s", c.ImageCacheKeyMode)
	}
	if c.VendorTimeout <= 0 || c.RequestTimeout <= 0 {
		return fmt.Errorf("超时配置必须大于 0")
	}
	return nil
}

// ImageRetention 返回图片保留时长
func (c *Config) ImageRetention() time.Duration {
	return time.Duration(c.ImageRetentionHours * float64(time.Hour))
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

// getEnvPath 获取环境变量表示的路径并确保目录存在
func getEnvPath(key, defaultValue string) string {
	path := getEnv(key, defaultValue)

	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.MkdirAll(path, 0755); err != nil {
			fmt.Printf("警告: 创建目录失败 %s: %v\n", path, err)
		}
	}

	return path
}

// getEnvBool 获取布尔类型环境变量
func getEnvBool(key string, defaultValue bool) bool {
	value := strings.ToLower(getEnv(key, ""))
	if value == "" {
		return defaultValue
	}
	return value == "true" || value == "1" || value == "yes" || value == "on"
}

// getEnvInt 获取整数环境变量，解析失败时使用默认值
func getEnvInt(key string, defaultValue int) int {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("警告: %s 不是有效整数 (%s)，使用默认值 %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getEnvFloat 获取浮点数环境变量
func getEnvFloat(key string, defaultValue float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("警告: %s 不是有效数字 (%s)，使用默认值 %v", key, value, defaultValue)
		return defaultValue
	}
	return f
}

// getEnvDuration 获取时长环境变量（如 30s、3m）
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("警告: %s 不是有效时长 (%s)，使用默认值 %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}

// getEnvList 获取逗号分隔的列表
func getEnvList(key string, defaultValue []string) []string {
	value := getEnv(key, "")
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// defaultAppConfig 由环境配置构造运行时配置
func defaultAppConfig(base *Config) *AppConfig {
	app := &AppConfig{
		Port:        base.Port,
		OutputDir:   base.OutputDir,
		DataDir:     base.DataDir,
		LogDir:      base.LogDir,
		DebugMode:   base.DebugMode,
		LLMProvider: base.LLMProvider,
		TTSProvider: "elevenlabs",
		TTSConfig: map[string]string{
			"api_key":  base.ElevenLabsAPIKey,
			"base_url": base.ElevenLabsBaseURL,
			"model_id": base.ElevenLabsModel,
		},
	}
	switch base.LLMProvider {
	case "openai":
		app.LLMConfig = map[string]string{
			"api_key":       base.OpenAIAPIKey,
			"default_model": base.OpenAIModel,
			"base_url":      base.OpenAIBaseURL,
		}
	default:
		app.LLMConfig = map[string]string{
			"api_key":       base.GeminiAPIKey,
			"default_model": base.GeminiModel,
			"base_url":      base.GeminiBaseURL,
		}
	}
	return app
}

// InitConfig 初始化配置管理器
func InitConfig(dataDir string) error {
	baseConfig, err := Load()
	if err != nil {
		return err
	}
	return InitConfigWith(dataDir, baseConfig)
}

// InitConfigWith 使用给定的环境配置初始化配置管理器
func InitConfigWith(dataDir string, baseConfig *Config) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	configFile = filepath.Join(dataDir, "config.json")
	encryptionKey = baseConfig.EncryptionKey
	currentConfig = defaultAppConfig(baseConfig)

	// 尝试从文件加载已保存的配置
	if data, err := os.ReadFile(configFile); err == nil {
		var saved AppConfig
		if json.Unmarshal(data, &saved) == nil {
			// 保留文件中的供应商设置，目录与端口总是取环境值
			saved.Port = baseConfig.Port
			saved.OutputDir = baseConfig.OutputDir
			saved.DataDir = baseConfig.DataDir
			saved.LogDir = baseConfig.LogDir
			saved.DebugMode = baseConfig.DebugMode
			saved.LLMConfig = mergeSecrets(decryptSecrets(saved.LLMConfig), currentConfig.LLMConfig)
			saved.TTSConfig = mergeSecrets(decryptSecrets(saved.TTSConfig), currentConfig.TTSConfig)
			if saved.LLMProvider == "" {
				saved.LLMProvider = currentConfig.LLMProvider
			}
			if saved.TTSProvider == "" {
				saved.TTSProvider = currentConfig.TTSProvider
			}
			currentConfig = &saved
		}
	}

	return saveLocked()
}

// mergeSecrets 用环境值补齐文件中缺失的键
func mergeSecrets(saved, env map[string]string) map[string]string {
	if saved == nil {
		saved = make(map[string]string, len(env))
	}
	for k, v := range env {
		if saved[k] == "" {
			saved[k] = v
		}
	}
	return saved
}

func decryptSecrets(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if strings.HasPrefix(v, encryptedPrefix) {
			plain, err := utils.Decrypt(strings.TrimPrefix(v, encryptedPrefix), encryptionKey)
			if err != nil {
				log.Printf("警告: 无法解密配置项 %s，已忽略: %v", k, err)
				continue
			}
			v = plain
		}
		out[k] = v
	}
	return out
}

func encryptSecrets(m map[string]string) (map[string]string, error) {
	out := make(map[string]string, len(m))
	for k, v := range m {
		if k == "api_key" && v != "" && encryptionKey != "" {
			enc, err := utils.Encrypt(v, encryptionKey)
			if err != nil {
				return nil, fmt.Errorf("加密配置项 %s 失败: %w", k, err)
			}
			v = encryptedPrefix + enc
		}
		out[k] = v
	}
	return out, nil
}

func copyMap(m map[string]string) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// GetCurrentConfig 返回当前配置的副本
func GetCurrentConfig() *AppConfig {
	configMutex.RLock()
	defer configMutex.RUnlock()

	if currentConfig == nil {
		baseConfig, err := Load()
		if err != nil {
			baseConfig = &Config{Port: "3000", OutputDir: "output", DataDir: "data", LogDir: "logs", LLMProvider: "google"}
		}
		return defaultAppConfig(baseConfig)
	}

	configCopy := *currentConfig
	configCopy.LLMConfig = copyMap(currentConfig.LLMConfig)
	configCopy.TTSConfig = copyMap(currentConfig.TTSConfig)
	return &configCopy
}

// UpdateLLMConfig 更新文本生成配置并持久化
func UpdateLLMConfig(provider string, cfg map[string]string) error {
	configMutex.Lock()
	defer configMutex.Unlock()

	if currentConfig == nil {
		return fmt.Errorf("配置系统未初始化")
	}

	currentConfig.LLMProvider = provider
	currentConfig.LLMConfig = copyMap(cfg)
	return saveLocked()
}

// SaveConfig 保存当前配置到文件
func SaveConfig() error {
	configMutex.Lock()
	defer configMutex.Unlock()
	return saveLocked()
}

func saveLocked() error {
	if currentConfig == nil {
		return fmt.Errorf("没有配置可保存")
	}

	dir := filepath.Dir(configFile)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("创建配置目录失败: %w", err)
	}

	onDisk := *currentConfig
	var err error
	if onDisk.LLMConfig, err = encryptSecrets(currentConfig.LLMConfig); err != nil {
		return err
	}
	if onDisk.TTSConfig, err = encryptSecrets(currentConfig.TTSConfig); err != nil {
		return err
	}

	data, err := json.MarshalIndent(&onDisk, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化配置失败: %w", err)
	}

	tmp := configFile + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("写入配置失败: %w", err)
	}
	return os.Rename(tmp, configFile)
}
