// internal/llm/providers/openai/openai.go
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Corphon/LessonReel/internal/llm"
)

func init() {
	llm.Register("openai", func() llm.Provider {
		return &Provider{
			recommendedModels: []string{
				"gpt-4o-mini",
				"gpt-4o",
				"gpt-4.1-mini",
			},
			baseURL: "https://api.openai.com/v1",
		}
	})
}

// Provider 调用 OpenAI 兼容的 chat/completions 接口
type Provider struct {
	apiKey            string
	baseURL           string
	client            *resty.Client
	defaultModel      string
	recommendedModels []string
	availableModels   []string
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float32       `json:"temperature,omitempty"`
	TopP        float32       `json:"top_p,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey := strings.TrimSpace(config["api_key"])
	if apiKey == "" {
		return errors.New("OpenAI API密钥未提供")
	}
	p.apiKey = apiKey

	p.defaultModel = "gpt-4o-mini"
	if model := config["default_model"]; model != "" {
		p.defaultModel = model
	}
	if baseURL := config["base_url"]; baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}

	// 自定义模型列表（JSON 数组）
	if raw := config["custom_models"]; raw != "" {
		var models []string
		if err := json.Unmarshal([]byte(raw), &models); err == nil && len(models) > 0 {
			p.availableModels = models
		}
	}

	timeout := 30 * time.Second
	if raw := config["timeout"]; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timeout = d
		}
	}

	p.client = resty.New().
		SetTimeout(timeout).
		SetAuthToken(p.apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "LessonReel/1.0")
	return nil
}

func (p *Provider) GetName() string {
	return "OpenAI"
}

func (p *Provider) GetSupportedModels() []string {
	if len(p.availableModels) > 0 {
		return p.availableModels
	}
	return p.recommendedModels
}

func (p *Provider) CompleteText(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	model := req.Model
	if model == "" {
		model = p.defaultModel
	}

	messages := []chatMessage{{Role: "user", Content: req.Prompt}}
	if req.SystemPrompt != "" {
		messages = append([]chatMessage{{Role: "system", Content: req.SystemPrompt}}, messages...)
	}

	var out chatResponse
	var apiErr apiError
	resp, err := p.client.R().
		SetContext(ctx).
		SetBody(chatRequest{
			Model:       model,
			Messages:    messages,
			Temperature: req.Temperature,
			TopP:        req.TopP,
			MaxTokens:   req.MaxTokens,
			Stop:        req.StopWords,
		}).
		SetResult(&out).
		SetError(&apiErr).
		Post(p.baseURL + "/chat/completions")
	if err != nil {
		return nil, fmt.Errorf("OpenAI 请求失败: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return nil, fmt.Errorf("OpenAI API错误(%d): %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return nil, fmt.Errorf("OpenAI API错误(%d): %s", resp.StatusCode(), resp.String())
	}

	if len(out.Choices) == 0 {
		return nil, errors.New("OpenAI未返回任何结果")
	}

	if out.Model != "" {
		model = out.Model
	}
	return &llm.CompletionResponse{
		Text:         out.Choices[0].Message.Content,
		FinishReason: out.Choices[0].FinishReason,
		TokensUsed:   out.Usage.TotalTokens,
		PromptTokens: out.Usage.PromptTokens,
		OutputTokens: out.Usage.CompletionTokens,
		ModelName:    model,
		ProviderName: p.GetName(),
	}, nil
}

// FetchAvailableModels 获取账户可用的模型列表
func (p *Provider) FetchAvailableModels(ctx context.Context) error {
	if p.apiKey == "" {
		return errors.New("API密钥未设置，无法获取模型列表")
	}

	var out struct {
		Data []struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	resp, err := p.client.R().SetContext(ctx).SetResult(&out).Get(p.baseURL + "/models")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("获取模型列表失败(%d): %s", resp.StatusCode(), resp.String())
	}

	p.availableModels = make([]string, 0, len(out.Data))
	for _, m := range out.Data {
		p.availableModels = append(p.availableModels, m.ID)
	}
	return nil
}

// SetCustomModels 设置自定义模型列表
func (p *Provider) SetCustomModels(models []string) {
	if len(models) > 0 {
		p.availableModels = models
	}
}
