// internal/llm/providers/google/google.go
package google

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Corphon/LessonReel/internal/llm"
)

func init() {
	llm.Register("google", func() llm.Provider {
		return &Provider{
			recommendedModels: []string{
				"gemini-2.0-flash",
				"gemini-2.5-flash",
				"gemini-2.5-pro",
			},
			baseURL: "https://generativelanguage.googleapis.com/v1beta",
		}
	})
}

// Provider 通过 generateContent REST 接口调用 Gemini
type Provider struct {
	apiKey            string
	baseURL           string
	client            *resty.Client
	defaultModel      string
	recommendedModels []string
	availableModels   []string
}

type part struct {
	Text string `json:"text"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []part `json:"parts"`
}

type generateRequest struct {
	Contents          []content              `json:"contents"`
	SystemInstruction *content               `json:"systemInstruction,omitempty"`
	GenerationConfig  map[string]interface{} `json:"generationConfig,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content      content `json:"content"`
		FinishReason string  `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
		TotalTokenCount      int `json:"totalTokenCount"`
	} `json:"usageMetadata"`
}

type apiError struct {
	Error struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

func (p *Provider) Initialize(config map[string]string) error {
	apiKey := strings.TrimSpace(config["api_key"])
	if apiKey == "" {
		return errors.New("google_api密钥未提供")
	}
	p.apiKey = apiKey

	p.defaultModel = "gemini-2.0-flash"
	if model := config["default_model"]; model != "" {
		p.defaultModel = model
	}
	if baseURL := config["base_url"]; baseURL != "" {
		p.baseURL = strings.TrimRight(baseURL, "/")
	}

	timeout := 30 * time.Second
	if raw := config["timeout"]; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timeout = d
		}
	}

	p.client = resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json").
		SetHeader("User-Agent", "LessonReel/1.0")
	return nil
}

func (p *Provider) GetName() string {
	return "google gemini"
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

	body := generateRequest{
		Contents: []content{{Role: "user", Parts: []part{{Text: req.Prompt}}}},
		GenerationConfig: map[string]interface{}{
			"temperature": req.Temperature,
		},
	}
	if req.SystemPrompt != "" {
		body.SystemInstruction = &content{Parts: []part{{Text: req.SystemPrompt}}}
	}
	if req.MaxTokens > 0 {
		body.GenerationConfig["maxOutputTokens"] = req.MaxTokens
	}
	if req.TopP > 0 {
		body.GenerationConfig["topP"] = req.TopP
	}
	if len(req.StopWords) > 0 {
		body.GenerationConfig["stopSequences"] = req.StopWords
	}
	for k, v := range req.ExtraParams {
		body.GenerationConfig[k] = v
	}

	var out generateResponse
	var apiErr apiError
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("key", p.apiKey).
		SetBody(body).
		SetResult(&out).
		SetError(&apiErr).
		Post(fmt.Sprintf("%s/models/%s:generateContent", p.baseURL, model))
	if err != nil {
		return nil, fmt.Errorf("google gemini 请求失败: %w", err)
	}
	if resp.IsError() {
		if apiErr.Error.Message != "" {
			return nil, fmt.Errorf("google gemini API错误(%d): %s", resp.StatusCode(), apiErr.Error.Message)
		}
		return nil, fmt.Errorf("google gemini API错误(%d): %s", resp.StatusCode(), resp.String())
	}

	if len(out.Candidates) == 0 {
		return nil, errors.New("google gemini未返回任何结果")
	}

	var sb strings.Builder
	for _, pt := range out.Candidates[0].Content.Parts {
		sb.WriteString(pt.Text)
	}

	return &llm.CompletionResponse{
		Text:         sb.String(),
		FinishReason: out.Candidates[0].FinishReason,
		TokensUsed:   out.UsageMetadata.TotalTokenCount,
		PromptTokens: out.UsageMetadata.PromptTokenCount,
		OutputTokens: out.UsageMetadata.CandidatesTokenCount,
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
		Models []struct {
			Name string `json:"name"`
		} `json:"models"`
	}
	resp, err := p.client.R().
		SetContext(ctx).
		SetQueryParam("key", p.apiKey).
		SetResult(&out).
		Get(p.baseURL + "/models")
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("获取模型列表失败(%d): %s", resp.StatusCode(), resp.String())
	}

	p.availableModels = make([]string, 0, len(out.Models))
	for _, m := range out.Models {
		// "models/gemini-pro" -> "gemini-pro"
		p.availableModels = append(p.availableModels, m.Name[strings.LastIndex(m.Name, "/")+1:])
	}
	return nil
}

// SetCustomModels 设置自定义模型列表
func (p *Provider) SetCustomModels(models []string) {
	if len(models) > 0 {
		p.availableModels = models
	}
}
