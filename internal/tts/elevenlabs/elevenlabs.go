// internal/tts/elevenlabs/elevenlabs.go
package elevenlabs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/tts"
)

// DefaultModel 默认的多语种合成模型
const DefaultModel = "eleven_multilingual_v2"

func init() {
	tts.Register("elevenlabs", func() tts.Synthesizer {
		return &Client{baseURL: "https://api.elevenlabs.io/v1", modelID: DefaultModel}
	})
}

// Client ElevenLabs REST 客户端
type Client struct {
	apiKey  string
	baseURL string
	modelID string
	client  *resty.Client
}

type speechBody struct {
	Text          string               `json:"text"`
	ModelID       string               `json:"model_id"`
	VoiceSettings models.VoiceSettings `json:"voice_settings"`
}

func (c *Client) Initialize(config map[string]string) error {
	apiKey := strings.TrimSpace(config["api_key"])
	if apiKey == "" {
		return errors.New("ElevenLabs API密钥未提供")
	}
	c.apiKey = apiKey
	if baseURL := config["base_url"]; baseURL != "" {
		c.baseURL = strings.TrimRight(baseURL, "/")
	}
	if modelID := config["model_id"]; modelID != "" {
		c.modelID = modelID
	}

	timeout := 60 * time.Second
	if raw := config["timeout"]; raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			timeout = d
		}
	}

	c.client = resty.New().
		SetBaseURL(c.baseURL).
		SetTimeout(timeout).
		SetHeader("xi-api-key", c.apiKey).
		SetHeader("User-Agent", "LessonReel/1.0")
	return nil
}

func (c *Client) GetName() string {
	return "elevenlabs"
}

// ListVoices GET /voices
func (c *Client) ListVoices(ctx context.Context) ([]models.Voice, error) {
	var out struct {
		Voices []models.Voice `json:"voices"`
	}
	resp, err := c.client.R().SetContext(ctx).SetResult(&out).Get("/voices")
	if err != nil {
		return nil, fmt.Errorf("获取音色列表失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("获取音色列表失败(%d): %s", resp.StatusCode(), truncate(resp.String()))
	}
	return out.Voices, nil
}

// GetVoice GET /voices/{id}
func (c *Client) GetVoice(ctx context.Context, voiceID string) (*models.Voice, error) {
	var voice models.Voice
	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("voiceId", voiceID).
		SetResult(&voice).
		Get("/voices/{voiceId}")
	if err != nil {
		return nil, fmt.Errorf("获取音色信息失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("获取音色信息失败(%d): %s", resp.StatusCode(), truncate(resp.String()))
	}
	return &voice, nil
}

// Synthesize POST /text-to-speech/{id}，返回 MP3 字节
func (c *Client) Synthesize(ctx context.Context, req tts.SpeechRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("合成文本为空")
	}
	modelID := req.ModelID
	if modelID == "" {
		modelID = c.modelID
	}

	resp, err := c.client.R().
		SetContext(ctx).
		SetPathParam("voiceId", req.VoiceID).
		SetHeader("Accept", "audio/mpeg").
		SetHeader("Content-Type", "application/json").
		SetBody(speechBody{Text: req.Text, ModelID: modelID, VoiceSettings: req.Settings}).
		Post("/text-to-speech/{voiceId}")
	if err != nil {
		return nil, fmt.Errorf("语音合成请求失败: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("语音合成失败(%d): %s", resp.StatusCode(), truncate(resp.String()))
	}
	audio := resp.Body()
	if len(audio) == 0 {
		return nil, errors.New("语音合成返回空音频")
	}
	return audio, nil
}

func truncate(s string) string {
	const max = 300
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
