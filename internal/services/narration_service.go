// internal/services/narration_service.go
package services

import (
	"context"
	"errors"
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/tts"
	"github.com/Corphon/LessonReel/internal/utils"
)

// ErrNarrationUnavailable 未配置语音合成
var ErrNarrationUnavailable = errors.New("narration not configured")

// DefaultVoiceSettings 返回音色的初始合成参数，设计或自定义音色使用增强参数
func DefaultVoiceSettings(voice *models.Voice) models.VoiceSettings {
	if voice.IsDesigned() {
		style := 0.3
		boost := true
		return models.VoiceSettings{Stability: 0.7, SimilarityBoost: 0.8, Style: &style, UseSpeakerBoost: &boost}
	}
	return models.VoiceSettings{Stability: 0.5, SimilarityBoost: 0.5}
}

// settingRule 语气词触发的参数调整，同一组内第一个命中的生效
type settingRule struct {
	keywords []string
	apply    func(*models.VoiceSettings)
}

func styleTo(v float64) func(*models.VoiceSettings) {
	return func(s *models.VoiceSettings) {
		style := v
		s.Style = &style
	}
}

var (
	stabilityRules = []settingRule{
		{[]string{"excited", "energetic", "enthusiastic"}, func(s *models.VoiceSettings) { s.Stability = math.Max(0.2, s.Stability-0.2) }},
		{[]string{"calm", "gentle", "soft"}, func(s *models.VoiceSettings) { s.Stability = math.Min(0.8, s.Stability+0.2) }},
		{[]string{"dramatic", "theatrical"}, func(s *models.VoiceSettings) { s.Stability = math.Max(0.1, s.Stability-0.3) }},
	}
	similarityRules = []settingRule{
		{[]string{"unique", "creative", "different"}, func(s *models.VoiceSettings) { s.SimilarityBoost = math.Max(0.2, s.SimilarityBoost-0.2) }},
		{[]string{"consistent", "same", "familiar"}, func(s *models.VoiceSettings) { s.SimilarityBoost = math.Min(0.9, s.SimilarityBoost+0.2) }},
	}
	styleRules = []settingRule{
		{[]string{"expressive", "dramatic", "theatrical"}, styleTo(0.8)},
		{[]string{"monotone", "flat", "boring"}, styleTo(0)},
		{[]string{"moderate", "balanced"}, styleTo(0.4)},
	}
)

// TuneVoice 按语气提示调整合成参数，返回新的参数
func TuneVoice(settings models.VoiceSettings, hints string) models.VoiceSettings {
	h := strings.ToLower(strings.TrimSpace(hints))
	if h == "" {
		return settings
	}
	for _, group := range [][]settingRule{stabilityRules, similarityRules, styleRules} {
		for _, rule := range group {
			if containsAny(h, rule.keywords...) {
				rule.apply(&settings)
				break
			}
		}
	}
	return settings
}

var (
	pauseReplacer   = strings.NewReplacer(".", "...", ",", ",..")
	unpauseReplacer = strings.NewReplacer("...", ".", ",..", ",")
	dramaReplacer   = strings.NewReplacer(".", "...", "!", "!...")
	emphasisPattern = regexp.MustCompile(`(?i)\b(important|key|main|primary|essential)\b`)
)

// RewriteForDelivery 返回按语速、强调与停顿提示改写的旁白副本
func RewriteForDelivery(script, hints string) string {
	h := strings.ToLower(strings.TrimSpace(hints))
	if h == "" {
		return script
	}
	text := script
	switch {
	case strings.Contains(h, "slow"):
		text = pauseReplacer.Replace(text)
	case strings.Contains(h, "fast"):
		text = unpauseReplacer.Replace(text)
	}
	if containsAny(h, "emphatic", "emphasis", "strong") {
		text = emphasisPattern.ReplaceAllString(text, "**$1**")
	}
	if containsAny(h, "dramatic", "paused", "suspenseful") {
		text = dramaReplacer.Replace(text)
	}
	return text
}

// NarrationService 旁白合成
type NarrationService struct {
	synth   tts.Synthesizer
	modelID string
	timeout time.Duration
	metrics *utils.APIMetrics
	logger  *utils.Logger
}

// NewNarrationService 创建旁白服务，synth 为空时 Narrate 返回 ErrNarrationUnavailable
func NewNarrationService(synth tts.Synthesizer, modelID string, timeout time.Duration) *NarrationService {
	return &NarrationService{
		synth:   synth,
		modelID: modelID,
		timeout: timeout,
		metrics: utils.NewAPIMetrics(),
		logger:  utils.GetLogger(),
	}
}

// Available 是否配置了语音合成
func (s *NarrationService) Available() bool {
	return s != nil && s.synth != nil
}

func (s *NarrationService) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}

// Narrate 合成旁白音频
// 音色元数据查询失败只影响初始参数，不会中断合成
func (s *NarrationService) Narrate(ctx context.Context, script, voiceID, hints string) ([]byte, error) {
	if !s.Available() {
		return nil, ErrNarrationUnavailable
	}

	lookupCtx, cancel := s.withTimeout(ctx)
	voice, err := s.synth.GetVoice(lookupCtx, voiceID)
	cancel()
	if err != nil {
		s.logger.Debug("Voice metadata unavailable, using default settings", map[string]interface{}{
			"voice_id": voiceID,
			"error":    err.Error(),
		})
		voice = nil
	}

	settings := TuneVoice(DefaultVoiceSettings(voice), hints)
	text := RewriteForDelivery(script, hints)

	synthCtx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	audio, err := s.synth.Synthesize(synthCtx, tts.SpeechRequest{
		Text:     text,
		VoiceID:  voiceID,
		ModelID:  s.modelID,
		Settings: settings,
	})
	s.metrics.RecordVendorCall(s.synth.GetName(), "synthesize", err, time.Since(start))
	if err != nil {
		return nil, err
	}
	if len(audio) == 0 {
		return nil, errors.New("语音合成返回了空音频")
	}
	return audio, nil
}

// ListVoices 列出供应商音色
func (s *NarrationService) ListVoices(ctx context.Context) ([]models.Voice, error) {
	if !s.Available() {
		return nil, ErrNarrationUnavailable
	}
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	voices, err := s.synth.ListVoices(ctx)
	s.metrics.RecordVendorCall(s.synth.GetName(), "voices", err, time.Since(start))
	return voices, err
}
