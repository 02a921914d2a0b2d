// internal/services/fakes_test.go
package services

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/Corphon/LessonReel/internal/llm"
	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/tts"
)

// fakeText 固定回复的文本生成器，reply 为空时按提示词回调
type fakeText struct {
	reply   string
	err     error
	replyFn func(system, prompt string) (string, error)
	calls   atomic.Int32
}

func (f *fakeText) GenerateText(ctx context.Context, system, prompt string) (string, error) {
	f.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if f.replyFn != nil {
		return f.replyFn(system, prompt)
	}
	return f.reply, f.err
}

// fakeProvider 记录请求的 llm.Provider
type fakeProvider struct {
	mu       sync.Mutex
	text     string
	err      error
	requests []llm.CompletionRequest
}

func (p *fakeProvider) Initialize(map[string]string) error { return nil }
func (p *fakeProvider) GetName() string                    { return "fake" }
func (p *fakeProvider) GetSupportedModels() []string       { return []string{"fake-model"} }
func (p *fakeProvider) FetchAvailableModels(context.Context) error {
	return nil
}
func (p *fakeProvider) SetCustomModels([]string) {}

func (p *fakeProvider) CompleteText(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.requests = append(p.requests, req)
	if p.err != nil {
		return nil, p.err
	}
	return &llm.CompletionResponse{Text: p.text, TokensUsed: 42, ModelName: req.Model}, nil
}

func (p *fakeProvider) calls() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.requests)
}

// fakeSynth 可配置失败的语音合成器
type fakeSynth struct {
	mu        sync.Mutex
	voice     *models.Voice
	voiceErr  error
	audio     []byte
	err       error
	requests  []tts.SpeechRequest
	voiceList []models.Voice
}

func (s *fakeSynth) Initialize(map[string]string) error { return nil }
func (s *fakeSynth) GetName() string                    { return "fake" }

func (s *fakeSynth) ListVoices(context.Context) ([]models.Voice, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.voiceList, nil
}

func (s *fakeSynth) GetVoice(_ context.Context, voiceID string) (*models.Voice, error) {
	if s.voiceErr != nil {
		return nil, s.voiceErr
	}
	if s.voice == nil {
		return &models.Voice{VoiceID: voiceID, Category: "premade"}, nil
	}
	return s.voice, nil
}

func (s *fakeSynth) Synthesize(_ context.Context, req tts.SpeechRequest) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if s.err != nil {
		return nil, s.err
	}
	return s.audio, nil
}

func (s *fakeSynth) lastRequest() tts.SpeechRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.requests) == 0 {
		return tts.SpeechRequest{}
	}
	return s.requests[len(s.requests)-1]
}
