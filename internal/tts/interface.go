// internal/tts/interface.go
package tts

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/Corphon/LessonReel/internal/models"
)

// ErrUnknownProvider 未注册的语音提供者
var ErrUnknownProvider = errors.New("未知的语音合成提供者")

// SpeechRequest 一次语音合成请求
type SpeechRequest struct {
	Text     string
	VoiceID  string
	ModelID  string
	Settings models.VoiceSettings
}

// Synthesizer 语音合成提供者接口
type Synthesizer interface {
	Initialize(config map[string]string) error
	GetName() string

	// 音色列表
	ListVoices(ctx context.Context) ([]models.Voice, error)

	// 单个音色元数据
	GetVoice(ctx context.Context, voiceID string) (*models.Voice, error)

	// 合成并返回原始音频字节
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
}

// Factory 语音提供者工厂
type Factory func() Synthesizer

var (
	factories   = make(map[string]Factory)
	factoriesMu sync.RWMutex
)

// Register 注册语音提供者
func Register(name string, factory Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

// GetSynthesizer 创建并初始化语音提供者
func GetSynthesizer(name string, config map[string]string) (Synthesizer, error) {
	factoriesMu.RLock()
	factory, ok := factories[name]
	factoriesMu.RUnlock()
	if !ok {
		return nil, errors.Join(ErrUnknownProvider, errors.New(name))
	}
	s := factory()
	if err := s.Initialize(config); err != nil {
		return nil, err
	}
	return s, nil
}

// ListSynthesizers 返回已注册的语音提供者
func ListSynthesizers() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
