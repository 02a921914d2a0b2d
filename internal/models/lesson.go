// internal/models/lesson.go
package models

import (
	"errors"
	"fmt"
	"strings"
)

// LessonContent 表示一次生成请求产出的完整课程
type LessonContent struct {
	Title         string  `json:"title"`                   // 展示标题
	Slides        []Slide `json:"slides"`                  // 有序幻灯片
	Script        string  `json:"script"`                  // 整课旁白，分数已转为读法
	VoiceDelivery string  `json:"voiceDelivery,omitempty"` // 语气/语速提示词
	Source        string  `json:"source,omitempty"`        // llm 或 fallback
}

// Slide 表示一个教学单元
type Slide struct {
	Title       string `json:"title"`
	Content     string `json:"content"`
	ImagePrompt string `json:"imagePrompt"`
}

// 课程内容来源
const (
	ContentSourceLLM      = "llm"
	ContentSourceFallback = "fallback"
)

// Validate 检查课程内容是否完整
func (l *LessonContent) Validate() error {
	if l == nil {
		return errors.New("lesson content is nil")
	}
	if len(l.Slides) == 0 {
		return errors.New("lesson has no slides")
	}
	for i, s := range l.Slides {
		if strings.TrimSpace(s.Title) == "" || strings.TrimSpace(s.Content) == "" || strings.TrimSpace(s.ImagePrompt) == "" {
			return &SlideError{Index: i}
		}
	}
	return nil
}

// SlideError 标识不完整的幻灯片
type SlideError struct {
	Index int
}

func (e *SlideError) Error() string {
	return fmt.Sprintf("slide %d is missing title, content or imagePrompt", e.Index)
}
