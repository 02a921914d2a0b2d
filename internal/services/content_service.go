// internal/services/content_service.go
package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/utils"
)

const lessonSystemPrompt = `You are an expert teacher creating focused lecture slides for children. Create concise, visual lecture content that teaches specific concepts step-by-step.

Structure your response as a JSON object with the following format:
{
  "title": "Lecture Title",
  "slides": [
    {
      "title": "Slide Title",
      "content": "Focused teaching content for this specific slide - what the teacher is explaining",
      "imagePrompt": "Detailed visual description of what should be shown on this slide to support the teaching"
    }
  ],
  "script": "Complete teaching script where the teacher actually explains each slide's content in detail"
}

LECTURE GUIDELINES:
- Create 2-3 focused slides maximum (keep it short!)
- Each slide should teach ONE specific concept and build on the previous one
- Content should be what the teacher is explaining, not summaries
- Images should visually support what's being taught
- NEVER include references to "tell me in chat", "ask me questions", or similar interactive elements
- The script should be a complete lecture that works without user interaction
- Use engaging, educational language appropriate for children
- Keep scripts SHORT - maximum 300-400 characters total
- Each slide explanation should be 1-2 sentences maximum

CUSTOM INSTRUCTIONS INTEGRATION (PRIORITY):
- Custom instructions are the PRIMARY driver of content generation
- Use custom themes, characters, examples, and teaching approaches throughout
- Custom instructions can override default topic content - follow them completely
- If custom instructions specify length, style, or approach, prioritize those over defaults`

// BuildLessonPrompts 构造系统提示词与用户提示词
func BuildLessonPrompts(topicName, customPrompt string) (string, string) {
	var b strings.Builder
	fmt.Fprintf(&b, "Topic: %s\n", topicName)
	if strings.TrimSpace(customPrompt) != "" {
		fmt.Fprintf(&b, "\nCUSTOM INSTRUCTIONS (MANDATORY): %s\n\n", customPrompt)
		b.WriteString("These custom instructions should COMPLETELY DRIVE the lesson creation: structure, teaching style, examples, visual descriptions, narration and overall theme. ")
		b.WriteString("They take priority over any default topic content.\n")
	}
	b.WriteString("\nCreate an engaging, educational lesson that uses specific examples and visual demonstrations. Make it fun for children to learn.")
	return lessonSystemPrompt, b.String()
}

// LessonParseError 模型回复无法解析为课程
type LessonParseError struct {
	Reason string
	Err    error
}

func (e *LessonParseError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("无法解析课程内容: %s: %v", e.Reason, e.Err)
	}
	return "无法解析课程内容: " + e.Reason
}

func (e *LessonParseError) Unwrap() error {
	return e.Err
}

// ParseLessonContent 从模型回复中提取第一个 JSON 对象并校验
// 旁白中的分数转换为读法，幻灯片文字保持不变
func ParseLessonContent(text string) (*models.LessonContent, error) {
	raw, ok := extractJSONObject(text)
	if !ok {
		return nil, &LessonParseError{Reason: "回复中没有 JSON 对象"}
	}

	var lesson models.LessonContent
	if err := json.Unmarshal([]byte(raw), &lesson); err != nil {
		// 平衡括号截取失败时退回到首个 { 至最后一个 }
		greedy, gok := greedyJSONObject(text)
		if !gok || greedy == raw || json.Unmarshal([]byte(greedy), &lesson) != nil {
			return nil, &LessonParseError{Reason: "JSON 格式错误", Err: err}
		}
	}

	if err := lesson.Validate(); err != nil {
		return nil, &LessonParseError{Reason: "课程结构不完整", Err: err}
	}

	if strings.TrimSpace(lesson.Script) == "" {
		lesson.Script = joinContent(lesson.Slides)
	}
	lesson.Script = FractionsToWords(lesson.Script)
	lesson.Source = models.ContentSourceLLM
	return &lesson, nil
}

func greedyJSONObject(text string) (string, bool) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start == -1 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// ContentService 课程内容生成：先请求文本模型，失败时使用后备模板
type ContentService struct {
	text     TextGenerator
	fallback *FallbackGenerator
	timeout  time.Duration
	metrics  *utils.APIMetrics
	logger   *utils.Logger
}

// NewContentService 创建内容服务，text 为空时只使用后备模板
func NewContentService(text TextGenerator, fallback *FallbackGenerator, timeout time.Duration) *ContentService {
	if fallback == nil {
		fallback = NewFallbackGenerator()
	}
	return &ContentService{
		text:     text,
		fallback: fallback,
		timeout:  timeout,
		metrics:  utils.NewAPIMetrics(),
		logger:   utils.GetLogger(),
	}
}

// Generate 返回课程内容，不会返回错误
func (s *ContentService) Generate(ctx context.Context, topicName, customPrompt, topicID string) *models.LessonContent {
	lesson, err := s.requestLesson(ctx, topicName, customPrompt)
	if err != nil {
		s.metrics.RecordFallback("content")
		fields := map[string]interface{}{"topic": topicName, "topic_id": topicID, "error": err.Error()}
		var parseErr *LessonParseError
		switch {
		case errors.Is(err, ErrLLMNotReady):
			s.logger.Debug("Text generation not configured, using fallback lesson", fields)
		case errors.As(err, &parseErr):
			s.logger.Warn("Unparseable lesson from text model, using fallback lesson", fields)
		default:
			s.logger.Warn("Text generation failed, using fallback lesson", fields)
		}
		return s.fallback.Generate(topicName, customPrompt, topicID)
	}

	if strings.TrimSpace(lesson.Title) == "" {
		lesson.Title = topicName
	}
	lesson.VoiceDelivery = ExtractVoiceDelivery(customPrompt)
	return lesson
}

func (s *ContentService) requestLesson(ctx context.Context, topicName, customPrompt string) (*models.LessonContent, error) {
	if s.text == nil {
		return nil, ErrLLMNotReady
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	system, user := BuildLessonPrompts(topicName, customPrompt)
	reply, err := s.text.GenerateText(ctx, system, user)
	if err != nil {
		return nil, err
	}
	return ParseLessonContent(reply)
}
