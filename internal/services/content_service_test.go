// internal/services/content_service_test.go
package services

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/LessonReel/internal/models"
)

const llmLessonReply = "Sure! Here is your lesson:\n```json\n" + `{
  "title": "Halves {and} Quarters",
  "slides": [
    {"title": "Half", "content": "This is 1/2 of a cake.", "imagePrompt": "A cake cut in half"},
    {"title": "Quarter", "content": "This is 1/4 of a cake.", "imagePrompt": "A cake cut into quarters"}
  ],
  "script": "We eat 1/2 and then 3/4 of the cake."
}` + "\n```\nHope it helps {kids}!"

func TestParseLessonContent(t *testing.T) {
	lesson, err := ParseLessonContent(llmLessonReply)
	require.NoError(t, err)

	assert.Equal(t, "Halves {and} Quarters", lesson.Title)
	require.Len(t, lesson.Slides, 2)
	assert.Equal(t, "We eat one half and then three quarters of the cake.", lesson.Script)
	// 幻灯片文字中的分数保持原样
	assert.Equal(t, "This is 1/2 of a cake.", lesson.Slides[0].Content)
	assert.Equal(t, models.ContentSourceLLM, lesson.Source)
}

func TestParseLessonContentErrors(t *testing.T) {
	tests := []struct {
		name  string
		reply string
	}{
		{"没有JSON", "I cannot help with that."},
		{"JSON损坏", `{"title": "x", "slides": [`},
		{"缺少幻灯片", `{"title": "x", "slides": [], "script": "y"}`},
		{"幻灯片字段为空", `{"title": "x", "slides": [{"title": "a", "content": "", "imagePrompt": "c"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseLessonContent(tt.reply)
			var parseErr *LessonParseError
			assert.ErrorAs(t, err, &parseErr)
		})
	}
}

func TestParseLessonContentFillsEmptyScript(t *testing.T) {
	lesson, err := ParseLessonContent(`{"title":"t","slides":[{"title":"a","content":"Cut 1/8.","imagePrompt":"p"}]}`)
	require.NoError(t, err)
	assert.Equal(t, "Cut one eighth.", lesson.Script)
}

func TestBuildLessonPrompts(t *testing.T) {
	system, user := BuildLessonPrompts("Fractions", "")
	assert.Contains(t, system, `"imagePrompt"`)
	assert.Contains(t, user, "Topic: Fractions")
	assert.NotContains(t, user, "CUSTOM INSTRUCTIONS")

	_, user = BuildLessonPrompts("Dinosaurs", "Dinosaurs - pirate themed")
	assert.Contains(t, user, "CUSTOM INSTRUCTIONS (MANDATORY): Dinosaurs - pirate themed")
}

func TestContentServiceUsesModelReply(t *testing.T) {
	text := &fakeText{reply: llmLessonReply}
	svc := NewContentService(text, nil, time.Second)

	lesson := svc.Generate(context.Background(), "Fractions", "excited please", "topic-4")
	assert.Equal(t, models.ContentSourceLLM, lesson.Source)
	assert.Equal(t, "excited", lesson.VoiceDelivery)
	assert.EqualValues(t, 1, text.calls.Load())
}

func TestContentServiceFallsBack(t *testing.T) {
	tests := []struct {
		name string
		text TextGenerator
	}{
		{"未配置模型", nil},
		{"服务未就绪", NewEmptyLLMService()},
		{"调用失败", &fakeText{err: errors.New("503 unavailable")}},
		{"回复无法解析", &fakeText{reply: "no json here"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewContentService(tt.text, nil, time.Second)
			lesson := svc.Generate(context.Background(), "Fractions", "", "topic-4")
			require.NoError(t, lesson.Validate())
			assert.Equal(t, models.ContentSourceFallback, lesson.Source)
			assert.Len(t, lesson.Slides, 3)
		})
	}
}

func TestContentServiceTimeoutFallsBack(t *testing.T) {
	slow := &fakeText{replyFn: func(string, string) (string, error) {
		time.Sleep(50 * time.Millisecond)
		return "", context.DeadlineExceeded
	}}
	svc := NewContentService(slow, nil, 10*time.Millisecond)

	lesson := svc.Generate(context.Background(), "Volcanoes", "", "topic-x")
	assert.Equal(t, models.ContentSourceFallback, lesson.Source)
	assert.True(t, strings.HasPrefix(lesson.Slides[0].Title, "Welcome to Volcanoes"))
}

func TestContentServiceTitleDefaultsToTopic(t *testing.T) {
	text := &fakeText{reply: `{"slides":[{"title":"a","content":"b","imagePrompt":"c"}],"script":"s"}`}
	lesson := NewContentService(text, nil, time.Second).Generate(context.Background(), "Weather", "", "topic-6")
	assert.Equal(t, "Weather", lesson.Title)
}
