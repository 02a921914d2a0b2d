// internal/services/fallback_content_test.go
package services

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/LessonReel/internal/models"
)

var fractionLiteral = regexp.MustCompile(`\b\d/\d\b`)

func TestFallbackFractionsDeck(t *testing.T) {
	g := NewFallbackGenerator()

	lesson := g.Generate("Fractions", "", "topic-4")
	require.NoError(t, lesson.Validate())
	assert.Len(t, lesson.Slides, 3)
	assert.LessOrEqual(t, len(lesson.Script), 400)
	assert.Equal(t, models.ContentSourceFallback, lesson.Source)
	assert.Equal(t, "Whole Pizza", lesson.Slides[0].Title)

	tiers := map[string]int{
		"make it shorter":     2,
		"longer please":       5,
		"very long, detailed": 7,
	}
	for prompt, want := range tiers {
		lesson := g.Generate("Fractions", prompt, "topic-4")
		assert.Len(t, lesson.Slides, want, prompt)
		assert.False(t, fractionLiteral.MatchString(lesson.Script), prompt)
	}
}

func TestFallbackTopicDecks(t *testing.T) {
	g := NewFallbackGenerator()

	tests := []struct {
		name    string
		topic   string
		topicID string
		prompt  string
		slides  int
		first   string
	}{
		{"字母固定三页", "Alphabet", "topic-1", "brief", 3, "Letter A"},
		{"数数", "Counting", "topic-2", "", 3, "Number 1"},
		{"太阳系", "Solar System", "topic-3", "", 3, "The Sun"},
		{"形状短版", "Shapes", "topic-5", "quick", 2, "Circle"},
		{"天气按关键词匹配", "Weather Watch", "", "", 3, "Sunny Day"},
		{"金钱", "Money", "topic-9", "", 3, "Coins"},
		{"通用六页", "Volcanoes", "topic-x", "", 6, "Welcome to Volcanoes!"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lesson := g.Generate(tt.topic, tt.prompt, tt.topicID)
			require.NoError(t, lesson.Validate())
			assert.Len(t, lesson.Slides, tt.slides)
			assert.Equal(t, tt.first, lesson.Slides[0].Title)
		})
	}
}

func TestFallbackCustomPirateLonger(t *testing.T) {
	g := NewFallbackGenerator()
	req := models.GenerateVideoBody{VoiceID: "voice-1", CustomTopic: "Dinosaurs", Prompt: "pirate themed, longer"}.ToRequest()

	lesson := g.Generate(req.CustomTopic, req.CustomPrompt, req.TopicID)
	require.NoError(t, lesson.Validate())
	require.Len(t, lesson.Slides, 3)

	assert.Equal(t, "🎓 Learning About Dinosaurs", lesson.Title)
	assert.Equal(t, "Introduction to Dinosaurs", lesson.Slides[0].Title)
	assert.True(t, strings.HasPrefix(lesson.Slides[0].Content, "Welcome aboard our pirate ship to learn about"))
	assert.Contains(t, lesson.Script, "Welcome aboard our pirate ship")
}

func TestFallbackPirateThemeKeepsTitles(t *testing.T) {
	lesson := NewFallbackGenerator().Generate("Fractions", "pirate", "topic-4")

	assert.Equal(t, "🍕 Learning Fractions with Pizza", lesson.Title)
	assert.Equal(t, "Whole Pizza", lesson.Slides[0].Title)
	for _, s := range lesson.Slides {
		assert.NotContains(t, strings.ToLower(s.Content), "pizza")
		assert.Contains(t, s.Content, "treasure map")
	}
	assert.True(t, strings.HasPrefix(lesson.Script, "Ahoy matey! Let's learn"))
}

func TestFallbackCustomShort(t *testing.T) {
	lesson := NewFallbackGenerator().Generate("Custom Topic", "Volcanoes - quick", models.CustomTopicID)
	require.Len(t, lesson.Slides, 2)
	assert.Equal(t, "What is Volcanoes?", lesson.Slides[0].Title)
	assert.Equal(t, "Key Concepts of Volcanoes", lesson.Slides[1].Title)
}

func TestFallbackVoiceDelivery(t *testing.T) {
	lesson := NewFallbackGenerator().Generate("Counting", "calm and slow", "topic-2")
	assert.Equal(t, "calm slow", lesson.VoiceDelivery)
}
