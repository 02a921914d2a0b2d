// internal/services/theming.go
package services

import (
	"regexp"
	"strings"
)

// phraseRule 不区分大小写的短语替换
type phraseRule struct {
	pattern *regexp.Regexp
	replace string
}

func phrase(expr, replace string) phraseRule {
	return phraseRule{pattern: regexp.MustCompile(`(?i)` + regexp.QuoteMeta(expr)), replace: replace}
}

// ThemeRule 自定义指令中的主题关键词及其改写规则
type ThemeRule struct {
	Name     string
	Keywords []string
	phrases  []phraseRule
}

// Matches 提示词（小写）是否命中该主题
func (r ThemeRule) Matches(lowerPrompt string) bool {
	return containsAny(lowerPrompt, r.Keywords...)
}

// Apply 按顺序执行替换
func (r ThemeRule) Apply(text string) string {
	for _, p := range r.phrases {
		text = p.pattern.ReplaceAllLiteralString(text, p.replace)
	}
	return text
}

// themeRules 按优先级排列，第一个命中的主题生效
var themeRules = []ThemeRule{
	{
		Name:     "space",
		Keywords: []string{"space", "astronaut", "galaxy"},
		phrases: []phraseRule{
			phrase("pizza", "space pizza"),
			phrase("apple", "space apple"),
			phrase("Let's learn", "Let's blast off and learn"),
			phrase("Today we're", "Today we're launching into space to"),
			phrase("Welcome to", "Welcome to the cosmic journey of"),
		},
	},
	{
		Name:     "pirate",
		Keywords: []string{"pirate", "treasure", "ship"},
		phrases: []phraseRule{
			phrase("Let's learn", "Ahoy matey! Let's learn"),
			phrase("apple", "treasure"),
			phrase("pizza", "treasure map"),
			phrase("Today we're", "Today we're sailing the seven seas to"),
			phrase("Welcome to", "Welcome aboard our pirate ship to learn about"),
		},
	},
	{
		Name:     "royal",
		Keywords: []string{"princess", "castle", "royal"},
		phrases: []phraseRule{
			phrase("Let's learn", "Your majesty, let's learn"),
			phrase("apple", "royal apple"),
			phrase("pizza", "royal pizza"),
			phrase("Today we're", "Today in our royal kingdom, we're"),
			phrase("Welcome to", "Welcome to the royal court to learn about"),
		},
	},
	{
		Name:     "dinosaur",
		Keywords: []string{"dinosaur", "prehistoric", "jurassic"},
		phrases: []phraseRule{
			phrase("Let's learn", "Roar! Let's learn"),
			phrase("apple", "dino apple"),
			phrase("pizza", "dino pizza"),
			phrase("Today we're", "Today we're traveling back in time to"),
			phrase("Welcome to", "Welcome to the prehistoric world of"),
		},
	},
	{
		Name:     "superhero",
		Keywords: []string{"superhero", "super", "hero"},
		phrases: []phraseRule{
			phrase("Let's learn", "Up, up, and away! Let's learn"),
			phrase("apple", "super apple"),
			phrase("pizza", "super pizza"),
			phrase("Today we're", "Today we're using our superpowers to"),
			phrase("Welcome to", "Welcome to superhero academy to learn about"),
		},
	},
	{
		Name:     "magic",
		Keywords: []string{"magic", "wizard", "spell"},
		phrases: []phraseRule{
			phrase("Let's learn", "Abracadabra! Let's learn"),
			phrase("Today we're", "Today we're casting magical spells to"),
			phrase("Welcome to", "Welcome to the magical world of"),
		},
	},
	{
		Name:     "adventure",
		Keywords: []string{"adventure", "explorer", "journey"},
		phrases: []phraseRule{
			phrase("Let's learn", "Adventure awaits! Let's learn"),
			phrase("Today we're", "Today we're embarking on an exciting adventure to"),
			phrase("Welcome to", "Welcome to our grand adventure learning about"),
		},
	},
}

// MatchTheme 返回提示词命中的第一个主题
func MatchTheme(customPrompt string) (ThemeRule, bool) {
	lower := strings.ToLower(customPrompt)
	if strings.TrimSpace(lower) == "" {
		return ThemeRule{}, false
	}
	for _, rule := range themeRules {
		if rule.Matches(lower) {
			return rule, true
		}
	}
	return ThemeRule{}, false
}

// ApplyTheme 用命中的主题改写文本，未命中时原样返回
func ApplyTheme(text, customPrompt string) string {
	rule, ok := MatchTheme(customPrompt)
	if !ok {
		return text
	}
	return rule.Apply(text)
}

// fractionWords 旁白中分数的读法
var fractionWords = map[string]string{
	"1/2": "one half",
	"1/3": "one third",
	"1/4": "one quarter",
	"1/5": "one fifth",
	"1/6": "one sixth",
	"1/7": "one seventh",
	"1/8": "one eighth",
	"2/3": "two thirds",
	"2/4": "two quarters",
	"3/4": "three quarters",
	"2/5": "two fifths",
	"3/5": "three fifths",
	"4/5": "four fifths",
	"2/6": "two sixths",
	"3/6": "three sixths",
	"4/6": "four sixths",
	"5/6": "five sixths",
	"2/8": "two eighths",
	"3/8": "three eighths",
	"4/8": "four eighths",
	"5/8": "five eighths",
	"6/8": "six eighths",
	"7/8": "seven eighths",
}

var fractionPattern = regexp.MustCompile(`\b\d/\d\b`)

// FractionsToWords 将表中的分数字面量替换为读法，其余保持不变
func FractionsToWords(text string) string {
	return fractionPattern.ReplaceAllStringFunc(text, func(m string) string {
		if w, ok := fractionWords[m]; ok {
			return w
		}
		return m
	})
}

// deliveryKeywords 语气与语速词表
var deliveryKeywords = []string{
	"excited", "energetic", "enthusiastic", "calm", "gentle", "soft",
	"dramatic", "theatrical", "expressive", "monotone", "flat", "boring",
	"slow", "slower", "fast", "faster", "emphatic", "emphasis", "strong",
	"paused", "suspenseful", "unique", "creative", "different", "consistent",
	"same", "familiar", "moderate", "balanced",
}

// ExtractVoiceDelivery 保留包含语气词的单词，空格连接
func ExtractVoiceDelivery(customPrompt string) string {
	if strings.TrimSpace(customPrompt) == "" {
		return ""
	}
	var kept []string
	for _, word := range strings.Fields(strings.ToLower(customPrompt)) {
		if containsAny(word, deliveryKeywords...) {
			kept = append(kept, word)
		}
	}
	return strings.Join(kept, " ")
}

// LessonLength 课程长度档位
type LessonLength string

const (
	LengthShort    LessonLength = "short"
	LengthNormal   LessonLength = "normal"
	LengthLong     LessonLength = "long"
	LengthVeryLong LessonLength = "very_long"
)

var lengthRules = []struct {
	keywords []string
	length   LessonLength
}{
	{[]string{"longer", "more slides", "extended"}, LengthLong},
	{[]string{"shorter", "brief", "quick"}, LengthShort},
	{[]string{"very long", "detailed", "comprehensive"}, LengthVeryLong},
}

// LessonLengthFor 从提示词推断长度档位
func LessonLengthFor(customPrompt string) LessonLength {
	lower := strings.ToLower(customPrompt)
	for _, r := range lengthRules {
		if containsAny(lower, r.keywords...) {
			return r.length
		}
	}
	return LengthNormal
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
