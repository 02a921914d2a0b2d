// internal/services/illustration_test.go
package services

import (
	"encoding/xml"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPizzaFractionPrecedence(t *testing.T) {
	tests := []struct {
		prompt string
		want   string
	}{
		{"A complete round pizza showing it as one whole", "1/1"},
		{"A whole pizza cut in half", "1/1"},
		{"A pizza cut in half showing two equal pieces", "1/2"},
		{"Three pizzas side by side to compare 1/2, 1/4, and 1/8", "1/2"},
		{"A pizza cut into 4 equal quarters", "1/4"},
		{"A pizza cut into 8 eighths", "1/8"},
		{"Compare two pizzas", "compare"},
		{"Pepperoni pizza", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, PizzaFraction(tt.prompt), tt.prompt)
	}
}

func TestPizzaFractionSVG(t *testing.T) {
	half := PizzaFractionSVG("pizza cut in half")
	assert.Contains(t, half, `M200,200 L824,200 L824,512 L200,512 Z`)
	assert.Equal(t, 1, strings.Count(half, `opacity="0.3"`))
	assert.Contains(t, half, "Pizza Fractions")

	whole := PizzaFractionSVG("one whole pizza")
	assert.NotContains(t, whole, `opacity="0.3"`)

	compare := PizzaFractionSVG("compare the pizzas")
	assert.Contains(t, compare, "1/2 &gt; 1/4")
	assert.Equal(t, 2, strings.Count(compare, `opacity="0.3"`))

	plain := PizzaFractionSVG("pepperoni pizza")
	assert.Contains(t, plain, "🍕")
}

func TestIllustrationKind(t *testing.T) {
	tests := []struct {
		name        string
		prompt      string
		description string
		want        string
	}{
		{"分数", "Fractions on a number line", "", "pizza"},
		{"描述中同时出现披萨与分数", "A round food", "A pizza showing a fraction", "pizza"},
		{"描述只出现披萨", "A round food", "A pizza", "generic"},
		{"字母", "Large letter B with a ball next to it", "", "alphabet"},
		{"数数", "Large number 3 with three apples", "", "counting"},
		{"太阳系", "Planet Earth showing blue oceans", "", "solar"},
		{"形状", "A large triangle", "", "shapes"},
		{"天气", "Clouds with rain falling down", "", "weather"},
		{"动物", "A farm scene with a cow, pig, and chicken", "", "generic"},
		{"时钟", "A simple clock face", "", "time"},
		{"钱币", "Different coins", "", "money"},
		{"数学", "Simple math facts", "", "math"},
		{"科学", "A science experiment", "", "science"},
		{"通用", "Volcano erupting", "", "generic"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IllustrationKind(tt.prompt, tt.description))
		})
	}
}

func TestIllustrationsAreWellFormed(t *testing.T) {
	prompts := []string{
		"pizza half", "pizza compare", "letter c cat", "number two", "the sun",
		"the moon", "earth", "circle", "weather", "animal", "clock", "money",
		"math", "science", `Volcanoes & "lava" <hot>`,
	}
	for _, p := range prompts {
		svg := Illustrate(p, "")
		assert.True(t, strings.HasPrefix(svg, `<svg width="1024" height="1024"`), p)
		dec := xml.NewDecoder(strings.NewReader(svg))
		for {
			_, err := dec.Token()
			if err != nil {
				assert.Equal(t, "EOF", err.Error(), p)
				break
			}
		}
	}
}

func TestGenericSVGTruncatesPrompt(t *testing.T) {
	prompt := strings.Repeat("é", 60)
	svg := genericSVG(prompt)
	assert.Contains(t, svg, strings.Repeat("é", 50)+"...")
	assert.NotContains(t, svg, strings.Repeat("é", 51))
}
