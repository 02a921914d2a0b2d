// internal/services/fallback_content.go
package services

import (
	"fmt"
	"strings"

	"github.com/Corphon/LessonReel/internal/models"
)

// lessonDeck 预写的课程模板
type lessonDeck struct {
	title  string
	slides []models.Slide
	script string
}

// fallbackTopic 主题关键词/ID 与各长度档位的模板
// 缺少的档位：short 回退到 normal，long/very_long 回退到 normal
type fallbackTopic struct {
	topicID  string
	keywords []string
	decks    map[LessonLength]lessonDeck
}

func (t fallbackTopic) matches(topicLower, topicID string) bool {
	return (topicID != "" && topicID == t.topicID) || containsAny(topicLower, t.keywords...)
}

func (t fallbackTopic) deckFor(length LessonLength) lessonDeck {
	if d, ok := t.decks[length]; ok {
		return d
	}
	return t.decks[LengthNormal]
}

var (
	fractionWhole = models.Slide{
		Title:       "Whole Pizza",
		Content:     "This is a whole pizza! When we have the entire pizza, we say we have 1 whole pizza.",
		ImagePrompt: "A complete round pizza showing it as one whole",
	}
	fractionHalf = models.Slide{
		Title:       "Half Pizza",
		Content:     "When we cut the pizza in half, we get 2 equal pieces. Each piece is one half of the pizza!",
		ImagePrompt: "A pizza cut in half showing two equal pieces",
	}
	fractionQuarter = models.Slide{
		Title:       "Quarter Pizza",
		Content:     "When we cut the pizza into 4 equal pieces, each piece is one quarter of the pizza!",
		ImagePrompt: "A pizza cut into 4 equal quarters",
	}

	fractionWhatIs = models.Slide{
		Title:       "What is a Fraction?",
		Content:     "A fraction shows parts of a whole. Look at this pizza - it's one whole pizza. When we cut it into equal pieces, each piece is a fraction.",
		ImagePrompt: "A whole pizza with the number 1/1 written next to it",
	}
	fractionCutHalf = models.Slide{
		Title:       "Cutting in Half",
		Content:     "Now I'm cutting the pizza in half. Each piece is 1/2. The 2 means 2 total pieces, the 1 means we have 1 piece.",
		ImagePrompt: "A pizza cut in half with one slice highlighted and labeled '1/2'",
	}
	fractionCutQuarters = models.Slide{
		Title:       "Cutting in Quarters",
		Content:     "Now I'm cutting it into 4 equal pieces. Each piece is 1/4. The 4 means 4 total pieces, the 1 means we have 1 piece.",
		ImagePrompt: "A pizza cut into 4 quarters with one slice highlighted and labeled '1/4'",
	}
	fractionCutEighths = models.Slide{
		Title:       "Cutting in Eighths",
		Content:     "Now I'm cutting it into 8 equal pieces. Each piece is 1/8. The 8 means 8 total pieces, the 1 means we have 1 piece.",
		ImagePrompt: "A pizza cut into 8 eighths with one slice highlighted and labeled '1/8'",
	}
	fractionCompare = models.Slide{
		Title:       "Comparing Fractions",
		Content:     "1/2 is bigger than 1/4, and 1/4 is bigger than 1/8. The bigger the bottom number, the smaller each piece becomes.",
		ImagePrompt: "Three pizzas side by side to compare 1/2, 1/4, and 1/8 by size",
	}

	fractionIntroScript = "Let's learn about fractions! A fraction shows parts of a whole. Look at this pizza - it's one whole pizza, which we write as 1/1. " +
		"Now I'm cutting it in half. Each piece is 1/2 - that means 1 out of 2 pieces. The 2 at the bottom tells us there are 2 total pieces, and the 1 at the top tells us we have 1 piece. " +
		"Now I'm cutting the pizza into 4 equal pieces. Each piece is 1/4 - that's 1 out of 4 pieces. " +
		"Now I'm cutting it into 8 equal pieces. Each piece is 1/8 - that's 1 out of 8 pieces. " +
		"Notice that 1/2 is bigger than 1/4, and 1/4 is bigger than 1/8. The bigger the bottom number, the smaller each piece becomes. "
)

// fallbackTopics 按匹配优先级排列
var fallbackTopics = []fallbackTopic{
	{
		topicID:  "topic-4",
		keywords: []string{"fraction"},
		decks: map[LessonLength]lessonDeck{
			LengthShort: {
				title:  "🍕 Learning Fractions with Pizza",
				slides: []models.Slide{fractionWhole, fractionHalf},
				script: "Let's learn about fractions with pizza! This is a whole pizza. When we have the entire pizza, we say we have 1 whole pizza. " +
					"When we cut the pizza in half, we get 2 equal pieces. Each piece is one half of the pizza!",
			},
			LengthNormal: {
				title:  "🍕 Learning Fractions with Pizza",
				slides: []models.Slide{fractionWhole, fractionHalf, fractionQuarter},
				script: "Let's learn about fractions with pizza! This is a whole pizza. When we have the entire pizza, we say we have 1 whole pizza. " +
					"When we cut the pizza in half, we get 2 equal pieces. Each piece is one half of the pizza! " +
					"When we cut the pizza into 4 equal pieces, each piece is one quarter of the pizza!",
			},
			LengthLong: {
				title:  "🍕 Learning Fractions",
				slides: []models.Slide{fractionWhatIs, fractionCutHalf, fractionCutQuarters, fractionCutEighths, fractionCompare},
				script: fractionIntroScript + "That's how fractions work!",
			},
			LengthVeryLong: {
				title: "🍕 Learning Fractions",
				slides: []models.Slide{
					fractionWhatIs, fractionCutHalf, fractionCutQuarters, fractionCutEighths, fractionCompare,
					{
						Title:       "Adding Fractions",
						Content:     "When we add 1/4 + 1/4, we get 2/4, which is the same as 1/2. Fractions with the same bottom number are easy to add.",
						ImagePrompt: "Two 1/4 pizza slices being combined to make 1/2",
					},
					{
						Title:       "Practice with Fractions",
						Content:     "Let's practice! If I have 3/4 of a pizza and eat 1/4, how much is left? 3/4 - 1/4 = 2/4 = 1/2.",
						ImagePrompt: "A 3/4 pizza with 1/4 being removed, showing 2/4 remaining",
					},
				},
				script: fractionIntroScript +
					"When we add 1/4 + 1/4, we get 2/4, which is the same as 1/2. Fractions with the same bottom number are easy to add. " +
					"Let's practice! If I have 3/4 of a pizza and eat 1/4, how much is left? 3/4 - 1/4 = 2/4 = 1/2. That's how fractions work!",
			},
		},
	},
	{
		topicID:  "topic-1",
		keywords: []string{"alphabet"},
		decks: map[LessonLength]lessonDeck{
			LengthNormal: {
				title: "🔤 Learning the Alphabet",
				slides: []models.Slide{
					{Title: "Letter A", Content: "This is the letter A. A says 'ah' like in apple. Let's trace the letter A together.", ImagePrompt: "Large letter A with an apple next to it"},
					{Title: "Letter B", Content: "This is the letter B. B says 'buh' like in ball. Let's trace the letter B together.", ImagePrompt: "Large letter B with a ball next to it"},
					{Title: "Letter C", Content: "This is the letter C. C says 'kuh' like in cat. Let's trace the letter C together.", ImagePrompt: "Large letter C with a cat next to it"},
				},
				script: "Let's learn the alphabet! This is the letter A. A says 'ah' like in apple. Let's trace the letter A together - start at the top, go down, then across. " +
					"This is the letter B. B says 'buh' like in ball. Let's trace the letter B together - start at the top, go down, then make two bumps. " +
					"This is the letter C. C says 'kuh' like in cat. Let's trace the letter C together - start at the top and make a curve.",
			},
		},
	},
	{
		topicID:  "topic-2",
		keywords: []string{"counting"},
		decks: map[LessonLength]lessonDeck{
			LengthNormal: {
				title: "🔢 Learning to Count",
				slides: []models.Slide{
					{Title: "Number 1", Content: "This is the number 1. Let's count 1 apple. One apple.", ImagePrompt: "Large number 1 with one apple next to it"},
					{Title: "Number 2", Content: "This is the number 2. Let's count 2 apples. One, two apples.", ImagePrompt: "Large number 2 with two apples next to it"},
					{Title: "Number 3", Content: "This is the number 3. Let's count 3 apples. One, two, three apples.", ImagePrompt: "Large number 3 with three apples next to it"},
				},
				script: "Let's learn to count! This is the number 1. Let's count 1 apple. One apple. This is the number 2. Let's count 2 apples. One, two apples. " +
					"This is the number 3. Let's count 3 apples. One, two, three apples. Great job counting!",
			},
		},
	},
	{
		topicID:  "topic-3",
		keywords: []string{"solar system"},
		decks: map[LessonLength]lessonDeck{
			LengthNormal: {
				title: "🌍 Our Solar System",
				slides: []models.Slide{
					{Title: "The Sun", Content: "This is the Sun. The Sun is a star. It gives us light and heat. All the planets orbit around the Sun.", ImagePrompt: "The Sun in the center with rays of light coming out"},
					{Title: "Planet Earth", Content: "This is Earth, our planet. Earth is where we live. It has land and water. Earth orbits around the Sun.", ImagePrompt: "Planet Earth showing blue oceans and green land"},
					{Title: "The Moon", Content: "This is the Moon. The Moon orbits around Earth. It changes shape each night. Sometimes it's full, sometimes it's a crescent.", ImagePrompt: "The Moon in different phases - full moon and crescent moon"},
				},
				script: "Let's explore our solar system! This is the Sun. The Sun is a star that gives us light and heat. All the planets orbit around the Sun. " +
					"This is Earth, our planet. Earth is where we live. It has land and water. Earth orbits around the Sun. " +
					"This is the Moon. The Moon orbits around Earth. It changes shape each night. Sometimes it's full, sometimes it's a crescent.",
			},
		},
	},
	twoTierTopic("topic-5", "shape", "🔷 Learning Shapes", "Let's learn about shapes! ",
		models.Slide{Title: "Circle", Content: "This is a circle. A circle is round like a ball. It has no corners or edges.", ImagePrompt: "A large circle with the word 'Circle' written below it"},
		models.Slide{Title: "Square", Content: "This is a square. A square has 4 equal sides and 4 corners. It looks like a box.", ImagePrompt: "A large square with the word 'Square' written below it"},
		models.Slide{Title: "Triangle", Content: "This is a triangle. A triangle has 3 sides and 3 corners. It looks like a slice of pizza.", ImagePrompt: "A large triangle with the word 'Triangle' written below it"},
	),
	twoTierTopic("topic-6", "weather", "🌤️ Learning About Weather", "Let's learn about weather! ",
		models.Slide{Title: "Sunny Day", Content: "This is a sunny day. The sun is shining bright and it's warm outside. Perfect for playing!", ImagePrompt: "A bright sun with rays in a blue sky"},
		models.Slide{Title: "Rainy Day", Content: "This is a rainy day. Rain falls from the clouds and helps plants grow. Don't forget your umbrella!", ImagePrompt: "Clouds with rain falling down"},
		models.Slide{Title: "Snowy Day", Content: "This is a snowy day. Snow falls from the sky and covers everything in white. Time to build a snowman!", ImagePrompt: "Snowflakes falling with snow on the ground"},
	),
	twoTierTopic("topic-7", "animal", "🐾 Learning About Animals", "Let's learn about animals! ",
		models.Slide{Title: "Farm Animals", Content: "These are farm animals. Cows say 'moo', pigs say 'oink', and chickens say 'cluck cluck'!", ImagePrompt: "A farm scene with a cow, pig, and chicken"},
		models.Slide{Title: "Wild Animals", Content: "These are wild animals. Lions roar, elephants trumpet, and monkeys chatter in the jungle!", ImagePrompt: "A jungle scene with a lion, elephant, and monkey"},
		models.Slide{Title: "Ocean Animals", Content: "These are ocean animals. Fish swim, whales sing, and dolphins jump and play!", ImagePrompt: "An ocean scene with fish, a whale, and dolphins"},
	),
	twoTierTopic("topic-8", "time", "⏰ Learning About Time", "Let's learn about time! ",
		models.Slide{Title: "Clock Face", Content: "This is a clock. It has numbers 1 through 12 and two hands - a short hand and a long hand.", ImagePrompt: "A simple clock face showing 12 numbers and two hands"},
		models.Slide{Title: "Telling Time", Content: "The short hand points to the hour. The long hand points to the minutes. What time is it?", ImagePrompt: "A clock showing 3 o'clock with the short hand on 3 and long hand on 12"},
		models.Slide{Title: "Different Times", Content: "We wake up in the morning, eat lunch at noon, and go to bed at night. Time helps us plan our day!", ImagePrompt: "Three clocks showing morning, noon, and night times"},
	),
	twoTierTopic("topic-9", "money", "💰 Learning About Money", "Let's learn about money! ",
		models.Slide{Title: "Coins", Content: "These are coins. Pennies are worth 1 cent, nickels are worth 5 cents, and dimes are worth 10 cents.", ImagePrompt: "Different coins - penny, nickel, and dime with their values"},
		models.Slide{Title: "Dollar Bills", Content: "These are dollar bills. A one dollar bill is worth 100 cents. We use money to buy things we need.", ImagePrompt: "A one dollar bill and a five dollar bill"},
		models.Slide{Title: "Counting Money", Content: "We can count money by adding up the value of coins and bills. 5 pennies plus 1 nickel equals 10 cents!", ImagePrompt: "5 pennies and 1 nickel showing they equal 10 cents"},
	),
}

// twoTierTopic 构造 short 两页、其余三页的主题，旁白由开场白加各页内容组成
func twoTierTopic(topicID, keyword, title, opener string, first, second, third models.Slide) fallbackTopic {
	script := func(slides ...models.Slide) string {
		parts := make([]string, 0, len(slides))
		for _, s := range slides {
			parts = append(parts, s.Content)
		}
		return opener + strings.Join(parts, " ")
	}
	return fallbackTopic{
		topicID:  topicID,
		keywords: []string{keyword},
		decks: map[LessonLength]lessonDeck{
			LengthShort:  {title: title, slides: []models.Slide{first, second}, script: script(first, second)},
			LengthNormal: {title: title, slides: []models.Slide{first, second, third}, script: script(first, second, third)},
		},
	}
}

// FallbackGenerator 不依赖外部服务的确定性课程生成器
type FallbackGenerator struct{}

// NewFallbackGenerator 创建后备内容生成器
func NewFallbackGenerator() *FallbackGenerator {
	return &FallbackGenerator{}
}

// Generate 根据主题与自定义指令生成课程
func (g *FallbackGenerator) Generate(topic, customPrompt, topicID string) *models.LessonContent {
	length := LessonLengthFor(customPrompt)
	topicLower := strings.ToLower(topic)

	var deck lessonDeck
	switch t, ok := findFallbackTopic(topicLower, topicID); {
	case ok:
		deck = t.deckFor(length)
	case isCustomTopic(topic, customPrompt, topicID):
		deck = customDeck(customTopicName(topic, customPrompt), length)
	default:
		deck = genericDeck(topic)
	}

	lesson := &models.LessonContent{
		Title:         deck.title,
		Slides:        make([]models.Slide, len(deck.slides)),
		Script:        deck.script,
		VoiceDelivery: ExtractVoiceDelivery(customPrompt),
		Source:        models.ContentSourceFallback,
	}
	copy(lesson.Slides, deck.slides)

	// 标题不参与主题改写
	if strings.TrimSpace(customPrompt) != "" {
		for i := range lesson.Slides {
			lesson.Slides[i].Content = ApplyTheme(lesson.Slides[i].Content, customPrompt)
			lesson.Slides[i].ImagePrompt = ApplyTheme(lesson.Slides[i].ImagePrompt, customPrompt)
		}
		lesson.Script = ApplyTheme(lesson.Script, customPrompt)
	}
	lesson.Script = FractionsToWords(lesson.Script)
	return lesson
}

func findFallbackTopic(topicLower, topicID string) (fallbackTopic, bool) {
	for _, t := range fallbackTopics {
		if t.matches(topicLower, topicID) {
			return t, true
		}
	}
	return fallbackTopic{}, false
}

func isCustomTopic(topic, customPrompt, topicID string) bool {
	if topicID == models.CustomTopicID || strings.Contains(strings.ToLower(topic), "custom") {
		return true
	}
	return topic != "" && strings.Contains(strings.ToLower(customPrompt), strings.ToLower(topic))
}

// customTopicName 取 " - " 之前的部分作为主题名
func customTopicName(topic, customPrompt string) string {
	name, _, _ := strings.Cut(customPrompt, " - ")
	if name = strings.TrimSpace(name); name != "" {
		return name
	}
	return topic
}

func customDeck(name string, length LessonLength) lessonDeck {
	title := fmt.Sprintf("🎓 Learning About %s", name)
	if length == LengthShort {
		return lessonDeck{
			title: title,
			slides: []models.Slide{
				{
					Title:       fmt.Sprintf("What is %s?", name),
					Content:     fmt.Sprintf("Let's learn about %s! This is a fascinating topic that we'll explore together.", name),
					ImagePrompt: fmt.Sprintf("Educational illustration about %s, colorful and engaging for children", name),
				},
				{
					Title:       fmt.Sprintf("Key Concepts of %s", name),
					Content:     fmt.Sprintf("Here are the main ideas about %s that will help us understand it better.", name),
					ImagePrompt: fmt.Sprintf("Visual breakdown of key concepts related to %s", name),
				},
			},
			script: fmt.Sprintf("Let's learn about %s! This is a fascinating topic that we'll explore together. Here are the main ideas about %s that will help us understand it better.", name, name),
		}
	}

	slides := []models.Slide{
		{
			Title:       fmt.Sprintf("Introduction to %s", name),
			Content:     fmt.Sprintf("Welcome to our lesson about %s! This is an exciting topic that we'll explore together.", name),
			ImagePrompt: fmt.Sprintf("Educational illustration about %s, colorful and engaging for children", name),
		},
		{
			Title:       fmt.Sprintf("What is %s?", name),
			Content:     fmt.Sprintf("%s is a fascinating subject that we encounter in our daily lives. Let's discover what makes it special and important!", name),
			ImagePrompt: fmt.Sprintf("Clear visual explanation of %s with examples and illustrations", name),
		},
		{
			Title:       "Key Concepts",
			Content:     fmt.Sprintf("Let's explore the main ideas and concepts that help us understand %s better. Each concept builds our knowledge step by step!", name),
			ImagePrompt: fmt.Sprintf("Visual breakdown of key concepts related to %s", name),
		},
	}
	return lessonDeck{title: title, slides: slides, script: joinContent(slides)}
}

func genericDeck(topic string) lessonDeck {
	return lessonDeck{
		title: fmt.Sprintf("🎓 Learning About %s", topic),
		slides: []models.Slide{
			{
				Title:       fmt.Sprintf("Welcome to %s!", topic),
				Content:     fmt.Sprintf("Hello there! Today we're going to explore the amazing world of %s. Get ready for an exciting learning adventure!", topic),
				ImagePrompt: fmt.Sprintf("Educational illustration about %s, colorful and engaging for children", topic),
			},
			{
				Title:       fmt.Sprintf("What is %s?", topic),
				Content:     fmt.Sprintf("%s is a fascinating subject that we encounter in our daily lives. Let's discover what makes it special and important!", topic),
				ImagePrompt: fmt.Sprintf("Clear visual explanation of %s with examples and illustrations", topic),
			},
			{
				Title:       "Key Concepts",
				Content:     fmt.Sprintf("Let's explore the main ideas and concepts that help us understand %s better. Each concept builds our knowledge step by step!", topic),
				ImagePrompt: fmt.Sprintf("Visual breakdown of key concepts related to %s", topic),
			},
			{
				Title:       "Real World Examples",
				Content:     fmt.Sprintf("Here are some examples from real life that show how %s works in the world around us. Can you think of other examples?", topic),
				ImagePrompt: fmt.Sprintf("Real-world examples and applications of %s in everyday life", topic),
			},
			{
				Title:       "Why It Matters",
				Content:     fmt.Sprintf("Understanding %s helps us in many ways! It makes us smarter and helps us solve problems in our daily lives.", topic),
				ImagePrompt: fmt.Sprintf("Illustration showing the importance and benefits of learning about %s", topic),
			},
			{
				Title:       "You Did It!",
				Content:     fmt.Sprintf("Congratulations! You've learned about %s and are now ready to use this knowledge in your everyday life. Keep learning and exploring!", topic),
				ImagePrompt: fmt.Sprintf("Celebration scene with children learning about %s", topic),
			},
		},
		script: fmt.Sprintf("Welcome to our exciting lesson about %s! Today we'll explore what %s is, learn about its key concepts, see real-world examples, and understand why it's important. "+
			"By the end of our journey, you'll have a great understanding of %s and how it applies to your life. Let's start learning!", topic, topic, topic),
	}
}

func joinContent(slides []models.Slide) string {
	parts := make([]string, 0, len(slides))
	for _, s := range slides {
		parts = append(parts, s.Content)
	}
	return strings.Join(parts, " ")
}
