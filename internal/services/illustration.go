// internal/services/illustration.go
package services

import (
	"fmt"
	"html"
	"strings"
)

// 插图画布尺寸
const illustrationSize = 1024

// illustrationRule 插图选择规则，按顺序匹配，第一个命中的生效
type illustrationRule struct {
	name   string
	match  func(prompt, description string) bool
	render func(prompt string) string
}

func promptHas(keywords ...string) func(prompt, description string) bool {
	return func(prompt, _ string) bool {
		return containsAny(prompt, keywords...)
	}
}

var illustrationRules = []illustrationRule{
	{
		name: "pizza",
		match: func(prompt, description string) bool {
			if containsAny(prompt, "fraction", "pizza") {
				return true
			}
			combined := prompt + " " + description
			return strings.Contains(combined, "pizza") && strings.Contains(combined, "fraction")
		},
		render: PizzaFractionSVG,
	},
	{name: "alphabet", match: promptHas("alphabet", "letter"), render: alphabetSVG},
	{name: "counting", match: promptHas("counting", "number"), render: countingSVG},
	{name: "solar", match: promptHas("solar system", "sun", "earth", "moon"), render: solarSystemSVG},
	{name: "shapes", match: promptHas("shape", "circle", "square", "triangle"), render: shapesSVG},
	{name: "weather", match: promptHas("weather", "rain", "sunny", "cloud"), render: weatherSVG},
	{name: "animals", match: promptHas("animal", "dog", "cat", "bird"), render: animalsSVG},
	{name: "time", match: promptHas("time", "clock", "hour", "minute"), render: timeSVG},
	{name: "money", match: promptHas("money", "coin", "dollar", "cent"), render: moneySVG},
	{name: "math", match: promptHas("math"), render: mathSVG},
	{name: "science", match: promptHas("science", "experiment"), render: scienceSVG},
}

// Illustrate 根据提示词与可选的模型描述生成 1024x1024 的 SVG 插图
func Illustrate(prompt, description string) string {
	p := strings.ToLower(prompt)
	d := strings.ToLower(description)
	for _, rule := range illustrationRules {
		if rule.match(p, d) {
			return rule.render(prompt)
		}
	}
	return genericSVG(prompt)
}

// IllustrationKind 返回命中的插图类型名称
func IllustrationKind(prompt, description string) string {
	p := strings.ToLower(prompt)
	d := strings.ToLower(description)
	for _, rule := range illustrationRules {
		if rule.match(p, d) {
			return rule.name
		}
	}
	return "generic"
}

// svgDocument 渐变背景的画布
func svgDocument(from, to, defs, body string) string {
	var b strings.Builder
	fmt.Fprintf(&b, `<svg width="%d" height="%d" xmlns="http://www.w3.org/2000/svg">`, illustrationSize, illustrationSize)
	b.WriteString("\n<defs>\n")
	b.WriteString(`<linearGradient id="bg" x1="0%" y1="0%" x2="100%" y2="100%">`)
	fmt.Fprintf(&b, `<stop offset="0%%" style="stop-color:%s;stop-opacity:1" />`, from)
	fmt.Fprintf(&b, `<stop offset="100%%" style="stop-color:%s;stop-opacity:1" />`, to)
	b.WriteString("</linearGradient>\n")
	b.WriteString(defs)
	b.WriteString("</defs>\n")
	b.WriteString(`<rect width="100%" height="100%" fill="url(#bg)"/>`)
	b.WriteString("\n")
	b.WriteString(body)
	b.WriteString("</svg>\n")
	return b.String()
}

// svgText 居中文字，内容会做 XML 转义
func svgText(x, y, size int, fill, text string, bold bool) string {
	weight := ""
	if bold {
		weight = ` font-weight="bold"`
	}
	return fmt.Sprintf(`<text x="%d" y="%d" font-family="Arial, sans-serif" font-size="%d" fill="%s" text-anchor="middle"%s>%s</text>`+"\n",
		x, y, size, fill, weight, html.EscapeString(text))
}

// pizzaCut 披萨分数的切分方式
type pizzaCut struct {
	label     string
	match     []string
	slices    string
	highlight string
}

// pizzaCuts 优先级：whole > half > quarter > eighth，compare 单独处理
var pizzaCuts = []pizzaCut{
	{
		label:  "1/1",
		match:  []string{"whole", "1/1"},
		slices: `<circle cx="512" cy="512" r="300" fill="#ffd93d" stroke="#ff6b6b" stroke-width="8"/>`,
	},
	{
		label:     "1/2",
		match:     []string{"half", "1/2"},
		slices:    `<path d="M512,200 L512,824 M200,512 L824,512" stroke="#ff6b6b" stroke-width="8" fill="none"/>`,
		highlight: `<path d="M200,200 L824,200 L824,512 L200,512 Z" fill="#ff6b6b" opacity="0.3"/>`,
	},
	{
		label:     "1/4",
		match:     []string{"quarter", "1/4"},
		slices:    `<path d="M512,200 L512,824 M200,512 L824,512 M200,200 L824,824 M824,200 L200,824" stroke="#ff6b6b" stroke-width="6" fill="none"/>`,
		highlight: `<path d="M200,200 L512,200 L512,512 L200,512 Z" fill="#ff6b6b" opacity="0.3"/>`,
	},
	{
		label:     "1/8",
		match:     []string{"eighth", "1/8"},
		slices:    `<path d="M512,200 L512,824 M200,512 L824,512 M200,200 L824,824 M824,200 L200,824 M512,200 L200,512 M512,200 L824,512 M512,824 L200,512 M512,824 L824,512" stroke="#ff6b6b" stroke-width="4" fill="none"/>`,
		highlight: `<path d="M200,200 L512,200 L512,356 L200,356 Z" fill="#ff6b6b" opacity="0.3"/>`,
	},
}

// PizzaFraction 返回提示词对应的分数标签："1/1" "1/2" "1/4" "1/8" "compare" 或空
func PizzaFraction(prompt string) string {
	p := strings.ToLower(prompt)
	for _, cut := range pizzaCuts {
		if containsAny(p, cut.match...) {
			return cut.label
		}
	}
	if strings.Contains(p, "compare") {
		return "compare"
	}
	return ""
}

// PizzaFractionSVG 披萨分数图，高亮一块对应的扇区
func PizzaFractionSVG(prompt string) string {
	label := PizzaFraction(prompt)
	if label == "compare" {
		return pizzaCompareSVG()
	}

	var slices, highlight string
	display := "🍕"
	for _, cut := range pizzaCuts {
		if cut.label == label {
			slices, highlight, display = cut.slices, cut.highlight, cut.label
			break
		}
	}
	if slices == "" {
		slices = pizzaCuts[0].slices
	}

	var body strings.Builder
	body.WriteString(`<circle cx="512" cy="512" r="300" fill="#ffd93d" stroke="#ff6b6b" stroke-width="8"/>` + "\n")
	body.WriteString(slices + "\n")
	if highlight != "" {
		body.WriteString(highlight + "\n")
	}
	for _, c := range [][2]int{{400, 400}, {624, 400}, {400, 624}, {624, 624}, {512, 512}} {
		fmt.Fprintf(&body, `<circle cx="%d" cy="%d" r="12" fill="#ff6b6b"/>`+"\n", c[0], c[1])
	}
	body.WriteString(svgText(512, 200, 72, "white", display, true))
	body.WriteString(svgText(512, 850, 28, "white", "Pizza Fractions", false))

	arrow := `<marker id="arrowhead" markerWidth="10" markerHeight="7" refX="9" refY="3.5" orient="auto"><polygon points="0 0, 10 3.5, 0 7" fill="white"/></marker>` + "\n"
	return svgDocument("#4facfe", "#00f2fe", arrow, body.String())
}

// pizzaCompareSVG 左右两张披萨对比 1/2 与 1/4
func pizzaCompareSVG() string {
	var body strings.Builder
	body.WriteString(`<circle cx="300" cy="400" r="200" fill="#ffd93d" stroke="#ff6b6b" stroke-width="6"/>` + "\n")
	body.WriteString(`<path d="M300,200 L300,600 M200,400 L400,400" stroke="#ff6b6b" stroke-width="6" fill="none"/>` + "\n")
	body.WriteString(`<path d="M200,200 L400,200 L400,400 L200,400 Z" fill="#ff6b6b" opacity="0.3"/>` + "\n")
	body.WriteString(svgText(300, 150, 36, "white", "1/2", true))

	body.WriteString(`<circle cx="724" cy="400" r="200" fill="#ffd93d" stroke="#ff6b6b" stroke-width="6"/>` + "\n")
	body.WriteString(`<path d="M724,200 L724,600 M624,400 L824,400 M624,200 L824,600 M824,200 L624,600" stroke="#ff6b6b" stroke-width="4" fill="none"/>` + "\n")
	body.WriteString(`<path d="M624,200 L724,200 L724,400 L624,400 Z" fill="#ff6b6b" opacity="0.3"/>` + "\n")
	body.WriteString(svgText(724, 150, 36, "white", "1/4", true))

	body.WriteString(`<path d="M550,400 L650,400" stroke="white" stroke-width="8" fill="none" marker-end="url(#arrowhead)"/>` + "\n")
	body.WriteString(svgText(600, 380, 24, "white", "1/2 > 1/4", false))

	arrow := `<marker id="arrowhead" markerWidth="10" markerHeight="7" refX="9" refY="3.5" orient="auto"><polygon points="0 0, 10 3.5, 0 7" fill="white"/></marker>` + "\n"
	return svgDocument("#4facfe", "#00f2fe", arrow, body.String())
}

func alphabetSVG(prompt string) string {
	p := strings.ToLower(prompt)
	letter, object := "A", "🍎"
	switch {
	case containsAny(p, "letter a", "apple"):
	case containsAny(p, "letter b", "ball"):
		letter, object = "B", "⚽"
	case containsAny(p, "letter c", "cat"):
		letter, object = "C", "🐱"
	}
	body := svgText(512, 400, 200, "white", letter, true) +
		svgText(512, 600, 120, "white", object, false) +
		svgText(512, 750, 36, "white", "Letter "+letter, false)
	return svgDocument("#4facfe", "#00f2fe", "", body)
}

func countingSVG(prompt string) string {
	p := strings.ToLower(prompt)
	count := 1
	switch {
	case containsAny(p, "number 1", "one"):
	case containsAny(p, "number 2", "two"):
		count = 2
	case containsAny(p, "number 3", "three"):
		count = 3
	}
	number := fmt.Sprint(count)

	var body strings.Builder
	body.WriteString(svgText(512, 400, 200, "white", number, true))
	for i := 0; i < count; i++ {
		body.WriteString(svgText(300+i*150, 600, 80, "white", "🍎", false))
	}
	body.WriteString(svgText(512, 750, 36, "white", "Number "+number, false))
	return svgDocument("#ff9a9e", "#fecfef", "", body.String())
}

func solarSystemSVG(prompt string) string {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "sun"):
		defs := `<radialGradient id="sun" cx="50%" cy="50%" r="50%"><stop offset="0%" style="stop-color:#ffff00;stop-opacity:1" /><stop offset="100%" style="stop-color:#ff8c00;stop-opacity:1" /></radialGradient>` + "\n"
		body := `<circle cx="512" cy="512" r="150" fill="url(#sun)"/>` + "\n" +
			`<path d="M362,512 L462,512 M562,512 L662,512 M512,362 L512,462 M512,562 L512,662" stroke="#ffff00" stroke-width="8" fill="none"/>` + "\n" +
			svgText(512, 750, 48, "white", "The Sun", false)
		return svgDocument("#000428", "#004e92", defs, body)
	case strings.Contains(p, "earth"):
		body := `<circle cx="512" cy="512" r="200" fill="#4a90e2"/>` + "\n" +
			`<path d="M312,400 Q512,350 712,400 Q512,450 312,400" fill="#228b22"/>` + "\n" +
			`<path d="M312,500 Q512,450 712,500 Q512,550 312,500" fill="#228b22"/>` + "\n" +
			svgText(512, 750, 48, "white", "Planet Earth", false)
		return svgDocument("#000428", "#004e92", "", body)
	case strings.Contains(p, "moon"):
		body := `<circle cx="400" cy="400" r="120" fill="#c0c0c0"/>` + "\n" +
			`<circle cx="450" cy="350" r="100" fill="#000428"/>` + "\n" +
			`<circle cx="600" cy="600" r="80" fill="#c0c0c0"/>` + "\n" +
			`<circle cx="650" cy="550" r="60" fill="#000428"/>` + "\n" +
			svgText(512, 750, 48, "white", "The Moon", false)
		return svgDocument("#000428", "#004e92", "", body)
	}
	return genericSVG(prompt)
}

func shapesSVG(string) string {
	body := `<circle cx="200" cy="300" r="80" fill="#ffd93d" stroke="white" stroke-width="4"/>` + "\n" +
		svgText(200, 420, 32, "white", "Circle", false) +
		`<rect x="400" y="220" width="160" height="160" fill="#6bcf7f" stroke="white" stroke-width="4"/>` + "\n" +
		svgText(480, 420, 32, "white", "Square", false) +
		`<path d="M600,220 L680,380 L520,380 Z" fill="#ff8a80" stroke="white" stroke-width="4"/>` + "\n" +
		svgText(600, 420, 32, "white", "Triangle", false) +
		`<rect x="200" y="500" width="200" height="120" fill="#a8e6cf" stroke="white" stroke-width="4"/>` + "\n" +
		svgText(300, 700, 32, "white", "Rectangle", false) +
		`<path d="M500,500 L520,560 L580,560 L530,590 L550,650 L500,620 L450,650 L470,590 L420,560 L480,560 Z" fill="#ffd93d" stroke="white" stroke-width="4"/>` + "\n" +
		svgText(500, 700, 32, "white", "Star", false) +
		svgText(512, 800, 48, "white", "Learning Shapes!", false)
	return svgDocument("#ff6b6b", "#4ecdc4", "", body)
}

func weatherSVG(string) string {
	var body strings.Builder
	body.WriteString(`<circle cx="200" cy="200" r="60" fill="#ffd700"/>` + "\n")
	for _, l := range [][4]int{{200, 100, 200, 80}, {200, 320, 200, 340}, {100, 200, 80, 200}, {320, 200, 340, 200}} {
		fmt.Fprintf(&body, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#ffd700" stroke-width="4"/>`+"\n", l[0], l[1], l[2], l[3])
	}
	body.WriteString(svgText(200, 300, 28, "white", "Sunny", false))
	body.WriteString(`<ellipse cx="500" cy="200" rx="80" ry="40" fill="white"/>` + "\n")
	body.WriteString(`<ellipse cx="480" cy="180" rx="50" ry="30" fill="white"/>` + "\n")
	body.WriteString(`<ellipse cx="520" cy="180" rx="50" ry="30" fill="white"/>` + "\n")
	body.WriteString(svgText(500, 280, 28, "white", "Cloudy", false))
	for _, x := range []int{200, 250, 300} {
		fmt.Fprintf(&body, `<path d="M%d,500 Q%d,520 %d,540 Q%d,520 %d,500" fill="#4a90e2" stroke="#4a90e2" stroke-width="2"/>`+"\n", x, x+20, x, x-20, x)
	}
	body.WriteString(svgText(250, 580, 28, "white", "Rainy", false))
	for _, y := range []int{500, 520, 540} {
		body.WriteString(svgText(500, y, 60, "white", "❄", false))
	}
	body.WriteString(svgText(500, 580, 28, "white", "Snowy", false))
	body.WriteString(svgText(512, 700, 48, "white", "Weather Types", false))
	return svgDocument("#87ceeb", "#98d8e8", "", body.String())
}

func animalsSVG(string) string {
	body := `<ellipse cx="200" cy="300" rx="60" ry="40" fill="#8b4513"/>` + "\n" +
		`<circle cx="180" cy="280" r="8" fill="black"/><circle cx="220" cy="280" r="8" fill="black"/>` + "\n" +
		`<ellipse cx="200" cy="300" rx="15" ry="8" fill="black"/>` + "\n" +
		svgText(200, 380, 24, "white", "🐕 Dog", false) +
		`<ellipse cx="500" cy="300" rx="50" ry="35" fill="#ffa500"/>` + "\n" +
		`<circle cx="485" cy="285" r="6" fill="black"/><circle cx="515" cy="285" r="6" fill="black"/>` + "\n" +
		`<ellipse cx="500" cy="300" rx="12" ry="6" fill="black"/>` + "\n" +
		svgText(500, 380, 24, "white", "🐱 Cat", false) +
		`<ellipse cx="800" cy="300" rx="40" ry="25" fill="#4169e1"/>` + "\n" +
		`<circle cx="790" cy="290" r="4" fill="black"/>` + "\n" +
		`<path d="M760,300 Q740,280 720,300" fill="orange" stroke="orange" stroke-width="3"/>` + "\n" +
		svgText(800, 380, 24, "white", "🐦 Bird", false) +
		`<ellipse cx="200" cy="600" rx="50" ry="30" fill="#ff69b4"/>` + "\n" +
		`<path d="M150,600 Q130,580 110,600 Q130,620 150,600" fill="#ff69b4"/>` + "\n" +
		`<circle cx="190" cy="590" r="3" fill="black"/>` + "\n" +
		svgText(200, 680, 24, "white", "🐠 Fish", false) +
		`<ellipse cx="500" cy="600" rx="70" ry="45" fill="#c0c0c0"/>` + "\n" +
		`<path d="M430,600 Q410,580 390,600 Q410,620 430,600" fill="#c0c0c0"/>` + "\n" +
		`<circle cx="485" cy="585" r="4" fill="black"/>` + "\n" +
		svgText(500, 680, 24, "white", "🐘 Elephant", false) +
		`<ellipse cx="800" cy="600" rx="60" ry="40" fill="#daa520"/>` + "\n" +
		`<circle cx="785" cy="585" r="5" fill="black"/><circle cx="815" cy="585" r="5" fill="black"/>` + "\n" +
		`<ellipse cx="800" cy="600" rx="15" ry="8" fill="black"/>` + "\n" +
		svgText(800, 680, 24, "white", "🦁 Lion", false) +
		svgText(512, 800, 48, "white", "Amazing Animals!", false)
	return svgDocument("#ff9a9e", "#fecfef", "", body)
}

// clockFace 表盘与时针分针，hour/minute 为指针端点
type clockFace struct {
	cx, cy       int
	hourX, hourY int
	minX, minY   int
	label        string
}

func timeSVG(string) string {
	clocks := []clockFace{
		{200, 300, 200, 240, 240, 300, "3:00"},
		{500, 300, 500, 360, 500, 280, "6:00"},
		{800, 300, 800, 240, 760, 300, "9:00"},
		{200, 600, 200, 540, 200, 580, "12:00"},
	}
	var body strings.Builder
	for _, c := range clocks {
		fmt.Fprintf(&body, `<circle cx="%d" cy="%d" r="80" fill="white" stroke="#333" stroke-width="4"/>`+"\n", c.cx, c.cy)
		fmt.Fprintf(&body, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#333" stroke-width="6"/>`+"\n", c.cx, c.cy, c.hourX, c.hourY)
		fmt.Fprintf(&body, `<line x1="%d" y1="%d" x2="%d" y2="%d" stroke="#333" stroke-width="4"/>`+"\n", c.cx, c.cy, c.minX, c.minY)
		body.WriteString(svgText(c.cx, c.cy+120, 32, "white", c.label, false))
	}
	body.WriteString(`<rect x="400" y="520" width="200" height="80" fill="#000" stroke="#333" stroke-width="4"/>` + "\n")
	body.WriteString(svgText(500, 570, 36, "#00ff00", "2:30", false))
	body.WriteString(svgText(500, 720, 32, "white", "Digital Time", false))
	body.WriteString(svgText(512, 800, 48, "white", "Learning Time!", false))
	return svgDocument("#667eea", "#764ba2", "", body.String())
}

// coin 硬币图例
type coin struct {
	cx, r        int
	fill, stroke string
	ink          string
	value, name  string
	caption      string
	valueSize    int
	nameSize     int
}

func moneySVG(string) string {
	coins := []coin{
		{200, 50, "#cd7f32", "#8b4513", "white", "1¢", "Penny", "1 cent", 24, 16},
		{400, 55, "#c0c0c0", "#808080", "black", "5¢", "Nickel", "5 cents", 24, 16},
		{600, 45, "#c0c0c0", "#808080", "black", "10¢", "Dime", "10 cents", 20, 14},
		{800, 60, "#c0c0c0", "#808080", "black", "25¢", "Quarter", "25 cents", 24, 16},
	}
	var body strings.Builder
	for _, c := range coins {
		fmt.Fprintf(&body, `<circle cx="%d" cy="300" r="%d" fill="%s" stroke="%s" stroke-width="3"/>`+"\n", c.cx, c.r, c.fill, c.stroke)
		body.WriteString(svgText(c.cx, 290, c.valueSize, c.ink, c.value, false))
		body.WriteString(svgText(c.cx, 310, c.nameSize, c.ink, c.name, false))
		body.WriteString(svgText(c.cx, 380, 20, "white", c.caption, false))
	}
	body.WriteString(`<rect x="300" y="500" width="120" height="60" fill="#90ee90" stroke="#228b22" stroke-width="2"/>` + "\n")
	body.WriteString(svgText(360, 520, 20, "black", "$1", false))
	body.WriteString(svgText(360, 540, 12, "black", "ONE DOLLAR", false))
	body.WriteString(svgText(300, 600, 20, "white", "1 dollar = 100 cents", false))
	body.WriteString(`<rect x="500" y="500" width="120" height="60" fill="#ffb6c1" stroke="#ff69b4" stroke-width="2"/>` + "\n")
	body.WriteString(svgText(560, 520, 20, "black", "$5", false))
	body.WriteString(svgText(560, 540, 12, "black", "FIVE DOLLARS", false))
	body.WriteString(svgText(500, 600, 20, "white", "5 dollars = 500 cents", false))
	body.WriteString(svgText(512, 700, 48, "white", "Learning Money!", false))
	return svgDocument("#ffd700", "#ffed4e", "", body.String())
}

func mathSVG(string) string {
	body := svgText(512, 300, 120, "white", "1", true) +
		svgText(512, 450, 80, "white", "+", false) +
		svgText(512, 600, 120, "white", "2", true) +
		svgText(512, 750, 80, "white", "=", false) +
		svgText(512, 900, 120, "white", "3", true)
	return svgDocument("#667eea", "#764ba2", "", body)
}

func scienceSVG(string) string {
	body := `<circle cx="512" cy="400" r="80" fill="#ff6b6b"/>` + "\n" +
		`<circle cx="400" cy="600" r="60" fill="#4facfe"/>` + "\n" +
		`<circle cx="624" cy="600" r="60" fill="#6bcf7f"/>` + "\n" +
		svgText(512, 800, 32, "white", "Science Discovery", false)
	return svgDocument("#ff9a9e", "#fecfef", "", body)
}

// genericSVG 通用插图，附带截断到 50 个字符的提示词
func genericSVG(prompt string) string {
	body := `<circle cx="512" cy="400" r="100" fill="white" opacity="0.3"/>` + "\n" +
		svgText(512, 500, 48, "white", "📚", true) +
		svgText(512, 700, 24, "white", "Educational Content", false) +
		svgText(512, 750, 18, "white", truncateRunes(prompt, 50)+"...", false)
	return svgDocument("#667eea", "#764ba2", "", body)
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
