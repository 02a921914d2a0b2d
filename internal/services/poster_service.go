// internal/services/poster_service.go
package services

import (
	"bytes"
	"fmt"
	"image/color"
	"strings"
	"unicode/utf8"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/goregular"
)

const (
	posterWidth  = 1280
	posterHeight = 720
)

var (
	posterFrom = color.NRGBA{R: 0x66, G: 0x7e, B: 0xea, A: 0xff}
	posterTo   = color.NRGBA{R: 0x76, G: 0x4b, B: 0xa2, A: 0xff}
)

// PosterService 渲染课程封面 PNG
type PosterService struct {
	regular *truetype.Font
	bold    *truetype.Font
}

// NewPosterService 加载内置 Go 字体
func NewPosterService() (*PosterService, error) {
	regular, err := truetype.Parse(goregular.TTF)
	if err != nil {
		return nil, fmt.Errorf("解析常规字体失败: %w", err)
	}
	bold, err := truetype.Parse(gobold.TTF)
	if err != nil {
		return nil, fmt.Errorf("解析粗体字体失败: %w", err)
	}
	return &PosterService{regular: regular, bold: bold}, nil
}

func fontFace(f *truetype.Font, size float64) font.Face {
	return truetype.NewFace(f, &truetype.Options{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

// Printable 去掉字体中没有字形的字符（如 emoji）并合并多余空白
func Printable(f *truetype.Font, text string) string {
	kept := strings.Map(func(r rune) rune {
		if r == ' ' || f.Index(r) != 0 {
			return r
		}
		return ' '
	}, text)
	return strings.Join(strings.Fields(kept), " ")
}

func titleSize(title string) float64 {
	switch n := utf8.RuneCountInString(title); {
	case n <= 28:
		return 76
	case n <= 56:
		return 60
	default:
		return 46
	}
}

// Render 绘制 1280x720 的封面：标题、讲述者与幻灯片数量
func (s *PosterService) Render(title, voiceName string, slideCount int) ([]byte, error) {
	dc := gg.NewContext(posterWidth, posterHeight)

	grad := gg.NewLinearGradient(0, 0, posterWidth, posterHeight)
	grad.AddColorStop(0, posterFrom)
	grad.AddColorStop(1, posterTo)
	dc.SetFillStyle(grad)
	dc.DrawRectangle(0, 0, posterWidth, posterHeight)
	dc.Fill()

	// 内容卡片
	dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 38})
	dc.DrawRoundedRectangle(80, 110, posterWidth-160, posterHeight-220, 32)
	dc.Fill()

	cleanTitle := Printable(s.bold, title)
	if cleanTitle == "" {
		cleanTitle = "Educational Lesson"
	}
	dc.SetColor(color.White)
	dc.SetFontFace(fontFace(s.bold, titleSize(cleanTitle)))
	dc.DrawStringWrapped(cleanTitle, posterWidth/2, posterHeight/2-40, 0.5, 0.5, posterWidth-240, 1.25, gg.AlignCenter)

	subtitle := fmt.Sprintf("%d slides", slideCount)
	if name := Printable(s.regular, voiceName); name != "" {
		subtitle = fmt.Sprintf("Narrated by %s  |  %d slides", name, slideCount)
	}
	dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 220})
	dc.SetFontFace(fontFace(s.regular, 34))
	dc.DrawStringAnchored(subtitle, posterWidth/2, posterHeight-170, 0.5, 0.5)

	dc.SetFontFace(fontFace(s.bold, 26))
	dc.DrawStringAnchored("LessonReel", posterWidth/2, posterHeight-60, 0.5, 0.5)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		return nil, fmt.Errorf("编码封面失败: %w", err)
	}
	return buf.Bytes(), nil
}
