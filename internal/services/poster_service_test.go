// internal/services/poster_service_test.go
package services

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPosterRender(t *testing.T) {
	svc, err := NewPosterService()
	require.NoError(t, err)

	data, err := svc.Render("🎓 Learning About Dinosaurs", "Teacher Ava", 3)
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, posterWidth, img.Bounds().Dx())
	assert.Equal(t, posterHeight, img.Bounds().Dy())

	// 左上角是渐变起点色
	r, g, b, _ := img.At(1, 1).RGBA()
	assert.InDelta(t, 0x66, r>>8, 6)
	assert.InDelta(t, 0x7e, g>>8, 6)
	assert.InDelta(t, 0xea, b>>8, 6)
}

func TestPosterRenderLongAndEmptyTitles(t *testing.T) {
	svc, err := NewPosterService()
	require.NoError(t, err)

	long := strings.Repeat("Fractions and pizza slices ", 6)
	_, err = svc.Render(long, "", 7)
	assert.NoError(t, err)

	_, err = svc.Render("🍕🍕", "Voice", 2)
	assert.NoError(t, err)
}

func TestPrintable(t *testing.T) {
	svc, err := NewPosterService()
	require.NoError(t, err)

	tests := []struct {
		name string
		in   string
		want string
	}{
		{"去掉 emoji", "🎓 Learning About Dinosaurs", "Learning About Dinosaurs"},
		{"中间的 emoji", "Pizza 🍕 Time", "Pizza Time"},
		{"普通文本", "Fractions", "Fractions"},
		{"全部无字形", "🍕🍕", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Printable(svc.bold, tt.in))
		})
	}

	assert.Equal(t, 76.0, titleSize("Short"))
	assert.Equal(t, 46.0, titleSize(strings.Repeat("x", 80)))
}
