// internal/services/image_service.go
package services

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/storage"
	"github.com/Corphon/LessonReel/internal/utils"
)

const imageDescriptionPrompt = `Create a detailed description for an educational image: %s.
The image should be:
- Colorful and engaging for children
- Visually clear and educational
- Show concrete examples and visual representations
- Suitable for learning and teaching
- High quality and professional looking

Provide a very detailed description that could be used to create this image.`

// ErrInvalidDataURI 非法的 data URI
var ErrInvalidDataURI = errors.New("invalid data uri")

// ImageService 幻灯片图片获取：模型描述 + 关键词插图，落盘去重
type ImageService struct {
	text    TextGenerator
	store   *storage.ImageStore
	client  *resty.Client
	timeout time.Duration
	metrics *utils.APIMetrics
	logger  *utils.Logger
}

// NewImageService 创建图片服务，text 为空时直接生成关键词插图
func NewImageService(text TextGenerator, store *storage.ImageStore, timeout time.Duration) *ImageService {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ImageService{
		text:    text,
		store:   store,
		client:  resty.New().SetTimeout(timeout).SetHeader("User-Agent", "LessonReel/1.0"),
		timeout: timeout,
		metrics: utils.NewAPIMetrics(),
		logger:  utils.GetLogger(),
	}
}

// Generate 返回图片载荷（data URI），描述请求失败时只用提示词生成插图
func (s *ImageService) Generate(ctx context.Context, prompt string) string {
	description, err := s.describe(ctx, prompt)
	if err != nil {
		if !errors.Is(err, ErrLLMNotReady) {
			s.metrics.RecordFallback("image")
			s.logger.Warn("Image description failed, using keyword illustration", map[string]interface{}{
				"prompt": prompt,
				"error":  err.Error(),
			})
		}
		description = ""
	}
	return EncodeDataURI([]byte(Illustrate(prompt, description)), models.ImageFormatSVG)
}

func (s *ImageService) describe(ctx context.Context, prompt string) (string, error) {
	if s.text == nil {
		return "", ErrLLMNotReady
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	return s.text.GenerateText(ctx, "", fmt.Sprintf(imageDescriptionPrompt, prompt))
}

// Acquire 获取并持久化第 index 张幻灯片的图片，返回的缓存项需由调用方 Release
func (s *ImageService) Acquire(ctx context.Context, prompt string, index int) (models.CachedImage, error) {
	return s.Persist(ctx, s.Generate(ctx, prompt), index)
}

// Persist 将 data URI 或远程 URL 载荷写入图片缓存
func (s *ImageService) Persist(ctx context.Context, payload string, index int) (models.CachedImage, error) {
	var (
		data   []byte
		format models.ImageFormat
		err    error
	)
	switch {
	case strings.HasPrefix(payload, "data:"):
		data, format, err = DecodeDataURI(payload)
	case strings.HasPrefix(payload, "http://"), strings.HasPrefix(payload, "https://"):
		data, format, err = s.download(ctx, payload)
	default:
		err = fmt.Errorf("不支持的图片载荷: %.32s", payload)
	}
	if err != nil {
		return models.CachedImage{}, err
	}

	img, written, err := s.store.Put(data, index, format)
	if err != nil {
		return models.CachedImage{}, err
	}
	if !written {
		s.metrics.Collector().IncrementCounter("image_cache_hits")
	}
	return img, nil
}

// download 下载远程图片，未声明为 PNG/SVG 的一律按 JPEG 保存
func (s *ImageService) download(ctx context.Context, url string) ([]byte, models.ImageFormat, error) {
	start := time.Now()
	resp, err := s.client.R().SetContext(ctx).Get(url)
	s.metrics.RecordVendorCall("image_host", "download", err, time.Since(start))
	if err != nil {
		return nil, "", fmt.Errorf("下载图片失败: %w", err)
	}
	if resp.IsError() {
		return nil, "", fmt.Errorf("下载图片失败: HTTP %d", resp.StatusCode())
	}
	body := resp.Body()
	if len(body) == 0 {
		return nil, "", errors.New("下载的图片为空")
	}
	return body, formatFromMIME(resp.Header().Get("Content-Type")), nil
}

// EncodeDataURI 将图片字节编码为 base64 data URI
func EncodeDataURI(data []byte, format models.ImageFormat) string {
	return "data:" + format.MIMEType() + ";base64," + base64.StdEncoding.EncodeToString(data)
}

// DecodeDataURI 解析 base64 data URI，返回原始字节与格式
func DecodeDataURI(uri string) ([]byte, models.ImageFormat, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return nil, "", ErrInvalidDataURI
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return nil, "", ErrInvalidDataURI
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return []byte(payload), formatFromMIME(mime), nil
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidDataURI, err)
	}
	return data, formatFromMIME(mime), nil
}

func formatFromMIME(mime string) models.ImageFormat {
	mime = strings.ToLower(strings.TrimSpace(mime))
	switch {
	case strings.HasPrefix(mime, "image/svg"):
		return models.ImageFormatSVG
	case strings.HasPrefix(mime, "image/png"):
		return models.ImageFormatPNG
	default:
		return models.ImageFormatJPEG
	}
}

// FormatFromExtension 根据文件扩展名返回格式
func FormatFromExtension(name string) models.ImageFormat {
	lower := strings.ToLower(name)
	switch {
	case strings.HasSuffix(lower, ".svg"):
		return models.ImageFormatSVG
	case strings.HasSuffix(lower, ".png"):
		return models.ImageFormatPNG
	default:
		return models.ImageFormatJPEG
	}
}
