// internal/services/artifact_service.go
package services

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"path/filepath"
	"regexp"
	"time"

	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/storage"
	"github.com/Corphon/LessonReel/internal/utils"
)

//go:embed templates/lesson.html
var templateFS embed.FS

var lessonTemplate = template.Must(template.ParseFS(templateFS, "templates/lesson.html"))

// PublicPrefix 产物对外访问前缀
const PublicPrefix = "/videos/"

// AutoAdvanceInterval 无音频时的自动翻页间隔
const AutoAdvanceInterval = 15 * time.Second

const placeholderSVG = `<svg width="1024" height="1024" xmlns="http://www.w3.org/2000/svg">
  <rect width="100%" height="100%" fill="#667eea"/>
  <text x="50%" y="50%" font-family="Arial, sans-serif" font-size="48" fill="white" text-anchor="middle" dominant-baseline="middle">Educational Content</text>
</svg>`

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]`)

// SanitizeName 将标识符中路径不安全的字符替换为下划线
func SanitizeName(id string) string {
	if id == "" {
		return "_"
	}
	return unsafeNameChars.ReplaceAllString(id, "_")
}

func artifactBase(voiceID, topicID string) string {
	return SanitizeName(voiceID) + "_" + SanitizeName(topicID)
}

// HTMLName 课程页面文件名
func HTMLName(voiceID, topicID string) string {
	return artifactBase(voiceID, topicID) + ".html"
}

// AudioName 旁白音频文件名
func AudioName(voiceID, topicID string) string {
	return "audio_" + artifactBase(voiceID, topicID) + ".mp3"
}

// PosterName 封面图文件名
func PosterName(voiceID, topicID string) string {
	return "poster_" + artifactBase(voiceID, topicID) + ".png"
}

// PublicURL 返回文件的对外访问路径
func PublicURL(name string) string {
	return PublicPrefix + filepath.Base(name)
}

// ArtifactInput 组装课程页面所需的全部材料
type ArtifactInput struct {
	Lesson    *models.LessonContent
	Images    []models.CachedImage
	VoiceID   string
	TopicID   string
	VoiceName string
	Audio     []byte
	Poster    []byte
}

type pageSlide struct {
	Title   string
	Content string
	Image   template.URL
}

type lessonPage struct {
	Title         string
	VoiceName     string
	AudioURL      string
	PosterURL     string
	HasAudio      bool
	AdvanceMillis int64
	Slides        []pageSlide
	Script        string
}

// ArtifactService 课程页面组装与落盘
type ArtifactService struct {
	files  *storage.FileStorage
	locks  *LockManager
	logger *utils.Logger
}

// NewArtifactService 创建产物服务
func NewArtifactService(files *storage.FileStorage, locks *LockManager) *ArtifactService {
	if locks == nil {
		locks = newLockManager(30*time.Minute, 200)
	}
	return &ArtifactService{
		files:  files,
		locks:  locks,
		logger: utils.GetLogger(),
	}
}

// Assemble 写入音频、封面与自包含的课程页面
// 同一音色与主题的写入在名称锁下串行；音频或页面写入失败时不留下新的页面
func (s *ArtifactService) Assemble(in ArtifactInput) (*models.GeneratedArtifact, error) {
	if in.Lesson == nil || len(in.Lesson.Slides) == 0 {
		return nil, errors.New("课程内容为空")
	}
	if len(in.Images) != len(in.Lesson.Slides) {
		return nil, fmt.Errorf("图片数量 %d 与幻灯片数量 %d 不一致", len(in.Images), len(in.Lesson.Slides))
	}

	htmlName := HTMLName(in.VoiceID, in.TopicID)
	artifact := &models.GeneratedArtifact{
		HTMLPath:   s.files.Path(htmlName),
		PublicURL:  PublicURL(htmlName),
		SlideCount: len(in.Lesson.Slides),
		ImageCount: len(in.Images),
		Lesson:     in.Lesson,
	}

	err := s.locks.ExecuteWithLock(htmlName, func() error {
		var written []string

		if len(in.Audio) > 0 {
			name := AudioName(in.VoiceID, in.TopicID)
			if err := s.files.WriteFile(name, in.Audio); err != nil {
				return fmt.Errorf("保存旁白音频失败: %w", err)
			}
			written = append(written, name)
			artifact.AudioPath = s.files.Path(name)
		}

		if len(in.Poster) > 0 {
			name := PosterName(in.VoiceID, in.TopicID)
			if err := s.files.WriteFile(name, in.Poster); err != nil {
				s.logger.Warn("Failed to save poster, continuing without it", map[string]interface{}{
					"file":  name,
					"error": err.Error(),
				})
			} else {
				written = append(written, name)
				artifact.PosterURL = PublicURL(name)
			}
		}

		page, err := s.Render(in.Lesson, s.inlineImages(in.Images), in.VoiceName, audioURL(artifact), artifact.PosterURL)
		if err == nil {
			err = s.files.WriteFile(htmlName, page)
		}
		if err != nil {
			for _, name := range written {
				_, _ = s.files.Remove(name)
			}
			return fmt.Errorf("保存课程页面失败: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	artifact.CreatedAt = time.Now()
	return artifact, nil
}

func audioURL(a *models.GeneratedArtifact) string {
	if !a.HasAudio() {
		return ""
	}
	return PublicURL(a.AudioPath)
}

// inlineImages 读回图片并编码为 data URI，读取失败的图片使用占位图
func (s *ArtifactService) inlineImages(images []models.CachedImage) []string {
	uris := make([]string, len(images))
	for i, img := range images {
		data, err := s.files.ReadFile(filepath.Base(img.FilePath))
		if err != nil {
			s.logger.Warn("Slide image unreadable, using placeholder", map[string]interface{}{
				"index": i,
				"file":  img.FilePath,
				"error": err.Error(),
			})
			uris[i] = EncodeDataURI([]byte(placeholderSVG), models.ImageFormatSVG)
			continue
		}
		uris[i] = EncodeDataURI(data, FormatFromExtension(img.FilePath))
	}
	return uris
}

// Render 渲染课程页面，images 为与幻灯片一一对应的 data URI
func (s *ArtifactService) Render(lesson *models.LessonContent, images []string, voiceName, audioURL, posterURL string) ([]byte, error) {
	page := lessonPage{
		Title:         lesson.Title,
		VoiceName:     voiceName,
		AudioURL:      audioURL,
		PosterURL:     posterURL,
		HasAudio:      audioURL != "",
		AdvanceMillis: AutoAdvanceInterval.Milliseconds(),
		Script:        lesson.Script,
		Slides:        make([]pageSlide, len(lesson.Slides)),
	}
	if page.VoiceName == "" {
		page.VoiceName = "Voice"
	}
	for i, slide := range lesson.Slides {
		image := EncodeDataURI([]byte(placeholderSVG), models.ImageFormatSVG)
		if i < len(images) && images[i] != "" {
			image = images[i]
		}
		page.Slides[i] = pageSlide{
			Title:   slide.Title,
			Content: slide.Content,
			Image:   template.URL(image),
		}
	}

	var buf bytes.Buffer
	if err := lessonTemplate.Execute(&buf, page); err != nil {
		return nil, fmt.Errorf("渲染课程页面失败: %w", err)
	}
	return buf.Bytes(), nil
}
