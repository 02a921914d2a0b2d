// internal/models/artifact.go
package models

import "time"

// ImageFormat 幻灯片图片格式
type ImageFormat string

const (
	ImageFormatSVG  ImageFormat = "svg"
	ImageFormatPNG  ImageFormat = "png"
	ImageFormatJPEG ImageFormat = "jpg"
)

// Extension 返回文件扩展名（不含点）
func (f ImageFormat) Extension() string {
	return string(f)
}

// MIMEType 返回内联时使用的 MIME 类型
func (f ImageFormat) MIMEType() string {
	switch f {
	case ImageFormatSVG:
		return "image/svg+xml"
	case ImageFormatPNG:
		return "image/png"
	default:
		return "image/jpeg"
	}
}

// CachedImage 内容寻址的幻灯片图片
type CachedImage struct {
	Hash     string      `json:"hash"`
	Index    int         `json:"index"`
	FilePath string      `json:"filePath"`
	Format   ImageFormat `json:"format"`
	Size     int64       `json:"size"`
	StoredAt time.Time   `json:"storedAt"`
}

// GeneratedArtifact 一次生成的最终产物
type GeneratedArtifact struct {
	HTMLPath   string    `json:"htmlPath"`
	PublicURL  string    `json:"videoUrl"`
	AudioPath  string    `json:"audioPath,omitempty"`
	PosterURL  string    `json:"posterUrl,omitempty"`
	SlideCount int       `json:"slideCount"`
	ImageCount int       `json:"imageCount"`
	CreatedAt  time.Time `json:"createdAt"`

	Lesson *LessonContent `json:"-"` // 生成所用的课程内容，不对外输出
}

// HasAudio 是否带有旁白音频
func (a *GeneratedArtifact) HasAudio() bool {
	return a != nil && a.AudioPath != ""
}

// ImageFileInfo 图片统计中的单个文件
type ImageFileInfo struct {
	Name    string    `json:"name"`
	Size    int64     `json:"size"`
	Created time.Time `json:"created"`
}

// ImageStats 图片目录统计
type ImageStats struct {
	TotalFiles  int             `json:"totalFiles"`
	TotalSize   int64           `json:"totalSize"`
	TotalSizeMB string          `json:"totalSizeMB"`
	Files       []ImageFileInfo `json:"files"`
}

// SweepResult 保留期清理结果
type SweepResult struct {
	CleanedCount int   `json:"cleanedCount"`
	TotalSize    int64 `json:"totalSize"`
}
