// internal/models/voice.go
package models

// Voice 供应商返回的音色信息
type Voice struct {
	VoiceID    string            `json:"voice_id"`
	Name       string            `json:"name"`
	Category   string            `json:"category,omitempty"`
	PreviewURL string            `json:"preview_url,omitempty"`
	Labels     map[string]string `json:"labels,omitempty"`
}

// 需要增强参数的音色类别
const (
	VoiceCategoryDesigned = "voice_design"
	VoiceCategoryCustom   = "custom"
)

// IsDesigned 是否为自定义或设计的音色
func (v *Voice) IsDesigned() bool {
	return v != nil && (v.Category == VoiceCategoryDesigned || v.Category == VoiceCategoryCustom)
}

// VoiceSettings 语音合成参数
type VoiceSettings struct {
	Stability       float64  `json:"stability"`
	SimilarityBoost float64  `json:"similarity_boost"`
	Style           *float64 `json:"style,omitempty"`
	UseSpeakerBoost *bool    `json:"use_speaker_boost,omitempty"`
}

// CatalogVoice 本地音色目录条目
type CatalogVoice struct {
	ID          string `json:"id" yaml:"id"`
	VendorID    string `json:"vendorId" yaml:"vendor_id"`
	DisplayName string `json:"name" yaml:"name"`
}

// CatalogTopic 本地主题目录条目
type CatalogTopic struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}
