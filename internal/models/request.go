// internal/models/request.go
package models

import "strings"

// CustomTopicID 自定义主题的哨兵 ID
const CustomTopicID = "custom"

// GenerationRequest 表示一次课程生成的输入
type GenerationRequest struct {
	VoiceID      string `json:"voiceId"`
	TopicID      string `json:"topicId"`
	CustomTopic  string `json:"customTopic,omitempty"`
	CustomPrompt string `json:"customPrompt,omitempty"`
}

// GenerateVideoBody 是 HTTP 请求体
type GenerateVideoBody struct {
	VoiceID     string `json:"voiceId"`
	TopicID     string `json:"topicId"`
	CustomTopic string `json:"customTopic,omitempty"`
	Prompt      string `json:"prompt,omitempty"`
}

// ToRequest 将请求体解析为生成请求
// customTopic 存在时主题固定为 custom，提示词为 "customTopic - prompt"，无 prompt 时仅为 customTopic
func (b GenerateVideoBody) ToRequest() GenerationRequest {
	req := GenerationRequest{
		VoiceID:      strings.TrimSpace(b.VoiceID),
		TopicID:      strings.TrimSpace(b.TopicID),
		CustomTopic:  strings.TrimSpace(b.CustomTopic),
		CustomPrompt: b.Prompt,
	}
	if req.CustomTopic != "" {
		req.TopicID = CustomTopicID
		req.CustomPrompt = req.CustomTopic
		if p := strings.TrimSpace(b.Prompt); p != "" {
			req.CustomPrompt = req.CustomTopic + " - " + p
		}
	}
	return req
}
