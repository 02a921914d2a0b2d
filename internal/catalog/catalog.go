// internal/catalog/catalog.go
package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Corphon/LessonReel/internal/models"
)

//go:embed catalog.yaml
var defaultCatalog []byte

// Catalog 主题与音色的静态目录
type Catalog struct {
	DefaultTopicName string                `yaml:"default_topic_name"`
	DefaultVoiceName string                `yaml:"default_voice_name"`
	Topics           []models.CatalogTopic `yaml:"topics"`
	Voices           []models.CatalogVoice `yaml:"voices"`

	topicByID map[string]models.CatalogTopic
	voiceByID map[string]models.CatalogVoice
}

// Default 加载内置目录
func Default() *Catalog {
	c, err := Parse(defaultCatalog)
	if err != nil {
		panic(fmt.Sprintf("内置目录无效: %v", err))
	}
	return c
}

// Load 从文件加载目录，path 为空时使用内置目录
func Load(path string) (*Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取目录文件失败: %w", err)
	}
	return Parse(data)
}

// Parse 解析 YAML 目录
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("解析目录失败: %w", err)
	}
	if c.DefaultTopicName == "" {
		c.DefaultTopicName = "Educational Topic"
	}
	if c.DefaultVoiceName == "" {
		c.DefaultVoiceName = "Voice"
	}

	c.topicByID = make(map[string]models.CatalogTopic, len(c.Topics))
	for _, t := range c.Topics {
		if t.ID == "" || t.Name == "" {
			return nil, fmt.Errorf("主题缺少 id 或 name: %+v", t)
		}
		if _, dup := c.topicByID[t.ID]; dup {
			return nil, fmt.Errorf("主题 ID 重复: %s", t.ID)
		}
		c.topicByID[t.ID] = t
	}
	c.voiceByID = make(map[string]models.CatalogVoice, len(c.Voices))
	for _, v := range c.Voices {
		if v.ID == "" || v.VendorID == "" {
			return nil, fmt.Errorf("音色缺少 id 或 vendor_id: %+v", v)
		}
		if _, dup := c.voiceByID[v.ID]; dup {
			return nil, fmt.Errorf("音色 ID 重复: %s", v.ID)
		}
		c.voiceByID[v.ID] = v
	}
	return &c, nil
}

// TopicName 返回主题显示名，未知 ID 返回默认名
func (c *Catalog) TopicName(topicID string) string {
	if t, ok := c.topicByID[topicID]; ok {
		return t.Name
	}
	return c.DefaultTopicName
}

// HasTopic 主题 ID 是否已知
func (c *Catalog) HasTopic(topicID string) bool {
	_, ok := c.topicByID[topicID]
	return ok
}

// VendorVoiceID 返回供应商音色 ID，未知 ID 原样透传
func (c *Catalog) VendorVoiceID(voiceID string) string {
	if v, ok := c.voiceByID[voiceID]; ok {
		return v.VendorID
	}
	return voiceID
}

// VoiceName 返回音色显示名
func (c *Catalog) VoiceName(voiceID string) string {
	if v, ok := c.voiceByID[voiceID]; ok {
		return v.DisplayName
	}
	return c.DefaultVoiceName
}
