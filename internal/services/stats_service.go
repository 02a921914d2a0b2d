// internal/services/stats_service.go
package services

import (
	"encoding/json"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/Corphon/LessonReel/internal/storage"
	"github.com/Corphon/LessonReel/internal/utils"
)

const (
	usageStatsFile   = "usage_stats.json"
	usageDailyWindow = 30
)

// UsageStats 课程生成的累计统计
type UsageStats struct {
	TodayLessons    int            `json:"todayLessons"`
	TotalLessons    int            `json:"totalLessons"`
	NarratedLessons int            `json:"narratedLessons"`
	DailyStats      map[string]int `json:"dailyStats"`
	TopicStats      map[string]int `json:"topicStats"`
	LastUpdated     time.Time      `json:"lastUpdated"`
}

// StatsService 记录并持久化使用统计
type StatsService struct {
	files        *storage.FileStorage
	mutex        sync.Mutex
	cachedStats  *UsageStats
	isDirty      bool
	lastSaveTime time.Time
	saveInterval time.Duration
	logger       *utils.Logger
}

// NewStatsService 创建统计服务，files 一般指向数据目录
func NewStatsService(files *storage.FileStorage) *StatsService {
	s := &StatsService{
		files:        files,
		saveInterval: 30 * time.Second,
		logger:       utils.GetLogger(),
	}
	s.mutex.Lock()
	s.initStatsUnlocked()
	s.mutex.Unlock()
	return s
}

func newUsageStats(now time.Time) *UsageStats {
	return &UsageStats{
		DailyStats:  make(map[string]int),
		TopicStats:  make(map[string]int),
		LastUpdated: now,
	}
}

// initStatsUnlocked 读取已保存的统计，文件不存在或损坏时从零开始
func (s *StatsService) initStatsUnlocked() {
	s.cachedStats = newUsageStats(time.Now())
	if !s.files.Exists(usageStatsFile) {
		return
	}

	data, err := s.files.ReadFile(usageStatsFile)
	if err != nil {
		s.logger.Warn("Failed to read usage stats", map[string]interface{}{"error": err.Error()})
		return
	}
	var stats UsageStats
	if err := json.Unmarshal(data, &stats); err != nil {
		s.logger.Warn("Usage stats file is corrupt, starting over", map[string]interface{}{"error": err.Error()})
		return
	}
	if stats.DailyStats == nil {
		stats.DailyStats = make(map[string]int)
	}
	if stats.TopicStats == nil {
		stats.TopicStats = make(map[string]int)
	}
	s.cachedStats = &stats
	s.rollPeriod(time.Now())
}

// rollPeriod 跨天时重置当日计数并裁剪过旧的日统计
func (s *StatsService) rollPeriod(now time.Time) {
	stats := s.cachedStats
	if stats.LastUpdated.Format(time.DateOnly) == now.Format(time.DateOnly) {
		return
	}
	stats.TodayLessons = 0
	cutoff := now.AddDate(0, 0, -usageDailyWindow).Format(time.DateOnly)
	for day := range stats.DailyStats {
		if day < cutoff {
			delete(stats.DailyStats, day)
		}
	}
	stats.LastUpdated = now
	s.isDirty = true
}

// RecordLesson 记录一次成功生成
func (s *StatsService) RecordLesson(topicID string, withAudio bool) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	now := time.Now()
	s.rollPeriod(now)

	stats := s.cachedStats
	stats.TodayLessons++
	stats.TotalLessons++
	if withAudio {
		stats.NarratedLessons++
	}
	stats.DailyStats[now.Format(time.DateOnly)]++
	stats.TopicStats[topicID]++
	stats.LastUpdated = now
	s.isDirty = true

	// 批量保存，间隔内的记录在下一次保存或 Close 时落盘
	if now.Sub(s.lastSaveTime) > s.saveInterval {
		return s.saveStatsImmediate()
	}
	return nil
}

// GetUsageStats 返回统计副本
func (s *StatsService) GetUsageStats() *UsageStats {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.rollPeriod(time.Now())
	copied := *s.cachedStats
	copied.DailyStats = maps.Clone(s.cachedStats.DailyStats)
	copied.TopicStats = maps.Clone(s.cachedStats.TopicStats)
	return &copied
}

// Flush 保存尚未落盘的统计
func (s *StatsService) Flush() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()
	return s.saveStatsImmediate()
}

// ResetStats 清空统计
func (s *StatsService) ResetStats() error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.cachedStats = newUsageStats(time.Now())
	s.isDirty = true
	return s.saveStatsImmediate()
}

// Close 关闭前保存
func (s *StatsService) Close() error {
	return s.Flush()
}

func (s *StatsService) saveStatsImmediate() error {
	if !s.isDirty {
		return nil
	}
	data, err := json.MarshalIndent(s.cachedStats, "", "  ")
	if err != nil {
		return fmt.Errorf("序列化统计数据失败: %w", err)
	}
	if err := s.files.WriteFile(usageStatsFile, data); err != nil {
		return fmt.Errorf("保存统计数据失败: %w", err)
	}
	s.isDirty = false
	s.lastSaveTime = time.Now()
	return nil
}
