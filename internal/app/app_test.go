// internal/app/app_test.go
package app

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/LessonReel/internal/config"
	"github.com/Corphon/LessonReel/internal/di"
	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/services"
)

// setupConfig 在临时目录中初始化配置，默认不配置任何供应商密钥
func setupConfig(t *testing.T, env map[string]string) *config.Config {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("OUTPUT_DIR", filepath.Join(dir, "output"))
	t.Setenv("DATA_DIR", filepath.Join(dir, "data"))
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("GEMINI_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("ELEVENLABS_API_KEY", "")
	for k, v := range env {
		t.Setenv(k, v)
	}

	cfg, err := config.Load()
	require.NoError(t, err)
	require.NoError(t, config.InitConfigWith(cfg.DataDir, cfg))
	return cfg
}

func shutdown(t *testing.T, container *di.Container) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	Shutdown(ctx, container)
}

func TestInitServicesRegistersPipeline(t *testing.T) {
	cfg := setupConfig(t, nil)
	container := di.NewContainer()

	require.NoError(t, InitServicesInto(container, cfg))
	defer shutdown(t, container)

	for _, name := range []string{
		"files", "image_store", "catalog", "llm", "config", "content", "images",
		"narration", "posters", "locks", "artifacts", "stats", "generation", "jobs", "sweep",
	} {
		assert.True(t, container.Has(name), "缺少服务 %s", name)
	}
	assert.False(t, container.Has("tts"), "未配置密钥时不注册语音服务")

	narration, err := di.Resolve[*services.NarrationService](container, "narration")
	require.NoError(t, err)
	assert.False(t, narration.Available())

	sweep, err := di.Resolve[*services.SweepTask](container, "sweep")
	require.NoError(t, err)
	assert.Len(t, sweep.Cron.Entries(), 2)
}

func TestInitServicesWithSpeechKey(t *testing.T) {
	cfg := setupConfig(t, map[string]string{
		"ELEVENLABS_API_KEY": "test-key",
		"SWEEP_SCHEDULE":     "",
	})
	container := di.NewContainer()

	require.NoError(t, InitServicesInto(container, cfg))
	defer shutdown(t, container)

	assert.True(t, container.Has("tts"))
	narration, err := di.Resolve[*services.NarrationService](container, "narration")
	require.NoError(t, err)
	assert.True(t, narration.Available())

	sweep, err := di.Resolve[*services.SweepTask](container, "sweep")
	require.NoError(t, err)
	assert.Len(t, sweep.Cron.Entries(), 1, "清理计划为空时只保留任务清理")
}

func TestInitServicesCatalogFile(t *testing.T) {
	catalogFile := filepath.Join(t.TempDir(), "catalog.yaml")
	require.NoError(t, os.WriteFile(catalogFile, []byte(`
topics:
  - id: topic-x
    name: Rainbows
voices:
  - id: voice-x
    vendor_id: vendor-x
    name: Narrator X
`), 0644))

	cfg := setupConfig(t, map[string]string{"CATALOG_FILE": catalogFile})
	container := di.NewContainer()
	require.NoError(t, InitServicesInto(container, cfg))
	defer shutdown(t, container)

	generation, err := di.Resolve[*services.GenerationService](container, "generation")
	require.NoError(t, err)
	assert.Equal(t, "Rainbows", generation.Catalog().TopicName("topic-x"))
	assert.Equal(t, "vendor-x", generation.Catalog().VendorVoiceID("voice-x"))
}

func TestInitServicesErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"目录文件不存在", map[string]string{"CATALOG_FILE": "/nonexistent/catalog.yaml"}},
		{"清理计划无效", map[string]string{"SWEEP_SCHEDULE": "every hour"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := setupConfig(t, tt.env)
			container := di.NewContainer()
			assert.Error(t, InitServicesInto(container, cfg))
			assert.False(t, container.Has("generation") && container.Has("sweep"))
		})
	}
}

func TestGenerateThroughContainer(t *testing.T) {
	cfg := setupConfig(t, map[string]string{"SWEEP_SCHEDULE": ""})
	container := di.NewContainer()
	require.NoError(t, InitServicesInto(container, cfg))
	defer shutdown(t, container)

	jobs, err := di.Resolve[*services.JobService](container, "jobs")
	require.NoError(t, err)

	snapshot := jobs.Submit(models.GenerationRequest{VoiceID: "voice-5", TopicID: "topic-9"})
	jobs.Wait()

	final, err := jobs.Snapshot(snapshot.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobReady, final.Status, final.Error)
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "voice-5_topic-9.html"))
	assert.FileExists(t, filepath.Join(cfg.OutputDir, "poster_voice-5_topic-9.png"))

	stats, err := di.Resolve[*services.StatsService](container, "stats")
	require.NoError(t, err)
	usage := stats.GetUsageStats()
	assert.Equal(t, 1, usage.TotalLessons)
	assert.Equal(t, 1, usage.TopicStats["topic-9"])
	assert.Zero(t, usage.NarratedLessons)
}
