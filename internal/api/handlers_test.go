// internal/api/handlers_test.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/LessonReel/internal/catalog"
	"github.com/Corphon/LessonReel/internal/config"
	"github.com/Corphon/LessonReel/internal/models"
	"github.com/Corphon/LessonReel/internal/services"
	"github.com/Corphon/LessonReel/internal/storage"
	"github.com/Corphon/LessonReel/internal/tts"
)

type stubSynth struct {
	voices []models.Voice
	err    error
}

func (s *stubSynth) Initialize(map[string]string) error { return nil }
func (s *stubSynth) GetName() string                    { return "stub" }
func (s *stubSynth) ListVoices(context.Context) ([]models.Voice, error) {
	return s.voices, s.err
}
func (s *stubSynth) GetVoice(_ context.Context, id string) (*models.Voice, error) {
	return &models.Voice{VoiceID: id, Name: "Stub"}, nil
}
func (s *stubSynth) Synthesize(context.Context, tts.SpeechRequest) ([]byte, error) {
	return nil, errors.New("stub: synthesis disabled")
}

type testServer struct {
	router     *gin.Engine
	generation *services.GenerationService
	jobs       *services.JobService
	dir        string
}

func newTestServer(t *testing.T, synth tts.Synthesizer, rateLimit int) testServer {
	t.Helper()
	return newTestServerWithUsage(t, synth, rateLimit, nil)
}

func newTestServerWithUsage(t *testing.T, synth tts.Synthesizer, rateLimit int, usage services.UsageRecorder) testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dir := t.TempDir()
	files, err := storage.NewFileStorage(dir)
	require.NoError(t, err)
	store := storage.NewImageStore(files, storage.KeyByPosition)
	posters, err := services.NewPosterService()
	require.NoError(t, err)
	locks := services.NewLockManager()
	t.Cleanup(locks.Stop)

	generation := services.NewGenerationService(services.GenerationDeps{
		Catalog:        catalog.Default(),
		Content:        services.NewContentService(nil, services.NewFallbackGenerator(), time.Second),
		Images:         services.NewImageService(nil, store, time.Second),
		Narration:      services.NewNarrationService(synth, "eleven_multilingual_v2", time.Second),
		Posters:        posters,
		Artifacts:      services.NewArtifactService(files, locks),
		Store:          store,
		Usage:          usage,
		Retention:      24 * time.Hour,
		RequestTimeout: 10 * time.Second,
	})
	jobs := services.NewJobService(generation, 10*time.Second)

	cfg := &config.Config{
		OutputDir:          dir,
		DebugMode:          true,
		CORSOrigins:        []string{"http://localhost:5173"},
		RateLimitPerMinute: rateLimit,
	}
	return testServer{
		router:     NewRouter(cfg, NewHandler(generation, jobs)),
		generation: generation,
		jobs:       jobs,
		dir:        dir,
	}
}

func (s testServer) do(method, path string, body interface{}) *httptest.ResponseRecorder {
	var reader *bytes.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestGenerateVideoSuccess(t *testing.T) {
	s := newTestServer(t, nil, 0)

	for _, path := range []string{"/generate-video", "/generate-video/"} {
		w := s.do(http.MethodPost, path, gin.H{"voiceId": "voice-1", "topicId": "topic-4"})
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		body := decode(t, w)
		assert.Equal(t, true, body["success"])
		assert.Equal(t, "/videos/voice-1_topic-4.html", body["videoUrl"])
		assert.Equal(t, "/videos/poster_voice-1_topic-4.png", body["posterUrl"])
		assert.Equal(t, "Video generation completed", body["message"])
		assert.NotEmpty(t, w.Header().Get(requestIDHeader))
	}

	w := s.do(http.MethodGet, "/videos/voice-1_topic-4.html", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Teacher Ava")
}

func TestGenerateVideoValidation(t *testing.T) {
	s := newTestServer(t, nil, 0)

	tests := []struct {
		name string
		body interface{}
		want string
	}{
		{"缺少音色", gin.H{"topicId": "topic-1"}, services.MsgMissingFields},
		{"缺少主题", gin.H{"voiceId": "voice-1"}, services.MsgMissingFields},
		{"主题冲突", gin.H{"voiceId": "voice-1", "topicId": "topic-1", "customTopic": "Bees"}, services.MsgTopicConflict},
		{"请求体无效", "not an object", MsgInvalidBody},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(http.MethodPost, "/generate-video", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code)
			body := decode(t, w)
			assert.Equal(t, false, body["success"])
			assert.Equal(t, tt.want, body["error"])
		})
	}

	entries, err := os.ReadDir(s.dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestGenerateVideoStorageFailure(t *testing.T) {
	s := newTestServer(t, nil, 0)
	require.NoError(t, os.Mkdir(filepath.Join(s.dir, "voice-1_topic-2.html"), 0755))

	w := s.do(http.MethodPost, "/generate-video", gin.H{"voiceId": "voice-1", "topicId": "topic-2"})
	require.Equal(t, http.StatusInternalServerError, w.Code)
	body := decode(t, w)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, MsgGenerationFailed, body["error"])
}

func TestListVoices(t *testing.T) {
	ok := newTestServer(t, &stubSynth{voices: []models.Voice{{VoiceID: "abc", Name: "Ava"}}}, 0)
	w := ok.do(http.MethodGet, "/generate-video/voices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, true, body["success"])
	assert.Len(t, body["voices"], 1)

	failing := newTestServer(t, &stubSynth{err: errors.New("401 unauthorized")}, 0)
	w = failing.do(http.MethodGet, "/generate-video/voices", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, MsgVoicesFailed, decode(t, w)["error"])
}

func TestListTopics(t *testing.T) {
	s := newTestServer(t, nil, 0)
	w := s.do(http.MethodGet, "/generate-video/topics", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.NotEmpty(t, body["topics"])
	assert.NotEmpty(t, body["voices"])
}

func TestImageAdministration(t *testing.T) {
	s := newTestServer(t, nil, 0)
	require.Equal(t, http.StatusOK, s.do(http.MethodPost, "/generate-video", gin.H{"voiceId": "voice-1", "topicId": "topic-1"}).Code)

	w := s.do(http.MethodGet, "/generate-video/images/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	stats := decode(t, w)["stats"].(map[string]interface{})
	assert.EqualValues(t, 3, stats["totalFiles"])

	w = s.do(http.MethodPost, "/generate-video/images/cleanup?maxAgeHours=abc", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/generate-video/images/cleanup?maxAgeHours=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["cleanedCount"])

	w = s.do(http.MethodPost, "/generate-video/images/cleanup?maxAgeHours=0", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 3, decode(t, w)["cleanedCount"])

	w = s.do(http.MethodDelete, "/generate-video/images/cache", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode(t, w)["cleared"])
}

func TestJobEndpoints(t *testing.T) {
	s := newTestServer(t, nil, 0)

	w := s.do(http.MethodPost, "/generate-video/jobs", gin.H{"voiceId": "voice-2", "customTopic": "Volcanoes"})
	require.Equal(t, http.StatusAccepted, w.Code)
	jobID, _ := decode(t, w)["jobId"].(string)
	require.NotEmpty(t, jobID)
	assert.Equal(t, "/jobs/"+jobID, w.Header().Get("Location"))

	s.jobs.Wait()

	w = s.do(http.MethodGet, "/jobs/"+jobID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snapshot models.JobSnapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snapshot))
	assert.Equal(t, models.JobReady, snapshot.Status)
	assert.Equal(t, 100, snapshot.Progress)
	assert.Equal(t, "/videos/voice-2_custom.html", snapshot.VideoURL)

	w = s.do(http.MethodGet, "/jobs/missing", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, MsgJobNotFound, decode(t, w)["error"])

	w = s.do(http.MethodPost, "/generate-video/jobs", gin.H{"voiceId": "voice-2"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceEndpoints(t *testing.T) {
	s := newTestServer(t, nil, 0)

	w := s.do(http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["ok"])

	w = s.do(http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, decode(t, w), "counters")

	w = s.do(http.MethodGet, "/nowhere", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, decode(t, w)["error"], "No route for GET /nowhere")
}
