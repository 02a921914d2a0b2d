// internal/services/job_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/Corphon/LessonReel/internal/errors"
	"github.com/Corphon/LessonReel/internal/models"
)

type fakeGenerator struct {
	release  chan struct{}
	artifact *models.GeneratedArtifact
	err      error
	panicMsg string
}

func (g *fakeGenerator) Generate(ctx context.Context, req models.GenerationRequest, progress ProgressFunc) (*models.GeneratedArtifact, error) {
	progress(40, "Creating slide images")
	if g.release != nil {
		select {
		case <-g.release:
		case <-ctx.Done():
			return nil, apperrors.NewTimeoutError("lesson generation timed out", ctx.Err())
		}
	}
	if g.panicMsg != "" {
		panic(g.panicMsg)
	}
	progress(20, "ignored regression")
	return g.artifact, g.err
}

func waitDone(t *testing.T, tracker *JobTracker) {
	t.Helper()
	select {
	case <-tracker.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("job did not finish")
	}
}

func TestJobServiceLifecycle(t *testing.T) {
	gen := &fakeGenerator{
		release:  make(chan struct{}),
		artifact: &models.GeneratedArtifact{PublicURL: "/videos/voice-1_topic-4.html", PosterURL: "/videos/poster_voice-1_topic-4.png"},
	}
	svc := NewJobService(gen, time.Minute)

	snap := svc.Submit(models.GenerationRequest{VoiceID: "voice-1", TopicID: "topic-4"})
	require.NotEmpty(t, snap.ID)
	assert.Equal(t, models.JobQueued, snap.Status)

	tracker, ok := svc.Get(snap.ID)
	require.True(t, ok)
	updates := tracker.Subscribe()

	close(gen.release)
	waitDone(t, tracker)
	svc.Wait()

	final, err := svc.Snapshot(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobReady, final.Status)
	assert.Equal(t, 100, final.Progress)
	assert.Equal(t, "/videos/voice-1_topic-4.html", final.VideoURL)
	assert.Equal(t, "/videos/poster_voice-1_topic-4.png", final.PosterURL)

	var last models.JobSnapshot
	progressSeen := []int{}
	for len(updates) > 0 {
		last = <-updates
		progressSeen = append(progressSeen, last.Progress)
	}
	assert.Equal(t, models.JobReady, last.Status)
	for i := 1; i < len(progressSeen); i++ {
		assert.GreaterOrEqual(t, progressSeen[i], progressSeen[i-1])
	}

	tracker.Unsubscribe(updates)
	tracker.Unsubscribe(updates)
}

func TestJobServiceFailure(t *testing.T) {
	tests := []struct {
		name    string
		gen     *fakeGenerator
		wantErr string
	}{
		{"存储失败", &fakeGenerator{err: apperrors.NewStorageError("disk full", errors.New("ENOSPC"))}, "Failed to generate video"},
		{"校验失败", &fakeGenerator{err: apperrors.NewValidationError("voiceId and topicId (or customTopic) are required", nil)}, "voiceId and topicId (or customTopic) are required"},
		{"内部崩溃", &fakeGenerator{panicMsg: "boom"}, "internal error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := NewJobService(tt.gen, time.Minute)
			snap := svc.Submit(models.GenerationRequest{VoiceID: "voice-1", TopicID: "topic-4"})
			svc.Wait()

			final, err := svc.Snapshot(snap.ID)
			require.NoError(t, err)
			assert.Equal(t, models.JobFailed, final.Status)
			assert.Equal(t, tt.wantErr, final.Error)
			assert.Empty(t, final.VideoURL)
		})
	}
}

func TestJobServiceTimeout(t *testing.T) {
	svc := NewJobService(&fakeGenerator{release: make(chan struct{})}, 20*time.Millisecond)
	snap := svc.Submit(models.GenerationRequest{VoiceID: "voice-1", TopicID: "topic-4"})
	svc.Wait()

	final, err := svc.Snapshot(snap.ID)
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, final.Status)
	assert.Equal(t, "Lesson generation timed out", final.Error)
}

func TestJobServiceUnknownAndCleanup(t *testing.T) {
	svc := NewJobService(&fakeGenerator{artifact: &models.GeneratedArtifact{PublicURL: "/videos/a.html"}}, time.Minute)

	_, err := svc.Snapshot("missing")
	assert.True(t, apperrors.IsNotFoundError(err))

	svc.Submit(models.GenerationRequest{VoiceID: "voice-1", TopicID: "topic-1"})
	svc.Wait()
	require.Equal(t, 1, svc.Len())

	assert.Equal(t, 0, svc.CleanupFinished(time.Hour))
	time.Sleep(2 * time.Millisecond)
	assert.Equal(t, 1, svc.CleanupFinished(time.Millisecond))
	assert.Equal(t, 0, svc.Len())
}

func TestJobTrackerIgnoresUpdatesAfterFinish(t *testing.T) {
	tracker := newJobTracker("job-1")
	tracker.UpdateProgress(150, "almost")
	assert.Equal(t, 99, tracker.Snapshot().Progress)

	tracker.Fail("nope")
	tracker.UpdateProgress(10, "late")
	tracker.Complete(&models.GeneratedArtifact{PublicURL: "/videos/x.html"})

	snap := tracker.Snapshot()
	assert.Equal(t, models.JobFailed, snap.Status)
	assert.Equal(t, "nope", snap.Error)
	assert.Empty(t, snap.VideoURL)
}
