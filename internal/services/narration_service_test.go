// internal/services/narration_service_test.go
package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/LessonReel/internal/models"
)

func TestDefaultVoiceSettings(t *testing.T) {
	plain := DefaultVoiceSettings(nil)
	assert.Equal(t, 0.5, plain.Stability)
	assert.Nil(t, plain.Style)

	designed := DefaultVoiceSettings(&models.Voice{Category: models.VoiceCategoryDesigned})
	assert.Equal(t, 0.7, designed.Stability)
	assert.Equal(t, 0.8, designed.SimilarityBoost)
	require.NotNil(t, designed.Style)
	assert.Equal(t, 0.3, *designed.Style)
	require.NotNil(t, designed.UseSpeakerBoost)
	assert.True(t, *designed.UseSpeakerBoost)
}

func TestTuneVoice(t *testing.T) {
	base := DefaultVoiceSettings(nil)

	tests := []struct {
		name       string
		hints      string
		stability  float64
		similarity float64
		style      *float64
	}{
		{"无提示", "", 0.5, 0.5, nil},
		{"兴奋", "excited", 0.3, 0.5, nil},
		{"平静", "calm", 0.7, 0.5, nil},
		{"戏剧化", "dramatic", 0.2, 0.5, floatPtr(0.8)},
		{"兴奋优先于戏剧化", "excited dramatic", 0.3, 0.5, floatPtr(0.8)},
		{"独特", "unique", 0.5, 0.3, nil},
		{"熟悉", "familiar", 0.5, 0.7, nil},
		{"单调", "monotone", 0.5, 0.5, floatPtr(0)},
		{"适中", "balanced", 0.5, 0.5, floatPtr(0.4)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := TuneVoice(base, tt.hints)
			assert.InDelta(t, tt.stability, got.Stability, 1e-9)
			assert.InDelta(t, tt.similarity, got.SimilarityBoost, 1e-9)
			if tt.style == nil {
				assert.Nil(t, got.Style)
			} else {
				require.NotNil(t, got.Style)
				assert.InDelta(t, *tt.style, *got.Style, 1e-9)
			}
		})
	}
}

func TestTuneVoiceClamps(t *testing.T) {
	s := models.VoiceSettings{Stability: 0.25, SimilarityBoost: 0.85}
	got := TuneVoice(s, "energetic familiar")
	assert.InDelta(t, 0.2, got.Stability, 1e-9)
	assert.InDelta(t, 0.9, got.SimilarityBoost, 1e-9)

	got = TuneVoice(models.VoiceSettings{Stability: 0.7}, "gentle")
	assert.InDelta(t, 0.8, got.Stability, 1e-9)
}

func TestRewriteForDelivery(t *testing.T) {
	script := "This is important. Look, a pizza!"

	assert.Equal(t, script, RewriteForDelivery(script, ""))
	assert.Equal(t, "This is important... Look,.. a pizza!", RewriteForDelivery(script, "slow"))
	assert.Equal(t, "Wait. Go, go.", RewriteForDelivery("Wait... Go,.. go.", "faster"))
	assert.Equal(t, "This is **important**. Look, a pizza!", RewriteForDelivery(script, "strong"))
	assert.Equal(t, "This is important... Look, a pizza!...", RewriteForDelivery(script, "suspenseful"))
}

func TestNarrate(t *testing.T) {
	synth := &fakeSynth{
		audio: []byte("mp3"),
		voice: &models.Voice{VoiceID: "v1", Category: models.VoiceCategoryCustom},
	}
	svc := NewNarrationService(synth, "eleven_multilingual_v2", time.Second)

	script := "Key ideas. Fun!"
	audio, err := svc.Narrate(context.Background(), script, "v1", "calm emphasis")
	require.NoError(t, err)
	assert.Equal(t, []byte("mp3"), audio)

	req := synth.lastRequest()
	assert.Equal(t, "v1", req.VoiceID)
	assert.Equal(t, "eleven_multilingual_v2", req.ModelID)
	assert.Equal(t, "**Key** ideas. Fun!", req.Text)
	assert.InDelta(t, 0.8, req.Settings.Stability, 1e-9)
	assert.Equal(t, "Key ideas. Fun!", script)
}

func TestNarrateVoiceLookupFailureIsNotFatal(t *testing.T) {
	synth := &fakeSynth{audio: []byte("mp3"), voiceErr: errors.New("404")}
	svc := NewNarrationService(synth, "", time.Second)

	_, err := svc.Narrate(context.Background(), "Hello.", "v1", "")
	require.NoError(t, err)
	assert.Equal(t, 0.5, synth.lastRequest().Settings.Stability)
}

func TestNarrateErrors(t *testing.T) {
	_, err := NewNarrationService(nil, "", time.Second).Narrate(context.Background(), "x", "v", "")
	assert.ErrorIs(t, err, ErrNarrationUnavailable)

	failing := NewNarrationService(&fakeSynth{err: errors.New("quota exceeded")}, "", time.Second)
	_, err = failing.Narrate(context.Background(), "x", "v", "")
	assert.EqualError(t, err, "quota exceeded")

	empty := NewNarrationService(&fakeSynth{}, "", time.Second)
	_, err = empty.Narrate(context.Background(), "x", "v", "")
	assert.Error(t, err)
}

func floatPtr(v float64) *float64 {
	return &v
}
