// internal/llm/providers/google/google_test.go
package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Corphon/LessonReel/internal/llm"
)

func newTestProvider(t *testing.T, handler http.HandlerFunc) *Provider {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	p := &Provider{}
	require.NoError(t, p.Initialize(map[string]string{
		"api_key":  "test-key",
		"base_url": srv.URL,
	}))
	return p
}

func TestCompleteText(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/gemini-2.0-flash:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.URL.Query().Get("key"))

		var body generateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "Topic: Shapes", body.Contents[0].Parts[0].Text)
		require.NotNil(t, body.SystemInstruction)
		assert.Equal(t, "be a teacher", body.SystemInstruction.Parts[0].Text)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"{\"title\":"},{"text":"\"x\"}"}]},"finishReason":"STOP"}],"usageMetadata":{"totalTokenCount":12}}`))
	})

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{
		Prompt:       "Topic: Shapes",
		SystemPrompt: "be a teacher",
	})
	require.NoError(t, err)
	assert.Equal(t, `{"title":"x"}`, resp.Text)
	assert.Equal(t, 12, resp.TokensUsed)
	assert.Equal(t, "gemini-2.0-flash", resp.ModelName)
}

func TestCompleteTextAPIError(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"API key not valid"}}`))
	})

	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "403")
	assert.Contains(t, err.Error(), "API key not valid")
}

func TestCompleteTextNoCandidates(t *testing.T) {
	p := newTestProvider(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	})

	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	assert.Error(t, err)
}

func TestInitializeRequiresKey(t *testing.T) {
	p := &Provider{}
	assert.Error(t, p.Initialize(map[string]string{}))
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, llm.ListProviders(), "google")
}
