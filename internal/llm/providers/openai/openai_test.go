// internal/llm/providers/openai/openai_test.go
package openai

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

func TestCompleteText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
		assert.Equal(t, "gpt-4o-mini", body.Model)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"model":"gpt-4o-mini-2024","choices":[{"message":{"role":"assistant","content":"hello"},"finish_reason":"stop"}],"usage":{"total_tokens":7}}`))
	}))
	defer srv.Close()

	p := &Provider{}
	require.NoError(t, p.Initialize(map[string]string{"api_key": "sk-test", "base_url": srv.URL}))

	resp, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi", SystemPrompt: "sys"})
	require.NoError(t, err)
	assert.Equal(t, "hello", resp.Text)
	assert.Equal(t, "gpt-4o-mini-2024", resp.ModelName)
	assert.Equal(t, 7, resp.TokensUsed)
}

func TestCompleteTextError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
	}))
	defer srv.Close()

	p := &Provider{}
	require.NoError(t, p.Initialize(map[string]string{"api_key": "sk-test", "base_url": srv.URL}))

	_, err := p.CompleteText(context.Background(), llm.CompletionRequest{Prompt: "hi"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bad key")
}

func TestCustomModels(t *testing.T) {
	p := &Provider{}
	require.NoError(t, p.Initialize(map[string]string{"api_key": "k", "custom_models": `["a","b"]`}))
	assert.Equal(t, []string{"a", "b"}, p.GetSupportedModels())
}
