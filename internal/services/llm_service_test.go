// internal/services/llm_service_test.go
package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLLMServiceCachesReplies(t *testing.T) {
	provider := &fakeProvider{text: "hello"}
	svc := NewLLMServiceWithProvider(provider, "")

	for i := 0; i < 3; i++ {
		text, err := svc.GenerateText(context.Background(), "sys", "prompt")
		require.NoError(t, err)
		assert.Equal(t, "hello", text)
	}
	assert.Equal(t, 1, provider.calls())
	assert.Equal(t, "fake-model", provider.requests[0].Model)

	_, err := svc.GenerateText(context.Background(), "sys", "other prompt")
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls())
}

func TestLLMServiceErrors(t *testing.T) {
	_, err := NewEmptyLLMService().GenerateText(context.Background(), "", "x")
	assert.ErrorIs(t, err, ErrLLMNotReady)

	failing := NewLLMServiceWithProvider(&fakeProvider{err: errors.New("boom")}, "m")
	_, err = failing.GenerateText(context.Background(), "", "x")
	assert.EqualError(t, err, "boom")

	empty := NewLLMServiceWithProvider(&fakeProvider{text: "  "}, "m")
	_, err = empty.GenerateText(context.Background(), "", "x")
	assert.Error(t, err)
	assert.Zero(t, empty.cache.Len())
}

func TestLLMServiceStatus(t *testing.T) {
	svc := NewEmptyLLMService()
	ready, state := svc.GetProviderStatus()
	assert.False(t, ready)
	assert.NotEmpty(t, state)

	svc = NewLLMServiceWithProvider(&fakeProvider{}, "custom-model")
	assert.True(t, svc.IsReady())
	assert.Equal(t, "custom-model", svc.GetDefaultModel())
	assert.Equal(t, "fake", svc.GetProviderName())
}

func TestLLMCacheCleanupOldest(t *testing.T) {
	c := newLLMCache()
	c.maxEntries = 10
	for i := 0; i < 11; i++ {
		c.put(generateCacheKey("p", "s", "m", string(rune('a'+i))), "v")
	}
	assert.Equal(t, 10, c.Len())
}

func TestExtractJSONObject(t *testing.T) {
	obj, ok := extractJSONObject("noise {\"a\": \"}\"} trailing {\"b\":1}")
	require.True(t, ok)
	assert.Equal(t, `{"a": "}"}`, obj)

	_, ok = extractJSONObject("nothing")
	assert.False(t, ok)
}
