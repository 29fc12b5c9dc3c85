package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newChatServer(t *testing.T, status int, body string, seen *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		if seen != nil {
			assert.NoError(t, json.NewDecoder(r.Body).Decode(seen))
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenAIProvider_Complete(t *testing.T) {
	var seen map[string]any
	srv := newChatServer(t, http.StatusOK, `{"choices":[{"message":{"role":"assistant","content":"{\"ok\":true}"}}]}`, &seen)

	p, err := NewOpenAIProvider(context.Background(), "test-key", Settings{Endpoints: map[Kind]string{KindOpenAI: srv.URL}})
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), "score this")
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, out)

	assert.Equal(t, "gpt-4o-mini", seen["model"])
	assert.InDelta(t, 0.3, seen["temperature"], 1e-9)
	assert.Equal(t, map[string]any{"type": "json_object"}, seen["response_format"])

	messages, ok := seen["messages"].([]any)
	require.True(t, ok)
	require.Len(t, messages, 2)
	assert.Equal(t, map[string]any{"role": "system", "content": SystemPreamble}, messages[0])
	assert.Equal(t, map[string]any{"role": "user", "content": "score this"}, messages[1])
}

func TestQwenProvider_OmitsResponseFormat(t *testing.T) {
	var seen map[string]any
	srv := newChatServer(t, http.StatusOK, `{"choices":[{"message":{"content":"hi"}}]}`, &seen)

	p, err := NewQwenProvider(context.Background(), "test-key", Settings{Endpoints: map[Kind]string{KindQwen: srv.URL}})
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)
	assert.Equal(t, KindQwen, p.Kind())
	assert.Equal(t, "qwen-turbo", seen["model"])
	assert.NotContains(t, seen, "response_format")
}

func TestChatProvider_NoChoicesYieldsEmptyString(t *testing.T) {
	srv := newChatServer(t, http.StatusOK, `{"choices":[]}`, nil)

	p, err := NewOpenAIProvider(context.Background(), "test-key", Settings{Endpoints: map[Kind]string{KindOpenAI: srv.URL}})
	require.NoError(t, err)

	out, err := p.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestChatProvider_Non2xxIsProviderError(t *testing.T) {
	srv := newChatServer(t, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`, nil)

	p, err := NewOpenAIProvider(context.Background(), "test-key", Settings{
		Endpoints: map[Kind]string{KindOpenAI: srv.URL},
		Models:    map[Kind]string{KindOpenAI: "gpt-custom"},
	})
	require.NoError(t, err)
	assert.Equal(t, "gpt-custom", p.Model())

	_, err = p.Complete(context.Background(), "prompt")
	require.Error(t, err)

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, KindOpenAI, perr.Provider)
	assert.Equal(t, "401 Unauthorized", perr.Status)
	assert.Contains(t, perr.Body, "bad key")
	assert.Contains(t, err.Error(), "bad key")
}

func TestChatProvider_TransportErrorIsProviderError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	p, err := NewOpenAIProvider(context.Background(), "test-key", Settings{Endpoints: map[Kind]string{KindOpenAI: url}})
	require.NoError(t, err)

	_, err = p.Complete(context.Background(), "prompt")

	var perr *ProviderError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "transport error", perr.Status)
	assert.NotNil(t, perr.Unwrap())
}
