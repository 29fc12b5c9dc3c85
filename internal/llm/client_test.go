package llm

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubProvider struct {
	kind   Kind
	model  string
	reply  string
	err    error
	block   chan struct{}
	started chan struct{}
	closed  atomic.Bool
}

func (s *stubProvider) Kind() Kind    { return s.kind }
func (s *stubProvider) Model() string { return s.model }
func (s *stubProvider) Complete(_ context.Context, _ string) (string, error) {
	if s.started != nil {
		s.started <- struct{}{}
	}
	if s.block != nil {
		<-s.block
	}
	if s.closed.Load() {
		return "", errors.New("provider closed")
	}
	return s.reply, s.err
}
func (s *stubProvider) Close() error {
	s.closed.Store(true)
	return nil
}

func stubFactory(p *stubProvider) Factory {
	return func(_ context.Context, _ string, _ Settings) (Provider, error) {
		return p, nil
	}
}

func TestClient_UnconfiguredStatus(t *testing.T) {
	c := NewClient(Settings{Models: map[Kind]string{KindGemini: "gemini-custom"}}, KindGemini, zap.NewNop())

	assert.False(t, c.IsConfigured())
	assert.Equal(t, Status{CurrentProvider: "gemini", CurrentModel: "gemini-custom"}, c.Status())

	_, err := c.Complete(context.Background(), "prompt")
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestClient_Configure(t *testing.T) {
	c := NewClient(Settings{}, KindOpenAI, nil)
	stub := &stubProvider{kind: KindOpenAI, model: "gpt-test", reply: "done"}
	c.Register(KindOpenAI, stubFactory(stub))

	require.NoError(t, c.Configure(context.Background(), "", "key"))
	assert.True(t, c.IsConfigured())
	assert.Equal(t, Status{IsConfigured: true, CurrentProvider: "openai", CurrentModel: "gpt-test"}, c.Status())

	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "done", out)
}

func TestClient_ConfigureErrors(t *testing.T) {
	c := NewClient(Settings{}, KindOpenAI, nil)

	assert.ErrorIs(t, c.Configure(context.Background(), KindOpenAI, "   "), ErrEmptyAPIKey)
	assert.ErrorIs(t, c.Configure(context.Background(), Kind("claude"), "key"), ErrUnknownProvider)

	c.Register(KindQwen, func(context.Context, string, Settings) (Provider, error) {
		return nil, errors.New("boom")
	})
	err := c.Configure(context.Background(), KindQwen, "key")
	assert.ErrorContains(t, err, "boom")
	assert.False(t, c.IsConfigured())
}

func TestClient_ReconfigureClosesPrevious(t *testing.T) {
	c := NewClient(Settings{}, KindOpenAI, nil)
	first := &stubProvider{kind: KindOpenAI}
	second := &stubProvider{kind: KindQwen}
	c.Register(KindOpenAI, stubFactory(first))
	c.Register(KindQwen, stubFactory(second))

	require.NoError(t, c.Configure(context.Background(), KindOpenAI, "a"))
	require.NoError(t, c.Configure(context.Background(), KindQwen, "b"))

	assert.Eventually(t, first.closed.Load, time.Second, 10*time.Millisecond)
	assert.Equal(t, "qwen", c.Status().CurrentProvider)

	require.NoError(t, c.Close())
	assert.True(t, second.closed.Load())
	assert.False(t, c.IsConfigured())
}

func TestClient_ReconfigureWaitsForInFlightCalls(t *testing.T) {
	c := NewClient(Settings{}, KindOpenAI, nil)
	first := &stubProvider{kind: KindOpenAI, reply: "first", block: make(chan struct{}), started: make(chan struct{}, 1)}
	second := &stubProvider{kind: KindQwen, reply: "second"}
	c.Register(KindOpenAI, stubFactory(first))
	c.Register(KindQwen, stubFactory(second))
	require.NoError(t, c.Configure(context.Background(), KindOpenAI, "a"))

	type reply struct {
		out string
		err error
	}
	done := make(chan reply, 1)
	go func() {
		out, err := c.Complete(context.Background(), "prompt")
		done <- reply{out, err}
	}()

	<-first.started

	require.NoError(t, c.Configure(context.Background(), KindQwen, "b"))
	time.Sleep(20 * time.Millisecond)
	assert.False(t, first.closed.Load(), "closed while a call was running")

	close(first.block)
	got := <-done
	require.NoError(t, got.err)
	assert.Equal(t, "first", got.out)
	assert.Eventually(t, first.closed.Load, time.Second, 10*time.Millisecond)

	out, err := c.Complete(context.Background(), "prompt")
	require.NoError(t, err)
	assert.Equal(t, "second", out)
}

func TestClient_CompletePropagatesProviderError(t *testing.T) {
	c := NewClient(Settings{}, KindOpenAI, nil)
	perr := &ProviderError{Provider: KindOpenAI, Status: "500 Internal Server Error", Body: "oops"}
	c.Register(KindOpenAI, stubFactory(&stubProvider{kind: KindOpenAI, err: perr}))
	require.NoError(t, c.Configure(context.Background(), KindOpenAI, "key"))

	_, err := c.Complete(context.Background(), "prompt")

	var got *ProviderError
	require.ErrorAs(t, err, &got)
	assert.Equal(t, "openai request failed: 500 Internal Server Error: oops", got.Error())
}

func TestParseKind(t *testing.T) {
	tests := []struct {
		in      string
		want    Kind
		wantErr bool
	}{
		{"OpenAI", KindOpenAI, false},
		{" gemini ", KindGemini, false},
		{"QWEN", KindQwen, false},
		{"vertex", KindVertex, false},
		{"anthropic", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseKind(tt.in)
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrUnknownProvider)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultModel(t *testing.T) {
	assert.Equal(t, "gpt-4o-mini", DefaultModel(KindOpenAI))
	assert.Equal(t, "gemini-2.0-flash", DefaultModel(KindGemini))
	assert.Equal(t, "qwen-turbo", DefaultModel(KindQwen))
	assert.Equal(t, "gemini-2.0-flash", DefaultModel(KindVertex))
}

func TestNewVertexAIProvider_RequiresProject(t *testing.T) {
	t.Setenv("GOOGLE_CLOUD_PROJECT", "")

	_, err := NewVertexAIProvider(context.Background(), "creds.json", Settings{})
	assert.ErrorContains(t, err, "vertex project is not set")

	_, err = NewVertexAIProvider(context.Background(), "/does/not/exist.json", Settings{VertexProject: "p"})
	assert.ErrorContains(t, err, "credentials file not found")
}
