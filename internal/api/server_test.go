package api

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/fmuoria/resume-analyzer/internal/agent"
	"github.com/fmuoria/resume-analyzer/internal/llm"
	"github.com/fmuoria/resume-analyzer/internal/session"
)

func newObservedApp(t *testing.T, opts Options) (*observer.ObservedLogs, func(*http.Request) int) {
	t.Helper()

	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	client := llm.NewClient(llm.Settings{}, llm.KindOpenAI, zap.NewNop())
	a := agent.NewResumeAgent(client, session.NewStore(), zap.NewNop(), 1)
	app := NewApp(NewHandler(a, client, nil, zap.NewNop()), opts, log)

	return logs, func(req *http.Request) int {
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		defer resp.Body.Close()
		return resp.StatusCode
	}
}

func TestRequestLogger(t *testing.T) {
	logs, do := newObservedApp(t, Options{})

	require.Equal(t, http.StatusOK, do(httptest.NewRequest(http.MethodGet, "/health", nil)))
	require.Equal(t, http.StatusNotFound, do(httptest.NewRequest(http.MethodGet, "/nowhere", nil)))

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, 2)

	fields := entries[0].ContextMap()
	assert.Equal(t, "GET", fields["method"])
	assert.Equal(t, "/health", fields["path"])
	assert.EqualValues(t, http.StatusOK, fields["status"])
	assert.Contains(t, fields, "latency")
	assert.Contains(t, fields, "ip")

	second := entries[1].ContextMap()
	assert.Equal(t, "/nowhere", second["path"])
	assert.EqualValues(t, http.StatusNotFound, second["status"])
}

func TestRequestLoggerKeepsPathsAcrossRequests(t *testing.T) {
	logs, do := newObservedApp(t, Options{})

	paths := []string{"/health", "/api/resume/llm-status", "/x", "/api/resume/results/not-a-uuid"}
	for _, p := range paths {
		do(httptest.NewRequest(http.MethodGet, p, nil))
	}

	entries := logs.FilterMessage("http request").All()
	require.Len(t, entries, len(paths))
	for i, p := range paths {
		assert.Equal(t, p, entries[i].ContextMap()["path"])
	}
}

func TestNewAppBodyLimit(t *testing.T) {
	client := llm.NewClient(llm.Settings{}, llm.KindOpenAI, zap.NewNop())
	h := NewHandler(nil, client, nil, nil)

	assert.Equal(t, DefaultBodyLimit, NewApp(h, Options{}, nil).Config().BodyLimit)
	assert.Equal(t, 1024, NewApp(h, Options{BodyLimit: 1024}, nil).Config().BodyLimit)
}

func TestCORS(t *testing.T) {
	_, do := newObservedApp(t, Options{AllowOrigins: "http://localhost:5173"})

	req := httptest.NewRequest(http.MethodOptions, "/api/resume/session", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)

	assert.Equal(t, http.StatusNoContent, do(req))
}

func TestRecoverFromPanic(t *testing.T) {
	// A nil agent makes the session handler panic.
	client := llm.NewClient(llm.Settings{}, llm.KindOpenAI, zap.NewNop())
	app := NewApp(NewHandler(nil, client, nil, nil), Options{}, nil)

	resp, err := app.Test(httptest.NewRequest(http.MethodPost, "/api/resume/session", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
}
