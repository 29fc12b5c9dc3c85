package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind identifies an LLM provider
type Kind string

const (
	KindOpenAI Kind = "openai"
	KindGemini Kind = "gemini"
	KindQwen   Kind = "qwen"
	KindVertex Kind = "vertex"
)

// SystemPreamble is sent ahead of every prompt
const SystemPreamble = "You are a CV analysis expert. Respond only in JSON format."

const (
	defaultTemperature = 0.3
	defaultTimeout     = 60 * time.Second
	maxErrorBodyBytes  = 64 << 10
)

var (
	// ErrNotConfigured is returned when no provider has been configured
	ErrNotConfigured = errors.New("llm provider is not configured")
	// ErrEmptyAPIKey is returned when Configure is called without a key
	ErrEmptyAPIKey = errors.New("api key is required")
	// ErrUnknownProvider is returned for provider kinds with no registered factory
	ErrUnknownProvider = errors.New("unknown llm provider")
)

// Provider is a single LLM backend able to turn a prompt into a text completion
type Provider interface {
	Kind() Kind
	Model() string
	Complete(ctx context.Context, prompt string) (string, error)
}

// Factory builds a Provider for an API key
type Factory func(ctx context.Context, apiKey string, settings Settings) (Provider, error)

// Settings carries per-provider overrides shared by all factories
type Settings struct {
	Timeout   time.Duration
	Models    map[Kind]string
	Endpoints map[Kind]string

	VertexProject  string
	VertexLocation string

	// HTTPClient is used by HTTP based providers when set
	HTTPClient *http.Client
}

func (s Settings) model(kind Kind, fallback string) string {
	if m := strings.TrimSpace(s.Models[kind]); m != "" {
		return m
	}
	return fallback
}

func (s Settings) endpoint(kind Kind, fallback string) string {
	if e := strings.TrimSpace(s.Endpoints[kind]); e != "" {
		return e
	}
	return fallback
}

func (s Settings) timeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return defaultTimeout
}

func (s Settings) httpClient() *http.Client {
	if s.HTTPClient != nil {
		return s.HTTPClient
	}
	return &http.Client{Timeout: s.timeout()}
}

// DefaultModel returns the model a kind uses when no override is configured
func DefaultModel(kind Kind) string {
	switch kind {
	case KindOpenAI:
		return openAIModel
	case KindGemini, KindVertex:
		return geminiModel
	case KindQwen:
		return qwenModel
	}
	return ""
}

// ParseKind converts a provider name to a Kind, ignoring case
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindOpenAI, KindGemini, KindQwen, KindVertex:
		return k, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownProvider, s)
}

// DefaultFactories returns the built-in provider factories
func DefaultFactories() map[Kind]Factory {
	return map[Kind]Factory{
		KindOpenAI: NewOpenAIProvider,
		KindQwen:   NewQwenProvider,
		KindGemini: NewGeminiProvider,
		KindVertex: NewVertexAIProvider,
	}
}

// ProviderError describes a failed provider call
type ProviderError struct {
	Provider Kind
	Status   string // HTTP status or a short reason for transport failures
	Body     string
	Err      error
}

func (e *ProviderError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s request failed: %s", e.Provider, e.Status))
	if e.Body != "" {
		sb.WriteString(": ")
		sb.WriteString(e.Body)
	} else if e.Err != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Err.Error())
	}
	return sb.String()
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}
