package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

const (
	openAIEndpoint = "https://api.openai.com/v1/chat/completions"
	openAIModel    = "gpt-4o-mini"

	qwenEndpoint = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	qwenModel    = "qwen-turbo"
)

// ChatProvider talks to OpenAI-compatible chat completion endpoints
type ChatProvider struct {
	kind      Kind
	apiKey    string
	endpoint  string
	model     string
	forceJSON bool
	httpDo    *http.Client
}

// NewOpenAIProvider creates an OpenAI provider that forces JSON responses
func NewOpenAIProvider(_ context.Context, apiKey string, s Settings) (Provider, error) {
	return &ChatProvider{
		kind:      KindOpenAI,
		apiKey:    apiKey,
		endpoint:  s.endpoint(KindOpenAI, openAIEndpoint),
		model:     s.model(KindOpenAI, openAIModel),
		forceJSON: true,
		httpDo:    s.httpClient(),
	}, nil
}

// NewQwenProvider creates a provider for DashScope's OpenAI-compatible mode.
// DashScope does not get a response_format hint.
func NewQwenProvider(_ context.Context, apiKey string, s Settings) (Provider, error) {
	return &ChatProvider{
		kind:     KindQwen,
		apiKey:   apiKey,
		endpoint: s.endpoint(KindQwen, qwenEndpoint),
		model:    s.model(KindQwen, qwenModel),
		httpDo:   s.httpClient(),
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Kind returns the provider kind
func (p *ChatProvider) Kind() Kind { return p.kind }

// Model returns the model name sent with each request
func (p *ChatProvider) Model() string { return p.model }

// Complete posts the prompt as a system+user conversation and returns the
// first choice's content, or "" when the response has no choices.
func (p *ChatProvider) Complete(ctx context.Context, prompt string) (string, error) {
	reqBody := chatRequest{
		Model: p.model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPreamble},
			{Role: "user", Content: prompt},
		},
		Temperature: defaultTemperature,
	}
	if p.forceJSON {
		reqBody.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal %s request: %w", p.kind, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to build %s request: %w", p.kind, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpDo.Do(httpReq)
	if err != nil {
		return "", &ProviderError{Provider: p.kind, Status: "transport error", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return "", &ProviderError{Provider: p.kind, Status: resp.Status, Body: string(body)}
	}

	var out chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", &ProviderError{Provider: p.kind, Status: "invalid response envelope", Err: err}
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return out.Choices[0].Message.Content, nil
}
