package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"
)

const geminiModel = "gemini-2.0-flash"

// GeminiProvider uses the Gemini API through the Google GenAI SDK
type GeminiProvider struct {
	client *genai.Client
	model  string
}

// NewGeminiProvider creates a Gemini API provider. An endpoint override
// replaces the SDK's base URL.
func NewGeminiProvider(ctx context.Context, apiKey string, s Settings) (Provider, error) {
	timeout := s.timeout()
	cfg := &genai.ClientConfig{
		APIKey:     apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: s.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: s.endpoint(KindGemini, ""),
			Timeout: &timeout,
		},
	}

	client, err := genai.NewClient(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	return &GeminiProvider{client: client, model: s.model(KindGemini, geminiModel)}, nil
}

// Kind returns the provider kind
func (g *GeminiProvider) Kind() Kind { return KindGemini }

// Model returns the Gemini model name
func (g *GeminiProvider) Model() string { return g.model }

// Complete sends the preamble and prompt as one user message and returns the
// first part of the first candidate.
func (g *GeminiProvider) Complete(ctx context.Context, prompt string) (string, error) {
	// GenerateContent fills defaults into the config, so build one per call.
	config := &genai.GenerateContentConfig{
		Temperature:      genai.Ptr[float32](defaultTemperature),
		ResponseMIMEType: "application/json",
	}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(SystemPreamble+"\n\n"+prompt), config)
	if err != nil {
		var apiErr genai.APIError
		if errors.As(err, &apiErr) {
			return "", &ProviderError{
				Provider: KindGemini,
				Status:   strings.TrimSpace(fmt.Sprintf("%d %s", apiErr.Code, apiErr.Status)),
				Body:     apiErr.Message,
				Err:      err,
			}
		}
		return "", &ProviderError{Provider: KindGemini, Status: "transport error", Err: err}
	}

	return firstCandidateText(resp), nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 {
		return ""
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return ""
	}
	part := candidate.Content.Parts[0]
	if part == nil {
		return ""
	}
	return part.Text
}
