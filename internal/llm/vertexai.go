package llm

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"cloud.google.com/go/vertexai/genai"
	"google.golang.org/api/option"
)

const defaultVertexLocation = "us-central1"

// VertexAIProvider wraps the Vertex AI Gemini API. Its "api key" is the path
// to a service account credentials file.
type VertexAIProvider struct {
	client    *genai.Client
	model     *genai.GenerativeModel
	modelName string
}

// NewVertexAIProvider creates a Vertex AI provider for the configured project
func NewVertexAIProvider(ctx context.Context, credentialsPath string, s Settings) (Provider, error) {
	projectID := strings.TrimSpace(s.VertexProject)
	if projectID == "" {
		projectID = os.Getenv("GOOGLE_CLOUD_PROJECT")
	}
	if projectID == "" {
		return nil, errors.New("vertex project is not set")
	}

	location := strings.TrimSpace(s.VertexLocation)
	if location == "" {
		location = defaultVertexLocation
	}

	if _, err := os.Stat(credentialsPath); err != nil {
		return nil, fmt.Errorf("google credentials file not found: %w", err)
	}

	opts := []option.ClientOption{option.WithCredentialsFile(credentialsPath)}
	if endpoint := s.endpoint(KindVertex, ""); endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := genai.NewClient(ctx, projectID, location, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vertex AI client: %w", err)
	}

	modelName := s.model(KindVertex, geminiModel)
	model := client.GenerativeModel(modelName)
	model.SetTemperature(defaultTemperature)
	model.ResponseMIMEType = "application/json"
	model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(SystemPreamble)}}

	return &VertexAIProvider{
		client:    client,
		model:     model,
		modelName: modelName,
	}, nil
}

// Kind returns the provider kind
func (v *VertexAIProvider) Kind() Kind { return KindVertex }

// Model returns the Gemini model name
func (v *VertexAIProvider) Model() string { return v.modelName }

// Complete sends a prompt to the model and returns the first candidate's text
func (v *VertexAIProvider) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := v.model.GenerateContent(ctx, genai.Text(prompt))
	if err != nil {
		return "", &ProviderError{Provider: KindVertex, Status: "request failed", Err: err}
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", nil
	}

	// Extract text from response
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}

	return sb.String(), nil
}

// Close closes the Vertex AI client
func (v *VertexAIProvider) Close() error {
	return v.client.Close()
}
