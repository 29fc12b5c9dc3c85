package scoring

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/fmuoria/resume-analyzer/internal/llm"
	"github.com/fmuoria/resume-analyzer/internal/models"
)

// Completer turns a prompt into a model completion
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// Scorer parses and scores candidates using an LLM
type Scorer struct {
	llm Completer
	now func() time.Time
}

// NewScorer creates a new scorer instance
func NewScorer(llmClient Completer) *Scorer {
	return &Scorer{
		llm: llmClient,
		now: func() time.Time { return time.Now().UTC() },
	}
}

// ComputeTotal combines the sub-scores using the weights as percentages and
// rounds to two decimals. Neither inputs nor weights are validated.
func ComputeTotal(skillsScore, experienceScore, educationScore float64, w models.Weights) float64 {
	total := skillsScore*float64(w.Skills)/100 +
		experienceScore*float64(w.Experience)/100 +
		educationScore*float64(w.Education)/100
	return math.Round(total*100) / 100
}

// ParseResume asks the model for the structured fields of rawText. The
// returned candidate is always usable; err reports why it is unparsed.
func (s *Scorer) ParseResume(ctx context.Context, rawText, fileName string) (models.Candidate, error) {
	candidate := models.NewCandidate(fileName, rawText)

	response, err := s.llm.Complete(ctx, BuildParsePrompt(rawText))
	if err != nil {
		return candidate, fmt.Errorf("failed to get LLM response: %w", err)
	}

	if err := DecodeResume(llm.ExtractJSON(response), &candidate); err != nil {
		return candidate, fmt.Errorf("failed to parse resume: %w", err)
	}

	return candidate, nil
}

// ScoreCandidate evaluates a candidate against a job requirement
func (s *Scorer) ScoreCandidate(ctx context.Context, candidate models.Candidate, req models.JobRequirement) (models.AnalysisResult, error) {
	response, err := s.llm.Complete(ctx, BuildPromptFor(candidate, req))
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("failed to get LLM response: %w", err)
	}

	result, err := DecodeResult(llm.ExtractJSON(response), candidate, req, s.now())
	if err != nil {
		return models.AnalysisResult{}, fmt.Errorf("failed to parse scores: %w", err)
	}

	return result, nil
}
