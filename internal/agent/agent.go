package agent

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/fmuoria/resume-analyzer/internal/ingestion"
	"github.com/fmuoria/resume-analyzer/internal/llm"
	"github.com/fmuoria/resume-analyzer/internal/logger"
	"github.com/fmuoria/resume-analyzer/internal/models"
	"github.com/fmuoria/resume-analyzer/internal/scoring"
	"github.com/fmuoria/resume-analyzer/internal/session"
)

// DefaultConcurrency is the number of provider calls run in parallel when none is set
const DefaultConcurrency = 4

var (
	// ErrNotConfigured is returned when analysis is requested before a provider is configured
	ErrNotConfigured = fmt.Errorf("configure the LLM API key first: %w", llm.ErrNotConfigured)
	// ErrSessionNotFound is returned for unknown sessions
	ErrSessionNotFound = fmt.Errorf("analysis %w", session.ErrNotFound)
	// ErrNoCandidates is returned when a session holds nothing to analyse
	ErrNoCandidates = errors.New("no candidates to analyse, upload CVs first")
)

// LLM is the completion backend the agent works with
type LLM interface {
	scoring.Completer
	IsConfigured() bool
}

// ProgressCallback is called to report progress during processing
type ProgressCallback func(current, total int, message string)

// ResumeAgent orchestrates parsing, storage and scoring of résumés
type ResumeAgent struct {
	llm         LLM
	scorer      *scoring.Scorer
	store       *session.Store
	logger      *zap.Logger
	concurrency int

	mu         sync.RWMutex
	progressCb ProgressCallback
}

// NewResumeAgent creates a new agent. A concurrency below 1 uses DefaultConcurrency.
func NewResumeAgent(llmClient LLM, store *session.Store, log *zap.Logger, concurrency int) *ResumeAgent {
	if concurrency < 1 {
		concurrency = DefaultConcurrency
	}

	return &ResumeAgent{
		llm:         llmClient,
		scorer:      scoring.NewScorer(llmClient),
		store:       store,
		logger:      logger.OrNop(log),
		concurrency: concurrency,
	}
}

// SetProgressCallback sets the progress callback function
func (a *ResumeAgent) SetProgressCallback(cb ProgressCallback) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.progressCb = cb
}

// reportProgress calls the progress callback if set. The callback runs
// outside the lock so it may replace itself.
func (a *ResumeAgent) reportProgress(current, total int, message string) {
	a.mu.RLock()
	cb := a.progressCb
	a.mu.RUnlock()

	if cb != nil {
		cb(current, total, message)
	}
}

// CreateSession starts a new analysis session
func (a *ResumeAgent) CreateSession() uuid.UUID {
	id := a.store.Create()
	a.logger.Info("session created", zap.String(logger.FieldSession, id.String()))
	return id
}

// DeleteSession removes a session and everything in it
func (a *ResumeAgent) DeleteSession(id uuid.UUID) {
	a.store.Delete(id)
	a.logger.Info("session cleared", zap.String(logger.FieldSession, id.String()))
}

// SessionExists reports whether the session is known
func (a *ResumeAgent) SessionExists(id uuid.UUID) bool {
	return a.store.Exists(id)
}

// ParseCandidate turns résumé text into a candidate. Parsing is best effort:
// without a provider the candidate is returned bare, and any provider or
// decode failure yields an unparsed candidate that is scored from raw text.
func (a *ResumeAgent) ParseCandidate(ctx context.Context, rawText, fileName string) models.Candidate {
	if !a.llm.IsConfigured() {
		c := models.NewCandidate(fileName, rawText)
		c.Parsed = true
		return c
	}

	c, err := a.scorer.ParseResume(ctx, rawText, fileName)
	if err != nil {
		a.logger.Warn("resume parsing failed, falling back to raw text",
			zap.String("file", fileName),
			zap.Error(err))
	}
	return c
}

type uploadOutcome struct {
	candidate *models.Candidate
	err       string
}

// UploadCandidates extracts, parses and stores files in a session, creating
// the session when it does not exist. Per-file failures are reported in the
// summary and never abort the upload.
func (a *ResumeAgent) UploadCandidates(ctx context.Context, sessionID uuid.UUID, files []models.UploadedFile) models.UploadSummary {
	log := a.logger.With(zap.String(logger.FieldSession, sessionID.String()))
	log.Info("uploading files", zap.Int("count", len(files)))

	outcomes := make([]uploadOutcome, len(files))

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, f := range files {
		g.Go(func() error {
			outcomes[i] = a.ingest(ctx, f)
			return nil
		})
	}
	_ = g.Wait()

	summary := models.UploadSummary{
		SessionID:  sessionID,
		TotalFiles: len(files),
		Candidates: []models.CandidateView{},
		Errors:     []string{},
	}

	added := make([]models.Candidate, 0, len(files))
	for _, o := range outcomes {
		if o.candidate == nil {
			summary.FailedToUpload++
			summary.Errors = append(summary.Errors, o.err)
			continue
		}
		summary.SuccessfullyUploaded++
		added = append(added, *o.candidate)
		summary.Candidates = append(summary.Candidates, models.NewCandidateView(*o.candidate))
	}

	a.store.AppendCandidates(sessionID, added)

	log.Info("upload finished",
		zap.Int("uploaded", summary.SuccessfullyUploaded),
		zap.Int("failed", summary.FailedToUpload))
	return summary
}

func (a *ResumeAgent) ingest(ctx context.Context, f models.UploadedFile) uploadOutcome {
	if !ingestion.IsSupported(f.Name) {
		return uploadOutcome{err: fmt.Sprintf("unsupported file format: %s. Supported formats: %s",
			f.Name, strings.Join(ingestion.SupportedExtensions(), ", "))}
	}

	text, err := ingestion.ExtractText(f.Data, f.Name)
	if errors.Is(err, ingestion.ErrEmptyExtraction) {
		return uploadOutcome{err: fmt.Sprintf("could not extract text from file: %s", f.Name)}
	}
	if err != nil {
		a.logger.Warn("file processing failed", zap.String("file", f.Name), zap.Error(err))
		return uploadOutcome{err: fmt.Sprintf("error processing file (%s): %v", f.Name, err)}
	}

	c := a.ParseCandidate(ctx, text, f.Name)
	return uploadOutcome{candidate: &c}
}

// outcome is the result of scoring one candidate
type outcome struct {
	candidate models.Candidate
	result    models.AnalysisResult
	err       error
}

// tally aggregates the outcomes of a batch
type tally struct {
	succeeded int
	failed    int
	results   []models.AnalysisResult
	errors    []string
}

// reduceOutcomes folds per-candidate outcomes, given in candidate order, into
// counts, error messages and results sorted by total score descending. Ties
// keep candidate order.
func reduceOutcomes(outcomes []outcome) tally {
	t := tally{
		results: make([]models.AnalysisResult, 0, len(outcomes)),
		errors:  []string{},
	}

	for _, o := range outcomes {
		if o.err != nil {
			t.failed++
			t.errors = append(t.errors, fmt.Sprintf("error analysing candidate (%s): %v", o.candidate.DisplayName(), o.err))
			continue
		}
		t.succeeded++
		t.results = append(t.results, o.result)
	}

	sort.SliceStable(t.results, func(i, j int) bool {
		return t.results[i].TotalScore > t.results[j].TotalScore
	})

	return t
}

// AnalyzeBatch scores every candidate of a session against req and replaces
// the session's results. Candidates that fail are reported in the summary;
// only a missing provider, an unknown session or an empty session fail the call.
func (a *ResumeAgent) AnalyzeBatch(ctx context.Context, sessionID uuid.UUID, req models.JobRequirement) (models.BatchResult, error) {
	if !a.llm.IsConfigured() {
		return models.BatchResult{}, ErrNotConfigured
	}
	if !a.store.Exists(sessionID) {
		return models.BatchResult{}, ErrSessionNotFound
	}

	candidates := a.store.Candidates(sessionID)
	if len(candidates) == 0 {
		return models.BatchResult{}, ErrNoCandidates
	}

	log := a.logger.With(zap.String(logger.FieldSession, sessionID.String()))
	log.Info("analysing candidates", zap.Int("count", len(candidates)), zap.String("job_title", req.JobTitle))

	total := len(candidates)
	outcomes := make([]outcome, total)
	var progressMu sync.Mutex
	completed := 0

	var g errgroup.Group
	g.SetLimit(a.concurrency)
	for i, c := range candidates {
		g.Go(func() error {
			o := outcome{candidate: c}
			if err := ctx.Err(); err != nil {
				o.err = err
			} else {
				o.result, o.err = a.scorer.ScoreCandidate(ctx, c, req)
			}
			if o.err != nil {
				log.Warn("candidate analysis failed", zap.String("candidate", c.DisplayName()), zap.Error(o.err))
			}
			outcomes[i] = o

			progressMu.Lock()
			completed++
			a.reportProgress(completed, total, fmt.Sprintf("Analysed %s (%d/%d)", c.DisplayName(), completed, total))
			progressMu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return models.BatchResult{}, fmt.Errorf("analysis cancelled: %w", err)
	}

	t := reduceOutcomes(outcomes)

	if err := a.store.ReplaceResults(sessionID, t.results); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			return models.BatchResult{}, ErrSessionNotFound
		}
		return models.BatchResult{}, err
	}

	log.Info("analysis finished",
		zap.Int("succeeded", t.succeeded),
		zap.Int("failed", t.failed))

	return models.BatchResult{
		SessionID:            sessionID,
		TotalCandidates:      total,
		SuccessfullyAnalyzed: t.succeeded,
		FailedToAnalyze:      t.failed,
		Results:              joinResults(t.results, candidates),
		Errors:               t.errors,
		AnalyzedAt:           time.Now().UTC(),
	}, nil
}

// Candidates returns the session's candidates, or an empty list for an unknown session
func (a *ResumeAgent) Candidates(sessionID uuid.UUID) []models.CandidateView {
	return models.NewCandidateViews(a.store.Candidates(sessionID))
}

// Results returns the session's latest results, best first
func (a *ResumeAgent) Results(sessionID uuid.UUID) []models.ResultView {
	return joinResults(a.store.Results(sessionID), a.store.Candidates(sessionID))
}

// TopCandidates returns the n best results of the session
func (a *ResumeAgent) TopCandidates(sessionID uuid.UUID, n int) []models.ResultView {
	if n <= 0 {
		return []models.ResultView{}
	}

	results := a.Results(sessionID)
	if n < len(results) {
		results = results[:n]
	}
	return results
}

func joinResults(results []models.AnalysisResult, candidates []models.Candidate) []models.ResultView {
	byID := make(map[uuid.UUID]*models.Candidate, len(candidates))
	for i := range candidates {
		byID[candidates[i].ID] = &candidates[i]
	}

	views := make([]models.ResultView, 0, len(results))
	for _, r := range results {
		views = append(views, models.NewResultView(r, byID[r.CandidateID]))
	}
	return views
}
