package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fmuoria/resume-analyzer/internal/models"
)

// ErrNotFound is returned when a session id is unknown
var ErrNotFound = errors.New("session not found")

type entry struct {
	mu         sync.Mutex
	createdAt  time.Time
	candidates []models.Candidate
	results    []models.AnalysisResult
}

// Store keeps sessions in memory. A store-level lock guards the map and each
// session carries its own lock, so work on different sessions never contends.
type Store struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*entry
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{sessions: make(map[uuid.UUID]*entry)}
}

func newEntry() *entry {
	return &entry{
		createdAt:  time.Now().UTC(),
		candidates: []models.Candidate{},
		results:    []models.AnalysisResult{},
	}
}

// Create starts a new empty session and returns its id
func (s *Store) Create() uuid.UUID {
	id := uuid.New()

	s.mu.Lock()
	s.sessions[id] = newEntry()
	s.mu.Unlock()

	return id
}

func (s *Store) lookup(id uuid.UUID) (*entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.sessions[id]
	return e, ok
}

func (s *Store) lookupOrCreate(id uuid.UUID) *entry {
	if e, ok := s.lookup(id); ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.sessions[id]
	if !ok {
		e = newEntry()
		s.sessions[id] = e
	}
	return e
}

// Get returns a copy of the session
func (s *Store) Get(id uuid.UUID) (models.Session, error) {
	e, ok := s.lookup(id)
	if !ok {
		return models.Session{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return models.Session{
		ID:         id,
		CreatedAt:  e.createdAt,
		Candidates: copyCandidates(e.candidates),
		Results:    copyResults(e.results),
	}, nil
}

// Exists reports whether the session is live
func (s *Store) Exists(id uuid.UUID) bool {
	_, ok := s.lookup(id)
	return ok
}

// Delete removes the session. Deleting an unknown session is a no-op.
func (s *Store) Delete(id uuid.UUID) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

// AppendCandidates adds candidates to the session, creating it when absent
func (s *Store) AppendCandidates(id uuid.UUID, candidates []models.Candidate) {
	e := s.lookupOrCreate(id)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.candidates = append(e.candidates, copyCandidates(candidates)...)
}

// ReplaceResults swaps the session's result list and attaches each result to
// its candidate. Candidates without a new result keep their previous one.
func (s *Store) ReplaceResults(id uuid.UUID, results []models.AnalysisResult) error {
	e, ok := s.lookup(id)
	if !ok {
		return ErrNotFound
	}

	byCandidate := make(map[uuid.UUID]models.AnalysisResult, len(results))
	for _, r := range results {
		byCandidate[r.CandidateID] = r
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.results = copyResults(results)
	for i := range e.candidates {
		if r, ok := byCandidate[e.candidates[i].ID]; ok {
			rc := copyResult(r)
			e.candidates[i].Analysis = &rc
		}
	}
	return nil
}

// Candidates returns the session's candidates, or an empty list for an unknown session
func (s *Store) Candidates(id uuid.UUID) []models.Candidate {
	e, ok := s.lookup(id)
	if !ok {
		return []models.Candidate{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return copyCandidates(e.candidates)
}

// Results returns the session's latest results, or an empty list for an unknown session
func (s *Store) Results(id uuid.UUID) []models.AnalysisResult {
	e, ok := s.lookup(id)
	if !ok {
		return []models.AnalysisResult{}
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return copyResults(e.results)
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func copyCandidates(in []models.Candidate) []models.Candidate {
	out := make([]models.Candidate, len(in))
	for i, c := range in {
		c.Skills = append([]models.Skill{}, c.Skills...)
		c.Experiences = append([]models.Experience{}, c.Experiences...)
		if c.Education != nil {
			ed := *c.Education
			c.Education = &ed
		}
		if c.Analysis != nil {
			r := copyResult(*c.Analysis)
			c.Analysis = &r
		}
		out[i] = c
	}
	return out
}

func copyResults(in []models.AnalysisResult) []models.AnalysisResult {
	out := make([]models.AnalysisResult, len(in))
	for i, r := range in {
		out[i] = copyResult(r)
	}
	return out
}

func copyResult(r models.AnalysisResult) models.AnalysisResult {
	r.SkillsAnalysis.MatchedSkills = append([]string{}, r.SkillsAnalysis.MatchedSkills...)
	r.SkillsAnalysis.MissingSkills = append([]string{}, r.SkillsAnalysis.MissingSkills...)
	return r
}
