package session

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fmuoria/resume-analyzer/internal/models"
)

func TestCreateAndGet(t *testing.T) {
	store := NewStore()
	id := store.Create()

	sess, err := store.Get(id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)
	assert.False(t, sess.CreatedAt.IsZero())
	assert.Empty(t, sess.Candidates)
	assert.Empty(t, sess.Results)
	assert.Equal(t, 1, store.Len())

	_, err = store.Get(uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	store := NewStore()
	id := store.Create()

	store.Delete(id)
	store.Delete(id)
	store.Delete(uuid.New())

	assert.False(t, store.Exists(id))
	assert.Equal(t, 0, store.Len())
}

func TestAppendCandidatesCreatesMissingSession(t *testing.T) {
	store := NewStore()
	id := uuid.New()

	store.AppendCandidates(id, []models.Candidate{models.NewCandidate("a.pdf", "a")})
	store.AppendCandidates(id, []models.Candidate{models.NewCandidate("b.pdf", "b")})

	require.True(t, store.Exists(id))
	candidates := store.Candidates(id)
	require.Len(t, candidates, 2)
	assert.Equal(t, "a.pdf", candidates[0].FileName)
	assert.Equal(t, "b.pdf", candidates[1].FileName)
}

func TestUnknownSessionListsAreEmpty(t *testing.T) {
	store := NewStore()

	assert.Equal(t, []models.Candidate{}, store.Candidates(uuid.New()))
	assert.Equal(t, []models.AnalysisResult{}, store.Results(uuid.New()))
}

func TestReplaceResults(t *testing.T) {
	store := NewStore()
	id := store.Create()

	a := models.NewCandidate("a.pdf", "a")
	b := models.NewCandidate("b.pdf", "b")
	store.AppendCandidates(id, []models.Candidate{a, b})

	first := []models.AnalysisResult{
		{ID: uuid.New(), CandidateID: a.ID, TotalScore: 50},
		{ID: uuid.New(), CandidateID: b.ID, TotalScore: 60},
	}
	require.NoError(t, store.ReplaceResults(id, first))

	second := []models.AnalysisResult{{ID: uuid.New(), CandidateID: a.ID, TotalScore: 90}}
	require.NoError(t, store.ReplaceResults(id, second))

	results := store.Results(id)
	require.Len(t, results, 1, "results are replaced, not appended")
	assert.Equal(t, 90.0, results[0].TotalScore)

	candidates := store.Candidates(id)
	require.NotNil(t, candidates[0].Analysis)
	assert.Equal(t, 90.0, candidates[0].Analysis.TotalScore)
	require.NotNil(t, candidates[1].Analysis)
	assert.Equal(t, 60.0, candidates[1].Analysis.TotalScore, "candidates outside the new results keep theirs")

	assert.ErrorIs(t, store.ReplaceResults(uuid.New(), second), ErrNotFound)
}

func TestReturnedDataIsACopy(t *testing.T) {
	store := NewStore()
	id := store.Create()

	c := models.NewCandidate("a.pdf", "a")
	c.Skills = []models.Skill{{Name: "Go"}}
	store.AppendCandidates(id, []models.Candidate{c})
	require.NoError(t, store.ReplaceResults(id, []models.AnalysisResult{{
		CandidateID:    c.ID,
		SkillsAnalysis: models.SkillsAnalysis{MatchedSkills: []string{"Go"}},
	}}))

	got := store.Candidates(id)
	got[0].FullName = "mutated"
	got[0].Skills[0].Name = "mutated"

	results := store.Results(id)
	results[0].SkillsAnalysis.MatchedSkills[0] = "mutated"

	sess, err := store.Get(id)
	require.NoError(t, err)
	assert.Empty(t, sess.Candidates[0].FullName)
	assert.Equal(t, "Go", sess.Candidates[0].Skills[0].Name)
	assert.Equal(t, "Go", sess.Results[0].SkillsAnalysis.MatchedSkills[0])
}

func TestConcurrentAccess(t *testing.T) {
	store := NewStore()
	ids := make([]uuid.UUID, 8)
	for i := range ids {
		ids[i] = store.Create()
	}

	var wg sync.WaitGroup
	for i, id := range ids {
		for j := 0; j < 25; j++ {
			wg.Add(1)
			go func(i, j int, id uuid.UUID) {
				defer wg.Done()
				c := models.NewCandidate(fmt.Sprintf("cv-%d-%d.txt", i, j), "raw")
				store.AppendCandidates(id, []models.Candidate{c})
				_ = store.ReplaceResults(id, []models.AnalysisResult{{CandidateID: c.ID}})
				_ = store.Candidates(id)
				_ = store.Results(id)
			}(i, j, id)
		}
	}
	wg.Wait()

	for _, id := range ids {
		assert.Len(t, store.Candidates(id), 25)
		assert.Len(t, store.Results(id), 1)
	}
	assert.Equal(t, 8, store.Len())
}
