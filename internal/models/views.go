package models

import (
	"time"

	"github.com/google/uuid"
)

// ExperienceView is the API projection of an Experience
type ExperienceView struct {
	Experience
	DurationInMonths int `json:"durationInMonths"`
}

// CandidateView is the API projection of a Candidate
type CandidateView struct {
	ID          uuid.UUID        `json:"id"`
	FullName    string           `json:"fullName"`
	Email       string           `json:"email"`
	Phone       string           `json:"phone"`
	FileName    string           `json:"fileName"`
	UploadedAt  time.Time        `json:"uploadedAt"`
	IsParsed    bool             `json:"isParsed"`
	Skills      []Skill          `json:"skills"`
	Experiences []ExperienceView `json:"experiences"`
	Education   *Education       `json:"education,omitempty"`
}

// NewCandidateView projects a candidate for API responses
func NewCandidateView(c Candidate) CandidateView {
	experiences := make([]ExperienceView, 0, len(c.Experiences))
	for _, e := range c.Experiences {
		experiences = append(experiences, ExperienceView{Experience: e, DurationInMonths: e.DurationInMonths()})
	}

	skills := c.Skills
	if skills == nil {
		skills = []Skill{}
	}

	return CandidateView{
		ID:          c.ID,
		FullName:    c.FullName,
		Email:       c.Email,
		Phone:       c.Phone,
		FileName:    c.FileName,
		UploadedAt:  c.UploadedAt,
		IsParsed:    c.Parsed,
		Skills:      skills,
		Experiences: experiences,
		Education:   c.Education,
	}
}

// NewCandidateViews projects a list of candidates
func NewCandidateViews(candidates []Candidate) []CandidateView {
	views := make([]CandidateView, 0, len(candidates))
	for _, c := range candidates {
		views = append(views, NewCandidateView(c))
	}
	return views
}

// SkillsAnalysisView adds the derived match percentage
type SkillsAnalysisView struct {
	SkillsAnalysis
	MatchPercentage float64 `json:"matchPercentage"`
}

// ResultView is an AnalysisResult joined with its candidate
type ResultView struct {
	ID                 uuid.UUID          `json:"id"`
	CandidateID        uuid.UUID          `json:"candidateId"`
	Candidate          *CandidateView     `json:"candidate,omitempty"`
	SkillsScore        float64            `json:"skillsScore"`
	ExperienceScore    float64            `json:"experienceScore"`
	EducationScore     float64            `json:"educationScore"`
	TotalScore         float64            `json:"totalScore"`
	SkillsAnalysis     SkillsAnalysisView `json:"skillsAnalysis"`
	ExperienceAnalysis ExperienceAnalysis `json:"experienceAnalysis"`
	EducationAnalysis  EducationAnalysis  `json:"educationAnalysis"`
	AISummary          string             `json:"aiSummary"`
	Strengths          string             `json:"strengths"`
	Weaknesses         string             `json:"weaknesses"`
	AnalyzedAt         time.Time          `json:"analyzedAt"`
}

// NewResultView joins a result with its candidate. Identity recovered by the
// scoring call fills in fields the parse step left empty.
func NewResultView(r AnalysisResult, c *Candidate) ResultView {
	view := ResultView{
		ID:                 r.ID,
		CandidateID:        r.CandidateID,
		SkillsScore:        r.SkillsScore,
		ExperienceScore:    r.ExperienceScore,
		EducationScore:     r.EducationScore,
		TotalScore:         r.TotalScore,
		SkillsAnalysis:     SkillsAnalysisView{SkillsAnalysis: r.SkillsAnalysis, MatchPercentage: r.SkillsAnalysis.MatchPercentage()},
		ExperienceAnalysis: r.ExperienceAnalysis,
		EducationAnalysis:  r.EducationAnalysis,
		AISummary:          r.AISummary,
		Strengths:          r.Strengths,
		Weaknesses:         r.Weaknesses,
		AnalyzedAt:         r.AnalyzedAt,
	}

	if c != nil {
		cv := NewCandidateView(*c)
		if cv.FullName == "" {
			cv.FullName = r.CandidateName
		}
		if cv.Email == "" {
			cv.Email = r.CandidateEmail
		}
		if cv.Phone == "" {
			cv.Phone = r.CandidatePhone
		}
		view.Candidate = &cv
	}

	return view
}

// Name returns the best known display name for the result
func (v ResultView) Name() string {
	if v.Candidate == nil {
		return ""
	}
	if v.Candidate.FullName != "" {
		return v.Candidate.FullName
	}
	return v.Candidate.FileName
}

// UploadSummary reports the outcome of an upload
type UploadSummary struct {
	SessionID            uuid.UUID       `json:"sessionId"`
	TotalFiles           int             `json:"totalFiles"`
	SuccessfullyUploaded int             `json:"successfullyUploaded"`
	FailedToUpload       int             `json:"failedToUpload"`
	Candidates           []CandidateView `json:"candidates"`
	Errors               []string        `json:"errors"`
}

// BatchResult reports the outcome of analysing a session
type BatchResult struct {
	SessionID            uuid.UUID    `json:"sessionId"`
	TotalCandidates      int          `json:"totalCandidates"`
	SuccessfullyAnalyzed int          `json:"successfullyAnalyzed"`
	FailedToAnalyze      int          `json:"failedToAnalyze"`
	Results              []ResultView `json:"results"`
	Errors               []string     `json:"errors"`
	AnalyzedAt           time.Time    `json:"analyzedAt"`
}
