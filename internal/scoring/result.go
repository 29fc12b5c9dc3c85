package scoring

import (
	"time"

	"github.com/google/uuid"

	"github.com/fmuoria/resume-analyzer/internal/models"
)

var scoringKeys = []string{"skillsScore", "experienceScore", "educationScore"}

type scoringResponse struct {
	SkillsScore            flexFloat   `json:"skillsScore"`
	ExperienceScore        flexFloat   `json:"experienceScore"`
	EducationScore         flexFloat   `json:"educationScore"`
	MatchedSkills          flexStrings `json:"matchedSkills"`
	MissingSkills          flexStrings `json:"missingSkills"`
	TotalYearsExperience   flexFloat   `json:"totalYearsExperience"`
	NumberOfCompanies      flexFloat   `json:"numberOfCompanies"`
	AverageYearsPerCompany flexFloat   `json:"averageYearsPerCompany"`
	HasRelevantExperience  flexBool    `json:"hasRelevantExperience"`
	HasRequiredDegree      flexBool    `json:"hasRequiredDegree"`
	IsRelevantField        flexBool    `json:"isRelevantField"`
	ActualDegree           flexString  `json:"actualDegree"`
	ActualField            flexString  `json:"actualField"`
	Summary                flexString  `json:"summary"`
	Strengths              flexString  `json:"strengths"`
	Weaknesses             flexString  `json:"weaknesses"`
	CandidateName          flexString  `json:"candidateName"`
	CandidateEmail         flexString  `json:"candidateEmail"`
	CandidatePhone         flexString  `json:"candidatePhone"`
}

// DecodeResult builds an AnalysisResult for candidate from a scoring response.
// The total is computed locally from the sub-scores and req's weights.
func DecodeResult(jsonText string, candidate models.Candidate, req models.JobRequirement, now time.Time) (models.AnalysisResult, error) {
	var resp scoringResponse
	if err := decodeObject(jsonText, &resp, scoringKeys...); err != nil {
		return models.AnalysisResult{}, err
	}

	matched := []string(resp.MatchedSkills)
	if matched == nil {
		matched = []string{}
	}
	missing := []string(resp.MissingSkills)
	if missing == nil {
		missing = []string{}
	}

	skills := float64(resp.SkillsScore)
	experience := float64(resp.ExperienceScore)
	education := float64(resp.EducationScore)

	result := models.AnalysisResult{
		ID:              uuid.New(),
		CandidateID:     candidate.ID,
		SkillsScore:     skills,
		ExperienceScore: experience,
		EducationScore:  education,
		TotalScore:      ComputeTotal(skills, experience, education, req.Weights),
		SkillsAnalysis: models.SkillsAnalysis{
			MatchedSkills: matched,
			MissingSkills: missing,
			MatchedCount:  len(matched),
			RequiredCount: len(req.RequiredSkills),
		},
		ExperienceAnalysis: models.ExperienceAnalysis{
			TotalYearsOfExperience: float64(resp.TotalYearsExperience),
			RequiredYears:          req.MinYearsOfExperience,
			NumberOfCompanies:      float64(resp.NumberOfCompanies),
			AverageYearsPerCompany: float64(resp.AverageYearsPerCompany),
			HasRelevantExperience:  bool(resp.HasRelevantExperience),
		},
		EducationAnalysis: models.EducationAnalysis{
			HasRequiredDegree: bool(resp.HasRequiredDegree),
			IsRelevantField:   bool(resp.IsRelevantField),
			ActualDegree:      string(resp.ActualDegree),
			ActualField:       string(resp.ActualField),
		},
		AISummary:  string(resp.Summary),
		Strengths:  string(resp.Strengths),
		Weaknesses: string(resp.Weaknesses),
		AnalyzedAt: now,
	}

	// Identity comes from the scoring call only when parsing had nothing.
	if UseDirectPrompt(candidate) {
		result.CandidateName = resp.CandidateName.orEmptyNull()
		result.CandidateEmail = resp.CandidateEmail.orEmptyNull()
		result.CandidatePhone = resp.CandidatePhone.orEmptyNull()
	}

	return result, nil
}
