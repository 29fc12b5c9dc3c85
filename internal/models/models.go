package models

import (
	"time"

	"github.com/google/uuid"
)

// Default scoring weights applied when a requirement omits them
const (
	DefaultSkillsWeight     = 40
	DefaultExperienceWeight = 40
	DefaultEducationWeight  = 20
)

// Skill is a single skill extracted from a résumé
type Skill struct {
	Name              string `json:"name"`
	YearsOfExperience int    `json:"yearsOfExperience"`
	Level             string `json:"level"` // Beginner/Intermediate/Advanced/Expert, not validated
}

// Experience is one position held by a candidate
type Experience struct {
	CompanyName string     `json:"companyName"`
	Position    string     `json:"position"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     *time.Time `json:"endDate,omitempty"`
	Description string     `json:"description"`
	IsCurrent   bool       `json:"isCurrent"`
}

// DurationInMonths returns the approximate length of the position up to now
func (e Experience) DurationInMonths() int {
	return e.MonthsUntil(time.Now().UTC())
}

// MonthsUntil returns the approximate length of the position, using now when
// the position has no end date. A month is counted as 30 days.
func (e Experience) MonthsUntil(now time.Time) int {
	end := now
	if e.EndDate != nil {
		end = *e.EndDate
	}
	// Unix seconds avoid time.Duration overflow for sentinel start dates.
	days := (end.Unix() - e.StartDate.Unix()) / 86400
	return int(days / 30)
}

// Education is the highest education entry of a candidate
type Education struct {
	Institution    string   `json:"institution"`
	Degree         string   `json:"degree"`
	FieldOfStudy   string   `json:"fieldOfStudy"`
	GraduationYear *int     `json:"graduationYear,omitempty"`
	GPA            *float64 `json:"gpa,omitempty"`
}

// Candidate holds one résumé's extracted or raw data
type Candidate struct {
	ID          uuid.UUID       `json:"id"`
	FullName    string          `json:"fullName"`
	Email       string          `json:"email"`
	Phone       string          `json:"phone"`
	FileName    string          `json:"fileName"`
	RawContent  string          `json:"-"`
	Parsed      bool            `json:"isParsed"`
	Skills      []Skill         `json:"skills"`
	Experiences []Experience    `json:"experiences"`
	Education   *Education      `json:"education,omitempty"`
	UploadedAt  time.Time       `json:"uploadedAt"`
	Analysis    *AnalysisResult `json:"-"`
}

// NewCandidate creates a bare candidate for a file
func NewCandidate(fileName, rawContent string) Candidate {
	return Candidate{
		ID:          uuid.New(),
		FileName:    fileName,
		RawContent:  rawContent,
		Skills:      []Skill{},
		Experiences: []Experience{},
		UploadedAt:  time.Now().UTC(),
	}
}

// TotalExperienceMonths sums the duration of every position
func (c Candidate) TotalExperienceMonths() int {
	total := 0
	for _, e := range c.Experiences {
		total += e.DurationInMonths()
	}
	return total
}

// DisplayName returns the full name, falling back to the file name
func (c Candidate) DisplayName() string {
	if c.FullName != "" {
		return c.FullName
	}
	return c.FileName
}

// Weights are the scoring multipliers for the three sub-scores.
// They should sum to 100 but are used as given.
type Weights struct {
	Skills     int `json:"skillsWeight"`
	Experience int `json:"experienceWeight"`
	Education  int `json:"educationWeight"`
}

// JobRequirement describes the position candidates are scored against
type JobRequirement struct {
	JobTitle               string   `json:"jobTitle"`
	Description            string   `json:"description"`
	RequiredSkills         []string `json:"requiredSkills"`
	PreferredSkills        []string `json:"preferredSkills"`
	MinYearsOfExperience   int      `json:"minYearsOfExperience" validate:"gte=0"`
	MaxYearsOfExperience   *int     `json:"maxYearsOfExperience,omitempty"`
	RequiredDegree         string   `json:"requiredDegree"`
	PreferredFieldsOfStudy []string `json:"preferredFieldsOfStudy"`
	Weights
}

// DefaultJobRequirement returns an empty requirement with the default weights
func DefaultJobRequirement() JobRequirement {
	return JobRequirement{
		RequiredSkills:         []string{},
		PreferredSkills:        []string{},
		PreferredFieldsOfStudy: []string{},
		Weights: Weights{
			Skills:     DefaultSkillsWeight,
			Experience: DefaultExperienceWeight,
			Education:  DefaultEducationWeight,
		},
	}
}

// SkillsAnalysis compares the candidate's skills with the required ones
type SkillsAnalysis struct {
	MatchedSkills []string `json:"matchedSkills"`
	MissingSkills []string `json:"missingSkills"`
	MatchedCount  int      `json:"matchedCount"`
	RequiredCount int      `json:"requiredCount"`
}

// MatchPercentage returns matched/required as a percentage, 0 when nothing is required
func (s SkillsAnalysis) MatchPercentage() float64 {
	if s.RequiredCount <= 0 {
		return 0
	}
	return float64(s.MatchedCount) / float64(s.RequiredCount) * 100
}

// ExperienceAnalysis summarises the candidate's work history
type ExperienceAnalysis struct {
	TotalYearsOfExperience float64 `json:"totalYearsOfExperience"`
	RequiredYears          int     `json:"requiredYears"`
	NumberOfCompanies      float64 `json:"numberOfCompanies"`
	AverageYearsPerCompany float64 `json:"averageYearsPerCompany"`
	HasRelevantExperience  bool    `json:"hasRelevantExperience"`
}

// EducationAnalysis compares the candidate's education with the requirement
type EducationAnalysis struct {
	HasRequiredDegree bool   `json:"hasRequiredDegree"`
	IsRelevantField   bool   `json:"isRelevantField"`
	ActualDegree      string `json:"actualDegree"`
	ActualField       string `json:"actualField"`
}

// AnalysisResult is the outcome of scoring one candidate
type AnalysisResult struct {
	ID                 uuid.UUID          `json:"id"`
	CandidateID        uuid.UUID          `json:"candidateId"`
	SkillsScore        float64            `json:"skillsScore"`
	ExperienceScore    float64            `json:"experienceScore"`
	EducationScore     float64            `json:"educationScore"`
	TotalScore         float64            `json:"totalScore"`
	SkillsAnalysis     SkillsAnalysis     `json:"skillsAnalysis"`
	ExperienceAnalysis ExperienceAnalysis `json:"experienceAnalysis"`
	EducationAnalysis  EducationAnalysis  `json:"educationAnalysis"`
	AISummary          string             `json:"aiSummary"`
	Strengths          string             `json:"strengths"`
	Weaknesses         string             `json:"weaknesses"`

	// Only set when the candidate could not be parsed and identity was
	// recovered from the scoring response.
	CandidateName  string `json:"candidateName,omitempty"`
	CandidateEmail string `json:"candidateEmail,omitempty"`
	CandidatePhone string `json:"candidatePhone,omitempty"`

	AnalyzedAt time.Time `json:"analyzedAt"`
}

// Session is a caller-scoped bucket of candidates and their latest results
type Session struct {
	ID         uuid.UUID        `json:"sessionId"`
	CreatedAt  time.Time        `json:"createdAt"`
	Candidates []Candidate      `json:"candidates"`
	Results    []AnalysisResult `json:"results"`
}

// UploadedFile is a document received from any ingestion source
type UploadedFile struct {
	Name string
	Data []byte
}
