package scoring

import (
	"fmt"
	"strings"

	"github.com/fmuoria/resume-analyzer/internal/models"
)

const notSpecified = "Not specified"

// UseDirectPrompt reports whether scoring must work from the raw résumé text
func UseDirectPrompt(c models.Candidate) bool {
	return !c.Parsed || c.FullName == ""
}

// BuildPromptFor picks the scoring prompt variant for a candidate
func BuildPromptFor(c models.Candidate, req models.JobRequirement) string {
	if UseDirectPrompt(c) {
		return BuildDirectScoringPrompt(c.RawContent, req)
	}
	return BuildScoringPrompt(c, req)
}

// BuildParsePrompt creates the prompt that turns résumé text into structured data
func BuildParsePrompt(rawText string) string {
	var sb strings.Builder

	sb.WriteString("Analyse the following CV content and extract it as JSON.\n\n")

	sb.WriteString("CV Content:\n")
	sb.WriteString(rawText)
	sb.WriteString("\n\n")

	sb.WriteString("Response format (JSON):\n")
	sb.WriteString("{\n")
	sb.WriteString(`    "fullName": "Candidate's full name",` + "\n")
	sb.WriteString(`    "email": "Email address",` + "\n")
	sb.WriteString(`    "phone": "Phone number",` + "\n")
	sb.WriteString(`    "skills": [` + "\n")
	sb.WriteString(`        {` + "\n")
	sb.WriteString(`            "name": "Skill name",` + "\n")
	sb.WriteString(`            "yearsOfExperience": 0,` + "\n")
	sb.WriteString(`            "level": "Beginner/Intermediate/Advanced/Expert"` + "\n")
	sb.WriteString(`        }` + "\n")
	sb.WriteString(`    ],` + "\n")
	sb.WriteString(`    "experiences": [` + "\n")
	sb.WriteString(`        {` + "\n")
	sb.WriteString(`            "companyName": "Company name",` + "\n")
	sb.WriteString(`            "position": "Position",` + "\n")
	sb.WriteString(`            "startDate": "YYYY-MM",` + "\n")
	sb.WriteString(`            "endDate": "YYYY-MM or null (if ongoing)",` + "\n")
	sb.WriteString(`            "description": "Short description",` + "\n")
	sb.WriteString(`            "isCurrent": true/false` + "\n")
	sb.WriteString(`        }` + "\n")
	sb.WriteString(`    ],` + "\n")
	sb.WriteString(`    "education": {` + "\n")
	sb.WriteString(`        "institution": "School name",` + "\n")
	sb.WriteString(`        "degree": "Bachelor/Master/PhD",` + "\n")
	sb.WriteString(`        "fieldOfStudy": "Field of study",` + "\n")
	sb.WriteString(`        "graduationYear": 2020,` + "\n")
	sb.WriteString(`        "gpa": null` + "\n")
	sb.WriteString(`    }` + "\n")
	sb.WriteString("}")

	return sb.String()
}

// BuildScoringPrompt creates the scoring prompt from a parsed candidate
func BuildScoringPrompt(c models.Candidate, req models.JobRequirement) string {
	var sb strings.Builder

	skillNames := make([]string, 0, len(c.Skills))
	for _, s := range c.Skills {
		skillNames = append(skillNames, s.Name)
	}
	totalYears := float64(c.TotalExperienceMonths()) / 12.0

	degree, field := notSpecified, notSpecified
	if c.Education != nil {
		degree = orNotSpecified(c.Education.Degree)
		field = orNotSpecified(c.Education.FieldOfStudy)
	}

	sb.WriteString("Analyse the following candidate against the job requirements and score them.\n\n")

	sb.WriteString("## Candidate Information\n")
	sb.WriteString(fmt.Sprintf("- Name: %s\n", c.FullName))
	sb.WriteString(fmt.Sprintf("- Skills: %s\n", strings.Join(skillNames, ", ")))
	sb.WriteString(fmt.Sprintf("- Total Experience: %.1f years\n", totalYears))
	sb.WriteString(fmt.Sprintf("- Number of Companies: %d\n", len(c.Experiences)))
	sb.WriteString(fmt.Sprintf("- Education: %s - %s\n\n", degree, field))

	writeRequirement(&sb, req)

	sb.WriteString("Response format (JSON):\n")
	sb.WriteString("{\n")
	writeScoringFields(&sb)
	sb.WriteString("}\n\n")

	sb.WriteString("Scoring rules:\n")
	sb.WriteString("- skillsScore: How many of the required skills does the candidate have? (matchedSkills.count / requiredSkills.count * 100)\n")
	sb.WriteString("- experienceScore: 100 if the years of experience are sufficient, otherwise proportional\n")
	sb.WriteString("- educationScore: Based on degree level and field relevance")

	return sb.String()
}

// BuildDirectScoringPrompt creates the scoring prompt from raw résumé text.
// The model is also asked to extract the candidate's identity.
func BuildDirectScoringPrompt(rawText string, req models.JobRequirement) string {
	var sb strings.Builder

	sb.WriteString("Read the following CV content, extract the candidate's details and analyse them against the job requirements.\n\n")

	sb.WriteString("## CV Content (Raw Text)\n")
	sb.WriteString(rawText)
	sb.WriteString("\n\n")

	writeRequirement(&sb, req)

	sb.WriteString("Extract the following details from the CV content and score them against the job requirements.\n")
	sb.WriteString("Respond ONLY in JSON format, write nothing else:\n\n")
	sb.WriteString("{\n")
	sb.WriteString(`    "candidateName": "candidate's full name",` + "\n")
	sb.WriteString(`    "candidateEmail": "email address or null",` + "\n")
	sb.WriteString(`    "candidatePhone": "phone number or null",` + "\n")
	writeScoringFields(&sb)
	sb.WriteString("}\n\n")

	sb.WriteString("Scoring rules:\n")
	sb.WriteString("- skillsScore: How many required skills appear in the CV? matched count / required skill count * 100\n")
	sb.WriteString("- experienceScore: 100 if the years of experience are sufficient, otherwise proportional (candidate_years / required_years * 100)\n")
	sb.WriteString("- educationScore: 0-100 based on degree level and field relevance")

	return sb.String()
}

func writeRequirement(sb *strings.Builder, req models.JobRequirement) {
	maxYears := notSpecified
	if req.MaxYearsOfExperience != nil {
		maxYears = fmt.Sprintf("%d", *req.MaxYearsOfExperience)
	}

	sb.WriteString("## Job Requirements\n")
	sb.WriteString(fmt.Sprintf("- Position: %s\n", req.JobTitle))
	sb.WriteString(fmt.Sprintf("- Description: %s\n", req.Description))
	sb.WriteString(fmt.Sprintf("- Required Skills: %s\n", strings.Join(req.RequiredSkills, ", ")))
	sb.WriteString(fmt.Sprintf("- Preferred Skills: %s\n", strings.Join(req.PreferredSkills, ", ")))
	sb.WriteString(fmt.Sprintf("- Minimum Experience: %d years\n", req.MinYearsOfExperience))
	sb.WriteString(fmt.Sprintf("- Maximum Experience: %s years\n", maxYears))
	sb.WriteString(fmt.Sprintf("- Required Degree: %s\n", req.RequiredDegree))
	sb.WriteString(fmt.Sprintf("- Preferred Fields of Study: %s\n\n", strings.Join(req.PreferredFieldsOfStudy, ", ")))

	sb.WriteString("## Scoring Weights\n")
	sb.WriteString(fmt.Sprintf("- Skills Weight: %%%d\n", req.Skills))
	sb.WriteString(fmt.Sprintf("- Experience Weight: %%%d\n", req.Experience))
	sb.WriteString(fmt.Sprintf("- Education Weight: %%%d\n\n", req.Education))
}

func writeScoringFields(sb *strings.Builder) {
	sb.WriteString(`    "skillsScore": score between 0-100,` + "\n")
	sb.WriteString(`    "experienceScore": score between 0-100,` + "\n")
	sb.WriteString(`    "educationScore": score between 0-100,` + "\n")
	sb.WriteString(`    "matchedSkills": ["required skills the candidate has"],` + "\n")
	sb.WriteString(`    "missingSkills": ["required skills the candidate lacks"],` + "\n")
	sb.WriteString(`    "totalYearsExperience": number,` + "\n")
	sb.WriteString(`    "numberOfCompanies": number,` + "\n")
	sb.WriteString(`    "averageYearsPerCompany": decimal number,` + "\n")
	sb.WriteString(`    "hasRelevantExperience": true/false,` + "\n")
	sb.WriteString(`    "hasRequiredDegree": true/false,` + "\n")
	sb.WriteString(`    "isRelevantField": true/false,` + "\n")
	sb.WriteString(`    "actualDegree": "candidate's degree level",` + "\n")
	sb.WriteString(`    "actualField": "candidate's field of study",` + "\n")
	sb.WriteString(`    "summary": "Overall assessment of the candidate (2-3 sentences)",` + "\n")
	sb.WriteString(`    "strengths": "Strengths",` + "\n")
	sb.WriteString(`    "weaknesses": "Weaknesses/gaps"` + "\n")
}

func orNotSpecified(s string) string {
	if strings.TrimSpace(s) == "" {
		return notSpecified
	}
	return s
}
