package scoring

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"

	"github.com/fmuoria/resume-analyzer/internal/models"
)

var resumeKeys = []string{"fullName", "email", "phone", "skills", "experiences", "education"}

type parsedResume struct {
	FullName    flexString         `json:"fullName"`
	Email       flexString         `json:"email"`
	Phone       flexString         `json:"phone"`
	Skills      []parsedSkill      `json:"skills"`
	Experiences []parsedExperience `json:"experiences"`
	Education   *parsedEducation   `json:"education"`
}

type parsedSkill struct {
	Name              flexString `json:"name"`
	YearsOfExperience flexInt    `json:"yearsOfExperience"`
	Level             flexString `json:"level"`
}

// UnmarshalJSON also accepts a bare skill name.
func (s *parsedSkill) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		return json.Unmarshal(b, &s.Name)
	}
	type plain parsedSkill
	return json.Unmarshal(b, (*plain)(s))
}

type parsedExperience struct {
	CompanyName flexString `json:"companyName"`
	Position    flexString `json:"position"`
	StartDate   flexString `json:"startDate"`
	EndDate     flexString `json:"endDate"`
	Description flexString `json:"description"`
	IsCurrent   flexBool   `json:"isCurrent"`
}

type parsedEducation struct {
	Institution    flexString `json:"institution"`
	Degree         flexString `json:"degree"`
	FieldOfStudy   flexString `json:"fieldOfStudy"`
	GraduationYear *flexInt   `json:"graduationYear"`
	GPA            *flexFloat `json:"gpa"`
}

// DecodeResume fills the structured fields of c from a parse response and
// marks it parsed. c is left untouched on error.
func DecodeResume(jsonText string, c *models.Candidate) error {
	var parsed parsedResume
	if err := decodeObject(jsonText, &parsed, resumeKeys...); err != nil {
		return err
	}

	c.FullName = parsed.FullName.orEmptyNull()
	c.Email = parsed.Email.orEmptyNull()
	c.Phone = parsed.Phone.orEmptyNull()

	c.Skills = make([]models.Skill, 0, len(parsed.Skills))
	for _, s := range parsed.Skills {
		if s.Name == "" {
			continue
		}
		c.Skills = append(c.Skills, models.Skill{
			Name:              string(s.Name),
			YearsOfExperience: max(int(s.YearsOfExperience), 0),
			Level:             string(s.Level),
		})
	}

	c.Experiences = make([]models.Experience, 0, len(parsed.Experiences))
	for _, e := range parsed.Experiences {
		exp := models.Experience{
			CompanyName: string(e.CompanyName),
			Position:    string(e.Position),
			StartDate:   ParseDate(string(e.StartDate)),
			Description: string(e.Description),
			IsCurrent:   bool(e.IsCurrent),
		}
		if end := e.EndDate.orEmptyNull(); end != "" {
			t := ParseDate(end)
			exp.EndDate = &t
		}
		c.Experiences = append(c.Experiences, exp)
	}

	c.Education = nil
	if ed := parsed.Education; ed != nil {
		c.Education = &models.Education{
			Institution:  string(ed.Institution),
			Degree:       string(ed.Degree),
			FieldOfStudy: string(ed.FieldOfStudy),
		}
		if ed.GraduationYear != nil {
			year := int(*ed.GraduationYear)
			c.Education.GraduationYear = &year
		}
		if ed.GPA != nil {
			gpa := float64(*ed.GPA)
			c.Education.GPA = &gpa
		}
	}

	c.Parsed = true
	return nil
}

// monthLayouts are the month-precision forms CVs commonly use
var monthLayouts = []string{"Jan 2006", "January 2006", "Jan. 2006", "01/2006", "1/2006", "01.2006"}

// ParseDate reads an experience date. The strict YYYY-MM form is tried first,
// then common month-year layouts, then any generic date. Unreadable input
// yields the zero time.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}

	if len(s) == 7 && s[4] == '-' {
		year, yerr := strconv.Atoi(s[0:4])
		month, merr := strconv.Atoi(s[5:7])
		if yerr == nil && merr == nil && year > 0 && month >= 1 && month <= 12 {
			return time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		}
	}

	for _, layout := range monthLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}
	}
	// A time of day from input without one means trailing text was misread.
	if !strings.Contains(s, ":") && (t.Hour() != 0 || t.Minute() != 0 || t.Second() != 0) {
		return time.Time{}
	}
	return t
}
