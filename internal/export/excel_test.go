package export

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/fmuoria/resume-analyzer/internal/models"
)

func sampleResults() []models.ResultView {
	jane := models.NewCandidateView(models.Candidate{ID: uuid.New(), FullName: "Jane Doe", Email: "jane@example.com", FileName: "jane.pdf"})
	scan := models.NewCandidateView(models.Candidate{ID: uuid.New(), FileName: "scan.pdf"})

	return []models.ResultView{
		{
			CandidateID: jane.ID,
			Candidate:   &jane,
			TotalScore:  92.5,
			SkillsScore: 100,
			SkillsAnalysis: models.SkillsAnalysisView{
				SkillsAnalysis:  models.SkillsAnalysis{MatchedSkills: []string{"Go", "SQL"}, MissingSkills: []string{}},
				MatchPercentage: 100,
			},
			AISummary: "Excellent fit",
			Strengths: "Go",
		},
		{
			CandidateID: scan.ID,
			Candidate:   &scan,
			TotalScore:  41,
			AISummary:   "Weak match",
		},
	}
}

func TestBucket(t *testing.T) {
	tests := []struct {
		score float64
		want  int
	}{
		{score: 100, want: 0},
		{score: 90, want: 0},
		{score: 89.99, want: 1},
		{score: 70, want: 1},
		{score: 50, want: 2},
		{score: 49.9, want: 3},
		{score: -5, want: 3},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, bucket(tt.score), "bucket(%v)", tt.score)
	}
}

func TestWriteExcel(t *testing.T) {
	req := models.DefaultJobRequirement()
	req.JobTitle = "Backend Engineer"
	req.RequiredSkills = []string{"Go", "SQL"}

	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, sampleResults(), &req))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{summarySheet, candidatesSheet, detailsSheet}, f.GetSheetList())

	cell := func(sheet, ref string) string {
		t.Helper()
		v, err := f.GetCellValue(sheet, ref)
		require.NoError(t, err)
		return v
	}

	assert.Equal(t, "Resume Analysis Report", cell(summarySheet, "A1"))
	assert.Equal(t, "Backend Engineer", cell(summarySheet, "B3"))
	assert.Equal(t, "Go, SQL", cell(summarySheet, "B4"))
	assert.Equal(t, "40 / 40 / 20", cell(summarySheet, "B5"))

	assert.Equal(t, "Rank", cell(candidatesSheet, "A1"))
	assert.Equal(t, "1", cell(candidatesSheet, "A2"))
	assert.Equal(t, "Jane Doe", cell(candidatesSheet, "B2"))
	assert.Equal(t, "jane@example.com", cell(candidatesSheet, "C2"))
	assert.Equal(t, "92.5", cell(candidatesSheet, "D2"))
	assert.Equal(t, "100%", cell(candidatesSheet, "H2"))
	assert.Equal(t, "scan.pdf", cell(candidatesSheet, "B3"), "unnamed candidates fall back to the file name")

	rows, err := f.GetRows(detailsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 11)
	assert.Equal(t, []string{"1", "Jane Doe", "Summary", "Excellent fit"}, rows[1])
	assert.Equal(t, []string{"1", "Jane Doe", "Matched Skills", "Go, SQL"}, rows[4])
}

func TestWriteExcelWithoutRequirement(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteExcel(&buf, []models.ResultView{}, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	v, err := f.GetCellValue(summarySheet, "B4")
	require.NoError(t, err)
	assert.Equal(t, "0", v)
}

func TestExportToExcel(t *testing.T) {
	tests := []struct {
		name string
		path string
		want string
	}{
		{name: "adds missing extension", path: "report", want: "report.xlsx"},
		{name: "keeps extension", path: "report.xlsx", want: "report.xlsx"},
		{name: "keeps upper case extension", path: "REPORT.XLSX", want: "REPORT.XLSX"},
		{name: "cleans path", path: "reports/../out.xlsx", want: "out.xlsx"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			require.NoError(t, os.MkdirAll(filepath.Join(dir, "reports"), 0755))

			got, err := ExportToExcel(sampleResults(), nil, filepath.Join(dir, tt.path))
			require.NoError(t, err)

			assert.Equal(t, filepath.Join(dir, tt.want), got)
			_, err = os.Stat(got)
			assert.NoError(t, err)
		})
	}
}

func TestExportToExcelMissingDirectory(t *testing.T) {
	_, err := ExportToExcel(sampleResults(), nil, filepath.Join(t.TempDir(), "missing", "report.xlsx"))
	assert.Error(t, err)
}
