package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/fmuoria/resume-analyzer/internal/models"
)

const (
	summarySheet    = "Summary"
	candidatesSheet = "Ranked Candidates"
	detailsSheet    = "Detailed Analysis"
)

// score buckets used for statistics and colour coding
const (
	excellentScore = 90
	goodScore      = 70
	fairScore      = 50
)

var thinBorder = []excelize.Border{
	{Type: "left", Color: "000000", Style: 1},
	{Type: "right", Color: "000000", Style: 1},
	{Type: "top", Color: "000000", Style: 1},
	{Type: "bottom", Color: "000000", Style: 1},
}

// bucketFills are the row colours for excellent, good, fair and poor scores
var bucketFills = [4]string{"C6EFCE", "FFEB9C", "FFC7CE", "FF9999"}

func bucket(score float64) int {
	switch {
	case score >= excellentScore:
		return 0
	case score >= goodScore:
		return 1
	case score >= fairScore:
		return 2
	default:
		return 3
	}
}

type styles struct {
	title   int
	label   int
	header  int
	wrap    int
	buckets [4]int
}

func newStyles(f *excelize.File) (styles, error) {
	var s styles
	var err error

	if s.title, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
	}); err != nil {
		return s, err
	}

	if s.label, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err != nil {
		return s, err
	}

	if s.header, err = f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorder,
	}); err != nil {
		return s, err
	}

	if s.wrap, err = f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{WrapText: true, Vertical: "top"},
		Border:    thinBorder,
	}); err != nil {
		return s, err
	}

	for i, color := range bucketFills {
		if s.buckets[i], err = f.NewStyle(&excelize.Style{
			Fill:   excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
			Border: thinBorder,
		}); err != nil {
			return s, err
		}
	}

	return s, nil
}

// WriteExcel writes the analysis report workbook to w. results are expected
// in rank order. req may be nil.
func WriteExcel(w io.Writer, results []models.ResultView, req *models.JobRequirement) error {
	f, err := buildWorkbook(results, req)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write Excel report: %w", err)
	}
	return nil
}

// ExportToExcel writes the analysis report to outputPath, adding the .xlsx
// extension when missing, and returns the final path
func ExportToExcel(results []models.ResultView, req *models.JobRequirement, outputPath string) (string, error) {
	if !strings.HasSuffix(strings.ToLower(outputPath), ".xlsx") {
		outputPath += ".xlsx"
	}
	outputPath = filepath.Clean(outputPath)

	out, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("failed to create Excel file: %w", err)
	}

	if err := WriteExcel(out, results, req); err != nil {
		out.Close()
		return "", err
	}
	if err := out.Close(); err != nil {
		return "", fmt.Errorf("failed to save Excel file: %w", err)
	}

	return outputPath, nil
}

func buildWorkbook(results []models.ResultView, req *models.JobRequirement) (*excelize.File, error) {
	f := excelize.NewFile()

	if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
		f.Close()
		return nil, err
	}
	for _, name := range []string{candidatesSheet, detailsSheet} {
		if _, err := f.NewSheet(name); err != nil {
			f.Close()
			return nil, err
		}
	}

	st, err := newStyles(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create styles: %w", err)
	}

	steps := []struct {
		name string
		fn   func() error
	}{
		{summarySheet, func() error { return writeSummarySheet(f, st, results, req) }},
		{candidatesSheet, func() error { return writeRankedSheet(f, st, results) }},
		{detailsSheet, func() error { return writeDetailsSheet(f, st, results) }},
	}
	for _, step := range steps {
		if err := step.fn(); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to create %s sheet: %w", step.name, err)
		}
	}

	return f, nil
}

// sheetWriter accumulates the first error of a run of cell writes
type sheetWriter struct {
	f     *excelize.File
	sheet string
	err   error
}

func (w *sheetWriter) value(col string, row int, v any) {
	if w.err == nil {
		w.err = w.f.SetCellValue(w.sheet, fmt.Sprintf("%s%d", col, row), v)
	}
}

func (w *sheetWriter) style(from, to string, row int, style int) {
	if w.err == nil {
		w.err = w.f.SetCellStyle(w.sheet, fmt.Sprintf("%s%d", from, row), fmt.Sprintf("%s%d", to, row), style)
	}
}

func (w *sheetWriter) widths(widths map[string]float64) {
	for col, width := range widths {
		if w.err == nil {
			w.err = w.f.SetColWidth(w.sheet, col, col, width)
		}
	}
}

func (w *sheetWriter) banner(row int, text string, style int) {
	w.value("A", row, text)
	w.style("A", "B", row, style)
	if w.err == nil {
		w.err = w.f.MergeCell(w.sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("B%d", row))
	}
}

func (w *sheetWriter) headers(style int, headers ...string) {
	for i, h := range headers {
		col := string(rune('A' + i))
		w.value(col, 1, h)
		w.style(col, col, 1, style)
	}
}

func (w *sheetWriter) freezeHeader() {
	if w.err == nil {
		w.err = w.f.SetPanes(w.sheet, &excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		})
	}
}

func writeSummarySheet(f *excelize.File, st styles, results []models.ResultView, req *models.JobRequirement) error {
	w := &sheetWriter{f: f, sheet: summarySheet}
	w.widths(map[string]float64{"A": 28, "B": 50})

	labelled := func(row int, label string, v any) {
		w.value("A", row, label)
		w.style("A", "A", row, st.label)
		w.value("B", row, v)
	}

	row := 1
	w.banner(row, "Resume Analysis Report", st.title)
	row += 2

	if req != nil {
		labelled(row, "Job Title:", req.JobTitle)
		row++
		labelled(row, "Required Skills:", strings.Join(req.RequiredSkills, ", "))
		row++
		labelled(row, "Weights (skills/experience/education):",
			fmt.Sprintf("%d / %d / %d", req.Skills, req.Experience, req.Education))
		row++
	}
	labelled(row, "Generated:", time.Now().Format("2006-01-02 15:04:05"))
	row++
	labelled(row, "Total Candidates Scored:", len(results))
	row += 2

	w.banner(row, "Statistics:", st.title)
	row++

	if len(results) > 0 {
		var counts [4]int
		sum := 0.0
		lowest, highest := results[0].TotalScore, results[0].TotalScore
		for _, r := range results {
			counts[bucket(r.TotalScore)]++
			sum += r.TotalScore
			lowest = min(lowest, r.TotalScore)
			highest = max(highest, r.TotalScore)
		}

		for i, label := range []string{"Excellent (90-100):", "Good (70-89):", "Fair (50-69):", "Poor (<50):"} {
			w.value("A", row, label)
			w.value("B", row, counts[i])
			row++
		}
		row++

		labelled(row, "Average Score:", fmt.Sprintf("%.2f", sum/float64(len(results))))
		row++
		labelled(row, "Highest Score:", fmt.Sprintf("%.2f", highest))
		row++
		labelled(row, "Lowest Score:", fmt.Sprintf("%.2f", lowest))
	}

	return w.err
}

func writeRankedSheet(f *excelize.File, st styles, results []models.ResultView) error {
	w := &sheetWriter{f: f, sheet: candidatesSheet}
	w.widths(map[string]float64{"A": 8, "B": 28, "C": 30, "D": 14, "E": 14, "F": 14, "G": 14, "H": 14})
	w.headers(st.header, "Rank", "Candidate", "Email", "Total Score", "Skills", "Experience", "Education", "Skill Match %")

	for i, r := range results {
		row := i + 2
		email := ""
		if r.Candidate != nil {
			email = r.Candidate.Email
		}

		w.value("A", row, i+1)
		w.value("B", row, r.Name())
		w.value("C", row, email)
		w.value("D", row, r.TotalScore)
		w.value("E", row, r.SkillsScore)
		w.value("F", row, r.ExperienceScore)
		w.value("G", row, r.EducationScore)
		w.value("H", row, fmt.Sprintf("%.0f%%", r.SkillsAnalysis.MatchPercentage))
		w.style("A", "H", row, st.buckets[bucket(r.TotalScore)])
	}

	if len(results) > 0 && w.err == nil {
		w.err = f.AutoFilter(candidatesSheet, fmt.Sprintf("A1:H%d", len(results)+1), []excelize.AutoFilterOptions{})
	}
	w.freezeHeader()

	return w.err
}

func writeDetailsSheet(f *excelize.File, st styles, results []models.ResultView) error {
	w := &sheetWriter{f: f, sheet: detailsSheet}
	w.widths(map[string]float64{"A": 8, "B": 28, "C": 20, "D": 70})
	w.headers(st.header, "Rank", "Candidate", "Category", "Details")

	row := 2
	for i, r := range results {
		details := [][2]string{
			{"Summary", r.AISummary},
			{"Strengths", r.Strengths},
			{"Weaknesses", r.Weaknesses},
			{"Matched Skills", strings.Join(r.SkillsAnalysis.MatchedSkills, ", ")},
			{"Missing Skills", strings.Join(r.SkillsAnalysis.MissingSkills, ", ")},
		}
		for _, d := range details {
			w.value("A", row, i+1)
			w.value("B", row, r.Name())
			w.value("C", row, d[0])
			w.value("D", row, d[1])
			w.style("A", "D", row, st.wrap)
			row++
		}
	}
	w.freezeHeader()

	return w.err
}
