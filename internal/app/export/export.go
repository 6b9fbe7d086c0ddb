// Package export renders live-quiz results as an XLSX workbook.
package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"iquizu/internal/domain/grading"
	"iquizu/internal/domain/model"

	"github.com/gosimple/slug"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet = "Summary"
	ResultsSheet = "Student Results"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// Timestamps are rendered in Philippine time.
var displayZone = time.FixedZone("PHT", 8*60*60)

var resultHeaders = []interface{}{
	"Last Name", "First Name", "Student Number", "Status", "Score", "Raw Score (%)",
	"Base-50 Grade (%)", "Result", "Time Taken", "Submitted At",
}

var resultWidths = []float64{20, 20, 15, 15, 10, 15, 18, 10, 12, 22}

// FileName is the slug of "<title>-<class>-results-<date>" plus ".xlsx".
func FileName(quizTitle, className string, now time.Time) string {
	return slug.Make(fmt.Sprintf("%s-%s-results-%s", quizTitle, className, now.Format("2006-01-02"))) + ".xlsx"
}

// StatusText is the human label for an assignment status.
func StatusText(st model.SessionStudent) string {
	switch {
	case st.Completed:
		return "Completed"
	case st.Status == model.AssignmentStatusInProgress:
		return "In Progress"
	case st.Status == model.AssignmentStatusNotStarted || st.Status == model.AssignmentStatusPending:
		return "Not Started"
	case st.Status == model.AssignmentStatusExpired:
		return "Expired"
	}
	return st.Status
}

// SplitName treats the first word as the first name and the rest as the last name.
func SplitName(name string) (first, last string) {
	name = strings.TrimSpace(name)
	if i := strings.IndexByte(name, ' '); i >= 0 {
		return name[:i], strings.TrimSpace(name[i+1:])
	}
	return name, ""
}

// FormatDuration renders d as "Xm Ys". Zero or negative durations render empty.
func FormatDuration(d time.Duration) string {
	secs := int(d / time.Second)
	if secs <= 0 {
		return ""
	}
	return fmt.Sprintf("%dm %ds", secs/60, secs%60)
}

func formatTime(t *time.Time, empty string) string {
	if t == nil || t.IsZero() {
		return empty
	}
	return t.In(displayZone).Format("1/2/2006, 3:04 PM")
}

func sessionLabel(status string) string {
	switch status {
	case model.SessionActive:
		return "LIVE"
	case model.SessionEnded:
		return "ENDED"
	}
	return "NOT STARTED"
}

// Workbook builds the two-sheet results workbook for panel.
func Workbook(panel *model.SessionPanel, now time.Time) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SummarySheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeSummary(f, panel, now); err != nil {
		f.Close()
		return nil, err
	}
	if _, err := f.NewSheet(ResultsSheet); err != nil {
		f.Close()
		return nil, err
	}
	if err := writeResults(f, panel); err != nil {
		f.Close()
		return nil, err
	}
	return f, nil
}

// Write renders the workbook for panel into w.
func Write(w io.Writer, panel *model.SessionPanel, now time.Time) error {
	f, err := Workbook(panel, now)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

func writeSummary(f *excelize.File, p *model.SessionPanel, now time.Time) error {
	code := p.Session.QuizCode
	if code == "" {
		code = "N/A"
	}
	rows := [][]interface{}{
		{"Quiz Title", p.Quiz.Title},
		{"Class", p.Class.Name},
		{"Total Questions", p.TotalQuestions},
		{"Passing Score", fmt.Sprintf("%d%%", p.PassingScore)},
		{"Quiz Code", code},
		{"Session Status", sessionLabel(p.Session.Status)},
		{},
		{"STATISTICS", ""},
		{"Total Students", p.Counts.Total},
		{"Not Started", p.Counts.NotStarted},
		{"In Progress", p.Counts.InProgress},
		{"Completed", p.Counts.Completed},
		{"Passed", p.Counts.Passed},
		{"Failed", p.Counts.Failed},
		{},
		{"Session Started", formatTime(p.Session.StartedAt, "N/A")},
		{"Session Ended", formatTime(p.Session.EndedAt, "N/A")},
		{"Exported On", formatTime(&now, "")},
	}
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &row); err != nil {
			return err
		}
	}
	if err := f.SetColWidth(SummarySheet, "A", "A", 20); err != nil {
		return err
	}
	return f.SetColWidth(SummarySheet, "B", "B", 40)
}

func writeResults(f *excelize.File, p *model.SessionPanel) error {
	if err := f.SetSheetRow(ResultsSheet, "A1", &resultHeaders); err != nil {
		return err
	}
	for i, st := range p.Students {
		first, last := SplitName(st.Name)
		row := []interface{}{last, first, st.StudentNo, StatusText(st), "", "", "", "", "", formatTime(st.SubmittedAt, "")}
		if st.Score != nil {
			row[4] = fmt.Sprintf("%g/%d", *st.Score, p.TotalQuestions)
		}
		if st.RawScorePercentage != nil {
			row[5] = *st.RawScorePercentage
		}
		if st.Base50ScorePercentage != nil {
			row[6] = *st.Base50ScorePercentage
			row[7] = "FAILED"
			if grading.Passed(*st.Base50ScorePercentage, p.PassingScore) {
				row[7] = "PASSED"
			}
		}
		if st.StartedAt != nil && st.SubmittedAt != nil {
			row[8] = FormatDuration(st.SubmittedAt.Sub(*st.StartedAt))
		}
		cell, _ := excelize.CoordinatesToCellName(1, i+2)
		if err := f.SetSheetRow(ResultsSheet, cell, &row); err != nil {
			return err
		}
	}
	for i, w := range resultWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(ResultsSheet, col, col, w); err != nil {
			return err
		}
	}
	return nil
}
