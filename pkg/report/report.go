// Package report renders grade and portfolio documents as spreadsheets and PDFs.
package report

import (
	"sort"
	"time"
)

// Content types of the rendered documents.
const (
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	ContentTypePDF  = "application/pdf"
)

// GradeRow is one graded submission in a report.
type GradeRow struct {
	StudentName     string
	Identifier      string
	ClassName       string
	AssignmentID    uint
	AssignmentTitle string
	CategoryName    string
	Title           string
	Grade           int
	Feedback        string
	Revisions       int
	SubmittedAt     time.Time
	GradedAt        time.Time
}

// StudentSummary aggregates the grades of one student.
type StudentSummary struct {
	StudentName string
	Identifier  string
	ClassName   string
	Count       int
	Average     float64
	Highest     int
}

// AssignmentSummary aggregates the grades given on one assignment.
type AssignmentSummary struct {
	AssignmentTitle string
	CategoryName    string
	Count           int
	Average         float64
	Lowest          int
	Highest         int
}

// Summarize groups rows per student, ordered by name.
func Summarize(rows []GradeRow) []StudentSummary {
	index := make(map[string]int)
	summaries := make([]StudentSummary, 0)
	totals := make([]int, 0)

	for _, row := range rows {
		key := row.Identifier + "\x00" + row.StudentName
		i, ok := index[key]
		if !ok {
			i = len(summaries)
			index[key] = i
			summaries = append(summaries, StudentSummary{
				StudentName: row.StudentName,
				Identifier:  row.Identifier,
				ClassName:   row.ClassName,
			})
			totals = append(totals, 0)
		}
		summaries[i].Count++
		totals[i] += row.Grade
		if row.Grade > summaries[i].Highest {
			summaries[i].Highest = row.Grade
		}
	}

	for i := range summaries {
		summaries[i].Average = round2(float64(totals[i]) / float64(summaries[i].Count))
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].StudentName < summaries[j].StudentName
	})
	return summaries
}

// SummarizeAssignments groups rows per assignment, ordered by title.
func SummarizeAssignments(rows []GradeRow) []AssignmentSummary {
	index := make(map[uint]int)
	summaries := make([]AssignmentSummary, 0)
	totals := make([]int, 0)

	for _, row := range rows {
		i, ok := index[row.AssignmentID]
		if !ok {
			i = len(summaries)
			index[row.AssignmentID] = i
			summaries = append(summaries, AssignmentSummary{
				AssignmentTitle: row.AssignmentTitle,
				CategoryName:    row.CategoryName,
				Lowest:          row.Grade,
			})
			totals = append(totals, 0)
		}
		summaries[i].Count++
		totals[i] += row.Grade
		if row.Grade > summaries[i].Highest {
			summaries[i].Highest = row.Grade
		}
		if row.Grade < summaries[i].Lowest {
			summaries[i].Lowest = row.Grade
		}
	}

	for i := range summaries {
		summaries[i].Average = round2(float64(totals[i]) / float64(summaries[i].Count))
	}
	sort.SliceStable(summaries, func(i, j int) bool {
		return summaries[i].AssignmentTitle < summaries[j].AssignmentTitle
	})
	return summaries
}

func round2(value float64) float64 {
	return float64(int64(value*100+0.5)) / 100
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
