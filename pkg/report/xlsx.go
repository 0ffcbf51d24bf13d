package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

const (
	sheetGrades      = "Grades"
	sheetSummary     = "Summary"
	sheetAssignments = "Assignments"
)

// GradesWorkbook renders rows into a workbook with Grades, Summary and Assignments sheets.
func GradesWorkbook(rows []GradeRow) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetGrades); err != nil {
		return nil, err
	}
	for _, name := range []string{sheetSummary, sheetAssignments} {
		if _, err := f.NewSheet(name); err != nil {
			return nil, err
		}
	}

	header, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#E7E6F7"}},
	})
	if err != nil {
		return nil, err
	}

	grades := [][]interface{}{{"Student", "Identifier", "Class", "Assignment", "Category", "Title", "Grade", "Feedback", "Revisions", "Submitted At", "Graded At"}}
	for _, row := range rows {
		grades = append(grades, []interface{}{
			row.StudentName, row.Identifier, row.ClassName, row.AssignmentTitle, row.CategoryName,
			row.Title, row.Grade, row.Feedback, row.Revisions, formatDate(row.SubmittedAt), formatDate(row.GradedAt),
		})
	}

	summary := [][]interface{}{{"Student", "Identifier", "Class", "Graded", "Average", "Highest"}}
	for _, item := range Summarize(rows) {
		summary = append(summary, []interface{}{item.StudentName, item.Identifier, item.ClassName, item.Count, item.Average, item.Highest})
	}

	assignments := [][]interface{}{{"Assignment", "Category", "Graded", "Average", "Lowest", "Highest"}}
	for _, item := range SummarizeAssignments(rows) {
		assignments = append(assignments, []interface{}{item.AssignmentTitle, item.CategoryName, item.Count, item.Average, item.Lowest, item.Highest})
	}

	for sheet, data := range map[string][][]interface{}{
		sheetGrades:      grades,
		sheetSummary:     summary,
		sheetAssignments: assignments,
	} {
		if err := writeSheet(f, sheet, data, header); err != nil {
			return nil, fmt.Errorf("write sheet %s: %w", sheet, err)
		}
	}
	f.SetActiveSheet(0)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func writeSheet(f *excelize.File, sheet string, data [][]interface{}, headerStyle int) error {
	for i, row := range data {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return err
		}
	}

	last, err := excelize.ColumnNumberToName(len(data[0]))
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheet, "A1", last+"1", headerStyle); err != nil {
		return err
	}
	return f.SetColWidth(sheet, "A", last, 18)
}
