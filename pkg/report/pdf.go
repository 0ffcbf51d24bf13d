package report

import (
	"bytes"
	"fmt"
	"strconv"
	"time"

	"github.com/go-pdf/fpdf"
)

// Portfolio is the content of a student's portfolio document.
type Portfolio struct {
	StudentName string
	Identifier  string
	ClassName   string
	TotalGraded int
	Average     float64
	Highest     int
	Categories  int
	Items       []GradeRow
	GeneratedAt time.Time
}

type column struct {
	title string
	width float64
	align string
}

var gradeColumns = []column{
	{"Student", 50, "L"},
	{"Class", 30, "L"},
	{"Assignment", 60, "L"},
	{"Category", 35, "L"},
	{"Grade", 18, "C"},
	{"Revisions", 22, "C"},
	{"Graded At", 40, "L"},
}

// GradesPDF renders rows as a landscape table.
func GradesPDF(title string, rows []GradeRow, generatedAt time.Time) ([]byte, error) {
	pdf := fpdf.New("L", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(title, true)
	pdf.SetCreationDate(generatedAt)
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d", pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, tr(title), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(0, 6, "Generated "+formatDate(generatedAt), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	gradesHeader(pdf)
	pdf.SetFont("Helvetica", "", 9)
	for _, row := range rows {
		if pdf.GetY() > 185 {
			pdf.AddPage()
			gradesHeader(pdf)
			pdf.SetFont("Helvetica", "", 9)
		}
		values := []string{
			row.StudentName, row.ClassName, row.AssignmentTitle, row.CategoryName,
			strconv.Itoa(row.Grade), strconv.Itoa(row.Revisions), formatDate(row.GradedAt),
		}
		for i, col := range gradeColumns {
			pdf.CellFormat(col.width, 7, tr(truncate(values[i], col.width)), "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if len(rows) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 8, "No graded submissions match this report.", "", 1, "L", false, 0, "")
	}

	return output(pdf)
}

func gradesHeader(pdf *fpdf.Fpdf) {
	pdf.SetFont("Helvetica", "B", 9)
	pdf.SetFillColor(231, 230, 247)
	for _, col := range gradeColumns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)
}

// PortfolioPDF renders a student's portfolio as a portrait document.
func PortfolioPDF(portfolio Portfolio) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle("Portfolio "+portfolio.StudentName, true)
	pdf.SetCreationDate(portfolio.GeneratedAt)

	pdf.AddPage()
	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(portfolio.StudentName), "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s  %s", portfolio.Identifier, portfolio.ClassName)), "", 1, "L", false, 0, "")
	pdf.Ln(2)

	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(0, 7, fmt.Sprintf("Graded works: %d   Average: %.2f   Highest: %d   Categories: %d",
		portfolio.TotalGraded, portfolio.Average, portfolio.Highest, portfolio.Categories), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	for _, item := range portfolio.Items {
		if pdf.GetY() > 260 {
			pdf.AddPage()
		}
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(0, 7, tr(item.Title), "", 1, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 9)
		pdf.CellFormat(0, 5, tr(fmt.Sprintf("%s / %s", item.AssignmentTitle, item.CategoryName)), "", 1, "L", false, 0, "")
		pdf.CellFormat(0, 5, fmt.Sprintf("Grade %d, %d revision(s), graded %s", item.Grade, item.Revisions, formatDate(item.GradedAt)), "", 1, "L", false, 0, "")
		if item.Feedback != "" {
			pdf.SetFont("Helvetica", "I", 9)
			pdf.MultiCell(0, 5, tr(item.Feedback), "", "L", false)
		}
		pdf.Ln(3)
	}

	if len(portfolio.Items) == 0 {
		pdf.SetFont("Helvetica", "I", 10)
		pdf.CellFormat(0, 8, "No graded artwork yet.", "", 1, "L", false, 0, "")
	}

	return output(pdf)
}

func output(pdf *fpdf.Fpdf) ([]byte, error) {
	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// truncate shortens value so it roughly fits a cell of width millimetres at 9pt.
func truncate(value string, width float64) string {
	limit := int(width / 1.9)
	runes := []rune(value)
	if len(runes) <= limit || limit < 4 {
		return value
	}
	return string(runes[:limit-3]) + "..."
}
