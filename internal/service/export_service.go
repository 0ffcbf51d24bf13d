package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/noah-isme/seniku-go-api/internal/apperror"
	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/observability"
	"github.com/noah-isme/seniku-go-api/internal/repository"
	"github.com/noah-isme/seniku-go-api/pkg/report"
)

var exportTracer = otel.Tracer("github.com/noah-isme/seniku-go-api/internal/service/export")

// ExportService renders grade reports and portfolios.
type ExportService interface {
	GradesWorkbook(ctx context.Context, actor Actor, req dto.ExportRequest) (dto.ExportFile, error)
	GradesPDF(ctx context.Context, actor Actor, req dto.ExportRequest) (dto.ExportFile, error)
	PortfolioPDF(ctx context.Context, actor Actor, studentID uint) (dto.ExportFile, error)
}

type exportService struct {
	analytics repository.AnalyticsRepository
	users     repository.UserRepository
	logger    zerolog.Logger
	now       func() time.Time
}

// NewExportService constructs the export renderer.
func NewExportService(analytics repository.AnalyticsRepository, users repository.UserRepository, logger zerolog.Logger) ExportService {
	return &exportService{
		analytics: analytics,
		users:     users,
		logger:    logger.With().Str("component", "export_service").Logger(),
		now:       time.Now,
	}
}

func (s *exportService) GradesWorkbook(ctx context.Context, actor Actor, req dto.ExportRequest) (dto.ExportFile, error) {
	ctx, span := exportTracer.Start(ctx, "ExportService.GradesWorkbook")
	defer span.End()

	rows, err := s.gradeRows(ctx, actor, req)
	if err != nil {
		return dto.ExportFile{}, failSpan(span, err, "load grades")
	}
	span.SetAttributes(attribute.Int("export.rows", len(rows)))

	data, err := report.GradesWorkbook(rows)
	if err != nil {
		return dto.ExportFile{}, failSpan(span, fmt.Errorf("render workbook: %w", err), "render")
	}

	observability.ExportsGenerated().WithLabelValues("xlsx").Inc()
	s.logger.Info().Uint("actor_id", actor.ID).Int("rows", len(rows)).Msg("grades workbook exported")
	return dto.ExportFile{
		Filename:    fmt.Sprintf("grades-%s.xlsx", s.now().Format("20060102")),
		ContentType: report.ContentTypeXLSX,
		Data:        data,
	}, nil
}

func (s *exportService) GradesPDF(ctx context.Context, actor Actor, req dto.ExportRequest) (dto.ExportFile, error) {
	ctx, span := exportTracer.Start(ctx, "ExportService.GradesPDF")
	defer span.End()

	rows, err := s.gradeRows(ctx, actor, req)
	if err != nil {
		return dto.ExportFile{}, failSpan(span, err, "load grades")
	}
	span.SetAttributes(attribute.Int("export.rows", len(rows)))

	data, err := report.GradesPDF("Grade report", rows, s.now())
	if err != nil {
		return dto.ExportFile{}, failSpan(span, fmt.Errorf("render pdf: %w", err), "render")
	}

	observability.ExportsGenerated().WithLabelValues("pdf").Inc()
	s.logger.Info().Uint("actor_id", actor.ID).Int("rows", len(rows)).Msg("grades pdf exported")
	return dto.ExportFile{
		Filename:    fmt.Sprintf("grades-%s.pdf", s.now().Format("20060102")),
		ContentType: report.ContentTypePDF,
		Data:        data,
	}, nil
}

func (s *exportService) PortfolioPDF(ctx context.Context, actor Actor, studentID uint) (dto.ExportFile, error) {
	ctx, span := exportTracer.Start(ctx, "ExportService.PortfolioPDF")
	defer span.End()
	span.SetAttributes(attribute.Int("student.id", int(studentID)))

	if actor.IsStudent() && actor.ID != studentID {
		return dto.ExportFile{}, failSpan(span, ErrForbidden, "forbidden")
	}

	student, submissions, err := loadPortfolio(ctx, s.users, s.analytics, studentID, nil)
	if err != nil {
		return dto.ExportFile{}, failSpan(span, err, "load portfolio")
	}

	stats := portfolioStats(submissions)
	doc := report.Portfolio{
		StudentName: student.Name,
		Identifier:  student.Identifier(),
		TotalGraded: stats.TotalGraded,
		Average:     stats.Average,
		Highest:     stats.Highest,
		Categories:  stats.Categories,
		Items:       make([]report.GradeRow, 0, len(submissions)),
		GeneratedAt: s.now(),
	}
	if student.Class != nil {
		doc.ClassName = student.Class.Name
	}
	for _, submission := range submissions {
		doc.Items = append(doc.Items, toGradeRow(submission))
	}

	data, err := report.PortfolioPDF(doc)
	if err != nil {
		return dto.ExportFile{}, failSpan(span, fmt.Errorf("render portfolio: %w", err), "render")
	}

	observability.ExportsGenerated().WithLabelValues("portfolio").Inc()
	return dto.ExportFile{
		Filename:    fmt.Sprintf("portfolio-%s.pdf", slug(student.Name, studentID)),
		ContentType: report.ContentTypePDF,
		Data:        data,
	}, nil
}

func (s *exportService) gradeRows(ctx context.Context, actor Actor, req dto.ExportRequest) ([]report.GradeRow, error) {
	if !actor.IsStaff() {
		return nil, ErrForbidden
	}
	if req.From != nil && req.To != nil && req.From.After(*req.To) {
		return nil, apperror.Validation("from must not be after to")
	}

	submissions, err := s.analytics.ListGraded(ctx, repository.GradeFilter{
		ClassID:      req.ClassID,
		CategoryID:   req.CategoryID,
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
		From:         req.From,
		To:           req.To,
	})
	if err != nil {
		return nil, err
	}

	rows := make([]report.GradeRow, 0, len(submissions))
	for _, submission := range submissions {
		rows = append(rows, toGradeRow(submission))
	}
	return rows, nil
}

func toGradeRow(submission models.Submission) report.GradeRow {
	row := report.GradeRow{
		StudentName:     submission.Student.Name,
		Identifier:      submission.Student.Identifier(),
		AssignmentID:    submission.AssignmentID,
		AssignmentTitle: submission.Assignment.Title,
		CategoryName:    submission.Assignment.Category.Name,
		Title:           submission.Title,
		Revisions:       submission.RevisionCount,
		SubmittedAt:     submission.SubmittedAt,
	}
	if submission.Student.Class != nil {
		row.ClassName = submission.Student.Class.Name
	}
	if submission.Grade != nil {
		row.Grade = *submission.Grade
	}
	if submission.Feedback != nil {
		row.Feedback = *submission.Feedback
	}
	if submission.GradedAt != nil {
		row.GradedAt = *submission.GradedAt
	}
	return row
}

func slug(name string, fallback uint) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return fmt.Sprintf("student-%d", fallback)
	}
	return out
}
