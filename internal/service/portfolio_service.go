package service

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/repository"
)

// PortfolioService exposes a student's graded artwork.
type PortfolioService interface {
	Get(ctx context.Context, actor Actor, studentID uint, categoryID *uint) (dto.PortfolioResponse, error)
}

type portfolioService struct {
	analytics repository.AnalyticsRepository
	users     repository.UserRepository
	logger    zerolog.Logger
}

// NewPortfolioService constructs the portfolio reader.
func NewPortfolioService(analytics repository.AnalyticsRepository, users repository.UserRepository, logger zerolog.Logger) PortfolioService {
	return &portfolioService{
		analytics: analytics,
		users:     users,
		logger:    logger.With().Str("component", "portfolio_service").Logger(),
	}
}

// Get returns the graded submissions of studentID. Students may only read their own portfolio.
func (s *portfolioService) Get(ctx context.Context, actor Actor, studentID uint, categoryID *uint) (dto.PortfolioResponse, error) {
	if actor.IsStudent() && actor.ID != studentID {
		return dto.PortfolioResponse{}, ErrForbidden
	}

	student, submissions, err := loadPortfolio(ctx, s.users, s.analytics, studentID, categoryID)
	if err != nil {
		return dto.PortfolioResponse{}, err
	}

	items := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		history := ReconstructHistory(submission.ImageSet, submission.SubmittedAt, submission.Revisions)
		items = append(items, dto.NewSubmissionResponse(submission, history))
	}

	return dto.PortfolioResponse{
		Student: dto.NewUserLite(student),
		Stats:   portfolioStats(submissions),
		Items:   items,
	}, nil
}

func loadPortfolio(ctx context.Context, users repository.UserRepository, analytics repository.AnalyticsRepository, studentID uint, categoryID *uint) (models.User, []models.Submission, error) {
	student, err := users.GetByID(ctx, studentID)
	if err != nil {
		return models.User{}, nil, translate(err, ErrUserNotFound, "")
	}
	if student.Role != models.RoleStudent {
		return models.User{}, nil, ErrUserNotFound
	}

	submissions, err := analytics.ListGraded(ctx, repository.GradeFilter{StudentID: &studentID, CategoryID: categoryID})
	if err != nil {
		return models.User{}, nil, err
	}
	return student, submissions, nil
}

func portfolioStats(submissions []models.Submission) dto.PortfolioStats {
	records := make([]repository.GradedRecord, 0, len(submissions))
	for _, submission := range submissions {
		if submission.Grade == nil {
			continue
		}
		records = append(records, repository.GradedRecord{
			SubmissionID: submission.ID,
			Grade:        *submission.Grade,
			CategoryID:   submission.Assignment.CategoryID,
		})
	}

	stats := ComputeStats(records)
	return dto.PortfolioStats{
		TotalGraded: stats.TotalGraded,
		Average:     roundGrade(stats.Average),
		Highest:     stats.Highest,
		Categories:  stats.CategoriesCompleted(nil),
	}
}
