package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/repository"
)

const (
	staffDashboardKey     = "dashboard:staff"
	studentDashboardKey   = "dashboard:student:%d"
	dashboardListLimit    = 5
	awaitingReviewLimit   = 10
	defaultDashboardQuery = 4
)

// DashboardService aggregates the landing page metrics for each role.
type DashboardService interface {
	DashboardInvalidator
	Teacher(ctx context.Context) (dto.TeacherDashboardResponse, error)
	Student(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error)
}

// DashboardDependencies groups the repositories read by the dashboards.
type DashboardDependencies struct {
	Analytics     repository.AnalyticsRepository
	Assignments   repository.AssignmentRepository
	Users         repository.UserRepository
	Submissions   repository.SubmissionRepository
	Achievements  repository.AchievementRepository
	Notifications repository.NotificationRepository
	Cache         *redis.Client
	CacheTTL      time.Duration
	Logger        zerolog.Logger
}

type dashboardService struct {
	analytics     repository.AnalyticsRepository
	assignments   repository.AssignmentRepository
	users         repository.UserRepository
	submissions   repository.SubmissionRepository
	achievements  repository.AchievementRepository
	notifications repository.NotificationRepository
	cache         *redis.Client
	cacheTTL      time.Duration
	logger        zerolog.Logger
	now           func() time.Time
	concurrency   int
}

// NewDashboardService builds the dashboard aggregator. A nil cache disables caching.
func NewDashboardService(deps DashboardDependencies) DashboardService {
	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &dashboardService{
		analytics:     deps.Analytics,
		assignments:   deps.Assignments,
		users:         deps.Users,
		submissions:   deps.Submissions,
		achievements:  deps.Achievements,
		notifications: deps.Notifications,
		cache:         deps.Cache,
		cacheTTL:      ttl,
		logger:        deps.Logger.With().Str("component", "dashboard_service").Logger(),
		now:           time.Now,
		concurrency:   defaultDashboardQuery,
	}
}

func (s *dashboardService) Teacher(ctx context.Context) (dto.TeacherDashboardResponse, error) {
	var response dto.TeacherDashboardResponse
	if s.readCache(ctx, staffDashboardKey, &response) {
		response.CacheHit = true
		return response, nil
	}

	now := s.now()
	var (
		byStatus  map[string]int64
		awaiting  []models.Submission
		averages  []repository.CategoryAverage
		students  int64
		total     int64
		published int64
		graded    int64
		average   float64
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	g.Go(func() (err error) { students, err = s.users.CountByRole(gctx, models.RoleStudent); return })
	g.Go(func() (err error) { total, err = s.assignments.CountByStatus(gctx, ""); return })
	g.Go(func() (err error) {
		published, err = s.assignments.CountByStatus(gctx, models.AssignmentStatusPublished)
		return
	})
	g.Go(func() (err error) { byStatus, err = s.analytics.CountSubmissionsByStatus(gctx, nil); return })
	g.Go(func() (err error) { graded, err = s.analytics.CountGradedSince(gctx, now.AddDate(0, 0, -7)); return })
	g.Go(func() (err error) { average, err = s.analytics.AverageGrade(gctx, nil); return })
	g.Go(func() (err error) { awaiting, err = s.analytics.ListAwaitingReview(gctx, awaitingReviewLimit); return })
	g.Go(func() (err error) { averages, err = s.analytics.CategoryAverages(gctx, nil); return })
	if err := g.Wait(); err != nil {
		return dto.TeacherDashboardResponse{}, err
	}

	response = dto.TeacherDashboardResponse{
		TotalStudents:        students,
		TotalAssignments:     total,
		PublishedAssignments: published,
		PendingReviews:       byStatus[models.SubmissionStatusPending],
		RevisionRequested:    byStatus[models.SubmissionStatusRevision],
		GradedThisWeek:       graded,
		AverageGrade:         roundGrade(average),
		AwaitingReview:       summarize(awaiting),
		CategoryAverages:     convertCategoryAverages(averages),
		GeneratedAt:          now,
	}

	s.writeCache(ctx, staffDashboardKey, response)
	return response, nil
}

func (s *dashboardService) Student(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	var response dto.StudentDashboardResponse
	key := fmt.Sprintf(studentDashboardKey, studentID)

	if !s.readCache(ctx, key, &response) {
		built, err := s.buildStudent(ctx, studentID)
		if err != nil {
			return dto.StudentDashboardResponse{}, err
		}
		response = built
		s.writeCache(ctx, key, response)
	} else {
		response.CacheHit = true
	}

	unread, err := s.notifications.CountUnread(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, err
	}
	response.UnreadNotifications = unread
	return response, nil
}

func (s *dashboardService) buildStudent(ctx context.Context, studentID uint) (dto.StudentDashboardResponse, error) {
	student, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		return dto.StudentDashboardResponse{}, translate(err, ErrUserNotFound, "")
	}

	now := s.now()
	var (
		byStatus     map[string]int64
		average      float64
		recent       []models.Submission
		achievements int64
		assignments  []models.Assignment
		submitted    []models.Submission
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	g.Go(func() (err error) { byStatus, err = s.analytics.CountSubmissionsByStatus(gctx, &studentID); return })
	g.Go(func() (err error) { average, err = s.analytics.AverageGrade(gctx, &studentID); return })
	g.Go(func() (err error) {
		recent, err = s.analytics.ListRecentlyGraded(gctx, studentID, dashboardListLimit)
		return
	})
	g.Go(func() (err error) { achievements, err = s.achievements.CountUnlocked(gctx, studentID); return })
	g.Go(func() (err error) {
		submitted, _, err = s.submissions.List(gctx, repository.SubmissionFilter{StudentID: &studentID})
		return
	})
	if student.ClassID != nil {
		g.Go(func() (err error) {
			assignments, _, err = s.assignments.List(gctx, repository.AssignmentFilter{
				Status:  models.AssignmentStatusPublished,
				ClassID: student.ClassID,
				Sort:    "deadline",
			})
			return
		})
	}
	if err := g.Wait(); err != nil {
		return dto.StudentDashboardResponse{}, err
	}

	done := make(map[uint]struct{}, len(submitted))
	for _, submission := range submitted {
		if submission.Status != models.SubmissionStatusRevision {
			done[submission.AssignmentID] = struct{}{}
		}
	}

	open := make([]models.Assignment, 0)
	for _, assignment := range assignments {
		if _, ok := done[assignment.ID]; ok || assignment.IsPastDue(now) {
			continue
		}
		open = append(open, assignment)
	}
	sort.SliceStable(open, func(i, j int) bool { return open[i].Deadline.Before(open[j].Deadline) })

	upcoming := make([]dto.AssignmentLite, 0, dashboardListLimit)
	for i := 0; i < len(open) && i < dashboardListLimit; i++ {
		upcoming = append(upcoming, dto.NewAssignmentLite(open[i]))
	}

	return dto.StudentDashboardResponse{
		OpenAssignments:      int64(len(open)),
		SubmissionsByStatus:  byStatus,
		AverageGrade:         roundGrade(average),
		RecentGrades:         summarize(recent),
		UpcomingDeadlines:    upcoming,
		AchievementsUnlocked: achievements,
		GeneratedAt:          now,
	}, nil
}

// Invalidate drops the staff dashboard and the dashboards of the given students.
func (s *dashboardService) Invalidate(ctx context.Context, userIDs ...uint) {
	if s.cache == nil {
		return
	}

	keys := []string{staffDashboardKey}
	for _, id := range userIDs {
		keys = append(keys, fmt.Sprintf(studentDashboardKey, id))
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Strs("keys", keys).Msg("failed to invalidate dashboard cache")
	}
}

func (s *dashboardService) readCache(ctx context.Context, key string, target interface{}) bool {
	if s.cache == nil {
		return false
	}

	cached, err := s.cache.Get(ctx, key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Str("key", key).Msg("failed to read dashboard cache")
		}
		return false
	}
	if err := json.Unmarshal(cached, target); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("discarding corrupt dashboard cache entry")
		return false
	}
	return true
}

func (s *dashboardService) writeCache(ctx context.Context, key string, value interface{}) {
	if s.cache == nil {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL).Err(); err != nil {
		s.logger.Warn().Err(err).Str("key", key).Msg("failed to store dashboard cache")
	}
}

func summarize(submissions []models.Submission) []dto.SubmissionSummary {
	summaries := make([]dto.SubmissionSummary, 0, len(submissions))
	for _, submission := range submissions {
		summaries = append(summaries, dto.SubmissionSummary{
			ID:              submission.ID,
			Title:           submission.Title,
			AssignmentID:    submission.AssignmentID,
			AssignmentTitle: submission.Assignment.Title,
			StudentID:       submission.StudentID,
			StudentName:     submission.Student.Name,
			ThumbnailURL:    submission.ImageThumbnailURL,
			Status:          submission.Status,
			Grade:           submission.Grade,
			SubmittedAt:     submission.SubmittedAt,
			GradedAt:        submission.GradedAt,
		})
	}
	return summaries
}

func convertCategoryAverages(rows []repository.CategoryAverage) []dto.CategoryAverage {
	averages := make([]dto.CategoryAverage, 0, len(rows))
	for _, row := range rows {
		averages = append(averages, dto.CategoryAverage{
			CategoryID:   row.CategoryID,
			CategoryName: row.CategoryName,
			Average:      roundGrade(row.Average),
			Count:        row.Count,
		})
	}
	return averages
}

func roundGrade(value float64) float64 {
	return float64(int64(value*100+0.5)) / 100
}
