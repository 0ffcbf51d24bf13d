package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/repository"
)

type dashboardHarness struct {
	db      *gorm.DB
	fixture serviceFixture
	mini    *miniredis.Miniredis
	service DashboardService
}

func setupDashboardService(t *testing.T) dashboardHarness {
	t.Helper()

	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	db := setupServiceDB(t)
	fixture := seedServiceFixture(t, db)

	svc := NewDashboardService(DashboardDependencies{
		Analytics:     repository.NewAnalyticsRepository(db),
		Assignments:   repository.NewAssignmentRepository(db),
		Users:         repository.NewUserRepository(db),
		Submissions:   repository.NewSubmissionRepository(db),
		Achievements:  repository.NewAchievementRepository(db),
		Notifications: repository.NewNotificationRepository(db),
		Cache:         redis.NewClient(&redis.Options{Addr: mini.Addr()}),
		CacheTTL:      time.Minute,
		Logger:        testLogger(),
	})
	concrete := svc.(*dashboardService)
	concrete.now = func() time.Time { return fixedNow }
	concrete.concurrency = 1

	return dashboardHarness{db: db, fixture: fixture, mini: mini, service: svc}
}

func seedDashboardWork(t *testing.T, h dashboardHarness) {
	t.Helper()
	assignments := repository.NewAssignmentRepository(h.db)

	graded := models.Assignment{
		Title:       "Still life",
		CategoryID:  h.fixture.category.ID,
		Deadline:    fixedNow.Add(-48 * time.Hour),
		Status:      models.AssignmentStatusPublished,
		CreatedByID: h.fixture.teacher.ID,
	}
	open := models.Assignment{
		Title:       "Landscape",
		CategoryID:  h.fixture.category.ID,
		Deadline:    fixedNow.Add(24 * time.Hour),
		Status:      models.AssignmentStatusPublished,
		CreatedByID: h.fixture.teacher.ID,
	}
	draft := models.Assignment{
		Title:       "Sculpture",
		CategoryID:  h.fixture.category.ID,
		Deadline:    fixedNow.Add(96 * time.Hour),
		Status:      models.AssignmentStatusDraft,
		CreatedByID: h.fixture.teacher.ID,
	}
	for _, assignment := range []*models.Assignment{&graded, &open, &draft} {
		require.NoError(t, assignments.Create(context.Background(), assignment, []uint{h.fixture.class.ID}))
	}

	grade := 88
	gradedAt := fixedNow.Add(-24 * time.Hour)
	rows := []models.Submission{
		{
			AssignmentID: h.fixture.assignment.ID,
			StudentID:    h.fixture.student.ID,
			Title:        "Me",
			ImageSet:     models.ImageSet{ImageURL: "https://cdn.test/a.webp"},
			Status:       models.SubmissionStatusPending,
			SubmittedAt:  fixedNow.Add(-time.Hour),
		},
		{
			AssignmentID: graded.ID,
			StudentID:    h.fixture.student.ID,
			Title:        "Fruit bowl",
			ImageSet:     models.ImageSet{ImageURL: "https://cdn.test/b.webp"},
			Status:       models.SubmissionStatusGraded,
			Grade:        &grade,
			GradedAt:     &gradedAt,
			SubmittedAt:  fixedNow.Add(-72 * time.Hour),
		},
	}
	for i := range rows {
		require.NoError(t, h.db.Create(&rows[i]).Error)
	}
}

func TestDashboardServiceTeacherAggregatesAndCaches(t *testing.T) {
	h := setupDashboardService(t)
	seedDashboardWork(t, h)
	ctx := context.Background()

	first, err := h.service.Teacher(ctx)
	require.NoError(t, err)
	require.False(t, first.CacheHit)
	require.Equal(t, int64(1), first.TotalStudents)
	require.Equal(t, int64(4), first.TotalAssignments)
	require.Equal(t, int64(3), first.PublishedAssignments)
	require.Equal(t, int64(1), first.PendingReviews)
	require.Equal(t, int64(1), first.GradedThisWeek)
	require.InDelta(t, 88.0, first.AverageGrade, 0.001)
	require.Len(t, first.AwaitingReview, 1)
	require.Equal(t, "Self portrait", first.AwaitingReview[0].AssignmentTitle)
	require.Len(t, first.CategoryAverages, 1)
	require.Equal(t, "Painting", first.CategoryAverages[0].CategoryName)
	require.True(t, h.mini.Exists(staffDashboardKey))

	second, err := h.service.Teacher(ctx)
	require.NoError(t, err)
	require.True(t, second.CacheHit)
	require.Equal(t, first.PendingReviews, second.PendingReviews)
}

func TestDashboardServiceStudentCountsOpenWork(t *testing.T) {
	h := setupDashboardService(t)
	seedDashboardWork(t, h)
	ctx := context.Background()

	require.NoError(t, h.db.Create(&models.Notification{
		UserID: h.fixture.student.ID,
		Type:   models.NotificationSystem,
		Title:  "Welcome",
	}).Error)

	dashboard, err := h.service.Student(ctx, h.fixture.student.ID)
	require.NoError(t, err)
	require.False(t, dashboard.CacheHit)
	require.Equal(t, int64(1), dashboard.OpenAssignments)
	require.Len(t, dashboard.UpcomingDeadlines, 1)
	require.Equal(t, "Landscape", dashboard.UpcomingDeadlines[0].Title)
	require.Equal(t, int64(1), dashboard.SubmissionsByStatus[models.SubmissionStatusPending])
	require.Equal(t, int64(1), dashboard.SubmissionsByStatus[models.SubmissionStatusGraded])
	require.Len(t, dashboard.RecentGrades, 1)
	require.Equal(t, int64(1), dashboard.UnreadNotifications)

	require.NoError(t, h.db.Create(&models.Notification{
		UserID: h.fixture.student.ID,
		Type:   models.NotificationSystem,
		Title:  "Reminder",
	}).Error)

	cached, err := h.service.Student(ctx, h.fixture.student.ID)
	require.NoError(t, err)
	require.True(t, cached.CacheHit)
	require.Equal(t, int64(2), cached.UnreadNotifications)
}

func TestDashboardServiceInvalidateDropsKeys(t *testing.T) {
	h := setupDashboardService(t)
	ctx := context.Background()

	_, err := h.service.Teacher(ctx)
	require.NoError(t, err)
	_, err = h.service.Student(ctx, h.fixture.student.ID)
	require.NoError(t, err)

	studentKey := fmt.Sprintf(studentDashboardKey, h.fixture.student.ID)
	require.True(t, h.mini.Exists(staffDashboardKey))
	require.True(t, h.mini.Exists(studentKey))

	h.service.Invalidate(ctx, h.fixture.student.ID)
	require.False(t, h.mini.Exists(staffDashboardKey))
	require.False(t, h.mini.Exists(studentKey))

	again, err := h.service.Teacher(ctx)
	require.NoError(t, err)
	require.False(t, again.CacheHit)
}

func TestDashboardServiceUnknownStudent(t *testing.T) {
	h := setupDashboardService(t)

	_, err := h.service.Student(context.Background(), 9999)
	require.ErrorIs(t, err, ErrUserNotFound)
}
