package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/repository"
)

// flakyUnlockRepo fails unlocks for one achievement so batch isolation can be observed.
type flakyUnlockRepo struct {
	repository.AchievementRepository
	failFor uint
}

func (r flakyUnlockRepo) Unlock(ctx context.Context, unlock *models.UserAchievement) (bool, error) {
	if unlock.AchievementID == r.failFor {
		return false, errors.New("write timeout")
	}
	return r.AchievementRepository.Unlock(ctx, unlock)
}

func setupAchievementService(t *testing.T, wrap func(repository.AchievementRepository) repository.AchievementRepository) (*gorm.DB, serviceFixture, AchievementService, *recordingNotifier) {
	t.Helper()

	db := setupServiceDB(t)
	fixture := seedServiceFixture(t, db)

	repo := repository.NewAchievementRepository(db)
	if wrap != nil {
		repo = wrap(repo)
	}
	notifier := &recordingNotifier{}

	svc := NewAchievementService(repo, repository.NewSubmissionRepository(db), notifier, &stubActivityRecorder{}, testValidator(), testLogger())
	return db, fixture, svc, notifier
}

func gradeSubmission(t *testing.T, db *gorm.DB, fixture serviceFixture, assignment models.Assignment, grade int) {
	t.Helper()
	g := grade
	submission := models.Submission{
		AssignmentID: assignment.ID,
		StudentID:    fixture.student.ID,
		Title:        assignment.Title,
		ImageSet:     imageSet(assignment.Title),
		Status:       models.SubmissionStatusGraded,
		Grade:        &g,
		SubmittedAt:  fixedNow,
	}
	require.NoError(t, db.Omit("Assignment", "Student", "Revisions").Create(&submission).Error)
}

func TestEvaluateForStudentUnlocksSatisfiedAchievements(t *testing.T) {
	db, fixture, svc, notifier := setupAchievementService(t, nil)
	ctx := context.Background()

	first := models.Achievement{Name: "First", Criteria: datatypes.JSON(`{"type":"total_graded_submissions","operator":">=","value":1}`)}
	prolific := models.Achievement{Name: "Prolific", Criteria: datatypes.JSON(`{"type":"total_graded_submissions","operator":">=","value":10}`)}
	mystery := models.Achievement{Name: "Mystery", Criteria: datatypes.JSON(`{"type":"streak","operator":">=","value":1}`)}
	require.NoError(t, db.Create(&first).Error)
	require.NoError(t, db.Create(&prolific).Error)
	require.NoError(t, db.Create(&mystery).Error)

	gradeSubmission(t, db, fixture, fixture.assignment, 88)

	unlocked, err := svc.EvaluateForStudent(ctx, fixture.student.ID)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	require.Equal(t, first.ID, unlocked[0].AchievementID)
	require.Len(t, notifier.ofType(models.NotificationAchievementUnlocked), 1)

	again, err := svc.EvaluateForStudent(ctx, fixture.student.ID)
	require.NoError(t, err)
	require.Empty(t, again)
	require.Len(t, notifier.ofType(models.NotificationAchievementUnlocked), 1)
}

func TestEvaluateForStudentIsolatesFailingUnlock(t *testing.T) {
	var failing models.Achievement
	db, fixture, svc, notifier := setupAchievementService(t, func(repo repository.AchievementRepository) repository.AchievementRepository {
		return &lazyFlakyRepo{AchievementRepository: repo, target: &failing}
	})

	failing = models.Achievement{Name: "Broken", Criteria: datatypes.JSON(`{"type":"total_graded_submissions","operator":">=","value":1}`)}
	working := models.Achievement{Name: "Working", Criteria: datatypes.JSON(`{"type":"highest_grade","operator":">=","value":50}`)}
	require.NoError(t, db.Create(&failing).Error)
	require.NoError(t, db.Create(&working).Error)
	gradeSubmission(t, db, fixture, fixture.assignment, 70)

	unlocked, err := svc.EvaluateForStudent(context.Background(), fixture.student.ID)
	require.NoError(t, err)
	require.Len(t, unlocked, 1)
	require.Equal(t, working.ID, unlocked[0].AchievementID)
	require.Len(t, notifier.inputs, 1)
}

type lazyFlakyRepo struct {
	repository.AchievementRepository
	target *models.Achievement
}

func (r *lazyFlakyRepo) Unlock(ctx context.Context, unlock *models.UserAchievement) (bool, error) {
	return flakyUnlockRepo{AchievementRepository: r.AchievementRepository, failFor: r.target.ID}.Unlock(ctx, unlock)
}

func TestAchievementCRUD(t *testing.T) {
	_, fixture, svc, _ := setupAchievementService(t, nil)
	ctx := context.Background()
	admin := Actor{ID: fixture.teacher.ID, Role: models.RoleAdmin}

	created, err := svc.Create(ctx, admin, dto.AchievementRequest{
		Name:     " Explorer ",
		Criteria: json.RawMessage(`{"type":"category_completion","operator":">=","value":3}`),
	})
	require.NoError(t, err)
	require.Equal(t, "Explorer", created.Name)

	_, err = svc.Create(ctx, admin, dto.AchievementRequest{
		Name:     "Explorer",
		Criteria: json.RawMessage(`{"type":"category_completion","operator":">=","value":3}`),
	})
	require.Error(t, err)

	_, err = svc.Create(ctx, admin, dto.AchievementRequest{
		Name:     "Broken",
		Criteria: json.RawMessage(`{"type":"category_completion","operator":"~","value":3}`),
	})
	require.ErrorIs(t, err, ErrInvalidCriteria)

	updated, err := svc.Update(ctx, admin, created.ID, dto.AchievementRequest{
		Name:        "Explorer",
		Description: "Three categories",
		Criteria:    json.RawMessage(`{"type":"category_completion","operator":">=","value":2}`),
	})
	require.NoError(t, err)
	require.Equal(t, "Three categories", updated.Description)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.NotNil(t, list[0].UnlockedCount)
	require.Zero(t, *list[0].UnlockedCount)

	require.NoError(t, svc.Delete(ctx, admin, created.ID, false))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrAchievementNotFound)
}

func TestAchievementDeleteRefusesUnlockedWithoutForce(t *testing.T) {
	db, fixture, svc, _ := setupAchievementService(t, nil)
	ctx := context.Background()
	admin := Actor{ID: fixture.teacher.ID, Role: models.RoleAdmin}

	achievement := models.Achievement{Name: "Earned", Criteria: datatypes.JSON(`{"type":"total_graded_submissions","operator":">=","value":0}`)}
	require.NoError(t, db.Create(&achievement).Error)
	require.NoError(t, db.Create(&models.UserAchievement{UserID: fixture.student.ID, AchievementID: achievement.ID, UnlockedAt: time.Now()}).Error)

	err := svc.Delete(ctx, admin, achievement.ID, false)
	require.ErrorIs(t, err, ErrHasDependents)

	require.NoError(t, svc.Delete(ctx, admin, achievement.ID, true))

	var unlocks int64
	require.NoError(t, db.Model(&models.UserAchievement{}).Count(&unlocks).Error)
	require.Zero(t, unlocks)
}

func TestStudentAchievementsView(t *testing.T) {
	db, fixture, svc, _ := setupAchievementService(t, nil)

	earned := models.Achievement{Name: "Earned", Criteria: datatypes.JSON(`{"type":"total_graded_submissions","operator":">=","value":0}`)}
	locked := models.Achievement{Name: "Locked", Criteria: datatypes.JSON(`{"type":"total_graded_submissions","operator":">=","value":99}`)}
	require.NoError(t, db.Create(&earned).Error)
	require.NoError(t, db.Create(&locked).Error)
	require.NoError(t, db.Create(&models.UserAchievement{UserID: fixture.student.ID, AchievementID: earned.ID, UnlockedAt: fixedNow}).Error)

	view, err := svc.ForStudent(context.Background(), fixture.student.ID)
	require.NoError(t, err)
	require.Len(t, view.Unlocked, 1)
	require.Equal(t, "Earned", view.Unlocked[0].Achievement.Name)
	require.Len(t, view.Locked, 1)
	require.Equal(t, "Locked", view.Locked[0].Name)
}

func TestSeedDefaultsIsIdempotent(t *testing.T) {
	_, _, svc, _ := setupAchievementService(t, nil)
	ctx := context.Background()

	created, err := svc.SeedDefaults(ctx)
	require.NoError(t, err)
	require.Equal(t, len(defaultAchievements), created)

	created, err = svc.SeedDefaults(ctx)
	require.NoError(t, err)
	require.Zero(t, created)

	for _, seed := range defaultAchievements {
		require.NoError(t, ValidateCriteria(seed.Criteria), seed.Name)
	}
}
