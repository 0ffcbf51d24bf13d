package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/observability"
	"github.com/noah-isme/seniku-go-api/internal/repository"
)

// AchievementService manages achievement definitions and unlocks them for students.
type AchievementService interface {
	AchievementEvaluator
	List(ctx context.Context) ([]dto.AchievementResponse, error)
	Get(ctx context.Context, id uint) (dto.AchievementResponse, error)
	Create(ctx context.Context, actor Actor, req dto.AchievementRequest) (dto.AchievementResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.AchievementRequest) (dto.AchievementResponse, error)
	Delete(ctx context.Context, actor Actor, id uint, force bool) error
	ForStudent(ctx context.Context, studentID uint) (dto.StudentAchievementsResponse, error)
	SeedDefaults(ctx context.Context) (int, error)
}

type achievementService struct {
	achievements  repository.AchievementRepository
	submissions   repository.SubmissionRepository
	notifications NotificationSink
	activity      ActivityRecorder
	validator     *validator.Validate
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewAchievementService constructs the achievement service.
func NewAchievementService(
	achievements repository.AchievementRepository,
	submissions repository.SubmissionRepository,
	notifications NotificationSink,
	activity ActivityRecorder,
	validate *validator.Validate,
	logger zerolog.Logger,
) AchievementService {
	return &achievementService{
		achievements:  achievements,
		submissions:   submissions,
		notifications: notifications,
		activity:      activity,
		validator:     validate,
		logger:        logger.With().Str("component", "achievement_service").Logger(),
		tracer:        otel.Tracer("github.com/noah-isme/seniku-go-api/internal/service/achievement"),
		now:           time.Now,
	}
}

// EvaluateForStudent unlocks every unearned achievement the student now satisfies. A failing
// unlock is logged and skipped so the rest of the batch still runs.
func (s *achievementService) EvaluateForStudent(ctx context.Context, studentID uint) ([]models.UserAchievement, error) {
	ctx, span := s.tracer.Start(ctx, "achievements.evaluate", trace.WithAttributes(
		attribute.Int64("achievement.student_id", int64(studentID)),
	))
	defer span.End()

	candidates, err := s.achievements.ListUnearned(ctx, studentID)
	if err != nil {
		return nil, failSpan(span, err, "list_unearned_failed")
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	records, err := s.submissions.GradedRecords(ctx, studentID)
	if err != nil {
		return nil, failSpan(span, err, "graded_records_failed")
	}
	stats := ComputeStats(records)

	unlocked := make([]models.UserAchievement, 0)
	for _, achievement := range candidates {
		criterion, err := ParseCriterion(achievement.Criteria)
		if err != nil {
			s.logger.Warn().Err(err).Uint("achievement_id", achievement.ID).Msg("skipping achievement with unreadable criteria")
			continue
		}
		if unknown, ok := criterion.(UnknownCriterion); ok {
			s.logger.Debug().Str("type", unknown.Type).Uint("achievement_id", achievement.ID).Msg("unknown criterion type")
			continue
		}
		if !Evaluate(criterion, stats) {
			continue
		}

		unlock := models.UserAchievement{
			UserID:        studentID,
			AchievementID: achievement.ID,
			UnlockedAt:    s.now(),
		}
		created, err := s.achievements.Unlock(ctx, &unlock)
		if err != nil {
			s.logger.Error().Err(err).Uint("achievement_id", achievement.ID).Uint("student_id", studentID).Msg("failed to unlock achievement")
			continue
		}
		if !created {
			continue
		}

		unlock.Achievement = achievement
		unlocked = append(unlocked, unlock)
		observability.AchievementsUnlocked().WithLabelValues(achievement.Name).Inc()
		s.logger.Info().Uint("achievement_id", achievement.ID).Uint("student_id", studentID).Msg("achievement unlocked")

		if s.notifications != nil {
			if err := s.notifications.Notify(ctx, NotificationInput{
				UserID:  studentID,
				Type:    models.NotificationAchievementUnlocked,
				Title:   fmt.Sprintf("Achievement unlocked: %s", achievement.Name),
				Message: achievement.Description,
				Link:    "/achievements",
			}); err != nil {
				s.logger.Warn().Err(err).Uint("achievement_id", achievement.ID).Msg("failed to notify achievement unlock")
			}
		}
	}

	span.SetAttributes(attribute.Int("achievement.unlocked", len(unlocked)))
	return unlocked, nil
}

func (s *achievementService) List(ctx context.Context) ([]dto.AchievementResponse, error) {
	achievements, err := s.achievements.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.AchievementResponse, 0, len(achievements))
	for _, item := range achievements {
		response := dto.NewAchievementResponse(item.Achievement)
		count := item.UnlockedCount
		response.UnlockedCount = &count
		responses = append(responses, response)
	}
	return responses, nil
}

func (s *achievementService) Get(ctx context.Context, id uint) (dto.AchievementResponse, error) {
	achievement, err := s.achievements.GetByID(ctx, id)
	if err != nil {
		return dto.AchievementResponse{}, translate(err, ErrAchievementNotFound, "")
	}

	count, err := s.achievements.CountUnlocks(ctx, id)
	if err != nil {
		return dto.AchievementResponse{}, err
	}

	response := dto.NewAchievementResponse(achievement)
	response.UnlockedCount = &count
	return response, nil
}

func (s *achievementService) Create(ctx context.Context, actor Actor, req dto.AchievementRequest) (dto.AchievementResponse, error) {
	if err := s.validate(req); err != nil {
		return dto.AchievementResponse{}, err
	}

	achievement := models.Achievement{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Icon:        strings.TrimSpace(req.Icon),
		Criteria:    datatypes.JSON(req.Criteria),
	}
	if err := s.achievements.Create(ctx, &achievement); err != nil {
		return dto.AchievementResponse{}, translate(err, ErrAchievementNotFound, "achievement name already exists")
	}

	s.record(ctx, actor, "achievement.created", achievement.ID)
	return dto.NewAchievementResponse(achievement), nil
}

func (s *achievementService) Update(ctx context.Context, actor Actor, id uint, req dto.AchievementRequest) (dto.AchievementResponse, error) {
	if err := s.validate(req); err != nil {
		return dto.AchievementResponse{}, err
	}

	achievement, err := s.achievements.GetByID(ctx, id)
	if err != nil {
		return dto.AchievementResponse{}, translate(err, ErrAchievementNotFound, "")
	}

	achievement.Name = strings.TrimSpace(req.Name)
	achievement.Description = strings.TrimSpace(req.Description)
	achievement.Icon = strings.TrimSpace(req.Icon)
	achievement.Criteria = datatypes.JSON(req.Criteria)

	if err := s.achievements.Update(ctx, &achievement); err != nil {
		return dto.AchievementResponse{}, translate(err, ErrAchievementNotFound, "achievement name already exists")
	}

	s.record(ctx, actor, "achievement.updated", achievement.ID)
	return dto.NewAchievementResponse(achievement), nil
}

func (s *achievementService) Delete(ctx context.Context, actor Actor, id uint, force bool) error {
	if _, err := s.achievements.GetByID(ctx, id); err != nil {
		return translate(err, ErrAchievementNotFound, "")
	}

	if !force {
		count, err := s.achievements.CountUnlocks(ctx, id)
		if err != nil {
			return err
		}
		if count > 0 {
			return ErrHasDependents
		}
	}

	if err := s.achievements.Delete(ctx, id, force); err != nil {
		return translate(err, ErrAchievementNotFound, "")
	}

	s.record(ctx, actor, "achievement.deleted", id)
	return nil
}

func (s *achievementService) ForStudent(ctx context.Context, studentID uint) (dto.StudentAchievementsResponse, error) {
	unlocks, err := s.achievements.ListUnlocked(ctx, studentID)
	if err != nil {
		return dto.StudentAchievementsResponse{}, err
	}
	locked, err := s.achievements.ListUnearned(ctx, studentID)
	if err != nil {
		return dto.StudentAchievementsResponse{}, err
	}

	response := dto.StudentAchievementsResponse{
		Unlocked: make([]dto.UnlockedAchievementResponse, 0, len(unlocks)),
		Locked:   make([]dto.AchievementResponse, 0, len(locked)),
	}
	for _, unlock := range unlocks {
		response.Unlocked = append(response.Unlocked, dto.UnlockedAchievementResponse{
			Achievement: dto.NewAchievementResponse(unlock.Achievement),
			UnlockedAt:  unlock.UnlockedAt,
		})
	}
	for _, achievement := range locked {
		response.Locked = append(response.Locked, dto.NewAchievementResponse(achievement))
	}
	return response, nil
}

// SeedDefaults inserts the starter achievements that do not exist yet and returns how many were added.
func (s *achievementService) SeedDefaults(ctx context.Context) (int, error) {
	created := 0
	for _, seed := range defaultAchievements {
		if _, err := s.achievements.GetByName(ctx, seed.Name); err == nil {
			continue
		} else if !isNotFound(err) {
			return created, err
		}

		achievement := seed
		if err := s.achievements.Create(ctx, &achievement); err != nil {
			if isDuplicate(err) {
				continue
			}
			return created, err
		}
		created++
	}

	if created > 0 {
		s.logger.Info().Int("count", created).Msg("seeded default achievements")
	}
	return created, nil
}

func (s *achievementService) validate(req dto.AchievementRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}
	return ValidateCriteria(req.Criteria)
}

func (s *achievementService) record(ctx context.Context, actor Actor, action string, id uint) {
	entityID := id
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     action,
		EntityType: "achievement",
		EntityID:   &entityID,
	})
}

var defaultAchievements = []models.Achievement{
	{
		Name:        "First Masterpiece",
		Description: "Receive your first grade.",
		Icon:        "palette",
		Criteria:    datatypes.JSON(`{"type":"total_graded_submissions","operator":">=","value":1}`),
	},
	{
		Name:        "Prolific Artist",
		Description: "Have ten graded submissions.",
		Icon:        "brush",
		Criteria:    datatypes.JSON(`{"type":"total_graded_submissions","operator":">=","value":10}`),
	},
	{
		Name:        "Excellence",
		Description: "Receive a grade of 90 or higher.",
		Icon:        "star",
		Criteria:    datatypes.JSON(`{"type":"highest_grade","operator":">=","value":90}`),
	},
	{
		Name:        "Consistent Quality",
		Description: "Keep an average grade of 85 or more.",
		Icon:        "trophy",
		Criteria:    datatypes.JSON(`{"type":"average_grade","operator":">=","value":85}`),
	},
	{
		Name:        "Explorer",
		Description: "Get graded in three different categories.",
		Icon:        "compass",
		Criteria:    datatypes.JSON(`{"type":"category_completion","operator":">=","value":3}`),
	},
	{
		Name:        "Straight A",
		Description: "Earn five grades of 90 or higher.",
		Icon:        "medal",
		Criteria:    datatypes.JSON(`{"type":"grade_count","operator":">=","value":5,"min_grade":90}`),
	},
}
