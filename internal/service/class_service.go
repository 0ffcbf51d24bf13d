package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/repository"
)

// ClassService manages homeroom classes and their teacher rosters.
type ClassService interface {
	List(ctx context.Context, search string) ([]dto.ClassResponse, error)
	Get(ctx context.Context, id uint) (dto.ClassResponse, error)
	Create(ctx context.Context, actor Actor, req dto.ClassRequest) (dto.ClassResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.ClassRequest) (dto.ClassResponse, error)
	Delete(ctx context.Context, actor Actor, id uint, force bool) error
}

type classService struct {
	repo      repository.ClassRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewClassService constructs the class service.
func NewClassService(repo repository.ClassRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) ClassService {
	return &classService{
		repo:      repo,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "class_service").Logger(),
	}
}

func (s *classService) List(ctx context.Context, search string) ([]dto.ClassResponse, error) {
	classes, err := s.repo.List(ctx, search)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.ClassResponse, 0, len(classes))
	for _, class := range classes {
		responses = append(responses, dto.NewClassResponse(class))
	}
	return responses, nil
}

func (s *classService) Get(ctx context.Context, id uint) (dto.ClassResponse, error) {
	class, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.ClassResponse{}, translate(err, ErrClassNotFound, "")
	}
	return dto.NewClassResponse(class), nil
}

func (s *classService) Create(ctx context.Context, actor Actor, req dto.ClassRequest) (dto.ClassResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ClassResponse{}, err
	}

	class := models.Class{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.repo.Create(ctx, &class); err != nil {
		return dto.ClassResponse{}, translate(err, ErrClassNotFound, "class name already exists")
	}
	if len(req.TeacherIDs) > 0 {
		if err := s.repo.ReplaceTeachers(ctx, &class, req.TeacherIDs); err != nil {
			return dto.ClassResponse{}, err
		}
	}

	s.record(ctx, actor, "class.created", class.ID)
	return s.Get(ctx, class.ID)
}

func (s *classService) Update(ctx context.Context, actor Actor, id uint, req dto.ClassRequest) (dto.ClassResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ClassResponse{}, err
	}

	class, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.ClassResponse{}, translate(err, ErrClassNotFound, "")
	}

	class.Name = strings.TrimSpace(req.Name)
	class.Description = strings.TrimSpace(req.Description)
	if err := s.repo.Update(ctx, &class); err != nil {
		return dto.ClassResponse{}, translate(err, ErrClassNotFound, "class name already exists")
	}
	if req.TeacherIDs != nil {
		if err := s.repo.ReplaceTeachers(ctx, &class, req.TeacherIDs); err != nil {
			return dto.ClassResponse{}, err
		}
	}

	s.record(ctx, actor, "class.updated", class.ID)
	return s.Get(ctx, class.ID)
}

// Delete refuses while students or assignments reference the class unless force detaches them.
func (s *classService) Delete(ctx context.Context, actor Actor, id uint, force bool) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return translate(err, ErrClassNotFound, "")
	}

	dependents, err := s.repo.CountDependents(ctx, id)
	if err != nil {
		return err
	}
	if dependents.Total() > 0 && !force {
		return ErrHasDependents
	}

	if err := s.repo.Delete(ctx, id, force); err != nil {
		return translate(err, ErrClassNotFound, "")
	}

	s.logger.Info().Uint("class_id", id).Int64("students", dependents.Students).Int64("assignments", dependents.Assignments).Msg("class deleted")
	s.record(ctx, actor, "class.deleted", id)
	return nil
}

func (s *classService) record(ctx context.Context, actor Actor, action string, id uint) {
	entityID := id
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{Actor: actor, Action: action, EntityType: "class", EntityID: &entityID})
}
