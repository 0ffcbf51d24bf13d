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

// CategoryService manages art categories.
type CategoryService interface {
	List(ctx context.Context) ([]dto.CategoryResponse, error)
	Get(ctx context.Context, id uint) (dto.CategoryResponse, error)
	Create(ctx context.Context, actor Actor, req dto.CategoryRequest) (dto.CategoryResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.CategoryRequest) (dto.CategoryResponse, error)
	Delete(ctx context.Context, actor Actor, id uint, force bool) error
}

type categoryService struct {
	repo      repository.CategoryRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewCategoryService constructs the category service.
func NewCategoryService(repo repository.CategoryRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) CategoryService {
	return &categoryService{
		repo:      repo,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "category_service").Logger(),
	}
}

func (s *categoryService) List(ctx context.Context) ([]dto.CategoryResponse, error) {
	categories, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}

	responses := make([]dto.CategoryResponse, 0, len(categories))
	for _, category := range categories {
		responses = append(responses, dto.NewCategoryResponse(category))
	}
	return responses, nil
}

func (s *categoryService) Get(ctx context.Context, id uint) (dto.CategoryResponse, error) {
	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.CategoryResponse{}, translate(err, ErrCategoryNotFound, "")
	}
	return dto.NewCategoryResponse(category), nil
}

func (s *categoryService) Create(ctx context.Context, actor Actor, req dto.CategoryRequest) (dto.CategoryResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CategoryResponse{}, err
	}

	category := models.Category{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
	}
	if err := s.repo.Create(ctx, &category); err != nil {
		return dto.CategoryResponse{}, translate(err, ErrCategoryNotFound, "category name already exists")
	}

	s.record(ctx, actor, "category.created", category.ID)
	return dto.NewCategoryResponse(category), nil
}

func (s *categoryService) Update(ctx context.Context, actor Actor, id uint, req dto.CategoryRequest) (dto.CategoryResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.CategoryResponse{}, err
	}

	category, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return dto.CategoryResponse{}, translate(err, ErrCategoryNotFound, "")
	}

	category.Name = strings.TrimSpace(req.Name)
	category.Description = strings.TrimSpace(req.Description)
	if err := s.repo.Update(ctx, &category); err != nil {
		return dto.CategoryResponse{}, translate(err, ErrCategoryNotFound, "category name already exists")
	}

	s.record(ctx, actor, "category.updated", category.ID)
	return dto.NewCategoryResponse(category), nil
}

// Delete refuses while assignments use the category unless force removes them along with their submissions.
func (s *categoryService) Delete(ctx context.Context, actor Actor, id uint, force bool) error {
	if _, err := s.repo.GetByID(ctx, id); err != nil {
		return translate(err, ErrCategoryNotFound, "")
	}

	count, err := s.repo.CountAssignments(ctx, id)
	if err != nil {
		return err
	}
	if count > 0 && !force {
		return ErrHasDependents
	}

	if err := s.repo.Delete(ctx, id, force); err != nil {
		return translate(err, ErrCategoryNotFound, "")
	}

	s.logger.Info().Uint("category_id", id).Int64("assignments", count).Msg("category deleted")
	s.record(ctx, actor, "category.deleted", id)
	return nil
}

func (s *categoryService) record(ctx context.Context, actor Actor, action string, id uint) {
	entityID := id
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{Actor: actor, Action: action, EntityType: "category", EntityID: &entityID})
}
