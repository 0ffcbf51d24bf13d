package service

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/noah-isme/seniku-go-api/internal/apperror"
	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/repository"
)

const avatarBucket = "avatars"

var (
	// ErrIdentifierRequired rejects accounts missing the identifier their role logs in with.
	ErrIdentifierRequired = apperror.Validation("staff accounts need a NIP and students a NIS")
	// ErrCannotDeleteSelf rejects an administrator deleting their own account.
	ErrCannotDeleteSelf = apperror.DomainRule("you cannot delete your own account")
)

const identifierConflict = "NIP, NIS or email already registered"

// UserService manages accounts and profiles.
type UserService interface {
	List(ctx context.Context, req dto.UserListRequest) (dto.UserListResponse, error)
	Get(ctx context.Context, id uint) (dto.UserResponse, error)
	Create(ctx context.Context, actor Actor, req dto.UserCreateRequest) (dto.UserResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.UserUpdateRequest) (dto.UserResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	UpdateProfile(ctx context.Context, userID uint, req dto.ProfileUpdateRequest) (dto.UserResponse, error)
	UploadAvatar(ctx context.Context, userID uint, image ImageUpload) (dto.UserResponse, error)
}

type userService struct {
	users     repository.UserRepository
	classes   repository.ClassRepository
	validator *validator.Validate
	uploader  *artworkUploader
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewUserService constructs the user service.
func NewUserService(
	users repository.UserRepository,
	classes repository.ClassRepository,
	validate *validator.Validate,
	processor ImageProcessor,
	store ImageStore,
	activity ActivityRecorder,
	logger zerolog.Logger,
) UserService {
	logger = logger.With().Str("component", "user_service").Logger()
	return &userService{
		users:     users,
		classes:   classes,
		validator: validate,
		uploader:  newArtworkUploader(processor, store, logger),
		activity:  activity,
		logger:    logger,
	}
}

func (s *userService) List(ctx context.Context, req dto.UserListRequest) (dto.UserListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserListResponse{}, err
	}

	filter := repository.UserFilter{
		Role:     req.Role,
		ClassID:  req.ClassID,
		Search:   req.Search,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	users, total, err := s.users.List(ctx, filter)
	if err != nil {
		return dto.UserListResponse{}, err
	}

	return dto.UserListResponse{
		Items:      dto.NewUserResponseSlice(users),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *userService) Get(ctx context.Context, id uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return dto.UserResponse{}, translate(err, ErrUserNotFound, "")
	}
	return dto.NewUserResponse(user), nil
}

func (s *userService) Create(ctx context.Context, actor Actor, req dto.UserCreateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	user := models.User{
		Name:  strings.TrimSpace(req.Name),
		Email: normalizeOptional(req.Email, true),
		NIP:   normalizeOptional(req.NIP, false),
		NIS:   normalizeOptional(req.NIS, false),
		Role:  req.Role,
	}
	if err := checkIdentifiers(user); err != nil {
		return dto.UserResponse{}, err
	}

	if user.Role == models.RoleStudent && req.ClassID != nil {
		if _, err := s.classes.GetByID(ctx, *req.ClassID); err != nil {
			return dto.UserResponse{}, translate(err, ErrClassNotFound, "")
		}
		user.ClassID = req.ClassID
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		return dto.UserResponse{}, err
	}
	user.PasswordHash = hashed

	if err := s.users.Create(ctx, &user); err != nil {
		return dto.UserResponse{}, translate(err, ErrUserNotFound, identifierConflict)
	}
	if user.Role != models.RoleStudent && len(req.ClassIDs) > 0 {
		if err := s.users.ReplaceTeachingClasses(ctx, &user, req.ClassIDs); err != nil {
			return dto.UserResponse{}, err
		}
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("user created")
	s.record(ctx, actor, "user.created", user.ID)
	return s.Get(ctx, user.ID)
}

func (s *userService) Update(ctx context.Context, actor Actor, id uint, req dto.UserUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return dto.UserResponse{}, translate(err, ErrUserNotFound, "")
	}

	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		user.Email = normalizeOptional(req.Email, true)
	}
	if req.NIP != nil {
		user.NIP = normalizeOptional(req.NIP, false)
	}
	if req.NIS != nil {
		user.NIS = normalizeOptional(req.NIS, false)
	}
	if err := checkIdentifiers(user); err != nil {
		return dto.UserResponse{}, err
	}
	if req.ClassID != nil && user.Role == models.RoleStudent {
		if _, err := s.classes.GetByID(ctx, *req.ClassID); err != nil {
			return dto.UserResponse{}, translate(err, ErrClassNotFound, "")
		}
		user.ClassID = req.ClassID
		user.Class = nil
	}

	revoke := false
	if req.Password != nil {
		hashed, err := HashPassword(*req.Password)
		if err != nil {
			return dto.UserResponse{}, err
		}
		user.PasswordHash = hashed
		revoke = true
	}

	if err := s.users.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, translate(err, ErrUserNotFound, identifierConflict)
	}
	if req.ClassIDs != nil && user.Role != models.RoleStudent {
		if err := s.users.ReplaceTeachingClasses(ctx, &user, req.ClassIDs); err != nil {
			return dto.UserResponse{}, err
		}
	}
	if revoke {
		if err := s.users.IncrementTokenVersion(ctx, user.ID); err != nil {
			return dto.UserResponse{}, err
		}
	}

	s.record(ctx, actor, "user.updated", user.ID)
	return s.Get(ctx, user.ID)
}

func (s *userService) Delete(ctx context.Context, actor Actor, id uint) error {
	if actor.ID == id {
		return ErrCannotDeleteSelf
	}
	if err := s.users.Delete(ctx, id); err != nil {
		return translate(err, ErrUserNotFound, "")
	}

	s.logger.Info().Uint("user_id", id).Uint("actor_id", actor.ID).Msg("user deleted")
	s.record(ctx, actor, "user.deleted", id)
	return nil
}

func (s *userService) UpdateProfile(ctx context.Context, userID uint, req dto.ProfileUpdateRequest) (dto.UserResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.UserResponse{}, err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, translate(err, ErrUserNotFound, "")
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Bio != nil {
		user.Bio = strings.TrimSpace(*req.Bio)
	}

	if err := s.users.Update(ctx, &user); err != nil {
		return dto.UserResponse{}, err
	}
	return dto.NewUserResponse(user), nil
}

// UploadAvatar stores a new avatar and removes the previous one.
func (s *userService) UploadAvatar(ctx context.Context, userID uint, image ImageUpload) (dto.UserResponse, error) {
	if len(image.Data) == 0 {
		return dto.UserResponse{}, ErrImageRequired
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, translate(err, ErrUserNotFound, "")
	}

	set, err := s.uploader.upload(ctx, avatarBucket, userID, image.Data)
	if err != nil {
		return dto.UserResponse{}, err
	}

	previous := user.AvatarURL
	user.AvatarURL = set.ImageMediumURL
	if err := s.users.Update(ctx, &user); err != nil {
		s.uploader.discard(context.WithoutCancel(ctx), set)
		return dto.UserResponse{}, err
	}

	cleanup := models.ImageSet{ImageURL: set.ImageURL, ImageThumbnailURL: set.ImageThumbnailURL, ImageMediumURL: previous}
	s.uploader.discard(ctx, cleanup)

	return dto.NewUserResponse(user), nil
}

func (s *userService) record(ctx context.Context, actor Actor, action string, id uint) {
	entityID := id
	recordActivity(ctx, s.activity, s.logger, ActivityEntry{Actor: actor, Action: action, EntityType: "user", EntityID: &entityID})
}

func checkIdentifiers(user models.User) error {
	switch user.Role {
	case models.RoleStudent:
		if user.NIS == nil {
			return ErrIdentifierRequired
		}
	default:
		if user.NIP == nil {
			return ErrIdentifierRequired
		}
	}
	return nil
}

func normalizeOptional(value *string, lower bool) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	if lower {
		trimmed = strings.ToLower(trimmed)
	}
	return &trimmed
}
