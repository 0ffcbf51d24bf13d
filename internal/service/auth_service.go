package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/repository"
)

// AuthService handles login, token rotation and password management.
type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (dto.TokenResponse, error)
	Refresh(ctx context.Context, req dto.RefreshRequest) (dto.TokenResponse, error)
	Logout(ctx context.Context, userID uint) error
	Me(ctx context.Context, userID uint) (dto.UserResponse, error)
	ChangePassword(ctx context.Context, userID uint, req dto.ChangePasswordRequest) error
}

type authService struct {
	users     repository.UserRepository
	tokens    *TokenManager
	validator *validator.Validate
	logger    zerolog.Logger
}

// NewAuthService constructs the authentication service.
func NewAuthService(users repository.UserRepository, tokens *TokenManager, validate *validator.Validate, logger zerolog.Logger) AuthService {
	return &authService{
		users:     users,
		tokens:    tokens,
		validator: validate,
		logger:    logger.With().Str("component", "auth_service").Logger(),
	}
}

// HashPassword hashes a plaintext password with bcrypt's default cost.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (dto.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TokenResponse{}, err
	}

	identifier := strings.TrimSpace(req.Identifier)
	user, err := s.users.GetByIdentifier(ctx, identifier)
	if err != nil {
		if isNotFound(err) {
			s.logger.Info().Str("identifier", identifier).Msg("login rejected: unknown identifier")
			return dto.TokenResponse{}, ErrInvalidCredentials
		}
		return dto.TokenResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		s.logger.Info().Uint("user_id", user.ID).Msg("login rejected: wrong password")
		return dto.TokenResponse{}, ErrInvalidCredentials
	}

	s.logger.Info().Uint("user_id", user.ID).Str("role", user.Role).Msg("user logged in")
	return s.issue(user)
}

func (s *authService) Refresh(ctx context.Context, req dto.RefreshRequest) (dto.TokenResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.TokenResponse{}, err
	}

	claims, err := s.tokens.ParseRefresh(strings.TrimSpace(req.RefreshToken))
	if err != nil {
		return dto.TokenResponse{}, err
	}
	userID, err := claims.UserID()
	if err != nil {
		return dto.TokenResponse{}, ErrInvalidToken.Wrap(err)
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return dto.TokenResponse{}, ErrInvalidToken
		}
		return dto.TokenResponse{}, err
	}
	if claims.Version != user.TokenVersion {
		return dto.TokenResponse{}, ErrInvalidToken.Wrap(errors.New("token revoked"))
	}

	return s.issue(user)
}

func (s *authService) Logout(ctx context.Context, userID uint) error {
	if err := s.users.IncrementTokenVersion(ctx, userID); err != nil {
		return translate(err, ErrUserNotFound, "")
	}
	s.logger.Info().Uint("user_id", userID).Msg("refresh tokens revoked")
	return nil
}

func (s *authService) Me(ctx context.Context, userID uint) (dto.UserResponse, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return dto.UserResponse{}, translate(err, ErrUserNotFound, "")
	}
	return dto.NewUserResponse(user), nil
}

func (s *authService) ChangePassword(ctx context.Context, userID uint, req dto.ChangePasswordRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return translate(err, ErrUserNotFound, "")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.CurrentPassword)); err != nil {
		return ErrWrongPassword
	}

	hashed, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	user.PasswordHash = hashed
	if err := s.users.Update(ctx, &user); err != nil {
		return err
	}

	return s.users.IncrementTokenVersion(ctx, userID)
}

func (s *authService) issue(user models.User) (dto.TokenResponse, error) {
	access, err := s.tokens.IssueAccess(user)
	if err != nil {
		return dto.TokenResponse{}, err
	}
	refresh, err := s.tokens.IssueRefresh(user)
	if err != nil {
		return dto.TokenResponse{}, err
	}

	return dto.TokenResponse{
		AccessToken:      access,
		RefreshToken:     refresh,
		TokenType:        "Bearer",
		ExpiresIn:        int64(s.tokens.AccessTTL() / time.Second),
		RefreshExpiresIn: int64(s.tokens.RefreshTTL() / time.Second),
		User:             dto.NewUserResponse(user),
	}, nil
}
