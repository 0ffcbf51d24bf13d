package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/service"
	"github.com/noah-isme/seniku-go-api/internal/utils"
)

// AuthHandler exposes login, token refresh and session endpoints.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register attaches the public routes to router and the session routes behind protect.
// loginLimiter may be nil.
func (h *AuthHandler) Register(router fiber.Router, protect, loginLimiter fiber.Handler) {
	if loginLimiter != nil {
		router.Post("/login", loginLimiter, h.login)
	} else {
		router.Post("/login", h.login)
	}
	router.Post("/refresh", h.refresh)

	router.Post("/logout", protect, h.logout)
	router.Get("/me", protect, h.me)
	router.Put("/password", protect, h.changePassword)
}

func (h *AuthHandler) login(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	tokens, err := h.service.Login(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "login successful", tokens)
}

func (h *AuthHandler) refresh(c *fiber.Ctx) error {
	var payload dto.RefreshRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	tokens, err := h.service.Refresh(requestContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "token refreshed", tokens)
}

func (h *AuthHandler) logout(c *fiber.Ctx) error {
	if err := h.service.Logout(requestContext(c), userIDFromContext(c)); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "logged out", nil)
}

func (h *AuthHandler) me(c *fiber.Ctx) error {
	user, err := h.service.Me(requestContext(c), userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "current user", user)
}

func (h *AuthHandler) changePassword(c *fiber.Ctx) error {
	var payload dto.ChangePasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	if err := h.service.ChangePassword(requestContext(c), userIDFromContext(c), payload); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "password changed; sign in again", nil)
}
