package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/middleware"
	"github.com/noah-isme/seniku-go-api/internal/service"
	"github.com/noah-isme/seniku-go-api/internal/utils"
)

// UserHandler manages accounts and the caller's own profile.
type UserHandler struct {
	service        service.UserService
	logger         zerolog.Logger
	maxUploadBytes int64
}

// NewUserHandler constructs the handler.
func NewUserHandler(service service.UserService, maxUploadBytes int64, logger zerolog.Logger) *UserHandler {
	return &UserHandler{
		service:        service,
		logger:         logger.With().Str("component", "user_handler").Logger(),
		maxUploadBytes: maxUploadBytes,
	}
}

// Register attaches account management routes. Staff may read, only admins may write.
func (h *UserHandler) Register(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}
	admin := middleware.AuthOptions{Role: middleware.AuthRoleAdmin}

	router.Get("", middleware.WithAuth(h.list, staff))
	router.Post("", middleware.WithAuth(h.create, admin))
	router.Get("/:id", middleware.WithAuth(h.get, staff))
	router.Put("/:id", middleware.WithAuth(h.update, admin))
	router.Delete("/:id", middleware.WithAuth(h.delete, admin))
}

// RegisterProfile attaches self-service profile routes.
func (h *UserHandler) RegisterProfile(router fiber.Router) {
	router.Put("", h.updateProfile)
	router.Post("/avatar", h.uploadAvatar)
}

func (h *UserHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	classID, err := parseQueryUint(c, "class_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.List(requestContext(c), dto.UserListRequest{
		Role:     c.Query("role"),
		ClassID:  classID,
		Search:   c.Query("search"),
		Page:     page,
		PageSize: pageSize,
	})
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, response.Items, "users retrieved", response.Pagination)
}

func (h *UserHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	user, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "user retrieved", user)
}

func (h *UserHandler) create(c *fiber.Ctx) error {
	var payload dto.UserCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.Create(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "user created", user)
}

func (h *UserHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.UserUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.Update(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "user updated", user)
}

func (h *UserHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "user deleted", nil)
}

func (h *UserHandler) updateProfile(c *fiber.Ctx) error {
	var payload dto.ProfileUpdateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	user, err := h.service.UpdateProfile(requestContext(c), userIDFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "profile updated", user)
}

func (h *UserHandler) uploadAvatar(c *fiber.Ctx) error {
	upload, err := readUpload(c, "avatar", h.maxUploadBytes)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	if upload == nil {
		return utils.SendError(c, fiber.StatusBadRequest, "avatar file is required")
	}

	user, err := h.service.UploadAvatar(requestContext(c), userIDFromContext(c), *upload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "avatar updated", user)
}
