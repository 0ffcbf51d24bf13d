package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/middleware"
	"github.com/noah-isme/seniku-go-api/internal/service"
	"github.com/noah-isme/seniku-go-api/internal/utils"
)

// AchievementHandler exposes achievement definitions and unlocked badges.
type AchievementHandler struct {
	service service.AchievementService
	logger  zerolog.Logger
}

// NewAchievementHandler constructs the handler.
func NewAchievementHandler(service service.AchievementService, logger zerolog.Logger) *AchievementHandler {
	return &AchievementHandler{
		service: service,
		logger:  logger.With().Str("component", "achievement_handler").Logger(),
	}
}

// Register attaches achievement routes.
func (h *AchievementHandler) Register(router fiber.Router) {
	admin := middleware.AuthOptions{Role: middleware.AuthRoleAdmin}
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Get("", h.list)
	router.Get("/me", h.mine)
	router.Get("/students/:studentId", middleware.WithAuth(h.forStudent, staff))
	router.Get("/:id", h.get)
	router.Post("", middleware.WithAuth(h.create, admin))
	router.Post("/seed", middleware.WithAuth(h.seed, admin))
	router.Put("/:id", middleware.WithAuth(h.update, admin))
	router.Delete("/:id", middleware.WithAuth(h.delete, admin))
}

func (h *AchievementHandler) list(c *fiber.Ctx) error {
	achievements, err := h.service.List(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "achievements retrieved", achievements)
}

func (h *AchievementHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	achievement, err := h.service.Get(requestContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "achievement retrieved", achievement)
}

func (h *AchievementHandler) mine(c *fiber.Ctx) error {
	response, err := h.service.ForStudent(requestContext(c), userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "achievements retrieved", response)
}

func (h *AchievementHandler) forStudent(c *fiber.Ctx) error {
	studentID, err := parseIDParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	response, err := h.service.ForStudent(requestContext(c), studentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "achievements retrieved", response)
}

func (h *AchievementHandler) create(c *fiber.Ctx) error {
	var payload dto.AchievementRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	achievement, err := h.service.Create(requestContext(c), actorFromContext(c), payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendCreated(c, "achievement created", achievement)
}

func (h *AchievementHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AchievementRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	achievement, err := h.service.Update(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "achievement updated", achievement)
}

func (h *AchievementHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), actorFromContext(c), id, parseQueryBool(c, "force")); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "achievement deleted", nil)
}

func (h *AchievementHandler) seed(c *fiber.Ctx) error {
	created, err := h.service.SeedDefaults(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "achievements seeded", fiber.Map{"created": created})
}
