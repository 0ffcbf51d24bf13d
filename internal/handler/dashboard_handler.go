package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/seniku-go-api/internal/middleware"
	"github.com/noah-isme/seniku-go-api/internal/service"
	"github.com/noah-isme/seniku-go-api/internal/utils"
)

// DashboardHandler serves role dashboards and student portfolios.
type DashboardHandler struct {
	dashboards service.DashboardService
	portfolios service.PortfolioService
	logger     zerolog.Logger
}

// NewDashboardHandler constructs the handler.
func NewDashboardHandler(dashboards service.DashboardService, portfolios service.PortfolioService, logger zerolog.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboards: dashboards,
		portfolios: portfolios,
		logger:     logger.With().Str("component", "dashboard_handler").Logger(),
	}
}

// Register attaches /dashboard routes.
func (h *DashboardHandler) Register(router fiber.Router) {
	router.Get("/teacher", middleware.WithAuth(h.teacher, middleware.AuthOptions{Role: middleware.AuthRoleStaff}))
	router.Get("/student", middleware.WithAuth(h.student, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
}

// RegisterPortfolio attaches /portfolio routes.
func (h *DashboardHandler) RegisterPortfolio(router fiber.Router) {
	router.Get("/me", middleware.WithAuth(h.myPortfolio, middleware.AuthOptions{Role: middleware.AuthRoleStudent}))
	router.Get("/:studentId", h.portfolio)
}

func (h *DashboardHandler) teacher(c *fiber.Ctx) error {
	dashboard, err := h.dashboards.Teacher(requestContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "teacher dashboard", dashboard)
}

func (h *DashboardHandler) student(c *fiber.Ctx) error {
	dashboard, err := h.dashboards.Student(requestContext(c), userIDFromContext(c))
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "student dashboard", dashboard)
}

func (h *DashboardHandler) myPortfolio(c *fiber.Ctx) error {
	return h.renderPortfolio(c, userIDFromContext(c))
}

func (h *DashboardHandler) portfolio(c *fiber.Ctx) error {
	studentID, err := parseIDParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}
	return h.renderPortfolio(c, studentID)
}

func (h *DashboardHandler) renderPortfolio(c *fiber.Ctx, studentID uint) error {
	categoryID, err := parseQueryUint(c, "category_id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	portfolio, err := h.portfolios.Get(requestContext(c), actorFromContext(c), studentID, categoryID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "portfolio retrieved", portfolio)
}
