package handler

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/middleware"
	"github.com/noah-isme/seniku-go-api/internal/service"
	"github.com/noah-isme/seniku-go-api/internal/utils"
)

// ExportHandler streams generated spreadsheets and PDFs.
type ExportHandler struct {
	service service.ExportService
	logger  zerolog.Logger
}

// NewExportHandler constructs the handler.
func NewExportHandler(service service.ExportService, logger zerolog.Logger) *ExportHandler {
	return &ExportHandler{
		service: service,
		logger:  logger.With().Str("component", "export_handler").Logger(),
	}
}

// Register attaches /exports routes.
func (h *ExportHandler) Register(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}

	router.Get("/grades.xlsx", middleware.WithAuth(h.gradesWorkbook, staff))
	router.Get("/grades.pdf", middleware.WithAuth(h.gradesPDF, staff))
	router.Get("/portfolio/:studentId", h.portfolio)
}

func (h *ExportHandler) gradesWorkbook(c *fiber.Ctx) error {
	req, err := parseExportRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := h.service.GradesWorkbook(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return sendFile(c, file)
}

func (h *ExportHandler) gradesPDF(c *fiber.Ctx) error {
	req, err := parseExportRequest(c)
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := h.service.GradesPDF(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return sendFile(c, file)
}

func (h *ExportHandler) portfolio(c *fiber.Ctx) error {
	studentID, err := parseIDParam(c, "studentId")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	file, err := h.service.PortfolioPDF(requestContext(c), actorFromContext(c), studentID)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return sendFile(c, file)
}

func parseExportRequest(c *fiber.Ctx) (dto.ExportRequest, error) {
	var req dto.ExportRequest
	for key, target := range map[string]**uint{
		"class_id":      &req.ClassID,
		"category_id":   &req.CategoryID,
		"assignment_id": &req.AssignmentID,
		"student_id":    &req.StudentID,
	} {
		value, err := parseQueryUint(c, key)
		if err != nil {
			return dto.ExportRequest{}, err
		}
		*target = value
	}

	from, err := parseQueryTime(c, "from")
	if err != nil {
		return dto.ExportRequest{}, err
	}
	to, err := parseQueryTime(c, "to")
	if err != nil {
		return dto.ExportRequest{}, err
	}
	req.From, req.To = from, to
	return req, nil
}

func sendFile(c *fiber.Ctx, file dto.ExportFile) error {
	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.Filename))
	return c.Status(fiber.StatusOK).Send(file.Data)
}
