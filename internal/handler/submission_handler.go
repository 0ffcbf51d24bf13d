package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/middleware"
	"github.com/noah-isme/seniku-go-api/internal/service"
	"github.com/noah-isme/seniku-go-api/internal/utils"
)

// SubmissionHandler manages submission endpoints.
type SubmissionHandler struct {
	service        service.SubmissionService
	logger         zerolog.Logger
	maxUploadBytes int64
}

// NewSubmissionHandler builds a submission handler instance.
func NewSubmissionHandler(service service.SubmissionService, maxUploadBytes int64, logger zerolog.Logger) *SubmissionHandler {
	return &SubmissionHandler{
		service:        service,
		logger:         logger.With().Str("component", "submission_handler").Logger(),
		maxUploadBytes: maxUploadBytes,
	}
}

// Register attaches the routes to the provided router group.
func (h *SubmissionHandler) Register(router fiber.Router) {
	staff := middleware.AuthOptions{Role: middleware.AuthRoleStaff}
	student := middleware.AuthOptions{Role: middleware.AuthRoleStudent}

	router.Get("", h.list)
	router.Post("", middleware.WithAuth(h.submit, student))
	router.Get("/:id", h.get)
	router.Put("/:id", h.update)
	router.Delete("/:id", h.delete)
	router.Post("/:id/grade", middleware.WithAuth(h.grade, staff))
	router.Post("/:id/revision", middleware.WithAuth(h.returnForRevision, staff))
}

func (h *SubmissionHandler) list(c *fiber.Ctx) error {
	req := dto.SubmissionListRequest{Status: c.Query("status"), Search: c.Query("search")}

	var err error
	if req.Page, err = parseQueryInt(c, "page"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if req.PageSize, err = parseQueryInt(c, "page_size"); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	for key, target := range map[string]**uint{
		"assignment_id": &req.AssignmentID,
		"student_id":    &req.StudentID,
		"category_id":   &req.CategoryID,
		"class_id":      &req.ClassID,
	} {
		value, err := parseQueryUint(c, key)
		if err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, err.Error())
		}
		*target = value
	}

	response, err := h.service.List(requestContext(c), actorFromContext(c), req)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.OK(c, response.Items, "submissions retrieved", response.Pagination)
}

func (h *SubmissionHandler) get(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	submission, err := h.service.Get(requestContext(c), actorFromContext(c), id)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission retrieved", submission)
}

func (h *SubmissionHandler) submit(c *fiber.Ctx) error {
	if !isMultipart(c) {
		return utils.SendError(c, fiber.StatusBadRequest, "multipart form with an image is required")
	}

	var payload dto.SubmissionCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	upload, err := readUpload(c, "image", h.maxUploadBytes)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	submission, err := h.service.Submit(requestContext(c), actorFromContext(c), payload, upload)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	requestLogger(h.logger, c).Info().
		Uint("submission_id", submission.ID).
		Uint("assignment_id", submission.AssignmentID).
		Msg("submission received")
	return utils.SendCreated(c, "submission saved", submission)
}

func (h *SubmissionHandler) update(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.SubmissionUpdateRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	var upload *service.ImageUpload
	if isMultipart(c) {
		if upload, err = readUpload(c, "image", h.maxUploadBytes); err != nil {
			return respondError(c, h.logger, err)
		}
	}

	submission, err := h.service.Update(requestContext(c), actorFromContext(c), id, payload, upload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission updated", submission)
}

func (h *SubmissionHandler) delete(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(requestContext(c), actorFromContext(c), id); err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission deleted", nil)
}

func (h *SubmissionHandler) grade(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.GradeRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.Grade(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "submission graded", submission)
}

func (h *SubmissionHandler) returnForRevision(c *fiber.Ctx) error {
	id, err := parseIDParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.RevisionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	submission, err := h.service.ReturnForRevision(requestContext(c), actorFromContext(c), id, payload)
	if err != nil {
		return respondError(c, h.logger, err)
	}
	return utils.SendSuccess(c, "revision requested", submission)
}
