package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/repository"
	"github.com/noah-isme/seniku-go-api/internal/worker"
)

// AssignmentService manages assignments and announces newly published ones to students.
type AssignmentService interface {
	List(ctx context.Context, actor Actor, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error)
	Create(ctx context.Context, actor Actor, req dto.AssignmentCreateRequest) (dto.AssignmentResponse, error)
	Update(ctx context.Context, actor Actor, id uint, req dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	BulkUpdateStatus(ctx context.Context, actor Actor, req dto.BulkStatusRequest) (dto.BulkResult, error)
	BulkDelete(ctx context.Context, actor Actor, req dto.BulkDeleteRequest) (dto.BulkResult, error)
	Submissions(ctx context.Context, id uint) ([]dto.AssignmentSubmissionStatus, error)
}

// AssignmentDependencies groups the collaborators of the assignment service.
type AssignmentDependencies struct {
	Assignments   repository.AssignmentRepository
	Categories    repository.CategoryRepository
	Classes       repository.ClassRepository
	Users         repository.UserRepository
	Submissions   repository.SubmissionRepository
	Validator     *validator.Validate
	Notifications NotificationSink
	Dashboards    DashboardInvalidator
	Activity      ActivityRecorder
	Runner        worker.Runner
	Logger        zerolog.Logger
}

type assignmentService struct {
	assignments   repository.AssignmentRepository
	categories    repository.CategoryRepository
	classes       repository.ClassRepository
	users         repository.UserRepository
	submissions   repository.SubmissionRepository
	validator     *validator.Validate
	notifications NotificationSink
	dashboards    DashboardInvalidator
	activity      ActivityRecorder
	runner        worker.Runner
	logger        zerolog.Logger
	tracer        trace.Tracer
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(deps AssignmentDependencies) AssignmentService {
	logger := deps.Logger.With().Str("component", "assignment_service").Logger()
	runner := deps.Runner
	if runner == nil {
		runner = worker.Inline{Logger: logger}
	}

	return &assignmentService{
		assignments:   deps.Assignments,
		categories:    deps.Categories,
		classes:       deps.Classes,
		users:         deps.Users,
		submissions:   deps.Submissions,
		validator:     deps.Validator,
		notifications: deps.Notifications,
		dashboards:    deps.Dashboards,
		activity:      deps.Activity,
		runner:        runner,
		logger:        logger,
		tracer:        otel.Tracer("github.com/noah-isme/seniku-go-api/internal/service/assignment"),
	}
}

func (s *assignmentService) List(ctx context.Context, actor Actor, req dto.AssignmentListRequest) (dto.AssignmentListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentListResponse{}, err
	}

	filter := repository.AssignmentFilter{
		Status:     req.Status,
		CategoryID: req.CategoryID,
		ClassID:    req.ClassID,
		Search:     req.Search,
		Sort:       req.Sort,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}

	if actor.IsStudent() {
		classID, err := s.studentClass(ctx, actor.ID)
		if err != nil {
			return dto.AssignmentListResponse{}, err
		}
		if classID == nil {
			return dto.AssignmentListResponse{
				Items:      []dto.AssignmentResponse{},
				Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, 0),
			}, nil
		}
		filter.Status = models.AssignmentStatusPublished
		filter.ClassID = classID
	}

	assignments, total, err := s.assignments.List(ctx, filter)
	if err != nil {
		return dto.AssignmentListResponse{}, err
	}

	return dto.AssignmentListResponse{
		Items:      dto.NewAssignmentResponseSlice(assignments),
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *assignmentService) Get(ctx context.Context, actor Actor, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, translate(err, ErrAssignmentNotFound, "")
	}

	if actor.IsStudent() {
		classID, err := s.studentClass(ctx, actor.ID)
		if err != nil {
			return dto.AssignmentResponse{}, err
		}
		if !assignment.IsPublished() || classID == nil || !containsID(assignment.ClassIDs(), *classID) {
			return dto.AssignmentResponse{}, ErrAssignmentNotFound
		}
	}

	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) Create(ctx context.Context, actor Actor, req dto.AssignmentCreateRequest) (dto.AssignmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assignment.create")
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentResponse{}, failSpan(span, err, "validation_failed")
	}
	if !actor.IsStaff() {
		return dto.AssignmentResponse{}, failSpan(span, ErrForbidden, "not_staff")
	}
	if err := s.ensureCategory(ctx, req.CategoryID); err != nil {
		return dto.AssignmentResponse{}, failSpan(span, err, "category_missing")
	}
	classIDs := uniqueIDs(req.ClassIDs)
	if err := s.ensureClasses(ctx, classIDs); err != nil {
		return dto.AssignmentResponse{}, failSpan(span, err, "class_missing")
	}

	status := req.Status
	if status == "" {
		status = models.AssignmentStatusDraft
	}

	assignment := models.Assignment{
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		CategoryID:  req.CategoryID,
		Deadline:    req.Deadline.UTC(),
		Status:      status,
		CreatedByID: actor.ID,
	}
	if err := s.assignments.Create(ctx, &assignment, classIDs); err != nil {
		return dto.AssignmentResponse{}, failSpan(span, err, "assignment_create_failed")
	}

	span.SetAttributes(attribute.Int64("assignment.id", int64(assignment.ID)), attribute.String("assignment.status", status))
	s.logger.Info().Uint("assignment_id", assignment.ID).Str("status", status).Msg("assignment created")
	s.record(ctx, actor, "assignment.created", assignment.ID, map[string]interface{}{"status": status})

	if assignment.IsPublished() {
		s.announce(ctx, assignment.ID, assignment.Title, assignment.Deadline, classIDs)
	}
	s.invalidateDashboards(ctx)

	return s.reload(ctx, assignment.ID)
}

func (s *assignmentService) Update(ctx context.Context, actor Actor, id uint, req dto.AssignmentUpdateRequest) (dto.AssignmentResponse, error) {
	ctx, span := s.tracer.Start(ctx, "assignment.update", trace.WithAttributes(attribute.Int64("assignment.id", int64(id))))
	defer span.End()

	if err := s.validator.Struct(req); err != nil {
		return dto.AssignmentResponse{}, failSpan(span, err, "validation_failed")
	}
	if !actor.IsStaff() {
		return dto.AssignmentResponse{}, failSpan(span, ErrForbidden, "not_staff")
	}

	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, failSpan(span, translate(err, ErrAssignmentNotFound, ""), "assignment_lookup_failed")
	}
	wasPublished := assignment.IsPublished()

	if req.Title != nil {
		assignment.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		assignment.Description = strings.TrimSpace(*req.Description)
	}
	if req.CategoryID != nil && *req.CategoryID != assignment.CategoryID {
		if err := s.ensureCategory(ctx, *req.CategoryID); err != nil {
			return dto.AssignmentResponse{}, failSpan(span, err, "category_missing")
		}
		assignment.CategoryID = *req.CategoryID
		assignment.Category = models.Category{}
	}
	if req.Deadline != nil {
		assignment.Deadline = req.Deadline.UTC()
	}
	if req.Status != nil {
		assignment.Status = *req.Status
	}

	var classIDs []uint
	if req.ClassIDs != nil {
		classIDs = uniqueIDs(req.ClassIDs)
		if err := s.ensureClasses(ctx, classIDs); err != nil {
			return dto.AssignmentResponse{}, failSpan(span, err, "class_missing")
		}
	}

	if err := s.assignments.Update(ctx, &assignment, classIDs); err != nil {
		return dto.AssignmentResponse{}, failSpan(span, err, "assignment_update_failed")
	}

	s.record(ctx, actor, "assignment.updated", assignment.ID, map[string]interface{}{"status": assignment.Status})

	if !wasPublished && assignment.IsPublished() {
		targets := classIDs
		if targets == nil {
			targets = assignment.ClassIDs()
		}
		s.announce(ctx, assignment.ID, assignment.Title, assignment.Deadline, targets)
	}
	s.invalidateDashboards(ctx)

	return s.reload(ctx, assignment.ID)
}

func (s *assignmentService) Delete(ctx context.Context, actor Actor, id uint) error {
	if !actor.IsStaff() {
		return ErrForbidden
	}
	if err := s.assignments.Delete(ctx, id); err != nil {
		return translate(err, ErrAssignmentNotFound, "")
	}

	s.logger.Info().Uint("assignment_id", id).Msg("assignment deleted")
	s.record(ctx, actor, "assignment.deleted", id, nil)
	s.invalidateDashboards(ctx)
	return nil
}

func (s *assignmentService) BulkUpdateStatus(ctx context.Context, actor Actor, req dto.BulkStatusRequest) (dto.BulkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.BulkResult{}, err
	}
	if !actor.IsStaff() {
		return dto.BulkResult{}, ErrForbidden
	}

	ids := uniqueIDs(req.IDs)
	before, err := s.assignments.GetByIDs(ctx, ids)
	if err != nil {
		return dto.BulkResult{}, err
	}

	affected, err := s.assignments.UpdateStatus(ctx, ids, req.Status)
	if err != nil {
		return dto.BulkResult{}, err
	}

	if req.Status == models.AssignmentStatusPublished {
		for _, assignment := range before {
			if assignment.IsPublished() {
				continue
			}
			s.announce(ctx, assignment.ID, assignment.Title, assignment.Deadline, assignment.ClassIDs())
		}
	}

	s.record(ctx, actor, "assignment.bulk_status", 0, map[string]interface{}{"ids": ids, "status": req.Status, "affected": affected})
	s.invalidateDashboards(ctx)
	return dto.BulkResult{Affected: affected}, nil
}

func (s *assignmentService) BulkDelete(ctx context.Context, actor Actor, req dto.BulkDeleteRequest) (dto.BulkResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.BulkResult{}, err
	}
	if !actor.IsStaff() {
		return dto.BulkResult{}, ErrForbidden
	}

	ids := uniqueIDs(req.IDs)
	affected, err := s.assignments.DeleteMany(ctx, ids)
	if err != nil {
		return dto.BulkResult{}, err
	}

	s.record(ctx, actor, "assignment.bulk_delete", 0, map[string]interface{}{"ids": ids, "affected": affected})
	s.invalidateDashboards(ctx)
	return dto.BulkResult{Affected: affected}, nil
}

// Submissions reports every enrolled student's standing, including students who have not submitted.
func (s *assignmentService) Submissions(ctx context.Context, id uint) ([]dto.AssignmentSubmissionStatus, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, translate(err, ErrAssignmentNotFound, "")
	}

	students, err := s.users.ListStudentsInClasses(ctx, assignment.ClassIDs())
	if err != nil {
		return nil, err
	}

	assignmentID := assignment.ID
	submissions, _, err := s.submissions.List(ctx, repository.SubmissionFilter{AssignmentID: &assignmentID})
	if err != nil {
		return nil, err
	}

	byStudent := make(map[uint]models.Submission, len(submissions))
	for _, submission := range submissions {
		byStudent[submission.StudentID] = submission
	}

	statuses := make([]dto.AssignmentSubmissionStatus, 0, len(students))
	for _, student := range students {
		entry := dto.AssignmentSubmissionStatus{
			Student: dto.NewUserLite(student),
			Status:  models.SubmissionStatusNotSubmitted,
		}
		if submission, ok := byStudent[student.ID]; ok {
			submissionID := submission.ID
			submittedAt := submission.SubmittedAt
			entry.SubmissionID = &submissionID
			entry.Status = submission.Status
			entry.Grade = submission.Grade
			entry.SubmittedAt = &submittedAt
		}
		statuses = append(statuses, entry)
	}

	return statuses, nil
}

// announce notifies every student of the target classes in the background.
func (s *assignmentService) announce(ctx context.Context, assignmentID uint, title string, deadline time.Time, classIDs []uint) {
	if s.notifications == nil || len(classIDs) == 0 {
		return
	}

	targets := append([]uint(nil), classIDs...)
	s.runner.Go(ctx, "assignment.publish.notify", func(taskCtx context.Context) error {
		students, err := s.users.ListStudentsInClasses(taskCtx, targets)
		if err != nil {
			return err
		}

		failures := 0
		for _, student := range students {
			if err := s.notifications.Notify(taskCtx, NotificationInput{
				UserID:  student.ID,
				Type:    models.NotificationAssignmentNew,
				Title:   fmt.Sprintf("New assignment: %s", title),
				Message: fmt.Sprintf("Due %s.", deadline.Format("02 Jan 2006 15:04 MST")),
				Link:    fmt.Sprintf("/assignments/%d", assignmentID),
			}); err != nil {
				failures++
				s.logger.Warn().Err(err).Uint("student_id", student.ID).Uint("assignment_id", assignmentID).Msg("failed to announce assignment")
			}
		}

		s.logger.Info().Uint("assignment_id", assignmentID).Int("recipients", len(students)).Int("failures", failures).Msg("assignment announced")
		return nil
	})
}

func (s *assignmentService) reload(ctx context.Context, id uint) (dto.AssignmentResponse, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return dto.AssignmentResponse{}, translate(err, ErrAssignmentNotFound, "")
	}
	return dto.NewAssignmentResponse(assignment), nil
}

func (s *assignmentService) ensureCategory(ctx context.Context, id uint) error {
	if _, err := s.categories.GetByID(ctx, id); err != nil {
		return translate(err, ErrCategoryNotFound, "")
	}
	return nil
}

func (s *assignmentService) ensureClasses(ctx context.Context, ids []uint) error {
	classes, err := s.classes.GetByIDs(ctx, ids)
	if err != nil {
		return err
	}
	if len(classes) != len(ids) {
		return ErrClassNotFound
	}
	return nil
}

func (s *assignmentService) studentClass(ctx context.Context, studentID uint) (*uint, error) {
	student, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		return nil, translate(err, ErrUserNotFound, "")
	}
	return student.ClassID, nil
}

func (s *assignmentService) invalidateDashboards(ctx context.Context) {
	if s.dashboards != nil {
		s.dashboards.Invalidate(ctx)
	}
}

func (s *assignmentService) record(ctx context.Context, actor Actor, action string, id uint, metadata map[string]interface{}) {
	entry := ActivityEntry{Actor: actor, Action: action, EntityType: "assignment", Metadata: metadata}
	if id != 0 {
		entityID := id
		entry.EntityID = &entityID
	}
	recordActivity(ctx, s.activity, s.logger, entry)
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	unique := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		unique = append(unique, id)
	}
	return unique
}

func containsID(ids []uint, target uint) bool {
	for _, id := range ids {
		if id == target {
			return true
		}
	}
	return false
}
