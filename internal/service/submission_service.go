package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/seniku-go-api/internal/apperror"
	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/observability"
	"github.com/noah-isme/seniku-go-api/internal/repository"
	"github.com/noah-isme/seniku-go-api/internal/worker"
	"github.com/noah-isme/seniku-go-api/pkg/imageproc"
)

const (
	submissionBucket      = "submissions"
	revisionExcerptLength = 100
)

// ErrConcurrentModification reports that another request archived the same revision first.
var ErrConcurrentModification = apperror.Conflict("submission was modified concurrently; retry")

// AchievementEvaluator re-evaluates a student's achievements after grading.
type AchievementEvaluator interface {
	EvaluateForStudent(ctx context.Context, studentID uint) ([]models.UserAchievement, error)
}

// DashboardInvalidator drops cached dashboards affected by a change.
type DashboardInvalidator interface {
	Invalidate(ctx context.Context, userIDs ...uint)
}

// SubmissionService governs the artwork submission lifecycle.
type SubmissionService interface {
	Submit(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest, image *ImageUpload) (dto.SubmissionResponse, error)
	Update(ctx context.Context, actor Actor, id uint, payload dto.SubmissionUpdateRequest, image *ImageUpload) (dto.SubmissionResponse, error)
	Grade(ctx context.Context, actor Actor, id uint, payload dto.GradeRequest) (dto.SubmissionResponse, error)
	ReturnForRevision(ctx context.Context, actor Actor, id uint, payload dto.RevisionRequest) (dto.SubmissionResponse, error)
	Delete(ctx context.Context, actor Actor, id uint) error
	List(ctx context.Context, actor Actor, req dto.SubmissionListRequest) (dto.SubmissionListResponse, error)
	Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error)
}

// SubmissionDependencies groups the collaborators of the submission service.
// Notifications, Achievements, Dashboards and Activity are optional.
type SubmissionDependencies struct {
	Submissions   repository.SubmissionRepository
	Assignments   repository.AssignmentRepository
	Users         repository.UserRepository
	Validator     *validator.Validate
	Processor     ImageProcessor
	Store         ImageStore
	Notifications NotificationSink
	Achievements  AchievementEvaluator
	Dashboards    DashboardInvalidator
	Activity      ActivityRecorder
	Runner        worker.Runner
	Logger        zerolog.Logger
}

type submissionService struct {
	submissions   repository.SubmissionRepository
	assignments   repository.AssignmentRepository
	users         repository.UserRepository
	validator     *validator.Validate
	uploader      *artworkUploader
	notifications NotificationSink
	achievements  AchievementEvaluator
	dashboards    DashboardInvalidator
	activity      ActivityRecorder
	runner        worker.Runner
	logger        zerolog.Logger
	tracer        trace.Tracer
	now           func() time.Time
}

// NewSubmissionService constructs a SubmissionService instance.
func NewSubmissionService(deps SubmissionDependencies) SubmissionService {
	logger := deps.Logger.With().Str("component", "submission_service").Logger()
	runner := deps.Runner
	if runner == nil {
		runner = worker.Inline{Logger: logger}
	}

	return &submissionService{
		submissions:   deps.Submissions,
		assignments:   deps.Assignments,
		users:         deps.Users,
		validator:     deps.Validator,
		uploader:      newArtworkUploader(deps.Processor, deps.Store, logger),
		notifications: deps.Notifications,
		achievements:  deps.Achievements,
		dashboards:    deps.Dashboards,
		activity:      deps.Activity,
		runner:        runner,
		logger:        logger,
		tracer:        otel.Tracer("github.com/noah-isme/seniku-go-api/internal/service/submission"),
		now:           time.Now,
	}
}

func (s *submissionService) Submit(ctx context.Context, actor Actor, payload dto.SubmissionCreateRequest, image *ImageUpload) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.submit", trace.WithAttributes(
		attribute.Int64("submission.assignment_id", int64(payload.AssignmentID)),
		attribute.Int64("submission.student_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "validation_failed")
	}
	if !actor.IsStudent() {
		return dto.SubmissionResponse{}, failSpan(span, ErrForbidden, "not_a_student")
	}

	assignment, err := s.assignments.GetByID(ctx, payload.AssignmentID)
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, translate(err, ErrAssignmentNotFound, ""), "assignment_lookup_failed")
	}
	if !assignment.IsPublished() {
		return dto.SubmissionResponse{}, failSpan(span, ErrAssignmentNotOpen, "assignment_not_published")
	}
	if assignment.IsPastDue(s.now()) {
		return dto.SubmissionResponse{}, failSpan(span, ErrDeadlinePassed, "deadline_passed")
	}
	if err := s.ensureEnrolled(ctx, actor.ID, assignment); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "not_enrolled")
	}

	existing, err := s.submissions.GetByAssignmentAndStudent(ctx, payload.AssignmentID, actor.ID)
	switch {
	case err == nil:
		if !existing.IsMutable() {
			return dto.SubmissionResponse{}, failSpan(span, ErrAlreadyGraded, "already_graded")
		}
		title := payload.Title
		description := payload.Description
		span.SetAttributes(attribute.Bool("submission.resubmission", true))
		return s.applyUpdate(ctx, existing, dto.SubmissionUpdateRequest{Title: &title, Description: &description}, image)
	case !isNotFound(err):
		return dto.SubmissionResponse{}, failSpan(span, err, "submission_lookup_failed")
	}

	if image == nil || len(image.Data) == 0 {
		return dto.SubmissionResponse{}, failSpan(span, ErrImageRequired, "image_missing")
	}

	set, err := s.uploader.upload(ctx, submissionBucket, actor.ID, image.Data)
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "image_upload_failed")
	}

	submission := models.Submission{
		AssignmentID: payload.AssignmentID,
		StudentID:    actor.ID,
		Title:        strings.TrimSpace(payload.Title),
		Description:  strings.TrimSpace(payload.Description),
		ImageSet:     set,
		Status:       models.SubmissionStatusPending,
		SubmittedAt:  s.now(),
	}

	if err := s.submissions.Create(ctx, &submission); err != nil {
		s.uploader.discard(context.WithoutCancel(ctx), set)
		if isDuplicate(err) {
			return dto.SubmissionResponse{}, failSpan(span, ErrDuplicateSubmission.Wrap(err), "duplicate_submission")
		}
		return dto.SubmissionResponse{}, failSpan(span, err, "submission_create_failed")
	}

	observability.SubmissionActions().WithLabelValues("submit").Inc()
	s.logger.Info().Uint("submission_id", submission.ID).Uint("student_id", actor.ID).Msg("submission created")
	s.invalidateDashboards(ctx, actor.ID)

	return s.reload(ctx, submission.ID)
}

func (s *submissionService) Update(ctx context.Context, actor Actor, id uint, payload dto.SubmissionUpdateRequest, image *ImageUpload) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.update", trace.WithAttributes(
		attribute.Int64("submission.id", int64(id)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "validation_failed")
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, translate(err, ErrSubmissionNotFound, ""), "submission_lookup_failed")
	}
	if submission.StudentID != actor.ID {
		return dto.SubmissionResponse{}, failSpan(span, ErrForbidden, "not_owner")
	}
	if !submission.IsMutable() {
		return dto.SubmissionResponse{}, failSpan(span, ErrAlreadyGraded, "already_graded")
	}

	return s.applyUpdate(ctx, submission, payload, image)
}

// applyUpdate mutates a PENDING or REVISION submission. A changed image archives the outgoing
// one at the next version unless the newest snapshot already holds it.
func (s *submissionService) applyUpdate(ctx context.Context, submission models.Submission, payload dto.SubmissionUpdateRequest, image *ImageUpload) (dto.SubmissionResponse, error) {
	span := trace.SpanFromContext(ctx)
	now := s.now()

	if payload.Title != nil {
		if title := strings.TrimSpace(*payload.Title); title != "" {
			submission.Title = title
		}
	}
	if payload.Description != nil {
		submission.Description = strings.TrimSpace(*payload.Description)
	}

	var (
		revision *models.SubmissionRevision
		uploaded *models.ImageSet
	)

	if image != nil && len(image.Data) > 0 {
		incoming := models.ImageSet{ImageChecksum: imageproc.Checksum(image.Data)}
		if !submission.ImageSet.SameImage(incoming) {
			set, err := s.uploader.upload(ctx, submissionBucket, submission.StudentID, image.Data)
			if err != nil {
				return dto.SubmissionResponse{}, failSpan(span, err, "image_upload_failed")
			}
			uploaded = &set

			latest, found := latestRevision(submission.Revisions)
			if !submission.ImageSet.IsZero() && (!found || !latest.SameImage(submission.ImageSet)) {
				revision = &models.SubmissionRevision{
					Version:     nextRevisionVersion(submission.Revisions),
					ImageSet:    submission.ImageSet,
					SubmittedAt: submission.SubmittedAt,
				}
			}

			submission.ImageSet = set
			submission.SubmittedAt = now
			span.SetAttributes(attribute.Bool("submission.image_changed", true))
		}
	}

	if submission.Status == models.SubmissionStatusRevision {
		submission.Status = models.SubmissionStatusPending
		submission.SubmittedAt = now
	}

	if err := s.submissions.Save(ctx, &submission, revision); err != nil {
		if uploaded != nil {
			s.uploader.discard(context.WithoutCancel(ctx), *uploaded)
		}
		if isDuplicate(err) {
			return dto.SubmissionResponse{}, failSpan(span, ErrConcurrentModification.Wrap(err), "revision_conflict")
		}
		return dto.SubmissionResponse{}, failSpan(span, err, "submission_update_failed")
	}

	observability.SubmissionActions().WithLabelValues("update").Inc()
	s.logger.Info().Uint("submission_id", submission.ID).Bool("archived", revision != nil).Msg("submission updated")
	s.invalidateDashboards(ctx, submission.StudentID)

	return s.reload(ctx, submission.ID)
}

func (s *submissionService) Grade(ctx context.Context, actor Actor, id uint, payload dto.GradeRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.grade", trace.WithAttributes(
		attribute.Int64("submission.id", int64(id)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "validation_failed")
	}
	if !actor.IsStaff() {
		return dto.SubmissionResponse{}, failSpan(span, ErrForbidden, "not_staff")
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, translate(err, ErrSubmissionNotFound, ""), "submission_lookup_failed")
	}

	grade := *payload.Grade
	gradedAt := s.now()
	gradedBy := actor.ID

	submission.Grade = &grade
	submission.Feedback = nil
	if payload.Feedback != nil {
		if feedback := strings.TrimSpace(*payload.Feedback); feedback != "" {
			submission.Feedback = &feedback
		}
	}
	submission.Status = models.SubmissionStatusGraded
	submission.GradedAt = &gradedAt
	submission.GradedBy = &gradedBy

	if err := s.submissions.Save(ctx, &submission, nil); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "submission_update_failed")
	}

	observability.SubmissionActions().WithLabelValues("grade").Inc()
	span.SetAttributes(attribute.Int("grading.grade", grade))
	s.logger.Info().Uint("submission_id", submission.ID).Int("grade", grade).Uint("graded_by", actor.ID).Msg("submission graded")

	studentID := submission.StudentID
	assignmentTitle := submission.Assignment.Title
	submissionID := submission.ID

	s.runner.Go(ctx, "submission.graded.notify", func(taskCtx context.Context) error {
		return s.notify(taskCtx, NotificationInput{
			UserID:  studentID,
			Type:    models.NotificationSubmissionGraded,
			Title:   "Submission graded",
			Message: fmt.Sprintf("Your submission for %q received a grade of %d.", assignmentTitle, grade),
			Link:    fmt.Sprintf("/submissions/%d", submissionID),
		})
	})
	if s.achievements != nil {
		s.runner.Go(ctx, "achievements.evaluate", func(taskCtx context.Context) error {
			_, err := s.achievements.EvaluateForStudent(taskCtx, studentID)
			return err
		})
	}
	s.invalidateDashboards(ctx, studentID)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "submission.graded",
		EntityType: "submission",
		EntityID:   &submissionID,
		Metadata: map[string]interface{}{
			"student_id":    studentID,
			"assignment_id": submission.AssignmentID,
			"grade":         grade,
		},
	})

	return s.reload(ctx, submission.ID)
}

func (s *submissionService) ReturnForRevision(ctx context.Context, actor Actor, id uint, payload dto.RevisionRequest) (dto.SubmissionResponse, error) {
	ctx, span := s.tracer.Start(ctx, "submission.return_for_revision", trace.WithAttributes(
		attribute.Int64("submission.id", int64(id)),
		attribute.Int64("grading.actor_id", int64(actor.ID)),
	))
	defer span.End()

	if err := s.validator.Struct(payload); err != nil {
		return dto.SubmissionResponse{}, failSpan(span, err, "validation_failed")
	}
	if !actor.IsStaff() {
		return dto.SubmissionResponse{}, failSpan(span, ErrForbidden, "not_staff")
	}

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, failSpan(span, translate(err, ErrSubmissionNotFound, ""), "submission_lookup_failed")
	}

	latest, found := latestRevision(submission.Revisions)
	archived := found && latest.SameImage(submission.ImageSet)

	if submission.Status == models.SubmissionStatusRevision && archived {
		span.SetAttributes(attribute.Bool("submission.idempotent", true))
		return s.toResponse(submission), nil
	}

	note := strings.TrimSpace(payload.RevisionNote)

	// The snapshot for this round is keyed by the revision counter; a version
	// already written by an earlier re-upload is left as it is.
	version := submission.RevisionCount + 1
	var revision *models.SubmissionRevision
	if !archived && !submission.ImageSet.IsZero() &&
		!hasRevisionVersion(submission.Revisions, version) &&
		version >= nextRevisionVersion(submission.Revisions) {
		revision = &models.SubmissionRevision{
			Version:      version,
			ImageSet:     submission.ImageSet,
			RevisionNote: &note,
			SubmittedAt:  submission.SubmittedAt,
		}
	}

	submission.RevisionCount++
	submission.Status = models.SubmissionStatusRevision

	if err := s.submissions.Save(ctx, &submission, revision); err != nil {
		if isDuplicate(err) {
			return dto.SubmissionResponse{}, failSpan(span, ErrConcurrentModification.Wrap(err), "revision_conflict")
		}
		return dto.SubmissionResponse{}, failSpan(span, err, "submission_update_failed")
	}

	observability.SubmissionActions().WithLabelValues("return").Inc()
	s.logger.Info().Uint("submission_id", submission.ID).Int("revision_count", submission.RevisionCount).Msg("submission returned for revision")

	studentID := submission.StudentID
	submissionID := submission.ID
	assignmentTitle := submission.Assignment.Title

	s.runner.Go(ctx, "submission.revision.notify", func(taskCtx context.Context) error {
		return s.notify(taskCtx, NotificationInput{
			UserID:  studentID,
			Type:    models.NotificationRevisionRequested,
			Title:   fmt.Sprintf("Revision requested: %s", assignmentTitle),
			Message: excerpt(note, revisionExcerptLength),
			Link:    fmt.Sprintf("/submissions/%d", submissionID),
		})
	})
	s.invalidateDashboards(ctx, studentID)

	recordActivity(ctx, s.activity, s.logger, ActivityEntry{
		Actor:      actor,
		Action:     "submission.revision_requested",
		EntityType: "submission",
		EntityID:   &submissionID,
		Metadata: map[string]interface{}{
			"student_id":     studentID,
			"revision_count": submission.RevisionCount,
		},
	})

	return s.reload(ctx, submission.ID)
}

func (s *submissionService) Delete(ctx context.Context, actor Actor, id uint) error {
	ctx, span := s.tracer.Start(ctx, "submission.delete", trace.WithAttributes(
		attribute.Int64("submission.id", int64(id)),
	))
	defer span.End()

	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return failSpan(span, translate(err, ErrSubmissionNotFound, ""), "submission_lookup_failed")
	}
	if !actor.IsStaff() && submission.StudentID != actor.ID {
		return failSpan(span, ErrForbidden, "not_owner")
	}
	if submission.Status != models.SubmissionStatusPending {
		return failSpan(span, ErrCannotDelete, "not_pending")
	}

	if err := s.submissions.Delete(ctx, id); err != nil {
		return failSpan(span, translate(err, ErrSubmissionNotFound, ""), "submission_delete_failed")
	}

	observability.SubmissionActions().WithLabelValues("delete").Inc()
	s.logger.Info().Uint("submission_id", id).Uint("actor_id", actor.ID).Msg("submission deleted")

	sets := []models.ImageSet{submission.ImageSet}
	for _, revision := range submission.Revisions {
		sets = append(sets, revision.ImageSet)
	}
	s.runner.Go(ctx, "submission.images.discard", func(taskCtx context.Context) error {
		for _, set := range sets {
			s.uploader.discard(taskCtx, set)
		}
		return nil
	})
	s.invalidateDashboards(ctx, submission.StudentID)

	return nil
}

func (s *submissionService) List(ctx context.Context, actor Actor, req dto.SubmissionListRequest) (dto.SubmissionListResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.SubmissionListResponse{}, err
	}

	filter := repository.SubmissionFilter{
		AssignmentID: req.AssignmentID,
		StudentID:    req.StudentID,
		CategoryID:   req.CategoryID,
		ClassID:      req.ClassID,
		Status:       req.Status,
		Search:       req.Search,
		Page:         req.Page,
		PageSize:     req.PageSize,
	}
	if filter.PageSize <= 0 {
		filter.PageSize = 20
	}
	if actor.IsStudent() {
		studentID := actor.ID
		filter.StudentID = &studentID
		filter.ClassID = nil
	}

	submissions, total, err := s.submissions.List(ctx, filter)
	if err != nil {
		return dto.SubmissionListResponse{}, err
	}

	items := make([]dto.SubmissionResponse, 0, len(submissions))
	for _, submission := range submissions {
		items = append(items, s.toResponse(submission))
	}

	return dto.SubmissionListResponse{
		Items:      items,
		Pagination: dto.NewPaginationMeta(filter.Page, filter.PageSize, total),
	}, nil
}

func (s *submissionService) Get(ctx context.Context, actor Actor, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, translate(err, ErrSubmissionNotFound, "")
	}
	if !actor.IsStaff() && submission.StudentID != actor.ID {
		return dto.SubmissionResponse{}, ErrForbidden
	}

	return s.toResponse(submission), nil
}

func (s *submissionService) ensureEnrolled(ctx context.Context, studentID uint, assignment models.Assignment) error {
	if s.users == nil || len(assignment.Classes) == 0 {
		return nil
	}

	student, err := s.users.GetByID(ctx, studentID)
	if err != nil {
		return translate(err, ErrUserNotFound, "")
	}
	if student.ClassID == nil {
		return ErrForbidden
	}
	for _, classID := range assignment.ClassIDs() {
		if classID == *student.ClassID {
			return nil
		}
	}
	return ErrForbidden
}

func (s *submissionService) reload(ctx context.Context, id uint) (dto.SubmissionResponse, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return dto.SubmissionResponse{}, translate(err, ErrSubmissionNotFound, "")
	}
	return s.toResponse(submission), nil
}

func (s *submissionService) toResponse(submission models.Submission) dto.SubmissionResponse {
	history := ReconstructHistory(submission.ImageSet, submission.SubmittedAt, submission.Revisions)
	return dto.NewSubmissionResponse(submission, history)
}

func (s *submissionService) notify(ctx context.Context, input NotificationInput) error {
	if s.notifications == nil {
		return nil
	}
	return s.notifications.Notify(ctx, input)
}

func (s *submissionService) invalidateDashboards(ctx context.Context, userIDs ...uint) {
	if s.dashboards == nil {
		return
	}
	s.dashboards.Invalidate(ctx, userIDs...)
}

// failSpan records err on span and returns it unchanged.
func failSpan(span trace.Span, err error, status string) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	var tagged *apperror.Error
	if !errors.As(err, &tagged) {
		span.SetAttributes(attribute.Bool("error.unexpected", true))
	}
	return err
}
