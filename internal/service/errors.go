package service

import (
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/seniku-go-api/internal/apperror"
)

var (
	// ErrSubmissionNotFound indicates a submission could not be found.
	ErrSubmissionNotFound = apperror.NotFound("submission not found")
	// ErrAssignmentNotFound indicates an assignment could not be found.
	ErrAssignmentNotFound = apperror.NotFound("assignment not found")
	// ErrUserNotFound indicates a user could not be found.
	ErrUserNotFound = apperror.NotFound("user not found")
	// ErrClassNotFound indicates a class could not be found.
	ErrClassNotFound = apperror.NotFound("class not found")
	// ErrCategoryNotFound indicates a category could not be found.
	ErrCategoryNotFound = apperror.NotFound("category not found")
	// ErrAchievementNotFound indicates an achievement could not be found.
	ErrAchievementNotFound = apperror.NotFound("achievement not found")
	// ErrNotificationNotFound indicates a notification could not be found.
	ErrNotificationNotFound = apperror.NotFound("notification not found")

	// ErrDeadlinePassed rejects submissions after the assignment deadline.
	ErrDeadlinePassed = apperror.DomainRule("deadline passed")
	// ErrAlreadyGraded rejects changes to a graded submission.
	ErrAlreadyGraded = apperror.DomainRule("submission already graded")
	// ErrCannotDelete rejects deleting a submission that left the pending state.
	ErrCannotDelete = apperror.DomainRule("only pending submissions can be deleted")
	// ErrAssignmentNotOpen rejects submissions to assignments that are not published.
	ErrAssignmentNotOpen = apperror.DomainRule("assignment is not open for submissions")
	// ErrImageRequired rejects a first submission without artwork.
	ErrImageRequired = apperror.DomainRule("image file is required")
	// ErrInvalidImage wraps image validation failures.
	ErrInvalidImage = apperror.DomainRule("invalid image")
	// ErrHasDependents rejects deleting a catalog entry that is still referenced.
	ErrHasDependents = apperror.DomainRule("resource has dependents; retry with force")
	// ErrInvalidCriteria rejects malformed achievement criteria.
	ErrInvalidCriteria = apperror.Validation("invalid achievement criteria")
	// ErrInvalidCredentials rejects a failed login.
	ErrInvalidCredentials = apperror.Unauthorized("invalid credentials")
	// ErrInvalidToken rejects an invalid, expired or revoked token.
	ErrInvalidToken = apperror.Unauthorized("invalid or expired token")
	// ErrWrongPassword rejects a password change with a bad current password.
	ErrWrongPassword = apperror.DomainRule("current password is incorrect")
	// ErrForbidden rejects access to another user's resources.
	ErrForbidden = apperror.Forbidden("insufficient permissions")
	// ErrDuplicateSubmission reports a racing insert for the same assignment and student.
	ErrDuplicateSubmission = apperror.Conflict("submission already exists for this assignment")
)

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey)
}

// translate maps persistence errors to tagged errors, keeping tagged ones untouched.
func translate(err error, notFound *apperror.Error, conflictMessage string) error {
	switch {
	case err == nil:
		return nil
	case isNotFound(err):
		return notFound
	case isDuplicate(err):
		return apperror.Conflict(conflictMessage).Wrap(err)
	default:
		return err
	}
}
