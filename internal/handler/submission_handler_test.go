package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
)

func submitArtwork(t *testing.T, env *testEnv, assignmentID uint, student models.User) dto.SubmissionResponse {
	t.Helper()

	resp := env.upload(t, http.MethodPost, "/api/v1/submissions", student, map[string]string{
		"assignment_id": uintString(assignmentID),
		"title":         "Evening harbour",
		"description":   "Wet on wet technique",
	}, []byte("first-draft"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var submission dto.SubmissionResponse
	decodeData(t, resp, &submission)
	return submission
}

func TestSubmissionSubmitAndGrade(t *testing.T) {
	env := setupTestEnv(t)
	assignmentID := env.createAssignment(t, "Harbour at dusk", time.Now().Add(72*time.Hour))

	submission := submitArtwork(t, env, assignmentID, env.student)
	require.Equal(t, models.SubmissionStatusPending, submission.Status)
	require.Contains(t, submission.ImageURL, "https://cdn.test/")
	require.Len(t, submission.History, 1)

	path := "/api/v1/submissions/" + uintString(submission.ID)

	resp := env.do(t, http.MethodPost, path+"/grade", &env.student, map[string]interface{}{"grade": 100})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, path+"/grade", &env.teacher, map[string]interface{}{"grade": 101})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, path+"/grade", &env.teacher, map[string]interface{}{
		"grade":    91,
		"feedback": "Lovely reflections",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var graded dto.SubmissionResponse
	decodeData(t, resp, &graded)
	require.Equal(t, models.SubmissionStatusGraded, graded.Status)
	require.NotNil(t, graded.Grade)
	require.Equal(t, 91, *graded.Grade)

	resp = env.upload(t, http.MethodPut, path, env.student, map[string]string{"title": "Too late"}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	envelope := decodeEnvelope(t, resp)
	require.Equal(t, "submission already graded", envelope.Message)
}

func TestSubmissionRequiresImage(t *testing.T) {
	env := setupTestEnv(t)
	assignmentID := env.createAssignment(t, "Still life", time.Now().Add(72*time.Hour))

	resp := env.upload(t, http.MethodPost, "/api/v1/submissions", env.student, map[string]string{
		"assignment_id": uintString(assignmentID),
		"title":         "No picture",
	}, nil)
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	envelope := decodeEnvelope(t, resp)
	require.Equal(t, "image file is required", envelope.Message)

	resp = env.upload(t, http.MethodPost, "/api/v1/submissions", env.student, map[string]string{
		"assignment_id": uintString(assignmentID),
		"title":         "Broken picture",
	}, []byte("not-an-image"))
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
	envelope = decodeEnvelope(t, resp)
	require.Contains(t, envelope.Message, "invalid image")
}

func TestSubmissionRevisionCycle(t *testing.T) {
	env := setupTestEnv(t)
	assignmentID := env.createAssignment(t, "Figure drawing", time.Now().Add(72*time.Hour))
	submission := submitArtwork(t, env, assignmentID, env.student)
	path := "/api/v1/submissions/" + uintString(submission.ID)

	resp := env.do(t, http.MethodPost, path+"/revision", &env.teacher, map[string]string{
		"revision_note": "Check the proportions of the arms",
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var returned dto.SubmissionResponse
	decodeData(t, resp, &returned)
	require.Equal(t, models.SubmissionStatusRevision, returned.Status)
	require.Equal(t, 1, returned.RevisionCount)

	resp = env.upload(t, http.MethodPut, path, env.student, map[string]string{"title": "Figure, second try"}, []byte("second-draft"))
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated dto.SubmissionResponse
	decodeData(t, resp, &updated)
	require.Equal(t, models.SubmissionStatusPending, updated.Status)
	require.Equal(t, "Figure, second try", updated.Title)
	require.Len(t, updated.History, 2)
	require.True(t, updated.History[len(updated.History)-1].IsCurrent)
}

func TestSubmissionVisibilityAndDelete(t *testing.T) {
	env := setupTestEnv(t)
	assignmentID := env.createAssignment(t, "Linocut print", time.Now().Add(72*time.Hour))
	submission := submitArtwork(t, env, assignmentID, env.student)
	path := "/api/v1/submissions/" + uintString(submission.ID)

	resp := env.do(t, http.MethodGet, path, &env.other, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/v1/submissions", &env.other, nil)
	envelope := decodeEnvelope(t, resp)
	require.Empty(t, envelope.Data.([]interface{}))

	resp = env.do(t, http.MethodDelete, path, &env.other, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodDelete, path, &env.student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, path, &env.teacher, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()
}
