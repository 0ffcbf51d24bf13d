package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
)

func TestAssignmentCreateRequiresStaff(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/assignments", &env.student, map[string]interface{}{
		"title":       "Sneaky",
		"category_id": env.category.ID,
		"class_ids":   []uint{env.class.ID},
		"deadline":    time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()
}

func TestAssignmentCreateValidation(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/assignments", &env.teacher, map[string]interface{}{
		"category_id": env.category.ID,
		"class_ids":   []uint{env.class.ID},
		"deadline":    time.Now().Add(time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	fields := envelope.Errors.([]interface{})
	require.Len(t, fields, 1)
	require.Equal(t, "title", fields[0].(map[string]interface{})["field"])
}

func TestAssignmentListScopedForStudents(t *testing.T) {
	env := setupTestEnv(t)
	env.createAssignment(t, "Batik motif study", time.Now().Add(48*time.Hour))

	resp := env.do(t, http.MethodPost, "/api/v1/assignments", &env.teacher, map[string]interface{}{
		"title":       "Draft mural",
		"category_id": env.category.ID,
		"class_ids":   []uint{env.class.ID},
		"deadline":    time.Now().Add(48 * time.Hour).Format(time.RFC3339),
		"status":      models.AssignmentStatusDraft,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/v1/assignments", &env.student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	envelope := decodeEnvelope(t, resp)
	require.Len(t, envelope.Data.([]interface{}), 1)
	meta := envelope.Meta.(map[string]interface{})
	require.EqualValues(t, 1, meta["total_items"])

	resp = env.do(t, http.MethodGet, "/api/v1/assignments", &env.teacher, nil)
	envelope = decodeEnvelope(t, resp)
	require.Len(t, envelope.Data.([]interface{}), 2)
}

func TestAssignmentSubmissionsOverview(t *testing.T) {
	env := setupTestEnv(t)
	id := env.createAssignment(t, "Ceramic vase", time.Now().Add(48*time.Hour))

	resp := env.upload(t, http.MethodPost, "/api/v1/submissions", env.student, map[string]string{
		"assignment_id": uintString(id),
		"title":         "Blue vase",
	}, []byte("png-bytes"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/v1/assignments/"+uintString(id)+"/submissions", &env.student, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodGet, "/api/v1/assignments/"+uintString(id)+"/submissions", &env.teacher, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var rows []dto.AssignmentSubmissionStatus
	decodeData(t, resp, &rows)
	require.Len(t, rows, 2)

	statuses := map[uint]string{}
	for _, row := range rows {
		statuses[row.Student.ID] = row.Status
	}
	require.Equal(t, models.SubmissionStatusPending, statuses[env.student.ID])
	require.NotEqual(t, models.SubmissionStatusPending, statuses[env.other.ID])
}

func TestAssignmentBulkStatus(t *testing.T) {
	env := setupTestEnv(t)
	first := env.createAssignment(t, "Poster design", time.Now().Add(24*time.Hour))
	second := env.createAssignment(t, "Logo design", time.Now().Add(24*time.Hour))

	resp := env.do(t, http.MethodPatch, "/api/v1/assignments/bulk/status", &env.teacher, map[string]interface{}{
		"ids":    []uint{first, second},
		"status": models.AssignmentStatusClosed,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result dto.BulkResult
	decodeData(t, resp, &result)
	require.EqualValues(t, 2, result.Affected)

	resp = env.do(t, http.MethodGet, "/api/v1/assignments", &env.student, nil)
	envelope := decodeEnvelope(t, resp)
	require.Empty(t, envelope.Data.([]interface{}))
}
