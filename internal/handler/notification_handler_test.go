package handler_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
)

func TestNotificationInbox(t *testing.T) {
	env := setupTestEnv(t)
	env.createAssignment(t, "Shadow puppet", time.Now().Add(24*time.Hour))

	resp := env.do(t, http.MethodGet, "/api/v1/notifications", &env.student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var inbox dto.NotificationListResponse
	decodeData(t, resp, &inbox)
	require.Len(t, inbox.Items, 1)
	require.Equal(t, models.NotificationAssignmentNew, inbox.Items[0].Type)
	require.EqualValues(t, 1, inbox.UnreadCount)

	id := uintString(inbox.Items[0].ID)

	resp = env.do(t, http.MethodPatch, "/api/v1/notifications/"+id+"/read", &env.other, nil)
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPatch, "/api/v1/notifications/"+id+"/read", &env.student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var read dto.NotificationResponse
	decodeData(t, resp, &read)
	require.True(t, read.Read)

	resp = env.do(t, http.MethodGet, "/api/v1/notifications/unread-count", &env.student, nil)
	var count struct {
		Count int64 `json:"count"`
	}
	decodeData(t, resp, &count)
	require.Zero(t, count.Count)

	resp = env.do(t, http.MethodDelete, "/api/v1/notifications/"+id, &env.student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()
}

func TestNotificationMarkAllRead(t *testing.T) {
	env := setupTestEnv(t)
	env.createAssignment(t, "Collage", time.Now().Add(24*time.Hour))
	env.createAssignment(t, "Origami", time.Now().Add(24*time.Hour))

	resp := env.do(t, http.MethodPost, "/api/v1/notifications/read-all", &env.other, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var updated struct {
		Updated int64 `json:"updated"`
	}
	decodeData(t, resp, &updated)
	require.EqualValues(t, 2, updated.Updated)
}

func TestAchievementSeedIsAdminOnly(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/achievements/seed", &env.teacher, nil)
	require.Equal(t, http.StatusForbidden, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/v1/achievements/seed", &env.admin, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var seeded struct {
		Created int `json:"created"`
	}
	decodeData(t, resp, &seeded)
	require.Positive(t, seeded.Created)

	resp = env.do(t, http.MethodGet, "/api/v1/achievements", &env.student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var achievements []dto.AchievementResponse
	decodeData(t, resp, &achievements)
	require.Len(t, achievements, seeded.Created)
}
