package handler_test

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
)

func startServer(t *testing.T, app *fiber.App) string {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	t.Cleanup(func() {
		_ = app.ShutdownWithTimeout(time.Second)
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(time.Second):
		}
	})

	time.Sleep(50 * time.Millisecond)
	return listener.Addr().String()
}

func TestNotificationWebsocketDeliversPublishedNotification(t *testing.T) {
	env := setupTestEnv(t)
	addr := startServer(t, env.app)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	conn, resp, err := dialer.Dial("ws://"+addr+"/api/v1/notifications/ws?access_token="+env.token(t, env.student), nil)
	require.NoError(t, err)
	if resp != nil {
		_ = resp.Body.Close()
	}
	defer conn.Close()

	// Give the handler time to subscribe before publishing.
	time.Sleep(100 * time.Millisecond)
	env.createAssignment(t, "Kite painting", time.Now().Add(24*time.Hour))

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var notification dto.NotificationResponse
	require.NoError(t, conn.ReadJSON(&notification))
	assert.Equal(t, env.student.ID, notification.UserID)
	assert.Equal(t, models.NotificationAssignmentNew, notification.Type)
	assert.Equal(t, "New assignment: Kite painting", notification.Title)
}

func TestNotificationWebsocketRejectsMissingToken(t *testing.T) {
	env := setupTestEnv(t)
	addr := startServer(t, env.app)

	dialer := websocket.Dialer{HandshakeTimeout: 3 * time.Second}
	_, resp, err := dialer.Dial("ws://"+addr+"/api/v1/notifications/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestNotificationSSEStream(t *testing.T) {
	env := setupTestEnv(t)
	addr := startServer(t, env.app)

	req, err := http.NewRequest(http.MethodGet, "http://"+addr+"/api/v1/notifications/stream", nil)
	require.NoError(t, err)
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+env.token(t, env.student))

	type result struct {
		resp *http.Response
		err  error
	}
	responses := make(chan result, 1)
	go func() {
		resp, err := (&http.Client{Timeout: 5 * time.Second}).Do(req)
		responses <- result{resp: resp, err: err}
	}()

	time.Sleep(200 * time.Millisecond)
	env.createAssignment(t, "Batik stamp", time.Now().Add(24*time.Hour))

	var res result
	select {
	case res = <-responses:
	case <-time.After(3 * time.Second):
		t.Fatal("stream did not respond")
	}
	require.NoError(t, res.err)
	defer res.resp.Body.Close()
	assert.Equal(t, "text/event-stream", res.resp.Header.Get("Content-Type"))

	reader := bufio.NewReader(res.resp.Body)
	for {
		line, err := reader.ReadString('\n')
		require.NoError(t, err)
		if strings.HasPrefix(line, "data:") {
			assert.Contains(t, line, `"type":"assignment_new"`)
			assert.Contains(t, line, "Batik stamp")
			return
		}
	}
}
