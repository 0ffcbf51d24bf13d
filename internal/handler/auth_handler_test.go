package handler_test

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/seniku-go-api/internal/dto"
)

func TestAuthLoginAndMe(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"identifier": *env.teacher.NIP,
		"password":   testPassword,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var tokens dto.TokenResponse
	decodeData(t, resp, &tokens)
	require.NotEmpty(t, tokens.AccessToken)
	require.NotEmpty(t, tokens.RefreshToken)
	require.Equal(t, "teacher", tokens.User.Role)

	resp = env.do(t, http.MethodGet, "/api/v1/auth/me", &env.teacher, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var me dto.UserResponse
	decodeData(t, resp, &me)
	require.Equal(t, env.teacher.ID, me.ID)
}

func TestAuthLoginRejectsWrongPassword(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"identifier": *env.student.NIS,
		"password":   "not-the-password",
	})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	require.False(t, envelope.Success)
	require.Equal(t, "invalid credentials", envelope.Message)
}

func TestAuthLoginValidationErrors(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{"identifier": "x"})
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	envelope := decodeEnvelope(t, resp)
	require.Equal(t, "validation failed", envelope.Message)
	fields := envelope.Errors.([]interface{})
	require.Len(t, fields, 2)
}

func TestAuthLogoutRevokesRefreshToken(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodPost, "/api/v1/auth/login", nil, map[string]string{
		"identifier": *env.student.NIS,
		"password":   testPassword,
	})
	var tokens dto.TokenResponse
	decodeData(t, resp, &tokens)

	resp = env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, map[string]string{"refresh_token": tokens.RefreshToken})
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/v1/auth/logout", &env.student, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	resp.Body.Close()

	resp = env.do(t, http.MethodPost, "/api/v1/auth/refresh", nil, map[string]string{"refresh_token": tokens.RefreshToken})
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	env := setupTestEnv(t)

	resp := env.do(t, http.MethodGet, "/api/v1/assignments", nil, nil)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	resp.Body.Close()
}
