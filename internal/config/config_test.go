package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadRequiresJWTSecrets(t *testing.T) {
	t.Setenv("SENIKU_JWT_SECRET", "")
	t.Setenv("SENIKU_JWT_REFRESH_SECRET", "")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadAppliesDefaults(t *testing.T) {
	t.Setenv("SENIKU_JWT_SECRET", "access")
	t.Setenv("SENIKU_JWT_REFRESH_SECRET", "refresh")
	t.Setenv("SENIKU_APP_PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, ":9090", cfg.HTTPAddress())
	require.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	require.Equal(t, 168*time.Hour, cfg.RefreshTokenTTL)
	require.Equal(t, 10, cfg.UploadMaxMB)
	require.Equal(t, 320, cfg.ImageThumbnailWidth)
	require.Equal(t, 90*24*time.Hour, cfg.ActivityRetention)
	require.False(t, cfg.IsProduction())
}

func TestLoadRejectsInvalidDuration(t *testing.T) {
	t.Setenv("SENIKU_JWT_SECRET", "access")
	t.Setenv("SENIKU_JWT_REFRESH_SECRET", "refresh")
	t.Setenv("SENIKU_DASHBOARD_CACHE_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
}
