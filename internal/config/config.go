package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName                string
	AppEnv                 string
	AppPort                string
	DatabaseURL            string
	RedisURL               string
	NATSURL                string
	JWTSecret              string
	JWTRefreshSecret       string
	AccessTokenTTL         time.Duration
	RefreshTokenTTL        time.Duration
	CloudinaryCloudName    string
	CloudinaryAPIKey       string
	CloudinaryAPISecret    string
	CloudinaryUploadFolder string
	UploadMaxMB            int
	ImageMinDimension      int
	ImageMediumWidth       int
	ImageThumbnailWidth    int
	DashboardCacheTTL      time.Duration
	NotificationChannel    string
	CORSOrigins            string
	SeedAchievements       bool
	TaskTimeout            time.Duration
	ActivityRetention      time.Duration
	LoginRateLimit         int
	LoginRateWindow        time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SENIKU")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Seniku API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("jwt.access_ttl", "15m")
	v.SetDefault("jwt.refresh_ttl", "168h")
	v.SetDefault("cloudinary.folder", "seniku")
	v.SetDefault("upload.max_mb", 10)
	v.SetDefault("image.min_dimension", 64)
	v.SetDefault("image.medium_width", 1024)
	v.SetDefault("image.thumbnail_width", 320)
	v.SetDefault("dashboard.cache_ttl", "5m")
	v.SetDefault("notifications.channel", "seniku")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("seed.achievements", false)
	v.SetDefault("worker.task_timeout", "30s")
	v.SetDefault("activity.retention", "2160h")
	v.SetDefault("rate_limit.login_max", 10)
	v.SetDefault("rate_limit.login_window", "1m")

	durations := map[string]time.Duration{}
	for _, key := range []string{"jwt.access_ttl", "jwt.refresh_ttl", "dashboard.cache_ttl", "worker.task_timeout", "rate_limit.login_window", "activity.retention"} {
		parsed, err := time.ParseDuration(v.GetString(key))
		if err != nil {
			return Config{}, fmt.Errorf("invalid duration for %s: %w", key, err)
		}
		durations[key] = parsed
	}

	cfg := Config{
		AppName:                v.GetString("app.name"),
		AppEnv:                 v.GetString("app.env"),
		AppPort:                v.GetString("app.port"),
		DatabaseURL:            v.GetString("database.url"),
		RedisURL:               v.GetString("redis.url"),
		NATSURL:                v.GetString("nats.url"),
		JWTSecret:              v.GetString("jwt.secret"),
		JWTRefreshSecret:       v.GetString("jwt.refresh_secret"),
		AccessTokenTTL:         durations["jwt.access_ttl"],
		RefreshTokenTTL:        durations["jwt.refresh_ttl"],
		CloudinaryCloudName:    v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:       v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret:    v.GetString("cloudinary.api_secret"),
		CloudinaryUploadFolder: v.GetString("cloudinary.folder"),
		UploadMaxMB:            v.GetInt("upload.max_mb"),
		ImageMinDimension:      v.GetInt("image.min_dimension"),
		ImageMediumWidth:       v.GetInt("image.medium_width"),
		ImageThumbnailWidth:    v.GetInt("image.thumbnail_width"),
		DashboardCacheTTL:      durations["dashboard.cache_ttl"],
		NotificationChannel:    v.GetString("notifications.channel"),
		CORSOrigins:            v.GetString("cors.origins"),
		SeedAchievements:       v.GetBool("seed.achievements"),
		TaskTimeout:            durations["worker.task_timeout"],
		ActivityRetention:      durations["activity.retention"],
		LoginRateLimit:         v.GetInt("rate_limit.login_max"),
		LoginRateWindow:        durations["rate_limit.login_window"],
	}

	if cfg.JWTSecret == "" || cfg.JWTRefreshSecret == "" {
		return Config{}, fmt.Errorf("jwt secrets must be provided")
	}

	if cfg.UploadMaxMB <= 0 {
		cfg.UploadMaxMB = 10
	}

	if cfg.ImageMediumWidth <= 0 {
		cfg.ImageMediumWidth = 1024
	}

	if cfg.ImageThumbnailWidth <= 0 {
		cfg.ImageThumbnailWidth = 320
	}

	return cfg, nil
}
