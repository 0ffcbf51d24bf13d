package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/seniku-go-api/internal/config"
	"github.com/noah-isme/seniku-go-api/internal/database"
	"github.com/noah-isme/seniku-go-api/internal/handler"
	"github.com/noah-isme/seniku-go-api/internal/middleware"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/repository"
	"github.com/noah-isme/seniku-go-api/internal/router"
	"github.com/noah-isme/seniku-go-api/internal/service"
	"github.com/noah-isme/seniku-go-api/internal/utils"
	"github.com/noah-isme/seniku-go-api/pkg/imageproc"
)

const (
	testAccessSecret  = "access-secret"
	testRefreshSecret = "refresh-secret"
	testPassword      = "rahasia123"
)

type passthroughProcessor struct{}

func (passthroughProcessor) Process(data []byte) (imageproc.Result, error) {
	if string(data) == "not-an-image" {
		return imageproc.Result{}, imageproc.ErrNotAnImage
	}
	return imageproc.Result{
		Width:     1200,
		Height:    900,
		Format:    "png",
		Checksum:  imageproc.Checksum(data),
		Full:      data,
		Medium:    data,
		Thumbnail: data,
	}, nil
}

type memoryStore struct {
	mu   sync.Mutex
	seq  int
	keys []string
}

func (s *memoryStore) Put(_ context.Context, bucket, key string, _ []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	s.keys = append(s.keys, key)
	return fmt.Sprintf("https://cdn.test/%s/%d/%s", bucket, s.seq, key), nil
}

func (s *memoryStore) Delete(context.Context, string) error { return nil }

type testEnv struct {
	app      *fiber.App
	db       *gorm.DB
	tokens   *service.TokenManager
	class    models.Class
	category models.Category
	admin    models.User
	teacher  models.User
	student  models.User
	other    models.User
}

func setupTestEnv(t *testing.T) *testEnv {
	t.Helper()

	dsn := fmt.Sprintf("file:handler_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	env := &testEnv{
		db:       db,
		tokens:   service.NewTokenManager(testAccessSecret, testRefreshSecret, time.Minute, time.Hour),
		class:    models.Class{Name: "XI Seni Rupa"},
		category: models.Category{Name: "Watercolor"},
	}
	require.NoError(t, db.Create(&env.class).Error)
	require.NoError(t, db.Create(&env.category).Error)

	hash, err := bcrypt.GenerateFromPassword([]byte(testPassword), bcrypt.MinCost)
	require.NoError(t, err)
	adminNIP, teacherNIP, nis, otherNIS := "196501011990031001", "198102142008012003", "0061112223", "0061112224"
	env.admin = models.User{Name: "Bu Ratna", NIP: &adminNIP, PasswordHash: string(hash), Role: models.RoleAdmin}
	env.teacher = models.User{Name: "Pak Dimas", NIP: &teacherNIP, PasswordHash: string(hash), Role: models.RoleTeacher}
	env.student = models.User{Name: "Ayu Lestari", NIS: &nis, PasswordHash: string(hash), Role: models.RoleStudent, ClassID: &env.class.ID}
	env.other = models.User{Name: "Bagas", NIS: &otherNIS, PasswordHash: string(hash), Role: models.RoleStudent, ClassID: &env.class.ID}
	for _, user := range []*models.User{&env.admin, &env.teacher, &env.student, &env.other} {
		require.NoError(t, db.Create(user).Error)
	}

	logger := zerolog.New(io.Discard)
	validate := validator.New(validator.WithRequiredStructEnabled())
	processor := passthroughProcessor{}
	store := &memoryStore{}

	userRepo := repository.NewUserRepository(db)
	classRepo := repository.NewClassRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	assignmentRepo := repository.NewAssignmentRepository(db)
	submissionRepo := repository.NewSubmissionRepository(db)
	achievementRepo := repository.NewAchievementRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	analyticsRepo := repository.NewAnalyticsRepository(db)

	activityService := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	notificationService := service.NewNotificationService(notificationRepo, nil, "", nil, logger)
	dashboardService := service.NewDashboardService(service.DashboardDependencies{
		Analytics:     analyticsRepo,
		Assignments:   assignmentRepo,
		Users:         userRepo,
		Submissions:   submissionRepo,
		Achievements:  achievementRepo,
		Notifications: notificationRepo,
		Logger:        logger,
	})
	achievementService := service.NewAchievementService(achievementRepo, submissionRepo, notificationService, activityService, validate, logger)

	app := fiber.New(fiber.Config{ErrorHandler: handler.ErrorHandler(logger)})
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, config.Config{AppName: "Seniku Test", AppEnv: "test"}, router.Dependencies{
		AuthHandler: handler.NewAuthHandler(service.NewAuthService(userRepo, env.tokens, validate, logger), logger),
		UserHandler: handler.NewUserHandler(
			service.NewUserService(userRepo, classRepo, validate, processor, store, activityService, logger), 1<<20, logger),
		ClassHandler:    handler.NewClassHandler(service.NewClassService(classRepo, validate, activityService, logger), logger),
		CategoryHandler: handler.NewCategoryHandler(service.NewCategoryService(categoryRepo, validate, activityService, logger), logger),
		AssignmentHandler: handler.NewAssignmentHandler(service.NewAssignmentService(service.AssignmentDependencies{
			Assignments:   assignmentRepo,
			Categories:    categoryRepo,
			Classes:       classRepo,
			Users:         userRepo,
			Submissions:   submissionRepo,
			Validator:     validate,
			Notifications: notificationService,
			Dashboards:    dashboardService,
			Activity:      activityService,
			Logger:        logger,
		}), logger),
		SubmissionHandler: handler.NewSubmissionHandler(service.NewSubmissionService(service.SubmissionDependencies{
			Submissions:   submissionRepo,
			Assignments:   assignmentRepo,
			Users:         userRepo,
			Validator:     validate,
			Processor:     processor,
			Store:         store,
			Notifications: notificationService,
			Achievements:  achievementService,
			Dashboards:    dashboardService,
			Activity:      activityService,
			Logger:        logger,
		}), 1<<20, logger),
		AchievementHandler:  handler.NewAchievementHandler(achievementService, logger),
		NotificationHandler: handler.NewNotificationHandler(notificationService, logger, time.Second),
		DashboardHandler: handler.NewDashboardHandler(dashboardService,
			service.NewPortfolioService(analyticsRepo, userRepo, logger), logger),
		ExportHandler:   handler.NewExportHandler(service.NewExportService(analyticsRepo, userRepo, logger), logger),
		ActivityHandler: handler.NewActivityHandler(activityService, logger),
		JWTMiddleware:   middleware.JWTProtected(testAccessSecret),
		LoginLimiter:    middleware.LoginRateLimit(100, time.Minute),
	})

	env.app = app
	return env
}

func (e *testEnv) token(t *testing.T, user models.User) string {
	t.Helper()
	token, err := e.tokens.IssueAccess(user)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path string, as *models.User, body interface{}) *http.Response {
	t.Helper()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if as != nil {
		req.Header.Set(fiber.HeaderAuthorization, "Bearer "+e.token(t, *as))
	}

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func (e *testEnv) upload(t *testing.T, method, path string, as models.User, fields map[string]string, image []byte) *http.Response {
	t.Helper()

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	if image != nil {
		part, err := writer.CreateFormFile("image", "artwork.png")
		require.NoError(t, err)
		_, err = part.Write(image)
		require.NoError(t, err)
	}
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(method, path, body)
	req.Header.Set(fiber.HeaderContentType, writer.FormDataContentType())
	req.Header.Set(fiber.HeaderAuthorization, "Bearer "+e.token(t, as))

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

// createAssignment publishes an assignment for the fixture class and returns its id.
func (e *testEnv) createAssignment(t *testing.T, title string, deadline time.Time) uint {
	t.Helper()

	resp := e.do(t, http.MethodPost, "/api/v1/assignments", &e.teacher, map[string]interface{}{
		"title":       title,
		"description": "Use at least three colours",
		"category_id": e.category.ID,
		"class_ids":   []uint{e.class.ID},
		"deadline":    deadline.Format(time.RFC3339),
		"status":      models.AssignmentStatusPublished,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created struct {
		ID uint `json:"id"`
	}
	decodeData(t, resp, &created)
	require.NotZero(t, created.ID)
	return created.ID
}

func decodeEnvelope(t *testing.T, resp *http.Response) utils.APIResponse {
	t.Helper()
	defer resp.Body.Close()

	var envelope utils.APIResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&envelope))
	return envelope
}

func decodeData(t *testing.T, resp *http.Response, target interface{}) {
	t.Helper()

	envelope := decodeEnvelope(t, resp)
	require.True(t, envelope.Success, envelope.Message)
	raw, err := json.Marshal(envelope.Data)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(raw, target))
}

func uintString(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
