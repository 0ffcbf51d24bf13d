package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/seniku-go-api/internal/database"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/repository"
	"github.com/noah-isme/seniku-go-api/pkg/imageproc"
)

var fixedNow = time.Date(2024, time.March, 4, 9, 0, 0, 0, time.UTC)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:service_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), database.GormConfig(zerolog.Nop()))
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

type serviceFixture struct {
	class      models.Class
	category   models.Category
	teacher    models.User
	student    models.User
	assignment models.Assignment
}

func seedServiceFixture(t *testing.T, db *gorm.DB) serviceFixture {
	t.Helper()
	nip := "197805122005011002"
	nis := "0051234567"

	f := serviceFixture{
		class:    models.Class{Name: "XII Seni 1"},
		category: models.Category{Name: "Painting"},
	}
	require.NoError(t, db.Create(&f.class).Error)
	require.NoError(t, db.Create(&f.category).Error)

	f.teacher = models.User{Name: "Pak Budi", NIP: &nip, PasswordHash: "x", Role: models.RoleTeacher}
	f.student = models.User{Name: "Citra", NIS: &nis, PasswordHash: "x", Role: models.RoleStudent, ClassID: &f.class.ID}
	require.NoError(t, db.Create(&f.teacher).Error)
	require.NoError(t, db.Create(&f.student).Error)

	f.assignment = models.Assignment{
		Title:       "Self portrait",
		CategoryID:  f.category.ID,
		Deadline:    fixedNow.Add(72 * time.Hour),
		Status:      models.AssignmentStatusPublished,
		CreatedByID: f.teacher.ID,
	}
	require.NoError(t, repository.NewAssignmentRepository(db).Create(context.Background(), &f.assignment, []uint{f.class.ID}))
	return f
}

// fakeProcessor passes bytes through unchanged and rejects the literal payload "not-an-image".
type fakeProcessor struct{}

func (fakeProcessor) Process(data []byte) (imageproc.Result, error) {
	if string(data) == "not-an-image" {
		return imageproc.Result{}, imageproc.ErrNotAnImage
	}
	return imageproc.Result{
		Width:     800,
		Height:    600,
		Format:    "png",
		Checksum:  imageproc.Checksum(data),
		Full:      data,
		Medium:    data,
		Thumbnail: data,
	}, nil
}

type memoryImageStore struct {
	mu      sync.Mutex
	puts    []string
	deletes []string
	failPut bool
}

func (s *memoryImageStore) Put(_ context.Context, bucket, key string, _ []byte, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPut {
		return "", errors.New("store offline")
	}
	url := "https://cdn.test/" + bucket + "/" + key
	s.puts = append(s.puts, url)
	return url, nil
}

func (s *memoryImageStore) Delete(_ context.Context, url string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.deletes = append(s.deletes, url)
	return nil
}

func (s *memoryImageStore) putCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.puts)
}

type recordingNotifier struct {
	mu     sync.Mutex
	inputs []NotificationInput
}

func (n *recordingNotifier) Notify(_ context.Context, input NotificationInput) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.inputs = append(n.inputs, input)
	return nil
}

func (n *recordingNotifier) ofType(kind string) []NotificationInput {
	n.mu.Lock()
	defer n.mu.Unlock()
	matched := make([]NotificationInput, 0)
	for _, input := range n.inputs {
		if input.Type == kind {
			matched = append(matched, input)
		}
	}
	return matched
}

type stubActivityRecorder struct {
	mu      sync.Mutex
	entries []ActivityEntry
}

func (s *stubActivityRecorder) Record(_ context.Context, entry ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, entry)
	return nil
}

type recordingInvalidator struct {
	mu    sync.Mutex
	users []uint
}

func (r *recordingInvalidator) Invalidate(_ context.Context, userIDs ...uint) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.users = append(r.users, userIDs...)
}
