package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/seniku-go-api/internal/apperror"
	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/repository"
)

func TestClassServiceLifecycle(t *testing.T) {
	db := setupServiceDB(t)
	fixture := seedServiceFixture(t, db)
	activity := &stubActivityRecorder{}
	svc := NewClassService(repository.NewClassRepository(db), testValidator(), activity, testLogger())
	ctx := context.Background()
	admin := Actor{ID: fixture.teacher.ID, Role: models.RoleAdmin}

	created, err := svc.Create(ctx, admin, dto.ClassRequest{Name: " XI Seni 3 ", TeacherIDs: []uint{fixture.teacher.ID, fixture.student.ID}})
	require.NoError(t, err)
	require.Equal(t, "XI Seni 3", created.Name)
	require.Len(t, created.Teachers, 1)
	require.Equal(t, fixture.teacher.ID, created.Teachers[0].ID)

	_, err = svc.Create(ctx, admin, dto.ClassRequest{Name: "XI Seni 3"})
	require.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	updated, err := svc.Update(ctx, admin, created.ID, dto.ClassRequest{Name: "XI Seni 3", Description: "Afternoon", TeacherIDs: []uint{}})
	require.NoError(t, err)
	require.Equal(t, "Afternoon", updated.Description)
	require.Empty(t, updated.Teachers)

	require.NoError(t, svc.Delete(ctx, admin, created.ID, false))
	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, ErrClassNotFound)
	require.Len(t, activity.entries, 3)
}

func TestClassDeleteWithDependents(t *testing.T) {
	db := setupServiceDB(t)
	fixture := seedServiceFixture(t, db)
	svc := NewClassService(repository.NewClassRepository(db), testValidator(), nil, testLogger())
	ctx := context.Background()
	admin := Actor{ID: fixture.teacher.ID, Role: models.RoleAdmin}

	err := svc.Delete(ctx, admin, fixture.class.ID, false)
	require.ErrorIs(t, err, ErrHasDependents)

	require.NoError(t, svc.Delete(ctx, admin, fixture.class.ID, true))

	var student models.User
	require.NoError(t, db.First(&student, fixture.student.ID).Error)
	require.Nil(t, student.ClassID)

	var links int64
	require.NoError(t, db.Table("assignment_classes").Count(&links).Error)
	require.Zero(t, links)
}

func TestCategoryDeleteWithDependents(t *testing.T) {
	db := setupServiceDB(t)
	fixture := seedServiceFixture(t, db)
	svc := NewCategoryService(repository.NewCategoryRepository(db), testValidator(), nil, testLogger())
	ctx := context.Background()
	admin := Actor{ID: fixture.teacher.ID, Role: models.RoleAdmin}

	err := svc.Delete(ctx, admin, fixture.category.ID, false)
	require.ErrorIs(t, err, ErrHasDependents)

	require.NoError(t, svc.Delete(ctx, admin, fixture.category.ID, true))

	var assignments int64
	require.NoError(t, db.Model(&models.Assignment{}).Count(&assignments).Error)
	require.Zero(t, assignments)

	_, err = svc.Get(ctx, fixture.category.ID)
	require.ErrorIs(t, err, ErrCategoryNotFound)
}

func TestCategoryCreateAndUpdate(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewCategoryService(repository.NewCategoryRepository(db), testValidator(), nil, testLogger())
	ctx := context.Background()
	admin := Actor{ID: 1, Role: models.RoleAdmin}

	created, err := svc.Create(ctx, admin, dto.CategoryRequest{Name: "Sculpture"})
	require.NoError(t, err)

	_, err = svc.Create(ctx, admin, dto.CategoryRequest{Name: "Sculpture"})
	require.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	updated, err := svc.Update(ctx, admin, created.ID, dto.CategoryRequest{Name: "Clay sculpture"})
	require.NoError(t, err)
	require.Equal(t, "Clay sculpture", updated.Name)

	_, err = svc.Update(ctx, admin, 999, dto.CategoryRequest{Name: "Ghost"})
	require.ErrorIs(t, err, ErrCategoryNotFound)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func setupUserService(t *testing.T) (UserService, serviceFixture, *memoryImageStore) {
	t.Helper()
	db := setupServiceDB(t)
	fixture := seedServiceFixture(t, db)
	store := &memoryImageStore{}
	svc := NewUserService(repository.NewUserRepository(db), repository.NewClassRepository(db), testValidator(), fakeProcessor{}, store, nil, testLogger())
	return svc, fixture, store
}

func TestUserCreateRequiresRoleIdentifier(t *testing.T) {
	svc, fixture, _ := setupUserService(t)
	ctx := context.Background()
	admin := Actor{ID: fixture.teacher.ID, Role: models.RoleAdmin}

	_, err := svc.Create(ctx, admin, dto.UserCreateRequest{Name: "No NIS", Password: "password123", Role: models.RoleStudent})
	require.ErrorIs(t, err, ErrIdentifierRequired)

	nis := "0057778889"
	created, err := svc.Create(ctx, admin, dto.UserCreateRequest{Name: "Fajar", NIS: &nis, Password: "password123", Role: models.RoleStudent, ClassID: &fixture.class.ID})
	require.NoError(t, err)
	require.Equal(t, &fixture.class.ID, created.ClassID)
	require.NotNil(t, created.Class)

	_, err = svc.Create(ctx, admin, dto.UserCreateRequest{Name: "Fajar Twin", NIS: &nis, Password: "password123", Role: models.RoleStudent})
	require.Equal(t, apperror.KindConflict, apperror.KindOf(err))

	nip := "198811112012"
	teacher, err := svc.Create(ctx, admin, dto.UserCreateRequest{Name: "Bu Lina", NIP: &nip, Password: "password123", Role: models.RoleTeacher, ClassIDs: []uint{fixture.class.ID}})
	require.NoError(t, err)
	require.Len(t, teacher.Classes, 1)

	missing := uint(999)
	other := "0051231231"
	_, err = svc.Create(ctx, admin, dto.UserCreateRequest{Name: "Lost", NIS: &other, Password: "password123", Role: models.RoleStudent, ClassID: &missing})
	require.ErrorIs(t, err, ErrClassNotFound)
}

func TestUserListUpdateAndDelete(t *testing.T) {
	svc, fixture, _ := setupUserService(t)
	ctx := context.Background()
	admin := Actor{ID: fixture.teacher.ID, Role: models.RoleAdmin}

	students, err := svc.List(ctx, dto.UserListRequest{Role: models.RoleStudent})
	require.NoError(t, err)
	require.Len(t, students.Items, 1)

	name := "Citra Ayu"
	updated, err := svc.Update(ctx, admin, fixture.student.ID, dto.UserUpdateRequest{Name: &name})
	require.NoError(t, err)
	require.Equal(t, "Citra Ayu", updated.Name)

	err = svc.Delete(ctx, admin, admin.ID)
	require.ErrorIs(t, err, ErrCannotDeleteSelf)

	require.NoError(t, svc.Delete(ctx, admin, fixture.student.ID))
	_, err = svc.Get(ctx, fixture.student.ID)
	require.ErrorIs(t, err, ErrUserNotFound)
}

func TestUserProfileAndAvatar(t *testing.T) {
	svc, fixture, store := setupUserService(t)
	ctx := context.Background()

	bio := "  I love ink drawings "
	profile, err := svc.UpdateProfile(ctx, fixture.student.ID, dto.ProfileUpdateRequest{Bio: &bio})
	require.NoError(t, err)
	require.Equal(t, "I love ink drawings", profile.Bio)

	first, err := svc.UploadAvatar(ctx, fixture.student.ID, ImageUpload{Data: []byte("avatar-1")})
	require.NoError(t, err)
	require.Contains(t, first.AvatarURL, "avatars/")

	second, err := svc.UploadAvatar(ctx, fixture.student.ID, ImageUpload{Data: []byte("avatar-2")})
	require.NoError(t, err)
	require.NotEqual(t, first.AvatarURL, second.AvatarURL)
	require.Contains(t, store.deletes, first.AvatarURL)

	_, err = svc.UploadAvatar(ctx, fixture.student.ID, ImageUpload{})
	require.ErrorIs(t, err, ErrImageRequired)
}
