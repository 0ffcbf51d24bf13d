package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/seniku-go-api/internal/apperror"
	"github.com/noah-isme/seniku-go-api/internal/dto"
	"github.com/noah-isme/seniku-go-api/internal/models"
	"github.com/noah-isme/seniku-go-api/internal/repository"
)

func TestNotificationPublishSanitizesAndStreams(t *testing.T) {
	db := setupServiceDB(t)
	fixture := seedServiceFixture(t, db)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, testLogger())
	ctx := context.Background()

	stream, cancel := svc.Subscribe(fixture.student.ID)
	defer cancel()

	published, err := svc.Publish(ctx, NotificationInput{
		UserID:  fixture.student.ID,
		Type:    models.NotificationAssignmentNew,
		Title:   "<b>New assignment:</b> Still life &amp; light",
		Message: "<img src=x onerror=alert(1)>Due Friday",
	})
	require.NoError(t, err)
	require.Equal(t, "New assignment: Still life & light", published.Title)
	require.Equal(t, "Due Friday", published.Message)

	select {
	case received := <-stream:
		require.Equal(t, published.ID, received.ID)
	case <-time.After(time.Second):
		t.Fatal("subscriber did not receive notification")
	}

	_, err = svc.Publish(ctx, NotificationInput{UserID: fixture.student.ID, Title: "<script>alert(1)</script>"})
	require.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	_, err = svc.Publish(ctx, NotificationInput{Title: "orphan"})
	require.Equal(t, apperror.KindValidation, apperror.KindOf(err))

	cancel()
	_, open := <-stream
	require.False(t, open)
}

func TestNotificationInboxOwnership(t *testing.T) {
	db := setupServiceDB(t)
	fixture := seedServiceFixture(t, db)
	svc := NewNotificationService(repository.NewNotificationRepository(db), nil, "", nil, testLogger())
	ctx := context.Background()

	first, err := svc.Publish(ctx, NotificationInput{UserID: fixture.student.ID, Title: "Graded"})
	require.NoError(t, err)
	require.Equal(t, models.NotificationSystem, first.Type)
	_, err = svc.Publish(ctx, NotificationInput{UserID: fixture.student.ID, Title: "Returned"})
	require.NoError(t, err)

	_, err = svc.MarkRead(ctx, first.ID, fixture.teacher.ID)
	require.ErrorIs(t, err, ErrNotificationNotFound)
	require.ErrorIs(t, svc.Delete(ctx, first.ID, fixture.teacher.ID), ErrNotificationNotFound)

	read, err := svc.MarkRead(ctx, first.ID, fixture.student.ID)
	require.NoError(t, err)
	require.True(t, read.Read)

	unread, err := svc.List(ctx, fixture.student.ID, dto.NotificationListRequest{UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread.Items, 1)
	require.EqualValues(t, 1, unread.UnreadCount)

	marked, err := svc.MarkAllRead(ctx, fixture.student.ID)
	require.NoError(t, err)
	require.EqualValues(t, 1, marked)

	count, err := svc.UnreadCount(ctx, fixture.student.ID)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestNotificationFanOutAcrossNodesViaRedis(t *testing.T) {
	mini, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mini.Close)

	db := setupServiceDB(t)
	fixture := seedServiceFixture(t, db)
	repo := repository.NewNotificationRepository(db)

	newClient := func() *redis.Client {
		client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
		t.Cleanup(func() { _ = client.Close() })
		return client
	}
	origin := NewNotificationService(repo, newClient(), "seniku", nil, testLogger())
	remote := NewNotificationService(repo, newClient(), "seniku", nil, testLogger())

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	remote.Start(ctx)
	require.Eventually(t, func() bool {
		return mini.PubSubNumSub("seniku:notifications")["seniku:notifications"] == 1
	}, time.Second, 10*time.Millisecond)

	stream, cancel := remote.Subscribe(fixture.student.ID)
	defer cancel()

	published, err := origin.Publish(ctx, NotificationInput{UserID: fixture.student.ID, Title: "Achievement unlocked: First Brush"})
	require.NoError(t, err)

	select {
	case received := <-stream:
		require.Equal(t, published.ID, received.ID)
		require.Equal(t, published.Title, received.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("remote node did not relay notification")
	}
}
