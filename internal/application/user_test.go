package app

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pothole-watch/internal/domain/entity"
	"pothole-watch/internal/infrastructure/storage"
)

func TestUserService_BeginReportAndCancel(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.BeginReport(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingLocation, user.State)

	user, err = svc.SetLocation(ctx, 1, 10, entity.Location{Latitude: 55.75, Longitude: 37.61})
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)

	user, err = svc.Cancel(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
	require.Nil(t, user.Location)
}

func TestUserService_SetState(t *testing.T) {
	repo := storage.NewMemoryUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()

	user, err := svc.SetState(ctx, 2, 20, entity.StateAwaitingPhoto)
	require.NoError(t, err)
	require.Equal(t, entity.StateAwaitingPhoto, user.State)
}

func TestUserService_SetLocationRejectsOutOfRange(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())
	ctx := context.Background()

	_, err := svc.SetLocation(ctx, 3, 30, entity.Location{Latitude: 120})
	require.ErrorIs(t, err, entity.ErrInvalidInput)

	user, err := svc.Get(ctx, 3, 30)
	require.NoError(t, err)
	require.Nil(t, user.Location)
	require.Equal(t, entity.StateMainMenu, user.State)
}

func TestUserService_StartProcessingTakesLocationOnce(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())
	ctx := context.Background()

	_, err := svc.SetLocation(ctx, 4, 40, entity.Location{Latitude: 1, Longitude: 2})
	require.NoError(t, err)

	user, loc, err := svc.StartProcessing(ctx, 4, 40)
	require.NoError(t, err)
	require.Equal(t, entity.StateProcessing, user.State)
	require.Equal(t, &entity.Location{Latitude: 1, Longitude: 2}, loc)

	_, loc, err = svc.StartProcessing(ctx, 4, 40)
	require.NoError(t, err)
	require.Nil(t, loc)

	user, err = svc.Finish(ctx, 4, 40)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)
}

func TestUserService_Subscriptions(t *testing.T) {
	svc := NewUserService(storage.NewMemoryUserRepository())
	ctx := context.Background()

	_, err := svc.Subscribe(ctx, 5, 50)
	require.NoError(t, err)
	_, err = svc.Subscribe(ctx, 6, 60)
	require.NoError(t, err)
	_, err = svc.Unsubscribe(ctx, 5, 50)
	require.NoError(t, err)

	subs, err := svc.Subscribers(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	require.Equal(t, int64(60), subs[0].ChatID)
}
