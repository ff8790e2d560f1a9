package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"pothole-watch/internal/domain/entity"
)

func TestMemoryUserRepository_GetCreatesAndSaves(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	user, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, entity.StateMainMenu, user.State)

	user.SetLocation(entity.Location{Latitude: 1, Longitude: 2})
	user.Subscribed = true
	require.NoError(t, repo.Save(ctx, user))

	again, err := repo.Get(ctx, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1.0, again.Location.Latitude)

	// изменения копии не попадают в хранилище без Save
	again.Location.Latitude = 99
	third, _ := repo.Get(ctx, 1, 10)
	require.Equal(t, 1.0, third.Location.Latitude)
}

func TestMemoryUserRepository_UpdateStateAndSubscribers(t *testing.T) {
	repo := NewMemoryUserRepository()
	ctx := context.Background()

	for _, id := range []int64{3, 1, 2} {
		u, _ := repo.Get(ctx, id, id*10)
		u.Subscribed = id != 2
		require.NoError(t, repo.Save(ctx, u))
	}
	require.NoError(t, repo.UpdateState(ctx, 1, entity.StateAwaitingPhoto))

	subs, err := repo.ListSubscribed(ctx)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, int64(1), subs[0].ID)
	require.Equal(t, entity.StateAwaitingPhoto, subs[0].State)
	require.Equal(t, int64(3), subs[1].ID)
}
