package entity

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewUser_DefaultState(t *testing.T) {
	u := NewUser(1, 10)
	require.Equal(t, StateMainMenu, u.State)
	require.Equal(t, int64(1), u.ID)
	require.Equal(t, int64(10), u.ChatID)
	require.Nil(t, u.Location)
	require.False(t, u.Subscribed)
}

func TestUser_TakeLocation(t *testing.T) {
	u := NewUser(1, 10)
	u.SetLocation(Location{Latitude: 55.75, Longitude: 37.61})

	loc := u.TakeLocation()
	require.NotNil(t, loc)
	require.Equal(t, 55.75, loc.Latitude)
	require.Nil(t, u.TakeLocation())
}
