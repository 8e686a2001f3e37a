package repository

import (
	"context"
	"testing"
	"time"

	"beachbookings/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedisDraftRepository(t *testing.T) {
	s, err := miniredis.Run()
	require.NoError(t, err)
	defer s.Close()

	client := redis.NewClient(&redis.Options{
		Addr: s.Addr(),
	})
	defer client.Close()

	repo := NewRedisDraftRepository(client, time.Hour)
	ctx := context.Background()

	t.Run("SetAndGetDraft", func(t *testing.T) {
		draft := &models.Draft{
			UserID:    "u1",
			Fields:    map[string]interface{}{"court": "2", "duration": 90},
			SavedAt:   time.Now().UTC(),
			ExpiresAt: time.Now().Add(time.Hour).UTC(),
		}

		require.NoError(t, repo.SetDraft(ctx, draft))
		assert.True(t, s.Exists("draft:u1"))

		got, err := repo.GetDraft(ctx, "u1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "u1", got.UserID)
		assert.Equal(t, "2", got.GetString("court"))
		assert.Equal(t, 90, got.GetInt("duration"))
	})

	t.Run("GetMissingDraft", func(t *testing.T) {
		got, err := repo.GetDraft(ctx, "nobody")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("ClearDraft", func(t *testing.T) {
		require.NoError(t, repo.SetDraft(ctx, &models.Draft{UserID: "u2"}))
		require.NoError(t, repo.ClearDraft(ctx, "u2"))

		got, err := repo.GetDraft(ctx, "u2")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("KeyExpires", func(t *testing.T) {
		require.NoError(t, repo.SetDraft(ctx, &models.Draft{UserID: "u3"}))
		s.FastForward(2 * time.Hour)

		got, err := repo.GetDraft(ctx, "u3")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("RateLimit", func(t *testing.T) {
		for i := 0; i < 3; i++ {
			ok, err := repo.CheckRateLimit(ctx, "invite:u1", 3, time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		}
		ok, err := repo.CheckRateLimit(ctx, "invite:u1", 3, time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)

		s.FastForward(2 * time.Minute)
		ok, err = repo.CheckRateLimit(ctx, "invite:u1", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("ServerDown", func(t *testing.T) {
		s.Close()
		_, err := repo.GetDraft(ctx, "u1")
		assert.Error(t, err)
	})
}

func TestPing(t *testing.T) {
	s := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer Close(client)

	assert.NoError(t, Ping(context.Background(), client))
}
