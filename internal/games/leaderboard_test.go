package games

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupBoard(t *testing.T) *Leaderboard {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewLeaderboard(rdb)
}

func TestLeaderboard_KeepsBestScore(t *testing.T) {
	board := setupBoard(t)
	ctx := context.Background()

	require.NoError(t, board.Submit(ctx, "cricket", "u1", 100))
	require.NoError(t, board.Submit(ctx, "cricket", "u1", 40))

	top, err := board.Top(ctx, "cricket", 10)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 100, top[0].Score, "a lower score must not overwrite the best")

	require.NoError(t, board.Submit(ctx, "cricket", "u1", 120))
	top, err = board.Top(ctx, "cricket", 10)
	require.NoError(t, err)
	assert.Equal(t, 120, top[0].Score)
}

// The best-score comparison happens in the store itself, so racing submits
// for the same player always settle on the highest.
func TestLeaderboard_ConcurrentSubmits(t *testing.T) {
	board := setupBoard(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for score := 1; score <= 50; score++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			_ = board.Submit(ctx, "cricket", "u1", s)
		}(score)
	}
	wg.Wait()

	top, err := board.Top(ctx, "cricket", 1)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, 50, top[0].Score)
}

func TestLeaderboard_TopOrdersBestFirst(t *testing.T) {
	board := setupBoard(t)
	ctx := context.Background()

	require.NoError(t, board.Submit(ctx, "cricket", "u1", 10))
	require.NoError(t, board.Submit(ctx, "cricket", "u2", 30))
	require.NoError(t, board.Submit(ctx, "cricket", "u3", 20))

	top, err := board.Top(ctx, "cricket", 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, LeaderboardEntry{UserID: "u2", Score: 30}, top[0])
	assert.Equal(t, LeaderboardEntry{UserID: "u3", Score: 20}, top[1])
}
