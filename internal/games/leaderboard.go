package games

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// Leaderboard keeps the best reported score per player in a Redis sorted set,
// one set per game.
type Leaderboard struct {
	rdb *redis.Client
}

type LeaderboardEntry struct {
	UserID string `json:"userId"`
	Score  int    `json:"score"`
}

func NewLeaderboard(rdb *redis.Client) *Leaderboard {
	return &Leaderboard{rdb: rdb}
}

func key(game string) string { return "leaderboard:" + game }

// Submit records the score if it beats the player's previous best. GT makes
// the comparison atomic server-side; two racing submits cannot let a lower
// score overwrite a higher one.
func (l *Leaderboard) Submit(ctx context.Context, game, userID string, score int) error {
	return l.rdb.ZAddArgs(ctx, key(game), redis.ZAddArgs{
		GT:      true,
		Members: []redis.Z{{Score: float64(score), Member: userID}},
	}).Err()
}

// Top returns the highest n scores, best first.
func (l *Leaderboard) Top(ctx context.Context, game string, n int64) ([]LeaderboardEntry, error) {
	if n <= 0 {
		n = 10
	}
	zs, err := l.rdb.ZRevRangeWithScores(ctx, key(game), 0, n-1).Result()
	if err != nil {
		return nil, err
	}
	out := make([]LeaderboardEntry, 0, len(zs))
	for _, z := range zs {
		uid, ok := z.Member.(string)
		if !ok {
			uid = fmt.Sprint(z.Member)
		}
		out = append(out, LeaderboardEntry{UserID: uid, Score: int(z.Score)})
	}
	return out, nil
}
