package limiter

import (
	"context"

	toolkit "github.com/hiendaovinh/toolkit/pkg/limiter"

	"github.com/go-redis/redis_rate/v10"
	"github.com/redis/go-redis/v9"
)

// LimiterRedis is a GCRA limiter on shared redis state, so bursts are
// throttled consistently across api and bot processes.
type LimiterRedis struct {
	instance *redis_rate.Limiter
}

func NewLimiter(client redis.UniversalClient) (*LimiterRedis, error) {
	return &LimiterRedis{redis_rate.NewLimiter(client)}, nil
}

func (l *LimiterRedis) Allow(ctx context.Context, key string, limit redis_rate.Limit) error {
	res, err := l.instance.Allow(ctx, key, limit)
	if err != nil {
		return err
	}

	if res.Allowed == 0 {
		return toolkit.ErrRateLimited
	}

	return nil
}
