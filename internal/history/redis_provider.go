package history

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/chichastore/riskd/internal/idgen"
	"github.com/chichastore/riskd/internal/risk"
)

// RedisProvider keeps a 24h sliding window of transaction timestamps per
// user in a sorted set scored by unix-milli time.
type RedisProvider struct {
	client *redis.Client
}

// NewRedisProvider creates a Redis-backed history provider.
func NewRedisProvider(client *redis.Client) *RedisProvider {
	return &RedisProvider{client: client}
}

func historyKey(userID string) string {
	return "txn:history:" + userID
}

func (p *RedisProvider) RecordTransaction(ctx context.Context, userID string, at time.Time) error {
	key := historyKey(userID)
	now := at.UnixMilli()

	// Member carries a random suffix so simultaneous transactions don't
	// collapse into one sorted-set entry.
	member := strconv.FormatInt(now, 10) + "-" + idgen.Hex(4)

	pipe := p.client.TxPipeline()
	pipe.ZAdd(ctx, key, redis.Z{Score: float64(now), Member: member})
	pipe.ZRemRangeByScore(ctx, key, "0", fmt.Sprintf("%d", at.Add(-dayWindow).UnixMilli()))
	pipe.Expire(ctx, key, dayWindow)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("history: record transaction: %w", err)
	}
	return nil
}

func (p *RedisProvider) Stats(ctx context.Context, userID string) (risk.FrequencyStats, error) {
	key := historyKey(userID)
	now := time.Now()

	hourStart := fmt.Sprintf("%d", now.Add(-hourWindow).UnixMilli())
	dayStart := fmt.Sprintf("%d", now.Add(-dayWindow).UnixMilli())

	pipe := p.client.Pipeline()
	hourCount := pipe.ZCount(ctx, key, hourStart, "+inf")
	dayCount := pipe.ZCount(ctx, key, dayStart, "+inf")
	if _, err := pipe.Exec(ctx); err != nil && err != redis.Nil {
		return risk.FrequencyStats{}, fmt.Errorf("history: read stats: %w", err)
	}

	return risk.FrequencyStats{
		LastHour:    int(hourCount.Val()),
		Last24Hours: int(dayCount.Val()),
	}, nil
}
