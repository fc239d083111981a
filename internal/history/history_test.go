package history

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryProvider(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	now := time.Now()
	require.NoError(t, p.RecordTransaction(ctx, "user_1", now.Add(-2*time.Hour)))
	require.NoError(t, p.RecordTransaction(ctx, "user_1", now.Add(-30*time.Minute)))
	require.NoError(t, p.RecordTransaction(ctx, "user_1", now.Add(-time.Minute)))
	require.NoError(t, p.RecordTransaction(ctx, "user_2", now))

	stats, err := p.Stats(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.LastHour)
	assert.Equal(t, 3, stats.Last24Hours)

	// Entries outside the 24h window are not counted.
	require.NoError(t, p.RecordTransaction(ctx, "user_3", now.Add(-25*time.Hour)))
	stats, err = p.Stats(ctx, "user_3")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Last24Hours)

	// Unknown user has empty stats.
	stats, err = p.Stats(ctx, "user_missing")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.LastHour)
	assert.Equal(t, 0, stats.Last24Hours)
}

func TestMemoryProvider_CapsEntries(t *testing.T) {
	ctx := context.Background()
	p := NewMemoryProvider()

	now := time.Now()
	for i := 0; i < maxEntriesPerUser+50; i++ {
		require.NoError(t, p.RecordTransaction(ctx, "user_1", now))
	}
	assert.Len(t, p.entries["user_1"], maxEntriesPerUser)
}

func redisTestProvider(t *testing.T) (*RedisProvider, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisProvider(client), mr
}

func TestRedisProvider_RecordAndStats(t *testing.T) {
	ctx := context.Background()
	p, _ := redisTestProvider(t)

	now := time.Now()
	require.NoError(t, p.RecordTransaction(ctx, "user_1", now.Add(-2*time.Hour)))
	require.NoError(t, p.RecordTransaction(ctx, "user_1", now.Add(-10*time.Minute)))
	require.NoError(t, p.RecordTransaction(ctx, "user_1", now))

	stats, err := p.Stats(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 2, stats.LastHour)
	assert.Equal(t, 3, stats.Last24Hours)
}

func TestRedisProvider_SimultaneousTransactionsAllCount(t *testing.T) {
	ctx := context.Background()
	p, _ := redisTestProvider(t)

	// Identical timestamps must not collapse into one sorted-set member.
	at := time.Now()
	for i := 0; i < 5; i++ {
		require.NoError(t, p.RecordTransaction(ctx, "user_1", at))
	}

	stats, err := p.Stats(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 5, stats.LastHour)
}

func TestRedisProvider_PrunesOldEntries(t *testing.T) {
	ctx := context.Background()
	p, _ := redisTestProvider(t)

	require.NoError(t, p.RecordTransaction(ctx, "user_1", time.Now().Add(-26*time.Hour)))
	// The next write prunes everything older than the 24h window.
	require.NoError(t, p.RecordTransaction(ctx, "user_1", time.Now()))

	stats, err := p.Stats(ctx, "user_1")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Last24Hours)
}

func TestRedisProvider_EmptyUser(t *testing.T) {
	ctx := context.Background()
	p, _ := redisTestProvider(t)

	stats, err := p.Stats(ctx, "user_missing")
	require.NoError(t, err)
	assert.Equal(t, 0, stats.LastHour)
	assert.Equal(t, 0, stats.Last24Hours)
}
