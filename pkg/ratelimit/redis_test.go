package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisLimiter(t *testing.T, attempts int, window time.Duration) (*Redis, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	return NewRedis(client, attempts, window), mr
}

func TestRedisAllowsWithinBudget(t *testing.T) {
	l, _ := newRedisLimiter(t, 2, time.Minute)

	for i := 0; i < 2; i++ {
		res, err := l.Check(context.Background(), "login", "1.2.3.4")
		require.NoError(t, err)
		assert.True(t, res.Allowed)
	}

	res, err := l.Check(context.Background(), "login", "1.2.3.4")
	require.NoError(t, err)
	assert.False(t, res.Allowed)
	assert.Greater(t, res.RetryAfter, time.Duration(0))
}

func TestRedisWindowExpiry(t *testing.T) {
	l, mr := newRedisLimiter(t, 1, time.Minute)

	res, err := l.Check(context.Background(), "login", "key")
	require.NoError(t, err)
	assert.True(t, res.Allowed)

	res, err = l.Check(context.Background(), "login", "key")
	require.NoError(t, err)
	assert.False(t, res.Allowed)

	mr.FastForward(time.Minute + time.Second)

	res, err = l.Check(context.Background(), "login", "key")
	require.NoError(t, err)
	assert.True(t, res.Allowed)
}

func TestRedisFailsOpenOnOutage(t *testing.T) {
	l, mr := newRedisLimiter(t, 1, time.Minute)
	mr.Close()

	res, err := l.Check(context.Background(), "login", "key")
	require.Error(t, err)
	assert.True(t, res.Allowed)
}
