package throttle_test

import (
	"context"
	"testing"
	"time"

	"github.com/ceyewan/aegis/testkit"
	"github.com/ceyewan/aegis/throttle"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Redis 集成测试，Redis 不可达时自动跳过

func newRedisLimiter(t *testing.T) throttle.Limiter {
	t.Helper()

	conn := testkit.GetRedisConnector(t)
	limiter, err := throttle.New(&throttle.Config{Driver: throttle.DriverRedis},
		throttle.WithRedisConnector(conn),
		throttle.WithLogger(testkit.NewLogger()))
	require.NoError(t, err)
	return limiter
}

func TestRedisLimiter_Check(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()
	key := "throttle-test:" + testkit.NewID()
	cfg := throttle.WindowConfig{Window: 10 * time.Second, Limit: 3}

	t.Cleanup(func() {
		_ = limiter.Reset(context.Background(), key)
	})

	for i := int64(1); i <= 3; i++ {
		result, err := limiter.Check(ctx, key, cfg)
		require.NoError(t, err)
		assert.False(t, result.Blocked)
		assert.Equal(t, i, result.Current)
	}

	result, err := limiter.Check(ctx, key, cfg)
	require.NoError(t, err)
	assert.True(t, result.Blocked)
	assert.Equal(t, int64(3), result.Current)
	assert.Positive(t, result.RetryAfter)
	assert.LessOrEqual(t, result.RetryAfter, int64(10))
}

func TestRedisLimiter_WindowTTL(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()
	key := "throttle-test:" + testkit.NewID()
	cfg := throttle.WindowConfig{Window: 2 * time.Second, Limit: 100}

	t.Cleanup(func() {
		_ = limiter.Reset(context.Background(), key)
	})

	// 首次请求建立窗口
	_, err := limiter.Check(ctx, key, cfg)
	require.NoError(t, err)

	// 后续计数不应延长窗口
	for i := 0; i < 5; i++ {
		_, err = limiter.Check(ctx, key, cfg)
		require.NoError(t, err)
	}

	result, err := limiter.Status(ctx, key, cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(6), result.Current)

	time.Sleep(2500 * time.Millisecond)

	result, err = limiter.Status(ctx, key, cfg)
	require.NoError(t, err)
	assert.Zero(t, result.Current, "窗口过期后计数应自动清零")
}

func TestRedisLimiter_Reset(t *testing.T) {
	limiter := newRedisLimiter(t)
	ctx := context.Background()
	key := "throttle-test:" + testkit.NewID()
	cfg := throttle.WindowConfig{Window: 10 * time.Second, Limit: 1}

	result, err := limiter.Check(ctx, key, cfg)
	require.NoError(t, err)
	assert.False(t, result.Blocked)

	result, err = limiter.Check(ctx, key, cfg)
	require.NoError(t, err)
	assert.True(t, result.Blocked)

	require.NoError(t, limiter.Reset(ctx, key))

	result, err = limiter.Check(ctx, key, cfg)
	require.NoError(t, err)
	assert.False(t, result.Blocked)

	_ = limiter.Reset(ctx, key)
}
