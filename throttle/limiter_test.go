package throttle

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ceyewan/aegis/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// 创建限流器辅助函数
// ============================================================

func newTestLimiter(t *testing.T) Limiter {
	t.Helper()

	limiter, err := New(&Config{Driver: DriverMemory})
	require.NoError(t, err)
	return limiter
}

// failingStore 所有操作都返回错误的计数存储，模拟存储不可用
type failingStore struct {
	err error
}

func (fs *failingStore) Get(ctx context.Context, key string) (int64, error)  { return 0, fs.err }
func (fs *failingStore) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	return fs.err
}
func (fs *failingStore) Incr(ctx context.Context, key string) (int64, error) { return 0, fs.err }
func (fs *failingStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	return 0, fs.err
}
func (fs *failingStore) Del(ctx context.Context, keys ...string) (int64, error) { return 0, fs.err }

// ============================================================
// 基础功能测试
// ============================================================

func TestLimiter_Check_Basic(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	cfg := WindowConfig{Window: time.Minute, Limit: 3}

	t.Run("窗口内的请求依次计数", func(t *testing.T) {
		for i := int64(1); i <= 3; i++ {
			result, err := limiter.Check(ctx, "check-basic", cfg)
			require.NoError(t, err)
			assert.False(t, result.Blocked)
			assert.Equal(t, i, result.Current)
			assert.Equal(t, int64(3), result.Limit)
			assert.Zero(t, result.RetryAfter)
		}
	})

	t.Run("达到上限后请求被拦截且不再计数", func(t *testing.T) {
		result, err := limiter.Check(ctx, "check-basic", cfg)
		require.NoError(t, err)
		assert.True(t, result.Blocked)
		assert.Equal(t, int64(3), result.Current, "被拦截的请求不应计数")
		assert.Positive(t, result.RetryAfter)

		// 再次请求，计数仍不变
		result, err = limiter.Check(ctx, "check-basic", cfg)
		require.NoError(t, err)
		assert.True(t, result.Blocked)
		assert.Equal(t, int64(3), result.Current)
	})

	t.Run("不同 key 的窗口相互独立", func(t *testing.T) {
		result, err := limiter.Check(ctx, "check-other", cfg)
		require.NoError(t, err)
		assert.False(t, result.Blocked)
		assert.Equal(t, int64(1), result.Current)
	})
}

func TestLimiter_Check_Validation(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()

	t.Run("空 key 返回错误", func(t *testing.T) {
		_, err := limiter.Check(ctx, "", WindowConfig{Window: time.Minute, Limit: 1})
		assert.ErrorIs(t, err, ErrKeyEmpty)
	})

	t.Run("无效的窗口规则返回错误", func(t *testing.T) {
		_, err := limiter.Check(ctx, "k", WindowConfig{Window: 0, Limit: 1})
		assert.ErrorIs(t, err, ErrInvalidWindow)

		_, err = limiter.Check(ctx, "k", WindowConfig{Window: time.Minute, Limit: 0})
		assert.ErrorIs(t, err, ErrInvalidWindow)
	})
}

func TestLimiter_Check_WindowExpiry(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	cfg := WindowConfig{Window: 50 * time.Millisecond, Limit: 1}

	result, err := limiter.Check(ctx, "expiry", cfg)
	require.NoError(t, err)
	assert.False(t, result.Blocked)

	result, err = limiter.Check(ctx, "expiry", cfg)
	require.NoError(t, err)
	assert.True(t, result.Blocked)

	// 窗口过期后重新计数
	time.Sleep(80 * time.Millisecond)
	result, err = limiter.Check(ctx, "expiry", cfg)
	require.NoError(t, err)
	assert.False(t, result.Blocked)
	assert.Equal(t, int64(1), result.Current)
}

func TestLimiter_Check_TTLSetOnce(t *testing.T) {
	store := NewMemoryStore()
	limiter, err := NewWithStore(store)
	require.NoError(t, err)
	ctx := context.Background()
	cfg := WindowConfig{Window: time.Minute, Limit: 100}

	_, err = limiter.Check(ctx, "ttl-once", cfg)
	require.NoError(t, err)

	ttlAfterFirst, err := store.TTL(ctx, "ttl-once")
	require.NoError(t, err)

	// 后续计数不应延长 TTL
	time.Sleep(20 * time.Millisecond)
	for i := 0; i < 5; i++ {
		_, err = limiter.Check(ctx, "ttl-once", cfg)
		require.NoError(t, err)
	}

	ttlAfterMore, err := store.TTL(ctx, "ttl-once")
	require.NoError(t, err)
	assert.LessOrEqual(t, ttlAfterMore, ttlAfterFirst, "窗口内的计数不应重置 TTL")
}

func TestLimiter_Check_ConcurrentCounting(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	cfg := WindowConfig{Window: time.Minute, Limit: 1000}

	// 先建立窗口，避开首次写入的非原子路径
	_, err := limiter.Check(ctx, "concurrent", cfg)
	require.NoError(t, err)

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = limiter.Check(ctx, "concurrent", cfg)
		}()
	}
	wg.Wait()

	result, err := limiter.Status(ctx, "concurrent", cfg)
	require.NoError(t, err)
	assert.Equal(t, int64(goroutines+1), result.Current, "窗口建立后的并发计数不应丢失")
}

func TestLimiter_Check_StoreError(t *testing.T) {
	storeErr := xerrors.New("store unavailable")
	limiter, err := NewWithStore(&failingStore{err: storeErr})
	require.NoError(t, err)

	_, err = limiter.Check(context.Background(), "k", WindowConfig{Window: time.Minute, Limit: 1})
	assert.ErrorIs(t, err, storeErr)
}

// ============================================================
// Status / Reset 测试
// ============================================================

func TestLimiter_Status(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	cfg := WindowConfig{Window: time.Minute, Limit: 2}

	t.Run("Status 不计数", func(t *testing.T) {
		for i := 0; i < 5; i++ {
			result, err := limiter.Status(ctx, "status-key", cfg)
			require.NoError(t, err)
			assert.Zero(t, result.Current)
			assert.False(t, result.Blocked)
		}
	})

	t.Run("Status 反映当前窗口状态", func(t *testing.T) {
		_, err := limiter.Check(ctx, "status-key", cfg)
		require.NoError(t, err)

		result, err := limiter.Status(ctx, "status-key", cfg)
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Current)
		assert.False(t, result.Blocked)
	})

	t.Run("超限后 Status 返回 Blocked 和剩余秒数", func(t *testing.T) {
		_, err := limiter.Check(ctx, "status-key", cfg)
		require.NoError(t, err)

		result, err := limiter.Status(ctx, "status-key", cfg)
		require.NoError(t, err)
		assert.True(t, result.Blocked)
		assert.Positive(t, result.RetryAfter)
	})
}

func TestLimiter_Reset(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	cfg := WindowConfig{Window: time.Minute, Limit: 1}

	result, err := limiter.Check(ctx, "reset-key", cfg)
	require.NoError(t, err)
	assert.False(t, result.Blocked)

	result, err = limiter.Check(ctx, "reset-key", cfg)
	require.NoError(t, err)
	assert.True(t, result.Blocked)

	require.NoError(t, limiter.Reset(ctx, "reset-key"))

	result, err = limiter.Check(ctx, "reset-key", cfg)
	require.NoError(t, err)
	assert.False(t, result.Blocked, "Reset 后窗口应立即重新开始")
	assert.Equal(t, int64(1), result.Current)
}

// ============================================================
// RetryAfter 语义测试
// ============================================================

func TestLimiter_RetryAfter(t *testing.T) {
	limiter := newTestLimiter(t)
	ctx := context.Background()
	cfg := WindowConfig{Window: 30 * time.Second, Limit: 1}

	_, err := limiter.Check(ctx, "retry-after", cfg)
	require.NoError(t, err)

	result, err := limiter.Check(ctx, "retry-after", cfg)
	require.NoError(t, err)
	assert.True(t, result.Blocked)
	assert.GreaterOrEqual(t, result.RetryAfter, int64(1))
	assert.LessOrEqual(t, result.RetryAfter, int64(30), "RetryAfter 不应超过窗口时长")
}
