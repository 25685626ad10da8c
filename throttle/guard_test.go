package throttle

import (
	"context"
	"testing"
	"time"

	"github.com/ceyewan/aegis/xerrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================
// Guard 辅助函数
// ============================================================

func newTestGuard(t *testing.T, cfg *GuardConfig) *Guard {
	t.Helper()

	limiter := newTestLimiter(t)
	guard, err := NewGuard(limiter, cfg)
	require.NoError(t, err)
	return guard
}

// ============================================================
// 多维度评估测试
// ============================================================

func TestGuard_Evaluate_Dimensions(t *testing.T) {
	ctx := context.Background()

	t.Run("所有维度都在配额内时放行", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{
			IP:   &WindowConfig{Window: time.Minute, Limit: 10},
			User: &WindowConfig{Window: time.Minute, Limit: 10},
		})

		id := Identity{IP: "1.2.3.4", UserID: "u1"}
		for i := 0; i < 5; i++ {
			require.NoError(t, guard.Evaluate(ctx, id, nil))
		}
	})

	t.Run("IP 维度超限时返回 IP 维度的 LimitError", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{
			IP:   &WindowConfig{Window: time.Minute, Limit: 2},
			User: &WindowConfig{Window: time.Minute, Limit: 100},
		})

		id := Identity{IP: "1.2.3.4", UserID: "u1"}
		require.NoError(t, guard.Evaluate(ctx, id, nil))
		require.NoError(t, guard.Evaluate(ctx, id, nil))

		err := guard.Evaluate(ctx, id, nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrLimitExceeded)

		le, ok := AsLimitError(err)
		require.True(t, ok)
		assert.Equal(t, DimensionIP, le.Dimension)
		assert.Equal(t, LimitCode, le.Code)
		assert.Positive(t, le.RetryAfter)
		assert.Contains(t, le.Message, "IP")
	})

	t.Run("IP 超限时用户维度不计数", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{
			IP:   &WindowConfig{Window: time.Minute, Limit: 1},
			User: &WindowConfig{Window: time.Minute, Limit: 100},
		})

		id := Identity{IP: "5.6.7.8", UserID: "u2"}
		require.NoError(t, guard.Evaluate(ctx, id, nil))

		// IP 超限，后续维度不应被检查
		for i := 0; i < 3; i++ {
			err := guard.Evaluate(ctx, id, nil)
			require.Error(t, err)
		}

		result, err := guard.Status(ctx, DimensionUser, "u2")
		require.NoError(t, err)
		assert.Equal(t, int64(1), result.Current, "被 IP 拦截的请求不应消耗用户配额")
	})

	t.Run("身份中缺失的维度自动跳过", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{
			IP:   &WindowConfig{Window: time.Minute, Limit: 100},
			User: &WindowConfig{Window: time.Minute, Limit: 1},
		})

		// 未认证请求没有 UserID，用户维度不参与
		id := Identity{IP: "9.9.9.9"}
		require.NoError(t, guard.Evaluate(ctx, id, nil))
		require.NoError(t, guard.Evaluate(ctx, id, nil))
	})

	t.Run("同一维度不同标识相互独立", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{
			IP: &WindowConfig{Window: time.Minute, Limit: 1},
		})

		require.NoError(t, guard.Evaluate(ctx, Identity{IP: "a"}, nil))
		require.NoError(t, guard.Evaluate(ctx, Identity{IP: "b"}, nil))

		err := guard.Evaluate(ctx, Identity{IP: "a"}, nil)
		assert.ErrorIs(t, err, ErrLimitExceeded)
	})

	t.Run("未配置任何维度时全部放行", func(t *testing.T) {
		guard := newTestGuard(t, nil)
		for i := 0; i < 10; i++ {
			require.NoError(t, guard.Evaluate(ctx, Identity{IP: "x", UserID: "y"}, nil))
		}
	})
}

// ============================================================
// 策略覆盖测试
// ============================================================

func TestGuard_Evaluate_Policy(t *testing.T) {
	ctx := context.Background()

	t.Run("Bypass 跳过所有维度", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{
			IP: &WindowConfig{Window: time.Minute, Limit: 1},
		})

		id := Identity{IP: "bypass-ip"}
		policy := &Policy{Bypass: true}
		for i := 0; i < 10; i++ {
			require.NoError(t, guard.Evaluate(ctx, id, policy))
		}

		// Bypass 的请求不消耗配额
		result, err := guard.Status(ctx, DimensionIP, "bypass-ip")
		require.NoError(t, err)
		assert.Zero(t, result.Current)
	})

	t.Run("策略覆盖整体替换对应维度", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{
			IP: &WindowConfig{Window: time.Minute, Limit: 100},
		})

		id := Identity{IP: "override-ip"}
		policy := &Policy{IP: &WindowConfig{Window: time.Minute, Limit: 1}}

		require.NoError(t, guard.Evaluate(ctx, id, policy))
		err := guard.Evaluate(ctx, id, policy)
		assert.ErrorIs(t, err, ErrLimitExceeded, "策略维度应完全取代静态配置")
	})

	t.Run("策略可以启用静态配置中未配置的维度", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{})

		id := Identity{UserID: "u-enable"}
		policy := &Policy{User: &WindowConfig{Window: time.Minute, Limit: 1}}

		require.NoError(t, guard.Evaluate(ctx, id, policy))
		err := guard.Evaluate(ctx, id, policy)
		assert.ErrorIs(t, err, ErrLimitExceeded)
	})

	t.Run("策略中为 nil 的维度沿用静态配置", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{
			IP:   &WindowConfig{Window: time.Minute, Limit: 1},
			User: &WindowConfig{Window: time.Minute, Limit: 100},
		})

		id := Identity{IP: "partial", UserID: "u-partial"}
		policy := &Policy{User: &WindowConfig{Window: time.Minute, Limit: 50}}

		require.NoError(t, guard.Evaluate(ctx, id, policy))
		err := guard.Evaluate(ctx, id, policy)
		le, ok := AsLimitError(err)
		require.True(t, ok)
		assert.Equal(t, DimensionIP, le.Dimension, "IP 维度应沿用静态配置的上限")
	})
}

// ============================================================
// 其他行为测试
// ============================================================

func TestGuard_KeyLayout(t *testing.T) {
	guard := newTestGuard(t, &GuardConfig{Prefix: "rl:"})
	assert.Equal(t, "rl:ip:1.2.3.4", guard.Key(DimensionIP, "1.2.3.4"))
	assert.Equal(t, "rl:user:u1", guard.Key(DimensionUser, "u1"))

	defaulted := newTestGuard(t, nil)
	assert.Equal(t, "throttle:tenant:t1", defaulted.Key(DimensionTenant, "t1"))
}

func TestGuard_Validation(t *testing.T) {
	t.Run("limiter 为空返回错误", func(t *testing.T) {
		_, err := NewGuard(nil, &GuardConfig{})
		assert.ErrorIs(t, err, ErrLimiterNil)
	})

	t.Run("无效的维度规则返回错误", func(t *testing.T) {
		limiter := newTestLimiter(t)
		_, err := NewGuard(limiter, &GuardConfig{
			IP: &WindowConfig{Window: -1, Limit: 10},
		})
		assert.ErrorIs(t, err, ErrInvalidWindow)
	})

	t.Run("未配置的维度 Status 返回错误", func(t *testing.T) {
		guard := newTestGuard(t, &GuardConfig{})
		_, err := guard.Status(context.Background(), DimensionIP, "1.2.3.4")
		assert.ErrorIs(t, err, ErrDimensionDisabled)
	})
}

func TestGuard_StoreErrorPropagation(t *testing.T) {
	storeErr := xerrors.New("store down")
	limiter, err := NewWithStore(&failingStore{err: storeErr})
	require.NoError(t, err)

	guard, err := NewGuard(limiter, &GuardConfig{
		IP: &WindowConfig{Window: time.Minute, Limit: 1},
	})
	require.NoError(t, err)

	evalErr := guard.Evaluate(context.Background(), Identity{IP: "x"}, nil)
	require.Error(t, evalErr)
	assert.ErrorIs(t, evalErr, storeErr)

	_, isLimit := AsLimitError(evalErr)
	assert.False(t, isLimit, "存储错误不应被包装成限流错误")
}

func TestGuard_Reset(t *testing.T) {
	ctx := context.Background()
	guard := newTestGuard(t, &GuardConfig{
		User: &WindowConfig{Window: time.Minute, Limit: 1},
	})

	id := Identity{UserID: "reset-user"}
	require.NoError(t, guard.Evaluate(ctx, id, nil))
	assert.ErrorIs(t, guard.Evaluate(ctx, id, nil), ErrLimitExceeded)

	require.NoError(t, guard.Reset(ctx, DimensionUser, "reset-user"))
	require.NoError(t, guard.Evaluate(ctx, id, nil))
}
