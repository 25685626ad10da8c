package throttle

import (
	"context"
	"math"
	"time"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/metrics"
)

// limiter Limiter 接口的默认实现，存储后端由 CounterStore 抽象
type limiter struct {
	store   CounterStore
	logger  clog.Logger
	metrics *limiterMetrics
}

// newLimiter 创建限流器实现
func newLimiter(store CounterStore, logger clog.Logger, meter metrics.Meter) *limiter {
	if logger == nil {
		logger = clog.Discard()
	}
	return &limiter{
		store:   store,
		logger:  logger,
		metrics: newLimiterMetrics(meter),
	}
}

// ceilSeconds 将时长向上取整为秒数，最小为 1
func ceilSeconds(d time.Duration) int64 {
	secs := int64(math.Ceil(d.Seconds()))
	if secs < 1 {
		secs = 1
	}
	return secs
}

// Check 执行限流判定并计数
//
// 窗口建立语义：计数为 0 时执行 SET key 1 EX window 建立窗口，
// 之后的请求仅执行 INCR，不会延长 TTL。首个请求的读取与写入
// 之间没有原子性，并发首请求可能导致窗口初期轻微少计，偏差
// 方向是放行而不是误拦。
func (l *limiter) Check(ctx context.Context, key string, cfg WindowConfig) (Result, error) {
	if key == "" {
		return Result{}, ErrKeyEmpty
	}
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}

	count, err := l.store.Get(ctx, key)
	if err != nil {
		l.metrics.recordCheck(ctx, outcomeError)
		l.logger.ErrorContext(ctx, "rate limit check failed",
			clog.String("key", key), clog.Error(err))
		return Result{}, err
	}

	if count >= cfg.Limit {
		retryAfter := ceilSeconds(cfg.Window)
		if ttl, ttlErr := l.store.TTL(ctx, key); ttlErr == nil && ttl > 0 {
			retryAfter = ceilSeconds(ttl)
		}
		result := Result{
			Blocked:    true,
			Current:    count,
			Limit:      cfg.Limit,
			RetryAfter: retryAfter,
		}
		l.metrics.recordCheck(ctx, outcomeBlocked)
		l.logger.DebugContext(ctx, "rate limit exceeded",
			clog.String("key", key),
			clog.Int64("current", count),
			clog.Int64("limit", cfg.Limit),
			clog.Int64("retry_after", retryAfter))
		return result, nil
	}

	if count == 0 {
		// 首个请求建立窗口，TTL 仅在此处设置一次
		if err := l.store.Set(ctx, key, 1, cfg.Window); err != nil {
			l.metrics.recordCheck(ctx, outcomeError)
			return Result{}, err
		}
		l.metrics.recordCheck(ctx, outcomeAllowed)
		return Result{Current: 1, Limit: cfg.Limit}, nil
	}

	current, err := l.store.Incr(ctx, key)
	if err != nil {
		l.metrics.recordCheck(ctx, outcomeError)
		return Result{}, err
	}
	l.metrics.recordCheck(ctx, outcomeAllowed)
	return Result{Current: current, Limit: cfg.Limit}, nil
}

// Status 只读查询窗口状态，不计数
func (l *limiter) Status(ctx context.Context, key string, cfg WindowConfig) (Result, error) {
	if key == "" {
		return Result{}, ErrKeyEmpty
	}
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}

	count, err := l.store.Get(ctx, key)
	if err != nil {
		return Result{}, err
	}

	result := Result{
		Current: count,
		Limit:   cfg.Limit,
	}
	if count >= cfg.Limit {
		result.Blocked = true
		result.RetryAfter = ceilSeconds(cfg.Window)
		if ttl, ttlErr := l.store.TTL(ctx, key); ttlErr == nil && ttl > 0 {
			result.RetryAfter = ceilSeconds(ttl)
		}
	}
	return result, nil
}

// Reset 删除 key 的计数，立即重置窗口
func (l *limiter) Reset(ctx context.Context, key string) error {
	if key == "" {
		return ErrKeyEmpty
	}
	if _, err := l.store.Del(ctx, key); err != nil {
		return err
	}
	l.logger.InfoContext(ctx, "rate limit window reset", clog.String("key", key))
	return nil
}
