package breaker

import (
	"context"
	"reflect"
	"runtime"
	"time"
)

// ========================================
// 高阶函数封装 (Higher-Order Wrapper)
// ========================================

// FallbackFunc 降级函数类型
// 当熔断器快速失败（打开/隔离）时执行，返回替代结果。
// 参数:
//   - ctx: 上下文
//   - name: 熔断器名称
//   - err: 快速失败错误 (*OpenError / *IsolatedError)
type FallbackFunc func(ctx context.Context, name string, err error) (any, error)

// WrapConfig Wrap 的配置
type WrapConfig struct {
	// Name 熔断器名称，为空时取被包装函数的符号名
	Name string

	// Threshold 触发熔断的连续失败次数（默认：5）
	Threshold int

	// Cooldown 打开状态的冷却期（默认：30s）
	Cooldown time.Duration

	// Fallback 熔断快速失败时的降级函数，nil 时原样返回错误
	Fallback FallbackFunc
}

// WrappedFunc 被熔断保护的上下文函数
type WrappedFunc func(ctx context.Context) (any, error)

// Wrap 将函数包装为受熔断保护的版本
//
// 包装后的函数每次调用都经过注册表中名为 cfg.Name 的熔断器。
// 熔断快速失败且配置了 Fallback 时，降级结果取代快速失败错误；
// 被调函数自身的错误不走降级，原样返回。
//
// 使用示例:
//
//	charge := breaker.Wrap(reg, breaker.WrapConfig{
//	    Name:      "billing-service",
//	    Threshold: 3,
//	    Fallback: func(ctx context.Context, name string, err error) (any, error) {
//	        return cachedQuota, nil
//	    },
//	}, func(ctx context.Context) (any, error) {
//	    return billingClient.Charge(ctx, req)
//	})
//
//	result, err := charge(ctx)
func Wrap(reg Registry, cfg WrapConfig, fn func(ctx context.Context) (any, error)) WrappedFunc {
	name := cfg.Name
	if name == "" {
		name = functionName(fn)
	}

	_ = reg.Create(name, &Config{
		Threshold: cfg.Threshold,
		Cooldown:  cfg.Cooldown,
	})

	return func(ctx context.Context) (any, error) {
		result, err := reg.Execute(ctx, name, func() (any, error) {
			return fn(ctx)
		})
		if err != nil && cfg.Fallback != nil && IsRejected(err) {
			return cfg.Fallback(ctx, name, err)
		}
		return result, err
	}
}

// functionName 取函数的符号名作为默认熔断器名称
func functionName(fn any) string {
	pc := reflect.ValueOf(fn).Pointer()
	if f := runtime.FuncForPC(pc); f != nil {
		return f.Name()
	}
	return "anonymous"
}
