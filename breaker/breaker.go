// Package breaker 提供了显式状态机实现的熔断器组件，支持按名称管理的
// 熔断器注册表、手动隔离与 gRPC 客户端拦截器。
//
// breaker 是 Aegis 治理层的核心组件，它提供了：
// - 连续失败计数的熔断策略：连续失败达到阈值后打开熔断器
// - 四状态模型：closed / open / half_open / isolated
// - 冷却期后的单探测恢复：半开状态只放行一个探测请求
// - 手动隔离（isolated）：用于维护窗口或已知故障的后端，只能手动恢复
// - 名称索引的注册表：进程内按名称管理多个熔断器实例
// - 高阶函数 Wrap 与 gRPC Unary Interceptor 两种接入方式
//
// ## 基本使用
//
//	reg, _ := breaker.NewRegistry(breaker.WithLogger(logger))
//
//	result, err := reg.Execute(ctx, "billing-service", func() (any, error) {
//	    return billingClient.Charge(ctx, req)
//	})
//	if breaker.IsOpen(err) {
//	    // 熔断中，走降级逻辑
//	}
//
// ## 手动隔离
//
//	// 维护窗口开始前
//	reg.Isolate("billing-service")
//	// 维护结束后
//	reg.Deisolate("billing-service")
//
// ## gRPC 集成
//
//	conn, _ := grpc.NewClient("localhost:9001",
//	    grpc.WithUnaryInterceptor(breaker.UnaryClientInterceptor(reg)),
//	)
package breaker

import (
	"context"
	"time"

	"github.com/ceyewan/aegis/clog"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// State 熔断器状态
type State int

const (
	// StateClosed 闭合状态（正常放行，统计连续失败）
	StateClosed State = iota
	// StateOpen 打开状态（熔断中，快速失败）
	StateOpen
	// StateHalfOpen 半开状态（冷却期结束，单探测恢复）
	StateHalfOpen
	// StateIsolated 隔离状态（手动熔断，只能手动恢复）
	StateIsolated
)

// String 返回状态的字符串表示
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half_open"
	case StateIsolated:
		return "isolated"
	default:
		return "unknown"
	}
}

// Info 熔断器的观测快照
type Info struct {
	// Name 熔断器名称
	Name string

	// State 当前状态
	State State

	// Threshold 生效的连续失败阈值
	Threshold int

	// Cooldown 生效的冷却期
	Cooldown time.Duration

	// ConsecutiveFailures 当前连续失败次数（成功后清零）
	ConsecutiveFailures int

	// Successes 累计成功次数
	Successes int64

	// Failures 累计失败次数
	Failures int64

	// OpenedAt 最近一次进入打开状态的时间，从未打开时为零值
	OpenedAt time.Time

	// LastSuccess 最近一次成功完成的时间，从未成功时为零值
	LastSuccess time.Time

	// LastFailure 最近一次失败完成的时间，从未失败时为零值
	LastFailure time.Time
}

// Operation 受熔断保护的函数
type Operation func() (any, error)

// Registry 熔断器注册表接口
//
// 按名称管理进程内的熔断器实例。注册表是显式对象，不提供
// 包级全局实例；多实例部署时各进程的熔断状态相互独立。
type Registry interface {
	// Create 按名称创建熔断器，cfg 为 nil 时使用默认配置
	// 名称已存在时幂等返回已有实例的配置（记录 warn 日志，不覆盖）
	Create(name string, cfg *Config) error

	// GetOrCreate 返回熔断器的观测快照，不存在时按 cfg 创建
	// 已存在时 cfg 被忽略
	GetOrCreate(name string, cfg *Config) (Info, error)

	// Execute 在名为 name 的熔断器保护下执行 fn
	// 熔断器不存在时按默认配置创建。熔断中（打开/隔离）时
	// 不调用 fn，返回 *OpenError / *IsolatedError
	Execute(ctx context.Context, name string, fn Operation) (any, error)

	// Isolate 手动隔离熔断器，之后的所有调用快速失败
	// 隔离不会自动恢复，只能通过 Deisolate 解除
	Isolate(name string) error

	// Deisolate 解除隔离，熔断器回到闭合状态并清零计数
	// 未隔离时为幂等空操作
	Deisolate(name string) error

	// State 返回熔断器的当前状态
	State(name string) (State, error)

	// Info 返回熔断器的观测快照
	Info(name string) (Info, error)

	// Names 返回所有已注册熔断器的名称
	Names() []string

	// Remove 删除熔断器，丢弃其全部状态
	Remove(name string) error

	// Clear 删除所有熔断器
	Clear()
}

// ========================================
// 配置定义 (Configuration)
// ========================================

// 默认配置
const (
	// DefaultThreshold 默认的连续失败阈值
	DefaultThreshold = 5
	// DefaultCooldown 默认的冷却期时长
	DefaultCooldown = 30 * time.Second
)

// Config 熔断器配置
type Config struct {
	// Threshold 触发熔断的连续失败次数（默认：5）
	Threshold int `json:"threshold" yaml:"threshold" mapstructure:"threshold"`

	// Cooldown 打开状态的冷却期（默认：30s）
	// 冷却期结束后进入半开状态放行单个探测请求
	Cooldown time.Duration `json:"cooldown" yaml:"cooldown" mapstructure:"cooldown"`
}

// withDefaults 返回填充了默认值的配置副本
func (c *Config) withDefaults() Config {
	cfg := Config{}
	if c != nil {
		cfg = *c
	}
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.Cooldown <= 0 {
		cfg.Cooldown = DefaultCooldown
	}
	return cfg
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// NewRegistry 创建熔断器注册表
//
// 参数:
//   - opts: 可选参数 (Logger, Meter)
//
// 使用示例:
//
//	reg, _ := breaker.NewRegistry(breaker.WithLogger(logger))
//	_ = reg.Create("billing-service", &breaker.Config{
//	    Threshold: 3,
//	    Cooldown:  10 * time.Second,
//	})
func NewRegistry(opts ...Option) (Registry, error) {
	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	} else {
		logger = logger.With(clog.String("component", "breaker"))
	}

	return newRegistry(logger, opt.meter), nil
}
