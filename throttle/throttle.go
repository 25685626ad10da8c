// Package throttle 提供了固定窗口限流组件，支持按 IP / 用户 / 租户多维度限流。
//
// throttle 是 Aegis 治理层的核心组件，它提供了：
// - 统一的 Limiter 接口，屏蔽内存和 Redis 两种计数存储的差异
// - 固定窗口算法：窗口从首次请求开始计时，窗口内计数，过期自动重置
// - 多维度 Guard：按 IP → 用户 → 租户的固定顺序逐维检查，任一维度超限即拦截
// - 开箱即用的 Gin 中间件和 gRPC 拦截器
// - 与基础组件（日志、指标）的深度集成
//
// ## 基本使用
//
//	// 内存模式（单机/测试）
//	limiter, _ := throttle.New(&throttle.Config{Driver: throttle.DriverMemory},
//	    throttle.WithLogger(logger))
//
//	result, _ := limiter.Check(ctx, "throttle:ip:1.2.3.4",
//	    throttle.WindowConfig{Window: time.Minute, Limit: 100})
//	if result.Blocked {
//	    // 请求被限流，result.RetryAfter 秒后可重试
//	}
//
// ## Redis 模式
//
//	redisConn, _ := connector.NewRedis(&cfg.Redis, connector.WithLogger(logger))
//	defer redisConn.Close()
//
//	limiter, _ := throttle.New(&throttle.Config{Driver: throttle.DriverRedis},
//	    throttle.WithRedisConnector(redisConn), throttle.WithLogger(logger))
//
// ## 多维度 Guard
//
//	guard, _ := throttle.NewGuard(limiter, &throttle.GuardConfig{
//	    IP:   &throttle.WindowConfig{Window: time.Minute, Limit: 100},
//	    User: &throttle.WindowConfig{Window: time.Minute, Limit: 60},
//	}, throttle.WithLogger(logger))
//
//	r := gin.New()
//	r.Use(throttle.GinMiddleware(guard, nil))
//
// ## 窗口语义
//
// 固定窗口从某个 key 的首次请求开始计时（首次写入时设置 TTL，窗口内的
// 后续计数不会延长 TTL）。窗口边界处的突发流量最多可以在相邻两个窗口内
// 各触达一次 limit，这是固定窗口算法的既有行为，调用方按此语义配置阈值。
package throttle

import (
	"context"
	"time"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/xerrors"
)

// ========================================
// 接口定义 (Interface Definitions)
// ========================================

// Dimension 限流维度，每个维度使用独立的 key 命名空间和独立的窗口配置
type Dimension string

const (
	// DimensionIP 按客户端 IP 限流
	DimensionIP Dimension = "ip"
	// DimensionUser 按用户 ID 限流
	DimensionUser Dimension = "user"
	// DimensionTenant 按租户 ID 限流
	DimensionTenant Dimension = "tenant"
)

// String 返回维度的字符串表示
func (d Dimension) String() string {
	return string(d)
}

// WindowConfig 定义一个维度的固定窗口限流规则
type WindowConfig struct {
	// Window 窗口时长，窗口从 key 的首次请求开始计时
	Window time.Duration `json:"window" yaml:"window" mapstructure:"window"`

	// Limit 窗口内允许的最大请求数
	Limit int64 `json:"limit" yaml:"limit" mapstructure:"limit"`
}

// validate 校验窗口规则
func (c WindowConfig) validate() error {
	if c.Window <= 0 || c.Limit <= 0 {
		return ErrInvalidWindow
	}
	return nil
}

// Result 一次限流判定的结果，派生值，不持久化
type Result struct {
	// Blocked 是否被限流
	Blocked bool

	// Current 当前窗口内的计数（含本次请求，被拦截时不含）
	Current int64

	// Limit 窗口上限
	Limit int64

	// RetryAfter 被拦截时距窗口重置的剩余秒数，未拦截时为 0
	RetryAfter int64
}

// Limiter 限流器核心接口
type Limiter interface {
	// Check 对 key 执行一次限流判定并计数
	//
	// 未超限时将计数加一（首次请求建立窗口并设置 TTL），
	// 已超限时不再计数，返回 Blocked=true 和剩余秒数。
	// 计数存储不可用时返回错误，由调用方决定放行或拒绝。
	Check(ctx context.Context, key string, cfg WindowConfig) (Result, error)

	// Status 只读查询当前窗口状态，不计数，用于运维观测
	Status(ctx context.Context, key string, cfg WindowConfig) (Result, error)

	// Reset 删除 key 的计数，立即重置窗口（管理/测试操作）
	Reset(ctx context.Context, key string) error
}

// ========================================
// 配置定义 (Configuration)
// ========================================

// Driver 计数存储驱动
type Driver string

const (
	// DriverMemory 进程内存储，适合单机部署和测试
	DriverMemory Driver = "memory"
	// DriverRedis Redis 存储，多实例共享全局配额
	DriverRedis Driver = "redis"
)

// Config 限流器配置
type Config struct {
	// Driver 计数存储驱动（默认：memory）
	Driver Driver `json:"driver" yaml:"driver" mapstructure:"driver"`
}

// ========================================
// 工厂函数 (Factory Functions)
// ========================================

// New 创建限流器实例
// 这是标准的工厂函数，支持在不依赖其他容器的情况下独立实例化
//
// 参数:
//   - cfg: 限流器配置
//   - opts: 可选参数 (Logger, Meter, RedisConnector)
//
// 使用示例:
//
//	limiter, _ := throttle.New(&throttle.Config{Driver: throttle.DriverRedis},
//	    throttle.WithRedisConnector(redisConn),
//	    throttle.WithLogger(logger))
func New(cfg *Config, opts ...Option) (Limiter, error) {
	if cfg == nil {
		cfg = &Config{Driver: DriverMemory}
	}
	if cfg.Driver == "" {
		cfg.Driver = DriverMemory
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	// 派生 Logger（添加 component 字段）
	logger := opt.logger
	if logger != nil {
		logger = logger.With(clog.String("component", "throttle"))
	}

	var store CounterStore
	switch cfg.Driver {
	case DriverMemory:
		store = NewMemoryStore()
	case DriverRedis:
		if opt.redisConn == nil {
			return nil, xerrors.WithCode(ErrConnectorNil, "redis_connector_required")
		}
		var err error
		store, err = NewRedisStore(opt.redisConn)
		if err != nil {
			return nil, err
		}
	default:
		return nil, xerrors.Wrapf(ErrInvalidDriver, "driver %q", cfg.Driver)
	}

	if logger != nil {
		logger.Info("creating rate limiter", clog.String("driver", string(cfg.Driver)))
	}

	return newLimiter(store, logger, opt.meter), nil
}

// NewWithStore 使用自定义计数存储创建限流器
//
// 用于接入 CounterStore 接口的第三方存储实现。
func NewWithStore(store CounterStore, opts ...Option) (Limiter, error) {
	if store == nil {
		return nil, ErrStoreNil
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger != nil {
		logger = logger.With(clog.String("component", "throttle"))
	}

	return newLimiter(store, logger, opt.meter), nil
}
