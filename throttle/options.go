package throttle

import (
	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/connector"
	"github.com/ceyewan/aegis/metrics"
)

// ========================================
// 可选项定义 (Options)
// ========================================

// options 内部可选项集合
type options struct {
	logger    clog.Logger
	meter     metrics.Meter
	redisConn connector.RedisConnector
}

// Option 组件可选项
type Option func(*options)

// WithLogger 注入日志记录器
// 组件会在此基础上派生出带 component 字段的子 logger
func WithLogger(logger clog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMeter 注入指标收集器，上报限流判定的计数指标
func WithMeter(meter metrics.Meter) Option {
	return func(o *options) {
		o.meter = meter
	}
}

// WithRedisConnector 注入 Redis 连接器（DriverRedis 时必填）
func WithRedisConnector(conn connector.RedisConnector) Option {
	return func(o *options) {
		o.redisConn = conn
	}
}
