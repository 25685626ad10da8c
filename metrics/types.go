// Package metrics 为 Aegis 组件库提供统一的指标收集能力。
// 基于 OpenTelemetry 标准构建，提供简洁的 Counter、Gauge、Histogram 指标接口。
//
// 架构说明：
//   - 完全扁平化设计，无 types/ 子包
//   - 基于 OpenTelemetry 标准，确保与云原生生态兼容
//   - 内置 Prometheus HTTP 服务器，支持指标自动暴露
//
// 快速开始：
//
//	cfg := &metrics.Config{
//	    Enabled:     true,
//	    ServiceName: "admin-api",
//	    Version:     "v1.0.0",
//	    Port:        9090,
//	    Path:        "/metrics",
//	}
//
//	meter, err := metrics.New(cfg)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer meter.Shutdown(ctx)
//
//	counter, _ := meter.Counter("throttle_blocked_total", "被限流的请求总数")
//	counter.Inc(ctx, metrics.L("dimension", "ip"))
package metrics

import "context"

// Meter 指标工厂接口
//
// 通过 Meter 创建具体的指标实例。组件应在初始化阶段创建指标，
// 并在热路径上复用。
type Meter interface {
	// Counter 创建计数器，用于只增不减的累计值
	Counter(name string, desc string) (Counter, error)

	// Gauge 创建仪表盘，用于可增可减的瞬时值
	Gauge(name string, desc string) (Gauge, error)

	// Histogram 创建直方图，用于观测值分布（如耗时）
	Histogram(name string, desc string) (Histogram, error)

	// Shutdown 关闭 Meter，刷新所有指标
	Shutdown(ctx context.Context) error
}

// Counter 计数器接口
// 用于记录只能增加的累计值，例如请求数、错误次数等
type Counter interface {
	// Inc 将计数器增加 1
	Inc(ctx context.Context, labels ...Label)

	// Add 将计数器增加给定的值
	Add(ctx context.Context, val float64, labels ...Label)
}

// Gauge 仪表盘接口
// 用于记录可以任意增减的瞬时值，例如当前打开的熔断器数量
type Gauge interface {
	Set(ctx context.Context, val float64, labels ...Label)
	Inc(ctx context.Context, labels ...Label)
	Dec(ctx context.Context, labels ...Label)
}

// Histogram 直方图接口
// 用于记录观测值的分布，例如请求耗时
type Histogram interface {
	Record(ctx context.Context, val float64, labels ...Label)
}
