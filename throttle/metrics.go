package throttle

import (
	"context"

	"github.com/ceyewan/aegis/metrics"
)

// 指标名称
const (
	metricChecksTotal  = "throttle_checks_total"
	metricBlockedTotal = "throttle_blocked_total"
)

// 指标标签值
const (
	outcomeAllowed = "allowed"
	outcomeBlocked = "blocked"
	outcomeError   = "error"
)

// limiterMetrics 限流器的指标集合，初始化失败时各指标为 nil（静默降级）
type limiterMetrics struct {
	checks  metrics.Counter
	blocked metrics.Counter
}

// newLimiterMetrics 创建限流指标，meter 为 nil 时返回空集合
func newLimiterMetrics(meter metrics.Meter) *limiterMetrics {
	m := &limiterMetrics{}
	if meter == nil {
		return m
	}
	m.checks, _ = meter.Counter(metricChecksTotal, "限流判定总数")
	m.blocked, _ = meter.Counter(metricBlockedTotal, "被限流拦截的请求总数")
	return m
}

// recordCheck 上报一次限流判定
func (m *limiterMetrics) recordCheck(ctx context.Context, outcome string) {
	if m.checks != nil {
		m.checks.Inc(ctx, metrics.L(metrics.LabelOutcome, outcome))
	}
}

// recordBlocked 上报一次限流拦截
func (m *limiterMetrics) recordBlocked(ctx context.Context, dimension string) {
	if m.blocked != nil {
		m.blocked.Inc(ctx, metrics.L("dimension", dimension))
	}
}
