package breaker

import (
	"context"

	"github.com/ceyewan/aegis/metrics"
)

// 指标名称
const (
	metricCallsTotal        = "breaker_calls_total"
	metricRejectsTotal      = "breaker_rejects_total"
	metricStateChangesTotal = "breaker_state_changes_total"
)

// 指标标签
const (
	labelName      = "name"
	labelFromState = "from_state"
	labelToState   = "to_state"
)

// registryMetrics 注册表级别的指标集合，所有熔断器共享
type registryMetrics struct {
	calls        metrics.Counter
	rejects      metrics.Counter
	stateChanges metrics.Counter
}

// newRegistryMetrics 创建熔断指标，meter 为 nil 时返回空集合
func newRegistryMetrics(meter metrics.Meter) *registryMetrics {
	m := &registryMetrics{}
	if meter == nil {
		return m
	}
	m.calls, _ = meter.Counter(metricCallsTotal, "经过熔断器的调用总数")
	m.rejects, _ = meter.Counter(metricRejectsTotal, "被熔断器快速失败的调用总数")
	m.stateChanges, _ = meter.Counter(metricStateChangesTotal, "熔断器状态迁移次数")
	return m
}

// recordCall 上报一次实际执行的调用
func (m *registryMetrics) recordCall(ctx context.Context, name string, success bool) {
	if m.calls == nil {
		return
	}
	outcome := metrics.OutcomeError
	if success {
		outcome = metrics.OutcomeSuccess
	}
	m.calls.Inc(ctx, metrics.L(labelName, name), metrics.L(metrics.LabelOutcome, outcome))
}

// recordReject 上报一次快速失败
func (m *registryMetrics) recordReject(ctx context.Context, name string) {
	if m.rejects == nil {
		return
	}
	m.rejects.Inc(ctx, metrics.L(labelName, name))
}

// recordStateChange 上报一次状态迁移
// 状态机在持锁路径上调用，使用背景上下文避免携带调用方的取消信号
func (m *registryMetrics) recordStateChange(name string, from, to State) {
	if m.stateChanges == nil {
		return
	}
	m.stateChanges.Inc(context.Background(),
		metrics.L(labelName, name),
		metrics.L(labelFromState, from.String()),
		metrics.L(labelToState, to.String()))
}
