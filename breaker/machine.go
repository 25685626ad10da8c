package breaker

import (
	"sync"
	"time"

	"github.com/ceyewan/aegis/clog"
)

// machine 单个熔断器的状态机
//
// 状态迁移：
//
//	closed --连续失败达到阈值--> open
//	open --冷却期结束--> half_open（放行单个探测）
//	half_open --探测成功--> closed
//	half_open --探测失败--> open（重新计冷却期）
//	任意状态 --Isolate--> isolated
//	isolated --Deisolate--> closed
//
// 隔离状态只能手动解除，任何调用结果（包括隔离前已在途的
// 调用完成）都不会改变隔离状态。
type machine struct {
	name    string
	cfg     Config
	logger  clog.Logger
	metrics *registryMetrics

	mu                  sync.Mutex
	state               State
	consecutiveFailures int
	successes           int64
	failures            int64
	openedAt            time.Time
	lastSuccess         time.Time
	lastFailure         time.Time
	probing             bool
}

func newMachine(name string, cfg Config, logger clog.Logger, metrics *registryMetrics) *machine {
	return &machine{
		name:    name,
		cfg:     cfg,
		logger:  logger,
		metrics: metrics,
		state:   StateClosed,
	}
}

// transition 执行状态迁移，调用方必须持有 m.mu
func (m *machine) transition(to State) {
	from := m.state
	if from == to {
		return
	}
	m.state = to
	m.logger.Info("circuit breaker state changed",
		clog.String("name", m.name),
		clog.String("from", from.String()),
		clog.String("to", to.String()))
	m.metrics.recordStateChange(m.name, from, to)
}

// acquire 判定一次调用能否进入执行
//
// 返回 probe=true 表示本次调用是半开状态的探测请求，
// 其结果决定熔断器闭合还是重新打开。
func (m *machine) acquire(now time.Time) (probe bool, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.state {
	case StateClosed:
		return false, nil

	case StateIsolated:
		return false, &IsolatedError{Name: m.name}

	case StateOpen:
		elapsed := now.Sub(m.openedAt)
		if elapsed < m.cfg.Cooldown {
			return false, &OpenError{Name: m.name, RetryAfter: m.cfg.Cooldown - elapsed}
		}
		// 冷却期结束，本次调用作为探测请求
		m.transition(StateHalfOpen)
		m.probing = true
		return true, nil

	case StateHalfOpen:
		if m.probing {
			// 探测名额已被占用，其余请求继续快速失败
			return false, &OpenError{Name: m.name}
		}
		m.probing = true
		return true, nil

	default:
		return false, nil
	}
}

// onSuccess 记录一次成功完成的调用
func (m *machine) onSuccess(probe bool, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	// 隔离状态不受任何调用结果影响
	if m.state == StateIsolated {
		return
	}

	m.successes++
	m.lastSuccess = now

	if probe {
		m.probing = false
		m.consecutiveFailures = 0
		m.transition(StateClosed)
		return
	}

	if m.state == StateClosed {
		m.consecutiveFailures = 0
	}
}

// onFailure 记录一次失败完成的调用
func (m *machine) onFailure(probe bool, now time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateIsolated {
		return
	}

	m.failures++
	m.lastFailure = now

	if probe {
		// 探测失败，重新打开并重计冷却期
		m.probing = false
		m.openedAt = now
		m.transition(StateOpen)
		return
	}

	if m.state == StateClosed {
		m.consecutiveFailures++
		if m.consecutiveFailures >= m.cfg.Threshold {
			m.openedAt = now
			m.transition(StateOpen)
		}
	}
	// 打开/半开期间完成的在途调用不改变状态
}

// isolate 手动隔离
func (m *machine) isolate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.probing = false
	m.transition(StateIsolated)
}

// deisolate 解除隔离，未隔离时为空操作
func (m *machine) deisolate() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateIsolated {
		return
	}
	m.consecutiveFailures = 0
	m.transition(StateClosed)
}

// currentState 返回当前状态
func (m *machine) currentState() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// snapshot 返回观测快照
func (m *machine) snapshot() Info {
	m.mu.Lock()
	defer m.mu.Unlock()

	return Info{
		Name:                m.name,
		State:               m.state,
		Threshold:           m.cfg.Threshold,
		Cooldown:            m.cfg.Cooldown,
		ConsecutiveFailures: m.consecutiveFailures,
		Successes:           m.successes,
		Failures:            m.failures,
		OpenedAt:            m.openedAt,
		LastSuccess:         m.lastSuccess,
		LastFailure:         m.lastFailure,
	}
}
