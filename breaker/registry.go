package breaker

import (
	"context"
	"sync"
	"time"

	"github.com/ceyewan/aegis/clog"
	"github.com/ceyewan/aegis/metrics"
)

// registry Registry 接口的默认实现
type registry struct {
	logger  clog.Logger
	metrics *registryMetrics

	mu       sync.Mutex
	machines map[string]*machine
}

func newRegistry(logger clog.Logger, meter metrics.Meter) *registry {
	return &registry{
		logger:   logger,
		metrics:  newRegistryMetrics(meter),
		machines: make(map[string]*machine),
	}
}

// Create 按名称创建熔断器，名称已存在时幂等返回
func (r *registry) Create(name string, cfg *Config) error {
	if name == "" {
		return ErrNameEmpty
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.machines[name]; ok {
		r.logger.Warn("circuit breaker already exists, keeping existing config",
			clog.String("name", name))
		return nil
	}

	resolved := cfg.withDefaults()
	r.machines[name] = newMachine(name, resolved, r.logger, r.metrics)
	r.logger.Info("circuit breaker created",
		clog.String("name", name),
		clog.Int("threshold", resolved.Threshold),
		clog.Duration("cooldown", resolved.Cooldown))
	return nil
}

// getOrCreate 返回名为 name 的熔断器，不存在时按 cfg 创建
func (r *registry) getOrCreate(name string, cfg *Config) *machine {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m, ok := r.machines[name]; ok {
		return m
	}

	resolved := cfg.withDefaults()
	m := newMachine(name, resolved, r.logger, r.metrics)
	r.machines[name] = m
	return m
}

// get 返回名为 name 的熔断器，不存在时返回 ErrNotFound
func (r *registry) get(name string) (*machine, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	m, ok := r.machines[name]
	if !ok {
		return nil, ErrNotFound
	}
	return m, nil
}

// Execute 在熔断器保护下执行 fn
//
// 熔断中（打开/隔离）时不调用 fn 直接返回快速失败错误，
// fn 的任何非 nil 错误都计为一次失败。
func (r *registry) Execute(ctx context.Context, name string, fn Operation) (any, error) {
	if name == "" {
		return nil, ErrNameEmpty
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m := r.getOrCreate(name, nil)

	probe, err := m.acquire(time.Now())
	if err != nil {
		r.metrics.recordReject(ctx, name)
		return nil, err
	}

	result, err := fn()
	if err != nil {
		m.onFailure(probe, time.Now())
		r.metrics.recordCall(ctx, name, false)
		return nil, err
	}

	m.onSuccess(probe, time.Now())
	r.metrics.recordCall(ctx, name, true)
	return result, nil
}

// GetOrCreate 返回熔断器的观测快照，不存在时按 cfg 创建
func (r *registry) GetOrCreate(name string, cfg *Config) (Info, error) {
	if name == "" {
		return Info{}, ErrNameEmpty
	}
	return r.getOrCreate(name, cfg).snapshot(), nil
}

// Isolate 手动隔离熔断器，不存在时按默认配置创建后隔离
func (r *registry) Isolate(name string) error {
	if name == "" {
		return ErrNameEmpty
	}

	m := r.getOrCreate(name, nil)
	m.isolate()
	r.logger.Warn("circuit breaker isolated", clog.String("name", name))
	return nil
}

// Deisolate 解除隔离
func (r *registry) Deisolate(name string) error {
	m, err := r.get(name)
	if err != nil {
		return err
	}
	m.deisolate()
	return nil
}

// State 返回熔断器的当前状态
func (r *registry) State(name string) (State, error) {
	m, err := r.get(name)
	if err != nil {
		return StateClosed, err
	}
	return m.currentState(), nil
}

// Info 返回熔断器的观测快照
func (r *registry) Info(name string) (Info, error) {
	m, err := r.get(name)
	if err != nil {
		return Info{}, err
	}
	return m.snapshot(), nil
}

// Names 返回所有已注册熔断器的名称
func (r *registry) Names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	names := make([]string, 0, len(r.machines))
	for name := range r.machines {
		names = append(names, name)
	}
	return names
}

// Remove 删除熔断器，丢弃其全部状态
func (r *registry) Remove(name string) error {
	if name == "" {
		return ErrNameEmpty
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.machines[name]; !ok {
		return ErrNotFound
	}
	delete(r.machines, name)
	r.logger.Info("circuit breaker removed", clog.String("name", name))
	return nil
}

// Clear 删除所有熔断器
func (r *registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.machines = make(map[string]*machine)
}
