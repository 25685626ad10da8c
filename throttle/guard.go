package throttle

import (
	"context"

	"github.com/ceyewan/aegis/clog"
)

// ========================================
// 多维度 Guard (Multi-Dimension Guard)
// ========================================

// defaultKeyPrefix Guard 默认的 key 前缀
const defaultKeyPrefix = "throttle:"

// GuardConfig 多维度限流配置
//
// 某个维度为 nil 表示该维度不限流。维度间相互独立，
// 任一维度超限即拦截本次请求。
type GuardConfig struct {
	// Prefix 限流 key 的统一前缀（默认："throttle:"）
	Prefix string `json:"prefix" yaml:"prefix" mapstructure:"prefix"`

	// IP 按客户端 IP 的窗口规则
	IP *WindowConfig `json:"ip" yaml:"ip" mapstructure:"ip"`

	// User 按用户 ID 的窗口规则
	User *WindowConfig `json:"user" yaml:"user" mapstructure:"user"`

	// Tenant 按租户 ID 的窗口规则
	Tenant *WindowConfig `json:"tenant" yaml:"tenant" mapstructure:"tenant"`
}

// Policy 单次调用的限流策略覆盖
//
// 某个维度非 nil 时整体替换 GuardConfig 中对应维度的规则，
// nil 维度沿用 GuardConfig。Bypass 为 true 时跳过所有维度。
type Policy struct {
	// Bypass 跳过所有限流检查（内部调用/白名单）
	Bypass bool

	// IP 覆盖 IP 维度的窗口规则
	IP *WindowConfig

	// User 覆盖用户维度的窗口规则
	User *WindowConfig

	// Tenant 覆盖租户维度的窗口规则
	Tenant *WindowConfig
}

// Guard 多维度限流评估器
//
// 按 IP → 用户 → 租户的固定顺序逐维检查，任一维度超限即
// 返回携带该维度信息的 LimitError。身份中缺失的维度自动跳过。
type Guard struct {
	limiter Limiter
	cfg     GuardConfig
	logger  clog.Logger
	metrics *limiterMetrics
}

// NewGuard 创建多维度限流评估器
//
// cfg 为 nil 时所有维度不限流（仅 Policy 可以临时启用）。
func NewGuard(limiter Limiter, cfg *GuardConfig, opts ...Option) (*Guard, error) {
	if limiter == nil {
		return nil, ErrLimiterNil
	}

	guardCfg := GuardConfig{}
	if cfg != nil {
		guardCfg = *cfg
	}
	if guardCfg.Prefix == "" {
		guardCfg.Prefix = defaultKeyPrefix
	}

	for _, dim := range []*WindowConfig{guardCfg.IP, guardCfg.User, guardCfg.Tenant} {
		if dim != nil {
			if err := dim.validate(); err != nil {
				return nil, err
			}
		}
	}

	opt := options{}
	for _, o := range opts {
		o(&opt)
	}

	logger := opt.logger
	if logger == nil {
		logger = clog.Discard()
	} else {
		logger = logger.With(clog.String("component", "throttle"))
	}

	return &Guard{
		limiter: limiter,
		cfg:     guardCfg,
		logger:  logger,
		metrics: newLimiterMetrics(opt.meter),
	}, nil
}

// dimensionRule 一次评估中某个维度的生效规则
type dimensionRule struct {
	dimension  Dimension
	identifier string
	window     *WindowConfig
}

// Key 构造某个维度 / 标识的限流 key，用于 Status / Reset
func (g *Guard) Key(d Dimension, identifier string) string {
	return g.cfg.Prefix + string(d) + ":" + identifier
}

// Evaluate 对一次请求执行多维度限流判定
//
// 按 IP → 用户 → 租户的顺序逐维调用 Limiter.Check，某一维度
// 超限时立即返回 LimitError，后续维度不再检查（也不计数）。
// policy 为 nil 时使用 Guard 的静态配置。存储错误原样返回，
// 放行还是拒绝由调用方决定。
func (g *Guard) Evaluate(ctx context.Context, id Identity, policy *Policy) error {
	if policy != nil && policy.Bypass {
		return nil
	}

	rules := g.resolveRules(id, policy)
	for _, rule := range rules {
		key := g.Key(rule.dimension, rule.identifier)
		result, err := g.limiter.Check(ctx, key, *rule.window)
		if err != nil {
			return err
		}
		if result.Blocked {
			g.metrics.recordBlocked(ctx, rule.dimension.String())
			g.logger.InfoContext(ctx, "request throttled",
				clog.String("dimension", rule.dimension.String()),
				clog.String("identifier", rule.identifier),
				clog.Int64("current", result.Current),
				clog.Int64("limit", result.Limit),
				clog.Int64("retry_after", result.RetryAfter))
			return newLimitError(rule.dimension, result)
		}
	}
	return nil
}

// Status 只读查询某个维度 / 标识的窗口状态
func (g *Guard) Status(ctx context.Context, d Dimension, identifier string) (Result, error) {
	window := g.windowFor(d)
	if window == nil {
		return Result{}, ErrDimensionDisabled
	}
	return g.limiter.Status(ctx, g.Key(d, identifier), *window)
}

// Reset 重置某个维度 / 标识的窗口（管理操作）
func (g *Guard) Reset(ctx context.Context, d Dimension, identifier string) error {
	return g.limiter.Reset(ctx, g.Key(d, identifier))
}

// windowFor 返回静态配置中某个维度的窗口规则
func (g *Guard) windowFor(d Dimension) *WindowConfig {
	switch d {
	case DimensionIP:
		return g.cfg.IP
	case DimensionUser:
		return g.cfg.User
	case DimensionTenant:
		return g.cfg.Tenant
	default:
		return nil
	}
}

// resolveRules 合并静态配置与策略覆盖，产出有序的生效规则
//
// 覆盖是整维度替换：policy 中非 nil 的维度完全取代静态配置，
// 不做字段级合并。身份中标识为空的维度跳过。
func (g *Guard) resolveRules(id Identity, policy *Policy) []dimensionRule {
	ipWindow, userWindow, tenantWindow := g.cfg.IP, g.cfg.User, g.cfg.Tenant
	if policy != nil {
		if policy.IP != nil {
			ipWindow = policy.IP
		}
		if policy.User != nil {
			userWindow = policy.User
		}
		if policy.Tenant != nil {
			tenantWindow = policy.Tenant
		}
	}

	rules := make([]dimensionRule, 0, 3)
	if ipWindow != nil && id.IP != "" {
		rules = append(rules, dimensionRule{DimensionIP, id.IP, ipWindow})
	}
	if userWindow != nil && id.UserID != "" {
		rules = append(rules, dimensionRule{DimensionUser, id.UserID, userWindow})
	}
	if tenantWindow != nil && id.TenantID != "" {
		rules = append(rules, dimensionRule{DimensionTenant, id.TenantID, tenantWindow})
	}
	return rules
}
