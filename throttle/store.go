package throttle

import (
	"context"
	"time"
)

// ========================================
// 存储接口 (Store Interface)
// ========================================

// CounterStore 计数存储接口
//
// 定义了限流器与计数后端的交互方式，语义与 Redis 的
// GET/SET EX/INCR/TTL/DEL 对齐。默认提供 Redis / Memory 实现。
//
// 原子性约定：Incr 必须是原子操作（计数完整性依赖于它）；
// Get 与 Set 之间没有原子性要求，见 Limiter.Check 的窗口建立语义。
type CounterStore interface {
	// Get 读取 key 的当前计数，key 不存在时返回 0
	Get(ctx context.Context, key string) (int64, error)

	// Set 写入计数并设置过期时间（建立窗口）
	Set(ctx context.Context, key string, value int64, ttl time.Duration) error

	// Incr 原子加一并返回新值，不改变已有的过期时间
	// key 不存在时创建（无过期时间），与 Redis INCR 语义一致
	Incr(ctx context.Context, key string) (int64, error)

	// TTL 返回 key 的剩余存活时间
	// key 不存在时返回 TTLAbsent，存在但无过期时间时返回 TTLNoExpiry
	TTL(ctx context.Context, key string) (time.Duration, error)

	// Del 删除一个或多个 key，返回实际删除的数量
	Del(ctx context.Context, keys ...string) (int64, error)
}

// TTL 特殊返回值，与 Redis TTL 命令的 -1 / -2 对齐
const (
	// TTLNoExpiry key 存在但没有设置过期时间
	TTLNoExpiry = time.Duration(-1)
	// TTLAbsent key 不存在
	TTLAbsent = time.Duration(-2)
)
