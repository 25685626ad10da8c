package throttle

import (
	"context"
	"sync"
	"time"
)

// memoryEntry 内存存储的单个计数项
type memoryEntry struct {
	value     int64
	expiresAt time.Time // 零值表示无过期时间
}

// expired 判断计数项在 now 时刻是否已过期
func (e memoryEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !e.expiresAt.After(now)
}

// memoryStore 内存计数存储（单机/测试用）
type memoryStore struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

// NewMemoryStore 创建内存计数存储
//
// 过期的 key 在下一次被访问时惰性清理。进程内状态，
// 多实例部署时各实例有独立配额，需要全局配额时使用 Redis 存储。
func NewMemoryStore() CounterStore {
	return &memoryStore{
		entries: make(map[string]memoryEntry),
	}
}

func (ms *memoryStore) Get(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := time.Now()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.entries[key]
	if !ok {
		return 0, nil
	}
	if entry.expired(now) {
		delete(ms.entries, key)
		return 0, nil
	}
	return entry.value, nil
}

func (ms *memoryStore) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = time.Now().Add(ttl)
	}

	ms.mu.Lock()
	ms.entries[key] = entry
	ms.mu.Unlock()

	return nil
}

func (ms *memoryStore) Incr(ctx context.Context, key string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := time.Now()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.entries[key]
	if !ok || entry.expired(now) {
		// 与 Redis INCR 一致：不存在时从 0 开始创建，无过期时间
		entry = memoryEntry{}
	}
	entry.value++
	ms.entries[key] = entry

	return entry.value, nil
}

func (ms *memoryStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := time.Now()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	entry, ok := ms.entries[key]
	if !ok || entry.expired(now) {
		if ok {
			delete(ms.entries, key)
		}
		return TTLAbsent, nil
	}
	if entry.expiresAt.IsZero() {
		return TTLNoExpiry, nil
	}
	return entry.expiresAt.Sub(now), nil
}

func (ms *memoryStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	now := time.Now()

	ms.mu.Lock()
	defer ms.mu.Unlock()

	var deleted int64
	for _, key := range keys {
		entry, ok := ms.entries[key]
		if !ok {
			continue
		}
		if !entry.expired(now) {
			deleted++
		}
		delete(ms.entries, key)
	}
	return deleted, nil
}
