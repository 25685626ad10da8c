package throttle

import (
	"context"
	"time"

	"github.com/ceyewan/aegis/connector"
	"github.com/ceyewan/aegis/xerrors"
	"github.com/redis/go-redis/v9"
)

// redisStore 基于 Redis 的计数存储（多实例共享配额）
type redisStore struct {
	conn connector.RedisConnector
}

// NewRedisStore 基于已有的 Redis 连接器创建计数存储
//
// 连接器的生命周期由调用方管理，本存储不负责 Connect/Close。
func NewRedisStore(conn connector.RedisConnector) (CounterStore, error) {
	if conn == nil {
		return nil, ErrConnectorNil
	}
	return &redisStore{conn: conn}, nil
}

func (rs *redisStore) Get(ctx context.Context, key string) (int64, error) {
	count, err := rs.conn.GetClient().Get(ctx, key).Int64()
	if err != nil {
		if xerrors.Is(err, redis.Nil) {
			return 0, nil
		}
		return 0, xerrors.Wrapf(err, "throttle: get %s", key)
	}
	return count, nil
}

func (rs *redisStore) Set(ctx context.Context, key string, value int64, ttl time.Duration) error {
	if err := rs.conn.GetClient().Set(ctx, key, value, ttl).Err(); err != nil {
		return xerrors.Wrapf(err, "throttle: set %s", key)
	}
	return nil
}

func (rs *redisStore) Incr(ctx context.Context, key string) (int64, error) {
	count, err := rs.conn.GetClient().Incr(ctx, key).Result()
	if err != nil {
		return 0, xerrors.Wrapf(err, "throttle: incr %s", key)
	}
	return count, nil
}

func (rs *redisStore) TTL(ctx context.Context, key string) (time.Duration, error) {
	ttl, err := rs.conn.GetClient().TTL(ctx, key).Result()
	if err != nil {
		return 0, xerrors.Wrapf(err, "throttle: ttl %s", key)
	}
	// go-redis 对 key 不存在/无过期分别返回 -2/-1，与 TTLAbsent/TTLNoExpiry 一致
	return ttl, nil
}

func (rs *redisStore) Del(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	deleted, err := rs.conn.GetClient().Del(ctx, keys...).Result()
	if err != nil {
		return 0, xerrors.Wrap(err, "throttle: del")
	}
	return deleted, nil
}
