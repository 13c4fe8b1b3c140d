package xmutex

import (
	"context"
	"fmt"
	"time"

	"github.com/henry701/MongoDistributedLocks/internal/lockopt"

	"github.com/redis/go-redis/v9"
)

// 确保 *RedisStore 实现 Store 接口
var _ Store = (*RedisStore)(nil)

// minRedisTTL SET PX 的最小过期时间。
// 零持有时长的探测场景会产生非正的 TTL，钳到 1ms：
// 探测随后会显式释放，钳位只约束崩溃泄漏窗口的长度。
const minRedisTTL = time.Millisecond

// RedisStore Redis 存储后端。
//
// 条件创建通过 SET NX PX 表达：应答即先前状态，不存在竞争窗口，
// 也没有需要翻译的唯一约束错误。过期回收由 Redis 自身的 key TTL
// 完成。记录值存放 expireAt（RFC3339Nano），仅供人工排查。
//
// 单节点模式。不实现 Redlock——多节点法定数量写入是另一套协议，
// 超出本存储契约的范围。
type RedisStore struct {
	client  redis.UniversalClient
	now     func() time.Time
	counter lockopt.Counter
}

// RedisOption 定义 Redis 后端的配置选项。
type RedisOption func(*RedisStore)

// WithRedisClock 注入时钟函数，用于测试中控制 TTL 计算。
// nil 被忽略。默认使用 time.Now。
func WithRedisClock(now func() time.Time) RedisOption {
	return func(s *RedisStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewRedisStore 创建 Redis 存储后端。
// client 必须是已初始化的客户端，生命周期由调用者管理。
func NewRedisStore(client redis.UniversalClient, opts ...RedisOption) (*RedisStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	s := &RedisStore{
		client: client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Acquire 原子地执行"不存在则创建"。
// 绝对过期时间在此换算为相对 TTL 交给 Redis。
func (s *RedisStore) Acquire(ctx context.Context, id string, expireAt time.Time) (bool, error) {
	if ctx == nil {
		return false, ErrNilContext
	}

	ttl := expireAt.Sub(s.now())
	if ttl < minRedisTTL {
		ttl = minRedisTTL
	}

	created, err := s.client.SetNX(ctx, id, expireAt.UTC().Format(time.RFC3339Nano), ttl).Result()
	if err != nil {
		s.counter.IncFailure()
		return false, fmt.Errorf("xmutex redis acquire: %w", err)
	}
	if !created {
		s.counter.IncContention()
		return false, nil
	}

	s.counter.IncAcquire()
	return true, nil
}

// Release 删除记录。幂等：DEL 不存在的 key 删除 0 条且无错误。
func (s *RedisStore) Release(ctx context.Context, id string) error {
	if ctx == nil {
		return ErrNilContext
	}

	if err := s.client.Del(ctx, id).Err(); err != nil {
		s.counter.IncFailure()
		return fmt.Errorf("xmutex redis release: %w", err)
	}

	s.counter.IncRelease()
	return nil
}

// Health 执行健康检查。
func (s *RedisStore) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	s.counter.IncPing()

	ctx, cancel := lockopt.HealthContext(ctx, lockopt.DefaultHealthTimeout)
	defer cancel()

	if err := s.client.Ping(ctx).Err(); err != nil {
		s.counter.IncPingError()
		return fmt.Errorf("xmutex redis health: %w", err)
	}
	return nil
}

// Stats 返回操作统计。
func (s *RedisStore) Stats() lockopt.Snapshot {
	return s.counter.Snapshot()
}
