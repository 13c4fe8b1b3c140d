package xmutex

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/henry701/MongoDistributedLocks/internal/lockopt"

	clientv3 "go.etcd.io/etcd/client/v3"
)

// 确保 *EtcdStore 实现 Store 接口
var _ Store = (*EtcdStore)(nil)

// minEtcdLeaseTTL Lease 的最小 TTL（秒）。etcd 不接受小于 1 秒的租约。
const minEtcdLeaseTTL = 1

// etcdClientOps 定义 etcd 客户端操作接口。
// *clientv3.Client 直接满足此接口（KV + Lease 的子集）；
// 收窄到实际用到的方法，便于测试注入 mock。
type etcdClientOps interface {
	Grant(ctx context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error)
	Revoke(ctx context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error)
	Txn(ctx context.Context) clientv3.Txn
	Get(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.GetResponse, error)
	Delete(ctx context.Context, key string, opts ...clientv3.OpOption) (*clientv3.DeleteResponse, error)
}

// EtcdStore etcd 存储后端。
//
// 条件创建通过单个事务表达：If(CreateRevision(key) == 0) Then(Put with
// lease)。事务在 etcd 侧原子执行，Succeeded 即先前状态。过期回收由
// Lease 到期完成；事务输掉时撤销刚授予的租约，避免租约泄漏。
//
// Lease TTL 以秒为粒度（向上取整，至少 1 秒），比 Mongo/Redis 粗。
type EtcdStore struct {
	client  *clientv3.Client
	ops     etcdClientOps
	now     func() time.Time
	counter lockopt.Counter
}

// EtcdOption 定义 etcd 后端的配置选项。
type EtcdOption func(*EtcdStore)

// WithEtcdClock 注入时钟函数，用于测试中控制 TTL 计算。
// nil 被忽略。默认使用 time.Now。
func WithEtcdClock(now func() time.Time) EtcdOption {
	return func(s *EtcdStore) {
		if now != nil {
			s.now = now
		}
	}
}

// NewEtcdStore 创建 etcd 存储后端。
// client 必须是已初始化的客户端，生命周期由调用者管理。
func NewEtcdStore(client *clientv3.Client, opts ...EtcdOption) (*EtcdStore, error) {
	if client == nil {
		return nil, ErrNilClient
	}

	s := &EtcdStore{
		client: client,
		ops:    client,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// newEtcdStoreWithOps 内部构造，允许注入 mock 客户端。
func newEtcdStoreWithOps(ops etcdClientOps, opts ...EtcdOption) *EtcdStore {
	s := &EtcdStore{
		ops: ops,
		now: time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire 原子地执行"不存在则创建"。
func (s *EtcdStore) Acquire(ctx context.Context, id string, expireAt time.Time) (bool, error) {
	if ctx == nil {
		return false, ErrNilContext
	}

	ttl := int64(math.Ceil(expireAt.Sub(s.now()).Seconds()))
	if ttl < minEtcdLeaseTTL {
		ttl = minEtcdLeaseTTL
	}

	lease, err := s.ops.Grant(ctx, ttl)
	if err != nil {
		s.counter.IncFailure()
		return false, fmt.Errorf("xmutex etcd grant lease: %w", err)
	}

	resp, err := s.ops.Txn(ctx).
		If(clientv3.Compare(clientv3.CreateRevision(id), "=", 0)).
		Then(clientv3.OpPut(id, expireAt.UTC().Format(time.RFC3339Nano), clientv3.WithLease(lease.ID))).
		Commit()
	if err != nil {
		s.revokeLease(lease.ID)
		s.counter.IncFailure()
		return false, fmt.Errorf("xmutex etcd acquire: %w", err)
	}
	if !resp.Succeeded {
		// 记录已存在；撤销本次授予的租约，避免空租约堆积
		s.revokeLease(lease.ID)
		s.counter.IncContention()
		return false, nil
	}

	s.counter.IncAcquire()
	return true, nil
}

// revokeLease 尽力撤销租约。
// 撤销失败无碍正确性——租约会自行到期，只是晚一点被回收。
func (s *EtcdStore) revokeLease(id clientv3.LeaseID) {
	ctx, cancel := context.WithTimeout(context.Background(), releaseTimeout)
	defer cancel()
	_, _ = s.ops.Revoke(ctx, id)
}

// Release 删除记录。幂等：删除不存在的 key 删除 0 条且无错误。
// 记录关联的租约不主动撤销，到期自行消亡。
func (s *EtcdStore) Release(ctx context.Context, id string) error {
	if ctx == nil {
		return ErrNilContext
	}

	if _, err := s.ops.Delete(ctx, id); err != nil {
		s.counter.IncFailure()
		return fmt.Errorf("xmutex etcd release: %w", err)
	}

	s.counter.IncRelease()
	return nil
}

// Health 执行健康检查。
// 以带限制的 Get 验证连接可用。
func (s *EtcdStore) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	s.counter.IncPing()

	ctx, cancel := lockopt.HealthContext(ctx, lockopt.DefaultHealthTimeout)
	defer cancel()

	if _, err := s.ops.Get(ctx, "health-check-key", clientv3.WithLimit(1)); err != nil {
		s.counter.IncPingError()
		return fmt.Errorf("xmutex etcd health: %w", err)
	}
	return nil
}

// Stats 返回操作统计。
func (s *EtcdStore) Stats() lockopt.Snapshot {
	return s.counter.Snapshot()
}

// Client 返回底层 etcd 客户端。
// 经 mock 注入构造时为 nil。
func (s *EtcdStore) Client() *clientv3.Client {
	return s.client
}
