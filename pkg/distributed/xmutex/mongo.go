package xmutex

import (
	"context"
	"fmt"
	"time"

	"github.com/henry701/MongoDistributedLocks/internal/lockopt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// 确保 *MongoStore 实现 Store 接口
var _ Store = (*MongoStore)(nil)

// ttlIndexName expireAt 字段上 TTL 索引的名称。
const ttlIndexName = "expireAt_ttl"

// lockRecord 存储中的锁记录。
// _id 即锁 key，唯一性由 MongoDB 的主键约束保证；
// expireAt 供 TTL 索引做自主过期回收，创建后协议不再修改。
type lockRecord struct {
	ID       string    `bson:"_id"`
	ExpireAt time.Time `bson:"expireAt"`
}

// MongoStore MongoDB 存储后端。
//
// 条件创建通过 InsertOne 表达：_id 主键天然唯一，并发插入输掉的
// 一方收到唯一键冲突（E11000），被折叠为竞争信号。竞争谓词刻意
// 收窄为 mongo.IsDuplicateKeyError——其余写入错误原样向上传播，
// 不会被误吞为"未获取到"。
//
// 过期回收依赖 expireAt 上的 TTL 索引（EnsureIndexes 一次性创建）。
// MongoDB 的 TTL monitor 约每 60 秒扫描一次，过期与实际删除之间
// 存在一个小的延迟窗口，这是协议预期内的行为。
type MongoStore struct {
	coll    *mongo.Collection
	ops     lockCollection
	options *MongoOptions
	counter lockopt.Counter
}

// MongoOptions MongoDB 后端配置。
type MongoOptions struct {
	// HealthTimeout 健康检查超时时间。
	// 默认为 5 秒。
	HealthTimeout time.Duration

	// WriteTimeout 写操作兜底超时时间。
	// 当调用方传入的 context 没有 deadline 时生效，防止无 deadline 的
	// context 导致获取/释放长时间悬挂。默认为 10 秒。
	// 设置为 0 可禁用兜底（完全依赖调用方 context）。
	WriteTimeout time.Duration
}

// MongoOption 定义 MongoDB 后端的配置选项。
type MongoOption func(*MongoOptions)

// DefaultMongoWriteTimeout 写操作默认兜底超时时间。
const DefaultMongoWriteTimeout = 10 * time.Second

// defaultMongoOptions 返回默认的 MongoDB 后端配置。
func defaultMongoOptions() *MongoOptions {
	return &MongoOptions{
		HealthTimeout: lockopt.DefaultHealthTimeout,
		WriteTimeout:  DefaultMongoWriteTimeout,
	}
}

// WithMongoHealthTimeout 设置健康检查超时时间。
// 非正值被忽略（保持默认值）。
func WithMongoHealthTimeout(d time.Duration) MongoOption {
	return func(o *MongoOptions) {
		if d > 0 {
			o.HealthTimeout = d
		}
	}
}

// WithMongoWriteTimeout 设置写操作兜底超时时间。
// 传入 0 可显式禁用兜底。负值被忽略（保持默认值）。
func WithMongoWriteTimeout(d time.Duration) MongoOption {
	return func(o *MongoOptions) {
		if d >= 0 {
			o.WriteTimeout = d
		}
	}
}

// NewMongoStore 创建 MongoDB 存储后端。
// coll 必须是已初始化的集合；集合与客户端的生命周期由调用者管理。
//
// 首次部署需调用一次 EnsureIndexes 创建 TTL 索引，否则过期记录
// 不会被自主回收（锁仍然正确，只是崩溃的持有者需要人工清理）。
func NewMongoStore(coll *mongo.Collection, opts ...MongoOption) (*MongoStore, error) {
	if coll == nil {
		return nil, ErrNilCollection
	}

	options := defaultMongoOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &MongoStore{
		coll:    coll,
		ops:     &mongoCollectionAdapter{coll: coll},
		options: options,
	}, nil
}

// newMongoStoreWithOps 内部构造，允许注入 mock 集合。
func newMongoStoreWithOps(ops lockCollection, opts ...MongoOption) *MongoStore {
	options := defaultMongoOptions()
	for _, opt := range opts {
		opt(options)
	}
	return &MongoStore{
		ops:     ops,
		options: options,
	}
}

// Acquire 原子地执行"不存在则创建"。
//
// 返回记录的先前状态（而非写后状态）正是一轮往返内区分
// "我刚创建了它"与"别人已持有"的关键，避免引入先读后写的竞争窗口。
func (s *MongoStore) Acquire(ctx context.Context, id string, expireAt time.Time) (bool, error) {
	if ctx == nil {
		return false, ErrNilContext
	}

	ctx, cancel := lockopt.ApplyTimeout(ctx, s.options.WriteTimeout)
	defer cancel()

	doc := lockRecord{
		ID:       id,
		ExpireAt: expireAt.UTC(),
	}
	_, err := s.ops.InsertOne(ctx, doc)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			// 竞争窗口：两个客户端同时插入，输掉的一方收到 E11000。
			// 等价于"记录已存在"，不是错误。
			s.counter.IncContention()
			return false, nil
		}
		s.counter.IncFailure()
		return false, fmt.Errorf("xmutex mongo acquire %s.%s: %w", s.ops.Database(), s.ops.Name(), err)
	}

	s.counter.IncAcquire()
	return true, nil
}

// Release 删除记录。幂等：记录不存在时 DeleteOne 删除 0 条且无错误。
func (s *MongoStore) Release(ctx context.Context, id string) error {
	if ctx == nil {
		return ErrNilContext
	}

	ctx, cancel := lockopt.ApplyTimeout(ctx, s.options.WriteTimeout)
	defer cancel()

	if _, err := s.ops.DeleteOne(ctx, bson.D{{Key: "_id", Value: id}}); err != nil {
		s.counter.IncFailure()
		return fmt.Errorf("xmutex mongo release %s.%s: %w", s.ops.Database(), s.ops.Name(), err)
	}

	s.counter.IncRelease()
	return nil
}

// EnsureIndexes 创建 expireAt 字段上的 TTL 索引（幂等）。
//
// 这是部署引导步骤，每个集合执行一次即可。ExpireAfterSeconds 为 0：
// 记录在 expireAt 时刻即到期，删除时机由 MongoDB 的 TTL monitor 决定
// （约 60 秒一轮，尽力而为）。
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	ctx, cancel := lockopt.ApplyTimeout(ctx, s.options.WriteTimeout)
	defer cancel()

	model := mongo.IndexModel{
		Keys: bson.D{{Key: "expireAt", Value: 1}},
		Options: options.Index().
			SetName(ttlIndexName).
			SetExpireAfterSeconds(0),
	}
	if _, err := s.ops.CreateIndex(ctx, model); err != nil {
		return fmt.Errorf("xmutex mongo ensure indexes %s.%s: %w", s.ops.Database(), s.ops.Name(), err)
	}
	return nil
}

// Health 执行健康检查。
// 通过 Ping 命令检测连接状态。
func (s *MongoStore) Health(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}

	s.counter.IncPing()

	ctx, cancel := lockopt.HealthContext(ctx, s.options.HealthTimeout)
	defer cancel()

	if err := s.ops.Ping(ctx); err != nil {
		s.counter.IncPingError()
		return fmt.Errorf("xmutex mongo health: %w", err)
	}
	return nil
}

// Stats 返回操作统计。
func (s *MongoStore) Stats() lockopt.Snapshot {
	return s.counter.Snapshot()
}

// Collection 返回底层集合。
// 用于需要直接访问 MongoDB 的高级场景；经 mock 注入构造时为 nil。
func (s *MongoStore) Collection() *mongo.Collection {
	return s.coll
}
