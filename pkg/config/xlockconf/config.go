package xlockconf

import (
	"fmt"
	"time"

	"github.com/henry701/MongoDistributedLocks/pkg/distributed/xmutex"
)

// Backend 定义存储后端类型。
type Backend string

// 支持的存储后端。
const (
	// BackendMemory 进程内存储，仅用于测试与本地开发。
	BackendMemory Backend = "memory"

	// BackendMongo MongoDB 存储（InsertOne + TTL 索引）。
	BackendMongo Backend = "mongo"

	// BackendRedis Redis 存储（SET NX PX）。
	BackendRedis Backend = "redis"

	// BackendEtcd etcd 存储（事务 + Lease）。
	BackendEtcd Backend = "etcd"
)

// Config 分布式锁配置。
// 零值字段在加载时回填为锁提供者的默认值。
type Config struct {
	// KeyPrefix 锁 key 前缀。
	KeyPrefix string `koanf:"key_prefix"`

	// Expiry 锁的持有时长（无续期机制，应覆盖临界区最长执行时间）。
	Expiry time.Duration `koanf:"expiry"`

	// RetryDelay 获取失败后的重试延迟。
	RetryDelay time.Duration `koanf:"retry_delay"`

	// MaxAttempts 最大尝试次数（包含首次尝试），0 表示无上限。
	MaxAttempts int `koanf:"max_attempts"`

	// Backend 存储后端类型。
	Backend Backend `koanf:"backend"`

	// Mongo MongoDB 后端配置，Backend 为 mongo 时必填。
	Mongo MongoConfig `koanf:"mongo"`

	// Redis Redis 后端配置，Backend 为 redis 时必填。
	Redis RedisConfig `koanf:"redis"`

	// Etcd etcd 后端配置，Backend 为 etcd 时必填。
	Etcd EtcdConfig `koanf:"etcd"`
}

// MongoConfig MongoDB 后端配置。
type MongoConfig struct {
	// URI MongoDB 连接字符串。
	URI string `koanf:"uri"`

	// Database 数据库名。
	Database string `koanf:"database"`

	// Collection 锁记录所在集合名。
	Collection string `koanf:"collection"`
}

// RedisConfig Redis 后端配置。
type RedisConfig struct {
	// Addr Redis 地址（host:port）。
	Addr string `koanf:"addr"`

	// Password 密码，可为空。
	Password string `koanf:"password"`

	// DB 数据库编号。
	DB int `koanf:"db"`
}

// EtcdConfig etcd 后端配置。
type EtcdConfig struct {
	// Endpoints etcd 端点列表。
	Endpoints []string `koanf:"endpoints"`

	// DialTimeout 连接超时时间。
	DialTimeout time.Duration `koanf:"dial_timeout"`
}

// DefaultEtcdDialTimeout etcd 默认连接超时时间。
const DefaultEtcdDialTimeout = 5 * time.Second

// Default 返回填好默认值的配置（memory 后端）。
func Default() *Config {
	return &Config{
		KeyPrefix:   xmutex.DefaultKeyPrefix,
		Expiry:      xmutex.DefaultExpiry,
		RetryDelay:  xmutex.DefaultRetryDelay,
		MaxAttempts: xmutex.DefaultMaxAttempts,
		Backend:     BackendMemory,
		Etcd: EtcdConfig{
			DialTimeout: DefaultEtcdDialTimeout,
		},
	}
}

// applyDefaults 把未设置的字段回填为默认值。
// 空 KeyPrefix 视为未设置并回填；需要无前缀 key 的调用方
// 应绕过配置直接用 xmutex.WithKeyPrefix("")。
func (c *Config) applyDefaults() {
	if c.KeyPrefix == "" {
		c.KeyPrefix = xmutex.DefaultKeyPrefix
	}
	if c.Expiry == 0 {
		c.Expiry = xmutex.DefaultExpiry
	}
	if c.RetryDelay == 0 {
		c.RetryDelay = xmutex.DefaultRetryDelay
	}
	if c.Backend == "" {
		c.Backend = BackendMemory
	}
	if c.Etcd.DialTimeout == 0 {
		c.Etcd.DialTimeout = DefaultEtcdDialTimeout
	}
}

// Validate 校验配置。
// 所有返回的错误都可用 errors.Is(err, ErrInvalidConfig) 匹配。
func (c *Config) Validate() error {
	if c.Expiry <= 0 {
		return fmt.Errorf("%w: expiry must be positive, got %s", ErrInvalidConfig, c.Expiry)
	}
	if c.RetryDelay <= 0 {
		return fmt.Errorf("%w: retry_delay must be positive, got %s", ErrInvalidConfig, c.RetryDelay)
	}
	if c.MaxAttempts < 0 {
		return fmt.Errorf("%w: max_attempts must not be negative, got %d", ErrInvalidConfig, c.MaxAttempts)
	}

	switch c.Backend {
	case BackendMemory:
		// 无后端专属必填项
	case BackendMongo:
		if c.Mongo.URI == "" {
			return fmt.Errorf("%w: mongo.uri is required for backend %q", ErrInvalidConfig, c.Backend)
		}
		if c.Mongo.Database == "" {
			return fmt.Errorf("%w: mongo.database is required for backend %q", ErrInvalidConfig, c.Backend)
		}
		if c.Mongo.Collection == "" {
			return fmt.Errorf("%w: mongo.collection is required for backend %q", ErrInvalidConfig, c.Backend)
		}
	case BackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("%w: redis.addr is required for backend %q", ErrInvalidConfig, c.Backend)
		}
	case BackendEtcd:
		if len(c.Etcd.Endpoints) == 0 {
			return fmt.Errorf("%w: etcd.endpoints is required for backend %q", ErrInvalidConfig, c.Backend)
		}
		if c.Etcd.DialTimeout <= 0 {
			return fmt.Errorf("%w: etcd.dial_timeout must be positive, got %s", ErrInvalidConfig, c.Etcd.DialTimeout)
		}
	default:
		return fmt.Errorf("%w: unknown backend %q", ErrInvalidConfig, c.Backend)
	}

	return nil
}

// ProviderOptions 把配置转换为锁提供者的选项。
func (c *Config) ProviderOptions() []xmutex.ProviderOption {
	return []xmutex.ProviderOption{
		xmutex.WithKeyPrefix(c.KeyPrefix),
		xmutex.WithDefaultExpiry(c.Expiry),
		xmutex.WithDefaultRetryDelay(c.RetryDelay),
		xmutex.WithDefaultMaxAttempts(c.MaxAttempts),
	}
}
