package xmutex

import (
	"log/slog"
	"strings"
	"time"
)

// 默认值。
const (
	// DefaultKeyPrefix 锁 key 的默认前缀。
	DefaultKeyPrefix = "lock:"

	// DefaultExpiry 默认持有时长（创建时写入 expireAt，无续期）。
	DefaultExpiry = 30 * time.Second

	// DefaultRetryDelay 获取失败后的默认重试延迟。
	DefaultRetryDelay = 200 * time.Millisecond

	// DefaultMaxAttempts 默认最大尝试次数（包含首次尝试）。
	DefaultMaxAttempts = 32

	// maxKeyLength 锁 key 的长度上限（字节）。
	// 超过上限的 key 不会报错，而是以资源 id 的 xxhash 摘要代替，
	// 保持确定性的同时适配各后端的 key 长度限制。
	maxKeyLength = 512
)

// validateResource 验证资源 id 是否有效。
func validateResource(resource string) error {
	if strings.TrimSpace(resource) == "" {
		return ErrEmptyResource
	}
	return nil
}

// =============================================================================
// Provider 选项
// =============================================================================

// ProviderOption 定义 Provider 的配置选项。
type ProviderOption func(*providerOptions)

// providerOptions Provider 配置。
type providerOptions struct {
	KeyPrefix   string
	Expiry      time.Duration
	RetryDelay  time.Duration
	MaxAttempts int // 0 表示无上限
	Logger      *slog.Logger
	Now         func() time.Time
}

// defaultProviderOptions 返回默认的 Provider 配置。
func defaultProviderOptions() *providerOptions {
	return &providerOptions{
		KeyPrefix:   DefaultKeyPrefix,
		Expiry:      DefaultExpiry,
		RetryDelay:  DefaultRetryDelay,
		MaxAttempts: DefaultMaxAttempts,
		Logger:      slog.Default(),
		Now:         time.Now,
	}
}

// WithKeyPrefix 设置锁 key 的前缀。
// 最终 key = prefix + 资源 id。允许空前缀。
// 默认值："lock:"。
func WithKeyPrefix(prefix string) ProviderOption {
	return func(o *providerOptions) {
		o.KeyPrefix = prefix
	}
}

// WithDefaultExpiry 设置默认持有时长。
// 非正值被忽略（保持默认值）。默认值：30 秒。
//
// 注意：没有续期机制，持有时长应覆盖临界区的最长执行时间。
func WithDefaultExpiry(d time.Duration) ProviderOption {
	return func(o *providerOptions) {
		if d > 0 {
			o.Expiry = d
		}
	}
}

// WithDefaultRetryDelay 设置获取失败后的默认重试延迟。
// 非正值被忽略（保持默认值）。默认值：200ms。
func WithDefaultRetryDelay(d time.Duration) ProviderOption {
	return func(o *providerOptions) {
		if d > 0 {
			o.RetryDelay = d
		}
	}
}

// WithDefaultMaxAttempts 设置默认最大尝试次数（包含首次尝试）。
// 0 表示不设上限（无限等待，由调用方用 context 兜底）。
// 负值被忽略（保持默认值）。默认值：32。
func WithDefaultMaxAttempts(n int) ProviderOption {
	return func(o *providerOptions) {
		if n >= 0 {
			o.MaxAttempts = n
		}
	}
}

// WithLogger 设置日志记录器。
// nil 被忽略。默认使用 slog.Default()。
func WithLogger(logger *slog.Logger) ProviderOption {
	return func(o *providerOptions) {
		if logger != nil {
			o.Logger = logger
		}
	}
}

// WithClock 设置时钟函数，用于测试中控制时间。
// nil 被忽略。默认使用 time.Now。
func WithClock(now func() time.Time) ProviderOption {
	return func(o *providerOptions) {
		if now != nil {
			o.Now = now
		}
	}
}

// =============================================================================
// 单次获取选项
// =============================================================================

// AcquireOption 定义单次获取的配置选项，覆盖 Provider 级默认值。
type AcquireOption func(*acquireOptions)

// acquireOptions 单次获取配置。
type acquireOptions struct {
	Expiry      time.Duration
	RetryDelay  time.Duration
	MaxAttempts int
}

// WithExpiry 设置本次获取的持有时长。
// 非正值被忽略（保持 Provider 默认值）。
func WithExpiry(d time.Duration) AcquireOption {
	return func(o *acquireOptions) {
		if d > 0 {
			o.Expiry = d
		}
	}
}

// WithRetryDelay 设置本次获取的重试延迟。
// 非正值被忽略（保持 Provider 默认值）。
func WithRetryDelay(d time.Duration) AcquireOption {
	return func(o *acquireOptions) {
		if d > 0 {
			o.RetryDelay = d
		}
	}
}

// WithMaxAttempts 设置本次获取的最大尝试次数（包含首次尝试）。
// 0 表示不设上限。负值被忽略（保持 Provider 默认值）。
func WithMaxAttempts(n int) AcquireOption {
	return func(o *acquireOptions) {
		if n >= 0 {
			o.MaxAttempts = n
		}
	}
}
