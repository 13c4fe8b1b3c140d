package xmutex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	retry "github.com/avast/retry-go/v5"
	"github.com/cespare/xxhash/v2"
)

// errContended 重试循环内部的竞争信号。
// 不导出：竞争在 Provider 内被完全吸收，永远不会作为错误到达调用方。
var errContended = errors.New("xmutex: lock contended")

// Provider 把单次获取尝试编排为带重试上限的阻塞式获取，
// 并负责从资源 id 派生存储层锁 key。
//
// Provider 自身无状态（只持有配置），可被多个 goroutine 共享。
type Provider struct {
	store Store
	opts  *providerOptions
}

// NewProvider 创建锁提供者。
// store 必须是已初始化的存储后端。
func NewProvider(store Store, opts ...ProviderOption) (*Provider, error) {
	if store == nil {
		return nil, ErrNilStore
	}

	options := defaultProviderOptions()
	for _, opt := range opts {
		opt(options)
	}

	return &Provider{
		store: store,
		opts:  options,
	}, nil
}

// BuildLockKey 从资源 id 派生存储层锁 key。
//
// 纯函数：同一资源 id 永远映射到同一 key，不同资源 id 的 key 不同。
// 常规情况下 key = prefix + resource；派生结果超过长度上限时，
// 资源 id 部分以其 xxhash64 十六进制摘要代替（仍然确定且实践上无碰撞）。
func (p *Provider) BuildLockKey(resource string) string {
	key := p.opts.KeyPrefix + resource
	if len(key) <= maxKeyLength {
		return key
	}
	return fmt.Sprintf("%s%016x", p.opts.KeyPrefix, xxhash.Sum64String(resource))
}

// Acquire 阻塞式获取锁。
//
// 循环调用单次尝试，失败后等待重试延迟再试，直到成功或尝试次数
// 达到上限。成功时返回可释放的 Handle；耗尽时返回 ErrAcquireTimeout
// （错误信息包含资源 id）；存储错误与 context 取消/超时不触发重试，
// 原样向上传播。
//
// 竞争者之间没有任何公平性/FIFO 保证，任何一轮都可能被后来者抢先。
func (p *Provider) Acquire(ctx context.Context, resource string, opts ...AcquireOption) (Handle, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := validateResource(resource); err != nil {
		return nil, err
	}

	o := p.acquireOptions(opts)
	key := p.BuildLockKey(resource)
	lock := newLock(p.store, key, o.Expiry, p.opts.Now)

	ropts := []retry.Option{
		retry.Context(ctx),
		retry.Delay(o.RetryDelay),
		retry.DelayType(retry.FixedDelay),
		// 只有竞争信号触发重试；存储错误一律终止
		retry.RetryIf(func(err error) bool {
			return errors.Is(err, errContended)
		}),
		retry.OnRetry(func(n uint, _ error) {
			p.opts.Logger.Debug("lock contended, retrying",
				slog.String("key", key),
				slog.Uint64("attempt", uint64(n)+1),
			)
		}),
		retry.LastErrorOnly(true),
	}
	if o.MaxAttempts <= 0 {
		ropts = append(ropts, retry.UntilSucceeded())
	} else {
		ropts = append(ropts, retry.Attempts(uint(o.MaxAttempts)))
	}

	err := retry.New(ropts...).Do(func() error {
		ok, aerr := lock.TryAcquire(ctx)
		if aerr != nil {
			return aerr
		}
		if !ok {
			return errContended
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errContended) {
			p.opts.Logger.Warn("lock acquire attempts exhausted",
				slog.String("key", key),
				slog.Int("max_attempts", o.MaxAttempts),
			)
			return nil, fmt.Errorf("%w: resource %q", ErrAcquireTimeout, resource)
		}
		return nil, err
	}

	p.opts.Logger.Debug("lock acquired", slog.String("key", key))
	return lock, nil
}

// TryAcquire 非阻塞式获取锁：只尝试一次，不重试。
// 成功时返回 Handle；锁被占用时返回 (nil, nil)——这是正常情况，
// 不是错误；存储失败原样返回。
func (p *Provider) TryAcquire(ctx context.Context, resource string, opts ...AcquireOption) (Handle, error) {
	if ctx == nil {
		return nil, ErrNilContext
	}
	if err := validateResource(resource); err != nil {
		return nil, err
	}

	o := p.acquireOptions(opts)
	lock := newLock(p.store, p.BuildLockKey(resource), o.Expiry, p.opts.Now)

	ok, err := lock.TryAcquire(ctx)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}
	return lock, nil
}

// IsAcquirable 非阻塞探测：此刻能否获取到资源的锁。
//
// 以零持有时长做一次获取尝试，随后无论成败都立即释放，
// 因此探测本身不会留下悬挂记录，也不会触碰其他持有者的记录。
//
// 注意：探测自身也参与竞争，返回值只是时间点信号——
// true 不构成任何预留，调用方不得把它当作已持有锁。
// 此方法用于诊断，不用于获取。
func (p *Provider) IsAcquirable(ctx context.Context, resource string) (bool, error) {
	if ctx == nil {
		return false, ErrNilContext
	}
	if err := validateResource(resource); err != nil {
		return false, err
	}

	lock := newLock(p.store, p.BuildLockKey(resource), 0, p.opts.Now)
	ok, err := lock.TryAcquire(ctx)
	relErr := lock.Release(ctx) // 未获取到时是 no-op，不会动他人的记录
	if err != nil {
		return false, err
	}
	if relErr != nil {
		// 探测已拿到结果；记录的 expireAt 为当下，残留会被过期回收清掉
		return ok, relErr
	}
	return ok, nil
}

// WithLock 在持有锁的情况下执行 fn，保证所有退出路径（包括 panic）
// 都会释放锁。及时释放是其他等待者活性的关键，不应依赖 GC 终结器。
func (p *Provider) WithLock(ctx context.Context, resource string, fn func(ctx context.Context) error, opts ...AcquireOption) (err error) {
	if fn == nil {
		return ErrNilFunc
	}

	handle, err := p.Acquire(ctx, resource, opts...)
	if err != nil {
		return err
	}
	defer func() {
		if relErr := handle.Release(ctx); relErr != nil {
			err = errors.Join(err, relErr)
		}
	}()

	return fn(ctx)
}

// acquireOptions 合并 Provider 默认值与单次获取的覆盖项。
func (p *Provider) acquireOptions(opts []AcquireOption) *acquireOptions {
	o := &acquireOptions{
		Expiry:      p.opts.Expiry,
		RetryDelay:  p.opts.RetryDelay,
		MaxAttempts: p.opts.MaxAttempts,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}
