package xmutex

import (
	"context"
	"time"
)

// releaseTimeout 调用方 ctx 已失效时，释放操作使用的独立清理超时。
const releaseTimeout = 5 * time.Second

// Handle 表示一次成功的锁获取，由 Provider.Acquire 返回。
//
// 持有 Handle 即持有锁。Release 可安全地多次调用，
// 也可在从未获取成功的 Lock 上调用（此时为 no-op）。
type Handle interface {
	// Release 释放锁。
	//
	// 当 ctx 已取消/超时（或为 nil）时，Release 会自动使用独立清理
	// 上下文（5 秒超时），确保释放尽力完成，避免锁残留到过期回收。
	Release(ctx context.Context) error

	// Key 返回锁在存储中的完整 key。
	// 用于日志记录等场景。
	Key() string
}

// 确保 *Lock 实现 Handle 接口
var _ Handle = (*Lock)(nil)

// Lock 封装一条锁记录的生命周期：单次获取尝试、持有标志与释放。
//
// 状态机：Unacquired → Acquired → Released。
// Released 为终态，只能从 Acquired 进入。
//
// Lock 不做进程内并发控制，单个实例不应被多个 goroutine 同时使用；
// 跨客户端的互斥由存储后端的原子性保证。
type Lock struct {
	store  Store
	key    string
	expiry time.Duration
	now    func() time.Time

	acquired bool
	released bool
}

// NewLock 创建单次获取的锁实例。
// key 是已派生好的存储层 key；expiry 为持有时长（创建时写入 expireAt，
// 之后不会续期）。expiry 为零是合法的：记录创建即过期，探测场景会这样用。
func NewLock(store Store, key string, expiry time.Duration) (*Lock, error) {
	if store == nil {
		return nil, ErrNilStore
	}
	if err := validateResource(key); err != nil {
		return nil, err
	}
	return newLock(store, key, expiry, time.Now), nil
}

// newLock 内部构造，允许注入时钟。
func newLock(store Store, key string, expiry time.Duration, now func() time.Time) *Lock {
	return &Lock{
		store:  store,
		key:    key,
		expiry: expiry,
		now:    now,
	}
}

// TryAcquire 尝试获取一次锁。
//
// 已处于 Acquired 状态时直接返回 true，不会重复访问存储（幂等）。
// 返回 (false, nil) 表示锁被其他持有者占用，这是预期内的竞争，
// 不是错误；其余存储失败原样返回。
func (l *Lock) TryAcquire(ctx context.Context) (bool, error) {
	if ctx == nil {
		return false, ErrNilContext
	}
	if l.released {
		return false, ErrLockReleased
	}
	if l.acquired {
		return true, nil
	}

	created, err := l.store.Acquire(ctx, l.key, l.now().Add(l.expiry))
	if err != nil {
		return false, err
	}
	if !created {
		return false, nil
	}

	l.acquired = true
	return true, nil
}

// Release 释放锁。
//
// 仅在 Acquired 状态下删除存储记录并进入 Released 终态。
// 从未获取成功的锁调用 Release 是 no-op——竞争中输掉的一方
// 绝不能删除赢家的记录。重复调用返回 nil。
//
// 删除失败时不进入 Released，调用方可重试；即使不重试，
// 记录也会被后端的过期回收清掉。
func (l *Lock) Release(ctx context.Context) error {
	if !l.acquired || l.released {
		return nil
	}

	// 调用方 ctx 已失效时换用独立清理上下文，释放尽力完成
	if ctx == nil || ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.Background(), releaseTimeout)
		defer cancel()
	}

	if err := l.store.Release(ctx, l.key); err != nil {
		return err
	}
	l.released = true
	return nil
}

// Key 返回锁在存储中的完整 key。
func (l *Lock) Key() string {
	return l.key
}
