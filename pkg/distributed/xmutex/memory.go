package xmutex

import (
	"context"
	"sync"
	"time"
)

// 确保 *MemoryStore 实现 Store 接口
var _ Store = (*MemoryStore)(nil)

// MemoryStore 进程内存储后端，主要用于测试与本地开发。
//
// 与真实后端不同，它提供确定性的控制点：
//   - 注入时钟（WithMemoryClock），测试可精确推进时间
//   - 惰性过期 + 显式 Sweep，模拟真实后端"尽力而为、非即时"的过期回收
//   - 获取前钩子（WithMemoryAcquireHook），可确定性地复现两个客户端
//     同时插入的竞争窗口
//
// 并发安全。注意它只在单进程内可见，不提供跨进程互斥——
// 这是测试替身，不是部署选项。
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]time.Time

	now           func() time.Time
	beforeAcquire func(id string)
}

// MemoryOption 定义 MemoryStore 的配置选项。
type MemoryOption func(*MemoryStore)

// WithMemoryClock 注入时钟函数。
// nil 被忽略。默认使用 time.Now。
func WithMemoryClock(now func() time.Time) MemoryOption {
	return func(s *MemoryStore) {
		if now != nil {
			s.now = now
		}
	}
}

// WithMemoryAcquireHook 设置获取前钩子。
// 钩子在 Acquire 取得内部互斥锁之前调用，测试可以在钩子里
// 向同一 key 抢先插入记录，确定性地模拟输掉竞争窗口的场景。
//
// 钩子内再次调用 Acquire 会再次触发钩子，调用方需自行防止无限递归
// （例如用 atomic.Bool 只抢一次）。
func WithMemoryAcquireHook(fn func(id string)) MemoryOption {
	return func(s *MemoryStore) {
		s.beforeAcquire = fn
	}
}

// NewMemoryStore 创建进程内存储后端。
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		records: make(map[string]time.Time),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Acquire 原子地执行"不存在则创建"。
// 已过期但尚未被清理的记录视为不存在（惰性过期）。
func (s *MemoryStore) Acquire(ctx context.Context, id string, expireAt time.Time) (bool, error) {
	if ctx == nil {
		return false, ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if s.beforeAcquire != nil {
		s.beforeAcquire(id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if exp, ok := s.records[id]; ok {
		if exp.After(s.now()) {
			return false, nil
		}
		// 过期记录：当作后端已回收
		delete(s.records, id)
	}

	s.records[id] = expireAt
	return true, nil
}

// Release 删除记录。幂等，记录不存在时返回 nil。
func (s *MemoryStore) Release(ctx context.Context, id string) error {
	if ctx == nil {
		return ErrNilContext
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

// Sweep 清理所有已过期的记录，返回清理数量。
// 模拟真实后端的自主过期扫描；测试推进时钟后显式调用。
func (s *MemoryStore) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	removed := 0
	for id, exp := range s.records {
		if !exp.After(now) {
			delete(s.records, id)
			removed++
		}
	}
	return removed
}

// Exists 返回 id 对应的记录是否存在（不考虑是否已过期）。
// 用于测试断言记录的物理存在性。
func (s *MemoryStore) Exists(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.records[id]
	return ok
}

// ExpireAt 返回记录的过期时间。记录不存在时第二个返回值为 false。
func (s *MemoryStore) ExpireAt(id string) (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	exp, ok := s.records[id]
	return exp, ok
}

// Len 返回当前记录数（含已过期未清理的记录）。
func (s *MemoryStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.records)
}
