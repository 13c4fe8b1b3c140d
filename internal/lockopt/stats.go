package lockopt

import "sync/atomic"

// Counter 锁存储操作计数器。
// 所有方法并发安全，零值可用。
type Counter struct {
	acquires   atomic.Int64
	contention atomic.Int64
	releases   atomic.Int64
	failures   atomic.Int64
	pings      atomic.Int64
	pingErrors atomic.Int64
}

// IncAcquire 记录一次成功创建锁记录。
func (c *Counter) IncAcquire() { c.acquires.Add(1) }

// IncContention 记录一次竞争失败（记录已存在）。
func (c *Counter) IncContention() { c.contention.Add(1) }

// IncRelease 记录一次释放操作。
func (c *Counter) IncRelease() { c.releases.Add(1) }

// IncFailure 记录一次存储层错误（非竞争信号）。
func (c *Counter) IncFailure() { c.failures.Add(1) }

// IncPing 记录一次健康检查。
func (c *Counter) IncPing() { c.pings.Add(1) }

// IncPingError 记录一次健康检查失败。
func (c *Counter) IncPingError() { c.pingErrors.Add(1) }

// Snapshot 计数器快照。
type Snapshot struct {
	// Acquires 成功创建锁记录的次数。
	Acquires int64

	// Contention 因记录已存在而失败的次数。
	Contention int64

	// Releases 释放操作次数。
	Releases int64

	// Failures 存储层错误次数。
	Failures int64

	// Pings 健康检查次数。
	Pings int64

	// PingErrors 健康检查失败次数。
	PingErrors int64
}

// Snapshot 返回当前计数的一致性快照。
// 各字段独立读取，快照整体不保证原子，但单字段单调递增。
func (c *Counter) Snapshot() Snapshot {
	return Snapshot{
		Acquires:   c.acquires.Load(),
		Contention: c.contention.Load(),
		Releases:   c.releases.Load(),
		Failures:   c.failures.Load(),
		Pings:      c.pings.Load(),
		PingErrors: c.pingErrors.Load(),
	}
}
