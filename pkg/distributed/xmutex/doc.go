// Package xmutex 实现以共享存储为协调者的分布式互斥锁。
//
// # 设计理念
//
// 不存在锁管理进程，全部协调经由存储后端的一条原子原语完成：
// "不存在则创建，否则报告已存在"（条件写并返回先前状态）。
// 进程内不做任何并发控制——互斥完全外化到存储的原子性保证上，
// 多个客户端（可跨主机、跨进程）各自独立运行获取循环。
//
// # 核心概念
//
//   - Store: 存储后端契约，提供原子条件创建与幂等删除两个操作
//   - Lock: 单次获取的锁实例，状态机 Unacquired → Acquired → Released
//   - Provider: 把单次尝试编排为带重试上限的阻塞式获取，并派生锁 key
//   - Handle: 成功获取后返回的可释放句柄
//
// # 后端
//
//	| 后端 | 条件创建 | 过期回收 |
//	|------|----------|----------|
//	| MongoDB | InsertOne + 唯一键冲突检测 | TTL 索引（约 60s 扫描周期） |
//	| Redis | SET NX PX | key TTL |
//	| etcd | Txn CreateRevision==0 + Lease | Lease 到期 |
//	| Memory | 互斥锁下的 map 插入 | 惰性过期 + Sweep（测试用） |
//
// 各后端对"竞争"的判定谓词刻意收窄：Mongo 只认唯一键冲突，
// Redis 只认 SET NX 的布尔应答，etcd 只认事务失败分支。
// 其余任何存储错误原样向上传播，不会被吞成"未获取到"。
//
// # 已知弱点：无续期
//
// 锁记录的 expireAt 创建时写定，之后不会被延长（没有心跳/租约续期）。
// 超过过期时间仍在运行的临界区会在不知情的情况下失去锁。
// 这是协议的既有语义，修复它（续期或 fencing token）会改变协议保证，
// 因此这里选择如实保留并在文档中标明。
//
// # 使用模式
//
//	provider, _ := xmutex.NewProvider(store)
//	handle, err := provider.Acquire(ctx, "doc-1")
//	if err != nil {
//	    return err // ErrAcquireTimeout 或存储错误
//	}
//	defer handle.Release(ctx)
//
//	// 临界区...
//
// 需要保证释放的场景推荐 WithLock：
//
//	err := provider.WithLock(ctx, "doc-1", func(ctx context.Context) error {
//	    // 临界区，任何退出路径（包括 panic）都会释放
//	    return nil
//	})
package xmutex
