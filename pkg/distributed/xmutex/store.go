package xmutex

import (
	"context"
	"time"
)

// Store 定义锁存储后端契约。
//
// 后端是协议正确性的公理：Acquire 必须是一条对所有客户端不可分的
// 原子操作。本包不会用进程内手段补偿非原子的后端。
//
// 锁记录只有两个字段：唯一 key 与绝对过期时间 expireAt。
// 记录由成功的 Acquire 创建，由 Release 或后端自身的过期回收销毁；
// expireAt 创建时写定，协议不会再修改它（没有续期）。
type Store interface {
	// Acquire 原子地执行"不存在则创建"：
	// 若 id 对应的记录不存在，以给定 expireAt 创建并返回 (true, nil)；
	// 若记录已存在，保持原记录不变并返回 (false, nil)。
	//
	// 实现约束：
	//   - 后端若只能以"插入 + 唯一约束"的方式表达条件创建，
	//     并发插入输掉的一方收到的唯一键冲突必须折叠为 (false, nil)，
	//     这是预期内的竞争信号，不是错误。
	//   - 除竞争信号外的任何失败必须以 error 返回，不得折叠为 false。
	//   - expireAt 已经过去的记录允许创建（探测场景会这样用），
	//     其回收交给后端的过期机制。
	Acquire(ctx context.Context, id string, expireAt time.Time) (created bool, err error)

	// Release 删除 id 对应的记录。
	// 幂等：记录不存在时返回 nil。
	Release(ctx context.Context, id string) error
}
