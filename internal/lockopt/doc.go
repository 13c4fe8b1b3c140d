// Package lockopt 提供锁存储后端的通用辅助能力：
// 操作统计计数器与超时兜底工具。
//
// 此包为内部共享代码，xmutex 的各后端（Mongo/Redis/etcd）复用这里的
// 计数器与超时语义，保证不同后端暴露一致的可观测口径。
package lockopt
