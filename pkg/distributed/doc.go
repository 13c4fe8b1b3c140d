// Package distributed 提供分布式协调相关的子包。
//
// 子包列表：
//   - xmutex: 分布式互斥锁，基于"不存在则创建"的条件写，
//     支持 MongoDB、Redis、etcd 与进程内存储后端
//
// 设计原则：
//   - 存储后端收敛为统一的条件创建/删除契约，上层协议与后端无关
//   - 竞争不是错误：被占用由返回值表达，错误通道只留给存储故障
//   - 到期回收交给后端自身机制（TTL 索引 / key TTL / Lease）
package distributed
