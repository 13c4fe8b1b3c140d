package xmutex

import "errors"

// 预定义错误。
// 使用 errors.Is 进行错误匹配，例如：
//
//	if errors.Is(err, xmutex.ErrAcquireTimeout) {
//	    // 重试耗尽仍未获取到锁
//	}
var (
	// ErrAcquireTimeout 获取锁超时。
	// 尝试次数达到上限仍未获取到锁时返回，错误信息包含资源 id。
	// 与存储层错误严格区分：收到此错误说明存储工作正常、锁被他人持有。
	ErrAcquireTimeout = errors.New("xmutex: acquire attempts exhausted")

	// ErrLockReleased 锁已释放。
	// 在已释放（终态）的锁上再次调用 TryAcquire 时返回。
	ErrLockReleased = errors.New("xmutex: lock already released")

	// ErrNilStore 存储后端为空。
	ErrNilStore = errors.New("xmutex: store is nil")

	// ErrNilClient 客户端为空。
	// 后端构造函数收到 nil 客户端时返回。
	ErrNilClient = errors.New("xmutex: client is nil")

	// ErrNilCollection 集合为空。
	// NewMongoStore 收到 nil collection 时返回。
	ErrNilCollection = errors.New("xmutex: collection is nil")

	// ErrNilContext context 为空。
	// 所有接受 context 的公开方法在入口处检查此条件。
	// Release 是例外：nil ctx 会被替换为兜底上下文，释放操作不应因此失败。
	ErrNilContext = errors.New("xmutex: context must not be nil")

	// ErrEmptyResource 资源 id 为空。
	// 资源 id 为空字符串或仅含空白时返回。
	ErrEmptyResource = errors.New("xmutex: resource id must not be empty")

	// ErrNilFunc 回调函数为空。
	// WithLock 收到 nil 回调时返回。
	ErrNilFunc = errors.New("xmutex: fn is nil")
)
