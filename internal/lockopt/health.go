package lockopt

import (
	"context"
	"time"
)

// DefaultHealthTimeout 健康检查默认超时时间。
const DefaultHealthTimeout = 5 * time.Second

// HealthContext 为健康检查添加超时。
// timeout <= 0 时使用 DefaultHealthTimeout。
// 调用方需 defer cancel。
func HealthContext(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		timeout = DefaultHealthTimeout
	}
	return context.WithTimeout(ctx, timeout)
}

// ApplyTimeout 当调用方未设置 deadline 且 timeout > 0 时，添加超时兜底。
// 返回可能带 deadline 的 ctx 和 cancel 函数（调用方需 defer cancel）。
// 已有 deadline 的 context 不受影响。
func ApplyTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout > 0 {
		if _, hasDeadline := ctx.Deadline(); !hasDeadline {
			return context.WithTimeout(ctx, timeout)
		}
	}
	return ctx, func() {}
}
