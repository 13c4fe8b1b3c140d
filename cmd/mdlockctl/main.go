// mdlockctl 是分布式锁的命令行客户端。
//
// 用法:
//
//	mdlockctl [全局选项] <命令> [命令参数]
//
// 全局选项:
//
//	-c, --config      配置文件路径 (.yaml/.yml/.json)
//	-b, --backend     存储后端 (memory|mongo|redis|etcd)
//	    --key-prefix  锁 key 前缀
//	    --expiry      锁持有时长
//	    --retry-delay 重试延迟
//	    --max-attempts 最大尝试次数 (0 = 无上限)
//	    --uri/--database/--collection   MongoDB 连接参数
//	    --addr/--password/--db          Redis 连接参数
//	    --endpoints/--dial-timeout      etcd 连接参数
//	    --log-file    日志文件路径（JSON 格式，lumberjack 轮转）
//	-v, --verbose     输出 Debug 级别日志
//
// 命令:
//
//	acquire <resource>   获取锁（可 --hold 持有一段时间后释放）
//	probe <resource>     探测锁此刻是否可获取
//	init                 初始化存储（MongoDB TTL 索引）
//	help                 显示帮助信息
//
// 命令行参数优先于配置文件中的同名配置项。
//
// 退出码:
//
//	0: 命令执行成功（probe 命令: 锁可获取）
//	1: 获取超时、锁被占用（probe 命令）或存储错误
//	2: 参数错误（未知后端、缺少必需参数、未知命令等）
//
// 示例:
//
//	mdlockctl -c lock.yaml acquire report-2026-08          # 获取后立即释放
//	mdlockctl -c lock.yaml acquire report-2026-08 --hold 30s
//	mdlockctl -b redis --addr localhost:6379 probe job-42
//	mdlockctl -b mongo --uri mongodb://localhost:27017 --database locks --collection locks init
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/henry701/MongoDistributedLocks/pkg/config/xlockconf"
	"github.com/henry701/MongoDistributedLocks/pkg/distributed/xmutex"
)

// 版本信息（可通过 -ldflags 注入，例如:
//
//	go build -ldflags "-X main.Version=1.0.0 -X main.GitCommit=$(git rev-parse --short HEAD) -X main.BuildTime=$(date -u +%Y-%m-%dT%H:%M:%SZ)"
//
// ）。
var (
	Version   = "0.1.0-dev"
	GitCommit = "unknown"
	BuildTime = "unknown"
)

func main() {
	os.Exit(run(os.Args))
}

// createApp 创建 CLI 应用。
func createApp() *cli.Command {
	return &cli.Command{
		Name:    "mdlockctl",
		Usage:   "分布式锁命令行客户端",
		Version: fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildTime),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "配置文件路径 (.yaml/.yml/.json)",
			},
			&cli.StringFlag{
				Name:    "backend",
				Aliases: []string{"b"},
				Usage:   "存储后端 (memory|mongo|redis|etcd)",
			},
			&cli.StringFlag{
				Name:  "key-prefix",
				Usage: "锁 key 前缀",
			},
			&cli.DurationFlag{
				Name:  "expiry",
				Usage: "锁持有时长",
			},
			&cli.DurationFlag{
				Name:  "retry-delay",
				Usage: "获取失败后的重试延迟",
			},
			&cli.IntFlag{
				Name:  "max-attempts",
				Usage: "最大尝试次数 (0 = 无上限)",
				Value: -1, // 未设置标记
			},
			&cli.StringFlag{
				Name:  "uri",
				Usage: "MongoDB 连接字符串",
			},
			&cli.StringFlag{
				Name:  "database",
				Usage: "MongoDB 数据库名",
			},
			&cli.StringFlag{
				Name:  "collection",
				Usage: "MongoDB 集合名",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "Redis 地址 (host:port)",
			},
			&cli.StringFlag{
				Name:  "password",
				Usage: "Redis 密码",
			},
			&cli.IntFlag{
				Name:  "db",
				Usage: "Redis 数据库编号",
			},
			&cli.StringSliceFlag{
				Name:  "endpoints",
				Usage: "etcd 端点列表",
			},
			&cli.DurationFlag{
				Name:  "dial-timeout",
				Usage: "etcd 连接超时时间",
			},
			&cli.StringFlag{
				Name:  "log-file",
				Usage: "日志文件路径（JSON 格式，lumberjack 轮转）",
			},
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "输出 Debug 级别日志",
			},
		},
		Commands:       createCommands(),
		DefaultCommand: "help",
		Authors: []any{
			"MongoDistributedLocks Team",
		},
		// 设计决策: 禁止 urfave/cli 直接调用 os.Exit，
		// 由 run() 统一处理退出码映射，确保与文档退出码契约一致。
		ExitErrHandler: func(_ context.Context, _ *cli.Command, err error) {
			// ExitCoder 错误（如未知命令）的消息需在此输出，
			// 替代 HandleExitCoder 的默认 os.Exit 行为。
			if _, ok := err.(cli.ExitCoder); ok {
				fmt.Fprintln(os.Stderr, err)
			}
		},
	}
}

func run(args []string) int {
	app := createApp()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	setupSignalHandler(cancel)

	if err := app.Run(ctx, args); err != nil {
		var exitErr *exitError
		if errors.As(err, &exitErr) {
			return exitErr.code
		}
		var usageErr *usageError
		if errors.As(err, &usageErr) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", usageErr)
			return 2
		}
		// 配置校验失败同属参数错误
		if errors.Is(err, xlockconf.ErrInvalidConfig) {
			fmt.Fprintf(os.Stderr, "参数错误: %v\n", err)
			return 2
		}
		// CLI 框架产生的参数错误（如未知 flag、未知命令）也返回退出码 2，
		// 与文档契约"参数错误 → 退出码 2"保持一致。
		if isCLIUsageError(err) {
			// ExitErrHandler 或 flag 解析器已向 stderr 输出错误详情，此处仅设置退出码
			return 2
		}
		if errors.Is(err, xmutex.ErrAcquireTimeout) {
			fmt.Fprintf(os.Stderr, "获取超时: %v\n", err)
			return 1
		}
		fmt.Fprintf(os.Stderr, "错误: %v\n", err)
		return 1
	}

	return 0
}

// isCLIUsageError 判断错误是否由 CLI 框架的参数解析产生。
func isCLIUsageError(err error) bool {
	if _, ok := err.(cli.ExitCoder); ok {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "flag provided but not defined") ||
		strings.Contains(msg, "No help topic for")
}

// setupSignalHandler 设置信号处理。
// 设计决策: 第一次信号优雅取消（阻塞中的 Acquire 随 context 退出），
// 第二次信号强制退出（退出码 130 = 128 + SIGINT）。
func setupSignalHandler(cancel context.CancelFunc) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel() // 第一次信号: 优雅取消

		<-sigCh
		signal.Stop(sigCh) // 回收订阅
		os.Exit(130)       // 第二次信号: 强制退出
	}()
}

// sleepCtx 可被 context 打断的等待。
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
