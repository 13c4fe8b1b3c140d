package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/henry701/MongoDistributedLocks/pkg/config/xlockconf"
	"github.com/henry701/MongoDistributedLocks/pkg/distributed/xmutex"
)

// exitError 表示需要非零退出码但已完成输出的场景。
// 命令内部已完成所有输出，main 只需设置退出码。
type exitError struct {
	code int
}

func (e *exitError) Error() string { return "" }

// usageError 表示参数错误（退出码 2）。
type usageError struct {
	msg string
}

func (e *usageError) Error() string { return e.msg }

// 创建所有子命令。
func createCommands() []*cli.Command {
	return []*cli.Command{
		createAcquireCommand(),
		createProbeCommand(),
		createInitCommand(),
	}
}

// createAcquireCommand 创建 acquire 子命令。
func createAcquireCommand() *cli.Command {
	return &cli.Command{
		Name:      "acquire",
		Aliases:   []string{"a"},
		Usage:     "获取锁，持有 --hold 指定的时长后释放",
		ArgsUsage: "<resource>",
		Flags: []cli.Flag{
			&cli.DurationFlag{
				Name:  "hold",
				Usage: "持有时长（0 表示获取后立即释放）",
			},
			&cli.BoolFlag{
				Name:  "no-wait",
				Usage: "只尝试一次，锁被占用时立即退出",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			resource, err := resourceArg(cmd)
			if err != nil {
				return err
			}
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.String("log-file"), cmd.Bool("verbose"))
			return cmdAcquire(ctx, cfg, logger, resource, cmd.Duration("hold"), cmd.Bool("no-wait"))
		},
	}
}

// createProbeCommand 创建 probe 子命令。
func createProbeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Aliases:   []string{"p"},
		Usage:     "探测锁此刻是否可获取",
		ArgsUsage: "<resource>",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			resource, err := resourceArg(cmd)
			if err != nil {
				return err
			}
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.String("log-file"), cmd.Bool("verbose"))
			return cmdProbe(ctx, cfg, logger, resource)
		},
	}
}

// createInitCommand 创建 init 子命令。
func createInitCommand() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "初始化存储（创建 MongoDB TTL 索引）",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			logger := newLogger(cmd.String("log-file"), cmd.Bool("verbose"))
			return cmdInit(ctx, cfg, logger)
		},
	}
}

// resourceArg 提取并校验资源 id 参数。
func resourceArg(cmd *cli.Command) (string, error) {
	resource := cmd.Args().First()
	if resource == "" {
		return "", &usageError{msg: fmt.Sprintf("%s 命令需要指定资源 id", cmd.Name)}
	}
	return resource, nil
}

// resolveConfig 合并配置文件与命令行参数。
// 命令行参数优先；合并结果经 Validate 校验。
func resolveConfig(cmd *cli.Command) (*xlockconf.Config, error) {
	var cfg *xlockconf.Config
	if path := cmd.String("config"); path != "" {
		loaded, err := xlockconf.Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = xlockconf.Default()
	}

	if cmd.IsSet("backend") {
		cfg.Backend = xlockconf.Backend(cmd.String("backend"))
	}
	if cmd.IsSet("key-prefix") {
		cfg.KeyPrefix = cmd.String("key-prefix")
	}
	if cmd.IsSet("expiry") {
		cfg.Expiry = cmd.Duration("expiry")
	}
	if cmd.IsSet("retry-delay") {
		cfg.RetryDelay = cmd.Duration("retry-delay")
	}
	if n := cmd.Int("max-attempts"); n >= 0 {
		cfg.MaxAttempts = n
	}
	if cmd.IsSet("uri") {
		cfg.Mongo.URI = cmd.String("uri")
	}
	if cmd.IsSet("database") {
		cfg.Mongo.Database = cmd.String("database")
	}
	if cmd.IsSet("collection") {
		cfg.Mongo.Collection = cmd.String("collection")
	}
	if cmd.IsSet("addr") {
		cfg.Redis.Addr = cmd.String("addr")
	}
	if cmd.IsSet("password") {
		cfg.Redis.Password = cmd.String("password")
	}
	if cmd.IsSet("db") {
		cfg.Redis.DB = cmd.Int("db")
	}
	if cmd.IsSet("endpoints") {
		cfg.Etcd.Endpoints = cmd.StringSlice("endpoints")
	}
	if cmd.IsSet("dial-timeout") {
		cfg.Etcd.DialTimeout = cmd.Duration("dial-timeout")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// cmdAcquire 获取锁。可选持有一段时间，随后释放。
func cmdAcquire(ctx context.Context, cfg *xlockconf.Config, logger *slog.Logger, resource string, hold time.Duration, noWait bool) error {
	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, err := xmutex.NewProvider(store, providerOptions(cfg, logger)...)
	if err != nil {
		return err
	}

	var handle xmutex.Handle
	if noWait {
		handle, err = provider.TryAcquire(ctx, resource)
		if err != nil {
			return err
		}
		if handle == nil {
			fmt.Printf("锁被占用: %s\n", resource)
			return &exitError{code: 1}
		}
	} else {
		handle, err = provider.Acquire(ctx, resource)
		if err != nil {
			return err
		}
	}

	fmt.Printf("已获取: %s (key: %s)\n", resource, handle.Key())

	if hold > 0 {
		if err := sleepCtx(ctx, hold); err != nil {
			// 等待被打断也要释放，避免残留到过期才回收
			if relErr := handle.Release(ctx); relErr != nil {
				return errors.Join(err, relErr)
			}
			return err
		}
	}

	if err := handle.Release(ctx); err != nil {
		return err
	}
	fmt.Printf("已释放: %s\n", resource)
	return nil
}

// cmdProbe 探测锁此刻是否可获取。
// 设计决策: 锁被占用时返回非零退出码（通过 exitError），
// 使脚本能直接以退出码判定锁状态。
func cmdProbe(ctx context.Context, cfg *xlockconf.Config, logger *slog.Logger, resource string) error {
	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	provider, err := xmutex.NewProvider(store, providerOptions(cfg, logger)...)
	if err != nil {
		return err
	}

	free, err := provider.IsAcquirable(ctx, resource)
	if err != nil {
		return err
	}
	if !free {
		fmt.Printf("锁被占用: %s\n", resource)
		return &exitError{code: 1}
	}
	fmt.Printf("锁可获取: %s\n", resource)
	return nil
}

// cmdInit 初始化存储。
// 目前只有 MongoDB 需要引导步骤（expireAt 上的 TTL 索引）。
func cmdInit(ctx context.Context, cfg *xlockconf.Config, logger *slog.Logger) error {
	if cfg.Backend != xlockconf.BackendMongo {
		return &usageError{msg: fmt.Sprintf("init 命令仅支持 mongo 后端，当前后端: %s", cfg.Backend)}
	}

	store, closeStore, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeStore()

	mongoStore, ok := store.(*xmutex.MongoStore)
	if !ok {
		return fmt.Errorf("意外的存储类型: %T", store)
	}

	if err := mongoStore.EnsureIndexes(ctx); err != nil {
		return err
	}
	fmt.Printf("TTL 索引已就绪: %s.%s\n", cfg.Mongo.Database, cfg.Mongo.Collection)
	return nil
}

// providerOptions 配置转换为提供者选项并附加日志记录器。
func providerOptions(cfg *xlockconf.Config, logger *slog.Logger) []xmutex.ProviderOption {
	return append(cfg.ProviderOptions(), xmutex.WithLogger(logger))
}
