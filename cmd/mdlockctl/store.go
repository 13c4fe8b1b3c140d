package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	clientv3 "go.etcd.io/etcd/client/v3"
	"go.mongodb.org/mongo-driver/v2/mongo"
	mongoopts "go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/henry701/MongoDistributedLocks/pkg/config/xlockconf"
	"github.com/henry701/MongoDistributedLocks/pkg/distributed/xmutex"
)

// closeTimeout 关闭后端连接的超时时间。
const closeTimeout = 5 * time.Second

// openStore 按配置打开存储后端。
// 返回的清理函数负责关闭底层客户端，调用方需 defer。
func openStore(cfg *xlockconf.Config, logger *slog.Logger) (xmutex.Store, func(), error) {
	switch cfg.Backend {
	case xlockconf.BackendMemory:
		return xmutex.NewMemoryStore(), func() {}, nil

	case xlockconf.BackendMongo:
		return openMongoStore(cfg, logger)

	case xlockconf.BackendRedis:
		return openRedisStore(cfg, logger)

	case xlockconf.BackendEtcd:
		return openEtcdStore(cfg, logger)

	default:
		// Validate 已拦截未知后端，此处仅防御
		return nil, nil, &usageError{msg: fmt.Sprintf("未知后端: %s", cfg.Backend)}
	}
}

func openMongoStore(cfg *xlockconf.Config, logger *slog.Logger) (xmutex.Store, func(), error) {
	client, err := mongo.Connect(mongoopts.Client().ApplyURI(cfg.Mongo.URI))
	if err != nil {
		return nil, nil, fmt.Errorf("连接 MongoDB 失败: %w", err)
	}

	cleanup := func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()
		if err := client.Disconnect(ctx); err != nil {
			logger.Warn("mongo disconnect failed", slog.Any("error", err))
		}
	}

	coll := client.Database(cfg.Mongo.Database).Collection(cfg.Mongo.Collection)
	store, err := xmutex.NewMongoStore(coll)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return store, cleanup, nil
}

func openRedisStore(cfg *xlockconf.Config, logger *slog.Logger) (xmutex.Store, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("redis close failed", slog.Any("error", err))
		}
	}

	store, err := xmutex.NewRedisStore(client)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return store, cleanup, nil
}

func openEtcdStore(cfg *xlockconf.Config, logger *slog.Logger) (xmutex.Store, func(), error) {
	client, err := clientv3.New(clientv3.Config{
		Endpoints:   cfg.Etcd.Endpoints,
		DialTimeout: cfg.Etcd.DialTimeout,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("连接 etcd 失败: %w", err)
	}

	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Warn("etcd close failed", slog.Any("error", err))
		}
	}

	store, err := xmutex.NewEtcdStore(client)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return store, cleanup, nil
}
