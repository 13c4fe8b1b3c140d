package xmutex

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"
)

// =============================================================================
// 内部接口定义 - 用于依赖注入和测试
// =============================================================================

// lockCollection 定义锁集合操作接口。
// *mongo.Collection 经 mongoCollectionAdapter 适配后实现此接口。
type lockCollection interface {
	InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error)
	DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error)
	CreateIndex(ctx context.Context, model mongo.IndexModel) (string, error)
	Ping(ctx context.Context) error
	Database() string
	Name() string
}

// =============================================================================
// 集合适配器 - 将 *mongo.Collection 适配为 lockCollection
// =============================================================================

// mongoCollectionAdapter 将 *mongo.Collection 适配为 lockCollection 接口。
type mongoCollectionAdapter struct {
	coll *mongo.Collection
}

func (a *mongoCollectionAdapter) InsertOne(ctx context.Context, document any, opts ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	return a.coll.InsertOne(ctx, document, opts...)
}

func (a *mongoCollectionAdapter) DeleteOne(ctx context.Context, filter any, opts ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error) {
	return a.coll.DeleteOne(ctx, filter, opts...)
}

func (a *mongoCollectionAdapter) CreateIndex(ctx context.Context, model mongo.IndexModel) (string, error) {
	return a.coll.Indexes().CreateOne(ctx, model)
}

func (a *mongoCollectionAdapter) Ping(ctx context.Context) error {
	return a.coll.Database().Client().Ping(ctx, readpref.Primary())
}

func (a *mongoCollectionAdapter) Database() string {
	return a.coll.Database().Name()
}

func (a *mongoCollectionAdapter) Name() string {
	return a.coll.Name()
}
