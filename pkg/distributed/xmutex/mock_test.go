package xmutex

import (
	"context"
	"sync/atomic"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// =============================================================================
// Mock 实现 - 用于单元测试
// =============================================================================

// stubStore 可编程的 Store 替身，用于 Provider/Lock 的错误路径测试。
type stubStore struct {
	acquireFn func(ctx context.Context, id string, expireAt time.Time) (bool, error)
	releaseFn func(ctx context.Context, id string) error

	acquireCalls atomic.Int64
	releaseCalls atomic.Int64
}

func (s *stubStore) Acquire(ctx context.Context, id string, expireAt time.Time) (bool, error) {
	s.acquireCalls.Add(1)
	if s.acquireFn != nil {
		return s.acquireFn(ctx, id, expireAt)
	}
	return true, nil
}

func (s *stubStore) Release(ctx context.Context, id string) error {
	s.releaseCalls.Add(1)
	if s.releaseFn != nil {
		return s.releaseFn(ctx, id)
	}
	return nil
}

// mockLockCollection 实现 lockCollection 接口。
type mockLockCollection struct {
	insertErr    error
	insertedDocs []any

	deleteErr      error
	deletedFilters []any

	createIndexErr   error
	createdModels    []mongo.IndexModel
	createIndexCalls int

	pingErr   error
	pingCalls int
}

func (m *mockLockCollection) InsertOne(_ context.Context, document any, _ ...options.Lister[options.InsertOneOptions]) (*mongo.InsertOneResult, error) {
	if m.insertErr != nil {
		return nil, m.insertErr
	}
	m.insertedDocs = append(m.insertedDocs, document)
	return &mongo.InsertOneResult{}, nil
}

func (m *mockLockCollection) DeleteOne(_ context.Context, filter any, _ ...options.Lister[options.DeleteOneOptions]) (*mongo.DeleteResult, error) {
	if m.deleteErr != nil {
		return nil, m.deleteErr
	}
	m.deletedFilters = append(m.deletedFilters, filter)
	return &mongo.DeleteResult{DeletedCount: 1}, nil
}

func (m *mockLockCollection) CreateIndex(_ context.Context, model mongo.IndexModel) (string, error) {
	m.createIndexCalls++
	if m.createIndexErr != nil {
		return "", m.createIndexErr
	}
	m.createdModels = append(m.createdModels, model)
	return ttlIndexName, nil
}

func (m *mockLockCollection) Ping(_ context.Context) error {
	m.pingCalls++
	return m.pingErr
}

func (m *mockLockCollection) Database() string { return "testdb" }
func (m *mockLockCollection) Name() string     { return "locks" }

// duplicateKeyErr 构造可被 mongo.IsDuplicateKeyError 识别的唯一键冲突。
func duplicateKeyErr() error {
	return mongo.WriteException{
		WriteErrors: mongo.WriteErrors{
			{Code: 11000, Message: "E11000 duplicate key error"},
		},
	}
}

// fakeTxn 实现 clientv3.Txn 接口。
type fakeTxn struct {
	succeeded bool
	commitErr error

	cmps    []clientv3.Cmp
	thenOps []clientv3.Op
}

func (t *fakeTxn) If(cs ...clientv3.Cmp) clientv3.Txn {
	t.cmps = append(t.cmps, cs...)
	return t
}

func (t *fakeTxn) Then(ops ...clientv3.Op) clientv3.Txn {
	t.thenOps = append(t.thenOps, ops...)
	return t
}

func (t *fakeTxn) Else(_ ...clientv3.Op) clientv3.Txn {
	return t
}

func (t *fakeTxn) Commit() (*clientv3.TxnResponse, error) {
	if t.commitErr != nil {
		return nil, t.commitErr
	}
	return &clientv3.TxnResponse{Succeeded: t.succeeded}, nil
}

// fakeEtcdOps 实现 etcdClientOps 接口。
type fakeEtcdOps struct {
	grantErr   error
	grantTTLs  []int64
	nextLease  clientv3.LeaseID
	revokedIDs []clientv3.LeaseID

	txn *fakeTxn

	deleteErr   error
	deletedKeys []string

	getErr error
}

func (f *fakeEtcdOps) Grant(_ context.Context, ttl int64) (*clientv3.LeaseGrantResponse, error) {
	if f.grantErr != nil {
		return nil, f.grantErr
	}
	f.grantTTLs = append(f.grantTTLs, ttl)
	if f.nextLease == 0 {
		f.nextLease = 42
	}
	return &clientv3.LeaseGrantResponse{ID: f.nextLease, TTL: ttl}, nil
}

func (f *fakeEtcdOps) Revoke(_ context.Context, id clientv3.LeaseID) (*clientv3.LeaseRevokeResponse, error) {
	f.revokedIDs = append(f.revokedIDs, id)
	return &clientv3.LeaseRevokeResponse{}, nil
}

func (f *fakeEtcdOps) Txn(_ context.Context) clientv3.Txn {
	return f.txn
}

func (f *fakeEtcdOps) Get(_ context.Context, _ string, _ ...clientv3.OpOption) (*clientv3.GetResponse, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	return &clientv3.GetResponse{}, nil
}

func (f *fakeEtcdOps) Delete(_ context.Context, key string, _ ...clientv3.OpOption) (*clientv3.DeleteResponse, error) {
	if f.deleteErr != nil {
		return nil, f.deleteErr
	}
	f.deletedKeys = append(f.deletedKeys, key)
	return &clientv3.DeleteResponse{Deleted: 1}, nil
}
