package mocks

import (
	"context"
	"io"
	"time"

	"coiapi/internal/storage"

	"github.com/stretchr/testify/mock"
)

// MockStorage is a testify mock of storage.Storage. Put and Get also accept a
// func return value so a test can compute the result from the call arguments.
type MockStorage struct {
	mock.Mock
}

// PutFunc is the computed-result form accepted by MockStorage.Put.
type PutFunc func(context.Context, string, io.Reader, storage.PutObjectOptions) storage.ObjectInfo

// EchoPut reports the object as stored under the requested key with the given
// size and content type.
func EchoPut() PutFunc {
	return func(_ context.Context, key string, _ io.Reader, opt storage.PutObjectOptions) storage.ObjectInfo {
		return storage.ObjectInfo{Key: key, Size: opt.Size, ContentType: opt.ContentType, Metadata: opt.Metadata}
	}
}

func (m *MockStorage) Put(ctx context.Context, key string, r io.Reader, opt storage.PutObjectOptions) (storage.ObjectInfo, error) {
	args := m.Called(ctx, key, r, opt)
	switch f := args.Get(0).(type) {
	case PutFunc:
		return f(ctx, key, r, opt), args.Error(1)
	case func(context.Context, string, io.Reader, storage.PutObjectOptions) storage.ObjectInfo:
		return f(ctx, key, r, opt), args.Error(1)
	}
	return args.Get(0).(storage.ObjectInfo), args.Error(1)
}

// Get returns a nil body when the first return value is nil, so missing-object
// errors can be set up as Return(nil, storage.ObjectInfo{}, err).
func (m *MockStorage) Get(ctx context.Context, key string) (io.ReadCloser, storage.ObjectInfo, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, storage.ObjectInfo{}, args.Error(2)
	}
	return args.Get(0).(io.ReadCloser), args.Get(1).(storage.ObjectInfo), args.Error(2)
}

func (m *MockStorage) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *MockStorage) PresignGet(ctx context.Context, key string, expiry time.Duration) (string, error) {
	args := m.Called(ctx, key, expiry)
	return args.String(0), args.Error(1)
}
