package storage

import (
	"context"
	"encoding/json"

	"github.com/stretchr/testify/mock"
)

// MockStore is a mock implementation of Store
type MockStore struct {
	mock.Mock
}

// NewMockStore creates a new mock store
func NewMockStore(t mock.TestingT) *MockStore {
	mock := &MockStore{}
	mock.Test(t)
	return mock
}

// Put mocks the Put method
func (m *MockStore) Put(ctx context.Context, key Key, value json.RawMessage) error {
	args := m.Called(ctx, key, value)
	return args.Error(0)
}

// Get mocks the Get method
func (m *MockStore) Get(ctx context.Context, key Key) (json.RawMessage, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(json.RawMessage), args.Error(1)
}

// Keys mocks the Keys method
func (m *MockStore) Keys(ctx context.Context) ([]Key, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Key), args.Error(1)
}

// Delete mocks the Delete method
func (m *MockStore) Delete(ctx context.Context, key Key) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Close mocks the Close method
func (m *MockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
