package archive

import (
	"context"

	"github.com/fadedpez/kolovegas/pkg/entities"
	"github.com/stretchr/testify/mock"
)

// MockArchiver is a testify mock of Archiver for use in tests
type MockArchiver struct {
	mock.Mock
}

// NewMockArchiver creates a new mock archiver
func NewMockArchiver(t mock.TestingT) *MockArchiver {
	m := &MockArchiver{}
	m.Mock.Test(t)
	return m
}

func (m *MockArchiver) IndexSettlement(ctx context.Context, settlement entities.Settlement) error {
	args := m.Called(ctx, settlement)
	return args.Error(0)
}

func (m *MockArchiver) RecentSettlements(ctx context.Context, limit int) ([]entities.Settlement, error) {
	args := m.Called(ctx, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]entities.Settlement), args.Error(1)
}

func (m *MockArchiver) Close() error {
	args := m.Called()
	return args.Error(0)
}
