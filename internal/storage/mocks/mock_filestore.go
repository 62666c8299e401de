package mocks

import (
	"context"
	"io"

	"github.com/stretchr/testify/mock"
)

type MockFileStore struct {
	mock.Mock
}

func (m *MockFileStore) Save(ctx context.Context, filename string, r io.Reader, size int64, contentType string) (string, error) {
	args := m.Called(ctx, filename, r, size, contentType)
	return args.String(0), args.Error(1)
}

func (m *MockFileStore) Exists(ctx context.Context, path string) bool {
	args := m.Called(ctx, path)
	return args.Bool(0)
}

func (m *MockFileStore) Remove(ctx context.Context, path string) {
	m.Called(ctx, path)
}

func (m *MockFileStore) RemoveStrict(ctx context.Context, path string) error {
	args := m.Called(ctx, path)
	return args.Error(0)
}
