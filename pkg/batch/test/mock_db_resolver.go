// Package test provides testify mocks and model builders shared by the package tests.
package test

import (
	"context"

	"github.com/stretchr/testify/mock"

	dbadapter "github.com/tigerroll/weather-etl/pkg/batch/adapter/database"
	"github.com/tigerroll/weather-etl/pkg/batch/adapter/storage"
)

// MockDBConnectionResolver is a testify mock of database.DBConnectionResolver.
type MockDBConnectionResolver struct {
	mock.Mock
}

// ResolveDBConnection records the call and returns the predefined values.
func (m *MockDBConnectionResolver) ResolveDBConnection(ctx context.Context, name string) (dbadapter.DBConnection, error) {
	args := m.Called(ctx, name)
	conn, _ := args.Get(0).(dbadapter.DBConnection)
	return conn, args.Error(1)
}

// MockStorageConnectionResolver is a testify mock of storage.StorageConnectionResolver.
type MockStorageConnectionResolver struct {
	mock.Mock
}

// ResolveStorageConnection records the call and returns the predefined values.
func (m *MockStorageConnectionResolver) ResolveStorageConnection(ctx context.Context, name string) (storage.StorageConnection, error) {
	args := m.Called(ctx, name)
	conn, _ := args.Get(0).(storage.StorageConnection)
	return conn, args.Error(1)
}

var (
	_ dbadapter.DBConnectionResolver    = (*MockDBConnectionResolver)(nil)
	_ storage.StorageConnectionResolver = (*MockStorageConnectionResolver)(nil)
)
