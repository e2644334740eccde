// Package storetest предоставляет тестовые реализации интерфейсов пакета store:
// мок с функциональными полями и хранилище в памяти.
package storetest

import (
	"context"
	"errors"

	"github.com/Kargones/pipeline-monitor/internal/adapter/store"
	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
)

// Compile-time проверки реализации интерфейсов
var (
	_ store.Client          = (*MockClient)(nil)
	_ store.Connector       = (*MockClient)(nil)
	_ store.ExecutionWriter = (*MockClient)(nil)
	_ store.QualityWriter   = (*MockClient)(nil)
	_ store.SystemWriter    = (*MockClient)(nil)
	_ store.SnapshotReader  = (*MockClient)(nil)
)

// MockClient — мок-реализация store.Client.
// Незаданные функции возвращают нулевые значения без ошибок.
type MockClient struct {
	ConnectFunc             func(ctx context.Context) error
	CloseFunc               func() error
	PingFunc                func(ctx context.Context) error
	MigrateFunc             func(ctx context.Context) error
	InsertExecutionFunc     func(ctx context.Context, e *pipeline.Execution) (int64, error)
	InsertQualityMetricFunc func(ctx context.Context, m *pipeline.QualityMetric) (int64, error)
	InsertSystemMetricsFunc func(ctx context.Context, rows []pipeline.SystemMetric) ([]int64, error)
	ReadSnapshotFunc        func(ctx context.Context, fn func(store.Reader) error) error
}

// NewMockClient создаёт MockClient с поведением по умолчанию.
func NewMockClient() *MockClient {
	return &MockClient{}
}

// NewMockClientWithStorageError создаёт мок, все операции которого
// завершаются ошибкой хранилища с указанным кодом.
func NewMockClientWithStorageError(code string) *MockClient {
	fail := apperrors.NewAppError(code, "хранилище недоступно", errors.New("connection refused"))
	return &MockClient{
		ConnectFunc: func(context.Context) error { return fail },
		PingFunc:    func(context.Context) error { return fail },
		MigrateFunc: func(context.Context) error { return fail },
		InsertExecutionFunc: func(context.Context, *pipeline.Execution) (int64, error) {
			return 0, fail
		},
		InsertQualityMetricFunc: func(context.Context, *pipeline.QualityMetric) (int64, error) {
			return 0, fail
		},
		InsertSystemMetricsFunc: func(context.Context, []pipeline.SystemMetric) ([]int64, error) {
			return nil, fail
		},
		ReadSnapshotFunc: func(context.Context, func(store.Reader) error) error {
			return fail
		},
	}
}

func (m *MockClient) Connect(ctx context.Context) error {
	if m.ConnectFunc != nil {
		return m.ConnectFunc(ctx)
	}
	return nil
}

func (m *MockClient) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

func (m *MockClient) Ping(ctx context.Context) error {
	if m.PingFunc != nil {
		return m.PingFunc(ctx)
	}
	return nil
}

func (m *MockClient) Migrate(ctx context.Context) error {
	if m.MigrateFunc != nil {
		return m.MigrateFunc(ctx)
	}
	return nil
}

func (m *MockClient) InsertExecution(ctx context.Context, e *pipeline.Execution) (int64, error) {
	if m.InsertExecutionFunc != nil {
		return m.InsertExecutionFunc(ctx, e)
	}
	return 1, nil
}

func (m *MockClient) InsertQualityMetric(ctx context.Context, q *pipeline.QualityMetric) (int64, error) {
	if m.InsertQualityMetricFunc != nil {
		return m.InsertQualityMetricFunc(ctx, q)
	}
	return 1, nil
}

func (m *MockClient) InsertSystemMetrics(ctx context.Context, rows []pipeline.SystemMetric) ([]int64, error) {
	if m.InsertSystemMetricsFunc != nil {
		return m.InsertSystemMetricsFunc(ctx, rows)
	}
	ids := make([]int64, len(rows))
	for i := range rows {
		ids[i] = int64(i + 1)
	}
	return ids, nil
}

func (m *MockClient) ReadSnapshot(ctx context.Context, fn func(store.Reader) error) error {
	if m.ReadSnapshotFunc != nil {
		return m.ReadSnapshotFunc(ctx, fn)
	}
	return fn(NewMemoryStore())
}
