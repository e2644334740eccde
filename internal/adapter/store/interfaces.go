// Package store определяет интерфейсы и реализацию реляционного хранилища
// записей наблюдаемости. Интерфейсы разделены по принципу ISP:
// Connector, ExecutionWriter, QualityWriter, SystemWriter, SnapshotReader.
// Композитный интерфейс Client объединяет их.
//
// Поддерживаемые диалекты: mssql (go-mssqldb), sqlite3 (go-sqlite3),
// mysql (go-sql-driver/mysql).
package store

import (
	"context"
	"time"

	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
)

// Имена поддерживаемых драйверов.
const (
	DriverMSSQL  = "mssql"
	DriverSQLite = "sqlite3"
	DriverMySQL  = "mysql"
)

// ExecutionStats — агрегаты по запускам в окне.
type ExecutionStats struct {
	// Total — число запусков в окне.
	Total int64
	// SuccessCount — число запусков со статусом success.
	SuccessCount int64
	// AvgSuccessDuration — средняя длительность успешных запусков
	// с известной длительностью. nil если таких нет.
	AvgSuccessDuration *float64
}

// Connector управляет соединением и схемой.
type Connector interface {
	// Connect открывает пул соединений и проверяет доступность хранилища.
	Connect(ctx context.Context) error
	// Close закрывает пул соединений.
	Close() error
	// Ping проверяет доступность хранилища.
	Ping(ctx context.Context) error
	// Migrate создаёт таблицы и индексы, если их нет.
	Migrate(ctx context.Context) error
}

// ExecutionWriter сохраняет запуски пайплайнов.
type ExecutionWriter interface {
	// InsertExecution вставляет новую строку и возвращает её ID.
	InsertExecution(ctx context.Context, e *pipeline.Execution) (int64, error)
}

// QualityWriter сохраняет метрики качества данных.
type QualityWriter interface {
	// InsertQualityMetric вставляет новую строку и возвращает её ID.
	InsertQualityMetric(ctx context.Context, m *pipeline.QualityMetric) (int64, error)
}

// SystemWriter сохраняет системные метрики.
type SystemWriter interface {
	// InsertSystemMetrics вставляет все строки одной транзакцией:
	// либо все, либо ни одной.
	InsertSystemMetrics(ctx context.Context, rows []pipeline.SystemMetric) ([]int64, error)
}

// Reader — операции чтения внутри одной области чтения.
// Окно [from, to] включает обе границы.
type Reader interface {
	// PipelineNames возвращает все когда-либо записанные имена пайплайнов.
	PipelineNames(ctx context.Context) ([]string, error)
	// LatestExecution возвращает последний по start_time запуск
	// без учёта окна. nil, если запусков нет.
	LatestExecution(ctx context.Context, name string) (*pipeline.Execution, error)
	// ExecutionStats считает агрегаты по запускам в окне.
	// Пустое name означает все пайплайны.
	ExecutionStats(ctx context.Context, name string, from, to time.Time) (ExecutionStats, error)
	// Executions возвращает запуски в окне по убыванию start_time, не больше limit.
	Executions(ctx context.Context, name string, from, to time.Time, limit int) ([]pipeline.Execution, error)
	// QualityMetrics возвращает метрики качества в окне по убыванию времени.
	QualityMetrics(ctx context.Context, name string, from, to time.Time) ([]pipeline.QualityMetric, error)
	// SystemMetrics возвращает системные метрики в окне по возрастанию времени.
	SystemMetrics(ctx context.Context, from, to time.Time) ([]pipeline.SystemMetric, error)
	// DistinctPipelineCount возвращает число различных имён за всё время.
	DistinctPipelineCount(ctx context.Context) (int64, error)
}

// SnapshotReader выполняет fn внутри одной транзакции чтения.
// Транзакция всегда освобождается после возврата fn.
type SnapshotReader interface {
	ReadSnapshot(ctx context.Context, fn func(Reader) error) error
}

// Client — композитный интерфейс хранилища.
type Client interface {
	Connector
	ExecutionWriter
	QualityWriter
	SystemWriter
	SnapshotReader
}
