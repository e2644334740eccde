package store

import (
	"fmt"
	"strconv"
	"strings"
)

type bindStyle int

const (
	bindQuestion bindStyle = iota // ?
	bindAtP                       // @p1, @p2 ...
)

type idStyle int

const (
	idOutputInserted idStyle = iota // INSERT ... OUTPUT INSERTED.id VALUES ...
	idReturning                     // INSERT ... VALUES ... RETURNING id
	idLastInsertID                  // Result.LastInsertId()
)

// dialect описывает различия SQL между поддерживаемыми СУБД.
// Все запросы пишутся с плейсхолдерами "?" и переписываются через rebind.
type dialect struct {
	name       string
	driverName string
	bind       bindStyle
	id         idStyle
	// top — ограничение выборки через SELECT TOP (?) вместо LIMIT ?.
	top    bool
	schema []string
}

func dialectFor(driver string) (dialect, error) {
	switch driver {
	case DriverMSSQL:
		return dialect{
			name:       DriverMSSQL,
			driverName: "sqlserver",
			bind:       bindAtP,
			id:         idOutputInserted,
			top:        true,
			schema:     mssqlSchema,
		}, nil
	case DriverSQLite:
		return dialect{
			name:       DriverSQLite,
			driverName: "sqlite3",
			bind:       bindQuestion,
			id:         idReturning,
			schema:     sqliteSchema,
		}, nil
	case DriverMySQL:
		return dialect{
			name:       DriverMySQL,
			driverName: "mysql",
			bind:       bindQuestion,
			id:         idLastInsertID,
			schema:     mysqlSchema,
		}, nil
	default:
		return dialect{}, fmt.Errorf("неподдерживаемый драйвер хранилища %q", driver)
	}
}

// rebind заменяет "?" на плейсхолдеры диалекта.
// Запросы не содержат "?" внутри строковых литералов.
func (d dialect) rebind(query string) string {
	if d.bind == bindQuestion {
		return query
	}
	var b strings.Builder
	b.Grow(len(query) + 16)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteString("@p")
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

// insertSQL строит INSERT с возвратом сгенерированного id там,
// где СУБД это поддерживает.
func (d dialect) insertSQL(table string, cols []string) string {
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", ")
	colList := strings.Join(cols, ", ")

	var q string
	switch d.id {
	case idOutputInserted:
		q = fmt.Sprintf("INSERT INTO %s (%s) OUTPUT INSERTED.id VALUES (%s)", table, colList, placeholders)
	case idReturning:
		q = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING id", table, colList, placeholders)
	default:
		q = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", table, colList, placeholders)
	}
	return d.rebind(q)
}

// limitedSelect строит SELECT с ограничением числа строк.
// Возвращает запрос и аргументы в порядке плейсхолдеров.
func (d dialect) limitedSelect(cols, rest string, limit int, args []any) (string, []any) {
	if d.top {
		q := fmt.Sprintf("SELECT TOP (?) %s %s", cols, rest)
		return d.rebind(q), append([]any{limit}, args...)
	}
	q := fmt.Sprintf("SELECT %s %s LIMIT ?", cols, rest)
	return d.rebind(q), append(append([]any{}, args...), limit)
}

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_executions (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pipeline_name VARCHAR(100) NOT NULL,
	status VARCHAR(20) NOT NULL,
	start_time DATETIME NOT NULL,
	end_time DATETIME NULL,
	duration_seconds REAL NULL,
	records_processed INTEGER NOT NULL DEFAULT 0,
	error_message TEXT NULL,
	created_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ix_pipeline_executions_name_start ON pipeline_executions (pipeline_name, start_time)`,
	`CREATE INDEX IF NOT EXISTS ix_pipeline_executions_start ON pipeline_executions (start_time)`,
	`CREATE TABLE IF NOT EXISTS data_quality_metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	pipeline_name VARCHAR(100) NOT NULL,
	metric_name VARCHAR(50) NOT NULL,
	metric_value REAL NOT NULL,
	threshold REAL NOT NULL,
	passed BOOLEAN NOT NULL,
	recorded_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ix_data_quality_metrics_name_time ON data_quality_metrics (pipeline_name, recorded_at)`,
	`CREATE TABLE IF NOT EXISTS system_metrics (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	metric_type VARCHAR(50) NOT NULL,
	metric_value REAL NOT NULL,
	unit VARCHAR(20) NOT NULL,
	recorded_at DATETIME NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS ix_system_metrics_time ON system_metrics (recorded_at)`,
}

var mssqlSchema = []string{
	`IF OBJECT_ID(N'dbo.pipeline_executions', N'U') IS NULL
CREATE TABLE dbo.pipeline_executions (
	id BIGINT IDENTITY(1,1) NOT NULL PRIMARY KEY,
	pipeline_name NVARCHAR(100) NOT NULL,
	status NVARCHAR(20) NOT NULL,
	start_time DATETIME2 NOT NULL,
	end_time DATETIME2 NULL,
	duration_seconds FLOAT NULL,
	records_processed BIGINT NOT NULL DEFAULT 0,
	error_message NVARCHAR(1000) NULL,
	created_at DATETIME2 NOT NULL
)`,
	`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'ix_pipeline_executions_name_start')
CREATE INDEX ix_pipeline_executions_name_start ON dbo.pipeline_executions (pipeline_name, start_time)`,
	`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'ix_pipeline_executions_start')
CREATE INDEX ix_pipeline_executions_start ON dbo.pipeline_executions (start_time)`,
	`IF OBJECT_ID(N'dbo.data_quality_metrics', N'U') IS NULL
CREATE TABLE dbo.data_quality_metrics (
	id BIGINT IDENTITY(1,1) NOT NULL PRIMARY KEY,
	pipeline_name NVARCHAR(100) NOT NULL,
	metric_name NVARCHAR(50) NOT NULL,
	metric_value FLOAT NOT NULL,
	threshold FLOAT NOT NULL,
	passed BIT NOT NULL,
	recorded_at DATETIME2 NOT NULL
)`,
	`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'ix_data_quality_metrics_name_time')
CREATE INDEX ix_data_quality_metrics_name_time ON dbo.data_quality_metrics (pipeline_name, recorded_at)`,
	`IF OBJECT_ID(N'dbo.system_metrics', N'U') IS NULL
CREATE TABLE dbo.system_metrics (
	id BIGINT IDENTITY(1,1) NOT NULL PRIMARY KEY,
	metric_type NVARCHAR(50) NOT NULL,
	metric_value FLOAT NOT NULL,
	unit NVARCHAR(20) NOT NULL,
	recorded_at DATETIME2 NOT NULL
)`,
	`IF NOT EXISTS (SELECT 1 FROM sys.indexes WHERE name = N'ix_system_metrics_time')
CREATE INDEX ix_system_metrics_time ON dbo.system_metrics (recorded_at)`,
}

var mysqlSchema = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_executions (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	pipeline_name VARCHAR(100) NOT NULL,
	status VARCHAR(20) NOT NULL,
	start_time DATETIME(6) NOT NULL,
	end_time DATETIME(6) NULL,
	duration_seconds DOUBLE NULL,
	records_processed BIGINT NOT NULL DEFAULT 0,
	error_message VARCHAR(1000) NULL,
	created_at DATETIME(6) NOT NULL,
	INDEX ix_pipeline_executions_name_start (pipeline_name, start_time),
	INDEX ix_pipeline_executions_start (start_time)
) DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS data_quality_metrics (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	pipeline_name VARCHAR(100) NOT NULL,
	metric_name VARCHAR(50) NOT NULL,
	metric_value DOUBLE NOT NULL,
	threshold DOUBLE NOT NULL,
	passed BOOLEAN NOT NULL,
	recorded_at DATETIME(6) NOT NULL,
	INDEX ix_data_quality_metrics_name_time (pipeline_name, recorded_at)
) DEFAULT CHARSET=utf8mb4`,
	`CREATE TABLE IF NOT EXISTS system_metrics (
	id BIGINT NOT NULL AUTO_INCREMENT PRIMARY KEY,
	metric_type VARCHAR(50) NOT NULL,
	metric_value DOUBLE NOT NULL,
	unit VARCHAR(20) NOT NULL,
	recorded_at DATETIME(6) NOT NULL,
	INDEX ix_system_metrics_time (recorded_at)
) DEFAULT CHARSET=utf8mb4`,
}
