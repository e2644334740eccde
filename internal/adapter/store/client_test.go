package store

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	mssqldb "github.com/denisenkom/go-mssqldb"
	"github.com/go-sql-driver/mysql"
	"github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
)

// newMockClient создаёт client поверх sqlmock для указанного диалекта.
func newMockClient(t *testing.T, driver string) (*client, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err, "ошибка создания sqlmock")
	t.Cleanup(func() { _ = db.Close() })

	d, err := dialectFor(driver)
	require.NoError(t, err)

	return &client{
		db:      db,
		dialect: d,
		logger:  logging.NewNopLogger(),
		opts: Options{
			Driver:        driver,
			RetryAttempts: 2,
			RetryInterval: time.Millisecond,
		},
	}, mock
}

func TestNewClient(t *testing.T) {
	tests := []struct {
		name     string
		opts     Options
		wantErr  bool
		wantPort int
		wantPath string
	}{
		{
			name:     "пустые параметры - sqlite по умолчанию",
			opts:     Options{},
			wantPath: DefaultSQLitePath,
		},
		{
			name:     "mssql - порт по умолчанию",
			opts:     Options{Driver: DriverMSSQL, Host: "sql-01"},
			wantPort: DefaultMSSQLPort,
		},
		{
			name:     "mysql - порт по умолчанию",
			opts:     Options{Driver: DriverMySQL, Host: "db"},
			wantPort: DefaultMySQLPort,
		},
		{
			name:    "mysql без хоста",
			opts:    Options{Driver: DriverMySQL},
			wantErr: true,
		},
		{
			name:    "неизвестный драйвер",
			opts:    Options{Driver: "oracle"},
			wantErr: true,
		},
		{
			name:    "некорректный порт",
			opts:    Options{Driver: DriverMSSQL, Host: "h", Port: 70000},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewClient(tt.opts, nil)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, apperrors.IsStorage(err))
				return
			}
			require.NoError(t, err)

			cli, ok := c.(*client)
			require.True(t, ok, "NewClient() не вернул *client")
			assert.Equal(t, tt.wantPort, cli.opts.Port)
			assert.Equal(t, tt.wantPath, cli.opts.Path)
			assert.Equal(t, DefaultTimeout, cli.opts.Timeout)
			assert.Equal(t, uint(DefaultRetryAttempts), cli.opts.RetryAttempts)
		})
	}
}

func TestClient_DSN(t *testing.T) {
	t.Run("mssql экранирует параметры", func(t *testing.T) {
		c, err := NewClient(Options{Driver: DriverMSSQL, Host: "sql-01", User: "mon", Password: "p;w=d", Database: "metrics"}, nil)
		require.NoError(t, err)

		dsn := c.(*client).dsn()
		assert.Contains(t, dsn, "server=sql-01;")
		assert.Contains(t, dsn, "port=1433;")
		assert.Contains(t, dsn, "password=p%3Bw%3Dd;")
		assert.Contains(t, dsn, "encrypt=disable")
	})

	t.Run("mysql включает parseTime", func(t *testing.T) {
		c, err := NewClient(Options{Driver: DriverMySQL, Host: "db", User: "mon", Password: "secret", Database: "metrics"}, nil)
		require.NoError(t, err)

		dsn := c.(*client).dsn()
		cfg, err := mysql.ParseDSN(dsn)
		require.NoError(t, err)
		assert.True(t, cfg.ParseTime)
		assert.Equal(t, "db:3306", cfg.Addr)
		assert.Equal(t, "metrics", cfg.DBName)
	})

	t.Run("sqlite использует путь", func(t *testing.T) {
		c, err := NewClient(Options{Driver: DriverSQLite, Path: ":memory:"}, nil)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(c.(*client).dsn(), "file::memory:?"))
	})

	t.Run("готовый DSN имеет приоритет", func(t *testing.T) {
		c, err := NewClient(Options{Driver: DriverMySQL, DSN: "u:p@tcp(x:1)/db"}, nil)
		require.NoError(t, err)

		assert.Equal(t, "u:p@tcp(x:1)/db", c.(*client).dsn())
	})
}

func TestDialect_Rebind(t *testing.T) {
	ms, err := dialectFor(DriverMSSQL)
	require.NoError(t, err)
	lite, err := dialectFor(DriverSQLite)
	require.NoError(t, err)

	q := "SELECT a FROM t WHERE b = ? AND c >= ? AND c <= ?"
	assert.Equal(t, "SELECT a FROM t WHERE b = @p1 AND c >= @p2 AND c <= @p3", ms.rebind(q))
	assert.Equal(t, q, lite.rebind(q))
}

func TestDialect_InsertAndLimit(t *testing.T) {
	tests := []struct {
		driver     string
		wantInsert string
		wantSelect string
		wantArgs   []any
	}{
		{
			driver:     DriverMSSQL,
			wantInsert: "INSERT INTO t (a, b) OUTPUT INSERTED.id VALUES (@p1, @p2)",
			wantSelect: "SELECT TOP (@p1) x FROM t WHERE a = @p2",
			wantArgs:   []any{5, "n"},
		},
		{
			driver:     DriverSQLite,
			wantInsert: "INSERT INTO t (a, b) VALUES (?, ?) RETURNING id",
			wantSelect: "SELECT x FROM t WHERE a = ? LIMIT ?",
			wantArgs:   []any{"n", 5},
		},
		{
			driver:     DriverMySQL,
			wantInsert: "INSERT INTO t (a, b) VALUES (?, ?)",
			wantSelect: "SELECT x FROM t WHERE a = ? LIMIT ?",
			wantArgs:   []any{"n", 5},
		},
	}

	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			d, err := dialectFor(tt.driver)
			require.NoError(t, err)

			assert.Equal(t, tt.wantInsert, d.insertSQL("t", []string{"a", "b"}))

			q, args := d.limitedSelect("x", "FROM t WHERE a = ?", 5, []any{"n"})
			assert.Equal(t, tt.wantSelect, q)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}

func TestClient_Ping(t *testing.T) {
	t.Run("успешный ping", func(t *testing.T) {
		cli, mock := newMockClient(t, DriverSQLite)
		mock.ExpectPing()

		assert.NoError(t, cli.Ping(context.Background()))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ping без соединения", func(t *testing.T) {
		cli := &client{}
		err := cli.Ping(context.Background())

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrStorageConnect, apperrors.Code(err))
	})
}

func TestClient_Migrate(t *testing.T) {
	cli, mock := newMockClient(t, DriverSQLite)
	for range sqliteSchema {
		mock.ExpectExec("CREATE").WillReturnResult(sqlmock.NewResult(0, 0))
	}

	require.NoError(t, cli.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_Migrate_Error(t *testing.T) {
	cli, mock := newMockClient(t, DriverMySQL)
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS pipeline_executions").WillReturnError(errors.New("denied"))

	err := cli.Migrate(context.Background())

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrStorageMigrate, apperrors.Code(err))
}

func TestClient_InsertExecution(t *testing.T) {
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(100 * time.Second)
	dur := 100.0
	exec := &pipeline.Execution{
		PipelineName:     "etl_pipeline",
		Status:           pipeline.StatusSuccess,
		StartTime:        start,
		EndTime:          &end,
		DurationSeconds:  &dur,
		RecordsProcessed: 1000,
		CreatedAt:        end,
	}

	t.Run("sqlite RETURNING id", func(t *testing.T) {
		cli, mock := newMockClient(t, DriverSQLite)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO pipeline_executions")).
			WithArgs("etl_pipeline", "success", start, end, dur, int64(1000), nil, end).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))
		mock.ExpectCommit()

		id, err := cli.InsertExecution(context.Background(), exec)

		require.NoError(t, err)
		assert.Equal(t, int64(7), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("mssql OUTPUT INSERTED", func(t *testing.T) {
		cli, mock := newMockClient(t, DriverMSSQL)
		mock.ExpectBegin()
		mock.ExpectQuery(regexp.QuoteMeta("OUTPUT INSERTED.id VALUES (@p1, @p2, @p3, @p4, @p5, @p6, @p7, @p8)")).
			WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(42)))
		mock.ExpectCommit()

		id, err := cli.InsertExecution(context.Background(), exec)

		require.NoError(t, err)
		assert.Equal(t, int64(42), id)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("ошибка вставки - откат", func(t *testing.T) {
		cli, mock := newMockClient(t, DriverSQLite)
		mock.ExpectBegin()
		mock.ExpectQuery("INSERT INTO pipeline_executions").WillReturnError(errors.New("disk I/O error"))
		mock.ExpectRollback()

		_, err := cli.InsertExecution(context.Background(), exec)

		require.Error(t, err)
		assert.Equal(t, apperrors.ErrStorageWrite, apperrors.Code(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("без соединения", func(t *testing.T) {
		cli := &client{dialect: dialect{name: DriverSQLite}}

		_, err := cli.InsertExecution(context.Background(), exec)

		require.Error(t, err)
		assert.True(t, apperrors.IsStorage(err))
	})
}

func TestClient_InsertQualityMetric(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	cli, mock := newMockClient(t, DriverMySQL)
	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO data_quality_metrics (pipeline_name, metric_name, metric_value, threshold, passed, recorded_at) VALUES (?, ?, ?, ?, ?, ?)")).
		WithArgs("etl_pipeline", "completeness", 0.95, 0.95, true, ts).
		WillReturnResult(sqlmock.NewResult(11, 1))
	mock.ExpectCommit()

	id, err := cli.InsertQualityMetric(context.Background(), &pipeline.QualityMetric{
		PipelineName: "etl_pipeline",
		MetricName:   "completeness",
		Value:        0.95,
		Threshold:    0.95,
		Passed:       true,
		Timestamp:    ts,
	})

	require.NoError(t, err)
	assert.Equal(t, int64(11), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_InsertSystemMetrics(t *testing.T) {
	ts := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	rows := pipeline.SystemSample{CPU: 12.5, Memory: 40, Disk: 70, Timestamp: ts}.Metrics()

	t.Run("все три строки в одной транзакции", func(t *testing.T) {
		cli, mock := newMockClient(t, DriverMySQL)
		mock.ExpectBegin()
		for i, r := range rows {
			mock.ExpectExec("INSERT INTO system_metrics").
				WithArgs(string(r.Type), r.Value, "%", ts).
				WillReturnResult(sqlmock.NewResult(int64(i+1), 1))
		}
		mock.ExpectCommit()

		ids, err := cli.InsertSystemMetrics(context.Background(), rows)

		require.NoError(t, err)
		assert.Equal(t, []int64{1, 2, 3}, ids)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("сбой третьей вставки - откат всей пачки", func(t *testing.T) {
		cli, mock := newMockClient(t, DriverMySQL)
		mock.ExpectBegin()
		mock.ExpectExec("INSERT INTO system_metrics").WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec("INSERT INTO system_metrics").WillReturnResult(sqlmock.NewResult(2, 1))
		mock.ExpectExec("INSERT INTO system_metrics").WillReturnError(errors.New("deadlock"))
		mock.ExpectRollback()

		ids, err := cli.InsertSystemMetrics(context.Background(), rows)

		require.Error(t, err)
		assert.Nil(t, ids)
		assert.Equal(t, apperrors.ErrStorageWrite, apperrors.Code(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestClient_ReadSnapshot_ExecutionStats(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(7 * 24 * time.Hour)

	tests := []struct {
		name    string
		driver  string
		pipe    string
		rows    *sqlmock.Rows
		want    ExecutionStats
		wantAvg *float64
	}{
		{
			name:   "mssql с фильтром по имени",
			driver: DriverMSSQL,
			pipe:   "etl_pipeline",
			rows:   sqlmock.NewRows([]string{"total", "success", "avg"}).AddRow(int64(3), int64(2), 150.0),
			want:   ExecutionStats{Total: 3, SuccessCount: 2},
		},
		{
			name:   "sqlite без запусков - avg NULL",
			driver: DriverSQLite,
			rows:   sqlmock.NewRows([]string{"total", "success", "avg"}).AddRow(int64(0), int64(0), nil),
			want:   ExecutionStats{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cli, mock := newMockClient(t, tt.driver)
			mock.ExpectBegin()
			q := mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)"))
			if tt.pipe != "" {
				q.WithArgs("success", "success", from, to, tt.pipe)
			} else {
				q.WithArgs("success", "success", from, to)
			}
			q.WillReturnRows(tt.rows)
			mock.ExpectRollback()

			var got ExecutionStats
			err := cli.ReadSnapshot(context.Background(), func(r Reader) error {
				var err error
				got, err = r.ExecutionStats(context.Background(), tt.pipe, from, to)
				return err
			})

			require.NoError(t, err)
			assert.Equal(t, tt.want.Total, got.Total)
			assert.Equal(t, tt.want.SuccessCount, got.SuccessCount)
			if tt.want.Total == 0 {
				assert.Nil(t, got.AvgSuccessDuration)
			} else {
				require.NotNil(t, got.AvgSuccessDuration)
				assert.Equal(t, 150.0, *got.AvgSuccessDuration)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestClient_ReadSnapshot_Executions(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(30 * 24 * time.Hour)
	start := from.Add(time.Hour)
	end := start.Add(time.Minute)
	cols := []string{"id", "pipeline_name", "status", "start_time", "end_time", "duration_seconds", "records_processed", "error_message", "created_at"}

	cli, mock := newMockClient(t, DriverMSSQL)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT TOP (@p1) id, pipeline_name")).
		WithArgs(2, "etl_pipeline", from, to).
		WillReturnRows(sqlmock.NewRows(cols).
			AddRow(int64(2), "etl_pipeline", "failed", start, end, 60.0, int64(0), "timeout", end).
			AddRow(int64(1), "etl_pipeline", "running", start, nil, nil, int64(0), nil, start))
	mock.ExpectRollback()

	var got []pipeline.Execution
	err := cli.ReadSnapshot(context.Background(), func(r Reader) error {
		var err error
		got, err = r.Executions(context.Background(), "etl_pipeline", from, to, 2)
		return err
	})

	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, pipeline.StatusFailed, got[0].Status)
	require.NotNil(t, got[0].ErrorMessage)
	assert.Equal(t, "timeout", *got[0].ErrorMessage)
	require.NotNil(t, got[0].DurationSeconds)
	assert.Equal(t, 60.0, *got[0].DurationSeconds)
	assert.Nil(t, got[1].EndTime)
	assert.Nil(t, got[1].DurationSeconds)
	assert.Nil(t, got[1].ErrorMessage)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_ReadSnapshot_LatestExecutionNone(t *testing.T) {
	cli, mock := newMockClient(t, DriverSQLite)
	mock.ExpectBegin()
	mock.ExpectQuery("ORDER BY start_time DESC, id DESC LIMIT").
		WithArgs("ghost", 1).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))
	mock.ExpectRollback()

	err := cli.ReadSnapshot(context.Background(), func(r Reader) error {
		latest, err := r.LatestExecution(context.Background(), "ghost")
		assert.Nil(t, latest)
		return err
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_ReadSnapshot_QualityAndSystem(t *testing.T) {
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.Add(24 * time.Hour)
	t1 := from.Add(time.Hour)
	t2 := from.Add(2 * time.Hour)

	cli, mock := newMockClient(t, DriverSQLite)
	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("FROM data_quality_metrics")).
		WithArgs("etl_pipeline", from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "pipeline_name", "metric_name", "metric_value", "threshold", "passed", "recorded_at"}).
			AddRow(int64(5), "etl_pipeline", "completeness", 0.9, 0.95, false, t2))
	mock.ExpectQuery(regexp.QuoteMeta("FROM system_metrics")).
		WithArgs(from, to).
		WillReturnRows(sqlmock.NewRows([]string{"id", "metric_type", "metric_value", "unit", "recorded_at"}).
			AddRow(int64(1), "cpu", 10.0, "%", t1).
			AddRow(int64(4), "gpu", 99.0, "%", t2))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(DISTINCT pipeline_name)")).
		WillReturnRows(sqlmock.NewRows([]string{"n"}).AddRow(int64(4)))
	mock.ExpectRollback()

	err := cli.ReadSnapshot(context.Background(), func(r Reader) error {
		ctx := context.Background()
		q, err := r.QualityMetrics(ctx, "etl_pipeline", from, to)
		require.NoError(t, err)
		require.Len(t, q, 1)
		assert.False(t, q[0].Passed)

		s, err := r.SystemMetrics(ctx, from, to)
		require.NoError(t, err)
		require.Len(t, s, 2)
		assert.Equal(t, pipeline.MetricType("gpu"), s[1].Type, "фильтрация типов выполняется на уровне агрегации")

		n, err := r.DistinctPipelineCount(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
		return nil
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_ReadSnapshot_RetriesBegin(t *testing.T) {
	cli, mock := newMockClient(t, DriverSQLite)
	mock.ExpectBegin().WillReturnError(errors.New("connection reset by peer"))
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT DISTINCT pipeline_name").
		WillReturnRows(sqlmock.NewRows([]string{"pipeline_name"}).AddRow("a").AddRow("b"))
	mock.ExpectRollback()

	var names []string
	err := cli.ReadSnapshot(context.Background(), func(r Reader) error {
		var err error
		names, err = r.PipelineNames(context.Background())
		return err
	})

	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, names)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestClient_ReadSnapshot_QueryError(t *testing.T) {
	cli, mock := newMockClient(t, DriverSQLite)
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT DISTINCT").WillReturnError(errors.New("no such table"))
	mock.ExpectRollback()

	err := cli.ReadSnapshot(context.Background(), func(r Reader) error {
		_, err := r.PipelineNames(context.Background())
		return err
	})

	require.Error(t, err)
	assert.Equal(t, apperrors.ErrStorageRead, apperrors.Code(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestIsPermanent(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"отмена контекста", context.Canceled, true},
		{"mssql login failed", mssqldb.Error{Number: 18456}, true},
		{"mssql deadlock", mssqldb.Error{Number: 1205}, false},
		{"mysql access denied", &mysql.MySQLError{Number: 1045}, true},
		{"mysql lock wait", &mysql.MySQLError{Number: 1205}, false},
		{"sqlite not a db", sqlite3.Error{Code: sqlite3.ErrNotADB}, true},
		{"sqlite busy", sqlite3.Error{Code: sqlite3.ErrBusy}, false},
		{"сетевая ошибка", errors.New("connection refused"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isPermanent(tt.err))
		})
	}
}
