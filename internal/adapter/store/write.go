package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
)

var (
	executionColumns = []string{
		"pipeline_name", "status", "start_time", "end_time", "duration_seconds",
		"records_processed", "error_message", "created_at",
	}
	qualityColumns = []string{
		"pipeline_name", "metric_name", "metric_value", "threshold", "passed", "recorded_at",
	}
	systemColumns = []string{
		"metric_type", "metric_value", "unit", "recorded_at",
	}
)

// InsertExecution вставляет запуск отдельной транзакцией.
func (c *client) InsertExecution(ctx context.Context, e *pipeline.Execution) (int64, error) {
	var id int64
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = c.insert(ctx, tx, "pipeline_executions", executionColumns,
			e.PipelineName,
			string(e.Status),
			e.StartTime.UTC(),
			nullTime(e.EndTime),
			nullFloat(e.DurationSeconds),
			e.RecordsProcessed,
			nullString(e.ErrorMessage),
			e.CreatedAt.UTC(),
		)
		return err
	})
	if err != nil {
		return 0, apperrors.Storage(apperrors.ErrStorageWrite, "не удалось сохранить запуск пайплайна", err)
	}
	return id, nil
}

// InsertQualityMetric вставляет метрику качества отдельной транзакцией.
func (c *client) InsertQualityMetric(ctx context.Context, m *pipeline.QualityMetric) (int64, error) {
	var id int64
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		var err error
		id, err = c.insert(ctx, tx, "data_quality_metrics", qualityColumns,
			m.PipelineName,
			m.MetricName,
			m.Value,
			m.Threshold,
			m.Passed,
			m.Timestamp.UTC(),
		)
		return err
	})
	if err != nil {
		return 0, apperrors.Storage(apperrors.ErrStorageWrite, "не удалось сохранить метрику качества", err)
	}
	return id, nil
}

// InsertSystemMetrics вставляет все строки одной транзакцией.
// При ошибке любой вставки транзакция откатывается целиком.
func (c *client) InsertSystemMetrics(ctx context.Context, rows []pipeline.SystemMetric) ([]int64, error) {
	ids := make([]int64, 0, len(rows))
	err := c.inTx(ctx, func(tx *sql.Tx) error {
		for _, r := range rows {
			id, err := c.insert(ctx, tx, "system_metrics", systemColumns,
				string(r.Type),
				r.Value,
				r.Unit,
				r.Timestamp.UTC(),
			)
			if err != nil {
				return err
			}
			ids = append(ids, id)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.Storage(apperrors.ErrStorageWrite, "не удалось сохранить системные метрики", err)
	}
	return ids, nil
}

// inTx выполняет fn в транзакции. Rollback вызывается на всех путях;
// после успешного Commit он ничего не делает.
func (c *client) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	if c.db == nil {
		return apperrors.NewAppError(apperrors.ErrStorageConnect, "соединение не установлено", nil)
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // после Commit возвращает ErrTxDone

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func (c *client) insert(ctx context.Context, tx *sql.Tx, table string, cols []string, args ...any) (int64, error) {
	query := c.dialect.insertSQL(table, cols)

	if c.dialect.id == idLastInsertID {
		res, err := tx.ExecContext(ctx, query, args...)
		if err != nil {
			return 0, err
		}
		return res.LastInsertId()
	}

	var id int64
	if err := tx.QueryRowContext(ctx, query, args...).Scan(&id); err != nil {
		return 0, err
	}
	return id, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
