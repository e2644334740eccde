package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
)

const (
	executionSelect = "id, pipeline_name, status, start_time, end_time, duration_seconds, records_processed, error_message, created_at"
	qualitySelect   = "id, pipeline_name, metric_name, metric_value, threshold, passed, recorded_at"
	systemSelect    = "id, metric_type, metric_value, unit, recorded_at"
)

// ReadSnapshot открывает транзакцию чтения, передаёт Reader в fn и
// откатывает транзакцию после возврата fn на всех путях.
// Открытие транзакции повторяется при временных сбоях.
func (c *client) ReadSnapshot(ctx context.Context, fn func(Reader) error) error {
	if c.db == nil {
		return apperrors.NewAppError(apperrors.ErrStorageConnect, "соединение не установлено", nil)
	}

	var tx *sql.Tx
	err := c.retry(ctx, "begin-read", func() error {
		var err error
		tx, err = c.db.BeginTx(ctx, nil)
		return err
	})
	if err != nil {
		return apperrors.Storage(apperrors.ErrStorageRead, "не удалось открыть транзакцию чтения", err)
	}
	defer func() { _ = tx.Rollback() }() //nolint:errcheck // транзакция только читает

	return fn(&txReader{tx: tx, d: c.dialect})
}

// txReader выполняет запросы в рамках одной транзакции.
type txReader struct {
	tx *sql.Tx
	d  dialect
}

func readErr(err error) error {
	return apperrors.Storage(apperrors.ErrStorageRead, "не удалось прочитать данные хранилища", err)
}

func (r *txReader) PipelineNames(ctx context.Context) ([]string, error) {
	rows, err := r.tx.QueryContext(ctx,
		r.d.rebind("SELECT DISTINCT pipeline_name FROM pipeline_executions ORDER BY pipeline_name"))
	if err != nil {
		return nil, readErr(err)
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, readErr(err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return names, nil
}

func (r *txReader) LatestExecution(ctx context.Context, name string) (*pipeline.Execution, error) {
	query, args := r.d.limitedSelect(executionSelect,
		"FROM pipeline_executions WHERE pipeline_name = ? ORDER BY start_time DESC, id DESC",
		1, []any{name})

	e, err := scanExecution(r.tx.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, readErr(err)
	}
	return e, nil
}

func (r *txReader) ExecutionStats(ctx context.Context, name string, from, to time.Time) (ExecutionStats, error) {
	query := `SELECT COUNT(*),
	COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
	AVG(CASE WHEN status = ? THEN duration_seconds END)
FROM pipeline_executions
WHERE start_time >= ? AND start_time <= ?`
	args := []any{string(pipeline.StatusSuccess), string(pipeline.StatusSuccess), from.UTC(), to.UTC()}
	if name != "" {
		query += " AND pipeline_name = ?"
		args = append(args, name)
	}

	var (
		stats ExecutionStats
		avg   sql.NullFloat64
	)
	if err := r.tx.QueryRowContext(ctx, r.d.rebind(query), args...).Scan(&stats.Total, &stats.SuccessCount, &avg); err != nil {
		return ExecutionStats{}, readErr(err)
	}
	if avg.Valid {
		v := avg.Float64
		stats.AvgSuccessDuration = &v
	}
	return stats, nil
}

func (r *txReader) Executions(ctx context.Context, name string, from, to time.Time, limit int) ([]pipeline.Execution, error) {
	query, args := r.d.limitedSelect(executionSelect,
		"FROM pipeline_executions WHERE pipeline_name = ? AND start_time >= ? AND start_time <= ? ORDER BY start_time DESC, id DESC",
		limit, []any{name, from.UTC(), to.UTC()})

	rows, err := r.tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, readErr(err)
	}
	defer rows.Close()

	result := make([]pipeline.Execution, 0)
	for rows.Next() {
		e, err := scanExecution(rows)
		if err != nil {
			return nil, readErr(err)
		}
		result = append(result, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return result, nil
}

func (r *txReader) QualityMetrics(ctx context.Context, name string, from, to time.Time) ([]pipeline.QualityMetric, error) {
	query := "SELECT " + qualitySelect + ` FROM data_quality_metrics
WHERE pipeline_name = ? AND recorded_at >= ? AND recorded_at <= ?
ORDER BY recorded_at DESC, id DESC`

	rows, err := r.tx.QueryContext(ctx, r.d.rebind(query), name, from.UTC(), to.UTC())
	if err != nil {
		return nil, readErr(err)
	}
	defer rows.Close()

	result := make([]pipeline.QualityMetric, 0)
	for rows.Next() {
		var m pipeline.QualityMetric
		if err := rows.Scan(&m.ID, &m.PipelineName, &m.MetricName, &m.Value, &m.Threshold, &m.Passed, &m.Timestamp); err != nil {
			return nil, readErr(err)
		}
		m.Timestamp = m.Timestamp.UTC()
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return result, nil
}

func (r *txReader) SystemMetrics(ctx context.Context, from, to time.Time) ([]pipeline.SystemMetric, error) {
	query := "SELECT " + systemSelect + ` FROM system_metrics
WHERE recorded_at >= ? AND recorded_at <= ?
ORDER BY recorded_at ASC, id ASC`

	rows, err := r.tx.QueryContext(ctx, r.d.rebind(query), from.UTC(), to.UTC())
	if err != nil {
		return nil, readErr(err)
	}
	defer rows.Close()

	result := make([]pipeline.SystemMetric, 0)
	for rows.Next() {
		var (
			m   pipeline.SystemMetric
			typ string
		)
		if err := rows.Scan(&m.ID, &typ, &m.Value, &m.Unit, &m.Timestamp); err != nil {
			return nil, readErr(err)
		}
		m.Type = pipeline.MetricType(typ)
		m.Timestamp = m.Timestamp.UTC()
		result = append(result, m)
	}
	if err := rows.Err(); err != nil {
		return nil, readErr(err)
	}
	return result, nil
}

func (r *txReader) DistinctPipelineCount(ctx context.Context) (int64, error) {
	var n int64
	err := r.tx.QueryRowContext(ctx,
		r.d.rebind("SELECT COUNT(DISTINCT pipeline_name) FROM pipeline_executions")).Scan(&n)
	if err != nil {
		return 0, readErr(err)
	}
	return n, nil
}

// rowScanner — общий интерфейс *sql.Row и *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanExecution(s rowScanner) (*pipeline.Execution, error) {
	var (
		e        pipeline.Execution
		status   string
		end      sql.NullTime
		duration sql.NullFloat64
		errMsg   sql.NullString
	)
	if err := s.Scan(&e.ID, &e.PipelineName, &status, &e.StartTime, &end, &duration,
		&e.RecordsProcessed, &errMsg, &e.CreatedAt); err != nil {
		return nil, err
	}
	e.Status = pipeline.Status(status)
	e.StartTime = e.StartTime.UTC()
	e.CreatedAt = e.CreatedAt.UTC()
	if end.Valid {
		t := end.Time.UTC()
		e.EndTime = &t
	}
	if duration.Valid {
		d := duration.Float64
		e.DurationSeconds = &d
	}
	if errMsg.Valid {
		msg := errMsg.String
		e.ErrorMessage = &msg
	}
	return &e, nil
}
