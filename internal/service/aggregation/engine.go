// Package aggregation отвечает на оконные запросы дашборда:
// статистика пайплайнов, история запусков, метрики качества,
// системные серии и общая сводка. Состояние не изменяется.
package aggregation

import (
	"context"
	"math"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kargones/pipeline-monitor/internal/adapter/store"
	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/metrics"
	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
)

const day = 24 * time.Hour

// Engine выполняет агрегирующие запросы. Каждый вызов читает хранилище
// заново внутри одной области чтения; now вычисляется один раз за вызов.
type Engine struct {
	store   store.SnapshotReader
	metrics metrics.Collector
	logger  logging.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// Option настраивает Engine.
type Option func(*Engine)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithTracer подменяет tracer.
func WithTracer(t trace.Tracer) Option {
	return func(e *Engine) { e.tracer = t }
}

// New создаёт Engine.
func New(r store.SnapshotReader, m metrics.Collector, l logging.Logger, opts ...Option) *Engine {
	if m == nil {
		m = metrics.NewNopCollector()
	}
	e := &Engine{
		store:   r,
		metrics: m,
		logger:  logging.Component(l, "aggregation"),
		tracer:  tracing.Tracer(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// run открывает спан, область чтения и учитывает длительность запроса.
func (e *Engine) run(ctx context.Context, op string, attrs []attribute.KeyValue, fn func(context.Context, store.Reader) error) error {
	ctx, span := e.tracer.Start(ctx, "aggregation."+op, trace.WithAttributes(attrs...))
	defer span.End()

	started := time.Now()
	err := e.store.ReadSnapshot(ctx, func(r store.Reader) error {
		return fn(ctx, r)
	})
	e.metrics.ObserveQuery(op, time.Since(started), err == nil)

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, apperrors.Code(err))
		tracing.Logger(ctx, e.logger).Error("агрегирующий запрос не выполнен",
			"op", op,
			"code", apperrors.Code(err),
			"error", err.Error(),
		)
		return apperrors.Storage(apperrors.ErrStorageRead, "не удалось прочитать данные", err)
	}
	return nil
}

// window возвращает [now-d, now] в UTC.
func (e *Engine) window(d time.Duration) (time.Time, time.Time) {
	now := e.now().UTC()
	return now.Add(-d), now
}

// ListPipelinesWithStats возвращает статистику по каждому когда-либо
// записанному пайплайну, по алфавиту.
func (e *Engine) ListPipelinesWithStats(ctx context.Context, windowDays int) ([]PipelineStats, error) {
	if err := pipeline.ValidateWindowDays(windowDays); err != nil {
		return nil, err
	}
	from, to := e.window(time.Duration(windowDays) * day)

	result := make([]PipelineStats, 0)
	err := e.run(ctx, "list_pipelines", []attribute.KeyValue{attribute.Int("window.days", windowDays)},
		func(ctx context.Context, r store.Reader) error {
			names, err := r.PipelineNames(ctx)
			if err != nil {
				return err
			}
			for _, name := range names {
				latest, err := r.LatestExecution(ctx, name)
				if err != nil {
					return err
				}
				stats, err := r.ExecutionStats(ctx, name, from, to)
				if err != nil {
					return err
				}

				ps := PipelineStats{
					Name:               name,
					LatestStatus:       StatusUnknown,
					TotalRuns:          stats.Total,
					SuccessCount:       stats.SuccessCount,
					SuccessRate:        successRate(stats.SuccessCount, stats.Total),
					AvgDurationSeconds: stats.AvgSuccessDuration,
				}
				if latest != nil {
					ps.LatestStatus = string(latest.Status)
					t := latest.StartTime
					ps.LatestExecutionTime = &t
				}
				result = append(result, ps)
			}
			return nil
		})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// ListExecutions возвращает запуски пайплайна в окне, новые первыми,
// не больше limit. limit < 1 отклоняется.
func (e *Engine) ListExecutions(ctx context.Context, name string, windowDays, limit int) ([]pipeline.Execution, error) {
	if err := pipeline.ValidateWindowDays(windowDays); err != nil {
		return nil, err
	}
	if err := pipeline.ValidateLimit(limit); err != nil {
		return nil, err
	}
	name = pipeline.NormalizeName(name)
	from, to := e.window(time.Duration(windowDays) * day)

	var result []pipeline.Execution
	err := e.run(ctx, "list_executions", []attribute.KeyValue{
		attribute.String("pipeline.name", name),
		attribute.Int("window.days", windowDays),
		attribute.Int("limit", limit),
	}, func(ctx context.Context, r store.Reader) error {
		var err error
		result, err = r.Executions(ctx, name, from, to, limit)
		return err
	})
	if err != nil {
		return nil, err
	}
	if result == nil {
		result = make([]pipeline.Execution, 0)
	}
	return result, nil
}

// ListQualityMetrics группирует метрики качества пайплайна по имени
// метрики. Группы идут в порядке первого появления в выборке
// (новые первыми), внутри группы — по убыванию времени.
func (e *Engine) ListQualityMetrics(ctx context.Context, name string, windowDays int) (QualityGroups, error) {
	if err := pipeline.ValidateWindowDays(windowDays); err != nil {
		return nil, err
	}
	name = pipeline.NormalizeName(name)
	from, to := e.window(time.Duration(windowDays) * day)

	var rows []pipeline.QualityMetric
	err := e.run(ctx, "list_quality", []attribute.KeyValue{
		attribute.String("pipeline.name", name),
		attribute.Int("window.days", windowDays),
	}, func(ctx context.Context, r store.Reader) error {
		var err error
		rows, err = r.QualityMetrics(ctx, name, from, to)
		return err
	})
	if err != nil {
		return nil, err
	}
	return groupQuality(rows), nil
}

func groupQuality(rows []pipeline.QualityMetric) QualityGroups {
	groups := make(QualityGroups, 0)
	index := make(map[string]int)
	for _, m := range rows {
		i, ok := index[m.MetricName]
		if !ok {
			i = len(groups)
			index[m.MetricName] = i
			groups = append(groups, QualityGroup{MetricName: m.MetricName})
		}
		groups[i].Points = append(groups[i].Points, QualityPoint{
			Value:     m.Value,
			Threshold: m.Threshold,
			Passed:    m.Passed,
			Timestamp: m.Timestamp,
		})
	}
	return groups
}

// ListSystemMetrics возвращает серии cpu, memory и disk за windowHours
// по возрастанию времени. Строки неизвестных типов пропускаются.
func (e *Engine) ListSystemMetrics(ctx context.Context, windowHours int) (*SystemSeries, error) {
	if err := pipeline.ValidateWindowHours(windowHours); err != nil {
		return nil, err
	}
	from, to := e.window(time.Duration(windowHours) * time.Hour)

	var rows []pipeline.SystemMetric
	err := e.run(ctx, "list_system", []attribute.KeyValue{attribute.Int("window.hours", windowHours)},
		func(ctx context.Context, r store.Reader) error {
			var err error
			rows, err = r.SystemMetrics(ctx, from, to)
			return err
		})
	if err != nil {
		return nil, err
	}

	series := &SystemSeries{
		CPU:    make([]SystemPoint, 0),
		Memory: make([]SystemPoint, 0),
		Disk:   make([]SystemPoint, 0),
	}
	dropped := 0
	for _, m := range rows {
		p := SystemPoint{Value: m.Value, Unit: m.Unit, Timestamp: m.Timestamp}
		switch m.Type {
		case pipeline.MetricCPU:
			series.CPU = append(series.CPU, p)
		case pipeline.MetricMemory:
			series.Memory = append(series.Memory, p)
		case pipeline.MetricDisk:
			series.Disk = append(series.Disk, p)
		default:
			dropped++
		}
	}
	if dropped > 0 {
		tracing.Logger(ctx, e.logger).Warn("пропущены системные метрики неизвестного типа", "count", dropped)
	}
	return series, nil
}

// Summary возвращает сводку по всем пайплайнам в окне и общее
// число различных пайплайнов за всё время.
func (e *Engine) Summary(ctx context.Context, windowDays int) (*Summary, error) {
	if err := pipeline.ValidateWindowDays(windowDays); err != nil {
		return nil, err
	}
	from, to := e.window(time.Duration(windowDays) * day)

	sum := &Summary{PeriodDays: windowDays}
	err := e.run(ctx, "summary", []attribute.KeyValue{attribute.Int("window.days", windowDays)},
		func(ctx context.Context, r store.Reader) error {
			stats, err := r.ExecutionStats(ctx, "", from, to)
			if err != nil {
				return err
			}
			count, err := r.DistinctPipelineCount(ctx)
			if err != nil {
				return err
			}
			sum.TotalExecutions = stats.Total
			sum.SuccessCount = stats.SuccessCount
			sum.SuccessRate = successRate(stats.SuccessCount, stats.Total)
			sum.AvgDurationSeconds = stats.AvgSuccessDuration
			sum.PipelineCount = count
			return nil
		})
	if err != nil {
		return nil, err
	}
	return sum, nil
}

// successRate — доля успешных в процентах, два знака; 0 при total == 0.
func successRate(success, total int64) float64 {
	if total <= 0 {
		return 0
	}
	return round2(float64(success) / float64(total) * 100)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
