// Package recorder принимает наблюдения (запуски пайплайнов, метрики
// качества, системные замеры), проверяет их и сохраняет в хранилище.
package recorder

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kargones/pipeline-monitor/internal/adapter/store"
	"github.com/Kargones/pipeline-monitor/internal/adapter/sysinfo"
	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/metrics"
	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
)

// Writer — операции записи хранилища, нужные Recorder.
type Writer interface {
	store.ExecutionWriter
	store.QualityWriter
	store.SystemWriter
}

// Recorder валидирует входные данные до обращения к хранилищу
// и сохраняет каждую запись отдельной транзакцией.
type Recorder struct {
	store    Writer
	provider sysinfo.Provider
	metrics  metrics.Collector
	logger   logging.Logger
	tracer   trace.Tracer
	now      func() time.Time
}

// Option настраивает Recorder.
type Option func(*Recorder)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(r *Recorder) { r.now = now }
}

// WithTracer подменяет tracer (по умолчанию глобальный).
func WithTracer(t trace.Tracer) Option {
	return func(r *Recorder) { r.tracer = t }
}

// New создаёт Recorder. nil-значения collector и logger заменяются на no-op.
func New(w Writer, p sysinfo.Provider, m metrics.Collector, l logging.Logger, opts ...Option) *Recorder {
	if m == nil {
		m = metrics.NewNopCollector()
	}
	r := &Recorder{
		store:    w,
		provider: p,
		metrics:  m,
		logger:   logging.Component(l, "recorder"),
		tracer:   tracing.Tracer(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RecordExecution сохраняет запуск пайплайна новой строкой и возвращает
// его с присвоенным ID. Длительность выводится из start/end.
func (r *Recorder) RecordExecution(ctx context.Context, p pipeline.ExecutionPayload) (*pipeline.Execution, error) {
	ctx, span := r.tracer.Start(ctx, "recorder.RecordExecution")
	defer span.End()

	exec, err := pipeline.ValidateExecution(p)
	if err != nil {
		return nil, r.fail(span, metrics.KindExecution, err)
	}
	exec.DurationSeconds = pipeline.DurationSeconds(exec.StartTime, exec.EndTime)
	exec.CreatedAt = r.now().UTC()
	span.SetAttributes(
		attribute.String("pipeline.name", exec.PipelineName),
		attribute.String("pipeline.status", string(exec.Status)),
	)

	id, err := r.store.InsertExecution(ctx, exec)
	if err != nil {
		return nil, r.fail(span, metrics.KindExecution,
			apperrors.Storage(apperrors.ErrStorageWrite, "не удалось сохранить запуск пайплайна", err))
	}
	exec.ID = id

	r.metrics.RecordIngest(metrics.KindExecution, metrics.OutcomeOK)
	tracing.Logger(ctx, r.logger).Info("запуск пайплайна сохранён",
		"id", id,
		"pipeline", exec.PipelineName,
		"status", string(exec.Status),
	)
	return exec, nil
}

// RecordQualityMetric сохраняет метрику качества. Порог по умолчанию 0.95,
// Passed = value >= threshold.
func (r *Recorder) RecordQualityMetric(ctx context.Context, p pipeline.QualityPayload) (*pipeline.QualityMetric, error) {
	ctx, span := r.tracer.Start(ctx, "recorder.RecordQualityMetric")
	defer span.End()

	m, err := pipeline.ValidateQualityMetric(p)
	if err != nil {
		return nil, r.fail(span, metrics.KindQuality, err)
	}
	m.Timestamp = r.now().UTC()
	span.SetAttributes(
		attribute.String("pipeline.name", m.PipelineName),
		attribute.String("quality.metric", m.MetricName),
		attribute.Bool("quality.passed", m.Passed),
	)

	id, err := r.store.InsertQualityMetric(ctx, m)
	if err != nil {
		return nil, r.fail(span, metrics.KindQuality,
			apperrors.Storage(apperrors.ErrStorageWrite, "не удалось сохранить метрику качества", err))
	}
	m.ID = id

	r.metrics.RecordIngest(metrics.KindQuality, metrics.OutcomeOK)
	tracing.Logger(ctx, r.logger).Info("метрика качества сохранена",
		"id", id,
		"pipeline", m.PipelineName,
		"metric", m.MetricName,
		"passed", m.Passed,
	)
	return m, nil
}

// CollectSystemMetrics последовательно читает CPU, память и диск и
// сохраняет три строки одной транзакцией с общей меткой времени.
// Сбой отдельного сенсора не прерывает сбор: значение становится 0.
func (r *Recorder) CollectSystemMetrics(ctx context.Context) (*pipeline.SystemSample, error) {
	ctx, span := r.tracer.Start(ctx, "recorder.CollectSystemMetrics")
	defer span.End()

	sample := &pipeline.SystemSample{
		CPU:    r.read(ctx, pipeline.MetricCPU, r.provider.CPUPercent),
		Memory: r.read(ctx, pipeline.MetricMemory, r.provider.MemoryPercent),
		Disk:   r.read(ctx, pipeline.MetricDisk, r.provider.DiskPercent),
	}
	sample.Timestamp = r.now().UTC()

	if _, err := r.store.InsertSystemMetrics(ctx, sample.Metrics()); err != nil {
		return nil, r.fail(span, metrics.KindSystem,
			apperrors.Storage(apperrors.ErrStorageWrite, "не удалось сохранить системные метрики", err))
	}

	r.metrics.RecordIngest(metrics.KindSystem, metrics.OutcomeOK)
	r.metrics.ObserveSystemSample(sample.CPU, sample.Memory, sample.Disk)
	tracing.Logger(ctx, r.logger).Debug("системные метрики сохранены",
		"cpu", sample.CPU,
		"memory", sample.Memory,
		"disk", sample.Disk,
	)
	return sample, nil
}

// read возвращает показание сенсора или 0 при ошибке и значении вне [0,100].
func (r *Recorder) read(ctx context.Context, t pipeline.MetricType, fn func(context.Context) (float64, error)) float64 {
	v, err := fn(ctx)
	if err == nil {
		if clean, ok := pipeline.SanitizePercent(v); ok {
			return clean
		}
		err = fmt.Errorf("значение %v вне диапазона [0,100]", v)
	}

	provErr := apperrors.NewAppError(apperrors.ErrProviderRead, "показание сенсора заменено на 0", err)
	r.metrics.RecordProviderFailure(string(t))
	tracing.Logger(ctx, r.logger).Warn("сбой чтения системной метрики",
		"metric", string(t),
		"code", provErr.Code,
		"error", provErr.Error(),
	)
	return 0
}

func (r *Recorder) fail(span trace.Span, kind string, err error) error {
	outcome := metrics.OutcomeStorage
	if apperrors.IsValidation(err) {
		outcome = metrics.OutcomeValidation
	}
	r.metrics.RecordIngest(kind, outcome)
	span.RecordError(err)
	span.SetStatus(codes.Error, apperrors.Code(err))
	return err
}
