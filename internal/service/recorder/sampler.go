package recorder

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
)

// DefaultSchedule — расписание сбора системных метрик по умолчанию.
const DefaultSchedule = "@every 1m"

// SystemCollector — то, что Sampler вызывает по расписанию.
type SystemCollector interface {
	CollectSystemMetrics(ctx context.Context) error
}

// CollectorFunc адаптирует функцию к SystemCollector.
type CollectorFunc func(ctx context.Context) error

func (f CollectorFunc) CollectSystemMetrics(ctx context.Context) error { return f(ctx) }

// Collector адаптирует Recorder к SystemCollector.
func (r *Recorder) Collector() SystemCollector {
	return CollectorFunc(func(ctx context.Context) error {
		_, err := r.CollectSystemMetrics(ctx)
		return err
	})
}

// Sampler периодически собирает системные метрики по cron-расписанию.
// Запуски не перекрываются: если предыдущий сбор не завершён, очередной пропускается.
type Sampler struct {
	cron     *cron.Cron
	target   SystemCollector
	schedule string
	timeout  time.Duration
	logger   logging.Logger
}

// NewSampler проверяет расписание и создаёт Sampler.
// timeout ограничивает один цикл сбора.
func NewSampler(target SystemCollector, schedule string, timeout time.Duration, logger logging.Logger) (*Sampler, error) {
	if schedule == "" {
		schedule = DefaultSchedule
	}
	if _, err := cron.ParseStandard(schedule); err != nil {
		return nil, fmt.Errorf("некорректное расписание %q: %w", schedule, err)
	}
	logger = logging.Component(logger, "sampler")

	cl := cronLogger{logger}
	return &Sampler{
		cron: cron.New(
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		target:   target,
		schedule: schedule,
		timeout:  timeout,
		logger:   logger,
	}, nil
}

// Run запускает расписание и блокируется до отмены ctx.
// После отмены дожидается завершения текущего сбора.
func (s *Sampler) Run(ctx context.Context) error {
	if _, err := s.cron.AddFunc(s.schedule, func() { s.tick(ctx) }); err != nil {
		return fmt.Errorf("регистрация задания сбора: %w", err)
	}
	s.cron.Start()
	s.logger.Info("сбор системных метрик запущен", "schedule", s.schedule)

	<-ctx.Done()
	<-s.cron.Stop().Done()
	s.logger.Info("сбор системных метрик остановлен")
	return nil
}

func (s *Sampler) tick(parent context.Context) {
	if parent.Err() != nil {
		return
	}
	ctx := tracing.WithTraceID(parent, tracing.GenerateTraceID())
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.target.CollectSystemMetrics(ctx); err != nil {
		tracing.Logger(ctx, s.logger).Error("сбор системных метрик не удался", "error", err.Error())
	}
}

// cronLogger направляет журнал cron в logging.Logger.
type cronLogger struct {
	l logging.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...any) {
	c.l.Debug("cron: "+msg, keysAndValues...)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...any) {
	c.l.Error("cron: "+msg, append(keysAndValues, "error", err.Error())...)
}
