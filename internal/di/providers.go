package di

import (
	"io"
	"log/slog"
	"os"

	"github.com/Kargones/pipeline-monitor/internal/adapter/store"
	"github.com/Kargones/pipeline-monitor/internal/adapter/sysinfo"
	"github.com/Kargones/pipeline-monitor/internal/config"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/metrics"
	"github.com/Kargones/pipeline-monitor/internal/pkg/output"
	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
	"github.com/Kargones/pipeline-monitor/internal/service/aggregation"
	"github.com/Kargones/pipeline-monitor/internal/service/recorder"
)

// ProvideLogger создаёт Logger на основе секции logging.
// При nil Config используются значения по умолчанию.
func ProvideLogger(cfg *config.Config) logging.Logger {
	if cfg == nil {
		return logging.NewLogger(logging.DefaultConfig())
	}
	return logging.NewLogger(cfg.Logging.ToLoggingConfig())
}

// ProvideOutputWriter создаёт JSONWriter или TextWriter по Config.OutputFormat.
// Пустой или неизвестный формат — текст.
func ProvideOutputWriter(cfg *config.Config) output.Writer {
	if cfg == nil || cfg.OutputFormat == "" {
		return output.NewWriter(output.FormatText)
	}
	return output.NewWriter(cfg.OutputFormat)
}

// ProvideStdout возвращает приёмник результатов команд.
func ProvideStdout() io.Writer {
	return os.Stdout
}

// ProvideTraceID генерирует trace_id запуска (32 hex символа).
func ProvideTraceID() string {
	return tracing.GenerateTraceID()
}

// ProvideMetricsCollector создаёт Collector по секции metrics.
// При ошибке создания возвращает NopCollector и логирует ошибку.
func ProvideMetricsCollector(cfg *config.Config, logger logging.Logger) metrics.Collector {
	if cfg == nil {
		return metrics.NewNopCollector()
	}

	collector, err := metrics.NewCollector(cfg.Metrics.ToMetricsConfig(), logger)
	if err != nil {
		logger.Error("ошибка создания MetricsCollector, используется NopCollector",
			slog.String("error", err.Error()),
		)
		return metrics.NewNopCollector()
	}
	return collector
}

// ProvideTracerProvider инициализирует OTel TracerProvider.
// При ошибке возвращает nop shutdown и логирует ошибку.
func ProvideTracerProvider(cfg *config.Config, logger logging.Logger) tracing.ShutdownFunc {
	if cfg == nil {
		return tracing.NewNopTracerProvider()
	}

	shutdown, err := tracing.NewTracerProvider(cfg.Tracing.ToTracingConfig(constants.Version), logger)
	if err != nil {
		logger.Error("ошибка инициализации tracing, используется nop provider",
			slog.String("error", err.Error()),
		)
		return tracing.NewNopTracerProvider()
	}
	return shutdown
}

// ProvideStore создаёт клиент хранилища без открытия соединения.
// Cleanup закрывает пул, если команда успела подключиться.
func ProvideStore(cfg *config.Config, logger logging.Logger) (store.Client, func(), error) {
	db := config.Default().Database
	if cfg != nil {
		db = cfg.Database
	}

	client, err := store.NewClient(store.Options{
		Driver:        db.Driver,
		DSN:           db.DSN,
		Host:          db.Host,
		Port:          db.Port,
		User:          db.User,
		Password:      db.Password,
		Database:      db.Name,
		Path:          db.Path,
		Encrypt:       db.Encrypt,
		Timeout:       db.Timeout,
		MaxOpenConns:  db.MaxOpenConns,
		RetryAttempts: db.RetryAttempts,
		RetryInterval: db.RetryInterval,
	}, logging.Component(logger, "store"))
	if err != nil {
		return nil, nil, err
	}

	cleanup := func() {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("ошибка закрытия хранилища", slog.String("error", cerr.Error()))
		}
	}
	return client, cleanup, nil
}

// ProvideSysinfo создаёт провайдер показателей локального хоста.
func ProvideSysinfo(cfg *config.Config) sysinfo.Provider {
	if cfg == nil {
		return sysinfo.NewHostProvider(sysinfo.Options{})
	}
	return sysinfo.NewHostProvider(sysinfo.Options{
		CPUInterval: cfg.Sampler.CPUInterval,
		DiskPath:    cfg.Sampler.DiskPath,
	})
}

// ProvideRecorder создаёт сервис записи наблюдений.
func ProvideRecorder(st store.Client, p sysinfo.Provider, m metrics.Collector, logger logging.Logger) *recorder.Recorder {
	return recorder.New(st, p, m, logger)
}

// ProvideEngine создаёт движок агрегирующих запросов.
func ProvideEngine(st store.Client, m metrics.Collector, logger logging.Logger) *aggregation.Engine {
	return aggregation.New(st, m, logger)
}
