// Package di собирает зависимости приложения через Wire.
package di

import (
	"io"

	"github.com/Kargones/pipeline-monitor/internal/adapter/store"
	"github.com/Kargones/pipeline-monitor/internal/adapter/sysinfo"
	"github.com/Kargones/pipeline-monitor/internal/config"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/metrics"
	"github.com/Kargones/pipeline-monitor/internal/pkg/output"
	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
	"github.com/Kargones/pipeline-monitor/internal/service/aggregation"
	"github.com/Kargones/pipeline-monitor/internal/service/recorder"
)

// App содержит инициализированные зависимости приложения.
// Создаётся через Wire DI в InitializeApp().
//
// При добавлении новых зависимостей:
// 1. Добавить поле в App struct
// 2. Создать провайдер в providers.go
// 3. Добавить провайдер в ProviderSet в wire.go
// 4. Перегенерировать wire_gen.go: go generate ./internal/di/...
type App struct {
	// Config передаётся извне через InitializeApp().
	Config *config.Config

	// Logger пишет в stderr или файл согласно секции logging.
	Logger logging.Logger

	// OutputWriter форматирует результаты команд (PM_OUTPUT_FORMAT).
	OutputWriter output.Writer

	// Stdout — приёмник результатов команд. В тестах подменяется буфером.
	Stdout io.Writer

	// TraceID коррелирует логи и спаны одного запуска.
	TraceID string

	// MetricsCollector — Prometheus или NopCollector при выключенных метриках.
	MetricsCollector metrics.Collector

	// TracerShutdown отправляет буферизированные спаны при завершении.
	TracerShutdown tracing.ShutdownFunc

	// Store — реляционное хранилище. Соединение открывает команда
	// через Connect; закрывается cleanup-функцией InitializeApp.
	Store store.Client

	// Provider читает показатели хоста.
	Provider sysinfo.Provider

	// Recorder — запись наблюдений.
	Recorder *recorder.Recorder

	// Engine — агрегирующие запросы.
	Engine *aggregation.Engine
}
