// Package handlertest собирает di.App на хранилище в памяти
// для тестов обработчиков команд.
package handlertest

import (
	"bytes"
	"context"
	"time"

	"github.com/Kargones/pipeline-monitor/internal/adapter/store/storetest"
	"github.com/Kargones/pipeline-monitor/internal/adapter/sysinfo/sysinfotest"
	"github.com/Kargones/pipeline-monitor/internal/config"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/metrics"
	"github.com/Kargones/pipeline-monitor/internal/pkg/output"
	"github.com/Kargones/pipeline-monitor/internal/service/aggregation"
	"github.com/Kargones/pipeline-monitor/internal/service/recorder"
)

// TraceID — фиксированный trace_id тестового App.
const TraceID = "0123456789abcdef0123456789abcdef"

// Now — фиксированное «текущее» время тестового App.
var Now = time.Date(2024, 1, 15, 12, 0, 0, 0, time.UTC)

// Fixture — App и его подменённые зависимости.
type Fixture struct {
	App      *di.App
	Store    *storetest.MemoryStore
	Provider *sysinfotest.MockProvider
	Out      *bytes.Buffer
}

// New создаёт App с выводом в буфер в формате format.
func New(format string) *Fixture {
	st := storetest.NewMemoryStore()
	provider := sysinfotest.Fixed(45.2, 67.8, 23.4)
	collector := metrics.NewNopCollector()
	logger := logging.NewNopLogger()
	clock := func() time.Time { return Now }

	cfg := config.Default()
	cfg.OutputFormat = format

	var out bytes.Buffer
	app := &di.App{
		Config:           cfg,
		Logger:           logger,
		OutputWriter:     output.NewWriter(format),
		Stdout:           &out,
		TraceID:          TraceID,
		MetricsCollector: collector,
		TracerShutdown:   func(context.Context) error { return nil },
		Store:            st,
		Provider:         provider,
		Recorder:         recorder.New(st, provider, collector, logger, recorder.WithClock(clock)),
		Engine:           aggregation.New(st, collector, logger, aggregation.WithClock(clock)),
	}
	return &Fixture{App: app, Store: st, Provider: provider, Out: &out}
}
