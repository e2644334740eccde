package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
)

// NopCollector ничего не собирает. Handler отвечает 404.
type NopCollector struct{}

// NewNopCollector создаёт NopCollector.
func NewNopCollector() *NopCollector {
	return &NopCollector{}
}

func (c *NopCollector) RecordIngest(string, string)                  {}
func (c *NopCollector) ObserveSystemSample(float64, float64, float64) {}
func (c *NopCollector) RecordProviderFailure(string)                  {}
func (c *NopCollector) ObserveQuery(string, time.Duration, bool)      {}
func (c *NopCollector) RecordCommand(string, time.Duration, bool)     {}
func (c *NopCollector) Handler() http.Handler                         { return http.NotFoundHandler() }
func (c *NopCollector) Push(context.Context) error                    { return nil }

// NewCollector выбирает реализацию по конфигурации.
func NewCollector(cfg Config, logger logging.Logger) (Collector, error) {
	if !cfg.Enabled {
		return NewNopCollector(), nil
	}
	return NewPrometheusCollector(cfg, logger)
}
