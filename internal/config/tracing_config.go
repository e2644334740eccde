package config

import (
	"time"

	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
)

// TracingConfig содержит настройки OpenTelemetry трейсинга.
type TracingConfig struct {
	// Enabled включает отправку трейсов в OTLP бэкенд.
	Enabled bool `yaml:"enabled" env:"PM_TRACING_ENABLED"`

	// Endpoint — URL OTLP HTTP endpoint (например, http://jaeger:4318).
	Endpoint string `yaml:"endpoint" env:"PM_TRACING_ENDPOINT"`

	// ServiceName — имя сервиса для resource attributes.
	ServiceName string `yaml:"serviceName" env:"PM_TRACING_SERVICE_NAME" env-default:"pipeline-monitor"`

	// Environment — окружение (production, staging, development).
	Environment string `yaml:"environment" env:"PM_TRACING_ENVIRONMENT" env-default:"production"`

	// Insecure — HTTP вместо HTTPS для OTLP endpoint.
	Insecure bool `yaml:"insecure" env:"PM_TRACING_INSECURE"`

	// Timeout — таймаут экспорта трейсов.
	Timeout time.Duration `yaml:"timeout" env:"PM_TRACING_TIMEOUT" env-default:"5s"`

	// SamplingRate — доля сэмплируемых трейсов (0.0 — ни один, 1.0 — все).
	SamplingRate float64 `yaml:"samplingRate" env:"PM_TRACING_SAMPLING_RATE"`
}

func getDefaultTracingConfig() TracingConfig {
	d := tracing.DefaultConfig()
	return TracingConfig{
		Enabled:      d.Enabled,
		ServiceName:  d.ServiceName,
		Environment:  d.Environment,
		Insecure:     d.Insecure,
		Timeout:      d.Timeout,
		SamplingRate: d.SamplingRate,
	}
}

// ToTracingConfig переводит секцию в конфигурацию пакета tracing.
// version попадает в resource attributes.
func (c TracingConfig) ToTracingConfig(version string) tracing.Config {
	return tracing.Config{
		Enabled:      c.Enabled,
		Endpoint:     c.Endpoint,
		ServiceName:  c.ServiceName,
		Version:      version,
		Environment:  c.Environment,
		Insecure:     c.Insecure,
		Timeout:      c.Timeout,
		SamplingRate: c.SamplingRate,
	}
}

// Validate делегирует проверку пакету tracing.
func (c *TracingConfig) Validate() error {
	tc := c.ToTracingConfig("")
	return tc.Validate()
}
