package config

import (
	"time"

	"github.com/Kargones/pipeline-monitor/internal/pkg/metrics"
)

// MetricsConfig — Prometheus метрики самого сервиса.
type MetricsConfig struct {
	// Enabled — включены ли метрики (по умолчанию false).
	Enabled bool `yaml:"enabled" env:"PM_METRICS_ENABLED"`

	// PushgatewayURL — URL Pushgateway для разовых CLI команд.
	// Пример: "http://pushgateway:9091"
	PushgatewayURL string `yaml:"pushgatewayUrl" env:"PM_METRICS_PUSHGATEWAY_URL"`

	// JobName — имя job для группировки метрик.
	JobName string `yaml:"jobName" env:"PM_METRICS_JOB_NAME" env-default:"pipeline-monitor"`

	// Timeout — таймаут HTTP запросов к Pushgateway.
	Timeout time.Duration `yaml:"timeout" env:"PM_METRICS_TIMEOUT" env-default:"10s"`

	// InstanceLabel — переопределение instance label.
	// Если пусто — используется hostname.
	InstanceLabel string `yaml:"instanceLabel" env:"PM_METRICS_INSTANCE"`
}

func getDefaultMetricsConfig() MetricsConfig {
	d := metrics.DefaultConfig()
	return MetricsConfig{
		Enabled:       d.Enabled,
		JobName:       d.JobName,
		Timeout:       d.Timeout,
		InstanceLabel: d.InstanceLabel,
	}
}

// ToMetricsConfig переводит секцию в конфигурацию пакета metrics.
func (c MetricsConfig) ToMetricsConfig() metrics.Config {
	return metrics.Config{
		Enabled:        c.Enabled,
		PushgatewayURL: c.PushgatewayURL,
		JobName:        c.JobName,
		Timeout:        c.Timeout,
		InstanceLabel:  c.InstanceLabel,
	}
}

// Validate делегирует проверку пакету metrics.
func (c *MetricsConfig) Validate() error {
	mc := c.ToMetricsConfig()
	return mc.Validate()
}
