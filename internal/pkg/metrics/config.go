package metrics

import (
	"errors"
	"net/url"
	"time"
)

var (
	// ErrPushgatewayURLInvalid — URL Pushgateway задан, но некорректен.
	ErrPushgatewayURLInvalid = errors.New("pushgateway URL has invalid format")
	// ErrJobNameRequired — не указано имя job при заданном Pushgateway.
	ErrJobNameRequired = errors.New("job name is required")
	// ErrInvalidTimeout — неположительный таймаут.
	ErrInvalidTimeout = errors.New("timeout must be positive")
)

// Config — настройки метрик.
type Config struct {
	Enabled bool
	// PushgatewayURL — адрес Pushgateway. Пустой — push не выполняется.
	PushgatewayURL string
	JobName        string
	Timeout        time.Duration
	// InstanceLabel — значение label instance; по умолчанию hostname.
	InstanceLabel string
}

// DefaultConfig возвращает конфигурацию по умолчанию: метрики выключены.
func DefaultConfig() Config {
	return Config{
		JobName: "pipeline-monitor",
		Timeout: 10 * time.Second,
	}
}

// Validate проверяет конфигурацию включённых метрик.
func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}
	if c.Timeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.PushgatewayURL == "" {
		return nil
	}
	u, err := url.Parse(c.PushgatewayURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ErrPushgatewayURLInvalid
	}
	if c.JobName == "" {
		return ErrJobNameRequired
	}
	return nil
}
