package metrics

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/push"

	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/urlutil"
)

// Namespace — префикс имён всех метрик.
const Namespace = "pipeline_monitor"

// maxLabelLength ограничивает длину значения label.
const maxLabelLength = 128

// PrometheusCollector собирает метрики в собственный registry.
type PrometheusCollector struct {
	config   Config
	logger   logging.Logger
	registry *prometheus.Registry
	instance string

	ingestTotal      *prometheus.CounterVec
	systemGauge      *prometheus.GaugeVec
	providerFailures *prometheus.CounterVec
	queryDuration    *prometheus.HistogramVec
	commandDuration  *prometheus.HistogramVec
}

// NewPrometheusCollector регистрирует метрики:
//   - pipeline_monitor_ingest_total{kind,outcome}
//   - pipeline_monitor_system_usage_percent{metric}
//   - pipeline_monitor_provider_failures_total{metric}
//   - pipeline_monitor_query_duration_seconds{op,status}
//   - pipeline_monitor_command_duration_seconds{command,status}
func NewPrometheusCollector(cfg Config, logger logging.Logger) (*PrometheusCollector, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	instance := cfg.InstanceLabel
	if instance == "" {
		host, err := os.Hostname()
		if err != nil {
			logger.Warn("не удалось получить hostname для label instance", "error", err.Error())
			host = "unknown"
		}
		instance = host
	}

	c := &PrometheusCollector{
		config:   cfg,
		logger:   logger,
		registry: prometheus.NewRegistry(),
		instance: instance,
		ingestTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ingest_total",
			Help:      "Number of ingest attempts by record kind and outcome",
		}, []string{"kind", "outcome"}),
		systemGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "system_usage_percent",
			Help:      "Last sampled host utilisation in percent",
		}, []string{"metric"}),
		providerFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "provider_failures_total",
			Help:      "Number of failed host metric reads",
		}, []string{"metric"}),
		queryDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "query_duration_seconds",
			Help:      "Duration of aggregation queries in seconds",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}, []string{"op", "status"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "command_duration_seconds",
			Help:      "Duration of CLI command execution in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 5, 10, 30, 60},
		}, []string{"command", "status"}),
	}

	for _, col := range []prometheus.Collector{
		c.ingestTotal, c.systemGauge, c.providerFailures, c.queryDuration, c.commandDuration,
	} {
		if err := c.registry.Register(col); err != nil {
			return nil, fmt.Errorf("ошибка регистрации метрики: %w", err)
		}
	}
	return c, nil
}

// sanitizeLabel заменяет управляющие символы и обрезает значение по рунам.
func sanitizeLabel(value string) string {
	clean := strings.Map(func(r rune) rune {
		if r < 0x20 {
			return '_'
		}
		return r
	}, value)
	if runes := []rune(clean); len(runes) > maxLabelLength {
		return string(runes[:maxLabelLength])
	}
	return clean
}

func status(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

func (c *PrometheusCollector) RecordIngest(kind, outcome string) {
	c.ingestTotal.WithLabelValues(sanitizeLabel(kind), sanitizeLabel(outcome)).Inc()
}

func (c *PrometheusCollector) ObserveSystemSample(cpu, memory, disk float64) {
	c.systemGauge.WithLabelValues("cpu").Set(cpu)
	c.systemGauge.WithLabelValues("memory").Set(memory)
	c.systemGauge.WithLabelValues("disk").Set(disk)
}

func (c *PrometheusCollector) RecordProviderFailure(metric string) {
	c.providerFailures.WithLabelValues(sanitizeLabel(metric)).Inc()
}

func (c *PrometheusCollector) ObserveQuery(op string, d time.Duration, success bool) {
	c.queryDuration.WithLabelValues(sanitizeLabel(op), status(success)).Observe(d.Seconds())
}

func (c *PrometheusCollector) RecordCommand(command string, d time.Duration, success bool) {
	c.commandDuration.WithLabelValues(sanitizeLabel(command), status(success)).Observe(d.Seconds())
	c.logger.Debug("metrics: команда завершена",
		"command", command,
		"duration_ms", d.Milliseconds(),
		"success", success,
	)
}

// Handler отдаёт метрики собственного registry в формате Prometheus.
func (c *PrometheusCollector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}

// Push отправляет метрики в Pushgateway, если он настроен.
func (c *PrometheusCollector) Push(ctx context.Context) error {
	if c.config.PushgatewayURL == "" {
		return nil
	}
	if ctx.Err() != nil {
		c.logger.Debug("metrics push отменён")
		return nil
	}

	pushCtx, cancel := context.WithTimeout(ctx, c.config.Timeout)
	defer cancel()

	pusher := push.New(c.config.PushgatewayURL, c.config.JobName).
		Gatherer(c.registry).
		Grouping("instance", c.instance)
	if err := pusher.PushContext(pushCtx); err != nil {
		c.logger.Error("ошибка отправки метрик в Pushgateway",
			"error", err.Error(),
			"url", urlutil.MaskURL(c.config.PushgatewayURL),
			"job", c.config.JobName,
		)
		return nil
	}

	c.logger.Info("метрики отправлены в Pushgateway",
		"url", urlutil.MaskURL(c.config.PushgatewayURL),
		"job", c.config.JobName,
		"instance", c.instance,
	)
	return nil
}

// Registry возвращает registry коллектора.
func (c *PrometheusCollector) Registry() *prometheus.Registry {
	return c.registry
}
