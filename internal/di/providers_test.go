package di

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/pipeline-monitor/internal/config"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/metrics"
	"github.com/Kargones/pipeline-monitor/internal/pkg/output"
	"github.com/Kargones/pipeline-monitor/internal/pkg/testutil"
)

func TestProvideLogger(t *testing.T) {
	t.Run("с конфигурацией", func(t *testing.T) {
		cfg := config.Default()
		cfg.Logging.Level = "debug"
		assert.NotNil(t, ProvideLogger(cfg))
	})
	t.Run("nil Config", func(t *testing.T) {
		assert.NotNil(t, ProvideLogger(nil))
	})
}

func TestProvideOutputWriter(t *testing.T) {
	tests := []struct {
		name   string
		cfg    *config.Config
		expect output.Writer
	}{
		{name: "nil Config — текст", cfg: nil, expect: &output.TextWriter{}},
		{name: "пустой формат — текст", cfg: &config.Config{}, expect: &output.TextWriter{}},
		{name: "json", cfg: &config.Config{OutputFormat: "json"}, expect: &output.JSONWriter{}},
		{name: "JSON без учёта регистра", cfg: &config.Config{OutputFormat: "JSON"}, expect: &output.JSONWriter{}},
		{name: "text", cfg: &config.Config{OutputFormat: "text"}, expect: &output.TextWriter{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.IsType(t, tt.expect, ProvideOutputWriter(tt.cfg))
		})
	}
}

func TestProvideTraceID(t *testing.T) {
	first := ProvideTraceID()
	second := ProvideTraceID()
	assert.Regexp(t, `^[0-9a-f]{32}$`, first)
	assert.NotEqual(t, first, second)
}

func TestProvideMetricsCollector(t *testing.T) {
	logger := logging.NewNopLogger()

	t.Run("выключены — NopCollector", func(t *testing.T) {
		assert.IsType(t, &metrics.NopCollector{}, ProvideMetricsCollector(config.Default(), logger))
	})
	t.Run("nil Config — NopCollector", func(t *testing.T) {
		assert.IsType(t, &metrics.NopCollector{}, ProvideMetricsCollector(nil, logger))
	})
	t.Run("включены — Prometheus", func(t *testing.T) {
		cfg := config.Default()
		cfg.Metrics.Enabled = true
		assert.IsType(t, &metrics.PrometheusCollector{}, ProvideMetricsCollector(cfg, logger))
	})
	t.Run("некорректный pushgateway — NopCollector", func(t *testing.T) {
		cfg := config.Default()
		cfg.Metrics.Enabled = true
		cfg.Metrics.PushgatewayURL = "not a url"
		assert.IsType(t, &metrics.NopCollector{}, ProvideMetricsCollector(cfg, logger))
	})
}

func TestProvideTracerProvider_Disabled(t *testing.T) {
	shutdown := ProvideTracerProvider(config.Default(), logging.NewNopLogger())
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestProvideStore(t *testing.T) {
	t.Run("sqlite по умолчанию", func(t *testing.T) {
		cfg := config.Default()
		cfg.Database.Path = ":memory:"
		client, cleanup, err := ProvideStore(cfg, logging.NewNopLogger())
		require.NoError(t, err)
		require.NotNil(t, client)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, client.Connect(ctx))
		require.NoError(t, client.Ping(ctx))
		cleanup()
	})
	t.Run("mssql без хоста", func(t *testing.T) {
		cfg := config.Default()
		cfg.Database.Driver = config.DriverMSSQL
		_, _, err := ProvideStore(cfg, logging.NewNopLogger())
		require.Error(t, err)
		assert.Equal(t, apperrors.ErrStorageConnect, apperrors.Code(err))
	})
	t.Run("cleanup без подключения", func(t *testing.T) {
		_, cleanup, err := ProvideStore(config.Default(), logging.NewNopLogger())
		require.NoError(t, err)
		assert.NotPanics(t, cleanup)
	})
}

func TestProvideSysinfo(t *testing.T) {
	assert.NotNil(t, ProvideSysinfo(config.Default()))
	assert.NotNil(t, ProvideSysinfo(nil))
}

func TestProvideStdout(t *testing.T) {
	out := testutil.CaptureStdout(t, func() {
		w := ProvideOutputWriter(&config.Config{OutputFormat: output.FormatJSON})
		meta := output.NewMetadata(time.Now(), "trace")
		require.NoError(t, w.Write(ProvideStdout(), output.Success("version", map[string]string{"version": "dev"}, meta)))
	})

	var result map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, output.StatusSuccess, result["status"])
	assert.Equal(t, "version", result["command"])
}
