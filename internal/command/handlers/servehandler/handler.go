// Package servehandler запускает HTTP API дашборда и периодический
// сбор системных метрик.
package servehandler

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/Kargones/pipeline-monitor/internal/api"
	"github.com/Kargones/pipeline-monitor/internal/command"
	"github.com/Kargones/pipeline-monitor/internal/command/handlers/shared"
	"github.com/Kargones/pipeline-monitor/internal/config"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/output"
	"github.com/Kargones/pipeline-monitor/internal/service/recorder"
)

// RegisterCmd регистрирует команду serve.
func RegisterCmd() error {
	return command.Register(&ServeHandler{})
}

// ServeReport — итог работы сервера после остановки.
type ServeReport struct {
	Addr           string  `json:"addr"`
	SamplerEnabled bool    `json:"sampler_enabled"`
	UptimeSeconds  float64 `json:"uptime_seconds"`
}

// Summary возвращает сводку для текстового вывода.
func (r *ServeReport) Summary() *output.SummaryInfo {
	s := &output.SummaryInfo{}
	s.AddMetric("Адрес", r.Addr, "")
	s.AddMetric("Время работы", fmt.Sprintf("%.0f", r.UptimeSeconds), "с")
	return s
}

// ServeHandler обслуживает HTTP API до отмены контекста.
type ServeHandler struct {
	host string
	port int
}

func (h *ServeHandler) Name() string { return constants.ActServe }

func (h *ServeHandler) Description() string {
	return "Запуск HTTP API дашборда и сбора системных метрик"
}

// BindFlags регистрирует флаги, переопределяющие секцию server.
func (h *ServeHandler) BindFlags(fs *pflag.FlagSet) {
	fs.StringVar(&h.host, "host", "", "адрес прослушивания (по умолчанию из server.host)")
	fs.IntVar(&h.port, "port", 0, "порт (по умолчанию из server.port)")
}

// Execute блокируется до отмены ctx. Сбой сервера или планировщика
// останавливает оба.
func (h *ServeHandler) Execute(ctx context.Context, app *di.App) error {
	return shared.Run(ctx, app, h.Name(), func(ctx context.Context, log logging.Logger) (any, error) {
		cfg := app.Config
		opts := serverOptions(cfg)
		if h.host != "" {
			opts.Host = h.host
		}
		if h.port != 0 {
			opts.Port = h.port
		}

		if err := shared.OpenStore(ctx, app); err != nil {
			return nil, err
		}

		srv, err := api.NewServer(opts, app.Recorder, app.Engine, app.Store, app.MetricsCollector, app.Logger)
		if err != nil {
			return nil, apperrors.NewAppError(apperrors.ErrCommandExec, "не удалось создать HTTP сервер", err)
		}

		var sampler *recorder.Sampler
		if cfg.Sampler.Enabled {
			sampler, err = recorder.NewSampler(app.Recorder.Collector(), cfg.Sampler.Schedule, cfg.Sampler.Timeout, app.Logger)
			if err != nil {
				return nil, apperrors.NewAppError(apperrors.ErrConfigValidate, "некорректное расписание сбора", err)
			}
		}

		start := time.Now()
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error { return srv.Run(gctx) })
		if sampler != nil {
			g.Go(func() error { return sampler.Run(gctx) })
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}

		log.Info("сервер остановлен")
		return &ServeReport{
			Addr:           net.JoinHostPort(opts.Host, strconv.Itoa(opts.Port)),
			SamplerEnabled: sampler != nil,
			UptimeSeconds:  time.Since(start).Seconds(),
		}, nil
	})
}

func serverOptions(cfg *config.Config) api.Options {
	return api.Options{
		Host:            cfg.Server.Host,
		Port:            cfg.Server.Port,
		Debug:           cfg.Server.Debug,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		RequestTimeout:  cfg.Server.RequestTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		Defaults: api.QueryDefaults{
			Days:          cfg.Query.DefaultDays,
			ExecutionDays: cfg.Query.DefaultExecutionDays,
			Hours:         cfg.Query.DefaultHours,
			Limit:         cfg.Query.DefaultLimit,
		},
	}
}
