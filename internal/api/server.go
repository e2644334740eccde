// Package api публикует запись наблюдений и агрегирующие запросы
// по HTTP (gin) в форме, которую ожидает дашборд.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/metrics"
	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
	"github.com/Kargones/pipeline-monitor/internal/service/aggregation"
)

// Recorder — операции записи, доступные через HTTP.
type Recorder interface {
	RecordExecution(ctx context.Context, p pipeline.ExecutionPayload) (*pipeline.Execution, error)
	RecordQualityMetric(ctx context.Context, p pipeline.QualityPayload) (*pipeline.QualityMetric, error)
	CollectSystemMetrics(ctx context.Context) (*pipeline.SystemSample, error)
}

// Aggregator — агрегирующие запросы дашборда.
type Aggregator interface {
	ListPipelinesWithStats(ctx context.Context, windowDays int) ([]aggregation.PipelineStats, error)
	ListExecutions(ctx context.Context, name string, windowDays, limit int) ([]pipeline.Execution, error)
	ListQualityMetrics(ctx context.Context, name string, windowDays int) (aggregation.QualityGroups, error)
	ListSystemMetrics(ctx context.Context, windowHours int) (*aggregation.SystemSeries, error)
	Summary(ctx context.Context, windowDays int) (*aggregation.Summary, error)
}

// Pinger проверяет доступность хранилища для /api/health.
type Pinger interface {
	Ping(ctx context.Context) error
}

// QueryDefaults — значения параметров, если клиент их не передал.
type QueryDefaults struct {
	Days          int
	ExecutionDays int
	Hours         int
	Limit         int
}

// Options — параметры HTTP сервера.
type Options struct {
	Host            string
	Port            int
	Debug           bool
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
	Defaults        QueryDefaults
	// MaxBodyBytes ограничивает размер тела POST запросов.
	MaxBodyBytes int64
}

const defaultMaxBodyBytes = 1 << 20

// Server — HTTP сервер дашборда.
type Server struct {
	opts       Options
	recorder   Recorder
	aggregator Aggregator
	pinger     Pinger
	metrics    metrics.Collector
	logger     logging.Logger
	tracer     trace.Tracer
	schemas    *payloadSchemas
	now        func() time.Time
	engine     *gin.Engine
}

// NewServer создаёт сервер и регистрирует маршруты.
func NewServer(opts Options, r Recorder, a Aggregator, p Pinger, m metrics.Collector, l logging.Logger) (*Server, error) {
	if m == nil {
		m = metrics.NewNopCollector()
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = defaultMaxBodyBytes
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.ShutdownTimeout <= 0 {
		opts.ShutdownTimeout = 10 * time.Second
	}
	schemas, err := loadSchemas()
	if err != nil {
		return nil, fmt.Errorf("загрузка схем запросов: %w", err)
	}

	s := &Server{
		opts:       opts,
		recorder:   r,
		aggregator: a,
		pinger:     p,
		metrics:    m,
		logger:     logging.Component(l, "api"),
		tracer:     tracing.Tracer(),
		schemas:    schemas,
		now:        time.Now,
	}
	s.engine = s.routes()
	return s, nil
}

// Handler возвращает http.Handler со всеми маршрутами.
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	if !s.opts.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(s.recovery(), s.traceID(), s.accessLog(), s.timeout())

	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := r.Group("/api")
	api.GET("/health", s.health)
	api.GET("/pipelines", s.listPipelines)
	api.POST("/pipelines", s.recordExecution)
	api.GET("/pipelines/:name/executions", s.listExecutions)
	api.GET("/pipelines/:name/quality", s.listQuality)
	api.POST("/pipelines/:name/quality", s.recordQuality)
	api.GET("/system/metrics", s.listSystemMetrics)
	api.POST("/system/metrics/collect", s.collectSystemMetrics)
	api.GET("/metrics/summary", s.summary)

	r.NoRoute(func(c *gin.Context) {
		c.AbortWithStatusJSON(http.StatusNotFound, ErrorResponse{
			Error:      true,
			Code:       "NOT_FOUND",
			Message:    "маршрут не найден",
			StatusCode: http.StatusNotFound,
		})
	})
	return r
}

// Run запускает сервер и останавливает его при отмене ctx.
func (s *Server) Run(ctx context.Context) error {
	addr := net.JoinHostPort(s.opts.Host, strconv.Itoa(s.opts.Port))
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadTimeout:       s.opts.ReadTimeout,
		ReadHeaderTimeout: s.opts.ReadTimeout,
		WriteTimeout:      s.opts.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP сервер запущен", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("HTTP сервер: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
	defer cancel()
	s.logger.Info("остановка HTTP сервера")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("остановка HTTP сервера: %w", err)
	}
	return nil
}
