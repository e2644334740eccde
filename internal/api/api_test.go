package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Kargones/pipeline-monitor/internal/adapter/store/storetest"
	"github.com/Kargones/pipeline-monitor/internal/adapter/sysinfo/sysinfotest"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/metrics"
	"github.com/Kargones/pipeline-monitor/internal/service/aggregation"
	"github.com/Kargones/pipeline-monitor/internal/service/recorder"
)

var fixedNow = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type fixture struct {
	server *Server
	store  *storetest.MemoryStore
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	mem := storetest.NewMemoryStore()
	clock := func() time.Time { return fixedNow }
	rec := recorder.New(mem, sysinfotest.Fixed(12.5, 40, 70), nil, logging.NewNopLogger(), recorder.WithClock(clock))
	eng := aggregation.New(mem, nil, logging.NewNopLogger(), aggregation.WithClock(clock))

	srv, err := NewServer(Options{
		Debug:    true,
		Defaults: QueryDefaults{Days: 7, ExecutionDays: 30, Hours: 24, Limit: 100},
	}, rec, eng, mem, nil, logging.NewNopLogger())
	require.NoError(t, err)
	srv.now = clock
	return &fixture{server: srv, store: mem}
}

func (f *fixture) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	f.server.Handler().ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

const etlRun = `{"pipeline_name":"etl_pipeline","status":"success","start_time":"2024-01-01T10:00:00Z","end_time":"2024-01-01T10:05:30Z","records_processed":1000}`

func TestRecordExecution(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/pipelines", etlRun)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	body := decode(t, w)
	assert.Equal(t, "Pipeline execution recorded", body["message"])
	assert.Equal(t, float64(1), body["execution_id"])
	assert.Equal(t, 1, f.store.Writes())
}

func TestRecordExecution_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode string
	}{
		{"не JSON", `{`, apperrors.ErrMalformedPayload},
		{"нет start_time", `{"pipeline_name":"a","status":"success"}`, apperrors.ErrMalformedPayload},
		{"строка вместо числа", `{"pipeline_name":"a","status":"success","start_time":"2024-01-01T00:00:00Z","records_processed":"10"}`, apperrors.ErrMalformedPayload},
		{"неизвестный статус", `{"pipeline_name":"a","status":"done","start_time":"2024-01-01T00:00:00Z"}`, apperrors.ErrInvalidStatus},
		{"пустое имя", `{"pipeline_name":"  ","status":"running","start_time":"2024-01-01T00:00:00Z"}`, apperrors.ErrEmptyName},
		{"конец раньше начала", `{"pipeline_name":"a","status":"failed","start_time":"2024-01-01T10:00:00Z","end_time":"2024-01-01T09:00:00Z"}`, apperrors.ErrEndBeforeStart},
		{"отрицательный счётчик", `{"pipeline_name":"a","status":"success","start_time":"2024-01-01T10:00:00Z","records_processed":-1}`, apperrors.ErrNegativeCount},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			w := f.do(t, http.MethodPost, "/api/pipelines", tt.body)
			require.Equal(t, http.StatusBadRequest, w.Code, w.Body.String())

			body := decode(t, w)
			assert.Equal(t, true, body["error"])
			assert.Equal(t, tt.wantCode, body["code"])
			assert.Equal(t, float64(http.StatusBadRequest), body["status_code"])
			assert.NotEmpty(t, body["message"])
			assert.Zero(t, f.store.Writes())
		})
	}
}

func TestRecordExecution_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.store.WriteErr = errors.New("disk full")

	w := f.do(t, http.MethodPost, "/api/pipelines", etlRun)
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Equal(t, apperrors.ErrStorageWrite, decode(t, w)["code"])
}

func TestListPipelinesAndExecutions(t *testing.T) {
	f := newFixture(t)
	runs := []string{
		`{"pipeline_name":"etl_pipeline","status":"success","start_time":"2024-01-01T08:00:00Z","end_time":"2024-01-01T08:01:40Z"}`,
		`{"pipeline_name":"etl_pipeline","status":"success","start_time":"2024-01-01T09:00:00Z","end_time":"2024-01-01T09:03:20Z"}`,
		`{"pipeline_name":"etl_pipeline","status":"failed","start_time":"2024-01-01T10:00:00Z","end_time":"2024-01-01T10:00:50Z","error_message":"Connection timeout error"}`,
	}
	for _, r := range runs {
		require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/pipelines", r).Code)
	}

	t.Run("список пайплайнов", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/pipelines?days=7", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, float64(1), body["count"])

		p := body["pipelines"].([]any)[0].(map[string]any)
		assert.Equal(t, "etl_pipeline", p["name"])
		assert.Equal(t, "failed", p["latest_status"])
		assert.Equal(t, float64(3), p["total_runs"])
		assert.Equal(t, float64(2), p["success_count"])
		assert.Equal(t, 66.67, p["success_rate"])
		assert.Equal(t, 150.0, p["avg_duration_seconds"])
	})

	t.Run("история запусков", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/pipelines/etl_pipeline/executions?limit=2", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "etl_pipeline", body["pipeline_name"])
		assert.Equal(t, float64(2), body["count"])

		first := body["executions"].([]any)[0].(map[string]any)
		assert.Equal(t, "failed", first["status"])
		assert.Equal(t, "Connection timeout error", first["error_message"])
		assert.Equal(t, 50.0, first["duration_seconds"])
	})

	t.Run("limit=0 отклоняется", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/pipelines/etl_pipeline/executions?limit=0", "")
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperrors.ErrOutOfRange, decode(t, w)["code"])
	})
}

func TestQueryBounds(t *testing.T) {
	tests := []struct {
		path     string
		wantCode string
	}{
		{"/api/pipelines?days=0", apperrors.ErrOutOfRange},
		{"/api/pipelines?days=366", apperrors.ErrOutOfRange},
		{"/api/pipelines?days=abc", apperrors.ErrMalformedPayload},
		{"/api/system/metrics?hours=721", apperrors.ErrOutOfRange},
		{"/api/metrics/summary?days=-5", apperrors.ErrOutOfRange},
		{"/api/pipelines/x/executions?limit=1001", apperrors.ErrOutOfRange},
		{"/api/pipelines/x/quality?days=1000", apperrors.ErrOutOfRange},
	}
	f := newFixture(t)
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			w := f.do(t, http.MethodGet, tt.path, "")
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, tt.wantCode, decode(t, w)["code"])
		})
	}
}

func TestQuality(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/pipelines/etl_pipeline/quality", `{"metric_name":"completeness","value":0.90}`)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, false, decode(t, w)["passed"])

	w = f.do(t, http.MethodPost, "/api/pipelines/etl_pipeline/quality", `{"metric_name":"accuracy","value":0.95,"threshold":0.95}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, decode(t, w)["passed"])

	t.Run("значение вне диапазона", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/pipelines/etl_pipeline/quality", `{"metric_name":"accuracy","value":1.5}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, apperrors.ErrOutOfRange, decode(t, w)["code"])
	})

	t.Run("имя в теле не совпадает с путём", func(t *testing.T) {
		w := f.do(t, http.MethodPost, "/api/pipelines/etl_pipeline/quality", `{"pipeline_name":"other","metric_name":"a","value":1}`)
		require.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("группировка", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/pipelines/etl_pipeline/quality", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		groups := body["quality_metrics"].(map[string]any)
		assert.Len(t, groups, 2)
		completeness := groups["completeness"].([]any)[0].(map[string]any)
		assert.Equal(t, 0.9, completeness["value"])
		assert.Equal(t, 0.95, completeness["threshold"])
		assert.Equal(t, false, completeness["passed"])
	})

	t.Run("нет метрик", func(t *testing.T) {
		w := f.do(t, http.MethodGet, "/api/pipelines/unknown/quality", "")
		require.Equal(t, http.StatusOK, w.Code)
		assert.JSONEq(t, `{"pipeline_name":"unknown","quality_metrics":{}}`, w.Body.String())
	})
}

func TestSystemMetrics(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/system/metrics/collect", "")
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	collected := decode(t, w)
	assert.Equal(t, 12.5, collected["cpu"])
	assert.Equal(t, 40.0, collected["memory"])
	assert.Equal(t, 70.0, collected["disk"])

	w = f.do(t, http.MethodGet, "/api/system/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, float64(24), body["period_hours"])
	series := body["system_metrics"].(map[string]any)
	for _, key := range []string{"cpu", "memory", "disk"} {
		points := series[key].([]any)
		require.Len(t, points, 1, key)
		assert.Equal(t, "%", points[0].(map[string]any)["unit"])
	}
}

func TestSummary(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodGet, "/api/metrics/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "2024-01-01T12:00:00Z", body["timestamp"])
	assert.JSONEq(t,
		`{"total_executions":0,"success_count":0,"success_rate":0,"avg_duration_seconds":null,"pipeline_count":0,"period_days":7}`,
		mustJSON(t, body["summary"]))
}

func TestSummary_StorageFailure(t *testing.T) {
	f := newFixture(t)
	f.store.ReadErr = errors.New("database is locked")

	w := f.do(t, http.MethodGet, "/api/metrics/summary", "")
	require.Equal(t, http.StatusServiceUnavailable, w.Code)
	body := decode(t, w)
	assert.Equal(t, apperrors.ErrStorageRead, body["code"])
	assert.NotContains(t, body["message"], "locked", "причина драйвера не попадает в ответ")
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	return string(data)
}

func TestHealth(t *testing.T) {
	t.Run("хранилище доступно", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, http.MethodGet, "/api/health", "")
		require.Equal(t, http.StatusOK, w.Code)
		body := decode(t, w)
		assert.Equal(t, "healthy", body["status"])
		assert.Equal(t, "connected", body["database"])
	})

	t.Run("хранилище недоступно", func(t *testing.T) {
		mock := storetest.NewMockClientWithStorageError(apperrors.ErrStorageConnect)
		srv, err := NewServer(Options{}, nil, nil, mock, nil, logging.NewNopLogger())
		require.NoError(t, err)

		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
		require.Equal(t, http.StatusInternalServerError, w.Code)
		body := decode(t, w)
		assert.Equal(t, "unhealthy", body["status"])
		assert.NotEmpty(t, body["error"])
	})
}

func TestTraceIDHeader(t *testing.T) {
	f := newFixture(t)

	t.Run("корректный ID клиента сохраняется", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set(HeaderTraceID, "4bf92f3577b34da6a3ce929d0e0e4736")
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)
		assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", w.Header().Get(HeaderTraceID))
	})

	t.Run("некорректный ID заменяется", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
		req.Header.Set(HeaderTraceID, "not-a-trace-id")
		w := httptest.NewRecorder()
		f.server.Handler().ServeHTTP(w, req)
		got := w.Header().Get(HeaderTraceID)
		assert.NotEqual(t, "not-a-trace-id", got)
		assert.Len(t, got, 32)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	t.Run("метрики выключены", func(t *testing.T) {
		f := newFixture(t)
		w := f.do(t, http.MethodGet, "/metrics", "")
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("метрики включены", func(t *testing.T) {
		collector, err := metrics.NewCollector(metrics.Config{Enabled: true, JobName: "test", Timeout: time.Second}, logging.NewNopLogger())
		require.NoError(t, err)
		mem := storetest.NewMemoryStore()
		rec := recorder.New(mem, sysinfotest.Fixed(1, 2, 3), collector, logging.NewNopLogger())
		eng := aggregation.New(mem, collector, logging.NewNopLogger())
		srv, err := NewServer(Options{}, rec, eng, mem, collector, logging.NewNopLogger())
		require.NoError(t, err)

		w := httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/system/metrics/collect", nil))
		require.Equal(t, http.StatusCreated, w.Code)

		w = httptest.NewRecorder()
		srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "pipeline_monitor_system_usage_percent")
	})
}

func TestNoRoute(t *testing.T) {
	f := newFixture(t)
	w := f.do(t, http.MethodGet, "/api/unknown", "")
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, true, decode(t, w)["error"])
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"валидация", apperrors.Validation(apperrors.ErrEmptyName, "x"), http.StatusBadRequest},
		{"хранилище", apperrors.NewAppError(apperrors.ErrStorageRead, "x", nil), http.StatusServiceUnavailable},
		{"конфигурация", apperrors.NewAppError(apperrors.ErrConfigLoad, "x", nil), http.StatusInternalServerError},
		{"обычная ошибка", errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, StatusFor(tt.err))
		})
	}
}

func TestRequestTimeout(t *testing.T) {
	mem := storetest.NewMemoryStore()
	var deadline time.Time
	pinger := pingFunc(func(ctx context.Context) error {
		deadline, _ = ctx.Deadline()
		return nil
	})
	srv, err := NewServer(Options{RequestTimeout: 5 * time.Second}, nil, aggregation.New(mem, nil, nil), pinger, nil, logging.NewNopLogger())
	require.NoError(t, err)

	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, deadline.IsZero())
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
