package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
	"github.com/Kargones/pipeline-monitor/internal/service/aggregation"
)

// intQuery читает целочисленный параметр запроса или возвращает def.
func intQuery(c *gin.Context, name string, def int) (int, error) {
	raw, ok := c.GetQuery(name)
	if !ok || raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.Validation(apperrors.ErrMalformedPayload,
			"параметр "+name+" должен быть целым числом")
	}
	return v, nil
}

// readBody читает тело запроса с ограничением размера и проверяет его по схеме.
func (s *Server) readBody(c *gin.Context, schema string) ([]byte, error) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, s.opts.MaxBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, apperrors.Validation(apperrors.ErrMalformedPayload, "тело запроса слишком большое")
		}
		return nil, apperrors.NewAppError(apperrors.ErrMalformedPayload, "не удалось прочитать тело запроса", err)
	}
	if err := s.schemas.validate(schema, body); err != nil {
		return nil, err
	}
	return body, nil
}

func (s *Server) timestamp() string {
	return s.now().UTC().Format(time.RFC3339)
}

// GET /api/health
func (s *Server) health(c *gin.Context) {
	if err := s.pinger.Ping(c.Request.Context()); err != nil {
		s.logger.Error("проверка хранилища не пройдена", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{
			"status":    "unhealthy",
			"timestamp": s.timestamp(),
			"error":     apperrors.Message(err),
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": s.timestamp(),
		"database":  "connected",
	})
}

// GET /api/pipelines?days=7
func (s *Server) listPipelines(c *gin.Context) {
	days, err := intQuery(c, "days", s.opts.Defaults.Days)
	if err != nil {
		s.writeError(c, err)
		return
	}
	stats, err := s.aggregator.ListPipelinesWithStats(c.Request.Context(), days)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"pipelines": stats, "count": len(stats)})
}

// POST /api/pipelines
func (s *Server) recordExecution(c *gin.Context) {
	body, err := s.readBody(c, schemaExecution)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var payload pipeline.ExecutionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.writeError(c, apperrors.NewAppError(apperrors.ErrMalformedPayload, "некорректное тело запроса", err))
		return
	}
	exec, err := s.recorder.RecordExecution(c.Request.Context(), payload)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":      "Pipeline execution recorded",
		"execution_id": exec.ID,
	})
}

// GET /api/pipelines/:name/executions?limit=100&days=30
func (s *Server) listExecutions(c *gin.Context) {
	name := c.Param("name")
	limit, err := intQuery(c, "limit", s.opts.Defaults.Limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	days, err := intQuery(c, "days", s.opts.Defaults.ExecutionDays)
	if err != nil {
		s.writeError(c, err)
		return
	}
	execs, err := s.aggregator.ListExecutions(c.Request.Context(), name, days, limit)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"pipeline_name": name,
		"executions":    executionViews(execs),
		"count":         len(execs),
	})
}

// executionView — запуск в форме ответа дашборда.
type executionView struct {
	ID               int64      `json:"id"`
	Status           string     `json:"status"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	DurationSeconds  *float64   `json:"duration_seconds"`
	RecordsProcessed int64      `json:"records_processed"`
	ErrorMessage     *string    `json:"error_message"`
}

func executionViews(execs []pipeline.Execution) []executionView {
	out := make([]executionView, 0, len(execs))
	for _, e := range execs {
		out = append(out, executionView{
			ID:               e.ID,
			Status:           string(e.Status),
			StartTime:        e.StartTime,
			EndTime:          e.EndTime,
			DurationSeconds:  e.DurationSeconds,
			RecordsProcessed: e.RecordsProcessed,
			ErrorMessage:     e.ErrorMessage,
		})
	}
	return out
}

// GET /api/pipelines/:name/quality?days=7
func (s *Server) listQuality(c *gin.Context) {
	name := c.Param("name")
	days, err := intQuery(c, "days", s.opts.Defaults.Days)
	if err != nil {
		s.writeError(c, err)
		return
	}
	groups, err := s.aggregator.ListQualityMetrics(c.Request.Context(), name, days)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if groups == nil {
		groups = aggregation.QualityGroups{}
	}
	c.JSON(http.StatusOK, gin.H{
		"pipeline_name":   name,
		"quality_metrics": groups,
	})
}

// POST /api/pipelines/:name/quality
// Имя пайплайна берётся из пути; pipeline_name в теле, если передан, должен совпадать.
func (s *Server) recordQuality(c *gin.Context) {
	body, err := s.readBody(c, schemaQuality)
	if err != nil {
		s.writeError(c, err)
		return
	}
	var payload pipeline.QualityPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		s.writeError(c, apperrors.NewAppError(apperrors.ErrMalformedPayload, "некорректное тело запроса", err))
		return
	}
	name := c.Param("name")
	if payload.PipelineName != "" && pipeline.NormalizeName(payload.PipelineName) != pipeline.NormalizeName(name) {
		s.writeError(c, apperrors.Validation(apperrors.ErrMalformedPayload,
			"pipeline_name в теле не совпадает с путём"))
		return
	}
	payload.PipelineName = name

	m, err := s.recorder.RecordQualityMetric(c.Request.Context(), payload)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "Quality metric recorded",
		"metric_id": m.ID,
		"passed":    m.Passed,
	})
}

// GET /api/system/metrics?hours=24
func (s *Server) listSystemMetrics(c *gin.Context) {
	hours, err := intQuery(c, "hours", s.opts.Defaults.Hours)
	if err != nil {
		s.writeError(c, err)
		return
	}
	series, err := s.aggregator.ListSystemMetrics(c.Request.Context(), hours)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"system_metrics": series,
		"period_hours":   hours,
	})
}

// POST /api/system/metrics/collect
func (s *Server) collectSystemMetrics(c *gin.Context) {
	sample, err := s.recorder.CollectSystemMetrics(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":   "System metrics collected",
		"cpu":       sample.CPU,
		"memory":    sample.Memory,
		"disk":      sample.Disk,
		"timestamp": sample.Timestamp,
	})
}

// GET /api/metrics/summary?days=7
func (s *Server) summary(c *gin.Context) {
	days, err := intQuery(c, "days", s.opts.Defaults.Days)
	if err != nil {
		s.writeError(c, err)
		return
	}
	sum, err := s.aggregator.Summary(c.Request.Context(), days)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"summary":   sum,
		"timestamp": s.timestamp(),
	})
}
