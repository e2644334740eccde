package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
)

// HeaderTraceID — заголовок запроса и ответа с trace ID.
const HeaderTraceID = "X-Trace-ID"

// traceID принимает корректный trace ID клиента или генерирует новый,
// кладёт его в контекст запроса и открывает серверный спан.
func (s *Server) traceID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.GetHeader(HeaderTraceID)
		if !tracing.IsValidTraceID(id) {
			id = tracing.GenerateTraceID()
		}
		ctx := tracing.WithTraceID(c.Request.Context(), id)
		ctx = tracing.ContextWithOTelTraceID(ctx, id)

		ctx, span := s.tracer.Start(ctx, c.Request.Method+" "+routeOf(c),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", routeOf(c)),
			))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderTraceID, id)
		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
	}
}

// accessLog пишет одну строку на запрос.
func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		tracing.Logger(c.Request.Context(), s.logger).Info("HTTP запрос",
			"method", c.Request.Method,
			"route", routeOf(c),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
		)
	}
}

// timeout ограничивает время обработки запроса.
func (s *Server) timeout() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), s.opts.RequestTimeout)
		defer cancel()
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// recovery превращает панику обработчика в 500 с телом ошибки.
func (s *Server) recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, recovered any) {
		s.logger.Error("паника в обработчике HTTP", "path", c.Request.URL.Path, "panic", fmt.Sprint(recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{
			Error:      true,
			Code:       codeInternal,
			Message:    "внутренняя ошибка сервера",
			StatusCode: http.StatusInternalServerError,
		})
	})
}

func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}
