// Package tracing — корреляция запросов и команд по trace ID
// и экспорт спанов OpenTelemetry.
//
// Trace ID — 32 hex-символа (16 байт), совместим с W3C Trace Context,
// поэтому один и тот же ID попадает и в логи, и в спаны.
package tracing

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
)

var fallbackCounter atomic.Uint64

// GenerateTraceID возвращает случайный trace ID из 32 hex-символов.
func GenerateTraceID() string {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return fallbackTraceID()
	}
	return hex.EncodeToString(b)
}

// fallbackTraceID: timestamp и счётчик, по 16 hex-символов.
func fallbackTraceID() string {
	return fmt.Sprintf("%016x%016x", uint64(time.Now().UnixNano()), fallbackCounter.Add(1))
}

// IsValidTraceID проверяет формат входящего trace ID (например, из X-Trace-ID).
func IsValidTraceID(id string) bool {
	if len(id) != 32 {
		return false
	}
	b, err := hex.DecodeString(id)
	if err != nil {
		return false
	}
	for _, v := range b {
		if v != 0 {
			return true
		}
	}
	return false
}

type traceIDKey struct{}

// WithTraceID сохраняет trace ID в контексте.
func WithTraceID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, traceIDKey{}, id)
}

// TraceIDFromContext возвращает trace ID или пустую строку.
func TraceIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(traceIDKey{}).(string)
	return id
}

// Logger добавляет trace_id из контекста к логгеру, если он есть.
func Logger(ctx context.Context, l logging.Logger) logging.Logger {
	if id := TraceIDFromContext(ctx); id != "" {
		return l.With("trace_id", id)
	}
	return l
}
