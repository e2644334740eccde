// Package output форматирует результаты CLI-команд в JSON или текст.
// Результат пишется в stdout, логи — только в stderr.
package output

import (
	"time"

	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
)

// Статусы Result.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// APIVersion — версия формата результата.
const APIVersion = "v1"

// Result — структурированный результат команды.
type Result struct {
	Status   string     `json:"status"`
	Command  string     `json:"command"`
	Data     any        `json:"data,omitempty"`
	Error    *ErrorInfo `json:"error,omitempty"`
	Metadata *Metadata  `json:"metadata,omitempty"`

	// Summary копируется JSONWriter-ом в metadata.summary.
	Summary *SummaryInfo `json:"-"`
}

// ErrorInfo — машиночитаемый код и сообщение без секретов.
type ErrorInfo struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Metadata — метаданные выполнения.
type Metadata struct {
	DurationMs int64        `json:"duration_ms"`
	TraceID    string       `json:"trace_id,omitempty"`
	APIVersion string       `json:"api_version"`
	Summary    *SummaryInfo `json:"summary,omitempty"`
}

// NewMetadata заполняет метаданные по времени старта и trace ID.
func NewMetadata(start time.Time, traceID string) *Metadata {
	return &Metadata{
		DurationMs: time.Since(start).Milliseconds(),
		TraceID:    traceID,
		APIVersion: APIVersion,
	}
}

// Success создаёт успешный результат.
func Success(command string, data any, meta *Metadata) *Result {
	return &Result{Status: StatusSuccess, Command: command, Data: data, Metadata: meta}
}

// Failure создаёт результат с ошибкой. Код берётся из AppError,
// для прочих ошибок используется fallbackCode.
func Failure(command string, err error, fallbackCode string, meta *Metadata) *Result {
	info := &ErrorInfo{Code: fallbackCode, Message: err.Error()}
	if code := apperrors.Code(err); code != "" {
		info.Code = code
		info.Message = apperrors.Message(err)
	}
	return &Result{Status: StatusError, Command: command, Error: info, Metadata: meta}
}
