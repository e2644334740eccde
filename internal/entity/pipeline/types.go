// Package pipeline описывает записи наблюдаемости пайплайнов: запуски,
// метрики качества данных и снимки системных ресурсов, а также правила
// их валидации до записи в хранилище.
package pipeline

import "time"

// Ограничения длины имён совпадают с размером столбцов схемы хранилища.
const (
	MaxPipelineNameLength = 100
	MaxMetricNameLength   = 50
	MaxErrorMessageLength = 1000
)

// DefaultQualityThreshold — порог прохождения метрики качества,
// если он не передан явно.
const DefaultQualityThreshold = 0.95

// DefaultSystemMetricUnit — единица измерения системных метрик.
const DefaultSystemMetricUnit = "%"

// Status — состояние запуска пайплайна.
type Status string

// Допустимые статусы запуска.
const (
	StatusRunning Status = "running"
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// ParseStatus возвращает Status для строки из закрытого множества
// running/success/failed. Регистр и пробелы не нормализуются.
func ParseStatus(s string) (Status, bool) {
	switch Status(s) {
	case StatusRunning, StatusSuccess, StatusFailed:
		return Status(s), true
	default:
		return "", false
	}
}

// MetricType — тип системной метрики.
type MetricType string

// Закрытое множество типов системных метрик.
const (
	MetricCPU    MetricType = "cpu"
	MetricMemory MetricType = "memory"
	MetricDisk   MetricType = "disk"
)

// SystemMetricTypes задаёт порядок чтения сенсоров и порядок серий в ответах.
var SystemMetricTypes = []MetricType{MetricCPU, MetricMemory, MetricDisk}

// Valid сообщает, входит ли тип в закрытое множество.
func (t MetricType) Valid() bool {
	switch t {
	case MetricCPU, MetricMemory, MetricDisk:
		return true
	default:
		return false
	}
}

// Execution — один запуск пайплайна.
// Строки не обновляются: повторная отправка того же запуска
// (например running, затем success) создаёт новую строку.
type Execution struct {
	ID               int64      `json:"id"`
	PipelineName     string     `json:"pipeline_name"`
	Status           Status     `json:"status"`
	StartTime        time.Time  `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	DurationSeconds  *float64   `json:"duration_seconds"`
	RecordsProcessed int64      `json:"records_processed"`
	ErrorMessage     *string    `json:"error_message"`
	CreatedAt        time.Time  `json:"created_at"`
}

// QualityMetric — результат проверки качества данных.
type QualityMetric struct {
	ID           int64     `json:"id"`
	PipelineName string    `json:"pipeline_name"`
	MetricName   string    `json:"metric_name"`
	Value        float64   `json:"value"`
	Threshold    float64   `json:"threshold"`
	Passed       bool      `json:"passed"`
	Timestamp    time.Time `json:"timestamp"`
}

// SystemMetric — одно значение системного ресурса в процентах.
type SystemMetric struct {
	ID        int64      `json:"id"`
	Type      MetricType `json:"metric_type"`
	Value     float64    `json:"value"`
	Unit      string     `json:"unit"`
	Timestamp time.Time  `json:"timestamp"`
}

// SystemSample — результат одного цикла сбора: три значения
// с общей меткой времени.
type SystemSample struct {
	CPU       float64   `json:"cpu"`
	Memory    float64   `json:"memory"`
	Disk      float64   `json:"disk"`
	Timestamp time.Time `json:"timestamp"`
}

// Metrics разворачивает снимок в три строки в порядке SystemMetricTypes.
func (s SystemSample) Metrics() []SystemMetric {
	return []SystemMetric{
		{Type: MetricCPU, Value: s.CPU, Unit: DefaultSystemMetricUnit, Timestamp: s.Timestamp},
		{Type: MetricMemory, Value: s.Memory, Unit: DefaultSystemMetricUnit, Timestamp: s.Timestamp},
		{Type: MetricDisk, Value: s.Disk, Unit: DefaultSystemMetricUnit, Timestamp: s.Timestamp},
	}
}

// ExecutionPayload — входные данные запуска в том виде, в каком их
// присылает клиент: метки времени строками, счётчик числом JSON.
type ExecutionPayload struct {
	PipelineName     string   `json:"pipeline_name"`
	Status           string   `json:"status"`
	StartTime        string   `json:"start_time"`
	EndTime          string   `json:"end_time,omitempty"`
	RecordsProcessed *float64 `json:"records_processed,omitempty"`
	ErrorMessage     string   `json:"error_message,omitempty"`
}

// QualityPayload — входные данные метрики качества.
// Threshold == nil означает порог по умолчанию.
type QualityPayload struct {
	PipelineName string   `json:"pipeline_name"`
	MetricName   string   `json:"metric_name"`
	Value        float64  `json:"value"`
	Threshold    *float64 `json:"threshold,omitempty"`
}
