package pipeline

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"

	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
)

// Границы параметров запросов агрегации.
const (
	MinWindowDays  = 1
	MaxWindowDays  = 365
	MinWindowHours = 1
	MaxWindowHours = 720
	MinLimit       = 1
	MaxLimit       = 1000
)

// timestampLayouts перечисляет принимаемые форматы меток времени.
// Метки без смещения считаются UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// ParseTimestamp разбирает метку времени в одном из поддерживаемых
// форматов ISO-8601 и приводит её к UTC.
func ParseTimestamp(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, apperrors.Validation(apperrors.ErrMalformedTimestamp, "метка времени не может быть пустой")
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apperrors.Validation(apperrors.ErrMalformedTimestamp,
		fmt.Sprintf("не удалось разобрать метку времени %q", raw))
}

// NormalizeName обрезает пробелы и приводит имя к NFC, чтобы визуально
// одинаковые имена группировались вместе.
func NormalizeName(name string) string {
	return norm.NFC.String(strings.TrimSpace(name))
}

func validateName(field, name string, maxLen int) (string, error) {
	name = NormalizeName(name)
	if name == "" {
		return "", apperrors.Validation(apperrors.ErrEmptyName,
			fmt.Sprintf("%s не может быть пустым", field))
	}
	if utf8.RuneCountInString(name) > maxLen {
		return "", apperrors.Validation(apperrors.ErrNameTooLong,
			fmt.Sprintf("%s длиннее %d символов", field, maxLen))
	}
	return name, nil
}

// ValidateExecution проверяет входные данные запуска и возвращает
// нормализованную запись без ID, CreatedAt и длительности.
// Длительность выводится отдельно через DurationSeconds.
func ValidateExecution(p ExecutionPayload) (*Execution, error) {
	name, err := validateName("pipeline_name", p.PipelineName, MaxPipelineNameLength)
	if err != nil {
		return nil, err
	}

	status, ok := ParseStatus(p.Status)
	if !ok {
		return nil, apperrors.Validation(apperrors.ErrInvalidStatus,
			fmt.Sprintf("недопустимый статус %q: ожидается running, success или failed", p.Status))
	}

	start, err := ParseTimestamp(p.StartTime)
	if err != nil {
		return nil, err
	}

	exec := &Execution{
		PipelineName: name,
		Status:       status,
		StartTime:    start,
	}

	if strings.TrimSpace(p.EndTime) != "" {
		end, err := ParseTimestamp(p.EndTime)
		if err != nil {
			return nil, err
		}
		if end.Before(start) {
			return nil, apperrors.Validation(apperrors.ErrEndBeforeStart,
				"время окончания раньше времени начала")
		}
		exec.EndTime = &end
	}

	if p.RecordsProcessed != nil {
		v := *p.RecordsProcessed
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 || math.Trunc(v) != v || v >= math.MaxInt64 {
			return nil, apperrors.Validation(apperrors.ErrNegativeCount,
				"records_processed должен быть неотрицательным целым числом")
		}
		exec.RecordsProcessed = int64(v)
	}

	if p.ErrorMessage != "" {
		msg := TruncateRunes(p.ErrorMessage, MaxErrorMessageLength)
		exec.ErrorMessage = &msg
	}

	return exec, nil
}

// DurationSeconds возвращает длительность запуска в секундах
// или nil, если запуск ещё не завершён.
func DurationSeconds(start time.Time, end *time.Time) *float64 {
	if end == nil {
		return nil
	}
	d := end.Sub(start).Seconds()
	return &d
}

// ValidateQualityMetric проверяет входные данные метрики качества и
// возвращает запись с вычисленным Passed. Timestamp не заполняется.
func ValidateQualityMetric(p QualityPayload) (*QualityMetric, error) {
	pipelineName, err := validateName("pipeline_name", p.PipelineName, MaxPipelineNameLength)
	if err != nil {
		return nil, err
	}
	metricName, err := validateName("metric_name", p.MetricName, MaxMetricNameLength)
	if err != nil {
		return nil, err
	}

	if !inUnitInterval(p.Value) {
		return nil, apperrors.Validation(apperrors.ErrOutOfRange,
			fmt.Sprintf("значение метрики %g вне диапазона [0, 1]", p.Value))
	}

	threshold := DefaultQualityThreshold
	if p.Threshold != nil {
		threshold = *p.Threshold
	}
	if !inUnitInterval(threshold) {
		return nil, apperrors.Validation(apperrors.ErrOutOfRange,
			fmt.Sprintf("порог %g вне диапазона [0, 1]", threshold))
	}

	return &QualityMetric{
		PipelineName: pipelineName,
		MetricName:   metricName,
		Value:        p.Value,
		Threshold:    threshold,
		Passed:       p.Value >= threshold,
	}, nil
}

func inUnitInterval(v float64) bool {
	return !math.IsNaN(v) && v >= 0 && v <= 1
}

// SanitizePercent возвращает значение сенсора, если оно в [0, 100],
// иначе 0.0. Второй результат false означает, что значение заменено.
func SanitizePercent(v float64) (float64, bool) {
	if math.IsNaN(v) || v < 0 || v > 100 {
		return 0, false
	}
	return v, true
}

// ValidateWindowDays проверяет окно агрегации в днях.
func ValidateWindowDays(days int) error {
	return checkBound("days", days, MinWindowDays, MaxWindowDays)
}

// ValidateWindowHours проверяет окно агрегации в часах.
func ValidateWindowHours(hours int) error {
	return checkBound("hours", hours, MinWindowHours, MaxWindowHours)
}

// ValidateLimit проверяет ограничение выборки. Ноль не означает
// «без ограничения» и отклоняется.
func ValidateLimit(limit int) error {
	return checkBound("limit", limit, MinLimit, MaxLimit)
}

func checkBound(field string, v, lo, hi int) error {
	if v < lo || v > hi {
		return apperrors.Validation(apperrors.ErrOutOfRange,
			fmt.Sprintf("%s должен быть в диапазоне [%d, %d], получено %d", field, lo, hi, v))
	}
	return nil
}

// TruncateRunes обрезает строку до n рун, не разрывая UTF-8 последовательности.
func TruncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n])
}
