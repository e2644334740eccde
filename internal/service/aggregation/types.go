package aggregation

import (
	"bytes"
	"encoding/json"
	"time"
)

// StatusUnknown — статус пайплайна без единого запуска.
const StatusUnknown = "unknown"

// PipelineStats — сводка по одному пайплайну.
// Последний запуск берётся без учёта окна, остальные поля — в окне.
type PipelineStats struct {
	Name                string     `json:"name"`
	LatestStatus        string     `json:"latest_status"`
	LatestExecutionTime *time.Time `json:"latest_execution_time"`
	TotalRuns           int64      `json:"total_runs"`
	SuccessCount        int64      `json:"success_count"`
	SuccessRate         float64    `json:"success_rate"`
	AvgDurationSeconds  *float64   `json:"avg_duration_seconds"`
}

// QualityPoint — одно значение метрики качества.
type QualityPoint struct {
	Value     float64   `json:"value"`
	Threshold float64   `json:"threshold"`
	Passed    bool      `json:"passed"`
	Timestamp time.Time `json:"timestamp"`
}

// QualityGroup — история одной метрики, новые значения первыми.
type QualityGroup struct {
	MetricName string
	Points     []QualityPoint
}

// QualityGroups — группы в порядке первого появления метрики.
// В JSON это объект, ключи которого идут в том же порядке.
type QualityGroups []QualityGroup

// MarshalJSON кодирует группы объектом с сохранением порядка ключей.
func (g QualityGroups) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, group := range g {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(group.MetricName)
		if err != nil {
			return nil, err
		}
		points := group.Points
		if points == nil {
			points = []QualityPoint{}
		}
		val, err := json.Marshal(points)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Get возвращает точки метрики по имени.
func (g QualityGroups) Get(metric string) ([]QualityPoint, bool) {
	for _, group := range g {
		if group.MetricName == metric {
			return group.Points, true
		}
	}
	return nil, false
}

// SystemPoint — одно значение системной серии.
type SystemPoint struct {
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}

// SystemSeries — три серии в фиксированном порядке, по возрастанию времени.
type SystemSeries struct {
	CPU    []SystemPoint `json:"cpu"`
	Memory []SystemPoint `json:"memory"`
	Disk   []SystemPoint `json:"disk"`
}

// Summary — сводка для дашборда. PipelineCount считается за всё время,
// остальные поля — в окне.
type Summary struct {
	TotalExecutions    int64    `json:"total_executions"`
	SuccessCount       int64    `json:"success_count"`
	SuccessRate        float64  `json:"success_rate"`
	AvgDurationSeconds *float64 `json:"avg_duration_seconds"`
	PipelineCount      int64    `json:"pipeline_count"`
	PeriodDays         int      `json:"period_days"`
}
