package recordhandler

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/Kargones/pipeline-monitor/internal/command/handlers/shared"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
)

// QualityHandler обрабатывает команду record-quality.
type QualityHandler struct {
	flags     *pflag.FlagSet
	payload   pipeline.QualityPayload
	threshold float64
}

func (h *QualityHandler) Name() string { return constants.ActRecordQuality }

func (h *QualityHandler) Description() string {
	return "Запись метрики качества данных"
}

// BindFlags привязывает поля метрики к флагам.
func (h *QualityHandler) BindFlags(fs *pflag.FlagSet) {
	h.flags = fs
	fs.StringVar(&h.payload.PipelineName, "pipeline", "", "имя пайплайна")
	fs.StringVar(&h.payload.MetricName, "metric", "", "имя метрики качества")
	fs.Float64Var(&h.payload.Value, "value", 0, "значение метрики в [0, 1]")
	fs.Float64Var(&h.threshold, "threshold", pipeline.DefaultQualityThreshold, "порог прохождения в [0, 1]")
}

// RecordedQuality — результат record-quality.
type RecordedQuality struct {
	MetricID     int64   `json:"metric_id"`
	PipelineName string  `json:"pipeline_name"`
	MetricName   string  `json:"metric_name"`
	Value        float64 `json:"value"`
	Threshold    float64 `json:"threshold"`
	Passed       bool    `json:"passed"`
}

// RenderText печатает метрику и результат сравнения с порогом.
func (r *RecordedQuality) RenderText(w io.Writer) error {
	verdict := "пройдена"
	if !r.Passed {
		verdict = "не пройдена"
	}
	_, err := fmt.Fprintf(w, "Метрика %s/%s сохранена: id=%d, %.4g при пороге %.4g (%s)\n",
		r.PipelineName, r.MetricName, r.MetricID, r.Value, r.Threshold, verdict)
	return err
}

// Execute проверяет и сохраняет метрику качества.
func (h *QualityHandler) Execute(ctx context.Context, app *di.App) error {
	return shared.Run(ctx, app, h.Name(), func(ctx context.Context, log logging.Logger) (any, error) {
		p := h.payload
		if h.flags != nil && h.flags.Changed("threshold") {
			threshold := h.threshold
			p.Threshold = &threshold
		}

		if err := shared.OpenStore(ctx, app); err != nil {
			return nil, err
		}
		m, err := app.Recorder.RecordQualityMetric(ctx, p)
		if err != nil {
			return nil, err
		}
		log.Info("метрика качества сохранена", "pipeline", m.PipelineName, "metric", m.MetricName, "passed", m.Passed)
		return &RecordedQuality{
			MetricID:     m.ID,
			PipelineName: m.PipelineName,
			MetricName:   m.MetricName,
			Value:        m.Value,
			Threshold:    m.Threshold,
			Passed:       m.Passed,
		}, nil
	})
}
