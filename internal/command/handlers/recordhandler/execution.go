// Package recordhandler реализует команды записи наблюдений:
// record-execution, record-quality и collect-system.
package recordhandler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/Kargones/pipeline-monitor/internal/command"
	"github.com/Kargones/pipeline-monitor/internal/command/handlers/shared"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
)

// RegisterCmd регистрирует команды пакета.
func RegisterCmd() error {
	for _, h := range []command.Handler{
		&ExecutionHandler{now: time.Now},
		&QualityHandler{},
		&CollectHandler{},
	} {
		if err := command.Register(h); err != nil {
			return err
		}
	}
	return nil
}

// ExecutionHandler обрабатывает команду record-execution.
type ExecutionHandler struct {
	flags   *pflag.FlagSet
	payload pipeline.ExecutionPayload
	records float64
	now     func() time.Time
}

func (h *ExecutionHandler) Name() string { return constants.ActRecordExecution }

func (h *ExecutionHandler) Description() string {
	return "Запись запуска пайплайна"
}

// BindFlags привязывает поля запуска к флагам.
func (h *ExecutionHandler) BindFlags(fs *pflag.FlagSet) {
	h.flags = fs
	fs.StringVar(&h.payload.PipelineName, "pipeline", "", "имя пайплайна")
	fs.StringVar(&h.payload.Status, "status", "", "статус: running, success или failed")
	fs.StringVar(&h.payload.StartTime, "start-time", "", "время начала (RFC 3339); по умолчанию текущее")
	fs.StringVar(&h.payload.EndTime, "end-time", "", "время окончания (RFC 3339)")
	fs.Float64Var(&h.records, "records", 0, "число обработанных записей")
	fs.StringVar(&h.payload.ErrorMessage, "error", "", "сообщение об ошибке")
}

// RecordedExecution — результат record-execution.
type RecordedExecution struct {
	ExecutionID     int64    `json:"execution_id"`
	PipelineName    string   `json:"pipeline_name"`
	Status          string   `json:"status"`
	DurationSeconds *float64 `json:"duration_seconds"`
}

// RenderText печатает сохранённый запуск одной строкой.
func (r *RecordedExecution) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "Запуск %s сохранён: id=%d, статус=%s, длительность=%s\n",
		r.PipelineName, r.ExecutionID, r.Status, shared.FormatFloat(r.DurationSeconds))
	return err
}

// Execute проверяет и сохраняет запуск.
func (h *ExecutionHandler) Execute(ctx context.Context, app *di.App) error {
	return shared.Run(ctx, app, h.Name(), func(ctx context.Context, log logging.Logger) (any, error) {
		p := h.payload
		if p.StartTime == "" {
			now := h.now
			if now == nil {
				now = time.Now
			}
			p.StartTime = now().UTC().Format(time.RFC3339Nano)
		}
		if h.flags != nil && h.flags.Changed("records") {
			records := h.records
			p.RecordsProcessed = &records
		}

		if err := shared.OpenStore(ctx, app); err != nil {
			return nil, err
		}
		exec, err := app.Recorder.RecordExecution(ctx, p)
		if err != nil {
			return nil, err
		}
		log.Info("запуск сохранён", "pipeline", exec.PipelineName, "id", exec.ID)
		return &RecordedExecution{
			ExecutionID:     exec.ID,
			PipelineName:    exec.PipelineName,
			Status:          string(exec.Status),
			DurationSeconds: exec.DurationSeconds,
		}, nil
	})
}
