package recordhandler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/Kargones/pipeline-monitor/internal/command/handlers/shared"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
)

// CollectHandler обрабатывает команду collect-system.
type CollectHandler struct{}

func (h *CollectHandler) Name() string { return constants.ActCollectSystem }

func (h *CollectHandler) Description() string {
	return "Однократный сбор системных метрик хоста"
}

// CollectedSample — результат collect-system.
type CollectedSample struct {
	CPU       float64   `json:"cpu"`
	Memory    float64   `json:"memory"`
	Disk      float64   `json:"disk"`
	Timestamp time.Time `json:"timestamp"`
}

// RenderText печатает снимок в процентах.
func (s *CollectedSample) RenderText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "CPU: %.1f%%  Memory: %.1f%%  Disk: %.1f%%  (%s)\n",
		s.CPU, s.Memory, s.Disk, s.Timestamp.Format(time.RFC3339))
	return err
}

// Execute снимает и сохраняет показатели хоста.
func (h *CollectHandler) Execute(ctx context.Context, app *di.App) error {
	return shared.Run(ctx, app, h.Name(), func(ctx context.Context, log logging.Logger) (any, error) {
		if err := shared.OpenStore(ctx, app); err != nil {
			return nil, err
		}
		sample, err := app.Recorder.CollectSystemMetrics(ctx)
		if err != nil {
			return nil, err
		}
		log.Debug("системные метрики сохранены", "cpu", sample.CPU, "memory", sample.Memory, "disk", sample.Disk)
		return &CollectedSample{
			CPU:       sample.CPU,
			Memory:    sample.Memory,
			Disk:      sample.Disk,
			Timestamp: sample.Timestamp,
		}, nil
	})
}
