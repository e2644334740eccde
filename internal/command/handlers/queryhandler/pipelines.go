package queryhandler

import (
	"context"
	"io"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/Kargones/pipeline-monitor/internal/command/handlers/shared"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/service/aggregation"
)

// PipelinesHandler обрабатывает команду pipelines.
type PipelinesHandler struct {
	flags *pflag.FlagSet
	days  int
}

func (h *PipelinesHandler) Name() string { return constants.ActPipelines }

func (h *PipelinesHandler) Description() string {
	return "Список пайплайнов со статистикой за окно"
}

func (h *PipelinesHandler) BindFlags(fs *pflag.FlagSet) {
	h.flags = fs
	fs.IntVar(&h.days, "days", 0, "окно в днях (по умолчанию query.defaultDays)")
}

// PipelinesView — результат pipelines.
type PipelinesView struct {
	Pipelines []aggregation.PipelineStats `json:"pipelines"`
	Count     int                         `json:"count"`
}

// RenderText печатает таблицу пайплайнов.
func (v *PipelinesView) RenderText(w io.Writer) error {
	rows := make([][]string, 0, len(v.Pipelines))
	for _, p := range v.Pipelines {
		last := "-"
		if p.LatestExecutionTime != nil {
			last = p.LatestExecutionTime.Format(time.RFC3339)
		}
		rows = append(rows, []string{
			p.Name,
			p.LatestStatus,
			last,
			strconv.FormatInt(p.TotalRuns, 10),
			strconv.FormatFloat(p.SuccessRate, 'f', 2, 64),
			shared.FormatFloat(p.AvgDurationSeconds),
		})
	}
	return shared.Table(w, []string{"PIPELINE", "STATUS", "LAST RUN", "RUNS", "SUCCESS %", "AVG SEC"}, rows)
}

func (h *PipelinesHandler) Execute(ctx context.Context, app *di.App) error {
	return shared.Run(ctx, app, h.Name(), func(ctx context.Context, _ logging.Logger) (any, error) {
		days := shared.IntOrDefault(h.flags, "days", h.days, app.Config.Query.DefaultDays)
		if err := shared.OpenStore(ctx, app); err != nil {
			return nil, err
		}
		stats, err := app.Engine.ListPipelinesWithStats(ctx, days)
		if err != nil {
			return nil, err
		}
		return &PipelinesView{Pipelines: stats, Count: len(stats)}, nil
	})
}
