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
	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
)

// ExecutionsHandler обрабатывает команду executions.
type ExecutionsHandler struct {
	flags *pflag.FlagSet
	name  string
	days  int
	limit int
}

func (h *ExecutionsHandler) Name() string { return constants.ActExecutions }

func (h *ExecutionsHandler) Description() string {
	return "История запусков пайплайна, новые первыми"
}

func (h *ExecutionsHandler) BindFlags(fs *pflag.FlagSet) {
	h.flags = fs
	fs.StringVar(&h.name, "pipeline", "", "имя пайплайна")
	fs.IntVar(&h.days, "days", 0, "окно в днях (по умолчанию query.defaultExecutionDays)")
	fs.IntVar(&h.limit, "limit", 0, "максимум запусков (по умолчанию query.defaultLimit)")
}

// ExecutionsView — результат executions.
type ExecutionsView struct {
	PipelineName string               `json:"pipeline_name"`
	Executions   []pipeline.Execution `json:"executions"`
	Count        int                  `json:"count"`
}

// RenderText печатает таблицу запусков.
func (v *ExecutionsView) RenderText(w io.Writer) error {
	rows := make([][]string, 0, len(v.Executions))
	for _, e := range v.Executions {
		msg := "-"
		if e.ErrorMessage != nil {
			msg = *e.ErrorMessage
		}
		rows = append(rows, []string{
			strconv.FormatInt(e.ID, 10),
			string(e.Status),
			e.StartTime.Format(time.RFC3339),
			shared.FormatFloat(e.DurationSeconds),
			strconv.FormatInt(e.RecordsProcessed, 10),
			msg,
		})
	}
	return shared.Table(w, []string{"ID", "STATUS", "START", "DURATION SEC", "RECORDS", "ERROR"}, rows)
}

func (h *ExecutionsHandler) Execute(ctx context.Context, app *di.App) error {
	return shared.Run(ctx, app, h.Name(), func(ctx context.Context, _ logging.Logger) (any, error) {
		if err := shared.RequireName(h.name); err != nil {
			return nil, err
		}
		q := app.Config.Query
		days := shared.IntOrDefault(h.flags, "days", h.days, q.DefaultExecutionDays)
		limit := shared.IntOrDefault(h.flags, "limit", h.limit, q.DefaultLimit)
		if err := shared.OpenStore(ctx, app); err != nil {
			return nil, err
		}
		execs, err := app.Engine.ListExecutions(ctx, h.name, days, limit)
		if err != nil {
			return nil, err
		}
		return &ExecutionsView{
			PipelineName: pipeline.NormalizeName(h.name),
			Executions:   execs,
			Count:        len(execs),
		}, nil
	})
}
