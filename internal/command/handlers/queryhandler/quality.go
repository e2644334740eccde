package queryhandler

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/pflag"

	"github.com/Kargones/pipeline-monitor/internal/command/handlers/shared"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/service/aggregation"
)

// QualityHandler обрабатывает команду quality.
type QualityHandler struct {
	flags *pflag.FlagSet
	name  string
	days  int
}

func (h *QualityHandler) Name() string { return constants.ActQuality }

func (h *QualityHandler) Description() string {
	return "Метрики качества пайплайна, сгруппированные по имени"
}

func (h *QualityHandler) BindFlags(fs *pflag.FlagSet) {
	h.flags = fs
	fs.StringVar(&h.name, "pipeline", "", "имя пайплайна")
	fs.IntVar(&h.days, "days", 0, "окно в днях (по умолчанию query.defaultDays)")
}

// QualityView — результат quality.
type QualityView struct {
	PipelineName   string                    `json:"pipeline_name"`
	QualityMetrics aggregation.QualityGroups `json:"quality_metrics"`
}

// RenderText печатает группы метрик, по одной таблице на метрику.
func (v *QualityView) RenderText(w io.Writer) error {
	if len(v.QualityMetrics) == 0 {
		_, err := fmt.Fprintf(w, "Метрик качества для %s нет\n", v.PipelineName)
		return err
	}
	for i, g := range v.QualityMetrics {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "%s (%d)\n", g.MetricName, len(g.Points))
		rows := make([][]string, 0, len(g.Points))
		for _, p := range g.Points {
			verdict := "ok"
			if !p.Passed {
				verdict = "FAIL"
			}
			rows = append(rows, []string{
				p.Timestamp.Format(time.RFC3339),
				fmt.Sprintf("%.4f", p.Value),
				fmt.Sprintf("%.4f", p.Threshold),
				verdict,
			})
		}
		if err := shared.Table(w, []string{"TIMESTAMP", "VALUE", "THRESHOLD", "PASSED"}, rows); err != nil {
			return err
		}
	}
	return nil
}

func (h *QualityHandler) Execute(ctx context.Context, app *di.App) error {
	return shared.Run(ctx, app, h.Name(), func(ctx context.Context, _ logging.Logger) (any, error) {
		if err := shared.RequireName(h.name); err != nil {
			return nil, err
		}
		days := shared.IntOrDefault(h.flags, "days", h.days, app.Config.Query.DefaultDays)
		if err := shared.OpenStore(ctx, app); err != nil {
			return nil, err
		}
		groups, err := app.Engine.ListQualityMetrics(ctx, h.name, days)
		if err != nil {
			return nil, err
		}
		return &QualityView{
			PipelineName:   pipeline.NormalizeName(h.name),
			QualityMetrics: groups,
		}, nil
	})
}
