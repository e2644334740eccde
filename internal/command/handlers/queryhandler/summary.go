package queryhandler

import (
	"context"
	"io"
	"strconv"

	"github.com/spf13/pflag"

	"github.com/Kargones/pipeline-monitor/internal/command/handlers/shared"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/output"
	"github.com/Kargones/pipeline-monitor/internal/service/aggregation"
)

// SummaryHandler обрабатывает команду summary.
type SummaryHandler struct {
	flags *pflag.FlagSet
	days  int
}

func (h *SummaryHandler) Name() string { return constants.ActSummary }

func (h *SummaryHandler) Description() string {
	return "Общая сводка по запускам за окно"
}

func (h *SummaryHandler) BindFlags(fs *pflag.FlagSet) {
	h.flags = fs
	fs.IntVar(&h.days, "days", 0, "окно в днях (по умолчанию query.defaultDays)")
}

// SummaryView — результат summary.
type SummaryView struct {
	Stats *aggregation.Summary `json:"summary"`
}

// RenderText ничего не печатает: показатели выводятся блоком сводки.
func (v *SummaryView) RenderText(io.Writer) error { return nil }

// Summary переводит сводку в ключевые показатели текстового вывода.
func (v *SummaryView) Summary() *output.SummaryInfo {
	s := v.Stats
	info := output.NewSummaryInfo()
	info.AddMetric("Период", strconv.Itoa(s.PeriodDays), "дн.")
	info.AddMetric("Пайплайнов", strconv.FormatInt(s.PipelineCount, 10), "")
	info.AddMetric("Запусков", strconv.FormatInt(s.TotalExecutions, 10), "")
	info.AddMetric("Успешных", strconv.FormatInt(s.SuccessCount, 10), "")
	info.AddMetric("Доля успешных", strconv.FormatFloat(s.SuccessRate, 'f', 2, 64), "%")
	info.AddMetric("Средняя длительность", shared.FormatFloat(s.AvgDurationSeconds), "с")
	if s.TotalExecutions == 0 {
		info.AddWarning("за период нет ни одного запуска")
	}
	return info
}

func (h *SummaryHandler) Execute(ctx context.Context, app *di.App) error {
	return shared.Run(ctx, app, h.Name(), func(ctx context.Context, _ logging.Logger) (any, error) {
		days := shared.IntOrDefault(h.flags, "days", h.days, app.Config.Query.DefaultDays)
		if err := shared.OpenStore(ctx, app); err != nil {
			return nil, err
		}
		summary, err := app.Engine.Summary(ctx, days)
		if err != nil {
			return nil, err
		}
		return &SummaryView{Stats: summary}, nil
	})
}
