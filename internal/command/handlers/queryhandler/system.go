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
	"github.com/Kargones/pipeline-monitor/internal/service/aggregation"
)

// SystemHandler обрабатывает команду system-metrics.
type SystemHandler struct {
	flags *pflag.FlagSet
	hours int
}

func (h *SystemHandler) Name() string { return constants.ActSystemMetrics }

func (h *SystemHandler) Description() string {
	return "Серии системных метрик за окно в часах"
}

func (h *SystemHandler) BindFlags(fs *pflag.FlagSet) {
	h.flags = fs
	fs.IntVar(&h.hours, "hours", 0, "окно в часах (по умолчанию query.defaultHours)")
}

// SystemView — результат system-metrics.
type SystemView struct {
	SystemMetrics *aggregation.SystemSeries `json:"system_metrics"`
	PeriodHours   int                       `json:"period_hours"`
}

// RenderText печатает по строке на серию: число точек, последнее,
// минимальное и максимальное значения.
func (v *SystemView) RenderText(w io.Writer) error {
	series := []struct {
		name   string
		points []aggregation.SystemPoint
	}{
		{"cpu", v.SystemMetrics.CPU},
		{"memory", v.SystemMetrics.Memory},
		{"disk", v.SystemMetrics.Disk},
	}
	rows := make([][]string, 0, len(series))
	for _, s := range series {
		row := []string{s.name, strconv.Itoa(len(s.points)), "-", "-", "-"}
		if n := len(s.points); n > 0 {
			lo, hi := s.points[0].Value, s.points[0].Value
			for _, p := range s.points[1:] {
				lo = min(lo, p.Value)
				hi = max(hi, p.Value)
			}
			last := s.points[n-1].Value
			row[2] = shared.FormatFloat(&last)
			row[3] = shared.FormatFloat(&lo)
			row[4] = shared.FormatFloat(&hi)
		}
		rows = append(rows, row)
	}
	return shared.Table(w, []string{"METRIC", "POINTS", "LATEST %", "MIN %", "MAX %"}, rows)
}

func (h *SystemHandler) Execute(ctx context.Context, app *di.App) error {
	return shared.Run(ctx, app, h.Name(), func(ctx context.Context, _ logging.Logger) (any, error) {
		hours := shared.IntOrDefault(h.flags, "hours", h.hours, app.Config.Query.DefaultHours)
		if err := shared.OpenStore(ctx, app); err != nil {
			return nil, err
		}
		series, err := app.Engine.ListSystemMetrics(ctx, hours)
		if err != nil {
			return nil, err
		}
		return &SystemView{SystemMetrics: series, PeriodHours: hours}, nil
	})
}
