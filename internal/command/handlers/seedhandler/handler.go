// Package seedhandler реализует команду seed: заполнение хранилища
// демонстрационными запусками, метриками качества и снимком хоста.
// Данные проходят ту же проверку, что и записи из API.
package seedhandler

import (
	"context"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/spf13/pflag"

	"github.com/Kargones/pipeline-monitor/internal/command"
	"github.com/Kargones/pipeline-monitor/internal/command/handlers/shared"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/entity/pipeline"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/output"
)

const (
	defaultExecutions = 30
	defaultQuality    = 50
	maxRecords        = 10_000

	failureRate = 0.15
)

var (
	pipelines      = []string{"etl_pipeline", "data_quality_check", "data_warehouse_load", "api_data_sync"}
	qualityMetrics = []string{"completeness", "accuracy", "validity", "consistency", "timeliness"}
	errorMessages  = []string{
		"Connection timeout error",
		"Data validation failed",
		"Memory limit exceeded",
		"Invalid data format",
	}
)

// RegisterCmd регистрирует команду seed.
func RegisterCmd() error {
	return command.Register(&SeedHandler{})
}

// SeedHandler обрабатывает команду seed.
type SeedHandler struct {
	executions int
	quality    int
	seed       uint64
	now        func() time.Time
}

func (h *SeedHandler) Name() string { return constants.ActSeed }

func (h *SeedHandler) Description() string {
	return "Заполнение хранилища демонстрационными данными"
}

func (h *SeedHandler) BindFlags(fs *pflag.FlagSet) {
	fs.IntVar(&h.executions, "executions", defaultExecutions, "число запусков")
	fs.IntVar(&h.quality, "quality", defaultQuality, "число метрик качества")
	fs.Uint64Var(&h.seed, "seed", 0, "зерно генератора (0 — случайное)")
}

// Report — результат seed.
type Report struct {
	Executions     int    `json:"executions"`
	Succeeded      int    `json:"succeeded"`
	Failed         int    `json:"failed"`
	QualityMetrics int    `json:"quality_metrics"`
	QualityPassed  int    `json:"quality_passed"`
	SystemSamples  int    `json:"system_samples"`
	Seed           uint64 `json:"seed"`
}

// Summary выводит счётчики блоком сводки текстового формата.
func (r *Report) Summary() *output.SummaryInfo {
	info := output.NewSummaryInfo()
	info.AddMetric("Запусков", strconv.Itoa(r.Executions), "")
	info.AddMetric("Из них неуспешных", strconv.Itoa(r.Failed), "")
	info.AddMetric("Метрик качества", strconv.Itoa(r.QualityMetrics), "")
	info.AddMetric("Системных снимков", strconv.Itoa(r.SystemSamples), "")
	info.AddMetric("Зерно", strconv.FormatUint(r.Seed, 10), "")
	return info
}

// Execute генерирует и записывает данные через Recorder.
func (h *SeedHandler) Execute(ctx context.Context, app *di.App) error {
	return shared.Run(ctx, app, h.Name(), func(ctx context.Context, log logging.Logger) (any, error) {
		if h.executions < 0 || h.executions > maxRecords || h.quality < 0 || h.quality > maxRecords {
			return nil, apperrors.Validation(apperrors.ErrOutOfRange,
				"--executions и --quality должны быть в диапазоне [0, "+strconv.Itoa(maxRecords)+"]")
		}
		if err := shared.OpenStore(ctx, app); err != nil {
			return nil, err
		}

		seed := h.seed
		if seed == 0 {
			seed = rand.Uint64()
		}
		now := h.now
		if now == nil {
			now = time.Now
		}
		g := &generator{rnd: rand.New(rand.NewPCG(seed, seed)), now: now().UTC()}
		report := &Report{Seed: seed}

		for range h.executions {
			exec, err := app.Recorder.RecordExecution(ctx, g.execution())
			if err != nil {
				return nil, err
			}
			report.Executions++
			if exec.Status == pipeline.StatusSuccess {
				report.Succeeded++
			} else {
				report.Failed++
			}
		}
		for range h.quality {
			m, err := app.Recorder.RecordQualityMetric(ctx, g.quality())
			if err != nil {
				return nil, err
			}
			report.QualityMetrics++
			if m.Passed {
				report.QualityPassed++
			}
		}
		if _, err := app.Recorder.CollectSystemMetrics(ctx); err != nil {
			return nil, err
		}
		report.SystemSamples = 1

		log.Info("демонстрационные данные записаны",
			"executions", report.Executions,
			"quality", report.QualityMetrics,
			"seed", seed,
		)
		return report, nil
	})
}

type generator struct {
	rnd *rand.Rand
	now time.Time
}

// execution — запуск за последние 7 дней длительностью 30–600 с,
// успешный с вероятностью 85%.
func (g *generator) execution() pipeline.ExecutionPayload {
	ago := time.Duration(g.rnd.IntN(8))*24*time.Hour +
		time.Duration(g.rnd.IntN(24))*time.Hour +
		time.Duration(g.rnd.IntN(60))*time.Minute
	start := g.now.Add(-ago)
	end := start.Add(time.Duration(30+g.rnd.IntN(571)) * time.Second)

	p := pipeline.ExecutionPayload{
		PipelineName: pipelines[g.rnd.IntN(len(pipelines))],
		Status:       string(pipeline.StatusSuccess),
		StartTime:    start.Format(time.RFC3339),
		EndTime:      end.Format(time.RFC3339),
	}
	var records float64
	if g.rnd.Float64() < failureRate {
		p.Status = string(pipeline.StatusFailed)
		p.ErrorMessage = errorMessages[g.rnd.IntN(len(errorMessages))]
		records = float64(g.rnd.IntN(5001))
	} else {
		records = float64(1000 + g.rnd.IntN(49_001))
	}
	p.RecordsProcessed = &records
	return p
}

// quality — метрика со значением в [0.85, 1.0] и порогом 0.95.
func (g *generator) quality() pipeline.QualityPayload {
	value := 0.85 + g.rnd.Float64()*0.15
	threshold := pipeline.DefaultQualityThreshold
	return pipeline.QualityPayload{
		PipelineName: pipelines[g.rnd.IntN(len(pipelines))],
		MetricName:   qualityMetrics[g.rnd.IntN(len(qualityMetrics))],
		Value:        float64(int(value*1000+0.5)) / 1000,
		Threshold:    &threshold,
	}
}
