// Package shared содержит общие части обработчиков команд:
// вывод Result, подключение к хранилищу и чтение флагов окна.
package shared

import (
	"context"
	"log/slog"
	"time"

	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/output"
	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
)

// Action — тело команды. Возвращаемые данные попадают в Result.Data.
type Action func(ctx context.Context, log logging.Logger) (any, error)

// Summarizer реализуют данные команд со сводкой для текстового вывода.
type Summarizer interface {
	Summary() *output.SummaryInfo
}

// Run выполняет action и пишет Result в app.Stdout через app.OutputWriter.
// Ошибка action возвращается без изменений: по ней main выбирает код завершения.
func Run(ctx context.Context, app *di.App, name string, action Action) error {
	start := time.Now()

	traceID := tracing.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = app.TraceID
		ctx = tracing.WithTraceID(ctx, traceID)
	}
	log := tracing.Logger(ctx, logging.Component(app.Logger, name))

	ctx, span := tracing.Tracer().Start(ctx, "command."+name)
	data, err := action(ctx, log)
	if err != nil {
		span.RecordError(err)
	}
	span.End()

	app.MetricsCollector.RecordCommand(name, time.Since(start), err == nil)

	meta := output.NewMetadata(start, traceID)
	var result *output.Result
	if err != nil {
		log.Error("команда завершилась с ошибкой",
			slog.String("code", apperrors.Code(err)),
			slog.String("error", err.Error()),
		)
		result = output.Failure(name, err, apperrors.ErrCommandExec, meta)
	} else {
		result = output.Success(name, data, meta)
		if s, ok := data.(Summarizer); ok {
			result.Summary = s.Summary()
		}
	}

	if werr := app.OutputWriter.Write(app.Stdout, result); werr != nil && err == nil {
		return apperrors.NewAppError(apperrors.ErrOutputFormat, "не удалось вывести результат", werr)
	}
	return err
}

// OpenStore подключается к хранилищу и применяет схему.
// Схема идемпотентна, поэтому команды не требуют отдельного migrate.
func OpenStore(ctx context.Context, app *di.App) error {
	if err := app.Store.Connect(ctx); err != nil {
		return err
	}
	return app.Store.Migrate(ctx)
}
