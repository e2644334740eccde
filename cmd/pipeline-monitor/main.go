// Package main содержит точку входа pipeline-monitor: CLI для записи
// наблюдений о пайплайнах данных и HTTP API дашборда (команда serve).
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/Kargones/pipeline-monitor/internal/command"
	"github.com/Kargones/pipeline-monitor/internal/command/handlers"
	"github.com/Kargones/pipeline-monitor/internal/config"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/pkg/apperrors"
	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
)

// registerHandlers заполняет реестр команд один раз за процесс.
var registerHandlers = sync.OnceValue(handlers.RegisterAll)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run выполняет команду и возвращает код завершения.
// os.Exit вызывается только в main, чтобы отработали все defer.
func run(args []string, stdout, stderr io.Writer) int {
	bootstrap := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := registerHandlers(); err != nil {
		fmt.Fprintf(stderr, "Не удалось зарегистрировать команды: %v\n", err)
		return constants.ExitFailure
	}

	cfg, err := config.Load(bootstrap)
	if err != nil {
		fmt.Fprintf(stderr, "Не удалось загрузить конфигурацию: %v\n", err)
		return constants.ExitConfig
	}

	// Команда из аргументов, затем из PM_COMMAND, иначе help.
	if len(args) == 0 {
		name := cfg.Command
		if name == "" {
			name = constants.ActHelp
		}
		args = []string{name}
	}
	cfg.Command = args[0]

	// Флаги корня (--help, --version) обрабатывает cobra.
	if _, ok := command.Get(cfg.Command); !ok && !strings.HasPrefix(cfg.Command, "-") {
		fmt.Fprintf(stderr, "Неизвестная команда %q. Список команд: %s %s\n",
			cfg.Command, constants.AppName, constants.ActHelp)
		return constants.ExitUnknownCommand
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := newRootCommand(cfg)
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	if err := root.ExecuteContext(ctx); err != nil {
		var usage *usageError
		if errors.As(err, &usage) {
			fmt.Fprintf(stderr, "%v\n", usage.err)
			return constants.ExitValidation
		}
		return exitCode(err)
	}
	return constants.ExitOK
}

// usageError — ошибка разбора флагов, до выполнения команды.
type usageError struct{ err error }

func (e *usageError) Error() string { return e.err.Error() }

// newRootCommand строит дерево cobra по реестру команд.
func newRootCommand(cfg *config.Config) *cobra.Command {
	root := &cobra.Command{
		Use:           constants.AppName,
		Short:         "Мониторинг пайплайнов данных",
		Version:       constants.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.CompletionOptions.DisableDefaultCmd = true
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return &usageError{err: err}
	})

	all := command.All()
	names := make([]string, 0, len(all))
	for name := range all {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		h := all[name]
		cmd := &cobra.Command{
			Use:   h.Name(),
			Short: h.Description(),
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return execute(cmd.Context(), cfg, h, cmd.OutOrStdout(), cmd.ErrOrStderr())
			},
		}
		if binder, ok := h.(command.FlagBinder); ok {
			binder.BindFlags(cmd.Flags())
		}
		// Собственная help заменяет встроенную команду cobra.
		if name == constants.ActHelp {
			root.SetHelpCommand(cmd)
			continue
		}
		root.AddCommand(cmd)
	}
	return root
}

// execute собирает App, открывает корневой span и выполняет обработчик.
func execute(ctx context.Context, cfg *config.Config, h command.Handler, stdout, stderr io.Writer) error {
	app, cleanup, err := di.InitializeApp(cfg)
	if err != nil {
		fmt.Fprintf(stderr, "Не удалось инициализировать приложение: %v\n", err)
		return err
	}
	defer cleanup()
	app.Stdout = stdout

	l := app.Logger
	l.Debug("информация о сборке",
		slog.String("version", constants.Version),
		slog.String("commit", constants.Commit),
	)
	for _, w := range cfg.Warnings {
		l.Warn(w)
	}

	ctx = tracing.WithTraceID(ctx, app.TraceID)
	ctx = tracing.ContextWithOTelTraceID(ctx, app.TraceID)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := app.TracerShutdown(shutdownCtx); err != nil {
			l.Error("ошибка завершения tracing",
				slog.String("error", err.Error()),
				slog.String("trace_id", app.TraceID),
			)
		}
	}()

	ctx, span := tracing.Tracer().Start(ctx, h.Name(),
		trace.WithAttributes(
			attribute.String("command", h.Name()),
			attribute.String("trace_id", app.TraceID),
		),
	)
	defer span.End()

	execErr := h.Execute(ctx, app)

	pushCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	// Ошибки push логируются внутри коллектора.
	_ = app.MetricsCollector.Push(pushCtx)

	if execErr != nil {
		span.RecordError(execErr)
		l.Debug("команда завершилась с ошибкой",
			slog.String("command", h.Name()),
			slog.Int("exit_code", exitCode(execErr)),
		)
	}
	return execErr
}

// exitCode выбирает код завершения по категории ошибки.
func exitCode(err error) int {
	switch {
	case err == nil:
		return constants.ExitOK
	case apperrors.IsValidation(err):
		return constants.ExitValidation
	case apperrors.IsStorage(err):
		return constants.ExitStorage
	case apperrors.Category(err) == apperrors.CategoryConfig:
		return constants.ExitConfig
	case apperrors.Code(err) == apperrors.ErrCommandNotFound:
		return constants.ExitUnknownCommand
	default:
		return constants.ExitFailure
	}
}
