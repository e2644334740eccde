package command

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/Kargones/pipeline-monitor/internal/di"
)

// compileTimeHandler проверяет на этапе компиляции тестов,
// что структура реализует Handler и FlagBinder.
type compileTimeHandler struct{ days int }

func (h *compileTimeHandler) Name() string                               { return "compile-time-check" }
func (h *compileTimeHandler) Description() string                        { return "compile-time check handler" }
func (h *compileTimeHandler) Execute(_ context.Context, _ *di.App) error { return nil }
func (h *compileTimeHandler) BindFlags(fs *pflag.FlagSet)                { fs.IntVar(&h.days, "days", 7, "") }

var (
	_ Handler    = (*compileTimeHandler)(nil)
	_ FlagBinder = (*compileTimeHandler)(nil)
)
