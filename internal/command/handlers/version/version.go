// Package version реализует команду version: версия сборки,
// версия Go и коммит.
package version

import (
	"context"
	"fmt"
	"io"
	"runtime"
	"time"

	"github.com/Kargones/pipeline-monitor/internal/command"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/pkg/output"
	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
)

// RegisterCmd регистрирует команду version.
func RegisterCmd() error {
	return command.Register(&VersionHandler{})
}

// VersionData содержит информацию о версии приложения.
type VersionData struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	Commit    string `json:"commit"`
	// APIVersion — версия формата JSON вывода команд.
	APIVersion string `json:"api_version"`
}

// writeText выводит информацию о версии в человекочитаемом формате.
func (d *VersionData) writeText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "%s version %s\n  Go:     %s\n  Commit: %s\n",
		constants.AppName, d.Version, d.GoVersion, d.Commit)
	return err
}

// buildVersionData заполняет пустые значения: "dev" для версии,
// "unknown" для коммита.
func buildVersionData(version, commit string) *VersionData {
	if version == "" {
		version = "dev"
	}
	if commit == "" {
		commit = "unknown"
	}
	return &VersionData{
		Version:    version,
		GoVersion:  runtime.Version(),
		Commit:     commit,
		APIVersion: constants.APIVersion,
	}
}

// VersionHandler обрабатывает команду version.
type VersionHandler struct{}

func (h *VersionHandler) Name() string { return constants.ActVersion }

func (h *VersionHandler) Description() string {
	return "Вывод информации о версии приложения"
}

// Execute не обращается к хранилищу.
// Текстовый формат компактный, без metadata; JSON — стандартный Result.
func (h *VersionHandler) Execute(ctx context.Context, app *di.App) error {
	start := time.Now()
	data := buildVersionData(constants.Version, constants.Commit)

	if app.Config == nil || app.Config.OutputFormat != output.FormatJSON {
		return data.writeText(app.Stdout)
	}

	traceID := tracing.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = app.TraceID
	}
	return app.OutputWriter.Write(app.Stdout, output.Success(h.Name(), data, output.NewMetadata(start, traceID)))
}
