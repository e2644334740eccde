// Package help реализует команду help: список зарегистрированных команд
// и переменных окружения.
package help

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Kargones/pipeline-monitor/internal/command"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/pkg/output"
	"github.com/Kargones/pipeline-monitor/internal/pkg/tracing"
)

// RegisterCmd регистрирует команду help.
func RegisterCmd() error {
	return command.Register(&Handler{})
}

// Data содержит информацию обо всех доступных командах.
type Data struct {
	Commands []CommandInfo `json:"commands"`
}

// CommandInfo описывает одну команду.
type CommandInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// options — переменные окружения, влияющие на все команды.
var options = [][2]string{
	{"PM_CONFIG=path", "Путь к YAML конфигурации (config.yaml)"},
	{"PM_OUTPUT_FORMAT=json", "Машиночитаемый вывод"},
	{"PM_COMMAND=name", "Команда, если не передана аргументом"},
	{"PM_DB_DRIVER=sqlite3", "Хранилище: sqlite3, mssql или mysql"},
	{"PM_LOG_LEVEL=debug", "Уровень логирования"},
}

// Handler обрабатывает команду help.
type Handler struct{}

func (h *Handler) Name() string { return constants.ActHelp }

func (h *Handler) Description() string {
	return "Вывод списка доступных команд"
}

// Execute собирает список команд из реестра и выводит его.
func (h *Handler) Execute(ctx context.Context, app *di.App) error {
	start := time.Now()
	data := buildData()

	if app.Config == nil || app.Config.OutputFormat != output.FormatJSON {
		return data.writeText(app.Stdout)
	}

	traceID := tracing.TraceIDFromContext(ctx)
	if traceID == "" {
		traceID = app.TraceID
	}
	return app.OutputWriter.Write(app.Stdout, output.Success(h.Name(), data, output.NewMetadata(start, traceID)))
}

// buildData собирает команды реестра, отсортированные по имени.
func buildData() *Data {
	all := command.All()
	data := &Data{Commands: make([]CommandInfo, 0, len(all))}
	for name, handler := range all {
		data.Commands = append(data.Commands, CommandInfo{
			Name:        name,
			Description: handler.Description(),
		})
	}
	sort.Slice(data.Commands, func(i, j int) bool {
		return data.Commands[i].Name < data.Commands[j].Name
	})
	return data
}

// writeText выводит команды и опции в человекочитаемом формате.
func (d *Data) writeText(w io.Writer) error {
	var sb strings.Builder

	sb.WriteString(constants.AppName + " — мониторинг пайплайнов данных\n")
	sb.WriteString("\nИспользование:\n  " + constants.AppName + " <команда> [флаги]\n")
	sb.WriteString("\nКоманды:\n")

	maxLen := 0
	for _, cmd := range d.Commands {
		maxLen = max(maxLen, len(cmd.Name))
	}
	for _, cmd := range d.Commands {
		fmt.Fprintf(&sb, "  %-*s  %s\n", maxLen, cmd.Name, cmd.Description)
	}

	sb.WriteString("\nОпции:\n")
	for _, o := range options {
		fmt.Fprintf(&sb, "  %-22s  %s\n", o[0], o[1])
	}

	_, err := fmt.Fprint(w, sb.String())
	return err
}
