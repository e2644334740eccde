// Package migratehandler реализует команду migrate: создание таблиц
// и индексов хранилища. Повторный запуск ничего не меняет.
package migratehandler

import (
	"context"
	"fmt"
	"io"

	"github.com/Kargones/pipeline-monitor/internal/command"
	"github.com/Kargones/pipeline-monitor/internal/command/handlers/shared"
	"github.com/Kargones/pipeline-monitor/internal/constants"
	"github.com/Kargones/pipeline-monitor/internal/di"
	"github.com/Kargones/pipeline-monitor/internal/pkg/logging"
	"github.com/Kargones/pipeline-monitor/internal/pkg/urlutil"
)

// RegisterCmd регистрирует команду migrate.
func RegisterCmd() error {
	return command.Register(&MigrateHandler{})
}

// MigrateHandler обрабатывает команду migrate.
type MigrateHandler struct{}

func (h *MigrateHandler) Name() string { return constants.ActMigrate }

func (h *MigrateHandler) Description() string {
	return "Создание таблиц и индексов хранилища"
}

// MigrationReport — результат migrate.
type MigrationReport struct {
	Driver string `json:"driver"`
	// Target — файл sqlite3 или хост сервера; DSN выводится без пароля.
	Target string   `json:"target"`
	Tables []string `json:"tables"`
}

// RenderText печатает драйвер и таблицы.
func (r *MigrationReport) RenderText(w io.Writer) error {
	if _, err := fmt.Fprintf(w, "Схема применена: %s (%s)\n", r.Driver, r.Target); err != nil {
		return err
	}
	for _, t := range r.Tables {
		if _, err := fmt.Fprintf(w, "  - %s\n", t); err != nil {
			return err
		}
	}
	return nil
}

// Execute подключается к хранилищу и применяет схему.
func (h *MigrateHandler) Execute(ctx context.Context, app *di.App) error {
	return shared.Run(ctx, app, h.Name(), func(ctx context.Context, log logging.Logger) (any, error) {
		if err := app.Store.Connect(ctx); err != nil {
			return nil, err
		}
		if err := app.Store.Migrate(ctx); err != nil {
			return nil, err
		}

		report := &MigrationReport{
			Driver: app.Config.Database.Driver,
			Target: target(app),
			Tables: []string{"pipeline_executions", "data_quality_metrics", "system_metrics"},
		}
		log.Info("миграция выполнена", "driver", report.Driver, "target", report.Target)
		return report, nil
	})
}

func target(app *di.App) string {
	db := app.Config.Database
	switch {
	case db.DSN != "":
		return urlutil.MaskDSN(db.DSN)
	case db.Host != "":
		return db.Host
	default:
		return db.Path
	}
}
