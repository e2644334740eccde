// Package command предоставляет интерфейсы и реестр для команд приложения.
// Обработчики регистрируются явно через handlers.RegisterAll() из main.
package command

import (
	"context"

	"github.com/spf13/pflag"

	"github.com/Kargones/pipeline-monitor/internal/di"
)

// Handler определяет интерфейс обработчика команды.
type Handler interface {
	// Name возвращает имя команды в kebab-case.
	// Должно соответствовать константам из internal/constants.
	Name() string

	// Description возвращает описание команды для вывода в help.
	Description() string

	// Execute выполняет команду с зависимостями приложения.
	// Результат пишется в app.Stdout через app.OutputWriter.
	Execute(ctx context.Context, app *di.App) error
}

// FlagBinder реализуют обработчики с собственными флагами.
// Флаги привязываются к полям обработчика до вызова Execute.
type FlagBinder interface {
	BindFlags(fs *pflag.FlagSet)
}
