// Package handlers явно регистрирует все обработчики команд.
// Регистрация без init() делает граф зависимостей явным и тестируемым.
package handlers

import (
	"github.com/Kargones/pipeline-monitor/internal/command/handlers/help"
	"github.com/Kargones/pipeline-monitor/internal/command/handlers/migratehandler"
	"github.com/Kargones/pipeline-monitor/internal/command/handlers/queryhandler"
	"github.com/Kargones/pipeline-monitor/internal/command/handlers/recordhandler"
	"github.com/Kargones/pipeline-monitor/internal/command/handlers/seedhandler"
	"github.com/Kargones/pipeline-monitor/internal/command/handlers/servehandler"
	"github.com/Kargones/pipeline-monitor/internal/command/handlers/version"
)

// RegisterAll регистрирует все обработчики в глобальном реестре.
// Вызывается один раз из main() до выполнения команд.
func RegisterAll() error {
	registrars := []func() error{
		help.RegisterCmd,
		version.RegisterCmd,
		migratehandler.RegisterCmd,
		seedhandler.RegisterCmd,
		servehandler.RegisterCmd,
		recordhandler.RegisterCmd,
		queryhandler.RegisterCmd,
	}
	for _, register := range registrars {
		if err := register(); err != nil {
			return err
		}
	}
	return nil
}
