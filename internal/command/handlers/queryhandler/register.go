// Package queryhandler реализует команды чтения агрегатов:
// pipelines, executions, quality, system-metrics и summary.
// Отсутствующие флаги окна берутся из секции query конфигурации.
package queryhandler

import "github.com/Kargones/pipeline-monitor/internal/command"

// RegisterCmd регистрирует команды пакета.
func RegisterCmd() error {
	for _, h := range []command.Handler{
		&PipelinesHandler{},
		&ExecutionsHandler{},
		&QualityHandler{},
		&SystemHandler{},
		&SummaryHandler{},
	} {
		if err := command.Register(h); err != nil {
			return err
		}
	}
	return nil
}
