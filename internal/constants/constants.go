// Package constants содержит константы pipeline-monitor: имена команд,
// версию и служебные значения, общие для CLI и HTTP слоя.
package constants

// Версия сборки. Переопределяется при сборке:
//
//	go build -ldflags "-X github.com/Kargones/pipeline-monitor/internal/constants.Version=1.2.0 \
//	    -X github.com/Kargones/pipeline-monitor/internal/constants.Commit=$(git rev-parse --short HEAD)"
var (
	Version = "dev"
	Commit  = ""
)

// AppName — имя приложения в логах, метриках и help.
const AppName = "pipeline-monitor"

// APIVersion — версия формата JSON вывода команд.
const APIVersion = "v1"

// Константы действий (команд)
const (
	// ActServe — HTTP API дашборда и периодический сбор системных метрик.
	ActServe = "serve"
	// ActMigrate — создание таблиц и индексов хранилища.
	ActMigrate = "migrate"
	// ActSeed — заполнение хранилища демонстрационными данными.
	ActSeed = "seed"
	// ActRecordExecution — запись запуска пайплайна.
	ActRecordExecution = "record-execution"
	// ActRecordQuality — запись метрики качества данных.
	ActRecordQuality = "record-quality"
	// ActCollectSystem — однократный сбор системных метрик.
	ActCollectSystem = "collect-system"
	// ActPipelines — список пайплайнов со статистикой.
	ActPipelines = "pipelines"
	// ActExecutions — история запусков пайплайна.
	ActExecutions = "executions"
	// ActQuality — метрики качества пайплайна по группам.
	ActQuality = "quality"
	// ActSystemMetrics — серии системных метрик.
	ActSystemMetrics = "system-metrics"
	// ActSummary — общая сводка.
	ActSummary = "summary"
	// ActVersion — версия приложения.
	ActVersion = "version"
	// ActHelp — список команд.
	ActHelp = "help"
)

// Коды завершения процесса.
const (
	ExitOK             = 0
	ExitUnknownCommand = 2
	ExitValidation     = 3
	ExitStorage        = 4
	ExitConfig         = 5
	ExitFailure        = 8
)
