//go:build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/Kargones/pipeline-monitor/internal/config"
)

//go:generate wire

// ProviderSet объединяет все провайдеры приложения.
//
// При добавлении новых провайдеров:
// 1. Создать функцию провайдера в providers.go
// 2. Добавить её в ProviderSet
// 3. Перегенерировать: go generate ./internal/di/...
var ProviderSet = wire.NewSet(
	ProvideLogger,
	ProvideOutputWriter,
	ProvideStdout,
	ProvideTraceID,
	ProvideMetricsCollector,
	ProvideTracerProvider,
	ProvideStore,
	ProvideSysinfo,
	ProvideRecorder,
	ProvideEngine,
	wire.Struct(new(App), "*"),
)

// InitializeApp создаёт App через Wire DI. Принимает загруженный Config.
// Возвращаемая cleanup-функция закрывает хранилище.
//
//	app, cleanup, err := di.InitializeApp(cfg)
//	if err != nil {
//	    return err
//	}
//	defer cleanup()
func InitializeApp(cfg *config.Config) (*App, func(), error) {
	wire.Build(ProviderSet)
	return nil, nil, nil
}
