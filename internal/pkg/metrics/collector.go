// Package metrics — Prometheus-метрики pipeline-monitor.
//
// В режиме serve метрики отдаются через Handler (GET /metrics),
// одноразовые CLI-команды отправляют их в Pushgateway через Push.
// При отключённых метриках используется NopCollector.
package metrics

import (
	"context"
	"net/http"
	"time"
)

// Виды записей для RecordIngest.
const (
	KindExecution = "execution"
	KindQuality   = "quality"
	KindSystem    = "system"
)

// Исходы записи для RecordIngest.
const (
	OutcomeOK         = "ok"
	OutcomeValidation = "validation"
	OutcomeStorage    = "storage"
)

// Collector — интерфейс сбора метрик.
type Collector interface {
	// RecordIngest учитывает попытку записи наблюдения.
	RecordIngest(kind, outcome string)
	// ObserveSystemSample обновляет gauge последнего системного замера.
	ObserveSystemSample(cpu, memory, disk float64)
	// RecordProviderFailure учитывает сбой чтения системной метрики.
	RecordProviderFailure(metric string)
	// ObserveQuery учитывает длительность агрегирующего запроса.
	ObserveQuery(op string, d time.Duration, success bool)
	// RecordCommand учитывает выполнение CLI-команды.
	RecordCommand(command string, d time.Duration, success bool)
	// Handler возвращает HTTP-обработчик для экспозиции метрик.
	Handler() http.Handler
	// Push отправляет метрики в Pushgateway. Ошибки только логируются,
	// возвращается всегда nil.
	Push(ctx context.Context) error
}
